package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/nivasa-store/api/internal/domain"
	"github.com/nivasa-store/api/internal/pricing"
	"github.com/nivasa-store/api/internal/repositories"
)

// ErrCatalogInvalidInput indicates the caller supplied invalid input.
var ErrCatalogInvalidInput = errors.New("catalog service: invalid input")

// ErrCatalogNotFound indicates the requested product does not exist.
var ErrCatalogNotFound = errors.New("catalog service: not found")

// ErrCatalogConflict indicates the product could not be written due to a duplicate or concurrent change.
var ErrCatalogConflict = errors.New("catalog service: conflict")

// ErrCatalogUnavailable indicates the catalog backend cannot fulfil the request.
var ErrCatalogUnavailable = errors.New("catalog service: unavailable")

const (
	maxCatalogPageSize = 100
	maxCompareProducts = 4
)

// CatalogServiceDeps wires the repository and ambient dependencies for catalog operations.
type CatalogServiceDeps struct {
	Repository  repositories.ProductRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type catalogService struct {
	repo   repositories.ProductRepository
	now    func() time.Time
	newID  func() string
	logger func(context.Context, string, map[string]any)
}

// NewCatalogService constructs a CatalogService enforcing dependency validation.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Repository == nil {
		return nil, errors.New("catalog service: repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &catalogService{
		repo:   deps.Repository,
		now:    func() time.Time { return clock().UTC() },
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter ProductListFilter) (domain.CursorPage[Product], error) {
	if s == nil || s.repo == nil {
		return domain.CursorPage[Product]{}, ErrCatalogUnavailable
	}
	if filter.Pagination.PageSize <= 0 {
		filter.Pagination.PageSize = 20
	}
	if filter.Pagination.PageSize > maxCatalogPageSize {
		filter.Pagination.PageSize = maxCatalogPageSize
	}
	filter.Category = strings.ToLower(strings.TrimSpace(filter.Category))
	filter.Brand = strings.TrimSpace(filter.Brand)

	page, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Product]{}, s.translateRepoError(err)
	}
	return page, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	if s == nil || s.repo == nil {
		return Product{}, ErrCatalogUnavailable
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, ErrCatalogInvalidInput
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return Product{}, s.translateRepoError(err)
	}
	return product, nil
}

func (s *catalogService) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	if s == nil || s.repo == nil {
		return Product{}, ErrCatalogUnavailable
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return Product{}, ErrCatalogInvalidInput
	}
	product, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return Product{}, s.translateRepoError(err)
	}
	return product, nil
}

// QuoteVariant resolves a selection against the product's variant tree and
// composes the resulting price. Stale selection entries are ignored.
func (s *catalogService) QuoteVariant(ctx context.Context, cmd QuoteVariantCommand) (VariantQuote, error) {
	if s == nil || s.repo == nil {
		return VariantQuote{}, ErrCatalogUnavailable
	}
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return VariantQuote{}, ErrCatalogInvalidInput
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return VariantQuote{}, s.translateRepoError(err)
	}
	return s.quote(product, cmd.Selection), nil
}

// SelectVariant applies a single attribute choice, clearing choices orphaned
// by the change and defaulting any nested groups the new option exposes.
func (s *catalogService) SelectVariant(ctx context.Context, cmd SelectVariantCommand) (VariantQuote, error) {
	if s == nil || s.repo == nil {
		return VariantQuote{}, ErrCatalogUnavailable
	}
	productID := strings.TrimSpace(cmd.ProductID)
	attribute := strings.TrimSpace(cmd.Attribute)
	if productID == "" || attribute == "" {
		return VariantQuote{}, ErrCatalogInvalidInput
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return VariantQuote{}, s.translateRepoError(err)
	}
	selection := pricing.Select(product.VariantGroups, cmd.Selection, attribute, cmd.Value)
	return s.quote(product, selection), nil
}

func (s *catalogService) quote(product Product, selection map[string]string) VariantQuote {
	resolution := pricing.Resolve(product.VariantGroups, selection)
	price := pricing.Compose(product, resolution.TotalModifier)
	image := resolution.DisplayImage
	if image == "" && len(product.Images) > 0 {
		image = product.Images[0].URL
	}
	return VariantQuote{
		ProductID:    product.ID,
		Selection:    selection,
		Resolution:   resolution,
		Price:        price,
		DisplayImage: image,
	}
}

// CompareProducts loads up to four products and prices each under its default
// selection. Missing IDs are silently dropped.
func (s *catalogService) CompareProducts(ctx context.Context, productIDs []string) ([]ProductComparison, error) {
	if s == nil || s.repo == nil {
		return nil, ErrCatalogUnavailable
	}
	ids := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	if len(ids) < 2 {
		return nil, fmt.Errorf("%w: at least two products are required", ErrCatalogInvalidInput)
	}
	if len(ids) > maxCompareProducts {
		return nil, fmt.Errorf("%w: at most %d products can be compared", ErrCatalogInvalidInput, maxCompareProducts)
	}

	products, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, s.translateRepoError(err)
	}

	comparisons := make([]ProductComparison, 0, len(products))
	for _, product := range products {
		if !product.Published {
			continue
		}
		defaults := pricing.DefaultSelection(product.VariantGroups)
		resolution := pricing.Resolve(product.VariantGroups, defaults)
		comparisons = append(comparisons, ProductComparison{
			Product: product,
			Price:   pricing.Compose(product, resolution.TotalModifier),
			Specs:   product.Specs,
		})
	}
	return comparisons, nil
}

func (s *catalogService) UpsertProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error) {
	if s == nil || s.repo == nil {
		return Product{}, ErrCatalogUnavailable
	}

	product := cmd.Product
	product.Name = strings.TrimSpace(product.Name)
	product.Slug = strings.ToLower(strings.TrimSpace(product.Slug))
	product.Category = strings.ToLower(strings.TrimSpace(product.Category))
	product.Brand = strings.TrimSpace(product.Brand)

	if product.Name == "" {
		return Product{}, fmt.Errorf("%w: name is required", ErrCatalogInvalidInput)
	}
	if product.Slug == "" {
		return Product{}, fmt.Errorf("%w: slug is required", ErrCatalogInvalidInput)
	}
	if product.BasePrice < 0 {
		return Product{}, fmt.Errorf("%w: base_price must be non-negative", ErrCatalogInvalidInput)
	}
	if err := validateDiscount(product.DiscountType, product.DiscountValue); err != nil {
		return Product{}, err
	}
	if err := validateVariantGroups(product.VariantGroups); err != nil {
		return Product{}, err
	}

	now := s.now()
	product.UpdatedAt = now

	isNew := strings.TrimSpace(product.ID) == ""
	if isNew {
		product.ID = s.newID()
		product.CreatedAt = now
		if err := s.repo.Insert(ctx, product); err != nil {
			return Product{}, s.translateRepoError(err)
		}
	} else {
		existing, err := s.repo.FindByID(ctx, product.ID)
		if err != nil {
			return Product{}, s.translateRepoError(err)
		}
		product.CreatedAt = existing.CreatedAt
		if err := s.repo.Update(ctx, product); err != nil {
			return Product{}, s.translateRepoError(err)
		}
	}

	s.logger(ctx, "catalog.product_upserted", map[string]any{
		"productId": product.ID,
		"actorId":   strings.TrimSpace(cmd.ActorID),
		"created":   isNew,
	})
	return product, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, productID string) error {
	if s == nil || s.repo == nil {
		return ErrCatalogUnavailable
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return ErrCatalogInvalidInput
	}
	if err := s.repo.Delete(ctx, productID); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

func validateDiscount(kind *DiscountType, value float64) error {
	if kind == nil {
		return nil
	}
	switch *kind {
	case domain.DiscountTypePercentage, domain.DiscountTypeFixed:
	default:
		return fmt.Errorf("%w: unknown discount type %q", ErrCatalogInvalidInput, *kind)
	}
	if value < 0 {
		return fmt.Errorf("%w: discount value must be non-negative", ErrCatalogInvalidInput)
	}
	return nil
}

func validateVariantGroups(groups []VariantGroup) error {
	seen := make(map[string]struct{})
	return walkVariantGroups(groups, seen)
}

// walkVariantGroups rejects duplicate attribute codes anywhere in the tree so
// selections stay unambiguous.
func walkVariantGroups(groups []VariantGroup, seen map[string]struct{}) error {
	for _, group := range groups {
		code := strings.TrimSpace(group.AttributeCode)
		if code == "" {
			return fmt.Errorf("%w: variant group attribute code is required", ErrCatalogInvalidInput)
		}
		if _, dup := seen[code]; dup {
			return fmt.Errorf("%w: duplicate variant attribute %q", ErrCatalogInvalidInput, code)
		}
		seen[code] = struct{}{}
		if len(group.Options) == 0 {
			return fmt.Errorf("%w: variant group %q has no options", ErrCatalogInvalidInput, code)
		}
		for _, opt := range group.Options {
			if strings.TrimSpace(opt.Value) == "" {
				return fmt.Errorf("%w: variant option in group %q has no value", ErrCatalogInvalidInput, code)
			}
			if len(opt.SubGroups) > 0 {
				if err := walkVariantGroups(opt.SubGroups, seen); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (s *catalogService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCatalogNotFound
		case repoErr.IsConflict():
			return ErrCatalogConflict
		case repoErr.IsUnavailable():
			return ErrCatalogUnavailable
		}
	}
	return ErrCatalogUnavailable
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}
