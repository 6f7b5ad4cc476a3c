package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/nivasa-store/api/internal/domain"
	pfirestore "github.com/nivasa-store/api/internal/platform/firestore"
	"github.com/nivasa-store/api/internal/repositories"
)

const productsCollection = "products"

// ProductRepository persists catalog products and their variant trees.
type ProductRepository struct {
	base *pfirestore.BaseRepository[productDocument]
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[productDocument](provider, productsCollection)
	return &ProductRepository{base: base}, nil
}

// Insert stores a new product document. The ID must be unique.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	productID := strings.TrimSpace(product.ID)
	if productID == "" {
		return errors.New("product repository: product id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, productID)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeProductDocument(product)); err != nil {
		return pfirestore.WrapError("products.insert", err)
	}
	return nil
}

// Update replaces the persisted product state.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	productID := strings.TrimSpace(product.ID)
	if productID == "" {
		return errors.New("product repository: product id is required")
	}
	if _, err := r.base.Set(ctx, productID, encodeProductDocument(product)); err != nil {
		return err
	}
	return nil
}

// Delete removes the product document.
func (r *ProductRepository) Delete(ctx context.Context, productID string) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return errors.New("product repository: product id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, productID)
	if err != nil {
		return err
	}
	if _, err := docRef.Delete(ctx); err != nil {
		return pfirestore.WrapError("products.delete", err)
	}
	return nil
}

// FindByID fetches a single product.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, errors.New("product repository: product id is required")
	}
	doc, err := r.base.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return decodeProductDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// FindBySlug resolves a product by its URL slug.
func (r *ProductRepository) FindBySlug(ctx context.Context, slug string) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return domain.Product{}, errors.New("product repository: slug is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("slug", "==", slug).Limit(1)
	})
	if err != nil {
		return domain.Product{}, err
	}
	if len(docs) == 0 {
		return domain.Product{}, pfirestore.NewNotFoundError("products.find_by_slug", fmt.Errorf("product with slug %q not found", slug))
	}
	doc := docs[0]
	return decodeProductDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// FindByIDs loads products in bulk. Missing IDs are silently omitted so cart
// estimates can tolerate deleted products.
func (r *ProductRepository) FindByIDs(ctx context.Context, productIDs []string) ([]domain.Product, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("product repository not initialised")
	}

	ids := make([]string, 0, len(productIDs))
	seen := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		ids = append(ids, trimmed)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	products := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		doc, err := r.base.Get(ctx, id)
		if err != nil {
			var repoErr repositories.RepositoryError
			if errors.As(err, &repoErr) && repoErr.IsNotFound() {
				continue
			}
			return nil, err
		}
		products = append(products, decodeProductDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime))
	}
	return products, nil
}

// List returns catalog products ordered by newest first.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Product]{}, errors.New("product repository not initialised")
	}

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeTimeCursor(token)
		if err != nil {
			return domain.CursorPage[domain.Product]{}, fmt.Errorf("product repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	category := strings.ToLower(strings.TrimSpace(filter.Category))
	brand := strings.TrimSpace(filter.Brand)

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.PublishedOnly {
			q = q.Where("published", "==", true)
		}
		if category != "" {
			q = q.Where("category", "==", category)
		}
		if brand != "" {
			q = q.Where("brand", "==", brand)
		}
		if filter.PriceRange.From != nil {
			q = q.Where("basePrice", ">=", *filter.PriceRange.From)
		}
		if filter.PriceRange.To != nil {
			q = q.Where("basePrice", "<=", *filter.PriceRange.To)
		}

		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Product]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		tokenTime := last.Data.CreatedAt
		if tokenTime.IsZero() {
			tokenTime = last.CreateTime
		}
		nextToken = encodeTimeCursor(tokenTime, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeProductDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime))
	}

	return domain.CursorPage[domain.Product]{Items: items, NextPageToken: nextToken}, nil
}

type productDocument struct {
	Slug          string                 `firestore:"slug"`
	Name          string                 `firestore:"name"`
	Description   string                 `firestore:"description,omitempty"`
	Category      string                 `firestore:"category,omitempty"`
	Brand         string                 `firestore:"brand,omitempty"`
	BasePrice     float64                `firestore:"basePrice"`
	DiscountType  string                 `firestore:"discountType,omitempty"`
	DiscountValue float64                `firestore:"discountValue,omitempty"`
	Images        []productImageDocument `firestore:"images,omitempty"`
	VariantGroups []variantGroupDocument `firestore:"variantGroups,omitempty"`
	Specs         map[string]string      `firestore:"specs,omitempty"`
	StockCount    int                    `firestore:"stockCount"`
	Published     bool                   `firestore:"published"`
	CreatedAt     time.Time              `firestore:"createdAt"`
	UpdatedAt     time.Time              `firestore:"updatedAt"`
}

type productImageDocument struct {
	URL string `firestore:"url"`
	Alt string `firestore:"alt,omitempty"`
}

type variantGroupDocument struct {
	AttributeCode string                  `firestore:"attributeCode"`
	Label         string                  `firestore:"label,omitempty"`
	Options       []variantOptionDocument `firestore:"options"`
}

type variantOptionDocument struct {
	Value         string                 `firestore:"value"`
	Label         string                 `firestore:"label,omitempty"`
	PriceModifier float64                `firestore:"priceModifier,omitempty"`
	Image         string                 `firestore:"image,omitempty"`
	SubGroups     []variantGroupDocument `firestore:"subGroups,omitempty"`
}

func encodeProductDocument(product domain.Product) productDocument {
	doc := productDocument{
		Slug:        strings.ToLower(strings.TrimSpace(product.Slug)),
		Name:        strings.TrimSpace(product.Name),
		Description: strings.TrimSpace(product.Description),
		Category:    strings.ToLower(strings.TrimSpace(product.Category)),
		Brand:       strings.TrimSpace(product.Brand),
		BasePrice:   product.BasePrice,
		Specs:       cloneStringMap(product.Specs),
		StockCount:  product.StockCount,
		Published:   product.Published,
		CreatedAt:   product.CreatedAt.UTC(),
		UpdatedAt:   product.UpdatedAt.UTC(),
	}
	if product.DiscountType != nil {
		doc.DiscountType = string(*product.DiscountType)
		doc.DiscountValue = product.DiscountValue
	}
	for _, image := range product.Images {
		doc.Images = append(doc.Images, productImageDocument{URL: image.URL, Alt: image.Alt})
	}
	doc.VariantGroups = encodeVariantGroups(product.VariantGroups)
	return doc
}

func encodeVariantGroups(groups []domain.VariantGroup) []variantGroupDocument {
	if len(groups) == 0 {
		return nil
	}
	out := make([]variantGroupDocument, 0, len(groups))
	for _, group := range groups {
		doc := variantGroupDocument{
			AttributeCode: strings.TrimSpace(group.AttributeCode),
			Label:         strings.TrimSpace(group.Label),
		}
		for _, opt := range group.Options {
			doc.Options = append(doc.Options, variantOptionDocument{
				Value:         strings.TrimSpace(opt.Value),
				Label:         strings.TrimSpace(opt.Label),
				PriceModifier: opt.PriceModifier,
				Image:         strings.TrimSpace(opt.Image),
				SubGroups:     encodeVariantGroups(opt.SubGroups),
			})
		}
		out = append(out, doc)
	}
	return out
}

func decodeProductDocument(id string, doc productDocument, createTime, updateTime time.Time) domain.Product {
	product := domain.Product{
		ID:          id,
		Slug:        doc.Slug,
		Name:        doc.Name,
		Description: doc.Description,
		Category:    doc.Category,
		Brand:       doc.Brand,
		BasePrice:   doc.BasePrice,
		Specs:       cloneStringMap(doc.Specs),
		StockCount:  doc.StockCount,
		Published:   doc.Published,
		CreatedAt:   chooseTime(doc.CreatedAt, createTime),
		UpdatedAt:   chooseTime(doc.UpdatedAt, updateTime),
	}
	if doc.DiscountType != "" {
		kind := domain.DiscountType(doc.DiscountType)
		product.DiscountType = &kind
		product.DiscountValue = doc.DiscountValue
	}
	for _, image := range doc.Images {
		product.Images = append(product.Images, domain.ProductImage{URL: image.URL, Alt: image.Alt})
	}
	product.VariantGroups = decodeVariantGroups(doc.VariantGroups)
	return product
}

func decodeVariantGroups(groups []variantGroupDocument) []domain.VariantGroup {
	if len(groups) == 0 {
		return nil
	}
	out := make([]domain.VariantGroup, 0, len(groups))
	for _, group := range groups {
		decoded := domain.VariantGroup{
			AttributeCode: group.AttributeCode,
			Label:         group.Label,
		}
		for _, opt := range group.Options {
			decoded.Options = append(decoded.Options, domain.VariantOption{
				Value:         opt.Value,
				Label:         opt.Label,
				PriceModifier: opt.PriceModifier,
				Image:         opt.Image,
				SubGroups:     decodeVariantGroups(opt.SubGroups),
			})
		}
		out = append(out, decoded)
	}
	return out
}

func cloneStringMap(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)
