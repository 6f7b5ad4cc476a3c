package services

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/nivasa-store/api/internal/domain"
	"github.com/nivasa-store/api/internal/repositories"
)

// ErrWishlistInvalidInput indicates the caller supplied invalid input.
var ErrWishlistInvalidInput = errors.New("wishlist service: invalid input")

// ErrWishlistUnavailable indicates the wishlist service cannot fulfil the request due to backend issues.
var ErrWishlistUnavailable = errors.New("wishlist service: unavailable")

// WishlistServiceDeps wires the repositories required by wishlist operations.
type WishlistServiceDeps struct {
	Wishlists repositories.WishlistRepository
	Products  repositories.ProductRepository
	Clock     func() time.Time
	Logger    func(context.Context, string, map[string]any)
}

type wishlistService struct {
	wishlists repositories.WishlistRepository
	products  repositories.ProductRepository
	now       func() time.Time
	logger    func(context.Context, string, map[string]any)
}

// NewWishlistService constructs a WishlistService enforcing dependency validation.
func NewWishlistService(deps WishlistServiceDeps) (WishlistService, error) {
	if deps.Wishlists == nil {
		return nil, errors.New("wishlist service: wishlist repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("wishlist service: product repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &wishlistService{
		wishlists: deps.Wishlists,
		products:  deps.Products,
		now:       func() time.Time { return clock().UTC() },
		logger:    logger,
	}, nil
}

// List returns the user's saved products hydrated with catalog summaries.
// Items whose product has since been removed keep their slot with a nil
// summary so callers can render a placeholder.
func (s *wishlistService) List(ctx context.Context, userID string) ([]WishlistProduct, error) {
	if s == nil || s.wishlists == nil {
		return nil, ErrWishlistUnavailable
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, ErrWishlistInvalidInput
	}

	items, err := s.wishlists.List(ctx, uid)
	if err != nil {
		return nil, s.translateRepoError(err)
	}
	if len(items) == 0 {
		return []WishlistProduct{}, nil
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, s.translateRepoError(err)
	}
	byID := make(map[string]domain.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	out := make([]WishlistProduct, 0, len(items))
	for _, item := range items {
		entry := WishlistProduct{ProductID: item.ProductID, AddedAt: item.AddedAt}
		if product, ok := byID[item.ProductID]; ok && product.Published {
			image := ""
			if len(product.Images) > 0 {
				image = product.Images[0].URL
			}
			entry.Product = &ProductSummary{
				ID:        product.ID,
				Name:      product.Name,
				Image:     image,
				Category:  product.Category,
				BasePrice: product.BasePrice,
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

// Toggle marks or unmarks a product on the wishlist. It returns the resulting
// membership state. Marking verifies the product exists; unmarking an absent
// item is a no-op.
func (s *wishlistService) Toggle(ctx context.Context, cmd ToggleWishlistCommand) (bool, error) {
	if s == nil || s.wishlists == nil {
		return false, ErrWishlistUnavailable
	}
	uid := strings.TrimSpace(cmd.UserID)
	productID := strings.TrimSpace(cmd.ProductID)
	if uid == "" || productID == "" {
		return false, ErrWishlistInvalidInput
	}

	if !cmd.Mark {
		if err := s.wishlists.Remove(ctx, uid, productID); err != nil && !isRepoNotFound(err) {
			return false, s.translateRepoError(err)
		}
		return false, nil
	}

	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if isRepoNotFound(err) {
			return false, ErrWishlistInvalidInput
		}
		return false, s.translateRepoError(err)
	}
	item := domain.WishlistItem{ProductID: productID, AddedAt: s.now()}
	if err := s.wishlists.Add(ctx, uid, item); err != nil {
		return false, s.translateRepoError(err)
	}
	return true, nil
}

// Contains reports whether the product is on the user's wishlist.
func (s *wishlistService) Contains(ctx context.Context, userID, productID string) (bool, error) {
	if s == nil || s.wishlists == nil {
		return false, ErrWishlistUnavailable
	}
	uid := strings.TrimSpace(userID)
	pid := strings.TrimSpace(productID)
	if uid == "" || pid == "" {
		return false, ErrWishlistInvalidInput
	}
	found, err := s.wishlists.Contains(ctx, uid, pid)
	if err != nil {
		return false, s.translateRepoError(err)
	}
	return found, nil
}

func (s *wishlistService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
		return ErrWishlistUnavailable
	}
	return ErrWishlistUnavailable
}
