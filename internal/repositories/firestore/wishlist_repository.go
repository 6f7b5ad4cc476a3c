package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/nivasa-store/api/internal/domain"
	pfirestore "github.com/nivasa-store/api/internal/platform/firestore"
	"github.com/nivasa-store/api/internal/repositories"
)

const wishlistCollectionPattern = "users/%s/wishlist"

// WishlistRepository persists saved products per user as a subcollection so
// membership checks stay a single document read.
type WishlistRepository struct {
	provider *pfirestore.Provider
}

// NewWishlistRepository constructs a Firestore-backed wishlist repository.
func NewWishlistRepository(provider *pfirestore.Provider) (*WishlistRepository, error) {
	if provider == nil {
		return nil, errors.New("wishlist repository requires firestore provider")
	}
	return &WishlistRepository{provider: provider}, nil
}

// List returns saved products ordered by most recent addition.
func (r *WishlistRepository) List(ctx context.Context, userID string) ([]domain.WishlistItem, error) {
	coll, err := r.collection(ctx, userID)
	if err != nil {
		return nil, err
	}

	iter := coll.OrderBy("addedAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var items []domain.WishlistItem
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("wishlist.list", err)
		}
		var doc wishlistItemDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("wishlist.list: decode %s: %w", snap.Ref.ID, err)
		}
		items = append(items, domain.WishlistItem{ProductID: snap.Ref.ID, AddedAt: doc.AddedAt})
	}
	return items, nil
}

// Add saves a product, overwriting any previous entry.
func (r *WishlistRepository) Add(ctx context.Context, userID string, item domain.WishlistItem) error {
	coll, err := r.collection(ctx, userID)
	if err != nil {
		return err
	}
	productID := strings.TrimSpace(item.ProductID)
	if productID == "" {
		return errors.New("wishlist repository: product id is required")
	}
	addedAt := item.AddedAt.UTC()
	if addedAt.IsZero() {
		addedAt = time.Now().UTC()
	}
	if _, err := coll.Doc(productID).Set(ctx, wishlistItemDocument{AddedAt: addedAt}); err != nil {
		return pfirestore.WrapError("wishlist.add", err)
	}
	return nil
}

// Remove deletes the saved product. Removing an absent entry is not an error.
func (r *WishlistRepository) Remove(ctx context.Context, userID, productID string) error {
	coll, err := r.collection(ctx, userID)
	if err != nil {
		return err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return errors.New("wishlist repository: product id is required")
	}
	if _, err := coll.Doc(productID).Delete(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return pfirestore.WrapError("wishlist.remove", err)
	}
	return nil
}

// Contains reports whether the product is saved for the user.
func (r *WishlistRepository) Contains(ctx context.Context, userID, productID string) (bool, error) {
	coll, err := r.collection(ctx, userID)
	if err != nil {
		return false, err
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return false, errors.New("wishlist repository: product id is required")
	}
	if _, err := coll.Doc(productID).Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, pfirestore.WrapError("wishlist.contains", err)
	}
	return true, nil
}

func (r *WishlistRepository) collection(ctx context.Context, userID string) (*firestore.CollectionRef, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("wishlist repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, errors.New("wishlist repository: user id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(fmt.Sprintf(wishlistCollectionPattern, uid)), nil
}

type wishlistItemDocument struct {
	AddedAt time.Time `firestore:"addedAt"`
}

var _ repositories.WishlistRepository = (*WishlistRepository)(nil)
