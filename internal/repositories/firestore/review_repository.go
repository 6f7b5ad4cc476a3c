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

const reviewsCollection = "reviews"

// ReviewRepository persists product reviews.
type ReviewRepository struct {
	base *pfirestore.BaseRepository[reviewDocument]
}

// NewReviewRepository constructs a Firestore-backed review repository.
func NewReviewRepository(provider *pfirestore.Provider) (*ReviewRepository, error) {
	if provider == nil {
		return nil, errors.New("review repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[reviewDocument](provider, reviewsCollection)
	return &ReviewRepository{base: base}, nil
}

// Insert stores a new review.
func (r *ReviewRepository) Insert(ctx context.Context, review domain.Review) error {
	if r == nil || r.base == nil {
		return errors.New("review repository not initialised")
	}
	reviewID := strings.TrimSpace(review.ID)
	if reviewID == "" {
		return errors.New("review repository: review id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, reviewID)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeReviewDocument(review)); err != nil {
		return pfirestore.WrapError("reviews.insert", err)
	}
	return nil
}

// FindByID fetches a single review.
func (r *ReviewRepository) FindByID(ctx context.Context, reviewID string) (domain.Review, error) {
	if r == nil || r.base == nil {
		return domain.Review{}, errors.New("review repository not initialised")
	}
	reviewID = strings.TrimSpace(reviewID)
	if reviewID == "" {
		return domain.Review{}, errors.New("review repository: review id is required")
	}
	doc, err := r.base.Get(ctx, reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	return decodeReviewDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// FindByUserAndProduct returns the user's review for a product if one exists.
func (r *ReviewRepository) FindByUserAndProduct(ctx context.Context, userID, productID string) (domain.Review, error) {
	if r == nil || r.base == nil {
		return domain.Review{}, errors.New("review repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	productID = strings.TrimSpace(productID)
	if userID == "" || productID == "" {
		return domain.Review{}, errors.New("review repository: user id and product id are required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("userId", "==", userID).Where("productId", "==", productID).Limit(1)
	})
	if err != nil {
		return domain.Review{}, err
	}
	if len(docs) == 0 {
		return domain.Review{}, pfirestore.NewNotFoundError("reviews.find_by_user_product", fmt.Errorf("no review by %s for %s", userID, productID))
	}
	doc := docs[0]
	return decodeReviewDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// List returns reviews newest first, filtered by product, user or status.
func (r *ReviewRepository) List(ctx context.Context, filter repositories.ReviewListFilter) (domain.CursorPage[domain.Review], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Review]{}, errors.New("review repository not initialised")
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
			return domain.CursorPage[domain.Review]{}, fmt.Errorf("review repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	productID := strings.TrimSpace(filter.ProductID)
	userID := strings.TrimSpace(filter.UserID)

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if productID != "" {
			q = q.Where("productId", "==", productID)
		}
		if userID != "" {
			q = q.Where("userId", "==", userID)
		}
		if filter.Status != nil {
			q = q.Where("status", "==", string(*filter.Status))
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
		return domain.CursorPage[domain.Review]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		nextToken = encodeTimeCursor(chooseTime(last.Data.CreatedAt, last.CreateTime), last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Review, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeReviewDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime))
	}
	return domain.CursorPage[domain.Review]{Items: items, NextPageToken: nextToken}, nil
}

// UpdateStatus moderates the review.
func (r *ReviewRepository) UpdateStatus(ctx context.Context, reviewID string, status domain.ReviewStatus, updatedAt time.Time) (domain.Review, error) {
	if r == nil || r.base == nil {
		return domain.Review{}, errors.New("review repository not initialised")
	}
	reviewID = strings.TrimSpace(reviewID)
	if reviewID == "" {
		return domain.Review{}, errors.New("review repository: review id is required")
	}
	updates := []firestore.Update{
		{Path: "status", Value: string(status)},
		{Path: "updatedAt", Value: updatedAt.UTC()},
	}
	if _, err := r.base.Update(ctx, reviewID, updates); err != nil {
		return domain.Review{}, err
	}
	return r.FindByID(ctx, reviewID)
}


type reviewDocument struct {
	ProductID string    `firestore:"productId"`
	UserID    string    `firestore:"userId"`
	OrderID   string    `firestore:"orderId,omitempty"`
	Rating    int       `firestore:"rating"`
	Title     string    `firestore:"title,omitempty"`
	Comment   string    `firestore:"comment,omitempty"`
	Status    string    `firestore:"status"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func encodeReviewDocument(review domain.Review) reviewDocument {
	doc := reviewDocument{
		ProductID: strings.TrimSpace(review.ProductID),
		UserID:    strings.TrimSpace(review.UserID),
		Rating:    review.Rating,
		Title:     strings.TrimSpace(review.Title),
		Comment:   review.Comment,
		Status:    string(review.Status),
		CreatedAt: review.CreatedAt.UTC(),
		UpdatedAt: review.UpdatedAt.UTC(),
	}
	if review.OrderID != nil {
		doc.OrderID = strings.TrimSpace(*review.OrderID)
	}
	return doc
}

func decodeReviewDocument(id string, doc reviewDocument, createTime, updateTime time.Time) domain.Review {
	review := domain.Review{
		ID:        id,
		ProductID: doc.ProductID,
		UserID:    doc.UserID,
		Rating:    doc.Rating,
		Title:     doc.Title,
		Comment:   doc.Comment,
		Status:    domain.ReviewStatus(doc.Status),
		CreatedAt: chooseTime(doc.CreatedAt, createTime),
		UpdatedAt: chooseTime(doc.UpdatedAt, updateTime),
	}
	if doc.OrderID != "" {
		orderID := doc.OrderID
		review.OrderID = &orderID
	}
	return review
}

var _ repositories.ReviewRepository = (*ReviewRepository)(nil)
