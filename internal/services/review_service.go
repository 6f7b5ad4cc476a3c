package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	domain "github.com/nivasa-store/api/internal/domain"
	"github.com/nivasa-store/api/internal/repositories"
)

// ErrReviewInvalidInput indicates the caller supplied invalid input.
var ErrReviewInvalidInput = errors.New("review service: invalid input")

// ErrReviewNotFound indicates the requested review does not exist.
var ErrReviewNotFound = errors.New("review service: not found")

// ErrReviewDuplicate indicates the user already reviewed the product.
var ErrReviewDuplicate = errors.New("review service: duplicate review")

// ErrReviewUnavailable indicates the review service cannot fulfil the request due to backend issues.
var ErrReviewUnavailable = errors.New("review service: unavailable")

const (
	maxReviewTitleLength   = 120
	maxReviewCommentLength = 4000
	maxReviewPageSize      = 100
)

// ReviewServiceDeps wires the repositories required by review operations.
type ReviewServiceDeps struct {
	Reviews     repositories.ReviewRepository
	Products    repositories.ProductRepository
	Orders      repositories.OrderRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type reviewService struct {
	reviews  repositories.ReviewRepository
	products repositories.ProductRepository
	orders   repositories.OrderRepository
	policy   *bluemonday.Policy
	now      func() time.Time
	newID    func() string
	logger   func(context.Context, string, map[string]any)
}

// NewReviewService constructs a ReviewService enforcing dependency validation.
func NewReviewService(deps ReviewServiceDeps) (ReviewService, error) {
	if deps.Reviews == nil {
		return nil, errors.New("review service: review repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("review service: product repository is required")
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
	return &reviewService{
		reviews:  deps.Reviews,
		products: deps.Products,
		orders:   deps.Orders,
		policy:   bluemonday.StrictPolicy(),
		now:      func() time.Time { return clock().UTC() },
		newID:    idGen,
		logger:   logger,
	}, nil
}

// Create submits a review for moderation. User-authored text is sanitised to
// plain text before it is stored. A user can review a product once.
func (s *reviewService) Create(ctx context.Context, cmd CreateReviewCommand) (Review, error) {
	if s == nil || s.reviews == nil {
		return Review{}, ErrReviewUnavailable
	}
	uid := strings.TrimSpace(cmd.UserID)
	productID := strings.TrimSpace(cmd.ProductID)
	if uid == "" || productID == "" {
		return Review{}, ErrReviewInvalidInput
	}
	if cmd.Rating < 1 || cmd.Rating > 5 {
		return Review{}, fmt.Errorf("%w: rating must be between 1 and 5", ErrReviewInvalidInput)
	}

	title := strings.TrimSpace(s.policy.Sanitize(cmd.Title))
	comment := strings.TrimSpace(s.policy.Sanitize(cmd.Comment))
	if len(title) > maxReviewTitleLength {
		return Review{}, fmt.Errorf("%w: title exceeds %d characters", ErrReviewInvalidInput, maxReviewTitleLength)
	}
	if len(comment) > maxReviewCommentLength {
		return Review{}, fmt.Errorf("%w: comment exceeds %d characters", ErrReviewInvalidInput, maxReviewCommentLength)
	}

	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if isRepoNotFound(err) {
			return Review{}, fmt.Errorf("%w: product not found", ErrReviewInvalidInput)
		}
		return Review{}, s.translateRepoError(err)
	}

	if _, err := s.reviews.FindByUserAndProduct(ctx, uid, productID); err == nil {
		return Review{}, ErrReviewDuplicate
	} else if !isRepoNotFound(err) {
		return Review{}, s.translateRepoError(err)
	}

	var orderID *string
	if cmd.OrderID != nil {
		trimmed := strings.TrimSpace(*cmd.OrderID)
		if trimmed != "" {
			if err := s.verifyPurchase(ctx, uid, trimmed, productID); err != nil {
				return Review{}, err
			}
			orderID = &trimmed
		}
	}

	now := s.now()
	review := Review{
		ID:        s.newID(),
		ProductID: productID,
		UserID:    uid,
		OrderID:   orderID,
		Rating:    cmd.Rating,
		Title:     title,
		Comment:   comment,
		Status:    domain.ReviewStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.reviews.Insert(ctx, review); err != nil {
		return Review{}, s.translateRepoError(err)
	}
	s.logger(ctx, "review.submitted", map[string]any{
		"reviewId":  review.ID,
		"productId": productID,
		"userId":    uid,
	})
	return review, nil
}

// verifyPurchase checks that the referenced order belongs to the reviewer and
// actually contains the product.
func (s *reviewService) verifyPurchase(ctx context.Context, uid, orderID, productID string) error {
	if s.orders == nil {
		return fmt.Errorf("%w: order reference not supported", ErrReviewInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if isRepoNotFound(err) {
			return fmt.Errorf("%w: order not found", ErrReviewInvalidInput)
		}
		return s.translateRepoError(err)
	}
	if !strings.EqualFold(order.UserID, uid) {
		return fmt.Errorf("%w: order not found", ErrReviewInvalidInput)
	}
	for _, line := range order.Lines {
		if strings.EqualFold(line.ProductID, productID) {
			return nil
		}
	}
	return fmt.Errorf("%w: order does not contain the product", ErrReviewInvalidInput)
}

// ListForProduct returns the approved reviews for a product, newest first.
func (s *reviewService) ListForProduct(ctx context.Context, cmd ListProductReviewsCommand) (domain.CursorPage[Review], error) {
	if s == nil || s.reviews == nil {
		return domain.CursorPage[Review]{}, ErrReviewUnavailable
	}
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return domain.CursorPage[Review]{}, ErrReviewInvalidInput
	}
	pager := clampReviewPagination(cmd.Pagination)
	status := domain.ReviewStatusApproved

	page, err := s.reviews.List(ctx, repositories.ReviewListFilter{
		ProductID:  productID,
		Status:     &status,
		Pagination: pager,
	})
	if err != nil {
		return domain.CursorPage[Review]{}, s.translateRepoError(err)
	}
	return page, nil
}

// ListPending returns the moderation queue.
func (s *reviewService) ListPending(ctx context.Context, pager Pagination) (domain.CursorPage[Review], error) {
	if s == nil || s.reviews == nil {
		return domain.CursorPage[Review]{}, ErrReviewUnavailable
	}
	status := domain.ReviewStatusPending

	page, err := s.reviews.List(ctx, repositories.ReviewListFilter{
		Status:     &status,
		Pagination: clampReviewPagination(pager),
	})
	if err != nil {
		return domain.CursorPage[Review]{}, s.translateRepoError(err)
	}
	return page, nil
}

// Moderate approves or rejects a pending review.
func (s *reviewService) Moderate(ctx context.Context, cmd ModerateReviewCommand) (Review, error) {
	if s == nil || s.reviews == nil {
		return Review{}, ErrReviewUnavailable
	}
	reviewID := strings.TrimSpace(cmd.ReviewID)
	if reviewID == "" {
		return Review{}, ErrReviewInvalidInput
	}
	if cmd.Status != domain.ReviewStatusApproved && cmd.Status != domain.ReviewStatusRejected {
		return Review{}, fmt.Errorf("%w: status must be approved or rejected", ErrReviewInvalidInput)
	}

	if _, err := s.reviews.FindByID(ctx, reviewID); err != nil {
		return Review{}, s.translateRepoError(err)
	}

	updated, err := s.reviews.UpdateStatus(ctx, reviewID, cmd.Status, s.now())
	if err != nil {
		return Review{}, s.translateRepoError(err)
	}
	s.logger(ctx, "review.moderated", map[string]any{
		"reviewId": reviewID,
		"status":   string(cmd.Status),
		"actorId":  strings.TrimSpace(cmd.ActorID),
	})
	return updated, nil
}

func clampReviewPagination(pager Pagination) Pagination {
	if pager.PageSize <= 0 {
		pager.PageSize = 20
	}
	if pager.PageSize > maxReviewPageSize {
		pager.PageSize = maxReviewPageSize
	}
	return pager
}

func (s *reviewService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrReviewNotFound
		case repoErr.IsConflict():
			return ErrReviewDuplicate
		case repoErr.IsUnavailable():
			return ErrReviewUnavailable
		}
	}
	return ErrReviewUnavailable
}
