package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nivasa-store/api/internal/platform/auth"
	"github.com/nivasa-store/api/internal/platform/httpx"
	"github.com/nivasa-store/api/internal/services"
)

const (
	maxReviewBodySize = 16 * 1024
	reviewRateLimit   = 5
	reviewRateWindow  = time.Minute
)

// ReviewHandlers exposes review submission and the public review listing.
type ReviewHandlers struct {
	authn   *auth.Authenticator
	reviews services.ReviewService
	limiter rateLimiter
}

// NewReviewHandlers constructs the review handlers with a per-user submission rate limit.
func NewReviewHandlers(authn *auth.Authenticator, reviews services.ReviewService) *ReviewHandlers {
	return &ReviewHandlers{
		authn:   authn,
		reviews: reviews,
		limiter: newFixedWindowLimiter(reviewRateLimit, reviewRateWindow, nil),
	}
}

// PublicRoutes wires the unauthenticated review listing under /products.
func (h *ReviewHandlers) PublicRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/{productId}/reviews", h.listForProduct)
}

// Routes wires the authenticated review submission endpoints.
func (h *ReviewHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Post("/", h.create)
}

func (h *ReviewHandlers) listForProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reviews == nil {
		httpx.WriteError(ctx, w, httpx.NewError("review_service_unavailable", "review service is unavailable", http.StatusServiceUnavailable))
		return
	}

	page, err := h.reviews.ListForProduct(ctx, services.ListProductReviewsCommand{
		ProductID:  chi.URLParam(r, "productId"),
		Pagination: parsePagination(r),
	})
	if err != nil {
		h.writeReviewError(ctx, w, err)
		return
	}

	items := make([]reviewPayload, 0, len(page.Items))
	for _, review := range page.Items {
		items = append(items, buildReviewPayload(review))
	}
	writeJSONResponse(w, http.StatusOK, reviewListResponse{
		Reviews:       items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *ReviewHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reviews == nil {
		httpx.WriteError(ctx, w, httpx.NewError("review_service_unavailable", "review service is unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}
	if h.limiter != nil && !h.limiter.Allow(identity.UID) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many review submissions; slow down", http.StatusTooManyRequests))
		return
	}

	body, err := readLimitedBody(r, maxReviewBodySize)
	if err != nil {
		writeBodyParseError(ctx, w, err)
		return
	}

	var req struct {
		ProductID string  `json:"product_id"`
		OrderID   *string `json:"order_id"`
		Rating    int     `json:"rating"`
		Title     string  `json:"title"`
		Comment   string  `json:"comment"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("invalid JSON payload: %v", err), http.StatusBadRequest))
		return
	}

	review, err := h.reviews.Create(ctx, services.CreateReviewCommand{
		UserID:    identity.UID,
		ProductID: req.ProductID,
		OrderID:   req.OrderID,
		Rating:    req.Rating,
		Title:     req.Title,
		Comment:   req.Comment,
	})
	if err != nil {
		h.writeReviewError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, reviewItemResponse{Review: buildReviewPayload(review)})
}

func (h *ReviewHandlers) writeReviewError(ctx context.Context, w http.ResponseWriter, err error) {
	writeReviewServiceError(ctx, w, err)
}

func writeReviewServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrReviewInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrReviewDuplicate):
		httpx.WriteError(ctx, w, httpx.NewError("review_exists", "you have already reviewed this product", http.StatusConflict))
	case errors.Is(err, services.ErrReviewNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("review_not_found", "review not found", http.StatusNotFound))
	case errors.Is(err, services.ErrReviewUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("review_service_unavailable", "review service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("review_error", "failed to serve review request", http.StatusInternalServerError))
	}
}

type reviewListResponse struct {
	Reviews       []reviewPayload `json:"reviews"`
	NextPageToken string          `json:"next_page_token,omitempty"`
}

type reviewItemResponse struct {
	Review reviewPayload `json:"review"`
}

type reviewPayload struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	UserID    string `json:"user_id"`
	Rating    int    `json:"rating"`
	Title     string `json:"title,omitempty"`
	Comment   string `json:"comment,omitempty"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
}

func buildReviewPayload(review services.Review) reviewPayload {
	return reviewPayload{
		ID:        review.ID,
		ProductID: review.ProductID,
		UserID:    review.UserID,
		Rating:    review.Rating,
		Title:     review.Title,
		Comment:   review.Comment,
		Status:    string(review.Status),
		CreatedAt: formatTime(review.CreatedAt),
	}
}
