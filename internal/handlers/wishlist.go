package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nivasa-store/api/internal/platform/auth"
	"github.com/nivasa-store/api/internal/platform/httpx"
	"github.com/nivasa-store/api/internal/services"
)

// WishlistHandlers exposes authenticated wishlist endpoints for the current user.
type WishlistHandlers struct {
	authn     *auth.Authenticator
	wishlists services.WishlistService
}

// NewWishlistHandlers constructs handlers enforcing Firebase authentication before invoking the wishlist service.
func NewWishlistHandlers(authn *auth.Authenticator, wishlists services.WishlistService) *WishlistHandlers {
	return &WishlistHandlers{
		authn:     authn,
		wishlists: wishlists,
	}
}

// Routes wires the /wishlist endpoints onto the provided router.
func (h *WishlistHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Get("/", h.list)
	r.Get("/{productId}", h.contains)
	r.Put("/{productId}", h.add)
	r.Delete("/{productId}", h.remove)
}

func (h *WishlistHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	items, err := h.wishlists.List(ctx, uid)
	if err != nil {
		h.writeWishlistError(ctx, w, err)
		return
	}

	payload := make([]wishlistItemPayload, 0, len(items))
	for _, item := range items {
		entry := wishlistItemPayload{
			ProductID: item.ProductID,
			AddedAt:   formatTime(item.AddedAt),
		}
		if item.Product != nil {
			entry.Product = &productSummaryPayload{
				ID:        item.Product.ID,
				Name:      item.Product.Name,
				Category:  item.Product.Category,
				Image:     item.Product.Image,
				BasePrice: item.Product.BasePrice,
			}
		}
		payload = append(payload, entry)
	}
	writeJSONResponse(w, http.StatusOK, wishlistResponse{Items: payload})
}

func (h *WishlistHandlers) contains(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	marked, err := h.wishlists.Contains(ctx, uid, chi.URLParam(r, "productId"))
	if err != nil {
		h.writeWishlistError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, wishlistToggleResponse{Marked: marked})
}

func (h *WishlistHandlers) add(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, true)
}

func (h *WishlistHandlers) remove(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, false)
}

func (h *WishlistHandlers) toggle(w http.ResponseWriter, r *http.Request, mark bool) {
	ctx := r.Context()
	uid, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	marked, err := h.wishlists.Toggle(ctx, services.ToggleWishlistCommand{
		UserID:    uid,
		ProductID: chi.URLParam(r, "productId"),
		Mark:      mark,
	})
	if err != nil {
		h.writeWishlistError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, wishlistToggleResponse{Marked: marked})
}

func (h *WishlistHandlers) requireUser(ctx context.Context, w http.ResponseWriter) (string, bool) {
	if h.wishlists == nil {
		httpx.WriteError(ctx, w, httpx.NewError("wishlist_service_unavailable", "wishlist service is unavailable", http.StatusServiceUnavailable))
		return "", false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return "", false
	}
	return identity.UID, true
}

func (h *WishlistHandlers) writeWishlistError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrWishlistInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrWishlistUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("wishlist_service_unavailable", "wishlist service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("wishlist_error", "failed to serve wishlist request", http.StatusInternalServerError))
	}
}

type wishlistResponse struct {
	Items []wishlistItemPayload `json:"items"`
}

type wishlistItemPayload struct {
	ProductID string                 `json:"product_id"`
	AddedAt   string                 `json:"added_at,omitempty"`
	Product   *productSummaryPayload `json:"product,omitempty"`
}

type wishlistToggleResponse struct {
	Marked bool `json:"marked"`
}
