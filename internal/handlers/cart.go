package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nivasa-store/api/internal/platform/auth"
	"github.com/nivasa-store/api/internal/platform/httpx"
	"github.com/nivasa-store/api/internal/services"
)

const maxCartBodySize = 16 * 1024

// CartHandlers exposes authenticated cart endpoints for the current user.
type CartHandlers struct {
	authn *auth.Authenticator
	carts services.CartService
}

// NewCartHandlers constructs handlers enforcing Firebase authentication before invoking the cart service.
func NewCartHandlers(authn *auth.Authenticator, carts services.CartService) *CartHandlers {
	return &CartHandlers{
		authn: authn,
		carts: carts,
	}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Patch("/items/{lineId}", h.updateItem)
	r.Delete("/items/{lineId}", h.removeItem)
	r.Put("/pincode", h.setPincode)
	r.Post("/coupon", h.applyCoupon)
	r.Delete("/coupon", h.removeCoupon)
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	cart, err := h.carts.GetOrCreateCart(ctx, uid)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	h.writeCart(w, cart, http.StatusOK)
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	if err := h.carts.ClearCart(ctx, uid); err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	var req struct {
		ProductID string            `json:"product_id"`
		Selection map[string]string `json:"selection"`
		Quantity  int               `json:"quantity"`
	}
	if err := h.decodeBody(r, &req); err != nil {
		writeBodyParseError(ctx, w, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	cart, err := h.carts.AddItem(ctx, services.AddCartItemCommand{
		UserID:    uid,
		ProductID: req.ProductID,
		Selection: req.Selection,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	h.writeCart(w, cart, http.StatusOK)
}

func (h *CartHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := h.decodeBody(r, &req); err != nil {
		writeBodyParseError(ctx, w, err)
		return
	}

	cart, err := h.carts.UpdateItemQuantity(ctx, services.UpdateCartItemCommand{
		UserID:   uid,
		LineID:   chi.URLParam(r, "lineId"),
		Quantity: req.Quantity,
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	h.writeCart(w, cart, http.StatusOK)
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	cart, err := h.carts.RemoveItem(ctx, services.RemoveCartItemCommand{
		UserID: uid,
		LineID: chi.URLParam(r, "lineId"),
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	h.writeCart(w, cart, http.StatusOK)
}

func (h *CartHandlers) setPincode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	var req struct {
		Pincode string `json:"pincode"`
	}
	if err := h.decodeBody(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeBodyParseError(ctx, w, err)
		return
	}

	cart, err := h.carts.SetDeliveryPincode(ctx, services.SetDeliveryPincodeCommand{
		UserID:  uid,
		Pincode: req.Pincode,
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	h.writeCart(w, cart, http.StatusOK)
}

func (h *CartHandlers) applyCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := h.decodeBody(r, &req); err != nil {
		writeBodyParseError(ctx, w, err)
		return
	}

	cart, err := h.carts.ApplyCoupon(ctx, services.ApplyCouponCommand{
		UserID: uid,
		Code:   req.Code,
	})
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	h.writeCart(w, cart, http.StatusOK)
}

func (h *CartHandlers) removeCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	cart, err := h.carts.RemoveCoupon(ctx, uid)
	if err != nil {
		h.writeCartError(ctx, w, err)
		return
	}
	h.writeCart(w, cart, http.StatusOK)
}

func (h *CartHandlers) requireUser(ctx context.Context, w http.ResponseWriter) (string, bool) {
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return "", false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return "", false
	}
	return identity.UID, true
}

func (h *CartHandlers) decodeBody(r *http.Request, dst any) error {
	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}
	return nil
}

func (h *CartHandlers) writeCart(w http.ResponseWriter, cart services.Cart, status int) {
	setCartResponseHeaders(w, cart)
	writeJSONResponse(w, status, cartResponse{Cart: buildCartPayload(cart)})
}

func (h *CartHandlers) writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartCouponRejected):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_rejected", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCartNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_not_found", "cart not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartConflict):
		httpx.WriteError(ctx, w, httpx.NewError("cart_conflict", "cart has been modified; refresh and retry", http.StatusConflict))
	case errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "failed to serve cart request", http.StatusInternalServerError))
	}
}

func setCartResponseHeaders(w http.ResponseWriter, cart services.Cart) {
	w.Header().Set("Cache-Control", "no-store, no-cache, max-age=0, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	if !cart.UpdatedAt.IsZero() {
		w.Header().Set("Last-Modified", cart.UpdatedAt.UTC().Format(http.TimeFormat))
	}
	if etag := buildCartETag(cart); etag != "" {
		w.Header().Set("ETag", etag)
	}
}

func buildCartETag(cart services.Cart) string {
	if strings.TrimSpace(cart.ID) == "" || cart.UpdatedAt.IsZero() {
		return ""
	}
	input := fmt.Sprintf("%s:%d", strings.TrimSpace(cart.ID), cart.UpdatedAt.UTC().UnixNano())
	sum := sha256.Sum256([]byte(input))
	token := hex.EncodeToString(sum[:8])
	return fmt.Sprintf(`W/"%s"`, token)
}

type cartResponse struct {
	Cart cartPayload `json:"cart"`
}

type cartPayload struct {
	ID              string                `json:"id"`
	UserID          string                `json:"user_id"`
	Currency        string                `json:"currency"`
	LinesCount      int                   `json:"lines_count"`
	Lines           []cartLinePayload     `json:"lines"`
	Coupon          *appliedCouponPayload `json:"coupon,omitempty"`
	DeliveryPincode string                `json:"delivery_pincode,omitempty"`
	Estimate        *cartEstimatePayload  `json:"estimate,omitempty"`
	Metadata        map[string]any        `json:"metadata,omitempty"`
	UpdatedAt       string                `json:"updated_at,omitempty"`
}

type cartLinePayload struct {
	ID        string                 `json:"id"`
	ProductID string                 `json:"product_id"`
	Product   *productSummaryPayload `json:"product,omitempty"`
	Selection map[string]string      `json:"selection,omitempty"`
	UnitPrice float64                `json:"unit_price"`
	Quantity  int                    `json:"quantity"`
	LineTotal float64                `json:"line_total"`
	AddedAt   string                 `json:"added_at,omitempty"`
	UpdatedAt string                 `json:"updated_at,omitempty"`
}

type appliedCouponPayload struct {
	Code         string  `json:"code"`
	Type         string  `json:"type"`
	Discount     float64 `json:"discount"`
	FreeShipping bool    `json:"free_shipping"`
	AppliedAt    string  `json:"applied_at,omitempty"`
}

type cartEstimatePayload struct {
	Subtotal       float64 `json:"subtotal"`
	CouponDiscount float64 `json:"coupon_discount"`
	GST            float64 `json:"gst"`
	DeliveryCharge float64 `json:"delivery_charge"`
	Total          float64 `json:"total"`
}

func buildCartPayload(cart services.Cart) cartPayload {
	payload := cartPayload{
		ID:         strings.TrimSpace(cart.ID),
		UserID:     strings.TrimSpace(cart.UserID),
		Currency:   strings.ToUpper(strings.TrimSpace(cart.Currency)),
		LinesCount: len(cart.Lines),
		Lines:      buildCartLinePayloads(cart.Lines),
		Metadata:   cloneMap(cart.Metadata),
	}
	if cart.Coupon != nil {
		payload.Coupon = &appliedCouponPayload{
			Code:         cart.Coupon.Code,
			Type:         string(cart.Coupon.Type),
			Discount:     cart.Coupon.Discount,
			FreeShipping: cart.Coupon.FreeShipping,
			AppliedAt:    formatTime(cart.Coupon.AppliedAt),
		}
	}
	if cart.DeliveryPincode != nil {
		payload.DeliveryPincode = strings.TrimSpace(*cart.DeliveryPincode)
	}
	if cart.Estimate != nil {
		payload.Estimate = &cartEstimatePayload{
			Subtotal:       cart.Estimate.Subtotal,
			CouponDiscount: cart.Estimate.CouponDiscount,
			GST:            cart.Estimate.GST,
			DeliveryCharge: cart.Estimate.DeliveryCharge,
			Total:          cart.Estimate.Total,
		}
	}
	if !cart.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(cart.UpdatedAt)
	}
	return payload
}

func buildCartLinePayloads(lines []services.CartLine) []cartLinePayload {
	if len(lines) == 0 {
		return []cartLinePayload{}
	}
	out := make([]cartLinePayload, 0, len(lines))
	for _, line := range lines {
		entry := cartLinePayload{
			ID:        strings.TrimSpace(line.ID),
			ProductID: strings.TrimSpace(line.ProductID),
			Selection: line.Selection,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			LineTotal: line.UnitPrice * float64(line.Quantity),
		}
		if line.Product != nil {
			entry.Product = &productSummaryPayload{
				ID:        line.Product.ID,
				Name:      line.Product.Name,
				Category:  line.Product.Category,
				Image:     line.Product.Image,
				BasePrice: line.Product.BasePrice,
			}
		}
		if !line.AddedAt.IsZero() {
			entry.AddedAt = formatTime(line.AddedAt)
		}
		if line.UpdatedAt != nil && !line.UpdatedAt.IsZero() {
			entry.UpdatedAt = formatTime(*line.UpdatedAt)
		}
		out = append(out, entry)
	}
	return out
}
