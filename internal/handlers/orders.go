package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/nivasa-store/api/internal/domain"
	"github.com/nivasa-store/api/internal/platform/auth"
	"github.com/nivasa-store/api/internal/platform/httpx"
	"github.com/nivasa-store/api/internal/repositories"
	"github.com/nivasa-store/api/internal/services"
)

const maxOrderBodySize = 8 * 1024

// OrderHandlers exposes authenticated order history endpoints for the current user.
type OrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
}

// NewOrderHandlers constructs handlers enforcing Firebase authentication before invoking the order service.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{
		authn:  authn,
		orders: orders,
	}
}

// Routes wires the /orders endpoints onto the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Get("/", h.listOrders)
	r.Get("/{orderId}", h.getOrder)
	r.Post("/{orderId}/cancel", h.cancelOrder)
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	filter := repositories.OrderListFilter{
		UserID:     uid,
		Pagination: parsePagination(r),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := domain.OrderStatus(raw)
		filter.Status = &status
	}

	page, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeOrderServiceError(ctx, w, err)
		return
	}

	items := make([]orderPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderPayload(order))
	}
	writeJSONResponse(w, http.StatusOK, orderListResponse{
		Orders:        items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(ctx, services.GetOrderCommand{
		OrderID: chi.URLParam(r, "orderId"),
		UserID:  uid,
	})
	if err != nil {
		writeOrderServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := h.requireUser(ctx, w)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if body, err := readLimitedBody(r, maxOrderBodySize); err == nil {
		if err := json.Unmarshal(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
			return
		}
	} else if !errors.Is(err, errEmptyBody) {
		writeBodyParseError(ctx, w, err)
		return
	}

	order, err := h.orders.Cancel(ctx, services.CancelOrderCommand{
		OrderID: chi.URLParam(r, "orderId"),
		UserID:  uid,
		Reason:  req.Reason,
	})
	if err != nil {
		writeOrderServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) requireUser(ctx context.Context, w http.ResponseWriter) (string, bool) {
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return "", false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return "", false
	}
	return identity.UID, true
}

func writeOrderServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderIllegalTransition):
		httpx.WriteError(ctx, w, httpx.NewError("illegal_transition", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to serve order request", http.StatusInternalServerError))
	}
}

type orderListResponse struct {
	Orders        []orderPayload `json:"orders"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderPayload struct {
	ID              string                `json:"id"`
	Number          string                `json:"number"`
	UserID          string                `json:"user_id"`
	Lines           []orderLinePayload    `json:"lines"`
	Totals          orderTotalsPayload    `json:"totals"`
	Coupon          *appliedCouponPayload `json:"coupon,omitempty"`
	ShippingAddress addressPayload        `json:"shipping_address"`
	PaymentMethod   string                `json:"payment_method"`
	Status          string                `json:"status"`
	PlacedAt        string                `json:"placed_at,omitempty"`
	UpdatedAt       string                `json:"updated_at,omitempty"`
}

type orderLinePayload struct {
	ProductID string            `json:"product_id"`
	Name      string            `json:"name"`
	Image     string            `json:"image,omitempty"`
	Selection map[string]string `json:"selection,omitempty"`
	UnitPrice float64           `json:"unit_price"`
	Quantity  int               `json:"quantity"`
	LineTotal float64           `json:"line_total"`
}

type orderTotalsPayload struct {
	Subtotal       float64 `json:"subtotal"`
	CouponDiscount float64 `json:"coupon_discount"`
	GST            float64 `json:"gst"`
	DeliveryCharge float64 `json:"delivery_charge"`
	Total          float64 `json:"total"`
}

type addressPayload struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	Pincode string `json:"pincode"`
}

func buildOrderPayload(order services.Order) orderPayload {
	lines := make([]orderLinePayload, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLinePayload{
			ProductID: line.ProductID,
			Name:      line.Name,
			Image:     line.Image,
			Selection: line.Selection,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			LineTotal: line.LineTotal,
		})
	}

	payload := orderPayload{
		ID:     order.ID,
		Number: order.Number,
		UserID: order.UserID,
		Lines:  lines,
		Totals: orderTotalsPayload{
			Subtotal:       order.Totals.Subtotal,
			CouponDiscount: order.Totals.CouponDiscount,
			GST:            order.Totals.GST,
			DeliveryCharge: order.Totals.DeliveryCharge,
			Total:          order.Totals.Total,
		},
		ShippingAddress: addressPayload{
			Name:    order.ShippingAddress.Name,
			Phone:   order.ShippingAddress.Phone,
			Line1:   order.ShippingAddress.Line1,
			Line2:   order.ShippingAddress.Line2,
			City:    order.ShippingAddress.City,
			State:   order.ShippingAddress.State,
			Pincode: order.ShippingAddress.Pincode,
		},
		PaymentMethod: order.PaymentMethod,
		Status:        string(order.Status),
		PlacedAt:      formatTime(order.PlacedAt),
		UpdatedAt:     formatTime(order.UpdatedAt),
	}
	if order.Coupon != nil {
		payload.Coupon = &appliedCouponPayload{
			Code:         order.Coupon.Code,
			Type:         string(order.Coupon.Type),
			Discount:     order.Coupon.Discount,
			FreeShipping: order.Coupon.FreeShipping,
			AppliedAt:    formatTime(order.Coupon.AppliedAt),
		}
	}
	return payload
}
