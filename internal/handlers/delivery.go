package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nivasa-store/api/internal/platform/httpx"
	"github.com/nivasa-store/api/internal/services"
)

// DeliveryHandlers exposes the public delivery serviceability check.
type DeliveryHandlers struct {
	delivery services.DeliveryService
}

// NewDeliveryHandlers constructs the delivery handlers.
func NewDeliveryHandlers(delivery services.DeliveryService) *DeliveryHandlers {
	return &DeliveryHandlers{delivery: delivery}
}

// Routes wires the /delivery endpoints onto the provided router.
func (h *DeliveryHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/quote", h.quote)
}

func (h *DeliveryHandlers) quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.delivery == nil {
		httpx.WriteError(ctx, w, httpx.NewError("delivery_service_unavailable", "delivery service is unavailable", http.StatusServiceUnavailable))
		return
	}

	pincode := strings.TrimSpace(r.URL.Query().Get("pincode"))
	var subtotal float64
	if raw := strings.TrimSpace(r.URL.Query().Get("subtotal")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "subtotal must be a non-negative number", http.StatusBadRequest))
			return
		}
		subtotal = parsed
	}

	quote, err := h.delivery.Quote(ctx, services.DeliveryQuoteCommand{
		Pincode:  pincode,
		Subtotal: subtotal,
	})
	if err != nil {
		h.writeDeliveryError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, deliveryQuoteResponse{Quote: buildDeliveryQuotePayload(quote)})
}

func (h *DeliveryHandlers) writeDeliveryError(ctx context.Context, w http.ResponseWriter, err error) {
	writeDeliveryServiceError(ctx, w, err)
}

func writeDeliveryServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrDeliveryInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrDeliveryNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("zone_not_found", "delivery zone not found", http.StatusNotFound))
	case errors.Is(err, services.ErrDeliveryUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("delivery_service_unavailable", "delivery service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("delivery_error", "failed to serve delivery request", http.StatusInternalServerError))
	}
}

type deliveryQuoteResponse struct {
	Quote deliveryQuotePayload `json:"quote"`
}

type deliveryQuotePayload struct {
	Pincode   string  `json:"pincode"`
	Available bool    `json:"available"`
	Charge    float64 `json:"charge"`
	MinDays   int     `json:"min_days,omitempty"`
	MaxDays   int     `json:"max_days,omitempty"`
	QuotedAt  string  `json:"quoted_at,omitempty"`
}

func buildDeliveryQuotePayload(quote services.DeliveryQuote) deliveryQuotePayload {
	return deliveryQuotePayload{
		Pincode:   quote.Pincode,
		Available: quote.Available,
		Charge:    quote.Charge,
		MinDays:   quote.MinDays,
		MaxDays:   quote.MaxDays,
		QuotedAt:  formatTime(quote.QuotedAt),
	}
}
