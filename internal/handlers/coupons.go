package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nivasa-store/api/internal/platform/httpx"
	"github.com/nivasa-store/api/internal/services"
)

// CouponHandlers exposes the public coupon probe. The probe reports whether a
// code is live without binding it to any cart, so storefronts can surface
// eligibility hints before checkout.
type CouponHandlers struct {
	coupons services.CouponService
}

func NewCouponHandlers(coupons services.CouponService) *CouponHandlers {
	return &CouponHandlers{coupons: coupons}
}

// Routes wires the coupon endpoints onto the provided router.
func (h *CouponHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/{code}", h.probe)
}

func (h *CouponHandlers) probe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service is unavailable", http.StatusServiceUnavailable))
		return
	}

	result, err := h.coupons.Probe(ctx, chi.URLParam(r, "code"))
	if err != nil {
		h.writeProbeError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, couponProbePayload{
		Code:         result.Code,
		Eligible:     result.Eligible,
		Reason:       result.Reason,
		Type:         string(result.Type),
		Discount:     result.Discount,
		FreeShipping: result.FreeShipping,
	})
}

func (h *CouponHandlers) writeProbeError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCouponInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCouponNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_not_found", "coupon not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCouponUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("coupon_error", "failed to probe coupon", http.StatusInternalServerError))
	}
}

type couponProbePayload struct {
	Code         string  `json:"code"`
	Eligible     bool    `json:"eligible"`
	Reason       string  `json:"reason,omitempty"`
	Type         string  `json:"type,omitempty"`
	Discount     float64 `json:"discount"`
	FreeShipping bool    `json:"free_shipping"`
}
