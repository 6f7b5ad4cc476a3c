package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/nivasa-store/api/internal/domain"
	"github.com/nivasa-store/api/internal/services"
)

func TestCouponHandlersProbeEligible(t *testing.T) {
	service := &stubCouponProbeService{
		probeFunc: func(ctx context.Context, code string) (services.CouponValidationResult, error) {
			if code != "SAVE10" {
				t.Fatalf("unexpected code %q", code)
			}
			return services.CouponValidationResult{
				Code:     "SAVE10",
				Eligible: true,
				Type:     domain.DiscountTypePercentage,
			}, nil
		},
	}
	handler := NewCouponHandlers(service)

	router := chi.NewRouter()
	router.Route("/coupons", handler.Routes)

	req := httptest.NewRequest(http.MethodGet, "/coupons/SAVE10", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp couponProbePayload
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Eligible {
		t.Fatalf("expected eligible probe, got %+v", resp)
	}
	if resp.Type != string(domain.DiscountTypePercentage) {
		t.Fatalf("unexpected type %q", resp.Type)
	}
}

func TestCouponHandlersProbeIneligibleCode(t *testing.T) {
	service := &stubCouponProbeService{
		probeFunc: func(ctx context.Context, code string) (services.CouponValidationResult, error) {
			return services.CouponValidationResult{Code: code, Eligible: false, Reason: "unknown_code"}, nil
		},
	}
	handler := NewCouponHandlers(service)

	router := chi.NewRouter()
	router.Route("/coupons", handler.Routes)

	req := httptest.NewRequest(http.MethodGet, "/coupons/GHOST", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp couponProbePayload
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Eligible {
		t.Fatal("expected ineligible probe")
	}
	if resp.Reason != "unknown_code" {
		t.Fatalf("unexpected reason %q", resp.Reason)
	}
}

func TestCouponHandlersProbeInvalidInput(t *testing.T) {
	service := &stubCouponProbeService{
		probeFunc: func(ctx context.Context, code string) (services.CouponValidationResult, error) {
			return services.CouponValidationResult{}, fmt.Errorf("%w: code is required", services.ErrCouponInvalidInput)
		},
	}
	handler := NewCouponHandlers(service)

	router := chi.NewRouter()
	router.Route("/coupons", handler.Routes)

	req := httptest.NewRequest(http.MethodGet, "/coupons/%20", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if code := decodeErrorCode(t, rr); code != "invalid_request" {
		t.Fatalf("expected invalid_request, got %q", code)
	}
}

func TestCouponHandlersProbeNilService(t *testing.T) {
	handler := NewCouponHandlers(nil)

	router := chi.NewRouter()
	router.Route("/coupons", handler.Routes)

	req := httptest.NewRequest(http.MethodGet, "/coupons/SAVE10", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	if code := decodeErrorCode(t, rr); code != "coupon_service_unavailable" {
		t.Fatalf("expected coupon_service_unavailable, got %q", code)
	}
}

type stubCouponProbeService struct {
	probeFunc       func(ctx context.Context, code string) (services.CouponValidationResult, error)
	validateFunc    func(ctx context.Context, cmd services.ValidateCouponCommand) (services.CouponValidationResult, error)
	listCouponsFunc func(ctx context.Context, filter services.CouponListFilter) (domain.CursorPage[services.Coupon], error)
}

func (s *stubCouponProbeService) Probe(ctx context.Context, code string) (services.CouponValidationResult, error) {
	if s.probeFunc != nil {
		return s.probeFunc(ctx, code)
	}
	return services.CouponValidationResult{}, errors.New("not implemented")
}

func (s *stubCouponProbeService) Validate(ctx context.Context, cmd services.ValidateCouponCommand) (services.CouponValidationResult, error) {
	if s.validateFunc != nil {
		return s.validateFunc(ctx, cmd)
	}
	return services.CouponValidationResult{}, errors.New("not implemented")
}

func (s *stubCouponProbeService) ListCoupons(ctx context.Context, filter services.CouponListFilter) (domain.CursorPage[services.Coupon], error) {
	if s.listCouponsFunc != nil {
		return s.listCouponsFunc(ctx, filter)
	}
	return domain.CursorPage[services.Coupon]{}, errors.New("not implemented")
}

func (s *stubCouponProbeService) CreateCoupon(ctx context.Context, cmd services.UpsertCouponCommand) (services.Coupon, error) {
	return services.Coupon{}, errors.New("not implemented")
}

func (s *stubCouponProbeService) UpdateCoupon(ctx context.Context, cmd services.UpsertCouponCommand) (services.Coupon, error) {
	return services.Coupon{}, errors.New("not implemented")
}

func (s *stubCouponProbeService) DeleteCoupon(ctx context.Context, couponID string) error {
	return errors.New("not implemented")
}
