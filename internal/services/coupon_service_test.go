package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/nivasa-store/api/internal/domain"
)

func newTestCouponService(t *testing.T, deps CouponServiceDeps) CouponService {
	t.Helper()
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	}
	service, err := NewCouponService(deps)
	if err != nil {
		t.Fatalf("unexpected error constructing coupon service: %v", err)
	}
	return service
}

func timePtr(v time.Time) *time.Time {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestNormalizeCouponCode(t *testing.T) {
	if got := NormalizeCouponCode("  save10 "); got != "SAVE10" {
		t.Fatalf("expected SAVE10, got %q", got)
	}
}

func TestCouponServiceValidateUnknownCodeIsIneligible(t *testing.T) {
	repo := &stubCouponRepository{
		findByCodeFunc: func(ctx context.Context, code string) (domain.Coupon, error) {
			if code != "MISSING" {
				t.Fatalf("expected normalized lookup MISSING, got %q", code)
			}
			return domain.Coupon{}, &repositoryErrorStub{notFound: true}
		},
	}
	service := newTestCouponService(t, CouponServiceDeps{Coupons: repo})

	result, err := service.Validate(context.Background(), ValidateCouponCommand{Code: " missing ", Subtotal: 5000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Eligible {
		t.Fatalf("expected ineligible result")
	}
	if result.Reason != CouponReasonUnknownCode {
		t.Fatalf("expected reason %q, got %q", CouponReasonUnknownCode, result.Reason)
	}
}

func TestCouponServiceValidateWindowChecks(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		coupon domain.Coupon
		reason string
	}{
		{
			name:   "inactive",
			coupon: domain.Coupon{Code: "X", Type: domain.DiscountTypePercentage, Value: 10, Active: false},
			reason: CouponReasonInactive,
		},
		{
			name: "not started",
			coupon: domain.Coupon{
				Code: "X", Type: domain.DiscountTypePercentage, Value: 10, Active: true,
				StartsAt: timePtr(now.Add(time.Hour)),
			},
			reason: CouponReasonNotStarted,
		},
		{
			name: "expired",
			coupon: domain.Coupon{
				Code: "X", Type: domain.DiscountTypePercentage, Value: 10, Active: true,
				EndsAt: timePtr(now.Add(-time.Hour)),
			},
			reason: CouponReasonExpired,
		},
		{
			name: "usage exhausted",
			coupon: domain.Coupon{
				Code: "X", Type: domain.DiscountTypePercentage, Value: 10, Active: true,
				UsageLimit: 5, UsageCount: 5,
			},
			reason: CouponReasonUsageExhausted,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &stubCouponRepository{
				findByCodeFunc: func(ctx context.Context, code string) (domain.Coupon, error) {
					return tc.coupon, nil
				},
			}
			service := newTestCouponService(t, CouponServiceDeps{
				Coupons: repo,
				Clock:   func() time.Time { return now },
			})

			result, err := service.Validate(context.Background(), ValidateCouponCommand{Code: "X", Subtotal: 5000})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Eligible {
				t.Fatalf("expected ineligible result")
			}
			if result.Reason != tc.reason {
				t.Fatalf("expected reason %q, got %q", tc.reason, result.Reason)
			}
		})
	}
}

func TestCouponServiceValidateMinSubtotal(t *testing.T) {
	repo := &stubCouponRepository{
		findByCodeFunc: func(ctx context.Context, code string) (domain.Coupon, error) {
			return domain.Coupon{
				Code: "SAVE10", Type: domain.DiscountTypePercentage, Value: 10,
				MinSubtotal: 2000, Active: true,
			}, nil
		},
	}
	service := newTestCouponService(t, CouponServiceDeps{Coupons: repo})

	result, err := service.Validate(context.Background(), ValidateCouponCommand{Code: "SAVE10", Subtotal: 1500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Eligible {
		t.Fatalf("expected ineligible below min subtotal")
	}
	if result.Reason != CouponReasonMinSubtotal {
		t.Fatalf("expected reason %q, got %q", CouponReasonMinSubtotal, result.Reason)
	}

	result, err = service.Validate(context.Background(), ValidateCouponCommand{Code: "SAVE10", Subtotal: 2000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Eligible {
		t.Fatalf("expected eligible at min subtotal, got reason %q", result.Reason)
	}
	if result.Discount != 200 {
		t.Fatalf("expected 10%% discount of 200, got %v", result.Discount)
	}
	if result.Type != domain.DiscountTypePercentage {
		t.Fatalf("expected percentage type, got %q", result.Type)
	}
}

func TestCouponServiceValidateFixedDiscountCapped(t *testing.T) {
	repo := &stubCouponRepository{
		findByCodeFunc: func(ctx context.Context, code string) (domain.Coupon, error) {
			return domain.Coupon{Code: "FLAT500", Type: domain.DiscountTypeFixed, Value: 500, Active: true}, nil
		},
	}
	service := newTestCouponService(t, CouponServiceDeps{Coupons: repo})

	result, err := service.Validate(context.Background(), ValidateCouponCommand{Code: "FLAT500", Subtotal: 300})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Eligible {
		t.Fatalf("expected eligible, got reason %q", result.Reason)
	}
	if result.Discount != 300 {
		t.Fatalf("expected discount capped at subtotal 300, got %v", result.Discount)
	}
}

func TestCouponServiceValidatePerUserLimit(t *testing.T) {
	repo := &stubCouponRepository{
		findByCodeFunc: func(ctx context.Context, code string) (domain.Coupon, error) {
			return domain.Coupon{
				ID: "c-1", Code: "ONCE", Type: domain.DiscountTypeFixed, Value: 100,
				PerUserLimit: 1, Active: true,
			}, nil
		},
	}
	usage := &stubCouponUsageRepository{
		countForUserFunc: func(ctx context.Context, couponID, userID string) (int, error) {
			if couponID != "c-1" || userID != "user-9" {
				t.Fatalf("unexpected usage lookup %q/%q", couponID, userID)
			}
			return 1, nil
		},
	}
	service := newTestCouponService(t, CouponServiceDeps{Coupons: repo, Usage: usage})

	result, err := service.Validate(context.Background(), ValidateCouponCommand{Code: "ONCE", UserID: "user-9", Subtotal: 5000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Eligible {
		t.Fatalf("expected ineligible for exhausted per-user limit")
	}
	if result.Reason != CouponReasonPerUserLimit {
		t.Fatalf("expected reason %q, got %q", CouponReasonPerUserLimit, result.Reason)
	}
}

func TestCouponServiceValidateCategoryScopedDiscount(t *testing.T) {
	repo := &stubCouponRepository{
		findByCodeFunc: func(ctx context.Context, code string) (domain.Coupon, error) {
			return domain.Coupon{
				Code: "SOFA20", Type: domain.DiscountTypePercentage, Value: 20,
				Categories: []string{"sofas"}, Active: true,
			}, nil
		},
	}
	service := newTestCouponService(t, CouponServiceDeps{Coupons: repo})

	lines := []CartLine{
		{
			ProductID: "p-1",
			Product:   &ProductSummary{ID: "p-1", Category: "Sofas"},
			UnitPrice: 10000,
			Quantity:  1,
		},
		{
			ProductID: "p-2",
			Product:   &ProductSummary{ID: "p-2", Category: "lamps"},
			UnitPrice: 2000,
			Quantity:  2,
		},
	}

	result, err := service.Validate(context.Background(), ValidateCouponCommand{
		Code: "SOFA20", Subtotal: 14000, Lines: lines,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Eligible {
		t.Fatalf("expected eligible, got reason %q", result.Reason)
	}
	// 20% of the sofa line only.
	if result.Discount != 2000 {
		t.Fatalf("expected category-scoped discount 2000, got %v", result.Discount)
	}

	result, err = service.Validate(context.Background(), ValidateCouponCommand{
		Code: "SOFA20", Subtotal: 4000, Lines: lines[1:],
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Eligible {
		t.Fatalf("expected ineligible with no items in category")
	}
	if result.Reason != CouponReasonNoEligibleItem {
		t.Fatalf("expected reason %q, got %q", CouponReasonNoEligibleItem, result.Reason)
	}
}

func TestCouponServiceProbeReportsTypeWithoutDiscount(t *testing.T) {
	repo := &stubCouponRepository{
		findByCodeFunc: func(ctx context.Context, code string) (domain.Coupon, error) {
			return domain.Coupon{
				Code: "FREESHIP", Type: domain.DiscountTypeFixed, Value: 0,
				FreeShipping: true, Active: true,
			}, nil
		},
	}
	service := newTestCouponService(t, CouponServiceDeps{Coupons: repo})

	result, err := service.Probe(context.Background(), "freeship")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Eligible {
		t.Fatalf("expected eligible probe, got reason %q", result.Reason)
	}
	if !result.FreeShipping {
		t.Fatalf("expected free shipping flag")
	}
	if result.Discount != 0 {
		t.Fatalf("probe should not compute a discount, got %v", result.Discount)
	}
}

func TestCouponServiceCreateCouponRejectsDuplicateCode(t *testing.T) {
	repo := &stubCouponRepository{
		findByCodeFunc: func(ctx context.Context, code string) (domain.Coupon, error) {
			return domain.Coupon{ID: "existing", Code: code}, nil
		},
	}
	service := newTestCouponService(t, CouponServiceDeps{Coupons: repo})

	_, err := service.CreateCoupon(context.Background(), UpsertCouponCommand{
		Coupon: Coupon{Code: "save10", Type: domain.DiscountTypePercentage, Value: 10, Active: true},
	})
	if !errors.Is(err, ErrCouponConflict) {
		t.Fatalf("expected ErrCouponConflict, got %v", err)
	}
}

func TestCouponServiceCreateCouponNormalizes(t *testing.T) {
	var inserted domain.Coupon
	repo := &stubCouponRepository{
		findByCodeFunc: func(ctx context.Context, code string) (domain.Coupon, error) {
			return domain.Coupon{}, &repositoryErrorStub{notFound: true}
		},
		insertFunc: func(ctx context.Context, coupon domain.Coupon) error {
			inserted = coupon
			return nil
		},
	}
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	service := newTestCouponService(t, CouponServiceDeps{
		Coupons:     repo,
		Clock:       func() time.Time { return now },
		IDGenerator: func() string { return "coupon-1" },
	})

	created, err := service.CreateCoupon(context.Background(), UpsertCouponCommand{
		Coupon: Coupon{
			Code:       " welcome10 ",
			Type:       domain.DiscountTypePercentage,
			Value:      10,
			Categories: []string{" Sofas ", "LAMPS"},
			Active:     true,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID != "coupon-1" {
		t.Fatalf("expected generated id, got %q", created.ID)
	}
	if inserted.Code != "WELCOME10" {
		t.Fatalf("expected normalized code WELCOME10, got %q", inserted.Code)
	}
	if inserted.Categories[0] != "sofas" || inserted.Categories[1] != "lamps" {
		t.Fatalf("expected lowercased categories, got %v", inserted.Categories)
	}
	if !inserted.CreatedAt.Equal(now) {
		t.Fatalf("expected created at %v, got %v", now, inserted.CreatedAt)
	}
}

func TestCouponServiceCreateCouponValidatesValue(t *testing.T) {
	repo := &stubCouponRepository{}
	service := newTestCouponService(t, CouponServiceDeps{Coupons: repo})

	cases := []Coupon{
		{Code: "A", Type: domain.DiscountTypePercentage, Value: 0},
		{Code: "B", Type: domain.DiscountTypePercentage, Value: 120},
		{Code: "C", Type: domain.DiscountTypeFixed, Value: -5},
		{Code: "D", Type: domain.DiscountTypeFixed, Value: 0, FreeShipping: false},
		{Code: "E", Type: "bogus", Value: 10},
	}
	for _, coupon := range cases {
		if _, err := service.CreateCoupon(context.Background(), UpsertCouponCommand{Coupon: coupon}); !errors.Is(err, ErrCouponInvalidInput) {
			t.Fatalf("coupon %q: expected ErrCouponInvalidInput, got %v", coupon.Code, err)
		}
	}
}

type stubCouponRepository struct {
	insertFunc     func(ctx context.Context, coupon domain.Coupon) error
	updateFunc     func(ctx context.Context, coupon domain.Coupon) error
	deleteFunc     func(ctx context.Context, couponID string) error
	findByIDFunc   func(ctx context.Context, couponID string) (domain.Coupon, error)
	findByCodeFunc func(ctx context.Context, code string) (domain.Coupon, error)
	listFunc       func(ctx context.Context, filter CouponListFilter) (domain.CursorPage[domain.Coupon], error)
}

func (s *stubCouponRepository) Insert(ctx context.Context, coupon domain.Coupon) error {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, coupon)
	}
	return nil
}

func (s *stubCouponRepository) Update(ctx context.Context, coupon domain.Coupon) error {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, coupon)
	}
	return nil
}

func (s *stubCouponRepository) Delete(ctx context.Context, couponID string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, couponID)
	}
	return nil
}

func (s *stubCouponRepository) FindByID(ctx context.Context, couponID string) (domain.Coupon, error) {
	if s.findByIDFunc != nil {
		return s.findByIDFunc(ctx, couponID)
	}
	return domain.Coupon{}, &repositoryErrorStub{notFound: true}
}

func (s *stubCouponRepository) FindByCode(ctx context.Context, code string) (domain.Coupon, error) {
	if s.findByCodeFunc != nil {
		return s.findByCodeFunc(ctx, code)
	}
	return domain.Coupon{}, &repositoryErrorStub{notFound: true}
}

func (s *stubCouponRepository) List(ctx context.Context, filter CouponListFilter) (domain.CursorPage[domain.Coupon], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, filter)
	}
	return domain.CursorPage[domain.Coupon]{}, nil
}

type stubCouponUsageRepository struct {
	countForUserFunc     func(ctx context.Context, couponID, userID string) (int, error)
	recordRedemptionFunc func(ctx context.Context, couponID, userID, orderID string, redeemedAt time.Time) error
}

func (s *stubCouponUsageRepository) CountForUser(ctx context.Context, couponID, userID string) (int, error) {
	if s.countForUserFunc != nil {
		return s.countForUserFunc(ctx, couponID, userID)
	}
	return 0, nil
}

func (s *stubCouponUsageRepository) RecordRedemption(ctx context.Context, couponID, userID, orderID string, redeemedAt time.Time) error {
	if s.recordRedemptionFunc != nil {
		return s.recordRedemptionFunc(ctx, couponID, userID, orderID, redeemedAt)
	}
	return nil
}

type repositoryErrorStub struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *repositoryErrorStub) Error() string {
	return "repository error"
}

func (e *repositoryErrorStub) IsNotFound() bool {
	return e.notFound
}

func (e *repositoryErrorStub) IsConflict() bool {
	return e.conflict
}

func (e *repositoryErrorStub) IsUnavailable() bool {
	return e.unavailable
}
