package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/nivasa-store/api/internal/domain"
)

func newTestCartPricer(t *testing.T, deps CartPricerDeps) CartPricer {
	t.Helper()
	pricer, err := NewCartPricer(deps)
	if err != nil {
		t.Fatalf("unexpected error constructing cart pricer: %v", err)
	}
	return pricer
}

// pricedCart builds a cart the way the cart service stores one: every line
// carries the product summary denormalized at add time.
func pricedCart(lines ...domain.CartLine) domain.Cart {
	for i := range lines {
		if lines[i].Product == nil {
			lines[i].Product = &domain.ProductSummary{
				ID:        lines[i].ProductID,
				Name:      "Product " + lines[i].ProductID,
				BasePrice: lines[i].UnitPrice,
			}
		}
	}
	return domain.Cart{
		ID:       "user-1",
		UserID:   "user-1",
		Currency: "INR",
		Lines:    lines,
	}
}

func TestCartPricerCalculateBareCart(t *testing.T) {
	pricer := newTestCartPricer(t, CartPricerDeps{})

	cart := pricedCart(domain.CartLine{ProductID: "p-1", UnitPrice: 1350, Quantity: 2})
	result, err := pricer.Calculate(context.Background(), PriceCartCommand{Cart: cart})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Estimate.Subtotal != 2700 {
		t.Fatalf("expected subtotal 2700, got %v", result.Estimate.Subtotal)
	}
	if result.Estimate.GST != 486 {
		t.Fatalf("expected gst 486, got %v", result.Estimate.GST)
	}
	if result.Estimate.Total != 3186 {
		t.Fatalf("expected total 3186, got %v", result.Estimate.Total)
	}
	if result.CouponCleared {
		t.Fatalf("no coupon to clear")
	}
}

func TestCartPricerClearsIneligibleCoupon(t *testing.T) {
	coupons := &stubCouponService{
		validateFunc: func(ctx context.Context, cmd ValidateCouponCommand) (CouponValidationResult, error) {
			return CouponValidationResult{Code: cmd.Code, Eligible: false, Reason: CouponReasonExpired}, nil
		},
	}
	pricer := newTestCartPricer(t, CartPricerDeps{Coupons: coupons})

	cart := pricedCart(domain.CartLine{ProductID: "p-1", UnitPrice: 5000, Quantity: 1})
	cart.Coupon = &domain.AppliedCoupon{Code: "EXPIRED10", Type: domain.DiscountTypePercentage, Discount: 500}

	result, err := pricer.Calculate(context.Background(), PriceCartCommand{Cart: cart})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.CouponCleared {
		t.Fatalf("expected coupon cleared")
	}
	if result.Coupon != nil {
		t.Fatalf("expected no surviving coupon, got %+v", result.Coupon)
	}
	if result.Estimate.CouponDiscount != 0 {
		t.Fatalf("cleared coupon must not discount, got %v", result.Estimate.CouponDiscount)
	}
}

func TestCartPricerClearsCouponOnValidationError(t *testing.T) {
	coupons := &stubCouponService{
		validateFunc: func(ctx context.Context, cmd ValidateCouponCommand) (CouponValidationResult, error) {
			return CouponValidationResult{}, ErrCouponUnavailable
		},
	}
	pricer := newTestCartPricer(t, CartPricerDeps{Coupons: coupons})

	cart := pricedCart(domain.CartLine{ProductID: "p-1", UnitPrice: 5000, Quantity: 1})
	cart.Coupon = &domain.AppliedCoupon{Code: "SAVE10", Discount: 500}

	result, err := pricer.Calculate(context.Background(), PriceCartCommand{Cart: cart})
	if err != nil {
		t.Fatalf("revalidation failure must not fail pricing: %v", err)
	}
	if !result.CouponCleared {
		t.Fatalf("expected coupon cleared on validation error")
	}
}

func TestCartPricerRefreshesEligibleCoupon(t *testing.T) {
	coupons := &stubCouponService{
		validateFunc: func(ctx context.Context, cmd ValidateCouponCommand) (CouponValidationResult, error) {
			if cmd.Subtotal != 8000 {
				t.Fatalf("expected revalidation subtotal 8000, got %v", cmd.Subtotal)
			}
			return CouponValidationResult{
				Code: "SAVE10", Eligible: true,
				Type: domain.DiscountTypePercentage, Discount: 800,
			}, nil
		},
	}
	pricer := newTestCartPricer(t, CartPricerDeps{Coupons: coupons})

	cart := pricedCart(domain.CartLine{ProductID: "p-1", UnitPrice: 4000, Quantity: 2})
	cart.Coupon = &domain.AppliedCoupon{Code: "SAVE10", Type: domain.DiscountTypePercentage, Discount: 500}

	result, err := pricer.Calculate(context.Background(), PriceCartCommand{Cart: cart})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CouponCleared {
		t.Fatalf("eligible coupon must survive")
	}
	if result.Coupon == nil || result.Coupon.Discount != 800 {
		t.Fatalf("expected refreshed discount 800, got %+v", result.Coupon)
	}
	if result.Estimate.CouponDiscount != 800 {
		t.Fatalf("expected estimate discount 800, got %v", result.Estimate.CouponDiscount)
	}
}

func TestCartPricerAppliesDeliveryCharge(t *testing.T) {
	delivery := &stubDeliveryService{
		quoteFunc: func(ctx context.Context, cmd DeliveryQuoteCommand) (DeliveryQuote, error) {
			if cmd.Pincode != "560001" {
				t.Fatalf("expected stored pincode, got %q", cmd.Pincode)
			}
			return DeliveryQuote{Pincode: cmd.Pincode, Available: true, Charge: 120, MinDays: 2, MaxDays: 5}, nil
		},
	}
	pricer := newTestCartPricer(t, CartPricerDeps{Delivery: delivery})

	pincode := "560001"
	cart := pricedCart(domain.CartLine{ProductID: "p-1", UnitPrice: 500, Quantity: 1})
	cart.DeliveryPincode = &pincode

	result, err := pricer.Calculate(context.Background(), PriceCartCommand{Cart: cart})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Quote == nil || !result.Quote.Available {
		t.Fatalf("expected available quote, got %+v", result.Quote)
	}
	if result.Estimate.DeliveryCharge != 120 {
		t.Fatalf("expected delivery charge 120, got %v", result.Estimate.DeliveryCharge)
	}
}

func TestCartPricerUnavailablePincodeChargesNothing(t *testing.T) {
	delivery := &stubDeliveryService{
		quoteFunc: func(ctx context.Context, cmd DeliveryQuoteCommand) (DeliveryQuote, error) {
			return DeliveryQuote{Pincode: cmd.Pincode, Available: false}, nil
		},
	}
	pricer := newTestCartPricer(t, CartPricerDeps{Delivery: delivery})

	pincode := "799999"
	cart := pricedCart(domain.CartLine{ProductID: "p-1", UnitPrice: 500, Quantity: 1})
	cart.DeliveryPincode = &pincode

	result, err := pricer.Calculate(context.Background(), PriceCartCommand{Cart: cart})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Quote == nil || result.Quote.Available {
		t.Fatalf("expected unavailable quote surfaced, got %+v", result.Quote)
	}
	if result.Estimate.DeliveryCharge != 0 {
		t.Fatalf("unavailable pincode must not be charged, got %v", result.Estimate.DeliveryCharge)
	}
}

func TestCartPricerFreeShippingWaivesChargeButKeepsQuote(t *testing.T) {
	coupons := &stubCouponService{
		validateFunc: func(ctx context.Context, cmd ValidateCouponCommand) (CouponValidationResult, error) {
			return CouponValidationResult{Code: "FREESHIP", Eligible: true, Type: domain.DiscountTypeFixed, FreeShipping: true}, nil
		},
	}
	delivery := &stubDeliveryService{
		quoteFunc: func(ctx context.Context, cmd DeliveryQuoteCommand) (DeliveryQuote, error) {
			return DeliveryQuote{Pincode: cmd.Pincode, Available: true, Charge: 150}, nil
		},
	}
	pricer := newTestCartPricer(t, CartPricerDeps{Coupons: coupons, Delivery: delivery})

	pincode := "560001"
	cart := pricedCart(domain.CartLine{ProductID: "p-1", UnitPrice: 2000, Quantity: 1})
	cart.DeliveryPincode = &pincode
	cart.Coupon = &domain.AppliedCoupon{Code: "FREESHIP", Type: domain.DiscountTypeFixed, FreeShipping: true}

	result, err := pricer.Calculate(context.Background(), PriceCartCommand{Cart: cart})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Estimate.DeliveryCharge != 0 {
		t.Fatalf("free shipping must waive the applied charge, got %v", result.Estimate.DeliveryCharge)
	}
	if result.Quote == nil || result.Quote.Charge != 150 {
		t.Fatalf("informational quote keeps the zone charge, got %+v", result.Quote)
	}
}

func TestCartPricerSkipsPartialPincode(t *testing.T) {
	delivery := &stubDeliveryService{
		quoteFunc: func(ctx context.Context, cmd DeliveryQuoteCommand) (DeliveryQuote, error) {
			t.Fatalf("partial pincode must not be quoted")
			return DeliveryQuote{}, nil
		},
	}
	pricer := newTestCartPricer(t, CartPricerDeps{Delivery: delivery})

	pincode := "5600"
	cart := pricedCart(domain.CartLine{ProductID: "p-1", UnitPrice: 500, Quantity: 1})
	cart.DeliveryPincode = &pincode

	result, err := pricer.Calculate(context.Background(), PriceCartCommand{Cart: cart})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Quote != nil {
		t.Fatalf("expected no quote for partial pincode")
	}
	if result.Estimate.DeliveryCharge != 0 {
		t.Fatalf("expected zero delivery charge, got %v", result.Estimate.DeliveryCharge)
	}
}

func TestCartPricerToleratesDeliveryFailure(t *testing.T) {
	delivery := &stubDeliveryService{
		quoteFunc: func(ctx context.Context, cmd DeliveryQuoteCommand) (DeliveryQuote, error) {
			return DeliveryQuote{}, ErrDeliveryUnavailable
		},
	}
	pricer := newTestCartPricer(t, CartPricerDeps{Delivery: delivery})

	pincode := "560001"
	cart := pricedCart(domain.CartLine{ProductID: "p-1", UnitPrice: 500, Quantity: 1})
	cart.DeliveryPincode = &pincode

	result, err := pricer.Calculate(context.Background(), PriceCartCommand{Cart: cart})
	if err != nil {
		t.Fatalf("delivery outage must not fail pricing: %v", err)
	}
	if result.Quote != nil {
		t.Fatalf("expected no quote on delivery failure")
	}
	if result.Estimate.DeliveryCharge != 0 {
		t.Fatalf("expected zero delivery charge, got %v", result.Estimate.DeliveryCharge)
	}
}

type stubCouponService struct {
	probeFunc    func(ctx context.Context, code string) (CouponValidationResult, error)
	validateFunc func(ctx context.Context, cmd ValidateCouponCommand) (CouponValidationResult, error)
}

func (s *stubCouponService) Probe(ctx context.Context, code string) (CouponValidationResult, error) {
	if s.probeFunc != nil {
		return s.probeFunc(ctx, code)
	}
	return CouponValidationResult{}, errors.New("not implemented")
}

func (s *stubCouponService) Validate(ctx context.Context, cmd ValidateCouponCommand) (CouponValidationResult, error) {
	if s.validateFunc != nil {
		return s.validateFunc(ctx, cmd)
	}
	return CouponValidationResult{}, errors.New("not implemented")
}

func (s *stubCouponService) ListCoupons(ctx context.Context, filter CouponListFilter) (domain.CursorPage[Coupon], error) {
	return domain.CursorPage[Coupon]{}, errors.New("not implemented")
}

func (s *stubCouponService) CreateCoupon(ctx context.Context, cmd UpsertCouponCommand) (Coupon, error) {
	return Coupon{}, errors.New("not implemented")
}

func (s *stubCouponService) UpdateCoupon(ctx context.Context, cmd UpsertCouponCommand) (Coupon, error) {
	return Coupon{}, errors.New("not implemented")
}

func (s *stubCouponService) DeleteCoupon(ctx context.Context, couponID string) error {
	return errors.New("not implemented")
}

type stubDeliveryService struct {
	quoteFunc func(ctx context.Context, cmd DeliveryQuoteCommand) (DeliveryQuote, error)
}

func (s *stubDeliveryService) Quote(ctx context.Context, cmd DeliveryQuoteCommand) (DeliveryQuote, error) {
	if s.quoteFunc != nil {
		return s.quoteFunc(ctx, cmd)
	}
	return DeliveryQuote{}, errors.New("not implemented")
}

func (s *stubDeliveryService) ListZones(ctx context.Context, pager Pagination) (domain.CursorPage[DeliveryZone], error) {
	return domain.CursorPage[DeliveryZone]{}, errors.New("not implemented")
}

func (s *stubDeliveryService) UpsertZone(ctx context.Context, cmd UpsertZoneCommand) (DeliveryZone, error) {
	return DeliveryZone{}, errors.New("not implemented")
}

func (s *stubDeliveryService) DeleteZone(ctx context.Context, zoneID string) error {
	return errors.New("not implemented")
}
