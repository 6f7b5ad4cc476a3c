package services

import (
	"context"
	"errors"
	"strings"

	"github.com/nivasa-store/api/internal/pricing"
)

// ErrCartPricingUnavailable indicates the pricer could not reach its backends.
var ErrCartPricingUnavailable = errors.New("cart pricer: unavailable")

// CartPricerDeps wires the validators the pricer consults on every calculation.
type CartPricerDeps struct {
	Coupons  CouponService
	Delivery DeliveryService
	Logger   func(context.Context, string, map[string]any)
}

type cartPricer struct {
	coupons  CouponService
	delivery DeliveryService
	logger   func(context.Context, string, map[string]any)
}

// NewCartPricer constructs the pricer that recomputes cart estimates.
func NewCartPricer(deps CartPricerDeps) (CartPricer, error) {
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &cartPricer{
		coupons:  deps.Coupons,
		delivery: deps.Delivery,
		logger:   logger,
	}, nil
}

// Calculate recomputes the settlement estimate for a cart snapshot. The
// applied coupon is revalidated against the current lines; a coupon that no
// longer qualifies is cleared rather than reported as an error. The delivery
// charge is requoted for the stored pincode, and a free-shipping coupon zeroes
// the applied charge while the informational quote is still returned.
func (p *cartPricer) Calculate(ctx context.Context, cmd PriceCartCommand) (PriceCartResult, error) {
	if p == nil {
		return PriceCartResult{}, ErrCartPricingUnavailable
	}

	cart := cmd.Cart
	subtotal := pricing.Subtotal(cart.Lines)

	result := PriceCartResult{}

	var couponDiscount float64
	freeShipping := false
	if cart.Coupon != nil {
		coupon, cleared := p.revalidateCoupon(ctx, cart, subtotal)
		result.Coupon = coupon
		result.CouponCleared = cleared
		if coupon != nil {
			couponDiscount = coupon.Discount
			freeShipping = coupon.FreeShipping
		}
	}

	deliveryCharge := 0.0
	if pincode := storedPincode(cart); pincode != "" {
		quote, err := p.quoteDelivery(ctx, pincode, subtotal)
		if err == nil && quote != nil {
			result.Quote = quote
			if quote.Available {
				deliveryCharge = quote.Charge
			}
		}
	}
	if freeShipping {
		deliveryCharge = 0
	}

	totals := pricing.Settle(subtotal, couponDiscount, deliveryCharge)
	result.Estimate = CartEstimate{
		Subtotal:       totals.Subtotal,
		CouponDiscount: totals.CouponDiscount,
		GST:            totals.GST,
		DeliveryCharge: totals.DeliveryCharge,
		Total:          totals.Total,
	}
	return result, nil
}

// revalidateCoupon re-runs coupon validation for the current cart state.
// Ineligible codes and validation failures both clear the coupon silently.
func (p *cartPricer) revalidateCoupon(ctx context.Context, cart Cart, subtotal float64) (*AppliedCoupon, bool) {
	if p.coupons == nil {
		return nil, true
	}

	validation, err := p.coupons.Validate(ctx, ValidateCouponCommand{
		Code:     cart.Coupon.Code,
		UserID:   cart.UserID,
		Subtotal: subtotal,
		Lines:    cart.Lines,
	})
	if err != nil {
		p.logger(ctx, "pricer.coupon_revalidation_failed", map[string]any{
			"userId": cart.UserID,
			"code":   cart.Coupon.Code,
			"error":  err.Error(),
		})
		return nil, true
	}
	if !validation.Eligible {
		p.logger(ctx, "pricer.coupon_cleared", map[string]any{
			"userId": cart.UserID,
			"code":   cart.Coupon.Code,
			"reason": validation.Reason,
		})
		return nil, true
	}

	updated := *cart.Coupon
	updated.Discount = validation.Discount
	updated.FreeShipping = validation.FreeShipping
	return &updated, false
}

func (p *cartPricer) quoteDelivery(ctx context.Context, pincode string, subtotal float64) (*DeliveryQuote, error) {
	if p.delivery == nil {
		return nil, nil
	}
	quote, err := p.delivery.Quote(ctx, DeliveryQuoteCommand{Pincode: pincode, Subtotal: subtotal})
	if err != nil {
		p.logger(ctx, "pricer.delivery_quote_failed", map[string]any{
			"pincode": pincode,
			"error":   err.Error(),
		})
		return nil, err
	}
	return &quote, nil
}

func storedPincode(cart Cart) string {
	if cart.DeliveryPincode == nil {
		return ""
	}
	pincode := strings.TrimSpace(*cart.DeliveryPincode)
	if !ValidPincode(pincode) {
		return ""
	}
	return pincode
}
