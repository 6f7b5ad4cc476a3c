package pricing

import (
	"math"

	"github.com/nivasa-store/api/internal/domain"
)

// GSTRate is the flat goods-and-services tax rate applied to the cart
// subtotal at settlement.
const GSTRate = 0.18

// Subtotal sums unit price times quantity across cart lines. Lines whose
// product reference no longer resolves are skipped rather than failing the
// whole cart. The frozen line price wins; the product's current base price is
// only a fallback for lines frozen without one.
func Subtotal(lines []domain.CartLine) float64 {
	var total float64
	for _, line := range lines {
		if line.Product == nil {
			continue
		}
		price := line.UnitPrice
		if price <= 0 {
			price = line.Product.BasePrice
		}
		qty := line.Quantity
		if qty < 0 {
			qty = 0
		}
		total += price * float64(qty)
	}
	if total < 0 {
		return 0
	}
	return total
}

// GST returns the tax on a subtotal, rounded to two decimals.
func GST(subtotal float64) float64 {
	return math.Round(subtotal*GSTRate*100) / 100
}

// Settle computes the canonical checkout breakdown:
//
//	total = max(0, subtotal - couponDiscount + gst + deliveryCharge)
//
// The same formula backs the cart preview so the two surfaces cannot drift.
func Settle(subtotal, couponDiscount, deliveryCharge float64) domain.OrderTotals {
	gst := GST(subtotal)
	total := subtotal - couponDiscount + gst + deliveryCharge
	if total < 0 {
		total = 0
	}
	return domain.OrderTotals{
		Subtotal:       subtotal,
		CouponDiscount: couponDiscount,
		GST:            gst,
		DeliveryCharge: deliveryCharge,
		Total:          total,
	}
}

// CouponDiscount evaluates a coupon's monetary discount against a subtotal,
// clamped to [0, subtotal]. Free-shipping coupons cost nothing against the
// subtotal; their effect is applied on the delivery charge.
func CouponDiscount(coupon domain.Coupon, subtotal float64) float64 {
	var discount float64
	switch coupon.Type {
	case domain.DiscountTypePercentage:
		discount = subtotal * coupon.Value / 100
	case domain.DiscountTypeFixed:
		discount = coupon.Value
	}
	if discount < 0 {
		return 0
	}
	if discount > subtotal {
		return subtotal
	}
	return discount
}
