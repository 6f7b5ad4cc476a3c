package pricing

import (
	"math"

	"github.com/nivasa-store/api/internal/domain"
)

// Compose builds the sale price for a product under the given variant
// modifier. The modifier is added to the base price first and the product
// discount applies to that raw sum, so discounts always cover variant
// upcharges. Display is rounded to the nearest rupee; Raw stays unrounded
// and is what carts freeze at add time.
func Compose(product domain.Product, totalModifier float64) domain.PriceQuote {
	raw := product.BasePrice + totalModifier
	raw = applyDiscount(raw, product.DiscountType, product.DiscountValue)
	if raw < 0 {
		raw = 0
	}
	return domain.PriceQuote{Display: math.Round(raw), Raw: raw}
}

func applyDiscount(amount float64, kind *domain.DiscountType, value float64) float64 {
	if kind == nil || value <= 0 {
		return amount
	}
	switch *kind {
	case domain.DiscountTypePercentage:
		return amount - amount*value/100
	case domain.DiscountTypeFixed:
		if value >= amount {
			return 0
		}
		return amount - value
	default:
		return amount
	}
}
