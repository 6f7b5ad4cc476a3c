package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/nivasa-store/api/internal/domain"
	"github.com/nivasa-store/api/internal/repositories"
)

// ErrCheckoutInvalidInput indicates the caller supplied invalid input.
var ErrCheckoutInvalidInput = errors.New("checkout service: invalid input")

// ErrCheckoutEmptyCart indicates checkout was attempted on an empty cart.
var ErrCheckoutEmptyCart = errors.New("checkout service: cart is empty")

// ErrCheckoutUnavailable indicates the checkout cannot complete due to backend issues.
var ErrCheckoutUnavailable = errors.New("checkout service: unavailable")

// CheckoutServiceDeps wires the repositories and collaborators for order placement.
type CheckoutServiceDeps struct {
	Carts       repositories.CartRepository
	Orders      repositories.OrderRepository
	Coupons     repositories.CouponRepository
	CouponUsage repositories.CouponUsageRepository
	Pricer      CartPricer
	Counters    CounterService
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type checkoutService struct {
	carts       repositories.CartRepository
	orders      repositories.OrderRepository
	coupons     repositories.CouponRepository
	couponUsage repositories.CouponUsageRepository
	pricer      CartPricer
	counters    CounterService
	now         func() time.Time
	newID       func() string
	logger      func(context.Context, string, map[string]any)
}

// NewCheckoutService constructs a CheckoutService enforcing dependency validation.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Carts == nil {
		return nil, errors.New("checkout service: cart repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order repository is required")
	}
	if deps.Pricer == nil {
		return nil, errors.New("checkout service: pricer is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("checkout service: counter service is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &checkoutService{
		carts:       deps.Carts,
		orders:      deps.Orders,
		coupons:     deps.Coupons,
		couponUsage: deps.CouponUsage,
		pricer:      deps.Pricer,
		counters:    deps.Counters,
		now:         func() time.Time { return clock().UTC() },
		newID:       idGen,
		logger:      logger,
	}, nil
}

// PlaceOrder settles the user's cart into an order. The cart is repriced one
// last time before freezing, so stale coupons and delivery quotes never reach
// the order record. The cart is cleared on success.
func (s *checkoutService) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (Order, error) {
	if s == nil || s.carts == nil {
		return Order{}, ErrCheckoutUnavailable
	}
	uid := strings.TrimSpace(cmd.UserID)
	if uid == "" {
		return Order{}, ErrCheckoutInvalidInput
	}
	if err := validateShippingAddress(cmd.ShippingAddress); err != nil {
		return Order{}, err
	}
	method := strings.TrimSpace(cmd.PaymentMethod)
	if method == "" {
		method = "cod"
	}

	cart, err := s.carts.GetByUser(ctx, uid)
	if err != nil {
		if isRepoNotFound(err) {
			return Order{}, ErrCheckoutEmptyCart
		}
		return Order{}, s.translateRepoError(err)
	}
	if len(cart.Lines) == 0 {
		return Order{}, ErrCheckoutEmptyCart
	}

	// The order ships to the checkout address, not to whatever pincode the
	// cart page last stored, so the settlement reprice quotes that pincode.
	shippingPincode := strings.TrimSpace(cmd.ShippingAddress.Pincode)
	cart.DeliveryPincode = &shippingPincode

	result, err := s.pricer.Calculate(ctx, PriceCartCommand{Cart: cart})
	if err != nil {
		return Order{}, ErrCheckoutUnavailable
	}
	coupon := cart.Coupon
	if result.CouponCleared {
		coupon = nil
	} else if result.Coupon != nil {
		coupon = result.Coupon
	}

	number, err := s.counters.NextOrderNumber(ctx)
	if err != nil {
		return Order{}, ErrCheckoutUnavailable
	}

	now := s.now()
	order := Order{
		ID:              s.newID(),
		Number:          number,
		UserID:          uid,
		Lines:           orderLinesFromCart(cart.Lines),
		Totals:          totalsFromEstimate(result.Estimate),
		Coupon:          coupon,
		ShippingAddress: cmd.ShippingAddress,
		PaymentMethod:   method,
		Status:          domain.OrderStatusPending,
		PlacedAt:        now,
		UpdatedAt:       now,
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return Order{}, s.translateRepoError(err)
	}

	if coupon != nil {
		s.recordRedemption(ctx, uid, order.ID, coupon.Code, now)
	}

	if err := s.carts.Delete(ctx, cart.ID); err != nil && !isRepoNotFound(err) {
		// The order is already placed; losing the cart cleanup is recoverable.
		s.logger(ctx, "checkout.cart_clear_failed", map[string]any{
			"userId":  uid,
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}

	s.logger(ctx, "checkout.order_placed", map[string]any{
		"userId":      uid,
		"orderId":     order.ID,
		"orderNumber": order.Number,
		"total":       order.Totals.Total,
	})
	return order, nil
}

// recordRedemption bumps the coupon usage ledger. Failures are logged, not
// surfaced: the order is already committed.
func (s *checkoutService) recordRedemption(ctx context.Context, uid, orderID, code string, now time.Time) {
	if s.coupons == nil {
		return
	}
	coupon, err := s.coupons.FindByCode(ctx, NormalizeCouponCode(code))
	if err != nil {
		s.logger(ctx, "checkout.coupon_lookup_failed", map[string]any{
			"orderId": orderID,
			"code":    code,
			"error":   err.Error(),
		})
		return
	}
	coupon.UsageCount++
	coupon.UpdatedAt = now
	if err := s.coupons.Update(ctx, coupon); err != nil {
		s.logger(ctx, "checkout.coupon_usage_update_failed", map[string]any{
			"orderId":  orderID,
			"couponId": coupon.ID,
			"error":    err.Error(),
		})
	}
	if s.couponUsage == nil {
		return
	}
	if err := s.couponUsage.RecordRedemption(ctx, coupon.ID, uid, orderID, now); err != nil {
		s.logger(ctx, "checkout.coupon_redemption_record_failed", map[string]any{
			"orderId":  orderID,
			"couponId": coupon.ID,
			"error":    err.Error(),
		})
	}
}

func orderLinesFromCart(lines []CartLine) []OrderLine {
	out := make([]OrderLine, 0, len(lines))
	for _, line := range lines {
		price := line.UnitPrice
		name := ""
		image := ""
		if line.Product != nil {
			name = line.Product.Name
			image = line.Product.Image
			if price == 0 {
				price = line.Product.BasePrice
			}
		}
		out = append(out, OrderLine{
			ProductID: line.ProductID,
			Name:      name,
			Image:     image,
			Selection: line.Selection,
			UnitPrice: price,
			Quantity:  line.Quantity,
			LineTotal: price * float64(line.Quantity),
		})
	}
	return out
}

func totalsFromEstimate(estimate CartEstimate) OrderTotals {
	return OrderTotals{
		Subtotal:       estimate.Subtotal,
		CouponDiscount: estimate.CouponDiscount,
		GST:            estimate.GST,
		DeliveryCharge: estimate.DeliveryCharge,
		Total:          estimate.Total,
	}
}

func validateShippingAddress(addr Address) error {
	if strings.TrimSpace(addr.Name) == "" {
		return fmt.Errorf("%w: shipping name is required", ErrCheckoutInvalidInput)
	}
	if strings.TrimSpace(addr.Line1) == "" {
		return fmt.Errorf("%w: shipping address line is required", ErrCheckoutInvalidInput)
	}
	if strings.TrimSpace(addr.City) == "" {
		return fmt.Errorf("%w: shipping city is required", ErrCheckoutInvalidInput)
	}
	if !ValidPincode(strings.TrimSpace(addr.Pincode)) {
		return fmt.Errorf("%w: shipping pincode must be %d digits", ErrCheckoutInvalidInput, pincodeLength)
	}
	return nil
}

func (s *checkoutService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
		return ErrCheckoutUnavailable
	}
	return ErrCheckoutUnavailable
}
