package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/nivasa-store/api/internal/domain"
	"github.com/nivasa-store/api/internal/pricing"
	"github.com/nivasa-store/api/internal/repositories"
)

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartUnavailable indicates the cart service cannot fulfil the request due to missing dependencies or backend issues.
var ErrCartUnavailable = errors.New("cart service: unavailable")

// ErrCartNotFound indicates the requested cart or line does not exist.
var ErrCartNotFound = errors.New("cart service: not found")

// ErrCartConflict indicates the cart could not be updated due to concurrent modifications.
var ErrCartConflict = errors.New("cart service: conflict")

// ErrCartCouponRejected indicates the supplied coupon code is not eligible for the cart.
var ErrCartCouponRejected = errors.New("cart service: coupon rejected")

const (
	maxCartLineQuantity = 20
	maxCartLines        = 50
)

// CartServiceDeps wires the repositories and pricing dependencies for cart operations.
type CartServiceDeps struct {
	Carts           repositories.CartRepository
	Products        repositories.ProductRepository
	Pricer          CartPricer
	Coupons         CouponService
	Clock           func() time.Time
	IDGenerator     func() string
	DefaultCurrency string
	Logger          func(context.Context, string, map[string]any)
}

type cartService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
	pricer   CartPricer
	coupons  CouponService
	now      func() time.Time
	newID    func() string
	currency string
	logger   func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil {
		return nil, errors.New("cart service: cart repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("cart service: product repository is required")
	}
	if deps.Pricer == nil {
		return nil, errors.New("cart service: pricer is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.DefaultCurrency))
	if currency == "" {
		currency = "INR"
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &cartService{
		carts:    deps.Carts,
		products: deps.Products,
		pricer:   deps.Pricer,
		coupons:  deps.Coupons,
		now:      func() time.Time { return clock().UTC() },
		newID:    idGen,
		currency: currency,
		logger:   logger,
	}, nil
}

// GetOrCreateCart loads the user's cart, creating an empty one when absent.
// The estimate is recomputed on every read; if the applied coupon no longer
// qualifies the cleared state is persisted.
func (s *cartService) GetOrCreateCart(ctx context.Context, userID string) (Cart, error) {
	if s == nil || s.carts == nil {
		return Cart{}, ErrCartUnavailable
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return Cart{}, ErrCartInvalidInput
	}

	cart, existed, err := s.loadOrNew(ctx, uid)
	if err != nil {
		return Cart{}, err
	}
	if !existed {
		saved, err := s.carts.Create(ctx, cart)
		if err != nil {
			return Cart{}, s.translateRepoError(err)
		}
		cart = s.normalise(saved, uid)
	}

	result, err := s.pricer.Calculate(ctx, PriceCartCommand{Cart: cart})
	if err != nil {
		return Cart{}, ErrCartUnavailable
	}
	estimate := result.Estimate
	cart.Estimate = &estimate

	if result.CouponCleared && cart.Coupon != nil {
		cart.Coupon = nil
		expected := cart.UpdatedAt
		cart.UpdatedAt = s.now()
		saved, err := s.carts.Save(ctx, cart, &expected)
		if err != nil {
			// Another writer got there first; serve the repriced view anyway.
			s.logger(ctx, "cart.coupon_clear_save_failed", map[string]any{
				"userId": uid,
				"error":  err.Error(),
			})
		} else {
			cart = s.normalise(saved, uid)
			cart.Estimate = &estimate
		}
	}
	return cart, nil
}

// AddItem appends a product+selection line, freezing the composed raw price at
// add time. Adding the same product with the same selection bumps the quantity
// and keeps the original frozen price.
func (s *cartService) AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error) {
	if s == nil || s.carts == nil {
		return Cart{}, ErrCartUnavailable
	}
	uid := strings.TrimSpace(cmd.UserID)
	productID := strings.TrimSpace(cmd.ProductID)
	if uid == "" || productID == "" {
		return Cart{}, ErrCartInvalidInput
	}
	if cmd.Quantity <= 0 {
		return Cart{}, fmt.Errorf("%w: quantity must be greater than zero", ErrCartInvalidInput)
	}
	if cmd.Quantity > maxCartLineQuantity {
		return Cart{}, fmt.Errorf("%w: quantity exceeds limit of %d", ErrCartInvalidInput, maxCartLineQuantity)
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if isRepoNotFound(err) {
			return Cart{}, fmt.Errorf("%w: product not found", ErrCartInvalidInput)
		}
		return Cart{}, s.translateRepoError(err)
	}
	if !product.Published {
		return Cart{}, fmt.Errorf("%w: product is not available", ErrCartInvalidInput)
	}
	if product.StockCount > 0 && cmd.Quantity > product.StockCount {
		return Cart{}, fmt.Errorf("%w: requested quantity exceeds stock", ErrCartInvalidInput)
	}

	selection := normaliseSelection(product.VariantGroups, cmd.Selection)
	resolution := pricing.Resolve(product.VariantGroups, selection)
	quote := pricing.Compose(product, resolution.TotalModifier)

	cart, existed, err := s.loadOrNew(ctx, uid)
	if err != nil {
		return Cart{}, err
	}

	now := s.now()
	idx := findMatchingLine(cart.Lines, productID, selection)
	if idx >= 0 {
		total := cart.Lines[idx].Quantity + cmd.Quantity
		if total > maxCartLineQuantity {
			return Cart{}, fmt.Errorf("%w: quantity exceeds limit of %d", ErrCartInvalidInput, maxCartLineQuantity)
		}
		cart.Lines[idx].Quantity = total
		ts := now
		cart.Lines[idx].UpdatedAt = &ts
	} else {
		if len(cart.Lines) >= maxCartLines {
			return Cart{}, fmt.Errorf("%w: cart holds at most %d lines", ErrCartInvalidInput, maxCartLines)
		}
		image := resolution.DisplayImage
		if image == "" && len(product.Images) > 0 {
			image = product.Images[0].URL
		}
		cart.Lines = append(cart.Lines, CartLine{
			ID:        s.newID(),
			ProductID: product.ID,
			Product: &ProductSummary{
				ID:        product.ID,
				Name:      product.Name,
				Image:     image,
				Category:  product.Category,
				BasePrice: product.BasePrice,
			},
			Selection: selection,
			UnitPrice: quote.Raw,
			Quantity:  cmd.Quantity,
			AddedAt:   now,
		})
	}

	return s.repriceAndSave(ctx, cart, existed, uid)
}

// UpdateItemQuantity sets the quantity of an existing line.
func (s *cartService) UpdateItemQuantity(ctx context.Context, cmd UpdateCartItemCommand) (Cart, error) {
	if s == nil || s.carts == nil {
		return Cart{}, ErrCartUnavailable
	}
	uid := strings.TrimSpace(cmd.UserID)
	lineID := strings.TrimSpace(cmd.LineID)
	if uid == "" || lineID == "" {
		return Cart{}, ErrCartInvalidInput
	}
	if cmd.Quantity <= 0 || cmd.Quantity > maxCartLineQuantity {
		return Cart{}, fmt.Errorf("%w: quantity must be between 1 and %d", ErrCartInvalidInput, maxCartLineQuantity)
	}

	cart, err := s.load(ctx, uid)
	if err != nil {
		return Cart{}, err
	}
	idx := indexOfLine(cart.Lines, lineID)
	if idx < 0 {
		return Cart{}, ErrCartNotFound
	}
	cart.Lines[idx].Quantity = cmd.Quantity
	ts := s.now()
	cart.Lines[idx].UpdatedAt = &ts

	return s.repriceAndSave(ctx, cart, true, uid)
}

// RemoveItem drops a line from the cart.
func (s *cartService) RemoveItem(ctx context.Context, cmd RemoveCartItemCommand) (Cart, error) {
	if s == nil || s.carts == nil {
		return Cart{}, ErrCartUnavailable
	}
	uid := strings.TrimSpace(cmd.UserID)
	lineID := strings.TrimSpace(cmd.LineID)
	if uid == "" || lineID == "" {
		return Cart{}, ErrCartInvalidInput
	}

	cart, err := s.load(ctx, uid)
	if err != nil {
		return Cart{}, err
	}
	idx := indexOfLine(cart.Lines, lineID)
	if idx < 0 {
		return Cart{}, ErrCartNotFound
	}
	cart.Lines = append(cart.Lines[:idx], cart.Lines[idx+1:]...)

	return s.repriceAndSave(ctx, cart, true, uid)
}

// ClearCart drops the cart document entirely. Clearing an absent cart is not
// an error.
func (s *cartService) ClearCart(ctx context.Context, userID string) error {
	if s == nil || s.carts == nil {
		return ErrCartUnavailable
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return ErrCartInvalidInput
	}
	if err := s.carts.Delete(ctx, uid); err != nil && !isRepoNotFound(err) {
		return s.translateRepoError(err)
	}
	return nil
}

// SetDeliveryPincode stores the delivery destination. A complete 6-digit
// pincode triggers a fresh quote; anything shorter clears the stored pincode
// so the estimate drops the delivery charge immediately.
func (s *cartService) SetDeliveryPincode(ctx context.Context, cmd SetDeliveryPincodeCommand) (Cart, error) {
	if s == nil || s.carts == nil {
		return Cart{}, ErrCartUnavailable
	}
	uid := strings.TrimSpace(cmd.UserID)
	if uid == "" {
		return Cart{}, ErrCartInvalidInput
	}
	pincode := strings.TrimSpace(cmd.Pincode)
	if pincode != "" && !allDigits(pincode) {
		return Cart{}, fmt.Errorf("%w: pincode must be numeric", ErrCartInvalidInput)
	}
	if len(pincode) > pincodeLength {
		return Cart{}, fmt.Errorf("%w: pincode must be %d digits", ErrCartInvalidInput, pincodeLength)
	}

	cart, existed, err := s.loadOrNew(ctx, uid)
	if err != nil {
		return Cart{}, err
	}

	if ValidPincode(pincode) {
		cart.DeliveryPincode = &pincode
	} else {
		// Partial input: charge is zeroed and any previous quote is discarded.
		cart.DeliveryPincode = nil
	}

	return s.repriceAndSave(ctx, cart, existed, uid)
}

// ApplyCoupon replaces any applied coupon with the supplied code. The old
// coupon is cleared before validation, so a rejected code leaves the cart
// without a coupon.
func (s *cartService) ApplyCoupon(ctx context.Context, cmd ApplyCouponCommand) (Cart, error) {
	if s == nil || s.carts == nil {
		return Cart{}, ErrCartUnavailable
	}
	if s.coupons == nil {
		return Cart{}, ErrCartUnavailable
	}
	uid := strings.TrimSpace(cmd.UserID)
	if uid == "" {
		return Cart{}, ErrCartInvalidInput
	}
	code := NormalizeCouponCode(cmd.Code)
	if code == "" {
		return Cart{}, fmt.Errorf("%w: code is required", ErrCartInvalidInput)
	}

	cart, err := s.load(ctx, uid)
	if err != nil {
		return Cart{}, err
	}

	cart.Coupon = nil
	subtotal := pricing.Subtotal(cart.Lines)

	validation, err := s.coupons.Validate(ctx, ValidateCouponCommand{
		Code:     code,
		UserID:   uid,
		Subtotal: subtotal,
		Lines:    cart.Lines,
	})
	if err != nil {
		if errors.Is(err, ErrCouponInvalidInput) {
			return Cart{}, ErrCartInvalidInput
		}
		return Cart{}, ErrCartUnavailable
	}
	if !validation.Eligible {
		if _, saveErr := s.repriceAndSave(ctx, cart, true, uid); saveErr != nil {
			return Cart{}, saveErr
		}
		return Cart{}, fmt.Errorf("%w: %s", ErrCartCouponRejected, validation.Reason)
	}

	cart.Coupon = &AppliedCoupon{
		Code:         validation.Code,
		Type:         validation.Type,
		Discount:     validation.Discount,
		FreeShipping: validation.FreeShipping,
		AppliedAt:    s.now(),
	}
	return s.repriceAndSave(ctx, cart, true, uid)
}

// RemoveCoupon clears the applied coupon.
func (s *cartService) RemoveCoupon(ctx context.Context, userID string) (Cart, error) {
	if s == nil || s.carts == nil {
		return Cart{}, ErrCartUnavailable
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return Cart{}, ErrCartInvalidInput
	}

	cart, err := s.load(ctx, uid)
	if err != nil {
		return Cart{}, err
	}
	cart.Coupon = nil
	return s.repriceAndSave(ctx, cart, true, uid)
}

func (s *cartService) load(ctx context.Context, uid string) (Cart, error) {
	cart, err := s.carts.GetByUser(ctx, uid)
	if err != nil {
		if isRepoNotFound(err) {
			return Cart{}, ErrCartNotFound
		}
		return Cart{}, s.translateRepoError(err)
	}
	return s.normalise(cart, uid), nil
}

func (s *cartService) loadOrNew(ctx context.Context, uid string) (Cart, bool, error) {
	cart, err := s.carts.GetByUser(ctx, uid)
	if err != nil {
		if isRepoNotFound(err) {
			return s.newCart(uid), false, nil
		}
		return Cart{}, false, s.translateRepoError(err)
	}
	return s.normalise(cart, uid), true, nil
}

func (s *cartService) newCart(uid string) Cart {
	return Cart{
		ID:        uid,
		UserID:    uid,
		Currency:  s.currency,
		Lines:     []CartLine{},
		Metadata:  map[string]any{},
		UpdatedAt: s.now(),
	}
}

func (s *cartService) normalise(cart Cart, uid string) Cart {
	if strings.TrimSpace(cart.ID) == "" {
		cart.ID = uid
	}
	if strings.TrimSpace(cart.UserID) == "" {
		cart.UserID = uid
	}
	if strings.TrimSpace(cart.Currency) == "" {
		cart.Currency = s.currency
	}
	if cart.Lines == nil {
		cart.Lines = []CartLine{}
	}
	if cart.Metadata == nil {
		cart.Metadata = map[string]any{}
	}
	if cart.UpdatedAt.IsZero() {
		cart.UpdatedAt = s.now()
	}
	return cart
}

// repriceAndSave recomputes the estimate and persists the cart with an
// optimistic precondition when it already existed.
func (s *cartService) repriceAndSave(ctx context.Context, cart Cart, existed bool, uid string) (Cart, error) {
	result, err := s.pricer.Calculate(ctx, PriceCartCommand{Cart: cart})
	if err != nil {
		return Cart{}, ErrCartUnavailable
	}
	if cart.Coupon != nil {
		if result.CouponCleared {
			cart.Coupon = nil
		} else if result.Coupon != nil {
			cart.Coupon = result.Coupon
		}
	}
	estimate := result.Estimate
	cart.Estimate = &estimate

	var expected *time.Time
	if existed {
		ts := cart.UpdatedAt.UTC()
		expected = &ts
	}
	cart.UpdatedAt = s.now()

	var saved Cart
	if existed {
		saved, err = s.carts.Save(ctx, cart, expected)
	} else {
		saved, err = s.carts.Create(ctx, cart)
	}
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	saved = s.normalise(saved, uid)
	saved.Estimate = &estimate
	return saved, nil
}

func normaliseSelection(groups []domain.VariantGroup, selection map[string]string) map[string]string {
	merged := pricing.DefaultSelection(groups)
	for attribute, value := range selection {
		attribute = strings.TrimSpace(attribute)
		value = strings.TrimSpace(value)
		if attribute == "" || value == "" {
			continue
		}
		merged = pricing.Select(groups, merged, attribute, value)
	}
	return merged
}

func findMatchingLine(lines []CartLine, productID string, selection map[string]string) int {
	for i, line := range lines {
		if !strings.EqualFold(strings.TrimSpace(line.ProductID), productID) {
			continue
		}
		if selectionEqual(line.Selection, selection) {
			return i
		}
	}
	return -1
}

func selectionEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func indexOfLine(lines []CartLine, lineID string) int {
	for i, line := range lines {
		if strings.EqualFold(strings.TrimSpace(line.ID), lineID) {
			return i
		}
	}
	return -1
}

func allDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (s *cartService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCartNotFound
		case repoErr.IsConflict():
			return ErrCartConflict
		case repoErr.IsUnavailable():
			return ErrCartUnavailable
		}
	}
	return ErrCartUnavailable
}
