package services

import (
	"context"
	"time"

	domain "github.com/nivasa-store/api/internal/domain"
	"github.com/nivasa-store/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination             = domain.Pagination
	SortOrder              = domain.SortOrder
	DiscountType           = domain.DiscountType
	Product                = domain.Product
	ProductSummary         = domain.ProductSummary
	ProductImage           = domain.ProductImage
	VariantGroup           = domain.VariantGroup
	VariantOption          = domain.VariantOption
	VariantResolution      = domain.VariantResolution
	PriceQuote             = domain.PriceQuote
	Cart                   = domain.Cart
	CartLine               = domain.CartLine
	CartEstimate           = domain.CartEstimate
	AppliedCoupon          = domain.AppliedCoupon
	Coupon                 = domain.Coupon
	CouponValidationResult = domain.CouponValidationResult
	DeliveryZone           = domain.DeliveryZone
	DeliveryQuote          = domain.DeliveryQuote
	Address                = domain.Address
	Order                  = domain.Order
	OrderLine              = domain.OrderLine
	OrderTotals            = domain.OrderTotals
	OrderStatus            = domain.OrderStatus
	Review                 = domain.Review
	ReviewStatus           = domain.ReviewStatus
	WishlistItem           = domain.WishlistItem
	SystemHealthReport     = domain.SystemHealthReport
)

// CatalogService serves product listings, detail pages and variant pricing.
type CatalogService interface {
	ListProducts(ctx context.Context, filter ProductListFilter) (domain.CursorPage[Product], error)
	GetProduct(ctx context.Context, productID string) (Product, error)
	GetProductBySlug(ctx context.Context, slug string) (Product, error)
	QuoteVariant(ctx context.Context, cmd QuoteVariantCommand) (VariantQuote, error)
	SelectVariant(ctx context.Context, cmd SelectVariantCommand) (VariantQuote, error)
	CompareProducts(ctx context.Context, productIDs []string) ([]ProductComparison, error)
	UpsertProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error)
	DeleteProduct(ctx context.Context, productID string) error
}

// CartService manages per-user cart state and keeps the settlement estimate current.
type CartService interface {
	GetOrCreateCart(ctx context.Context, userID string) (Cart, error)
	AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error)
	UpdateItemQuantity(ctx context.Context, cmd UpdateCartItemCommand) (Cart, error)
	RemoveItem(ctx context.Context, cmd RemoveCartItemCommand) (Cart, error)
	ClearCart(ctx context.Context, userID string) error
	SetDeliveryPincode(ctx context.Context, cmd SetDeliveryPincodeCommand) (Cart, error)
	ApplyCoupon(ctx context.Context, cmd ApplyCouponCommand) (Cart, error)
	RemoveCoupon(ctx context.Context, userID string) (Cart, error)
}

// CartPricer recomputes a cart's estimate, revalidating the applied coupon and
// delivery charge against current state.
type CartPricer interface {
	Calculate(ctx context.Context, cmd PriceCartCommand) (PriceCartResult, error)
}

// CouponService validates codes against cart snapshots and manages the coupon table.
type CouponService interface {
	Probe(ctx context.Context, code string) (CouponValidationResult, error)
	Validate(ctx context.Context, cmd ValidateCouponCommand) (CouponValidationResult, error)
	ListCoupons(ctx context.Context, filter CouponListFilter) (domain.CursorPage[Coupon], error)
	CreateCoupon(ctx context.Context, cmd UpsertCouponCommand) (Coupon, error)
	UpdateCoupon(ctx context.Context, cmd UpsertCouponCommand) (Coupon, error)
	DeleteCoupon(ctx context.Context, couponID string) error
}

// DeliveryService resolves delivery charges for pincodes and manages the zone table.
type DeliveryService interface {
	Quote(ctx context.Context, cmd DeliveryQuoteCommand) (DeliveryQuote, error)
	ListZones(ctx context.Context, pager Pagination) (domain.CursorPage[DeliveryZone], error)
	UpsertZone(ctx context.Context, cmd UpsertZoneCommand) (DeliveryZone, error)
	DeleteZone(ctx context.Context, zoneID string) error
}

// CheckoutService settles the cart into an order.
type CheckoutService interface {
	PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (Order, error)
}

// OrderService serves order history and admin status transitions.
type OrderService interface {
	ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error)
	GetOrder(ctx context.Context, cmd GetOrderCommand) (Order, error)
	TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error)
	Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error)
}

// ReviewService coordinates review submission and moderation.
type ReviewService interface {
	Create(ctx context.Context, cmd CreateReviewCommand) (Review, error)
	ListForProduct(ctx context.Context, cmd ListProductReviewsCommand) (domain.CursorPage[Review], error)
	ListPending(ctx context.Context, pager Pagination) (domain.CursorPage[Review], error)
	Moderate(ctx context.Context, cmd ModerateReviewCommand) (Review, error)
}

// WishlistService manages per-user saved products.
type WishlistService interface {
	List(ctx context.Context, userID string) ([]WishlistProduct, error)
	Toggle(ctx context.Context, cmd ToggleWishlistCommand) (bool, error)
	Contains(ctx context.Context, userID, productID string) (bool, error)
}

// CounterService issues formatted sequence values on top of the counter repository.
type CounterService interface {
	Next(ctx context.Context, scope, name string, opts CounterGenerationOptions) (CounterValue, error)
	NextOrderNumber(ctx context.Context) (string, error)
}

// SystemService aggregates health reporting for readiness endpoints.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// Command and DTO definitions ------------------------------------------------

type ProductListFilter = repositories.ProductListFilter

type CouponListFilter = repositories.CouponListFilter

type OrderListFilter = repositories.OrderListFilter

// QuoteVariantCommand requests pricing for a product under a variant selection.
type QuoteVariantCommand struct {
	ProductID string
	Selection map[string]string
}

// SelectVariantCommand applies one attribute choice on top of an existing
// selection, clearing orphaned nested choices and defaulting newly exposed groups.
type SelectVariantCommand struct {
	ProductID string
	Selection map[string]string
	Attribute string
	Value     string
}

// VariantQuote is the resolved selection with its composed price.
type VariantQuote struct {
	ProductID    string
	Selection    map[string]string
	Resolution   VariantResolution
	Price        PriceQuote
	DisplayImage string
}

// ProductComparison pairs a product with its default-selection price for
// side-by-side views.
type ProductComparison struct {
	Product Product
	Price   PriceQuote
	Specs   map[string]string
}

type UpsertProductCommand struct {
	Product Product
	ActorID string
}

type AddCartItemCommand struct {
	UserID    string
	ProductID string
	Selection map[string]string
	Quantity  int
}

type UpdateCartItemCommand struct {
	UserID   string
	LineID   string
	Quantity int
}

type RemoveCartItemCommand struct {
	UserID string
	LineID string
}

type SetDeliveryPincodeCommand struct {
	UserID  string
	Pincode string
}

type ApplyCouponCommand struct {
	UserID string
	Code   string
}

// PriceCartCommand carries the cart snapshot to reprice.
type PriceCartCommand struct {
	Cart Cart
}

// PriceCartResult returns the recomputed estimate along with coupon and
// delivery outcomes so the caller can persist the adjusted cart.
type PriceCartResult struct {
	Estimate      CartEstimate
	Coupon        *AppliedCoupon
	CouponCleared bool
	Quote         *DeliveryQuote
}

type ValidateCouponCommand struct {
	Code     string
	UserID   string
	Subtotal float64
	Lines    []CartLine
}

type UpsertCouponCommand struct {
	Coupon  Coupon
	ActorID string
}

type DeliveryQuoteCommand struct {
	Pincode  string
	Subtotal float64
}

type UpsertZoneCommand struct {
	Zone    DeliveryZone
	ActorID string
}

type PlaceOrderCommand struct {
	UserID          string
	ShippingAddress Address
	PaymentMethod   string
}

type GetOrderCommand struct {
	OrderID string
	UserID  string
	Admin   bool
}

type OrderStatusTransitionCommand struct {
	OrderID      string
	TargetStatus OrderStatus
	ActorID      string
	Reason       string
}

type CancelOrderCommand struct {
	OrderID string
	UserID  string
	Reason  string
}

type CreateReviewCommand struct {
	UserID    string
	ProductID string
	OrderID   *string
	Rating    int
	Title     string
	Comment   string
}

type ListProductReviewsCommand struct {
	ProductID  string
	Pagination Pagination
}

type ModerateReviewCommand struct {
	ReviewID string
	ActorID  string
	Status   ReviewStatus
}

type ToggleWishlistCommand struct {
	UserID    string
	ProductID string
	Mark      bool
}

// WishlistProduct is a saved product hydrated with its catalog summary when
// the product still exists.
type WishlistProduct struct {
	ProductID string
	AddedAt   time.Time
	Product   *ProductSummary
}

// CounterGenerationOptions controls how counter values are incremented and formatted.
type CounterGenerationOptions struct {
	Step      int64
	Prefix    string
	Suffix    string
	PadLength int
	Formatter func(now time.Time, value int64) string
}

// CounterValue pairs the raw sequence value with its formatted representation.
type CounterValue struct {
	Value     int64
	Formatted string
}
