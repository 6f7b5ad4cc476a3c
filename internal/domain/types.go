package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// CursorPage wraps list results with the opaque token for the next page.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// DiscountType enumerates how a discount value is interpreted.
type DiscountType string

const (
	// DiscountTypePercentage deducts value percent of the undiscounted amount.
	DiscountTypePercentage DiscountType = "percentage"
	// DiscountTypeFixed deducts a flat rupee amount, floored at zero.
	DiscountTypeFixed DiscountType = "fixed"
)

// ProductImage is a display image with optional alt text.
type ProductImage struct {
	URL string
	Alt string
}

// VariantOption is one selectable value within a variant group. An option may
// carry its own nested groups; when any nested group is selected the nested
// option's modifier replaces this option's modifier entirely.
type VariantOption struct {
	Value         string
	Label         string
	PriceModifier float64
	Image         string
	SubGroups     []VariantGroup
}

// VariantGroup is a named attribute (size, colour, finish) with its options.
type VariantGroup struct {
	AttributeCode string
	Label         string
	Options       []VariantOption
}

// Product is a catalog item with base price, optional discount and the
// variant pricing tree.
type Product struct {
	ID            string
	Slug          string
	Name          string
	Description   string
	Category      string
	Brand         string
	BasePrice     float64
	DiscountType  *DiscountType
	DiscountValue float64
	Images        []ProductImage
	VariantGroups []VariantGroup
	Specs         map[string]string
	StockCount    int
	Published     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProductSummary carries the denormalised product fields kept on cart and
// order lines.
type ProductSummary struct {
	ID        string
	Name      string
	Image     string
	Category  string
	BasePrice float64
}

// CartLine is one product+selection entry in a cart. UnitPrice is the raw
// composed price frozen at add time; it is never re-derived from the product.
type CartLine struct {
	ID        string
	ProductID string
	Product   *ProductSummary
	Selection map[string]string
	UnitPrice float64
	Quantity  int
	AddedAt   time.Time
	UpdatedAt *time.Time
}

// AppliedCoupon records the single coupon currently applied to a cart along
// with the discount computed against the cart snapshot it was validated for.
type AppliedCoupon struct {
	Code         string
	Type         DiscountType
	Discount     float64
	FreeShipping bool
	AppliedAt    time.Time
}

// CartEstimate is the settlement preview recomputed on every cart mutation.
type CartEstimate struct {
	Subtotal       float64
	CouponDiscount float64
	GST            float64
	DeliveryCharge float64
	Total          float64
}

// Cart is a user's active cart document.
type Cart struct {
	ID              string
	UserID          string
	Currency        string
	Lines           []CartLine
	Coupon          *AppliedCoupon
	DeliveryPincode *string
	Estimate        *CartEstimate
	Metadata        map[string]any
	UpdatedAt       time.Time
}

// Coupon is an admin-managed discount code.
type Coupon struct {
	ID           string
	Code         string
	Description  string
	Type         DiscountType
	Value        float64
	FreeShipping bool
	MinSubtotal  float64
	Categories   []string
	StartsAt     *time.Time
	EndsAt       *time.Time
	UsageLimit   int
	UsageCount   int
	PerUserLimit int
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CouponValidationResult reports eligibility of a code for a cart snapshot.
type CouponValidationResult struct {
	Code         string
	Eligible     bool
	Reason       string
	Type         DiscountType
	Discount     float64
	FreeShipping bool
}

// DeliveryZone is a serviceable pincode prefix with its charge schedule.
type DeliveryZone struct {
	ID            string
	PincodePrefix string
	Charge        float64
	FreeAbove     *float64
	MinDays       int
	MaxDays       int
	Active        bool
	UpdatedAt     time.Time
}

// DeliveryQuote is the resolved charge for a pincode and subtotal. Available
// distinguishes "we do not deliver there" from a quote that was never taken.
type DeliveryQuote struct {
	Pincode   string
	Available bool
	Charge    float64
	MinDays   int
	MaxDays   int
	QuotedAt  time.Time
}

// Address is a shipping destination captured at checkout.
type Address struct {
	Name    string
	Phone   string
	Line1   string
	Line2   string
	City    string
	State   string
	Pincode string
}

// OrderStatus tracks fulfilment progress.
type OrderStatus string

const (
	// OrderStatusPending is the initial state after checkout.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed means payment was acknowledged offline.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusShipped means the order left the warehouse.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered is the terminal success state.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled is the terminal failure state.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderLine is a settled cart line copied onto an order.
type OrderLine struct {
	ProductID string
	Name      string
	Image     string
	Selection map[string]string
	UnitPrice float64
	Quantity  int
	LineTotal float64
}

// OrderTotals is the persisted settlement breakdown; once written it is the
// single source of truth for the order's amounts.
type OrderTotals struct {
	Subtotal       float64
	CouponDiscount float64
	GST            float64
	DeliveryCharge float64
	Total          float64
}

// Order is a placed order.
type Order struct {
	ID              string
	Number          string
	UserID          string
	Lines           []OrderLine
	Totals          OrderTotals
	Coupon          *AppliedCoupon
	ShippingAddress Address
	PaymentMethod   string
	Status          OrderStatus
	PlacedAt        time.Time
	UpdatedAt       time.Time
}

// ReviewStatus tracks moderation state.
type ReviewStatus string

const (
	// ReviewStatusPending awaits moderation.
	ReviewStatusPending ReviewStatus = "pending"
	// ReviewStatusApproved is publicly visible.
	ReviewStatusApproved ReviewStatus = "approved"
	// ReviewStatusRejected is hidden.
	ReviewStatusRejected ReviewStatus = "rejected"
)

// Review is a customer product review.
type Review struct {
	ID        string
	ProductID string
	UserID    string
	OrderID   *string
	Rating    int
	Title     string
	Comment   string
	Status    ReviewStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WishlistItem is one saved product for a user.
type WishlistItem struct {
	ProductID string
	AddedAt   time.Time
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency check.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}
