package repositories

import (
	"context"
	"time"

	domain "github.com/nivasa-store/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Products() ProductRepository
	Carts() CartRepository
	Coupons() CouponRepository
	CouponUsage() CouponUsageRepository
	Orders() OrderRepository
	Reviews() ReviewRepository
	Wishlists() WishlistRepository
	DeliveryZones() DeliveryZoneRepository
	Counters() CounterRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProductListFilter narrows catalog listings.
type ProductListFilter struct {
	Category      string
	Brand         string
	PublishedOnly bool
	Search        string
	PriceRange    domain.RangeQuery[float64]
	Sort          domain.SortOrder
	Pagination    domain.Pagination
}

// ProductRepository persists catalog products including their variant trees.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, product domain.Product) error
	Delete(ctx context.Context, productID string) error
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	FindBySlug(ctx context.Context, slug string) (domain.Product, error)
	FindByIDs(ctx context.Context, productIDs []string) ([]domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) (domain.CursorPage[domain.Product], error)
}

// CartRepository persists per-user cart documents.
type CartRepository interface {
	Get(ctx context.Context, cartID string) (domain.Cart, error)
	GetByUser(ctx context.Context, userID string) (domain.Cart, error)
	Create(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart, expectedUpdatedAt *time.Time) (domain.Cart, error)
	Delete(ctx context.Context, cartID string) error
}

// CouponListFilter narrows admin coupon listings.
type CouponListFilter struct {
	ActiveOnly bool
	Pagination domain.Pagination
}

// CouponRepository persists discount codes.
type CouponRepository interface {
	Insert(ctx context.Context, coupon domain.Coupon) error
	Update(ctx context.Context, coupon domain.Coupon) error
	Delete(ctx context.Context, couponID string) error
	FindByID(ctx context.Context, couponID string) (domain.Coupon, error)
	FindByCode(ctx context.Context, code string) (domain.Coupon, error)
	List(ctx context.Context, filter CouponListFilter) (domain.CursorPage[domain.Coupon], error)
}

// CouponUsageRepository tracks redemption counts per coupon and per user.
type CouponUsageRepository interface {
	CountForUser(ctx context.Context, couponID, userID string) (int, error)
	RecordRedemption(ctx context.Context, couponID, userID, orderID string, redeemedAt time.Time) error
}

// OrderListFilter narrows order listings.
type OrderListFilter struct {
	UserID     string
	Status     *domain.OrderStatus
	PlacedAt   domain.RangeQuery[time.Time]
	Pagination domain.Pagination
}

// OrderRepository persists placed orders.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, updatedAt time.Time) (domain.Order, error)
}

// ReviewListFilter narrows review listings.
type ReviewListFilter struct {
	ProductID  string
	UserID     string
	Status     *domain.ReviewStatus
	Pagination domain.Pagination
}

// ReviewRepository persists product reviews.
type ReviewRepository interface {
	Insert(ctx context.Context, review domain.Review) error
	FindByID(ctx context.Context, reviewID string) (domain.Review, error)
	FindByUserAndProduct(ctx context.Context, userID, productID string) (domain.Review, error)
	List(ctx context.Context, filter ReviewListFilter) (domain.CursorPage[domain.Review], error)
	UpdateStatus(ctx context.Context, reviewID string, status domain.ReviewStatus, updatedAt time.Time) (domain.Review, error)
}

// WishlistRepository persists per-user saved products.
type WishlistRepository interface {
	List(ctx context.Context, userID string) ([]domain.WishlistItem, error)
	Add(ctx context.Context, userID string, item domain.WishlistItem) error
	Remove(ctx context.Context, userID, productID string) error
	Contains(ctx context.Context, userID, productID string) (bool, error)
}

// DeliveryZoneRepository persists the serviceable pincode table.
type DeliveryZoneRepository interface {
	Upsert(ctx context.Context, zone domain.DeliveryZone) error
	Delete(ctx context.Context, zoneID string) error
	FindForPincode(ctx context.Context, pincode string) (domain.DeliveryZone, error)
	List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.DeliveryZone], error)
}

// CounterRepository issues monotonically increasing sequence values, used for
// human-readable order numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
	Current(ctx context.Context, counterID string) (int64, error)
}

// HealthRepository aggregates dependency checks for readiness reporting.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
