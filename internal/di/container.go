package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nivasa-store/api/internal/platform/cache"
	"github.com/nivasa-store/api/internal/platform/config"
	"github.com/nivasa-store/api/internal/repositories"
	"github.com/nivasa-store/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Catalog  services.CatalogService
	Coupons  services.CouponService
	Delivery services.DeliveryService
	Pricer   services.CartPricer
	Cart     services.CartService
	Checkout services.CheckoutService
	Orders   services.OrderService
	Reviews  services.ReviewService
	Wishlist services.WishlistService
	Counters services.CounterService
	System   services.SystemService
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// ContainerOption customises container construction.
type ContainerOption func(*containerConfig)

type containerConfig struct {
	deliveryCache *cache.DeliveryCache
	clock         func() time.Time
	logger        func(context.Context, string, map[string]any)
	build         services.BuildInfo
}

// WithDeliveryCache wires a shared quote cache into the delivery service.
func WithDeliveryCache(c *cache.DeliveryCache) ContainerOption {
	return func(cfg *containerConfig) {
		cfg.deliveryCache = c
	}
}

// WithClock overrides the time source used by every service.
func WithClock(clock func() time.Time) ContainerOption {
	return func(cfg *containerConfig) {
		cfg.clock = clock
	}
}

// WithServiceLogger wires a structured event logger into every service.
func WithServiceLogger(logger func(context.Context, string, map[string]any)) ContainerOption {
	return func(cfg *containerConfig) {
		cfg.logger = logger
	}
}

// WithBuildInfo records build metadata exposed through the system service.
func WithBuildInfo(build services.BuildInfo) ContainerOption {
	return func(cfg *containerConfig) {
		cfg.build = build
	}
}

// NewContainer constructs the runtime dependencies. Production wiring provides the Firestore
// registry, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, opts ...ContainerOption) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	cc := containerConfig{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&cc)
		}
	}

	svc, err := buildServices(cfg, reg, cc)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients, background workers, or caches.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(cfg config.Config, reg repositories.Registry, cc containerConfig) (Services, error) {
	var svc Services

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Repository: reg.Products(),
		Clock:      cc.clock,
		Logger:     cc.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	couponSvc, err := services.NewCouponService(services.CouponServiceDeps{
		Coupons: reg.Coupons(),
		Usage:   reg.CouponUsage(),
		Clock:   cc.clock,
		Logger:  cc.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build coupon service: %w", err)
	}
	svc.Coupons = couponSvc

	deliverySvc, err := services.NewDeliveryService(services.DeliveryServiceDeps{
		Zones:            reg.DeliveryZones(),
		Cache:            cc.deliveryCache,
		Clock:            cc.clock,
		DefaultFreeAbove: cfg.Delivery.DefaultFreeAbove,
		Logger:           cc.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build delivery service: %w", err)
	}
	svc.Delivery = deliverySvc

	pricer, err := services.NewCartPricer(services.CartPricerDeps{
		Coupons:  couponSvc,
		Delivery: deliverySvc,
		Logger:   cc.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart pricer: %w", err)
	}
	svc.Pricer = pricer

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Carts:           reg.Carts(),
		Products:        reg.Products(),
		Pricer:          pricer,
		Coupons:         couponSvc,
		Clock:           cc.clock,
		DefaultCurrency: "INR",
		Logger:          cc.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cartSvc

	counterSvc, err := services.NewCounterService(services.CounterServiceDeps{
		Repository: reg.Counters(),
		Clock:      cc.clock,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build counter service: %w", err)
	}
	svc.Counters = counterSvc

	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Carts:       reg.Carts(),
		Orders:      reg.Orders(),
		Coupons:     reg.Coupons(),
		CouponUsage: reg.CouponUsage(),
		Pricer:      pricer,
		Counters:    counterSvc,
		Clock:       cc.clock,
		Logger:      cc.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}
	svc.Checkout = checkoutSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders: reg.Orders(),
		Clock:  cc.clock,
		Logger: cc.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	reviewSvc, err := services.NewReviewService(services.ReviewServiceDeps{
		Reviews:  reg.Reviews(),
		Products: reg.Products(),
		Orders:   reg.Orders(),
		Clock:    cc.clock,
		Logger:   cc.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build review service: %w", err)
	}
	svc.Reviews = reviewSvc

	wishlistSvc, err := services.NewWishlistService(services.WishlistServiceDeps{
		Wishlists: reg.Wishlists(),
		Products:  reg.Products(),
		Clock:     cc.clock,
		Logger:    cc.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build wishlist service: %w", err)
	}
	svc.Wishlist = wishlistSvc

	if healthRepo := reg.Health(); healthRepo != nil {
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Clock:            cc.clock,
			Build:            cc.build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}
