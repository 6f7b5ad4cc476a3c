package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/nivasa-store/api/internal/domain"
	"github.com/nivasa-store/api/internal/pricing"
	"github.com/nivasa-store/api/internal/repositories"
)

func newTestCartService(t *testing.T, deps CartServiceDeps) CartService {
	t.Helper()
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	}
	if deps.Pricer == nil {
		deps.Pricer = &stubCartPricer{}
	}
	service, err := NewCartService(deps)
	if err != nil {
		t.Fatalf("unexpected error constructing cart service: %v", err)
	}
	return service
}

func inMemoryCartRepository() *stubCartRepository {
	store := map[string]domain.Cart{}
	return &stubCartRepository{
		getByUserFunc: func(ctx context.Context, userID string) (domain.Cart, error) {
			cart, ok := store[userID]
			if !ok {
				return domain.Cart{}, &repositoryErrorStub{notFound: true}
			}
			return cart, nil
		},
		createFunc: func(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
			store[cart.UserID] = cart
			return cart, nil
		},
		saveFunc: func(ctx context.Context, cart domain.Cart, expectedUpdatedAt *time.Time) (domain.Cart, error) {
			store[cart.UserID] = cart
			return cart, nil
		},
		deleteFunc: func(ctx context.Context, cartID string) error {
			delete(store, cartID)
			return nil
		},
	}
}

func sofaProduct() domain.Product {
	return domain.Product{
		ID:        "sofa-1",
		Name:      "Aria Sofa",
		Category:  "sofas",
		BasePrice: 1000,
		Images:    []domain.ProductImage{{URL: "https://img.example/sofa.jpg"}},
		VariantGroups: []domain.VariantGroup{
			{
				AttributeCode: "fabric",
				Options: []domain.VariantOption{
					{Value: "linen", PriceModifier: 0},
					{Value: "velvet", PriceModifier: 500},
				},
			},
		},
		StockCount: 10,
		Published:  true,
	}
}

func productRepositoryWith(products ...domain.Product) *stubProductRepository {
	byID := map[string]domain.Product{}
	for _, product := range products {
		byID[product.ID] = product
	}
	return &stubProductRepository{
		findByIDFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			product, ok := byID[productID]
			if !ok {
				return domain.Product{}, &repositoryErrorStub{notFound: true}
			}
			return product, nil
		},
	}
}

func TestCartServiceGetOrCreateCartCreatesLazily(t *testing.T) {
	carts := inMemoryCartRepository()
	var created bool
	inner := carts.createFunc
	carts.createFunc = func(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
		created = true
		return inner(ctx, cart)
	}
	service := newTestCartService(t, CartServiceDeps{
		Carts:    carts,
		Products: productRepositoryWith(),
	})

	cart, err := service.GetOrCreateCart(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatalf("expected cart to be created on first access")
	}
	if cart.UserID != "user-1" || cart.Currency != "INR" {
		t.Fatalf("unexpected cart %+v", cart)
	}
	if cart.Estimate == nil {
		t.Fatalf("expected estimate attached")
	}
}

func TestCartServiceAddItemFreezesComposedPrice(t *testing.T) {
	product := sofaProduct()
	product.DiscountType = discountTypePtr(domain.DiscountTypePercentage)
	product.DiscountValue = 10

	service := newTestCartService(t, CartServiceDeps{
		Carts:    inMemoryCartRepository(),
		Products: productRepositoryWith(product),
	})

	cart, err := service.AddItem(context.Background(), AddCartItemCommand{
		UserID:    "user-1",
		ProductID: "sofa-1",
		Selection: map[string]string{"fabric": "velvet"},
		Quantity:  1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cart.Lines) != 1 {
		t.Fatalf("expected one line, got %d", len(cart.Lines))
	}
	// (1000 + 500) discounted 10%.
	if cart.Lines[0].UnitPrice != 1350 {
		t.Fatalf("expected frozen unit price 1350, got %v", cart.Lines[0].UnitPrice)
	}
	if cart.Lines[0].Product == nil || cart.Lines[0].Product.Name != "Aria Sofa" {
		t.Fatalf("expected product summary on line, got %+v", cart.Lines[0].Product)
	}
}

func TestCartServiceAddItemNestedOptionOverridesParentModifier(t *testing.T) {
	product := domain.Product{
		ID:        "table-1",
		Name:      "Noor Table",
		Category:  "tables",
		BasePrice: 10000,
		VariantGroups: []domain.VariantGroup{
			{
				AttributeCode: "wood",
				Options: []domain.VariantOption{
					{
						Value:         "oak",
						PriceModifier: 500,
						SubGroups: []domain.VariantGroup{
							{
								AttributeCode: "finish",
								Options: []domain.VariantOption{
									{Value: "matte", PriceModifier: 200},
								},
							},
						},
					},
				},
			},
		},
		StockCount: 3,
		Published:  true,
	}
	service := newTestCartService(t, CartServiceDeps{
		Carts:    inMemoryCartRepository(),
		Products: productRepositoryWith(product),
	})

	cart, err := service.AddItem(context.Background(), AddCartItemCommand{
		UserID:    "user-1",
		ProductID: "table-1",
		Selection: map[string]string{"wood": "oak", "finish": "matte"},
		Quantity:  1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Child selection replaces the parent's 500 with 200.
	if cart.Lines[0].UnitPrice != 10200 {
		t.Fatalf("expected unit price 10200, got %v", cart.Lines[0].UnitPrice)
	}
}

func TestCartServiceAddItemMergesSameSelection(t *testing.T) {
	product := sofaProduct()
	products := productRepositoryWith(product)
	carts := inMemoryCartRepository()
	service := newTestCartService(t, CartServiceDeps{Carts: carts, Products: products})

	cmd := AddCartItemCommand{
		UserID:    "user-1",
		ProductID: "sofa-1",
		Selection: map[string]string{"fabric": "velvet"},
		Quantity:  2,
	}
	if _, err := service.AddItem(context.Background(), cmd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The catalog price moves between the two adds; the frozen line price
	// must not.
	repriced := product
	repriced.BasePrice = 2000
	*products = *productRepositoryWith(repriced)

	cmd.Quantity = 3
	cart, err := service.AddItem(context.Background(), cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cart.Lines) != 1 {
		t.Fatalf("expected merged line, got %d lines", len(cart.Lines))
	}
	if cart.Lines[0].Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %d", cart.Lines[0].Quantity)
	}
	if cart.Lines[0].UnitPrice != 1500 {
		t.Fatalf("expected original frozen price 1500, got %v", cart.Lines[0].UnitPrice)
	}
}

func TestCartServiceAddItemDistinctSelectionAddsLine(t *testing.T) {
	service := newTestCartService(t, CartServiceDeps{
		Carts:    inMemoryCartRepository(),
		Products: productRepositoryWith(sofaProduct()),
	})

	if _, err := service.AddItem(context.Background(), AddCartItemCommand{
		UserID: "user-1", ProductID: "sofa-1",
		Selection: map[string]string{"fabric": "linen"}, Quantity: 1,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cart, err := service.AddItem(context.Background(), AddCartItemCommand{
		UserID: "user-1", ProductID: "sofa-1",
		Selection: map[string]string{"fabric": "velvet"}, Quantity: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cart.Lines) != 2 {
		t.Fatalf("expected two distinct lines, got %d", len(cart.Lines))
	}
}

func TestCartServiceAddItemQuantityBounds(t *testing.T) {
	service := newTestCartService(t, CartServiceDeps{
		Carts:    inMemoryCartRepository(),
		Products: productRepositoryWith(sofaProduct()),
	})

	_, err := service.AddItem(context.Background(), AddCartItemCommand{
		UserID: "user-1", ProductID: "sofa-1", Quantity: 0,
	})
	if !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected ErrCartInvalidInput for zero quantity, got %v", err)
	}

	_, err = service.AddItem(context.Background(), AddCartItemCommand{
		UserID: "user-1", ProductID: "sofa-1", Quantity: maxCartLineQuantity + 1,
	})
	if !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected ErrCartInvalidInput above max quantity, got %v", err)
	}
}

func TestCartServiceAddItemRejectsUnpublishedProduct(t *testing.T) {
	product := sofaProduct()
	product.Published = false
	service := newTestCartService(t, CartServiceDeps{
		Carts:    inMemoryCartRepository(),
		Products: productRepositoryWith(product),
	})

	_, err := service.AddItem(context.Background(), AddCartItemCommand{
		UserID: "user-1", ProductID: "sofa-1", Quantity: 1,
	})
	if !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected ErrCartInvalidInput, got %v", err)
	}
}

func TestCartServiceAddItemRejectsOverOrderingStock(t *testing.T) {
	product := sofaProduct()
	product.StockCount = 2
	service := newTestCartService(t, CartServiceDeps{
		Carts:    inMemoryCartRepository(),
		Products: productRepositoryWith(product),
	})

	_, err := service.AddItem(context.Background(), AddCartItemCommand{
		UserID: "user-1", ProductID: "sofa-1", Quantity: 3,
	})
	if !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected ErrCartInvalidInput, got %v", err)
	}
}

func TestCartServiceUpdateItemQuantity(t *testing.T) {
	service := newTestCartService(t, CartServiceDeps{
		Carts:    inMemoryCartRepository(),
		Products: productRepositoryWith(sofaProduct()),
	})

	cart, err := service.AddItem(context.Background(), AddCartItemCommand{
		UserID: "user-1", ProductID: "sofa-1", Quantity: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := service.UpdateItemQuantity(context.Background(), UpdateCartItemCommand{
		UserID: "user-1", LineID: cart.Lines[0].ID, Quantity: 4,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Lines[0].Quantity != 4 {
		t.Fatalf("expected quantity 4, got %d", updated.Lines[0].Quantity)
	}

	_, err = service.UpdateItemQuantity(context.Background(), UpdateCartItemCommand{
		UserID: "user-1", LineID: "missing-line", Quantity: 1,
	})
	if !errors.Is(err, ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound for unknown line, got %v", err)
	}
}

func TestCartServiceSetDeliveryPincode(t *testing.T) {
	service := newTestCartService(t, CartServiceDeps{
		Carts:    inMemoryCartRepository(),
		Products: productRepositoryWith(),
	})

	cart, err := service.SetDeliveryPincode(context.Background(), SetDeliveryPincodeCommand{
		UserID: "user-1", Pincode: "560001",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.DeliveryPincode == nil || *cart.DeliveryPincode != "560001" {
		t.Fatalf("expected stored pincode, got %v", cart.DeliveryPincode)
	}

	cart, err = service.SetDeliveryPincode(context.Background(), SetDeliveryPincodeCommand{
		UserID: "user-1", Pincode: "5600",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.DeliveryPincode != nil {
		t.Fatalf("partial pincode must clear the stored value, got %v", *cart.DeliveryPincode)
	}

	_, err = service.SetDeliveryPincode(context.Background(), SetDeliveryPincodeCommand{
		UserID: "user-1", Pincode: "56wx01",
	})
	if !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected ErrCartInvalidInput for non-numeric pincode, got %v", err)
	}
}

func TestCartServiceApplyCouponRejectedPersistsCouponlessCart(t *testing.T) {
	carts := inMemoryCartRepository()
	coupons := &stubCouponService{
		validateFunc: func(ctx context.Context, cmd ValidateCouponCommand) (CouponValidationResult, error) {
			return CouponValidationResult{Code: cmd.Code, Eligible: false, Reason: CouponReasonMinSubtotal}, nil
		},
	}
	service := newTestCartService(t, CartServiceDeps{
		Carts:    carts,
		Products: productRepositoryWith(sofaProduct()),
		Coupons:  coupons,
	})

	if _, err := service.AddItem(context.Background(), AddCartItemCommand{
		UserID: "user-1", ProductID: "sofa-1", Quantity: 1,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := service.ApplyCoupon(context.Background(), ApplyCouponCommand{UserID: "user-1", Code: "BIG50"})
	if !errors.Is(err, ErrCartCouponRejected) {
		t.Fatalf("expected ErrCartCouponRejected, got %v", err)
	}

	cart, err := service.GetOrCreateCart(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.Coupon != nil {
		t.Fatalf("rejected coupon must not stick, got %+v", cart.Coupon)
	}
}

func TestCartServiceApplyCouponReplacesExisting(t *testing.T) {
	coupons := &stubCouponService{
		validateFunc: func(ctx context.Context, cmd ValidateCouponCommand) (CouponValidationResult, error) {
			return CouponValidationResult{
				Code: cmd.Code, Eligible: true,
				Type: domain.DiscountTypePercentage, Discount: 135,
			}, nil
		},
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	service := newTestCartService(t, CartServiceDeps{
		Carts:    inMemoryCartRepository(),
		Products: productRepositoryWith(sofaProduct()),
		Coupons:  coupons,
		Clock:    func() time.Time { return now },
	})

	if _, err := service.AddItem(context.Background(), AddCartItemCommand{
		UserID: "user-1", ProductID: "sofa-1", Quantity: 1,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := service.ApplyCoupon(context.Background(), ApplyCouponCommand{UserID: "user-1", Code: "old10"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cart, err := service.ApplyCoupon(context.Background(), ApplyCouponCommand{UserID: "user-1", Code: "new10"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.Coupon == nil || cart.Coupon.Code != "NEW10" {
		t.Fatalf("expected replacement coupon NEW10, got %+v", cart.Coupon)
	}
	if !cart.Coupon.AppliedAt.Equal(now) {
		t.Fatalf("expected applied at %v, got %v", now, cart.Coupon.AppliedAt)
	}
}

func TestCartServiceRemoveCoupon(t *testing.T) {
	coupons := &stubCouponService{
		validateFunc: func(ctx context.Context, cmd ValidateCouponCommand) (CouponValidationResult, error) {
			return CouponValidationResult{Code: cmd.Code, Eligible: true, Type: domain.DiscountTypeFixed, Discount: 100}, nil
		},
	}
	service := newTestCartService(t, CartServiceDeps{
		Carts:    inMemoryCartRepository(),
		Products: productRepositoryWith(sofaProduct()),
		Coupons:  coupons,
	})

	if _, err := service.AddItem(context.Background(), AddCartItemCommand{
		UserID: "user-1", ProductID: "sofa-1", Quantity: 1,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := service.ApplyCoupon(context.Background(), ApplyCouponCommand{UserID: "user-1", Code: "FLAT100"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cart, err := service.RemoveCoupon(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.Coupon != nil {
		t.Fatalf("expected coupon removed, got %+v", cart.Coupon)
	}
}

func TestCartServiceGetOrCreateCartClearsStaleCoupon(t *testing.T) {
	carts := inMemoryCartRepository()
	pincode := "560001"
	seed := domain.Cart{
		ID:       "user-1",
		UserID:   "user-1",
		Currency: "INR",
		Lines: []domain.CartLine{
			{ID: "line-1", ProductID: "sofa-1", UnitPrice: 1350, Quantity: 1, AddedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		},
		Coupon:          &domain.AppliedCoupon{Code: "GONE10", Type: domain.DiscountTypePercentage, Discount: 135},
		DeliveryPincode: &pincode,
		UpdatedAt:       time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	if _, err := carts.Create(context.Background(), seed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pricer := &stubCartPricer{
		calculateFunc: func(ctx context.Context, cmd PriceCartCommand) (PriceCartResult, error) {
			estimate := pricing.Settle(pricing.Subtotal(cmd.Cart.Lines), 0, 0)
			return PriceCartResult{
				Estimate:      domain.CartEstimate{Subtotal: estimate.Subtotal, GST: estimate.GST, Total: estimate.Total},
				CouponCleared: true,
			}, nil
		},
	}
	service := newTestCartService(t, CartServiceDeps{
		Carts:    carts,
		Products: productRepositoryWith(),
		Pricer:   pricer,
	})

	cart, err := service.GetOrCreateCart(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.Coupon != nil {
		t.Fatalf("expected stale coupon cleared, got %+v", cart.Coupon)
	}

	persisted, err := carts.Get(context.Background(), "user-1")
	if err == nil && persisted.Coupon != nil {
		t.Fatalf("expected persisted cart couponless, got %+v", persisted.Coupon)
	}
}

func TestCartServiceClearCart(t *testing.T) {
	carts := inMemoryCartRepository()
	service := newTestCartService(t, CartServiceDeps{
		Carts:    carts,
		Products: productRepositoryWith(sofaProduct()),
	})

	if _, err := service.AddItem(context.Background(), AddCartItemCommand{
		UserID: "user-1", ProductID: "sofa-1", Quantity: 1,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := service.ClearCart(context.Background(), "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Clearing an already absent cart is not an error.
	if err := service.ClearCart(context.Background(), "user-1"); err != nil {
		t.Fatalf("unexpected error clearing empty cart: %v", err)
	}
}

func discountTypePtr(v domain.DiscountType) *domain.DiscountType {
	return &v
}

type stubCartRepository struct {
	getFunc       func(ctx context.Context, cartID string) (domain.Cart, error)
	getByUserFunc func(ctx context.Context, userID string) (domain.Cart, error)
	createFunc    func(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	saveFunc      func(ctx context.Context, cart domain.Cart, expectedUpdatedAt *time.Time) (domain.Cart, error)
	deleteFunc    func(ctx context.Context, cartID string) error
}

func (s *stubCartRepository) Get(ctx context.Context, cartID string) (domain.Cart, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, cartID)
	}
	if s.getByUserFunc != nil {
		return s.getByUserFunc(ctx, cartID)
	}
	return domain.Cart{}, &repositoryErrorStub{notFound: true}
}

func (s *stubCartRepository) GetByUser(ctx context.Context, userID string) (domain.Cart, error) {
	if s.getByUserFunc != nil {
		return s.getByUserFunc(ctx, userID)
	}
	return domain.Cart{}, &repositoryErrorStub{notFound: true}
}

func (s *stubCartRepository) Create(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, cart)
	}
	return cart, nil
}

func (s *stubCartRepository) Save(ctx context.Context, cart domain.Cart, expectedUpdatedAt *time.Time) (domain.Cart, error) {
	if s.saveFunc != nil {
		return s.saveFunc(ctx, cart, expectedUpdatedAt)
	}
	return cart, nil
}

func (s *stubCartRepository) Delete(ctx context.Context, cartID string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, cartID)
	}
	return nil
}

type stubProductRepository struct {
	insertFunc    func(ctx context.Context, product domain.Product) error
	updateFunc    func(ctx context.Context, product domain.Product) error
	deleteFunc    func(ctx context.Context, productID string) error
	findByIDFunc  func(ctx context.Context, productID string) (domain.Product, error)
	findBySlug    func(ctx context.Context, slug string) (domain.Product, error)
	findByIDsFunc func(ctx context.Context, productIDs []string) ([]domain.Product, error)
	listFunc      func(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error)
}

func (s *stubProductRepository) Insert(ctx context.Context, product domain.Product) error {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, product)
	}
	return nil
}

func (s *stubProductRepository) Update(ctx context.Context, product domain.Product) error {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, product)
	}
	return nil
}

func (s *stubProductRepository) Delete(ctx context.Context, productID string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, productID)
	}
	return nil
}

func (s *stubProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if s.findByIDFunc != nil {
		return s.findByIDFunc(ctx, productID)
	}
	return domain.Product{}, &repositoryErrorStub{notFound: true}
}

func (s *stubProductRepository) FindBySlug(ctx context.Context, slug string) (domain.Product, error) {
	if s.findBySlug != nil {
		return s.findBySlug(ctx, slug)
	}
	return domain.Product{}, &repositoryErrorStub{notFound: true}
}

func (s *stubProductRepository) FindByIDs(ctx context.Context, productIDs []string) ([]domain.Product, error) {
	if s.findByIDsFunc != nil {
		return s.findByIDsFunc(ctx, productIDs)
	}
	return nil, nil
}

func (s *stubProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, filter)
	}
	return domain.CursorPage[domain.Product]{}, nil
}

type stubCartPricer struct {
	calculateFunc func(ctx context.Context, cmd PriceCartCommand) (PriceCartResult, error)
}

func (s *stubCartPricer) Calculate(ctx context.Context, cmd PriceCartCommand) (PriceCartResult, error) {
	if s.calculateFunc != nil {
		return s.calculateFunc(ctx, cmd)
	}
	var discount float64
	if cmd.Cart.Coupon != nil {
		discount = cmd.Cart.Coupon.Discount
	}
	totals := pricing.Settle(pricing.Subtotal(cmd.Cart.Lines), discount, 0)
	result := PriceCartResult{
		Estimate: domain.CartEstimate{
			Subtotal:       totals.Subtotal,
			CouponDiscount: totals.CouponDiscount,
			GST:            totals.GST,
			DeliveryCharge: totals.DeliveryCharge,
			Total:          totals.Total,
		},
	}
	if cmd.Cart.Coupon != nil {
		coupon := *cmd.Cart.Coupon
		result.Coupon = &coupon
	}
	return result, nil
}
