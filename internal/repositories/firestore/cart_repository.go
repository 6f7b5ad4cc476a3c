package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/nivasa-store/api/internal/domain"
	pfirestore "github.com/nivasa-store/api/internal/platform/firestore"
	"github.com/nivasa-store/api/internal/repositories"
)

const cartsCollection = "carts"

// CartRepository persists cart documents within Firestore. The user ID doubles
// as the document identifier so each user holds at most one active cart.
type CartRepository struct {
	base *pfirestore.BaseRepository[cartDocument]
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[cartDocument](provider, cartsCollection)
	return &CartRepository{base: base}, nil
}

// Get loads a cart by document ID.
func (r *CartRepository) Get(ctx context.Context, cartID string) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return domain.Cart{}, errors.New("cart repository: cart id is required")
	}
	doc, err := r.base.Get(ctx, cartID)
	if err != nil {
		return domain.Cart{}, err
	}
	return decodeCartDocument(doc.ID, doc.Data, doc.UpdateTime), nil
}

// GetByUser loads the active cart for a user.
func (r *CartRepository) GetByUser(ctx context.Context, userID string) (domain.Cart, error) {
	return r.Get(ctx, strings.TrimSpace(userID))
}

// Create stores a fresh cart document, failing on conflict.
func (r *CartRepository) Create(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	cartID := cartDocID(cart)
	if cartID == "" {
		return domain.Cart{}, errors.New("cart repository: cart id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, cartID)
	if err != nil {
		return domain.Cart{}, err
	}
	doc := encodeCartDocument(cart)
	result, err := docRef.Create(ctx, doc)
	if err != nil {
		return domain.Cart{}, pfirestore.WrapError("carts.create", err)
	}
	saved := decodeCartDocument(cartID, doc, result.UpdateTime)
	return saved, nil
}

// Save upserts the cart document. A non-nil expectedUpdatedAt enforces
// optimistic concurrency against the document's last update time.
func (r *CartRepository) Save(ctx context.Context, cart domain.Cart, expectedUpdatedAt *time.Time) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	cartID := cartDocID(cart)
	if cartID == "" {
		return domain.Cart{}, errors.New("cart repository: cart id is required")
	}

	doc := encodeCartDocument(cart)

	if expectedUpdatedAt == nil || expectedUpdatedAt.IsZero() {
		result, err := r.base.Set(ctx, cartID, doc)
		if err != nil {
			return domain.Cart{}, err
		}
		return decodeCartDocument(cartID, doc, result.UpdateTime), nil
	}

	updates := []firestore.Update{
		{Path: "userId", Value: doc.UserID},
		{Path: "currency", Value: doc.Currency},
		{Path: "updatedAt", Value: doc.UpdatedAt},
	}
	appendOptional := func(path string, empty bool, value any) {
		if empty {
			updates = append(updates, firestore.Update{Path: path, Value: firestore.Delete})
		} else {
			updates = append(updates, firestore.Update{Path: path, Value: value})
		}
	}
	appendOptional("lines", len(doc.Lines) == 0, doc.Lines)
	appendOptional("coupon", doc.Coupon == nil, doc.Coupon)
	appendOptional("deliveryPincode", doc.DeliveryPincode == "", doc.DeliveryPincode)
	appendOptional("estimate", doc.Estimate == nil, doc.Estimate)
	appendOptional("metadata", len(doc.Metadata) == 0, doc.Metadata)

	result, err := r.base.Update(ctx, cartID, updates, firestore.LastUpdateTime(expectedUpdatedAt.UTC()))
	if err != nil {
		return domain.Cart{}, err
	}
	return decodeCartDocument(cartID, doc, result.UpdateTime), nil
}

// Delete removes the cart document entirely.
func (r *CartRepository) Delete(ctx context.Context, cartID string) error {
	if r == nil || r.base == nil {
		return errors.New("cart repository not initialised")
	}
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return errors.New("cart repository: cart id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, cartID)
	if err != nil {
		return err
	}
	if _, err := docRef.Delete(ctx); err != nil {
		return pfirestore.WrapError("carts.delete", err)
	}
	return nil
}

func cartDocID(cart domain.Cart) string {
	if id := strings.TrimSpace(cart.ID); id != "" {
		return id
	}
	return strings.TrimSpace(cart.UserID)
}

type cartDocument struct {
	UserID          string              `firestore:"userId"`
	Currency        string              `firestore:"currency"`
	Lines           []cartLineDocument  `firestore:"lines,omitempty"`
	Coupon          *cartCouponDocument `firestore:"coupon,omitempty"`
	DeliveryPincode string              `firestore:"deliveryPincode,omitempty"`
	Estimate        *estimateDocument   `firestore:"estimate,omitempty"`
	Metadata        map[string]any      `firestore:"metadata,omitempty"`
	UpdatedAt       time.Time           `firestore:"updatedAt"`
}

type cartLineDocument struct {
	ID        string            `firestore:"id"`
	ProductID string            `firestore:"productId"`
	Name      string            `firestore:"name,omitempty"`
	Image     string            `firestore:"image,omitempty"`
	Category  string            `firestore:"category,omitempty"`
	BasePrice float64           `firestore:"basePrice,omitempty"`
	Selection map[string]string `firestore:"selection,omitempty"`
	UnitPrice float64           `firestore:"unitPrice"`
	Quantity  int               `firestore:"quantity"`
	AddedAt   time.Time         `firestore:"addedAt"`
	UpdatedAt *time.Time        `firestore:"updatedAt,omitempty"`
}

type cartCouponDocument struct {
	Code         string    `firestore:"code"`
	Type         string    `firestore:"type"`
	Discount     float64   `firestore:"discount"`
	FreeShipping bool      `firestore:"freeShipping"`
	AppliedAt    time.Time `firestore:"appliedAt"`
}

type estimateDocument struct {
	Subtotal       float64 `firestore:"subtotal"`
	CouponDiscount float64 `firestore:"couponDiscount"`
	GST            float64 `firestore:"gst"`
	DeliveryCharge float64 `firestore:"deliveryCharge"`
	Total          float64 `firestore:"total"`
}

func encodeCartDocument(cart domain.Cart) cartDocument {
	doc := cartDocument{
		UserID:    strings.TrimSpace(cart.UserID),
		Currency:  strings.ToUpper(strings.TrimSpace(cart.Currency)),
		Metadata:  cloneAnyMap(cart.Metadata),
		UpdatedAt: cart.UpdatedAt.UTC(),
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}
	if cart.DeliveryPincode != nil {
		doc.DeliveryPincode = strings.TrimSpace(*cart.DeliveryPincode)
	}
	for _, line := range cart.Lines {
		lineDoc := cartLineDocument{
			ID:        line.ID,
			ProductID: line.ProductID,
			Selection: cloneStringMap(line.Selection),
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			AddedAt:   line.AddedAt.UTC(),
			UpdatedAt: normalizeTimePointer(line.UpdatedAt),
		}
		if line.Product != nil {
			lineDoc.Name = line.Product.Name
			lineDoc.Image = line.Product.Image
			lineDoc.Category = line.Product.Category
			lineDoc.BasePrice = line.Product.BasePrice
		}
		doc.Lines = append(doc.Lines, lineDoc)
	}
	if cart.Coupon != nil {
		doc.Coupon = &cartCouponDocument{
			Code:         cart.Coupon.Code,
			Type:         string(cart.Coupon.Type),
			Discount:     cart.Coupon.Discount,
			FreeShipping: cart.Coupon.FreeShipping,
			AppliedAt:    cart.Coupon.AppliedAt.UTC(),
		}
	}
	if cart.Estimate != nil {
		doc.Estimate = &estimateDocument{
			Subtotal:       cart.Estimate.Subtotal,
			CouponDiscount: cart.Estimate.CouponDiscount,
			GST:            cart.Estimate.GST,
			DeliveryCharge: cart.Estimate.DeliveryCharge,
			Total:          cart.Estimate.Total,
		}
	}
	return doc
}

func decodeCartDocument(id string, doc cartDocument, updateTime time.Time) domain.Cart {
	cart := domain.Cart{
		ID:        id,
		UserID:    doc.UserID,
		Currency:  doc.Currency,
		Metadata:  cloneAnyMap(doc.Metadata),
		UpdatedAt: chooseTime(updateTime, doc.UpdatedAt),
	}
	if cart.UserID == "" {
		cart.UserID = id
	}
	if doc.DeliveryPincode != "" {
		pincode := doc.DeliveryPincode
		cart.DeliveryPincode = &pincode
	}
	for _, line := range doc.Lines {
		decoded := domain.CartLine{
			ID:        line.ID,
			ProductID: line.ProductID,
			Selection: cloneStringMap(line.Selection),
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			AddedAt:   line.AddedAt,
			UpdatedAt: normalizeTimePointer(line.UpdatedAt),
		}
		if line.Name != "" || line.Image != "" || line.BasePrice != 0 {
			decoded.Product = &domain.ProductSummary{
				ID:        line.ProductID,
				Name:      line.Name,
				Image:     line.Image,
				Category:  line.Category,
				BasePrice: line.BasePrice,
			}
		}
		cart.Lines = append(cart.Lines, decoded)
	}
	if doc.Coupon != nil {
		cart.Coupon = &domain.AppliedCoupon{
			Code:         doc.Coupon.Code,
			Type:         domain.DiscountType(doc.Coupon.Type),
			Discount:     doc.Coupon.Discount,
			FreeShipping: doc.Coupon.FreeShipping,
			AppliedAt:    doc.Coupon.AppliedAt,
		}
	}
	if doc.Estimate != nil {
		cart.Estimate = &domain.CartEstimate{
			Subtotal:       doc.Estimate.Subtotal,
			CouponDiscount: doc.Estimate.CouponDiscount,
			GST:            doc.Estimate.GST,
			DeliveryCharge: doc.Estimate.DeliveryCharge,
			Total:          doc.Estimate.Total,
		}
	}
	return cart
}

var _ repositories.CartRepository = (*CartRepository)(nil)
