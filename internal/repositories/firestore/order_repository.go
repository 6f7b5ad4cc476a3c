package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/nivasa-store/api/internal/domain"
	pfirestore "github.com/nivasa-store/api/internal/platform/firestore"
	"github.com/nivasa-store/api/internal/repositories"
)

const ordersCollection = "orders"

// OrderRepository persists placed orders.
type OrderRepository struct {
	base *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection)
	return &OrderRepository{base: base}, nil
}

// Insert stores a new order document, failing on ID conflict.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return errors.New("order repository: order id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, orderID)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeOrderDocument(order)); err != nil {
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

// FindByID fetches a single order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrderDocument(doc.ID, doc.Data, doc.UpdateTime), nil
}

// List returns orders newest first, optionally filtered to a user and status.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeTimeCursor(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("order repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	userID := strings.TrimSpace(filter.UserID)

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if userID != "" {
			q = q.Where("userId", "==", userID)
		}
		if filter.Status != nil {
			q = q.Where("status", "==", string(*filter.Status))
		}
		if filter.PlacedAt.From != nil {
			q = q.Where("placedAt", ">=", filter.PlacedAt.From.UTC())
		}
		if filter.PlacedAt.To != nil {
			q = q.Where("placedAt", "<=", filter.PlacedAt.To.UTC())
		}
		q = q.OrderBy("placedAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		nextToken = encodeTimeCursor(last.Data.PlacedAt, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeOrderDocument(doc.ID, doc.Data, doc.UpdateTime))
	}
	return domain.CursorPage[domain.Order]{Items: items, NextPageToken: nextToken}, nil
}

// UpdateStatus transitions the order status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, updatedAt time.Time) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}
	updates := []firestore.Update{
		{Path: "status", Value: string(status)},
		{Path: "updatedAt", Value: updatedAt.UTC()},
	}
	if _, err := r.base.Update(ctx, orderID, updates); err != nil {
		return domain.Order{}, err
	}
	return r.FindByID(ctx, orderID)
}

type orderDocument struct {
	Number          string              `firestore:"number"`
	UserID          string              `firestore:"userId"`
	Lines           []orderLineDocument `firestore:"lines"`
	Totals          estimateDocument    `firestore:"totals"`
	Coupon          *cartCouponDocument `firestore:"coupon,omitempty"`
	ShippingAddress addressDocument     `firestore:"shippingAddress"`
	PaymentMethod   string              `firestore:"paymentMethod,omitempty"`
	Status          string              `firestore:"status"`
	PlacedAt        time.Time           `firestore:"placedAt"`
	UpdatedAt       time.Time           `firestore:"updatedAt"`
}

type orderLineDocument struct {
	ProductID string            `firestore:"productId"`
	Name      string            `firestore:"name"`
	Image     string            `firestore:"image,omitempty"`
	Selection map[string]string `firestore:"selection,omitempty"`
	UnitPrice float64           `firestore:"unitPrice"`
	Quantity  int               `firestore:"quantity"`
	LineTotal float64           `firestore:"lineTotal"`
}

type addressDocument struct {
	Name    string `firestore:"name"`
	Phone   string `firestore:"phone,omitempty"`
	Line1   string `firestore:"line1"`
	Line2   string `firestore:"line2,omitempty"`
	City    string `firestore:"city"`
	State   string `firestore:"state,omitempty"`
	Pincode string `firestore:"pincode"`
}

func encodeOrderDocument(order domain.Order) orderDocument {
	doc := orderDocument{
		Number: strings.TrimSpace(order.Number),
		UserID: strings.TrimSpace(order.UserID),
		Totals: estimateDocument{
			Subtotal:       order.Totals.Subtotal,
			CouponDiscount: order.Totals.CouponDiscount,
			GST:            order.Totals.GST,
			DeliveryCharge: order.Totals.DeliveryCharge,
			Total:          order.Totals.Total,
		},
		ShippingAddress: addressDocument{
			Name:    order.ShippingAddress.Name,
			Phone:   order.ShippingAddress.Phone,
			Line1:   order.ShippingAddress.Line1,
			Line2:   order.ShippingAddress.Line2,
			City:    order.ShippingAddress.City,
			State:   order.ShippingAddress.State,
			Pincode: order.ShippingAddress.Pincode,
		},
		PaymentMethod: strings.TrimSpace(order.PaymentMethod),
		Status:        string(order.Status),
		PlacedAt:      order.PlacedAt.UTC(),
		UpdatedAt:     order.UpdatedAt.UTC(),
	}
	for _, line := range order.Lines {
		doc.Lines = append(doc.Lines, orderLineDocument{
			ProductID: line.ProductID,
			Name:      line.Name,
			Image:     line.Image,
			Selection: cloneStringMap(line.Selection),
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			LineTotal: line.LineTotal,
		})
	}
	if order.Coupon != nil {
		doc.Coupon = &cartCouponDocument{
			Code:         order.Coupon.Code,
			Type:         string(order.Coupon.Type),
			Discount:     order.Coupon.Discount,
			FreeShipping: order.Coupon.FreeShipping,
			AppliedAt:    order.Coupon.AppliedAt.UTC(),
		}
	}
	return doc
}

func decodeOrderDocument(id string, doc orderDocument, updateTime time.Time) domain.Order {
	order := domain.Order{
		ID:     id,
		Number: doc.Number,
		UserID: doc.UserID,
		Totals: domain.OrderTotals{
			Subtotal:       doc.Totals.Subtotal,
			CouponDiscount: doc.Totals.CouponDiscount,
			GST:            doc.Totals.GST,
			DeliveryCharge: doc.Totals.DeliveryCharge,
			Total:          doc.Totals.Total,
		},
		ShippingAddress: domain.Address{
			Name:    doc.ShippingAddress.Name,
			Phone:   doc.ShippingAddress.Phone,
			Line1:   doc.ShippingAddress.Line1,
			Line2:   doc.ShippingAddress.Line2,
			City:    doc.ShippingAddress.City,
			State:   doc.ShippingAddress.State,
			Pincode: doc.ShippingAddress.Pincode,
		},
		PaymentMethod: doc.PaymentMethod,
		Status:        domain.OrderStatus(doc.Status),
		PlacedAt:      doc.PlacedAt,
		UpdatedAt:     chooseTime(doc.UpdatedAt, updateTime),
	}
	for _, line := range doc.Lines {
		order.Lines = append(order.Lines, domain.OrderLine{
			ProductID: line.ProductID,
			Name:      line.Name,
			Image:     line.Image,
			Selection: cloneStringMap(line.Selection),
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			LineTotal: line.LineTotal,
		})
	}
	if doc.Coupon != nil {
		order.Coupon = &domain.AppliedCoupon{
			Code:         doc.Coupon.Code,
			Type:         domain.DiscountType(doc.Coupon.Type),
			Discount:     doc.Coupon.Discount,
			FreeShipping: doc.Coupon.FreeShipping,
			AppliedAt:    doc.Coupon.AppliedAt,
		}
	}
	return order
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)
