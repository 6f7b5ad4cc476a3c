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

const couponsCollection = "coupons"

// CouponRepository persists discount codes.
type CouponRepository struct {
	base *pfirestore.BaseRepository[couponDocument]
}

// NewCouponRepository constructs a Firestore-backed coupon repository.
func NewCouponRepository(provider *pfirestore.Provider) (*CouponRepository, error) {
	if provider == nil {
		return nil, errors.New("coupon repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[couponDocument](provider, couponsCollection)
	return &CouponRepository{base: base}, nil
}

// Insert stores a new coupon document.
func (r *CouponRepository) Insert(ctx context.Context, coupon domain.Coupon) error {
	if r == nil || r.base == nil {
		return errors.New("coupon repository not initialised")
	}
	couponID := strings.TrimSpace(coupon.ID)
	if couponID == "" {
		return errors.New("coupon repository: coupon id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, couponID)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeCouponDocument(coupon)); err != nil {
		return pfirestore.WrapError("coupons.insert", err)
	}
	return nil
}

// Update replaces the persisted coupon state.
func (r *CouponRepository) Update(ctx context.Context, coupon domain.Coupon) error {
	if r == nil || r.base == nil {
		return errors.New("coupon repository not initialised")
	}
	couponID := strings.TrimSpace(coupon.ID)
	if couponID == "" {
		return errors.New("coupon repository: coupon id is required")
	}
	if _, err := r.base.Set(ctx, couponID, encodeCouponDocument(coupon)); err != nil {
		return err
	}
	return nil
}

// Delete removes the coupon document.
func (r *CouponRepository) Delete(ctx context.Context, couponID string) error {
	if r == nil || r.base == nil {
		return errors.New("coupon repository not initialised")
	}
	couponID = strings.TrimSpace(couponID)
	if couponID == "" {
		return errors.New("coupon repository: coupon id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, couponID)
	if err != nil {
		return err
	}
	if _, err := docRef.Delete(ctx); err != nil {
		return pfirestore.WrapError("coupons.delete", err)
	}
	return nil
}

// FindByID fetches a coupon by document ID.
func (r *CouponRepository) FindByID(ctx context.Context, couponID string) (domain.Coupon, error) {
	if r == nil || r.base == nil {
		return domain.Coupon{}, errors.New("coupon repository not initialised")
	}
	couponID = strings.TrimSpace(couponID)
	if couponID == "" {
		return domain.Coupon{}, errors.New("coupon repository: coupon id is required")
	}
	doc, err := r.base.Get(ctx, couponID)
	if err != nil {
		return domain.Coupon{}, err
	}
	return decodeCouponDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// FindByCode resolves a coupon by its normalised code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (domain.Coupon, error) {
	if r == nil || r.base == nil {
		return domain.Coupon{}, errors.New("coupon repository not initialised")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return domain.Coupon{}, errors.New("coupon repository: code is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("code", "==", code).Limit(1)
	})
	if err != nil {
		return domain.Coupon{}, err
	}
	if len(docs) == 0 {
		return domain.Coupon{}, pfirestore.NewNotFoundError("coupons.find_by_code", fmt.Errorf("coupon %q not found", code))
	}
	doc := docs[0]
	return decodeCouponDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// List returns coupons ordered by newest first.
func (r *CouponRepository) List(ctx context.Context, filter repositories.CouponListFilter) (domain.CursorPage[domain.Coupon], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Coupon]{}, errors.New("coupon repository not initialised")
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
			return domain.CursorPage[domain.Coupon]{}, fmt.Errorf("coupon repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.ActiveOnly {
			q = q.Where("active", "==", true)
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Coupon]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		nextToken = encodeTimeCursor(chooseTime(last.Data.CreatedAt, last.CreateTime), last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Coupon, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeCouponDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime))
	}
	return domain.CursorPage[domain.Coupon]{Items: items, NextPageToken: nextToken}, nil
}


type couponDocument struct {
	Code         string     `firestore:"code"`
	Description  string     `firestore:"description,omitempty"`
	Type         string     `firestore:"type"`
	Value        float64    `firestore:"value"`
	FreeShipping bool       `firestore:"freeShipping"`
	MinSubtotal  float64    `firestore:"minSubtotal,omitempty"`
	Categories   []string   `firestore:"categories,omitempty"`
	StartsAt     *time.Time `firestore:"startsAt,omitempty"`
	EndsAt       *time.Time `firestore:"endsAt,omitempty"`
	UsageLimit   int        `firestore:"usageLimit,omitempty"`
	UsageCount   int        `firestore:"usageCount"`
	PerUserLimit int        `firestore:"perUserLimit,omitempty"`
	Active       bool       `firestore:"active"`
	CreatedAt    time.Time  `firestore:"createdAt"`
	UpdatedAt    time.Time  `firestore:"updatedAt"`
}

func encodeCouponDocument(coupon domain.Coupon) couponDocument {
	categories := make([]string, 0, len(coupon.Categories))
	for _, category := range coupon.Categories {
		trimmed := strings.ToLower(strings.TrimSpace(category))
		if trimmed != "" {
			categories = append(categories, trimmed)
		}
	}
	if len(categories) == 0 {
		categories = nil
	}
	return couponDocument{
		Code:         strings.ToUpper(strings.TrimSpace(coupon.Code)),
		Description:  strings.TrimSpace(coupon.Description),
		Type:         string(coupon.Type),
		Value:        coupon.Value,
		FreeShipping: coupon.FreeShipping,
		MinSubtotal:  coupon.MinSubtotal,
		Categories:   categories,
		StartsAt:     normalizeTimePointer(coupon.StartsAt),
		EndsAt:       normalizeTimePointer(coupon.EndsAt),
		UsageLimit:   coupon.UsageLimit,
		UsageCount:   coupon.UsageCount,
		PerUserLimit: coupon.PerUserLimit,
		Active:       coupon.Active,
		CreatedAt:    coupon.CreatedAt.UTC(),
		UpdatedAt:    coupon.UpdatedAt.UTC(),
	}
}

func decodeCouponDocument(id string, doc couponDocument, createTime, updateTime time.Time) domain.Coupon {
	return domain.Coupon{
		ID:           id,
		Code:         doc.Code,
		Description:  doc.Description,
		Type:         domain.DiscountType(doc.Type),
		Value:        doc.Value,
		FreeShipping: doc.FreeShipping,
		MinSubtotal:  doc.MinSubtotal,
		Categories:   doc.Categories,
		StartsAt:     normalizeTimePointer(doc.StartsAt),
		EndsAt:       normalizeTimePointer(doc.EndsAt),
		UsageLimit:   doc.UsageLimit,
		UsageCount:   doc.UsageCount,
		PerUserLimit: doc.PerUserLimit,
		Active:       doc.Active,
		CreatedAt:    chooseTime(doc.CreatedAt, createTime),
		UpdatedAt:    chooseTime(doc.UpdatedAt, updateTime),
	}
}

var _ repositories.CouponRepository = (*CouponRepository)(nil)
