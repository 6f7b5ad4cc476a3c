package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/nivasa-store/api/internal/platform/firestore"
	"github.com/nivasa-store/api/internal/repositories"
)

const couponUsageCollection = "couponUsage"

// CouponUsageRepository records redemptions so usage limits survive restarts.
// Documents are keyed by coupon, user and order which also makes redemption
// recording idempotent per order.
type CouponUsageRepository struct {
	base *pfirestore.BaseRepository[couponUsageDocument]
}

// NewCouponUsageRepository constructs a Firestore-backed usage repository.
func NewCouponUsageRepository(provider *pfirestore.Provider) (*CouponUsageRepository, error) {
	if provider == nil {
		return nil, errors.New("coupon usage repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[couponUsageDocument](provider, couponUsageCollection)
	return &CouponUsageRepository{base: base}, nil
}

// CountForUser counts recorded redemptions of a coupon by a user.
func (r *CouponUsageRepository) CountForUser(ctx context.Context, couponID, userID string) (int, error) {
	if r == nil || r.base == nil {
		return 0, errors.New("coupon usage repository not initialised")
	}
	couponID = strings.TrimSpace(couponID)
	userID = strings.TrimSpace(userID)
	if couponID == "" || userID == "" {
		return 0, errors.New("coupon usage repository: coupon id and user id are required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("couponId", "==", couponID).Where("userId", "==", userID)
	})
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// RecordRedemption stores a redemption entry for the given order.
func (r *CouponUsageRepository) RecordRedemption(ctx context.Context, couponID, userID, orderID string, redeemedAt time.Time) error {
	if r == nil || r.base == nil {
		return errors.New("coupon usage repository not initialised")
	}
	couponID = strings.TrimSpace(couponID)
	userID = strings.TrimSpace(userID)
	orderID = strings.TrimSpace(orderID)
	if couponID == "" || userID == "" || orderID == "" {
		return errors.New("coupon usage repository: coupon id, user id and order id are required")
	}

	docID := fmt.Sprintf("%s_%s_%s", couponID, userID, orderID)
	doc := couponUsageDocument{
		CouponID:   couponID,
		UserID:     userID,
		OrderID:    orderID,
		RedeemedAt: redeemedAt.UTC(),
	}
	if _, err := r.base.Set(ctx, docID, doc); err != nil {
		return pfirestore.WrapError("coupon_usage.record", err)
	}
	return nil
}

type couponUsageDocument struct {
	CouponID   string    `firestore:"couponId"`
	UserID     string    `firestore:"userId"`
	OrderID    string    `firestore:"orderId"`
	RedeemedAt time.Time `firestore:"redeemedAt"`
}

var _ repositories.CouponUsageRepository = (*CouponUsageRepository)(nil)
