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

// ErrCouponInvalidInput indicates the caller supplied invalid input.
var ErrCouponInvalidInput = errors.New("coupon service: invalid input")

// ErrCouponNotFound indicates the requested coupon does not exist.
var ErrCouponNotFound = errors.New("coupon service: not found")

// ErrCouponConflict indicates the coupon code is already taken.
var ErrCouponConflict = errors.New("coupon service: conflict")

// ErrCouponUnavailable indicates the coupon backend cannot fulfil the request.
var ErrCouponUnavailable = errors.New("coupon service: unavailable")

// Ineligibility reasons reported by Validate and Probe.
const (
	CouponReasonUnknownCode    = "unknown_code"
	CouponReasonInactive       = "inactive"
	CouponReasonNotStarted     = "not_started"
	CouponReasonExpired        = "expired"
	CouponReasonMinSubtotal    = "min_subtotal_not_met"
	CouponReasonUsageExhausted = "usage_limit_reached"
	CouponReasonPerUserLimit   = "per_user_limit_reached"
	CouponReasonNoEligibleItem = "no_eligible_items"
)

// CouponServiceDeps wires the coupon table, usage ledger and ambient dependencies.
type CouponServiceDeps struct {
	Coupons     repositories.CouponRepository
	Usage       repositories.CouponUsageRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type couponService struct {
	coupons repositories.CouponRepository
	usage   repositories.CouponUsageRepository
	now     func() time.Time
	newID   func() string
	logger  func(context.Context, string, map[string]any)
}

// NewCouponService constructs a CouponService enforcing dependency validation.
func NewCouponService(deps CouponServiceDeps) (CouponService, error) {
	if deps.Coupons == nil {
		return nil, errors.New("coupon service: coupon repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &couponService{
		coupons: deps.Coupons,
		usage:   deps.Usage,
		now:     func() time.Time { return clock().UTC() },
		newID:   idGen,
		logger:  logger,
	}, nil
}

// NormalizeCouponCode trims surrounding whitespace and uppercases the code so
// lookups are case-insensitive.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Probe checks a code without a cart context, for storefront hint badges.
func (s *couponService) Probe(ctx context.Context, code string) (CouponValidationResult, error) {
	if s == nil || s.coupons == nil {
		return CouponValidationResult{}, ErrCouponUnavailable
	}
	normalized := NormalizeCouponCode(code)
	if normalized == "" {
		return CouponValidationResult{}, ErrCouponInvalidInput
	}

	coupon, err := s.coupons.FindByCode(ctx, normalized)
	if err != nil {
		if isRepoNotFound(err) {
			return ineligible(normalized, CouponReasonUnknownCode), nil
		}
		return CouponValidationResult{}, s.translateRepoError(err)
	}

	if reason := s.checkWindow(coupon); reason != "" {
		return ineligible(normalized, reason), nil
	}
	return CouponValidationResult{
		Code:         normalized,
		Eligible:     true,
		Type:         coupon.Type,
		FreeShipping: coupon.FreeShipping,
	}, nil
}

// Validate checks a code against a cart snapshot and computes the discount it
// would grant. An ineligible code is a result, not an error.
func (s *couponService) Validate(ctx context.Context, cmd ValidateCouponCommand) (CouponValidationResult, error) {
	if s == nil || s.coupons == nil {
		return CouponValidationResult{}, ErrCouponUnavailable
	}
	normalized := NormalizeCouponCode(cmd.Code)
	if normalized == "" {
		return CouponValidationResult{}, ErrCouponInvalidInput
	}

	coupon, err := s.coupons.FindByCode(ctx, normalized)
	if err != nil {
		if isRepoNotFound(err) {
			return ineligible(normalized, CouponReasonUnknownCode), nil
		}
		return CouponValidationResult{}, s.translateRepoError(err)
	}

	if reason := s.checkWindow(coupon); reason != "" {
		return ineligible(normalized, reason), nil
	}

	if coupon.PerUserLimit > 0 && strings.TrimSpace(cmd.UserID) != "" && s.usage != nil {
		count, err := s.usage.CountForUser(ctx, coupon.ID, strings.TrimSpace(cmd.UserID))
		if err != nil {
			return CouponValidationResult{}, s.translateRepoError(err)
		}
		if count >= coupon.PerUserLimit {
			return ineligible(normalized, CouponReasonPerUserLimit), nil
		}
	}

	basis := cmd.Subtotal
	if len(coupon.Categories) > 0 {
		basis = categorySubtotal(cmd.Lines, coupon.Categories)
		if basis <= 0 {
			return ineligible(normalized, CouponReasonNoEligibleItem), nil
		}
	}

	if coupon.MinSubtotal > 0 && cmd.Subtotal < coupon.MinSubtotal {
		return ineligible(normalized, CouponReasonMinSubtotal), nil
	}

	discount := pricing.CouponDiscount(coupon, basis)
	return CouponValidationResult{
		Code:         normalized,
		Eligible:     true,
		Type:         coupon.Type,
		Discount:     discount,
		FreeShipping: coupon.FreeShipping,
	}, nil
}

func (s *couponService) checkWindow(coupon Coupon) string {
	if !coupon.Active {
		return CouponReasonInactive
	}
	now := s.now()
	if coupon.StartsAt != nil && now.Before(coupon.StartsAt.UTC()) {
		return CouponReasonNotStarted
	}
	if coupon.EndsAt != nil && now.After(coupon.EndsAt.UTC()) {
		return CouponReasonExpired
	}
	if coupon.UsageLimit > 0 && coupon.UsageCount >= coupon.UsageLimit {
		return CouponReasonUsageExhausted
	}
	return ""
}

// categorySubtotal sums line totals for products in the coupon's categories.
func categorySubtotal(lines []CartLine, categories []string) float64 {
	allowed := make(map[string]struct{}, len(categories))
	for _, category := range categories {
		allowed[strings.ToLower(strings.TrimSpace(category))] = struct{}{}
	}
	var sum float64
	for _, line := range lines {
		if line.Product == nil || line.Quantity <= 0 {
			continue
		}
		if _, ok := allowed[strings.ToLower(strings.TrimSpace(line.Product.Category))]; !ok {
			continue
		}
		price := line.UnitPrice
		if price <= 0 {
			price = line.Product.BasePrice
		}
		if price > 0 {
			sum += price * float64(line.Quantity)
		}
	}
	return sum
}

func ineligible(code, reason string) CouponValidationResult {
	return CouponValidationResult{Code: code, Eligible: false, Reason: reason}
}

func (s *couponService) ListCoupons(ctx context.Context, filter CouponListFilter) (domain.CursorPage[Coupon], error) {
	if s == nil || s.coupons == nil {
		return domain.CursorPage[Coupon]{}, ErrCouponUnavailable
	}
	if filter.Pagination.PageSize <= 0 {
		filter.Pagination.PageSize = 50
	}
	page, err := s.coupons.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Coupon]{}, s.translateRepoError(err)
	}
	return page, nil
}

func (s *couponService) CreateCoupon(ctx context.Context, cmd UpsertCouponCommand) (Coupon, error) {
	if s == nil || s.coupons == nil {
		return Coupon{}, ErrCouponUnavailable
	}
	coupon, err := s.normalizeCoupon(cmd.Coupon)
	if err != nil {
		return Coupon{}, err
	}

	if _, err := s.coupons.FindByCode(ctx, coupon.Code); err == nil {
		return Coupon{}, fmt.Errorf("%w: code %s already exists", ErrCouponConflict, coupon.Code)
	} else if !isRepoNotFound(err) {
		return Coupon{}, s.translateRepoError(err)
	}

	now := s.now()
	coupon.ID = s.newID()
	coupon.UsageCount = 0
	coupon.CreatedAt = now
	coupon.UpdatedAt = now

	if err := s.coupons.Insert(ctx, coupon); err != nil {
		return Coupon{}, s.translateRepoError(err)
	}
	s.logger(ctx, "coupon.created", map[string]any{
		"couponId": coupon.ID,
		"code":     coupon.Code,
		"actorId":  strings.TrimSpace(cmd.ActorID),
	})
	return coupon, nil
}

func (s *couponService) UpdateCoupon(ctx context.Context, cmd UpsertCouponCommand) (Coupon, error) {
	if s == nil || s.coupons == nil {
		return Coupon{}, ErrCouponUnavailable
	}
	coupon, err := s.normalizeCoupon(cmd.Coupon)
	if err != nil {
		return Coupon{}, err
	}
	if strings.TrimSpace(coupon.ID) == "" {
		return Coupon{}, fmt.Errorf("%w: coupon id is required", ErrCouponInvalidInput)
	}

	existing, err := s.coupons.FindByID(ctx, coupon.ID)
	if err != nil {
		return Coupon{}, s.translateRepoError(err)
	}
	if existing.Code != coupon.Code {
		if _, err := s.coupons.FindByCode(ctx, coupon.Code); err == nil {
			return Coupon{}, fmt.Errorf("%w: code %s already exists", ErrCouponConflict, coupon.Code)
		} else if !isRepoNotFound(err) {
			return Coupon{}, s.translateRepoError(err)
		}
	}

	coupon.UsageCount = existing.UsageCount
	coupon.CreatedAt = existing.CreatedAt
	coupon.UpdatedAt = s.now()

	if err := s.coupons.Update(ctx, coupon); err != nil {
		return Coupon{}, s.translateRepoError(err)
	}
	return coupon, nil
}

func (s *couponService) DeleteCoupon(ctx context.Context, couponID string) error {
	if s == nil || s.coupons == nil {
		return ErrCouponUnavailable
	}
	couponID = strings.TrimSpace(couponID)
	if couponID == "" {
		return ErrCouponInvalidInput
	}
	if err := s.coupons.Delete(ctx, couponID); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

func (s *couponService) normalizeCoupon(coupon Coupon) (Coupon, error) {
	coupon.Code = NormalizeCouponCode(coupon.Code)
	coupon.Description = strings.TrimSpace(coupon.Description)
	if coupon.Code == "" {
		return Coupon{}, fmt.Errorf("%w: code is required", ErrCouponInvalidInput)
	}
	switch coupon.Type {
	case domain.DiscountTypePercentage:
		if coupon.Value <= 0 || coupon.Value > 100 {
			return Coupon{}, fmt.Errorf("%w: percentage value must be between 0 and 100", ErrCouponInvalidInput)
		}
	case domain.DiscountTypeFixed:
		if coupon.Value < 0 {
			return Coupon{}, fmt.Errorf("%w: fixed value must be non-negative", ErrCouponInvalidInput)
		}
		if coupon.Value == 0 && !coupon.FreeShipping {
			return Coupon{}, fmt.Errorf("%w: coupon must grant a discount or free shipping", ErrCouponInvalidInput)
		}
	default:
		return Coupon{}, fmt.Errorf("%w: unknown coupon type %q", ErrCouponInvalidInput, coupon.Type)
	}
	if coupon.MinSubtotal < 0 {
		return Coupon{}, fmt.Errorf("%w: min_subtotal must be non-negative", ErrCouponInvalidInput)
	}
	if coupon.StartsAt != nil && coupon.EndsAt != nil && coupon.EndsAt.Before(*coupon.StartsAt) {
		return Coupon{}, fmt.Errorf("%w: ends_at precedes starts_at", ErrCouponInvalidInput)
	}
	for i, category := range coupon.Categories {
		coupon.Categories[i] = strings.ToLower(strings.TrimSpace(category))
	}
	return coupon, nil
}

func (s *couponService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCouponNotFound
		case repoErr.IsConflict():
			return ErrCouponConflict
		case repoErr.IsUnavailable():
			return ErrCouponUnavailable
		}
	}
	return ErrCouponUnavailable
}
