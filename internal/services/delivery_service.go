package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/nivasa-store/api/internal/domain"
	"github.com/nivasa-store/api/internal/platform/cache"
	"github.com/nivasa-store/api/internal/repositories"
)

// ErrDeliveryInvalidInput indicates the caller supplied invalid input.
var ErrDeliveryInvalidInput = errors.New("delivery service: invalid input")

// ErrDeliveryNotFound indicates the requested zone does not exist.
var ErrDeliveryNotFound = errors.New("delivery service: not found")

// ErrDeliveryUnavailable indicates the delivery backend cannot fulfil the request.
var ErrDeliveryUnavailable = errors.New("delivery service: unavailable")

const pincodeLength = 6

// DeliveryZoneCache caches pincode zone lookups between quote requests and is
// flushed when the zone table changes.
type DeliveryZoneCache interface {
	Get(ctx context.Context, pincode string) (*cache.ZoneEntry, error)
	SetZone(ctx context.Context, pincode string, zone domain.DeliveryZone) error
	SetUnavailable(ctx context.Context, pincode string) error
	Invalidate(ctx context.Context) error
}

// DeliveryServiceDeps wires the zone table, cache and ambient dependencies.
type DeliveryServiceDeps struct {
	Zones            repositories.DeliveryZoneRepository
	Cache            DeliveryZoneCache
	Clock            func() time.Time
	IDGenerator      func() string
	DefaultFreeAbove float64
	Logger           func(context.Context, string, map[string]any)
}

type deliveryService struct {
	zones     repositories.DeliveryZoneRepository
	cache     DeliveryZoneCache
	now       func() time.Time
	newID     func() string
	freeAbove float64
	logger    func(context.Context, string, map[string]any)
}

// NewDeliveryService constructs a DeliveryService enforcing dependency validation.
func NewDeliveryService(deps DeliveryServiceDeps) (DeliveryService, error) {
	if deps.Zones == nil {
		return nil, errors.New("delivery service: zone repository is required")
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
	return &deliveryService{
		zones:     deps.Zones,
		cache:     deps.Cache,
		now:       func() time.Time { return clock().UTC() },
		newID:     idGen,
		freeAbove: deps.DefaultFreeAbove,
		logger:    logger,
	}, nil
}

// ValidPincode reports whether the value is a complete 6-digit pincode.
func ValidPincode(pincode string) bool {
	if len(pincode) != pincodeLength {
		return false
	}
	for i, r := range pincode {
		if r < '0' || r > '9' {
			return false
		}
		if i == 0 && r == '0' {
			return false
		}
	}
	return true
}

// Quote resolves the delivery charge for a complete pincode. Partial pincodes
// are rejected; serviceability is only ever decided on all six digits.
func (s *deliveryService) Quote(ctx context.Context, cmd DeliveryQuoteCommand) (DeliveryQuote, error) {
	if s == nil || s.zones == nil {
		return DeliveryQuote{}, ErrDeliveryUnavailable
	}
	pincode := strings.TrimSpace(cmd.Pincode)
	if !ValidPincode(pincode) {
		return DeliveryQuote{}, fmt.Errorf("%w: pincode must be 6 digits", ErrDeliveryInvalidInput)
	}

	zone, available, err := s.resolveZone(ctx, pincode)
	if err != nil {
		return DeliveryQuote{}, err
	}

	now := s.now()
	if !available {
		return DeliveryQuote{Pincode: pincode, Available: false, QuotedAt: now}, nil
	}

	charge := zone.Charge
	threshold := s.freeAbove
	if zone.FreeAbove != nil {
		threshold = *zone.FreeAbove
	}
	if threshold > 0 && cmd.Subtotal >= threshold {
		charge = 0
	}

	return DeliveryQuote{
		Pincode:   pincode,
		Available: true,
		Charge:    charge,
		MinDays:   zone.MinDays,
		MaxDays:   zone.MaxDays,
		QuotedAt:  now,
	}, nil
}

func (s *deliveryService) resolveZone(ctx context.Context, pincode string) (domain.DeliveryZone, bool, error) {
	if s.cache != nil {
		if entry, err := s.cache.Get(ctx, pincode); err == nil {
			if !entry.Available {
				return domain.DeliveryZone{}, false, nil
			}
			return entry.Zone(), true, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger(ctx, "delivery.cache_read_failed", map[string]any{
				"pincode": pincode,
				"error":   err.Error(),
			})
		}
	}

	zone, err := s.zones.FindForPincode(ctx, pincode)
	if err != nil {
		if isRepoNotFound(err) {
			if s.cache != nil {
				if cacheErr := s.cache.SetUnavailable(ctx, pincode); cacheErr != nil {
					s.logger(ctx, "delivery.cache_write_failed", map[string]any{
						"pincode": pincode,
						"error":   cacheErr.Error(),
					})
				}
			}
			return domain.DeliveryZone{}, false, nil
		}
		return domain.DeliveryZone{}, false, ErrDeliveryUnavailable
	}

	if s.cache != nil {
		if cacheErr := s.cache.SetZone(ctx, pincode, zone); cacheErr != nil {
			s.logger(ctx, "delivery.cache_write_failed", map[string]any{
				"pincode": pincode,
				"error":   cacheErr.Error(),
			})
		}
	}
	return zone, true, nil
}

// invalidateZoneCache flushes cached quotes after a zone table edit. A flush
// failure is logged and swallowed; entries still expire on their TTL.
func (s *deliveryService) invalidateZoneCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger(ctx, "delivery.cache_invalidate_failed", map[string]any{
			"error": err.Error(),
		})
	}
}

func (s *deliveryService) ListZones(ctx context.Context, pager Pagination) (domain.CursorPage[DeliveryZone], error) {
	if s == nil || s.zones == nil {
		return domain.CursorPage[DeliveryZone]{}, ErrDeliveryUnavailable
	}
	page, err := s.zones.List(ctx, pager)
	if err != nil {
		return domain.CursorPage[DeliveryZone]{}, s.translateRepoError(err)
	}
	return page, nil
}

// UpsertZone writes a zone and flushes cached quotes so the new charge takes
// effect on the next lookup.
func (s *deliveryService) UpsertZone(ctx context.Context, cmd UpsertZoneCommand) (DeliveryZone, error) {
	if s == nil || s.zones == nil {
		return DeliveryZone{}, ErrDeliveryUnavailable
	}

	zone := cmd.Zone
	zone.PincodePrefix = strings.TrimSpace(zone.PincodePrefix)
	if len(zone.PincodePrefix) < 2 || len(zone.PincodePrefix) > pincodeLength {
		return DeliveryZone{}, fmt.Errorf("%w: pincode prefix must be 2 to %d digits", ErrDeliveryInvalidInput, pincodeLength)
	}
	for _, r := range zone.PincodePrefix {
		if r < '0' || r > '9' {
			return DeliveryZone{}, fmt.Errorf("%w: pincode prefix must be numeric", ErrDeliveryInvalidInput)
		}
	}
	if zone.Charge < 0 {
		return DeliveryZone{}, fmt.Errorf("%w: charge must be non-negative", ErrDeliveryInvalidInput)
	}
	if zone.FreeAbove != nil && *zone.FreeAbove < 0 {
		return DeliveryZone{}, fmt.Errorf("%w: free_above must be non-negative", ErrDeliveryInvalidInput)
	}
	if zone.MinDays < 0 || zone.MaxDays < zone.MinDays {
		return DeliveryZone{}, fmt.Errorf("%w: delivery day range is invalid", ErrDeliveryInvalidInput)
	}

	if strings.TrimSpace(zone.ID) == "" {
		zone.ID = s.newID()
	}
	zone.UpdatedAt = s.now()

	if err := s.zones.Upsert(ctx, zone); err != nil {
		return DeliveryZone{}, s.translateRepoError(err)
	}
	s.invalidateZoneCache(ctx)

	s.logger(ctx, "delivery.zone_upserted", map[string]any{
		"zoneId":  zone.ID,
		"prefix":  zone.PincodePrefix,
		"actorId": strings.TrimSpace(cmd.ActorID),
	})
	return zone, nil
}

func (s *deliveryService) DeleteZone(ctx context.Context, zoneID string) error {
	if s == nil || s.zones == nil {
		return ErrDeliveryUnavailable
	}
	zoneID = strings.TrimSpace(zoneID)
	if zoneID == "" {
		return ErrDeliveryInvalidInput
	}
	if err := s.zones.Delete(ctx, zoneID); err != nil {
		return s.translateRepoError(err)
	}
	s.invalidateZoneCache(ctx)
	return nil
}

func (s *deliveryService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrDeliveryNotFound
		case repoErr.IsConflict():
			return ErrDeliveryUnavailable
		case repoErr.IsUnavailable():
			return ErrDeliveryUnavailable
		}
	}
	return ErrDeliveryUnavailable
}
