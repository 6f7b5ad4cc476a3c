package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domain "github.com/nivasa-store/api/internal/domain"
)

// ZoneEntry is the cached outcome of a zone lookup for a pincode. Available
// false records a serviceability miss so unserviceable pincodes do not hit
// Firestore on every quote.
type ZoneEntry struct {
	Available     bool      `json:"available"`
	ZoneID        string    `json:"zoneId,omitempty"`
	PincodePrefix string    `json:"pincodePrefix,omitempty"`
	Charge        float64   `json:"charge"`
	FreeAbove     *float64  `json:"freeAbove,omitempty"`
	MinDays       int       `json:"minDays"`
	MaxDays       int       `json:"maxDays"`
	CachedAt      time.Time `json:"cachedAt"`
}

// Zone reconstructs the delivery zone for an available entry.
func (e *ZoneEntry) Zone() domain.DeliveryZone {
	return domain.DeliveryZone{
		ID:            e.ZoneID,
		PincodePrefix: e.PincodePrefix,
		Charge:        e.Charge,
		FreeAbove:     e.FreeAbove,
		MinDays:       e.MinDays,
		MaxDays:       e.MaxDays,
		Active:        true,
	}
}

// DeliveryCache caches per-pincode zone lookups with a fixed TTL.
type DeliveryCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewDeliveryCache creates a DeliveryCache. A nil redis client disables caching.
func NewDeliveryCache(redis *RedisClient, ttl time.Duration) *DeliveryCache {
	return &DeliveryCache{
		redis: redis,
		ttl:   ttl,
	}
}

const zoneKeyPrefix = "delivery:zone:"

func (c *DeliveryCache) key(pincode string) string {
	return zoneKeyPrefix + pincode
}

// Get retrieves the cached zone entry for a pincode. Returns ErrCacheMiss
// when absent or when caching is disabled.
func (c *DeliveryCache) Get(ctx context.Context, pincode string) (*ZoneEntry, error) {
	if c == nil || c.redis == nil {
		return nil, ErrCacheMiss
	}
	jsonData, err := c.redis.Get(ctx, c.key(pincode))
	if err != nil {
		return nil, err
	}

	var entry ZoneEntry
	if err := json.Unmarshal([]byte(jsonData), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal zone entry: %w", err)
	}
	return &entry, nil
}

// SetZone caches a resolved zone for the pincode.
func (c *DeliveryCache) SetZone(ctx context.Context, pincode string, zone domain.DeliveryZone) error {
	return c.set(ctx, pincode, ZoneEntry{
		Available:     true,
		ZoneID:        zone.ID,
		PincodePrefix: zone.PincodePrefix,
		Charge:        zone.Charge,
		FreeAbove:     zone.FreeAbove,
		MinDays:       zone.MinDays,
		MaxDays:       zone.MaxDays,
	})
}

// SetUnavailable records that no zone serves the pincode.
func (c *DeliveryCache) SetUnavailable(ctx context.Context, pincode string) error {
	return c.set(ctx, pincode, ZoneEntry{Available: false})
}

func (c *DeliveryCache) set(ctx context.Context, pincode string, entry ZoneEntry) error {
	if c == nil || c.redis == nil {
		return nil
	}
	entry.CachedAt = time.Now().UTC()

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal zone entry: %w", err)
	}
	return c.redis.Set(ctx, c.key(pincode), string(jsonData), c.ttl)
}

// Invalidate drops every cached zone lookup. Zone edits change which pincodes
// a prefix serves, so the whole namespace goes rather than guessing keys.
func (c *DeliveryCache) Invalidate(ctx context.Context) error {
	if c == nil || c.redis == nil {
		return nil
	}
	return c.redis.DeletePrefix(ctx, zoneKeyPrefix)
}
