package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/nivasa-store/api/internal/domain"
	"github.com/nivasa-store/api/internal/platform/cache"
)

func newTestDeliveryService(t *testing.T, deps DeliveryServiceDeps) DeliveryService {
	t.Helper()
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	}
	service, err := NewDeliveryService(deps)
	if err != nil {
		t.Fatalf("unexpected error constructing delivery service: %v", err)
	}
	return service
}

func TestValidPincode(t *testing.T) {
	cases := []struct {
		pincode string
		want    bool
	}{
		{"560001", true},
		{"110042", true},
		{"56000", false},
		{"5600011", false},
		{"56000a", false},
		{"060001", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidPincode(tc.pincode); got != tc.want {
			t.Fatalf("ValidPincode(%q) = %v, want %v", tc.pincode, got, tc.want)
		}
	}
}

func TestDeliveryServiceQuoteRejectsPartialPincode(t *testing.T) {
	service := newTestDeliveryService(t, DeliveryServiceDeps{Zones: &stubDeliveryZoneRepository{}})

	_, err := service.Quote(context.Background(), DeliveryQuoteCommand{Pincode: "5600"})
	if !errors.Is(err, ErrDeliveryInvalidInput) {
		t.Fatalf("expected ErrDeliveryInvalidInput, got %v", err)
	}
}

func TestDeliveryServiceQuoteUnavailablePincode(t *testing.T) {
	repo := &stubDeliveryZoneRepository{
		findForPincodeFunc: func(ctx context.Context, pincode string) (domain.DeliveryZone, error) {
			return domain.DeliveryZone{}, &repositoryErrorStub{notFound: true}
		},
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	service := newTestDeliveryService(t, DeliveryServiceDeps{
		Zones: repo,
		Clock: func() time.Time { return now },
	})

	quote, err := service.Quote(context.Background(), DeliveryQuoteCommand{Pincode: "799999"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Available {
		t.Fatalf("expected unavailable quote")
	}
	if quote.Pincode != "799999" {
		t.Fatalf("expected pincode echoed back, got %q", quote.Pincode)
	}
	if !quote.QuotedAt.Equal(now) {
		t.Fatalf("expected quoted at %v, got %v", now, quote.QuotedAt)
	}
}

func TestDeliveryServiceQuoteChargesZoneRate(t *testing.T) {
	repo := &stubDeliveryZoneRepository{
		findForPincodeFunc: func(ctx context.Context, pincode string) (domain.DeliveryZone, error) {
			return domain.DeliveryZone{
				ID: "z-56", PincodePrefix: "56", Charge: 120,
				MinDays: 2, MaxDays: 5, Active: true,
			}, nil
		},
	}
	service := newTestDeliveryService(t, DeliveryServiceDeps{Zones: repo})

	quote, err := service.Quote(context.Background(), DeliveryQuoteCommand{Pincode: "560001", Subtotal: 800})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !quote.Available {
		t.Fatalf("expected available quote")
	}
	if quote.Charge != 120 {
		t.Fatalf("expected charge 120, got %v", quote.Charge)
	}
	if quote.MinDays != 2 || quote.MaxDays != 5 {
		t.Fatalf("expected ETA 2..5 days, got %d..%d", quote.MinDays, quote.MaxDays)
	}
}

func TestDeliveryServiceQuoteFreeAboveZoneThreshold(t *testing.T) {
	repo := &stubDeliveryZoneRepository{
		findForPincodeFunc: func(ctx context.Context, pincode string) (domain.DeliveryZone, error) {
			return domain.DeliveryZone{
				ID: "z-56", PincodePrefix: "56", Charge: 120,
				FreeAbove: floatPtr(1000), MinDays: 2, MaxDays: 5, Active: true,
			}, nil
		},
	}
	service := newTestDeliveryService(t, DeliveryServiceDeps{Zones: repo, DefaultFreeAbove: 5000})

	quote, err := service.Quote(context.Background(), DeliveryQuoteCommand{Pincode: "560001", Subtotal: 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Charge != 0 {
		t.Fatalf("expected waived charge at zone threshold, got %v", quote.Charge)
	}

	quote, err = service.Quote(context.Background(), DeliveryQuoteCommand{Pincode: "560001", Subtotal: 999})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Charge != 120 {
		t.Fatalf("expected full charge below threshold, got %v", quote.Charge)
	}
}

func TestDeliveryServiceQuoteDefaultFreeAboveFallback(t *testing.T) {
	repo := &stubDeliveryZoneRepository{
		findForPincodeFunc: func(ctx context.Context, pincode string) (domain.DeliveryZone, error) {
			return domain.DeliveryZone{ID: "z-11", PincodePrefix: "11", Charge: 90, Active: true}, nil
		},
	}
	service := newTestDeliveryService(t, DeliveryServiceDeps{Zones: repo, DefaultFreeAbove: 2000})

	quote, err := service.Quote(context.Background(), DeliveryQuoteCommand{Pincode: "110042", Subtotal: 2500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Charge != 0 {
		t.Fatalf("expected waived charge above default threshold, got %v", quote.Charge)
	}
}

func TestDeliveryServiceQuoteBackendFailure(t *testing.T) {
	repo := &stubDeliveryZoneRepository{
		findForPincodeFunc: func(ctx context.Context, pincode string) (domain.DeliveryZone, error) {
			return domain.DeliveryZone{}, &repositoryErrorStub{unavailable: true}
		},
	}
	service := newTestDeliveryService(t, DeliveryServiceDeps{Zones: repo})

	_, err := service.Quote(context.Background(), DeliveryQuoteCommand{Pincode: "560001"})
	if !errors.Is(err, ErrDeliveryUnavailable) {
		t.Fatalf("expected ErrDeliveryUnavailable, got %v", err)
	}
}

func TestDeliveryServiceUpsertZoneValidation(t *testing.T) {
	service := newTestDeliveryService(t, DeliveryServiceDeps{Zones: &stubDeliveryZoneRepository{}})

	cases := []struct {
		name string
		zone DeliveryZone
	}{
		{"short prefix", DeliveryZone{PincodePrefix: "5", Charge: 50, MinDays: 1, MaxDays: 2}},
		{"long prefix", DeliveryZone{PincodePrefix: "5600011", Charge: 50, MinDays: 1, MaxDays: 2}},
		{"non numeric prefix", DeliveryZone{PincodePrefix: "56a", Charge: 50, MinDays: 1, MaxDays: 2}},
		{"negative charge", DeliveryZone{PincodePrefix: "56", Charge: -1, MinDays: 1, MaxDays: 2}},
		{"negative free above", DeliveryZone{PincodePrefix: "56", Charge: 50, FreeAbove: floatPtr(-10), MinDays: 1, MaxDays: 2}},
		{"inverted eta", DeliveryZone{PincodePrefix: "56", Charge: 50, MinDays: 5, MaxDays: 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.UpsertZone(context.Background(), UpsertZoneCommand{Zone: tc.zone})
			if !errors.Is(err, ErrDeliveryInvalidInput) {
				t.Fatalf("expected ErrDeliveryInvalidInput, got %v", err)
			}
		})
	}
}

func TestDeliveryServiceUpsertZoneGeneratesID(t *testing.T) {
	var saved domain.DeliveryZone
	repo := &stubDeliveryZoneRepository{
		upsertFunc: func(ctx context.Context, zone domain.DeliveryZone) error {
			saved = zone
			return nil
		},
	}
	service := newTestDeliveryService(t, DeliveryServiceDeps{
		Zones:       repo,
		IDGenerator: func() string { return "zone-1" },
	})

	zone, err := service.UpsertZone(context.Background(), UpsertZoneCommand{
		Zone: DeliveryZone{PincodePrefix: "560", Charge: 80, MinDays: 1, MaxDays: 3, Active: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if zone.ID != "zone-1" {
		t.Fatalf("expected generated zone id, got %q", zone.ID)
	}
	if saved.PincodePrefix != "560" {
		t.Fatalf("expected zone persisted, got %+v", saved)
	}
}

func TestDeliveryServiceQuoteServesCachedZone(t *testing.T) {
	repo := &stubDeliveryZoneRepository{
		findForPincodeFunc: func(ctx context.Context, pincode string) (domain.DeliveryZone, error) {
			t.Fatalf("cached pincode must not hit the zone table")
			return domain.DeliveryZone{}, nil
		},
	}
	zoneCache := &stubZoneCache{
		getFunc: func(ctx context.Context, pincode string) (*cache.ZoneEntry, error) {
			return &cache.ZoneEntry{
				Available: true, ZoneID: "z-56", PincodePrefix: "56",
				Charge: 110, MinDays: 2, MaxDays: 4,
			}, nil
		},
	}
	service := newTestDeliveryService(t, DeliveryServiceDeps{Zones: repo, Cache: zoneCache})

	quote, err := service.Quote(context.Background(), DeliveryQuoteCommand{Pincode: "560001", Subtotal: 800})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !quote.Available || quote.Charge != 110 {
		t.Fatalf("expected cached zone charge 110, got %+v", quote)
	}
}

func TestDeliveryServiceUpsertZoneFlushesCache(t *testing.T) {
	zoneCache := &stubZoneCache{}
	service := newTestDeliveryService(t, DeliveryServiceDeps{
		Zones: &stubDeliveryZoneRepository{},
		Cache: zoneCache,
	})

	_, err := service.UpsertZone(context.Background(), UpsertZoneCommand{
		Zone: DeliveryZone{ID: "z-56", PincodePrefix: "56", Charge: 150, MinDays: 2, MaxDays: 5, Active: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if zoneCache.invalidations != 1 {
		t.Fatalf("expected one cache flush after upsert, got %d", zoneCache.invalidations)
	}
}

func TestDeliveryServiceUpsertZoneSkipsFlushOnWriteFailure(t *testing.T) {
	zoneCache := &stubZoneCache{}
	repo := &stubDeliveryZoneRepository{
		upsertFunc: func(ctx context.Context, zone domain.DeliveryZone) error {
			return &repositoryErrorStub{unavailable: true}
		},
	}
	service := newTestDeliveryService(t, DeliveryServiceDeps{Zones: repo, Cache: zoneCache})

	_, err := service.UpsertZone(context.Background(), UpsertZoneCommand{
		Zone: DeliveryZone{PincodePrefix: "56", Charge: 150, MinDays: 2, MaxDays: 5},
	})
	if !errors.Is(err, ErrDeliveryUnavailable) {
		t.Fatalf("expected ErrDeliveryUnavailable, got %v", err)
	}
	if zoneCache.invalidations != 0 {
		t.Fatalf("failed write must not flush the cache, got %d flushes", zoneCache.invalidations)
	}
}

func TestDeliveryServiceDeleteZoneFlushesCache(t *testing.T) {
	zoneCache := &stubZoneCache{}
	service := newTestDeliveryService(t, DeliveryServiceDeps{
		Zones: &stubDeliveryZoneRepository{},
		Cache: zoneCache,
	})

	if err := service.DeleteZone(context.Background(), "z-56"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if zoneCache.invalidations != 1 {
		t.Fatalf("expected one cache flush after delete, got %d", zoneCache.invalidations)
	}
}

type stubDeliveryZoneRepository struct {
	upsertFunc         func(ctx context.Context, zone domain.DeliveryZone) error
	deleteFunc         func(ctx context.Context, zoneID string) error
	findForPincodeFunc func(ctx context.Context, pincode string) (domain.DeliveryZone, error)
	listFunc           func(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.DeliveryZone], error)
}

func (s *stubDeliveryZoneRepository) Upsert(ctx context.Context, zone domain.DeliveryZone) error {
	if s.upsertFunc != nil {
		return s.upsertFunc(ctx, zone)
	}
	return nil
}

func (s *stubDeliveryZoneRepository) Delete(ctx context.Context, zoneID string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, zoneID)
	}
	return nil
}

func (s *stubDeliveryZoneRepository) FindForPincode(ctx context.Context, pincode string) (domain.DeliveryZone, error) {
	if s.findForPincodeFunc != nil {
		return s.findForPincodeFunc(ctx, pincode)
	}
	return domain.DeliveryZone{}, &repositoryErrorStub{notFound: true}
}

func (s *stubDeliveryZoneRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.DeliveryZone], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, pager)
	}
	return domain.CursorPage[domain.DeliveryZone]{}, nil
}

type stubZoneCache struct {
	getFunc       func(ctx context.Context, pincode string) (*cache.ZoneEntry, error)
	invalidations int
}

func (s *stubZoneCache) Get(ctx context.Context, pincode string) (*cache.ZoneEntry, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, pincode)
	}
	return nil, cache.ErrCacheMiss
}

func (s *stubZoneCache) SetZone(ctx context.Context, pincode string, zone domain.DeliveryZone) error {
	return nil
}

func (s *stubZoneCache) SetUnavailable(ctx context.Context, pincode string) error {
	return nil
}

func (s *stubZoneCache) Invalidate(ctx context.Context) error {
	s.invalidations++
	return nil
}
