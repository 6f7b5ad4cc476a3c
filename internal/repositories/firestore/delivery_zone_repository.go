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

const deliveryZonesCollection = "deliveryZones"

// DeliveryZoneRepository persists the serviceable-pincode table. Zones are
// keyed by prefix so a quote lookup can match the longest serviceable prefix
// of a full pincode.
type DeliveryZoneRepository struct {
	base *pfirestore.BaseRepository[deliveryZoneDocument]
}

// NewDeliveryZoneRepository constructs a Firestore-backed delivery zone repository.
func NewDeliveryZoneRepository(provider *pfirestore.Provider) (*DeliveryZoneRepository, error) {
	if provider == nil {
		return nil, errors.New("delivery zone repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[deliveryZoneDocument](provider, deliveryZonesCollection)
	return &DeliveryZoneRepository{base: base}, nil
}

// Upsert writes the zone, replacing any existing document with the same ID.
func (r *DeliveryZoneRepository) Upsert(ctx context.Context, zone domain.DeliveryZone) error {
	if r == nil || r.base == nil {
		return errors.New("delivery zone repository not initialised")
	}
	zoneID := strings.TrimSpace(zone.ID)
	if zoneID == "" {
		return errors.New("delivery zone repository: zone id is required")
	}
	if _, err := r.base.Set(ctx, zoneID, encodeDeliveryZoneDocument(zone)); err != nil {
		return err
	}
	return nil
}

// Delete removes the zone document.
func (r *DeliveryZoneRepository) Delete(ctx context.Context, zoneID string) error {
	if r == nil || r.base == nil {
		return errors.New("delivery zone repository not initialised")
	}
	zoneID = strings.TrimSpace(zoneID)
	if zoneID == "" {
		return errors.New("delivery zone repository: zone id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, zoneID)
	if err != nil {
		return err
	}
	if _, err := docRef.Delete(ctx); err != nil {
		return pfirestore.WrapError("delivery_zones.delete", err)
	}
	return nil
}

// FindForPincode resolves the zone covering a full 6-digit pincode. When
// multiple active zones match, the longest prefix wins.
func (r *DeliveryZoneRepository) FindForPincode(ctx context.Context, pincode string) (domain.DeliveryZone, error) {
	if r == nil || r.base == nil {
		return domain.DeliveryZone{}, errors.New("delivery zone repository not initialised")
	}
	pincode = strings.TrimSpace(pincode)
	if pincode == "" {
		return domain.DeliveryZone{}, errors.New("delivery zone repository: pincode is required")
	}

	prefixes := pincodePrefixes(pincode)
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("pincodePrefix", "in", prefixes)
	})
	if err != nil {
		return domain.DeliveryZone{}, err
	}

	var (
		best      domain.DeliveryZone
		bestLen   int
		bestFound bool
	)
	for _, doc := range docs {
		zone := decodeDeliveryZoneDocument(doc.ID, doc.Data, doc.UpdateTime)
		if !zone.Active {
			continue
		}
		if n := len(zone.PincodePrefix); n > bestLen {
			best, bestLen, bestFound = zone, n, true
		}
	}
	if !bestFound {
		return domain.DeliveryZone{}, pfirestore.NewNotFoundError("delivery_zones.find_for_pincode", fmt.Errorf("no active zone for pincode %s", pincode))
	}
	return best, nil
}

// List returns zones ordered by prefix with cursor pagination.
func (r *DeliveryZoneRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.DeliveryZone], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.DeliveryZone]{}, errors.New("delivery zone repository not initialised")
	}
	limit := pager.PageSize
	if limit <= 0 {
		limit = 50
	}
	startAfter, err := decodeDeliveryZoneListToken(pager.PageToken)
	if err != nil {
		return domain.CursorPage[domain.DeliveryZone]{}, err
	}
	fetchLimit := limit + 1

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.OrderBy("pincodePrefix", firestore.Asc).OrderBy(firestore.DocumentID, firestore.Asc)
		if startAfter != nil {
			q = q.StartAfter(startAfter.prefix, startAfter.docID)
		}
		return q.Limit(fetchLimit)
	})
	if err != nil {
		return domain.CursorPage[domain.DeliveryZone]{}, err
	}

	page := domain.CursorPage[domain.DeliveryZone]{}
	for i, doc := range docs {
		if i == limit {
			last := docs[limit-1]
			page.NextPageToken = encodeDeliveryZoneListToken(last.Data.PincodePrefix, last.ID)
			break
		}
		page.Items = append(page.Items, decodeDeliveryZoneDocument(doc.ID, doc.Data, doc.UpdateTime))
	}
	return page, nil
}

// pincodePrefixes enumerates zone prefixes a pincode can match, shortest first.
func pincodePrefixes(pincode string) []string {
	prefixes := make([]string, 0, len(pincode))
	for i := 2; i <= len(pincode); i++ {
		prefixes = append(prefixes, pincode[:i])
	}
	return prefixes
}

type deliveryZoneDocument struct {
	PincodePrefix string    `firestore:"pincodePrefix"`
	Charge        float64   `firestore:"charge"`
	FreeAbove     *float64  `firestore:"freeAbove,omitempty"`
	MinDays       int       `firestore:"minDays"`
	MaxDays       int       `firestore:"maxDays"`
	Active        bool      `firestore:"active"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

func encodeDeliveryZoneDocument(zone domain.DeliveryZone) deliveryZoneDocument {
	return deliveryZoneDocument{
		PincodePrefix: strings.TrimSpace(zone.PincodePrefix),
		Charge:        zone.Charge,
		FreeAbove:     zone.FreeAbove,
		MinDays:       zone.MinDays,
		MaxDays:       zone.MaxDays,
		Active:        zone.Active,
		UpdatedAt:     zone.UpdatedAt.UTC(),
	}
}

func decodeDeliveryZoneDocument(id string, doc deliveryZoneDocument, updateTime time.Time) domain.DeliveryZone {
	return domain.DeliveryZone{
		ID:            id,
		PincodePrefix: doc.PincodePrefix,
		Charge:        doc.Charge,
		FreeAbove:     doc.FreeAbove,
		MinDays:       doc.MinDays,
		MaxDays:       doc.MaxDays,
		Active:        doc.Active,
		UpdatedAt:     chooseTime(doc.UpdatedAt, updateTime),
	}
}

type deliveryZoneListCursor struct {
	prefix string
	docID  string
}

func encodeDeliveryZoneListToken(prefix, docID string) string {
	return encodeListCursor(prefix, docID)
}

func decodeDeliveryZoneListToken(token string) (*deliveryZoneListCursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	parts, err := decodeListCursor(token, 2)
	if err != nil {
		return nil, fmt.Errorf("delivery_zones.list: %w", err)
	}
	if parts[0] == "" || parts[1] == "" {
		return nil, errors.New("delivery_zones.list: invalid page token")
	}
	return &deliveryZoneListCursor{prefix: parts[0], docID: parts[1]}, nil
}

var _ repositories.DeliveryZoneRepository = (*DeliveryZoneRepository)(nil)
