package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/nivasa-store/api/internal/domain"
	"github.com/nivasa-store/api/internal/services"
)

func TestDeliveryHandlersQuote(t *testing.T) {
	quotedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	service := &stubDeliveryQuoteService{
		quoteFunc: func(ctx context.Context, cmd services.DeliveryQuoteCommand) (services.DeliveryQuote, error) {
			if cmd.Pincode != "560001" {
				t.Fatalf("unexpected pincode %q", cmd.Pincode)
			}
			if cmd.Subtotal != 800 {
				t.Fatalf("unexpected subtotal %v", cmd.Subtotal)
			}
			return services.DeliveryQuote{
				Pincode:   "560001",
				Available: true,
				Charge:    120,
				MinDays:   2,
				MaxDays:   5,
				QuotedAt:  quotedAt,
			}, nil
		},
	}
	handler := NewDeliveryHandlers(service)

	router := chi.NewRouter()
	router.Route("/delivery", handler.Routes)

	req := httptest.NewRequest(http.MethodGet, "/delivery/quote?pincode=560001&subtotal=800", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp deliveryQuoteResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Quote.Available {
		t.Fatalf("expected available quote, got %+v", resp.Quote)
	}
	if resp.Quote.Charge != 120 {
		t.Fatalf("expected charge 120, got %v", resp.Quote.Charge)
	}
	if resp.Quote.MinDays != 2 || resp.Quote.MaxDays != 5 {
		t.Fatalf("unexpected ETA %d..%d", resp.Quote.MinDays, resp.Quote.MaxDays)
	}
	if resp.Quote.QuotedAt == "" {
		t.Fatal("expected quoted_at to be set")
	}
}

func TestDeliveryHandlersQuoteInvalidSubtotal(t *testing.T) {
	handler := NewDeliveryHandlers(&stubDeliveryQuoteService{})

	router := chi.NewRouter()
	router.Route("/delivery", handler.Routes)

	for _, raw := range []string{"abc", "-10"} {
		req := httptest.NewRequest(http.MethodGet, "/delivery/quote?pincode=560001&subtotal="+raw, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("subtotal %q: expected status 400, got %d", raw, rr.Code)
		}
		if code := decodeErrorCode(t, rr); code != "invalid_request" {
			t.Fatalf("subtotal %q: expected invalid_request, got %q", raw, code)
		}
	}
}

func TestDeliveryHandlersQuotePartialPincode(t *testing.T) {
	service := &stubDeliveryQuoteService{
		quoteFunc: func(ctx context.Context, cmd services.DeliveryQuoteCommand) (services.DeliveryQuote, error) {
			return services.DeliveryQuote{}, fmt.Errorf("%w: pincode must be 6 digits", services.ErrDeliveryInvalidInput)
		},
	}
	handler := NewDeliveryHandlers(service)

	router := chi.NewRouter()
	router.Route("/delivery", handler.Routes)

	req := httptest.NewRequest(http.MethodGet, "/delivery/quote?pincode=5600", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestDeliveryHandlersQuoteNilService(t *testing.T) {
	handler := NewDeliveryHandlers(nil)

	router := chi.NewRouter()
	router.Route("/delivery", handler.Routes)

	req := httptest.NewRequest(http.MethodGet, "/delivery/quote?pincode=560001", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	if code := decodeErrorCode(t, rr); code != "delivery_service_unavailable" {
		t.Fatalf("expected delivery_service_unavailable, got %q", code)
	}
}

type stubDeliveryQuoteService struct {
	quoteFunc      func(ctx context.Context, cmd services.DeliveryQuoteCommand) (services.DeliveryQuote, error)
	listZonesFunc  func(ctx context.Context, pager services.Pagination) (domain.CursorPage[services.DeliveryZone], error)
	upsertZoneFunc func(ctx context.Context, cmd services.UpsertZoneCommand) (services.DeliveryZone, error)
	deleteZoneFunc func(ctx context.Context, zoneID string) error
}

func (s *stubDeliveryQuoteService) Quote(ctx context.Context, cmd services.DeliveryQuoteCommand) (services.DeliveryQuote, error) {
	if s.quoteFunc != nil {
		return s.quoteFunc(ctx, cmd)
	}
	return services.DeliveryQuote{}, errors.New("not implemented")
}

func (s *stubDeliveryQuoteService) ListZones(ctx context.Context, pager services.Pagination) (domain.CursorPage[services.DeliveryZone], error) {
	if s.listZonesFunc != nil {
		return s.listZonesFunc(ctx, pager)
	}
	return domain.CursorPage[services.DeliveryZone]{}, errors.New("not implemented")
}

func (s *stubDeliveryQuoteService) UpsertZone(ctx context.Context, cmd services.UpsertZoneCommand) (services.DeliveryZone, error) {
	if s.upsertZoneFunc != nil {
		return s.upsertZoneFunc(ctx, cmd)
	}
	return services.DeliveryZone{}, errors.New("not implemented")
}

func (s *stubDeliveryQuoteService) DeleteZone(ctx context.Context, zoneID string) error {
	if s.deleteZoneFunc != nil {
		return s.deleteZoneFunc(ctx, zoneID)
	}
	return errors.New("not implemented")
}
