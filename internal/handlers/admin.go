package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/nivasa-store/api/internal/domain"
	"github.com/nivasa-store/api/internal/platform/auth"
	"github.com/nivasa-store/api/internal/platform/httpx"
	"github.com/nivasa-store/api/internal/services"
)

const (
	maxAdminBodySize = 256 * 1024
	adminRole        = "admin"
)

// AdminHandlers exposes the management surface: catalog writes, coupon and
// delivery zone tables, order fulfilment and review moderation.
type AdminHandlers struct {
	authn    *auth.Authenticator
	catalog  services.CatalogService
	coupons  services.CouponService
	delivery services.DeliveryService
	orders   services.OrderService
	reviews  services.ReviewService
}

// AdminHandlersDeps bundles the services wired into the admin surface.
type AdminHandlersDeps struct {
	Authenticator *auth.Authenticator
	Catalog       services.CatalogService
	Coupons       services.CouponService
	Delivery      services.DeliveryService
	Orders        services.OrderService
	Reviews       services.ReviewService
}

// NewAdminHandlers constructs the admin handlers.
func NewAdminHandlers(deps AdminHandlersDeps) *AdminHandlers {
	return &AdminHandlers{
		authn:    deps.Authenticator,
		catalog:  deps.Catalog,
		coupons:  deps.Coupons,
		delivery: deps.Delivery,
		orders:   deps.Orders,
		reviews:  deps.Reviews,
	}
}

// Routes wires the /admin endpoints onto the provided router.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(adminRole))
	}

	r.Post("/products", h.createProduct)
	r.Put("/products/{productId}", h.updateProduct)
	r.Delete("/products/{productId}", h.deleteProduct)

	r.Get("/coupons", h.listCoupons)
	r.Post("/coupons", h.createCoupon)
	r.Put("/coupons/{couponId}", h.updateCoupon)
	r.Delete("/coupons/{couponId}", h.deleteCoupon)

	r.Get("/delivery-zones", h.listZones)
	r.Put("/delivery-zones", h.upsertZone)
	r.Delete("/delivery-zones/{zoneId}", h.deleteZone)

	r.Get("/orders", h.listOrders)
	r.Post("/orders/{orderId}/status", h.transitionOrder)

	r.Get("/reviews/pending", h.listPendingReviews)
	r.Post("/reviews/{reviewId}/moderate", h.moderateReview)
}

// --- catalog ---------------------------------------------------------------

type productRequest struct {
	Slug          string                `json:"slug"`
	Name          string                `json:"name"`
	Description   string                `json:"description"`
	Category      string                `json:"category"`
	Brand         string                `json:"brand"`
	BasePrice     float64               `json:"base_price"`
	DiscountType  *string               `json:"discount_type"`
	DiscountValue float64               `json:"discount_value"`
	Images        []imagePayload        `json:"images"`
	VariantGroups []variantGroupPayload `json:"variant_groups"`
	Specs         map[string]string     `json:"specs"`
	StockCount    int                   `json:"stock_count"`
	Published     bool                  `json:"published"`
}

func (req productRequest) toProduct(id string) services.Product {
	product := services.Product{
		ID:            id,
		Slug:          strings.TrimSpace(req.Slug),
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Category:      strings.TrimSpace(req.Category),
		Brand:         strings.TrimSpace(req.Brand),
		BasePrice:     req.BasePrice,
		DiscountValue: req.DiscountValue,
		Images:        imagesFromPayload(req.Images),
		VariantGroups: variantGroupsFromPayload(req.VariantGroups),
		Specs:         req.Specs,
		StockCount:    req.StockCount,
		Published:     req.Published,
	}
	if req.DiscountType != nil {
		dt := domain.DiscountType(strings.TrimSpace(*req.DiscountType))
		product.DiscountType = &dt
	}
	return product
}

func (h *AdminHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	h.upsertProduct(w, r, "")
}

func (h *AdminHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	h.upsertProduct(w, r, chi.URLParam(r, "productId"))
}

func (h *AdminHandlers) upsertProduct(w http.ResponseWriter, r *http.Request, productID string) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req productRequest
	if err := decodeAdminBody(r, &req); err != nil {
		writeBodyParseError(ctx, w, err)
		return
	}

	product, err := h.catalog.UpsertProduct(ctx, services.UpsertProductCommand{
		Product: req.toProduct(productID),
		ActorID: adminActor(ctx),
	})
	if err != nil {
		h.writeAdminCatalogError(ctx, w, err)
		return
	}
	status := http.StatusOK
	if productID == "" {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, productResponse{Product: buildProductPayload(product)})
}

func (h *AdminHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}
	if err := h.catalog.DeleteProduct(ctx, chi.URLParam(r, "productId")); err != nil {
		h.writeAdminCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandlers) writeAdminCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogConflict):
		httpx.WriteError(ctx, w, httpx.NewError("product_conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrCatalogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "failed to serve catalog request", http.StatusInternalServerError))
	}
}

// --- coupons ---------------------------------------------------------------

type couponRequest struct {
	Code         string   `json:"code"`
	Description  string   `json:"description"`
	Type         string   `json:"type"`
	Value        float64  `json:"value"`
	FreeShipping bool     `json:"free_shipping"`
	MinSubtotal  float64  `json:"min_subtotal"`
	Categories   []string `json:"categories"`
	StartsAt     *string  `json:"starts_at"`
	EndsAt       *string  `json:"ends_at"`
	UsageLimit   int      `json:"usage_limit"`
	PerUserLimit int      `json:"per_user_limit"`
	Active       bool     `json:"active"`
}

func (req couponRequest) toCoupon(id string) (services.Coupon, error) {
	coupon := services.Coupon{
		ID:           id,
		Code:         req.Code,
		Description:  req.Description,
		Type:         domain.DiscountType(strings.TrimSpace(req.Type)),
		Value:        req.Value,
		FreeShipping: req.FreeShipping,
		MinSubtotal:  req.MinSubtotal,
		Categories:   req.Categories,
		UsageLimit:   req.UsageLimit,
		PerUserLimit: req.PerUserLimit,
		Active:       req.Active,
	}
	if req.StartsAt != nil {
		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.StartsAt))
		if err != nil {
			return services.Coupon{}, fmt.Errorf("starts_at must be an RFC3339 timestamp")
		}
		utc := ts.UTC()
		coupon.StartsAt = &utc
	}
	if req.EndsAt != nil {
		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.EndsAt))
		if err != nil {
			return services.Coupon{}, fmt.Errorf("ends_at must be an RFC3339 timestamp")
		}
		utc := ts.UTC()
		coupon.EndsAt = &utc
	}
	return coupon, nil
}

func (h *AdminHandlers) listCoupons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service is unavailable", http.StatusServiceUnavailable))
		return
	}

	filter := services.CouponListFilter{
		ActiveOnly: strings.TrimSpace(r.URL.Query().Get("active")) == "true",
		Pagination: parsePagination(r),
	}
	page, err := h.coupons.ListCoupons(ctx, filter)
	if err != nil {
		h.writeAdminCouponError(ctx, w, err)
		return
	}

	items := make([]couponPayload, 0, len(page.Items))
	for _, coupon := range page.Items {
		items = append(items, buildCouponPayload(coupon))
	}
	writeJSONResponse(w, http.StatusOK, couponListResponse{
		Coupons:       items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *AdminHandlers) createCoupon(w http.ResponseWriter, r *http.Request) {
	h.saveCoupon(w, r, "")
}

func (h *AdminHandlers) updateCoupon(w http.ResponseWriter, r *http.Request) {
	h.saveCoupon(w, r, chi.URLParam(r, "couponId"))
}

func (h *AdminHandlers) saveCoupon(w http.ResponseWriter, r *http.Request, couponID string) {
	ctx := r.Context()
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req couponRequest
	if err := decodeAdminBody(r, &req); err != nil {
		writeBodyParseError(ctx, w, err)
		return
	}
	coupon, err := req.toCoupon(couponID)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	cmd := services.UpsertCouponCommand{Coupon: coupon, ActorID: adminActor(ctx)}
	var saved services.Coupon
	if couponID == "" {
		saved, err = h.coupons.CreateCoupon(ctx, cmd)
	} else {
		saved, err = h.coupons.UpdateCoupon(ctx, cmd)
	}
	if err != nil {
		h.writeAdminCouponError(ctx, w, err)
		return
	}
	status := http.StatusOK
	if couponID == "" {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, couponItemResponse{Coupon: buildCouponPayload(saved)})
}

func (h *AdminHandlers) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service is unavailable", http.StatusServiceUnavailable))
		return
	}
	if err := h.coupons.DeleteCoupon(ctx, chi.URLParam(r, "couponId")); err != nil {
		h.writeAdminCouponError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandlers) writeAdminCouponError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCouponInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCouponNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_not_found", "coupon not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCouponConflict):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrCouponUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("coupon_error", "failed to serve coupon request", http.StatusInternalServerError))
	}
}

// --- delivery zones --------------------------------------------------------

type zoneRequest struct {
	ID            string   `json:"id"`
	PincodePrefix string   `json:"pincode_prefix"`
	Charge        float64  `json:"charge"`
	FreeAbove     *float64 `json:"free_above"`
	MinDays       int      `json:"min_days"`
	MaxDays       int      `json:"max_days"`
	Active        bool     `json:"active"`
}

func (h *AdminHandlers) listZones(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.delivery == nil {
		httpx.WriteError(ctx, w, httpx.NewError("delivery_service_unavailable", "delivery service is unavailable", http.StatusServiceUnavailable))
		return
	}

	page, err := h.delivery.ListZones(ctx, parsePagination(r))
	if err != nil {
		writeDeliveryServiceError(ctx, w, err)
		return
	}

	items := make([]zonePayload, 0, len(page.Items))
	for _, zone := range page.Items {
		items = append(items, buildZonePayload(zone))
	}
	writeJSONResponse(w, http.StatusOK, zoneListResponse{
		Zones:         items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *AdminHandlers) upsertZone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.delivery == nil {
		httpx.WriteError(ctx, w, httpx.NewError("delivery_service_unavailable", "delivery service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req zoneRequest
	if err := decodeAdminBody(r, &req); err != nil {
		writeBodyParseError(ctx, w, err)
		return
	}

	zone, err := h.delivery.UpsertZone(ctx, services.UpsertZoneCommand{
		Zone: services.DeliveryZone{
			ID:            strings.TrimSpace(req.ID),
			PincodePrefix: strings.TrimSpace(req.PincodePrefix),
			Charge:        req.Charge,
			FreeAbove:     req.FreeAbove,
			MinDays:       req.MinDays,
			MaxDays:       req.MaxDays,
			Active:        req.Active,
		},
		ActorID: adminActor(ctx),
	})
	if err != nil {
		writeDeliveryServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, zoneItemResponse{Zone: buildZonePayload(zone)})
}

func (h *AdminHandlers) deleteZone(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.delivery == nil {
		httpx.WriteError(ctx, w, httpx.NewError("delivery_service_unavailable", "delivery service is unavailable", http.StatusServiceUnavailable))
		return
	}
	if err := h.delivery.DeleteZone(ctx, chi.URLParam(r, "zoneId")); err != nil {
		writeDeliveryServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- orders ----------------------------------------------------------------

func (h *AdminHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	filter := services.OrderListFilter{
		UserID:     strings.TrimSpace(r.URL.Query().Get("user_id")),
		Pagination: parsePagination(r),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := domain.OrderStatus(raw)
		filter.Status = &status
	}

	page, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeOrderServiceError(ctx, w, err)
		return
	}

	items := make([]orderPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderPayload(order))
	}
	writeJSONResponse(w, http.StatusOK, orderListResponse{
		Orders:        items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *AdminHandlers) transitionOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := decodeAdminBody(r, &req); err != nil {
		writeBodyParseError(ctx, w, err)
		return
	}

	order, err := h.orders.TransitionStatus(ctx, services.OrderStatusTransitionCommand{
		OrderID:      chi.URLParam(r, "orderId"),
		TargetStatus: domain.OrderStatus(strings.TrimSpace(req.Status)),
		ActorID:      adminActor(ctx),
		Reason:       req.Reason,
	})
	if err != nil {
		writeOrderServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

// --- reviews ---------------------------------------------------------------

func (h *AdminHandlers) listPendingReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reviews == nil {
		httpx.WriteError(ctx, w, httpx.NewError("review_service_unavailable", "review service is unavailable", http.StatusServiceUnavailable))
		return
	}

	page, err := h.reviews.ListPending(ctx, parsePagination(r))
	if err != nil {
		writeReviewServiceError(ctx, w, err)
		return
	}

	items := make([]reviewPayload, 0, len(page.Items))
	for _, review := range page.Items {
		items = append(items, buildReviewPayload(review))
	}
	writeJSONResponse(w, http.StatusOK, reviewListResponse{
		Reviews:       items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *AdminHandlers) moderateReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reviews == nil {
		httpx.WriteError(ctx, w, httpx.NewError("review_service_unavailable", "review service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := decodeAdminBody(r, &req); err != nil {
		writeBodyParseError(ctx, w, err)
		return
	}

	review, err := h.reviews.Moderate(ctx, services.ModerateReviewCommand{
		ReviewID: chi.URLParam(r, "reviewId"),
		ActorID:  adminActor(ctx),
		Status:   domain.ReviewStatus(strings.TrimSpace(req.Status)),
	})
	if err != nil {
		writeReviewServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, reviewItemResponse{Review: buildReviewPayload(review)})
}

// --- shared ----------------------------------------------------------------

func decodeAdminBody(r *http.Request, dst any) error {
	body, err := readLimitedBody(r, maxAdminBodySize)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}
	return nil
}

func adminActor(ctx context.Context) string {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		return ""
	}
	return strings.TrimSpace(identity.UID)
}

func imagesFromPayload(images []imagePayload) []services.ProductImage {
	if len(images) == 0 {
		return nil
	}
	out := make([]services.ProductImage, 0, len(images))
	for _, img := range images {
		out = append(out, services.ProductImage{URL: strings.TrimSpace(img.URL), Alt: img.Alt})
	}
	return out
}

func variantGroupsFromPayload(groups []variantGroupPayload) []services.VariantGroup {
	if len(groups) == 0 {
		return nil
	}
	out := make([]services.VariantGroup, 0, len(groups))
	for _, group := range groups {
		options := make([]services.VariantOption, 0, len(group.Options))
		for _, opt := range group.Options {
			options = append(options, services.VariantOption{
				Value:         strings.TrimSpace(opt.Value),
				Label:         opt.Label,
				PriceModifier: opt.PriceModifier,
				Image:         strings.TrimSpace(opt.Image),
				SubGroups:     variantGroupsFromPayload(opt.SubGroups),
			})
		}
		out = append(out, services.VariantGroup{
			AttributeCode: strings.TrimSpace(group.AttributeCode),
			Label:         group.Label,
			Options:       options,
		})
	}
	return out
}

type couponListResponse struct {
	Coupons       []couponPayload `json:"coupons"`
	NextPageToken string          `json:"next_page_token,omitempty"`
}

type couponItemResponse struct {
	Coupon couponPayload `json:"coupon"`
}

type couponPayload struct {
	ID           string   `json:"id"`
	Code         string   `json:"code"`
	Description  string   `json:"description,omitempty"`
	Type         string   `json:"type"`
	Value        float64  `json:"value"`
	FreeShipping bool     `json:"free_shipping"`
	MinSubtotal  float64  `json:"min_subtotal,omitempty"`
	Categories   []string `json:"categories,omitempty"`
	StartsAt     string   `json:"starts_at,omitempty"`
	EndsAt       string   `json:"ends_at,omitempty"`
	UsageLimit   int      `json:"usage_limit,omitempty"`
	UsageCount   int      `json:"usage_count"`
	PerUserLimit int      `json:"per_user_limit,omitempty"`
	Active       bool     `json:"active"`
	UpdatedAt    string   `json:"updated_at,omitempty"`
}

func buildCouponPayload(coupon services.Coupon) couponPayload {
	payload := couponPayload{
		ID:           coupon.ID,
		Code:         coupon.Code,
		Description:  coupon.Description,
		Type:         string(coupon.Type),
		Value:        coupon.Value,
		FreeShipping: coupon.FreeShipping,
		MinSubtotal:  coupon.MinSubtotal,
		Categories:   coupon.Categories,
		UsageLimit:   coupon.UsageLimit,
		UsageCount:   coupon.UsageCount,
		PerUserLimit: coupon.PerUserLimit,
		Active:       coupon.Active,
		UpdatedAt:    formatTime(coupon.UpdatedAt),
	}
	if coupon.StartsAt != nil {
		payload.StartsAt = formatTime(*coupon.StartsAt)
	}
	if coupon.EndsAt != nil {
		payload.EndsAt = formatTime(*coupon.EndsAt)
	}
	return payload
}

type zoneListResponse struct {
	Zones         []zonePayload `json:"zones"`
	NextPageToken string        `json:"next_page_token,omitempty"`
}

type zoneItemResponse struct {
	Zone zonePayload `json:"zone"`
}

type zonePayload struct {
	ID            string   `json:"id"`
	PincodePrefix string   `json:"pincode_prefix"`
	Charge        float64  `json:"charge"`
	FreeAbove     *float64 `json:"free_above,omitempty"`
	MinDays       int      `json:"min_days"`
	MaxDays       int      `json:"max_days"`
	Active        bool     `json:"active"`
	UpdatedAt     string   `json:"updated_at,omitempty"`
}

func buildZonePayload(zone services.DeliveryZone) zonePayload {
	return zonePayload{
		ID:            zone.ID,
		PincodePrefix: zone.PincodePrefix,
		Charge:        zone.Charge,
		FreeAbove:     zone.FreeAbove,
		MinDays:       zone.MinDays,
		MaxDays:       zone.MaxDays,
		Active:        zone.Active,
		UpdatedAt:     formatTime(zone.UpdatedAt),
	}
}
