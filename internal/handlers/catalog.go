package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nivasa-store/api/internal/platform/httpx"
	"github.com/nivasa-store/api/internal/repositories"
	"github.com/nivasa-store/api/internal/services"
)

const maxCatalogBodySize = 16 * 1024

// CatalogHandlers exposes the public product catalog, variant pricing and
// comparison endpoints.
type CatalogHandlers struct {
	catalog services.CatalogService
}

// NewCatalogHandlers constructs the public catalog handlers.
func NewCatalogHandlers(catalog services.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog}
}

// Routes wires the /products endpoints onto the provided router.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listProducts)
	r.Get("/compare", h.compareProducts)
	r.Get("/slug/{slug}", h.getProductBySlug)
	r.Get("/{productId}", h.getProduct)
	r.Post("/{productId}/quote", h.quoteVariant)
	r.Post("/{productId}/select", h.selectVariant)
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	filter := repositories.ProductListFilter{
		Category:   strings.TrimSpace(r.URL.Query().Get("category")),
		Pagination: parsePagination(r),
	}
	// Public listings only ever show published products.
	filter.PublishedOnly = true
	filter.Brand = strings.TrimSpace(r.URL.Query().Get("brand"))
	filter.Search = strings.TrimSpace(r.URL.Query().Get("q"))

	page, err := h.catalog.ListProducts(ctx, filter)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	items := make([]productSummaryPayload, 0, len(page.Items))
	for _, product := range page.Items {
		items = append(items, buildProductSummaryPayload(product))
	}
	writeJSONResponse(w, http.StatusOK, productListResponse{
		Products:      items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *CatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "productId"))
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, productResponse{Product: buildProductPayload(product)})
}

func (h *CatalogHandlers) getProductBySlug(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	product, err := h.catalog.GetProductBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, productResponse{Product: buildProductPayload(product)})
}

func (h *CatalogHandlers) quoteVariant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	req, err := parseVariantRequest(r)
	if err != nil {
		writeBodyParseError(ctx, w, err)
		return
	}

	quote, err := h.catalog.QuoteVariant(ctx, services.QuoteVariantCommand{
		ProductID: chi.URLParam(r, "productId"),
		Selection: req.Selection,
	})
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildVariantQuotePayload(quote))
}

func (h *CatalogHandlers) selectVariant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	req, err := parseVariantRequest(r)
	if err != nil {
		writeBodyParseError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.Attribute) == "" || strings.TrimSpace(req.Value) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "attribute and value are required", http.StatusBadRequest))
		return
	}

	quote, err := h.catalog.SelectVariant(ctx, services.SelectVariantCommand{
		ProductID: chi.URLParam(r, "productId"),
		Selection: req.Selection,
		Attribute: req.Attribute,
		Value:     req.Value,
	})
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildVariantQuotePayload(quote))
}

func (h *CatalogHandlers) compareProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("ids"))
	if raw == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "ids query parameter is required", http.StatusBadRequest))
		return
	}
	ids := strings.Split(raw, ",")

	comparisons, err := h.catalog.CompareProducts(ctx, ids)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	items := make([]comparisonPayload, 0, len(comparisons))
	for _, cmp := range comparisons {
		items = append(items, comparisonPayload{
			Product:  buildProductSummaryPayload(cmp.Product),
			Price:    cmp.Price.Display,
			RawPrice: cmp.Price.Raw,
			Specs:    cmp.Specs,
		})
	}
	writeJSONResponse(w, http.StatusOK, comparisonResponse{Products: items})
}

func (h *CatalogHandlers) writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "failed to serve catalog request", http.StatusInternalServerError))
	}
}

func writeBodyParseError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

type variantRequest struct {
	Selection map[string]string `json:"selection"`
	Attribute string            `json:"attribute"`
	Value     string            `json:"value"`
}

func parseVariantRequest(r *http.Request) (variantRequest, error) {
	var req variantRequest
	body, err := readLimitedBody(r, maxCatalogBodySize)
	if err != nil {
		if errors.Is(err, errEmptyBody) {
			return req, nil
		}
		return req, err
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("invalid JSON payload: %w", err)
	}
	return req, nil
}

type productListResponse struct {
	Products      []productSummaryPayload `json:"products"`
	NextPageToken string                  `json:"next_page_token,omitempty"`
}

type productResponse struct {
	Product productPayload `json:"product"`
}

type comparisonResponse struct {
	Products []comparisonPayload `json:"products"`
}

type comparisonPayload struct {
	Product  productSummaryPayload `json:"product"`
	Price    float64               `json:"price"`
	RawPrice float64               `json:"raw_price"`
	Specs    map[string]string     `json:"specs,omitempty"`
}

type productSummaryPayload struct {
	ID        string  `json:"id"`
	Slug      string  `json:"slug,omitempty"`
	Name      string  `json:"name"`
	Category  string  `json:"category,omitempty"`
	Brand     string  `json:"brand,omitempty"`
	Image     string  `json:"image,omitempty"`
	BasePrice float64 `json:"base_price"`
}

type productPayload struct {
	ID            string                `json:"id"`
	Slug          string                `json:"slug"`
	Name          string                `json:"name"`
	Description   string                `json:"description,omitempty"`
	Category      string                `json:"category,omitempty"`
	Brand         string                `json:"brand,omitempty"`
	BasePrice     float64               `json:"base_price"`
	DiscountType  string                `json:"discount_type,omitempty"`
	DiscountValue float64               `json:"discount_value,omitempty"`
	Images        []imagePayload        `json:"images,omitempty"`
	VariantGroups []variantGroupPayload `json:"variant_groups,omitempty"`
	Specs         map[string]string     `json:"specs,omitempty"`
	InStock       bool                  `json:"in_stock"`
	Published     bool                  `json:"published"`
	UpdatedAt     string                `json:"updated_at,omitempty"`
}

type imagePayload struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

type variantGroupPayload struct {
	AttributeCode string                 `json:"attribute_code"`
	Label         string                 `json:"label,omitempty"`
	Options       []variantOptionPayload `json:"options"`
}

type variantOptionPayload struct {
	Value         string                `json:"value"`
	Label         string                `json:"label,omitempty"`
	PriceModifier float64               `json:"price_modifier"`
	Image         string                `json:"image,omitempty"`
	SubGroups     []variantGroupPayload `json:"sub_groups,omitempty"`
}

type variantQuotePayload struct {
	ProductID     string            `json:"product_id"`
	Selection     map[string]string `json:"selection"`
	TotalModifier float64           `json:"total_modifier"`
	DisplayPrice  float64           `json:"display_price"`
	RawPrice      float64           `json:"raw_price"`
	DisplayImage  string            `json:"display_image,omitempty"`
}

func buildProductSummaryPayload(product services.Product) productSummaryPayload {
	image := ""
	if len(product.Images) > 0 {
		image = product.Images[0].URL
	}
	return productSummaryPayload{
		ID:        product.ID,
		Slug:      product.Slug,
		Name:      product.Name,
		Category:  product.Category,
		Brand:     product.Brand,
		Image:     image,
		BasePrice: product.BasePrice,
	}
}

func buildProductPayload(product services.Product) productPayload {
	payload := productPayload{
		ID:            product.ID,
		Slug:          product.Slug,
		Name:          product.Name,
		Description:   product.Description,
		Category:      product.Category,
		Brand:         product.Brand,
		BasePrice:     product.BasePrice,
		DiscountValue: product.DiscountValue,
		Images:        buildImagePayloads(product.Images),
		VariantGroups: buildVariantGroupPayloads(product.VariantGroups),
		Specs:         product.Specs,
		InStock:       product.StockCount > 0,
		Published:     product.Published,
		UpdatedAt:     formatTime(product.UpdatedAt),
	}
	if product.DiscountType != nil {
		payload.DiscountType = string(*product.DiscountType)
	}
	return payload
}

func buildImagePayloads(images []services.ProductImage) []imagePayload {
	if len(images) == 0 {
		return nil
	}
	out := make([]imagePayload, 0, len(images))
	for _, img := range images {
		out = append(out, imagePayload{URL: img.URL, Alt: img.Alt})
	}
	return out
}

func buildVariantGroupPayloads(groups []services.VariantGroup) []variantGroupPayload {
	if len(groups) == 0 {
		return nil
	}
	out := make([]variantGroupPayload, 0, len(groups))
	for _, group := range groups {
		options := make([]variantOptionPayload, 0, len(group.Options))
		for _, opt := range group.Options {
			options = append(options, variantOptionPayload{
				Value:         opt.Value,
				Label:         opt.Label,
				PriceModifier: opt.PriceModifier,
				Image:         opt.Image,
				SubGroups:     buildVariantGroupPayloads(opt.SubGroups),
			})
		}
		out = append(out, variantGroupPayload{
			AttributeCode: group.AttributeCode,
			Label:         group.Label,
			Options:       options,
		})
	}
	return out
}

func buildVariantQuotePayload(quote services.VariantQuote) variantQuotePayload {
	return variantQuotePayload{
		ProductID:     quote.ProductID,
		Selection:     quote.Selection,
		TotalModifier: quote.Resolution.TotalModifier,
		DisplayPrice:  quote.Price.Display,
		RawPrice:      quote.Price.Raw,
		DisplayImage:  quote.DisplayImage,
	}
}
