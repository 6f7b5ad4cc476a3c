package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/nivasa-store/api/internal/domain"
)

func newTestCatalogService(t *testing.T, deps CatalogServiceDeps) CatalogService {
	t.Helper()
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "product-1" }
	}
	service, err := NewCatalogService(deps)
	if err != nil {
		t.Fatalf("unexpected error constructing catalog service: %v", err)
	}
	return service
}

func configurableTable() domain.Product {
	return domain.Product{
		ID:        "table-1",
		Slug:      "noor-table",
		Name:      "Noor Table",
		Category:  "tables",
		BasePrice: 10000,
		Images:    []domain.ProductImage{{URL: "https://img.example/table.jpg"}},
		VariantGroups: []domain.VariantGroup{
			{
				AttributeCode: "wood",
				Options: []domain.VariantOption{
					{Value: "teak", PriceModifier: 0},
					{
						Value:         "oak",
						PriceModifier: 500,
						Image:         "https://img.example/table-oak.jpg",
						SubGroups: []domain.VariantGroup{
							{
								AttributeCode: "finish",
								Options: []domain.VariantOption{
									{Value: "natural", PriceModifier: 0},
									{Value: "matte", PriceModifier: 200},
								},
							},
						},
					},
				},
			},
		},
		StockCount: 5,
		Published:  true,
	}
}

func TestCatalogServiceQuoteVariant(t *testing.T) {
	product := configurableTable()
	service := newTestCatalogService(t, CatalogServiceDeps{
		Repository: productRepositoryWith(product),
	})

	quote, err := service.QuoteVariant(context.Background(), QuoteVariantCommand{
		ProductID: "table-1",
		Selection: map[string]string{"wood": "oak", "finish": "matte"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The finish choice replaces the oak modifier.
	if quote.Resolution.TotalModifier != 200 {
		t.Fatalf("expected modifier 200, got %v", quote.Resolution.TotalModifier)
	}
	if quote.Price.Raw != 10200 {
		t.Fatalf("expected raw price 10200, got %v", quote.Price.Raw)
	}
	if quote.DisplayImage != "https://img.example/table-oak.jpg" {
		t.Fatalf("expected option image, got %q", quote.DisplayImage)
	}
}

func TestCatalogServiceQuoteVariantIgnoresStaleSelection(t *testing.T) {
	product := configurableTable()
	service := newTestCatalogService(t, CatalogServiceDeps{
		Repository: productRepositoryWith(product),
	})

	quote, err := service.QuoteVariant(context.Background(), QuoteVariantCommand{
		ProductID: "table-1",
		Selection: map[string]string{"wood": "walnut", "legs": "hairpin"},
	})
	if err != nil {
		t.Fatalf("stale selections must not error: %v", err)
	}
	if quote.Resolution.TotalModifier != 0 {
		t.Fatalf("stale entries contribute nothing, got %v", quote.Resolution.TotalModifier)
	}
	if quote.Price.Raw != 10000 {
		t.Fatalf("expected base price, got %v", quote.Price.Raw)
	}
	if quote.DisplayImage != "https://img.example/table.jpg" {
		t.Fatalf("expected product image fallback, got %q", quote.DisplayImage)
	}
}

func TestCatalogServiceSelectVariantDefaultsExposedGroups(t *testing.T) {
	product := configurableTable()
	service := newTestCatalogService(t, CatalogServiceDeps{
		Repository: productRepositoryWith(product),
	})

	quote, err := service.SelectVariant(context.Background(), SelectVariantCommand{
		ProductID: "table-1",
		Selection: map[string]string{"wood": "teak"},
		Attribute: "wood",
		Value:     "oak",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Selection["wood"] != "oak" {
		t.Fatalf("expected wood=oak, got %v", quote.Selection)
	}
	if quote.Selection["finish"] != "natural" {
		t.Fatalf("newly exposed finish group must default, got %v", quote.Selection)
	}
}

func TestCatalogServiceSelectVariantClearsOrphanedChoices(t *testing.T) {
	product := configurableTable()
	service := newTestCatalogService(t, CatalogServiceDeps{
		Repository: productRepositoryWith(product),
	})

	quote, err := service.SelectVariant(context.Background(), SelectVariantCommand{
		ProductID: "table-1",
		Selection: map[string]string{"wood": "oak", "finish": "matte"},
		Attribute: "wood",
		Value:     "teak",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := quote.Selection["finish"]; ok {
		t.Fatalf("finish choice is orphaned by teak, got %v", quote.Selection)
	}
	if quote.Resolution.TotalModifier != 0 {
		t.Fatalf("expected modifier 0, got %v", quote.Resolution.TotalModifier)
	}
}

func TestCatalogServiceCompareProducts(t *testing.T) {
	table := configurableTable()
	hidden := sofaProduct()
	hidden.ID = "hidden-1"
	hidden.Published = false
	sofa := sofaProduct()

	repo := &stubProductRepository{
		findByIDsFunc: func(ctx context.Context, productIDs []string) ([]domain.Product, error) {
			return []domain.Product{table, sofa, hidden}, nil
		},
	}
	service := newTestCatalogService(t, CatalogServiceDeps{Repository: repo})

	comparisons, err := service.CompareProducts(context.Background(), []string{"table-1", "sofa-1", "hidden-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(comparisons) != 2 {
		t.Fatalf("unpublished products are dropped, got %d entries", len(comparisons))
	}

	_, err = service.CompareProducts(context.Background(), []string{"table-1"})
	if !errors.Is(err, ErrCatalogInvalidInput) {
		t.Fatalf("expected ErrCatalogInvalidInput for single product, got %v", err)
	}
}

func TestCatalogServiceUpsertProductValidation(t *testing.T) {
	service := newTestCatalogService(t, CatalogServiceDeps{Repository: &stubProductRepository{}})

	base := configurableTable()

	missingName := base
	missingName.Name = " "
	if _, err := service.UpsertProduct(context.Background(), UpsertProductCommand{Product: missingName}); !errors.Is(err, ErrCatalogInvalidInput) {
		t.Fatalf("expected ErrCatalogInvalidInput for missing name, got %v", err)
	}

	negativePrice := base
	negativePrice.BasePrice = -1
	if _, err := service.UpsertProduct(context.Background(), UpsertProductCommand{Product: negativePrice}); !errors.Is(err, ErrCatalogInvalidInput) {
		t.Fatalf("expected ErrCatalogInvalidInput for negative price, got %v", err)
	}

	duplicateGroup := base
	duplicateGroup.VariantGroups = append([]domain.VariantGroup{}, base.VariantGroups...)
	duplicateGroup.VariantGroups = append(duplicateGroup.VariantGroups, domain.VariantGroup{
		AttributeCode: "wood",
		Options:       []domain.VariantOption{{Value: "pine"}},
	})
	if _, err := service.UpsertProduct(context.Background(), UpsertProductCommand{Product: duplicateGroup}); !errors.Is(err, ErrCatalogInvalidInput) {
		t.Fatalf("expected ErrCatalogInvalidInput for duplicate attribute, got %v", err)
	}
}

func TestCatalogServiceGetProduct(t *testing.T) {
	service := newTestCatalogService(t, CatalogServiceDeps{
		Repository: productRepositoryWith(configurableTable()),
	})

	product, err := service.GetProduct(context.Background(), "table-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if product.Slug != "noor-table" {
		t.Fatalf("unexpected product %+v", product)
	}

	_, err = service.GetProduct(context.Background(), "ghost")
	if !errors.Is(err, ErrCatalogNotFound) {
		t.Fatalf("expected ErrCatalogNotFound, got %v", err)
	}
}
