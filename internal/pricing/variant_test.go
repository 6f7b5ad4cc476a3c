package pricing

import (
	"testing"

	"github.com/nivasa-store/api/internal/domain"
)

func sampleGroups() []domain.VariantGroup {
	return []domain.VariantGroup{
		{
			AttributeCode: "size",
			Label:         "Size",
			Options: []domain.VariantOption{
				{Value: "standard", Label: "Standard"},
				{
					Value:         "large",
					Label:         "Large",
					PriceModifier: 500,
					SubGroups: []domain.VariantGroup{
						{
							AttributeCode: "colour",
							Label:         "Colour",
							Options: []domain.VariantOption{
								{Value: "blue", Label: "Blue", PriceModifier: 200, Image: "large-blue.jpg"},
								{Value: "grey", Label: "Grey", PriceModifier: 150},
							},
						},
					},
				},
			},
		},
		{
			AttributeCode: "finish",
			Label:         "Finish",
			Options: []domain.VariantOption{
				{Value: "matte", Label: "Matte", Image: "matte.jpg"},
				{Value: "gloss", Label: "Gloss", PriceModifier: 100, Image: "gloss.jpg"},
			},
		},
	}
}

func TestResolveNestedModifierReplacesParent(t *testing.T) {
	selection := map[string]string{"size": "large", "colour": "blue"}

	res := Resolve(sampleGroups(), selection)
	if res.TotalModifier != 200 {
		t.Fatalf("expected nested modifier 200 to replace parent 500, got %v", res.TotalModifier)
	}
}

func TestResolveSumsAcrossGroups(t *testing.T) {
	selection := map[string]string{"size": "large", "colour": "grey", "finish": "gloss"}

	res := Resolve(sampleGroups(), selection)
	if res.TotalModifier != 250 {
		t.Fatalf("expected 150+100=250, got %v", res.TotalModifier)
	}
}

func TestResolveStaleSelectionContributesNothing(t *testing.T) {
	selection := map[string]string{"size": "discontinued", "finish": "gloss"}

	res := Resolve(sampleGroups(), selection)
	if res.TotalModifier != 100 {
		t.Fatalf("expected stale size value to contribute zero, got %v", res.TotalModifier)
	}
}

func TestResolveEmptySelection(t *testing.T) {
	res := Resolve(sampleGroups(), nil)
	if res.TotalModifier != 0 || res.DisplayImage != "" {
		t.Fatalf("expected zero resolution for empty selection, got %+v", res)
	}
}

func TestResolveLastImageWins(t *testing.T) {
	selection := map[string]string{"size": "large", "colour": "blue", "finish": "matte"}

	res := Resolve(sampleGroups(), selection)
	if res.DisplayImage != "matte.jpg" {
		t.Fatalf("expected later group's image to win, got %q", res.DisplayImage)
	}

	// Without a finish image the nested colour image surfaces.
	selection = map[string]string{"size": "large", "colour": "blue"}
	res = Resolve(sampleGroups(), selection)
	if res.DisplayImage != "large-blue.jpg" {
		t.Fatalf("expected nested option image, got %q", res.DisplayImage)
	}
}

func TestDefaultSelectionDescendsNestedGroups(t *testing.T) {
	groups := sampleGroups()
	// Make the nested-bearing option the first so defaults must descend.
	groups[0].Options[0], groups[0].Options[1] = groups[0].Options[1], groups[0].Options[0]

	selection := DefaultSelection(groups)
	if selection["size"] != "large" {
		t.Fatalf("expected first size option, got %q", selection["size"])
	}
	if selection["colour"] != "blue" {
		t.Fatalf("expected nested default colour, got %q", selection["colour"])
	}
	if selection["finish"] != "matte" {
		t.Fatalf("expected first finish option, got %q", selection["finish"])
	}
}

func TestSelectClearsOrphanedNestedKeys(t *testing.T) {
	groups := sampleGroups()
	selection := map[string]string{"size": "large", "colour": "blue", "finish": "matte"}

	next := Select(groups, selection, "size", "standard")
	if _, ok := next["colour"]; ok {
		t.Fatalf("expected orphaned colour key to be cleared, got %+v", next)
	}
	if next["size"] != "standard" || next["finish"] != "matte" {
		t.Fatalf("unexpected selection after change: %+v", next)
	}
	if _, ok := selection["colour"]; !ok {
		t.Fatalf("expected original selection to be untouched")
	}
}

func TestSelectDefaultsNewlyExposedGroups(t *testing.T) {
	groups := sampleGroups()
	selection := map[string]string{"size": "standard", "finish": "matte"}

	next := Select(groups, selection, "size", "large")
	if next["colour"] != "blue" {
		t.Fatalf("expected nested colour to default, got %q", next["colour"])
	}
}
