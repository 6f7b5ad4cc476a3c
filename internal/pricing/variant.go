// Package pricing implements the storefront price model: variant resolution,
// price composition and cart settlement. It is pure computation with no
// transport, storage or framework dependencies so every rule is testable in
// isolation.
package pricing

import (
	"github.com/nivasa-store/api/internal/domain"
)

// Resolve walks the variant tree with a selection and returns the summed
// price modifier plus the image the UI should display. Groups are visited in
// declaration order and the last selected option carrying an image wins.
// Selection entries that no longer match any option contribute nothing;
// resolution never fails.
func Resolve(groups []domain.VariantGroup, selection map[string]string) domain.VariantResolution {
	var res domain.VariantResolution
	for _, group := range groups {
		modifier, image, ok := resolveGroup(group, selection)
		if !ok {
			continue
		}
		res.TotalModifier += modifier
		if image != "" {
			res.DisplayImage = image
		}
	}
	return res
}

func resolveGroup(group domain.VariantGroup, selection map[string]string) (float64, string, bool) {
	value, ok := selection[group.AttributeCode]
	if !ok || value == "" {
		return 0, "", false
	}
	for _, opt := range group.Options {
		if opt.Value != value {
			continue
		}
		if len(opt.SubGroups) == 0 {
			return opt.PriceModifier, opt.Image, true
		}
		// Nested groups supersede the parent option's own modifier; only the
		// innermost selected leaves count.
		nested := Resolve(opt.SubGroups, selection)
		image := nested.DisplayImage
		if image == "" {
			image = opt.Image
		}
		return nested.TotalModifier, image, true
	}
	return 0, "", false
}

// DefaultSelection picks the first option of every group, descending into the
// chosen option's nested groups so that a fresh product page always starts
// from a fully resolvable selection.
func DefaultSelection(groups []domain.VariantGroup) map[string]string {
	selection := make(map[string]string)
	fillDefaults(groups, selection)
	return selection
}

func fillDefaults(groups []domain.VariantGroup, selection map[string]string) {
	for _, group := range groups {
		if len(group.Options) == 0 {
			continue
		}
		if _, ok := selection[group.AttributeCode]; !ok {
			selection[group.AttributeCode] = group.Options[0].Value
		}
		if opt := findOption(group, selection[group.AttributeCode]); opt != nil {
			fillDefaults(opt.SubGroups, selection)
		}
	}
}

// Select returns a new selection with the attribute set to value. Keys that
// are no longer reachable in the tree (nested selections orphaned by a parent
// change) are dropped, and nested groups newly exposed by the change receive
// their default option.
func Select(groups []domain.VariantGroup, selection map[string]string, attribute, value string) map[string]string {
	next := make(map[string]string, len(selection)+1)
	for k, v := range selection {
		next[k] = v
	}
	next[attribute] = value

	reachable := make(map[string]struct{})
	markReachable(groups, next, reachable)
	for k := range next {
		if _, ok := reachable[k]; !ok {
			delete(next, k)
		}
	}
	fillDefaults(groups, next)
	return next
}

func markReachable(groups []domain.VariantGroup, selection map[string]string, reachable map[string]struct{}) {
	for _, group := range groups {
		reachable[group.AttributeCode] = struct{}{}
		if opt := findOption(group, selection[group.AttributeCode]); opt != nil {
			markReachable(opt.SubGroups, selection, reachable)
		}
	}
}

func findOption(group domain.VariantGroup, value string) *domain.VariantOption {
	for i := range group.Options {
		if group.Options[i].Value == value {
			return &group.Options[i]
		}
	}
	return nil
}
