package domain

// VariantResolution is the outcome of walking a product's variant tree with a
// selection: the summed price modifier and the image the UI should display.
type VariantResolution struct {
	TotalModifier float64
	DisplayImage  string
}

// PriceQuote is a composed product price. Display is rounded to the nearest
// whole rupee for presentation; Raw keeps the unrounded value so that carts
// freeze a price that does not compound rounding error across quantities.
type PriceQuote struct {
	Display float64
	Raw     float64
}
