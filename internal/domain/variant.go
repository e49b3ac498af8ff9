package domain

import "github.com/shopspring/decimal"

// VariantSource is anything variant resolution can price: a live Product or a
// cart snapshot of one.
type VariantSource interface {
	VariantList() []Variant
	LegacyPrice() decimal.Decimal
}

// ResolvedVariant is the concrete priced option for a size/color selection.
type ResolvedVariant struct {
	Size          string          `json:"size,omitempty"`
	Color         string          `json:"color,omitempty"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Stock         int             `json:"stock"`
	SKU           string          `json:"sku,omitempty"`
	CartonSize    int             `json:"carton_size"`

	// Synthetic is set when the product has no variants and the result was built
	// from the legacy price. Stock is not tracked for synthetic variants.
	Synthetic bool `json:"synthetic"`
}

// StockTracked reports whether Stock is meaningful.
func (r ResolvedVariant) StockTracked() bool { return !r.Synthetic }

// ResolveVariant maps a size/color selection to a priced variant.
//
// With both size and color the exact pair must exist. With neither, the cheapest
// variant is returned, ties going to the earliest one. With only one of them, the
// first variant carrying that attribute is returned. A product without variants
// resolves to a synthetic variant at its legacy price with no discount.
func ResolveVariant(src VariantSource, size, color string) (ResolvedVariant, bool) {
	variants := src.VariantList()
	if len(variants) == 0 {
		price := src.LegacyPrice()
		return ResolvedVariant{
			Size:          size,
			Color:         color,
			Price:         price,
			OriginalPrice: price,
			Synthetic:     true,
		}, true
	}

	i := selectVariant(variants, size, color)
	if i < 0 {
		return ResolvedVariant{}, false
	}
	return resolved(variants[i]), true
}

func selectVariant(variants []Variant, size, color string) int {
	switch {
	case size != "" && color != "":
		for i, v := range variants {
			if v.Matches(size, color) {
				return i
			}
		}
		return -1

	case size == "" && color == "":
		if len(variants) == 0 {
			return -1
		}
		cheapest := 0
		for i := 1; i < len(variants); i++ {
			if variants[i].Price.LessThan(variants[cheapest].Price) {
				cheapest = i
			}
		}
		return cheapest

	default:
		for i, v := range variants {
			if (size != "" && v.Size == size) || (color != "" && v.Color == color) {
				return i
			}
		}
		return -1
	}
}

func resolved(v Variant) ResolvedVariant {
	original := v.OriginalPrice
	if !original.IsPositive() {
		original = v.Price
	}
	return ResolvedVariant{
		Size:          v.Size,
		Color:         v.Color,
		Price:         v.Price,
		OriginalPrice: original,
		Stock:         v.Stock,
		SKU:           v.SKU,
		CartonSize:    v.CartonSize,
	}
}

var half = decimal.NewFromFloat(0.5)

// DiscountPercentage returns round(100 * (original - price) / original), halves
// rounding up toward positive infinity (-2.5 gives -2). A missing or non-positive
// original yields 0. Prices above the original give a negative percentage;
// callers hide the badge for anything <= 0.
func DiscountPercentage(original, price decimal.Decimal) int {
	if !original.IsPositive() {
		return 0
	}
	pct := original.Sub(price).Mul(decimal.NewFromInt(100)).Div(original).Add(half).Floor()
	return int(pct.IntPart())
}
