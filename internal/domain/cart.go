package domain

import "github.com/shopspring/decimal"

// ProductSnapshot is the copy of a product a cart line keeps from the moment it was
// added. Later catalog edits do not reach it.
type ProductSnapshot struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Brand         string          `json:"brand"`
	Image         string          `json:"image,omitempty"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Variants      []Variant       `json:"variants"`
}

// NewProductSnapshot copies the fields of p needed for display and pricing.
func NewProductSnapshot(p *Product) ProductSnapshot {
	s := ProductSnapshot{
		ID:            p.ID,
		Title:         p.Title,
		Brand:         p.Brand,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
	}
	if len(p.Media) > 0 {
		s.Image = p.Media[0]
	}
	if len(p.Variants) > 0 {
		s.Variants = make([]Variant, len(p.Variants))
		copy(s.Variants, p.Variants)
	}
	return s
}

// VariantList implements VariantSource.
func (s ProductSnapshot) VariantList() []Variant { return s.Variants }

// LegacyPrice implements VariantSource.
func (s ProductSnapshot) LegacyPrice() decimal.Decimal { return s.Price }

// HasVariants reports whether stock is tracked per variant for the snapshot.
func (s ProductSnapshot) HasVariants() bool { return len(s.Variants) > 0 }

// CartItem is one (product, size, color) selection held in the session cart.
type CartItem struct {
	Product       ProductSnapshot `json:"product"`
	SelectedSize  string          `json:"selected_size,omitempty"`
	SelectedColor string          `json:"selected_color,omitempty"`
	Quantity      int             `json:"quantity"`
}

// SameLine reports whether the item is identified by the given key.
func (c CartItem) SameLine(productID, size, color string) bool {
	return c.Product.ID == productID && c.SelectedSize == size && c.SelectedColor == color
}

// UnitPrice is the resolved variant price, or the legacy price when the selection
// no longer matches any variant.
func (c CartItem) UnitPrice() decimal.Decimal {
	if v, ok := ResolveVariant(c.Product, c.SelectedSize, c.SelectedColor); ok {
		return v.Price
	}
	return c.Product.Price
}

// LineTotal is UnitPrice multiplied by the quantity.
func (c CartItem) LineTotal() decimal.Decimal {
	return c.UnitPrice().Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// Clone returns a deep copy that shares no slices with c.
func (c CartItem) Clone() CartItem {
	out := c
	if c.Product.Variants != nil {
		out.Product.Variants = make([]Variant, len(c.Product.Variants))
		copy(out.Product.Variants, c.Product.Variants)
	}
	return out
}
