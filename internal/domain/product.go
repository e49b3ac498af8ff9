package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidVariantPrice         = errors.New("variant price must be greater than zero")
	ErrInvalidVariantOriginalPrice = errors.New("variant original price must not be lower than price")
	ErrInvalidVariantStock         = errors.New("variant stock must not be negative")
	ErrDuplicateVariant            = errors.New("duplicate variant size/color pair")
	ErrVariantNotFound             = errors.New("no variant matches the selected size and color")
	ErrInsufficientStock           = errors.New("insufficient stock")
)

// Variant is a priced, stocked option of a product distinguished by size and color.
type Variant struct {
	Size          string          `json:"size,omitempty"`
	Color         string          `json:"color,omitempty"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Stock         int             `json:"stock"`
	SKU           string          `json:"sku,omitempty"`
	CartonSize    int             `json:"carton_size"`
}

// Matches reports whether the variant carries exactly the given size and color.
func (v Variant) Matches(size, color string) bool {
	return v.Size == size && v.Color == color
}

// Product represents a product in the catalog.
//
// Price, OriginalPrice and Discount are a denormalized projection of the cheapest
// variant, refreshed by SyncLegacyPricing on every write.
type Product struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Brand         string          `json:"brand"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	Rating        float64         `json:"rating"`
	Reviews       int             `json:"reviews"`
	Media         []string        `json:"media"`
	Variants      []Variant       `json:"variants"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Discount      int             `json:"discount"`
	IsNew         bool            `json:"is_new"`
	IsBestseller  bool            `json:"is_bestseller"`
	IsFeatured    bool            `json:"is_featured"`
	IsPublished   bool            `json:"is_published"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// VariantList implements VariantSource.
func (p *Product) VariantList() []Variant { return p.Variants }

// LegacyPrice implements VariantSource.
func (p *Product) LegacyPrice() decimal.Decimal { return p.Price }

// HasVariants reports whether stock is tracked per variant for this product.
func (p *Product) HasVariants() bool { return len(p.Variants) > 0 }

// SyncLegacyPricing refreshes the top-level price fields from the cheapest variant.
func (p *Product) SyncLegacyPricing() {
	if len(p.Variants) == 0 {
		if p.OriginalPrice.LessThan(p.Price) {
			p.OriginalPrice = p.Price
		}
		p.Discount = DiscountPercentage(p.OriginalPrice, p.Price)
		return
	}

	cheapest, _ := ResolveVariant(p, "", "")
	p.Price = cheapest.Price
	p.OriginalPrice = cheapest.OriginalPrice
	p.Discount = DiscountPercentage(cheapest.OriginalPrice, cheapest.Price)
}

// ValidateVariants checks the per-variant invariants, including uniqueness of the
// (size, color) pair.
func (p *Product) ValidateVariants() error {
	seen := make(map[[2]string]struct{}, len(p.Variants))
	for i, v := range p.Variants {
		if !v.Price.IsPositive() {
			return fmt.Errorf("variant %d: %w", i, ErrInvalidVariantPrice)
		}
		if !v.OriginalPrice.IsZero() && v.OriginalPrice.LessThan(v.Price) {
			return fmt.Errorf("variant %d: %w", i, ErrInvalidVariantOriginalPrice)
		}
		if v.Stock < 0 {
			return fmt.Errorf("variant %d: %w", i, ErrInvalidVariantStock)
		}
		key := [2]string{v.Size, v.Color}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("variant %d (%q, %q): %w", i, v.Size, v.Color, ErrDuplicateVariant)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// SelectVariant returns the index of the variant ResolveVariant picks for the
// selection, or -1.
func (p *Product) SelectVariant(size, color string) int {
	return selectVariant(p.Variants, size, color)
}

// ReserveStock takes qty units from the variant the selection resolves to.
// Products without variants do not track stock and always succeed. Nothing is
// changed when the reservation fails.
func (p *Product) ReserveStock(size, color string, qty int) error {
	if !p.HasVariants() {
		return nil
	}
	i := p.SelectVariant(size, color)
	if i < 0 {
		return fmt.Errorf("product %s (%q, %q): %w", p.ID, size, color, ErrVariantNotFound)
	}
	newStock := p.Variants[i].Stock - qty
	if newStock < 0 {
		return fmt.Errorf("product %s (%q, %q) has %d, requested %d: %w",
			p.ID, size, color, p.Variants[i].Stock, qty, ErrInsufficientStock)
	}
	p.Variants[i].Stock = newStock
	return nil
}

// Category represents a product category
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Banner is a promotional image shown on the storefront home screen.
type Banner struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	ImageURL  string    `json:"image_url"`
	Link      string    `json:"link"`
	Position  int       `json:"position"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
