package domain

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func shirt() *Product {
	return &Product{
		ID:    "p1",
		Title: "Shirt",
		Price: dec(999),
		Variants: []Variant{
			{Size: "M", Color: "red", Price: dec(500), OriginalPrice: dec(600), Stock: 4, SKU: "SH-M-R"},
			{Size: "L", Color: "red", Price: dec(450), OriginalPrice: dec(500), Stock: 2, SKU: "SH-L-R"},
			{Size: "L", Color: "blue", Price: dec(450), Stock: 7, SKU: "SH-L-B"},
		},
	}
}

func TestResolveVariant_ExactMatch(t *testing.T) {
	v, ok := ResolveVariant(shirt(), "L", "blue")
	if !ok {
		t.Fatal("expected L/blue to resolve")
	}
	if v.SKU != "SH-L-B" || v.Stock != 7 {
		t.Errorf("resolved wrong variant: %+v", v)
	}
	// Missing original price reports no discount.
	if !v.OriginalPrice.Equal(v.Price) {
		t.Errorf("original price = %s, want %s", v.OriginalPrice, v.Price)
	}
}

func TestResolveVariant_ExactMatchMissing(t *testing.T) {
	if _, ok := ResolveVariant(shirt(), "XL", "red"); ok {
		t.Error("XL/red must not resolve")
	}
}

func TestResolveVariant_CheapestTieGoesToFirst(t *testing.T) {
	v, ok := ResolveVariant(shirt(), "", "")
	if !ok {
		t.Fatal("expected cheapest variant")
	}
	if v.SKU != "SH-L-R" {
		t.Errorf("tie must go to the first minimum, got %s", v.SKU)
	}
}

func TestResolveVariant_PartialSelection(t *testing.T) {
	v, ok := ResolveVariant(shirt(), "", "blue")
	if !ok || v.SKU != "SH-L-B" {
		t.Errorf("color-only selection resolved %+v (ok=%v)", v, ok)
	}
	v, ok = ResolveVariant(shirt(), "M", "")
	if !ok || v.SKU != "SH-M-R" {
		t.Errorf("size-only selection resolved %+v (ok=%v)", v, ok)
	}
}

func TestResolveVariant_NoVariantsFallsBackToLegacyPrice(t *testing.T) {
	p := &Product{ID: "p2", Price: dec(250), OriginalPrice: dec(300)}
	v, ok := ResolveVariant(p, "M", "red")
	if !ok {
		t.Fatal("product without variants must resolve")
	}
	if !v.Synthetic || v.StockTracked() {
		t.Error("expected synthetic, untracked variant")
	}
	if !v.Price.Equal(dec(250)) || !v.OriginalPrice.Equal(dec(250)) {
		t.Errorf("synthetic pricing = %s/%s, want 250/250", v.Price, v.OriginalPrice)
	}
}

func TestDiscountPercentage(t *testing.T) {
	cases := []struct {
		original, price int64
		want            int
	}{
		{100, 80, 20},
		{0, 50, 0},
		{100, 120, -20}, // characterized: no clamp
		{600, 500, 17},
		{100, 100, 0},
	}
	for _, c := range cases {
		if got := DiscountPercentage(dec(c.original), dec(c.price)); got != c.want {
			t.Errorf("DiscountPercentage(%d, %d) = %d, want %d", c.original, c.price, got, c.want)
		}
	}

	halves := []struct {
		original, price string
		want            int
	}{
		{"8", "7.8", 3},  // 2.5
		{"8", "8.2", -2}, // -2.5 rounds up, not away from zero
		{"8", "8.28", -3},
	}
	for _, c := range halves {
		got := DiscountPercentage(decimal.RequireFromString(c.original), decimal.RequireFromString(c.price))
		if got != c.want {
			t.Errorf("DiscountPercentage(%s, %s) = %d, want %d", c.original, c.price, got, c.want)
		}
	}
}

func TestSyncLegacyPricing(t *testing.T) {
	p := shirt()
	p.SyncLegacyPricing()
	if !p.Price.Equal(dec(450)) || !p.OriginalPrice.Equal(dec(500)) || p.Discount != 10 {
		t.Errorf("legacy pricing = %s/%s/%d, want 450/500/10", p.Price, p.OriginalPrice, p.Discount)
	}
}

func TestValidateVariants(t *testing.T) {
	p := shirt()
	if err := p.ValidateVariants(); err != nil {
		t.Fatalf("valid product rejected: %v", err)
	}

	p.Variants = append(p.Variants, Variant{Size: "M", Color: "red", Price: dec(10)})
	if err := p.ValidateVariants(); err == nil {
		t.Error("duplicate size/color pair must be rejected")
	}

	p = shirt()
	p.Variants[0].Price = decimal.Zero
	if err := p.ValidateVariants(); err == nil {
		t.Error("zero price must be rejected")
	}

	p = shirt()
	p.Variants[1].OriginalPrice = dec(100)
	if err := p.ValidateVariants(); err == nil {
		t.Error("original price below price must be rejected")
	}
}

// Feature: storefront, Property: cheapest variant resolution
func TestProperty_NoSelectionResolvesFirstMinimum(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("no size/color resolves to the first variant with the minimum price", prop.ForAll(
		func(prices []int) bool {
			if len(prices) == 0 {
				return true
			}
			p := &Product{ID: "x"}
			for i, price := range prices {
				p.Variants = append(p.Variants, Variant{
					Size:  string(rune('A' + i%26)),
					Color: string(rune('a' + i/26)),
					Price: dec(int64(price)),
					SKU:   string(rune('A'+i%26)) + string(rune('a'+i/26)),
				})
			}

			want := 0
			for i := range prices {
				if prices[i] < prices[want] {
					want = i
				}
			}

			got, ok := ResolveVariant(p, "", "")
			return ok && got.SKU == p.Variants[want].SKU
		},
		gen.SliceOfN(20, gen.IntRange(1, 5)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestReserveStock(t *testing.T) {
	p := shirt()
	if err := p.ReserveStock("M", "red", 3); err != nil {
		t.Fatalf("ReserveStock() error = %v", err)
	}
	if p.Variants[0].Stock != 1 {
		t.Errorf("stock after reservation = %d, want 1", p.Variants[0].Stock)
	}

	err := p.ReserveStock("M", "red", 2)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if p.Variants[0].Stock != 1 {
		t.Errorf("failed reservation changed stock to %d", p.Variants[0].Stock)
	}

	if err := p.ReserveStock("XL", "green", 1); !errors.Is(err, ErrVariantNotFound) {
		t.Errorf("expected ErrVariantNotFound, got %v", err)
	}
}

func TestReserveStock_UntrackedWithoutVariants(t *testing.T) {
	p := &Product{ID: "p2", Price: dec(100)}
	if err := p.ReserveStock("", "", 1000); err != nil {
		t.Errorf("products without variants should not track stock, got %v", err)
	}
}
