package checkout

import (
	"time"

	"storefront/internal/config"
	"storefront/internal/domain"

	"github.com/shopspring/decimal"
)

// Policy holds the fixed pricing constants applied to every order.
type Policy struct {
	DeliveryFee    decimal.Decimal
	PlatformFee    decimal.Decimal
	TaxPercentage  decimal.Decimal
	Discount       decimal.Decimal
	Currency       string
	CurrencySymbol string
	DeliveryDays   int
	SessionTTL     time.Duration

	MerchantName string
	ThemeColor   string
}

// PolicyFromConfig builds the policy from checkout and payment settings.
func PolicyFromConfig(c config.CheckoutConfig, pay config.PaymentConfig) Policy {
	return Policy{
		DeliveryFee:    decimal.NewFromFloat(c.DeliveryFee),
		PlatformFee:    decimal.NewFromFloat(c.PlatformFee),
		TaxPercentage:  decimal.NewFromFloat(c.TaxPercentage),
		Discount:       decimal.NewFromFloat(c.Discount),
		Currency:       pay.Currency,
		CurrencySymbol: c.CurrencySymbol,
		DeliveryDays:   c.DeliveryDays,
		SessionTTL:     c.SessionTTL,
		MerchantName:   pay.MerchantName,
		ThemeColor:     pay.ThemeColor,
	}
}

// Totals are the derived money fields of an order.
type Totals struct {
	SubTotal      decimal.Decimal `json:"sub_total"`
	DeliveryFee   decimal.Decimal `json:"delivery_fee"`
	TaxPercentage decimal.Decimal `json:"tax_percentage"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	PlatformFee   decimal.Decimal `json:"platform_fee"`
	Discount      decimal.Decimal `json:"discount"`
	FinalTotal    decimal.Decimal `json:"final_total"`
}

var hundred = decimal.NewFromInt(100)

// ComputeTotals prices items under p. Tax is rounded to whole currency units and
// the final total never goes below zero.
func ComputeTotals(items []domain.CartItem, p Policy) Totals {
	sub := decimal.Zero
	for _, it := range items {
		sub = sub.Add(it.LineTotal())
	}
	tax := sub.Mul(p.TaxPercentage).Div(hundred).Round(0)

	final := sub.Add(p.DeliveryFee).Add(tax).Add(p.PlatformFee).Sub(p.Discount)
	if final.IsNegative() {
		final = decimal.Zero
	}

	return Totals{
		SubTotal:      sub,
		DeliveryFee:   p.DeliveryFee,
		TaxPercentage: p.TaxPercentage,
		TaxAmount:     tax,
		PlatformFee:   p.PlatformFee,
		Discount:      p.Discount,
		FinalTotal:    final,
	}
}

func (t Totals) apply(o *domain.Order) {
	o.SubTotal = t.SubTotal
	o.DeliveryFee = t.DeliveryFee
	o.TaxPercentage = t.TaxPercentage
	o.TaxAmount = t.TaxAmount
	o.PlatformFee = t.PlatformFee
	o.Discount = t.Discount
	o.FinalTotal = t.FinalTotal
}
