package checkout

import (
	"time"

	"storefront/internal/domain"
	"storefront/internal/payment"
)

// State is a checkout session's position in
// idle -> reviewing -> processing -> placing -> success | failed.
type State string

const (
	StateIdle       State = "idle"
	StateReviewing  State = "reviewing"
	StateProcessing State = "processing"
	StatePlacing    State = "placing"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
)

// Busy reports whether a confirmation is in flight.
func (s State) Busy() bool { return s == StateProcessing || s == StatePlacing }

// Session is one checkout attempt. Items are frozen when the session begins.
type Session struct {
	ID              string               `json:"id"`
	UserID          string               `json:"user_id"`
	State           State                `json:"state"`
	PaymentMethod   domain.PaymentMethod `json:"payment_method"`
	Items           []domain.CartItem    `json:"items"`
	Totals          Totals               `json:"totals"`
	DeliveryAddress string               `json:"delivery_address"`
	OrderNumber     string               `json:"order_number"`
	GatewayOrderID  string               `json:"gateway_order_id,omitempty"`
	ReceiptID       string               `json:"receipt_id,omitempty"`
	Payment         *payment.Options     `json:"payment,omitempty"`
	Order           *domain.Order        `json:"order,omitempty"`
	Error           string               `json:"error,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

func (s *Session) clone() *Session {
	out := *s
	out.Items = make([]domain.CartItem, len(s.Items))
	for i, it := range s.Items {
		out.Items[i] = it.Clone()
	}
	if s.Payment != nil {
		p := *s.Payment
		out.Payment = &p
	}
	if s.Order != nil {
		out.Order = s.Order.Clone()
	}
	return &out
}
