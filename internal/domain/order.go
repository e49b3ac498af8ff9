package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidStatus           = errors.New("invalid order status")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// StatusSequence is the forward order admins move an order through.
var StatusSequence = []OrderStatus{
	StatusPending,
	StatusProcessing,
	StatusConfirmed,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// Index is the position of s in StatusSequence, or -1 for unknown values.
func (s OrderStatus) Index() int {
	for i, st := range StatusSequence {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool { return s.Index() >= 0 }

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether an order in status from may move to status to.
// Moving forward along the sequence is allowed, cancelling is allowed until the
// order ships, and re-applying the current status is a no-op.
func CanTransition(from, to OrderStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	if from.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return from.Index() < StatusShipped.Index()
	}
	return to.Index() > from.Index()
}

// ValidateTransition wraps CanTransition with a descriptive error.
func ValidateTransition(from, to OrderStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, from, to)
	}
	return nil
}

// PaymentMethod selects how an order is paid
type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentOnline PaymentMethod = "online"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentOnline
}

// RequiresGateway reports whether the payment gateway must be involved.
func (m PaymentMethod) RequiresGateway() bool { return m != PaymentCOD }

// OrderItem is a frozen copy of a cart line and its resolved variant at order time.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	SKU       string          `json:"sku,omitempty"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
}

// NewOrderItem freezes a cart line.
func NewOrderItem(item CartItem) OrderItem {
	price := item.Product.Price
	sku := ""
	if v, ok := ResolveVariant(item.Product, item.SelectedSize, item.SelectedColor); ok {
		price = v.Price
		sku = v.SKU
	}
	return OrderItem{
		ProductID: item.Product.ID,
		Name:      item.Product.Title,
		Image:     item.Product.Image,
		SKU:       sku,
		Size:      item.SelectedSize,
		Color:     item.SelectedColor,
		Price:     price,
		Quantity:  item.Quantity,
		Total:     price.Mul(decimal.NewFromInt(int64(item.Quantity))),
	}
}

// Order is written once at checkout and afterwards only changes status.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	OrderNumber     string          `json:"order_number"`
	Items           []OrderItem     `json:"items"`
	DeliveryAddress string          `json:"delivery_address"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	SubTotal        decimal.Decimal `json:"sub_total"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
	TaxPercentage   decimal.Decimal `json:"tax_percentage"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	PlatformFee     decimal.Decimal `json:"platform_fee"`
	Discount        decimal.Decimal `json:"discount"`
	FinalTotal      decimal.Decimal `json:"final_total"`
	Status          OrderStatus     `json:"status"`
	OrderDate       time.Time       `json:"order_date"`
	GatewayOrderID  string          `json:"gateway_order_id"`
	ReceiptID       string          `json:"receipt_id"`
	PaymentID       string          `json:"payment_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ItemCount is the total number of units across all lines.
func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	out := *o
	out.Items = make([]OrderItem, len(o.Items))
	copy(out.Items, o.Items)
	return &out
}
