package service

import (
	"context"
	"time"

	"storefront/internal/domain"
	"storefront/internal/realtime"
	"storefront/internal/repository"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderView is an order with the fields the order screens derive from it.
type OrderView struct {
	*domain.Order
	StatusColor       string     `json:"status_color"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	FormattedTotal    string     `json:"formatted_total"`
	ItemCount         int        `json:"item_count"`
}

// StatusOption is one entry of the admin status picker.
type StatusOption struct {
	Status   domain.OrderStatus `json:"status"`
	Current  bool               `json:"current"`
	Disabled bool               `json:"disabled"`
}

// OrderService defines the read models over orders and the admin status action
type OrderService interface {
	CustomerOrders(ctx context.Context, userID string) ([]OrderView, error)
	CustomerOrder(ctx context.Context, userID, id string) (*OrderView, error)
	AdminOrders(ctx context.Context) ([]OrderView, error)
	WatchCustomerOrders(ctx context.Context, userID string, deliver func([]OrderView, error)) (realtime.Unsubscribe, error)
	WatchAdminOrders(ctx context.Context, deliver func([]OrderView, error)) (realtime.Unsubscribe, error)
	UpdateStatus(ctx context.Context, userID, id string, status domain.OrderStatus) (*OrderView, error)
}

type orderService struct {
	orders         repository.OrderRepository
	feed           realtime.Feed
	deliveryDays   int
	currencySymbol string
	logger         *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(orders repository.OrderRepository, feed realtime.Feed, deliveryDays int, currencySymbol string, logger *zap.Logger) OrderService {
	return &orderService{
		orders:         orders,
		feed:           feed,
		deliveryDays:   deliveryDays,
		currencySymbol: currencySymbol,
		logger:         logger.Named("orders"),
	}
}

func (s *orderService) CustomerOrders(ctx context.Context, userID string) ([]OrderView, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.views(orders), nil
}

func (s *orderService) CustomerOrder(ctx context.Context, userID, id string) (*OrderView, error) {
	o, err := s.orders.FindByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	v := s.view(o)
	return &v, nil
}

// AdminOrders lists every user's orders, each annotated with its owner.
func (s *orderService) AdminOrders(ctx context.Context) ([]OrderView, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.views(orders), nil
}

func (s *orderService) WatchCustomerOrders(ctx context.Context, userID string, deliver func([]OrderView, error)) (realtime.Unsubscribe, error) {
	return realtime.Watch(ctx, s.feed, realtime.UserOrdersTopic(userID),
		func(ctx context.Context) ([]OrderView, error) { return s.CustomerOrders(ctx, userID) },
		deliver,
	)
}

func (s *orderService) WatchAdminOrders(ctx context.Context, deliver func([]OrderView, error)) (realtime.Unsubscribe, error) {
	return realtime.Watch(ctx, s.feed, realtime.AllOrdersTopic(), s.AdminOrders, deliver)
}

// UpdateStatus moves the order along the status sequence. The repository rejects
// transitions CanTransition does not allow.
func (s *orderService) UpdateStatus(ctx context.Context, userID, id string, status domain.OrderStatus) (*OrderView, error) {
	if err := s.orders.UpdateStatus(ctx, userID, id, status); err != nil {
		return nil, err
	}
	s.logger.Info("Order status updated",
		zap.String("user_id", userID),
		zap.String("order_id", id),
		zap.String("status", string(status)),
	)
	return s.CustomerOrder(ctx, userID, id)
}

func (s *orderService) views(orders []*domain.Order) []OrderView {
	out := make([]OrderView, len(orders))
	for i, o := range orders {
		out[i] = s.view(o)
	}
	return out
}

func (s *orderService) view(o *domain.Order) OrderView {
	v := OrderView{
		Order:          o,
		StatusColor:    StatusColor(o.Status),
		FormattedTotal: FormatAmount(s.currencySymbol, o.FinalTotal),
		ItemCount:      o.ItemCount(),
	}
	if eta, ok := EstimatedDelivery(o, s.deliveryDays); ok {
		v.EstimatedDelivery = &eta
	}
	return v
}

// StatusOptions lists every status with the ones the order cannot move to
// disabled.
func StatusOptions(current domain.OrderStatus) []StatusOption {
	out := make([]StatusOption, len(domain.StatusSequence))
	for i, st := range domain.StatusSequence {
		out[i] = StatusOption{
			Status:   st,
			Current:  st == current,
			Disabled: st != current && !domain.CanTransition(current, st),
		}
	}
	return out
}

// StatusColor is the badge color of a status.
func StatusColor(status domain.OrderStatus) string {
	switch status {
	case domain.StatusPending:
		return "#F59E0B"
	case domain.StatusProcessing:
		return "#3B82F6"
	case domain.StatusConfirmed:
		return "#6366F1"
	case domain.StatusShipped:
		return "#8B5CF6"
	case domain.StatusDelivered:
		return "#10B981"
	case domain.StatusCancelled:
		return "#EF4444"
	}
	return "#6B7280"
}

// EstimatedDelivery is the order date plus the delivery window. Delivered and
// cancelled orders have none.
func EstimatedDelivery(o *domain.Order, days int) (time.Time, bool) {
	if o.Status.Terminal() || o.OrderDate.IsZero() || days <= 0 {
		return time.Time{}, false
	}
	return o.OrderDate.AddDate(0, 0, days), true
}

// FormatAmount renders an amount with thousands separators and two decimals.
func FormatAmount(symbol string, amount decimal.Decimal) string {
	return symbol + humanize.FormatFloat("#,###.##", amount.Round(2).InexactFloat64())
}
