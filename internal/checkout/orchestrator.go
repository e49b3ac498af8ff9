package checkout

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/domain"
	"storefront/internal/payment"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultSessionTTL = 30 * time.Minute

// Carts hands out the session cart of a user.
type Carts interface {
	For(userID string) *cart.Store
}

// Gateway creates gateway-side orders for online payments.
type Gateway interface {
	CreateOrder(ctx context.Context, req payment.CreateOrderRequest) (*payment.GatewayOrder, error)
	KeyID() string
}

// SignatureVerifier checks a reported payment against its gateway order.
type SignatureVerifier interface {
	Verify(gatewayOrderID string, r payment.Result) error
}

// BeginRequest is what the customer picked on the review screen.
type BeginRequest struct {
	AddressID     string               `json:"address_id" validate:"required"`
	PaymentMethod domain.PaymentMethod `json:"payment_method" validate:"required,oneof=cod online"`
}

// Orchestrator turns a cart into an order: it prices the cart, runs the payment
// for online orders, writes the order and takes the ordered lines out of the cart.
type Orchestrator struct {
	carts     Carts
	addresses repository.AddressRepository
	orders    repository.OrderRepository
	gateway   Gateway
	verifier  SignatureVerifier
	policy    Policy
	logger    *zap.Logger

	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewOrchestrator(
	carts Carts,
	addresses repository.AddressRepository,
	orders repository.OrderRepository,
	gateway Gateway,
	verifier SignatureVerifier,
	policy Policy,
	logger *zap.Logger,
) *Orchestrator {
	if policy.SessionTTL <= 0 {
		policy.SessionTTL = defaultSessionTTL
	}
	return &Orchestrator{
		carts:     carts,
		addresses: addresses,
		orders:    orders,
		gateway:   gateway,
		verifier:  verifier,
		policy:    policy,
		logger:    logger.Named("checkout"),
		now:       func() time.Time { return time.Now().UTC() },
		sessions:  make(map[string]*Session),
	}
}

// Policy returns the pricing policy in effect.
func (o *Orchestrator) Policy() Policy { return o.policy }

// Begin validates the request, freezes the cart and, for online payment, opens a
// gateway order. The returned session is in StateReviewing.
func (o *Orchestrator) Begin(ctx context.Context, id auth.Identity, req BeginRequest) (*Session, error) {
	if id.UserID == "" {
		return nil, auth.ErrUnauthenticated
	}
	if req.PaymentMethod == "" {
		return nil, ErrPaymentMethodRequired
	}
	if !req.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, req.PaymentMethod)
	}
	if req.AddressID == "" {
		return nil, ErrAddressRequired
	}
	items := o.carts.For(id.UserID).Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	address, err := o.addresses.FindByID(ctx, id.UserID, req.AddressID)
	if err != nil {
		if errors.Is(err, repository.ErrAddressNotFound) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("failed to load delivery address: %w", err)
	}

	now := o.now()
	s := &Session{
		ID:              uuid.NewString(),
		UserID:          id.UserID,
		State:           StateIdle,
		PaymentMethod:   req.PaymentMethod,
		Items:           items,
		Totals:          ComputeTotals(items, o.policy),
		DeliveryAddress: address.DisplayString(),
		OrderNumber:     OrderNumber(now),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if req.PaymentMethod.RequiresGateway() {
		if err := o.openGatewayOrder(ctx, id, address.Phone, s); err != nil {
			return nil, err
		}
	}

	s.State = StateReviewing
	o.mu.Lock()
	o.pruneLocked(now)
	o.sessions[s.ID] = s
	out := s.clone()
	o.mu.Unlock()

	o.logger.Info("Checkout started",
		zap.String("session_id", s.ID),
		zap.String("user_id", id.UserID),
		zap.String("payment_method", string(s.PaymentMethod)),
		zap.String("final_total", s.Totals.FinalTotal.StringFixed(2)),
	)
	return out, nil
}

func (o *Orchestrator) openGatewayOrder(ctx context.Context, id auth.Identity, phone string, s *Session) error {
	if o.gateway == nil {
		return fmt.Errorf("%w: online payments are not configured", ErrGatewayUnavailable)
	}
	receipt := fmt.Sprintf("receipt_%d", s.CreatedAt.UnixMilli())
	amount := payment.ToMinorUnits(s.Totals.FinalTotal)

	gwOrder, err := o.gateway.CreateOrder(ctx, payment.CreateOrderRequest{
		AmountMinorUnits: amount,
		Currency:         o.policy.Currency,
		Receipt:          receipt,
		Notes:            map[string]string{"order_number": s.OrderNumber, "user_id": id.UserID},
	})
	if err != nil {
		o.logger.Warn("Gateway order creation failed", zap.String("user_id", id.UserID), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}

	s.GatewayOrderID = gwOrder.ID
	s.ReceiptID = receipt
	s.Payment = &payment.Options{
		Key:         o.gateway.KeyID(),
		Amount:      amount,
		Currency:    o.policy.Currency,
		OrderID:     gwOrder.ID,
		Name:        o.policy.MerchantName,
		Description: "Order " + s.OrderNumber,
		Prefill:     payment.Prefill{Name: id.DisplayName, Email: id.Email, Contact: phone},
		ThemeColor:  o.policy.ThemeColor,
	}
	return nil
}

// Confirm runs the payment (online) and writes the order. Only one confirmation
// of a session can be in flight; a second caller gets ErrCheckoutInProgress. On
// success the ordered quantities leave the cart; anything added since Begin stays.
func (o *Orchestrator) Confirm(ctx context.Context, id auth.Identity, sessionID string, collaborator payment.Collaborator) (*domain.Order, error) {
	if id.UserID == "" {
		return nil, auth.ErrUnauthenticated
	}

	o.mu.Lock()
	s, ok := o.sessions[sessionID]
	if !ok || s.UserID != id.UserID {
		o.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	switch {
	case s.State.Busy():
		o.mu.Unlock()
		return nil, ErrCheckoutInProgress
	case s.State != StateReviewing:
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSessionClosed, s.State)
	}
	s.State = StateProcessing
	s.UpdatedAt = o.now()
	draft := s.clone()
	o.mu.Unlock()

	log := o.logger.With(zap.String("session_id", sessionID), zap.String("user_id", id.UserID))

	order := &domain.Order{
		ID:              uuid.NewString(),
		UserID:          id.UserID,
		OrderNumber:     draft.OrderNumber,
		Items:           make([]domain.OrderItem, len(draft.Items)),
		DeliveryAddress: draft.DeliveryAddress,
		PaymentMethod:   draft.PaymentMethod,
		Status:          domain.StatusPending,
		GatewayOrderID:  draft.GatewayOrderID,
		ReceiptID:       draft.ReceiptID,
	}
	for i, it := range draft.Items {
		order.Items[i] = domain.NewOrderItem(it)
	}
	draft.Totals.apply(order)

	if draft.PaymentMethod.RequiresGateway() {
		res, err := o.collectPayment(ctx, draft, collaborator)
		if err != nil {
			log.Warn("Payment not completed", zap.Error(err))
			o.finish(sessionID, StateFailed, nil, err)
			return nil, err
		}
		order.PaymentID = res.PaymentID
	} else {
		ts := o.now().UnixMilli()
		order.GatewayOrderID = fmt.Sprintf("order_%d", ts)
		order.ReceiptID = fmt.Sprintf("receipt_%d", ts)
	}

	o.setState(sessionID, StatePlacing)
	order.OrderDate = o.now()

	if err := o.orders.Create(ctx, order); err != nil {
		fields := []zap.Field{zap.String("order_number", order.OrderNumber), zap.Error(err)}
		if order.PaymentID != "" {
			fields = append(fields, zap.String("payment_id", order.PaymentID))
		}
		log.Error("Order write failed, cart kept", fields...)
		err = fmt.Errorf("%w: %w", ErrPlaceOrderFailed, err)
		o.finish(sessionID, StateFailed, nil, err)
		return nil, err
	}

	o.carts.For(id.UserID).Deduct(draft.Items)
	o.finish(sessionID, StateSuccess, order, nil)

	log.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("payment_method", string(order.PaymentMethod)),
	)
	return order.Clone(), nil
}

func (o *Orchestrator) collectPayment(ctx context.Context, s *Session, collaborator payment.Collaborator) (payment.Result, error) {
	if collaborator == nil || s.Payment == nil {
		return payment.Result{}, fmt.Errorf("%w: no payment collaborator", ErrPaymentFailed)
	}
	res, err := collaborator.Open(ctx, *s.Payment)
	if err != nil {
		return payment.Result{}, fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}
	if o.verifier == nil {
		if !res.Complete() {
			return payment.Result{}, fmt.Errorf("%w: %w", ErrPaymentFailed, payment.ErrIncomplete)
		}
		if res.GatewayOrderID != s.GatewayOrderID {
			return payment.Result{}, fmt.Errorf("%w: %w", ErrPaymentFailed, payment.ErrOrderMismatch)
		}
		return res, nil
	}
	if err := o.verifier.Verify(s.GatewayOrderID, res); err != nil {
		return payment.Result{}, fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}
	return res, nil
}

// PlaceOrder runs Begin and Confirm back to back.
func (o *Orchestrator) PlaceOrder(ctx context.Context, id auth.Identity, req BeginRequest, collaborator payment.Collaborator) (*domain.Order, error) {
	s, err := o.Begin(ctx, id, req)
	if err != nil {
		return nil, err
	}
	return o.Confirm(ctx, id, s.ID, collaborator)
}

// Session returns a copy of the caller's session.
func (o *Orchestrator) Session(id auth.Identity, sessionID string) (*Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pruneLocked(o.now())
	s, ok := o.sessions[sessionID]
	if !ok || s.UserID != id.UserID {
		return nil, ErrSessionNotFound
	}
	return s.clone(), nil
}

func (o *Orchestrator) setState(sessionID string, st State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.sessions[sessionID]; ok {
		s.State = st
		s.UpdatedAt = o.now()
	}
}

func (o *Orchestrator) finish(sessionID string, st State, order *domain.Order, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[sessionID]
	if !ok {
		return
	}
	s.State = st
	s.UpdatedAt = o.now()
	if order != nil {
		s.Order = order.Clone()
	}
	if err != nil {
		s.Error = err.Error()
	}
}

// pruneLocked drops idle sessions older than the TTL. Sessions mid-confirmation
// are kept.
func (o *Orchestrator) pruneLocked(now time.Time) {
	for id, s := range o.sessions {
		if !s.State.Busy() && now.Sub(s.UpdatedAt) > o.policy.SessionTTL {
			delete(o.sessions, id)
		}
	}
}

// OrderNumber formats a human-readable order number ORD<yymmdd><4 digits>. It is
// not guaranteed to be unique; the order id is.
func OrderNumber(t time.Time) string {
	return fmt.Sprintf("ORD%s%04d", t.Format("060102"), rand.IntN(10000))
}
