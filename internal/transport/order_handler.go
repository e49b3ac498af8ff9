package transport

import (
	"context"
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/realtime"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// StatusRequest represents the admin status change payload
type StatusRequest struct {
	Status domain.OrderStatus `json:"status" validate:"required,oneof=pending processing confirmed shipped delivered cancelled"`
}

// OrderHandler serves the customer order history and the admin order board
type OrderHandler struct {
	orders  service.OrderService
	streams *realtime.Registry
	logger  *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders service.OrderService, streams *realtime.Registry, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, streams: streams, logger: logger}
}

// RegisterRoutes registers the customer and admin order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.ListOrders)
		r.Get("/stream", h.StreamOrders)
		r.Get("/{id}", h.GetOrder)
	})

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware, adminMiddleware)
		r.Get("/api/admin/orders", h.ListAllOrders)
		r.Get("/api/admin/orders/stream", h.StreamAllOrders)
		r.Get("/api/admin/orders/statuses", h.StatusOptions)
		r.Patch("/api/admin/orders/{userID}/{orderID}/status", h.UpdateStatus)
	})
}

// ListOrders returns the caller's orders, newest first
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	orders, err := h.orders.CustomerOrders(r.Context(), id.UserID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, nonNil(orders))
}

// GetOrder returns one of the caller's orders
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	order, err := h.orders.CustomerOrder(r.Context(), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// StreamOrders pushes the caller's order list on every change
func (h *OrderHandler) StreamOrders(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	serveStream(w, r, h.streams, h.logger, realtime.UserOrdersTopic(id.UserID).String(),
		func(ctx context.Context, deliver func([]service.OrderView, error)) (realtime.Unsubscribe, error) {
			return h.orders.WatchCustomerOrders(ctx, id.UserID, deliver)
		})
}

// ListAllOrders returns every user's orders
func (h *OrderHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.AdminOrders(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, nonNil(orders))
}

// StreamAllOrders pushes the admin order board on every change
func (h *OrderHandler) StreamAllOrders(w http.ResponseWriter, r *http.Request) {
	serveStream(w, r, h.streams, h.logger, realtime.AllOrdersTopic().String(), h.orders.WatchAdminOrders)
}

// StatusOptions lists the statuses the picker offers for an order in the
// status given by the current query parameter.
func (h *OrderHandler) StatusOptions(w http.ResponseWriter, r *http.Request) {
	current := domain.OrderStatus(r.URL.Query().Get("current"))
	if !current.Valid() {
		respondError(w, h.logger, domain.ErrInvalidStatus)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, service.StatusOptions(current))
}

// UpdateStatus moves an order to a new status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	userID, orderID := chi.URLParam(r, "userID"), chi.URLParam(r, "orderID")
	order, err := h.orders.UpdateStatus(r.Context(), userID, orderID, req.Status)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
