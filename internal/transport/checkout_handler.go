package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/middleware"
	"storefront/internal/payment"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CheckoutHandler drives checkout sessions over HTTP: begin returns the
// gateway options the client opens its payment sheet with, confirm reports
// the outcome and places the order.
type CheckoutHandler struct {
	checkout *checkout.Orchestrator
	carts    *cart.Registry
	logger   *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(orchestrator *checkout.Orchestrator, carts *cart.Registry, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: orchestrator, carts: carts, logger: logger}
}

// RegisterRoutes registers the checkout routes. Session creation and
// confirmation additionally go through limiter.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router, authMiddleware, limiter func(http.Handler) http.Handler) {
	r.Route("/api/checkout", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/quote", h.Quote)
		r.Get("/{id}", h.GetSession)
		r.Group(func(r chi.Router) {
			r.Use(limiter)
			r.Post("/", h.Begin)
			r.Post("/{id}/confirm", h.Confirm)
		})
	})
}

// Quote prices the current cart without starting a session
func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	items := h.carts.For(id.UserID).Items()
	middleware.RespondWithJSON(w, http.StatusOK, checkout.ComputeTotals(items, h.checkout.Policy()))
}

// Begin starts a checkout session
func (h *CheckoutHandler) Begin(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondActionError(w, h.logger, err)
		return
	}
	var req checkout.BeginRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondActionError(w, h.logger, beginRequestError(err))
		return
	}

	session, err := h.checkout.Begin(r.Context(), id, req)
	if err != nil {
		respondActionError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, ActionResult{Success: true, Data: session})
}

// beginRequestError turns a field failure into the error the orchestrator
// would have raised for it.
func beginRequestError(err error) error {
	for _, fe := range middleware.FormatValidationErrors(err) {
		switch fe.Field {
		case "payment_method":
			if fe.Message == "This field is required" {
				return checkout.ErrPaymentMethodRequired
			}
			return checkout.ErrInvalidPaymentMethod
		case "address_id":
			return checkout.ErrAddressRequired
		}
	}
	return err
}

// GetSession returns a session of the caller
func (h *CheckoutHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	session, err := h.checkout.Session(id, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, session)
}

// Confirm places the order of a session. Online payments report the payment
// sheet outcome in the body; cash on delivery sends none.
func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondActionError(w, h.logger, err)
		return
	}
	var report payment.Report
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil && !errors.Is(err, io.EOF) {
		respondActionError(w, h.logger, fmt.Errorf("%w: %v", middleware.ErrMalformedBody, err))
		return
	}

	order, err := h.checkout.Confirm(r.Context(), id, chi.URLParam(r, "id"), payment.Reported(report))
	if err != nil {
		respondActionError(w, h.logger, err)
		return
	}
	respondAction(w, order)
}
