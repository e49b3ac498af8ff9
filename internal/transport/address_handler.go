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

// AddressRequest represents the address create/update payload
type AddressRequest struct {
	Type      domain.AddressType `json:"type" validate:"omitempty,oneof=home work other"`
	Name      string             `json:"name" validate:"required,max=100"`
	Address   string             `json:"address" validate:"required"`
	City      string             `json:"city" validate:"required"`
	State     string             `json:"state"`
	Pincode   string             `json:"pincode" validate:"required,max=10"`
	Phone     string             `json:"phone" validate:"required,max=20"`
	IsDefault bool               `json:"is_default"`
}

func (req AddressRequest) toDomain(id string) *domain.Address {
	return &domain.Address{
		ID:        id,
		Type:      req.Type,
		Name:      req.Name,
		Address:   req.Address,
		City:      req.City,
		State:     req.State,
		Pincode:   req.Pincode,
		Phone:     req.Phone,
		IsDefault: req.IsDefault,
	}
}

// AddressHandler serves the caller's address book
type AddressHandler struct {
	addresses service.AddressService
	streams   *realtime.Registry
	logger    *zap.Logger
}

// NewAddressHandler creates a new AddressHandler
func NewAddressHandler(addresses service.AddressService, streams *realtime.Registry, logger *zap.Logger) *AddressHandler {
	return &AddressHandler{addresses: addresses, streams: streams, logger: logger}
}

// RegisterRoutes registers the address book routes
func (h *AddressHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/addresses", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/stream", h.Stream)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/default", h.SetDefault)
	})
}

func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	list, err := h.addresses.List(r.Context(), id.UserID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, nonNil(list))
}

func (h *AddressHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	var req AddressRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	address := req.toDomain("")
	if err := h.addresses.Create(r.Context(), id.UserID, address); err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, address)
}

func (h *AddressHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	var req AddressRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	address := req.toDomain(chi.URLParam(r, "id"))
	if err := h.addresses.Update(r.Context(), id.UserID, address); err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, address)
}

func (h *AddressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.addresses.Delete(r.Context(), id.UserID, chi.URLParam(r, "id")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AddressHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if err := h.addresses.SetDefault(r.Context(), id.UserID, chi.URLParam(r, "id")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stream pushes the address book on every change
func (h *AddressHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	serveStream(w, r, h.streams, h.logger, realtime.AddressesTopic(id.UserID).String(),
		func(ctx context.Context, deliver func([]*domain.Address, error)) (realtime.Unsubscribe, error) {
			return h.addresses.Watch(ctx, id.UserID, deliver)
		})
}
