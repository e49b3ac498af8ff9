package transport

import (
	"errors"
	"net/http"

	"storefront/internal/auth"
	"storefront/internal/checkout"
	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/service"

	"go.uber.org/zap"
)

// ActionResult is the body of cart and checkout actions. Failures carry a
// human-readable Error and Success=false.
type ActionResult struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func respondAction(w http.ResponseWriter, data interface{}) {
	middleware.RespondWithJSON(w, http.StatusOK, ActionResult{Success: true, Data: data})
}

func respondActionError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, message := classify(err)
	logFailure(logger, status, err)
	middleware.RespondWithJSON(w, status, ActionResult{Success: false, Error: message})
}

func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, message := classify(err)
	logFailure(logger, status, err)
	middleware.RespondWithError(w, status, message)
}

func logFailure(logger *zap.Logger, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.Int("status", status), zap.Error(err))
		return
	}
	logger.Debug("Request rejected", zap.Int("status", status), zap.Error(err))
}

// classify maps domain errors to an HTTP status and the message shown to users.
// Server-side failures get a generic message.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, err.Error()
	case checkout.IsValidation(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict, "insufficient stock for one or more items"
	case errors.Is(err, domain.ErrVariantNotFound):
		return http.StatusBadRequest, domain.ErrVariantNotFound.Error()
	case errors.Is(err, checkout.ErrPlaceOrderFailed):
		return http.StatusInternalServerError, checkout.ErrPlaceOrderFailed.Error()
	case errors.Is(err, checkout.ErrPaymentFailed):
		return http.StatusPaymentRequired, err.Error()
	case errors.Is(err, checkout.ErrGatewayUnavailable):
		return http.StatusBadGateway, checkout.ErrGatewayUnavailable.Error()
	case errors.Is(err, checkout.ErrCheckoutInProgress),
		errors.Is(err, checkout.ErrSessionClosed),
		errors.Is(err, domain.ErrInvalidStatusTransition),
		errors.Is(err, repository.ErrCategoryAlreadyExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrCategoryNotFound),
		errors.Is(err, repository.ErrBannerNotFound),
		errors.Is(err, repository.ErrAddressNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, checkout.ErrSessionNotFound),
		errors.Is(err, errCartItemNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrInvalidProduct),
		errors.Is(err, service.ErrInvalidCategory),
		errors.Is(err, service.ErrInvalidBanner),
		errors.Is(err, service.ErrInvalidAddress),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, middleware.ErrMalformedBody):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}

// identity returns the caller set by the auth middleware.
func identity(r *http.Request) (auth.Identity, error) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		return auth.Identity{}, auth.ErrUnauthenticated
	}
	return id, nil
}
