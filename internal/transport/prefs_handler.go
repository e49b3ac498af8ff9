package transport

import (
	"errors"
	"net/http"

	"storefront/internal/auth"
	"storefront/internal/middleware"
	"storefront/internal/prefs"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PreferencesRequest represents the preferences update payload
type PreferencesRequest struct {
	OnboardingCompleted bool   `json:"onboarding_completed"`
	SkipLogin           bool   `json:"skip_login"`
	LastLocationID      string `json:"last_location_id" validate:"max=64"`
}

// Profile is the caller as the auth provider knows them, with their saved
// preferences.
type Profile struct {
	auth.Identity
	Preferences prefs.Preferences `json:"preferences"`
}

// AccountHandler serves the caller's profile and device preferences
type AccountHandler struct {
	prefs  *prefs.Store
	logger *zap.Logger
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(store *prefs.Store, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{prefs: store, logger: logger}
}

// RegisterRoutes registers the account routes
func (h *AccountHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/me", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.GetProfile)
		r.Get("/preferences", h.GetPreferences)
		r.Put("/preferences", h.SavePreferences)
	})
}

// GetProfile returns the caller's identity and preferences
func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	p, err := h.prefs.Get(r.Context(), id.UserID)
	if err != nil {
		h.logger.Warn("Preferences unreadable, using defaults", zap.String("user_id", id.UserID), zap.Error(err))
	}
	middleware.RespondWithJSON(w, http.StatusOK, Profile{Identity: id, Preferences: p})
}

func (h *AccountHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	p, err := h.prefs.Get(r.Context(), id.UserID)
	if err != nil && !errors.Is(err, prefs.ErrUndecryptable) {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, p)
}

func (h *AccountHandler) SavePreferences(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	var req PreferencesRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}
	p := prefs.Preferences{
		OnboardingCompleted: req.OnboardingCompleted,
		SkipLogin:           req.SkipLogin,
		LastLocationID:      req.LastLocationID,
	}
	if err := h.prefs.Save(r.Context(), id.UserID, p); err != nil {
		respondError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, p)
}
