package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront/internal/auth"

	"go.uber.org/zap"
)

// AuthMiddleware resolves the bearer token to an identity and stores it in the
// request context. Requests without a valid token stop here with 401.
func AuthMiddleware(verifier auth.Verifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				logger.Debug("Missing or malformed authorization header", zap.String("path", r.URL.Path))
				RespondWithError(w, http.StatusUnauthorized, "missing or malformed authorization header")
				return
			}

			id, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.Debug("Token rejected", zap.Error(err))
				if errors.Is(err, auth.ErrTokenExpired) {
					RespondWithError(w, http.StatusUnauthorized, "token expired")
				} else {
					RespondWithError(w, http.StatusUnauthorized, "invalid token")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GetUserID extracts the authenticated user id from the request context
func GetUserID(ctx context.Context) (string, bool) {
	id, ok := auth.FromContext(ctx)
	return id.UserID, ok
}
