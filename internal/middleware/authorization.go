package middleware

import (
	"net/http"

	"storefront/internal/auth"

	"go.uber.org/zap"
)

// RequireAdmin lets through only identities carrying the admin claim. Mount it
// behind AuthMiddleware; without an identity in context it answers 401.
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return requireIdentity(auth.Identity.IsAdmin, "admin access required", logger.Named("authz"))
}

func requireIdentity(allowed func(auth.Identity) bool, denial string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.FromContext(r.Context())
			switch {
			case !ok:
				RespondWithError(w, http.StatusUnauthorized, "authentication required")
			case !allowed(id):
				logger.Warn("Access denied",
					zap.String("user_id", id.UserID),
					zap.String("role", string(id.Role)),
					zap.String("route", r.Method+" "+r.URL.Path),
				)
				RespondWithError(w, http.StatusForbidden, denial)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
