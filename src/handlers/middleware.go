package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/username/bankfolio/src/logger"
	"github.com/username/bankfolio/src/security"
	"github.com/username/bankfolio/src/utils"
)

type contextKey string

const (
	userIDContextKey         = contextKey("userID")
	organizationIDContextKey = contextKey("organizationID")
)

// NewAuthMiddleware validates the bearer token and places the user and
// organization claims in the request context. Token issuance lives in the
// account subsystem; this backend only consumes it.
func NewAuthMiddleware(authService *security.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.L.Debug("AuthMiddleware: Authorization header missing", "path", r.URL.Path)
				utils.SendJSONError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == "" {
				logger.L.Debug("AuthMiddleware: Token string empty", "path", r.URL.Path)
				utils.SendJSONError(w, "Malformed token", http.StatusUnauthorized)
				return
			}

			userID, organizationID, err := authService.ValidateToken(tokenString)
			if err != nil {
				logger.L.Warn("AuthMiddleware: Token validation failed", "path", r.URL.Path, "error", err)
				utils.SendJSONError(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			ctx = context.WithValue(ctx, organizationIDContextKey, organizationID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetOrganizationIDFromContext returns the organization claim placed by the
// auth middleware.
func GetOrganizationIDFromContext(ctx context.Context) (int64, bool) {
	organizationID, ok := ctx.Value(organizationIDContextKey).(int64)
	return organizationID, ok
}

// GetUserIDFromContext returns the user claim placed by the auth middleware.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	return userID, ok
}
