package api

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/terra-clan/dsa-tracker/internal/storage"
)

// AuthMiddleware handles API key authentication
type AuthMiddleware struct {
	repo     storage.Repository
	adminKey string
}

// NewAuthMiddleware creates new auth middleware. An empty adminKey
// disables operator access; admin users can still create users.
func NewAuthMiddleware(repo storage.Repository, adminKey string) *AuthMiddleware {
	return &AuthMiddleware{repo: repo, adminKey: adminKey}
}

// Authenticate verifies API key from Authorization header
// Supports formats: "Bearer dsa_xxx" or "dsa_xxx" in Authorization header
// Also supports X-API-Key header, and an api_key query parameter for
// WebSocket upgrades where browsers cannot set headers
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := extractAPIKey(r)
		if apiKey == "" {
			respondError(w, http.StatusUnauthorized, "missing_api_key", "provide Authorization header with Bearer token or X-API-Key header")
			return
		}

		if m.adminKey != "" && subtle.ConstantTimeCompare([]byte(apiKey), []byte(m.adminKey)) == 1 {
			slog.Debug("authenticated operator request", "key_prefix", maskKey(apiKey))
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), operatorUser())))
			return
		}

		// Lookup user by API key
		user, err := m.repo.GetUserByApiKey(r.Context(), apiKey)
		if err != nil {
			slog.Error("failed to lookup user", "error", err, "key_prefix", maskKey(apiKey))
			respondError(w, http.StatusInternalServerError, "internal_error", "authentication error")
			return
		}

		if user == nil {
			slog.Warn("invalid api key attempt", "key_prefix", maskKey(apiKey), "remote_addr", r.RemoteAddr)
			respondError(w, http.StatusUnauthorized, "invalid_api_key", "the provided api key is not valid")
			return
		}

		if !user.IsActive {
			slog.Warn("inactive user attempt", "user_id", user.ID, "key_prefix", maskKey(apiKey))
			respondError(w, http.StatusUnauthorized, "user_inactive", "this api key has been deactivated")
			return
		}

		// Update last_used_at asynchronously (don't block request)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := m.repo.UpdateUserLastUsed(ctx, apiKey); err != nil {
				slog.Error("failed to update user last_used_at", "error", err, "user_id", user.ID)
			}
		}()

		slog.Debug("authenticated request", "user_id", user.ID, "key_prefix", user.MaskedApiKey())

		ctx := ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects requests from non-admin users
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil {
			respondError(w, http.StatusUnauthorized, "not_authenticated", "authentication required")
			return
		}

		if !user.IsAdmin {
			slog.Warn("admin permission denied", "user_id", user.ID, "path", r.URL.Path)
			respondError(w, http.StatusForbidden, "permission_denied", "admin access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireAccount rejects the operator on routes that act on the caller's
// own progress, tasks or settings
func (m *AuthMiddleware) RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isOperator(r.Context()) {
			respondError(w, http.StatusForbidden, "operator_not_account", "the admin key has no account; use a user api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractAPIKey extracts API key from request headers
func extractAPIKey(r *http.Request) string {
	// Try Authorization header first
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		// Handle "Bearer dsa_xxx" format
		if strings.HasPrefix(authHeader, "Bearer ") {
			return strings.TrimPrefix(authHeader, "Bearer ")
		}
		// Handle raw key in Authorization header
		return authHeader
	}

	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}

	if websocketUpgrade(r) {
		return r.URL.Query().Get("api_key")
	}
	return ""
}

func websocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// maskKey returns first 8 chars of key for safe logging
func maskKey(key string) string {
	if len(key) < 8 {
		return "***"
	}
	return key[:8] + "..."
}
