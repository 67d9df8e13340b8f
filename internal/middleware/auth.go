package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/shrdaa/backend/internal/models"
	"github.com/shrdaa/backend/internal/services"
)

// TokenParser turns a bearer token into the session it was issued for.
type TokenParser interface {
	ParseToken(ctx context.Context, token string) (models.Session, error)
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// Auth rejects requests without a valid, unrevoked token and stores the
// caller's session in the request context.
func Auth(parser TokenParser, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				services.SendErrorResponse(w, "Authorization header required", http.StatusUnauthorized, nil)
				return
			}

			token, ok := BearerToken(r)
			if !ok {
				services.SendErrorResponse(w, "Invalid authorization header format", http.StatusUnauthorized, nil)
				return
			}

			session, err := parser.ParseToken(r.Context(), token)
			switch {
			case errors.Is(err, services.ErrTokenRevoked):
				services.SendErrorResponse(w, "Token revoked", http.StatusUnauthorized, nil)
				return
			case errors.Is(err, services.ErrInvalidCredentials):
				services.SendErrorResponse(w, "Invalid token", http.StatusUnauthorized, nil)
				return
			case err != nil:
				logger.Error("Session lookup failed", "module", "middleware", "error", err)
				services.SendErrorResponse(w, "An Internal Error Occurred", http.StatusInternalServerError, nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(models.WithSession(r.Context(), session)))
		})
	}
}

// RequireRole allows the request through only when the session role is one
// of roles. It must run after Auth.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := models.SessionFromContext(r.Context())
			if !ok {
				services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
				return
			}

			if !slices.Contains(roles, session.Role) {
				services.SendErrorResponse(w, "Forbidden", http.StatusForbidden, nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
