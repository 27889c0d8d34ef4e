package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"accesshub/internal/domain"
)

// TokenValidator validates a bearer token and returns the authenticated
// principal's identity. Credential verification itself lives outside the
// core; this middleware only consumes the resulting tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Principal, error)
}

// Principal is the authenticated caller as asserted by the token.
type Principal struct {
	UserID int
	Name   string
	Role   domain.Role
}

type contextKeyPrincipal struct{}

// GetPrincipal retrieves the authenticated principal from the context.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKeyPrincipal{}).(Principal)
	return p, ok
}

// RequireAuth rejects requests without a valid bearer token (401).
// Handlers downstream can rely on GetPrincipal returning a principal.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, ok := authenticate(w, r, validator, logger)
			if !ok {
				return
			}
			ctx = context.WithValue(ctx, contextKeyPrincipal{}, *principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests without a valid bearer token (401) or with
// a non-admin principal (403). Handlers downstream can rely on GetPrincipal
// returning an admin.
func RequireAdmin(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, ok := authenticate(w, r, validator, logger)
			if !ok {
				return
			}

			if principal.Role != domain.RoleAdmin {
				logger.WarnContext(ctx, "non-admin access attempt",
					"request_id", GetRequestID(ctx),
					"user_id", principal.UserID,
				)
				writeAuthError(w, http.StatusForbidden, "forbidden", "admin role required")
				return
			}

			ctx = context.WithValue(ctx, contextKeyPrincipal{}, *principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(w http.ResponseWriter, r *http.Request, validator TokenValidator, logger *slog.Logger) (*Principal, bool) {
	ctx := r.Context()
	authHeader := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || token == "" {
		writeAuthError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return nil, false
	}

	principal, err := validator.ValidateToken(token)
	if err != nil {
		logger.WarnContext(ctx, "invalid bearer token",
			"request_id", GetRequestID(ctx),
			"error", err,
		)
		writeAuthError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
		return nil, false
	}
	return principal, true
}

func writeAuthError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + code + `","error_description":"` + description + `"}`))
}
