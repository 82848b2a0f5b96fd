// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"net/http"
	"strings"

	"github.com/civiclabs/votegrity/internal/auth"
)

// TokenValidator validates a session token and returns its claims.
// Implemented by auth.JWTService.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// unauthorizedBody is the fixed JSON body for authentication failures.
// The middleware cannot use the api package's error writer without an import
// cycle, so it writes the same wire format directly.
const unauthorizedBody = `{"error":{"code":"unauthorized","message":"Missing or invalid session token"}}`

const forbiddenBody = `{"error":{"code":"forbidden","message":"Insufficient privileges"}}`

// Authenticate validates the Bearer token on the request and stores the
// subject ID and role in the context. Requests without a valid token get 401.
func Authenticate(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeAuthError(w, http.StatusUnauthorized, unauthorizedBody)
				return
			}

			claims, err := validator.ValidateToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, unauthorizedBody)
				return
			}

			ctx := SetVoterID(r.Context(), claims.Subject)
			ctx = SetRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose context role does not match.
// Must run inside Authenticate.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetRole(r.Context()) != role {
				writeAuthError(w, http.StatusForbidden, forbiddenBody)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
