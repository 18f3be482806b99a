package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	ierrors "github.com/jrsteele09/ilumina-session/internal/errors"
	"github.com/jrsteele09/ilumina-session/token"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyClaims stores parsed access token claims
const ContextKeyClaims ContextKey = "claims"

// ClaimsFromContext returns the claims RequireAuth attached to the request.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*token.Claims)
	return claims, ok
}

// RequireAuth is middleware that validates a Bearer access token
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, "unauthorized", "Missing Authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				writeJSONError(w, "unauthorized", "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := s.access.Verify(parts[1])
			switch {
			case errors.Is(err, ierrors.ErrTokenExpired):
				writeJSONError(w, "unauthorized", "Token expired", http.StatusUnauthorized)
				return
			case err != nil:
				writeJSONError(w, "unauthorized", "Invalid token", http.StatusUnauthorized)
				return
			}

			next(w, r.WithContext(context.WithValue(r.Context(), ContextKeyClaims, claims)))
		}
	}
}
