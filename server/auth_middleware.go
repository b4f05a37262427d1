package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-catalog-link/collection"
	"github.com/rs/zerolog"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyUser stores the authenticated collection.User
const ContextKeyUser ContextKey = "user"

// RequireAuth is middleware that validates a Bearer token and injects the caller as a
// collection.User.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing Authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid Authorization header format")
				return
			}

			claims, err := s.services.Identity.Verify(parts[1])
			if err != nil {
				zerolog.Ctx(r.Context()).Debug().Err(err).Msg("bearer token rejected")
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid token")
				return
			}

			user := collection.User{ID: claims.Subject, Username: claims.Username}
			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			logger := zerolog.Ctx(ctx).With().Str("user_id", user.ID).Logger()
			next(w, r.WithContext(logger.WithContext(ctx)))
		}
	}
}

// UserFromContext returns the user injected by RequireAuth.
func UserFromContext(ctx context.Context) (collection.User, bool) {
	user, ok := ctx.Value(ContextKeyUser).(collection.User)
	return user, ok
}
