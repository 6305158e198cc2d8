package middleware

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nightowl-social/nightowl/internal/handlers"
	"github.com/nightowl-social/nightowl/internal/services"
)

// userIDHeader carries the identity the API gateway verified upstream. The
// engine trusts the header and only resolves it against the local user mirror.
const userIDHeader = "X-User-ID"

type IdentityMiddleware struct {
	users services.UserDirectory
}

func NewIdentityMiddleware(users services.UserDirectory) *IdentityMiddleware {
	return &IdentityMiddleware{users: users}
}

// Resolve looks up the gateway-supplied identity and adds the user to the
// request context. Requests without a header, or with an unknown identity,
// continue without a user; RequireUser is where they get rejected.
func (m *IdentityMiddleware) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(userIDHeader)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := uuid.Parse(raw)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.users.GetByID(r.Context(), userID)
		if err != nil {
			if !errors.Is(err, services.ErrUserNotFound) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"Internal server error"}`))
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := handlers.SetUserInContext(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser rejects requests that carry no resolved identity.
func (m *IdentityMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := handlers.GetUserFromContext(r.Context())
		if user == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Authentication required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
