package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/atelierhq/atelier/internal/domain"
	"github.com/atelierhq/atelier/internal/pkg/token"
)

type identityCtxKey struct{}

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFrom extracts the authenticated identity from a context.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(domain.Identity)
	return id, ok
}

// Auth is a middleware factory that reconstructs the caller identity
// from a bearer token and stores it in the request context. Token
// issuance belongs to the upstream authentication service; this layer
// only verifies.
func Auth(secretKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "Unauthorized: bearer token required", http.StatusUnauthorized)
				return
			}

			id, err := token.Verify(strings.TrimPrefix(header, "Bearer "), secretKey)
			if err != nil {
				logger.Warn("token verification failed", "error", err, "remote_addr", r.RemoteAddr)
				http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
