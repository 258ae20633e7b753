package authz

import (
	"log/slog"
	"net/http"

	"github.com/meridian-wms/meridian/internal/platform/httpx"
	"github.com/meridian-wms/meridian/internal/shared"
)

// Middleware wires permission checks for HTTP handlers.
type Middleware struct {
	Policy Policy
	Logger *slog.Logger
}

// WithActor reads the caller identity headers into the request context. The
// upstream gateway is trusted to have authenticated them.
func WithActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := shared.Actor{
			ID:   r.Header.Get("X-Actor-Id"),
			Name: r.Header.Get("X-Actor-Name"),
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
	})
}

// Require rejects requests whose actor lacks the permission. Denials surface
// as the distinct permission-denied kind, never a generic failure.
func (m Middleware) Require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			policy := m.Policy
			if policy == nil {
				policy = AllowAllPolicy{}
			}
			actor := shared.ActorFromContext(r.Context())
			ok, err := policy.Allowed(r.Context(), actor, permission)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authz check", slog.String("permission", permission), slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			if !ok {
				httpx.RespondError(w, shared.ErrPermissionDenied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
