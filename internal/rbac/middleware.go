package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/vitagym/vitagym/internal/platform/httpx"
	"github.com/vitagym/vitagym/internal/shared"
)

// PrincipalLoader materializes the principal for a user id: its role
// names plus the union of those roles' claims.
type PrincipalLoader interface {
	PrincipalFor(ctx context.Context, userID int64) (Principal, error)
}

// principalGroup collapses concurrent principal loads for the same user
// into a single identity-store query.
var principalGroup singleflight.Group

// Middleware wires permission-policy enforcement into HTTP handlers.
type Middleware struct {
	Registry *Registry
	Loader   PrincipalLoader
	Logger   *slog.Logger
}

// NewMiddleware constructs the middleware.
func NewMiddleware(registry *Registry, loader PrincipalLoader, logger *slog.Logger) Middleware {
	return Middleware{Registry: registry, Loader: loader, Logger: logger}
}

type principalContextKey struct{}

// ContextWithPrincipal stores the evaluated principal in context so
// handlers behind the middleware can reuse it.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal placed by the middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}

// Require enforces the policy derived from the permission. Requests
// without an authenticated session get 401; authenticated principals that
// fail evaluation get 403, never a 404 shape.
func (m Middleware) Require(perm Permission) func(http.Handler) http.Handler {
	policyName := PolicyName(perm)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requirement, ok := m.Registry.Policy(policyName)
			if !ok {
				// A policy name outside the registry fails closed.
				if m.Logger != nil {
					m.Logger.Error("unknown policy", slog.String("policy", policyName))
				}
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
				return
			}

			principal, status := m.principal(r)
			if status != http.StatusOK {
				httpx.Problem(w, status, http.StatusText(status), "")
				return
			}
			if !requirement.Satisfied(principal) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing permission")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireRole restricts a route to members of the named role, mirroring
// the coarse role gate layered on top of permission checks for the most
// sensitive operations.
func (m Middleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, status := m.principal(r)
			if status != http.StatusOK {
				httpx.Problem(w, status, http.StatusText(status), "")
				return
			}
			if !principal.InRole(role) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing role")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

func (m Middleware) principal(r *http.Request) (Principal, int) {
	if p, ok := PrincipalFromContext(r.Context()); ok {
		return p, http.StatusOK
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return Principal{}, http.StatusUnauthorized
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return Principal{}, http.StatusUnauthorized
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("parse session user id", slog.String("value", raw))
		}
		return Principal{}, http.StatusUnauthorized
	}

	v, err, _ := principalGroup.Do("principal:"+raw, func() (any, error) {
		return m.Loader.PrincipalFor(r.Context(), userID)
	})
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("load principal", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return Principal{}, http.StatusInternalServerError
	}
	return v.(Principal), http.StatusOK
}
