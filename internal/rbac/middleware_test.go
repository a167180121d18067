package rbac_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vitagym/vitagym/internal/rbac"
	"github.com/vitagym/vitagym/internal/shared"
	_ "github.com/vitagym/vitagym/testing"
)

type stubLoader struct {
	principal rbac.Principal
	err       error
	calls     int
}

func (s *stubLoader) PrincipalFor(ctx context.Context, userID int64) (rbac.Principal, error) {
	s.calls++
	if s.err != nil {
		return rbac.Principal{}, s.err
	}
	p := s.principal
	p.UserID = userID
	return p, nil
}

func requestWithUser(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/admin/roles", nil)
	sess := &shared.Session{ID: "test-session"}
	if userID != "" {
		sess.SetUser(userID)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func okHandler(t *testing.T, wantPrincipal bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantPrincipal {
			if _, ok := rbac.PrincipalFromContext(r.Context()); !ok {
				t.Errorf("principal missing from request context")
			}
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireWithoutSession(t *testing.T) {
	mw := rbac.NewMiddleware(rbac.NewRegistry(), &stubLoader{}, nil)
	handler := mw.Require(rbac.PermRolesView)(okHandler(t, false))

	req := httptest.NewRequest(http.MethodGet, "/admin/roles", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestRequireAnonymousSession(t *testing.T) {
	mw := rbac.NewMiddleware(rbac.NewRegistry(), &stubLoader{}, nil)
	handler := mw.Require(rbac.PermRolesView)(okHandler(t, false))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, requestWithUser(""))

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestRequireDeniedIsForbidden(t *testing.T) {
	loader := &stubLoader{principal: rbac.Principal{
		Roles:  []string{rbac.RoleMember},
		Claims: []rbac.Claim{{Type: rbac.ClaimTypePermission, Value: string(rbac.PermBookingsView)}},
	}}
	mw := rbac.NewMiddleware(rbac.NewRegistry(), loader, nil)
	handler := mw.Require(rbac.PermRolesView)(okHandler(t, false))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, requestWithUser("42"))

	// Denied is 403, never a 404 shape.
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
	if ct := res.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected problem response, got %q", ct)
	}
}

func TestRequireGranted(t *testing.T) {
	loader := &stubLoader{principal: rbac.Principal{
		Roles:  []string{rbac.RoleAdmin},
		Claims: []rbac.Claim{{Type: rbac.ClaimTypePermission, Value: string(rbac.PermUsersView)}},
	}}
	mw := rbac.NewMiddleware(rbac.NewRegistry(), loader, nil)
	handler := mw.Require(rbac.PermUsersView)(okHandler(t, true))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, requestWithUser("42"))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestRequireSuperAdminBypassesClaims(t *testing.T) {
	loader := &stubLoader{principal: rbac.Principal{Roles: []string{rbac.RoleSuperAdmin}}}
	mw := rbac.NewMiddleware(rbac.NewRegistry(), loader, nil)
	handler := mw.Require(rbac.PermRolesManagePermissions)(okHandler(t, true))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, requestWithUser("1"))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestRequireUnknownPolicyFailsClosed(t *testing.T) {
	loader := &stubLoader{principal: rbac.Principal{Roles: []string{rbac.RoleSuperAdmin}}}
	mw := rbac.NewMiddleware(rbac.NewRegistry(), loader, nil)
	handler := mw.Require("Permissions.Members.ViewAll")(okHandler(t, false))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, requestWithUser("1"))

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unregistered policy, got %d", res.Code)
	}
	if loader.calls != 0 {
		t.Fatalf("principal must not be loaded for an unregistered policy")
	}
}

func TestRequireLoaderFailure(t *testing.T) {
	loader := &stubLoader{err: errors.New("identity store down")}
	mw := rbac.NewMiddleware(rbac.NewRegistry(), loader, nil)
	handler := mw.Require(rbac.PermUsersView)(okHandler(t, false))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, requestWithUser("42"))

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
}

func TestRequireRole(t *testing.T) {
	loader := &stubLoader{principal: rbac.Principal{Roles: []string{rbac.RoleAdmin}}}
	mw := rbac.NewMiddleware(rbac.NewRegistry(), loader, nil)

	res := httptest.NewRecorder()
	mw.RequireRole(rbac.RoleSuperAdmin)(okHandler(t, false)).ServeHTTP(res, requestWithUser("42"))
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for missing role, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	mw.RequireRole(rbac.RoleAdmin)(okHandler(t, true)).ServeHTTP(res, requestWithUser("42"))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 for member of role, got %d", res.Code)
	}
}

func TestRequireReusesContextPrincipal(t *testing.T) {
	loader := &stubLoader{}
	mw := rbac.NewMiddleware(rbac.NewRegistry(), loader, nil)
	handler := mw.Require(rbac.PermUsersView)(okHandler(t, true))

	principal := rbac.Principal{
		UserID: 9,
		Roles:  []string{rbac.RoleAdmin},
		Claims: []rbac.Claim{{Type: rbac.ClaimTypePermission, Value: string(rbac.PermUsersView)}},
	}
	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req = req.WithContext(rbac.ContextWithPrincipal(req.Context(), principal))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if loader.calls != 0 {
		t.Fatalf("loader must not run when a principal is already attached")
	}
}
