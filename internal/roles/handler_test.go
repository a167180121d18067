package roles

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/vitagym/vitagym/internal/identity"
	"github.com/vitagym/vitagym/internal/rbac"
	_ "github.com/vitagym/vitagym/testing"
)

func superAdminPrincipal() rbac.Principal {
	return rbac.Principal{UserID: 1, Roles: []string{rbac.RoleSuperAdmin}}
}

func newTestRouter(t *testing.T, repo *mockRepository, store *mockStore, principal rbac.Principal) http.Handler {
	t.Helper()
	handler := NewHandler(nil, NewService(repo, store), rbac.NewMiddleware(rbac.NewRegistry(), nil, nil))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(rbac.ContextWithPrincipal(req.Context(), principal)))
		})
	})
	r.Route("/admin/roles", handler.MountRoutes)
	return r
}

func TestListRolesEndpoint(t *testing.T) {
	repo := newMockRepository(identity.Role{ID: 2, Name: rbac.RoleTrainer})
	router := newTestRouter(t, repo, newMockStore(), superAdminPrincipal())

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/admin/roles", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), rbac.RoleTrainer) {
		t.Fatalf("expected role name in body, got %s", res.Body.String())
	}
}

func TestGetRoleNotFound(t *testing.T) {
	router := newTestRouter(t, newMockRepository(), newMockStore(), superAdminPrincipal())

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/admin/roles/99", nil))

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestCreateRoleValidation(t *testing.T) {
	router := newTestRouter(t, newMockRepository(), newMockStore(), superAdminPrincipal())

	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/roles", strings.NewReader(`{"name":"x"}`))
	router.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short name, got %d", res.Code)
	}
}

func TestCreateRoleDuplicate(t *testing.T) {
	repo := newMockRepository(identity.Role{ID: 2, Name: "FrontDesk"})
	router := newTestRouter(t, repo, newMockStore(), superAdminPrincipal())

	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/roles", strings.NewReader(`{"name":"FrontDesk"}`))
	router.ServeHTTP(res, req)

	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.Code)
	}
}

func TestDeleteProtectedRoleEndpoint(t *testing.T) {
	repo := newMockRepository(identity.Role{ID: 1, Name: rbac.RoleSuperAdmin})
	router := newTestRouter(t, repo, newMockStore(), superAdminPrincipal())

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, "/admin/roles/1", nil))

	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.Code)
	}
}

func TestDeleteRequiresSuperAdminRole(t *testing.T) {
	repo := newMockRepository(identity.Role{ID: 2, Name: "NightShift"})
	// Admin holds every permission but not the SuperAdmin role.
	admin := rbac.Principal{UserID: 2, Roles: []string{rbac.RoleAdmin}}
	for _, p := range rbac.All() {
		admin.Claims = append(admin.Claims, rbac.Claim{Type: rbac.ClaimTypePermission, Value: string(p)})
	}
	router := newTestRouter(t, repo, newMockStore(), admin)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, "/admin/roles/2", nil))

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without the role gate, got %d", res.Code)
	}
}

func TestSetPermissionsRewriteFailure(t *testing.T) {
	repo := newMockRepository(identity.Role{ID: 2, Name: rbac.RoleTrainer})
	store := newMockStore()
	store.setErr = fmt.Errorf("%w: role %q: storage down", rbac.ErrRewriteFailed, rbac.RoleTrainer)
	router := newTestRouter(t, repo, store, superAdminPrincipal())

	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/admin/roles/2/permissions", strings.NewReader(`{"permissions":["Permissions.Sessions.View"]}`))
	router.ServeHTTP(res, req)

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for failed rewrite, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "Update Failed") {
		t.Fatalf("expected explicit failure title, got %s", res.Body.String())
	}
}

func TestSetPermissionsEndpoint(t *testing.T) {
	repo := newMockRepository(identity.Role{ID: 2, Name: rbac.RoleTrainer})
	store := newMockStore()
	router := newTestRouter(t, repo, store, superAdminPrincipal())

	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/admin/roles/2/permissions", strings.NewReader(`{"permissions":["Permissions.Sessions.View","Permissions.Bookings.View"]}`))
	router.ServeHTTP(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
	if len(store.lastRewrite) != 2 {
		t.Fatalf("expected 2 requested permissions, got %v", store.lastRewrite)
	}
}

func TestInvalidRoleID(t *testing.T) {
	router := newTestRouter(t, newMockRepository(), newMockStore(), superAdminPrincipal())

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/admin/roles/abc", nil))

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}
