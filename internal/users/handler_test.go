package users

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/vitagym/vitagym/internal/rbac"
	_ "github.com/vitagym/vitagym/testing"
)

type stubRepo struct {
	users []User
}

func (s *stubRepo) ListUsers(ctx context.Context) ([]User, error) {
	return s.users, nil
}

func newUsersRouter(principal rbac.Principal) http.Handler {
	repo := &stubRepo{users: []User{{ID: 1, Email: "admin@vitagym.com", Roles: []string{rbac.RoleAdmin}}}}
	handler := NewHandler(nil, NewService(repo), rbac.NewMiddleware(rbac.NewRegistry(), nil, nil))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(rbac.ContextWithPrincipal(req.Context(), principal)))
		})
	})
	r.Route("/admin/users", handler.MountRoutes)
	return r
}

func TestListUsersRequiresPermission(t *testing.T) {
	principal := rbac.Principal{UserID: 2, Roles: []string{rbac.RoleTrainer}}
	router := newUsersRouter(principal)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/admin/users", nil))

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without users view, got %d", res.Code)
	}
}

func TestListUsersWithPermission(t *testing.T) {
	principal := rbac.Principal{
		UserID: 2,
		Roles:  []string{rbac.RoleAdmin},
		Claims: []rbac.Claim{{Type: rbac.ClaimTypePermission, Value: string(rbac.PermUsersView)}},
	}
	router := newUsersRouter(principal)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/admin/users", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "admin@vitagym.com") {
		t.Fatalf("expected user in body, got %s", res.Body.String())
	}
}
