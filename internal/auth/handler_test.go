package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/vitagym/vitagym/internal/auth"
	"github.com/vitagym/vitagym/internal/rbac"
	"github.com/vitagym/vitagym/internal/shared"
	_ "github.com/vitagym/vitagym/testing"
)

type stubRepo struct {
	user            *auth.User
	createdSessions []string
	deletedSessions []string
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	s.createdSessions = append(s.createdSessions, id)
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	s.deletedSessions = append(s.deletedSessions, id)
	return nil
}

type stubPrincipals struct {
	principal rbac.Principal
}

func (s *stubPrincipals) PrincipalFor(ctx context.Context, userID int64) (rbac.Principal, error) {
	p := s.principal
	p.UserID = userID
	return p, nil
}

func newAuthHandler(t *testing.T, repo auth.Repository, principals auth.PrincipalLoader) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if principals == nil {
		principals = &stubPrincipals{}
	}
	handler := auth.NewHandler(logger, auth.NewService(repo), sessionManager, csrfManager, principals)
	return handler, sessionManager
}

func serveWithSession(t *testing.T, sessionManager *shared.SessionManager, sess *shared.Session, fn http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	ctx := shared.ContextWithSession(req.Context(), sess)
	res := httptest.NewRecorder()
	fn(res, req.WithContext(ctx))
	if err := sessionManager.Commit(ctx, res, req, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}
	return res
}

func seededUser(t *testing.T, password string, active bool) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &auth.User{ID: 1, Email: "user@vitagym.com", Name: "User", PasswordHash: string(hashed), IsActive: active}
}

func loginRequestBody(email, password string) *http.Request {
	body := `{"email":"` + email + `","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func loadSession(t *testing.T, sessionManager *shared.SessionManager, req *http.Request) *shared.Session {
	t.Helper()
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	return sess
}

func TestLoginSuccess(t *testing.T) {
	repo := &stubRepo{user: seededUser(t, "correct-password", true)}
	handler, sessionManager := newAuthHandler(t, repo, nil)

	req := loginRequestBody("user@vitagym.com", "correct-password")
	sess := loadSession(t, sessionManager, req)
	res := serveWithSession(t, sessionManager, sess, handler.HandleLoginForTest, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if sess.User() != "1" {
		t.Fatalf("expected session bound to user 1, got %q", sess.User())
	}
	if len(repo.createdSessions) != 1 {
		t.Fatalf("expected session audit record")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := &stubRepo{user: seededUser(t, "correct-password", true)}
	handler, sessionManager := newAuthHandler(t, repo, nil)

	req := loginRequestBody("user@vitagym.com", "wrong-password")
	sess := loadSession(t, sessionManager, req)
	res := serveWithSession(t, sessionManager, sess, handler.HandleLoginForTest, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if sess.User() != "" {
		t.Fatalf("session must stay anonymous after failed login")
	}
}

func TestLoginInactiveUser(t *testing.T) {
	repo := &stubRepo{user: seededUser(t, "correct-password", false)}
	handler, sessionManager := newAuthHandler(t, repo, nil)

	req := loginRequestBody("user@vitagym.com", "correct-password")
	sess := loadSession(t, sessionManager, req)
	res := serveWithSession(t, sessionManager, sess, handler.HandleLoginForTest, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for inactive account, got %d", res.Code)
	}
}

func TestLoginValidation(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{}, nil)

	req := loginRequestBody("not-an-email", "short")
	sess := loadSession(t, sessionManager, req)
	res := serveWithSession(t, sessionManager, sess, handler.HandleLoginForTest, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	repo := &stubRepo{user: seededUser(t, "correct-password", true)}
	handler, sessionManager := newAuthHandler(t, repo, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	sess := loadSession(t, sessionManager, req)
	sess.SetUser("1")
	res := serveWithSession(t, sessionManager, sess, handler.HandleLogoutForTest, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
	if len(repo.deletedSessions) != 1 {
		t.Fatalf("expected session record deletion")
	}
}

func TestMeReturnsRolesAndPermissions(t *testing.T) {
	principals := &stubPrincipals{principal: rbac.Principal{
		Roles: []string{rbac.RoleTrainer},
		Claims: []rbac.Claim{
			{Type: rbac.ClaimTypePermission, Value: string(rbac.PermSessionsView)},
			{Type: "Scope", Value: "ignored"},
		},
	}}
	handler, sessionManager := newAuthHandler(t, &stubRepo{}, principals)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	sess := loadSession(t, sessionManager, req)
	sess.SetUser("7")
	res := serveWithSession(t, sessionManager, sess, handler.HandleMeForTest, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := res.Body.String()
	if !strings.Contains(body, rbac.RoleTrainer) {
		t.Fatalf("expected role in body: %s", body)
	}
	if !strings.Contains(body, string(rbac.PermSessionsView)) {
		t.Fatalf("expected permission in body: %s", body)
	}
	if strings.Contains(body, "ignored") {
		t.Fatalf("non-permission claims must not leak: %s", body)
	}
}

func TestMeUnauthenticated(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	sess := loadSession(t, sessionManager, req)
	res := serveWithSession(t, sessionManager, sess, handler.HandleMeForTest, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}
