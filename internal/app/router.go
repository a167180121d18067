package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vitagym/vitagym/internal/auth"
	"github.com/vitagym/vitagym/internal/observability"
	"github.com/vitagym/vitagym/internal/roles"
	"github.com/vitagym/vitagym/internal/shared"
	"github.com/vitagym/vitagym/internal/users"
	"github.com/vitagym/vitagym/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	AuthHandler    *auth.Handler
	RolesHandler   *roles.Handler
	UsersHandler   *users.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with VitaGym defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/admin/roles", params.RolesHandler.MountRoutes)
	r.Route("/admin/users", params.UsersHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/admin/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
