package roles

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vitagym/vitagym/internal/identity"
	"github.com/vitagym/vitagym/internal/platform/httpx"
	"github.com/vitagym/vitagym/internal/rbac"
)

// Handler manages role management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		rbac:      mw,
		validator: validator.New(),
	}
}

// MountRoutes registers role management routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.PermRolesView))
		r.Get("/", h.listRoles)
		r.Get("/{id}", h.getRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.PermRolesCreate))
		r.Post("/", h.createRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.PermRolesEdit))
		r.Put("/{id}", h.renameRole)
	})
	// Deleting roles and rewriting permission sets stay behind the
	// SuperAdmin role gate on top of their permission policies.
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(rbac.RoleSuperAdmin))
		r.Use(h.rbac.Require(rbac.PermRolesDelete))
		r.Delete("/{id}", h.deleteRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(rbac.RoleSuperAdmin))
		r.Use(h.rbac.Require(rbac.PermRolesManagePermissions))
		r.Get("/{id}/permissions", h.getPermissions)
		r.Put("/{id}/permissions", h.setPermissions)
	})
}

type createRoleRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=64"`
	Description string `json:"description" validate:"max=255"`
}

type renameRoleRequest struct {
	Name string `json:"name" validate:"required,min=2,max=64"`
}

type setPermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"required"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, r, "list roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": summaries})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var payload createRoleRequest
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}
	summary, err := h.service.Create(r.Context(), payload.Name, payload.Description)
	if err != nil {
		h.respondError(w, r, "create role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, summary)
}

func (h *Handler) renameRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	var payload renameRoleRequest
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationDetail(err))
		return
	}
	summary, err := h.service.Rename(r.Context(), id, payload.Name)
	if err != nil {
		h.respondError(w, r, "rename role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, r, "delete role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	view, err := h.service.PermissionView(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "permission view", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) setPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	var payload setPermissionsRequest
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	requested := make([]rbac.Permission, 0, len(payload.Permissions))
	for _, p := range payload.Permissions {
		requested = append(requested, rbac.Permission(p))
	}
	if err := h.service.SetPermissions(r.Context(), id, requested); err != nil {
		h.respondError(w, r, "set permissions", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) roleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Role ID", "role id must be a positive integer")
		return 0, false
	}
	return id, true
}

// respondError maps service errors onto distinct response shapes: missing
// roles are 404, guard violations 409, and a failed permission rewrite is
// an explicit 500, never a silent success.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, rbac.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Role Not Found", "")
	case errors.Is(err, identity.ErrDuplicateRole):
		httpx.Problem(w, http.StatusConflict, "Duplicate Role", "a role with that name already exists")
	case errors.Is(err, ErrProtectedRole):
		httpx.Problem(w, http.StatusConflict, "Protected Role", "the SuperAdmin role cannot be modified")
	case errors.Is(err, ErrRoleHasUsers):
		httpx.Problem(w, http.StatusConflict, "Role In Use", err.Error())
	case errors.Is(err, rbac.ErrRewriteFailed):
		httpx.Problem(w, http.StatusInternalServerError, "Update Failed", "permissions were not updated; retry after reloading the role")
	default:
		if h.logger != nil {
			h.logger.Error(op, slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func validationDetail(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fieldErrs[0].Error()
	}
	return err.Error()
}
