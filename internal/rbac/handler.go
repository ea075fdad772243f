package rbac

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/helios-saas/helios/internal/authz"
	"github.com/helios-saas/helios/internal/platform/httpx"
	"github.com/helios-saas/helios/internal/shared"
)

// Handler exposes role/permission administration endpoints. Every route is
// gated by the same engine the routes administer.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard}
}

var adminRoles = []string{authz.RoleAdmin, authz.RoleCompanyAdmin}

// MountRoutes registers administration routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/roles", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.guard.Require(authz.Require(adminRoles, []string{shared.PermRolesRead})))
			r.Get("/", h.listRoles)
			r.Get("/{roleID}", h.getRole)
			r.Get("/{roleID}/permissions", h.listRolePermissions)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.guard.Require(authz.Require(adminRoles, []string{shared.PermRolesWrite})))
			r.Post("/", h.createRole)
			r.Put("/{roleID}", h.updateRole)
			r.Delete("/{roleID}", h.deleteRole)
			r.Put("/{roleID}/permissions", h.replaceRolePermissions)
			r.Post("/{roleID}/permissions/{permissionID}", h.grantPermission)
			r.Delete("/{roleID}/permissions/{permissionID}", h.revokePermission)
		})
	})
	r.Route("/permissions", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.guard.Require(authz.Require(adminRoles, []string{shared.PermRolesRead})))
			r.Get("/", h.listPermissions)
			r.Get("/{permissionID}/roles", h.listPermissionRoles)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.guard.Require(authz.Require(adminRoles, []string{shared.PermRolesWrite})))
			r.Post("/", h.createPermission)
			r.Put("/{permissionID}", h.updatePermission)
			r.Delete("/{permissionID}", h.deletePermission)
		})
	})
}

// MountUserRoleRoutes registers the user/role assignment routes. It expects
// to be mounted under a path carrying a {userID} parameter.
func (h *Handler) MountUserRoleRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Require(adminRoles, []string{shared.PermUsersRead})))
		r.Get("/", h.listUserRoles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Require(adminRoles, []string{shared.PermUsersWrite})))
		r.Put("/", h.replaceUserRoles)
		r.Post("/{roleID}", h.assignRole)
		r.Delete("/{roleID}", h.revokeRole)
	})
}

type roleRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type permissionRequest struct {
	Name        string `json:"name" validate:"max=100"`
	Resource    string `json:"resource" validate:"required,max=100"`
	Action      string `json:"action" validate:"required,max=50"`
	Description string `json:"description" validate:"max=500"`
}

type permissionUpdateRequest struct {
	Description string `json:"description" validate:"max=500"`
}

type idListRequest struct {
	IDs []int64 `json:"ids" validate:"required"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, roles)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "roleID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, role)
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Name, req.Description)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Created(w, role)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "roleID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req roleRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	role, err := h.service.UpdateRole(r.Context(), id, req.Name, req.Description)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "roleID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "roleID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	perms, err := h.service.PermissionsOfRole(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, perms)
}

func (h *Handler) replaceRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "roleID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req idListRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	perms, err := h.service.ReplacePermissionsOfRole(r.Context(), id, req.IDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, perms)
}

func (h *Handler) grantPermission(w http.ResponseWriter, r *http.Request) {
	roleID, err := pathID(r, "roleID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	permissionID, err := pathID(r, "permissionID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.service.GrantPermission(r.Context(), roleID, permissionID); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) revokePermission(w http.ResponseWriter, r *http.Request) {
	roleID, err := pathID(r, "roleID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	permissionID, err := pathID(r, "permissionID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.service.RevokePermission(r.Context(), roleID, permissionID); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, perms)
}

func (h *Handler) listPermissionRoles(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "permissionID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	roles, err := h.service.RolesOfPermission(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, roles)
}

func (h *Handler) createPermission(w http.ResponseWriter, r *http.Request) {
	var req permissionRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	perm, err := h.service.CreatePermission(r.Context(), req.Name, req.Resource, req.Action, req.Description)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Created(w, perm)
}

func (h *Handler) updatePermission(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "permissionID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req permissionUpdateRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	perm, err := h.service.UpdatePermission(r.Context(), id, req.Description)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, perm)
}

func (h *Handler) deletePermission(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "permissionID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.service.DeletePermission(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listUserRoles(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	refs, err := h.service.RolesOfUser(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, refs)
}

func (h *Handler) replaceUserRoles(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req idListRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	refs, err := h.service.ReplaceRolesOfUser(r.Context(), userID, req.IDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.OK(w, refs)
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	roleID, err := pathID(r, "roleID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.service.AssignRole(r.Context(), userID, roleID); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) revokeRole(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	roleID, err := pathID(r, "roleID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.service.RevokeRole(r.Context(), userID, roleID); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("rbac admin", slog.String("path", r.URL.Path), slog.Any("error", err))
	httpx.RespondError(w, err)
}

func pathID(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrValidation
	}
	return id, nil
}
