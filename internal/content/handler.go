package content

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helios-saas/helios/internal/authz"
	"github.com/helios-saas/helios/internal/platform/httpx"
	"github.com/helios-saas/helios/internal/rbac"
	"github.com/helios-saas/helios/internal/shared"
)

// Handler exposes page and global settings endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard}
}

var contentAdmins = []string{authz.RoleAdmin, authz.RoleCompanyAdmin}

// MountPageRoutes registers page routes. Published pages are readable by
// any authenticated principal; editing requires the pages permission.
func (h *Handler) MountPageRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Policy{}))
		r.Get("/", h.listPages)
		r.Get("/{slug}", h.getPage)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Require(contentAdmins, []string{shared.PermPagesWrite})))
		r.Post("/", h.createPage)
		r.Put("/{slug}", h.updatePage)
		r.Delete("/{slug}", h.deletePage)
	})
}

// MountSettingRoutes registers global settings routes.
func (h *Handler) MountSettingRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Require(contentAdmins, []string{shared.PermSettingsRead})))
		r.Get("/", h.listSettings)
		r.Get("/{key}", h.getSetting)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Require(contentAdmins, []string{shared.PermSettingsWrite})))
		r.Put("/{key}", h.putSetting)
		r.Delete("/{key}", h.deleteSetting)
	})
}

type pageRequest struct {
	Slug      string `json:"slug" validate:"required,max=255"`
	Title     string `json:"title" validate:"max=500"`
	Body      string `json:"body"`
	Published bool   `json:"published"`
}

type pageUpdateRequest struct {
	Title     string `json:"title" validate:"required,max=500"`
	Body      string `json:"body"`
	Published bool   `json:"published"`
}

type settingRequest struct {
	Value string `json:"value" validate:"max=10000"`
}

func (h *Handler) listPages(w http.ResponseWriter, r *http.Request) {
	includeDrafts := r.URL.Query().Get("include_drafts") == "true"
	pages, err := h.service.ListPages(r.Context(), includeDrafts)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, map[string]any{"pages": pages})
}

func (h *Handler) getPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.GetPage(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, page)
}

func (h *Handler) createPage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	page, err := h.service.CreatePage(r.Context(), req.Slug, req.Title, req.Body, req.Published)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.Created(w, page)
}

func (h *Handler) updatePage(w http.ResponseWriter, r *http.Request) {
	var req pageUpdateRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	page, err := h.service.UpdatePage(r.Context(), chi.URLParam(r, "slug"), req.Title, req.Body, req.Published)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, page)
}

func (h *Handler) deletePage(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePage(r.Context(), chi.URLParam(r, "slug")); err != nil {
		h.fail(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.ListSettings(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, map[string]any{"settings": settings})
}

func (h *Handler) getSetting(w http.ResponseWriter, r *http.Request) {
	setting, err := h.service.GetSetting(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, setting)
}

func (h *Handler) putSetting(w http.ResponseWriter, r *http.Request) {
	var req settingRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	setting, err := h.service.PutSetting(r.Context(), chi.URLParam(r, "key"), req.Value)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, setting)
}

func (h *Handler) deleteSetting(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSetting(r.Context(), chi.URLParam(r, "key")); err != nil {
		h.fail(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.logger.Error("content", slog.Any("error", err))
	httpx.RespondError(w, err)
}
