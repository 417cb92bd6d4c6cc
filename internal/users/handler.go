package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kirana-event/kirana/internal/access"
	"github.com/kirana-event/kirana/internal/rbac"
	"github.com/kirana-event/kirana/internal/shared"
	"github.com/kirana-event/kirana/internal/view"
)

const listPath = "/dashboard/users"

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: rbacMW, validator: validator.New()}
}

// MountRoutes registers user routes under /dashboard/users.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listUsers)
	r.Post("/{id}/active", h.toggleActive)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(access.RoleSuperadmin))
		r.Post("/{id}/role", h.changeRole)
	})
}

type formErrors map[string]string

type listData struct {
	Result ListResult
	Roles  []access.Role
	SelfID int64
	CanSet bool
	Errors formErrors
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Query: strings.TrimSpace(q.Get("q")), Page: shared.PageFromQuery(q)}
	if role, ok := access.ParseRole(q.Get("role")); ok {
		filter.Role = role
	}
	actor, _ := rbac.PrincipalFromContext(r.Context())
	data := listData{Roles: access.Roles(), SelfID: actor.ID, CanSet: actor.IsSuperadmin(), Errors: formErrors{}}

	result, err := h.service.ListUsers(r.Context(), filter)
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		data.Errors["general"] = shared.UserSafeMessage(err)
		h.render(w, r, "pages/users/list.html", data, http.StatusInternalServerError)
		return
	}
	data.Result = result
	h.render(w, r, "pages/users/list.html", data, http.StatusOK)
}

type roleForm struct {
	Role string `validate:"required,oneof=user admin superadmin"`
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	form := roleForm{Role: strings.TrimSpace(r.PostFormValue("role"))}
	if err := h.validator.Struct(form); err != nil {
		rbac.RedirectWithFlash(w, r, listPath, "danger", "Role tidak valid")
		return
	}
	actor, _ := rbac.PrincipalFromContext(r.Context())
	err := h.service.ChangeRole(r.Context(), actor, id, access.Role(form.Role))
	h.finish(w, r, err, "Role pengguna diperbarui", "change role")
}

func (h *Handler) toggleActive(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	active := r.PostFormValue("active") == "true"
	actor, _ := rbac.PrincipalFromContext(r.Context())
	err := h.service.SetActive(r.Context(), actor, id, active)
	msg := "Pengguna dinonaktifkan"
	if active {
		msg = "Pengguna diaktifkan"
	}
	h.finish(w, r, err, msg, "toggle active")
}

func (h *Handler) finish(w http.ResponseWriter, r *http.Request, err error, success, op string) {
	switch {
	case err == nil:
		rbac.RedirectWithFlash(w, r, listPath, "success", success)
	case errors.Is(err, ErrSelfChange):
		rbac.RedirectWithFlash(w, r, listPath, "warning", "Anda tidak dapat mengubah akun sendiri")
	case errors.Is(err, ErrInvalidRole):
		rbac.RedirectWithFlash(w, r, listPath, "danger", "Role tidak valid")
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrForbidden):
		rbac.RedirectWithFlash(w, r, listPath, "danger", shared.UserSafeMessage(err))
	default:
		h.logger.Error(op, slog.Any("error", err))
		rbac.RedirectWithFlash(w, r, listPath, "danger", shared.UserSafeMessage(err))
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data any, status int) {
	viewData := rbac.PageData(r, h.csrf, "Pengguna", data)
	if err := h.templates.RenderStatus(w, status, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}
