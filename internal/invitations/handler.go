package invitations

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kirana-event/kirana/internal/access"
	"github.com/kirana-event/kirana/internal/rbac"
	"github.com/kirana-event/kirana/internal/shared"
	"github.com/kirana-event/kirana/internal/view"
)

// Handler serves /dashboard/invitations.
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
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: rbacMW, validator: validator.New()}
}

// MountRoutes registers invitation routes. Every route is superadmin only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(access.RoleSuperadmin))
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Post("/{id}/revoke", h.revoke)
	})
}

type inviteForm struct {
	Email string `validate:"required,email,max=254"`
	Role  string `validate:"required,oneof=user admin"`
}

type formErrors map[string]string

// Row is an invitation with its status resolved for display.
type Row struct {
	Invitation
	Status string
}

type listData struct {
	Rows   []Row
	Form   inviteForm
	Errors formErrors
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, inviteForm{Role: string(access.RoleAdmin)}, formErrors{}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := inviteForm{
		Email: strings.TrimSpace(r.PostFormValue("email")),
		Role:  strings.TrimSpace(r.PostFormValue("role")),
	}
	errs := formErrors{}
	if err := h.validator.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs[fe.Field()] = fieldMessage(fe)
			}
		}
		h.renderList(w, r, form, errs, http.StatusBadRequest)
		return
	}
	actor, _ := rbac.PrincipalFromContext(r.Context())
	inv, err := h.service.Create(r.Context(), actor.ID, form.Email, access.Role(form.Role))
	switch {
	case err == nil:
		h.logger.Info("invitation created", slog.String("invitation_id", inv.ID.String()), slog.Int64("actor_id", actor.ID))
		rbac.RedirectWithFlash(w, r, "/dashboard/invitations", "success", "Undangan dikirim ke "+inv.Email)
	case errors.Is(err, ErrEmailTaken):
		errs["Email"] = "Email sudah terdaftar"
		h.renderList(w, r, form, errs, http.StatusConflict)
	case errors.Is(err, ErrPending):
		errs["Email"] = "Undangan aktif untuk email ini sudah ada"
		h.renderList(w, r, form, errs, http.StatusConflict)
	default:
		h.logger.Error("create invitation", slog.Any("error", err))
		errs["general"] = shared.UserSafeMessage(err)
		h.renderList(w, r, form, errs, http.StatusInternalServerError)
	}
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	actor, _ := rbac.PrincipalFromContext(r.Context())
	if err := h.service.Revoke(r.Context(), actor.ID, id); err != nil {
		if errors.Is(err, ErrInvitationInvalid) {
			rbac.RedirectWithFlash(w, r, "/dashboard/invitations", "warning", "Undangan sudah tidak aktif")
			return
		}
		h.logger.Error("revoke invitation", slog.Any("error", err))
		rbac.RedirectWithFlash(w, r, "/dashboard/invitations", "danger", shared.UserSafeMessage(err))
		return
	}
	rbac.RedirectWithFlash(w, r, "/dashboard/invitations", "success", "Undangan dibatalkan")
}

func (h *Handler) renderList(w http.ResponseWriter, r *http.Request, form inviteForm, errs formErrors, status int) {
	invs, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list invitations", slog.Any("error", err))
		errs["general"] = shared.UserSafeMessage(err)
		status = http.StatusInternalServerError
	}
	now := time.Now().UTC()
	rows := make([]Row, 0, len(invs))
	for _, inv := range invs {
		rows = append(rows, Row{Invitation: inv, Status: inv.Status(now)})
	}
	data := rbac.PageData(r, h.csrf, "Undangan Admin", listData{Rows: rows, Form: form, Errors: errs})
	if err := h.templates.RenderStatus(w, status, "pages/invitations/list.html", data); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Wajib diisi"
	case "email":
		return "Format email tidak valid"
	case "oneof":
		return "Pilihan tidak valid"
	default:
		return "Nilai tidak valid"
	}
}
