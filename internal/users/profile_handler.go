package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kirana-event/kirana/internal/rbac"
	"github.com/kirana-event/kirana/internal/shared"
	"github.com/kirana-event/kirana/internal/view"
)

const profilePath = "/dashboard/profile"

// ProfileHandler serves the signed-in user's own profile.
type ProfileHandler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	validator *validator.Validate
}

// NewProfileHandler builds ProfileHandler instance.
func NewProfileHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *ProfileHandler {
	return &ProfileHandler{logger: logger, service: service, templates: templates, csrf: csrf, validator: validator.New()}
}

// MountRoutes registers profile routes under /dashboard/profile.
func (h *ProfileHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
	r.Post("/", h.updateName)
	r.Post("/password", h.changePassword)
}

type nameForm struct {
	Name string `validate:"required,max=120"`
}

type passwordForm struct {
	Current string `validate:"required"`
	New     string `validate:"required,min=8,max=72,nefield=Current"`
	Confirm string `validate:"required,eqfield=New"`
}

type profileData struct {
	Name   string
	Errors formErrors
}

func (h *ProfileHandler) show(w http.ResponseWriter, r *http.Request) {
	actor, _ := rbac.PrincipalFromContext(r.Context())
	h.render(w, r, profileData{Name: actor.Name, Errors: formErrors{}}, http.StatusOK)
}

func (h *ProfileHandler) updateName(w http.ResponseWriter, r *http.Request) {
	form := nameForm{Name: strings.TrimSpace(r.PostFormValue("name"))}
	if errs := formErrorsFrom(h.validator.Struct(form)); len(errs) > 0 {
		h.render(w, r, profileData{Name: form.Name, Errors: errs}, http.StatusBadRequest)
		return
	}
	actor, _ := rbac.PrincipalFromContext(r.Context())
	if err := h.service.UpdateName(r.Context(), actor, form.Name); err != nil {
		h.logger.Error("update profile", slog.Any("error", err))
		h.render(w, r, profileData{Name: form.Name, Errors: formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	rbac.RedirectWithFlash(w, r, profilePath, "success", "Profil diperbarui")
}

func (h *ProfileHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	actor, _ := rbac.PrincipalFromContext(r.Context())
	form := passwordForm{
		Current: r.PostFormValue("current_password"),
		New:     r.PostFormValue("new_password"),
		Confirm: r.PostFormValue("confirm_password"),
	}
	if errs := formErrorsFrom(h.validator.Struct(form)); len(errs) > 0 {
		h.render(w, r, profileData{Name: actor.Name, Errors: errs}, http.StatusBadRequest)
		return
	}
	err := h.service.ChangePassword(r.Context(), actor, form.Current, form.New)
	switch {
	case err == nil:
		rbac.RedirectWithFlash(w, r, profilePath, "success", "Password berhasil diganti")
	case errors.Is(err, ErrWrongPassword):
		h.render(w, r, profileData{Name: actor.Name, Errors: formErrors{"Current": "Password saat ini salah"}}, http.StatusBadRequest)
	default:
		h.logger.Error("change password", slog.Any("error", err))
		h.render(w, r, profileData{Name: actor.Name, Errors: formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
	}
}

func (h *ProfileHandler) render(w http.ResponseWriter, r *http.Request, data profileData, status int) {
	viewData := rbac.PageData(r, h.csrf, "Profil", data)
	if err := h.templates.RenderStatus(w, status, "pages/users/profile.html", viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func formErrorsFrom(err error) formErrors {
	errs := formErrors{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			switch fe.Tag() {
			case "required":
				errs[fe.Field()] = "Wajib diisi"
			case "min":
				errs[fe.Field()] = "Minimal " + fe.Param() + " karakter"
			case "eqfield":
				errs[fe.Field()] = "Konfirmasi password tidak sama"
			case "nefield":
				errs[fe.Field()] = "Password baru harus berbeda"
			default:
				errs[fe.Field()] = "Nilai tidak valid"
			}
		}
	}
	return errs
}
