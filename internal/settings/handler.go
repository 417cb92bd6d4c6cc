package settings

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kirana-event/kirana/internal/platform/httpx"
	"github.com/kirana-event/kirana/internal/rbac"
	"github.com/kirana-event/kirana/internal/shared"
	"github.com/kirana-event/kirana/internal/view"
)

const editPath = "/dashboard/settings"

// Handler serves the settings form under /dashboard/settings.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountRoutes registers the form routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
	r.Post("/", h.update)
}

type formData struct {
	Settings Settings
	Errors   map[string]string
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	data := formData{Errors: map[string]string{}}
	s, err := h.service.Get(r.Context())
	if err != nil {
		h.logger.Error("load settings", slog.Any("error", err))
		data.Errors["general"] = shared.UserSafeMessage(err)
		h.render(w, r, data, http.StatusInternalServerError)
		return
	}
	data.Settings = s
	h.render(w, r, data, http.StatusOK)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	in := Settings{
		ContactEmail: r.PostFormValue(KeyContactEmail),
		ContactPhone: r.PostFormValue(KeyContactPhone),
		WhatsApp:     r.PostFormValue(KeyWhatsApp),
		Address:      r.PostFormValue(KeyAddress),
		Instagram:    r.PostFormValue(KeyInstagram),
	}
	actor, _ := rbac.PrincipalFromContext(r.Context())
	changed, err := h.service.Update(r.Context(), actor.ID, in)
	var fields FieldErrors
	switch {
	case err == nil && len(changed) == 0:
		rbac.RedirectWithFlash(w, r, editPath, "info", "Tidak ada perubahan")
	case err == nil:
		rbac.RedirectWithFlash(w, r, editPath, "success", "Pengaturan disimpan")
	case errors.As(err, &fields):
		h.render(w, r, formData{Settings: Normalize(in), Errors: fields}, http.StatusUnprocessableEntity)
	default:
		h.logger.Error("update settings", slog.Any("error", err))
		rbac.RedirectWithFlash(w, r, editPath, "danger", shared.UserSafeMessage(err))
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data formData, status int) {
	viewData := rbac.PageData(r, h.csrf, "Pengaturan", data)
	if err := h.templates.RenderStatus(w, status, "pages/settings/edit.html", viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// APIHandler serves the public contact details.
type APIHandler struct {
	logger  *slog.Logger
	service *Service
}

// NewAPIHandler builds an APIHandler.
func NewAPIHandler(logger *slog.Logger, service *Service) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{logger: logger, service: service}
}

// ServeHTTP answers GET /api/settings.
func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Get(r.Context())
	if err != nil {
		h.logger.Error("public settings", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	httpx.CachedJSON(w, r, 5*time.Minute, s)
}
