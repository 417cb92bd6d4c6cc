package health

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kirana-event/kirana/internal/platform/httpx"
	"github.com/kirana-event/kirana/internal/rbac"
	"github.com/kirana-event/kirana/internal/shared"
	"github.com/kirana-event/kirana/internal/view"
)

// Handler serves /dashboard/system-health.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountRoutes registers health routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.page)
	r.Get("/metrics.json", h.json)
}

type pageData struct {
	Current   Snapshot
	Stored    Snapshot
	HasStored bool
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) {
	data := pageData{Current: h.service.Metrics(r.Context())}
	stored, ok, err := h.service.LatestSnapshot(r.Context())
	if err != nil {
		h.logger.Warn("load health snapshot", slog.Any("error", err))
	}
	data.Stored, data.HasStored = stored, ok
	td := rbac.PageData(r, h.csrf, "Kesehatan Sistem", data)
	if err := h.templates.Render(w, "pages/health/index.html", td); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) json(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.Metrics(r.Context()))
}
