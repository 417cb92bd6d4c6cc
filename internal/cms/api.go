package cms

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kirana-event/kirana/internal/platform/httpx"
)

const publicMaxAge = time.Minute

// APIHandler serves published content to the marketing site.
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

// MountRoutes registers GET /{page} under /api/content.
func (h *APIHandler) MountRoutes(r chi.Router) {
	r.Get("/{page}", h.get)
}

func (h *APIHandler) get(w http.ResponseWriter, r *http.Request) {
	page, err := ParsePage(chi.URLParam(r, "page"))
	if err != nil {
		httpx.Problem(w, r, http.StatusNotFound, "unknown page")
		return
	}
	content, err := h.service.PublicContent(r.Context(), page)
	switch {
	case err == nil:
		httpx.CachedJSON(w, r, publicMaxAge, content)
	case errors.Is(err, ErrNothingPublished):
		httpx.Problem(w, r, http.StatusNotFound, "page has no published content")
	default:
		h.logger.Error("public content", slog.String("page", string(page)), slog.Any("error", err))
		httpx.RespondError(w, r, err)
	}
}
