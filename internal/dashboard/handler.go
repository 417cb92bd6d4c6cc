// Package dashboard serves the dashboard home page.
package dashboard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/kirana-event/kirana/internal/cms"
	"github.com/kirana-event/kirana/internal/rbac"
	"github.com/kirana-event/kirana/internal/shared"
	"github.com/kirana-event/kirana/internal/view"
)

// ContentOverview summarises the managed pages.
type ContentOverview interface {
	Overview(ctx context.Context) ([]cms.PageSummary, error)
}

// Handler renders GET /dashboard.
type Handler struct {
	logger    *slog.Logger
	content   ContentOverview
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, content ContentOverview, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, content: content, templates: templates, csrf: csrf}
}

type homeData struct {
	Pages []cms.PageSummary
}

// VisiblePages keeps the summaries whose editor the request may open.
func VisiblePages(r *http.Request, pages []cms.PageSummary) []cms.PageSummary {
	acc, ok := rbac.AccessFromContext(r.Context())
	if !ok {
		return nil
	}
	out := make([]cms.PageSummary, 0, len(pages))
	for _, p := range pages {
		if acc.Allows(p.Page.Href()) {
			out = append(out, p)
		}
	}
	return out
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var data homeData
	if h.content != nil {
		pages, err := h.content.Overview(r.Context())
		if err != nil {
			h.logger.Warn("dashboard content overview", slog.Any("error", err))
		}
		data.Pages = VisiblePages(r, pages)
	}
	viewData := rbac.PageData(r, h.csrf, "Ringkasan", data)
	if err := h.templates.Render(w, "pages/dashboard/home.html", viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
