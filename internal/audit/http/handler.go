// Package audithttp menampilkan audit log di dashboard.
package audithttp

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kirana-event/kirana/internal/audit"
	"github.com/kirana-event/kirana/internal/rbac"
	"github.com/kirana-event/kirana/internal/shared"
	"github.com/kirana-event/kirana/internal/view"
)

// Actions yang bisa dipilih di filter.
var Actions = []string{
	audit.ActionRoleChanged,
	audit.ActionUserActivated,
	audit.ActionUserDeactivated,
	audit.ActionGrantsReplaced,
	audit.ActionInvitationCreated,
	audit.ActionInvitationRevoked,
	audit.ActionInvitationUsed,
	audit.ActionContentCreated,
	audit.ActionContentUpdated,
	audit.ActionContentTransition,
	audit.ActionSettingsUpdated,
	audit.ActionSuperadminSeeded,
}

// Handler melayani /dashboard/audit.
type Handler struct {
	logger    *slog.Logger
	service   *audit.Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler membuat Handler.
func NewHandler(logger *slog.Logger, service *audit.Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountRoutes mendaftarkan rute listing.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
}

type listData struct {
	Result  audit.Result
	Actions []string
	Errors  map[string]string
}

// FiltersFromQuery membaca filter dari query string.
func FiltersFromQuery(r *http.Request) audit.Filters {
	q := r.URL.Query()
	f := audit.Filters{
		Action: strings.TrimSpace(q.Get("action")),
		Entity: strings.TrimSpace(q.Get("entity")),
		Page:   shared.PageFromQuery(q),
	}
	if id, err := strconv.ParseInt(q.Get("actor"), 10, 64); err == nil && id > 0 {
		f.ActorID = id
	}
	if n, err := strconv.Atoi(q.Get("per_page")); err == nil && n > 0 {
		f.PerPage = n
	}
	return f
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	data := listData{Actions: Actions, Errors: map[string]string{}}
	result, err := h.service.List(r.Context(), FiltersFromQuery(r))
	status := http.StatusOK
	if err != nil {
		h.logger.Error("list audit", slog.Any("error", err))
		data.Errors["general"] = shared.UserSafeMessage(err)
		status = http.StatusInternalServerError
	}
	data.Result = result
	viewData := rbac.PageData(r, h.csrf, "Log Audit", data)
	if err := h.templates.RenderStatus(w, status, "pages/audit/list.html", viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
