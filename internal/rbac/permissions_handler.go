package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kirana-event/kirana/internal/access"
	"github.com/kirana-event/kirana/internal/shared"
	"github.com/kirana-event/kirana/internal/view"
)

// Grant states offered per definition in the editor.
const (
	StateInherit = "inherit"
	StateAllow   = "allow"
	StateDeny    = "deny"
)

// PermissionsHandler serves the grant editor under /dashboard/permissions.
type PermissionsHandler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.listUsers)
	r.Get("/{userID}", h.showEditor)
	r.Post("/{userID}", h.saveGrants)
}

type formErrors map[string]string

// DefinitionRow is one line of the grant editor.
type DefinitionRow struct {
	Definition access.PermissionDefinition
	State      string
}

type editorData struct {
	Target     Principal
	Rows       []DefinitionRow
	Templates  []access.PermissionTemplate
	TemplateID string
	Editable   bool
	Errors     formErrors
}

func (h *PermissionsHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.Users(r.Context())
	if err != nil {
		h.logger.Error("list permission users", slog.Any("error", err))
		h.render(w, r, "pages/permissions/list.html", map[string]any{"Errors": formErrors{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/permissions/list.html", map[string]any{
		"Users":     users,
		"Templates": access.Templates(),
		"Errors":    formErrors{},
	}, http.StatusOK)
}

func (h *PermissionsHandler) showEditor(w http.ResponseWriter, r *http.Request) {
	target, ok := h.loadTarget(w, r)
	if !ok {
		return
	}
	grants, err := h.service.Grants(r.Context(), target.ID)
	if err != nil {
		h.logger.Error("load grants", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.renderEditor(w, r, target, RowsFromGrants(grants), "", nil, http.StatusOK)
}

func (h *PermissionsHandler) saveGrants(w http.ResponseWriter, r *http.Request) {
	target, ok := h.loadTarget(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	actor, _ := PrincipalFromContext(r.Context())
	templateID := strings.TrimSpace(r.PostFormValue("template_id"))
	rows, custom := CustomFromForm(r.PostFormValue)

	_, err := h.service.ApplyTemplate(r.Context(), actor, target.ID, templateID, custom)
	switch {
	case err == nil:
		RedirectWithFlash(w, r, "/dashboard/permissions/"+strconv.FormatInt(target.ID, 10), "success", "Hak akses berhasil diperbarui")
	case errors.Is(err, ErrUnknownTemplate):
		h.renderEditor(w, r, target, rows, templateID, formErrors{"template_id": "Template tidak dikenal"}, http.StatusBadRequest)
	case errors.Is(err, shared.ErrForbidden):
		h.renderEditor(w, r, target, rows, templateID, formErrors{"general": shared.UserSafeMessage(err)}, http.StatusForbidden)
	default:
		h.logger.Error("apply permission template", slog.Any("error", err), slog.Int64("user_id", target.ID))
		h.renderEditor(w, r, target, rows, templateID, formErrors{"general": shared.UserSafeMessage(err)}, http.StatusInternalServerError)
	}
}

func (h *PermissionsHandler) loadTarget(w http.ResponseWriter, r *http.Request) (Principal, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return Principal{}, false
	}
	target, err := h.service.Principal(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return Principal{}, false
		}
		h.logger.Error("load principal", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return Principal{}, false
	}
	return target, true
}

// RowsFromGrants maps stored grants onto the definition catalog.
func RowsFromGrants(grants []access.PermissionGrant) []DefinitionRow {
	state := make(map[string]string, len(grants))
	for _, g := range grants {
		if g.AccessGranted {
			state[access.GrantKey(g)] = StateAllow
		} else {
			state[access.GrantKey(g)] = StateDeny
		}
	}
	defs := access.Definitions()
	rows := make([]DefinitionRow, 0, len(defs))
	for _, def := range defs {
		s, ok := state[access.GrantKey(def.Grant())]
		if !ok {
			s = StateInherit
		}
		rows = append(rows, DefinitionRow{Definition: def, State: s})
	}
	return rows
}

// CustomFromForm reads perm_<definition id> fields. Allow and deny become
// custom grants; anything else leaves the template value in place.
func CustomFromForm(value func(string) string) ([]DefinitionRow, []access.PermissionGrant) {
	defs := access.Definitions()
	rows := make([]DefinitionRow, 0, len(defs))
	custom := make([]access.PermissionGrant, 0)
	for _, def := range defs {
		s := strings.TrimSpace(value("perm_" + def.ID))
		switch s {
		case StateAllow:
			custom = append(custom, access.NewGrant(def.PageKey, def.FeatureKey, true))
		case StateDeny:
			custom = append(custom, access.NewGrant(def.PageKey, def.FeatureKey, false))
		default:
			s = StateInherit
		}
		rows = append(rows, DefinitionRow{Definition: def, State: s})
	}
	return rows, custom
}

func (h *PermissionsHandler) renderEditor(w http.ResponseWriter, r *http.Request, target Principal, rows []DefinitionRow, templateID string, errs formErrors, status int) {
	actor, _ := PrincipalFromContext(r.Context())
	if errs == nil {
		errs = formErrors{}
	}
	h.render(w, r, "pages/permissions/edit.html", editorData{
		Target:     target,
		Rows:       rows,
		Templates:  access.Templates(),
		TemplateID: templateID,
		Editable:   CanEdit(actor, target),
		Errors:     errs,
	}, status)
}

func (h *PermissionsHandler) render(w http.ResponseWriter, r *http.Request, template string, data any, status int) {
	viewData := PageData(r, h.csrf, "Hak Akses", data)
	if err := h.templates.RenderStatus(w, status, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
