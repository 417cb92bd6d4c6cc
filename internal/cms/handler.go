package cms

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kirana-event/kirana/internal/rbac"
	"github.com/kirana-event/kirana/internal/shared"
	"github.com/kirana-event/kirana/internal/view"
)

// Handler serves the content editor under /dashboard/cms.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountRoutes registers the editor routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{page}", h.showPage)
	r.Post("/{page}/drafts", h.createDraft)
	r.Get("/{page}/versions/{id}", h.showVersion)
	r.Post("/{page}/versions/{id}", h.saveVersion)
	r.Post("/{page}/versions/{id}/transition", h.transition)
}

type pageData struct {
	Page     Page
	Versions []Content
	Errors   map[string]string
}

type editorData struct {
	Page    Page
	Content Content
	Next    []Status
	Errors  map[string]string
}

func (h *Handler) showPage(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParam(w, r)
	if !ok {
		return
	}
	data := pageData{Page: page, Errors: map[string]string{}}
	versions, err := h.service.Versions(r.Context(), page)
	if err != nil {
		h.logger.Error("list cms versions", slog.String("page", string(page)), slog.Any("error", err))
		data.Errors["general"] = shared.UserSafeMessage(err)
		h.render(w, r, "pages/cms/page.html", page, data, http.StatusInternalServerError)
		return
	}
	data.Versions = versions
	h.render(w, r, "pages/cms/page.html", page, data, http.StatusOK)
}

func (h *Handler) createDraft(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParam(w, r)
	if !ok {
		return
	}
	actor, _ := rbac.PrincipalFromContext(r.Context())
	c, err := h.service.CreateDraft(r.Context(), actor, page)
	if err != nil {
		h.logger.Error("create cms draft", slog.String("page", string(page)), slog.Any("error", err))
		rbac.RedirectWithFlash(w, r, page.Href(), "danger", shared.UserSafeMessage(err))
		return
	}
	rbac.RedirectWithFlash(w, r, versionHref(page, c.ID), "success", "Draf baru dibuat")
}

func (h *Handler) showVersion(w http.ResponseWriter, r *http.Request) {
	page, id, ok := versionParams(w, r)
	if !ok {
		return
	}
	c, err := h.service.Version(r.Context(), page, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("load cms version", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.renderEditor(w, r, c, nil, http.StatusOK)
}

func (h *Handler) saveVersion(w http.ResponseWriter, r *http.Request) {
	page, id, ok := versionParams(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	title := r.PostForm.Get("title")
	body := BodyFromForm(r.PostForm)
	actor, _ := rbac.PrincipalFromContext(r.Context())
	err := h.service.SaveDraft(r.Context(), actor, page, id, title, body)
	var verr *ValidationError
	switch {
	case err == nil:
		rbac.RedirectWithFlash(w, r, versionHref(page, id), "success", "Draf tersimpan")
	case errors.As(err, &verr):
		c, ferr := h.service.Version(r.Context(), page, id)
		if ferr != nil {
			http.NotFound(w, r)
			return
		}
		c.Title, c.Body = strings.TrimSpace(title), body
		h.renderEditor(w, r, c, verr.Fields, http.StatusUnprocessableEntity)
	case errors.Is(err, ErrNotEditable):
		rbac.RedirectWithFlash(w, r, versionHref(page, id), "warning", "Hanya draf yang dapat diubah")
	case errors.Is(err, shared.ErrNotFound):
		http.NotFound(w, r)
	default:
		h.logger.Error("save cms draft", slog.Any("error", err))
		rbac.RedirectWithFlash(w, r, versionHref(page, id), "danger", shared.UserSafeMessage(err))
	}
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	page, id, ok := versionParams(w, r)
	if !ok {
		return
	}
	to, valid := ParseStatus(r.PostFormValue("to"))
	if !valid {
		rbac.RedirectWithFlash(w, r, versionHref(page, id), "danger", "Status tujuan tidak valid")
		return
	}
	actor, _ := rbac.PrincipalFromContext(r.Context())
	_, err := h.service.Transition(r.Context(), actor, page, id, to)
	var verr *ValidationError
	switch {
	case err == nil:
		rbac.RedirectWithFlash(w, r, versionHref(page, id), "success", transitionMessage(to))
	case errors.As(err, &verr):
		rbac.RedirectWithFlash(w, r, versionHref(page, id), "danger", "Lengkapi konten sebelum diajukan atau diterbitkan")
	case errors.Is(err, ErrInvalidTransition):
		rbac.RedirectWithFlash(w, r, versionHref(page, id), "danger", "Perubahan status tidak diizinkan")
	case errors.Is(err, ErrConflict):
		rbac.RedirectWithFlash(w, r, versionHref(page, id), "warning", "Status konten sudah berubah, muat ulang halaman")
	case errors.Is(err, shared.ErrForbidden), errors.Is(err, shared.ErrNotFound):
		rbac.RedirectWithFlash(w, r, versionHref(page, id), "danger", shared.UserSafeMessage(err))
	default:
		h.logger.Error("cms transition", slog.Any("error", err))
		rbac.RedirectWithFlash(w, r, versionHref(page, id), "danger", shared.UserSafeMessage(err))
	}
}

func transitionMessage(to Status) string {
	switch to {
	case StatusReview:
		return "Konten diajukan untuk ditinjau"
	case StatusPublished:
		return "Konten diterbitkan"
	case StatusArchived:
		return "Konten diarsipkan"
	default:
		return "Konten dikembalikan ke draf"
	}
}

func (h *Handler) renderEditor(w http.ResponseWriter, r *http.Request, c Content, fields map[string]string, status int) {
	actor, _ := rbac.PrincipalFromContext(r.Context())
	if fields == nil {
		fields = map[string]string{}
	}
	data := editorData{Page: c.Page, Content: c, Next: NextStatuses(c.Status, actor.Role), Errors: fields}
	h.render(w, r, "pages/cms/edit.html", c.Page, data, status)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, page Page, data any, status int) {
	viewData := rbac.PageData(r, h.csrf, "Konten "+string(page), data)
	if err := h.templates.RenderStatus(w, status, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// BodyFromForm reads the repeated hero_url/hero_alt and detail_heading/
// detail_body fields. Rows left entirely blank are dropped.
func BodyFromForm(form map[string][]string) Body {
	var body Body
	urls, alts := form["hero_url"], form["hero_alt"]
	for i := range urls {
		item := ImageItem{URL: strings.TrimSpace(urls[i])}
		if i < len(alts) {
			item.Alt = strings.TrimSpace(alts[i])
		}
		if item.URL == "" && item.Alt == "" {
			continue
		}
		body.Hero = append(body.Hero, item)
	}
	headings, texts := form["detail_heading"], form["detail_body"]
	for i := range headings {
		block := DetailBlock{Heading: strings.TrimSpace(headings[i])}
		if i < len(texts) {
			block.Body = strings.TrimSpace(texts[i])
		}
		if block.Heading == "" && block.Body == "" {
			continue
		}
		body.Details = append(body.Details, block)
	}
	return body
}

func versionHref(page Page, id uuid.UUID) string {
	return page.Href() + "/versions/" + id.String()
}

func pageParam(w http.ResponseWriter, r *http.Request) (Page, bool) {
	page, err := ParsePage(chi.URLParam(r, "page"))
	if err != nil {
		http.NotFound(w, r)
		return "", false
	}
	return page, true
}

func versionParams(w http.ResponseWriter, r *http.Request) (Page, uuid.UUID, bool) {
	page, ok := pageParam(w, r)
	if !ok {
		return "", uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return "", uuid.Nil, false
	}
	return page, id, true
}
