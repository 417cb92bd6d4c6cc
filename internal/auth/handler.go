package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kirana-event/kirana/internal/access"
	"github.com/kirana-event/kirana/internal/invitations"
	"github.com/kirana-event/kirana/internal/shared"
	"github.com/kirana-event/kirana/internal/view"
)

// InvitationAcceptor redeems admin invitations.
type InvitationAcceptor interface {
	Lookup(ctx context.Context, token string) (invitations.Invitation, error)
	Accept(ctx context.Context, token string, account invitations.NewAccount) (int64, error)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	invitations    InvitationAcceptor
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, invites InvitationAcceptor, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		invitations:    invites,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	if h.invitations != nil {
		r.Get("/invite/{token}", h.showInvite)
		r.Post("/invite/{token}", h.handleInvite)
	}
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
	Next     string
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

type inviteForm struct {
	Name            string `validate:"required,max=120"`
	Password        string `validate:"required,min=8,max=72"`
	PasswordConfirm string `validate:"required,eqfield=Password"`
}

type invitePageData struct {
	Invitation invitations.Invitation
	Invalid    bool
	Form       inviteForm
	Errors     map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil && sess.User() != "" {
		http.Redirect(w, r, access.DashboardPath, http.StatusSeeOther)
		return
	}
	form := loginForm{Next: safeNext(r.URL.Query().Get("next"))}
	h.render(w, r, http.StatusOK, "Masuk", "pages/login.html", loginPageData{Form: form})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())

	form := loginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
		Next:     safeNext(r.PostFormValue("next")),
	}
	errs := validationErrors(h.validator.Struct(form))

	if len(errs) == 0 {
		user, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
		if err != nil {
			errs["general"] = shared.UserSafeMessage(err)
		} else if sess == nil {
			h.logger.Error("session missing during login")
			errs["general"] = shared.UserSafeMessage(errors.New("session missing"))
		} else {
			if err := h.sessionManager.Renew(r.Context(), sess); err != nil {
				h.logger.Warn("renew session", slog.Any("error", err))
			}
			h.csrfManager.Reset(sess)
			sess.SetUser(strconv.FormatInt(user.ID, 10))
			sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Selamat datang kembali, " + user.DisplayName()})
			rec := SessionRecord{ID: sess.ID, UserID: user.ID, IP: r.RemoteAddr, UserAgent: r.UserAgent()}
			if err := h.service.StartSession(r.Context(), rec, h.sessionManager.TTL()); err != nil {
				h.logger.Warn("register session", slog.Any("error", err))
			}
			h.logger.Info("user logged in", slog.Int64("user_id", user.ID), slog.String("role", string(user.Role)))
			http.Redirect(w, r, form.Next, http.StatusSeeOther)
			return
		}
	}

	form.Password = ""
	h.render(w, r, http.StatusBadRequest, "Masuk", "pages/login.html", loginPageData{Form: form, Errors: errs})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.EndSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func (h *Handler) showInvite(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	inv, err := h.invitations.Lookup(r.Context(), token)
	if err != nil {
		h.renderInvalidInvite(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "Terima Undangan", "pages/auth/invite.html", invitePageData{Invitation: inv})
}

func (h *Handler) handleInvite(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	token := chi.URLParam(r, "token")
	inv, err := h.invitations.Lookup(r.Context(), token)
	if err != nil {
		h.renderInvalidInvite(w, r, err)
		return
	}
	form := inviteForm{
		Name:            strings.TrimSpace(r.PostFormValue("name")),
		Password:        r.PostFormValue("password"),
		PasswordConfirm: r.PostFormValue("password_confirm"),
	}
	errs := validationErrors(h.validator.Struct(form))
	if len(errs) == 0 {
		userID, err := h.invitations.Accept(r.Context(), token, invitations.NewAccount{Name: form.Name, Password: form.Password})
		switch {
		case err == nil:
			h.logger.Info("invitation accepted", slog.Int64("user_id", userID), slog.String("invitation_id", inv.ID.String()))
			if sess := shared.SessionFromContext(r.Context()); sess != nil {
				sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Akun berhasil dibuat, silakan masuk"})
			}
			http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
			return
		case errors.Is(err, invitations.ErrInvitationInvalid):
			h.renderInvalidInvite(w, r, err)
			return
		case errors.Is(err, invitations.ErrEmailTaken):
			errs["general"] = "Email undangan sudah terdaftar"
		default:
			h.logger.Error("accept invitation", slog.Any("error", err))
			errs["general"] = shared.UserSafeMessage(err)
		}
	}
	form.Password, form.PasswordConfirm = "", ""
	h.render(w, r, http.StatusBadRequest, "Terima Undangan", "pages/auth/invite.html", invitePageData{Invitation: inv, Form: form, Errors: errs})
}

func (h *Handler) renderInvalidInvite(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, invitations.ErrInvitationInvalid) {
		h.logger.Error("lookup invitation", slog.Any("error", err))
	}
	h.render(w, r, http.StatusNotFound, "Undangan Tidak Berlaku", "pages/auth/invite.html", invitePageData{Invalid: true})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, title, page string, data any) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, page, viewData); err != nil {
		h.logger.Error("render auth page", slog.String("page", page), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func validationErrors(err error) map[string]string {
	errs := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			errs[fe.Field()] = fieldMessage(fe)
		}
	}
	return errs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Wajib diisi"
	case "email":
		return "Format email tidak valid"
	case "min":
		return "Minimal " + fe.Param() + " karakter"
	case "max":
		return "Maksimal " + fe.Param() + " karakter"
	case "eqfield":
		return "Konfirmasi password tidak sama"
	default:
		return "Nilai tidak valid"
	}
}

// safeNext keeps post-login redirects inside the dashboard.
func safeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == access.DashboardPath || strings.HasPrefix(next, access.DashboardPath+"/") {
		if !strings.Contains(next, "//") && !strings.Contains(next, `\`) {
			return next
		}
	}
	return access.DashboardPath
}
