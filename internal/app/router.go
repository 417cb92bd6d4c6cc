package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kirana-event/kirana/internal/access"
	audithttp "github.com/kirana-event/kirana/internal/audit/http"
	"github.com/kirana-event/kirana/internal/auth"
	"github.com/kirana-event/kirana/internal/cms"
	"github.com/kirana-event/kirana/internal/dashboard"
	"github.com/kirana-event/kirana/internal/health"
	"github.com/kirana-event/kirana/internal/invitations"
	"github.com/kirana-event/kirana/internal/observability"
	"github.com/kirana-event/kirana/internal/rbac"
	"github.com/kirana-event/kirana/internal/settings"
	"github.com/kirana-event/kirana/internal/shared"
	"github.com/kirana-event/kirana/internal/users"
	"github.com/kirana-event/kirana/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics
	RBACMiddleware rbac.Middleware

	AuthHandler        *auth.Handler
	DashboardHandler   *dashboard.Handler
	ProfileHandler     *users.ProfileHandler
	UsersHandler       *users.Handler
	PermissionsHandler *rbac.PermissionsHandler
	InvitationsHandler *invitations.Handler
	CMSHandler         *cms.Handler
	SettingsHandler    *settings.Handler
	AuditHandler       *audithttp.Handler
	HealthHandler      *health.Handler

	ContentAPI  *cms.APIHandler
	SettingsAPI *settings.APIHandler
}

// NewRouter constructs the chi.Router with Kirana defaults.
func NewRouter(params RouterParams) http.Handler {
	mwCfg := MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}

	r := chi.NewRouter()
	r.Use(BaseStack(mwCfg)...)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(APIStack(mwCfg)...)
		if params.ContentAPI != nil {
			r.Route("/content", params.ContentAPI.MountRoutes)
		}
		if params.SettingsAPI != nil {
			r.Method(http.MethodGet, "/settings", params.SettingsAPI)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(BrowserStack(mwCfg)...)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, access.DashboardPath, http.StatusSeeOther)
		})
		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}

		r.Route(access.DashboardPath, func(r chi.Router) {
			r.Use(params.RBACMiddleware.Guard)
			if params.DashboardHandler != nil {
				r.Method(http.MethodGet, "/", params.DashboardHandler)
			}
			mount(r, "/profile", params.ProfileHandler)
			mount(r, "/users", params.UsersHandler)
			mount(r, "/permissions", params.PermissionsHandler)
			mount(r, "/invitations", params.InvitationsHandler)
			mount(r, "/cms", params.CMSHandler)
			mount(r, "/settings", params.SettingsHandler)
			mount(r, "/audit", params.AuditHandler)
			mount(r, "/system-health", params.HealthHandler)
		})
	})

	r.Handle("/static/*", http.StripPrefix("/static/", web.StaticHandler(time.Hour)))

	return r
}

type routeMounter interface {
	MountRoutes(r chi.Router)
}

// mount skips handlers that were not configured. The typed-nil check keeps
// an unset *Handler field from being mounted.
func mount[H interface {
	comparable
	routeMounter
}](r chi.Router, pattern string, h H) {
	var zero H
	if h == zero {
		return
	}
	r.Route(pattern, h.MountRoutes)
}
