package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kirana-event/kirana/internal/access"
	"github.com/kirana-event/kirana/internal/shared"
)

// LoginPath is where Guard sends anonymous visitors.
const LoginPath = "/auth/login"

// DenialObserver counts rejected requests by reason.
type DenialObserver interface {
	AccessDenied(reason string)
}

// Denial reasons reported to the observer.
const (
	DeniedAnonymous = "anonymous"
	DeniedInactive  = "inactive"
	DeniedPath      = "path"
	DeniedRole      = "role"
)

// Middleware wires access checks for dashboard handlers.
type Middleware struct {
	Service  *Service
	Logger   *slog.Logger
	Observer DenialObserver
}

func (m Middleware) denied(reason string) {
	if m.Observer != nil {
		m.Observer.AccessDenied(reason)
	}
}

// Guard requires an active signed-in user, stores the principal and resolved
// navigation in the request context and bounces paths outside AllowedPaths.
func (m Middleware) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		userID, ok := m.currentUserID(sess)
		if !ok {
			m.denied(DeniedAnonymous)
			redirectToLogin(w, r)
			return
		}
		principal, acc, err := m.Service.LoadAccess(r.Context(), userID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) || errors.Is(err, ErrUserInactive) {
				m.denied(DeniedInactive)
				sess.SetUser("")
				sess.AddFlash(shared.FlashMessage{Kind: "warning", Message: "Sesi Anda sudah tidak berlaku, silakan masuk kembali"})
				redirectToLogin(w, r)
				return
			}
			m.logError("rbac load access", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if !acc.Allows(r.URL.Path) {
			m.denied(DeniedPath)
			sess.AddFlash(shared.FlashMessage{Kind: "danger", Message: "Anda tidak memiliki akses ke halaman tersebut"})
			http.Redirect(w, r, acc.FallbackPath(), http.StatusSeeOther)
			return
		}
		ctx := ContextWithPrincipal(r.Context(), principal)
		ctx = ContextWithAccess(ctx, acc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole enforces a minimum role. It must run after Guard.
func (m Middleware) RequireRole(need access.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok || !p.Role.AtLeast(need) {
				m.denied(DeniedRole)
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) currentUserID(sess *shared.Session) (int64, bool) {
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("rbac parse user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}

func (m Middleware) logError(msg string, err error) {
	if m.Logger != nil {
		m.Logger.Error(msg, slog.Any("error", err))
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := LoginPath
	if r.Method == http.MethodGet {
		target += "?next=" + url.QueryEscape(r.URL.RequestURI())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
