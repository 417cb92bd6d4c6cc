package rbac

import (
	"net/http"

	"github.com/kirana-event/kirana/internal/shared"
	"github.com/kirana-event/kirana/internal/view"
)

// PageData builds the TemplateData shared by dashboard pages: CSRF token,
// pending flash, signed-in user and the sidebar sections for this request.
func PageData(r *http.Request, csrf *shared.CSRFManager, title string, data any) view.TemplateData {
	sess := shared.SessionFromContext(r.Context())
	td := view.TemplateData{Title: title, CurrentPath: r.URL.Path, Data: data}
	if csrf != nil && sess != nil {
		td.CSRFToken, _ = csrf.EnsureToken(r.Context(), sess)
	}
	if sess != nil {
		td.Flash = sess.PopFlash()
	}
	if p, ok := PrincipalFromContext(r.Context()); ok {
		td.User = p.Badge()
	}
	if acc, ok := AccessFromContext(r.Context()); ok {
		td.Nav = acc.Sections
	}
	return td
}

// Flash queues a message for the next rendered page.
func Flash(r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
}

// RedirectWithFlash queues a flash and redirects with 303.
func RedirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	Flash(r, kind, message)
	http.Redirect(w, r, location, http.StatusSeeOther)
}
