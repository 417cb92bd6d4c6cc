package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kirana-event/kirana/internal/access"
	"github.com/kirana-event/kirana/internal/shared"
	"github.com/kirana-event/kirana/web"
)

// Engine renders HTML templates.
type Engine struct {
	pages map[string]*template.Template
}

// UserBadge is the signed-in user shown in the layout header.
type UserBadge struct {
	ID    int64
	Name  string
	Email string
	Role  access.Role
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	User        *UserBadge
	Nav         []access.NavigationSection
	Data        any
}

var titleCaser = cases.Title(language.Indonesian)

var funcMap = template.FuncMap{
	"formatDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02 Jan 2006 15:04")
	},
	"label": func(v any) string {
		return titleCaser.String(strings.ReplaceAll(fmt.Sprint(v), "-", " "))
	},
	"navActive": func(current, href string) bool {
		if href == access.DashboardPath {
			return current == href
		}
		return current == href || strings.HasPrefix(current, href+"/")
	},
	"add": func(a, b int) int { return a + b },
}

// NewEngine parses templates at build-time. Each page is parsed on top of its
// own copy of the layouts and partials, so pages may each define "content".
func NewEngine() (*Engine, error) {
	return newEngine(web.Templates)
}

func newEngine(files fs.FS) (*Engine, error) {
	base, err := template.New("root").Funcs(funcMap).ParseFS(files, "templates/layouts/*.html", "templates/partials/*.html")
	if err != nil {
		return nil, err
	}
	pages, err := pageFiles(files)
	if err != nil {
		return nil, err
	}
	engine := &Engine{pages: make(map[string]*template.Template, len(pages))}
	for _, file := range pages {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := clone.ParseFS(files, file); err != nil {
			return nil, fmt.Errorf("view: parse %s: %w", file, err)
		}
		engine.pages[strings.TrimPrefix(file, "templates/")] = clone
	}
	return engine, nil
}

func pageFiles(files fs.FS) ([]string, error) {
	var out []string
	err := fs.WalkDir(files, "templates/pages", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && path.Ext(p) == ".html" {
			out = append(out, p)
		}
		return nil
	})
	return out, err
}

// Render executes a page with TemplateData and status 200.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	return e.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus executes a page with TemplateData. Output is buffered so a
// template error never leaves a half-written page.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	tpl, ok := e.pages[name]
	if !ok {
		return fmt.Errorf("view: unknown page %s", name)
	}
	layout := "layouts/dashboard"
	if tpl.Lookup(layout) == nil || data.User == nil {
		layout = "layouts/public"
	}
	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, layout, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Has reports whether a page template exists.
func (e *Engine) Has(name string) bool {
	if e == nil {
		return false
	}
	_, ok := e.pages[name]
	return ok
}
