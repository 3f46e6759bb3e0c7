package http

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"expensedash/internal/core"
	"expensedash/internal/log"
	"expensedash/internal/session"
	appweb "expensedash/web"
)

var pageFiles = map[string]string{
	"login":   "templates/login.html",
	"signup":  "templates/signup.html",
	"add":     "templates/add.html",
	"summary": "templates/summary.html",
	"manage":  "templates/manage.html",
	"error":   "templates/error.html",
}

var templateFuncs = template.FuncMap{
	"amount": core.FormatAmount,
}

// parseTemplates builds one template set per page, each combining the
// shared layout and table with the page's content block.
func parseTemplates(fsys fs.FS) (map[string]*template.Template, error) {
	base, err := template.New("base").Funcs(templateFuncs).ParseFS(fsys, "templates/layout.html", "templates/table.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageFiles))
	for name, file := range pageFiles {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", name, err)
		}
		if pages[name], err = clone.ParseFS(fsys, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
	}
	return pages, nil
}

func mustParseTemplates() map[string]*template.Template {
	pages, err := parseTemplates(appweb.TemplatesFS)
	if err != nil {
		panic(err)
	}
	return pages
}

// formValues echoes submitted fields back into a re-rendered form.
type formValues struct {
	Date        string
	Category    string
	Amount      string
	Description string
}

type pageData struct {
	Title      string
	Screen     session.Screen
	State      session.State
	Flash      session.Flash
	Username   string
	Message    string
	Categories []core.Category
	Form       formValues
	Summary    core.Summary
	Expenses   []core.Expense
	Actions    bool
}

// render executes page into a buffer first so a template error never
// leaves a half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	tmpl, ok := s.templates[page]
	if !ok {
		s.serverError(w, r, fmt.Errorf("unknown page %q", page))
		return
	}
	if data.Categories == nil {
		data.Categories = core.Categories
	}
	if data.Screen == "" {
		data.Screen = data.State.Current()
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Template render failed",
			"page", page, log.FieldError, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	st, _ := s.sessions.Load(sessionToken(r))
	s.render(w, r, status, "error", pageData{
		Title:   http.StatusText(status),
		State:   st,
		Message: message,
	})
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Request failed", err,
		log.ComponentHTTP, r.Method+" "+r.URL.Path, nil)
	s.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Please try again.")
}
