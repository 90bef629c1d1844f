// Package view renders the HTML pages. Every page shares layout.html, which
// draws the navigation and the flash area from the page's Layout.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/aanand-mishra/library-web/internal/admin"
	"github.com/aanand-mishra/library-web/internal/dashboard"
	"github.com/aanand-mishra/library-web/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names accepted by Render.
const (
	PageHome      = "home"
	PageLogin     = "login"
	PageRegister  = "register"
	PageDashboard = "dashboard"
	PageAdmin     = "admin"
)

var pages = []string{PageHome, PageLogin, PageRegister, PageDashboard, PageAdmin}

// Layout captures the shared chrome: title, active nav entry, auth flags
// and the flash messages to show once.
type Layout struct {
	Title           string
	CurrentPage     string
	IsAuthenticated bool
	IsAdmin         bool
	UserEmail       string
	Flashes         []types.Flash
}

// LayoutData lets Render reach the Layout embedded in any page struct.
func (l *Layout) LayoutData() *Layout { return l }

// LayoutProvider exposes layout metadata to Render.
type LayoutProvider interface {
	LayoutData() *Layout
}

type HomePage struct {
	Layout
	Query string
	Books []types.Book
}

type LoginPage struct {
	Layout
	Email string
	Error string
}

type RegisterPage struct {
	Layout
	Email string
	Error string
}

type DashboardPage struct {
	Layout
	dashboard.Data
}

type AdminPage struct {
	Layout
	Tab admin.Tab
	admin.Data
}

// Renderer holds one parsed template set per page.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}

	for _, name := range pages {
		tmpl, err := template.New("layout.html").ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("view.New: parse %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}

	return r, nil
}

// Render executes page with data and writes it with status. The page is
// rendered into a buffer first so a template fault never leaves a half
// written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data LayoutProvider) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("view.Render: unknown page %q", page)
	}

	data.LayoutData().CurrentPage = page

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("view.Render: execute %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
