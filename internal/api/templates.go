package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"smiledent/internal/models"
	"smiledent/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"index", "about", "services", "dentists", "contact",
	"appointment", "confirmation",
	"admin_login", "admin_dashboard",
	"404", "500",
}

type pageData struct {
	Title         string
	Flash         *flashMessage
	Catalog       models.Catalog
	LoggedIn      bool
	Username      string
	AppointmentID string
	Dashboard     *service.Dashboard
}

// renderer holds one template set per page, each layered on the shared layout.
type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New("layout.html").ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &renderer{pages: pages}, nil
}

func (r *renderer) execute(name string, data pageData) ([]byte, error) {
	tmpl, ok := r.pages[name]
	if !ok {
		return nil, fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// render writes a full page. A pending flash cookie is consumed unless data already
// carries a message.
func (s *HTTPServer) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	if data.Flash == nil {
		data.Flash = s.popFlash(w, r)
	}
	data.Catalog = s.catalog
	if session := sessionFromContext(r.Context()); session != nil {
		data.LoggedIn = true
		data.Username = session.Username
	}

	body, err := s.pages.execute(name, data)
	if err != nil {
		s.logger.Error().Err(err).Str("page", name).Msg("template failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *HTTPServer) renderServerError(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusInternalServerError, "500", pageData{Title: "Erreur serveur"})
}
