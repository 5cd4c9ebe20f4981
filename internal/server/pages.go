package server

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"echost/internal/db"
	"echost/internal/session"
)

//go:embed web/templates/*.html
var templateFS embed.FS

//go:embed web/static/*
var staticFS embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"fileURL": fileURL,
}).ParseFS(templateFS, "web/templates/*.html"))

type indexPage struct {
	IsLoggedIn        bool
	UserName          string
	CSRFToken         string
	OpenRegistrations bool
	Files             []db.File
}

// handleIndex renders the index page with a CSRF token bound to the
// identity of this request.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	id := session.FromContext(r.Context())
	token, err := s.cfg.CSRF.Issue(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	page := indexPage{
		IsLoggedIn:        !id.IsAnonymous(),
		UserName:          id.Username,
		CSRFToken:         token,
		OpenRegistrations: s.cfg.OpenRegistrations,
	}
	if page.IsLoggedIn {
		page.Files, err = s.cfg.Files.List(r.Context(), id.Username)
		if err != nil {
			s.fail(w, r, err)
			return
		}
	}
	s.render(w, r, "index.html", page)
}

func (s *Server) handleFAQ(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "faq.html", struct{ DefaultUser string }{s.cfg.Files.DefaultOwner})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		s.log.ErrorContext(r.Context(), "template failed", "template", name, "err", err)
	}
}

// staticHandler serves the embedded stylesheet and icons under /static/.
func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "web")
	if err != nil {
		panic(err)
	}
	return http.FileServerFS(sub)
}
