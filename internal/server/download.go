package server

import (
	"net/http"

	"echost/internal/files"
)

// handleFile serves /file/{owner}/{file} and /{owner}/{file}. Reads are not
// restricted to the owner.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	d, err := s.cfg.Files.ResolveDownload(r.Context(), r.PathValue("owner"), r.PathValue("file"))
	s.serveDownload(w, r, d, err)
}

// handleDefaultFile serves /{file} from the configured default owner.
func (s *Server) handleDefaultFile(w http.ResponseWriter, r *http.Request) {
	d, err := s.cfg.Files.ResolveDefault(r.Context(), r.PathValue("file"))
	s.serveDownload(w, r, d, err)
}

func (s *Server) serveDownload(w http.ResponseWriter, r *http.Request, d files.Download, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	obj, err := s.cfg.Files.Open(r.Context(), d)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", d.ContentType)
	http.ServeContent(w, r, d.Filename, d.ModTime, obj)
}
