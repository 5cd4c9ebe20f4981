package server

import (
	"net/http"
	"net/url"

	"echost/internal/apperr"
	"echost/internal/session"
)

// handleUpload stores the multipart field "file" for the logged-in user and
// redirects to its public URL. It runs behind requireLogin and requireCSRF,
// which has already parsed the form.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	owner := session.FromContext(r.Context()).Username

	file, hdr, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, apperr.Validation("file is required"))
		return
	}
	defer file.Close()

	if _, err := s.cfg.Files.Upload(r.Context(), owner, hdr.Filename, file); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, fileURL(owner, hdr.Filename), http.StatusFound)
}

// fileURL is the canonical public URL of owner's file.
func fileURL(owner, filename string) string {
	return "/file/" + url.PathEscape(owner) + "/" + url.PathEscape(filename)
}
