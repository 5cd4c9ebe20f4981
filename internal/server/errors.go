package server

import (
	"errors"
	"net/http"

	"echost/internal/apperr"
	"echost/internal/auth"
)

// fail maps a service error onto the response. Validation and auth failures
// all produce the same redirect so clients cannot tell them apart.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		notFound(w)
	case auth.IsClientError(err):
		s.refuse(w, r, err)
	default:
		s.log.ErrorContext(r.Context(), "request failed",
			"rid", RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// refuse is the uniform answer to rejected requests: a redirect to the index
// page carrying status 400.
func (s *Server) refuse(w http.ResponseWriter, r *http.Request, reason error) {
	s.log.DebugContext(r.Context(), "request refused",
		"rid", RequestIDFromContext(r.Context()),
		"path", r.URL.Path,
		"reason", reason.Error())
	http.Redirect(w, r, "/", http.StatusBadRequest)
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("Not found"))
}
