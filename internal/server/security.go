// security.go - Security headers, CSRF guard and request body limits.
package server

import (
	"errors"
	"net/http"

	"echost/internal/session"
)

// formBodyLimit caps bodies of routes that only carry form fields.
const formBodyLimit = 1 << 20

// securityHeadersMiddleware adds security headers to all responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		// Uploaded content must never be sniffed into an executable type.
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"style-src 'self'; "+
				"img-src 'self' data:; "+
				"media-src 'self'; "+
				"frame-ancestors 'none'; "+
				"base-uri 'self'; "+
				"form-action 'self'")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		next.ServeHTTP(w, r)
	})
}

// limitBody caps the request body at n bytes.
func (s *Server) limitBody(n int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, n)
		next.ServeHTTP(w, r)
	})
}

// parseForm parses urlencoded and multipart bodies alike.
func parseForm(r *http.Request) error {
	err := r.ParseMultipartForm(32 << 20)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}
	return nil
}

// requireCSRF rejects the request unless its csrf form field was issued to
// the identity the request carries. Failures are an explicit 400, never a
// redirect.
func (s *Server) requireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := parseForm(r); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
				return
			}
			s.csrfFailed(w, r, "unparsable form")
			return
		}
		id := session.FromContext(r.Context())
		if !s.cfg.CSRF.Verify(r.PostFormValue("csrf"), id) {
			s.csrfFailed(w, r, "token mismatch")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) csrfFailed(w http.ResponseWriter, r *http.Request, reason string) {
	s.log.WarnContext(r.Context(), "csrf check failed",
		"rid", RequestIDFromContext(r.Context()),
		"path", r.URL.Path,
		"identity", session.FromContext(r.Context()).String(),
		"reason", reason)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	_, _ = w.Write([]byte("Invalid CSRF Token"))
}
