package server

import (
	"errors"
	"net/http"
	"time"

	"echost/internal/apperr"
	"echost/internal/session"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "Session-Cookie"

// identityMiddleware resolves the session cookie and attaches the identity,
// anonymous when there is none, to the request context. It never fails.
func (s *Server) identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := session.Anonymous
		if c, err := r.Cookie(SessionCookie); err == nil {
			id = s.cfg.Sessions.Resolve(c.Value)
		}
		next.ServeHTTP(w, r.WithContext(session.WithIdentity(r.Context(), id)))
	})
}

// requireLogin sends anonymous requests back to the index page.
func (s *Server) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session.FromContext(r.Context()).IsAnonymous() {
			s.refuse(w, r, errors.New("login required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.cfg.SecureCookies,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.cfg.SecureCookies,
	})
}

func credentials(r *http.Request) (string, string, error) {
	if err := parseForm(r); err != nil {
		return "", "", apperr.Validation("unreadable form")
	}
	return r.PostFormValue("username"), r.PostFormValue("password"), nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, formBodyLimit)
	username, password, err := credentials(r)
	if err == nil {
		var token string
		token, err = s.cfg.Auth.Login(r.Context(), session.FromContext(r.Context()), username, password)
		if err == nil {
			s.setSessionCookie(w, token)
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
	}
	s.fail(w, r, err)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.OpenRegistrations {
		http.NotFound(w, r)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, formBodyLimit)
	username, password, err := credentials(r)
	if err == nil {
		var token string
		token, err = s.cfg.Auth.Register(r.Context(), session.FromContext(r.Context()), username, password)
		if err == nil {
			s.setSessionCookie(w, token)
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
	}
	s.fail(w, r, err)
}

// handleLogout runs behind requireCSRF.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		s.cfg.Auth.Logout(c.Value)
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}
