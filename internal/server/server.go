package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"echost/internal/auth"
	"echost/internal/files"
	"echost/internal/logging"
	"echost/internal/session"
)

// Pinger reports database reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config carries the server's collaborators and HTTP settings.
type Config struct {
	Addr string // e.g. ":8080"

	Auth     *auth.Service
	Sessions *session.Registry
	CSRF     *session.CSRFRegistry
	Files    *files.Gateway
	DB       Pinger

	OpenRegistrations bool
	MaxUploadBytes    int64
	SecureCookies     bool
	// AuthRateLimit is login/register attempts per client IP per minute.
	// 0 disables the limiter.
	AuthRateLimit int
	// TrustProxy makes X-Forwarded-For and X-Real-IP count as the client
	// address.
	TrustProxy bool

	Logger  *slog.Logger
	Version string
}

type Server struct {
	cfg        Config
	log        *slog.Logger
	authLimit  *rateLimiter
	httpServer *http.Server
}

func New(cfg Config) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 512 << 20
	}
	s := &Server{
		cfg: cfg,
		log: logging.OrDiscard(cfg.Logger),
	}
	if cfg.AuthRateLimit > 0 {
		s.authLimit = newRateLimiter(cfg.AuthRateLimit, time.Minute)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the complete middleware chain around the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.routes(mux)

	// requestID -> logging -> security headers -> identity -> mux
	var handler http.Handler = mux
	handler = s.identityMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /faq", s.handleFAQ)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /static/{name}", staticHandler())

	mux.Handle("POST /login", s.rateLimit(http.HandlerFunc(s.handleLogin)))
	mux.Handle("POST /register", s.rateLimit(http.HandlerFunc(s.handleRegister)))
	mux.Handle("POST /logout", s.limitBody(formBodyLimit, s.requireCSRF(http.HandlerFunc(s.handleLogout))))
	mux.Handle("POST /upload", s.requireLogin(s.limitBody(s.cfg.MaxUploadBytes, s.requireCSRF(http.HandlerFunc(s.handleUpload)))))

	mux.HandleFunc("GET /file/{owner}/{file}", s.handleFile)
	mux.HandleFunc("GET /{owner}/{file}", s.handleFile)
	mux.HandleFunc("GET /{file}", s.handleDefaultFile)
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
