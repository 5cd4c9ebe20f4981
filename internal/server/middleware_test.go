package server

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"echost/internal/session"
)

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if len(seen) != 32 || w.Header().Get("X-Request-Id") != seen {
		t.Fatalf("generated id %q, header %q", seen, w.Header().Get("X-Request-Id"))
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if seen != "abc-123" {
		t.Fatalf("client id not kept: %q", seen)
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-Id", strings.Repeat("x", 200))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if len(seen) != 32 {
		t.Fatalf("oversized id not replaced: %d chars", len(seen))
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	s := New(Config{Logger: slog.New(slog.NewJSONHandler(&buf, nil))})

	h := requestIDMiddleware(s.loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))
	req := httptest.NewRequest("GET", "/pot", nil)
	req.Header.Set("X-Request-Id", "rid-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	for _, want := range []string{`"rid":"rid-1"`, `"status":418`, `"path":"/pot"`, `"bytes":15`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %s missing %s", line, want)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := securityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	for k, v := range map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "no-referrer",
	} {
		if got := w.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if !strings.Contains(w.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'") {
		t.Error("CSP missing frame-ancestors")
	}
}

func TestIdentityMiddleware(t *testing.T) {
	sessions := session.NewRegistry()
	sessions.Start()
	defer sessions.Shutdown()
	token, err := sessions.Create("eve")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	s := New(Config{Sessions: sessions})
	var got session.Identity
	h := s.identityMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = session.FromContext(r.Context())
	}))

	tests := []struct {
		name   string
		cookie string
		want   string
	}{
		{"no cookie", "", ""},
		{"valid session", token, "eve"},
		{"unknown token", "bogus", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookie})
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got.Username != tt.want {
				t.Fatalf("identity = %q, want %q", got.Username, tt.want)
			}
		})
	}
}

func TestFileURL(t *testing.T) {
	tests := map[string][2]string{
		"/file/eve/notes.txt":      {"eve", "notes.txt"},
		"/file/eve/my%20notes.txt": {"eve", "my notes.txt"},
		"/file/eve/a%3Fb%23c.txt":  {"eve", "a?b#c.txt"},
		"/file/j%C3%B6rg/bild.png": {"jörg", "bild.png"},
	}
	for want, in := range tests {
		if got := fileURL(in[0], in[1]); got != want {
			t.Errorf("fileURL(%q, %q) = %q, want %q", in[0], in[1], got, want)
		}
	}
}
