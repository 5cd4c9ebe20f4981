package session

import (
	"errors"
	"sync"
)

// ErrClosed is returned when a registry is used before Start or after
// Shutdown.
var ErrClosed = errors.New("session registry is not running")

// Registry maps session tokens to usernames. Sessions do not expire; they
// live until Invalidate or Shutdown.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]string
	running  bool
}

// NewRegistry returns a registry that must be started before use.
func NewRegistry() *Registry {
	return &Registry{}
}

// Start makes the registry accept sessions. Starting a running registry is
// a no-op.
func (r *Registry) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.sessions = make(map[string]string)
	r.running = true
}

// Shutdown drops every session. Later lookups resolve to anonymous.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = nil
	r.running = false
}

// Create binds a new token to username.
func (r *Registry) Create(username string) (string, error) {
	if username == "" {
		return "", errors.New("username is required")
	}
	token, err := NewToken(TokenBytes)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return "", ErrClosed
	}
	r.sessions[token] = username
	return token, nil
}

// Resolve returns the identity bound to token. Unknown or empty tokens are
// anonymous.
func (r *Registry) Resolve(token string) Identity {
	if token == "" {
		return Anonymous
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return User(r.sessions[token])
}

// Invalidate removes token. Unknown tokens are ignored.
func (r *Registry) Invalidate(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
}

// Len is the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
