package session

import (
	"crypto/subtle"
	"sync"
)

// CSRFRegistry binds CSRF tokens to the identity that rendered the form.
// Tokens are not consumed by Verify and never expire.
type CSRFRegistry struct {
	mu      sync.RWMutex
	tokens  map[string]Identity
	running bool
}

// NewCSRFRegistry returns a registry that must be started before use.
func NewCSRFRegistry() *CSRFRegistry {
	return &CSRFRegistry{}
}

// Start makes the registry accept tokens. Starting a running registry is a
// no-op.
func (c *CSRFRegistry) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.tokens = make(map[string]Identity)
	c.running = true
}

// Shutdown drops every token.
func (c *CSRFRegistry) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = nil
	c.running = false
}

// Issue creates a token bound to id.
func (c *CSRFRegistry) Issue(id Identity) (string, error) {
	token, err := NewToken(TokenBytes)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return "", ErrClosed
	}
	c.tokens[token] = id
	return token, nil
}

// Verify reports whether token was issued to exactly id.
func (c *CSRFRegistry) Verify(token string, id Identity) bool {
	if token == "" {
		return false
	}
	c.mu.RLock()
	bound, ok := c.tokens[token]
	c.mu.RUnlock()
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(bound.Username), []byte(id.Username)) == 1
}

// Len is the number of issued tokens.
func (c *CSRFRegistry) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tokens)
}
