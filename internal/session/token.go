package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// TokenBytes is the amount of randomness in every session and CSRF token.
const TokenBytes = 32

// NewToken returns nbytes of crypto/rand output, base64url encoded.
func NewToken(nbytes int) (string, error) {
	if nbytes < 16 {
		return "", errors.New("token size too small")
	}
	b := make([]byte, nbytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
