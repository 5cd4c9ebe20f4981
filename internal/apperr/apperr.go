// Package apperr defines the error taxonomy shared by the echost services.
//
// Handlers map these errors onto responses: validation and auth failures
// become the same redirect, CSRF failures an explicit 400, missing files a
// 404, and storage failures a 500.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a request that is missing required fields.
	ErrValidation = errors.New("validation failed")

	// ErrCSRF marks a missing or mismatched CSRF token.
	ErrCSRF = errors.New("invalid csrf token")

	// ErrNotFound marks a file that is absent from the mapping or from storage.
	ErrNotFound = errors.New("not found")

	// ErrUserExists and ErrUserNotFound are reported by administrative operations.
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")

	// ErrFilenameTaken is returned when a rename target already exists for the owner.
	ErrFilenameTaken = errors.New("filename already in use")
)

// Validation wraps ErrValidation with a short description of what was missing.
func Validation(detail string) error {
	return fmt.Errorf("%w: %s", ErrValidation, detail)
}

// AuthReason says which authentication check failed. It is logged, never
// sent to the client.
type AuthReason int

const (
	InvalidCredentials AuthReason = iota + 1
	UsernameTaken
	AlreadyAuthenticated
	RegistrationClosed
)

func (r AuthReason) String() string {
	switch r {
	case InvalidCredentials:
		return "invalid_credentials"
	case UsernameTaken:
		return "username_taken"
	case AlreadyAuthenticated:
		return "already_authenticated"
	case RegistrationClosed:
		return "registration_closed"
	default:
		return "unknown"
	}
}

// AuthError is returned by login and registration.
type AuthError struct {
	Reason AuthReason
}

func (e *AuthError) Error() string {
	return "auth: " + e.Reason.String()
}

// Auth returns an *AuthError for reason.
func Auth(reason AuthReason) error {
	return &AuthError{Reason: reason}
}

// IsAuth reports whether err is an AuthError with the given reason.
func IsAuth(err error, reason AuthReason) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Reason == reason
}

// StorageError is a persistence or filesystem failure. It is never recovered
// locally.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a *StorageError, or returns nil when err is nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorage reports whether err carries a *StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
