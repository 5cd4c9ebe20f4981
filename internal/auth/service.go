// Package auth implements login, registration and logout on top of the
// credential store and the session registry.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"echost/internal/apperr"
	"echost/internal/logging"
	"echost/internal/session"
)

// DefaultCost is the bcrypt work factor for stored passwords.
const DefaultCost = 10

// Store is the part of the credential store the service needs.
type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string) error
	GetPasswordHash(ctx context.Context, username string) (string, bool, error)
	SetPasswordHash(ctx context.Context, username, passwordHash string) error
	DeleteUser(ctx context.Context, username string) error
}

// Sessions creates and drops login sessions.
type Sessions interface {
	Create(username string) (string, error)
	Invalidate(token string)
}

// Service authenticates users. Cost 0 means DefaultCost.
type Service struct {
	Store             Store
	Sessions          Sessions
	OpenRegistrations bool
	Cost              int
	Logger            *slog.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

func (s *Service) cost() int {
	if s.Cost == 0 {
		return DefaultCost
	}
	return s.Cost
}

func (s *Service) log() *slog.Logger {
	return logging.OrDiscard(s.Logger)
}

// hashPassword generates a bcrypt hash of the password.
func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost())
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// verifyPassword compares a password with its hash.
func verifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// burnCompare spends the time of one bcrypt comparison so that unknown
// usernames take as long as wrong passwords.
func (s *Service) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("echost-dummy-password"), s.cost())
	})
	_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
}

func (s *Service) fail(ctx context.Context, op, username string, reason apperr.AuthReason) error {
	s.log().InfoContext(ctx, op+" rejected", "user", username, "reason", reason.String())
	return apperr.Auth(reason)
}

func checkFields(username, password string) error {
	if username == "" {
		return apperr.Validation("username is required")
	}
	if password == "" {
		return apperr.Validation("password is required")
	}
	return nil
}

// Login verifies the password and returns a new session token. The caller
// identity is the one resolved for the submitting request.
func (s *Service) Login(ctx context.Context, caller session.Identity, username, password string) (string, error) {
	if err := checkFields(username, password); err != nil {
		return "", err
	}
	if !caller.IsAnonymous() {
		return "", s.fail(ctx, "login", username, apperr.AlreadyAuthenticated)
	}

	hash, ok, err := s.Store.GetPasswordHash(ctx, username)
	if err != nil {
		return "", err
	}
	if !ok {
		s.burnCompare(password)
		return "", s.fail(ctx, "login", username, apperr.InvalidCredentials)
	}
	if !verifyPassword(password, hash) {
		return "", s.fail(ctx, "login", username, apperr.InvalidCredentials)
	}

	token, err := s.Sessions.Create(username)
	if err != nil {
		return "", err
	}
	s.log().InfoContext(ctx, "login", "user", username)
	return token, nil
}

// Register creates the account and logs it in.
func (s *Service) Register(ctx context.Context, caller session.Identity, username, password string) (string, error) {
	if !s.OpenRegistrations {
		return "", s.fail(ctx, "register", username, apperr.RegistrationClosed)
	}
	if err := checkFields(username, password); err != nil {
		return "", err
	}
	if !caller.IsAnonymous() {
		return "", s.fail(ctx, "register", username, apperr.AlreadyAuthenticated)
	}

	// Hash first so taken and free usernames cost the same.
	hash, err := s.hashPassword(password)
	if err != nil {
		return "", err
	}
	_, exists, err := s.Store.GetPasswordHash(ctx, username)
	if err != nil {
		return "", err
	}
	if exists {
		return "", s.fail(ctx, "register", username, apperr.UsernameTaken)
	}
	if err := s.Store.CreateUser(ctx, username, hash); err != nil {
		return "", err
	}

	token, err := s.Sessions.Create(username)
	if err != nil {
		return "", err
	}
	s.log().InfoContext(ctx, "registered", "user", username)
	return token, nil
}

// Logout drops the session. Unknown tokens are ignored.
func (s *Service) Logout(token string) {
	if token == "" {
		return
	}
	s.Sessions.Invalidate(token)
}

// AddUser creates an account without logging it in.
func (s *Service) AddUser(ctx context.Context, username, password string) error {
	if err := checkFields(username, password); err != nil {
		return err
	}
	_, exists, err := s.Store.GetPasswordHash(ctx, username)
	if err != nil {
		return err
	}
	if exists {
		return apperr.ErrUserExists
	}
	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}
	return s.Store.CreateUser(ctx, username, hash)
}

// SetPassword replaces the password of an existing user.
func (s *Service) SetPassword(ctx context.Context, username, password string) error {
	if err := checkFields(username, password); err != nil {
		return err
	}
	if err := s.requireUser(ctx, username); err != nil {
		return err
	}
	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}
	return s.Store.SetPasswordHash(ctx, username, hash)
}

// DeleteUser removes the account. Its files are left for the cleanup sweep.
func (s *Service) DeleteUser(ctx context.Context, username string) error {
	if username == "" {
		return apperr.Validation("username is required")
	}
	if err := s.requireUser(ctx, username); err != nil {
		return err
	}
	return s.Store.DeleteUser(ctx, username)
}

func (s *Service) requireUser(ctx context.Context, username string) error {
	_, ok, err := s.Store.GetPasswordHash(ctx, username)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrUserNotFound
	}
	return nil
}

// IsClientError reports whether err should be answered with the uniform
// redirect rather than a server error.
func IsClientError(err error) bool {
	var ae *apperr.AuthError
	return errors.As(err, &ae) || errors.Is(err, apperr.ErrValidation)
}
