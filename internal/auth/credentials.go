// Package auth implements account registration, password verification and
// the admin-visibility rule.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"expensedash/internal/core"
	"expensedash/internal/log"
)

// DefaultAdminUsername is the account that sees every expense.
const DefaultAdminUsername = "admin"

// UserStore is the persistence the credential store needs.
type UserStore interface {
	GetUser(ctx context.Context, username string) (core.User, bool, error)
	CreateUser(ctx context.Context, u core.User) error
	UpdatePasswordHash(ctx context.Context, username, hash string) error
}

type Config struct {
	AdminUsername string
	// Cost is the bcrypt work factor; zero means bcrypt.DefaultCost.
	Cost   int
	Logger *log.Logger
}

type CredentialStore struct {
	users  UserStore
	admin  string
	cost   int
	logger *log.Logger
}

func NewCredentialStore(users UserStore, cfg Config) *CredentialStore {
	if cfg.AdminUsername == "" {
		cfg.AdminUsername = DefaultAdminUsername
	}
	if cfg.Cost == 0 {
		cfg.Cost = bcrypt.DefaultCost
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	return &CredentialStore{
		users:  users,
		admin:  cfg.AdminUsername,
		cost:   cfg.Cost,
		logger: cfg.Logger.WithComponent(log.ComponentAuth),
	}
}

// Register creates an account. An existing username fails with
// core.ErrDuplicateUser and leaves the stored hash untouched.
func (s *CredentialStore) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return core.ErrInvalidCredentials
	}

	_, exists, err := s.users.GetUser(ctx, username)
	if err != nil {
		return err
	}
	if exists {
		return core.ErrDuplicateUser
	}

	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	if err := s.users.CreateUser(ctx, core.User{Username: username, PasswordHash: hash}); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Account registered", log.FieldUsername, username, log.FieldOperation, log.OpSignup)
	return nil
}

// RegisterConfirmed checks the confirmation before touching storage.
func (s *CredentialStore) RegisterConfirmed(ctx context.Context, username, password, confirm string) error {
	if password != confirm {
		return core.ErrPasswordMismatch
	}
	return s.Register(ctx, username, password)
}

// Authenticate verifies a password. The username is trimmed as Register
// trims it. Unknown users and wrong passwords both
// yield core.ErrAuthFailed. A matching legacy SHA-256 hash is replaced by a
// bcrypt hash.
func (s *CredentialStore) Authenticate(ctx context.Context, username, password string) (core.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return core.User{}, core.ErrAuthFailed
	}

	u, found, err := s.users.GetUser(ctx, username)
	if err != nil {
		return core.User{}, err
	}
	if !found {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return core.User{}, core.ErrAuthFailed
	}

	if IsLegacyHash(u.PasswordHash) {
		if !verifyLegacy(u.PasswordHash, password) {
			return core.User{}, core.ErrAuthFailed
		}
		s.upgrade(ctx, username, password)
		return u, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return core.User{}, core.ErrAuthFailed
	}
	return u, nil
}

// IsAdmin reports whether username is the configured admin account.
func (s *CredentialStore) IsAdmin(username string) bool {
	return username == s.admin
}

// Caller builds the repository identity for an authenticated username.
func (s *CredentialStore) Caller(username string) core.Caller {
	return core.Caller{Username: username, IsAdmin: s.IsAdmin(username)}
}

func (s *CredentialStore) upgrade(ctx context.Context, username, password string) {
	hash, err := s.hash(password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, username, hash)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Legacy password hash upgrade failed",
			log.FieldUsername, username, log.FieldError, err)
		return
	}
	s.logger.InfoContext(ctx, "Legacy password hash upgraded", log.FieldUsername, username)
}

func (s *CredentialStore) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("expensedash"), bcrypt.MinCost)

// LegacyHash is the unsalted SHA-256 hex digest older databases store.
func LegacyHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// IsLegacyHash reports whether h looks like a SHA-256 hex digest rather
// than a bcrypt string.
func IsLegacyHash(h string) bool {
	if len(h) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(h)
	return err == nil
}

func verifyLegacy(stored, password string) bool {
	want := LegacyHash(password)
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(stored)), []byte(want)) == 1
}
