package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"expensedash/internal/core"
)

type memUsers struct {
	mu        sync.Mutex
	users     map[string]string
	updateErr error
}

func newMemUsers() *memUsers { return &memUsers{users: map[string]string{}} }

func (m *memUsers) GetUser(_ context.Context, username string) (core.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.users[username]
	return core.User{Username: username, PasswordHash: h}, ok, nil
}

func (m *memUsers) CreateUser(_ context.Context, u core.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Username]; ok {
		return core.ErrDuplicateUser
	}
	m.users[u.Username] = u.PasswordHash
	return nil
}

func (m *memUsers) UpdatePasswordHash(_ context.Context, username, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.users[username] = hash
	return nil
}

func newStore(users UserStore) *CredentialStore {
	return NewCredentialStore(users, Config{Cost: bcrypt.MinCost})
}

func TestRegisterThenAuthenticate(t *testing.T) {
	ctx := context.Background()
	s := newStore(newMemUsers())

	require.NoError(t, s.Register(ctx, "alice", "s3cret"))

	u, err := s.Authenticate(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	for _, wrong := range []string{"S3cret", "s3cret ", "x", ""} {
		_, err := s.Authenticate(ctx, "alice", wrong)
		assert.ErrorIs(t, err, core.ErrAuthFailed, wrong)
	}
}

func TestUsernameTrimmedOnBothPaths(t *testing.T) {
	ctx := context.Background()
	users := newMemUsers()
	s := newStore(users)

	require.NoError(t, s.Register(ctx, " bob ", "pw"))
	assert.Contains(t, users.users, "bob")

	for _, name := range []string{" bob ", "bob", "\tbob"} {
		u, err := s.Authenticate(ctx, name, "pw")
		require.NoError(t, err, "%q", name)
		assert.Equal(t, "bob", u.Username)
	}
	_, err := s.Authenticate(ctx, "   ", "pw")
	assert.ErrorIs(t, err, core.ErrAuthFailed)
}

func TestHashesAreSalted(t *testing.T) {
	ctx := context.Background()
	users := newMemUsers()
	s := newStore(users)

	require.NoError(t, s.Register(ctx, "a", "same"))
	require.NoError(t, s.Register(ctx, "b", "same"))
	assert.NotEqual(t, users.users["a"], users.users["b"])
	assert.False(t, IsLegacyHash(users.users["a"]))
}

func TestAuthenticateUnknownUser(t *testing.T) {
	_, err := newStore(newMemUsers()).Authenticate(context.Background(), "ghost", "pw")
	assert.ErrorIs(t, err, core.ErrAuthFailed)
}

func TestRegisterDuplicateKeepsHash(t *testing.T) {
	ctx := context.Background()
	users := newMemUsers()
	s := newStore(users)

	require.NoError(t, s.Register(ctx, "alice", "first"))
	before := users.users["alice"]

	err := s.Register(ctx, "alice", "second")
	assert.ErrorIs(t, err, core.ErrDuplicateUser)
	assert.Equal(t, before, users.users["alice"])

	_, err = s.Authenticate(ctx, "alice", "first")
	assert.NoError(t, err)
}

func TestRegisterConfirmedMismatch(t *testing.T) {
	ctx := context.Background()
	users := newMemUsers()
	s := newStore(users)

	err := s.RegisterConfirmed(ctx, "alice", "one", "two")
	assert.ErrorIs(t, err, core.ErrPasswordMismatch)
	assert.Empty(t, users.users)

	require.NoError(t, s.RegisterConfirmed(ctx, "alice", "one", "one"))
	assert.Contains(t, users.users, "alice")
}

func TestRegisterRejectsEmpty(t *testing.T) {
	s := newStore(newMemUsers())
	assert.ErrorIs(t, s.Register(context.Background(), "  ", "pw"), core.ErrInvalidCredentials)
	assert.ErrorIs(t, s.Register(context.Background(), "bob", ""), core.ErrInvalidCredentials)
}

func TestLegacyHashUpgradedOnLogin(t *testing.T) {
	ctx := context.Background()
	users := newMemUsers()
	users.users["demo"] = LegacyHash("demo123")
	s := newStore(users)

	_, err := s.Authenticate(ctx, "demo", "wrong")
	assert.ErrorIs(t, err, core.ErrAuthFailed)
	assert.True(t, IsLegacyHash(users.users["demo"]), "failed login must not upgrade")

	_, err = s.Authenticate(ctx, "demo", "demo123")
	require.NoError(t, err)
	assert.False(t, IsLegacyHash(users.users["demo"]))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users.users["demo"]), []byte("demo123")))

	_, err = s.Authenticate(ctx, "demo", "demo123")
	assert.NoError(t, err, "upgraded hash still verifies")
}

func TestLegacyUpgradeFailureStillLogsIn(t *testing.T) {
	users := newMemUsers()
	users.users["demo"] = LegacyHash("demo123")
	users.updateErr = errors.New("disk full")

	_, err := newStore(users).Authenticate(context.Background(), "demo", "demo123")
	assert.NoError(t, err)
	assert.True(t, IsLegacyHash(users.users["demo"]))
}

func TestLegacyHash(t *testing.T) {
	// sha256("demo123")
	assert.Equal(t, "d3ad9315b7be5dd53b31a273b3b3aba5defe700808305aa16a3062b76658a791", LegacyHash("demo123"))
	assert.True(t, IsLegacyHash(LegacyHash("x")))
	assert.False(t, IsLegacyHash("$2a$10$abcdefghijklmnopqrstuv"))
	assert.False(t, IsLegacyHash("zz"+LegacyHash("x")[2:]))
}

func TestIsAdmin(t *testing.T) {
	s := newStore(newMemUsers())
	assert.True(t, s.IsAdmin("admin"))
	assert.False(t, s.IsAdmin("Admin"))
	assert.False(t, s.IsAdmin("demo"))

	custom := NewCredentialStore(newMemUsers(), Config{AdminUsername: "boss", Cost: bcrypt.MinCost})
	assert.True(t, custom.IsAdmin("boss"))
	assert.False(t, custom.IsAdmin("admin"))
	assert.Equal(t, core.Caller{Username: "boss", IsAdmin: true}, custom.Caller("boss"))
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	users := newMemUsers()
	s := newStore(users)
	accounts := []Account{{"admin", "admin123"}, {"demo", "demo123"}}

	created, err := s.Seed(ctx, accounts)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "demo"}, created)
	adminHash := users.users["admin"]

	created, err = s.Seed(ctx, accounts)
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Equal(t, adminHash, users.users["admin"])
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	tok, err := issuer.Issue(core.Caller{Username: "demo"})
	require.NoError(t, err)

	caller, err := issuer.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, core.Caller{Username: "demo"}, caller)

	_, err = NewTokenIssuer("other", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpiry(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	tok, err := issuer.Issue(core.Caller{Username: "demo"})
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = issuer.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
