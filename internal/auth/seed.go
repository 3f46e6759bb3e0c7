package auth

import (
	"context"
	"errors"

	"expensedash/internal/core"
)

// Account is a username/password pair created at bootstrap.
type Account struct {
	Username string
	Password string
}

// Seed registers each account that does not exist yet. It returns the
// usernames that were created; existing accounts are left untouched.
func (s *CredentialStore) Seed(ctx context.Context, accounts []Account) ([]string, error) {
	var created []string
	for _, a := range accounts {
		if a.Username == "" {
			continue
		}
		err := s.Register(ctx, a.Username, a.Password)
		switch {
		case err == nil:
			created = append(created, a.Username)
		case errors.Is(err, core.ErrDuplicateUser):
		default:
			return created, err
		}
	}
	return created, nil
}
