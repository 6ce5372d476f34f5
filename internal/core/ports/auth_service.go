package ports

import (
	"context"

	"github.com/tasktracker/task-api/internal/core/domain"
)

// RegisterInput carries the registration form.
type RegisterInput struct {
	Username             string
	Password             string
	PasswordConfirmation string
	Email                string
}

// TokenPair is returned by a successful login.
type TokenPair struct {
	Access  string
	Refresh string
}

// AuthService issues and verifies credentials.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.Identity, error)
	Login(ctx context.Context, username, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	// Verify authenticates an access token and returns the identity it names,
	// freshly read from the store.
	Verify(ctx context.Context, accessToken string) (*domain.Identity, error)
}

// PasswordValidator checks a candidate password. Implementations return a
// *domain.ValidationError listing every rule that failed.
type PasswordValidator interface {
	Validate(password, username, email string) error
}

// RoleResolver derives the role of an identity from its current state.
type RoleResolver interface {
	Resolve(identity *domain.Identity) domain.Role
}
