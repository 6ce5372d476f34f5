package ports

import (
	"context"

	"github.com/tasktracker/task-api/internal/core/domain"
)

// IdentityRepository persists user accounts and their group memberships.
type IdentityRepository interface {
	// Create inserts a new identity. Returns domain.ErrUserExists when the
	// username is already taken.
	Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error)
	FindByUsername(ctx context.Context, username string) (*domain.Identity, error)
	FindByID(ctx context.Context, id string) (*domain.Identity, error)
}

// GroupRepository manages named groups and membership. Used by operators,
// never by the request path.
type GroupRepository interface {
	// EnsureGroups creates missing groups and returns the names it created.
	EnsureGroups(ctx context.Context, names ...string) ([]string, error)
	AddMember(ctx context.Context, username, group string) error
	RemoveMember(ctx context.Context, username, group string) error
	SetStaff(ctx context.Context, username string, staff bool) error
}
