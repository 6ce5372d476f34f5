package domain

import "time"

// Role is the privilege tag derived from an identity's stored state.
// It is never persisted and never embedded in tokens.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Group names understood by the role resolver and the manage CLI.
const (
	GroupAdmin = "Admin"
	GroupUser  = "User"
)

func (r Role) String() string { return string(r) }

// IsAdmin reports whether r grants unrestricted access to every task.
func (r Role) IsAdmin() bool { return r == RoleAdmin }

// Identity models a registered user account.
type Identity struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	IsStaff      bool      `json:"-"`
	Groups       []string  `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// InGroup reports whether the identity is a member of the named group.
func (i *Identity) InGroup(name string) bool {
	for _, g := range i.Groups {
		if g == name {
			return true
		}
	}
	return false
}

// Principal is an authenticated identity paired with the role resolved for
// the current request.
type Principal struct {
	Identity *Identity
	Role     Role
}

// ID returns the principal's identity id, or "" when unauthenticated.
func (p *Principal) ID() string {
	if p == nil || p.Identity == nil {
		return ""
	}
	return p.Identity.ID
}
