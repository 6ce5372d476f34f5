package service

import "github.com/tasktracker/task-api/internal/core/domain"

// RoleResolver maps stored identity state onto the {Admin, User} tag.
// It holds no state and must be handed a freshly loaded identity.
type RoleResolver struct {
	adminGroup string
}

func NewRoleResolver() *RoleResolver {
	return &RoleResolver{adminGroup: domain.GroupAdmin}
}

// Resolve returns RoleAdmin for staff members and members of the Admin
// group, RoleUser for everyone else.
func (r *RoleResolver) Resolve(identity *domain.Identity) domain.Role {
	if identity == nil {
		return domain.RoleUser
	}
	if identity.IsStaff || identity.InGroup(r.adminGroup) {
		return domain.RoleAdmin
	}
	return domain.RoleUser
}
