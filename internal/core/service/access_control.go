package service

import "github.com/tasktracker/task-api/internal/core/domain"

// Authorize decides whether identity, acting with role, may perform action on
// task. A nil return is Allow. It has no side effects and is evaluated on
// every object-scoped call.
//
//	no identity            → ErrUnauthenticated
//	create                 → allowed (owner is assigned by the caller)
//	admin                  → allowed
//	user owning the task   → allowed
//	anyone else            → ErrForbidden
func Authorize(identity *domain.Identity, role domain.Role, action domain.Action, task *domain.Task) error {
	if identity == nil || identity.ID == "" {
		return domain.ErrUnauthenticated
	}
	if action == domain.ActionCreate {
		return nil
	}
	if task == nil {
		return domain.ErrTaskNotFound
	}
	if role.IsAdmin() {
		return nil
	}
	if task.OwnedBy(identity.ID) {
		return nil
	}
	return domain.ErrForbidden
}
