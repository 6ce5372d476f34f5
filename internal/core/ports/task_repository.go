package ports

import (
	"context"
	"time"

	"github.com/tasktracker/task-api/internal/core/domain"
)

// TaskFilter carries the list query. OwnerID is always decided by the service
// layer from the caller's role; handlers never set it.
type TaskFilter struct {
	OwnerID   string // empty = every task (admin); non-empty = owned only
	Completed *bool  // optional
	Search    string // optional: case-insensitive match on title or description
	Ordering  string // "updated_at" or "-updated_at"; empty = newest first
	Page      int    // 1-based
	Limit     int
}

// TaskChanges lists the mutable task fields. Nil means "leave unchanged".
type TaskChanges struct {
	Title       *string
	Description *string
	Completed   *bool
}

// TaskRepository defines persistence operations for tasks. Every mutating
// call touches a single document atomically.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	FindByID(ctx context.Context, id string) (*domain.Task, error)
	// Update applies changes and sets updated_at. Returns
	// domain.ErrTaskNotFound when the task vanished in the meantime.
	Update(ctx context.Context, id string, changes TaskChanges, updatedAt time.Time) (*domain.Task, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter TaskFilter) ([]*domain.Task, int64, error)
}

// TaskEventRepository stores the task audit trail.
type TaskEventRepository interface {
	InsertEvent(ctx context.Context, event *domain.TaskEvent) error
}
