package ports

import (
	"context"
	"time"

	"github.com/tasktracker/task-api/internal/core/domain"
)

// CreateTaskInput carries the client-settable fields of a new task. It has
// no owner field: the owner is always the caller.
type CreateTaskInput struct {
	Title          string
	Description    string
	Completed      bool
	IdempotencyKey string
}

// UpdateTaskInput carries a partial (PATCH) or full (PUT) update.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Completed   *bool
}

// ListTasksInput carries the list query parameters.
type ListTasksInput struct {
	Completed *bool
	Search    string
	Ordering  string
	Page      int
	Limit     int
}

// ListTasksResult is a page of visible tasks.
type ListTasksResult struct {
	Items      []*domain.Task
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// CreateTaskResult wraps the created task. Replayed is true when the
// Idempotency-Key matched a task created earlier by the same owner.
type CreateTaskResult struct {
	Task     *domain.Task
	Replayed bool
}

// TaskService defines the task use cases. Every call takes the principal
// resolved for the current request.
type TaskService interface {
	ListVisible(ctx context.Context, p *domain.Principal, in ListTasksInput) (*ListTasksResult, error)
	Create(ctx context.Context, p *domain.Principal, in CreateTaskInput) (*CreateTaskResult, error)
	Get(ctx context.Context, p *domain.Principal, id string) (*domain.Task, error)
	Update(ctx context.Context, p *domain.Principal, id string, in UpdateTaskInput) (*domain.Task, error)
	Delete(ctx context.Context, p *domain.Principal, id string) error
}

// IdempotencyStore remembers which task an idempotency key produced.
//
// Claim reserves the key for exactly one caller. A caller that loses the
// claim gets the task id recorded under the key, or "" while the winner is
// still creating.
type IdempotencyStore interface {
	Claim(ctx context.Context, ownerID, key string, ttl time.Duration) (claimed bool, taskID string, err error)
	// Reclaim takes the key over only if it still points at staleTaskID.
	Reclaim(ctx context.Context, ownerID, key, staleTaskID string, ttl time.Duration) (bool, error)
	Remember(ctx context.Context, ownerID, key, taskID string, ttl time.Duration) error
	// Release drops an unfinished claim so a retry can create.
	Release(ctx context.Context, ownerID, key string) error
}

// AuditSink receives task audit events. Implementations must not block the
// request for long.
type AuditSink interface {
	Publish(event domain.TaskEvent)
}
