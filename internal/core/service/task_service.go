package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tasktracker/task-api/internal/core/domain"
	"github.com/tasktracker/task-api/internal/core/ports"
)

const (
	defaultListLimit      = 20
	maxListLimit          = 100
	defaultIdempotencyTTL = 24 * time.Hour

	defaultIdempotencyWait  = 2 * time.Second
	idempotencyPollInterval = 10 * time.Millisecond
)

var validOrderings = map[string]struct{}{
	"":            {},
	"updated_at":  {},
	"-updated_at": {},
}

// TaskServiceOptions tunes TaskService behaviour.
type TaskServiceOptions struct {
	// HideForbidden reports a task the caller may not access as not found,
	// so its existence is never confirmed.
	HideForbidden  bool
	IdempotencyTTL time.Duration
	// IdempotencyWait bounds how long a create waits on another request
	// holding the same key.
	IdempotencyWait time.Duration
}

// TaskService applies the visibility filter and the access decision to every
// task operation.
type TaskService struct {
	repo   ports.TaskRepository
	idem   ports.IdempotencyStore // optional
	audit  ports.AuditSink        // optional
	opts   TaskServiceOptions
	logger zerolog.Logger
	now    func() time.Time
}

func NewTaskService(
	repo ports.TaskRepository,
	idem ports.IdempotencyStore,
	audit ports.AuditSink,
	opts TaskServiceOptions,
	logger zerolog.Logger,
) *TaskService {
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = defaultIdempotencyTTL
	}
	if opts.IdempotencyWait <= 0 {
		opts.IdempotencyWait = defaultIdempotencyWait
	}
	return &TaskService{
		repo:   repo,
		idem:   idem,
		audit:  audit,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// ListVisible returns the page of tasks the principal may see: every task for
// an admin, only owned tasks for a user. Search, completion filter and
// ordering narrow that set further.
func (s *TaskService) ListVisible(ctx context.Context, p *domain.Principal, in ports.ListTasksInput) (*ports.ListTasksResult, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	if _, ok := validOrderings[in.Ordering]; !ok {
		return nil, domain.NewValidationError("ordering", "Select a valid choice: updated_at, -updated_at.")
	}

	limit := in.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	page := in.Page
	if page <= 0 {
		page = 1
	}

	filter := ports.TaskFilter{
		Completed: in.Completed,
		Search:    strings.TrimSpace(in.Search),
		Ordering:  in.Ordering,
		Page:      page,
		Limit:     limit,
	}
	if !p.Role.IsAdmin() {
		filter.OwnerID = p.ID()
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &ports.ListTasksResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// Create stores a new task owned by the principal. When an idempotency key
// is given, the key is claimed before the insert so concurrent requests with
// the same key produce one task; the others get that task back.
func (s *TaskService) Create(ctx context.Context, p *domain.Principal, in ports.CreateTaskInput) (*ports.CreateTaskResult, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	if err := Authorize(p.Identity, p.Role, domain.ActionCreate, nil); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.NewValidationError("title", "This field may not be blank.")
	}

	claimed := false
	if in.IdempotencyKey != "" && s.idem != nil {
		replay, ok, err := s.claim(ctx, p, in.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if replay != nil {
			return &ports.CreateTaskResult{Task: replay, Replayed: true}, nil
		}
		claimed = ok
	}

	now := s.stamp()
	task, err := s.repo.Create(ctx, &domain.Task{
		Title:         title,
		Description:   in.Description,
		Completed:     in.Completed,
		OwnerID:       p.Identity.ID,
		OwnerUsername: p.Identity.Username,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("owner_id", p.ID()).Msg("failed to create task")
		if claimed {
			if rerr := s.idem.Release(context.WithoutCancel(ctx), p.ID(), in.IdempotencyKey); rerr != nil {
				s.logger.Warn().Err(rerr).Str("owner_id", p.ID()).Msg("failed to release idempotency key")
			}
		}
		return nil, err
	}

	if claimed {
		if err := s.idem.Remember(ctx, p.ID(), in.IdempotencyKey, task.ID, s.opts.IdempotencyTTL); err != nil {
			s.logger.Warn().Err(err).Str("task_id", task.ID).Msg("failed to store idempotency key")
		}
	}

	s.publish(task.ID, p.ID(), domain.ActionCreate)
	s.logger.Info().Str("task_id", task.ID).Str("owner_id", p.ID()).Msg("task created")

	return &ports.CreateTaskResult{Task: task}, nil
}

// Get returns a single task if the principal may read it.
func (s *TaskService) Get(ctx context.Context, p *domain.Principal, id string) (*domain.Task, error) {
	return s.load(ctx, p, id, domain.ActionRead)
}

// Update applies a partial update. The owner never changes, not even for
// admins.
func (s *TaskService) Update(ctx context.Context, p *domain.Principal, id string, in ports.UpdateTaskInput) (*domain.Task, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}

	changes := ports.TaskChanges{
		Description: in.Description,
		Completed:   in.Completed,
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, domain.NewValidationError("title", "This field may not be blank.")
		}
		changes.Title = &title
	}

	task, err := s.load(ctx, p, id, domain.ActionUpdate)
	if err != nil {
		return nil, err
	}

	// updated_at must strictly advance even when two writes share a
	// millisecond, the store's resolution.
	ts := s.stamp()
	if !ts.After(task.UpdatedAt) {
		ts = task.UpdatedAt.Add(time.Millisecond)
	}

	updated, err := s.repo.Update(ctx, task.ID, changes, ts)
	if err != nil {
		return nil, err
	}

	s.publish(task.ID, p.ID(), domain.ActionUpdate)
	return updated, nil
}

// Delete removes a task permanently.
func (s *TaskService) Delete(ctx context.Context, p *domain.Principal, id string) error {
	task, err := s.load(ctx, p, id, domain.ActionDelete)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, task.ID); err != nil {
		return err
	}

	s.publish(task.ID, p.ID(), domain.ActionDelete)
	s.logger.Info().Str("task_id", task.ID).Str("actor_id", p.ID()).Msg("task deleted")
	return nil
}

// load fetches the task and runs the access decision for action.
func (s *TaskService) load(ctx context.Context, p *domain.Principal, id string, action domain.Action) (*domain.Task, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}

	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := Authorize(p.Identity, p.Role, action, task); err != nil {
		s.logger.Info().
			Str("task_id", id).
			Str("actor_id", p.ID()).
			Str("action", string(action)).
			Msg("task access denied")
		if errors.Is(err, domain.ErrForbidden) && s.opts.HideForbidden {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// claim reserves key for this create. It returns the task an earlier request
// already created under key, or claimed=true when the caller should insert.
// While another request holds the key pending, claim polls until
// IdempotencyWait runs out and then reports ErrCreateInProgress. Store
// failures are logged and the create goes ahead unguarded.
func (s *TaskService) claim(ctx context.Context, p *domain.Principal, key string) (*domain.Task, bool, error) {
	deadline := time.Now().Add(s.opts.IdempotencyWait)
	for {
		claimed, taskID, err := s.idem.Claim(ctx, p.ID(), key, s.opts.IdempotencyTTL)
		if err != nil {
			s.logger.Warn().Err(err).Str("owner_id", p.ID()).Msg("idempotency claim failed, creating anyway")
			return nil, false, nil
		}
		if claimed {
			return nil, true, nil
		}

		if taskID != "" {
			task, err := s.repo.FindByID(ctx, taskID)
			switch {
			case err == nil && task.OwnedBy(p.ID()):
				s.logger.Info().Str("idempotency_key", key).Str("task_id", task.ID).Msg("idempotent replay")
				return task, false, nil
			case err != nil && !errors.Is(err, domain.ErrTaskNotFound):
				return nil, false, err
			}

			// The recorded task is gone. Only one request may take the key over.
			ok, err := s.idem.Reclaim(ctx, p.ID(), key, taskID, s.opts.IdempotencyTTL)
			if err != nil {
				s.logger.Warn().Err(err).Str("owner_id", p.ID()).Msg("idempotency reclaim failed, creating anyway")
				return nil, false, nil
			}
			if ok {
				return nil, true, nil
			}
			continue
		}

		if !time.Now().Before(deadline) {
			return nil, false, domain.ErrCreateInProgress
		}
		t := time.NewTimer(idempotencyPollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, false, ctx.Err()
		case <-t.C:
		}
	}
}

func (s *TaskService) publish(taskID, actorID string, action domain.Action) {
	if s.audit == nil {
		return
	}
	s.audit.Publish(domain.TaskEvent{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		ActorID:   actorID,
		Action:    action,
		Timestamp: s.stamp(),
	})
}

// stamp returns the current time at the store's millisecond resolution.
func (s *TaskService) stamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func requirePrincipal(p *domain.Principal) error {
	if p == nil || p.Identity == nil || p.Identity.ID == "" {
		return domain.ErrUnauthenticated
	}
	return nil
}
