package domain

import "time"

// Task is a unit of work owned by exactly one identity.
type Task struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Completed     bool      `json:"completed"`
	OwnerID       string    `json:"owner_id"`
	OwnerUsername string    `json:"owner"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OwnedBy reports whether identityID owns the task.
func (t *Task) OwnedBy(identityID string) bool {
	return identityID != "" && t.OwnerID == identityID
}

// Action names an object-scoped operation on a task.
type Action string

const (
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionCreate Action = "create"
)
