package domain

import "time"

// TaskEvent is an audit record of a mutation applied to a task.
type TaskEvent struct {
	ID        string
	TaskID    string
	ActorID   string
	Action    Action
	Timestamp time.Time
}
