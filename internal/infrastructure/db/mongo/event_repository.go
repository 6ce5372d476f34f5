package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tasktracker/task-api/internal/core/domain"
)

const collectionTaskEvents = "task_events"

// TaskEventRepository writes the task audit trail.
type TaskEventRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewTaskEventRepository(db *mongo.Database) *TaskEventRepository {
	return &TaskEventRepository{col: db.Collection(collectionTaskEvents), now: time.Now}
}

// InsertEvent persists one audit record. The event id doubles as _id, so a
// retried insert of the same event is rejected rather than duplicated.
func (r *TaskEventRepository) InsertEvent(ctx context.Context, event *domain.TaskEvent) error {
	doc := bson.M{
		"_id":          event.ID,
		"task_id":      event.TaskID,
		"actor_id":     event.ActorID,
		"action":       string(event.Action),
		"timestamp":    event.Timestamp.UTC(),
		"processed_at": r.now().UTC(),
	}

	_, err := r.col.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

// EnsureIndexes indexes events by task for history lookups.
func (r *TaskEventRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "task_id", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	return err
}
