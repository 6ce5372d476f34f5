package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tasktracker/task-api/internal/core/domain"
)

const collectionGroups = "groups"

// GroupRepository manages the named groups and the membership lists
// embedded in user documents.
type GroupRepository struct {
	groups *mongo.Collection
	users  *mongo.Collection
	now    func() time.Time
}

func NewGroupRepository(db *mongo.Database) *GroupRepository {
	return &GroupRepository{
		groups: db.Collection(collectionGroups),
		users:  db.Collection(collectionUsers),
		now:    time.Now,
	}
}

// EnsureGroups creates each named group that does not exist yet and reports
// which ones were created.
func (r *GroupRepository) EnsureGroups(ctx context.Context, names ...string) ([]string, error) {
	var created []string
	for _, name := range names {
		res, err := r.groups.UpdateOne(ctx,
			bson.M{"name": name},
			bson.M{"$setOnInsert": bson.M{"name": name, "created_at": r.now().UTC().Unix()}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return created, fmt.Errorf("ensure group %q: %w", name, err)
		}
		if res.UpsertedCount > 0 {
			created = append(created, name)
		}
	}
	return created, nil
}

func (r *GroupRepository) AddMember(ctx context.Context, username, group string) error {
	if err := r.groupExists(ctx, group); err != nil {
		return err
	}
	return r.updateUser(ctx, username, bson.M{"$addToSet": bson.M{"groups": group}})
}

func (r *GroupRepository) RemoveMember(ctx context.Context, username, group string) error {
	if err := r.groupExists(ctx, group); err != nil {
		return err
	}
	return r.updateUser(ctx, username, bson.M{"$pull": bson.M{"groups": group}})
}

func (r *GroupRepository) SetStaff(ctx context.Context, username string, staff bool) error {
	return r.updateUser(ctx, username, bson.M{"$set": bson.M{"is_staff": staff}})
}

func (r *GroupRepository) groupExists(ctx context.Context, name string) error {
	err := r.groups.FindOne(ctx, bson.M{"name": name}).Err()
	if isNoDocuments(err) {
		return domain.ErrGroupNotFound
	}
	if err != nil {
		return fmt.Errorf("find group: %w", err)
	}
	return nil
}

func (r *GroupRepository) updateUser(ctx context.Context, username string, update bson.M) error {
	// Bump updated_at alongside the membership change.
	if set, ok := update["$set"].(bson.M); ok {
		set["updated_at"] = r.now().UTC().Unix()
	} else {
		update["$set"] = bson.M{"updated_at": r.now().UTC().Unix()}
	}

	res, err := r.users.UpdateOne(ctx, bson.M{"username": username}, update)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// EnsureIndexes creates the unique group name index.
func (r *GroupRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.groups.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
