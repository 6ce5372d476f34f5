package mongo

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tasktracker/task-api/internal/core/ports"
)

func TestTaskListFilter_OwnerScoped(t *testing.T) {
	done := true
	f := taskListFilter(ports.TaskFilter{OwnerID: "abc", Completed: &done, Search: "a.b"})

	if f["owner_id"] != "abc" {
		t.Fatalf("expected owner_id filter, got %v", f["owner_id"])
	}
	if f["completed"] != true {
		t.Fatalf("expected completed filter, got %v", f["completed"])
	}

	or, ok := f["$or"].(bson.A)
	if !ok || len(or) != 2 {
		t.Fatalf("expected $or over title and description, got %v", f["$or"])
	}
	rx := or[0].(bson.M)["title"].(primitive.Regex)
	if rx.Pattern != `a\.b` || rx.Options != "i" {
		t.Fatalf("search must be a quoted case-insensitive regex, got %+v", rx)
	}
}

func TestTaskListFilter_AdminUnscoped(t *testing.T) {
	f := taskListFilter(ports.TaskFilter{})
	if len(f) != 0 {
		t.Fatalf("expected empty filter, got %v", f)
	}
}

func TestTaskSort(t *testing.T) {
	cases := map[string]int{
		"":            -1,
		"-updated_at": -1,
		"updated_at":  1,
	}
	for ordering, want := range cases {
		got := taskSort(ordering)
		if got[0].Key != "updated_at" || got[0].Value != want || got[1].Key != "_id" {
			t.Errorf("ordering %q: got %v", ordering, got)
		}
	}
}

func TestObjectID_Malformed(t *testing.T) {
	if _, ok := objectID("not-a-hex-id"); ok {
		t.Fatal("expected malformed id to be rejected")
	}
	if _, ok := objectID(primitive.NewObjectID().Hex()); !ok {
		t.Fatal("expected valid id to parse")
	}
}
