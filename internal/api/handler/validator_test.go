package handler

import (
	"errors"
	"testing"

	"github.com/tasktracker/task-api/internal/core/domain"
)

func TestValidator_UsesJSONFieldNames(t *testing.T) {
	v := NewValidator()

	err := v.Validate(&registerRequest{Username: "alice", Email: "nope"})

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *domain.ValidationError, got %v", err)
	}
	if got := verr.Fields["password_confirmation"]; len(got) != 1 || got[0] != "This field is required." {
		t.Fatalf("unexpected password_confirmation errors: %v", got)
	}
	if got := verr.Fields["email"]; len(got) != 1 || got[0] != "Enter a valid email address." {
		t.Fatalf("unexpected email errors: %v", got)
	}
	if _, ok := verr.Fields["username"]; ok {
		t.Fatalf("username is valid, got %v", verr.Fields["username"])
	}
}

func TestValidator_Passes(t *testing.T) {
	if err := NewValidator().Validate(&createTaskRequest{Title: "ok"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
