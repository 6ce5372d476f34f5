package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tasktracker/task-api/internal/core/domain"
)

type stubGroups struct {
	existing map[string]bool
	members  map[string][]string
	staff    map[string]bool
	users    map[string]bool
}

func newStubGroups() *stubGroups {
	return &stubGroups{
		existing: map[string]bool{},
		members:  map[string][]string{},
		staff:    map[string]bool{},
		users:    map[string]bool{"alice": true},
	}
}

func (s *stubGroups) EnsureGroups(_ context.Context, names ...string) ([]string, error) {
	var created []string
	for _, n := range names {
		if !s.existing[n] {
			s.existing[n] = true
			created = append(created, n)
		}
	}
	return created, nil
}

func (s *stubGroups) AddMember(_ context.Context, username, group string) error {
	if !s.existing[group] {
		return domain.ErrGroupNotFound
	}
	if !s.users[username] {
		return domain.ErrUserNotFound
	}
	s.members[username] = append(s.members[username], group)
	return nil
}

func (s *stubGroups) RemoveMember(_ context.Context, username, group string) error {
	if !s.existing[group] {
		return domain.ErrGroupNotFound
	}
	if !s.users[username] {
		return domain.ErrUserNotFound
	}
	kept := s.members[username][:0]
	for _, g := range s.members[username] {
		if g != group {
			kept = append(kept, g)
		}
	}
	s.members[username] = kept
	return nil
}

func (s *stubGroups) SetStaff(_ context.Context, username string, staff bool) error {
	if !s.users[username] {
		return domain.ErrUserNotFound
	}
	s.staff[username] = staff
	return nil
}

func TestEnsureGroups_Idempotent(t *testing.T) {
	groups := newStubGroups()
	var out bytes.Buffer
	root := newRootCommand(groups, &out)

	if err := root.execute(context.Background(), []string{"ensure-groups"}); err != nil {
		t.Fatalf("ensure-groups: %v", err)
	}
	if !strings.Contains(out.String(), "Created groups: Admin, User") {
		t.Fatalf("unexpected output: %q", out.String())
	}

	out.Reset()
	if err := root.execute(context.Background(), []string{"ensure-groups"}); err != nil {
		t.Fatalf("second ensure-groups: %v", err)
	}
	if !strings.Contains(out.String(), "already exist") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestGrantAndRevoke(t *testing.T) {
	groups := newStubGroups()
	root := newRootCommand(groups, &bytes.Buffer{})
	ctx := context.Background()

	if err := root.execute(ctx, []string{"grant", "-username", "alice", "-group", "Admin"}); !errors.Is(err, domain.ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound before ensure-groups, got %v", err)
	}

	_ = root.execute(ctx, []string{"ensure-groups"})
	if err := root.execute(ctx, []string{"grant", "-username", "alice", "-group", "Admin"}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if got := groups.members["alice"]; len(got) != 1 || got[0] != "Admin" {
		t.Fatalf("expected alice in Admin, got %v", got)
	}

	if err := root.execute(ctx, []string{"revoke", "-username", "alice", "-group", "Admin"}); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if got := groups.members["alice"]; len(got) != 0 {
		t.Fatalf("expected no groups, got %v", got)
	}

	if err := root.execute(ctx, []string{"grant", "-username", "ghost", "-group", "Admin"}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestStaff(t *testing.T) {
	groups := newStubGroups()
	root := newRootCommand(groups, &bytes.Buffer{})

	if err := root.execute(context.Background(), []string{"staff", "-username", "alice", "-on"}); err != nil {
		t.Fatalf("staff: %v", err)
	}
	if !groups.staff["alice"] {
		t.Fatal("expected staff flag set")
	}
	if err := root.execute(context.Background(), []string{"staff", "-username", "alice"}); err != nil {
		t.Fatalf("staff off: %v", err)
	}
	if groups.staff["alice"] {
		t.Fatal("expected staff flag cleared")
	}
}

func TestUsageErrors(t *testing.T) {
	root := newRootCommand(newStubGroups(), &bytes.Buffer{})
	ctx := context.Background()

	if err := root.execute(ctx, []string{"grant", "-username", "alice"}); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if err := root.execute(ctx, []string{"staff"}); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if err := root.execute(ctx, []string{"bogus"}); err == nil {
		t.Fatal("expected unknown command error")
	}
	if err := root.execute(ctx, nil); err != nil {
		t.Fatalf("no args prints usage, got %v", err)
	}
}
