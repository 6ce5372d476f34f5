package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tasktracker/task-api/internal/api/handler"
	"github.com/tasktracker/task-api/internal/core/domain"
	"github.com/tasktracker/task-api/internal/core/ports"
	"github.com/tasktracker/task-api/internal/core/service"
)

// ---------------------------------------------------------------------------
// In-memory stores
// ---------------------------------------------------------------------------

type memIdentities struct {
	mu    sync.Mutex
	users map[string]*domain.Identity
}

func (m *memIdentities) Create(_ context.Context, u *domain.Identity) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return nil, domain.ErrUserExists
		}
	}
	clone := *u
	clone.ID = fmt.Sprintf("u-%d", len(m.users)+1)
	m.users[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (m *memIdentities) FindByUsername(_ context.Context, username string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memIdentities) FindByID(_ context.Context, id string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *memIdentities) grant(username, group string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			u.Groups = append(u.Groups, group)
		}
	}
}

type memTasks struct {
	mu    sync.Mutex
	seq   int
	tasks map[string]*domain.Task
}

func (m *memTasks) Create(_ context.Context, t *domain.Task) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	clone := *t
	clone.ID = fmt.Sprintf("t-%d", m.seq)
	m.tasks[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (m *memTasks) FindByID(_ context.Context, id string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	clone := *t
	return &clone, nil
}

func (m *memTasks) Update(_ context.Context, id string, ch ports.TaskChanges, updatedAt time.Time) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	if ch.Title != nil {
		t.Title = *ch.Title
	}
	if ch.Description != nil {
		t.Description = *ch.Description
	}
	if ch.Completed != nil {
		t.Completed = *ch.Completed
	}
	t.UpdatedAt = updatedAt
	clone := *t
	return &clone, nil
}

func (m *memTasks) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *memTasks) List(_ context.Context, f ports.TaskFilter) ([]*domain.Task, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Task
	for _, t := range m.tasks {
		if f.OwnerID != "" && t.OwnerID != f.OwnerID {
			continue
		}
		clone := *t
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

// The Prometheus middleware registers collectors globally, so the router is
// built once per test binary.
var (
	routerOnce sync.Once
	testEcho   *echo.Echo
	identities *memIdentities
	tasks      *memTasks
)

func testRouter(t *testing.T) *echo.Echo {
	t.Helper()
	routerOnce.Do(func() {
		identities = &memIdentities{users: map[string]*domain.Identity{}}
		tasks = &memTasks{tasks: map[string]*domain.Task{}}

		tokens := service.NewTokenManager("router-test-secret", time.Minute, time.Hour)
		testEcho = NewRouter(Deps{
			Log:          zerolog.Nop(),
			AuthService:  service.NewAuthService(identities, tokens, nil, zerolog.Nop()),
			TaskService:  service.NewTaskService(tasks, nil, nil, service.TaskServiceOptions{HideForbidden: true}, zerolog.Nop()),
			RoleResolver: service.NewRoleResolver(),
			HealthChecks: map[string]handler.CheckFunc{
				"mongodb": func(context.Context) error { return nil },
			},
		})
	})
	return testEcho
}

func do(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, req)

	var resp map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	}
	return rec, resp
}

func registerAndLogin(t *testing.T, username string) string {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":"Tr1cky-Passphrase","password_confirmation":"Tr1cky-Passphrase"}`, username)
	if rec, _ := do(t, http.MethodPost, "/auth/register", "", body); rec.Code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", username, rec.Code, rec.Body.String())
	}
	rec, resp := do(t, http.MethodPost, "/auth/login", "", fmt.Sprintf(`{"username":%q,"password":"Tr1cky-Passphrase"}`, username))
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", username, rec.Code, rec.Body.String())
	}
	return resp["access"].(string)
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func TestRouter_OwnershipScenario(t *testing.T) {
	owner := registerAndLogin(t, "scenario_owner")
	stranger := registerAndLogin(t, "scenario_stranger")
	admin := registerAndLogin(t, "scenario_admin")
	identities.grant("scenario_admin", domain.GroupAdmin)

	rec, created := do(t, http.MethodPost, "/tasks/", owner, `{"title":"Owner's Task","description":"Secret details","owner_id":"someone-else"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	taskPath := "/tasks/" + created["id"].(string) + "/"

	if rec, _ := do(t, http.MethodGet, "/auth/me", owner, ""); rec.Code != http.StatusOK {
		t.Fatalf("me: %d", rec.Code)
	}
	if created["owner"] != "scenario_owner" {
		t.Fatalf("owner must be the caller, got %v", created["owner"])
	}

	t.Run("stranger cannot see, change or delete", func(t *testing.T) {
		for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
			rec, _ := do(t, method, taskPath, stranger, `{"title":"pwned"}`)
			if rec.Code != http.StatusNotFound {
				t.Errorf("%s: expected 404, got %d", method, rec.Code)
			}
		}
		rec, resp := do(t, http.MethodGet, "/tasks/", stranger, "")
		if rec.Code != http.StatusOK || resp["pagination"].(map[string]any)["total"] != float64(0) {
			t.Errorf("stranger list must be empty: %s", rec.Body.String())
		}
	})

	t.Run("owner patches title and completion", func(t *testing.T) {
		rec, resp := do(t, http.MethodPatch, taskPath, owner, `{"title":"Updated Title","completed":true}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("patch: %d %s", rec.Code, rec.Body.String())
		}
		if resp["title"] != "Updated Title" || resp["completed"] != true || resp["description"] != "Secret details" {
			t.Fatalf("unexpected task: %+v", resp)
		}
		before, _ := time.Parse(time.RFC3339Nano, created["updated_at"].(string))
		after, _ := time.Parse(time.RFC3339Nano, resp["updated_at"].(string))
		if !after.After(before) {
			t.Fatalf("updated_at must advance: %v -> %v", before, after)
		}
	})

	t.Run("admin reads and deletes any task", func(t *testing.T) {
		rec, resp := do(t, http.MethodGet, "/tasks/", admin, "")
		if rec.Code != http.StatusOK || resp["pagination"].(map[string]any)["total"].(float64) < 1 {
			t.Fatalf("admin list: %s", rec.Body.String())
		}
		if rec, _ := do(t, http.MethodGet, taskPath, admin, ""); rec.Code != http.StatusOK {
			t.Fatalf("admin get: %d", rec.Code)
		}
		if rec, _ := do(t, http.MethodDelete, taskPath, admin, ""); rec.Code != http.StatusNoContent {
			t.Fatalf("admin delete: %d", rec.Code)
		}
		if rec, _ := do(t, http.MethodGet, taskPath, owner, ""); rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 after delete, got %d", rec.Code)
		}
	})
}

func TestRouter_AuthErrors(t *testing.T) {
	if rec, _ := do(t, http.MethodGet, "/tasks", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", rec.Code)
	}
	if rec, _ := do(t, http.MethodGet, "/tasks", "garbage", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: expected 401, got %d", rec.Code)
	}

	registerAndLogin(t, "errors_user")
	rec, _ := do(t, http.MethodPost, "/auth/register", "",
		`{"username":"errors_user","password":"Tr1cky-Passphrase","password_confirmation":"Tr1cky-Passphrase"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate: expected 409, got %d", rec.Code)
	}

	rec, resp := do(t, http.MethodPost, "/auth/register", "",
		`{"username":"mismatch_user","password":"Tr1cky-Passphrase","password_confirmation":"other"}`)
	if rec.Code != http.StatusBadRequest || resp["fields"] == nil {
		t.Errorf("mismatch: expected 400 with fields, got %d %s", rec.Code, rec.Body.String())
	}

	rec, resp = do(t, http.MethodPost, "/auth/login", "", `{"username":"errors_user","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized || strings.Contains(rec.Body.String(), "wrong") {
		t.Errorf("bad login: expected generic 401, got %d %v", rec.Code, resp)
	}
}

func TestRouter_Health(t *testing.T) {
	if rec, _ := do(t, http.MethodGet, "/health/ready", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
