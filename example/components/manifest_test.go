package components

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/pthm/blueprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu    sync.Mutex
	todos []*Todo
}

func (s *memStore) Add(title string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := fmt.Sprintf("t%d", len(s.todos)+1)
	s.todos = append(s.todos, &Todo{ID: id, Title: title, Status: StatusPending})
	return id
}

func (s *memStore) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.todos {
		if t.ID == id {
			if t.Done() {
				t.Status = StatusPending
			} else {
				t.Status = StatusCompleted
			}
			return true
		}
	}
	return false
}

func (s *memStore) List(status *Status) []*Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Todo
	for _, t := range s.todos {
		if status == nil || t.Status == *status {
			out = append(out, t)
		}
	}
	return out
}

func (s *memStore) Stats() TodoStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st TodoStats
	for _, t := range s.todos {
		st.Total++
		if t.Done() {
			st.Completed++
		} else {
			st.Pending++
		}
	}
	return st
}

func newTestApp(t *testing.T) (*blueprint.Registry, *memStore) {
	t.Helper()
	store := &memStore{}
	store.Add("Buy milk")
	store.Add("Ship release")
	store.Toggle("t2")
	reg := blueprint.NewRegistry(Manifest(store), blueprint.WithEnvironment(blueprint.EnvProduction))
	return reg, store
}

func TestPage(t *testing.T) {
	reg, _ := newTestApp(t)

	result, err := blueprint.TestServe(reg, http.MethodGet, "/", nil)
	require.NoError(t, err)
	require.True(t, result.IsOK(), result.HTML)

	assert.True(t, result.HTMLContainsAll("<h1>Todos</h1>", "Buy milk", "Ship release", `class="done"`))
	assert.True(t, result.HTMLContains(`<p class="stats">1 of 2 left</p>`), result.HTML)
	assert.True(t, result.HTMLContains(`hx-post="/_c/todos/list"`))
	assert.False(t, result.HTMLContains("dev-outline"), "wrappers are development only")
}

func TestListFilter(t *testing.T) {
	reg, _ := newTestApp(t)

	tests := []struct {
		status  string
		want    []string
		notWant []string
	}{
		{"pending", []string{"Buy milk"}, []string{"Ship release"}},
		{"completed", []string{"Ship release"}, []string{"Buy milk"}},
		{"", []string{"Buy milk", "Ship release"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			req := blueprint.NewTestRequest(http.MethodGet, "/_c/todos/list?fragment=1")
			if tt.status != "" {
				req = req.WithQuery("status", tt.status)
			}
			result, err := req.Execute(reg)
			require.NoError(t, err)
			require.True(t, result.IsOK(), result.HTML)
			assert.True(t, result.HTMLContainsAll(tt.want...), result.HTML)
			for _, s := range tt.notWant {
				assert.False(t, result.HTMLContains(s), "unexpected %q", s)
			}
		})
	}

	bad, err := blueprint.TestServe(reg, http.MethodGet, "/_c/todos/list?status=archived", nil)
	require.NoError(t, err)
	assert.True(t, bad.HasStatus(http.StatusBadRequest))
}

func TestAddAndToggle(t *testing.T) {
	reg, store := newTestApp(t)

	added, err := blueprint.NewTestRequest(http.MethodPost, "/_c/todos/list").
		WithHeader("HX-Request", "true").
		WithHeader("Content-Type", "application/x-www-form-urlencoded").
		WithBody(strings.NewReader("title=Water+plants")).
		Execute(reg)
	require.NoError(t, err)
	require.True(t, added.IsOK(), added.HTML)
	assert.True(t, added.HTMLContains("Water plants"))
	assert.Equal(t, 3, store.Stats().Total)

	toggled, err := blueprint.NewTestRequest(http.MethodPost, "/_c/todos/list").
		WithJSON(`{"toggle":"t1"}`).
		Execute(reg)
	require.NoError(t, err)
	require.True(t, toggled.IsOK(), toggled.HTML)
	assert.Equal(t, 2, store.Stats().Completed)

	plain, err := blueprint.TestServe(reg, http.MethodPost, "/_c/todos/list", strings.NewReader("title=x"))
	require.NoError(t, err)
	assert.True(t, plain.HasStatus(http.StatusForbidden))
	assert.Equal(t, 3, store.Stats().Total)
}
