package components

import "time"

// Status is the completion state of a todo.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Todo is a single task.
type Todo struct {
	ID        string
	Title     string
	Status    Status
	CreatedAt time.Time
}

// Done reports whether the todo is completed.
func (t *Todo) Done() bool {
	return t.Status == StatusCompleted
}

// TodoStats summarizes the store.
type TodoStats struct {
	Total     int
	Completed int
	Pending   int
}

// TodoStore is the storage the components read from and write to.
type TodoStore interface {
	Add(title string) string
	Toggle(id string) bool
	List(status *Status) []*Todo
	Stats() TodoStats
}
