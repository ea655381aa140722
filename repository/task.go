package repository

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/tasktracker/domain"
)

// TaskStore is the durable record of tasks on the device.
//
// Every method other than Init and Close fails with domain.ErrNotInitialized
// until Init has succeeded. Returned tasks are canonical: they equal what a
// later read of the same id yields.
type TaskStore interface {
	// Init opens the engine and applies the schema. It is idempotent.
	Init(ctx context.Context) error
	Create(ctx context.Context, input domain.CreateTaskInput) (*domain.Task, error)
	// GetAll returns every task, most recently updated first.
	GetAll(ctx context.Context) ([]domain.Task, error)
	// GetByID reports absence with ok == false and a nil error.
	GetByID(ctx context.Context, id string) (task *domain.Task, ok bool, err error)
	Update(ctx context.Context, input domain.UpdateTaskInput) (*domain.Task, error)
	Delete(ctx context.Context, id string) error
	// Search matches query against title or description, ignoring case.
	Search(ctx context.Context, query string) ([]domain.Task, error)
	Ping(ctx context.Context) error
	Close() error
}

// Options carries the collaborators shared by store implementations.
// Zero values fall back to the wall clock and UUIDv7 ids.
type Options struct {
	Now   func() time.Time
	NewID func() string
}

// WithDefaults fills unset collaborators.
func (o Options) WithDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = NewTaskID
	}
	return o
}

// NewTaskID returns a time-ordered UUIDv7, falling back to a random UUID.
func NewTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// SortByRecency orders tasks by UpdatedAt descending, ties broken by id descending.
func SortByRecency(tasks []domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].UpdatedAt.Equal(tasks[j].UpdatedAt) {
			return tasks[i].UpdatedAt.After(tasks[j].UpdatedAt)
		}
		return tasks[i].ID > tasks[j].ID
	})
}
