package task

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fastygo/tasktracker/domain"
	"github.com/fastygo/tasktracker/internal/state"
	"github.com/fastygo/tasktracker/repository"
	"github.com/fastygo/tasktracker/usecase"
)

// User-visible failure messages recorded on the cache.
const (
	MsgLoadFailed   = "Failed to load tasks"
	MsgFetchFailed  = "Failed to load task"
	MsgSaveFailed   = "Failed to save task"
	MsgDeleteFailed = "Failed to delete task"
	MsgSearchFailed = "Failed to search tasks"
)

// UseCase performs every task mutation store-first and mirrors the canonical
// result into the cache only after the store confirms it.
type UseCase struct {
	store      repository.TaskStore
	cache      *state.Cache
	reminder   usecase.Reminder
	dispatcher *usecase.Dispatcher
	logger     *zap.Logger

	loads singleflight.Group
	// loadMu is held exclusively by Load and shared by mutations: a replaced
	// task set always includes every mutation applied before it.
	loadMu sync.RWMutex
}

func New(store repository.TaskStore, cache *state.Cache, reminder usecase.Reminder, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = state.NewCache()
	}
	uc := &UseCase{
		store:      store,
		cache:      cache,
		reminder:   reminder,
		dispatcher: usecase.NewDispatcher(),
		logger:     logger.Named("task_usecase"),
	}

	uc.dispatcher.Register(usecase.CommandCreateTask, func(ctx context.Context, cmd usecase.Command) (*domain.Task, error) {
		c, ok := usecase.As[usecase.CreateTask](cmd)
		if !ok {
			return nil, domain.ErrInvalidPayload
		}
		return uc.Create(ctx, c.Input)
	})
	uc.dispatcher.Register(usecase.CommandUpdateTask, func(ctx context.Context, cmd usecase.Command) (*domain.Task, error) {
		c, ok := usecase.As[usecase.UpdateTask](cmd)
		if !ok {
			return nil, domain.ErrInvalidPayload
		}
		return uc.Update(ctx, c.Input)
	})
	uc.dispatcher.Register(usecase.CommandDeleteTask, func(ctx context.Context, cmd usecase.Command) (*domain.Task, error) {
		c, ok := usecase.As[usecase.DeleteTask](cmd)
		if !ok {
			return nil, domain.ErrInvalidPayload
		}
		return nil, uc.Delete(ctx, c.ID)
	})
	return uc
}

// Execute routes a command through the dispatcher.
func (uc *UseCase) Execute(ctx context.Context, cmd usecase.Command) (*domain.Task, error) {
	return uc.dispatcher.Execute(ctx, cmd)
}

// View returns a copy of the cache state.
func (uc *UseCase) View() state.State {
	return uc.cache.Snapshot()
}

// Load replaces the cached task set with the store's. Concurrent calls share one
// store read, and mutations wait for it to be applied.
func (uc *UseCase) Load(ctx context.Context) ([]domain.Task, error) {
	v, err, shared := uc.loads.Do("load", func() (interface{}, error) {
		uc.loadMu.Lock()
		defer uc.loadMu.Unlock()

		var tasks []domain.Task
		err := uc.run(ctx, "load", MsgLoadFailed, func(ctx context.Context) ([]state.Event, error) {
			all, err := uc.store.GetAll(ctx)
			if err != nil {
				return nil, err
			}
			tasks = all
			return []state.Event{state.TasksReplaced{Tasks: all}}, nil
		})
		return tasks, err
	})
	if err != nil {
		return nil, err
	}
	if shared {
		uc.logger.Debug("load coalesced")
	}
	return v.([]domain.Task), nil
}

// Get prefers the cached record and falls back to the store.
func (uc *UseCase) Get(ctx context.Context, id string) (*domain.Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrMissingTaskID
	}
	if cached, ok := uc.cache.Find(id); ok {
		return &cached, nil
	}

	var found *domain.Task
	err := uc.run(ctx, "get", MsgFetchFailed, func(ctx context.Context) ([]state.Event, error) {
		task, ok, err := uc.store.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrTaskNotFound
		}
		found = task
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (uc *UseCase) Create(ctx context.Context, input domain.CreateTaskInput) (*domain.Task, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	input = input.Normalize()

	uc.loadMu.RLock()
	defer uc.loadMu.RUnlock()

	var created *domain.Task
	err := uc.run(ctx, "create", MsgSaveFailed, func(ctx context.Context) ([]state.Event, error) {
		task, err := uc.store.Create(ctx, input)
		if err != nil {
			return nil, err
		}
		created = task
		return []state.Event{state.TaskAdded{Task: *task}}, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (uc *UseCase) Update(ctx context.Context, input domain.UpdateTaskInput) (*domain.Task, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	input = input.Normalize()

	uc.loadMu.RLock()
	defer uc.loadMu.RUnlock()

	var updated *domain.Task
	err := uc.run(ctx, "update", MsgSaveFailed, func(ctx context.Context) ([]state.Event, error) {
		task, err := uc.store.Update(ctx, input)
		if err != nil {
			return nil, err
		}
		updated = task
		return []state.Event{state.TaskUpdated{Task: *task}}, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ToggleComplete flips the completion flag of the task.
func (uc *UseCase) ToggleComplete(ctx context.Context, id string) (*domain.Task, error) {
	current, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return uc.Update(ctx, domain.UpdateTaskInput{
		ID:        current.ID,
		Completed: domain.BoolPtr(!current.Completed),
	})
}

func (uc *UseCase) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ErrMissingTaskID
	}

	uc.loadMu.RLock()
	defer uc.loadMu.RUnlock()

	return uc.run(ctx, "delete", MsgDeleteFailed, func(ctx context.Context) ([]state.Event, error) {
		if err := uc.store.Delete(ctx, id); err != nil {
			return nil, err
		}
		return []state.Event{state.TaskRemoved{ID: id}}, nil
	})
}

// Search runs the store-side query over title and description. The cache is left as is.
func (uc *UseCase) Search(ctx context.Context, query string) ([]domain.Task, error) {
	var found []domain.Task
	err := uc.run(ctx, "search", MsgSearchFailed, func(ctx context.Context) ([]state.Event, error) {
		tasks, err := uc.store.Search(ctx, strings.TrimSpace(query))
		if err != nil {
			return nil, err
		}
		found = tasks
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// SetQuery updates the live title filter.
func (uc *UseCase) SetQuery(query string) state.State {
	uc.cache.Dispatch(state.QueryChanged{Query: query})
	return uc.cache.Snapshot()
}

func (uc *UseCase) ClearQuery() state.State {
	uc.cache.Dispatch(state.QueryCleared{})
	return uc.cache.Snapshot()
}

// Remind schedules a reminder notification for the task and returns its id.
// An empty id means notifications are unavailable.
func (uc *UseCase) Remind(ctx context.Context, id string) (string, error) {
	task, err := uc.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if uc.reminder == nil {
		return "", nil
	}
	return uc.reminder.SendTaskReminder(ctx, task.Title, task.ID), nil
}

// run brackets a store call with the loading flag. The call is detached from
// caller cancellation so a started write always finishes. Events produced by
// the call are applied together with the loading reset.
func (uc *UseCase) run(ctx context.Context, op, failure string, call func(ctx context.Context) ([]state.Event, error)) error {
	uc.cache.Dispatch(state.LoadingStarted{}, state.ErrorCleared{})

	var events []state.Event
	defer func() {
		uc.cache.Dispatch(append(events, state.LoadingFinished{})...)
	}()

	produced, err := call(context.WithoutCancel(ctx))
	if err != nil {
		if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
			uc.logger.Error("task operation failed", zap.String("operation", op), zap.Error(err))
		}
		events = append(events, state.ErrorSet{Message: failure})
		return err
	}
	events = produced
	return nil
}
