package usecase

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/fastygo/tasktracker/domain"
)

// CommandKind names a task mutation.
type CommandKind string

const (
	CommandCreateTask CommandKind = "task.create"
	CommandUpdateTask CommandKind = "task.update"
	CommandDeleteTask CommandKind = "task.delete"
)

// Command is a mutation request routed through the Dispatcher.
type Command interface {
	Kind() CommandKind
}

type CreateTask struct {
	Input domain.CreateTaskInput
}

type UpdateTask struct {
	Input domain.UpdateTaskInput
}

type DeleteTask struct {
	ID string
}

func (CreateTask) Kind() CommandKind { return CommandCreateTask }
func (UpdateTask) Kind() CommandKind { return CommandUpdateTask }
func (DeleteTask) Kind() CommandKind { return CommandDeleteTask }

// CommandHandler executes one command kind. Delete handlers return a nil task.
type CommandHandler func(ctx context.Context, cmd Command) (*domain.Task, error)

type Dispatcher struct {
	handlers map[CommandKind]CommandHandler
	mu       sync.RWMutex
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[CommandKind]CommandHandler),
	}
}

func (d *Dispatcher) Register(kind CommandKind, handler CommandHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = handler
}

func (d *Dispatcher) Execute(ctx context.Context, cmd Command) (*domain.Task, error) {
	if cmd == nil || isNilPointer(cmd) {
		return nil, domain.ErrInvalidPayload
	}
	d.mu.RLock()
	handler, ok := d.handlers[cmd.Kind()]
	d.mu.RUnlock()
	if !ok {
		return nil, domain.NewError(domain.ErrCodeInternal, fmt.Sprintf("command handler %s not registered", cmd.Kind()))
	}
	return handler(ctx, cmd)
}

// As unwraps cmd into T, accepting both the value and a non-nil pointer to it.
func As[T Command](cmd Command) (T, bool) {
	switch c := any(cmd).(type) {
	case T:
		return c, true
	case *T:
		if c != nil {
			return *c, true
		}
	}
	var zero T
	return zero, false
}

func isNilPointer(cmd Command) bool {
	v := reflect.ValueOf(cmd)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
