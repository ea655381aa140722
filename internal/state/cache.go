// Package state holds the in-memory task cache the presentation layer reads from.
package state

import (
	"sync"

	"github.com/fastygo/tasktracker/domain"
)

// State is the session view of tasks.
type State struct {
	Tasks         []domain.Task `json:"tasks"`
	SearchQuery   string        `json:"searchQuery"`
	FilteredTasks []domain.Task `json:"filteredTasks"`
	Loading       bool          `json:"loading"`
	Error         string        `json:"error,omitempty"`

	inflight int
}

// Event is a state transition input.
type Event interface {
	apply(State) State
}

type (
	TasksReplaced   struct{ Tasks []domain.Task }
	TaskAdded       struct{ Task domain.Task }
	TaskUpdated     struct{ Task domain.Task }
	TaskRemoved     struct{ ID string }
	QueryChanged    struct{ Query string }
	QueryCleared    struct{}
	LoadingStarted  struct{}
	LoadingFinished struct{}
	ErrorSet        struct{ Message string }
	ErrorCleared    struct{}
)

// Reduce returns the state that follows s after e. s is not modified.
func Reduce(s State, e Event) State {
	if e == nil {
		return s
	}
	return e.apply(s)
}

// Filter keeps the tasks whose title contains query, ignoring case.
// An empty query keeps every task.
func Filter(tasks []domain.Task, query string) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.MatchesTitle(query) {
			out = append(out, t)
		}
	}
	return out
}

func (e TasksReplaced) apply(s State) State {
	s.Tasks = cloneTasks(e.Tasks)
	s.FilteredTasks = Filter(s.Tasks, s.SearchQuery)
	return s
}

func (e TaskAdded) apply(s State) State {
	tasks := make([]domain.Task, 0, len(s.Tasks)+1)
	tasks = append(tasks, s.Tasks...)
	s.Tasks = append(tasks, e.Task.Clone())
	s.FilteredTasks = Filter(s.Tasks, s.SearchQuery)
	return s
}

// An update for an id the cache does not hold leaves the state unchanged.
func (e TaskUpdated) apply(s State) State {
	idx := indexOf(s.Tasks, e.Task.ID)
	if idx < 0 {
		return s
	}
	tasks := append([]domain.Task(nil), s.Tasks...)
	tasks[idx] = e.Task.Clone()
	s.Tasks = tasks
	s.FilteredTasks = Filter(s.Tasks, s.SearchQuery)
	return s
}

func (e TaskRemoved) apply(s State) State {
	tasks := make([]domain.Task, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		if t.ID != e.ID {
			tasks = append(tasks, t)
		}
	}
	s.Tasks = tasks
	s.FilteredTasks = Filter(s.Tasks, s.SearchQuery)
	return s
}

func (e QueryChanged) apply(s State) State {
	s.SearchQuery = e.Query
	s.FilteredTasks = Filter(s.Tasks, e.Query)
	return s
}

func (QueryCleared) apply(s State) State {
	s.SearchQuery = ""
	s.FilteredTasks = append(make([]domain.Task, 0, len(s.Tasks)), s.Tasks...)
	return s
}

func (LoadingStarted) apply(s State) State {
	s.inflight++
	s.Loading = true
	return s
}

func (LoadingFinished) apply(s State) State {
	if s.inflight > 0 {
		s.inflight--
	}
	s.Loading = s.inflight > 0
	return s
}

func (e ErrorSet) apply(s State) State {
	s.Error = e.Message
	return s
}

func (ErrorCleared) apply(s State) State {
	s.Error = ""
	return s
}

// Cache serialises events against a single State.
type Cache struct {
	mu    sync.RWMutex
	state State
}

func NewCache() *Cache {
	return &Cache{state: State{Tasks: []domain.Task{}, FilteredTasks: []domain.Task{}}}
}

// Dispatch applies events in order under one lock.
func (c *Cache) Dispatch(events ...Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range events {
		c.state = Reduce(c.state, e)
	}
}

// Snapshot returns a deep copy of the current state.
func (c *Cache) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.state
	s.Tasks = cloneTasks(s.Tasks)
	s.FilteredTasks = cloneTasks(s.FilteredTasks)
	return s
}

// Find returns the cached task with id.
func (c *Cache) Find(id string) (domain.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if idx := indexOf(c.state.Tasks, id); idx >= 0 {
		return c.state.Tasks[idx].Clone(), true
	}
	return domain.Task{}, false
}

func indexOf(tasks []domain.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneTasks(tasks []domain.Task) []domain.Task {
	out := make([]domain.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
