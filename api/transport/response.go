package transport

import (
	"encoding/json"

	"github.com/fastygo/tasktracker/domain"
	"github.com/fastygo/tasktracker/internal/state"
)

// Envelope is the standard API response wrapper used for both success and error payloads.
type Envelope struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  interface{} `json:"error,omitempty"`
	Meta   interface{} `json:"meta,omitempty"`
}

func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "success",
		Data:   data,
		Meta:   meta,
	}
}

func NewError(code string, err interface{}, meta interface{}) Envelope {
	return Envelope{
		Status: "error",
		Code:   code,
		Error:  err,
		Meta:   meta,
	}
}

// String returns the JSON representation (best-effort) for logging purposes.
func (e Envelope) String() string {
	out, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(out)
}

// TaskListView is the cache as seen by a list screen.
type TaskListView struct {
	Tasks   []domain.Task `json:"tasks"`
	Query   string        `json:"query"`
	Total   int           `json:"total"`
	Loading bool          `json:"loading"`
	Error   string        `json:"error,omitempty"`
}

func NewTaskListView(s state.State) TaskListView {
	tasks := s.FilteredTasks
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return TaskListView{
		Tasks:   tasks,
		Query:   s.SearchQuery,
		Total:   len(s.Tasks),
		Loading: s.Loading,
		Error:   s.Error,
	}
}

type RegistrationView struct {
	Token   string `json:"token"`
	Enabled bool   `json:"enabled"`
}

type ScheduledView struct {
	NotificationID string `json:"notificationId"`
	Scheduled      bool   `json:"scheduled"`
}

func NewScheduledView(id string) ScheduledView {
	return ScheduledView{NotificationID: id, Scheduled: id != ""}
}

type InboxView struct {
	Received       []domain.Notification         `json:"received"`
	Responses      []domain.NotificationResponse `json:"responses"`
	LastOpenedTask string                        `json:"lastOpenedTask,omitempty"`
}
