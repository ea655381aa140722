package transport

import (
	"bytes"
	"encoding/json"

	"github.com/fastygo/tasktracker/domain"
)

// OptionalString distinguishes an omitted field from an explicit null.
type OptionalString struct {
	Set   bool
	Value *string
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

func (r CreateTaskRequest) Input() domain.CreateTaskInput {
	return domain.CreateTaskInput{Title: r.Title, Description: r.Description}
}

// UpdateTaskRequest is a partial update; "description": null clears the description.
type UpdateTaskRequest struct {
	Title       *string        `json:"title"`
	Description OptionalString `json:"description"`
	Completed   *bool          `json:"completed"`
}

func (r UpdateTaskRequest) Input(id string) domain.UpdateTaskInput {
	return domain.UpdateTaskInput{
		ID:             id,
		Title:          r.Title,
		Description:    r.Description.Value,
		DescriptionSet: r.Description.Set,
		Completed:      r.Completed,
	}
}

type QueryRequest struct {
	Query string `json:"query"`
}

type RespondRequest struct {
	Action string `json:"action"`
}
