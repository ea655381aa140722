package domain

import (
	"strings"
	"time"
)

// TimestampLayout is the fixed-width ISO-8601 UTC layout used for persisted timestamps.
// Fixed width keeps lexical order identical to chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

// Task represents a user-created unit of work.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateTaskInput carries the caller-supplied fields of a new task.
type CreateTaskInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// UpdateTaskInput carries a partial update. Nil fields are left untouched.
// DescriptionSet with a nil Description clears the description.
type UpdateTaskInput struct {
	ID             string  `json:"id"`
	Title          *string `json:"title,omitempty"`
	Description    *string `json:"description,omitempty"`
	DescriptionSet bool    `json:"-"`
	Completed      *bool   `json:"completed,omitempty"`
}

// HasChanges reports whether the update carries at least one field.
func (in UpdateTaskInput) HasChanges() bool {
	return in.Title != nil || in.DescriptionSet || in.Description != nil || in.Completed != nil
}

// Apply merges the supplied fields onto t. UpdatedAt is left to the caller.
func (in UpdateTaskInput) Apply(t *Task) {
	if t == nil {
		return
	}
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.DescriptionSet || in.Description != nil {
		t.Description = CloneString(in.Description)
	}
	if in.Completed != nil {
		t.Completed = *in.Completed
	}
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	t.Description = CloneString(t.Description)
	return t
}

// MatchesTitle reports whether the title contains query, ignoring case.
func (t Task) MatchesTitle(query string) bool {
	return containsFold(t.Title, query)
}

// MatchesText reports whether the title or the description contains query, ignoring case.
func (t Task) MatchesText(query string) bool {
	if containsFold(t.Title, query) {
		return true
	}
	return t.Description != nil && containsFold(*t.Description, query)
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp decodes a value written by FormatTimestamp. RFC 3339 values are accepted too.
func ParseTimestamp(value string) (time.Time, error) {
	parsed, err := time.Parse(TimestampLayout, value)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return time.Time{}, err
		}
	}
	return parsed.UTC(), nil
}

// CanonicalTime strips the monotonic reading and location so the value equals its persisted form.
func CanonicalTime(t time.Time) time.Time {
	return t.UTC().Round(0)
}

// NextUpdatedAt returns now, or prev plus one nanosecond when the clock has not advanced past prev.
func NextUpdatedAt(prev, now time.Time) time.Time {
	now = CanonicalTime(now)
	if !now.After(prev) {
		return CanonicalTime(prev.Add(time.Nanosecond))
	}
	return now
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string {
	return &s
}

// BoolPtr returns a pointer to a copy of b.
func BoolPtr(b bool) *bool {
	return &b
}

// CloneString copies the pointed-to string.
func CloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func containsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
