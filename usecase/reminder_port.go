package usecase

import "context"

// Reminder schedules task reminder notifications without the use case knowing the platform.
// An empty id means nothing was scheduled.
type Reminder interface {
	SendTaskReminder(ctx context.Context, taskTitle, taskID string) string
}
