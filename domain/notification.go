package domain

import "time"

// Payload keys and types understood by the presentation layer.
const (
	NotificationDataType   = "type"
	NotificationDataTaskID = "taskId"

	NotificationTypeTest         = "test"
	NotificationTypeTaskReminder = "task_reminder"
)

// Notification is an opaque local notification. Data is ferried untouched.
type Notification struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	DeliverAt time.Time         `json:"deliver_at"`
	CreatedAt time.Time         `json:"created_at"`
}

// TaskID returns the task deep-link carried in the payload, if any.
func (n Notification) TaskID() (string, bool) {
	id, ok := n.Data[NotificationDataTaskID]
	return id, ok && id != ""
}

// NotificationResponse is emitted when the user interacts with a delivered notification.
type NotificationResponse struct {
	Notification Notification `json:"notification"`
	Action       string       `json:"action"`
	RespondedAt  time.Time    `json:"responded_at"`
}

// DefaultNotificationAction is the action reported when the notification body is tapped.
const DefaultNotificationAction = "default"
