package notification

import (
	"context"
	"time"

	"github.com/fastygo/tasktracker/domain"
)

// PermissionStatus mirrors the platform permission states.
type PermissionStatus string

const (
	PermissionGranted      PermissionStatus = "granted"
	PermissionDenied       PermissionStatus = "denied"
	PermissionUndetermined PermissionStatus = "undetermined"
)

// Channel describes a delivery channel.
type Channel struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Importance       int     `json:"importance"`
	VibrationPattern []int64 `json:"vibration_pattern,omitempty"`
	LightColor       string  `json:"light_color,omitempty"`
}

// ScheduleRequest asks the platform to display a notification after Delay.
type ScheduleRequest struct {
	Title string
	Body  string
	Data  map[string]string
	Delay time.Duration
}

// Platform is the device notification service the Gateway drives.
type Platform interface {
	IsDevice() bool
	PermissionStatus(ctx context.Context) (PermissionStatus, error)
	RequestPermission(ctx context.Context) (PermissionStatus, error)
	SetChannel(ctx context.Context, channel Channel) error
	PushToken(ctx context.Context) (string, error)
	Schedule(ctx context.Context, req ScheduleRequest) (string, error)
	// OnReceived and OnResponse register listeners and return a function that removes them.
	OnReceived(fn func(domain.Notification)) (remove func())
	OnResponse(fn func(domain.NotificationResponse)) (remove func())
}
