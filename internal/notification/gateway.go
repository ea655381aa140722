// Package notification wraps the device notification platform behind a best-effort gateway.
package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/tasktracker/domain"
	"github.com/fastygo/tasktracker/usecase"
)

const (
	DefaultChannelID = "default"
	DefaultDelay     = 2 * time.Second

	placeholderTokenPrefix = "mock-push-token-"
)

// Config tunes the Gateway. Zero values fall back to defaults.
type Config struct {
	ChannelID string
	Delay     time.Duration
	Now       func() time.Time
}

// Gateway never fails its callers: platform errors are logged and degrade to
// a placeholder token or a no-op.
type Gateway struct {
	platform Platform
	cfg      Config
	logger   *zap.Logger

	mu       sync.RWMutex
	disabled bool
	token    string
}

var _ usecase.Reminder = (*Gateway)(nil)

func NewGateway(platform Platform, cfg Config, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ChannelID == "" {
		cfg.ChannelID = DefaultChannelID
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Gateway{
		platform: platform,
		cfg:      cfg,
		logger:   logger.Named("notification_gateway"),
	}
}

// RegisterForNotifications sets up the default channel and obtains a delivery token.
// ok is false only when permission is denied; scheduling is then disabled.
func (g *Gateway) RegisterForNotifications(ctx context.Context) (token string, ok bool) {
	if g.platform == nil {
		return g.remember(g.placeholder()), true
	}

	if err := g.platform.SetChannel(ctx, Channel{
		ID:               g.cfg.ChannelID,
		Name:             g.cfg.ChannelID,
		Importance:       5,
		VibrationPattern: []int64{0, 250, 250, 250},
		LightColor:       "#FF231F7C",
	}); err != nil {
		g.logger.Warn("notification channel setup failed", zap.Error(err))
	}

	if !g.platform.IsDevice() {
		g.logger.Info("not a physical device, using placeholder token")
		return g.remember(g.placeholder()), true
	}

	status, err := g.platform.PermissionStatus(ctx)
	if err != nil {
		g.logger.Warn("permission query failed", zap.Error(err))
		status = PermissionUndetermined
	}
	if status != PermissionGranted {
		status, err = g.platform.RequestPermission(ctx)
		if err != nil {
			g.logger.Warn("permission request failed", zap.Error(err))
			status = PermissionDenied
		}
	}
	if status != PermissionGranted {
		g.mu.Lock()
		g.disabled = true
		g.token = ""
		g.mu.Unlock()
		g.logger.Info("notification permission denied", zap.String("status", string(status)))
		return "", false
	}

	g.mu.Lock()
	g.disabled = false
	g.mu.Unlock()

	token, err = g.platform.PushToken(ctx)
	if err != nil || token == "" {
		g.logger.Warn("push token unavailable, using placeholder", zap.Error(err))
		token = g.placeholder()
	}
	return g.remember(token), true
}

// ScheduleNotification returns the scheduled id, or "" when nothing was scheduled.
func (g *Gateway) ScheduleNotification(ctx context.Context, title, body string, data map[string]string) string {
	if !g.Enabled() {
		g.logger.Debug("notifications disabled, skipping schedule", zap.String("title", title))
		return ""
	}
	if g.platform == nil {
		return ""
	}

	payload := make(map[string]string, len(data))
	for k, v := range data {
		payload[k] = v
	}

	id, err := g.platform.Schedule(ctx, ScheduleRequest{
		Title: title,
		Body:  body,
		Data:  payload,
		Delay: g.cfg.Delay,
	})
	if err != nil {
		g.logger.Warn("schedule notification failed", zap.String("title", title), zap.Error(err))
		return ""
	}
	g.logger.Debug("notification scheduled", zap.String("notification_id", id))
	return id
}

func (g *Gateway) SendTestNotification(ctx context.Context) string {
	return g.ScheduleNotification(ctx,
		"Task Tracker",
		"This is a test notification from Task Tracker!",
		map[string]string{domain.NotificationDataType: domain.NotificationTypeTest},
	)
}

func (g *Gateway) SendTaskReminder(ctx context.Context, taskTitle, taskID string) string {
	return g.ScheduleNotification(ctx,
		"Task Reminder",
		fmt.Sprintf("Don't forget: %s", taskTitle),
		map[string]string{
			domain.NotificationDataType:   domain.NotificationTypeTaskReminder,
			domain.NotificationDataTaskID: taskID,
		},
	)
}

// AddReceivedListener calls fn for each notification delivered while the app runs.
func (g *Gateway) AddReceivedListener(fn func(domain.Notification)) *Subscription {
	if g.platform == nil || fn == nil {
		return newSubscription(nil)
	}
	return newSubscription(g.platform.OnReceived(fn))
}

// AddResponseListener calls fn each time the user interacts with a notification.
func (g *Gateway) AddResponseListener(fn func(domain.NotificationResponse)) *Subscription {
	if g.platform == nil || fn == nil {
		return newSubscription(nil)
	}
	return newSubscription(g.platform.OnResponse(fn))
}

func (g *Gateway) Enabled() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return !g.disabled
}

// Token returns the last registered delivery token.
func (g *Gateway) Token() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token
}

func (g *Gateway) placeholder() string {
	return fmt.Sprintf("%s%d", placeholderTokenPrefix, g.cfg.Now().UnixMilli())
}

func (g *Gateway) remember(token string) string {
	g.mu.Lock()
	g.token = token
	g.mu.Unlock()
	return token
}

// Subscription releases a listener. Remove may be called any number of times.
type Subscription struct {
	once   sync.Once
	remove func()
}

func newSubscription(remove func()) *Subscription {
	return &Subscription{remove: remove}
}

func (s *Subscription) Remove() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.remove != nil {
			s.remove()
		}
	})
}
