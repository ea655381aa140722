// Package notifier implements the local notification platform on top of a bolt-backed queue.
package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/tasktracker/domain"
	"github.com/fastygo/tasktracker/internal/notification"
)

// Publisher forwards delivered notifications off-process, e.g. to the push relay.
type Publisher interface {
	PublishDelivered(ctx context.Context, n domain.Notification) error
}

// Config describes the simulated device capabilities.
type Config struct {
	Device         bool
	Permission     notification.PermissionStatus
	GrantOnRequest bool
}

// Platform is a notification.Platform that schedules into a Queue and fans
// delivered notifications out to registered listeners.
type Platform struct {
	queue  *Queue
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu        sync.RWMutex
	status    notification.PermissionStatus
	channels  map[string]notification.Channel
	received  map[uint64]func(domain.Notification)
	responses map[uint64]func(domain.NotificationResponse)
	nextID    uint64
	publisher Publisher
}

var _ notification.Platform = (*Platform)(nil)

func NewPlatform(queue *Queue, cfg Config, logger *zap.Logger) *Platform {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Permission == "" {
		cfg.Permission = notification.PermissionUndetermined
	}
	return &Platform{
		queue:     queue,
		cfg:       cfg,
		logger:    logger.Named("notifier"),
		now:       time.Now,
		status:    cfg.Permission,
		channels:  make(map[string]notification.Channel),
		received:  make(map[uint64]func(domain.Notification)),
		responses: make(map[uint64]func(domain.NotificationResponse)),
	}
}

// SetPublisher attaches an optional relay for delivered notifications.
func (p *Platform) SetPublisher(pub Publisher) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.publisher = pub
}

func (p *Platform) IsDevice() bool {
	return p.cfg.Device
}

func (p *Platform) PermissionStatus(context.Context) (notification.PermissionStatus, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status, nil
}

func (p *Platform) RequestPermission(context.Context) (notification.PermissionStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == notification.PermissionUndetermined {
		if p.cfg.GrantOnRequest {
			p.status = notification.PermissionGranted
		} else {
			p.status = notification.PermissionDenied
		}
	}
	return p.status, nil
}

func (p *Platform) SetChannel(_ context.Context, channel notification.Channel) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels[channel.ID] = channel
	return nil
}

// PushToken returns the installation token, creating and persisting it on first use.
func (p *Platform) PushToken(context.Context) (string, error) {
	token, err := p.queue.Token()
	if err != nil {
		return "", err
	}
	if token != "" {
		return token, nil
	}
	token = "local-" + uuid.NewString()
	if err := p.queue.SetToken(token); err != nil {
		return "", err
	}
	return token, nil
}

func (p *Platform) Schedule(_ context.Context, req notification.ScheduleRequest) (string, error) {
	now := p.now().UTC()
	n := domain.Notification{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Body:      req.Body,
		Data:      req.Data,
		DeliverAt: now.Add(req.Delay),
		CreatedAt: now,
	}
	if err := p.queue.Enqueue(n); err != nil {
		return "", err
	}
	p.logger.Debug("notification queued", zap.String("notification_id", n.ID), zap.Time("deliver_at", n.DeliverAt))
	return n.ID, nil
}

func (p *Platform) OnReceived(fn func(domain.Notification)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := p.nextID
	p.received[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.received, id)
	}
}

func (p *Platform) OnResponse(fn func(domain.NotificationResponse)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := p.nextID
	p.responses[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.responses, id)
	}
}

// Deliver marks n delivered and notifies received listeners and the publisher.
func (p *Platform) Deliver(ctx context.Context, n domain.Notification) error {
	if err := p.queue.MarkDelivered(n); err != nil {
		return err
	}

	p.mu.RLock()
	listeners := make([]func(domain.Notification), 0, len(p.received))
	for _, fn := range p.received {
		listeners = append(listeners, fn)
	}
	pub := p.publisher
	p.mu.RUnlock()

	for _, fn := range listeners {
		fn(n)
	}
	if pub != nil {
		if err := pub.PublishDelivered(ctx, n); err != nil {
			p.logger.Warn("relay publish failed", zap.String("notification_id", n.ID), zap.Error(err))
		}
	}
	return nil
}

// Respond records a user interaction with a delivered notification.
func (p *Platform) Respond(_ context.Context, id, action string) (domain.NotificationResponse, error) {
	n, ok, err := p.queue.Delivered(id)
	if err != nil {
		return domain.NotificationResponse{}, err
	}
	if !ok {
		return domain.NotificationResponse{}, domain.NewError(domain.ErrCodeNotFound, "notification not found")
	}
	if action == "" {
		action = domain.DefaultNotificationAction
	}
	resp := domain.NotificationResponse{
		Notification: n,
		Action:       action,
		RespondedAt:  p.now().UTC(),
	}
	p.HandleResponse(resp)
	return resp, nil
}

// HandleResponse fans a response out to listeners. The relay feeds remote responses here.
func (p *Platform) HandleResponse(resp domain.NotificationResponse) {
	p.mu.RLock()
	listeners := make([]func(domain.NotificationResponse), 0, len(p.responses))
	for _, fn := range p.responses {
		listeners = append(listeners, fn)
	}
	p.mu.RUnlock()

	for _, fn := range listeners {
		fn(resp)
	}
}

// Pending returns the number of queued notifications.
func (p *Platform) Pending() int {
	size, err := p.queue.Size()
	if err != nil {
		return 0
	}
	return size
}
