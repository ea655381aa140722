package notification

import (
	"sync"

	"github.com/fastygo/tasktracker/domain"
)

const defaultInboxLimit = 50

// Inbox keeps the most recent received notifications and responses for display.
type Inbox struct {
	mu        sync.RWMutex
	limit     int
	received  []domain.Notification
	responses []domain.NotificationResponse
	subs      []*Subscription
}

// NewInbox subscribes to g. Close releases the subscriptions.
func NewInbox(g *Gateway, limit int) *Inbox {
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	in := &Inbox{limit: limit}
	if g != nil {
		in.subs = append(in.subs,
			g.AddReceivedListener(in.addReceived),
			g.AddResponseListener(in.addResponse),
		)
	}
	return in
}

func (in *Inbox) Received() []domain.Notification {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return append([]domain.Notification(nil), in.received...)
}

func (in *Inbox) Responses() []domain.NotificationResponse {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return append([]domain.NotificationResponse(nil), in.responses...)
}

// LastOpenedTask returns the task id carried by the most recent response, if any.
func (in *Inbox) LastOpenedTask() (string, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	for i := len(in.responses) - 1; i >= 0; i-- {
		if id, ok := in.responses[i].Notification.TaskID(); ok {
			return id, true
		}
	}
	return "", false
}

func (in *Inbox) Close() {
	in.mu.Lock()
	subs := in.subs
	in.subs = nil
	in.mu.Unlock()

	for _, s := range subs {
		s.Remove()
	}
}

func (in *Inbox) addReceived(n domain.Notification) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.received = appendBounded(in.received, n, in.limit)
}

func (in *Inbox) addResponse(r domain.NotificationResponse) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.responses = appendBounded(in.responses, r, in.limit)
}

func appendBounded[T any](items []T, item T, limit int) []T {
	items = append(items, item)
	if len(items) > limit {
		items = append(items[:0:0], items[len(items)-limit:]...)
	}
	return items
}
