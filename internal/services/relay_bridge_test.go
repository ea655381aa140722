package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fastygo/tasktracker/domain"
	"github.com/fastygo/tasktracker/internal/infrastructure/notifier"
)

type fakeRelay struct {
	subscribeErr error
	handler      func(domain.NotificationResponse)
	closed       bool
}

func (r *fakeRelay) PublishDelivered(context.Context, domain.Notification) error { return nil }

func (r *fakeRelay) Subscribe(_ context.Context, handler func(domain.NotificationResponse)) error {
	if r.subscribeErr != nil {
		return r.subscribeErr
	}
	r.handler = handler
	return nil
}

func (r *fakeRelay) Close() error {
	r.closed = true
	return nil
}

type fakeHandler struct {
	publisher notifier.Publisher
	responses []domain.NotificationResponse
}

func (h *fakeHandler) SetPublisher(pub notifier.Publisher) { h.publisher = pub }

func (h *fakeHandler) HandleResponse(resp domain.NotificationResponse) {
	h.responses = append(h.responses, resp)
}

func TestRelayBridge_WiresBothDirections(t *testing.T) {
	relay := &fakeRelay{}
	handler := &fakeHandler{}
	bridge := NewRelayBridge(relay, handler, nil)

	bridge.Start(context.Background())
	assert.Equal(t, relay, handler.publisher)

	relay.handler(domain.NotificationResponse{Action: "default"})
	assert.Len(t, handler.responses, 1)

	assert.NoError(t, bridge.Stop(context.Background()))
	assert.True(t, relay.closed)
	assert.Nil(t, handler.publisher)
}

func TestRelayBridge_SubscribeFailureKeepsPublishing(t *testing.T) {
	relay := &fakeRelay{subscribeErr: errors.New("connection refused")}
	handler := &fakeHandler{}

	NewRelayBridge(relay, handler, nil).Start(context.Background())

	assert.Equal(t, relay, handler.publisher)
	assert.Nil(t, relay.handler)
}
