package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/tasktracker/domain"
	"github.com/fastygo/tasktracker/internal/infrastructure/notifier"
)

// Relay is the remote side of notification delivery.
type Relay interface {
	notifier.Publisher
	Subscribe(ctx context.Context, handler func(domain.NotificationResponse)) error
	Close() error
}

// ResponseHandler receives responses coming back from the relay.
type ResponseHandler interface {
	SetPublisher(pub notifier.Publisher)
	HandleResponse(resp domain.NotificationResponse)
}

// RelayBridge connects the local platform with the relay in both directions.
type RelayBridge struct {
	relay    Relay
	platform ResponseHandler
	logger   *zap.Logger
}

func NewRelayBridge(relay Relay, platform ResponseHandler, logger *zap.Logger) *RelayBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelayBridge{relay: relay, platform: platform, logger: logger.Named("relay_bridge")}
}

// Start attaches the relay. A subscription failure is logged and leaves publishing in place.
func (b *RelayBridge) Start(ctx context.Context) {
	if b == nil || b.relay == nil || b.platform == nil {
		return
	}
	b.platform.SetPublisher(b.relay)
	if err := b.relay.Subscribe(ctx, b.platform.HandleResponse); err != nil {
		b.logger.Warn("relay subscription failed", zap.Error(err))
	}
}

func (b *RelayBridge) Stop(context.Context) error {
	if b == nil || b.relay == nil {
		return nil
	}
	if b.platform != nil {
		b.platform.SetPublisher(nil)
	}
	return b.relay.Close()
}
