package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	goRedis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/tasktracker/domain"
	"github.com/fastygo/tasktracker/internal/config"
)

const (
	defaultChannelPrefix = "tasktracker:notifications"
	closeWait            = 2 * time.Second
	dialTimeout          = 5 * time.Second
)

// Relay mirrors delivered notifications to Redis pub/sub and feeds remote
// responses back into the process.
type Relay struct {
	client     *goRedis.Client
	ownsClient bool
	prefix     string
	logger     *zap.Logger

	mu     sync.Mutex
	pubsub *goRedis.PubSub
	done   chan struct{}
}

func NewRelay(client *goRedis.Client, prefix string, logger *zap.Logger) *Relay {
	if prefix == "" {
		prefix = defaultChannelPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		client: client,
		prefix: prefix,
		logger: logger.Named("redis_relay"),
	}
}

// Dial connects to the configured server and returns a relay that owns the
// connection. The server must answer a ping within the dial timeout.
func Dial(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*Relay, error) {
	opts, err := goRedis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	opts.DialTimeout = dialTimeout
	opts.MaxRetries = 1

	client := goRedis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	relay := NewRelay(client, cfg.ChannelPrefix, logger)
	relay.ownsClient = true
	return relay, nil
}

func (r *Relay) DeliveredChannel() string { return r.prefix + ":delivered" }
func (r *Relay) ResponsesChannel() string { return r.prefix + ":responses" }

func (r *Relay) PublishDelivered(ctx context.Context, n domain.Notification) error {
	return r.publish(ctx, r.DeliveredChannel(), n)
}

func (r *Relay) PublishResponse(ctx context.Context, resp domain.NotificationResponse) error {
	return r.publish(ctx, r.ResponsesChannel(), resp)
}

// Subscribe listens for responses until Close. Malformed messages are logged and skipped.
func (r *Relay) Subscribe(ctx context.Context, handler func(domain.NotificationResponse)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pubsub != nil {
		return nil
	}

	ps := r.client.Subscribe(ctx, r.ResponsesChannel())
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return err
	}

	r.pubsub = ps
	r.done = make(chan struct{})
	go r.consume(ps, r.done, handler)
	r.logger.Info("relay subscribed", zap.String("channel", r.ResponsesChannel()))
	return nil
}

func (r *Relay) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close stops the subscription. The client is closed too when Dial created it.
func (r *Relay) Close() error {
	r.mu.Lock()
	ps, done := r.pubsub, r.done
	r.pubsub, r.done = nil, nil
	owns := r.ownsClient
	r.ownsClient = false
	r.mu.Unlock()

	var err error
	if ps != nil {
		err = ps.Close()
		select {
		case <-done:
		case <-time.After(closeWait):
			r.logger.Warn("relay consumer did not stop in time")
		}
	}
	if owns {
		err = errors.Join(err, r.client.Close())
	}
	return err
}

func (r *Relay) consume(ps *goRedis.PubSub, done chan struct{}, handler func(domain.NotificationResponse)) {
	defer close(done)
	for msg := range ps.Channel() {
		var resp domain.NotificationResponse
		if err := json.Unmarshal([]byte(msg.Payload), &resp); err != nil {
			r.logger.Warn("malformed relay response", zap.Error(err))
			continue
		}
		if handler != nil {
			handler(resp)
		}
	}
}

func (r *Relay) publish(ctx context.Context, channel string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channel, payload).Err()
}
