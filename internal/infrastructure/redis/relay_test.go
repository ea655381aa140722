package redis

import (
	"context"
	"testing"
	"time"

	goRedis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/tasktracker/domain"
	"github.com/fastygo/tasktracker/internal/config"
)

// Requires Redis running on localhost:6379.
const testRedisAddr = "localhost:6379"

func setupTestRelay(t *testing.T) (*Relay, *goRedis.Client) {
	t.Helper()

	client := goRedis.NewClient(&goRedis.Options{Addr: testRedisAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	relay := NewRelay(client, "tasktracker-test:"+t.Name(), nil)
	t.Cleanup(func() {
		_ = relay.Close()
		_ = client.Close()
	})
	return relay, client
}

func TestDial_RejectsMalformedURL(t *testing.T) {
	_, err := Dial(context.Background(), config.RedisConfig{URL: "not-a-redis-url"}, nil)
	assert.Error(t, err)
}

func TestDial_UnreachableServer(t *testing.T) {
	_, err := Dial(context.Background(), config.RedisConfig{URL: "redis://127.0.0.1:1"}, nil)
	assert.Error(t, err)
}

func TestDial_OwnsClient(t *testing.T) {
	relay, err := Dial(context.Background(), config.RedisConfig{URL: "redis://" + testRedisAddr}, nil)
	if err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}
	assert.Equal(t, defaultChannelPrefix+":delivered", relay.DeliveredChannel())
	require.NoError(t, relay.Ping(context.Background()))

	require.NoError(t, relay.Close())
	assert.Error(t, relay.Ping(context.Background()))
	assert.NoError(t, relay.Close())
}

func TestRelay_ResponsesReachHandler(t *testing.T) {
	relay, _ := setupTestRelay(t)
	ctx := context.Background()

	got := make(chan domain.NotificationResponse, 1)
	require.NoError(t, relay.Subscribe(ctx, func(resp domain.NotificationResponse) { got <- resp }))

	sent := domain.NotificationResponse{
		Notification: domain.Notification{ID: "n1", Data: map[string]string{"taskId": "task-1"}},
		Action:       "default",
	}
	require.NoError(t, relay.PublishResponse(ctx, sent))

	select {
	case resp := <-got:
		assert.Equal(t, "n1", resp.Notification.ID)
		assert.Equal(t, "default", resp.Action)
	case <-time.After(3 * time.Second):
		t.Fatal("response not relayed")
	}
}

func TestRelay_PublishDelivered(t *testing.T) {
	relay, client := setupTestRelay(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, relay.DeliveredChannel())
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, relay.PublishDelivered(ctx, domain.Notification{ID: "n2", Title: "Task Tracker"}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Contains(t, msg.Payload, `"id":"n2"`)
}

func TestRelay_CloseWithoutSubscribe(t *testing.T) {
	client := goRedis.NewClient(&goRedis.Options{Addr: testRedisAddr})
	defer client.Close()

	relay := NewRelay(client, "", nil)
	assert.NoError(t, relay.Close())
	assert.Equal(t, "tasktracker:notifications:delivered", relay.DeliveredChannel())
}
