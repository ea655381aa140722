package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type fakeQueue struct {
	err  error
	size int
}

func (q fakeQueue) Ping() error        { return q.err }
func (q fakeQueue) Size() (int, error) { return q.size, q.err }

func TestMonitor_Refresh(t *testing.T) {
	healthy := pingFunc(func(context.Context) error { return nil })
	broken := pingFunc(func(context.Context) error { return errors.New("down") })

	m := New(healthy, fakeQueue{size: 3}, broken, time.Minute, nil)
	status := m.Refresh()

	assert.True(t, status.Store)
	assert.True(t, status.Queue)
	assert.Equal(t, 3, status.QueueSize)
	require.NotNil(t, status.Relay)
	assert.False(t, *status.Relay)
	assert.True(t, m.IsHealthy())
	assert.Equal(t, status, m.GetStatus())
}

func TestMonitor_MissingComponents(t *testing.T) {
	m := New(nil, nil, nil, 0, nil)
	status := m.Refresh()

	assert.False(t, status.Store)
	assert.False(t, status.Queue)
	assert.Nil(t, status.Relay)
	assert.False(t, m.IsHealthy())
}

func TestMonitor_LoopRefreshesUntilStopped(t *testing.T) {
	m := New(pingFunc(func(context.Context) error { return nil }), fakeQueue{}, nil, 10*time.Millisecond, nil)
	m.Start()
	defer m.Stop()

	assert.Eventually(t, m.IsHealthy, time.Second, 5*time.Millisecond)
	m.Stop()
}
