package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdown_RunsHooksInReverseOrderOnce(t *testing.T) {
	m := New(context.Background(), time.Second, nil)

	var order []string
	m.Register("store", func(context.Context) error { order = append(order, "store"); return nil })
	m.Register("queue", func(context.Context) error { order = append(order, "queue"); return nil })
	m.Register("http", func(context.Context) error { order = append(order, "http"); return nil })
	m.Register("ignored", nil)

	require.NoError(t, m.Shutdown(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))

	assert.Equal(t, []string{"http", "queue", "store"}, order)
	assert.Error(t, m.Context().Err())
}

func TestShutdown_JoinsHookErrorsAndContinues(t *testing.T) {
	m := New(context.Background(), time.Second, nil)
	boom := errors.New("boom")

	closed := false
	m.Register("store", func(context.Context) error { closed = true; return nil })
	m.Register("relay", func(context.Context) error { return boom })

	err := m.Shutdown(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.True(t, closed)
}

func TestShutdown_HooksSeeDeadline(t *testing.T) {
	m := New(context.Background(), 50*time.Millisecond, nil)
	m.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := m.Shutdown(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWait_RunnerFailureStopsProcess(t *testing.T) {
	m := New(context.Background(), time.Second, nil)
	boom := errors.New("listen failed")

	stopped := make(chan struct{})
	m.Go("server", func(context.Context) error { return boom })
	m.Go("processor", func(ctx context.Context) error {
		<-ctx.Done()
		close(stopped)
		return ctx.Err()
	})

	err := m.Wait()
	assert.ErrorIs(t, err, boom)
	<-stopped
}

func TestWait_StopIsClean(t *testing.T) {
	m := New(context.Background(), time.Second, nil)
	hooked := false
	m.Register("store", func(context.Context) error { hooked = true; return nil })
	m.Go("idle", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	m.Stop()
	assert.NoError(t, m.Wait())
	assert.True(t, hooked)
}
