package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Pinger is anything that can report its own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// QueueChecker reports the notification queue health and backlog.
type QueueChecker interface {
	Ping() error
	Size() (int, error)
}

type Monitor struct {
	store Pinger
	queue QueueChecker
	relay Pinger

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

// New builds a monitor. queue and relay may be nil when those components are disabled.
func New(store Pinger, queue QueueChecker, relay Pinger, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		store:    store,
		queue:    queue,
		relay:    relay,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// IsHealthy reports whether the task store answered the last check.
func (m *Monitor) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Store
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Refresh checks every component now.
func (m *Monitor) Refresh() Status {
	queueOK, queueSize := m.checkQueue()
	status := Status{
		Store:     m.checkStore(),
		Queue:     queueOK,
		QueueSize: queueSize,
		Relay:     m.checkRelay(),
		LastCheck: time.Now(),
	}

	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
	return status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Refresh()
	for {
		select {
		case <-ticker.C:
			m.Refresh()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) checkStore() bool {
	if m.store == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := m.store.Ping(ctx); err != nil {
		m.logger.Warn("task store check failed", zap.Error(err))
		return false
	}
	return true
}

func (m *Monitor) checkRelay() *bool {
	if m.relay == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ok := m.relay.Ping(ctx) == nil
	return &ok
}

func (m *Monitor) checkQueue() (bool, int) {
	if m.queue == nil {
		return false, 0
	}
	if err := m.queue.Ping(); err != nil {
		m.logger.Warn("notification queue check failed", zap.Error(err))
		return false, 0
	}
	size, err := m.queue.Size()
	if err != nil {
		m.logger.Warn("queue size check failed", zap.Error(err))
		return false, size
	}
	return true, size
}
