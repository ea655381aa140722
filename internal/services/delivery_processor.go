package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/tasktracker/domain"
	"github.com/fastygo/tasktracker/internal/infrastructure/notifier"
)

// Deliverer hands a due notification to the platform listeners.
type Deliverer interface {
	Deliver(ctx context.Context, n domain.Notification) error
}

// ProcessorConfig controls how frequently the notification queue is drained.
type ProcessorConfig struct {
	Interval  time.Duration
	BatchSize int
	Retention time.Duration
}

// DeliveryProcessor moves due notifications out of the queue on a cron schedule.
type DeliveryProcessor struct {
	queue     *notifier.Queue
	deliverer Deliverer
	logger    *zap.Logger
	cron      *cron.Cron
	cfg       ProcessorConfig
	now       func() time.Time
}

func NewDeliveryProcessor(
	queue *notifier.Queue,
	deliverer Deliverer,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *DeliveryProcessor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dp := &DeliveryProcessor{
		queue:     queue,
		deliverer: deliverer,
		logger:    logger.Named("delivery_processor"),
		cfg:       cfg,
		cron:      cron.New(cron.WithSeconds()),
		now:       time.Now,
	}

	schedule := fmt.Sprintf("@every %s", cfg.Interval)
	if _, err := dp.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if _, err := dp.Drain(ctx); err != nil {
			dp.logger.Error("notification drain failed", zap.Error(err))
		}
	}); err != nil {
		dp.logger.Error("invalid delivery schedule", zap.String("schedule", schedule), zap.Error(err))
	}

	return dp
}

// Start launches the cron scheduler.
func (dp *DeliveryProcessor) Start() {
	if dp == nil || dp.cron == nil {
		return
	}
	dp.cron.Start()
	dp.logger.Info("delivery processor started", zap.Duration("interval", dp.cfg.Interval))
}

// Stop waits for a running drain to finish or ctx to expire.
func (dp *DeliveryProcessor) Stop(ctx context.Context) {
	if dp == nil || dp.cron == nil {
		return
	}
	stopCtx := dp.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	dp.logger.Info("delivery processor stopped")
}

// Drain delivers every due notification and returns how many were delivered.
// A notification whose delivery fails stays queued for the next run.
func (dp *DeliveryProcessor) Drain(ctx context.Context) (int, error) {
	if dp == nil || dp.queue == nil || dp.deliverer == nil {
		return 0, nil
	}

	now := dp.now()
	due, err := dp.queue.Due(now, dp.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, n := range due {
		if err := dp.deliverer.Deliver(ctx, n); err != nil {
			dp.logger.Error("failed to deliver notification",
				zap.String("notification_id", n.ID),
				zap.Error(err))
			continue
		}
		delivered++
	}

	if err := dp.queue.Cleanup(now.Add(-dp.cfg.Retention)); err != nil {
		dp.logger.Warn("delivered notification cleanup failed", zap.Error(err))
	}
	if delivered > 0 {
		dp.logger.Debug("notifications delivered", zap.Int("count", delivered))
	}
	return delivered, nil
}

// Size returns the number of queued notifications.
func (dp *DeliveryProcessor) Size() int {
	if dp == nil || dp.queue == nil {
		return 0
	}
	size, err := dp.queue.Size()
	if err != nil {
		return 0
	}
	return size
}
