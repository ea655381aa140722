package main

import (
	"context"
	"log"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/tasktracker/api/handler"
	"github.com/fastygo/tasktracker/internal/bootstrap"
	"github.com/fastygo/tasktracker/internal/config"
	"github.com/fastygo/tasktracker/internal/infrastructure/monitor"
	"github.com/fastygo/tasktracker/internal/infrastructure/notifier"
	redisInfra "github.com/fastygo/tasktracker/internal/infrastructure/redis"
	"github.com/fastygo/tasktracker/internal/notification"
	"github.com/fastygo/tasktracker/internal/router"
	"github.com/fastygo/tasktracker/internal/services"
	"github.com/fastygo/tasktracker/internal/services/lifecycle"
	"github.com/fastygo/tasktracker/internal/state"
	"github.com/fastygo/tasktracker/pkg/httpcontext"
	"github.com/fastygo/tasktracker/pkg/logger"
	"github.com/fastygo/tasktracker/usecase"
	taskUC "github.com/fastygo/tasktracker/usecase/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	manager := lifecycle.New(context.Background(), cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen()
	appCtx := manager.Context()

	store, err := bootstrap.OpenStore(appCtx, cfg.Store, zapLogger)
	if err != nil {
		zapLogger.Fatal("task store unavailable", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	manager.Register("task_store", func(ctx context.Context) error {
		return store.Close()
	})

	var (
		reminder     usecase.Reminder
		gateway      *notification.Gateway
		platform     *notifier.Platform
		queueChecker monitor.QueueChecker
		relayPinger  monitor.Pinger
	)

	if cfg.Notify.Enabled {
		queue, err := notifier.OpenQueue(cfg.Notify.QueuePath)
		if err != nil {
			zapLogger.Fatal("failed to open notification queue", zap.Error(err))
		}
		manager.Register("notification_queue", func(ctx context.Context) error {
			return queue.Close()
		})
		queueChecker = queue

		platform = notifier.NewPlatform(queue, notifier.Config{
			Device:         cfg.Notify.Device,
			Permission:     notification.PermissionStatus(cfg.Notify.Permission),
			GrantOnRequest: cfg.Notify.GrantOnRequest,
		}, zapLogger)

		if cfg.Notify.RelayEnabled {
			relay, err := redisInfra.Dial(appCtx, cfg.Redis, zapLogger)
			if err != nil {
				zapLogger.Warn("push relay disabled", zap.Error(err))
			} else {
				bridge := services.NewRelayBridge(relay, platform, zapLogger)
				bridge.Start(appCtx)
				manager.Register("push_relay", bridge.Stop)
				relayPinger = relay
			}
		}

		processor := services.NewDeliveryProcessor(queue, platform, zapLogger, services.ProcessorConfig{
			Interval:  cfg.Notify.Interval,
			Retention: cfg.Notify.Retention,
		})
		processor.Start()
		manager.Register("delivery_processor", func(ctx context.Context) error {
			processor.Stop(ctx)
			return nil
		})

		gateway = notification.NewGateway(platform, notification.Config{Delay: cfg.Notify.Delay}, zapLogger)
		reminder = gateway
	}

	mon := monitor.New(store, queueChecker, relayPinger, 0, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	taskUseCase := taskUC.New(store, state.NewCache(), reminder, zapLogger)
	if _, err := taskUseCase.Load(appCtx); err != nil {
		zapLogger.Warn("initial task load failed", zap.Error(err))
	}

	ctxAdapter := httpcontext.NewAdapter(appCtx, cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Task:   apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}
	if gateway != nil {
		if token, ok := gateway.RegisterForNotifications(appCtx); ok {
			zapLogger.Info("notifications registered", zap.String("token", token))
		}
		inbox := notification.NewInbox(gateway, 0)
		manager.Register("notification_inbox", func(ctx context.Context) error {
			inbox.Close()
			return nil
		})
		handlers.Notification = apiHandler.NewNotificationHandler(gateway, inbox, platform, ctxAdapter, zapLogger)
	}

	r := router.New(handlers)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	manager.Go("http_server", func(ctx context.Context) error {
		zapLogger.Info("server started", zap.String("address", cfg.Address()), zap.String("store", cfg.Store.Driver))
		return server.ListenAndServe(cfg.Address())
	})
	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	if err := manager.Wait(); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
