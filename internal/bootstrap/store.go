// Package bootstrap builds the components shared by the server and the CLI from configuration.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fastygo/tasktracker/internal/config"
	"github.com/fastygo/tasktracker/repository"
	boltRepo "github.com/fastygo/tasktracker/repository/bolt"
	"github.com/fastygo/tasktracker/repository/sqlite"
)

// OpenStore builds the configured task store and initialises it.
func OpenStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (repository.TaskStore, error) {
	var store repository.TaskStore
	switch cfg.Driver {
	case config.DriverSQLite:
		store = sqlite.NewTaskStore(sqlite.Config{Path: cfg.Path, BusyTimeout: cfg.BusyTimeout}, repository.Options{}, logger)
	case config.DriverBolt:
		store = boltRepo.NewTaskStore(boltRepo.Config{Path: cfg.Path, OpenTimeout: cfg.BusyTimeout}, repository.Options{}, logger)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}

	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
