package main

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fastygo/tasktracker/internal/bootstrap"
	"github.com/fastygo/tasktracker/internal/config"
	"github.com/fastygo/tasktracker/internal/state"
	"github.com/fastygo/tasktracker/pkg/logger"
	"github.com/fastygo/tasktracker/repository"
	taskUC "github.com/fastygo/tasktracker/usecase/task"
)

// cli holds the per-invocation wiring. Every command opens the store, runs
// one operation and closes it again.
type cli struct {
	driver   string
	path     string
	logLevel string
	jsonOut  bool

	logger *zap.Logger
	store  repository.TaskStore
	uc     *taskUC.UseCase
	ctx    context.Context
}

// run executes one taskctl invocation and always releases the store.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c := &cli{}
	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if closeErr := c.close(); err == nil {
		err = closeErr
	}
	return err
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "taskctl",
		Short:         "Manage the local task list",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.open(cmd)
		},
	}

	root.PersistentFlags().StringVar(&c.driver, "store-driver", "", "task store driver (sqlite, bolt); overrides STORE_DRIVER")
	root.PersistentFlags().StringVar(&c.path, "store-path", "", "task store file; overrides STORE_PATH")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level written to stderr")
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "output as JSON")

	root.AddCommand(
		listCmd(c),
		showCmd(c),
		addCmd(c),
		updateCmd(c),
		toggleCmd(c),
		removeCmd(c),
		searchCmd(c),
	)
	return root
}

func (c *cli) open(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.driver != "" {
		cfg.Store.Driver = c.driver
	}
	if c.path != "" {
		cfg.Store.Path = c.path
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.logger, err = logger.New(logger.Config{Level: c.logLevel, Encoding: "console", Output: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}

	c.ctx = logger.ContextWithOperationID(cmd.Context(), uuid.NewString())
	c.store, err = bootstrap.OpenStore(c.ctx, cfg.Store, c.logger)
	if err != nil {
		return err
	}
	c.uc = taskUC.New(c.store, state.NewCache(), nil, logger.WithRequestID(c.ctx, c.logger))
	return nil
}

func (c *cli) close() error {
	if c.logger != nil {
		_ = c.logger.Sync()
	}
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}
