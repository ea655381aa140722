package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/fastygo/tasktracker/domain"
	"github.com/fastygo/tasktracker/repository"
)

const (
	taskColumns = `id, title, description, completed, createdAt, updatedAt`

	selectAllQuery = `SELECT ` + taskColumns + ` FROM tasks ORDER BY updatedAt DESC, id DESC`

	selectByIDQuery = `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`

	searchQuery = `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\'
	ORDER BY updatedAt DESC, id DESC
	`

	insertQuery = `
	INSERT INTO tasks (id, title, description, completed, createdAt, updatedAt)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	updateQuery = `
	UPDATE tasks
	SET title = ?,
		description = ?,
		completed = ?,
		updatedAt = ?
	WHERE id = ?
	`

	deleteQuery = `DELETE FROM tasks WHERE id = ?`
)

// Config describes where the task database lives.
type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// TaskStore persists tasks in a single SQLite file.
type TaskStore struct {
	cfg    Config
	opts   repository.Options
	logger *zap.Logger

	mu sync.RWMutex
	db *sqlx.DB
}

type taskRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Description sql.NullString `db:"description"`
	Completed   int            `db:"completed"`
	CreatedAt   string         `db:"createdAt"`
	UpdatedAt   string         `db:"updatedAt"`
}

var _ repository.TaskStore = (*TaskStore)(nil)

// NewTaskStore returns an uninitialised store. Call Init before use.
func NewTaskStore(cfg Config, opts repository.Options, logger *zap.Logger) *TaskStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	return &TaskStore{
		cfg:    cfg,
		opts:   opts.WithDefaults(),
		logger: logger.Named("sqlite_store"),
	}
}

func (s *TaskStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	if s.cfg.Path == "" {
		return domain.WrapError(domain.ErrCodeStorageUnavailable, "task storage unavailable", errors.New("empty database path"))
	}
	if err := os.MkdirAll(filepath.Dir(s.cfg.Path), 0o755); err != nil {
		return domain.WrapError(domain.ErrCodeStorageUnavailable, "task storage unavailable", err)
	}

	db, err := sqlx.Open("sqlite3", dsn(s.cfg))
	if err != nil {
		return domain.WrapError(domain.ErrCodeStorageUnavailable, "task storage unavailable", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return domain.WrapError(domain.ErrCodeStorageUnavailable, "task storage unavailable", err)
	}

	if err := migrateSchema(db.DB); err != nil {
		_ = db.Close()
		return domain.WrapError(domain.ErrCodeStorageUnavailable, "failed to apply task schema", err)
	}

	s.db = db
	s.logger.Info("task store ready", zap.String("path", s.cfg.Path))
	return nil
}

func (s *TaskStore) Create(ctx context.Context, input domain.CreateTaskInput) (*domain.Task, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	now, err := canonical(s.opts.Now())
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to stamp task", err)
	}
	task := domain.Task{
		ID:          s.opts.NewID(),
		Title:       input.Title,
		Description: domain.CloneString(input.Description),
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := db.ExecContext(ctx, insertQuery,
		task.ID,
		task.Title,
		nullString(task.Description),
		encodeBool(task.Completed),
		domain.FormatTimestamp(task.CreatedAt),
		domain.FormatTimestamp(task.UpdatedAt),
	); err != nil {
		s.logger.Error("insert task failed", zap.Error(err))
		return nil, domain.WrapError(domain.ErrCodeWriteFailed, "failed to create task", err)
	}

	s.logger.Debug("task created", zap.String("task_id", task.ID))
	return &task, nil
}

func (s *TaskStore) GetAll(ctx context.Context) ([]domain.Task, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	var rows []taskRow
	if err := db.SelectContext(ctx, &rows, selectAllQuery); err != nil {
		s.logger.Error("select tasks failed", zap.Error(err))
		return nil, domain.WrapError(domain.ErrCodeReadFailed, "failed to load tasks", err)
	}
	return mapRows(rows)
}

func (s *TaskStore) GetByID(ctx context.Context, id string) (*domain.Task, bool, error) {
	db, err := s.handle()
	if err != nil {
		return nil, false, err
	}

	var row taskRow
	if err := db.GetContext(ctx, &row, selectByIDQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		s.logger.Error("select task failed", zap.String("task_id", id), zap.Error(err))
		return nil, false, domain.WrapError(domain.ErrCodeReadFailed, "failed to load task", err)
	}

	task, err := row.toDomain()
	if err != nil {
		return nil, false, err
	}
	return task, true, nil
}

// Update merges the supplied fields onto the stored row inside one transaction.
func (s *TaskStore) Update(ctx context.Context, input domain.UpdateTaskInput) (*domain.Task, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeWriteFailed, "failed to update task", err)
	}
	defer func() { _ = tx.Rollback() }()

	var row taskRow
	if err := tx.GetContext(ctx, &row, selectByIDQuery, input.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, domain.WrapError(domain.ErrCodeReadFailed, "failed to load task", err)
	}

	task, err := row.toDomain()
	if err != nil {
		return nil, err
	}

	input.Apply(task)
	updatedAt, err := canonical(domain.NextUpdatedAt(task.UpdatedAt, s.opts.Now()))
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to stamp task", err)
	}
	task.UpdatedAt = updatedAt

	res, err := tx.ExecContext(ctx, updateQuery,
		task.Title,
		nullString(task.Description),
		encodeBool(task.Completed),
		domain.FormatTimestamp(task.UpdatedAt),
		task.ID,
	)
	if err != nil {
		s.logger.Error("update task failed", zap.String("task_id", task.ID), zap.Error(err))
		return nil, domain.WrapError(domain.ErrCodeWriteFailed, "failed to update task", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, domain.ErrTaskNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.WrapError(domain.ErrCodeWriteFailed, "failed to update task", err)
	}

	s.logger.Debug("task updated", zap.String("task_id", task.ID))
	return task, nil
}

func (s *TaskStore) Delete(ctx context.Context, id string) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, deleteQuery, id)
	if err != nil {
		s.logger.Error("delete task failed", zap.String("task_id", id), zap.Error(err))
		return domain.WrapError(domain.ErrCodeWriteFailed, "failed to delete task", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.WrapError(domain.ErrCodeWriteFailed, "failed to delete task", err)
	}
	if n == 0 {
		return domain.ErrTaskNotFound
	}

	s.logger.Debug("task deleted", zap.String("task_id", id))
	return nil
}

// Search relies on LIKE, which folds case for ASCII letters only.
func (s *TaskStore) Search(ctx context.Context, query string) ([]domain.Task, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	pattern := "%" + escapeLike(query) + "%"
	var rows []taskRow
	if err := db.SelectContext(ctx, &rows, searchQuery, pattern, pattern); err != nil {
		s.logger.Error("search tasks failed", zap.String("query", query), zap.Error(err))
		return nil, domain.WrapError(domain.ErrCodeReadFailed, "failed to search tasks", err)
	}
	return mapRows(rows)
}

func (s *TaskStore) Ping(ctx context.Context) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		return domain.WrapError(domain.ErrCodeStorageUnavailable, "task storage unavailable", err)
	}
	return nil
}

func (s *TaskStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.logger.Info("task store closed")
	return err
}

func (s *TaskStore) handle() (*sqlx.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, domain.ErrNotInitialized
	}
	return s.db, nil
}

func (r taskRow) toDomain() (*domain.Task, error) {
	createdAt, err := domain.ParseTimestamp(r.CreatedAt)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeReadFailed, "corrupt task timestamp", err)
	}
	updatedAt, err := domain.ParseTimestamp(r.UpdatedAt)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeReadFailed, "corrupt task timestamp", err)
	}

	task := domain.Task{
		ID:        r.ID,
		Title:     r.Title,
		Completed: r.Completed != 0,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
	if r.Description.Valid {
		value := r.Description.String
		task.Description = &value
	}
	return &task, nil
}

func mapRows(rows []taskRow) ([]domain.Task, error) {
	tasks := make([]domain.Task, 0, len(rows))
	for _, row := range rows {
		task, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, nil
}

func dsn(cfg Config) string {
	return fmt.Sprintf(
		"file:%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=1",
		filepath.ToSlash(cfg.Path),
		cfg.BusyTimeout.Milliseconds(),
	)
}

// canonical returns t exactly as it reads back after being persisted.
func canonical(t time.Time) (time.Time, error) {
	return domain.ParseTimestamp(domain.FormatTimestamp(t))
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func encodeBool(b bool) int {
	if b {
		return 1
	}
	return 0
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(query string) string {
	return likeEscaper.Replace(query)
}
