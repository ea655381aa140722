package bolt

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/fastygo/tasktracker/domain"
	"github.com/fastygo/tasktracker/repository"
)

var tasksBucket = []byte("tasks")

// Config describes where the bolt file lives.
type Config struct {
	Path        string
	OpenTimeout time.Duration
}

// TaskStore keeps one JSON record per task in a bbolt bucket keyed by id.
type TaskStore struct {
	cfg    Config
	opts   repository.Options
	logger *zap.Logger

	mu sync.RWMutex
	db *bbolt.DB
}

// record is the persisted layout. Completed is stored as 0/1.
type record struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Completed   int     `json:"completed"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

var _ repository.TaskStore = (*TaskStore)(nil)

func NewTaskStore(cfg Config, opts repository.Options, logger *zap.Logger) *TaskStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = time.Second
	}
	return &TaskStore{
		cfg:    cfg,
		opts:   opts.WithDefaults(),
		logger: logger.Named("bolt_store"),
	}
}

func (s *TaskStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.cfg.Path), 0o755); err != nil {
		return domain.WrapError(domain.ErrCodeStorageUnavailable, "task storage unavailable", err)
	}
	db, err := bbolt.Open(s.cfg.Path, 0o600, &bbolt.Options{Timeout: s.cfg.OpenTimeout})
	if err != nil {
		return domain.WrapError(domain.ErrCodeStorageUnavailable, "task storage unavailable", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(tasksBucket)
		return err
	}); err != nil {
		db.Close()
		return domain.WrapError(domain.ErrCodeStorageUnavailable, "failed to apply task schema", err)
	}

	s.db = db
	s.logger.Info("task store ready", zap.String("path", s.cfg.Path))
	return nil
}

func (s *TaskStore) Create(_ context.Context, input domain.CreateTaskInput) (*domain.Task, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	now := domain.CanonicalTime(s.opts.Now())
	task := domain.Task{
		ID:          s.opts.NewID(),
		Title:       input.Title,
		Description: domain.CloneString(input.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	payload, err := json.Marshal(toRecord(task))
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeWriteFailed, "failed to create task", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(tasksBucket).Put([]byte(task.ID), payload)
	}); err != nil {
		s.logger.Error("put task failed", zap.Error(err))
		return nil, domain.WrapError(domain.ErrCodeWriteFailed, "failed to create task", err)
	}

	s.logger.Debug("task created", zap.String("task_id", task.ID))
	return decodeCanonical(payload)
}

func (s *TaskStore) GetAll(_ context.Context) ([]domain.Task, error) {
	return s.scan(func(domain.Task) bool { return true })
}

func (s *TaskStore) GetByID(_ context.Context, id string) (*domain.Task, bool, error) {
	db, err := s.handle()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	if err := db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(tasksBucket).Get([]byte(id)); v != nil {
			payload = append([]byte(nil), v...)
		}
		return nil
	}); err != nil {
		return nil, false, domain.WrapError(domain.ErrCodeReadFailed, "failed to load task", err)
	}
	if payload == nil {
		return nil, false, nil
	}

	task, err := decodeCanonical(payload)
	if err != nil {
		return nil, false, err
	}
	return task, true, nil
}

// Update runs read-merge-write inside a single bolt write transaction.
func (s *TaskStore) Update(_ context.Context, input domain.UpdateTaskInput) (*domain.Task, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	var payload []byte
	err = db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(tasksBucket)
		current := bucket.Get([]byte(input.ID))
		if current == nil {
			return domain.ErrTaskNotFound
		}
		task, err := decodeCanonical(current)
		if err != nil {
			return err
		}

		input.Apply(task)
		task.UpdatedAt = domain.NextUpdatedAt(task.UpdatedAt, s.opts.Now())

		payload, err = json.Marshal(toRecord(*task))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(task.ID), payload)
	})
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) || domain.IsDomainError(err, domain.ErrCodeReadFailed) {
			return nil, err
		}
		s.logger.Error("update task failed", zap.String("task_id", input.ID), zap.Error(err))
		return nil, domain.WrapError(domain.ErrCodeWriteFailed, "failed to update task", err)
	}

	s.logger.Debug("task updated", zap.String("task_id", input.ID))
	return decodeCanonical(payload)
}

func (s *TaskStore) Delete(_ context.Context, id string) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(tasksBucket)
		if bucket.Get([]byte(id)) == nil {
			return domain.ErrTaskNotFound
		}
		return bucket.Delete([]byte(id))
	})
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return err
		}
		s.logger.Error("delete task failed", zap.String("task_id", id), zap.Error(err))
		return domain.WrapError(domain.ErrCodeWriteFailed, "failed to delete task", err)
	}

	s.logger.Debug("task deleted", zap.String("task_id", id))
	return nil
}

func (s *TaskStore) Search(_ context.Context, query string) ([]domain.Task, error) {
	return s.scan(func(t domain.Task) bool { return t.MatchesText(query) })
}

func (s *TaskStore) Ping(_ context.Context) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	return db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(tasksBucket) == nil {
			return domain.ErrStorageUnavailable
		}
		return nil
	})
}

func (s *TaskStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *TaskStore) scan(keep func(domain.Task) bool) ([]domain.Task, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	tasks := make([]domain.Task, 0)
	err = db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(tasksBucket).ForEach(func(_, v []byte) error {
			task, err := decodeCanonical(v)
			if err != nil {
				return err
			}
			if keep(*task) {
				tasks = append(tasks, *task)
			}
			return nil
		})
	})
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeReadFailed) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrCodeReadFailed, "failed to load tasks", err)
	}

	repository.SortByRecency(tasks)
	return tasks, nil
}

func (s *TaskStore) handle() (*bbolt.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, domain.ErrNotInitialized
	}
	return s.db, nil
}

func toRecord(t domain.Task) record {
	completed := 0
	if t.Completed {
		completed = 1
	}
	return record{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   completed,
		CreatedAt:   domain.FormatTimestamp(t.CreatedAt),
		UpdatedAt:   domain.FormatTimestamp(t.UpdatedAt),
	}
}

// decodeCanonical turns a persisted record into the task every reader observes.
func decodeCanonical(payload []byte) (*domain.Task, error) {
	var rec record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, domain.WrapError(domain.ErrCodeReadFailed, "corrupt task record", err)
	}
	createdAt, err := domain.ParseTimestamp(rec.CreatedAt)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeReadFailed, "corrupt task timestamp", err)
	}
	updatedAt, err := domain.ParseTimestamp(rec.UpdatedAt)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeReadFailed, "corrupt task timestamp", err)
	}
	return &domain.Task{
		ID:          rec.ID,
		Title:       rec.Title,
		Description: rec.Description,
		Completed:   rec.Completed != 0,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}
