package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/fastygo/tasktracker/domain"
	"github.com/fastygo/tasktracker/repository"
	"github.com/fastygo/tasktracker/repository/repositorytest"
)

func TestTaskStoreContract(t *testing.T) {
	suite.Run(t, &repositorytest.StoreSuite{
		FileName: "tasks.db",
		NewStore: func(path string, opts repository.Options) repository.TaskStore {
			return NewTaskStore(Config{Path: path}, opts, nil)
		},
	})
}

func setupTestStore(t *testing.T) (*TaskStore, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tasks.db")
	store := NewTaskStore(Config{Path: path}, repository.Options{}, nil)
	require.NoError(t, store.Init(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestTaskStore_CompletedIsStoredAsInteger(t *testing.T) {
	ctx := context.Background()
	store, path := setupTestStore(t)

	created, err := store.Create(ctx, domain.CreateTaskInput{Title: "Buy milk"})
	require.NoError(t, err)
	_, err = store.Update(ctx, domain.UpdateTaskInput{ID: created.ID, Completed: domain.BoolPtr(true)})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	db, err := sqlx.Open("sqlite3", "file:"+filepath.ToSlash(path))
	require.NoError(t, err)
	defer db.Close()

	var raw struct {
		Completed   int     `db:"completed"`
		TypeOf      string  `db:"kind"`
		CreatedAt   string  `db:"createdAt"`
		Description *string `db:"description"`
	}
	require.NoError(t, db.Get(&raw, `SELECT completed, typeof(completed) AS kind, createdAt, description FROM tasks WHERE id = ?`, created.ID))
	assert.Equal(t, 1, raw.Completed)
	assert.Equal(t, "integer", raw.TypeOf)
	assert.Equal(t, domain.FormatTimestamp(created.CreatedAt), raw.CreatedAt)
	assert.Nil(t, raw.Description)
}

func TestTaskStore_InitFailsWhenPathIsUnusable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0o600))

	store := NewTaskStore(Config{Path: filepath.Join(blocker, "tasks.db")}, repository.Options{}, nil)
	err := store.Init(context.Background())

	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeStorageUnavailable))

	_, err = store.GetAll(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
}

func TestTaskStore_InitFailsForEmptyPath(t *testing.T) {
	store := NewTaskStore(Config{}, repository.Options{}, nil)
	err := store.Init(context.Background())
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestTaskStore_MigrationsAreIdempotentAcrossProcesses(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.db")

	for i := 0; i < 3; i++ {
		store := NewTaskStore(Config{Path: path}, repository.Options{}, nil)
		require.NoError(t, store.Init(ctx))
		_, err := store.Create(ctx, domain.CreateTaskInput{Title: "Round trip"})
		require.NoError(t, err)
		require.NoError(t, store.Close())
	}

	store := NewTaskStore(Config{Path: path}, repository.Options{}, nil)
	require.NoError(t, store.Init(ctx))
	defer store.Close()

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestTaskStore_UsesInjectedClockAndIDs(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 5, 6, 7, 8, 9, 10, time.FixedZone("CET", 3600))
	store := NewTaskStore(
		Config{Path: filepath.Join(t.TempDir(), "tasks.db")},
		repository.Options{
			Now:   func() time.Time { return at },
			NewID: func() string { return "fixed-id" },
		},
		nil,
	)
	require.NoError(t, store.Init(ctx))
	defer store.Close()

	created, err := store.Create(ctx, domain.CreateTaskInput{Title: "Buy milk"})
	require.NoError(t, err)

	assert.Equal(t, "fixed-id", created.ID)
	assert.True(t, created.CreatedAt.Equal(at))
	assert.Equal(t, time.UTC, created.CreatedAt.Location())
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "milk", want: "milk"},
		{name: "percent", input: "100%", want: `100\%`},
		{name: "underscore", input: "a_b", want: `a\_b`},
		{name: "backslash", input: `c:\tmp`, want: `c:\\tmp`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeLike(tt.input))
		})
	}
}
