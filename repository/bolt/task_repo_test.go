package bolt

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.etcd.io/bbolt"

	"github.com/fastygo/tasktracker/domain"
	"github.com/fastygo/tasktracker/repository"
	"github.com/fastygo/tasktracker/repository/repositorytest"
)

func TestTaskStoreContract(t *testing.T) {
	suite.Run(t, &repositorytest.StoreSuite{
		FileName:      "tasks.bolt",
		UnicodeSearch: true,
		NewStore: func(path string, opts repository.Options) repository.TaskStore {
			return NewTaskStore(Config{Path: path}, opts, nil)
		},
	})
}

func TestTaskStore_RecordEncodesCompletedAsInteger(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.bolt")
	store := NewTaskStore(Config{Path: path}, repository.Options{}, nil)
	require.NoError(t, store.Init(ctx))

	created, err := store.Create(ctx, domain.CreateTaskInput{Title: "Buy milk"})
	require.NoError(t, err)
	_, err = store.Update(ctx, domain.UpdateTaskInput{ID: created.ID, Completed: domain.BoolPtr(true)})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	db, err := bbolt.Open(path, 0o600, nil)
	require.NoError(t, err)
	defer db.Close()

	var raw map[string]any
	require.NoError(t, db.View(func(tx *bbolt.Tx) error {
		return json.Unmarshal(tx.Bucket(tasksBucket).Get([]byte(created.ID)), &raw)
	}))
	assert.Equal(t, float64(1), raw["completed"])
	assert.Nil(t, raw["description"])
}

func TestTaskStore_CorruptRecordIsReadFailure(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.bolt")
	store := NewTaskStore(Config{Path: path}, repository.Options{}, nil)
	require.NoError(t, store.Init(ctx))
	defer store.Close()

	db, err := store.handle()
	require.NoError(t, err)
	require.NoError(t, db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(tasksBucket).Put([]byte("broken"), []byte("{"))
	}))

	_, err = store.GetAll(ctx)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeReadFailed))

	_, _, err = store.GetByID(ctx, "broken")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeReadFailed))
}

func TestTaskStore_InitFailsWhenPathIsUnusable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	store := NewTaskStore(Config{Path: filepath.Join(blocker, "tasks.bolt")}, repository.Options{}, nil)
	err := store.Init(context.Background())
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeStorageUnavailable))
}
