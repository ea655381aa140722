package task

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/tasktracker/domain"
	"github.com/fastygo/tasktracker/internal/state"
	"github.com/fastygo/tasktracker/repository"
	"github.com/fastygo/tasktracker/repository/sqlite"
	"github.com/fastygo/tasktracker/usecase"
)

type mockStore struct {
	mock.Mock
}

var _ repository.TaskStore = (*mockStore)(nil)

func (m *mockStore) Init(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Create(ctx context.Context, input domain.CreateTaskInput) (*domain.Task, error) {
	args := m.Called(ctx, input)
	task, _ := args.Get(0).(*domain.Task)
	return task, args.Error(1)
}

func (m *mockStore) GetAll(ctx context.Context) ([]domain.Task, error) {
	args := m.Called(ctx)
	tasks, _ := args.Get(0).([]domain.Task)
	return tasks, args.Error(1)
}

func (m *mockStore) GetByID(ctx context.Context, id string) (*domain.Task, bool, error) {
	args := m.Called(ctx, id)
	task, _ := args.Get(0).(*domain.Task)
	return task, args.Bool(1), args.Error(2)
}

func (m *mockStore) Update(ctx context.Context, input domain.UpdateTaskInput) (*domain.Task, error) {
	args := m.Called(ctx, input)
	task, _ := args.Get(0).(*domain.Task)
	return task, args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) Search(ctx context.Context, query string) ([]domain.Task, error) {
	args := m.Called(ctx, query)
	tasks, _ := args.Get(0).([]domain.Task)
	return tasks, args.Error(1)
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

type recordingReminder struct {
	mu    sync.Mutex
	calls [][2]string
}

func (r *recordingReminder) SendTaskReminder(_ context.Context, title, id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, [2]string{title, id})
	return "reminder-" + id
}

func setupUseCase(t *testing.T) (*UseCase, repository.TaskStore) {
	t.Helper()

	store := sqlite.NewTaskStore(sqlite.Config{Path: filepath.Join(t.TempDir(), "tasks.db")}, repository.Options{}, nil)
	require.NoError(t, store.Init(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	return New(store, state.NewCache(), &recordingReminder{}, nil), store
}

func sortedIDs(tasks []domain.Task) []string {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	sort.Strings(ids)
	return ids
}

func TestUseCase_ExampleScenario(t *testing.T) {
	ctx := context.Background()
	uc, store := setupUseCase(t)

	created, err := uc.Execute(ctx, usecase.CreateTask{Input: domain.CreateTaskInput{Title: "Buy milk"}})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Buy milk", created.Title)
	assert.Nil(t, created.Description)
	assert.False(t, created.Completed)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	updated, err := uc.Execute(ctx, usecase.UpdateTask{Input: domain.UpdateTaskInput{ID: created.ID, Completed: domain.BoolPtr(true)}})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Buy milk", updated.Title)
	assert.True(t, updated.Completed)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	deleted, err := uc.Execute(ctx, usecase.DeleteTask{ID: created.ID})
	require.NoError(t, err)
	assert.Nil(t, deleted)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, uc.View().Tasks)
}

func TestUseCase_CacheConvergesWithStore(t *testing.T) {
	ctx := context.Background()
	uc, store := setupUseCase(t)

	var ids []string
	for _, title := range []string{"Buy milk", "Walk dog", "Call mom", "Pay rent"} {
		created, err := uc.Create(ctx, domain.CreateTaskInput{Title: title})
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}
	_, err := uc.Update(ctx, domain.UpdateTaskInput{ID: ids[0], Title: domain.StringPtr("Buy oat milk")})
	require.NoError(t, err)
	_, err = uc.ToggleComplete(ctx, ids[1])
	require.NoError(t, err)
	require.NoError(t, uc.Delete(ctx, ids[2]))
	_, err = uc.Update(ctx, domain.UpdateTaskInput{ID: ids[3], Description: domain.StringPtr("before the 5th")})
	require.NoError(t, err)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)

	view := uc.View()
	assert.Equal(t, sortedIDs(all), sortedIDs(view.Tasks))
	assert.ElementsMatch(t, all, view.Tasks)
	assert.False(t, view.Loading)
	assert.Empty(t, view.Error)
}

func TestUseCase_LoadReplacesCacheAndAppliesQuery(t *testing.T) {
	ctx := context.Background()
	uc, store := setupUseCase(t)

	_, err := store.Create(ctx, domain.CreateTaskInput{Title: "Buy milk"})
	require.NoError(t, err)
	_, err = store.Create(ctx, domain.CreateTaskInput{Title: "Walk dog", Description: domain.StringPtr("milk bones")})
	require.NoError(t, err)

	uc.SetQuery("MILK")
	tasks, err := uc.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	view := uc.View()
	assert.Len(t, view.Tasks, 2)
	require.Len(t, view.FilteredTasks, 1)
	assert.Equal(t, "Buy milk", view.FilteredTasks[0].Title)

	view = uc.ClearQuery()
	assert.Len(t, view.FilteredTasks, 2)
}

// Store search covers descriptions while the live filter does not.
func TestUseCase_SearchDiffersFromLiveFilter(t *testing.T) {
	ctx := context.Background()
	uc, _ := setupUseCase(t)

	_, err := uc.Create(ctx, domain.CreateTaskInput{Title: "Buy milk"})
	require.NoError(t, err)
	_, err = uc.Create(ctx, domain.CreateTaskInput{Title: "Walk dog", Description: domain.StringPtr("milk bones")})
	require.NoError(t, err)

	found, err := uc.Search(ctx, "milk")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	view := uc.SetQuery("milk")
	assert.Len(t, view.FilteredTasks, 1)
	assert.Len(t, view.Tasks, 2)
}

func TestUseCase_CreateTrimsInput(t *testing.T) {
	uc, _ := setupUseCase(t)

	created, err := uc.Create(context.Background(), domain.CreateTaskInput{
		Title:       "  Buy milk  ",
		Description: domain.StringPtr("   "),
	})
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", created.Title)
	assert.Nil(t, created.Description)
}

func TestUseCase_ValidationNeverReachesStore(t *testing.T) {
	store := &mockStore{}
	uc := New(store, nil, nil, nil)
	ctx := context.Background()

	_, err := uc.Create(ctx, domain.CreateTaskInput{Title: "ab"})
	assert.ErrorIs(t, err, domain.ErrTitleTooShort)

	_, err = uc.Create(ctx, domain.CreateTaskInput{Title: "Buy milk", Description: domain.StringPtr(strings.Repeat("x", 501))})
	assert.ErrorIs(t, err, domain.ErrDescriptionTooLong)

	padded := strings.Repeat("a", 500) + " "
	_, err = uc.Create(ctx, domain.CreateTaskInput{Title: "Buy milk", Description: domain.StringPtr(padded)})
	assert.ErrorIs(t, err, domain.ErrDescriptionTooLong)

	_, err = uc.Update(ctx, domain.UpdateTaskInput{ID: "t1", Description: domain.StringPtr(padded)})
	assert.ErrorIs(t, err, domain.ErrDescriptionTooLong)

	_, err = uc.Update(ctx, domain.UpdateTaskInput{ID: "t1", Title: domain.StringPtr("   ")})
	assert.ErrorIs(t, err, domain.ErrTitleRequired)

	assert.ErrorIs(t, uc.Delete(ctx, " "), domain.ErrMissingTaskID)

	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)

	view := uc.View()
	assert.False(t, view.Loading)
	assert.Empty(t, view.Error)
}

func TestUseCase_StoreFailureLeavesCacheUntouched(t *testing.T) {
	ctx := context.Background()
	store := &mockStore{}
	existing := domain.Task{ID: "t1", Title: "Buy milk"}
	writeErr := domain.WrapError(domain.ErrCodeWriteFailed, "failed to update task", errors.New("disk full"))

	store.On("GetAll", mock.Anything).Return([]domain.Task{existing}, nil).Once()
	store.On("Update", mock.Anything, mock.Anything).Return(nil, writeErr).Once()
	store.On("Delete", mock.Anything, "t1").Return(writeErr).Once()
	store.On("Create", mock.Anything, mock.Anything).Return(nil, writeErr).Once()

	uc := New(store, nil, nil, nil)
	_, err := uc.Load(ctx)
	require.NoError(t, err)

	_, err = uc.Update(ctx, domain.UpdateTaskInput{ID: "t1", Completed: domain.BoolPtr(true)})
	assert.ErrorIs(t, err, writeErr)
	assert.Equal(t, MsgSaveFailed, uc.View().Error)

	assert.ErrorIs(t, uc.Delete(ctx, "t1"), writeErr)
	assert.Equal(t, MsgDeleteFailed, uc.View().Error)

	_, err = uc.Create(ctx, domain.CreateTaskInput{Title: "Walk dog"})
	assert.ErrorIs(t, err, writeErr)

	view := uc.View()
	assert.False(t, view.Loading)
	assert.Equal(t, []domain.Task{existing}, view.Tasks)
	store.AssertExpectations(t)
}

func TestUseCase_LoadFailureSetsErrorAndResetsLoading(t *testing.T) {
	store := &mockStore{}
	store.On("GetAll", mock.Anything).Return(nil, domain.ErrStorageUnavailable).Once()

	uc := New(store, nil, nil, nil)
	_, err := uc.Load(context.Background())

	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	view := uc.View()
	assert.False(t, view.Loading)
	assert.Equal(t, MsgLoadFailed, view.Error)
}

func TestUseCase_WriteCompletesAfterCallerCancels(t *testing.T) {
	store := &mockStore{}
	created := &domain.Task{ID: "t1", Title: "Buy milk"}
	store.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			assert.NoError(t, ctx.Err())
		}).
		Return(created, nil).Once()

	uc := New(store, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := uc.Create(ctx, domain.CreateTaskInput{Title: "Buy milk"})
	require.NoError(t, err)
	assert.Equal(t, created, got)
	assert.Len(t, uc.View().Tasks, 1)
}

func TestUseCase_ConcurrentLoadsShareOneRead(t *testing.T) {
	store := &mockStore{}
	release := make(chan struct{})
	store.On("GetAll", mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return([]domain.Task{{ID: "t1", Title: "Buy milk"}}, nil)

	uc := New(store, nil, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tasks, err := uc.Load(context.Background())
			assert.NoError(t, err)
			assert.Len(t, tasks, 1)
		}()
	}

	assert.Eventually(t, func() bool { return uc.View().Loading }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, len(store.Calls), 5)
	assert.False(t, uc.View().Loading)
}

func TestUseCase_CreateDuringLoadIsKept(t *testing.T) {
	store := &mockStore{}
	entered := make(chan struct{})
	release := make(chan struct{})
	created := &domain.Task{ID: "t2", Title: "Call mom"}

	store.On("GetAll", mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return([]domain.Task{{ID: "t1", Title: "Buy milk"}}, nil).Once()
	store.On("Create", mock.Anything, mock.Anything).Return(created, nil).Once()

	uc := New(store, nil, nil, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := uc.Load(context.Background())
		assert.NoError(t, err)
	}()
	<-entered
	go func() {
		defer wg.Done()
		_, err := uc.Create(context.Background(), domain.CreateTaskInput{Title: "Call mom"})
		assert.NoError(t, err)
	}()

	time.Sleep(20 * time.Millisecond)
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	close(release)
	wg.Wait()

	assert.ElementsMatch(t, []string{"t1", "t2"}, sortedIDs(uc.View().Tasks))
	store.AssertExpectations(t)
}

func TestUseCase_GetFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	uc, store := setupUseCase(t)

	created, err := store.Create(ctx, domain.CreateTaskInput{Title: "Buy milk"})
	require.NoError(t, err)

	got, err := uc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = uc.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestUseCase_DeleteMissingTask(t *testing.T) {
	uc, _ := setupUseCase(t)

	err := uc.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	assert.Equal(t, MsgDeleteFailed, uc.View().Error)
}

func TestUseCase_Remind(t *testing.T) {
	ctx := context.Background()
	store := sqlite.NewTaskStore(sqlite.Config{Path: filepath.Join(t.TempDir(), "tasks.db")}, repository.Options{}, nil)
	require.NoError(t, store.Init(ctx))
	defer store.Close()

	reminder := &recordingReminder{}
	uc := New(store, nil, reminder, nil)

	created, err := uc.Create(ctx, domain.CreateTaskInput{Title: "Buy milk"})
	require.NoError(t, err)

	id, err := uc.Remind(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "reminder-"+created.ID, id)
	assert.Equal(t, [][2]string{{"Buy milk", created.ID}}, reminder.calls)

	withoutReminder := New(store, nil, nil, nil)
	id, err = withoutReminder.Remind(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, id)
}
