// Package repositorytest holds the contract suite every TaskStore implementation runs.
package repositorytest

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/fastygo/tasktracker/domain"
	"github.com/fastygo/tasktracker/repository"
)

// Factory builds an uninitialised store backed by the file at path.
type Factory func(path string, opts repository.Options) repository.TaskStore

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StoreSuite exercises the TaskStore contract against a real engine in a temp dir.
type StoreSuite struct {
	suite.Suite

	NewStore Factory
	FileName string
	// UnicodeSearch is true when Search folds case beyond ASCII.
	// SQLite LIKE folds ASCII letters only.
	UnicodeSearch bool

	ctx   context.Context
	clock *Clock
	path  string
	store repository.TaskStore
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = NewClock(time.Date(2024, 3, 1, 9, 30, 0, 123456789, time.UTC))
	s.path = filepath.Join(s.T().TempDir(), s.FileName)
	s.store = s.open()
}

func (s *StoreSuite) TearDownTest() {
	if s.store != nil {
		s.Require().NoError(s.store.Close())
	}
}

func (s *StoreSuite) open() repository.TaskStore {
	store := s.NewStore(s.path, repository.Options{Now: s.clock.Now})
	s.Require().NoError(store.Init(s.ctx))
	return store
}

func (s *StoreSuite) create(title string, description *string) *domain.Task {
	task, err := s.store.Create(s.ctx, domain.CreateTaskInput{Title: title, Description: description})
	s.Require().NoError(err)
	s.clock.Advance(time.Millisecond)
	return task
}

func (s *StoreSuite) ids(tasks []domain.Task) []string {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

func (s *StoreSuite) TestInitIsIdempotent() {
	s.Require().NoError(s.store.Init(s.ctx))
	s.create("Buy milk", nil)
	s.Require().NoError(s.store.Init(s.ctx))

	all, err := s.store.GetAll(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *StoreSuite) TestOperationsBeforeInitFail() {
	fresh := s.NewStore(filepath.Join(s.T().TempDir(), s.FileName), repository.Options{})

	_, err := fresh.Create(s.ctx, domain.CreateTaskInput{Title: "Buy milk"})
	s.ErrorIs(err, domain.ErrNotInitialized)
	_, err = fresh.GetAll(s.ctx)
	s.ErrorIs(err, domain.ErrNotInitialized)
	_, _, err = fresh.GetByID(s.ctx, "x")
	s.ErrorIs(err, domain.ErrNotInitialized)
	_, err = fresh.Update(s.ctx, domain.UpdateTaskInput{ID: "x", Completed: domain.BoolPtr(true)})
	s.ErrorIs(err, domain.ErrNotInitialized)
	s.ErrorIs(fresh.Delete(s.ctx, "x"), domain.ErrNotInitialized)
	_, err = fresh.Search(s.ctx, "milk")
	s.ErrorIs(err, domain.ErrNotInitialized)
	s.NoError(fresh.Close())
}

func (s *StoreSuite) TestCreateThenGetRoundTrips() {
	created := s.create("Buy milk", domain.StringPtr("2 liters"))

	s.NotEmpty(created.ID)
	s.False(created.Completed)
	s.Equal(created.CreatedAt, created.UpdatedAt)

	got, ok, err := s.store.GetByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(*created, *got)
}

func (s *StoreSuite) TestDescriptionPresenceIsPreserved() {
	absent := s.create("No description", nil)
	empty := s.create("Empty description", domain.StringPtr(""))

	got, ok, err := s.store.GetByID(s.ctx, absent.ID)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Nil(got.Description)

	got, ok, err = s.store.GetByID(s.ctx, empty.ID)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Require().NotNil(got.Description)
	s.Equal("", *got.Description)
}

func (s *StoreSuite) TestGetAllOnEmptyStore() {
	all, err := s.store.GetAll(s.ctx)
	s.Require().NoError(err)
	s.NotNil(all)
	s.Empty(all)
}

func (s *StoreSuite) TestGetByIDMissingIsNotAnError() {
	got, ok, err := s.store.GetByID(s.ctx, "does-not-exist")
	s.NoError(err)
	s.False(ok)
	s.Nil(got)
}

func (s *StoreSuite) TestPartialUpdateKeepsOmittedFields() {
	created := s.create("Buy milk", domain.StringPtr("2 liters"))

	updated, err := s.store.Update(s.ctx, domain.UpdateTaskInput{ID: created.ID, Completed: domain.BoolPtr(true)})
	s.Require().NoError(err)

	s.Equal("Buy milk", updated.Title)
	s.Require().NotNil(updated.Description)
	s.Equal("2 liters", *updated.Description)
	s.True(updated.Completed)
	s.Equal(created.CreatedAt, updated.CreatedAt)
	s.True(updated.UpdatedAt.After(created.UpdatedAt))

	got, ok, err := s.store.GetByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(*updated, *got)
}

func (s *StoreSuite) TestUpdateClearsDescription() {
	created := s.create("Buy milk", domain.StringPtr("2 liters"))

	updated, err := s.store.Update(s.ctx, domain.UpdateTaskInput{ID: created.ID, DescriptionSet: true})
	s.Require().NoError(err)
	s.Nil(updated.Description)
	s.Equal("Buy milk", updated.Title)
}

func (s *StoreSuite) TestUpdateAdvancesTimestampWhenClockStalls() {
	created, err := s.store.Create(s.ctx, domain.CreateTaskInput{Title: "Buy milk"})
	s.Require().NoError(err)

	first, err := s.store.Update(s.ctx, domain.UpdateTaskInput{ID: created.ID, Title: domain.StringPtr("Buy oat milk")})
	s.Require().NoError(err)
	second, err := s.store.Update(s.ctx, domain.UpdateTaskInput{ID: created.ID, Completed: domain.BoolPtr(true)})
	s.Require().NoError(err)

	s.True(first.UpdatedAt.After(created.UpdatedAt))
	s.True(second.UpdatedAt.After(first.UpdatedAt))
}

func (s *StoreSuite) TestUpdateMissingTaskFails() {
	_, err := s.store.Update(s.ctx, domain.UpdateTaskInput{ID: "missing", Title: domain.StringPtr("Anything")})
	s.ErrorIs(err, domain.ErrTaskNotFound)
	s.True(domain.IsDomainError(err, domain.ErrCodeNotFound))
}

func (s *StoreSuite) TestDeleteIsTerminal() {
	created := s.create("Buy milk", nil)

	s.Require().NoError(s.store.Delete(s.ctx, created.ID))

	_, ok, err := s.store.GetByID(s.ctx, created.ID)
	s.NoError(err)
	s.False(ok)

	s.ErrorIs(s.store.Delete(s.ctx, created.ID), domain.ErrTaskNotFound)

	_, err = s.store.Update(s.ctx, domain.UpdateTaskInput{ID: created.ID, Completed: domain.BoolPtr(true)})
	s.ErrorIs(err, domain.ErrTaskNotFound)

	all, err := s.store.GetAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *StoreSuite) TestGetAllOrdersByMostRecentlyUpdated() {
	a := s.create("Task A", nil)
	b := s.create("Task B", nil)
	c := s.create("Task C", nil)

	all, err := s.store.GetAll(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{c.ID, b.ID, a.ID}, s.ids(all))

	_, err = s.store.Update(s.ctx, domain.UpdateTaskInput{ID: a.ID, Completed: domain.BoolPtr(true)})
	s.Require().NoError(err)

	all, err = s.store.GetAll(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{a.ID, c.ID, b.ID}, s.ids(all))
}

func (s *StoreSuite) TestCompletedDecodesToBool() {
	created := s.create("Buy milk", nil)
	_, err := s.store.Update(s.ctx, domain.UpdateTaskInput{ID: created.ID, Completed: domain.BoolPtr(true)})
	s.Require().NoError(err)

	all, err := s.store.GetAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.True(all[0].Completed)

	_, err = s.store.Update(s.ctx, domain.UpdateTaskInput{ID: created.ID, Completed: domain.BoolPtr(false)})
	s.Require().NoError(err)

	got, ok, err := s.store.GetByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.False(got.Completed)
}

// Store search also matches descriptions, unlike the cache's title filter.
func (s *StoreSuite) TestSearchMatchesTitleOrDescription() {
	milk := s.create("Buy MILK", nil)
	call := s.create("Call mom", domain.StringPtr("ask about the milk recipe"))
	s.create("Walk dog", domain.StringPtr("park"))

	found, err := s.store.Search(s.ctx, "milk")
	s.Require().NoError(err)
	s.Equal([]string{call.ID, milk.ID}, s.ids(found))

	found, err = s.store.Search(s.ctx, "nothing here")
	s.Require().NoError(err)
	s.NotNil(found)
	s.Empty(found)
}

func (s *StoreSuite) TestSearchTreatsWildcardsLiterally() {
	percent := s.create("Raise 100% effort", nil)
	s.create("Raise effort", nil)
	underscore := s.create("snake_case rename", nil)
	s.create("snakeXcase rename", nil)

	found, err := s.store.Search(s.ctx, "100%")
	s.Require().NoError(err)
	s.Equal([]string{percent.ID}, s.ids(found))

	found, err = s.store.Search(s.ctx, "e_c")
	s.Require().NoError(err)
	s.Equal([]string{underscore.ID}, s.ids(found))
}

func (s *StoreSuite) TestSearchCaseFoldingScope() {
	umlaut := s.create("Ärger melden", nil)
	s.create("Walk dog", nil)

	found, err := s.store.Search(s.ctx, "MELDEN")
	s.Require().NoError(err)
	s.Equal([]string{umlaut.ID}, s.ids(found))

	found, err = s.store.Search(s.ctx, "Ärger")
	s.Require().NoError(err)
	s.Equal([]string{umlaut.ID}, s.ids(found))

	found, err = s.store.Search(s.ctx, "ärger")
	s.Require().NoError(err)
	if s.UnicodeSearch {
		s.Equal([]string{umlaut.ID}, s.ids(found))
	} else {
		s.Empty(found)
	}
}

func (s *StoreSuite) TestTasksSurviveReopen() {
	created := s.create("Buy milk", domain.StringPtr("2 liters"))
	s.Require().NoError(s.store.Close())

	s.store = s.open()

	got, ok, err := s.store.GetByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(*created, *got)
}

func (s *StoreSuite) TestClosedStoreRejectsCalls() {
	s.Require().NoError(s.store.Close())

	_, err := s.store.GetAll(s.ctx)
	s.ErrorIs(err, domain.ErrNotInitialized)
	s.NoError(s.store.Close())
}
