package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/tasktracker/domain"
)

type harness struct {
	t    *testing.T
	args []string
}

func newHarness(t *testing.T, driver string) *harness {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "tasks."+driver)
	return &harness{t: t, args: []string{"--store-driver", driver, "--store-path", path, "--json"}}
}

func (h *harness) exec(args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), append(append([]string{}, args...), h.args...), &stdout, &stderr)
	return stdout.String(), err
}

func (h *harness) task(args ...string) domain.Task {
	h.t.Helper()
	out, err := h.exec(args...)
	require.NoError(h.t, err)
	var task domain.Task
	require.NoError(h.t, json.Unmarshal([]byte(out), &task))
	return task
}

func (h *harness) tasks(args ...string) []domain.Task {
	h.t.Helper()
	out, err := h.exec(args...)
	require.NoError(h.t, err)
	var tasks []domain.Task
	require.NoError(h.t, json.Unmarshal([]byte(out), &tasks))
	return tasks
}

func TestTaskctl_Workflow(t *testing.T) {
	for _, driver := range []string{"sqlite", "bolt"} {
		t.Run(driver, func(t *testing.T) {
			h := newHarness(t, driver)

			milk := h.task("add", "--title", "Buy milk", "--description", "2 liters")
			call := h.task("add", "--title", "Call mom")
			require.NotNil(t, milk.Description)

			all := h.tasks("list")
			require.Len(t, all, 2)
			assert.Equal(t, call.ID, all[0].ID)

			filtered := h.tasks("list", "--query", "MILK")
			require.Len(t, filtered, 1)
			assert.Equal(t, milk.ID, filtered[0].ID)

			toggled := h.task("toggle", milk.ID)
			assert.True(t, toggled.Completed)

			cleared := h.task("update", milk.ID, "--clear-description", "--title", "Buy oat milk")
			assert.Nil(t, cleared.Description)
			assert.Equal(t, "Buy oat milk", cleared.Title)

			shown := h.tasks("show", call.ID, milk.ID)
			require.Len(t, shown, 2)
			assert.Equal(t, call.ID, shown[0].ID)
			assert.Equal(t, milk.ID, shown[1].ID)

			found := h.tasks("search", "oat")
			require.Len(t, found, 1)

			_, err := h.exec("rm", call.ID)
			require.NoError(t, err)
			assert.Len(t, h.tasks("list"), 1)
		})
	}
}

func TestTaskctl_Errors(t *testing.T) {
	h := newHarness(t, "sqlite")

	_, err := h.exec("add", "--title", "ab")
	assert.ErrorIs(t, err, domain.ErrTitleTooShort)

	_, err = h.exec("rm", "missing")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))

	_, err = h.exec("show", "missing")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))

	_, err = h.exec("update", "some-id")
	assert.ErrorIs(t, err, domain.ErrEmptyUpdate)

	_, err = h.exec("add")
	assert.ErrorContains(t, err, "title")
}

func TestTaskctl_TableOutput(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "tasks.db")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"list", "--store-path", path}, &out, &bytes.Buffer{}))
	assert.Equal(t, "no tasks\n", out.String())

	out.Reset()
	require.NoError(t, run(context.Background(), []string{"add", "--title", "Buy milk", "--store-path", path}, &out, &bytes.Buffer{}))
	assert.Contains(t, out.String(), "TITLE")
	assert.Contains(t, out.String(), "Buy milk")
	assert.Contains(t, out.String(), "[ ]")
}
