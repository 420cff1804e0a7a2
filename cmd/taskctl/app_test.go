package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/taskmanager-api/internal/domain"
	"github.com/phrazzld/taskmanager-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.June, 10, 12, 0, 0, 0, time.Local)

// cliHarness runs taskctl commands against one sqlite file.
type cliHarness struct {
	t      *testing.T
	dbPath string
}

func newHarness(t *testing.T) *cliHarness {
	return &cliHarness{t: t, dbPath: filepath.Join(t.TempDir(), "tasks.db")}
}

func (h *cliHarness) run(args ...string) (string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	app := newApp(&out, &errOut, service.WithClock(func() time.Time { return fixedNow }))

	argv := append([]string{"taskctl", "--driver", "sqlite", "--db", h.dbPath}, args...)
	err := app.Run(argv)
	return out.String(), err
}

func (h *cliHarness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "taskctl %s", strings.Join(args, " "))
	return out
}

func (h *cliHarness) createJSON(args ...string) *domain.Task {
	h.t.Helper()
	out := h.mustRun(append([]string{"--json", "create"}, args...)...)
	var task domain.Task
	require.NoError(h.t, json.Unmarshal([]byte(out), &task))
	return &task
}

func TestCreateAndGet(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("create", "--title", "Write changelog", "--description", "v1.2", "--due", "2025-06-12")
	assert.Contains(t, out, "Title:        Write changelog")
	assert.Contains(t, out, "Status:       TODO")
	assert.Contains(t, out, "Due:          2025-06-12")

	out = h.mustRun("get", "1")
	assert.Contains(t, out, "ID:           1")
	assert.Contains(t, out, "Description:  v1.2")
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("create", "--title", "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.run("create", "--title", "ok", "--status", "LATER")
	assert.ErrorIs(t, err, domain.ErrInvalidTaskStatus)

	_, err = h.run("create", "--title", "ok", "--due", "12/06/2025")
	assert.ErrorIs(t, err, domain.ErrInvalidFormat)

	_, err = h.run("create")
	assert.Error(t, err)
}

func TestCreateUnique(t *testing.T) {
	h := newHarness(t)
	h.mustRun("create", "--title", "Standup notes")

	_, err := h.run("create", "--unique", "--title", "STANDUP NOTES")
	assert.ErrorIs(t, err, service.ErrDuplicateTitle)

	h.mustRun("create", "--title", "STANDUP NOTES")
	out := h.mustRun("search", "standup")
	assert.Equal(t, 2, strings.Count(strings.ToLower(out), "standup notes"), out)
}

func TestListAndViews(t *testing.T) {
	h := newHarness(t)
	late := h.createJSON("--title", "Renew lease", "--due", "2025-06-01")
	today := h.createJSON("--title", "Team lunch", "--due", "2025-06-10", "--status", "in_progress")
	h.createJSON("--title", "Backlog idea")
	h.createJSON("--title", "Old and done", "--due", "2025-05-01", "--status", "DONE")

	out := h.mustRun("list")
	assert.Contains(t, out, "ID  STATUS")
	assert.Contains(t, out, "2025-06-01 (overdue)")
	assert.Contains(t, out, "2025-06-10 (today)")

	out = h.mustRun("--json", "list", "--status", "DONE")
	var done []domain.Task
	require.NoError(t, json.Unmarshal([]byte(out), &done))
	require.Len(t, done, 1)
	assert.Equal(t, "Old and done", done[0].Title)

	out = h.mustRun("--json", "list", "--sort-due")
	var sorted []domain.Task
	require.NoError(t, json.Unmarshal([]byte(out), &sorted))
	require.Len(t, sorted, 4)
	assert.Equal(t, "Old and done", sorted[0].Title)
	assert.Equal(t, "Backlog idea", sorted[3].Title)

	out = h.mustRun("--json", "list", "--sort-due", "--status", "todo")
	var sortedTodo []domain.Task
	require.NoError(t, json.Unmarshal([]byte(out), &sortedTodo))
	require.Len(t, sortedTodo, 2)
	assert.Equal(t, "Renew lease", sortedTodo[0].Title)
	assert.Equal(t, "Backlog idea", sortedTodo[1].Title)

	out = h.mustRun("--json", "overdue")
	var overdue []domain.Task
	require.NoError(t, json.Unmarshal([]byte(out), &overdue))
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)

	out = h.mustRun("--json", "due-today")
	var dueToday []domain.Task
	require.NoError(t, json.Unmarshal([]byte(out), &dueToday))
	require.Len(t, dueToday, 1)
	assert.Equal(t, today.ID, dueToday[0].ID)

	out = h.mustRun("stats")
	assert.Contains(t, out, "TODO         2")
	assert.Contains(t, out, "IN_PROGRESS  1")
	assert.Contains(t, out, "DONE         1")
	assert.Contains(t, out, "TOTAL        4")

	assert.Equal(t, "no tasks\n", h.mustRun("search", "nothing like this"))
}

func TestUpdateStatusAndDelete(t *testing.T) {
	h := newHarness(t)
	task := h.createJSON("--title", "Draft RFC", "--description", "storage layer", "--due", "2025-06-20")
	id := task.ID.String()

	_, err := h.run("update", id)
	assert.ErrorIs(t, err, errNothingToUpdate)

	out := h.mustRun("--json", "update", "--title", "Final RFC", id)
	var updated domain.Task
	require.NoError(t, json.Unmarshal([]byte(out), &updated))
	assert.Equal(t, "Final RFC", updated.Title)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "storage layer", *updated.Description)
	require.NotNil(t, updated.DueDate)
	assert.Equal(t, "2025-06-20", updated.DueDate.String())

	out = h.mustRun("status", id, "done")
	assert.Contains(t, out, "Status:       DONE")

	_, err = h.run("status", id, "PAUSED")
	assert.ErrorIs(t, err, domain.ErrInvalidTaskStatus)

	assert.Equal(t, "deleted task "+id+"\n", h.mustRun("delete", id))

	_, err = h.run("get", id)
	assert.ErrorIs(t, err, service.ErrTaskNotFound)
	_, err = h.run("delete", id)
	assert.ErrorIs(t, err, service.ErrTaskNotFound)
}

func TestArgumentErrors(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("get", "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = h.run("get", "0")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = h.run("get")
	assert.ErrorContains(t, err, "get expects ID, got 0 arguments")

	_, err = h.run("status", "1")
	assert.ErrorContains(t, err, "status expects ID STATUS, got 1 arguments")

	_, err = h.run("search")
	assert.ErrorContains(t, err, "search expects exactly one TERM")
}

func TestUnknownDriver(t *testing.T) {
	var out, errOut bytes.Buffer
	err := newApp(&out, &errOut).Run([]string{"taskctl", "--driver", "oracle", "list"})

	assert.ErrorContains(t, err, `unsupported database driver "oracle"`)
	assert.Contains(t, errOut.String(), "error: ")
}
