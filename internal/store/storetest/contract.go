// Package storetest provides a reusable behavioral test suite for
// store.TaskStore implementations.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/phrazzld/taskmanager-api/internal/domain"
	"github.com/phrazzld/taskmanager-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store for a single subtest.
type Factory func(t *testing.T) store.TaskStore

// Today is the reference date used by date-based checks.
var Today = domain.NewDate(2025, time.June, 10)

// RunTaskStoreContract runs the behavioral suite against stores built by newStore.
func RunTaskStoreContract(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("Create", func(t *testing.T) { testCreate(t, newStore(t)) })
	t.Run("CreateRejectsAssignedID", func(t *testing.T) { testCreateRejectsAssignedID(t, newStore(t)) })
	t.Run("GetByIDNotFound", func(t *testing.T) { testGetByIDNotFound(t, newStore(t)) })
	t.Run("ListEmpty", func(t *testing.T) { testListEmpty(t, newStore(t)) })
	t.Run("ListAndFilterByStatus", func(t *testing.T) { testListByStatus(t, newStore(t)) })
	t.Run("ListDueBefore", func(t *testing.T) { testListDueBefore(t, newStore(t)) })
	t.Run("ListByDueDate", func(t *testing.T) { testListByDueDate(t, newStore(t)) })
	t.Run("SearchByTitle", func(t *testing.T) { testSearchByTitle(t, newStore(t)) })
	t.Run("ListOrderedByDueDate", func(t *testing.T) { testListOrderedByDueDate(t, newStore(t)) })
	t.Run("CountByStatus", func(t *testing.T) { testCountByStatus(t, newStore(t)) })
	t.Run("ExistsByTitle", func(t *testing.T) { testExistsByTitle(t, newStore(t)) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, newStore(t)) })
	t.Run("UpdateNotFound", func(t *testing.T) { testUpdateNotFound(t, newStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore(t)) })
}

// Draft builds a transient task for seeding stores.
func Draft(title string, status domain.TaskStatus, due *domain.Date) *domain.Task {
	return &domain.Task{
		ID:      domain.UnassignedID,
		Title:   title,
		Status:  status,
		DueDate: due,
	}
}

// DaysFromToday returns a pointer to Today shifted by n days.
func DaysFromToday(n int) *domain.Date {
	d := Today.AddDays(n)
	return &d
}

// MustCreate persists task and fails the test on error.
func MustCreate(t *testing.T, s store.TaskStore, task *domain.Task) *domain.Task {
	t.Helper()
	created, err := s.Create(context.Background(), task)
	require.NoError(t, err)
	require.True(t, created.ID.IsAssigned())
	return created
}

func titles(tasks []*domain.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.Title)
	}
	return out
}

func testCreate(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	description := "quarterly numbers"
	task := Draft("Write report", domain.TaskStatusInProgress, DaysFromToday(3))
	task.Description = &description

	before := time.Now().Add(-time.Second)
	created, err := s.Create(ctx, task)
	require.NoError(t, err)

	assert.True(t, created.ID.IsAssigned())
	assert.False(t, task.ID.IsAssigned(), "input task must not be mutated")
	assert.Equal(t, "Write report", created.Title)
	require.NotNil(t, created.Description)
	assert.Equal(t, description, *created.Description)
	assert.Equal(t, domain.TaskStatusInProgress, created.Status)
	require.NotNil(t, created.DueDate)
	assert.True(t, created.DueDate.Equal(*DaysFromToday(3)))
	assert.True(t, created.CreatedAt.After(before))
	assert.True(t, created.CreatedAt.Equal(created.UpdatedAt))

	fetched, err := s.GetByID(ctx, created.ID.Int64())
	require.NoError(t, err)
	assert.True(t, fetched.Equal(created))
	assert.Equal(t, created.Title, fetched.Title)
	assert.Equal(t, *created.Description, *fetched.Description)
	assert.True(t, created.DueDate.Equal(*fetched.DueDate))
	assert.True(t, created.CreatedAt.Equal(fetched.CreatedAt))
	assert.True(t, created.UpdatedAt.Equal(fetched.UpdatedAt))

	second := MustCreate(t, s, Draft("Another", domain.TaskStatusTodo, nil))
	assert.NotEqual(t, created.ID, second.ID, "ids are never reused")
	assert.Nil(t, second.DueDate)
	assert.Nil(t, second.Description)
}

func testCreateRejectsAssignedID(t *testing.T, s store.TaskStore) {
	task := Draft("Has id", domain.TaskStatusTodo, nil)
	task.ID = domain.AssignedID(99)

	_, err := s.Create(context.Background(), task)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func testGetByIDNotFound(t *testing.T, s store.TaskStore) {
	_, err := s.GetByID(context.Background(), 424242)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.True(t, store.IsNotFoundError(err))
}

func testListEmpty(t *testing.T, s store.TaskStore) {
	ctx := context.Background()

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	byStatus, err := s.ListByStatus(ctx, domain.TaskStatusDone)
	require.NoError(t, err)
	assert.NotNil(t, byStatus)
	assert.Empty(t, byStatus)
}

func testListByStatus(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	MustCreate(t, s, Draft("todo 1", domain.TaskStatusTodo, nil))
	MustCreate(t, s, Draft("todo 2", domain.TaskStatusTodo, nil))
	MustCreate(t, s, Draft("doing", domain.TaskStatusInProgress, nil))

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"todo 1", "todo 2", "doing"}, titles(all))

	todo, err := s.ListByStatus(ctx, domain.TaskStatusTodo)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"todo 1", "todo 2"}, titles(todo))

	done, err := s.ListByStatus(ctx, domain.TaskStatusDone)
	require.NoError(t, err)
	assert.Empty(t, done)
}

func testListDueBefore(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	MustCreate(t, s, Draft("late todo", domain.TaskStatusTodo, DaysFromToday(-2)))
	MustCreate(t, s, Draft("late doing", domain.TaskStatusInProgress, DaysFromToday(-1)))
	MustCreate(t, s, Draft("late done", domain.TaskStatusDone, DaysFromToday(-5)))
	MustCreate(t, s, Draft("due today", domain.TaskStatusTodo, DaysFromToday(0)))
	MustCreate(t, s, Draft("future", domain.TaskStatusTodo, DaysFromToday(4)))
	MustCreate(t, s, Draft("no date", domain.TaskStatusTodo, nil))

	overdue, err := s.ListDueBefore(ctx, Today, domain.TaskStatusDone)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"late todo", "late doing"}, titles(overdue))

	excludingTodo, err := s.ListDueBefore(ctx, Today.AddDays(1), domain.TaskStatusTodo)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"late doing", "late done"}, titles(excludingTodo))
}

func testListByDueDate(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	MustCreate(t, s, Draft("today a", domain.TaskStatusTodo, DaysFromToday(0)))
	MustCreate(t, s, Draft("today b", domain.TaskStatusDone, DaysFromToday(0)))
	MustCreate(t, s, Draft("tomorrow", domain.TaskStatusTodo, DaysFromToday(1)))
	MustCreate(t, s, Draft("undated", domain.TaskStatusTodo, nil))

	due, err := s.ListByDueDate(ctx, Today)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"today a", "today b"}, titles(due))

	none, err := s.ListByDueDate(ctx, Today.AddDays(-30))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testSearchByTitle(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	MustCreate(t, s, Draft("Buy MILK", domain.TaskStatusTodo, nil))
	MustCreate(t, s, Draft("milkshake recipe", domain.TaskStatusTodo, nil))
	MustCreate(t, s, Draft("Walk the dog", domain.TaskStatusTodo, nil))
	MustCreate(t, s, Draft("100% done", domain.TaskStatusDone, nil))
	MustCreate(t, s, Draft("Überweisung Prüfen", domain.TaskStatusTodo, nil))

	found, err := s.SearchByTitle(ctx, "Milk")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Buy MILK", "milkshake recipe"}, titles(found))

	literal, err := s.SearchByTitle(ctx, "0%")
	require.NoError(t, err)
	assert.Equal(t, []string{"100% done"}, titles(literal), "wildcards in the term match literally")

	folded, err := s.SearchByTitle(ctx, "überweisung")
	require.NoError(t, err)
	assert.Equal(t, []string{"Überweisung Prüfen"}, titles(folded), "case folding covers non-ASCII letters")

	folded, err = s.SearchByTitle(ctx, "PRÜF")
	require.NoError(t, err)
	assert.Equal(t, []string{"Überweisung Prüfen"}, titles(folded))

	none, err := s.SearchByTitle(ctx, "cat")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testListOrderedByDueDate(t *testing.T, s store.TaskStore) {
	MustCreate(t, s, Draft("undated 1", domain.TaskStatusTodo, nil))
	MustCreate(t, s, Draft("late", domain.TaskStatusTodo, DaysFromToday(9)))
	MustCreate(t, s, Draft("early", domain.TaskStatusTodo, DaysFromToday(-3)))
	MustCreate(t, s, Draft("undated 2", domain.TaskStatusDone, nil))
	MustCreate(t, s, Draft("middle", domain.TaskStatusTodo, DaysFromToday(1)))

	ordered, err := s.ListOrderedByDueDate(context.Background())
	require.NoError(t, err)
	require.Len(t, ordered, 5)

	assert.Equal(t, []string{"early", "middle", "late"}, titles(ordered[:3]))
	assert.ElementsMatch(t, []string{"undated 1", "undated 2"}, titles(ordered[3:]))
	assert.Nil(t, ordered[3].DueDate)
	assert.Nil(t, ordered[4].DueDate)
}

func testCountByStatus(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	MustCreate(t, s, Draft("a", domain.TaskStatusTodo, nil))
	MustCreate(t, s, Draft("b", domain.TaskStatusTodo, nil))
	MustCreate(t, s, Draft("c", domain.TaskStatusDone, nil))

	todo, err := s.CountByStatus(ctx, domain.TaskStatusTodo)
	require.NoError(t, err)
	assert.Equal(t, int64(2), todo)

	inProgress, err := s.CountByStatus(ctx, domain.TaskStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, int64(0), inProgress)
}

func testExistsByTitle(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	MustCreate(t, s, Draft("Plan Sprint", domain.TaskStatusTodo, nil))

	exists, err := s.ExistsByTitle(ctx, "plan sprint")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.ExistsByTitle(ctx, "Plan")
	require.NoError(t, err)
	assert.False(t, exists, "substring is not an exact match")

	created := MustCreate(t, s, Draft("Überweisung Prüfen", domain.TaskStatusTodo, nil))
	exists, err = s.ExistsByTitle(ctx, "ÜBERWEISUNG PRÜFEN")
	require.NoError(t, err)
	assert.True(t, exists, "case folding covers non-ASCII letters")

	created.Title = "Rechnung bezahlen"
	_, err = s.Update(ctx, created)
	require.NoError(t, err)

	exists, err = s.ExistsByTitle(ctx, "überweisung prüfen")
	require.NoError(t, err)
	assert.False(t, exists, "a renamed task no longer matches its old title")

	exists, err = s.ExistsByTitle(ctx, "RECHNUNG BEZAHLEN")
	require.NoError(t, err)
	assert.True(t, exists)
}

func testUpdate(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	created := MustCreate(t, s, Draft("Original", domain.TaskStatusTodo, DaysFromToday(2)))

	// Timestamps are kept at microsecond precision; make sure the clock moves.
	time.Sleep(2 * time.Millisecond)

	changed := created.Clone()
	description := "now described"
	changed.Title = "Changed"
	changed.Description = &description
	changed.Status = domain.TaskStatusDone
	changed.DueDate = nil
	changed.CreatedAt = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

	updated, err := s.Update(ctx, changed)
	require.NoError(t, err)

	assert.True(t, updated.Equal(created))
	assert.Equal(t, "Changed", updated.Title)
	assert.Equal(t, domain.TaskStatusDone, updated.Status)
	assert.Nil(t, updated.DueDate)
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt), "createdAt is immutable")
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt), "updatedAt is refreshed")

	fetched, err := s.GetByID(ctx, created.ID.Int64())
	require.NoError(t, err)
	assert.Equal(t, "Changed", fetched.Title)
	require.NotNil(t, fetched.Description)
	assert.Equal(t, description, *fetched.Description)
	assert.Equal(t, domain.TaskStatusDone, fetched.Status)
	assert.Nil(t, fetched.DueDate)
	assert.True(t, fetched.CreatedAt.Equal(created.CreatedAt))
	assert.True(t, fetched.UpdatedAt.Equal(updated.UpdatedAt))
}

func testUpdateNotFound(t *testing.T, s store.TaskStore) {
	ctx := context.Background()

	ghost := Draft("ghost", domain.TaskStatusTodo, nil)
	ghost.ID = domain.AssignedID(987654)
	_, err := s.Update(ctx, ghost)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	_, err = s.Update(ctx, Draft("transient", domain.TaskStatusTodo, nil))
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func testDelete(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	created := MustCreate(t, s, Draft("Doomed", domain.TaskStatusTodo, nil))
	kept := MustCreate(t, s, Draft("Kept", domain.TaskStatusTodo, nil))

	require.NoError(t, s.Delete(ctx, created.ID.Int64()))

	_, err := s.GetByID(ctx, created.ID.Int64())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	err = s.Delete(ctx, created.ID.Int64())
	assert.ErrorIs(t, err, store.ErrTaskNotFound, "deleting twice reports not found")

	_, err = s.GetByID(ctx, kept.ID.Int64())
	assert.NoError(t, err)
}
