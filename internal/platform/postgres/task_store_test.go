//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/phrazzld/taskmanager-api/internal/domain"
	"github.com/phrazzld/taskmanager-api/internal/platform/logger"
	"github.com/phrazzld/taskmanager-api/internal/platform/postgres"
	"github.com/phrazzld/taskmanager-api/internal/store"
	"github.com/phrazzld/taskmanager-api/internal/store/storetest"
	"github.com/phrazzld/taskmanager-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresTaskStoreContract(t *testing.T) {
	db := testdb.GetTestDBWithT(t)
	log, _ := logger.NewTestLogger()

	storetest.RunTaskStoreContract(t, func(t *testing.T) store.TaskStore {
		// Each subtest sees only its own rows: they are rolled back afterwards.
		tx := testdb.BeginTx(t, db)
		_, err := tx.ExecContext(context.Background(), "DELETE FROM tasks")
		require.NoError(t, err)
		return postgres.NewPostgresTaskStore(tx, log)
	})
}

func TestPostgresTaskStoreCheckConstraint(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		s := postgres.NewPostgresTaskStore(tx, nil)

		_, err := s.Create(context.Background(),
			storetest.Draft("bad status", domain.TaskStatus("BLOCKED"), nil))

		require.Error(t, err)
		assert.True(t, store.IsStorageError(err))
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})
}

func TestPostgresTaskStoreClock(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		clock := time.Date(2025, time.February, 3, 4, 5, 6, 7008009, time.UTC)
		s := postgres.NewPostgresTaskStore(tx, nil, postgres.WithClock(func() time.Time { return clock }))

		created, err := s.Create(context.Background(), storetest.Draft("clocked", domain.TaskStatusTodo, nil))
		require.NoError(t, err)

		fetched, err := s.GetByID(context.Background(), created.ID.Int64())
		require.NoError(t, err)
		assert.True(t, fetched.CreatedAt.Equal(clock.Truncate(time.Microsecond)))
	})
}
