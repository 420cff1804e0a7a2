package testdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetTestDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("TASKS_TEST_DB_URL", "")
	assert.Empty(t, GetTestDatabaseURL())
	assert.False(t, IsIntegrationTestEnvironment())

	t.Setenv("TASKS_TEST_DB_URL", "postgres://fallback/tasks")
	assert.Equal(t, "postgres://fallback/tasks", GetTestDatabaseURL())

	t.Setenv("DATABASE_URL", "postgres://primary/tasks")
	assert.Equal(t, "postgres://primary/tasks", GetTestDatabaseURL())
	assert.True(t, IsIntegrationTestEnvironment())
}

func TestGetTestDBWithTSkipsWithoutURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("TASKS_TEST_DB_URL", "")

	skipped := true
	t.Run("skips", func(t *testing.T) {
		GetTestDBWithT(t)
		skipped = false
	})
	assert.True(t, skipped, "GetTestDBWithT should skip when no URL is configured")
}
