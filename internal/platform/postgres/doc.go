// Package postgres provides the PostgreSQL implementation of store.TaskStore
// together with the embedded goose migrations that create its schema.
// Queries run through store.DBTX, so a store can be bound to a *sql.DB or
// to a caller-managed *sql.Tx.
package postgres
