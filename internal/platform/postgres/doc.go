// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces defined in the internal/store and internal/task packages.
// It owns the schema (embedded goose migrations), connection setup on the pgx
// database/sql driver, and the mapping between domain entities and rows.
package postgres
