// Package store declares the persistence contracts for screening sessions and
// education articles, plus the sentinel errors every backend maps to. The
// Postgres and SQLite packages under internal/platform implement them.
package store
