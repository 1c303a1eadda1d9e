package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/domain"
)

// SessionStore defines the interface for screening session persistence.
type SessionStore interface {
	// Create saves a new session.
	// Returns ErrSessionExists if a session with the same ID is already stored
	// and validation errors if the session is invalid.
	Create(ctx context.Context, session *domain.ScreeningSession) error

	// GetByID retrieves a session by its unique ID.
	// Returns ErrSessionNotFound if the session does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ScreeningSession, error)

	// GetForUpdate retrieves a session and locks its row until the surrounding
	// transaction ends. Every state transition goes through this method so two
	// requests for the same session are applied one after the other.
	// Must be called on a store returned by WithTx.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.ScreeningSession, error)

	// Update overwrites the mutable fields of a session (phase, state, outcome
	// and timestamps). Returns ErrSessionNotFound if the session does not exist.
	Update(ctx context.Context, session *domain.ScreeningSession) error

	// ListByOperator returns the operator's sessions, most recently updated first.
	ListByOperator(
		ctx context.Context,
		operatorID uuid.UUID,
		limit, offset int,
	) ([]*domain.ScreeningSession, error)

	// DeleteExpired removes unfinished sessions whose expiry is before the
	// given time and returns the number removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)

	// WithTx returns a new SessionStore instance that uses the provided transaction.
	//
	// Example usage:
	//   err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
	//       s, err := sessionStore.WithTx(tx).GetForUpdate(ctx, id)
	//       ...
	//   })
	WithTx(tx *sql.Tx) SessionStore
}
