package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/platform/logger"
	"github.com/mydudu/screening-api/internal/store"
)

const sessionColumns = `id, operator_id, child_ref, phase, state, outcome_status, triage_level,
	created_at, updated_at, expires_at, completed_at`

// PostgresSessionStore implements the store.SessionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSessionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSessionStore creates a new PostgreSQL implementation of the SessionStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresSessionStore(db store.DBTX, logger *slog.Logger) *PostgresSessionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSessionStore{
		db:     db,
		logger: logger.With(slog.String("component", "session_store")),
	}
}

// Ensure PostgresSessionStore implements store.SessionStore interface
var _ store.SessionStore = (*PostgresSessionStore)(nil)

// Create implements store.SessionStore.Create
func (s *PostgresSessionStore) Create(ctx context.Context, session *domain.ScreeningSession) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := session.Validate(); err != nil {
		log.Warn("session validation failed during create",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return err
	}

	query := `
		INSERT INTO screening_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query, sessionArgs(session)...)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", store.ErrSessionExists, err)
		}
		log.Error("failed to create session",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return store.NewStoreError("screening_session", "create", "insert failed", MapError(err))
	}

	log.Debug("session created",
		slog.String("session_id", session.ID.String()),
		slog.String("operator_id", session.OperatorID.String()))
	return nil
}

// GetByID implements store.SessionStore.GetByID
func (s *PostgresSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScreeningSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM screening_sessions WHERE id = $1`
	return s.get(ctx, query, id)
}

// GetForUpdate implements store.SessionStore.GetForUpdate
func (s *PostgresSessionStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.ScreeningSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM screening_sessions WHERE id = $1 FOR UPDATE`
	return s.get(ctx, query, id)
}

func (s *PostgresSessionStore) get(ctx context.Context, query string, id uuid.UUID) (*domain.ScreeningSession, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	session, err := scanSession(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("session not found", slog.String("session_id", id.String()))
			return nil, store.ErrSessionNotFound
		}
		log.Error("failed to get session",
			slog.String("error", err.Error()),
			slog.String("session_id", id.String()))
		return nil, store.NewStoreError("screening_session", "get", "query failed", MapError(err))
	}
	return session, nil
}

// Update implements store.SessionStore.Update
func (s *PostgresSessionStore) Update(ctx context.Context, session *domain.ScreeningSession) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := session.Validate(); err != nil {
		log.Warn("session validation failed during update",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return err
	}

	query := `
		UPDATE screening_sessions
		SET phase = $1, state = $2, outcome_status = $3, triage_level = $4,
			updated_at = $5, expires_at = $6, completed_at = $7
		WHERE id = $8
	`
	result, err := s.db.ExecContext(ctx, query,
		string(session.Phase),
		[]byte(session.State),
		nullableString(session.OutcomeStatus),
		nullableString(session.TriageLevel),
		session.UpdatedAt,
		session.ExpiresAt,
		session.CompletedAt,
		session.ID,
	)
	if err != nil {
		log.Error("failed to update session",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return store.NewStoreError("screening_session", "update", "update failed", MapError(err))
	}

	if err := CheckRowsAffected(result, store.ErrSessionNotFound); err != nil {
		return err
	}

	log.Debug("session updated",
		slog.String("session_id", session.ID.String()),
		slog.String("phase", string(session.Phase)))
	return nil
}

// ListByOperator implements store.SessionStore.ListByOperator
func (s *PostgresSessionStore) ListByOperator(
	ctx context.Context,
	operatorID uuid.UUID,
	limit, offset int,
) ([]*domain.ScreeningSession, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + sessionColumns + `
		FROM screening_sessions
		WHERE operator_id = $1
		ORDER BY updated_at DESC, id
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.QueryContext(ctx, query, operatorID, limit, offset)
	if err != nil {
		log.Error("failed to list sessions",
			slog.String("error", err.Error()),
			slog.String("operator_id", operatorID.String()))
		return nil, store.NewStoreError("screening_session", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	sessions := make([]*domain.ScreeningSession, 0, limit)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, store.NewStoreError("screening_session", "list", "scan failed", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("screening_session", "list", "iteration failed", err)
	}
	return sessions, nil
}

// DeleteExpired implements store.SessionStore.DeleteExpired
func (s *PostgresSessionStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM screening_sessions WHERE completed_at IS NULL AND expires_at < $1`,
		before.UTC(),
	)
	if err != nil {
		log.Error("failed to delete expired sessions", slog.String("error", err.Error()))
		return 0, store.NewStoreError("screening_session", "delete_expired", "delete failed", MapError(err))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		log.Info("deleted expired sessions", slog.Int64("count", n))
	}
	return n, nil
}

// WithTx implements store.SessionStore.WithTx
func (s *PostgresSessionStore) WithTx(tx *sql.Tx) store.SessionStore {
	return &PostgresSessionStore{db: tx, logger: s.logger}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.ScreeningSession, error) {
	var (
		session     domain.ScreeningSession
		phase       string
		state       []byte
		outcome     sql.NullString
		triageLevel sql.NullString
		completedAt sql.NullTime
	)

	err := row.Scan(
		&session.ID,
		&session.OperatorID,
		&session.ChildRef,
		&phase,
		&state,
		&outcome,
		&triageLevel,
		&session.CreatedAt,
		&session.UpdatedAt,
		&session.ExpiresAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	session.Phase = domain.Phase(phase)
	session.State = state
	if outcome.Valid {
		status := domain.OutcomeStatus(outcome.String)
		session.OutcomeStatus = &status
	}
	if triageLevel.Valid {
		level := domain.TriageLevel(triageLevel.String)
		session.TriageLevel = &level
	}
	if completedAt.Valid {
		t := completedAt.Time
		session.CompletedAt = &t
	}
	return &session, nil
}

func sessionArgs(s *domain.ScreeningSession) []any {
	return []any{
		s.ID,
		s.OperatorID,
		s.ChildRef,
		string(s.Phase),
		[]byte(s.State),
		nullableString(s.OutcomeStatus),
		nullableString(s.TriageLevel),
		s.CreatedAt,
		s.UpdatedAt,
		s.ExpiresAt,
		s.CompletedAt,
	}
}

func nullableString[T ~string](v *T) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*v), Valid: true}
}
