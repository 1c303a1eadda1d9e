package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/store"
)

const sessionColumns = `id, operator_id, child_ref, phase, state, outcome_status, triage_level,
	created_at, updated_at, expires_at, completed_at`

// SessionStore implements store.SessionStore on SQLite.
type SessionStore struct {
	db store.DBTX
}

// NewSessionStore returns a SessionStore using db.
func NewSessionStore(db store.DBTX) *SessionStore {
	return &SessionStore{db: db}
}

var _ store.SessionStore = (*SessionStore)(nil)

// Create implements store.SessionStore.Create
func (s *SessionStore) Create(ctx context.Context, session *domain.ScreeningSession) error {
	if err := session.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO screening_sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID.String(),
		session.OperatorID.String(),
		session.ChildRef,
		string(session.Phase),
		[]byte(session.State),
		nullable(session.OutcomeStatus),
		nullable(session.TriageLevel),
		session.CreatedAt.UTC(),
		session.UpdatedAt.UTC(),
		session.ExpiresAt.UTC(),
		nullableTime(session.CompletedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %v", store.ErrSessionExists, err)
		}
		return store.NewStoreError("screening_session", "create", "insert failed", err)
	}
	return nil
}

// GetByID implements store.SessionStore.GetByID
func (s *SessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScreeningSession, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM screening_sessions WHERE id = ?`, id.String())
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrSessionNotFound
	}
	if err != nil {
		return nil, store.NewStoreError("screening_session", "get", "query failed", err)
	}
	return session, nil
}

// GetForUpdate implements store.SessionStore.GetForUpdate. SQLite has no row
// locks; the single connection already serializes transactions.
func (s *SessionStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.ScreeningSession, error) {
	return s.GetByID(ctx, id)
}

// Update implements store.SessionStore.Update
func (s *SessionStore) Update(ctx context.Context, session *domain.ScreeningSession) error {
	if err := session.Validate(); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE screening_sessions
		SET phase = ?, state = ?, outcome_status = ?, triage_level = ?,
			updated_at = ?, expires_at = ?, completed_at = ?
		WHERE id = ?`,
		string(session.Phase),
		[]byte(session.State),
		nullable(session.OutcomeStatus),
		nullable(session.TriageLevel),
		session.UpdatedAt.UTC(),
		session.ExpiresAt.UTC(),
		nullableTime(session.CompletedAt),
		session.ID.String(),
	)
	if err != nil {
		return store.NewStoreError("screening_session", "update", "update failed", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

// ListByOperator implements store.SessionStore.ListByOperator
func (s *SessionStore) ListByOperator(
	ctx context.Context,
	operatorID uuid.UUID,
	limit, offset int,
) ([]*domain.ScreeningSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM screening_sessions
		WHERE operator_id = ?
		ORDER BY updated_at DESC, id
		LIMIT ? OFFSET ?`, operatorID.String(), limit, offset)
	if err != nil {
		return nil, store.NewStoreError("screening_session", "list", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	sessions := []*domain.ScreeningSession{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, store.NewStoreError("screening_session", "list", "scan failed", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// DeleteExpired implements store.SessionStore.DeleteExpired
func (s *SessionStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM screening_sessions WHERE completed_at IS NULL AND expires_at < ?`, before.UTC())
	if err != nil {
		return 0, store.NewStoreError("screening_session", "delete_expired", "delete failed", err)
	}
	return result.RowsAffected()
}

// WithTx implements store.SessionStore.WithTx
func (s *SessionStore) WithTx(tx *sql.Tx) store.SessionStore {
	return &SessionStore{db: tx}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.ScreeningSession, error) {
	var (
		session               domain.ScreeningSession
		id, operatorID, phase string
		state                 []byte
		outcome, level        sql.NullString
		completedAt           sql.NullTime
	)
	if err := row.Scan(&id, &operatorID, &session.ChildRef, &phase, &state, &outcome, &level,
		&session.CreatedAt, &session.UpdatedAt, &session.ExpiresAt, &completedAt); err != nil {
		return nil, err
	}

	var err error
	if session.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid session id %q: %w", id, err)
	}
	if session.OperatorID, err = uuid.Parse(operatorID); err != nil {
		return nil, fmt.Errorf("invalid operator id %q: %w", operatorID, err)
	}
	session.Phase = domain.Phase(phase)
	session.State = state
	if outcome.Valid {
		v := domain.OutcomeStatus(outcome.String)
		session.OutcomeStatus = &v
	}
	if level.Valid {
		v := domain.TriageLevel(level.String)
		session.TriageLevel = &v
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		session.CompletedAt = &t
	}
	return &session, nil
}

func nullable[T ~string](v *T) any {
	if v == nil {
		return nil
	}
	return string(*v)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
