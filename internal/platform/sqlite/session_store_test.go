package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "screen.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newSession(t *testing.T, operator uuid.UUID) *domain.ScreeningSession {
	t.Helper()
	s, err := domain.NewScreeningSession(operator, "child-1", json.RawMessage(`{"phase":"MEASUREMENTS"}`), 30*time.Minute)
	require.NoError(t, err)
	return s
}

func TestSessionStore_RoundTrip(t *testing.T) {
	t.Parallel() // Enable parallel execution

	db := openTestDB(t)
	s := NewSessionStore(db)
	ctx := context.Background()
	operator := uuid.New()

	session := newSession(t, operator)
	require.NoError(t, s.Create(ctx, session))
	assert.ErrorIs(t, s.Create(ctx, session), store.ErrSessionExists)

	got, err := s.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, operator, got.OperatorID)
	assert.Equal(t, domain.PhaseMeasurements, got.Phase)
	assert.Nil(t, got.CompletedAt)
	assert.WithinDuration(t, session.ExpiresAt, got.ExpiresAt, time.Millisecond)

	err = store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		locked, err := s.WithTx(tx).GetForUpdate(ctx, session.ID)
		if err != nil {
			return err
		}
		locked.State = json.RawMessage(`{"phase":"RESULT"}`)
		locked.Complete(domain.ScreeningOutcome{
			Status:      domain.OutcomeEmergency,
			TriageLevel: domain.TriageEmergency,
		}, time.Now())
		return s.WithTx(tx).Update(ctx, locked)
	})
	require.NoError(t, err)

	got, err = s.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseResult, got.Phase)
	require.NotNil(t, got.OutcomeStatus)
	assert.Equal(t, domain.OutcomeEmergency, *got.OutcomeStatus)
	require.NotNil(t, got.TriageLevel)
	assert.Equal(t, domain.TriageEmergency, *got.TriageLevel)
	require.NotNil(t, got.CompletedAt)
}

func TestSessionStore_NotFound(t *testing.T) {
	t.Parallel() // Enable parallel execution

	s := NewSessionStore(openTestDB(t))
	_, err := s.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
	assert.ErrorIs(t, s.Update(context.Background(), newSession(t, uuid.New())), store.ErrSessionNotFound)
}

func TestSessionStore_ListAndExpire(t *testing.T) {
	t.Parallel() // Enable parallel execution

	s := NewSessionStore(openTestDB(t))
	ctx := context.Background()
	operator := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Create(ctx, newSession(t, operator)))
	}
	require.NoError(t, s.Create(ctx, newSession(t, uuid.New())))

	list, err := s.ListByOperator(ctx, operator, 2, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	list, err = s.ListByOperator(ctx, operator, 10, 2)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	n, err := s.DeleteExpired(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	list, err = s.ListByOperator(ctx, operator, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}
