//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/platform/postgres"
	"github.com/mydudu/screening-api/internal/store"
	"github.com/mydudu/screening-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_SessionLifecycle(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	sessions := postgres.NewPostgresSessionStore(db, nil)
	articles := postgres.NewPostgresArticleStore(db, nil)

	session, err := domain.NewScreeningSession(uuid.New(), "ref-"+uuid.NewString(), json.RawMessage(`{"phase":"MEASUREMENTS"}`), time.Minute)
	require.NoError(t, err)
	require.NoError(t, sessions.Create(ctx, session))
	assert.ErrorIs(t, sessions.Create(ctx, session), store.ErrSessionExists)

	err = store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		locked, err := sessions.WithTx(tx).GetForUpdate(ctx, session.ID)
		if err != nil {
			return err
		}
		locked.Phase = domain.PhaseResult
		locked.State = json.RawMessage(`{"phase":"RESULT"}`)
		locked.Complete(domain.ScreeningOutcome{
			Status:      domain.OutcomeInconclusive,
			TriageLevel: domain.TriagePending,
		}, time.Now())
		return sessions.WithTx(tx).Update(ctx, locked)
	})
	require.NoError(t, err)

	got, err := sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseResult, got.Phase)
	require.NotNil(t, got.OutcomeStatus)
	assert.Equal(t, domain.OutcomeInconclusive, *got.OutcomeStatus)

	article, err := domain.NewEducationArticle(session.ID, "growth", "Tumbuh Kembang", "d", "https://www.idai.or.id", "", "m")
	require.NoError(t, err)
	require.NoError(t, articles.Create(ctx, article))
	list, err := articles.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	list2, err := sessions.ListByOperator(ctx, session.OperatorID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list2, 1)

	// Completed sessions survive expiry sweeps.
	n, err := sessions.DeleteExpired(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(0))
	_, err = sessions.GetByID(ctx, session.ID)
	assert.NoError(t, err)

	version, err := postgres.MigrationVersion(ctx, db, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)
}

func TestIntegration_TransactionIsolation(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	operator := uuid.New()

	var sessionID uuid.UUID
	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		sessions := postgres.NewPostgresSessionStore(tx, nil)
		session, err := domain.NewScreeningSession(operator, "ref-"+uuid.NewString(), json.RawMessage(`{"phase":"MEASUREMENTS"}`), time.Minute)
		require.NoError(t, err)
		require.NoError(t, sessions.Create(ctx, session))
		sessionID = session.ID

		list, err := sessions.ListByOperator(ctx, operator, 10, 0)
		require.NoError(t, err)
		assert.Len(t, list, 1, "the row is visible inside the transaction")
	})

	_, err := postgres.NewPostgresSessionStore(db, nil).GetByID(ctx, sessionID)
	assert.ErrorIs(t, err, store.ErrSessionNotFound, "the row is rolled back afterwards")
}
