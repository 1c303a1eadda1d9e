package sqlite

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticleStore(t *testing.T) {
	t.Parallel() // Enable parallel execution

	db := openTestDB(t)
	ctx := context.Background()
	sessions := NewSessionStore(db)
	articles := NewArticleStore(db)

	session := newSession(t, uuid.New())
	require.NoError(t, sessions.Create(ctx, session))

	empty, err := articles.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)

	a, err := domain.NewEducationArticle(session.ID, "diarrhea", "Diare pada balita",
		"Cara mencegah dehidrasi saat anak diare.", "https://ayosehat.kemkes.go.id/diare", "", "gemini-2.5-flash")
	require.NoError(t, err)
	require.NoError(t, articles.Create(ctx, a))

	got, err := articles.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, "Diare pada balita", got[0].Title)
	assert.Equal(t, a.Link, got[0].Link)

	orphan, err := domain.NewEducationArticle(uuid.New(), "flu", "Flu", "d", "https://example.org", "", "m")
	require.NoError(t, err)
	assert.ErrorIs(t, articles.Create(ctx, orphan), store.ErrSessionNotFound)

	invalid := *a
	invalid.Link = "not a url"
	assert.ErrorIs(t, articles.Create(ctx, &invalid), domain.ErrArticleLinkInvalid)
}
