package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/domain"
)

// ArticleStore defines the interface for education article persistence.
type ArticleStore interface {
	// Create saves an article. Returns ErrSessionNotFound when the referenced
	// session does not exist.
	Create(ctx context.Context, article *domain.EducationArticle) error

	// ListBySession returns the articles generated for a session, oldest first.
	// An empty slice is returned when there are none.
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.EducationArticle, error)

	// WithTx returns a new ArticleStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ArticleStore
}
