package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/store"
)

// ArticleStore implements store.ArticleStore on SQLite.
type ArticleStore struct {
	db store.DBTX
}

// NewArticleStore returns an ArticleStore using db.
func NewArticleStore(db store.DBTX) *ArticleStore {
	return &ArticleStore{db: db}
}

var _ store.ArticleStore = (*ArticleStore)(nil)

// Create implements store.ArticleStore.Create
func (s *ArticleStore) Create(ctx context.Context, a *domain.EducationArticle) error {
	if err := a.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO education_articles (id, session_id, topic, title, description, link, image, model, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.SessionID.String(), a.Topic, a.Title, a.Description, a.Link, a.Image, a.Model,
		a.CreatedAt.UTC())
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return fmt.Errorf("%w: %v", store.ErrSessionNotFound, err)
		}
		return store.NewStoreError("education_article", "create", "insert failed", err)
	}
	return nil
}

// ListBySession implements store.ArticleStore.ListBySession
func (s *ArticleStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.EducationArticle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, topic, title, description, link, image, model, created_at
		 FROM education_articles WHERE session_id = ? ORDER BY created_at, id`, sessionID.String())
	if err != nil {
		return nil, store.NewStoreError("education_article", "list", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	articles := []*domain.EducationArticle{}
	for rows.Next() {
		var (
			a        domain.EducationArticle
			id, sess string
		)
		if err := rows.Scan(&id, &sess, &a.Topic, &a.Title, &a.Description, &a.Link, &a.Image, &a.Model,
			&a.CreatedAt); err != nil {
			return nil, store.NewStoreError("education_article", "list", "scan failed", err)
		}
		if a.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid article id %q: %w", id, err)
		}
		if a.SessionID, err = uuid.Parse(sess); err != nil {
			return nil, fmt.Errorf("invalid session id %q: %w", sess, err)
		}
		articles = append(articles, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("education_article", "list", "iteration failed", err)
	}
	return articles, nil
}

// WithTx implements store.ArticleStore.WithTx
func (s *ArticleStore) WithTx(tx *sql.Tx) store.ArticleStore {
	return &ArticleStore{db: tx}
}
