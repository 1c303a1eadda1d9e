package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/platform/logger"
	"github.com/mydudu/screening-api/internal/store"
)

// PostgresArticleStore implements the store.ArticleStore interface
// using a PostgreSQL database as the storage backend.
type PostgresArticleStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresArticleStore creates a new PostgreSQL implementation of the ArticleStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresArticleStore(db store.DBTX, logger *slog.Logger) *PostgresArticleStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresArticleStore{
		db:     db,
		logger: logger.With(slog.String("component", "article_store")),
	}
}

// Ensure PostgresArticleStore implements store.ArticleStore interface
var _ store.ArticleStore = (*PostgresArticleStore)(nil)

// Create implements store.ArticleStore.Create
// Returns store.ErrSessionNotFound if the session doesn't exist (foreign key violation).
func (s *PostgresArticleStore) Create(ctx context.Context, article *domain.EducationArticle) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := article.Validate(); err != nil {
		log.Warn("article validation failed during create",
			slog.String("error", err.Error()),
			slog.String("article_id", article.ID.String()))
		return err
	}

	query := `
		INSERT INTO education_articles
			(id, session_id, topic, title, description, link, image, model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		article.ID,
		article.SessionID,
		article.Topic,
		article.Title,
		article.Description,
		article.Link,
		article.Image,
		article.Model,
		article.CreatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("article references unknown session",
				slog.String("article_id", article.ID.String()),
				slog.String("session_id", article.SessionID.String()))
			return store.ErrSessionNotFound
		}
		log.Error("failed to create article",
			slog.String("error", err.Error()),
			slog.String("article_id", article.ID.String()))
		return store.NewStoreError("education_article", "create", "insert failed", MapError(err))
	}

	log.Info("education article stored",
		slog.String("article_id", article.ID.String()),
		slog.String("session_id", article.SessionID.String()),
		slog.String("topic", article.Topic))
	return nil
}

// ListBySession implements store.ArticleStore.ListBySession
func (s *PostgresArticleStore) ListBySession(
	ctx context.Context,
	sessionID uuid.UUID,
) ([]*domain.EducationArticle, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, session_id, topic, title, description, link, image, model, created_at
		FROM education_articles
		WHERE session_id = $1
		ORDER BY created_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		log.Error("failed to list articles",
			slog.String("error", err.Error()),
			slog.String("session_id", sessionID.String()))
		return nil, store.NewStoreError("education_article", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	articles := []*domain.EducationArticle{}
	for rows.Next() {
		var a domain.EducationArticle
		if err := rows.Scan(
			&a.ID,
			&a.SessionID,
			&a.Topic,
			&a.Title,
			&a.Description,
			&a.Link,
			&a.Image,
			&a.Model,
			&a.CreatedAt,
		); err != nil {
			return nil, store.NewStoreError("education_article", "list", "scan failed", err)
		}
		articles = append(articles, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("education_article", "list", "iteration failed", err)
	}
	return articles, nil
}

// WithTx implements store.ArticleStore.WithTx
func (s *PostgresArticleStore) WithTx(tx *sql.Tx) store.ArticleStore {
	return &PostgresArticleStore{db: tx, logger: s.logger}
}
