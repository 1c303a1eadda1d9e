package mocks

import (
	"context"
	"sync"

	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/generation"
)

// MockArticleGenerator implements generation.ArticleGenerator for testing.
type MockArticleGenerator struct {
	// GenerateArticleFn overrides the default behavior when set.
	GenerateArticleFn func(ctx context.Context, req generation.ArticleRequest) (*domain.EducationArticle, error)

	// Article and Err are returned when GenerateArticleFn is nil. A nil
	// Article with a nil Err yields a valid article built from the request.
	Article *domain.EducationArticle
	Err     error

	mu       sync.Mutex
	requests []generation.ArticleRequest
}

var _ generation.ArticleGenerator = (*MockArticleGenerator)(nil)

// GenerateArticle implements generation.ArticleGenerator.
func (m *MockArticleGenerator) GenerateArticle(
	ctx context.Context,
	req generation.ArticleRequest,
) (*domain.EducationArticle, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.GenerateArticleFn != nil {
		return m.GenerateArticleFn(ctx, req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Article != nil {
		return m.Article, nil
	}
	return domain.NewEducationArticle(
		req.SessionID,
		req.Topic,
		"About "+req.Topic,
		"Reading for caregivers.",
		"https://ayosehat.kemkes.go.id/",
		"",
		"mock-model",
	)
}

// Calls returns the number of GenerateArticle calls so far.
func (m *MockArticleGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request received, in call order.
func (m *MockArticleGenerator) Requests() []generation.ArticleRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generation.ArticleRequest(nil), m.requests...)
}

// MockArticleGeneratorThatFails returns a generator that always fails with a
// permanent error.
func MockArticleGeneratorThatFails() *MockArticleGenerator {
	return &MockArticleGenerator{Err: generation.ErrGenerationFailed}
}

// MockArticleGeneratorWithTransientFailure returns a generator that always
// fails with a retryable error.
func MockArticleGeneratorWithTransientFailure() *MockArticleGenerator {
	return &MockArticleGenerator{Err: generation.ErrTransientFailure}
}
