package screening

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/events"
	"github.com/mydudu/screening-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockSessionStore is a testify mock of store.SessionStore.
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Create(ctx context.Context, s *domain.ScreeningSession) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScreeningSession, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*domain.ScreeningSession)
	return s, args.Error(1)
}

func (m *MockSessionStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.ScreeningSession, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*domain.ScreeningSession)
	return s, args.Error(1)
}

func (m *MockSessionStore) Update(ctx context.Context, s *domain.ScreeningSession) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSessionStore) ListByOperator(
	ctx context.Context,
	operatorID uuid.UUID,
	limit, offset int,
) ([]*domain.ScreeningSession, error) {
	args := m.Called(ctx, operatorID, limit, offset)
	list, _ := args.Get(0).([]*domain.ScreeningSession)
	return list, args.Error(1)
}

func (m *MockSessionStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionStore) WithTx(*sql.Tx) store.SessionStore {
	return m
}

// MockArticleStore is a testify mock of store.ArticleStore.
type MockArticleStore struct {
	mock.Mock
}

func (m *MockArticleStore) Create(ctx context.Context, a *domain.EducationArticle) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockArticleStore) ListBySession(ctx context.Context, id uuid.UUID) ([]*domain.EducationArticle, error) {
	args := m.Called(ctx, id)
	list, _ := args.Get(0).([]*domain.EducationArticle)
	return list, args.Error(1)
}

func (m *MockArticleStore) WithTx(*sql.Tx) store.ArticleStore {
	return m
}

// memSessionStore keeps sessions in memory for multi-step flows.
type memSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]domain.ScreeningSession
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[uuid.UUID]domain.ScreeningSession)}
}

func (m *memSessionStore) Create(_ context.Context, s *domain.ScreeningSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return store.ErrSessionExists
	}
	m.sessions[s.ID] = *s
	return nil
}

func (m *memSessionStore) GetByID(_ context.Context, id uuid.UUID) (*domain.ScreeningSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	return &s, nil
}

func (m *memSessionStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.ScreeningSession, error) {
	return m.GetByID(ctx, id)
}

func (m *memSessionStore) Update(_ context.Context, s *domain.ScreeningSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return store.ErrSessionNotFound
	}
	m.sessions[s.ID] = *s
	return nil
}

func (m *memSessionStore) ListByOperator(
	_ context.Context,
	operatorID uuid.UUID,
	limit, offset int,
) ([]*domain.ScreeningSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ScreeningSession
	for _, s := range m.sessions {
		if s.OperatorID == operatorID {
			s := s
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if offset >= len(out) {
		return []*domain.ScreeningSession{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memSessionStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.CompletedAt == nil && s.ExpiresAt.Before(before) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *memSessionStore) WithTx(*sql.Tx) store.SessionStore {
	return m
}

// recordingEmitter keeps every emitted event.
type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.Event
	err    error
}

func (r *recordingEmitter) EmitEvent(_ context.Context, e *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingEmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
