package api

import (
	"context"

	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/domain/growth"
	"github.com/mydudu/screening-api/internal/domain/inference"
	fsm "github.com/mydudu/screening-api/internal/domain/screening"
	"github.com/mydudu/screening-api/internal/knowledge"
	"github.com/mydudu/screening-api/internal/service/screening"
	"github.com/stretchr/testify/mock"
)

// MockScreeningService is a testify mock of screening.Service.
type MockScreeningService struct {
	mock.Mock
}

var _ screening.Service = (*MockScreeningService)(nil)

func (m *MockScreeningService) view(args mock.Arguments) (*screening.SessionView, error) {
	v, _ := args.Get(0).(*screening.SessionView)
	return v, args.Error(1)
}

func (m *MockScreeningService) StartSession(
	ctx context.Context,
	operatorID uuid.UUID,
	childRef string,
) (*screening.SessionView, error) {
	return m.view(m.Called(ctx, operatorID, childRef))
}

func (m *MockScreeningService) RecordMeasurements(
	ctx context.Context,
	operatorID, sessionID uuid.UUID,
	profile domain.ChildProfile,
) (*screening.SessionView, error) {
	return m.view(m.Called(ctx, operatorID, sessionID, profile))
}

func (m *MockScreeningService) GetPrompt(ctx context.Context, operatorID, sessionID uuid.UUID) (*fsm.Prompt, error) {
	args := m.Called(ctx, operatorID, sessionID)
	p, _ := args.Get(0).(*fsm.Prompt)
	return p, args.Error(1)
}

func (m *MockScreeningService) AnswerRedFlag(
	ctx context.Context,
	operatorID, sessionID uuid.UUID,
	flagID string,
	yes bool,
) (*screening.SessionView, error) {
	return m.view(m.Called(ctx, operatorID, sessionID, flagID, yes))
}

func (m *MockScreeningService) AnswerQuestion(
	ctx context.Context,
	operatorID, sessionID uuid.UUID,
	symptomID string,
	value inference.AnswerValue,
) (*screening.SessionView, error) {
	return m.view(m.Called(ctx, operatorID, sessionID, symptomID, value))
}

func (m *MockScreeningService) GetSession(
	ctx context.Context,
	operatorID, sessionID uuid.UUID,
) (*screening.SessionView, error) {
	return m.view(m.Called(ctx, operatorID, sessionID))
}

func (m *MockScreeningService) GetHistory(
	ctx context.Context,
	operatorID, sessionID uuid.UUID,
) ([]fsm.HistoryEntry, error) {
	args := m.Called(ctx, operatorID, sessionID)
	h, _ := args.Get(0).([]fsm.HistoryEntry)
	return h, args.Error(1)
}

func (m *MockScreeningService) ResetSession(
	ctx context.Context,
	operatorID, sessionID uuid.UUID,
) (*screening.SessionView, error) {
	return m.view(m.Called(ctx, operatorID, sessionID))
}

func (m *MockScreeningService) ListSessions(
	ctx context.Context,
	operatorID uuid.UUID,
	limit, offset int,
) ([]*domain.ScreeningSession, error) {
	args := m.Called(ctx, operatorID, limit, offset)
	list, _ := args.Get(0).([]*domain.ScreeningSession)
	return list, args.Error(1)
}

func (m *MockScreeningService) VerifySession(
	ctx context.Context,
	operatorID, sessionID uuid.UUID,
) (*screening.VerifyResult, error) {
	args := m.Called(ctx, operatorID, sessionID)
	r, _ := args.Get(0).(*screening.VerifyResult)
	return r, args.Error(1)
}

func (m *MockScreeningService) ListArticles(
	ctx context.Context,
	operatorID, sessionID uuid.UUID,
) ([]*domain.EducationArticle, error) {
	args := m.Called(ctx, operatorID, sessionID)
	list, _ := args.Get(0).([]*domain.EducationArticle)
	return list, args.Error(1)
}

func (m *MockScreeningService) EvaluateGrowth(ctx context.Context, profile domain.ChildProfile) (*growth.Report, error) {
	args := m.Called(ctx, profile)
	r, _ := args.Get(0).(*growth.Report)
	return r, args.Error(1)
}

func (m *MockScreeningService) Knowledge() knowledge.Summary {
	return m.Called().Get(0).(knowledge.Summary)
}

func (m *MockScreeningService) PurgeExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
