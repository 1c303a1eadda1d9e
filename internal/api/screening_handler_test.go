package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mydudu/screening-api/internal/api/shared"
	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/domain/inference"
	fsm "github.com/mydudu/screening-api/internal/domain/screening"
	"github.com/mydudu/screening-api/internal/domain/triage"
	"github.com/mydudu/screening-api/internal/service/screening"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// newTestRouter mounts the screening routes. A non-nil operatorID is placed
// in every request context the way the auth middleware does.
func newTestRouter(svc screening.Service, operatorID uuid.UUID) http.Handler {
	h := NewScreeningHandler(svc, nil)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if operatorID != uuid.Nil {
				req = req.WithContext(shared.WithOperatorID(req.Context(), operatorID))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/api/screenings", func(r chi.Router) {
		r.Post("/", h.StartSession)
		r.Get("/", h.ListSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Post("/measurements", h.RecordMeasurements)
			r.Get("/prompt", h.GetPrompt)
			r.Post("/red-flags", h.AnswerRedFlag)
			r.Post("/answers", h.AnswerQuestion)
			r.Post("/reset", h.ResetSession)
			r.Get("/history", h.GetHistory)
			r.Get("/verify", h.VerifySession)
			r.Get("/articles", h.ListArticles)
		})
	})
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var body shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func redFlagView(operatorID uuid.UUID) *screening.SessionView {
	rec := &domain.ScreeningSession{
		ID:         uuid.New(),
		OperatorID: operatorID,
		ChildRef:   "cr_0123456789abcdef0123456789abcdef",
		Phase:      domain.PhaseRedFlags,
		CreatedAt:  testNow,
		UpdatedAt:  testNow,
		ExpiresAt:  testNow.Add(30 * time.Minute),
	}
	return &screening.SessionView{
		Record: rec,
		State: fsm.Session{
			Phase:   domain.PhaseRedFlags,
			Triage:  triage.State{Answers: []bool{false}},
			History: []fsm.HistoryEntry{{Step: 1, Phase: domain.PhaseRedFlags, QuestionID: "unable_to_drink"}},
		},
		Prompt: &fsm.Prompt{Kind: fsm.PromptRedFlag, ID: "vomits_everything", Question: "Muntah terus?", Step: 2},
	}
}

func TestStartSession(t *testing.T) {
	t.Parallel() // Enable parallel execution

	operatorID := uuid.New()

	tests := []struct {
		name           string
		operatorID     uuid.UUID
		body           string
		setup          func(*MockScreeningService, *screening.SessionView)
		expectedStatus int
		expectedError  string
	}{
		{
			name:       "created",
			operatorID: operatorID,
			body:       `{"child_ref":"KIA-0042"}`,
			setup: func(m *MockScreeningService, v *screening.SessionView) {
				m.On("StartSession", mock.Anything, operatorID, "KIA-0042").Return(v, nil).Once()
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "no operator",
			body:           `{"child_ref":"KIA-0042"}`,
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Authentication required",
		},
		{
			name:           "missing child ref",
			operatorID:     operatorID,
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid child_ref: required field",
		},
		{
			name:           "malformed json",
			operatorID:     operatorID,
			body:           `{"child_ref":`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid request format",
		},
		{
			name:       "blank child ref from service",
			operatorID: operatorID,
			body:       `{"child_ref":"   "}`,
			setup: func(m *MockScreeningService, _ *screening.SessionView) {
				m.On("StartSession", mock.Anything, operatorID, "   ").
					Return(nil, screening.ErrInvalidChildRef).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Child reference is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel() // Enable parallel execution

			svc := &MockScreeningService{}
			view := redFlagView(operatorID)
			view.Record.Phase = domain.PhaseMeasurements
			view.State = fsm.Session{Phase: domain.PhaseMeasurements, History: []fsm.HistoryEntry{}}
			view.Prompt = nil
			if tt.setup != nil {
				tt.setup(svc, view)
			}

			rr := doRequest(t, newTestRouter(svc, tt.operatorID), http.MethodPost, "/api/screenings", tt.body)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, decodeError(t, rr).Error)
			} else {
				var resp SessionResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				assert.Equal(t, view.Record.ID, resp.ID)
				assert.Equal(t, domain.PhaseMeasurements, resp.Phase)
				assert.Equal(t, "/api/screenings/"+view.Record.ID.String(), rr.Header().Get("Location"))
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestAnswerRedFlag(t *testing.T) {
	t.Parallel() // Enable parallel execution

	operatorID := uuid.New()
	view := redFlagView(operatorID)
	sessionID := view.Record.ID
	path := "/api/screenings/" + sessionID.String() + "/red-flags"

	tests := []struct {
		name           string
		path           string
		body           string
		setup          func(*MockScreeningService)
		expectedStatus int
		expectedError  string
	}{
		{
			name: "answered",
			path: path,
			body: `{"answer":false}`,
			setup: func(m *MockScreeningService) {
				m.On("AnswerRedFlag", mock.Anything, operatorID, sessionID, "", false).Return(view, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "answered with matching flag",
			path: path,
			body: `{"flag_id":"vomits_everything","answer":true}`,
			setup: func(m *MockScreeningService) {
				m.On("AnswerRedFlag", mock.Anything, operatorID, sessionID, "vomits_everything", true).Return(view, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "stale flag",
			path: path,
			body: `{"flag_id":"unable_to_drink","answer":true}`,
			setup: func(m *MockScreeningService) {
				m.On("AnswerRedFlag", mock.Anything, operatorID, sessionID, "unable_to_drink", true).
					Return(nil, screening.ErrStalePrompt).Once()
			},
			expectedStatus: http.StatusConflict,
			expectedError:  "Question is no longer current",
		},
		{
			name:           "answer missing",
			path:           path,
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid answer: required field",
		},
		{
			name:           "bad session id",
			path:           "/api/screenings/not-a-uuid/red-flags",
			body:           `{"answer":false}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid ID",
		},
		{
			name: "wrong phase",
			path: path,
			body: `{"answer":false}`,
			setup: func(m *MockScreeningService) {
				m.On("AnswerRedFlag", mock.Anything, operatorID, sessionID, "", false).
					Return(nil, &screening.ServiceError{Operation: "answer_red_flag", Err: fsm.ErrInvalidPhase}).Once()
			},
			expectedStatus: http.StatusConflict,
			expectedError:  "This step is not available in the screening's current phase",
		},
		{
			name: "expired",
			path: path,
			body: `{"answer":false}`,
			setup: func(m *MockScreeningService) {
				m.On("AnswerRedFlag", mock.Anything, operatorID, sessionID, "", false).
					Return(nil, screening.ErrSessionExpired).Once()
			},
			expectedStatus: http.StatusGone,
			expectedError:  "Screening has expired, start a new one",
		},
		{
			name: "not owned",
			path: path,
			body: `{"answer":false}`,
			setup: func(m *MockScreeningService) {
				m.On("AnswerRedFlag", mock.Anything, operatorID, sessionID, "", false).
					Return(nil, screening.ErrSessionNotOwned).Once()
			},
			expectedStatus: http.StatusForbidden,
			expectedError:  "You do not have access to this screening",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel() // Enable parallel execution

			svc := &MockScreeningService{}
			if tt.setup != nil {
				tt.setup(svc)
			}

			rr := doRequest(t, newTestRouter(svc, operatorID), http.MethodPost, tt.path, tt.body)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, decodeError(t, rr).Error)
			} else {
				var resp SessionResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				assert.Equal(t, domain.PhaseRedFlags, resp.Phase)
				assert.Equal(t, 1, resp.RedFlagsAnswered)
				require.NotNil(t, resp.Prompt)
				assert.Equal(t, "vomits_everything", resp.Prompt.ID)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestAnswerQuestion(t *testing.T) {
	t.Parallel() // Enable parallel execution

	operatorID := uuid.New()
	sessionID := uuid.New()
	path := "/api/screenings/" + sessionID.String() + "/answers"

	quiz := redFlagView(operatorID)
	quiz.Record.ID = sessionID
	quiz.Record.Phase = domain.PhaseQuiz
	quiz.State.Phase = domain.PhaseQuiz
	quiz.State.Inference = &inference.State{
		Status: inference.StatusActive,
		Hypotheses: []inference.Hypothesis{
			{ID: "dengue", Name: "Demam Berdarah", Probability: 0.7, Urgent: true},
			{ID: "flu", Name: "Flu", Probability: 0.3},
		},
	}
	quiz.Prompt = &fsm.Prompt{Kind: fsm.PromptSymptom, ID: "bleeding", Question: "Ada perdarahan?", Step: 7}

	t.Run("answered", func(t *testing.T) {
		t.Parallel() // Enable parallel execution

		svc := &MockScreeningService{}
		svc.On("AnswerQuestion", mock.Anything, operatorID, sessionID, "fever", inference.AnswerYes).
			Return(quiz, nil).Once()

		rr := doRequest(t, newTestRouter(svc, operatorID), http.MethodPost, path,
			`{"symptom_id":"fever","value":"yes"}`)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp SessionResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Len(t, resp.Differential, 2)
		assert.Equal(t, "dengue", resp.Differential[0].ID)
		assert.InDelta(t, 0.7, resp.Differential[0].Probability, 1e-9)
		assert.Equal(t, "bleeding", resp.Prompt.ID)
		svc.AssertExpectations(t)
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Parallel() // Enable parallel execution

		svc := &MockScreeningService{}
		rr := doRequest(t, newTestRouter(svc, operatorID), http.MethodPost, path,
			`{"symptom_id":"fever","value":"maybe"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Invalid value: must be one of yes no dont_know", decodeError(t, rr).Error)
	})

	t.Run("unknown symptom carries suggestions", func(t *testing.T) {
		t.Parallel() // Enable parallel execution

		svc := &MockScreeningService{}
		svc.On("AnswerQuestion", mock.Anything, operatorID, sessionID, "fevr", inference.AnswerNo).
			Return(nil, &screening.UnknownSymptomError{SymptomID: "fevr", Suggestions: []string{"fever"}}).Once()

		rr := doRequest(t, newTestRouter(svc, operatorID), http.MethodPost, path,
			`{"symptom_id":"fevr","value":"no"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		body := decodeError(t, rr)
		assert.Equal(t, `Unknown symptom "fevr"`, body.Error)
		assert.Equal(t, []string{"fever"}, body.Suggestions)
		svc.AssertExpectations(t)
	})
}

func TestListSessions(t *testing.T) {
	t.Parallel() // Enable parallel execution

	operatorID := uuid.New()
	status := domain.OutcomeEmergency
	list := []*domain.ScreeningSession{{
		ID:            uuid.New(),
		OperatorID:    operatorID,
		ChildRef:      "cr_aaaa",
		Phase:         domain.PhaseResult,
		OutcomeStatus: &status,
		State:         []byte(`{"phase":"RESULT"}`),
	}}

	tests := []struct {
		name           string
		query          string
		wantLimit      int
		wantOffset     int
		expectedStatus int
	}{
		{name: "defaults", query: "", wantLimit: screening.DefaultListLimit, expectedStatus: http.StatusOK},
		{name: "paged", query: "?limit=5&offset=10", wantLimit: 5, wantOffset: 10, expectedStatus: http.StatusOK},
		{name: "clamped", query: "?limit=5000", wantLimit: screening.MaxListLimit, expectedStatus: http.StatusOK},
		{name: "bad limit", query: "?limit=-1", expectedStatus: http.StatusBadRequest},
		{name: "bad offset", query: "?offset=abc", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel() // Enable parallel execution

			svc := &MockScreeningService{}
			if tt.expectedStatus == http.StatusOK {
				svc.On("ListSessions", mock.Anything, operatorID, tt.wantLimit, tt.wantOffset).Return(list, nil).Once()
			}

			rr := doRequest(t, newTestRouter(svc, operatorID), http.MethodGet, "/api/screenings"+tt.query, "")

			require.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedStatus == http.StatusOK {
				var resp ListSessionsResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				require.Len(t, resp.Sessions, 1)
				assert.Equal(t, tt.wantLimit, resp.Limit)
				assert.Equal(t, domain.OutcomeEmergency, *resp.Sessions[0].OutcomeStatus)
				assert.NotContains(t, rr.Body.String(), `"state"`)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestReadRoutes(t *testing.T) {
	t.Parallel() // Enable parallel execution

	operatorID := uuid.New()
	view := redFlagView(operatorID)
	sessionID := view.Record.ID
	base := "/api/screenings/" + sessionID.String()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		setup  func(*MockScreeningService)
		check  func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:   "get session",
			method: http.MethodGet,
			path:   base,
			setup: func(m *MockScreeningService) {
				m.On("GetSession", mock.Anything, operatorID, sessionID).Return(view, nil).Once()
			},
			check: func(t *testing.T, rr *httptest.ResponseRecorder) {
				var resp SessionResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				assert.Equal(t, 1, resp.Steps)
			},
		},
		{
			name:   "prompt",
			method: http.MethodGet,
			path:   base + "/prompt",
			setup: func(m *MockScreeningService) {
				m.On("GetPrompt", mock.Anything, operatorID, sessionID).Return(view.Prompt, nil).Once()
			},
			check: func(t *testing.T, rr *httptest.ResponseRecorder) {
				var p fsm.Prompt
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
				assert.Equal(t, fsm.PromptRedFlag, p.Kind)
				assert.Equal(t, 2, p.Step)
			},
		},
		{
			name:   "measurements",
			method: http.MethodPost,
			path:   base + "/measurements",
			body:   `{"sex":"female","age_days":548,"weight_kg":10.2,"height_cm":80.5,"temperature_c":38.4}`,
			setup: func(m *MockScreeningService) {
				m.On("RecordMeasurements", mock.Anything, operatorID, sessionID,
					mock.MatchedBy(func(p domain.ChildProfile) bool {
						return p.Sex == domain.SexFemale && p.AgeDays == 548 &&
							p.TemperatureC != nil && *p.TemperatureC == 38.4
					})).Return(view, nil).Once()
			},
		},
		{
			name:   "reset",
			method: http.MethodPost,
			path:   base + "/reset",
			setup: func(m *MockScreeningService) {
				m.On("ResetSession", mock.Anything, operatorID, sessionID).Return(view, nil).Once()
			},
		},
		{
			name:   "history",
			method: http.MethodGet,
			path:   base + "/history",
			setup: func(m *MockScreeningService) {
				m.On("GetHistory", mock.Anything, operatorID, sessionID).Return(view.State.History, nil).Once()
			},
			check: func(t *testing.T, rr *httptest.ResponseRecorder) {
				var resp HistoryResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				require.Len(t, resp.Entries, 1)
				assert.Equal(t, "unable_to_drink", resp.Entries[0].QuestionID)
			},
		},
		{
			name:   "verify",
			method: http.MethodGet,
			path:   base + "/verify",
			setup: func(m *MockScreeningService) {
				m.On("VerifySession", mock.Anything, operatorID, sessionID).
					Return(&screening.VerifyResult{SessionID: sessionID, Valid: true, Steps: 1}, nil).Once()
			},
			check: func(t *testing.T, rr *httptest.ResponseRecorder) {
				assert.JSONEq(t, `{"session_id":"`+sessionID.String()+`","valid":true,"steps":1}`, rr.Body.String())
			},
		},
		{
			name:   "articles",
			method: http.MethodGet,
			path:   base + "/articles",
			setup: func(m *MockScreeningService) {
				m.On("ListArticles", mock.Anything, operatorID, sessionID).Return([]*domain.EducationArticle{
					{ID: uuid.New(), SessionID: sessionID, Topic: "dengue", Title: "Kenali DBD", Model: "gemini"},
				}, nil).Once()
			},
			check: func(t *testing.T, rr *httptest.ResponseRecorder) {
				var resp ArticlesResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				require.Len(t, resp.Articles, 1)
				assert.Equal(t, "Kenali DBD", resp.Articles[0].Title)
				assert.NotContains(t, rr.Body.String(), "gemini")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel() // Enable parallel execution

			svc := &MockScreeningService{}
			tt.setup(svc)

			rr := doRequest(t, newTestRouter(svc, operatorID), tt.method, tt.path, tt.body)

			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			if tt.check != nil {
				tt.check(t, rr)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestGetSession_NotFound(t *testing.T) {
	t.Parallel() // Enable parallel execution

	operatorID := uuid.New()
	sessionID := uuid.New()
	svc := &MockScreeningService{}
	svc.On("GetSession", mock.Anything, operatorID, sessionID).Return(nil, screening.ErrSessionNotFound).Once()

	rr := doRequest(t, newTestRouter(svc, operatorID), http.MethodGet, "/api/screenings/"+sessionID.String(), "")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Screening not found", decodeError(t, rr).Error)
}
