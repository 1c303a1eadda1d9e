package api

import (
	"log/slog"
	"net/http"

	"github.com/mydudu/screening-api/internal/api/shared"
	"github.com/mydudu/screening-api/internal/domain"
	"github.com/mydudu/screening-api/internal/platform/logger"
	"github.com/mydudu/screening-api/internal/service/screening"
)

// ScreeningHandler handles the operator-scoped screening session routes.
type ScreeningHandler struct {
	service screening.Service
	logger  *slog.Logger
}

// NewScreeningHandler creates a new ScreeningHandler.
func NewScreeningHandler(service screening.Service, logger *slog.Logger) *ScreeningHandler {
	if service == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("screening service cannot be nil for ScreeningHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ScreeningHandler{
		service: service,
		logger:  logger.With(slog.String("component", "screening_handler")),
	}
}

// StartSession handles POST /api/screenings.
func (h *ScreeningHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	operatorID, ok := shared.OperatorIDFromContext(r.Context())
	if !ok {
		log.Warn("operator ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	var req StartSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	view, err := h.service.StartSession(r.Context(), operatorID, req.ChildRef)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start screening")
		return
	}

	w.Header().Set("Location", "/api/screenings/"+view.Record.ID.String())
	shared.RespondWithJSON(w, r, http.StatusCreated, sessionToResponse(view))
}

// ListSessions handles GET /api/screenings?limit=&offset=.
func (h *ScreeningHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := shared.OperatorIDFromContext(r.Context())
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	limit, err := queryInt(r, "limit", screening.DefaultListLimit)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if limit > screening.MaxListLimit {
		limit = screening.MaxListLimit
	}

	list, err := h.service.ListSessions(r.Context(), operatorID, limit, offset)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list screenings")
		return
	}

	resp := ListSessionsResponse{
		Sessions: make([]SessionSummaryResponse, 0, len(list)),
		Limit:    limit,
		Offset:   offset,
	}
	for _, s := range list {
		resp.Sessions = append(resp.Sessions, sessionToSummary(s))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetSession handles GET /api/screenings/{id}.
func (h *ScreeningHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	operatorID, sessionID, ok := handleOperatorAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	view, err := h.service.GetSession(r.Context(), operatorID, sessionID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get screening")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(view))
}

// RecordMeasurements handles POST /api/screenings/{id}/measurements.
func (h *ScreeningHandler) RecordMeasurements(w http.ResponseWriter, r *http.Request) {
	operatorID, sessionID, ok := handleOperatorAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req MeasurementsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	view, err := h.service.RecordMeasurements(r.Context(), operatorID, sessionID, req.Profile())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record measurements")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(view))
}

// GetPrompt handles GET /api/screenings/{id}/prompt.
func (h *ScreeningHandler) GetPrompt(w http.ResponseWriter, r *http.Request) {
	operatorID, sessionID, ok := handleOperatorAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	prompt, err := h.service.GetPrompt(r.Context(), operatorID, sessionID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get the next question")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, prompt)
}

// AnswerRedFlag handles POST /api/screenings/{id}/red-flags.
func (h *ScreeningHandler) AnswerRedFlag(w http.ResponseWriter, r *http.Request) {
	operatorID, sessionID, ok := handleOperatorAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req RedFlagAnswerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	view, err := h.service.AnswerRedFlag(r.Context(), operatorID, sessionID, req.FlagID, *req.Answer)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to answer red flag")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(view))
}

// AnswerQuestion handles POST /api/screenings/{id}/answers.
func (h *ScreeningHandler) AnswerQuestion(w http.ResponseWriter, r *http.Request) {
	operatorID, sessionID, ok := handleOperatorAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req QuestionAnswerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	view, err := h.service.AnswerQuestion(r.Context(), operatorID, sessionID, req.SymptomID, req.AnswerValue())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to answer question")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(view))
}

// ResetSession handles POST /api/screenings/{id}/reset.
func (h *ScreeningHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	operatorID, sessionID, ok := handleOperatorAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	view, err := h.service.ResetSession(r.Context(), operatorID, sessionID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to reset screening")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(view))
}

// GetHistory handles GET /api/screenings/{id}/history.
func (h *ScreeningHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	operatorID, sessionID, ok := handleOperatorAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	entries, err := h.service.GetHistory(r.Context(), operatorID, sessionID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get screening history")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, HistoryResponse{SessionID: sessionID, Entries: entries})
}

// VerifySession handles GET /api/screenings/{id}/verify.
func (h *ScreeningHandler) VerifySession(w http.ResponseWriter, r *http.Request) {
	operatorID, sessionID, ok := handleOperatorAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	result, err := h.service.VerifySession(r.Context(), operatorID, sessionID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to verify screening")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// ListArticles handles GET /api/screenings/{id}/articles.
func (h *ScreeningHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	operatorID, sessionID, ok := handleOperatorAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	list, err := h.service.ListArticles(r.Context(), operatorID, sessionID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list articles")
		return
	}

	resp := ArticlesResponse{SessionID: sessionID, Articles: make([]ArticleResponse, 0, len(list))}
	for _, a := range list {
		resp.Articles = append(resp.Articles, articleToResponse(a))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
