package api

import (
	"log/slog"
	"net/http"

	"github.com/mydudu/screening-api/internal/api/shared"
	"github.com/mydudu/screening-api/internal/service/screening"
)

// ReferenceHandler serves the public, session-less routes: stateless growth
// evaluation and the knowledge base summary.
type ReferenceHandler struct {
	service screening.Service
	logger  *slog.Logger
}

// NewReferenceHandler creates a new ReferenceHandler.
func NewReferenceHandler(service screening.Service, logger *slog.Logger) *ReferenceHandler {
	if service == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("screening service cannot be nil for ReferenceHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReferenceHandler{
		service: service,
		logger:  logger.With(slog.String("component", "reference_handler")),
	}
}

// EvaluateGrowth handles POST /api/growth/evaluate.
func (h *ReferenceHandler) EvaluateGrowth(w http.ResponseWriter, r *http.Request) {
	var req MeasurementsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	report, err := h.service.EvaluateGrowth(r.Context(), req.Profile())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to evaluate growth")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, report)
}

// Knowledge handles GET /api/knowledge.
func (h *ReferenceHandler) Knowledge(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.service.Knowledge())
}
