package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"resumeqa/internal/asklog"
	"resumeqa/internal/middleware"
	"resumeqa/internal/pipeline"
)

type PipelineStats interface {
	Stats() pipeline.Stats
}

type RateTable interface {
	Len() int
}

type QuestionCounter interface {
	Count(ctx context.Context) (int, error)
}

type RecentQuestions interface {
	Recent(ctx context.Context, limit int) ([]asklog.Entry, error)
}

const recentLimit = 10

type Handler struct {
	pipeline  PipelineStats
	rateTable RateTable
	questions QuestionCounter
	recent    RecentQuestions
}

// NewHandler builds the stats handler. questions and recent may be nil.
func NewHandler(p PipelineStats, r RateTable, q QuestionCounter, recent RecentQuestions) *Handler {
	return &Handler{pipeline: p, rateTable: r, questions: q, recent: recent}
}

type StatsResponse struct {
	Pipeline        pipeline.Stats `json:"pipeline"`
	TrackedClients  int            `json:"tracked_clients"`
	QuestionsLogged *int           `json:"questions_logged,omitempty"`
	RecentQuestions []asklog.Entry `json:"recent_questions,omitempty"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	slog.InfoContext(ctx, "getting stats", "correlationId", correlationID)

	resp := StatsResponse{
		Pipeline:       h.pipeline.Stats(),
		TrackedClients: h.rateTable.Len(),
	}

	if h.questions != nil {
		qCount, err := h.questions.Count(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "failed to count questions", "error", err, "correlationId", correlationID)
			h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count questions", http.StatusInternalServerError)
			return
		}
		resp.QuestionsLogged = &qCount
	}

	if h.recent != nil {
		recent, err := h.recent.Recent(ctx, recentLimit)
		if err != nil {
			slog.ErrorContext(ctx, "failed to list recent questions", "error", err, "correlationId", correlationID)
			h.writeError(ctx, w, "INTERNAL_ERROR", "failed to list recent questions", http.StatusInternalServerError)
			return
		}
		resp.RecentQuestions = recent
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
