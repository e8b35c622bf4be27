package ask

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"resumeqa/internal/middleware"
)

const maxBodyBytes = 16 << 10

type Handler struct {
	service *Service
	now     func() time.Time
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service, now: time.Now}
}

type askRequest struct {
	Question string `json:"question"`
}

type AskResponse struct {
	Answer  string `json:"answer"`
	Sources int    `json:"sources"`
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := middleware.GetIdentity(ctx)

	// An undecodable body is treated as a missing question after admission.
	var req askRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.DebugContext(ctx, "invalid ask body", "error", err)
		req = askRequest{}
	}

	reply, err := h.service.Ask(ctx, Request{Identity: identity, Question: req.Question})
	if err != nil {
		if errors.Is(err, ErrQuestionRequired) {
			h.writeError(ctx, w, "VALIDATION_ERROR", "Question is required", http.StatusBadRequest)
			return
		}
		slog.ErrorContext(ctx, "failed to answer question", "error", err, "identity", identity)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Error processing your question. Please try again.", http.StatusInternalServerError)
		return
	}

	if d := reply.Denial; d != nil {
		h.writeDenial(ctx, w, d.Message, string(d.LimitType), d.RetryAt)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := AskResponse{Answer: reply.Answer, Sources: reply.Sources}
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// Limits reports the caller's own rate limit counters without consuming quota.
func (h *Handler) Limits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := h.service.Limits(middleware.GetIdentity(ctx))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": stats}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeDenial(ctx context.Context, w http.ResponseWriter, message, limitType string, retryAt time.Time) {
	secs := int(retryAt.Sub(h.now()).Seconds() + 0.999)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    "RATE_LIMITED",
			"message": message,
		},
		"limitType":     limitType,
		"retryAt":       retryAt.UTC().Format(time.RFC3339),
		"correlationId": middleware.GetCorrelationID(ctx),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
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
