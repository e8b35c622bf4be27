package ask

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"resumeqa/internal/answer"
	"resumeqa/internal/asklog"
	"resumeqa/internal/middleware"
	"resumeqa/internal/ratelimit"
)

var ErrQuestionRequired = errors.New("question is required")

type Limiter interface {
	CheckAndAdmit(identity string) ratelimit.Decision
	Stats(identity string) ratelimit.Stats
}

type Answerer interface {
	Answer(ctx context.Context, question string) (*answer.Result, error)
}

type Request struct {
	Identity string
	Question string
}

// Reply carries either an answer or, when Denial is set, a rate limit denial.
type Reply struct {
	Answer  string
	Sources int
	Denial  *ratelimit.Decision
}

// Service runs the single request operation: admit, then answer.
type Service struct {
	limiter  Limiter
	answerer Answerer
	recorder asklog.Recorder
}

func NewService(l Limiter, a Answerer, rec asklog.Recorder) *Service {
	if rec == nil {
		rec = asklog.Nop{}
	}
	return &Service{limiter: l, answerer: a, recorder: rec}
}

// Ask admits before validating, so malformed requests still count against the caller.
// A denial is a normal Reply, never an error.
func (s *Service) Ask(ctx context.Context, req Request) (*Reply, error) {
	start := time.Now()

	d := s.limiter.CheckAndAdmit(req.Identity)
	if !d.Allowed {
		slog.InfoContext(ctx, "question denied", "identity", req.Identity, "limit_type", d.LimitType, "retry_at", d.RetryAt)
		s.record(ctx, req, asklog.OutcomeDenied, 0, start)
		return &Reply{Denial: &d}, nil
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrQuestionRequired
	}
	req.Question = question

	res, err := s.answerer.Answer(ctx, question)
	if err != nil {
		s.record(ctx, req, asklog.OutcomeFailed, 0, start)
		return nil, fmt.Errorf("answer question: %w", err)
	}

	s.record(ctx, req, asklog.OutcomeAnswered, len(res.Sources), start)
	return &Reply{Answer: res.Answer, Sources: len(res.Sources)}, nil
}

func (s *Service) Limits(identity string) ratelimit.Stats {
	return s.limiter.Stats(identity)
}

func (s *Service) record(ctx context.Context, req Request, outcome asklog.Outcome, sources int, start time.Time) {
	err := s.recorder.Record(ctx, asklog.Entry{
		Question:      req.Question,
		Identity:      req.Identity,
		Outcome:       outcome,
		NumSources:    sources,
		Duration:      time.Since(start),
		CorrelationID: middleware.GetCorrelationID(ctx),
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to record question", "error", err)
	}
}
