package asklog

import (
	"context"
	"errors"
	"time"
)

type Outcome string

const (
	OutcomeAnswered Outcome = "answered"
	OutcomeDenied   Outcome = "denied"
	OutcomeFailed   Outcome = "failed"
)

// Entry is one question received by the service.
type Entry struct {
	ID            int64         `json:"id,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
	Question      string        `json:"question"`
	Identity      string        `json:"identity"`
	Outcome       Outcome       `json:"outcome"`
	NumSources    int           `json:"num_sources"`
	Duration      time.Duration `json:"duration_ns"`
	LatencyMs     int64         `json:"latency_ms"`
	CorrelationID string        `json:"correlation_id"`
}

type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Multi records to every recorder and joins their errors.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, entry Entry) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

func stamp(e *Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	e.LatencyMs = e.Duration.Milliseconds()
}
