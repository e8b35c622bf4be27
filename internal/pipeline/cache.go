package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"resumeqa/internal/answer"
)

type State string

const (
	StateAbsent   State = "absent"
	StateBuilding State = "building"
	StateReady    State = "ready"
)

const buildKey = "pipeline"

type BuildFunc func(ctx context.Context) (*Pipeline, error)

// Cache owns the process-wide Pipeline. At most one build runs at a time;
// callers arriving during a build share its outcome. A failed build leaves
// the cache empty so the next Get tries again.
type Cache struct {
	build        BuildFunc
	buildTimeout time.Duration

	group    singleflight.Group
	ready    atomic.Pointer[Pipeline]
	building atomic.Bool

	attempts atomic.Int64
	failures atomic.Int64
}

func NewCache(build BuildFunc, buildTimeout time.Duration) *Cache {
	return &Cache{build: build, buildTimeout: buildTimeout}
}

// Get returns the ready Pipeline, building it first if needed. The build runs
// detached from the caller's cancellation so an impatient caller cannot abort
// it for everyone else; the caller itself stops waiting when ctx is done.
func (c *Cache) Get(ctx context.Context) (*Pipeline, error) {
	if p := c.ready.Load(); p != nil {
		return p, nil
	}

	ch := c.group.DoChan(buildKey, func() (interface{}, error) {
		if p := c.ready.Load(); p != nil {
			return p, nil
		}
		return c.runBuild(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Pipeline), nil
	}
}

func (c *Cache) runBuild(ctx context.Context) (*Pipeline, error) {
	c.building.Store(true)
	defer c.building.Store(false)
	c.attempts.Add(1)

	if c.buildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.buildTimeout)
		defer cancel()
	}

	p, err := c.build(ctx)
	if err != nil {
		c.failures.Add(1)
		slog.ErrorContext(ctx, "pipeline build failed", "error", err)
		return nil, err
	}
	c.ready.Store(p)
	return p, nil
}

func (c *Cache) State() State {
	if c.ready.Load() != nil {
		return StateReady
	}
	if c.building.Load() {
		return StateBuilding
	}
	return StateAbsent
}

type Stats struct {
	State         State      `json:"state"`
	Chunks        int        `json:"chunks"`
	Dimension     int        `json:"dimension"`
	BuiltAt       *time.Time `json:"builtAt,omitempty"`
	BuildAttempts int64      `json:"buildAttempts"`
	BuildFailures int64      `json:"buildFailures"`
}

func (c *Cache) Stats() Stats {
	s := Stats{
		State:         c.State(),
		BuildAttempts: c.attempts.Load(),
		BuildFailures: c.failures.Load(),
	}
	if p := c.ready.Load(); p != nil {
		s.Chunks = p.Index.Len()
		s.Dimension = p.Index.Dimension()
		builtAt := p.BuiltAt
		s.BuiltAt = &builtAt
	}
	return s
}

// Answer gets the Pipeline, building it if needed, and answers the question.
func (c *Cache) Answer(ctx context.Context, question string) (*answer.Result, error) {
	p, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}
	return p.Answer(ctx, question)
}
