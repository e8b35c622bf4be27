package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	minuteWindow = time.Minute
	hourWindow   = time.Hour
)

type LimitType string

const (
	LimitMinute LimitType = "minute"
	LimitHour   LimitType = "hour"
)

type Config struct {
	PerMinute    int
	PerHour      int
	OwnerName    string
	ContactEmail string
}

type Decision struct {
	Allowed   bool
	LimitType LimitType
	RetryAt   time.Time
	Message   string
}

type Stats struct {
	MinuteCount int       `json:"minuteCount"`
	HourCount   int       `json:"hourCount"`
	MinuteLimit int       `json:"minuteLimit"`
	HourLimit   int       `json:"hourLimit"`
	MinuteReset time.Time `json:"minuteReset"`
	HourReset   time.Time `json:"hourReset"`
}

type record struct {
	minuteCount int
	minuteStart time.Time
	hourCount   int
	hourStart   time.Time
}

// Limiter admits requests per client identity under two fixed windows,
// one minute and one hour. Windows start at the first request after the
// previous window elapsed, not on clock boundaries.
type Limiter struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	records map[string]*record
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(cfg Config, opts ...Option) *Limiter {
	l := &Limiter{
		cfg:     cfg,
		now:     time.Now,
		records: make(map[string]*record),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckAndAdmit decides and, when allowed, counts the request in both windows
// as one atomic step per identity. Denied requests are not counted.
func (l *Limiter) CheckAndAdmit(identity string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.records[identity]
	if !ok {
		r = &record{minuteStart: now, hourStart: now}
		l.records[identity] = r
	}
	r.roll(now)

	if r.minuteCount >= l.cfg.PerMinute {
		retryAt := r.minuteStart.Add(minuteWindow)
		return Decision{
			LimitType: LimitMinute,
			RetryAt:   retryAt,
			Message:   l.minuteMessage(now, retryAt),
		}
	}
	if r.hourCount >= l.cfg.PerHour {
		retryAt := r.hourStart.Add(hourWindow)
		return Decision{
			LimitType: LimitHour,
			RetryAt:   retryAt,
			Message:   l.hourMessage(retryAt),
		}
	}

	r.minuteCount++
	r.hourCount++
	return Decision{Allowed: true}
}

// Stats reports the identity's counters without admitting anything.
func (l *Limiter) Stats(identity string) Stats {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	s := Stats{
		MinuteLimit: l.cfg.PerMinute,
		HourLimit:   l.cfg.PerHour,
		MinuteReset: now.Add(minuteWindow),
		HourReset:   now.Add(hourWindow),
	}
	r, ok := l.records[identity]
	if !ok {
		return s
	}
	// Roll a copy so reading never moves the stored windows.
	rc := *r
	rc.roll(now)
	s.MinuteCount = rc.minuteCount
	s.HourCount = rc.hourCount
	s.MinuteReset = rc.minuteStart.Add(minuteWindow)
	s.HourReset = rc.hourStart.Add(hourWindow)
	return s
}

// Cleanup drops identities idle for more than two hour windows and
// returns how many were removed.
func (l *Limiter) Cleanup() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, r := range l.records {
		if now.Sub(r.hourStart) > 2*hourWindow {
			delete(l.records, id)
			removed++
		}
	}
	return removed
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Run calls Cleanup every interval until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Cleanup(); n > 0 {
				slog.DebugContext(ctx, "rate limit records cleaned", "removed", n, "remaining", l.Len())
			}
		}
	}
}

// roll starts a fresh window once the previous one has strictly elapsed.
func (r *record) roll(now time.Time) {
	if now.Sub(r.minuteStart) > minuteWindow {
		r.minuteCount = 0
		r.minuteStart = now
	}
	if now.Sub(r.hourStart) > hourWindow {
		r.hourCount = 0
		r.hourStart = now
	}
}

func (l *Limiter) minuteMessage(now, retryAt time.Time) string {
	secs := int((retryAt.Sub(now) + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("Rate limit exceeded. Please try again in %d seconds.", secs)
}

func (l *Limiter) hourMessage(retryAt time.Time) string {
	msg := fmt.Sprintf("You've reached the hourly question limit. Please wait until %s", retryAt.Format(time.TimeOnly))
	switch {
	case l.cfg.OwnerName != "" && l.cfg.ContactEmail != "":
		msg += fmt.Sprintf(" or contact %s directly at %s with your questions.", l.cfg.OwnerName, l.cfg.ContactEmail)
	case l.cfg.ContactEmail != "":
		msg += fmt.Sprintf(" or reach out directly at %s with your questions.", l.cfg.ContactEmail)
	default:
		msg += "."
	}
	return msg
}
