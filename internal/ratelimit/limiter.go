package ratelimit

import (
	"math"
	"sync"
	"time"

	"github.com/adamscao/pic-certificates/internal/apperror"
)

// Limiter is a fixed-window request counter keyed by client identifier.
// A client can make up to 2*max requests across a window boundary.
type Limiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	windows map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	count   int
	resetAt time.Time
}

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter int // seconds, set when rejected
	ResetAt    time.Time
}

// Option configures a Limiter
type Option func(*Limiter)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a limiter permitting max requests per window
func New(windowLen time.Duration, max int, opts ...Option) *Limiter {
	l := &Limiter{
		window:  windowLen,
		max:     max,
		windows: make(map[string]*bucket),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow counts one request for key
func (l *Limiter) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evict(now)

	// A window ends at resetAt; eviction and restart use the same boundary.
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &bucket{count: 1, resetAt: now.Add(l.window)}
		l.windows[key] = w
		return Decision{Allowed: true, Remaining: l.max - 1, ResetAt: w.resetAt}
	}

	if w.count < l.max {
		w.count++
		return Decision{Allowed: true, Remaining: l.max - w.count, ResetAt: w.resetAt}
	}

	retry := int(math.Ceil(w.resetAt.Sub(now).Seconds()))
	return Decision{Allowed: false, RetryAfter: retry, ResetAt: w.resetAt}
}

// Check is Allow expressed as an error carrying the retry delay
func (l *Limiter) Check(key string) error {
	d := l.Allow(key)
	if d.Allowed {
		return nil
	}
	return &apperror.RateLimitError{RetryAfter: d.RetryAfter}
}

// Len returns the number of tracked clients
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

func (l *Limiter) evict(now time.Time) {
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
		}
	}
}
