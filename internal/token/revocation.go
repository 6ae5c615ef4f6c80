package token

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/adamscao/pic-certificates/internal/audit"
	"github.com/adamscao/pic-certificates/internal/auth"
	"github.com/adamscao/pic-certificates/internal/models"
	"go.uber.org/zap"
)

// DefaultMaxEntries is the revocation registry high-water mark
const DefaultMaxEntries = 10000

// Registry tracks tokens that must be rejected regardless of signature validity
type Registry interface {
	// Add revokes token until expiresAt; a zero expiresAt keeps it until evicted.
	Add(ctx context.Context, token string, expiresAt time.Time) error
	// Revoke is Add for single-use tokens: it reports whether token was
	// already revoked, and exactly one concurrent caller sees false.
	Revoke(ctx context.Context, token string, expiresAt time.Time) (alreadyRevoked bool, err error)
	IsBlacklisted(ctx context.Context, token string) bool
}

type expiryEntry struct {
	key       string
	expiresAt time.Time
}

// expiryHeap is a min-heap of entries ordered by expiry
type expiryHeap []expiryEntry

func (h expiryHeap) Len() int            { return len(h) }
func (h expiryHeap) Less(i, j int) bool  { return h[i].expiresAt.Before(h[j].expiresAt) }
func (h expiryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *expiryHeap) Push(x interface{}) { *h = append(*h, x.(expiryEntry)) }
func (h *expiryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// MemoryRegistry is an in-process revocation set indexed by expiry.
// Entries are keyed by token fingerprint.
type MemoryRegistry struct {
	mu         sync.Mutex
	entries    map[string]time.Time
	expiries   expiryHeap
	maxEntries int
	now        func() time.Time
	logger     *zap.Logger
	sink       audit.Sink
}

// RegistryOption configures a MemoryRegistry
type RegistryOption func(*MemoryRegistry)

// WithRegistryClock overrides the time source
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *MemoryRegistry) {
		r.now = now
	}
}

// NewMemoryRegistry creates an empty registry
func NewMemoryRegistry(maxEntries int, logger *zap.Logger, sink audit.Sink, opts ...RegistryOption) *MemoryRegistry {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = audit.Nop{}
	}

	r := &MemoryRegistry{
		entries:    make(map[string]time.Time),
		maxEntries: maxEntries,
		now:        time.Now,
		logger:     logger.With(zap.String("component", "revocation_registry")),
		sink:       sink,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add revokes a token. When the registry is at its high-water mark the whole
// set is cleared before the new entry is stored.
func (r *MemoryRegistry) Add(_ context.Context, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweepLocked(now)
	r.addLocked(auth.Fingerprint(token), expiresAt, now)
	return nil
}

// Revoke records token unless a live revocation already exists. The check
// and the insert happen under one lock.
func (r *MemoryRegistry) Revoke(_ context.Context, token string, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweepLocked(now)

	key := auth.Fingerprint(token)
	if current, ok := r.entries[key]; ok && (current.IsZero() || now.Before(current)) {
		return true, nil
	}
	r.addLocked(key, expiresAt, now)
	return false, nil
}

func (r *MemoryRegistry) addLocked(key string, expiresAt, now time.Time) {
	if !expiresAt.IsZero() && !expiresAt.After(now) {
		return
	}

	if _, exists := r.entries[key]; !exists && len(r.entries) >= r.maxEntries {
		dropped := len(r.entries)
		r.entries = make(map[string]time.Time)
		r.expiries = nil
		r.logger.Warn("Revocation registry reached high-water mark, cleared",
			zap.Int("dropped", dropped),
			zap.Int("max_entries", r.maxEntries))
		r.sink.Log(models.EventRevocationRegistryClear, map[string]interface{}{
			"dropped":     dropped,
			"max_entries": r.maxEntries,
		})
	}

	r.entries[key] = expiresAt
	if !expiresAt.IsZero() {
		heap.Push(&r.expiries, expiryEntry{key: key, expiresAt: expiresAt})
	}
}

// IsBlacklisted reports whether token is revoked and its revocation has not lapsed
func (r *MemoryRegistry) IsBlacklisted(_ context.Context, token string) bool {
	key := auth.Fingerprint(token)

	r.mu.Lock()
	defer r.mu.Unlock()

	expiresAt, ok := r.entries[key]
	if !ok {
		return false
	}
	if !expiresAt.IsZero() && !r.now().Before(expiresAt) {
		delete(r.entries, key)
		return false
	}
	return true
}

// Sweep drops every entry whose expiry has passed and returns how many were removed
func (r *MemoryRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked(r.now())
}

// Len returns the number of tracked entries
func (r *MemoryRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Run sweeps on every tick until ctx is cancelled
func (r *MemoryRegistry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := r.Sweep(); removed > 0 {
				r.logger.Debug("Swept expired revocations", zap.Int("removed", removed))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (r *MemoryRegistry) sweepLocked(now time.Time) int {
	removed := 0
	for r.expiries.Len() > 0 && !r.expiries[0].expiresAt.After(now) {
		entry := heap.Pop(&r.expiries).(expiryEntry)
		// A re-added token leaves a stale heap entry behind; only the
		// current expiry removes it.
		if current, ok := r.entries[entry.key]; ok && current.Equal(entry.expiresAt) {
			delete(r.entries, entry.key)
			removed++
		}
	}
	return removed
}
