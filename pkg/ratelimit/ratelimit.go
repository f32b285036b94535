// Package ratelimit implements fixed-window request limiting keyed by client.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type Result struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Counter is the storage primitive behind a fixed window: increment key and
// report the window's remaining lifetime.
type Counter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type FixedWindow struct {
	counter Counter
	limit   int
	window  time.Duration
	prefix  string
}

func NewFixedWindow(counter Counter, prefix string, limit int, window time.Duration) *FixedWindow {
	return &FixedWindow{
		counter: counter,
		limit:   limit,
		window:  window,
		prefix:  prefix,
	}
}

func (l *FixedWindow) Allow(ctx context.Context, key string) (Result, error) {
	count, ttl, err := l.counter.IncrWindow(ctx, l.prefix+key, l.window)
	if err != nil {
		return Result{}, err
	}
	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	if ttl < 0 {
		ttl = l.window
	}
	return Result{
		Allowed:   int(count) <= l.limit,
		Remaining: remaining,
		ResetIn:   ttl,
	}, nil
}

type memoryEntry struct {
	count   int64
	expires time.Time
}

// MemoryCounter is a process-local Counter used when no redis is configured.
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryCounter) IncrWindow(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.entries[key]
	if !ok || !now.Before(e.expires) {
		e = &memoryEntry{expires: now.Add(window)}
		m.entries[key] = e
		m.sweep(now)
	}
	e.count++
	return e.count, e.expires.Sub(now), nil
}

// sweep drops expired windows; called on window creation only.
func (m *MemoryCounter) sweep(now time.Time) {
	for k, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, k)
		}
	}
}
