package metrics

import (
	"sync"
	"sync/atomic"
)

// Interface records output cache activity.
type Interface interface {
	IncHit()
	IncMiss()
	IncStored()
	// IncBypass counts requests served without the cache (lock timeouts,
	// uncacheable requests, non-cacheable responses).
	IncBypass(reason string)
	// AddInvalidated counts purged items per invalidation kind
	// ("tag", "route", "prefix", "key", "all").
	AddInvalidated(kind string, n int)
}

// Noop discards all measurements.
type Noop struct{}

func (Noop) IncHit()                        {}
func (Noop) IncMiss()                       {}
func (Noop) IncStored()                     {}
func (Noop) IncBypass(_ string)             {}
func (Noop) AddInvalidated(_ string, _ int) {}

// OrNoop returns m, or Noop when m is nil.
func OrNoop(m Interface) Interface {
	if m == nil {
		return Noop{}
	}
	return m
}

// Simple keeps counts in memory. Useful in tests and for a quick status page.
type Simple struct {
	Hit    atomic.Uint64
	Miss   atomic.Uint64
	Stored atomic.Uint64

	mu          sync.Mutex
	bypass      map[string]uint64
	invalidated map[string]uint64
}

func NewSimple() *Simple {
	return &Simple{
		bypass:      make(map[string]uint64),
		invalidated: make(map[string]uint64),
	}
}

func (m *Simple) IncHit()    { m.Hit.Add(1) }
func (m *Simple) IncMiss()   { m.Miss.Add(1) }
func (m *Simple) IncStored() { m.Stored.Add(1) }

func (m *Simple) IncBypass(reason string) {
	m.mu.Lock()
	m.bypass[reason]++
	m.mu.Unlock()
}

func (m *Simple) AddInvalidated(kind string, n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.invalidated[kind] += uint64(n)
	m.mu.Unlock()
}

// Bypass returns the bypass count for reason.
func (m *Simple) Bypass(reason string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bypass[reason]
}

// Invalidated returns the purge count for kind.
func (m *Simple) Invalidated(kind string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.invalidated[kind]
}
