package clock

import (
	"sync"
	"time"
)

// Clock abstracts wall-clock access so session timing can be driven
// deterministically in tests. All elapsed/remaining values are re-derived
// from a fixed start timestamp on every read — never decremented per tick —
// so coalesced or delayed timer callbacks cannot drift the session.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Real returns a Clock backed by time.Now.
func Real() Clock { return realClock{} }

// Mock is a manually-advanced Clock for tests. Safe for concurrent use;
// test goroutines advance it while run loops read it.
type Mock struct {
	mu      sync.Mutex
	current time.Time
}

func NewMock(start time.Time) *Mock {
	return &Mock{current: start}
}

func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Advance moves the mock clock forward.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	m.current = m.current.Add(d)
	m.mu.Unlock()
}

// Set jumps the mock clock to an absolute time.
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	m.current = t
	m.mu.Unlock()
}
