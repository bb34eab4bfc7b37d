package timer

import (
	"sync"
	"time"
)

// Clock abstracts the passage of time so countdowns can be driven by
// virtual time in tests.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type wallClock struct{}

func (wallClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// NewWallClock returns a Clock backed by the real time package.
func NewWallClock() Clock { return wallClock{} }

// ManualClock is a hand-cranked Clock for deterministic tests.
type ManualClock struct {
	mu      sync.Mutex
	waiters []chan time.Time
}

// NewManualClock is test-only for deterministic countdowns.
func NewManualClock() *ManualClock { return &ManualClock{} }

func (m *ManualClock) After(_ time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	m.mu.Lock()
	m.waiters = append(m.waiters, ch)
	m.mu.Unlock()
	return ch
}

// Advance delivers n ticks, waiting for a waiter to register if the
// countdown goroutine has not reached its next wait yet.
func (m *ManualClock) Advance(n int) {
	for i := 0; i < n; i++ {
		for {
			m.mu.Lock()
			if len(m.waiters) > 0 {
				ch := m.waiters[0]
				m.waiters = m.waiters[1:]
				m.mu.Unlock()
				ch <- time.Now()
				break
			}
			m.mu.Unlock()
			time.Sleep(time.Millisecond)
		}
	}
}
