// Package timer implements the one-second countdown that drives time-based
// auto-submit. One goroutine ticks per attempt; the lifecycle controller is
// the only caller.
package timer

import (
	"errors"
	"sync"
	"time"
)

// ErrAlreadyStarted is returned when Start is called on a running countdown.
var ErrAlreadyStarted = errors.New("countdown already started")

// Countdown ticks once per second of wall time until it expires or is
// cancelled.
//
// Synchronization contract: tick callbacks run under the countdown mutex, so
// once Cancel returns no further onTick call can begin. The expiry callback
// disarms the countdown first and runs outside the mutex; a Cancel that loses
// that race blocks until the callback has returned, so after Cancel neither
// kind of callback can still be running. Callbacks must not call back into
// the same Countdown: onTick holds the mutex, and onExpire calling Cancel
// would wait on itself.
type Countdown struct {
	clock Clock

	mu            sync.Mutex
	armed         bool
	started       bool
	remaining     int
	done          chan struct{}
	expiryPending bool
	expiryDone    chan struct{}
}

// New returns an unstarted countdown driven by the given clock.
func New(clock Clock) *Countdown {
	return &Countdown{clock: clock}
}

// Start arms the countdown. onTick receives the remaining seconds after each
// tick while time remains; onExpire fires at most once, when the countdown
// reaches zero without being cancelled.
func (c *Countdown) Start(totalSeconds int, onTick func(remaining int), onExpire func()) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.armed = true
	c.remaining = totalSeconds
	c.done = make(chan struct{})
	c.expiryDone = make(chan struct{})
	c.mu.Unlock()

	go c.run(onTick, onExpire)
	return nil
}

func (c *Countdown) run(onTick func(int), onExpire func()) {
	for {
		wait := c.clock.After(time.Second)
		select {
		case <-c.done:
			return
		case <-wait:
		}

		c.mu.Lock()
		if !c.armed {
			c.mu.Unlock()
			return
		}
		c.remaining--
		remaining := c.remaining
		if remaining > 0 {
			if onTick != nil {
				onTick(remaining)
			}
			c.mu.Unlock()
			continue
		}
		// Disarm before firing so expiry happens at most once; a
		// concurrent Cancel waits on expiryDone instead of deadlocking.
		c.armed = false
		c.expiryPending = true
		c.mu.Unlock()
		if onExpire != nil {
			onExpire()
		}
		close(c.expiryDone)
		return
	}
}

// Cancel disarms the countdown. Idempotent; safe after expiry. When it
// returns, no tick or expiry callback is running or can still begin.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	if c.armed {
		c.armed = false
		close(c.done)
		c.mu.Unlock()
		return
	}
	pending := c.expiryPending
	expiryDone := c.expiryDone
	c.mu.Unlock()

	if pending {
		<-expiryDone
	}
}

// Remaining reports the seconds left on the clock.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}
