package timer

import (
	"sync"
	"testing"
	"time"
)

func TestCountdownTicksDown(t *testing.T) {
	clock := NewManualClock()
	cd := New(clock)

	var mu sync.Mutex
	var ticks []int
	expired := make(chan struct{})

	err := cd.Start(3, func(remaining int) {
		mu.Lock()
		ticks = append(ticks, remaining)
		mu.Unlock()
	}, func() {
		close(expired)
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	clock.Advance(3)

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatalf("countdown did not expire")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ticks) != 2 || ticks[0] != 2 || ticks[1] != 1 {
		t.Fatalf("expected ticks [2 1], got %v", ticks)
	}
}

func TestCountdownExpireFiresOnce(t *testing.T) {
	clock := NewManualClock()
	cd := New(clock)

	fired := make(chan struct{}, 4)
	if err := cd.Start(1, nil, func() { fired <- struct{}{} }); err != nil {
		t.Fatalf("start: %v", err)
	}

	clock.Advance(1)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected expiry")
	}

	// Cancel after expiry must be a safe no-op, repeatedly.
	cd.Cancel()
	cd.Cancel()

	select {
	case <-fired:
		t.Fatalf("expiry fired more than once")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancelStopsCallbacks(t *testing.T) {
	clock := NewManualClock()
	cd := New(clock)

	ticked := make(chan int, 16)
	expired := make(chan struct{}, 1)
	if err := cd.Start(60, func(r int) { ticked <- r }, func() { expired <- struct{}{} }); err != nil {
		t.Fatalf("start: %v", err)
	}

	clock.Advance(1)
	select {
	case <-ticked:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected first tick")
	}

	cd.Cancel()
	cd.Cancel() // idempotent

	// The countdown goroutine has stopped waiting; deliver one more virtual
	// tick into the abandoned waiter and assert nothing fires.
	clock.Advance(1)
	select {
	case r := <-ticked:
		t.Fatalf("tick %d after cancel", r)
	case <-expired:
		t.Fatalf("expiry after cancel")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCancelWaitsForInFlightExpiry(t *testing.T) {
	clock := NewManualClock()
	cd := New(clock)

	entered := make(chan struct{})
	release := make(chan struct{})
	if err := cd.Start(1, nil, func() {
		close(entered)
		<-release
	}); err != nil {
		t.Fatalf("start: %v", err)
	}

	go clock.Advance(1)
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected expiry to begin")
	}

	cancelled := make(chan struct{})
	go func() {
		cd.Cancel()
		close(cancelled)
	}()

	// Cancel must not return while the expiry callback is still running.
	select {
	case <-cancelled:
		t.Fatalf("cancel returned before expiry callback finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatalf("cancel did not return after expiry callback finished")
	}
}

func TestStartTwiceRejected(t *testing.T) {
	cd := New(NewManualClock())
	if err := cd.Start(5, nil, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := cd.Start(5, nil, nil); err != ErrAlreadyStarted {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
	cd.Cancel()
}

func TestRemainingTracksTicks(t *testing.T) {
	clock := NewManualClock()
	cd := New(clock)

	ticked := make(chan int, 8)
	if err := cd.Start(10, func(r int) { ticked <- r }, nil); err != nil {
		t.Fatalf("start: %v", err)
	}

	clock.Advance(1)
	select {
	case <-ticked:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected tick")
	}

	if r := cd.Remaining(); r != 9 {
		t.Fatalf("expected 9 remaining, got %d", r)
	}
	cd.Cancel()
}
