// Package roundtimer implements the per-round countdown.
package roundtimer

import (
	"sync"
	"time"
)

// Ticker is the part of *time.Ticker the timer needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

// NewStdTicker wraps time.NewTicker.
func NewStdTicker(d time.Duration) Ticker { return stdTicker{time.NewTicker(d)} }

type Config struct {
	// Duration is the number of units to count down from.
	Duration int
	// Unit is the length of one unit. Defaults to one second.
	Unit time.Duration
	// NewTicker defaults to NewStdTicker.
	NewTicker func(time.Duration) Ticker
}

// Timer counts down once per unit, then fires its expiry callback exactly
// once and stops. It never restarts; callers create a new Timer per round.
type Timer struct {
	mu        sync.Mutex
	remaining int
	stopped   bool

	stop chan struct{}
	done chan struct{}
}

// Start launches the countdown. onTick receives the remaining units after
// each decrement; onExpire runs once when the count reaches zero. Either
// callback may be nil. Callbacks run on the timer goroutine and are skipped
// once Stop has been called.
func Start(cfg Config, onTick func(remaining int), onExpire func()) *Timer {
	if cfg.Unit <= 0 {
		cfg.Unit = time.Second
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = NewStdTicker
	}

	t := &Timer{
		remaining: cfg.Duration,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	if cfg.Duration <= 0 {
		t.stopped = true
		close(t.done)
		if onExpire != nil {
			go onExpire()
		}
		return t
	}

	tk := cfg.NewTicker(cfg.Unit)
	go t.run(tk, onTick, onExpire)
	return t
}

func (t *Timer) run(tk Ticker, onTick func(int), onExpire func()) {
	defer close(t.done)
	defer tk.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-tk.C():
		}

		t.mu.Lock()
		if t.stopped {
			t.mu.Unlock()
			return
		}
		t.remaining--
		left := t.remaining
		if left <= 0 {
			t.stopped = true
		}
		t.mu.Unlock()

		if onTick != nil {
			onTick(left)
		}
		if left <= 0 {
			if onExpire != nil {
				onExpire()
			}
			return
		}
	}
}

// Stop cancels the countdown. It is safe to call more than once and after
// expiry. It reports whether this call stopped a running timer. Stop does not
// wait for an in-flight callback to return.
func (t *Timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	close(t.stop)
	return true
}

func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Stopped reports whether the timer was cancelled or has expired.
func (t *Timer) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Done is closed once the timer goroutine has exited.
func (t *Timer) Done() <-chan struct{} { return t.done }
