package deadline

import (
	"runtime/debug"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/snehjoshi/deadline/pkg/wake"
)

// unit is the state owned by one At call.
//
// Timer expiry and wake signals arrive on arbitrary goroutines; mu serialises
// every recheck so at most one runs at a time and each sees the terminal
// state left by the previous one.
type unit struct {
	id  string
	at  time.Time // wall clock only, monotonic reading stripped
	fn  func()
	cfg settings

	mu sync.Mutex

	// timer is the only live native timer. gen is bumped every time the
	// timer is stopped or replaced; an expiry whose generation no longer
	// matches was already superseded and does nothing.
	timer *clock.Timer
	gen   uint64

	// done is set by the terminal transition (fire or cancel).
	done bool
	td   teardown
}

func (u *unit) start() {
	u.cfg.observer.Scheduled(u.id, u.at)
	u.cfg.logger.Debug("deadline scheduled",
		"id", u.id,
		"at", u.at,
		"max_interval", u.cfg.maxInterval,
	)

	u.mu.Lock()
	defer u.mu.Unlock()

	u.td.add(u.stopTimerLocked)
	for _, sig := range u.cfg.signals {
		u.td.add(u.cfg.bus.Subscribe(sig, u.wake))
	}

	// forceWait: a deadline already in the past still fires on the timer
	// goroutine, never inline in At.
	u.checkLocked(true)
}

// cancel is the CancelFunc handed to the caller.
func (u *unit) cancel() {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.done {
		return
	}
	u.done = true
	u.td.release()

	u.cfg.observer.Cancelled(u.id)
	u.cfg.logger.Debug("deadline cancelled", "id", u.id)
}

// expire runs when the native timer armed at generation gen goes off.
func (u *unit) expire(gen uint64) {
	u.mu.Lock()
	if gen != u.gen {
		u.mu.Unlock()
		return
	}
	fire := u.checkLocked(false)
	u.mu.Unlock()

	if fire {
		u.invoke()
	}
}

// wake runs when one of the subscribed wake signals is emitted.
func (u *unit) wake(sig wake.Signal) {
	u.mu.Lock()
	if u.done {
		u.mu.Unlock()
		return
	}
	u.cfg.observer.Woken(u.id, sig)
	u.cfg.logger.Debug("deadline woken", "id", u.id, "signal", sig)
	fire := u.checkLocked(false)
	u.mu.Unlock()

	if fire {
		u.invoke()
	}
}

// checkLocked measures the remaining time and either rearms the native timer
// or makes the unit terminal. It reports whether the caller must invoke the
// callback, which happens after mu is released and after teardown completed.
// MUST be called with u.mu held.
func (u *unit) checkLocked(forceWait bool) bool {
	if u.done {
		return false
	}
	u.stopTimerLocked()

	now := u.cfg.clock.Now().Round(0)
	remaining := u.at.Sub(now)
	if remaining < 0 {
		remaining = 0
	}

	if remaining == 0 && !forceWait {
		u.done = true
		u.td.release()

		late := now.Sub(u.at)
		u.cfg.observer.Fired(u.id, late)
		u.cfg.logger.Debug("deadline fired", "id", u.id, "late", late)
		return true
	}

	u.armLocked(u.wait(remaining))
	return false
}

// wait bounds remaining by the max interval and the host timer ceiling.
func (u *unit) wait(remaining time.Duration) time.Duration {
	d := remaining
	if u.cfg.maxInterval > 0 && u.cfg.maxInterval < d {
		d = u.cfg.maxInterval
	}
	if u.cfg.maxDelay > 0 && u.cfg.maxDelay < d {
		d = u.cfg.maxDelay
	}
	return d
}

// MUST be called with u.mu held.
func (u *unit) armLocked(d time.Duration) {
	gen := u.gen
	u.timer = u.cfg.clock.AfterFunc(d, func() { u.expire(gen) })
	u.cfg.observer.Armed(u.id, d)
}

// MUST be called with u.mu held.
func (u *unit) stopTimerLocked() {
	u.gen++
	if u.timer != nil {
		u.timer.Stop()
		u.timer = nil
	}
}

// invoke runs the callback exactly once. A panic is contained and reported;
// teardown has already happened, so nothing else needs to unwind.
func (u *unit) invoke() {
	defer func() {
		if p := recover(); p != nil {
			u.cfg.observer.Panicked(u.id)
			report(u.cfg.reporter, PanicInfo{
				ID:    u.id,
				At:    u.at,
				Value: p,
				Stack: debug.Stack(),
			})
		}
	}()
	u.fn()
}
