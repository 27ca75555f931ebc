package deadline

import (
	"time"

	"github.com/snehjoshi/deadline/pkg/wake"
)

// Observer is notified of every state transition of a deadline.
//
// Methods may be called with the deadline's internal lock held and from any
// goroutine. They must be quick and must not call back into the Scheduler.
type Observer interface {
	// Scheduled is called once when At or After creates the deadline.
	Scheduled(id string, at time.Time)
	// Armed is called each time a native timer is armed for wait.
	Armed(id string, wait time.Duration)
	// Woken is called when a wake signal triggers a recheck.
	Woken(id string, sig wake.Signal)
	// Fired is called right before the callback runs. late is how far past
	// the deadline the recheck happened.
	Fired(id string, late time.Duration)
	// Cancelled is called when a cancel function releases a pending deadline.
	Cancelled(id string)
	// Panicked is called when the callback panics.
	Panicked(id string)
}

type nopObserver struct{}

func (nopObserver) Scheduled(string, time.Time) {}
func (nopObserver) Armed(string, time.Duration) {}
func (nopObserver) Woken(string, wake.Signal) {}
func (nopObserver) Fired(string, time.Duration) {}
func (nopObserver) Cancelled(string) {}
func (nopObserver) Panicked(string) {}
