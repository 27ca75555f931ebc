package deadline

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/snehjoshi/deadline/internal/ident"
)

// PanicInfo describes a callback that panicked.
type PanicInfo struct {
	// ID identifies the deadline whose callback panicked.
	ID string
	// At is the deadline the callback was scheduled for.
	At time.Time
	// Value is the value passed to panic.
	Value any
	// Stack is the goroutine stack captured in the deferred recover.
	Stack []byte
}

func (p PanicInfo) Error() string {
	return fmt.Sprintf("deadline %s: callback panicked: %v", p.ID, p.Value)
}

// Reporter receives callback failures. A deadline never retries its callback;
// the Reporter is the only place a failure becomes visible.
type Reporter interface {
	Report(PanicInfo)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(PanicInfo)

// Report calls f(info).
func (f ReporterFunc) Report(info PanicInfo) { f(info) }

// LogReporter returns a Reporter that logs at Error level. The log line
// carries the time the deadline was scheduled, decoded from its ID.
func LogReporter(l *slog.Logger) Reporter {
	return ReporterFunc(func(info PanicInfo) {
		l.Error("deadline callback panicked",
			"id", info.ID,
			"scheduled_at", ident.ID(info.ID).Time(),
			"at", info.At,
			"panic", fmt.Sprint(info.Value),
			"stack", string(info.Stack),
		)
	})
}

// report hands info to r. A Reporter that panics itself must not take down
// the timer goroutine, so that panic goes to stderr instead.
func report(r Reporter, info PanicInfo) {
	defer func() {
		if p := recover(); p != nil {
			fmt.Fprintf(os.Stderr, "deadline: reporter panicked: %v\n[original] %v\n%s\n",
				p, info.Value, debug.Stack())
		}
	}()
	r.Report(info)
}
