// Package deadline runs a callback once a wall-clock deadline has passed.
//
// A plain time.AfterFunc counts on the monotonic clock, which stops while the
// machine is suspended, so a one-hour timer started before a two-hour sleep
// fires an hour after wake-up. A deadline instead rechecks the wall clock
// every time its native timer expires and every time a wake signal arrives on
// the configured wake.Bus, and fires as soon as either notices that the
// deadline is behind it.
//
// Usage:
//
//	cancel := deadline.At(func() {
//	    // runs once, at or after 09:00
//	}, nineAM, deadline.WithMaxInterval(time.Minute))
//	defer cancel()
//
// Each call is independent: it owns one native timer and one subscription per
// wake signal, and releases all of them when it fires or is cancelled.
//
// By default deadlines listen on wake.Default, which watches the host for as
// long as any deadline is pending; nothing has to be started by the caller.
package deadline

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/snehjoshi/deadline/internal/ident"
	"github.com/snehjoshi/deadline/pkg/wake"
)

// MaxDelay is the default ceiling for a single native wait. Go timers accept
// the full time.Duration range; hosts with a smaller limit set it with
// WithMaxDelay.
const MaxDelay = time.Duration(math.MaxInt64)

// CancelFunc permanently suppresses a pending callback and releases its timer
// and wake subscriptions. It is idempotent and safe to call from any
// goroutine, including from the callback itself.
type CancelFunc func()

// settings is the resolved configuration of one deadline.
type settings struct {
	clock       clock.Clock
	bus         *wake.Bus
	signals     []wake.Signal
	reporter    Reporter
	observer    Observer
	logger      *slog.Logger
	maxInterval time.Duration
	maxDelay    time.Duration
}

// Option configures a Scheduler, or a single call to At/After.
type Option func(*settings)

// WithClock sets the time source and native timer.
func WithClock(c clock.Clock) Option {
	return func(s *settings) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithBus sets the bus that wake signals are received from.
func WithBus(b *wake.Bus) Option {
	return func(s *settings) {
		if b != nil {
			s.bus = b
		}
	}
}

// WithSignals replaces the set of wake signals that trigger a recheck.
// Calling it with no signals disables wake rechecks.
func WithSignals(sigs ...wake.Signal) Option {
	return func(s *settings) {
		s.signals = append([]wake.Signal(nil), sigs...)
	}
}

// WithReporter sets where callback panics are reported.
// The default logs them through the configured logger.
func WithReporter(r Reporter) Option {
	return func(s *settings) { s.reporter = r }
}

// WithObserver sets the Observer notified of state transitions.
func WithObserver(o Observer) Option {
	return func(s *settings) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxInterval caps how long any single native wait may run before the
// wall clock is checked again. Zero or negative means unbounded.
func WithMaxInterval(d time.Duration) Option {
	return func(s *settings) { s.maxInterval = d }
}

// WithMaxDelay sets the host's maximum single-shot timer delay. Zero or
// negative keeps MaxDelay.
func WithMaxDelay(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.maxDelay = d
		}
	}
}

// Scheduler holds defaults for deadlines. It keeps no per-deadline state, so
// one Scheduler can be shared freely.
type Scheduler struct {
	base settings
}

// New returns a Scheduler on the real clock and wake.Default.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{base: settings{
		clock:    clock.New(),
		bus:      wake.Default,
		signals:  wake.DefaultSignals,
		observer: nopObserver{},
		maxDelay: MaxDelay,
	}}
	for _, opt := range opts {
		if opt != nil {
			opt(&s.base)
		}
	}
	return s
}

// settings returns the base settings with per-call opts applied.
func (s *Scheduler) settings(opts []Option) settings {
	cfg := s.base
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.reporter == nil {
		cfg.reporter = LogReporter(cfg.logger)
	}
	return cfg
}

// At arranges for fn to be called once, as soon as possible after at.
//
// A zero at means now. fn never runs before At returns, even when at is in
// the past; it runs on a timer or wake-signal goroutine. At panics if fn is
// nil.
//
// When a wake signal notices the deadline, fn runs synchronously on the
// goroutine that emitted the signal, which for wake.Default is a Watcher
// source. A long-running fn delays that source; one on the drift source's
// goroutine may even make it report a spurious Resume. Hand slow work off to
// another goroutine.
func (s *Scheduler) At(fn func(), at time.Time, opts ...Option) CancelFunc {
	if fn == nil {
		panic("deadline: nil callback")
	}
	cfg := s.settings(opts)
	if at.IsZero() {
		at = cfg.clock.Now()
	}

	u := &unit{
		id:  ident.New().String(),
		at:  at.Round(0),
		fn:  fn,
		cfg: cfg,
	}
	u.start()
	return u.cancel
}

// After arranges for fn to be called once, as soon as possible after d of
// wall-clock time has elapsed. A negative d behaves like a past deadline.
func (s *Scheduler) After(fn func(), d time.Duration, opts ...Option) CancelFunc {
	cfg := s.settings(opts)
	return s.At(fn, cfg.clock.Now().Add(d), opts...)
}

// SleepUntil blocks until at has passed on the wall clock or ctx is done.
// It returns nil once the deadline fired, ctx.Err() otherwise.
func (s *Scheduler) SleepUntil(ctx context.Context, at time.Time, opts ...Option) error {
	fired := make(chan struct{})
	cancel := s.At(func() { close(fired) }, at, opts...)
	defer cancel()

	select {
	case <-fired:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ─── process-wide scheduler ───────────────────────────────────────────────────

var std = New()

// Default returns the Scheduler used by the package-level functions.
func Default() *Scheduler { return std }

// At calls Default().At.
func At(fn func(), at time.Time, opts ...Option) CancelFunc {
	return std.At(fn, at, opts...)
}

// After calls Default().After.
func After(fn func(), d time.Duration, opts ...Option) CancelFunc {
	return std.After(fn, d, opts...)
}

// SleepUntil calls Default().SleepUntil.
func SleepUntil(ctx context.Context, at time.Time, opts ...Option) error {
	return std.SleepUntil(ctx, at, opts...)
}
