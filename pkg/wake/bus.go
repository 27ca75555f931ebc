// Package wake delivers process-wide "you may have been asleep" signals.
//
// A native timer stops counting while the machine is suspended or the process
// is stopped, so a deadline that passed during that time is only noticed when
// the timer finally expires. Components that care about wall-clock deadlines
// subscribe to a Bus and recheck whenever a wake signal arrives.
//
// A Watcher turns host observations (clock drift, network interfaces coming
// up, SIGCONT) into signals on a Bus. Default is the bus used when nothing
// else is configured; it runs a Watcher for as long as it has subscribers.
package wake

import (
	"context"
	"sort"
	"sync"
)

// Signal names a host event after which elapsed wall-clock time may have been
// missed by a sleeping timer.
type Signal string

const (
	// Resume fires when the wall clock advanced further than the monotonic
	// clock between two observations (system suspend, clock step) or the
	// process was stalled well past an expected tick.
	Resume Signal = "resume"

	// Online fires when a non-loopback network interface comes up after all
	// of them were down.
	Online Signal = "online"

	// Continue fires when the process is continued after a stop (SIGCONT).
	Continue Signal = "continue"
)

// DefaultSignals is the set of signals a deadline subscribes to when none is
// configured.
var DefaultSignals = []Signal{Resume, Online, Continue}

// Handler is called for every emitted signal it subscribed to.
type Handler func(Signal)

// Default is the process-wide bus. A Watcher with default settings runs on it
// while at least one handler is subscribed; replace it with SetSource.
var Default = NewBus(WithSource(WatcherSource()))

// Source produces signals on b until ctx is done. It must not block.
type Source func(ctx context.Context, b *Bus)

// WatcherSource returns a Source that starts a Watcher built with opts.
func WatcherSource(opts ...WatcherOption) Source {
	return func(ctx context.Context, b *Bus) {
		NewWatcher(b, opts...).Start(ctx)
	}
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithSource attaches src to the bus. See SetSource.
func WithSource(src Source) BusOption {
	return func(b *Bus) { b.source = src }
}

type subscription struct {
	seq uint64
	h   Handler
}

// Bus fans signals out to subscribers. The zero value is not usable; call
// NewBus. All methods are safe for concurrent use.
type Bus struct {
	mu   sync.Mutex
	seq  uint64
	subs map[Signal][]subscription

	// total counts subscriptions across all signals. source runs while it is
	// non-zero; stopSource is set exactly while it runs.
	total      int
	source     Source
	stopSource context.CancelFunc
}

// NewBus returns an empty Bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{subs: make(map[Signal][]subscription)}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// SetSource replaces the bus's source. The source is started when the first
// handler subscribes and its context is cancelled when the last one leaves;
// a source that is running is restarted as src. A nil src leaves emission to
// the caller.
func (b *Bus) SetSource(src Source) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopSourceLocked()
	b.source = src
	if b.total > 0 {
		b.startSourceLocked()
	}
}

// MUST be called with b.mu held.
func (b *Bus) startSourceLocked() {
	if b.source == nil || b.stopSource != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.stopSource = cancel
	b.source(ctx, b)
}

// Stopping never waits: the last unsubscribe may run on a source goroutine.
// MUST be called with b.mu held.
func (b *Bus) stopSourceLocked() {
	if b.stopSource != nil {
		b.stopSource()
		b.stopSource = nil
	}
}

// Subscribe registers h for sig and returns a function that removes it.
// The returned function is idempotent.
func (b *Bus) Subscribe(sig Signal, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.seq++
	seq := b.seq
	b.subs[sig] = append(b.subs[sig], subscription{seq: seq, h: h})
	b.total++
	if b.total == 1 {
		b.startSourceLocked()
	}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(sig, seq) })
	}
}

func (b *Bus) remove(sig Signal, seq uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[sig]
	i := sort.Search(len(list), func(i int) bool { return list[i].seq >= seq })
	if i == len(list) || list[i].seq != seq {
		return
	}
	list = append(list[:i:i], list[i+1:]...)
	b.total--
	if b.total == 0 {
		b.stopSourceLocked()
	}
	if len(list) == 0 {
		delete(b.subs, sig)
		return
	}
	b.subs[sig] = list
}

// Emit calls every handler subscribed to sig, in subscription order, on the
// calling goroutine. It returns the number of handlers called.
//
// Handlers run without the bus lock held, so they may subscribe or
// unsubscribe. A handler removed while Emit is running may still be called
// once for that emission.
func (b *Bus) Emit(sig Signal) int {
	b.mu.Lock()
	list := b.subs[sig]
	snapshot := make([]Handler, len(list))
	for i, s := range list {
		snapshot[i] = s.h
	}
	b.mu.Unlock()

	for _, h := range snapshot {
		h(sig)
	}
	return len(snapshot)
}

// Len returns the number of handlers currently subscribed to sig.
func (b *Bus) Len(sig Signal) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[sig])
}
