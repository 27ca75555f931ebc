package wake

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"time"
)

// Watcher defaults.
const (
	DefaultDriftInterval   = 5 * time.Second
	DefaultDriftThreshold  = 2 * time.Second
	DefaultNetworkInterval = 10 * time.Second
)

// Watcher observes the host and emits signals on a Bus.
//
// Usage:
//
//	w := wake.NewWatcher(wake.Default)
//	w.Start(ctx)
//	defer w.Stop()
type Watcher struct {
	bus    *Bus
	logger *slog.Logger

	driftInterval   time.Duration
	driftThreshold  time.Duration
	networkInterval time.Duration
	watchContinue   bool

	// interfaces lists the host network interfaces; replaced in tests.
	interfaces func() ([]net.Interface, error)
	// now reads both clocks for the drift source; replaced in tests.
	now func() time.Time

	done chan struct{}
	wg   sync.WaitGroup
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDriftInterval sets how often wall and monotonic clocks are compared.
// Zero disables drift detection.
func WithDriftInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.driftInterval = d }
}

// WithDriftThreshold sets how far the clocks may disagree before Resume is
// emitted.
func WithDriftThreshold(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.driftThreshold = d }
}

// WithNetworkInterval sets how often network interfaces are polled.
// Zero disables the Online source.
func WithNetworkInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.networkInterval = d }
}

// WithContinue enables or disables the SIGCONT source.
func WithContinue(enabled bool) WatcherOption {
	return func(w *Watcher) { w.watchContinue = enabled }
}

// WithWatcherLogger sets the logger used for emitted signals.
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithInterfaces replaces the network interface lister.
func WithInterfaces(fn func() ([]net.Interface, error)) WatcherOption {
	return func(w *Watcher) { w.interfaces = fn }
}

// NewWatcher creates a Watcher that emits on bus. Call Start to begin.
func NewWatcher(bus *Bus, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		bus:             bus,
		logger:          slog.Default(),
		driftInterval:   DefaultDriftInterval,
		driftThreshold:  DefaultDriftThreshold,
		networkInterval: DefaultNetworkInterval,
		watchContinue:   true,
		interfaces:      net.Interfaces,
		now:             time.Now,
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Start launches one goroutine per enabled source. Start must be called
// exactly once.
func (w *Watcher) Start(ctx context.Context) {
	if w.driftInterval > 0 {
		w.wg.Add(1)
		go w.runDrift(ctx)
	}
	if w.networkInterval > 0 {
		w.wg.Add(1)
		go w.runNetwork(ctx)
	}
	if sigs := continueSignals(); w.watchContinue && len(sigs) > 0 {
		w.wg.Add(1)
		go w.runContinue(ctx, sigs)
	}
}

// Stop shuts down all sources and waits for them to exit.
func (w *Watcher) Stop() {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	w.wg.Wait()
}

func (w *Watcher) emit(sig Signal, attrs ...any) {
	n := w.bus.Emit(sig)
	w.logger.Debug("wake signal", append([]any{"signal", sig, "handlers", n}, attrs...)...)
}

// ─── sources ──────────────────────────────────────────────────────────────────

func (w *Watcher) runDrift(ctx context.Context) {
	defer w.wg.Done()

	t := time.NewTicker(w.driftInterval)
	defer t.Stop()

	prev := w.now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-t.C:
			now := w.now()
			mono := now.Sub(prev)
			wall := now.Round(0).Sub(prev.Round(0))
			if drifted(mono, wall, w.driftInterval, w.driftThreshold) {
				w.emit(Resume, "mono", mono, "wall", wall)
			}
			prev = now
		}
	}
}

// drifted reports whether one tick of a ticker with the given interval
// observed a gap that a sleeping timer could have missed. mono and wall are
// the elapsed times since the previous tick on each clock.
func drifted(mono, wall, interval, threshold time.Duration) bool {
	skew := wall - mono
	if skew < 0 {
		skew = -skew
	}
	return skew > threshold || mono-interval > threshold
}

func (w *Watcher) runNetwork(ctx context.Context) {
	defer w.wg.Done()

	t := time.NewTicker(w.networkInterval)
	defer t.Stop()

	up := w.online()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-t.C:
			now := w.online()
			if now && !up {
				w.emit(Online)
			}
			up = now
		}
	}
}

func (w *Watcher) online() bool {
	ifaces, err := w.interfaces()
	if err != nil {
		w.logger.Debug("list network interfaces", "err", err)
		return false
	}
	return anyUp(ifaces)
}

// anyUp reports whether a non-loopback interface is up and running.
func anyUp(ifaces []net.Interface) bool {
	for _, ifc := range ifaces {
		if ifc.Flags&net.FlagLoopback != 0 {
			continue
		}
		if ifc.Flags&net.FlagUp != 0 && ifc.Flags&net.FlagRunning != 0 {
			return true
		}
	}
	return false
}

func (w *Watcher) runContinue(ctx context.Context, sigs []os.Signal) {
	defer w.wg.Done()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case s := <-ch:
			w.emit(Continue, "os_signal", s.String())
		}
	}
}
