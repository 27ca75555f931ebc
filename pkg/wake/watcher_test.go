package wake

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"
)

func TestDrifted(t *testing.T) {
	const interval = 5 * time.Second
	const threshold = 2 * time.Second

	cases := []struct {
		name       string
		mono, wall time.Duration
		want       bool
	}{
		{"steady", interval, interval, false},
		{"small jitter", interval + 100*time.Millisecond, interval + 120*time.Millisecond, false},
		{"suspended an hour", interval, time.Hour, true},
		{"clock stepped back", interval, interval - 10*time.Second, true},
		{"process stalled", interval + 30*time.Second, interval + 30*time.Second, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := drifted(tc.mono, tc.wall, interval, threshold); got != tc.want {
				t.Errorf("drifted(%v, %v) = %v, want %v", tc.mono, tc.wall, got, tc.want)
			}
		})
	}
}

func TestAnyUp(t *testing.T) {
	lo := net.Interface{Name: "lo", Flags: net.FlagUp | net.FlagRunning | net.FlagLoopback}
	down := net.Interface{Name: "eth0", Flags: 0}
	upNotRunning := net.Interface{Name: "eth1", Flags: net.FlagUp}
	up := net.Interface{Name: "wlan0", Flags: net.FlagUp | net.FlagRunning}

	if anyUp(nil) {
		t.Error("no interfaces must be offline")
	}
	if anyUp([]net.Interface{lo, down, upNotRunning}) {
		t.Error("loopback and non-running interfaces must not count as online")
	}
	if !anyUp([]net.Interface{lo, up}) {
		t.Error("a running non-loopback interface must count as online")
	}
}

func TestWatcher_EmitsOnlineOnTransition(t *testing.T) {
	var connected atomic.Bool
	lister := func() ([]net.Interface, error) {
		if !connected.Load() {
			return nil, errors.New("offline")
		}
		return []net.Interface{{Name: "eth0", Flags: net.FlagUp | net.FlagRunning}}, nil
	}

	bus := NewBus()
	var got atomic.Int32
	bus.Subscribe(Online, func(Signal) { got.Add(1) })

	w := NewWatcher(bus,
		WithDriftInterval(0),
		WithContinue(false),
		WithNetworkInterval(5*time.Millisecond),
		WithInterfaces(lister),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	time.Sleep(30 * time.Millisecond)
	if got.Load() != 0 {
		t.Fatal("Online emitted while offline")
	}

	connected.Store(true)
	deadline := time.Now().Add(2 * time.Second)
	for got.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got.Load() != 1 {
		t.Fatalf("Online emissions = %d, want 1", got.Load())
	}

	// Staying online must not re-emit.
	time.Sleep(30 * time.Millisecond)
	if got.Load() != 1 {
		t.Fatalf("Online emissions while steady = %d, want 1", got.Load())
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w := NewWatcher(NewBus(),
		WithDriftInterval(time.Millisecond),
		WithNetworkInterval(time.Millisecond),
		WithContinue(false),
		WithInterfaces(func() ([]net.Interface, error) { return nil, nil }),
	)
	w.Start(context.Background())
	w.Stop()
	w.Stop()
}

func TestWatcher_ContextCancelStopsSources(t *testing.T) {
	w := NewWatcher(NewBus(),
		WithDriftInterval(time.Millisecond),
		WithNetworkInterval(0),
		WithContinue(false),
	)
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sources did not exit after context cancel")
	}
}

func TestWatcher_EmitsResumeAfterStall(t *testing.T) {
	bus := NewBus()
	var resumes atomic.Int32
	bus.Subscribe(Resume, func(Signal) { resumes.Add(1) })

	// The first reading is the baseline; every later one is an hour ahead on
	// both clocks, as if the process had been stalled between ticks.
	var reads atomic.Int32
	w := NewWatcher(bus,
		WithDriftInterval(5*time.Millisecond),
		WithNetworkInterval(0),
		WithContinue(false),
	)
	w.now = func() time.Time {
		if reads.Add(1) == 1 {
			return time.Now()
		}
		return time.Now().Add(time.Hour)
	}
	w.Start(context.Background())
	defer w.Stop()

	until := time.Now().Add(2 * time.Second)
	for resumes.Load() == 0 && time.Now().Before(until) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := resumes.Load(); got != 1 {
		t.Fatalf("Resume emitted %d times, want 1", got)
	}
}

func TestWatcher_SteadyClockDoesNotEmit(t *testing.T) {
	bus := NewBus()
	var resumes atomic.Int32
	bus.Subscribe(Resume, func(Signal) { resumes.Add(1) })

	w := NewWatcher(bus,
		WithDriftInterval(5*time.Millisecond),
		WithDriftThreshold(2*time.Second),
		WithNetworkInterval(0),
		WithContinue(false),
	)
	w.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	w.Stop()

	if got := resumes.Load(); got != 0 {
		t.Fatalf("Resume emitted %d times on a steady clock", got)
	}
}
