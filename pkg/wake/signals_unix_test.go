//go:build unix

package wake

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestWatcher_EmitsContinueOnSIGCONT(t *testing.T) {
	bus := NewBus()
	var got atomic.Int32
	bus.Subscribe(Continue, func(Signal) { got.Add(1) })

	w := NewWatcher(bus, WithDriftInterval(0), WithNetworkInterval(0))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	// Notify is installed asynchronously; keep poking until it is observed.
	// SIGCONT on a running process is otherwise a no-op.
	until := time.Now().Add(2 * time.Second)
	for got.Load() == 0 && time.Now().Before(until) {
		if err := unix.Kill(os.Getpid(), unix.SIGCONT); err != nil {
			t.Fatalf("kill SIGCONT: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got.Load() == 0 {
		t.Fatal("Continue not emitted after SIGCONT")
	}
}

func TestDefault_RunsWatcherWhileSubscribed(t *testing.T) {
	var got atomic.Int32
	unsubscribe := Default.Subscribe(Continue, func(Signal) { got.Add(1) })
	defer unsubscribe()

	until := time.Now().Add(2 * time.Second)
	for got.Load() == 0 && time.Now().Before(until) {
		if err := unix.Kill(os.Getpid(), unix.SIGCONT); err != nil {
			t.Fatalf("kill SIGCONT: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got.Load() == 0 {
		t.Fatal("Default emitted no Continue without an explicit Watcher")
	}
}
