//go:build unix

package deadline_test

import (
	"os"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sys/unix"

	"github.com/snehjoshi/deadline/pkg/deadline"
)

// A package-level deadline hears host signals through wake.Default without
// the caller starting anything.
func TestPackageLevel_RechecksOnHostSIGCONT(t *testing.T) {
	clk := &jumpClock{Mock: clock.NewMock()}
	fired := make(chan struct{})
	cancel := deadline.After(func() { close(fired) }, time.Hour, deadline.WithClock(clk))
	defer cancel()

	clk.suspend(2 * time.Hour)

	until := time.Now().Add(2 * time.Second)
	for time.Now().Before(until) {
		if err := unix.Kill(os.Getpid(), unix.SIGCONT); err != nil {
			t.Fatalf("kill SIGCONT: %v", err)
		}
		select {
		case <-fired:
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
	t.Fatal("deadline did not fire after SIGCONT with the deadline passed")
}
