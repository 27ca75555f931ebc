//go:build unix

package wake

import (
	"os"

	"golang.org/x/sys/unix"
)

func continueSignals() []os.Signal {
	return []os.Signal{unix.SIGCONT}
}
