//go:build !unix

package wake

import "os"

func continueSignals() []os.Signal {
	// No job control outside unix; the Continue source stays idle.
	return nil
}
