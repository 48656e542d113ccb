// Termination signals watched on Windows.

//go:build windows

package shutdown

import "os"

// signals holds only os.Interrupt; Windows has no SIGTERM and the runtime
// maps CTRL_BREAK and console close onto it.
var signals = []os.Signal{os.Interrupt}
