// Termination signals watched on Unix-like systems.

//go:build !windows

package shutdown

import (
	"os"
	"syscall"
)

// signals are SIGINT and SIGTERM, the latter sent by container runtimes
// and process managers on stop.
var signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
