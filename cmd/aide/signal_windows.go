//go:build windows

package main

import (
	"os"
)

// terminationSignals are the signals that request a graceful shutdown.
// On Windows that is os.Interrupt (Ctrl+C).
var terminationSignals = []os.Signal{os.Interrupt}
