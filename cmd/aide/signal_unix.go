//go:build !windows

package main

import (
	"os"
	"syscall"
)

// terminationSignals are the signals that request a graceful shutdown:
// SIGINT from the terminal, SIGTERM from process managers like systemd
// and kubernetes.
var terminationSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
