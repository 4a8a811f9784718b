package main

import (
	"log/slog"
	"os/signal"
	"syscall"
)

// ignoreChildSignals sets SIGCHLD to SIG_IGN so the kernel reaps children we
// spawn without anyone calling wait. Calling it again changes nothing.
//
// Children started with os/exec after this see ECHILD from Wait.
func ignoreChildSignals() error {
	slog.Debug("Setting up signal handler for reaping child processes")
	signal.Ignore(syscall.SIGCHLD)
	return nil
}
