package main

import (
	"log/slog"

	"github.com/thejerf/suture/v4"
)

// newSupervisor returns a supervisor for the helper services running next
// to the event loop. Their failures are logged and restarted; they never
// reach the window manager itself.
func newSupervisor(name string) *suture.Supervisor {
	return suture.New(name, suture.Spec{
		EventHook: supervisorEventHook,
	})
}

func supervisorEventHook(ei suture.Event) {
	switch e := ei.(type) {
	case suture.EventStopTimeout:
		slog.Info("Service failed to terminate in a timely manner", "supervisor", e.SupervisorName, "service", e.ServiceName)
	case suture.EventServicePanic:
		slog.Warn("Caught a service panic", "supervisor", e.SupervisorName, "service", e.ServiceName, "panic", e.PanicMsg)
		slog.Debug(e.Stacktrace)
	case suture.EventServiceTerminate:
		slog.Error("Service failed", "supervisor", e.SupervisorName, "service", e.ServiceName, "error", e.Err)
	case suture.EventBackoff:
		slog.Debug("Too many service failures - entering the backoff state", "supervisor", e.SupervisorName)
	case suture.EventResume:
		slog.Debug("Exiting backoff state", "supervisor", e.SupervisorName)
	default:
		slog.Warn("Unknown supervisor event", "type", int(e.Type()))
	}
}
