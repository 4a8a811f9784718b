package main

import (
	"errors"
	"fmt"
)

var (
	ErrConnection      = errors.New("cannot connect to X server")
	ErrAlreadyRunning  = errors.New("another window manager is already running")
	ErrRootSetupFailed = errors.New("failed to set up root window")
	ErrAtomResolution  = errors.New("failed to resolve atom")
	ErrAtomNotResolved = errors.New("atom not resolved")
	ErrConnectionLost  = errors.New("connection to X server lost")
)

// HandlerError is returned by Dispatch when the handler for an event fails.
type HandlerError struct {
	Kind string
	Err  error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handling %s: %v", e.Kind, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// ProtocolError is an X error delivered through the event queue, in response
// to a request nobody checked. It does not mean the connection is gone.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("x protocol error: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}
