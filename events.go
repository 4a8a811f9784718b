package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// EventHandler handles every event kind the window manager routes. Embed
// NopHandler to get a no-op for each kind and override only the ones you
// care about.
type EventHandler interface {
	HandleButtonPress(e xproto.ButtonPressEvent) error
	HandleClientMessage(e xproto.ClientMessageEvent) error
	HandleConfigureRequest(e xproto.ConfigureRequestEvent) error
	HandleConfigureNotify(e xproto.ConfigureNotifyEvent) error
	HandleCreateNotify(e xproto.CreateNotifyEvent) error
	HandleDestroyNotify(e xproto.DestroyNotifyEvent) error
	HandleEnterNotify(e xproto.EnterNotifyEvent) error
	HandleExpose(e xproto.ExposeEvent) error
	HandleFocusIn(e xproto.FocusInEvent) error
	HandleKeyPress(e xproto.KeyPressEvent) error
	HandleMappingNotify(e xproto.MappingNotifyEvent) error
	HandleMapRequest(e xproto.MapRequestEvent) error
	HandleMotionNotify(e xproto.MotionNotifyEvent) error
	HandlePropertyNotify(e xproto.PropertyNotifyEvent) error
	HandleUnmapNotify(e xproto.UnmapNotifyEvent) error
	// HandleUnknown receives everything else: core events nobody routes and
	// extension events. xgb drops event codes it cannot decode before they
	// get here.
	HandleUnknown(ev xgb.Event) error
}

// NopHandler implements EventHandler by ignoring every event.
type NopHandler struct{}

func (NopHandler) HandleButtonPress(xproto.ButtonPressEvent) error           { return nil }
func (NopHandler) HandleClientMessage(xproto.ClientMessageEvent) error       { return nil }
func (NopHandler) HandleConfigureRequest(xproto.ConfigureRequestEvent) error { return nil }
func (NopHandler) HandleConfigureNotify(xproto.ConfigureNotifyEvent) error   { return nil }
func (NopHandler) HandleCreateNotify(xproto.CreateNotifyEvent) error         { return nil }
func (NopHandler) HandleDestroyNotify(xproto.DestroyNotifyEvent) error       { return nil }
func (NopHandler) HandleEnterNotify(xproto.EnterNotifyEvent) error           { return nil }
func (NopHandler) HandleExpose(xproto.ExposeEvent) error                     { return nil }
func (NopHandler) HandleFocusIn(xproto.FocusInEvent) error                   { return nil }
func (NopHandler) HandleKeyPress(xproto.KeyPressEvent) error                 { return nil }
func (NopHandler) HandleMappingNotify(xproto.MappingNotifyEvent) error       { return nil }
func (NopHandler) HandleMapRequest(xproto.MapRequestEvent) error             { return nil }
func (NopHandler) HandleMotionNotify(xproto.MotionNotifyEvent) error         { return nil }
func (NopHandler) HandlePropertyNotify(xproto.PropertyNotifyEvent) error     { return nil }
func (NopHandler) HandleUnmapNotify(xproto.UnmapNotifyEvent) error           { return nil }

// HandleUnknown logs the event and carries on. Core events without a handler
// (KeyRelease, LeaveNotify, MapNotify and the like) are logged as unrouted,
// extension events as unknown. Neither is ever an error.
func (NopHandler) HandleUnknown(ev xgb.Event) error {
	if isCoreEvent(ev) {
		slog.Debug("Received unrouted event", "kind", EventKind(ev), "event", ev)
		return nil
	}
	slog.Debug("Received unknown event", "kind", EventKind(ev), "event", ev)
	return nil
}

// Dispatch hands ev to exactly one method of h. A failure is returned as a
// *HandlerError naming the event kind.
func Dispatch(h EventHandler, ev xgb.Event) error {
	var err error
	switch e := ev.(type) {
	case xproto.ButtonPressEvent:
		err = h.HandleButtonPress(e)
	case xproto.ClientMessageEvent:
		err = h.HandleClientMessage(e)
	case xproto.ConfigureRequestEvent:
		err = h.HandleConfigureRequest(e)
	case xproto.ConfigureNotifyEvent:
		err = h.HandleConfigureNotify(e)
	case xproto.CreateNotifyEvent:
		err = h.HandleCreateNotify(e)
	case xproto.DestroyNotifyEvent:
		err = h.HandleDestroyNotify(e)
	case xproto.EnterNotifyEvent:
		err = h.HandleEnterNotify(e)
	case xproto.ExposeEvent:
		err = h.HandleExpose(e)
	case xproto.FocusInEvent:
		err = h.HandleFocusIn(e)
	case xproto.KeyPressEvent:
		err = h.HandleKeyPress(e)
	case xproto.MappingNotifyEvent:
		err = h.HandleMappingNotify(e)
	case xproto.MapRequestEvent:
		err = h.HandleMapRequest(e)
	case xproto.MotionNotifyEvent:
		err = h.HandleMotionNotify(e)
	case xproto.PropertyNotifyEvent:
		err = h.HandlePropertyNotify(e)
	case xproto.UnmapNotifyEvent:
		err = h.HandleUnmapNotify(e)
	default:
		err = h.HandleUnknown(ev)
	}
	if err != nil {
		return &HandlerError{Kind: EventKind(ev), Err: err}
	}
	return nil
}

// EventKind names the event's type, e.g. "CreateNotify".
func EventKind(ev xgb.Event) string {
	kind := fmt.Sprintf("%T", ev)
	if i := strings.LastIndexByte(kind, '.'); i >= 0 {
		kind = kind[i+1:]
	}
	return strings.TrimSuffix(kind, "Event")
}

// isCoreEvent reports whether ev comes from the core protocol rather than an
// extension.
func isCoreEvent(ev xgb.Event) bool {
	return strings.HasPrefix(fmt.Sprintf("%T", ev), "xproto.")
}
