package main

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// rootEventMask is what the root window listens for once we are the window
// manager.
const rootEventMask = xproto.EventMaskSubstructureRedirect |
	xproto.EventMaskSubstructureNotify |
	xproto.EventMaskButtonPress |
	xproto.EventMaskPointerMotion |
	xproto.EventMaskEnterWindow |
	xproto.EventMaskLeaveWindow |
	xproto.EventMaskStructureNotify |
	xproto.EventMaskPropertyChange

// WM holds the global window manager state. All X requests are issued from
// the goroutine running Setup and Run.
type WM struct {
	NopHandler

	conn   XConn
	screen Screen
	atoms  AtomTable
	opts   Options
	stats  *Stats
	feed   *Feed

	headsMu sync.RWMutex
	heads   []Head

	ignoreSignals func() error
	closing       atomic.Bool
}

// NewWM connects to the display named in opts.
func NewWM(opts Options) (*WM, error) {
	slog.Info("Connecting to screen", "display", displayName(opts.Display))
	conn, err := Dial(opts.Display)
	if err != nil {
		return nil, err
	}
	wm := newWM(conn, opts)
	slog.Info("Connected to screen",
		"display", displayName(opts.Display),
		"screen", wm.screen.Number,
		"root", wm.screen.Root,
		"width", wm.screen.Width,
		"height", wm.screen.Height)
	return wm, nil
}

func newWM(conn XConn, opts Options) *WM {
	screen := conn.Screen()
	return &WM{
		conn:          conn,
		screen:        screen,
		opts:          opts,
		stats:         NewStats(),
		feed:          NewFeed(),
		heads:         []Head{screen.FullHead()},
		ignoreSignals: ignoreChildSignals,
	}
}

// Setup makes us the window manager of the screen. The steps run in order
// and the first failure aborts the rest.
func (wm *WM) Setup() error {
	if err := wm.checkSoleWM(); err != nil {
		return err
	}
	if err := wm.ignoreSignals(); err != nil {
		return fmt.Errorf("ignoring SIGCHLD: %w", err)
	}
	slog.Debug("Resolving atoms", "count", int(atomCount))
	if err := wm.atoms.Setup(wm.conn); err != nil {
		return err
	}
	if err := wm.setupRootWindow(); err != nil {
		return err
	}
	wm.updateHeads()
	return nil
}

// checkSoleWM asks for substructure redirect on the root window. The server
// grants it to one client only, so a refusal means another window manager
// holds it.
func (wm *WM) checkSoleWM() error {
	slog.Debug("Checking that zwm is the only window manager on root window")
	err := wm.conn.ChangeWindowAttributes(
		wm.screen.Root,
		xproto.CwEventMask,
		[]uint32{xproto.EventMaskSubstructureRedirect},
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAlreadyRunning, err)
	}
	return nil
}

// setupRootWindow installs the full event mask. ChangeWindowAttributes
// replaces our client's mask on the window, so this supersedes the one set
// by checkSoleWM rather than adding to it.
func (wm *WM) setupRootWindow() error {
	slog.Debug("Setting up the root window")
	err := wm.conn.ChangeWindowAttributes(
		wm.screen.Root,
		xproto.CwEventMask,
		[]uint32{rootEventMask},
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRootSetupFailed, err)
	}
	slog.Debug("Successfully set up the root window")
	return nil
}

// Run dispatches events until the connection goes away. Handler failures
// and asynchronous X errors are logged and skipped. It returns nil if the
// connection was closed through Close.
func (wm *WM) Run() error {
	for {
		ev, err := wm.conn.WaitForEvent()
		if err != nil {
			var perr *ProtocolError
			if errors.As(err, &perr) {
				wm.stats.recordProtocolError(err)
				slog.Warn("X protocol error", "error", err)
				continue
			}
			if wm.closing.Load() {
				return nil
			}
			return err
		}
		wm.handleEvent(ev)
	}
}

func (wm *WM) handleEvent(ev xgb.Event) {
	kind := EventKind(ev)
	if wm.closing.Load() {
		slog.Debug("Dropping event, connection is closing", "kind", kind)
		return
	}
	slog.Debug("Received event", "kind", kind, "event", ev)
	err := Dispatch(wm, ev)
	wm.stats.recordEvent(kind, err)
	fe := FeedEvent{Kind: kind, Detail: ev.String(), Time: time.Now()}
	if err != nil {
		fe.Error = err.Error()
		slog.Warn("Event handler failed", "kind", kind, "error", err)
	}
	wm.feed.Publish(fe)
}

// Close disconnects from the X server, which makes Run return.
func (wm *WM) Close() {
	if wm.closing.Swap(true) {
		return
	}
	wm.conn.Close()
}

// Heads returns the monitors last reported by the server.
func (wm *WM) Heads() []Head {
	wm.headsMu.RLock()
	defer wm.headsMu.RUnlock()
	return append([]Head{}, wm.heads...)
}

func (wm *WM) updateHeads() {
	heads, err := wm.conn.Heads()
	if err != nil || len(heads) == 0 {
		slog.Warn("Could not query heads, using the whole screen", "error", err)
		heads = []Head{wm.screen.FullHead()}
	}
	wm.headsMu.Lock()
	wm.heads = heads
	wm.headsMu.Unlock()
	slog.Debug("Heads updated", "heads", heads)
}
