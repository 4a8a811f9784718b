package main

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xinerama"
	"github.com/BurntSushi/xgb/xproto"
)

// XConn is the part of the X protocol the window manager speaks. Every
// request blocks until the server has acknowledged it.
type XConn interface {
	// Screen returns the screen chosen when the connection was made.
	Screen() Screen
	InternAtom(name string) (xproto.Atom, error)
	ChangeWindowAttributes(win xproto.Window, mask uint32, values []uint32) error
	ConfigureWindow(win xproto.Window, mask uint16, values []uint32) error
	MapWindow(win xproto.Window) error
	// Heads lists the monitors making up the screen.
	Heads() ([]Head, error)
	// WaitForEvent blocks until the next event arrives. X errors for
	// unchecked requests come back as *ProtocolError; a closed connection
	// as ErrConnectionLost.
	WaitForEvent() (xgb.Event, error)
	Close()
}

// Screen is a copy of the chosen screen's description from the connection
// setup.
type Screen struct {
	Number int           `json:"number"`
	Root   xproto.Window `json:"root"`
	Width  uint16        `json:"width"`
	Height uint16        `json:"height"`
	Depth  byte          `json:"depth"`
}

// Head is one physical monitor, in root window coordinates.
type Head struct {
	X      int16  `json:"x"`
	Y      int16  `json:"y"`
	Width  uint16 `json:"width"`
	Height uint16 `json:"height"`
}

// FullHead is the head covering the whole screen.
func (s Screen) FullHead() Head {
	return Head{Width: s.Width, Height: s.Height}
}

// xConn is XConn over xgb. A request sent after xgb.Conn.Close panics, so
// every request holds mu for reading and fails with ErrConnectionLost once
// closed is set.
type xConn struct {
	xc       *xgb.Conn
	screen   Screen
	xinerama bool

	mu     sync.RWMutex
	closed bool
}

// Dial connects to the X server named by display. An empty display lets xgb
// fall back to $DISPLAY.
func Dial(display string) (XConn, error) {
	xc, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("%w: display %s: %w", ErrConnection, displayName(display), err)
	}
	c, err := newXConn(xc)
	if err != nil {
		xc.Close()
		return nil, err
	}
	return c, nil
}

// newXConn picks the default screen of an established connection and checks
// for Xinerama.
func newXConn(xc *xgb.Conn) (*xConn, error) {
	screen, err := selectScreen(xproto.Setup(xc), xc.DefaultScreen)
	if err != nil {
		return nil, err
	}
	c := &xConn{xc: xc, screen: screen}
	if err := xinerama.Init(xc); err != nil {
		slog.Debug("Xinerama not available", "error", err)
	} else {
		c.xinerama = true
	}
	return c, nil
}

// selectScreen copies screen n out of the setup info, which is only valid
// while the connection's setup bytes are.
func selectScreen(setup *xproto.SetupInfo, n int) (Screen, error) {
	if setup == nil {
		return Screen{}, fmt.Errorf("%w: could not parse setup info", ErrConnection)
	}
	if n < 0 || n >= len(setup.Roots) {
		return Screen{}, fmt.Errorf("%w: screen %d does not exist (server has %d)",
			ErrConnection, n, len(setup.Roots))
	}
	root := setup.Roots[n]
	return Screen{
		Number: n,
		Root:   root.Root,
		Width:  root.WidthInPixels,
		Height: root.HeightInPixels,
		Depth:  root.RootDepth,
	}, nil
}

func displayName(display string) string {
	if display == "" {
		return "DEFAULT"
	}
	return display
}

func (c *xConn) Screen() Screen {
	return c.screen
}

func (c *xConn) InternAtom(name string) (xproto.Atom, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return xproto.AtomNone, ErrConnectionLost
	}
	reply, err := xproto.InternAtom(c.xc, false, uint16(len(name)), name).Reply()
	if err != nil {
		return xproto.AtomNone, err
	}
	if reply == nil {
		return xproto.AtomNone, nil
	}
	return reply.Atom, nil
}

func (c *xConn) ChangeWindowAttributes(win xproto.Window, mask uint32, values []uint32) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnectionLost
	}
	return xproto.ChangeWindowAttributesChecked(c.xc, win, mask, values).Check()
}

func (c *xConn) ConfigureWindow(win xproto.Window, mask uint16, values []uint32) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnectionLost
	}
	return xproto.ConfigureWindowChecked(c.xc, win, mask, values).Check()
}

func (c *xConn) MapWindow(win xproto.Window) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnectionLost
	}
	return xproto.MapWindowChecked(c.xc, win).Check()
}

func (c *xConn) Heads() ([]Head, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrConnectionLost
	}
	if !c.xinerama {
		return []Head{c.screen.FullHead()}, nil
	}
	reply, err := xinerama.QueryScreens(c.xc).Reply()
	if err != nil {
		return nil, err
	}
	if reply == nil || len(reply.ScreenInfo) == 0 {
		return []Head{c.screen.FullHead()}, nil
	}
	heads := make([]Head, 0, len(reply.ScreenInfo))
	for _, si := range reply.ScreenInfo {
		heads = append(heads, Head{
			X:      si.XOrg,
			Y:      si.YOrg,
			Width:  si.Width,
			Height: si.Height,
		})
	}
	return heads, nil
}

func (c *xConn) WaitForEvent() (xgb.Event, error) {
	// WaitForEvent either returns an event or an error and never both.
	// Both nil means the connection was closed.
	ev, xerr := c.xc.WaitForEvent()
	if xerr != nil {
		return nil, &ProtocolError{Err: xerr}
	}
	if ev == nil {
		// xgb closes its request queue itself when a read fails.
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		return nil, ErrConnectionLost
	}
	return ev, nil
}

// Close waits for requests in flight and is safe to call more than once.
func (c *xConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.xc.Close()
}
