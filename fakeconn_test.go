package main

import (
	"errors"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

const testRoot xproto.Window = 0x100

// request is one call recorded by fakeConn.
type request struct {
	op     string
	window xproto.Window
	mask   uint32
	values []uint32
	name   string
}

// fakeConn plays an X server: it records requests, hands out atoms and
// replays a scripted queue of events. Each item in events is an xgb.Event
// or an error.
type fakeConn struct {
	screen Screen

	// otherWM makes the server refuse substructure redirect on the root.
	otherWM bool
	// failRootMask refuses the full root event mask only.
	failRootMask bool
	failAtom     string
	failMap      map[xproto.Window]bool
	heads        []Head

	atoms    map[string]xproto.Atom
	nextAtom xproto.Atom
	requests []request
	events   []interface{}
	closed   bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		screen: Screen{
			Number: 0,
			Root:   testRoot,
			Width:  1920,
			Height: 1080,
			Depth:  24,
		},
		failMap:  map[xproto.Window]bool{},
		atoms:    map[string]xproto.Atom{},
		nextAtom: 69,
	}
}

func (c *fakeConn) Screen() Screen {
	return c.screen
}

func (c *fakeConn) InternAtom(name string) (xproto.Atom, error) {
	c.requests = append(c.requests, request{op: "InternAtom", name: name})
	if name == c.failAtom {
		return xproto.AtomNone, errors.New("BadAlloc")
	}
	if id, ok := c.atoms[name]; ok {
		return id, nil
	}
	id := c.nextAtom
	c.nextAtom++
	c.atoms[name] = id
	return id, nil
}

func (c *fakeConn) ChangeWindowAttributes(win xproto.Window, mask uint32, values []uint32) error {
	c.requests = append(c.requests, request{op: "ChangeWindowAttributes", window: win, mask: mask, values: values})
	if win == c.screen.Root && mask&xproto.CwEventMask != 0 && len(values) > 0 {
		if c.otherWM && values[0]&xproto.EventMaskSubstructureRedirect != 0 {
			return errors.New("BadAccess")
		}
		if c.failRootMask && values[0]&xproto.EventMaskSubstructureNotify != 0 {
			return errors.New("BadValue")
		}
	}
	return nil
}

func (c *fakeConn) ConfigureWindow(win xproto.Window, mask uint16, values []uint32) error {
	c.requests = append(c.requests, request{op: "ConfigureWindow", window: win, mask: uint32(mask), values: values})
	return nil
}

func (c *fakeConn) MapWindow(win xproto.Window) error {
	c.requests = append(c.requests, request{op: "MapWindow", window: win})
	if c.failMap[win] {
		return errors.New("BadWindow")
	}
	return nil
}

func (c *fakeConn) Heads() ([]Head, error) {
	c.requests = append(c.requests, request{op: "Heads"})
	if c.heads == nil {
		return []Head{c.screen.FullHead()}, nil
	}
	return c.heads, nil
}

func (c *fakeConn) WaitForEvent() (xgb.Event, error) {
	if c.closed || len(c.events) == 0 {
		return nil, ErrConnectionLost
	}
	item := c.events[0]
	c.events = c.events[1:]
	switch v := item.(type) {
	case error:
		return nil, v
	case xgb.Event:
		return v, nil
	}
	panic("fakeConn: bad scripted event")
}

func (c *fakeConn) Close() {
	c.closed = true
}

func (c *fakeConn) queue(items ...interface{}) {
	c.events = append(c.events, items...)
}

// requestsFor returns the requests targeting win, in order.
func (c *fakeConn) requestsFor(win xproto.Window) []request {
	var out []request
	for _, r := range c.requests {
		if r.window == win && r.op != "InternAtom" && r.op != "Heads" {
			out = append(out, r)
		}
	}
	return out
}

func (c *fakeConn) count(op string) int {
	n := 0
	for _, r := range c.requests {
		if r.op == op {
			n++
		}
	}
	return n
}

// testWM returns a WM on c that does not touch the process signal
// disposition. The returned counter tracks ignoreSignals calls.
func testWM(c *fakeConn) (*WM, *int) {
	opts, _ := defaultOptions(func(string) string { return "" })
	wm := newWM(c, opts)
	calls := new(int)
	wm.ignoreSignals = func() error {
		*calls++
		return nil
	}
	return wm, calls
}

// bogusEvent stands in for an event type the dispatcher has never heard of.
type bogusEvent struct{}

func (bogusEvent) Bytes() []byte  { return make([]byte, 32) }
func (bogusEvent) String() string { return "bogusEvent {}" }
