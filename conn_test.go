package main

import (
	"errors"
	"io"
	"net"
	"path/filepath"
	"sync"
	"testing"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/stretchr/testify/require"
)

// Core request opcodes answered by xServer.
const (
	opChangeWindowAttributes = 2
	opMapWindow              = 8
	opConfigureWindow        = 12
	opInternAtom             = 16
	opGetInputFocus          = 43
	opQueryExtension         = 98
)

// xServer is an X server on the far end of a net.Pipe. It accepts the
// connection setup, answers InternAtom from atoms, reports every extension
// as missing and fails requests on badWindows with BadWindow.
type xServer struct {
	conn net.Conn
	done chan struct{}

	atoms      map[string]xproto.Atom
	badWindows map[xproto.Window]bool

	seq uint16

	wmu sync.Mutex // serializes writes to conn

	mu  sync.Mutex
	ops map[byte]int
}

func newXServer() *xServer {
	return &xServer{
		atoms:      map[string]xproto.Atom{},
		badWindows: map[xproto.Window]bool{},
		ops:        map[byte]int{},
	}
}

// dialXServer connects an xConn to s. The connection is closed and drained
// when the test ends.
func dialXServer(t *testing.T, s *xServer) *xConn {
	// No authority file: xgb connects without a cookie.
	t.Setenv("XAUTHORITY", filepath.Join(t.TempDir(), "Xauthority"))

	client, server := net.Pipe()
	s.conn = server
	s.done = make(chan struct{})
	go s.serve()

	xc, err := xgb.NewConnNet(client)
	require.NoError(t, err)
	c, err := newXConn(xc)
	require.NoError(t, err)

	t.Cleanup(func() {
		c.Close()
		for {
			if _, err := c.WaitForEvent(); errors.Is(err, ErrConnectionLost) {
				break
			}
		}
		server.Close()
		<-s.done
	})
	return c
}

func (s *xServer) setup() []byte {
	info := xproto.SetupInfo{
		Status:               1,
		ProtocolMajorVersion: 11,
		ResourceIdBase:       0x00400000,
		ResourceIdMask:       0x003fffff,
		MaximumRequestLength: 0xffff,
		RootsLen:             1,
		Roots: []xproto.ScreenInfo{{
			Root:           testRoot,
			WidthInPixels:  1280,
			HeightInPixels: 720,
			RootDepth:      24,
		}},
	}
	buf := info.Bytes()
	xgb.Put16(buf[6:], uint16((len(buf)-8)/4))
	return buf
}

func (s *xServer) serve() {
	defer close(s.done)

	hello := make([]byte, 12)
	if _, err := io.ReadFull(s.conn, hello); err != nil {
		return
	}
	auth := make([]byte, xgb.Pad(int(xgb.Get16(hello[6:])))+xgb.Pad(int(xgb.Get16(hello[8:]))))
	if _, err := io.ReadFull(s.conn, auth); err != nil {
		return
	}
	if s.write(s.setup()) != nil {
		return
	}

	head := make([]byte, 4)
	for {
		if _, err := io.ReadFull(s.conn, head); err != nil {
			return
		}
		body := make([]byte, int(xgb.Get16(head[2:]))*4-4)
		if _, err := io.ReadFull(s.conn, body); err != nil {
			return
		}
		s.seq++
		s.mu.Lock()
		s.ops[head[0]]++
		s.mu.Unlock()

		var out []byte
		switch head[0] {
		case opInternAtom:
			n := xgb.Get16(body)
			out = s.packet(1)
			xgb.Put32(out[8:], uint32(s.atoms[string(body[4:4+n])]))
		case opGetInputFocus, opQueryExtension:
			out = s.packet(1)
		case opChangeWindowAttributes, opMapWindow, opConfigureWindow:
			win := xproto.Window(xgb.Get32(body))
			if s.badWindows[win] {
				out = s.packet(0)
				out[1] = xproto.BadWindow
				xgb.Put32(out[4:], uint32(win))
				out[10] = head[0]
			}
		}
		if out != nil && s.write(out) != nil {
			return
		}
	}
}

// packet starts a reply (kind 1) or error (kind 0) to the last request.
func (s *xServer) packet(kind byte) []byte {
	buf := make([]byte, 32)
	buf[0] = kind
	xgb.Put16(buf[2:], s.seq)
	return buf
}

func (s *xServer) write(buf []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_, err := s.conn.Write(buf)
	return err
}

func (s *xServer) count(op byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ops[op]
}

func TestXConnSetup(t *testing.T) {
	s := newXServer()
	c := dialXServer(t, s)

	require.Equal(t, Screen{Number: 0, Root: testRoot, Width: 1280, Height: 720, Depth: 24}, c.Screen())
	require.False(t, c.xinerama)
	require.Equal(t, 1, s.count(opQueryExtension))
}

func TestXConnHeadsWithoutXinerama(t *testing.T) {
	s := newXServer()
	c := dialXServer(t, s)

	heads, err := c.Heads()
	require.NoError(t, err)
	require.Equal(t, []Head{{Width: 1280, Height: 720}}, heads)
}

func TestXConnInternAtom(t *testing.T) {
	s := newXServer()
	s.atoms["WM_STATE"] = 0x155
	c := dialXServer(t, s)

	atom, err := c.InternAtom("WM_STATE")
	require.NoError(t, err)
	require.Equal(t, xproto.Atom(0x155), atom)

	// The server answers None for a name it does not know.
	atom, err = c.InternAtom("_NET_UNKNOWN")
	require.NoError(t, err)
	require.Equal(t, xproto.Atom(xproto.AtomNone), atom)
}

func TestXConnAtomTable(t *testing.T) {
	s := newXServer()
	for i, a := range supportedAtoms {
		s.atoms[a.name] = xproto.Atom(0x200 + i)
	}
	c := dialXServer(t, s)

	var table AtomTable
	require.NoError(t, table.Setup(c))
	id, err := table.Get(AtomWMProtocols)
	require.NoError(t, err)
	require.NotEqual(t, xproto.Atom(xproto.AtomNone), id)

	delete(s.atoms, "WM_STATE")
	var partial AtomTable
	require.ErrorIs(t, partial.Setup(c), ErrAtomResolution)
	_, err = partial.Get(AtomWMProtocols)
	require.ErrorIs(t, err, ErrAtomNotResolved)
}

func TestXConnCheckedRequests(t *testing.T) {
	const good, bad xproto.Window = 0x400001, 0x400002
	s := newXServer()
	s.badWindows[bad] = true
	c := dialXServer(t, s)

	require.NoError(t, c.MapWindow(good))
	require.NoError(t, c.ConfigureWindow(good, xproto.ConfigWindowBorderWidth, []uint32{2}))
	require.NoError(t, c.ChangeWindowAttributes(good, xproto.CwBorderPixel, []uint32{0xff0000}))

	err := c.MapWindow(bad)
	require.Error(t, err)
	require.Contains(t, err.Error(), "BadWindow")
	require.Error(t, c.ConfigureWindow(bad, xproto.ConfigWindowBorderWidth, []uint32{2}))
}

func TestXConnWaitForEvent(t *testing.T) {
	s := newXServer()
	c := dialXServer(t, s)

	go s.write(xproto.MapRequestEvent{Parent: testRoot, Window: 0x400001}.Bytes())

	ev, err := c.WaitForEvent()
	require.NoError(t, err)
	req, ok := ev.(xproto.MapRequestEvent)
	require.True(t, ok)
	require.Equal(t, xproto.Window(0x400001), req.Window)
	require.Equal(t, testRoot, req.Parent)
}

func TestXConnAsyncErrorIsProtocolError(t *testing.T) {
	const bad xproto.Window = 0x400002
	s := newXServer()
	s.badWindows[bad] = true
	c := dialXServer(t, s)

	// An unchecked request reports its failure through the event queue.
	xproto.MapWindow(c.xc, bad)

	_, err := c.WaitForEvent()
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	require.Contains(t, perr.Error(), "BadWindow")
	require.NotErrorIs(t, err, ErrConnectionLost)
}

func TestXConnClosed(t *testing.T) {
	s := newXServer()
	c := dialXServer(t, s)

	c.Close()
	_, err := c.WaitForEvent()
	require.ErrorIs(t, err, ErrConnectionLost)

	_, err = c.InternAtom("WM_STATE")
	require.ErrorIs(t, err, ErrConnectionLost)
	require.ErrorIs(t, c.MapWindow(0x400001), ErrConnectionLost)
	require.ErrorIs(t, c.ConfigureWindow(0x400001, xproto.ConfigWindowBorderWidth, []uint32{1}), ErrConnectionLost)
	require.ErrorIs(t, c.ChangeWindowAttributes(0x400001, xproto.CwBorderPixel, []uint32{0}), ErrConnectionLost)
	_, err = c.Heads()
	require.ErrorIs(t, err, ErrConnectionLost)

	require.NotPanics(t, c.Close)
	require.Zero(t, s.count(opInternAtom))
	require.Zero(t, s.count(opMapWindow))
}

func TestWMCloseStopsDispatchOnRealConn(t *testing.T) {
	const w xproto.Window = 0x400001
	s := newXServer()
	c := dialXServer(t, s)
	opts, _ := defaultOptions(func(string) string { return "" })
	wm := newWM(c, opts)

	// Close as the signal handler would, with an event already read.
	wm.Close()
	require.NotPanics(t, func() {
		wm.handleEvent(xproto.MapRequestEvent{Parent: testRoot, Window: w})
	})
	require.Zero(t, wm.stats.Snapshot().Dispatched)

	// A handler already past the closing check gets an error, not a panic.
	var err error
	require.NotPanics(t, func() {
		err = Dispatch(wm, xproto.MapRequestEvent{Parent: testRoot, Window: w})
	})
	require.ErrorIs(t, err, ErrConnectionLost)
	var herr *HandlerError
	require.ErrorAs(t, err, &herr)
	require.Equal(t, "MapRequest", herr.Kind)

	require.NoError(t, wm.Run())
	require.Zero(t, s.count(opMapWindow))
}
