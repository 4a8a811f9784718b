package main

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/BurntSushi/xgb/xproto"
)

// Atom names one of the protocol atoms the window manager relies on. The
// numeric value the server assigns to it is looked up in an AtomTable.
type Atom int

// ICCCM related atoms
const (
	AtomUTF8String Atom = iota
	AtomWMProtocols
	AtomWMDeleteWindow
	AtomWMState
	AtomWMTakeFocus

	// EWMH
	AtomNetActiveWindow
	AtomNetSupported
	AtomNetWMName
	AtomNetWMState
	AtomNetSupportingWMCheck
	AtomNetWMStateFullscreen
	AtomNetWMWindowType
	AtomNetWMWindowTypeDialog
	AtomNetClientList

	atomCount
)

// supportedAtoms is resolved in this order on setup. Every entry is
// required.
var supportedAtoms = [atomCount]struct {
	atom Atom
	name string
}{
	{AtomUTF8String, "UTF8_STRING"},
	{AtomWMProtocols, "WM_PROTOCOLS"},
	{AtomWMDeleteWindow, "WM_DELETE_WINDOW"},
	{AtomWMState, "WM_STATE"},
	{AtomWMTakeFocus, "WM_TAKE_FOCUS"},
	{AtomNetActiveWindow, "_NET_ACTIVE_WINDOW"},
	{AtomNetSupported, "_NET_SUPPORTED"},
	{AtomNetWMName, "_NET_WM_NAME"},
	{AtomNetWMState, "_NET_WM_STATE"},
	{AtomNetSupportingWMCheck, "_NET_SUPPORTING_WM_CHECK"},
	{AtomNetWMStateFullscreen, "_NET_WM_STATE_FULLSCREEN"},
	{AtomNetWMWindowType, "_NET_WM_WINDOW_TYPE"},
	{AtomNetWMWindowTypeDialog, "_NET_WM_WINDOW_TYPE_DIALOG"},
	{AtomNetClientList, "_NET_CLIENT_LIST"},
}

func (a Atom) String() string {
	if a < 0 || a >= atomCount {
		return fmt.Sprintf("Atom(%d)", int(a))
	}
	return supportedAtoms[a].name
}

// AtomTable maps Atoms to the identifiers the server assigned them. It is
// filled once by Setup; lookups are safe from any goroutine.
type AtomTable struct {
	ids atomic.Pointer[[atomCount]xproto.Atom]
}

// Setup interns every supported atom, blocking on each reply. The table is
// only replaced once all of them resolved, so a failed Setup leaves the
// previous contents in place.
func (t *AtomTable) Setup(c XConn) error {
	var ids [atomCount]xproto.Atom
	for _, entry := range supportedAtoms {
		id, err := c.InternAtom(entry.name)
		if err != nil {
			return fmt.Errorf("%w %s: %w", ErrAtomResolution, entry.name, err)
		}
		if id == xproto.AtomNone {
			return fmt.Errorf("%w %s: server returned None", ErrAtomResolution, entry.name)
		}
		slog.Debug("Resolved atom", "name", entry.name, "id", id)
		ids[entry.atom] = id
	}
	t.ids.Store(&ids)
	return nil
}

// Get returns the server identifier for a.
func (t *AtomTable) Get(a Atom) (xproto.Atom, error) {
	ids := t.ids.Load()
	if ids == nil || a < 0 || a >= atomCount {
		return xproto.AtomNone, fmt.Errorf("%w: %s", ErrAtomNotResolved, a)
	}
	return ids[a], nil
}

// Names returns the resolved table keyed by atom name, or nil before Setup.
func (t *AtomTable) Names() map[string]xproto.Atom {
	ids := t.ids.Load()
	if ids == nil {
		return nil
	}
	names := make(map[string]xproto.Atom, atomCount)
	for _, entry := range supportedAtoms {
		names[entry.name] = ids[entry.atom]
	}
	return names
}
