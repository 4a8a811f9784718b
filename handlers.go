package main

import (
	"fmt"
	"log/slog"

	"github.com/BurntSushi/xgb/xproto"
)

// HandleCreateNotify decorates and shows a new top-level window: border
// color, then border width, then map. Override-redirect windows (menus,
// tooltips) manage themselves.
func (wm *WM) HandleCreateNotify(e xproto.CreateNotifyEvent) error {
	if e.OverrideRedirect {
		return nil
	}
	if err := wm.conn.ChangeWindowAttributes(
		e.Window,
		xproto.CwBorderPixel,
		[]uint32{wm.opts.BorderColor},
	); err != nil {
		return fmt.Errorf("setting border color of window %d: %w", e.Window, err)
	}
	if err := wm.conn.ConfigureWindow(
		e.Window,
		xproto.ConfigWindowBorderWidth,
		[]uint32{wm.opts.BorderWidth},
	); err != nil {
		return fmt.Errorf("setting border width of window %d: %w", e.Window, err)
	}
	if err := wm.conn.MapWindow(e.Window); err != nil {
		return fmt.Errorf("mapping window %d: %w", e.Window, err)
	}
	return nil
}

// HandleMapRequest maps the window. With substructure redirect held, a
// client's own MapWindow only reaches us as this request.
func (wm *WM) HandleMapRequest(e xproto.MapRequestEvent) error {
	if err := wm.conn.MapWindow(e.Window); err != nil {
		return fmt.Errorf("mapping window %d: %w", e.Window, err)
	}
	return nil
}

// HandleConfigureRequest grants the geometry and stacking the client asked
// for. The border width stays ours.
func (wm *WM) HandleConfigureRequest(e xproto.ConfigureRequestEvent) error {
	mask, values := configureRequestValues(e)
	if mask == 0 {
		return nil
	}
	if err := wm.conn.ConfigureWindow(e.Window, mask, values); err != nil {
		return fmt.Errorf("configuring window %d: %w", e.Window, err)
	}
	return nil
}

// HandleConfigureNotify tracks root window resizes, e.g. from RandR.
func (wm *WM) HandleConfigureNotify(e xproto.ConfigureNotifyEvent) error {
	if e.Window != wm.screen.Root {
		return nil
	}
	slog.Info("Root window changed", "width", e.Width, "height", e.Height)
	wm.updateHeads()
	return nil
}

// configureRequestValues builds the ConfigureWindow arguments for e. Values
// must follow the bit order of the mask.
func configureRequestValues(e xproto.ConfigureRequestEvent) (uint16, []uint32) {
	var (
		mask   uint16
		values []uint32
	)
	add := func(bit uint16, v uint32) {
		if e.ValueMask&bit != 0 {
			mask |= bit
			values = append(values, v)
		}
	}
	add(xproto.ConfigWindowX, uint32(int32(e.X)))
	add(xproto.ConfigWindowY, uint32(int32(e.Y)))
	add(xproto.ConfigWindowWidth, uint32(e.Width))
	add(xproto.ConfigWindowHeight, uint32(e.Height))
	add(xproto.ConfigWindowSibling, uint32(e.Sibling))
	add(xproto.ConfigWindowStackMode, uint32(e.StackMode))
	return mask, values
}
