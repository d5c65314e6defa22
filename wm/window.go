package wm

import "github.com/TheSmallBoat/wlw/hookevent"

// Window is what the context knows about one top-level window. It is
// created the first time any event names the window and dropped when the
// window is destroyed.
type Window struct {
	HWND        uint32
	Rect        hookevent.Rect
	Shown       bool
	ShowCommand hookevent.ShowCommand
}

type windowRegistry struct {
	windows map[uint32]*Window
	active  uint32
}

func newWindowRegistry() *windowRegistry {
	return &windowRegistry{windows: make(map[uint32]*Window)}
}

func (r *windowRegistry) get(hwnd uint32) *Window {
	w, ok := r.windows[hwnd]
	if !ok {
		w = &Window{HWND: hwnd, ShowCommand: hookevent.ShowNormal}
		r.windows[hwnd] = w
		windowsGauge.Inc()
	}
	return w
}

func (r *windowRegistry) remove(hwnd uint32) (*Window, bool) {
	w, ok := r.windows[hwnd]
	if !ok {
		return nil, false
	}
	delete(r.windows, hwnd)
	windowsGauge.Dec()
	if r.active == hwnd {
		r.active = 0
	}
	return w, true
}
