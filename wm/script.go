package wm

import "github.com/TheSmallBoat/wlw/hookevent"

// Script decides what happens to windows. Its methods run one at a time on
// the goroutine calling Context.Run. The rect returned by OnWindowCreate and
// OnWindowMoveResize is sent back to the hook helper; returning the input
// rect leaves the window alone. A returned error ends Run. Callbacks must
// not call back into the Context.
type Script interface {
	OnWindowShow(w *Window, shown bool) error
	OnWindowActivate(w *Window, causedByMouse bool) error
	OnWindowCreate(w *Window, rect hookevent.Rect) (hookevent.Rect, error)
	OnWindowDestroy(w *Window) error
	OnWindowMinMax(w *Window, cmd hookevent.ShowCommand) error
	OnWindowMoveResize(w *Window, rect hookevent.Rect) (hookevent.Rect, error)
}

// NopScript accepts every event without changing anything. Embed it to
// implement only some callbacks.
type NopScript struct{}

func (NopScript) OnWindowShow(*Window, bool) error     { return nil }
func (NopScript) OnWindowActivate(*Window, bool) error { return nil }
func (NopScript) OnWindowDestroy(*Window) error        { return nil }

func (NopScript) OnWindowMinMax(*Window, hookevent.ShowCommand) error { return nil }

func (NopScript) OnWindowCreate(_ *Window, rect hookevent.Rect) (hookevent.Rect, error) {
	return rect, nil
}

func (NopScript) OnWindowMoveResize(_ *Window, rect hookevent.Rect) (hookevent.Rect, error) {
	return rect, nil
}
