package hookevent

import (
	"fmt"

	"github.com/lithdew/bytesutil"
)

// Event is one decoded hook record.
type Event interface {
	Kind() Kind
	Window() uint32

	// AppendTo appends the full RequestSize record.
	AppendTo(dst []byte) []byte
}

type ShowWindow struct {
	HWND  uint32
	Shown bool
}

type Activate struct {
	HWND          uint32
	CausedByMouse bool
}

type CreateWindow struct {
	HWND uint32
	Rect Rect
}

type DestroyWindow struct {
	HWND uint32
}

type MinMax struct {
	HWND        uint32
	ShowCommand ShowCommand
}

type MoveSize struct {
	HWND uint32
	Rect Rect
}

func (ShowWindow) Kind() Kind    { return KindShowWindow }
func (Activate) Kind() Kind      { return KindActivate }
func (CreateWindow) Kind() Kind  { return KindCreateWindow }
func (DestroyWindow) Kind() Kind { return KindDestroyWindow }
func (MinMax) Kind() Kind        { return KindMinMax }
func (MoveSize) Kind() Kind      { return KindMoveSize }

func (e ShowWindow) Window() uint32    { return e.HWND }
func (e Activate) Window() uint32      { return e.HWND }
func (e CreateWindow) Window() uint32  { return e.HWND }
func (e DestroyWindow) Window() uint32 { return e.HWND }
func (e MinMax) Window() uint32        { return e.HWND }
func (e MoveSize) Window() uint32      { return e.HWND }

func (e ShowWindow) AppendTo(dst []byte) []byte {
	dst, start := header(dst, e)
	dst = append(dst, boolByte(e.Shown))
	return pad(dst, start)
}

func (e Activate) AppendTo(dst []byte) []byte {
	dst, start := header(dst, e)
	dst = append(dst, boolByte(e.CausedByMouse))
	return pad(dst, start)
}

func (e CreateWindow) AppendTo(dst []byte) []byte {
	dst, start := header(dst, e)
	dst = e.Rect.AppendTo(dst)
	return pad(dst, start)
}

func (e DestroyWindow) AppendTo(dst []byte) []byte {
	dst, start := header(dst, e)
	return pad(dst, start)
}

func (e MinMax) AppendTo(dst []byte) []byte {
	dst, start := header(dst, e)
	dst = bytesutil.AppendUint32LE(dst, uint32(e.ShowCommand))
	return pad(dst, start)
}

func (e MoveSize) AppendTo(dst []byte) []byte {
	dst, start := header(dst, e)
	dst = e.Rect.AppendTo(dst)
	return pad(dst, start)
}

func header(dst []byte, e Event) ([]byte, int) {
	start := len(dst)
	dst = append(dst, byte(e.Kind()))
	dst = bytesutil.AppendUint32LE(dst, e.Window())
	return dst, start
}

func pad(dst []byte, start int) []byte {
	for len(dst)-start < RequestSize {
		dst = append(dst, 0)
	}
	return dst
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// UnmarshalEvent decodes a RequestSize record.
func UnmarshalEvent(buf []byte) (Event, error) {
	if len(buf) != RequestSize {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrInvalidSize, len(buf), RequestSize)
	}

	var kind Kind
	kind, buf = Kind(buf[0]), buf[1:]

	var hwnd uint32
	hwnd, buf = bytesutil.Uint32LE(buf[:4]), buf[4:]

	switch kind {
	case KindShowWindow:
		return ShowWindow{HWND: hwnd, Shown: buf[0] != 0}, nil
	case KindActivate:
		return Activate{HWND: hwnd, CausedByMouse: buf[0] != 0}, nil
	case KindCreateWindow:
		return CreateWindow{HWND: hwnd, Rect: unmarshalRect(buf)}, nil
	case KindDestroyWindow:
		return DestroyWindow{HWND: hwnd}, nil
	case KindMinMax:
		return MinMax{HWND: hwnd, ShowCommand: ShowCommand(int32(bytesutil.Uint32LE(buf[:4])))}, nil
	case KindMoveSize:
		return MoveSize{HWND: hwnd, Rect: unmarshalRect(buf)}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(kind))
}
