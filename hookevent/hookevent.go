// Package hookevent holds the fixed-size records hook helpers exchange with
// the server: a request describing a window event and a response carrying
// the position and size the window should take.
package hookevent

import (
	"errors"
	"fmt"

	"github.com/lithdew/bytesutil"
)

const (
	// RequestSize is the size of every event record: a kind byte followed
	// by a 20 byte body, zero padded.
	RequestSize = 1 + bodySize

	// ResponseSize is the size of a PosAndSize record.
	ResponseSize = rectSize

	bodySize = 4 + rectSize
	rectSize = 4 * 4
)

var (
	ErrInvalidSize = errors.New("hook record has the wrong size")
	ErrUnknownKind = errors.New("unknown hook event kind")
)

type Kind uint8

const (
	KindShowWindow Kind = iota
	KindActivate
	KindCreateWindow
	KindDestroyWindow
	KindMinMax
	KindMoveSize
)

func (k Kind) String() string {
	switch k {
	case KindShowWindow:
		return "show-window"
	case KindActivate:
		return "activate"
	case KindCreateWindow:
		return "create-window"
	case KindDestroyWindow:
		return "destroy-window"
	case KindMinMax:
		return "min-max"
	case KindMoveSize:
		return "move-size"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Rect is a window rectangle in screen coordinates.
type Rect struct {
	Left   int32
	Top    int32
	Right  int32
	Bottom int32
}

func (r Rect) Width() int32  { return r.Right - r.Left }
func (r Rect) Height() int32 { return r.Bottom - r.Top }

func (r Rect) AppendTo(dst []byte) []byte {
	dst = bytesutil.AppendUint32LE(dst, uint32(r.Left))
	dst = bytesutil.AppendUint32LE(dst, uint32(r.Top))
	dst = bytesutil.AppendUint32LE(dst, uint32(r.Right))
	dst = bytesutil.AppendUint32LE(dst, uint32(r.Bottom))
	return dst
}

func unmarshalRect(buf []byte) Rect {
	return Rect{
		Left:   int32(bytesutil.Uint32LE(buf[0:4])),
		Top:    int32(bytesutil.Uint32LE(buf[4:8])),
		Right:  int32(bytesutil.Uint32LE(buf[8:12])),
		Bottom: int32(bytesutil.Uint32LE(buf[12:16])),
	}
}

// PosAndSize is the answer to CreateWindow and MoveSize events.
type PosAndSize struct {
	Rect Rect
}

func (p PosAndSize) AppendTo(dst []byte) []byte {
	return p.Rect.AppendTo(dst)
}

func UnmarshalPosAndSize(buf []byte) (PosAndSize, error) {
	var res PosAndSize
	if len(buf) != ResponseSize {
		return res, fmt.Errorf("%w: %d bytes, want %d", ErrInvalidSize, len(buf), ResponseSize)
	}
	res.Rect = unmarshalRect(buf)
	return res, nil
}
