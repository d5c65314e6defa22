package hookevent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventRecords(t *testing.T) {
	rect := Rect{Left: -8, Top: 10, Right: 1920, Bottom: 1080}

	events := []Event{
		ShowWindow{HWND: 0x10, Shown: true},
		Activate{HWND: 0x20, CausedByMouse: true},
		CreateWindow{HWND: 0x30, Rect: rect},
		DestroyWindow{HWND: 0x40},
		MinMax{HWND: 0x50, ShowCommand: ShowMaximize},
		MoveSize{HWND: 0xdeadbeef, Rect: rect},
	}

	for _, e := range events {
		buf := e.AppendTo(nil)
		require.Len(t, buf, RequestSize, e.Kind().String())
		require.EqualValues(t, e.Kind(), buf[0])

		got, err := UnmarshalEvent(buf)
		require.NoError(t, err)
		require.Equal(t, e, got)
	}
}

func TestEventAppendsAfterExistingData(t *testing.T) {
	buf := DestroyWindow{HWND: 7}.AppendTo([]byte{0xaa, 0xbb})
	require.Len(t, buf, 2+RequestSize)
	require.Equal(t, []byte{0xaa, 0xbb, byte(KindDestroyWindow), 7, 0, 0, 0}, buf[:7])
	for _, b := range buf[7:] {
		require.Zero(t, b)
	}
}

func TestEventLayout(t *testing.T) {
	buf := MoveSize{HWND: 1, Rect: Rect{Left: -1, Top: 2, Right: 3, Bottom: 4}}.AppendTo(nil)
	require.Equal(t, []byte{
		5,
		1, 0, 0, 0,
		0xff, 0xff, 0xff, 0xff,
		2, 0, 0, 0,
		3, 0, 0, 0,
		4, 0, 0, 0,
	}, buf)
}

// Records written by a helper built from the packed C header.
func TestUnmarshalPackedRecord(t *testing.T) {
	move := []byte{
		5,
		0x03, 0x02, 0x01, 0x00,
		0xf6, 0xff, 0xff, 0xff,
		0x14, 0x00, 0x00, 0x00,
		0x20, 0x03, 0x00, 0x00,
		0x58, 0x02, 0x00, 0x00,
	}
	got, err := UnmarshalEvent(move)
	require.NoError(t, err)
	require.Equal(t, MoveSize{HWND: 0x00010203, Rect: Rect{Left: -10, Top: 20, Right: 800, Bottom: 600}}, got)

	minmax := make([]byte, RequestSize)
	copy(minmax, []byte{4, 0x10, 0, 0, 0, 3, 0, 0, 0})
	got, err = UnmarshalEvent(minmax)
	require.NoError(t, err)
	require.Equal(t, MinMax{HWND: 0x10, ShowCommand: ShowMaximize}, got)

	res, err := UnmarshalPosAndSize([]byte{
		0x64, 0, 0, 0,
		0x32, 0, 0, 0,
		0x84, 0x03, 0, 0,
		0x8a, 0x02, 0, 0,
	})
	require.NoError(t, err)
	require.Equal(t, Rect{Left: 100, Top: 50, Right: 900, Bottom: 650}, res.Rect)
}

func TestUnmarshalEventErrors(t *testing.T) {
	_, err := UnmarshalEvent(make([]byte, RequestSize-1))
	require.ErrorIs(t, err, ErrInvalidSize)

	_, err = UnmarshalEvent(make([]byte, RequestSize+1))
	require.ErrorIs(t, err, ErrInvalidSize)

	buf := make([]byte, RequestSize)
	buf[0] = 6
	_, err = UnmarshalEvent(buf)
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestPosAndSize(t *testing.T) {
	res := PosAndSize{Rect: Rect{Left: 100, Top: 50, Right: 900, Bottom: 650}}
	buf := res.AppendTo(nil)
	require.Len(t, buf, ResponseSize)

	got, err := UnmarshalPosAndSize(buf)
	require.NoError(t, err)
	require.Equal(t, res, got)
	require.EqualValues(t, 800, got.Rect.Width())
	require.EqualValues(t, 600, got.Rect.Height())

	_, err = UnmarshalPosAndSize(buf[:8])
	require.ErrorIs(t, err, ErrInvalidSize)
}

func TestShowCommandString(t *testing.T) {
	require.Equal(t, "maximize", ShowMaximize.String())
	require.Equal(t, "forceminimize", ShowForceMinimize.String())
	require.Equal(t, "hide", ShowHide.String())
	require.False(t, ShowCommand(12).Valid())
	require.Equal(t, "showcommand(-1)", ShowCommand(-1).String())
}
