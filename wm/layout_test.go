package wm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TheSmallBoat/wlw/hookevent"
)

const testRules = `
grid = 10
min_width = 200
min_height = 100

[work_area]
left = 0
top = 0
right = 1000
bottom = 800
`

func TestParseRules(t *testing.T) {
	rules, err := ParseRules([]byte(testRules))
	require.NoError(t, err)
	require.EqualValues(t, 10, rules.Grid)
	require.EqualValues(t, 200, rules.MinWidth)
	require.EqualValues(t, 100, rules.MinHeight)
	require.NotNil(t, rules.WorkArea)
	require.Equal(t, Area{Left: 0, Top: 0, Right: 1000, Bottom: 800}, *rules.WorkArea)

	rules, err = ParseRules([]byte("grid = 4"))
	require.NoError(t, err)
	require.Nil(t, rules.WorkArea)
}

func TestParseRulesInvalid(t *testing.T) {
	for _, data := range []string{
		"grid = -1",
		"min_width = -5",
		"[work_area]\nleft = 10\nright = 10\nbottom = 10",
		"min_width = 500\n[work_area]\nright = 400\nbottom = 400",
		"grid = ",
	} {
		_, err := ParseRules([]byte(data))
		require.Error(t, err, data)
	}
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.toml")
	require.NoError(t, os.WriteFile(path, []byte(testRules), 0o600))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.EqualValues(t, 10, rules.Grid)

	_, err = LoadRules(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLayoutScriptApply(t *testing.T) {
	rules, err := ParseRules([]byte(testRules))
	require.NoError(t, err)
	s := NewLayoutScript(rules, nil)

	tests := []struct {
		name string
		in   hookevent.Rect
		want hookevent.Rect
	}{
		{
			name: "already aligned",
			in:   hookevent.Rect{Left: 100, Top: 100, Right: 400, Bottom: 300},
			want: hookevent.Rect{Left: 100, Top: 100, Right: 400, Bottom: 300},
		},
		{
			name: "snapped to grid",
			in:   hookevent.Rect{Left: 104, Top: 96, Right: 407, Bottom: 299},
			want: hookevent.Rect{Left: 100, Top: 100, Right: 400, Bottom: 300},
		},
		{
			name: "grown to minimum size",
			in:   hookevent.Rect{Left: 10, Top: 10, Right: 60, Bottom: 40},
			want: hookevent.Rect{Left: 10, Top: 10, Right: 210, Bottom: 110},
		},
		{
			name: "pulled into work area",
			in:   hookevent.Rect{Left: 900, Top: -50, Right: 1200, Bottom: 150},
			want: hookevent.Rect{Left: 700, Top: 0, Right: 1000, Bottom: 200},
		},
		{
			name: "shrunk to work area",
			in:   hookevent.Rect{Left: -20, Top: -20, Right: 1500, Bottom: 900},
			want: hookevent.Rect{Left: 0, Top: 0, Right: 1000, Bottom: 800},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.want, s.Apply(test.in))
		})
	}
}

func TestLayoutScriptWithoutRules(t *testing.T) {
	s := NewLayoutScript(Rules{}, nil)
	rect := hookevent.Rect{Left: -3, Top: 7, Right: 13, Bottom: 19}
	require.Equal(t, rect, s.Apply(rect))

	w := &Window{HWND: 1}
	got, err := s.OnWindowCreate(w, rect)
	require.NoError(t, err)
	require.Equal(t, rect, got)
	require.NoError(t, s.OnWindowShow(w, true))
}

func TestSnap(t *testing.T) {
	require.EqualValues(t, 0, snap(4, 10))
	require.EqualValues(t, 10, snap(5, 10))
	require.EqualValues(t, -10, snap(-6, 10))
	require.EqualValues(t, 0, snap(-5, 10))
	require.EqualValues(t, -10, snap(-10, 10))
}
