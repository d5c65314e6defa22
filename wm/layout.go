package wm

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
	"github.com/sirupsen/logrus"

	"github.com/TheSmallBoat/wlw/hookevent"
)

// Rules is the layout rules file:
//
//	grid = 8
//	min_width = 320
//	min_height = 200
//
//	[work_area]
//	left = 0
//	top = 0
//	right = 1920
//	bottom = 1040
type Rules struct {
	Grid      int32 `toml:"grid"`
	MinWidth  int32 `toml:"min_width"`
	MinHeight int32 `toml:"min_height"`
	WorkArea  *Area `toml:"work_area"`
}

type Area struct {
	Left   int32 `toml:"left"`
	Top    int32 `toml:"top"`
	Right  int32 `toml:"right"`
	Bottom int32 `toml:"bottom"`
}

func (a Area) rect() hookevent.Rect {
	return hookevent.Rect{Left: a.Left, Top: a.Top, Right: a.Right, Bottom: a.Bottom}
}

// LoadRules reads and validates a rules file.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, err
	}
	rules, err := ParseRules(data)
	if err != nil {
		return Rules{}, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

func ParseRules(data []byte) (Rules, error) {
	var rules Rules
	if err := toml.Unmarshal(data, &rules); err != nil {
		return Rules{}, err
	}
	return rules, rules.validate()
}

func (r Rules) validate() error {
	if r.Grid < 0 || r.MinWidth < 0 || r.MinHeight < 0 {
		return fmt.Errorf("grid %d, min_width %d and min_height %d must not be negative", r.Grid, r.MinWidth, r.MinHeight)
	}
	if a := r.WorkArea; a != nil {
		if a.Right <= a.Left || a.Bottom <= a.Top {
			return fmt.Errorf("work_area [%d %d %d %d] is empty", a.Left, a.Top, a.Right, a.Bottom)
		}
		if r.MinWidth > a.Right-a.Left || r.MinHeight > a.Bottom-a.Top {
			return fmt.Errorf("minimum size %dx%d does not fit the work area", r.MinWidth, r.MinHeight)
		}
	}
	return nil
}

// LayoutScript places new and moved windows according to Rules: it enforces
// the minimum size, snaps to the grid and keeps windows inside the work area.
type LayoutScript struct {
	NopScript

	rules Rules
	log   logrus.FieldLogger
}

func NewLayoutScript(rules Rules, log logrus.FieldLogger) *LayoutScript {
	if log == nil {
		log = logrus.StandardLogger().WithField("component", "layout")
	}
	return &LayoutScript{rules: rules, log: log}
}

func (s *LayoutScript) OnWindowCreate(w *Window, rect hookevent.Rect) (hookevent.Rect, error) {
	return s.place(w, rect), nil
}

func (s *LayoutScript) OnWindowMoveResize(w *Window, rect hookevent.Rect) (hookevent.Rect, error) {
	return s.place(w, rect), nil
}

func (s *LayoutScript) place(w *Window, rect hookevent.Rect) hookevent.Rect {
	out := s.Apply(rect)
	if out != rect {
		s.log.WithFields(logrus.Fields{"hwnd": w.HWND, "from": rect, "to": out}).Debug("adjusted window")
	}
	return out
}

// Apply returns rect adjusted to the rules.
func (s *LayoutScript) Apply(rect hookevent.Rect) hookevent.Rect {
	r := s.rules
	left, top := rect.Left, rect.Top
	width, height := max(rect.Width(), r.MinWidth), max(rect.Height(), r.MinHeight)

	if r.Grid > 0 {
		left, top = snap(left, r.Grid), snap(top, r.Grid)
		width, height = max(snap(width, r.Grid), r.Grid), max(snap(height, r.Grid), r.Grid)
		width, height = max(width, r.MinWidth), max(height, r.MinHeight)
	}

	if r.WorkArea != nil {
		area := r.WorkArea.rect()
		width, height = min(width, area.Width()), min(height, area.Height())
		left = clamp(left, area.Left, area.Right-width)
		top = clamp(top, area.Top, area.Bottom-height)
	}

	return hookevent.Rect{Left: left, Top: top, Right: left + width, Bottom: top + height}
}

// snap rounds v to the nearest multiple of grid.
func snap(v, grid int32) int32 {
	q := (v + grid/2) / grid
	if v+grid/2 < 0 && (v+grid/2)%grid != 0 {
		q--
	}
	return q * grid
}

func clamp(v, lo, hi int32) int32 {
	return max(lo, min(v, hi))
}
