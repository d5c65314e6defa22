package hookevent

import "fmt"

// ShowCommand is the SW_* value a window is being minimized, maximized or
// restored with.
type ShowCommand int32

const (
	ShowHide ShowCommand = iota
	ShowNormal
	ShowMinimized
	ShowMaximize
	ShowNoActivate
	Show
	ShowMinimize
	ShowMinNoActive
	ShowNA
	ShowRestore
	ShowDefault
	ShowForceMinimize
)

var showCommandNames = [...]string{
	ShowHide:          "hide",
	ShowNormal:        "shownormal",
	ShowMinimized:     "showminimized",
	ShowMaximize:      "maximize",
	ShowNoActivate:    "shownoactivate",
	Show:              "show",
	ShowMinimize:      "minimize",
	ShowMinNoActive:   "showminnoactive",
	ShowNA:            "showna",
	ShowRestore:       "restore",
	ShowDefault:       "showdefault",
	ShowForceMinimize: "forceminimize",
}

func (c ShowCommand) Valid() bool { return c >= 0 && int(c) < len(showCommandNames) }

func (c ShowCommand) String() string {
	if c.Valid() {
		return showCommandNames[c]
	}
	return fmt.Sprintf("showcommand(%d)", int32(c))
}
