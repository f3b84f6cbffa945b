package trigger

import (
	"fmt"
	"strings"
)

// Key names one physical key in each backend's vocabulary.
type Key struct {
	Name   string
	Evdev  uint16 // linux/input-event-codes.h
	Keysym string // X11 keysym name
}

var keys = []Key{
	{"space", 57, "space"},
	{"enter", 28, "Return"},
	{"tab", 15, "Tab"},
	{"capslock", 58, "Caps_Lock"},
	{"leftctrl", 29, "Control_L"},
	{"rightctrl", 97, "Control_R"},
	{"leftalt", 56, "Alt_L"},
	{"rightalt", 100, "Alt_R"},
	{"leftshift", 42, "Shift_L"},
	{"rightshift", 54, "Shift_R"},
	{"scrolllock", 70, "Scroll_Lock"},
	{"pause", 119, "Pause"},
	{"insert", 110, "Insert"},
	{"f1", 59, "F1"},
	{"f2", 60, "F2"},
	{"f3", 61, "F3"},
	{"f4", 62, "F4"},
	{"f5", 63, "F5"},
	{"f6", 64, "F6"},
	{"f7", 65, "F7"},
	{"f8", 66, "F8"},
	{"f9", 67, "F9"},
	{"f10", 68, "F10"},
	{"f11", 87, "F11"},
	{"f12", 88, "F12"},
}

// LookupKey resolves a case-insensitive key name such as "space" or "F9".
func LookupKey(name string) (Key, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, k := range keys {
		if k.Name == n {
			return k, nil
		}
	}
	return Key{}, fmt.Errorf("unknown trigger key %q", name)
}
