package trigger

import (
	"encoding/binary"
	"math/bits"
	"strings"
	"testing"
)

func TestHasKeyCapability(t *testing.T) {
	if bits.UintSize != 64 {
		t.Skip("bitmap fixtures assume a 64-bit kernel")
	}
	// A typical keyboard: low word has KEY_ESC..KEY_SPACE and friends.
	keyboard := "1 0 0 0 0 0 feffff ffffffffffffffff ffffffffffffffff fffffffffffffffe"
	mouse := "1f0000 0 0 0 0 0 0 0 0"

	if !hasKeyCapability(keyboard, 57) {
		t.Error("expected keyboard to have KEY_SPACE")
	}
	if !hasKeyCapability(keyboard, 88) {
		t.Error("expected keyboard to have KEY_F12")
	}
	if hasKeyCapability(mouse, 57) {
		t.Error("mouse must not report KEY_SPACE")
	}
	if hasKeyCapability("0", 57) || hasKeyCapability("", 57) {
		t.Error("empty bitmaps have no keys")
	}
	if hasKeyCapability("zz", 1) {
		t.Error("malformed bitmap must not report keys")
	}
	if hasKeyCapability(strings.Repeat("0 ", 3)+"1", 64*5) {
		t.Error("codes past the bitmap are absent")
	}
}

func event(typ, code uint16, value int32) []byte {
	b := make([]byte, eventSize)
	ts := eventSize - 8
	binary.NativeEndian.PutUint16(b[ts:], typ)
	binary.NativeEndian.PutUint16(b[ts+2:], code)
	binary.NativeEndian.PutUint32(b[ts+4:], uint32(value))
	return b
}

func TestScanKeyEvents(t *testing.T) {
	const space = 57
	const syn = 0

	tests := []struct {
		name    string
		events  [][]byte
		pressed bool
		seen    bool
	}{
		{"press", [][]byte{event(evKey, space, keyPressed), event(syn, 0, 0)}, true, true},
		{"repeat", [][]byte{event(evKey, space, keyRepeat)}, true, true},
		{"press then release", [][]byte{event(evKey, space, keyPressed), event(evKey, space, keyReleased)}, false, true},
		{"other key", [][]byte{event(evKey, 30, keyPressed)}, false, false},
		{"non key event", [][]byte{event(0x04, space, 1)}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf []byte
			for _, e := range tt.events {
				buf = append(buf, e...)
			}
			// A trailing partial record is ignored.
			buf = append(buf, 0xff, 0xff)

			pressed, seen := scanKeyEvents(buf, space)
			if pressed != tt.pressed || seen != tt.seen {
				t.Fatalf("expected (%v, %v), got (%v, %v)", tt.pressed, tt.seen, pressed, seen)
			}
		})
	}
}
