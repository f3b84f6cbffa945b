package trigger

import (
	"encoding/binary"
	"math/bits"
	"strconv"
	"strings"
)

const (
	evKey = 0x01

	keyReleased = 0
	keyPressed  = 1
	keyRepeat   = 2
)

// hasKeyCapability reports whether a sysfs capabilities/key bitmap has the
// bit for code set. The bitmap is a list of hex words, most significant
// first, each as wide as the kernel's unsigned long.
func hasKeyCapability(bitmap string, code uint16) bool {
	words := strings.Fields(bitmap)
	idx := int(code) / bits.UintSize
	if idx >= len(words) {
		return false
	}
	w, err := strconv.ParseUint(words[len(words)-1-idx], 16, bits.UintSize)
	if err != nil {
		return false
	}
	return w&(1<<(uint(code)%bits.UintSize)) != 0
}

// eventSize is sizeof(struct input_event): a timeval followed by a u16 type,
// a u16 code and an s32 value.
const eventSize = 2*(bits.UintSize/8) + 8

// scanKeyEvents walks whole input_event records in buf and returns the last
// state reported for code, if any.
func scanKeyEvents(buf []byte, code uint16) (pressed, seen bool) {
	const ts = eventSize - 8
	for off := 0; off+eventSize <= len(buf); off += eventSize {
		ev := buf[off+ts : off+eventSize]
		if binary.NativeEndian.Uint16(ev[0:2]) != evKey || binary.NativeEndian.Uint16(ev[2:4]) != code {
			continue
		}
		switch int32(binary.NativeEndian.Uint32(ev[4:8])) {
		case keyReleased:
			pressed, seen = false, true
		case keyPressed, keyRepeat:
			pressed, seen = true, true
		}
	}
	return pressed, seen
}
