//go:build linux && x11

package trigger

/*
#cgo pkg-config: x11
#include <X11/Xlib.h>
#include <X11/XKBlib.h>
#include <stdlib.h>

Display* openDisplay(void) {
    return XOpenDisplay(NULL);
}

int grabKey(Display* d, const char* keysymName) {
    KeySym sym = XStringToKeysym(keysymName);
    if (sym == NoSymbol) return 0;
    KeyCode code = XKeysymToKeycode(d, sym);
    if (code == 0) return 0;

    Window root = DefaultRootWindow(d);
    // Held keys would otherwise arrive as release/press pairs.
    XkbSetDetectableAutoRepeat(d, True, NULL);
    XGrabKey(d, code, AnyModifier, root, False, GrabModeAsync, GrabModeAsync);
    XSelectInput(d, root, KeyPressMask | KeyReleaseMask);
    XSync(d, False);
    return code;
}

void ungrabKey(Display* d, int code) {
    XUngrabKey(d, code, AnyModifier, DefaultRootWindow(d));
    XSync(d, False);
}

int checkEvent(Display* d, int* keycode, int* pressed) {
    XEvent event;
    while (XPending(d) > 0) {
        XNextEvent(d, &event);
        if (event.type == KeyPress || event.type == KeyRelease) {
            *keycode = event.xkey.keycode;
            *pressed = (event.type == KeyPress) ? 1 : 0;
            return 1;
        }
    }
    return 0;
}
*/
import "C"

import (
	"context"
	"fmt"
	"time"
	"unsafe"
)

type x11Watcher struct {
	display *C.Display
	keycode C.int
	key     Key
}

// openX11 grabs key on the X11 root window so it is seen whichever window
// has focus.
func openX11(key Key) (watcher, error) {
	d := C.openDisplay()
	if d == nil {
		return nil, fmt.Errorf("failed to open X11 display")
	}

	name := C.CString(key.Keysym)
	defer C.free(unsafe.Pointer(name))

	code := C.grabKey(d, name)
	if code == 0 {
		C.XCloseDisplay(d)
		return nil, fmt.Errorf("failed to grab key %q", key.Keysym)
	}
	return &x11Watcher{display: d, keycode: code, key: key}, nil
}

func (w *x11Watcher) Name() string { return "x11 " + w.key.Keysym }

func (w *x11Watcher) Watch(ctx context.Context, set func(bool)) error {
	defer func() {
		C.ungrabKey(w.display, w.keycode)
		C.XCloseDisplay(w.display)
	}()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			var keycode, pressed C.int
			for C.checkEvent(w.display, &keycode, &pressed) != 0 {
				if keycode == w.keycode {
					set(pressed == 1)
				}
			}
		}
	}
}
