package trigger

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/go-gl/gl/v2.1/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

var glfwKeys = map[string]glfw.Key{
	"space":      glfw.KeySpace,
	"enter":      glfw.KeyEnter,
	"tab":        glfw.KeyTab,
	"capslock":   glfw.KeyCapsLock,
	"leftctrl":   glfw.KeyLeftControl,
	"rightctrl":  glfw.KeyRightControl,
	"leftalt":    glfw.KeyLeftAlt,
	"rightalt":   glfw.KeyRightAlt,
	"leftshift":  glfw.KeyLeftShift,
	"rightshift": glfw.KeyRightShift,
	"scrolllock": glfw.KeyScrollLock,
	"pause":      glfw.KeyPause,
	"insert":     glfw.KeyInsert,
	"f1":         glfw.KeyF1,
	"f2":         glfw.KeyF2,
	"f3":         glfw.KeyF3,
	"f4":         glfw.KeyF4,
	"f5":         glfw.KeyF5,
	"f6":         glfw.KeyF6,
	"f7":         glfw.KeyF7,
	"f8":         glfw.KeyF8,
	"f9":         glfw.KeyF9,
	"f10":        glfw.KeyF10,
	"f11":        glfw.KeyF11,
	"f12":        glfw.KeyF12,
}

const (
	emulatorWidth  = 320
	emulatorHeight = 120
	// eventTimeout is how long the window waits for input before rechecking
	// its context, in seconds.
	eventTimeout = 0.05
)

// emulator is an on-screen window standing in for a keyboard. Holding the
// key while it has focus counts as pressed; closing it terminates the source.
type emulator struct {
	key   Key
	title string
}

func newEmulator(key Key, title string) *emulator {
	if title == "" {
		title = "Push to talk"
	}
	return &emulator{key: key, title: title}
}

func (e *emulator) Name() string { return "emulator window" }

func (e *emulator) Watch(ctx context.Context, set func(bool)) error {
	gk, ok := glfwKeys[e.key.Name]
	if !ok {
		return fmt.Errorf("key %q has no window binding", e.key.Name)
	}

	// GLFW and the GL context belong to the thread that created them.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 2)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	win, err := glfw.CreateWindow(emulatorWidth, emulatorHeight, e.title, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to create emulator window: %w", err)
	}
	defer win.Destroy()

	win.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		return fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	pressed := false
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key != gk {
			return
		}
		switch action {
		case glfw.Press, glfw.Repeat:
			pressed = true
		case glfw.Release:
			pressed = false
		}
		set(pressed)
	})
	// Losing focus mid-press never delivers the release.
	win.SetFocusCallback(func(_ *glfw.Window, focused bool) {
		if !focused && pressed {
			pressed = false
			set(false)
		}
	})

	for !win.ShouldClose() {
		if ctx.Err() != nil {
			return nil
		}
		paint(win, pressed)
		glfw.WaitEventsTimeout(eventTimeout)
	}
	return errors.New("emulator window closed")
}

// paint fills the window red while the key is held and dark grey otherwise.
func paint(win *glfw.Window, pressed bool) {
	if pressed {
		gl.ClearColor(0.8, 0.1, 0.1, 1)
	} else {
		gl.ClearColor(0.15, 0.15, 0.15, 1)
	}
	gl.Clear(gl.COLOR_BUFFER_BIT)
	win.SwapBuffers()
}
