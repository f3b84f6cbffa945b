//go:build linux

package trigger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// pollTimeout bounds how long a watcher waits before rechecking ctx.
const pollTimeout = 100 // milliseconds

var (
	devInputGlob  = "/dev/input/event*"
	sysInputClass = "/sys/class/input"
)

type evdevWatcher struct {
	path string
	name string
	fd   int
	key  Key
}

// openKeyboards opens every event device that can emit key. Devices that
// cannot be opened are skipped; finding none is an error.
func openKeyboards(key Key, log zerolog.Logger) ([]watcher, error) {
	paths, err := filepath.Glob(devInputGlob)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate input devices: %w", err)
	}

	var watchers []watcher
	for _, path := range paths {
		node := filepath.Base(path)
		caps, err := os.ReadFile(filepath.Join(sysInputClass, node, "device", "capabilities", "key"))
		if err != nil || !hasKeyCapability(string(caps), key.Evdev) {
			continue
		}

		fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err != nil {
			log.Warn().Err(err).Str("device", path).Msg("Skipping keyboard")
			continue
		}

		name := node
		if b, err := os.ReadFile(filepath.Join(sysInputClass, node, "device", "name")); err == nil {
			name = strings.TrimSpace(string(b))
		}
		watchers = append(watchers, &evdevWatcher{path: path, name: name, fd: fd, key: key})
	}

	if len(watchers) == 0 {
		return nil, fmt.Errorf("no readable keyboard devices with key %q under %s", key.Name, filepath.Dir(devInputGlob))
	}
	return watchers, nil
}

func (w *evdevWatcher) Name() string { return w.name + " (" + w.path + ")" }

func (w *evdevWatcher) Watch(ctx context.Context, set func(bool)) error {
	defer unix.Close(w.fd)

	buf := make([]byte, 64*eventSize)
	fds := []unix.PollFd{{Fd: int32(w.fd), Events: unix.POLLIN}}
	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := unix.Poll(fds, pollTimeout)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("failed to poll device: %w", err)
		}
		if n == 0 {
			continue
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return errors.New("device disconnected")
		}

		n, err = unix.Read(w.fd, buf)
		switch {
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			return fmt.Errorf("failed to read device: %w", err)
		case n == 0:
			return errors.New("device closed")
		}

		if pressed, ok := scanKeyEvents(buf[:n], w.key.Evdev); ok {
			set(pressed)
		}
	}
}
