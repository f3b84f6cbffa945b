//go:build !linux

package trigger

import (
	"errors"

	"github.com/rs/zerolog"
)

func openKeyboards(Key, zerolog.Logger) ([]watcher, error) {
	return nil, errors.New("keyboard trigger requires Linux evdev; use the emulate mode")
}
