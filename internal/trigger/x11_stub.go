//go:build !(linux && x11)

package trigger

import "errors"

func openX11(Key) (watcher, error) {
	return nil, errors.New("x11 trigger not compiled in; rebuild with -tags x11")
}
