// Package trigger reports whether the push-to-talk control is held.
//
// A Source aggregates one or more watchers, each a long-lived goroutine
// following a single device or window. The aggregate reads as pressed while
// any live watcher is pressed, and reports itself terminated only once every
// watcher has returned.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/petems/ushidashi/internal/config"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrTerminated is reported by callers that observe a dead Source.
var ErrTerminated = errors.New("trigger source terminated")

// Source is a pollable push-to-talk control.
type Source interface {
	// Pressed never blocks. live is false once the source has terminated,
	// and pressed is then always false.
	Pressed() (pressed, live bool)
	Close() error
}

// watcher follows one device until it disappears or ctx is cancelled,
// calling set on every press and release. It returns nil on cancellation.
type watcher interface {
	Name() string
	Watch(ctx context.Context, set func(pressed bool)) error
}

type state struct {
	pressed atomic.Bool
	done    atomic.Bool
}

// Aggregate ORs the pressed state of its watchers.
type Aggregate struct {
	states []*state
	cancel context.CancelFunc
	group  errgroup.Group
}

var _ Source = (*Aggregate)(nil)

func newAggregate(log zerolog.Logger, watchers []watcher) *Aggregate {
	// The group is not tied to ctx: one device failing must not stop the
	// others.
	ctx, cancel := context.WithCancel(context.Background())
	a := &Aggregate{cancel: cancel, states: make([]*state, len(watchers))}

	for i, w := range watchers {
		st := &state{}
		a.states[i] = st
		a.group.Go(func() error {
			defer st.done.Store(true)
			defer st.pressed.Store(false)

			log.Debug().Str("source", w.Name()).Msg("Watching trigger source")
			err := w.Watch(ctx, st.pressed.Store)
			if err != nil {
				log.Warn().Err(err).Str("source", w.Name()).Msg("Trigger source terminated")
				return fmt.Errorf("%s: %w", w.Name(), err)
			}
			return nil
		})
	}
	return a
}

func (a *Aggregate) Pressed() (pressed, live bool) {
	for _, st := range a.states {
		if st.done.Load() {
			continue
		}
		live = true
		if st.pressed.Load() {
			return true, true
		}
	}
	return false, live
}

// Close stops every watcher and returns the first failure any of them hit.
func (a *Aggregate) Close() error {
	a.cancel()
	return a.group.Wait()
}

// New builds the Source selected by cfg.Mode.
func New(cfg config.TriggerConfig, log zerolog.Logger) (*Aggregate, error) {
	key, err := LookupKey(cfg.Key)
	if err != nil {
		return nil, err
	}
	log = log.With().Str("component", "trigger").Str("mode", cfg.Mode).Logger()

	var watchers []watcher
	switch cfg.Mode {
	case "", config.TriggerKeyboard:
		watchers, err = openKeyboards(key, log)
	case config.TriggerX11:
		var w watcher
		w, err = openX11(key)
		watchers = []watcher{w}
	case config.TriggerEmulate:
		watchers = []watcher{newEmulator(key, cfg.WindowTitle)}
	default:
		err = fmt.Errorf("unknown trigger mode %q", cfg.Mode)
	}
	if err != nil {
		return nil, err
	}

	log.Info().Int("sources", len(watchers)).Str("key", key.Name).Msg("Trigger ready")
	return newAggregate(log, watchers), nil
}
