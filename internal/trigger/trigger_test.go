package trigger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/petems/ushidashi/internal/config"
	"github.com/rs/zerolog"
)

type fakeWatcher struct {
	name   string
	events chan bool
	fail   chan error
}

func newFakeWatcher(name string) *fakeWatcher {
	return &fakeWatcher{name: name, events: make(chan bool), fail: make(chan error)}
}

func (f *fakeWatcher) Name() string { return f.name }

func (f *fakeWatcher) Watch(ctx context.Context, set func(bool)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case p := <-f.events:
			set(p)
		case err := <-f.fail:
			return err
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestAggregateIsLogicalOr(t *testing.T) {
	a, b := newFakeWatcher("a"), newFakeWatcher("b")
	agg := newAggregate(zerolog.Nop(), []watcher{a, b})
	defer agg.Close()

	if pressed, live := agg.Pressed(); pressed || !live {
		t.Fatalf("expected (false, true) initially, got (%v, %v)", pressed, live)
	}

	a.events <- true
	waitFor(t, "a pressed", func() bool { p, _ := agg.Pressed(); return p })

	b.events <- true
	waitFor(t, "b pressed", func() bool { return agg.states[1].pressed.Load() })
	a.events <- false
	waitFor(t, "a released", func() bool { return !agg.states[0].pressed.Load() })
	if pressed, _ := agg.Pressed(); !pressed {
		t.Fatal("expected pressed while b is held")
	}

	b.events <- false
	waitFor(t, "all released", func() bool { p, _ := agg.Pressed(); return !p })
}

func TestAggregatePressedSurvivesOtherTermination(t *testing.T) {
	a, b := newFakeWatcher("a"), newFakeWatcher("b")
	agg := newAggregate(zerolog.Nop(), []watcher{a, b})

	a.events <- true
	waitFor(t, "a pressed", func() bool { p, _ := agg.Pressed(); return p })
	b.fail <- errors.New("unplugged")
	waitFor(t, "b terminated", func() bool { return agg.states[1].done.Load() })

	pressed, live := agg.Pressed()
	if !pressed || !live {
		t.Fatalf("expected (true, true) with a held and b gone, got (%v, %v)", pressed, live)
	}

	a.fail <- errors.New("unplugged")
	waitFor(t, "a terminated", func() bool { return agg.states[0].done.Load() })

	pressed, live = agg.Pressed()
	if pressed || live {
		t.Fatalf("expected (false, false) once every source is gone, got (%v, %v)", pressed, live)
	}

	if err := agg.Close(); err == nil {
		t.Fatal("expected Close to report the watcher failure")
	}
}

func TestAggregateTerminatedSourceIsNotPressed(t *testing.T) {
	a := newFakeWatcher("a")
	agg := newAggregate(zerolog.Nop(), []watcher{a})

	a.events <- true
	a.fail <- errors.New("window closed")
	waitFor(t, "terminated", func() bool { _, live := agg.Pressed(); return !live })

	if pressed, _ := agg.Pressed(); pressed {
		t.Fatal("a terminated source must not read as pressed")
	}
	agg.Close()
}

func TestAggregateCloseStopsWatchers(t *testing.T) {
	agg := newAggregate(zerolog.Nop(), []watcher{newFakeWatcher("a"), newFakeWatcher("b")})
	if err := agg.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, live := agg.Pressed(); live {
		t.Fatal("expected no live sources after Close")
	}
}

func TestNewRejectsUnknownModeAndKey(t *testing.T) {
	if _, err := New(config.TriggerConfig{Mode: "pedal", Key: "space"}, zerolog.Nop()); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if _, err := New(config.TriggerConfig{Mode: config.TriggerEmulate, Key: "hyper"}, zerolog.Nop()); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLookupKey(t *testing.T) {
	k, err := LookupKey(" F9 ")
	if err != nil {
		t.Fatalf("LookupKey() error = %v", err)
	}
	if k.Evdev != 67 || k.Keysym != "F9" {
		t.Fatalf("unexpected key %+v", k)
	}
	for _, k := range keys {
		if _, ok := glfwKeys[k.Name]; !ok {
			t.Errorf("key %q has no window binding", k.Name)
		}
	}
}
