// Package app runs the push-to-talk session loop: it watches the trigger,
// records while the key is held and sends each utterance through
// transcription, reply generation, synthesis and playback.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/petems/ushidashi/internal/audio"
	"github.com/petems/ushidashi/internal/chatlog"
	"github.com/petems/ushidashi/internal/config"
	"github.com/petems/ushidashi/internal/observe"
	"github.com/petems/ushidashi/internal/provider"
	"github.com/petems/ushidashi/internal/provider/llm"
	"github.com/petems/ushidashi/internal/provider/stt"
	"github.com/petems/ushidashi/internal/provider/tts"
	"github.com/petems/ushidashi/internal/trigger"
	"github.com/rs/zerolog"
)

// timestampLayout prefixes each prompt with the local wall clock.
const timestampLayout = "2006-01-02 15:04:05.999999999 -07:00"

// State is where the controller is in a session.
type State int

const (
	Idle State = iota
	Recording
	Dispatching
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Dispatching:
		return "dispatching"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Outcome is how a session ended.
type Outcome string

const (
	Forwarded Outcome = "forwarded"
	Discarded Outcome = "discarded"
	Errored   Outcome = "errored"
)

// errCapture marks recording failures, which end the run.
var errCapture = errors.New("capture failed")

// IsFatal reports whether err should stop the process rather than end a
// single session.
func IsFatal(err error) bool {
	return errors.Is(err, trigger.ErrTerminated) || errors.Is(err, errCapture)
}

// StatusUpdater is an interface for updating status (e.g., tray icon)
type StatusUpdater interface {
	SetIdle()
	SetRecording()
	SetProcessing()
	SetSpeaking()
	SetError()
}

// Recorder starts a capture stream. *audio.Capture satisfies it.
type Recorder interface {
	Start() (*audio.Recording, error)
}

// Player plays a synthesized audio container to completion.
type Player interface {
	Play(container []byte) error
}

// History is the persisted conversation.
type History interface {
	Load() ([]chatlog.Record, error)
	Append(r chatlog.Record) error
}

type Config struct {
	Trigger       trigger.Source
	Capture       Recorder
	Player        Player
	Transcriber   stt.Transcriber
	Generator     llm.Generator
	Synthesizer   tts.Synthesizer
	History       History
	Metrics       *observe.Metrics // Optional - defaults to no-op
	Config        *config.Config
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil

	// Now is the clock used for prompt timestamps. Defaults to time.Now.
	Now func() time.Time
}

type App struct {
	trigger trigger.Source
	capture Recorder
	player  Player
	stt     stt.Transcriber
	gen     llm.Generator
	tts     tts.Synthesizer
	history History
	metrics *observe.Metrics
	cfg     *config.Config
	log     zerolog.Logger
	status  StatusUpdater
	now     func() time.Time

	mu        sync.Mutex
	state     State
	lastReply string
}

func New(cfg Config) *App {
	a := &App{
		trigger: cfg.Trigger,
		capture: cfg.Capture,
		player:  cfg.Player,
		stt:     cfg.Transcriber,
		gen:     cfg.Generator,
		tts:     cfg.Synthesizer,
		history: cfg.History,
		metrics: cfg.Metrics,
		cfg:     cfg.Config,
		log:     cfg.Logger,
		status:  cfg.StatusUpdater,
		now:     cfg.Now,
	}
	if a.metrics == nil {
		a.metrics = observe.Nop()
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// Run polls the trigger until ctx is cancelled or a fatal error occurs.
// Errors within a session are logged and the loop returns to Idle.
func (a *App) Run(ctx context.Context) error {
	interval := time.Duration(a.cfg.PollIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.setState(Idle)
	a.log.Info().Dur("poll_interval", interval).Msg("Waiting for trigger")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		pressed, live := a.trigger.Pressed()
		if !live {
			return fmt.Errorf("trigger source closed: %w", trigger.ErrTerminated)
		}
		if !pressed {
			continue
		}

		buf, started, err := a.record(ctx, ticker)
		if err != nil {
			a.setStatusError()
			return err
		}
		if started.IsZero() {
			// Cancelled while recording.
			return nil
		}

		a.setState(Dispatching)
		outcome, err := a.dispatch(ctx, buf)
		a.metrics.SessionEnded(ctx, string(outcome))
		switch {
		case err != nil:
			a.log.Error().Err(err).Msg("Session failed")
			a.setStatusError()
			a.setStateOnly(Idle)
		default:
			a.log.Info().Str("outcome", string(outcome)).Msg("Session finished")
			a.setState(Idle)
		}
	}
}

// record captures until the trigger is released. A zero start time with a
// nil error means ctx was cancelled mid-recording.
func (a *App) record(ctx context.Context, ticker *time.Ticker) (audio.Buffer, time.Time, error) {
	a.setState(Recording)
	a.log.Info().Msg("Recording")

	rec, err := a.capture.Start()
	if err != nil {
		return audio.Buffer{}, time.Time{}, fmt.Errorf("%w: %w", errCapture, err)
	}

	for {
		select {
		case <-ctx.Done():
			a.discard(rec)
			a.setState(Idle)
			return audio.Buffer{}, time.Time{}, nil
		case <-ticker.C:
		}

		pressed, live := a.trigger.Pressed()
		if !live {
			a.discard(rec)
			return audio.Buffer{}, time.Time{}, fmt.Errorf("trigger source closed while recording: %w", trigger.ErrTerminated)
		}
		if pressed {
			continue
		}

		buf, err := rec.Stop()
		if err != nil {
			return audio.Buffer{}, time.Time{}, fmt.Errorf("%w: %w", errCapture, err)
		}
		if dropped := rec.Dropped(); dropped > 0 {
			a.log.Warn().Int("dropped_samples", dropped).Msg("Recording hit its maximum duration")
		}
		a.metrics.Recorded(ctx, buf.Duration())
		return buf, rec.Started(), nil
	}
}

// discard stops rec without using its samples.
func (a *App) discard(rec *audio.Recording) {
	buf, err := rec.Stop()
	if err != nil {
		a.log.Warn().Err(err).Msg("Failed to stop discarded recording")
		return
	}
	a.log.Debug().Dur("duration", buf.Duration()).Msg("Discarded partial recording")
}

// dispatch sends one recording through the collaborators. The user turn is
// stored before the reply is requested and the bot turn only once a reply
// arrives.
func (a *App) dispatch(ctx context.Context, buf audio.Buffer) (Outcome, error) {
	if d, shortest := buf.Duration(), time.Duration(a.cfg.MinRecordingMs)*time.Millisecond; d < shortest {
		a.log.Info().Dur("duration", d).Msg("Recording too short, discarding")
		return Discarded, nil
	}
	a.setStatus(StatusUpdater.SetProcessing)

	wav, err := audio.Encode(buf)
	if err != nil {
		return Errored, fmt.Errorf("failed to encode recording: %w", err)
	}

	var text string
	err = a.stage(ctx, observe.StageTranscribe, func() (err error) {
		text, err = a.stt.Transcribe(ctx, wav, a.cfg.Transcription.Language)
		return err
	})
	if err != nil {
		return Errored, fmt.Errorf("failed to transcribe: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		a.log.Info().Msg("Nothing was said, discarding")
		return Discarded, nil
	}

	prompt := a.prompt(text)

	history, err := a.history.Load()
	if err != nil {
		return Errored, fmt.Errorf("failed to load history: %w", err)
	}
	if err := a.history.Append(chatlog.Record{Author: chatlog.User, Text: prompt}); err != nil {
		return Errored, fmt.Errorf("failed to store prompt: %w", err)
	}

	msgs := llm.Compose(a.cfg.Chat.SystemPrompt, history, a.cfg.Chat.ReplayBotAs)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: prompt})

	var reply string
	err = a.stage(ctx, observe.StageReply, func() (err error) {
		reply, err = a.gen.Reply(ctx, msgs)
		return err
	})
	if err != nil {
		return Errored, fmt.Errorf("failed to generate reply: %w", err)
	}
	if err := a.history.Append(chatlog.Record{Author: chatlog.Bot, Text: reply}); err != nil {
		return Errored, fmt.Errorf("failed to store reply: %w", err)
	}
	a.mu.Lock()
	a.lastReply = reply
	a.mu.Unlock()

	var speech []byte
	err = a.stage(ctx, observe.StageSynthesize, func() (err error) {
		speech, err = a.tts.Synthesize(ctx, reply)
		return err
	})
	if err != nil {
		return Errored, fmt.Errorf("failed to synthesize reply: %w", err)
	}

	a.setStatus(StatusUpdater.SetSpeaking)
	err = a.stage(ctx, observe.StagePlayback, func() error {
		return a.player.Play(speech)
	})
	if err != nil {
		return Errored, fmt.Errorf("failed to play reply: %w", err)
	}
	return Forwarded, nil
}

// stage times fn and counts collaborator failures by service.
func (a *App) stage(ctx context.Context, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	a.metrics.Stage(ctx, name, time.Since(start))

	var pe *provider.Error
	if errors.As(err, &pe) {
		a.metrics.CollaboratorFailed(ctx, pe.Service)
	}
	return err
}

func (a *App) prompt(text string) string {
	if !a.cfg.Chat.TimestampPrompts {
		return text
	}
	return a.now().Format(timestampLayout) + "\n" + text
}

// State returns the controller's current state.
func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// LastReply returns the most recent bot reply, or "".
func (a *App) LastReply() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastReply
}

func (a *App) setStateOnly(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

func (a *App) setState(s State) {
	a.setStateOnly(s)
	switch s {
	case Idle:
		a.setStatus(StatusUpdater.SetIdle)
	case Recording:
		a.setStatus(StatusUpdater.SetRecording)
	}
}

func (a *App) setStatus(fn func(StatusUpdater)) {
	if a.status != nil {
		fn(a.status)
	}
}

func (a *App) setStatusError() { a.setStatus(StatusUpdater.SetError) }
