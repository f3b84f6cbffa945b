//go:build whisper

package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/petems/ushidashi/internal/audio"
	"github.com/petems/ushidashi/internal/config"
	"github.com/petems/ushidashi/internal/provider"
	"github.com/rs/zerolog"
)

// Whisper transcribes locally with whisper.cpp. Calls are serialized: one
// push-to-talk session is transcribed at a time.
type Whisper struct {
	mu      sync.Mutex
	model   whisper.Model
	threads int
}

// NewWhisper loads cfg.WhisperModel, downloading it on first use.
func NewWhisper(ctx context.Context, cfg config.TranscriptionConfig, log zerolog.Logger) (Transcriber, error) {
	path, err := ensureModel(ctx, log, defaultModelBaseURL, config.ModelsPath(), cfg.WhisperModel)
	if err != nil {
		return nil, fmt.Errorf("failed to download model: %w", err)
	}

	model, err := whisper.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	log.Info().Str("model", cfg.WhisperModel).Str("path", path).Msg("Whisper model loaded")
	return &Whisper{model: model, threads: cfg.Threads}, nil
}

func (w *Whisper) Transcribe(ctx context.Context, wav []byte, language string) (string, error) {
	buf, err := audio.Decode(wav)
	if err != nil {
		return "", err
	}
	// whisper.cpp wants 16 kHz mono.
	samples := audio.Resample(buf, whisper.SampleRate).Samples

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}

	wctx, err := w.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("failed to create context: %w", err)
	}
	if w.threads > 0 {
		wctx.SetThreads(uint(w.threads))
	}
	if language != "" && language != "auto" {
		if err := wctx.SetLanguage(language); err != nil {
			return "", fmt.Errorf("failed to set language %q: %w", language, err)
		}
	}
	wctx.SetTranslate(false)

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", provider.Wrap(service, fmt.Errorf("whisper process failed: %w", err))
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", provider.Wrap(service, err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

func (w *Whisper) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model == nil {
		return nil
	}
	err := w.model.Close()
	w.model = nil
	return err
}
