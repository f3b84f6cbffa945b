// Package stt turns recorded speech into text.
package stt

import (
	"context"
	"fmt"

	"github.com/petems/ushidashi/internal/config"
	"github.com/rs/zerolog"
)

const service = "transcription"

// Transcriber converts a WAV container of speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte, language string) (string, error)
	Close() error
}

// New builds the Transcriber selected by cfg.Backend.
func New(ctx context.Context, cfg config.TranscriptionConfig, apiKey string, log zerolog.Logger) (Transcriber, error) {
	switch cfg.Backend {
	case "", config.TranscribeOpenAI:
		return NewOpenAI(apiKey, cfg.Model)
	case config.TranscribeWhisper:
		return NewWhisper(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unknown transcription backend %q", cfg.Backend)
	}
}
