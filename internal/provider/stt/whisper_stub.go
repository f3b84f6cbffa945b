//go:build !whisper

package stt

import (
	"context"
	"errors"

	"github.com/petems/ushidashi/internal/config"
	"github.com/rs/zerolog"
)

// NewWhisper reports that local transcription was not compiled in.
func NewWhisper(context.Context, config.TranscriptionConfig, zerolog.Logger) (Transcriber, error) {
	return nil, errors.New("local whisper transcription not compiled in; rebuild with -tags whisper")
}
