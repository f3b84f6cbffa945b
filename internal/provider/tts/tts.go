// Package tts synthesizes reply text into an audio container.
package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/petems/ushidashi/internal/config"
	"github.com/petems/ushidashi/internal/provider"
	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"
)

const service = "synthesis"

// Synthesizer returns audio bytes for text, in a container the playback
// engine can decode.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Google synthesizes with Google Cloud Text-to-Speech.
type Google struct {
	svc *texttospeech.Service
	cfg config.SpeechConfig
}

var _ Synthesizer = (*Google)(nil)

// NewGoogle returns a Synthesizer authenticated by apiKey. Extra client
// options are applied after the key.
func NewGoogle(ctx context.Context, apiKey string, cfg config.SpeechConfig, opts ...option.ClientOption) (*Google, error) {
	if apiKey == "" {
		return nil, errors.New("google tts: API key must not be empty")
	}
	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := texttospeech.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create text-to-speech client: %w", err)
	}
	return &Google{svc: svc, cfg: cfg}, nil
}

func (g *Google) Synthesize(ctx context.Context, text string) ([]byte, error) {
	input := &texttospeech.SynthesisInput{Text: text}
	if g.cfg.SSML {
		input = &texttospeech.SynthesisInput{Ssml: text}
	}

	req := &texttospeech.SynthesizeSpeechRequest{
		Input: input,
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: g.cfg.LanguageCode,
			Name:         g.cfg.Voice,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding: g.cfg.Encoding,
			SpeakingRate:  g.cfg.SpeakingRate,
			Pitch:         g.cfg.Pitch,
		},
	}

	resp, err := g.svc.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		return nil, provider.Wrap(service, err)
	}
	if resp.AudioContent == "" {
		return nil, provider.Violation(service, "response carried no audio")
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, provider.Violation(service, "audio content is not base64: %v", err)
	}
	return audio, nil
}
