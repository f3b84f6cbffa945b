package stt

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/petems/ushidashi/internal/provider"
)

// OpenAI transcribes through the OpenAI audio transcription endpoint.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI returns a cloud Transcriber. Extra request options are applied
// after the key; tests use them to point the client at a local server.
func NewOpenAI(apiKey, model string, opts ...option.RequestOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai transcription: API key must not be empty")
	}
	if model == "" {
		model = "whisper-1"
	}
	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAI{client: openai.NewClient(reqOpts...), model: model}, nil
}

func (o *OpenAI) Transcribe(ctx context.Context, wav []byte, language string) (string, error) {
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wav), "speech.wav", "audio/wav"),
		Model: openai.AudioModel(o.model),
	}
	if language != "" && language != "auto" {
		params.Language = openai.String(language)
	}

	resp, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", provider.Wrap(service, err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func (o *OpenAI) Close() error { return nil }
