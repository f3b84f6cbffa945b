package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/petems/ushidashi/internal/config"
	"github.com/petems/ushidashi/internal/provider"
	"google.golang.org/api/option"
)

func newTestGoogle(t *testing.T, cfg config.SpeechConfig, h http.HandlerFunc) *Google {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	g, err := NewGoogle(context.Background(), "test-key", cfg, option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewGoogle() error = %v", err)
	}
	return g
}

func TestGoogleSynthesize(t *testing.T) {
	cfg := config.Default().Speech
	var req struct {
		Input struct {
			Text string `json:"text"`
			Ssml string `json:"ssml"`
		} `json:"input"`
		Voice struct {
			LanguageCode string `json:"languageCode"`
			Name         string `json:"name"`
		} `json:"voice"`
		AudioConfig struct {
			AudioEncoding string  `json:"audioEncoding"`
			SpeakingRate  float64 `json:"speakingRate"`
		} `json:"audioConfig"`
	}

	g := newTestGoogle(t, cfg, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/text:synthesize") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("expected API key in query, got %q", r.URL.RawQuery)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString([]byte("RIFFwav")),
		})
	})

	audio, err := g.Synthesize(context.Background(), "hello child")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio) != "RIFFwav" {
		t.Fatalf("expected decoded audio, got %q", audio)
	}

	if req.Input.Text != "hello child" || req.Input.Ssml != "" {
		t.Errorf("unexpected input %+v", req.Input)
	}
	if req.Voice.LanguageCode != "en-US" || req.Voice.Name != "en-US-Wavenet-A" {
		t.Errorf("unexpected voice %+v", req.Voice)
	}
	if req.AudioConfig.AudioEncoding != "LINEAR16" || req.AudioConfig.SpeakingRate != 1.0 {
		t.Errorf("unexpected audio config %+v", req.AudioConfig)
	}
}

func TestGoogleSynthesizeSSML(t *testing.T) {
	cfg := config.Default().Speech
	cfg.SSML = true

	var ssml string
	g := newTestGoogle(t, cfg, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input struct {
				Ssml string `json:"ssml"`
			} `json:"input"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		ssml = req.Input.Ssml
		io.WriteString(w, `{"audioContent": "AAAA"}`)
	})

	if _, err := g.Synthesize(context.Background(), "<speak>hi</speak>"); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if ssml != "<speak>hi</speak>" {
		t.Fatalf("expected markup sent as ssml, got %q", ssml)
	}
}

func TestGoogleSynthesizeHTTPError(t *testing.T) {
	g := newTestGoogle(t, config.Default().Speech, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error": {"code": 400, "message": "voice not found", "status": "INVALID_ARGUMENT"}}`)
	})

	_, err := g.Synthesize(context.Background(), "hi")
	var pe *provider.Error
	if !errors.As(err, &pe) {
		t.Fatalf("expected *provider.Error, got %v", err)
	}
	if pe.Status != http.StatusBadRequest || !strings.Contains(pe.Body, "voice not found") {
		t.Fatalf("expected status and body, got %+v", pe)
	}
}

func TestGoogleSynthesizeBadPayload(t *testing.T) {
	g := newTestGoogle(t, config.Default().Speech, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"audioContent": "%%% not base64"}`)
	})

	_, err := g.Synthesize(context.Background(), "hi")
	var pe *provider.Error
	if !errors.As(err, &pe) {
		t.Fatalf("expected *provider.Error, got %v", err)
	}
}
