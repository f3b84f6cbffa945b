package stt

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/petems/ushidashi/internal/provider"
)

func newTestOpenAI(t *testing.T, h http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	o, err := NewOpenAI("test-key", "whisper-1", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	if err != nil {
		t.Fatalf("NewOpenAI() error = %v", err)
	}
	return o
}

func TestOpenAITranscribe(t *testing.T) {
	wav := []byte("RIFF....WAVEfake")
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("expected multipart body: %v", err)
		}
		if r.FormValue("model") != "whisper-1" || r.FormValue("language") != "en" {
			t.Errorf("unexpected form model=%q language=%q", r.FormValue("model"), r.FormValue("language"))
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
		} else {
			body, _ := io.ReadAll(f)
			if string(body) != string(wav) {
				t.Errorf("unexpected file content %q", body)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text": "  hello there \n"}`)
	})

	text, err := o.Transcribe(context.Background(), wav, "en")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "hello there" {
		t.Fatalf("expected trimmed transcript, got %q", text)
	}
}

func TestOpenAITranscribeHTTPError(t *testing.T) {
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error": {"message": "bad audio", "type": "invalid_request_error"}}`)
	})

	_, err := o.Transcribe(context.Background(), []byte("x"), "en")
	var pe *provider.Error
	if !errors.As(err, &pe) {
		t.Fatalf("expected *provider.Error, got %v", err)
	}
	if pe.Status != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", pe.Status)
	}
	if pe.Service != service {
		t.Fatalf("expected service %q, got %q", service, pe.Service)
	}
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	if _, err := NewOpenAI("", "whisper-1"); err == nil {
		t.Fatal("expected error for empty key")
	}
}
