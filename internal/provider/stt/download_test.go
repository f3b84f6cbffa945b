package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestEnsureModelDownloadsOnce(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Path != "/ggml-base.en.bin" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("model-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	path, err := ensureModel(context.Background(), zerolog.Nop(), srv.URL+"/", dir, "base.en")
	if err != nil {
		t.Fatalf("ensureModel() error = %v", err)
	}
	if path != filepath.Join(dir, "ggml-base.en.bin") {
		t.Fatalf("unexpected path %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "model-bytes" {
		t.Fatalf("unexpected model file %q (%v)", data, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("expected temp file to be removed")
	}

	if _, err := ensureModel(context.Background(), zerolog.Nop(), srv.URL+"/", dir, "base.en"); err != nil {
		t.Fatalf("second ensureModel() error = %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected one download, got %d", hits)
	}
}

func TestEnsureModelFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	if _, err := ensureModel(context.Background(), zerolog.Nop(), srv.URL+"/", dir, "base.en"); err == nil {
		t.Fatal("expected HTTP error")
	}
	if _, err := os.Stat(filepath.Join(dir, "ggml-base.en.bin")); !os.IsNotExist(err) {
		t.Fatal("failed download must not leave a model file")
	}
	if _, err := ensureModel(context.Background(), zerolog.Nop(), srv.URL+"/", dir, "enormous"); err == nil {
		t.Fatal("expected unknown model error")
	}
}
