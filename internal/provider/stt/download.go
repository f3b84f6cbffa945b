package stt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

const defaultModelBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// Model files on Hugging Face, relative to the base URL
var modelFiles = map[string]string{
	"tiny.en":        "ggml-tiny.en.bin",
	"base.en":        "ggml-base.en.bin",
	"small.en":       "ggml-small.en.bin",
	"medium.en":      "ggml-medium.en.bin",
	"large-v3":       "ggml-large-v3.bin",
	"large-v3-turbo": "ggml-large-v3-turbo.bin",
}

// progressWriter logs download progress at most every two seconds
type progressWriter struct {
	log        zerolog.Logger
	model      string
	total      int64
	downloaded int64
	lastLog    time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	pw.downloaded += int64(n)

	now := time.Now()
	if now.Sub(pw.lastLog) >= 2*time.Second || pw.downloaded >= pw.total {
		pw.lastLog = now
		pw.log.Info().
			Str("model", pw.model).
			Float64("percent", float64(pw.downloaded)/float64(pw.total)*100).
			Float64("downloaded_mb", float64(pw.downloaded)/1024/1024).
			Float64("total_mb", float64(pw.total)/1024/1024).
			Msg("Downloading model")
	}
	return n, nil
}

// ensureModel returns the local path of model, downloading it from baseURL
// into dir first if it is missing.
func ensureModel(ctx context.Context, log zerolog.Logger, baseURL, dir, model string) (string, error) {
	file, ok := modelFiles[model]
	if !ok {
		return "", fmt.Errorf("unknown model: %s", model)
	}
	dest := filepath.Join(dir, file)
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}
	if err := downloadModel(ctx, log, baseURL+file, model, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func downloadModel(ctx context.Context, log zerolog.Logger, url, model, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	// Download to temp file first
	tmpPath := destPath + ".tmp"
	defer os.Remove(tmpPath)

	log.Info().Str("model", model).Str("url", url).Msg("Starting model download")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download model: HTTP %d", resp.StatusCode)
	}

	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	var writer io.Writer = out
	if resp.ContentLength > 0 {
		writer = io.MultiWriter(out, &progressWriter{
			log:     log,
			model:   model,
			total:   resp.ContentLength,
			lastLog: time.Now(),
		})
	} else {
		log.Warn().Str("model", model).Msg("Content-Length not provided, progress tracking unavailable")
	}

	n, err := io.Copy(writer, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		return fmt.Errorf("failed to download model: got %d of %d bytes", n, resp.ContentLength)
	}

	// Move to final location
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to move model file: %w", err)
	}

	log.Info().
		Str("model", model).
		Str("path", destPath).
		Float64("size_mb", float64(n)/1024/1024).
		Msg("Model downloaded successfully")
	return nil
}
