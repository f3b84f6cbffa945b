package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/petems/ushidashi/internal/config"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New creates an info-level logger with console and file output
func New() zerolog.Logger {
	return NewWithLevel("info")
}

// NewWithLevel creates a logger writing to stderr and a rotating log file.
// An unparseable level falls back to info.
func NewWithLevel(level string) zerolog.Logger {
	file := &lumberjack.Logger{
		Filename:   Path(),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	return newLogger(level, os.Stderr, file)
}

func newLogger(level string, console, file io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	// Multi-writer: console + file
	multi := zerolog.MultiLevelWriter(
		zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339},
		file,
	)

	return zerolog.New(multi).Level(lvl).With().Timestamp().Caller().Logger()
}

// Path returns the platform-specific log file path
func Path() string {
	return filepath.Join(config.StatePath(), "ushidashi.log")
}
