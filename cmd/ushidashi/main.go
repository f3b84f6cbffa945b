package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/petems/ushidashi/internal/app"
	"github.com/petems/ushidashi/internal/audio"
	"github.com/petems/ushidashi/internal/chatlog"
	"github.com/petems/ushidashi/internal/config"
	"github.com/petems/ushidashi/internal/logging"
	"github.com/petems/ushidashi/internal/observe"
	"github.com/petems/ushidashi/internal/permissions"
	"github.com/petems/ushidashi/internal/provider/llm"
	"github.com/petems/ushidashi/internal/provider/stt"
	"github.com/petems/ushidashi/internal/provider/tts"
	"github.com/petems/ushidashi/internal/tray"
	"github.com/petems/ushidashi/internal/trigger"
	"github.com/rs/zerolog"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func main() {
	writeConfig := flag.Bool("write-config", false, "write the default config file and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.Default().Save(); err != nil {
			logging.New().Fatal().Err(err).Msg("Failed to write config")
		}
		fmt.Println(config.Path())
		return
	}

	// Load config from XDG/Library/AppData
	cfg, err := config.Load()
	if err != nil {
		// Use default logger if config fails to load
		log := logging.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger with configured level
	log := logging.NewWithLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Str("path", config.Path()).Msg("Invalid config")
	}
	if err := cfg.LoadSecrets(); err != nil {
		log.Fatal().Err(err).Msg("Missing API keys")
	}

	// macOS captures silence until the microphone is approved
	if err := permissions.EnsureMicrophone(log); err != nil {
		log.Fatal().Err(err).Msg("Required permissions not granted")
	}

	if err := run(cfg, log); err != nil {
		code, msg := exitStatus(err)
		log.Error().Err(err).Int("exit_code", code).Msg(msg)
		os.Exit(code)
	}
	log.Info().Msg("Shut down")
}

// Exit codes. A run that set up cleanly and then lost its trigger or
// capture device exits with exitStopped.
const (
	exitSetup   = 1
	exitStopped = 2
)

func exitStatus(err error) (int, string) {
	if app.IsFatal(err) {
		return exitStopped, "Assistant stopped"
	}
	return exitSetup, "Failed to start"
}

// run wires the assistant and blocks until a signal, Quit from the tray or
// a fatal controller error.
func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := audio.NewBackend(cfg.Audio)
	if err != nil {
		return fmt.Errorf("failed to initialize audio: %w", err)
	}
	defer backend.Close()

	capture, err := audio.OpenDefaultInput(backend,
		audio.WithMaxDuration(time.Duration(cfg.MaxRecordingSec)*time.Second))
	if err != nil {
		return err
	}
	player, err := audio.OpenDefaultOutput(backend)
	if err != nil {
		return err
	}
	log.Info().Stringer("format", capture.Format()).Str("backend", cfg.Audio.Backend).Msg("Audio ready")

	src, err := trigger.New(cfg.Trigger, log)
	if err != nil {
		return fmt.Errorf("failed to initialize trigger: %w", err)
	}
	defer src.Close()

	transcriber, err := stt.New(ctx, cfg.Transcription, cfg.OpenAIKey, log)
	if err != nil {
		return fmt.Errorf("failed to initialize transcription: %w", err)
	}
	defer transcriber.Close()

	generator, err := llm.NewOpenAI(cfg.OpenAIKey, cfg.Chat.Model)
	if err != nil {
		return fmt.Errorf("failed to initialize chat: %w", err)
	}

	synthesizer, err := tts.NewGoogle(ctx, cfg.GoogleKey, cfg.Speech)
	if err != nil {
		return fmt.Errorf("failed to initialize speech: %w", err)
	}

	exporter, err := observe.NewExporter()
	if err != nil {
		return err
	}
	defer exporter.Shutdown(context.Background())
	if cfg.Metrics.Listen != "" {
		go func() {
			if err := exporter.Serve(ctx, cfg.Metrics.Listen, log); err != nil {
				log.Error().Err(err).Msg("Metrics endpoint stopped")
			}
		}()
	}

	var (
		trayUI *tray.UI
		status app.StatusUpdater
	)
	if cfg.Tray.Enabled {
		trayUI = tray.New(cfg, Version, Commit, log)
		trayUI.OnQuit = stop
		status = trayUI
	}

	application := app.New(app.Config{
		Trigger:       src,
		Capture:       capture,
		Player:        player,
		Transcriber:   transcriber,
		Generator:     generator,
		Synthesizer:   synthesizer,
		History:       chatlog.Open(cfg.History.Path, log),
		Metrics:       exporter.Metrics,
		Config:        cfg,
		Logger:        log,
		StatusUpdater: status,
	})

	log.Info().
		Str("version", Version).
		Str("trigger", cfg.Trigger.Mode).
		Str("key", cfg.Trigger.Key).
		Str("history", cfg.History.Path).
		Msg("Ushidashi starting...")

	runErr := make(chan error, 1)
	go func() {
		runErr <- application.Run(ctx)
		stop()
	}()

	// Start tray UI - MUST run on main thread
	if trayUI != nil {
		if err := trayUI.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Tray error")
		}
		stop()
	}

	return <-runErr
}
