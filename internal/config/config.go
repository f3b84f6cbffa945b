package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"
)

const appName = "ushidashi"

// Audio backends.
const (
	AudioPortAudio = "portaudio"
	AudioMiniAudio = "miniaudio"
)

// Trigger modes.
const (
	TriggerKeyboard = "keyboard"
	TriggerX11      = "x11"
	TriggerEmulate  = "emulate"
)

// Transcription backends.
const (
	TranscribeOpenAI  = "openai"
	TranscribeWhisper = "whisper"
)

// Speech encodings understood by playback.
const (
	EncodingLinear16 = "LINEAR16"
	EncodingMP3      = "MP3"
)

// Roles that replayed bot turns can be given.
const (
	RoleSystem    = "system"
	RoleAssistant = "assistant"
)

// DefaultSystemPrompt leads every chat request unless chat.system_prompt
// replaces it.
const DefaultSystemPrompt = "You are a friendly learning companion for children, " +
	"speaking to them through a toy with a text-to-speech voice. Explain whatever " +
	"the child wants to know in simple, accurate, age-appropriate words that are " +
	"easy to say out loud. Encourage their curiosity and celebrate their questions."

type Config struct {
	LogLevel        string              `json:"log_level"`
	PollIntervalMs  int                 `json:"poll_interval_ms"`
	MinRecordingMs  int                 `json:"min_recording_ms"`
	MaxRecordingSec int                 `json:"max_recording_sec"`
	Audio           AudioConfig         `json:"audio"`
	Trigger         TriggerConfig       `json:"trigger"`
	Transcription   TranscriptionConfig `json:"transcription"`
	Chat            ChatConfig          `json:"chat"`
	Speech          SpeechConfig        `json:"speech"`
	History         HistoryConfig       `json:"history"`
	Tray            TrayConfig          `json:"tray"`
	Metrics         MetricsConfig       `json:"metrics"`

	// Secrets never touch the config file.
	OpenAIKey string `json:"-"`
	GoogleKey string `json:"-"`
}

type AudioConfig struct {
	Backend string `json:"backend"` // "portaudio" or "miniaudio"
}

type TriggerConfig struct {
	Mode        string `json:"mode"` // "keyboard", "x11" or "emulate"
	Key         string `json:"key"`
	WindowTitle string `json:"window_title"`
}

type TranscriptionConfig struct {
	Backend      string `json:"backend"` // "openai" or "whisper"
	Model        string `json:"model"`
	Language     string `json:"language"`
	WhisperModel string `json:"whisper_model"` // "base.en", "small", etc.
	Threads      int    `json:"threads"`
}

type ChatConfig struct {
	Model            string `json:"model"`
	SystemPrompt     string `json:"system_prompt"`
	ReplayBotAs      string `json:"replay_bot_as"`
	TimestampPrompts bool   `json:"timestamp_prompts"`
}

type SpeechConfig struct {
	LanguageCode string  `json:"language_code"`
	Voice        string  `json:"voice"`
	Encoding     string  `json:"encoding"`
	SpeakingRate float64 `json:"speaking_rate"`
	Pitch        float64 `json:"pitch"`
	SSML         bool    `json:"ssml"`
}

type HistoryConfig struct {
	Path string `json:"path"`
}

type TrayConfig struct {
	Enabled bool `json:"enabled"`
}

type MetricsConfig struct {
	Listen string `json:"listen"` // empty disables the endpoint
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		LogLevel:        "info",
		PollIntervalMs:  16,
		MinRecordingMs:  250,
		MaxRecordingSec: 300,
		Audio: AudioConfig{
			Backend: AudioPortAudio,
		},
		Trigger: TriggerConfig{
			Mode:        TriggerKeyboard,
			Key:         "space",
			WindowTitle: "Push to talk",
		},
		Transcription: TranscriptionConfig{
			Backend:      TranscribeOpenAI,
			Model:        "whisper-1",
			Language:     "en",
			WhisperModel: "base.en",
			Threads:      0, // Auto-detect
		},
		Chat: ChatConfig{
			Model:            "gpt-4",
			SystemPrompt:     DefaultSystemPrompt,
			ReplayBotAs:      RoleSystem,
			TimestampPrompts: true,
		},
		Speech: SpeechConfig{
			LanguageCode: "en-US",
			Voice:        "en-US-Wavenet-A",
			Encoding:     EncodingLinear16,
			SpeakingRate: 1.0,
			Pitch:        0,
		},
		History: HistoryConfig{
			Path: filepath.Join(DataPath(), "convo.jsonl"),
		},
		Tray: TrayConfig{
			Enabled: true,
		},
	}
}

// Load reads the config from disk or returns defaults
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads the config at path over the defaults. A missing file is
// not an error.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return cfg, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	return c.SaveTo(Path())
}

// SaveTo writes the config to path, creating its directory.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate rejects unknown enum values and non-positive intervals.
func (c *Config) Validate() error {
	var errs []error
	if c.PollIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval_ms must be positive, got %d", c.PollIntervalMs))
	}
	if c.MinRecordingMs < 0 {
		errs = append(errs, fmt.Errorf("min_recording_ms must not be negative, got %d", c.MinRecordingMs))
	}
	if c.MaxRecordingSec <= 0 {
		errs = append(errs, fmt.Errorf("max_recording_sec must be positive, got %d", c.MaxRecordingSec))
	}
	check := func(field, value string, allowed ...string) {
		for _, a := range allowed {
			if value == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s: unknown value %q", field, value))
	}
	check("audio.backend", c.Audio.Backend, AudioPortAudio, AudioMiniAudio)
	check("trigger.mode", c.Trigger.Mode, TriggerKeyboard, TriggerX11, TriggerEmulate)
	check("transcription.backend", c.Transcription.Backend, TranscribeOpenAI, TranscribeWhisper)
	check("chat.replay_bot_as", c.Chat.ReplayBotAs, RoleSystem, RoleAssistant)
	check("speech.encoding", c.Speech.Encoding, EncodingLinear16, EncodingMP3)
	if c.Trigger.Key == "" {
		errs = append(errs, errors.New("trigger.key must be set"))
	}
	if c.History.Path == "" {
		errs = append(errs, errors.New("history.path must be set"))
	}
	return errors.Join(errs...)
}

// LoadSecrets fills the API keys from the environment after loading
// secrets.env from the config directory. Variables already set in the
// environment win over the file.
func (c *Config) LoadSecrets() error {
	return c.loadSecretsFrom(filepath.Join(Dir(), "secrets.env"))
}

func (c *Config) loadSecretsFrom(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	c.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	c.GoogleKey = os.Getenv("GOOGLE_API_KEY")

	var missing []error
	// Chat always goes to OpenAI, so its key is needed even with local
	// transcription.
	if c.OpenAIKey == "" {
		missing = append(missing, errors.New("OPENAI_API_KEY is not set"))
	}
	if c.GoogleKey == "" {
		missing = append(missing, errors.New("GOOGLE_API_KEY is not set"))
	}
	return errors.Join(missing...)
}

// Path returns the platform-specific config file path
func Path() string {
	return filepath.Join(Dir(), "config.json")
}

// Dir returns the platform-specific config directory
func Dir() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, appName)
}

// DataPath returns the platform-specific data directory
func DataPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/share"
		}
	}

	return filepath.Join(base, appName)
}

// ModelsPath returns the platform-specific models directory path
func ModelsPath() string {
	return filepath.Join(DataPath(), "models")
}

// StatePath returns the platform-specific directory for logs
func StatePath() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(os.Getenv("HOME"), "Library", "Logs", appName)
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), appName, "logs")
	default:
		if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
			return filepath.Join(xdg, appName)
		}
		return filepath.Join(os.Getenv("HOME"), ".local", "state", appName)
	}
}
