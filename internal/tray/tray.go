// Package tray shows the assistant's status in the system tray.
package tray

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/getlantern/systray"
	"github.com/petems/ushidashi/internal/config"
	"github.com/petems/ushidashi/internal/logging"
	"github.com/pkg/browser"
	"github.com/rs/zerolog"
)

// ReplySource supplies the text for "Copy Last Reply". *app.App satisfies it.
type ReplySource interface {
	LastReply() string
}

type UI struct {
	replies ReplySource
	cfg     *config.Config
	version string
	commit  string
	log     zerolog.Logger

	// OnQuit runs once when the tray exits.
	OnQuit func()

	copyText func(string) error
	openFile func(string) error

	mu      sync.Mutex
	ready   bool
	status  string
	mStatus *systray.MenuItem
}

// Status update methods for the app to call
func (u *UI) SetIdle() {
	u.updateStatus("idle")
}

func (u *UI) SetRecording() {
	u.updateStatus("recording")
}

func (u *UI) SetProcessing() {
	u.updateStatus("processing")
}

func (u *UI) SetSpeaking() {
	u.updateStatus("speaking")
}

func (u *UI) SetError() {
	u.updateStatus("error")
}

func New(cfg *config.Config, version, commit string, log zerolog.Logger) *UI {
	return &UI{
		cfg:      cfg,
		version:  version,
		commit:   commit,
		log:      log,
		status:   "idle",
		copyText: clipboard.WriteAll,
		openFile: browser.OpenFile,
	}
}

// SetReplies sets the reply source (for circular dependency resolution)
func (u *UI) SetReplies(r ReplySource) {
	u.replies = r
}

// Run blocks on the tray event loop until Quit is chosen or ctx is done.
func (u *UI) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(u.onReady, u.onExit)
	return nil
}

func (u *UI) onReady() {
	systray.SetTooltip("Push-to-talk voice assistant")

	u.mu.Lock()
	u.mStatus = systray.AddMenuItem("", "Current status")
	u.mStatus.Disable()
	u.ready = true
	u.mu.Unlock()
	u.updateStatus(u.currentStatus())

	systray.AddSeparator()
	mCopy := systray.AddMenuItem("Copy Last Reply", "Copy the last reply to the clipboard")
	mHistory := systray.AddMenuItem("Open History", "Open the conversation history")
	mLogs := systray.AddMenuItem("Open Logs", "View application logs")

	systray.AddSeparator()
	mAbout := systray.AddMenuItem("About", "About Ushidashi")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	// Event loop
	go u.handleEvents(mCopy, mHistory, mLogs, mAbout, mQuit)
}

func (u *UI) handleEvents(mCopy, mHistory, mLogs, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-mCopy.ClickedCh:
			if err := u.copyLastReply(); err != nil {
				u.log.Warn().Err(err).Msg("Failed to copy reply")
			}
		case <-mHistory.ClickedCh:
			u.open(u.cfg.History.Path)
		case <-mLogs.ClickedCh:
			u.open(logging.Path())
		case <-mAbout.ClickedCh:
			u.log.Info().Str("version", u.version).Str("commit", u.commit).Msg("Ushidashi push-to-talk assistant")
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

var errNoReply = errors.New("no reply yet")

func (u *UI) copyLastReply() error {
	var reply string
	if u.replies != nil {
		reply = u.replies.LastReply()
	}
	if reply == "" {
		return errNoReply
	}
	if err := u.copyText(reply); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	u.log.Info().Int("chars", len(reply)).Msg("Copied last reply")
	return nil
}

func (u *UI) open(path string) {
	if err := u.openFile(path); err != nil {
		u.log.Error().Err(err).Str("path", path).Msg("Failed to open file")
	}
}

func (u *UI) onExit() {
	if u.OnQuit != nil {
		u.OnQuit()
	}
}

func (u *UI) currentStatus() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.status
}

// updateStatus sets the tray title with microphone emoji and status indicator.
// Before the tray is ready it only remembers the status.
func (u *UI) updateStatus(status string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status = status
	if !u.ready {
		return
	}
	systray.SetTitle(fmt.Sprintf("🎤 %s", emojiForStatus(status)))
	u.mStatus.SetTitle(statusLabel(status))
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(status string) string {
	switch status {
	case "recording":
		return "🔴" // Red - listening
	case "processing":
		return "🟡" // Yellow - waiting on the services
	case "speaking":
		return "🔵" // Blue - playing the reply
	case "idle":
		return "🟢" // Green - ready/idle
	case "error":
		return "⚪️" // White - last session failed
	default:
		return "🟢" // Green - default to ready
	}
}

func statusLabel(status string) string {
	switch status {
	case "recording":
		return "Listening…"
	case "processing":
		return "Thinking…"
	case "speaking":
		return "Speaking…"
	case "error":
		return "Last question failed, see logs"
	default:
		return "Hold the key to talk"
	}
}
