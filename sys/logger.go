package sys

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// --- Globals & Styles ---

var (
	// Level colors
	infoColor  = color.New()
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
	fatalColor = color.New(color.FgRed, color.Bold)

	// Component colors
	databaseColor = color.New()
	loaderColor   = color.New(color.FgCyan)
	playerColor   = color.New(color.FgMagenta)
	playlistColor = color.New(color.FgGreen)

	// Global state
	DefaultTimeFormat = "15:04:05"
	IsSilent          = false
	LogToFile         = false
	Logger            *slog.Logger

	// Internal state
	logFile *os.File
	logMu   sync.Mutex
)

// --- Initialization ---

func init() {
	InitLogger(false, false)
}

// InitLogger initializes the global structured logger
func InitLogger(silent bool, saveToFile bool) {
	logMu.Lock()
	defer logMu.Unlock()

	IsSilent = silent
	LogToFile = saveToFile
	level := slog.LevelInfo
	if strings.ToLower(os.Getenv("DEBUG")) == "true" {
		level = slog.LevelDebug
	}

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	var writer io.Writer = os.Stdout
	var err error

	if LogToFile {
		logName := GetProjectName() + ".log"
		if exePath, exeErr := os.Executable(); exeErr == nil {
			logName = filepath.Base(exePath) + ".log"
		}

		logFile, err = os.OpenFile(logName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", logName, err)
		} else {
			writer = io.MultiWriter(os.Stdout, NewStripANSIWriter(logFile))
		}
	}

	handler := NewBotLogHandler(writer, &BotLogHandlerOptions{
		Silent: IsSilent,
		Level:  level,
	})
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

func SetSilentMode(silent bool) {
	InitLogger(silent, LogToFile)
}

// --- Public Logging API ---

func LogInfo(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...))
}

func LogWarn(format string, v ...any) {
	slog.Warn(fmt.Sprintf(format, v...))
}

func LogError(format string, v ...any) {
	slog.Error(fmt.Sprintf(format, v...))
}

// LogFatal logs and panics; main recovers the panic so deferred cleanup runs.
func LogFatal(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	slog.Log(context.Background(), slog.LevelError+4, msg)
	panic(msg)
}

func LogDebug(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...))
}

// Component Loggers

func LogDatabase(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "database"))
}

func LogLoader(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "loader"))
}

func LogPlayer(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "player"))
}

func LogPlaylist(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...), slog.String("component", "playlist"))
}

// --- Log Handler Implementation ---

type BotLogHandlerOptions struct {
	Silent bool
	Level  slog.Leveler
}

type BotLogHandler struct {
	w    io.Writer
	opts *BotLogHandlerOptions
	mu   *sync.Mutex
}

func NewBotLogHandler(w io.Writer, opts *BotLogHandlerOptions) *BotLogHandler {
	if opts == nil {
		opts = &BotLogHandlerOptions{Level: slog.LevelInfo}
	}
	return &BotLogHandler{
		w:    w,
		opts: opts,
		mu:   &sync.Mutex{},
	}
}

func (h *BotLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.opts.Silent {
		return false
	}
	return level >= h.opts.Level.Level()
}

func (h *BotLogHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.opts.Silent {
		return nil
	}

	timeStr := time.Now().Format(DefaultTimeFormat)
	levelStr := "DEBUG"
	levelColor := infoColor

	switch {
	case r.Level >= slog.LevelError+4:
		levelStr = "FATAL"
		levelColor = fatalColor
	case r.Level >= slog.LevelError:
		levelStr = "ERROR"
		levelColor = errorColor
	case r.Level >= slog.LevelWarn:
		levelStr = "WARN"
		levelColor = warnColor
	case r.Level >= slog.LevelInfo:
		levelStr = "INFO"
		levelColor = infoColor
	}

	component := ""
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			component = strings.ToUpper(a.Value.String())
			return false
		}
		return true
	})

	fmt.Fprintf(h.w, "%s", timeStr)

	if component != "" {
		if levelStr != "INFO" {
			fmt.Fprintf(h.w, " %s", levelColor.Sprintf("[%s]", levelStr))
		}
		fmt.Fprintf(h.w, " %s\n", colorizeWithResets(getComponentColor(component), fmt.Sprintf("[%s] %s", component, r.Message)))
	} else {
		displayMsg := fmt.Sprintf("[%s] %s", levelStr, r.Message)
		if levelStr == "INFO" && strings.HasPrefix(r.Message, "[") {
			if idx := strings.Index(r.Message, "]"); idx > 0 && idx < 20 {
				displayMsg = r.Message
			}
		}
		fmt.Fprintf(h.w, " %s\n", colorizeWithResets(levelColor, displayMsg))
	}

	return nil
}

func (h *BotLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *BotLogHandler) WithGroup(name string) slog.Handler       { return h }

// --- Formatting Helpers ---

func getComponentColor(name string) *color.Color {
	switch name {
	case "DATABASE":
		return databaseColor
	case "LOADER":
		return loaderColor
	case "PLAYER":
		return playerColor
	case "PLAYLIST":
		return playlistColor
	default:
		return color.New(color.FgCyan)
	}
}

func colorizeWithResets(c *color.Color, text string) string {
	if !strings.Contains(text, "\x1b[0m") {
		return c.Sprint(text)
	}

	marker := "@@@MSG@@@"
	wrapped := c.Sprint(marker)
	idx := strings.Index(wrapped, marker)
	if idx <= 0 {
		return text
	}
	startSeq := wrapped[:idx]

	return c.Sprint(strings.ReplaceAll(text, "\x1b[0m", "\x1b[0m"+startSeq))
}

func GetLogPath() string {
	logMu.Lock()
	defer logMu.Unlock()
	if logFile == nil {
		return ""
	}
	return logFile.Name()
}

// --- ANSI Stripper ---

type StripANSIWriter struct {
	w  io.Writer
	re *regexp.Regexp
}

func NewStripANSIWriter(w io.Writer) *StripANSIWriter {
	return &StripANSIWriter{
		w:  w,
		re: regexp.MustCompile(`\x1b\[[0-9;]*m`),
	}
}

func (s *StripANSIWriter) Write(p []byte) (n int, err error) {
	clean := s.re.ReplaceAll(p, []byte(""))
	_, err = s.w.Write(clean)
	return len(p), err
}

// --- Message Constants ---

const (
	// --- Infrastructure & Lifecycle ---
	MsgConfigFailedToLoad   = "Failed to load config: %v"
	MsgConfigMissingToken   = "DISCORD_TOKEN is not set in .env file"
	MsgConfigInvalidCache   = "invalid CACHE_LENGTH: must be a positive integer"
	MsgConfigInvalidVolume  = "invalid DEFAULT_VOLUME: must be between 0 and 2"
	MsgDatabaseInitSuccess  = "Database initialized successfully"
	MsgDatabaseTableError   = "Failed to create table: %w"
	MsgDatabasePragmaError  = "Failed to set pragma %s: %w"
	MsgDaemonStarting       = "Starting..."
	MsgBotStarting          = "Starting %s..."
	MsgBotReady             = "%s is ready! (ID: %s) (PID: %d) (Took: %dms)"
	MsgBotShutdown          = "Shutting down %s..."
	MsgBotRegisterFail      = "Command registration failed: %v"
	MsgGenericError         = "%v"
	MsgLoaderSyncCommands   = "Syncing %s commands..."
	MsgLoaderUpToDate       = "Commands are up to date. (Hash: %s)"
	MsgLoaderDevRegistered  = "[DEV] Registered: %s"
	MsgLoaderDevFail        = "[DEV] Registration failed: %v"
	MsgLoaderProdRegistered = "[PROD] Registered: %s"
	MsgLoaderProdFail       = "[PROD] Global registration failed: %w"
	MsgLoaderPanicRecovered = "Panic recovered in handler: %v"

	// --- Playlist ---
	MsgPlaylistLoaded     = "Loaded %d tracks from %s"
	MsgPlaylistReshuffled = "Backlog exhausted, reshuffled %d tracks from %s"
	MsgPlaylistTagFail    = "Failed to read tags for %s: %v"
	MsgPlaylistRefillFail = "Could not refill the track cache: %v"

	// --- Player ---
	MsgPlayerStarting       = "Starting session in guild %s (channel %s)"
	MsgPlayerStopped        = "Session stopped in guild %s"
	MsgPlayerNowPlaying     = "Playing %s: %s"
	MsgPlayerTrackError     = "Error occurred playing track: %v"
	MsgPlayerNextFail       = "Failed to fetch next track in guild %s: %v"
	MsgPlayerLogFail        = "Failed to log track %q: %v"
	MsgPlayerHistoryFail    = "Failed to record history for %q: %v"
	MsgPlayerPaused         = "Pausing playback in guild %s (no listeners)"
	MsgPlayerResumed        = "Resuming playback in guild %s"
	MsgPlayerDisconnectFail = "Failed to disconnect in guild %s: %v"
	MsgPlayerBotLeft        = "Bot disconnected by external event in guild %s"
	MsgPlayerBotMoved       = "Bot moved from %s to %s in guild %s"
	MsgPlayerTranscodeFail  = "Transcoder failed for %s: %v"

	// --- Commands ---
	ErrCmdGuildOnly      = "This command can only be used in a server."
	ErrCmdNotInVoice     = "You need to be in a voice channel."
	ErrCmdNotRunning     = "Nothing is playing right now."
	ErrCmdAlreadyRunning = "The player is already running in this server."
	ErrCmdStartFailed    = "Failed to start the player: %v"
	ErrCmdRequestFailed  = "Failed to resolve request: %v"
	ErrCmdInvalidVolume  = "Volume must be between 0 and 200."
	ErrCmdHistoryFailed  = "Failed to read play history."
	ErrCmdSettingsFailed = "Failed to save settings."
	ErrCmdNoPermission   = "You need the Manage Server permission to do that."
	ErrCmdWrongChannel   = "You need to be in the player's voice channel."
	ErrCmdNotReady       = "The player is still starting up, try again shortly."
	MsgCmdStarted        = "Started the playlist in <#%s>."
	MsgCmdStopped        = "Stopped and disconnected."
	MsgCmdRequested      = "Queued [%s](%s) at position %d."
	MsgCmdVolume         = "Volume set to %d%%."
	MsgCmdSkipVote       = "Skip vote registered (%d/%d)."
	MsgCmdSkipped        = "Skipping the current track."
	MsgCmdLogChannel     = "Track log will be posted in <#%s>."
	MsgCmdHistoryEmpty   = "Nothing has been played yet."
	MsgCmdQueueEmpty     = "The queue is empty."
)
