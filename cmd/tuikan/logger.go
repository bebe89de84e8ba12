package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	charmLog "github.com/charmbracelet/log"
	"github.com/evanschultz/tuikan/internal/config"
)

// logSetup carries what the runtime logger needs beyond the logging section.
type logSetup struct {
	AppName string
	DevMode bool
	// DataDir anchors a relative logging.dev_file.dir.
	DataDir string
	Now     func() time.Time
}

// runtimeLogger writes CLI events to a styled console and, in dev mode, to a
// daily logfmt file. The console can be muted while the board owns the screen.
type runtimeLogger struct {
	console *charmLog.Logger
	file    *charmLog.Logger
	discard *charmLog.Logger
	muted   bool

	fileHandle *os.File
	filePath   string
}

// newRuntimeLogger builds the console sink and, when enabled, the dev file sink.
func newRuntimeLogger(stderr io.Writer, cfg config.LoggingConfig, setup logSetup) (*runtimeLogger, error) {
	level, err := charmLog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse logging level %q: %w", cfg.Level, err)
	}
	if stderr == nil {
		stderr = io.Discard
	}
	if setup.Now == nil {
		setup.Now = time.Now
	}

	l := &runtimeLogger{
		console: charmLog.NewWithOptions(stderr, charmLog.Options{
			Level:           level,
			Prefix:          setup.AppName,
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
			Formatter:       charmLog.TextFormatter,
		}),
		discard: charmLog.New(io.Discard),
	}
	if !setup.DevMode || !cfg.DevFile.Enabled {
		return l, nil
	}

	path := devLogFilePath(cfg.DevFile.Dir, setup.DataDir, setup.AppName, setup.Now())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dev log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dev log file: %w", err)
	}
	l.fileHandle = f
	l.filePath = path
	l.file = charmLog.NewWithOptions(f, charmLog.Options{
		Level:           level,
		Prefix:          setup.AppName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.LogfmtFormatter,
	})
	return l, nil
}

// AppLogger returns the single sink handed to the service and session layers.
// The dev file wins when present; a muted console yields a discard logger.
func (l *runtimeLogger) AppLogger() *charmLog.Logger {
	switch {
	case l == nil:
		return charmLog.New(io.Discard)
	case l.file != nil:
		return l.file
	case l.muted:
		return l.discard
	default:
		return l.console
	}
}

// DevLogPath returns the dev log file, or "" when file logging is off.
func (l *runtimeLogger) DevLogPath() string {
	if l == nil {
		return ""
	}
	return l.filePath
}

// Mute stops console output; the dev file keeps receiving events.
func (l *runtimeLogger) Mute() {
	if l != nil {
		l.muted = true
	}
}

// Muted reports whether console output is off.
func (l *runtimeLogger) Muted() bool {
	return l == nil || l.muted
}

// Close releases the dev log file. It is safe to call more than once.
func (l *runtimeLogger) Close() error {
	if l == nil || l.fileHandle == nil {
		return nil
	}
	f := l.fileHandle
	l.fileHandle = nil
	l.file = nil
	return f.Close()
}

// emit sends one event to every active sink.
func (l *runtimeLogger) emit(level charmLog.Level, msg string, keyvals ...any) {
	if l == nil {
		return
	}
	if !l.muted {
		l.console.Log(level, msg, keyvals...)
	}
	if l.file != nil {
		l.file.Log(level, msg, keyvals...)
	}
}

func (l *runtimeLogger) Debug(msg string, keyvals ...any) {
	l.emit(charmLog.DebugLevel, msg, keyvals...)
}
func (l *runtimeLogger) Info(msg string, keyvals ...any) { l.emit(charmLog.InfoLevel, msg, keyvals...) }
func (l *runtimeLogger) Warn(msg string, keyvals ...any) { l.emit(charmLog.WarnLevel, msg, keyvals...) }
func (l *runtimeLogger) Error(msg string, keyvals ...any) {
	l.emit(charmLog.ErrorLevel, msg, keyvals...)
}

// devLogFilePath places <app>-<YYYYMMDD>.log in dir; a relative dir is taken
// under dataDir.
func devLogFilePath(dir, dataDir, appName string, now time.Time) string {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "logs"
	}
	if !filepath.IsAbs(dir) && dataDir != "" {
		dir = filepath.Join(dataDir, dir)
	}
	name := fmt.Sprintf("%s-%s.log", logFileStem(appName), now.UTC().Format("20060102"))
	return filepath.Join(filepath.Clean(dir), name)
}

// logFileStem keeps letters, digits, '.', '_' and '-' and folds every other run
// of characters into a single '-'.
func logFileStem(appName string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.TrimSpace(appName) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-' {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	stem := strings.Trim(b.String(), "-.")
	if stem == "" {
		return "tuikan"
	}
	return stem
}
