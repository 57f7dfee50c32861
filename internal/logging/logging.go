// Package logging builds the zerolog loggers used by the signedqr command.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation settings for the optional log file.
const (
	logMaxSizeMB   = 5
	logMaxBackups  = 3
	logMaxAgeDays  = 28
	logFileDirMode = 0o750
)

// Options configures New.
type Options struct {
	// Level is a zerolog level name. Empty selects info.
	Level string

	// Verbose forces debug level regardless of Level.
	Verbose bool

	// File, when set, receives a copy of every event with rotation.
	File string

	// Console selects human-readable output instead of JSON.
	Console bool

	// Writer is the console destination. Nil selects stderr.
	Writer io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New creates a logger from opts. The returned closer releases the log file
// and must be called on shutdown.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := selectLevel(opts)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	out := opts.Writer
	if out == nil {
		out = os.Stderr
	}
	var console io.Writer = out
	if opts.Console {
		console = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
			NoColor:    !colorEnabled(out),
		}
	}

	var closer io.Closer = nopCloser{}
	writer := console
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), logFileDirMode); err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("failed to create log directory: %w", err)
		}
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    logMaxSizeMB,
			MaxBackups: logMaxBackups,
			MaxAge:     logMaxAgeDays,
		}
		closer = lj
		writer = zerolog.MultiLevelWriter(console, NewFilteringWriter(lj))
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}

func selectLevel(opts Options) (zerolog.Level, error) {
	if opts.Verbose {
		return zerolog.DebugLevel, nil
	}
	if strings.TrimSpace(opts.Level) == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}
	return level, nil
}

func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // file descriptors fit in int
}
