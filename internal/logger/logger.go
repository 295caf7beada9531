// Package logger provides the structured logger handed to every aipfetch component.
// A Logger is built once in the CLI entry point and passed down explicitly; it writes
// timestamped records to the console and, when configured, to an append-only log file.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/glorpus-work/aipfetch/pkg/fsutil"
)

// Fields is a type alias for log fields to make the API cleaner
type Fields map[string]interface{}

// OutputFormat selects the slog handler.
type OutputFormat string

// Supported output formats.
const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// Options configures a Logger.
type Options struct {
	Level   string       // debug, info, warn, error
	Format  OutputFormat // text (default) or json
	Console io.Writer    // defaults to os.Stderr; nil-safe
	File    string       // optional append-only log file
}

// Logger wraps a slog.Logger together with the log file it owns.
type Logger struct {
	log  *slog.Logger
	file *os.File
}

// New builds a Logger writing to the console and, if opts.File is set, to that file.
func New(opts Options) (*Logger, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	var file *os.File
	out := console
	if opts.File != "" {
		if err := fsutil.EnsureFileDir(opts.File); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, fsutil.FileModeSecure)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", opts.File, err)
		}
		file = f
		out = io.MultiWriter(console, f)
	}

	return &Logger{log: slog.New(newHandler(out, opts.Format, ParseLevel(opts.Level))), file: file}, nil
}

// NewWithWriter builds a file-less Logger on w. Handy for tests and embedding.
func NewWithWriter(w io.Writer, level string, format OutputFormat) *Logger {
	return &Logger{log: slog.New(newHandler(w, format, ParseLevel(level)))}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return NewWithWriter(io.Discard, "error", FormatText)
}

func newHandler(w io.Writer, format OutputFormat, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == FormatJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ParseLevel maps a level name to a slog.Level, falling back to info.
func ParseLevel(logLevel string) slog.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Slog exposes the underlying slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.log
}

// With returns a Logger that adds fields to every record.
func (l *Logger) With(fields Fields) *Logger {
	return &Logger{log: l.log.With(mergeFields(fields)...), file: l.file}
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...Fields) {
	l.log.Info(msg, mergeFields(fields...)...)
}

// Infof logs a formatted info message.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log.Info(fmt.Sprintf(format, args...))
}

// Debug logs a debug message (only shown when debug level is enabled).
func (l *Logger) Debug(msg string, fields ...Fields) {
	l.log.Debug(msg, mergeFields(fields...)...)
}

// Debugf logs a formatted debug message.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...Fields) {
	l.log.Warn(msg, mergeFields(fields...)...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...Fields) {
	l.log.Error(msg, mergeFields(fields...)...)
}

// Errorf logs a formatted error message.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(format, args...))
}

// Success logs a success message as info with success indicator.
func (l *Logger) Success(msg string, fields ...Fields) {
	attrs := mergeFields(fields...)
	attrs = append(attrs, "status", "success")
	l.log.Info(msg, attrs...)
}

// mergeFields merges multiple field maps into one slice of key-value pairs for slog.
// Later maps win on duplicate keys.
func mergeFields(fields ...Fields) []interface{} {
	merged := make(Fields)
	order := make([]string, 0)
	for _, field := range fields {
		for k, v := range field {
			if _, seen := merged[k]; !seen {
				order = append(order, k)
			}
			merged[k] = v
		}
	}
	result := make([]interface{}, 0, len(order)*2)
	for _, k := range order {
		result = append(result, k, merged[k])
	}
	return result
}
