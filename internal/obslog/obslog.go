// Package obslog holds the process-wide structured logger shared by the
// launcher and the shim. It defaults to
// discarding everything: the shim in particular must never assume a
// console exists (it may be running inside an injected GUI process), so
// logging is opt-in via Init.
package obslog

import (
	"io"
	"log/slog"
)

// L is the global logger instance, initialized to discard all output.
var L *slog.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Options configures Init.
type Options struct {
	Writer io.Writer  // destination; nil discards all output
	JSON   bool       // JSON handler instead of text, used inside the injected target
	Level  slog.Level
}

// Init installs the global logger. Passing a zero Options discards all
// output, matching the package default.
func Init(opts Options) {
	if opts.Writer == nil {
		L = slog.New(slog.NewTextHandler(io.Discard, nil))
		return
	}
	ho := &slog.HandlerOptions{Level: opts.Level}
	if opts.JSON {
		L = slog.New(slog.NewJSONHandler(opts.Writer, ho))
		return
	}
	L = slog.New(slog.NewTextHandler(opts.Writer, ho))
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
