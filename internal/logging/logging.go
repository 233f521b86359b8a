package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Level shared by every logger built here. Adjusting it affects loggers
// that were already created.
var level = new(slog.LevelVar)

// Controls handler construction.
type Options struct {
	Color   bool // Render with colors and short timestamps for terminals.
	Verbose bool // Include the source location of each record.
}

// Sets the shared level.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// Returns the shared level.
func Level() slog.Level {
	return level.Level()
}

// Creates a logger writing to w.
//
// Colored output uses the tint handler; plain output uses the standard
// text handler so it stays greppable when redirected.
func New(w io.Writer, opts Options) *slog.Logger {
	if opts.Color {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			AddSource:  opts.Verbose,
			TimeFormat: time.Kitchen,
		}))
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: opts.Verbose,
	}))
}

// Installs a logger writing to f as the process default. Colors are used
// when f is a terminal.
func Configure(f *os.File, lvl slog.Level, verbose bool) {
	SetLevel(lvl)
	slog.SetDefault(New(f, Options{
		Color:   IsTerminal(f),
		Verbose: verbose,
	}))
}

// Whether the given file is an interactive terminal.
func IsTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
