// Package logging builds the slog handlers used by the launcher.
//
// All loggers share one level variable, so the level chosen after flag
// parsing also applies to a logger installed earlier at startup. Records go
// to standard error; standard output belongs to the sandboxed command.
package logging
