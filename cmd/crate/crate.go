package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/cruciblehq/crate/internal"
	"github.com/cruciblehq/crate/internal/cli"
	"github.com/cruciblehq/crate/internal/logging"
)

// The entry point for the crate launcher.
//
// Initializes logging, displays startup information, and executes the root
// command. A sandboxed command's exit code becomes the process exit code;
// any other error is logged and exits with 1.
func main() {
	logging.Configure(os.Stderr, internal.LogLevel(), internal.IsVerbose())

	slog.Debug("build", "version", internal.VersionString())

	slog.Debug("crate is running",
		"pid", os.Getpid(),
		"cwd", cwd(),
		"args", os.Args,
	)

	if err := cli.Execute(); err != nil {
		var exit *cli.ExitError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}
		slog.Error(err.Error())
		os.Exit(1)
	}
}

// Returns the current working directory or "(unknown)".
func cwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "(unknown)"
	}
	return cwd
}
