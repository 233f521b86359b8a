package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/cruciblehq/crate/internal"
	"github.com/cruciblehq/crate/internal/config"
	"github.com/cruciblehq/crate/internal/launch"
	"github.com/cruciblehq/crate/internal/logging"
	"github.com/cruciblehq/crate/internal/registry"
)

// Represents the root command for the launcher.
type Root struct {
	Quiet   bool       `short:"q" help:"Suppress informational output."`
	Verbose bool       `short:"v" help:"Enable verbose output."`
	Debug   bool       `short:"d" help:"Enable debug output."`
	Config  string     `short:"c" help:"Override the default configuration file path." placeholder:"PATH" type:"path"`
	Run     RunCmd     `cmd:"" help:"Run a command inside an image."`
	Pull    PullCmd    `cmd:"" help:"Unpack an image into a directory."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Parsed command line.
var RootCmd Root

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("A minimal container launcher.\n\nPulls an image from an OCI registry and runs a command confined to its filesystem."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Configures the global logger based on CLI flags.
func configureLogger() {
	if RootCmd.Debug {
		internal.SetDebug(true)
	}
	if RootCmd.Quiet {
		internal.SetQuiet(true)
	}
	if RootCmd.Verbose {
		internal.SetVerbose(true)
	}

	logging.Configure(os.Stderr, internal.LogLevel(), internal.IsVerbose())
}

// Flags shared by commands that fetch images.
type SourceFlags struct {
	Registry string `help:"Registry URL, overriding the configuration." placeholder:"URL"`
	Platform string `help:"Platform to resolve, e.g. linux/amd64." placeholder:"OS/ARCH"`
	NoVerify bool   `help:"Skip layer digest verification."`
}

// Applies the flags to a configuration.
func (f *SourceFlags) apply(cfg *config.Config) {
	if f.Registry != "" {
		cfg.Registry.URL = f.Registry
	}
	if f.Platform != "" {
		cfg.Platform = f.Platform
	}
	if f.NoVerify {
		cfg.VerifyDigests = false
	}
}

// Loads the configuration and applies command flags over it.
func loadConfig(path string, flags *SourceFlags) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Returns the image source described by a configuration.
func sourceOf(cfg *config.Config) launch.Source {
	return launch.Source{
		Registry: registry.Options{
			BaseURL:   cfg.Registry.URL,
			Namespace: cfg.Registry.Namespace,
			UserAgent: internal.UserAgent(),
		},
		Platform:      cfg.Platform,
		Retries:       cfg.Retries,
		VerifyDigests: cfg.VerifyDigests,
	}
}
