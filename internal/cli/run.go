package cli

import (
	"context"
	"fmt"

	"github.com/cruciblehq/crate/internal/launch"
)

// Non-zero exit of the sandboxed command, passed through to the process
// exit code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command exited with code %d", e.Code)
}

// Represents the 'crate run' command.
type RunCmd struct {
	SourceFlags `embed:""`

	KeepRoot bool     `help:"Keep the sandbox root after the command exits."`
	Image    string   `arg:"" help:"Image reference, repository[:tag]."`
	Command  []string `arg:"" passthrough:"" help:"Command and arguments to run inside the image."`
}

// Executes the run command.
//
// The image is fetched, unpacked into a fresh root and the command runs
// confined to it. Returns an [ExitError] when the command does not exit
// with code 0; a command killed by a signal yields code 1.
func (c *RunCmd) Run(ctx context.Context) error {
	cfg, err := loadConfig(RootCmd.Config, &c.SourceFlags)
	if err != nil {
		return err
	}

	namespaces, err := cfg.NamespaceTypes()
	if err != nil {
		return err
	}

	result, err := launch.Run(ctx, launch.Options{
		Source:     sourceOf(cfg),
		Image:      c.Image,
		Command:    c.Command[0],
		Args:       c.Command[1:],
		ScratchDir: cfg.ScratchDir,
		Namespaces: namespaces,
		KeepRoot:   c.KeepRoot || cfg.KeepRoot,
	})
	if err != nil {
		return err
	}

	if code := result.Status.ExitCode(); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}
