package cli

import (
	"context"
	"fmt"

	"github.com/cruciblehq/crate/internal/launch"
)

// Represents the 'crate pull' command.
type PullCmd struct {
	SourceFlags `embed:""`

	Image string `arg:"" help:"Image reference, repository[:tag]."`
	Dest  string `arg:"" help:"Directory to unpack the image into." type:"path"`
}

// Executes the pull command.
//
// Prints the digest of the unpacked layer.
func (c *PullCmd) Run(ctx context.Context) error {
	cfg, err := loadConfig(RootCmd.Config, &c.SourceFlags)
	if err != nil {
		return err
	}

	result, err := launch.Pull(ctx, sourceOf(cfg), c.Image, c.Dest)
	if err != nil {
		return err
	}

	fmt.Println(result.Layer.Descriptor.Digest)
	return nil
}
