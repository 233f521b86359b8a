package launch

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/cruciblehq/crate/internal/rootfs"
)

// Returned after a successful pull.
type PullResult struct {
	Layer *Layer // Fetched layer.
	Dest  string // Directory the layer was materialized into.
}

// Fetches an image layer and unpacks it into dest.
//
// The destination should be empty; entries already present are overwritten
// by archive entries of the same name.
func Pull(ctx context.Context, src Source, image, dest string) (*PullResult, error) {
	layer, err := Fetch(ctx, src, image)
	if err != nil {
		return nil, err
	}

	if err := rootfs.Materialize(bytes.NewReader(layer.Data), dest); err != nil {
		return nil, err
	}

	slog.Info("image pulled", "image", layer.Image.String(), "dest", dest)

	return &PullResult{Layer: layer, Dest: dest}, nil
}
