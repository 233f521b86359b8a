package launch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/cruciblehq/crate/internal/paths"
	"github.com/cruciblehq/crate/internal/rootfs"
	"github.com/cruciblehq/crate/internal/sandbox"
)

// Prefix of every scratch root directory name.
const rootPrefix = "crate-"

// Controls a launch.
type Options struct {
	Source                                // Image source.
	Image      string                     // Image reference, "repository[:tag]".
	Command    string                     // Command to execute inside the root.
	Args       []string                   // Command arguments.
	ScratchDir string                     // Parent of the per-run root. Empty uses paths.Scratch().
	Namespaces []specs.LinuxNamespaceType // Namespaces for the child. Nil uses sandbox.DefaultNamespaces().
	KeepRoot   bool                       // Leave the root in place after the child exits.
}

// Returned after the child has exited.
type Result struct {
	ID     string             // Run identifier, also part of the root name.
	Root   string             // Root directory. Removed unless KeepRoot was set.
	Layer  *Layer             // Layer the root was built from.
	Status sandbox.ExitStatus // How the child terminated.
}

// Fetches an image, builds a fresh root from its first layer and runs the
// command confined to it.
//
// Each run gets its own root directory under the scratch directory. The
// root is removed on return, whether or not the run succeeded, unless
// KeepRoot is set. A non-zero exit of the child is reported in the result,
// not as an error.
func Run(ctx context.Context, opts Options) (*Result, error) {
	namespaces := opts.Namespaces
	if namespaces == nil {
		namespaces = sandbox.DefaultNamespaces()
	}

	layer, err := Fetch(ctx, opts.Source, opts.Image)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()

	root, err := createRoot(opts.ScratchDir, id)
	if err != nil {
		return nil, err
	}
	if !opts.KeepRoot {
		defer removeRoot(root)
	}

	slog.Debug("root created", "run", id, "root", root)

	if err := rootfs.Materialize(bytes.NewReader(layer.Data), root); err != nil {
		return nil, err
	}

	status, err := sandbox.Execute(root, namespaces, opts.Command, opts.Args...)
	if err != nil {
		return nil, err
	}

	slog.Info("command exited", "run", id, "status", status.String())

	return &Result{
		ID:     id,
		Root:   root,
		Layer:  layer,
		Status: status,
	}, nil
}

// Creates the root directory for a run.
func createRoot(scratch, id string) (string, error) {
	if scratch == "" {
		scratch = paths.Scratch()
	}

	if err := os.MkdirAll(scratch, paths.DefaultDirMode); err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	root := filepath.Join(scratch, rootPrefix+id)
	if err := os.Mkdir(root, paths.DefaultDirMode); err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileSystemOperation, err)
	}

	return root, nil
}

// Removes a run's root directory, logging instead of failing.
func removeRoot(root string) {
	if err := os.RemoveAll(root); err != nil {
		slog.Warn("failed to remove root", "root", root, "error", err)
		return
	}
	slog.Debug("root removed", "root", root)
}
