package launch

import (
	"errors"

	"github.com/cruciblehq/crate/internal/paths"
)

var (
	ErrNoMatchingPlatform  = errors.New("no matching platform")
	ErrEmptyManifest       = errors.New("image manifest has no layers")
	ErrInvalidPlatform     = errors.New("invalid platform")
	ErrFileSystemOperation = paths.ErrFileSystem
)
