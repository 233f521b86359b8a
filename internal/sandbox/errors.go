package sandbox

import (
	"errors"
	"fmt"

	"github.com/cruciblehq/crate/internal/paths"
)

var (
	ErrSandbox = errors.New("sandbox error")

	ErrPrepare              = fmt.Errorf("%w: root preparation failed: %w", ErrSandbox, paths.ErrFileSystem)
	ErrIsolation            = fmt.Errorf("%w: namespace isolation failed", ErrSandbox)
	ErrConfinement          = fmt.Errorf("%w: root confinement failed: %w", ErrSandbox, paths.ErrFileSystem)
	ErrExec                 = fmt.Errorf("%w: command could not be executed", ErrSandbox)
	ErrUnsupportedNamespace = fmt.Errorf("%w: unsupported namespace", ErrSandbox)
	ErrInvalidState         = fmt.Errorf("%w: invalid state", ErrSandbox)
)
