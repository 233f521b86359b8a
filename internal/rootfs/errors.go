package rootfs

import (
	"fmt"

	"github.com/cruciblehq/crate/internal/paths"
)

var (
	ErrMaterialize = fmt.Errorf("%w: materialize failed", paths.ErrFileSystem)
)
