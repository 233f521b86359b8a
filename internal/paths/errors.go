package paths

import "errors"

var (
	ErrFileSystem = errors.New("file system operation failed")
)
