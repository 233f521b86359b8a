package reference

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidReference = errors.New("invalid image reference")
	ErrDigestReference  = fmt.Errorf("%w: digest references are not supported", ErrInvalidReference)
	ErrRegistryHost     = fmt.Errorf("%w: registry hosts are configured, not part of the reference", ErrInvalidReference)
)
