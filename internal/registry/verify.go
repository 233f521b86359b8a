package registry

import (
	_ "crypto/sha256" // registers the canonical digest algorithm
	"fmt"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Checks fetched content against its descriptor.
//
// The digest must be well-formed and match the content. When the
// descriptor declares a positive size, the length must match as well.
// Failures match [ErrDigestMismatch].
func Verify(desc ocispec.Descriptor, data []byte) error {
	if err := desc.Digest.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrDigestMismatch, err)
	}

	if desc.Size > 0 && int64(len(data)) != desc.Size {
		return fmt.Errorf("%w: %s: size %d, want %d", ErrDigestMismatch, desc.Digest, len(data), desc.Size)
	}

	verifier := desc.Digest.Verifier()
	verifier.Write(data)
	if !verifier.Verified() {
		return fmt.Errorf("%w: got %s, want %s", ErrDigestMismatch, desc.Digest.Algorithm().FromBytes(data), desc.Digest)
	}

	return nil
}
