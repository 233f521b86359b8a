package launch

import (
	"fmt"

	"github.com/containerd/platforms"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Default platform images are resolved for.
const DefaultPlatform = "linux/amd64"

// Returns the first descriptor whose platform has the operating system and
// architecture of p.
//
// The variant is compared only when p names one, so "linux/amd64" selects a
// "linux/amd64/v3" entry listed first. Both sides are normalized before
// comparison. Descriptors without a platform never match. Fails with
// [ErrNoMatchingPlatform] when nothing matches, which is a property of the
// image and not a registry fault.
func SelectPlatform(descs []ocispec.Descriptor, p ocispec.Platform) (ocispec.Descriptor, error) {
	want := platforms.Normalize(p)

	for _, d := range descs {
		if d.Platform != nil && platformMatches(platforms.Normalize(*d.Platform), want) {
			return d, nil
		}
	}

	return ocispec.Descriptor{}, fmt.Errorf("%w: %s among %d manifests", ErrNoMatchingPlatform, platforms.Format(p), len(descs))
}

// Reports whether got satisfies want. Both must be normalized.
func platformMatches(got, want ocispec.Platform) bool {
	if got.OS != want.OS || got.Architecture != want.Architecture {
		return false
	}
	return want.Variant == "" || got.Variant == want.Variant
}

// Parses a platform specifier such as "linux/amd64".
func parsePlatform(s string) (ocispec.Platform, error) {
	if s == "" {
		s = DefaultPlatform
	}

	p, err := platforms.Parse(s)
	if err != nil {
		return ocispec.Platform{}, fmt.Errorf("%w: %w", ErrInvalidPlatform, err)
	}
	return p, nil
}
