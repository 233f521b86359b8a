package reference

import (
	"fmt"
	"strings"

	distref "github.com/distribution/reference"
)

const (

	// Tag used when the reference does not carry one.
	DefaultTag = "latest"

	// Domain the distribution grammar assigns to references without a host.
	defaultDomain = "docker.io"
)

// An image repository and tag. Immutable once parsed.
type Image struct {
	Repository string // Repository name without registry host, e.g. "alpine" or "bitnami/redis".
	Tag        string // Tag to resolve, never empty.
}

// Parses a "repository[:tag]" reference.
//
// The repository must be non-empty and valid under the distribution
// reference grammar. A leading "library/" is folded away, the same way
// registries treat official images.
func Parse(s string) (Image, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Image{}, fmt.Errorf("%w: empty reference", ErrInvalidReference)
	}

	named, err := distref.ParseNormalizedNamed(s)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}

	if _, ok := named.(distref.Digested); ok {
		return Image{}, fmt.Errorf("%w: %s", ErrDigestReference, s)
	}

	if distref.Domain(named) != defaultDomain || hasExplicitDomain(s) {
		return Image{}, fmt.Errorf("%w: %s", ErrRegistryHost, s)
	}

	tag := DefaultTag
	if tagged, ok := named.(distref.Tagged); ok {
		tag = tagged.Tag()
	}

	return Image{
		Repository: distref.FamiliarName(named),
		Tag:        tag,
	}, nil
}

// Returns the reference in "repository:tag" form.
func (i Image) String() string {
	return i.Repository + ":" + i.Tag
}

// Whether the first path component of s looks like a registry host.
//
// The distribution grammar normalizes "docker.io/alpine" to the same name as
// "alpine"; an explicit host is rejected either way so that the configured
// registry is the only source of truth.
func hasExplicitDomain(s string) bool {
	first, _, found := strings.Cut(s, "/")
	if !found {
		return false
	}
	return strings.ContainsAny(first, ".:") || first == "localhost"
}
