package launch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/containerd/errdefs"
	"github.com/containerd/platforms"
	"github.com/dustin/go-humanize"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/cruciblehq/crate/internal/reference"
	"github.com/cruciblehq/crate/internal/registry"
)

// Where and how image content is fetched.
type Source struct {
	Registry      registry.Options // Registry endpoint and transport.
	Platform      string           // Platform to select, e.g. "linux/amd64". Empty uses DefaultPlatform.
	Retries       uint64           // Additional attempts after a transient failure. Zero tries once.
	VerifyDigests bool             // Check the layer against its descriptor before use.
}

// A downloaded image layer.
type Layer struct {
	Image      reference.Image    // Parsed image reference.
	Manifest   ocispec.Descriptor // Platform manifest the layer came from.
	Descriptor ocispec.Descriptor // Layer descriptor.
	Data       []byte             // Compressed layer content.
}

// Builds the retry policy for a fetch. Replaced in tests.
var newBackOff = func() backoff.BackOff {
	return backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(2 * time.Minute))
}

// Resolves an image reference and downloads the first layer of the manifest
// for the configured platform.
//
// Only the first layer is fetched; later layers are reported at debug level
// and ignored.
func Fetch(ctx context.Context, src Source, image string) (*Layer, error) {
	ref, err := reference.Parse(image)
	if err != nil {
		return nil, err
	}

	platform, err := parsePlatform(src.Platform)
	if err != nil {
		return nil, err
	}

	slog.Info("fetching image",
		"image", ref.String(),
		"registry", src.Registry.BaseURL,
		"platform", platforms.Format(platform),
	)

	attempt := 0
	operation := func() (*Layer, error) {
		attempt++
		layer, err := fetchOnce(ctx, src, ref, platform)
		if err != nil && !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return layer, err
	}

	notify := func(err error, wait time.Duration) {
		slog.Warn("fetch failed, retrying", "attempt", attempt, "wait", wait, "error", err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), src.Retries), ctx)

	layer, err := backoff.RetryNotifyWithData(operation, policy, notify)
	if err != nil {
		return nil, err
	}

	slog.Info("layer fetched",
		"image", ref.String(),
		"digest", layer.Descriptor.Digest.String(),
		"size", humanize.Bytes(uint64(len(layer.Data))),
	)

	return layer, nil
}

// Runs one complete registry exchange.
func fetchOnce(ctx context.Context, src Source, ref reference.Image, platform ocispec.Platform) (*Layer, error) {
	session, err := registry.Establish(ctx, src.Registry, ref.Repository, ref.Tag)
	if err != nil {
		return nil, err
	}

	descs, err := session.ListPlatformManifests(ctx)
	if err != nil {
		return nil, err
	}

	selected, err := SelectPlatform(descs, platform)
	if err != nil {
		return nil, err
	}

	slog.Debug("platform manifest selected", "digest", selected.Digest.String(), "candidates", len(descs))

	manifest, err := session.ReadImageManifest(ctx, selected)
	if err != nil {
		return nil, err
	}

	if len(manifest.Layers) == 0 {
		return nil, ErrEmptyManifest
	}
	if len(manifest.Layers) > 1 {
		slog.Debug("applying only the first layer", "layers", len(manifest.Layers))
	}

	desc := manifest.Layers[0]

	data, err := session.ReadBlob(ctx, desc)
	if err != nil {
		return nil, err
	}

	if src.VerifyDigests {
		if err := registry.Verify(desc, data); err != nil {
			return nil, err
		}
	}

	return &Layer{
		Image:      ref,
		Manifest:   selected,
		Descriptor: desc,
		Data:       data,
	}, nil
}

// Reports whether a failed exchange may succeed when repeated: transport
// failures, rate limiting and server-side errors.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var status *registry.StatusError
	if errors.As(err, &status) {
		return errdefs.IsUnavailable(err) || errdefs.IsResourceExhausted(err)
	}

	return errors.Is(err, registry.ErrHTTP)
}
