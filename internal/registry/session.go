package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Default repository namespace for single-component repository names.
const DefaultNamespace = "library"

// Configures how a session reaches the registry.
type Options struct {
	BaseURL   string       // Registry root, e.g. "https://registry.hub.docker.com".
	Namespace string       // Prefix for single-component repositories. Empty disables it.
	Client    *http.Client // HTTP client. Nil uses a fresh cleanhttp client.
	UserAgent string       // User-Agent header value. Empty leaves the transport default.
}

// Connection state for one image pull.
//
// A session is bound to a repository and tag. It is not safe for concurrent
// use; each pull establishes its own.
type Session struct {
	apiURL    *url.URL     // Repository API root, always ending in "/".
	token     string       // Bearer token, empty when anonymous.
	hasToken  bool         // Whether the registry issued a token.
	tag       string       // Tag resolved by ListPlatformManifests.
	client    *http.Client // Transport shared by all requests of the session.
	userAgent string       // User-Agent sent with every request.
}

// Builds the repository API root and authenticates against the tag's
// manifest endpoint.
//
// The API root is "{base}/v2/{namespace}/{repository}/". Fails with
// [ErrInvalidURL] when the base URL is not an absolute URL, and with any
// error from [Negotiate].
func Establish(ctx context.Context, opts Options, repository, tag string) (*Session, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, opts.BaseURL)
	}

	client := opts.Client
	if client == nil {
		client = cleanhttp.DefaultClient()
	}

	s := &Session{
		apiURL:    base.ResolveReference(&url.URL{Path: "/v2/" + repositoryPath(opts.Namespace, repository) + "/"}),
		tag:       tag,
		client:    client,
		userAgent: opts.UserAgent,
	}

	s.token, s.hasToken, err = Negotiate(ctx, client, s.userAgent, s.endpoint("manifests", tag))
	if err != nil {
		return nil, err
	}

	slog.Debug("registry session established", "api", s.apiURL.String(), "authenticated", s.hasToken)
	return s, nil
}

// Returns the bearer token and whether the registry issued one.
func (s *Session) Token() (string, bool) {
	return s.token, s.hasToken
}

// Returns the repository API root.
func (s *Session) APIURL() string {
	return s.apiURL.String()
}

// Fetches the manifest list for the session's tag.
//
// The Docker manifest-list media type is requested, with the OCI image
// index as a fallback for registries that only store the latter.
func (s *Session) ListPlatformManifests(ctx context.Context) ([]ocispec.Descriptor, error) {
	var index ocispec.Index
	if err := s.getJSON(ctx, s.endpoint("manifests", s.tag), []string{MediaTypeManifestList, ocispec.MediaTypeImageIndex}, &index); err != nil {
		return nil, err
	}
	return index.Manifests, nil
}

// Fetches the image manifest a descriptor points at.
//
// The descriptor's media type is sent as the only Accept value. The decoded
// manifest must declare schema version 2 and the same media type, otherwise
// the error matches [ErrManifest].
func (s *Session) ReadImageManifest(ctx context.Context, desc ocispec.Descriptor) (*ocispec.Manifest, error) {
	var manifest ocispec.Manifest
	if err := s.getJSON(ctx, s.endpoint("manifests", desc.Digest.String()), []string{desc.MediaType}, &manifest); err != nil {
		return nil, err
	}

	if err := validateManifest(&manifest, desc.MediaType); err != nil {
		return nil, err
	}

	return &manifest, nil
}

// Downloads a blob.
//
// The content is returned as received. Nothing is checked against the
// descriptor's digest; see [Verify].
func (s *Session) ReadBlob(ctx context.Context, desc ocispec.Descriptor) ([]byte, error) {
	u := s.endpoint("blobs", desc.Digest.String())

	resp, err := send(ctx, s.client, s.userAgent, u, s.token, []string{desc.MediaType})
	if err != nil {
		return nil, err
	}
	defer discard(resp)

	if err := checkStatus(resp, u); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read blob %s: %w", ErrHTTP, desc.Digest, err)
	}

	slog.Debug("blob downloaded", "digest", desc.Digest.String(), "bytes", len(data))
	return data, nil
}

// Issues an authenticated GET and decodes the JSON body into v.
func (s *Session) getJSON(ctx context.Context, u string, accept []string, v any) error {
	resp, err := send(ctx, s.client, s.userAgent, u, s.token, accept)
	if err != nil {
		return err
	}
	defer discard(resp)

	if err := checkStatus(resp, u); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrHTTP, u, err)
	}
	return nil
}

// Resolves "{kind}/{ref}" against the repository API root.
func (s *Session) endpoint(kind, ref string) string {
	return s.apiURL.ResolveReference(&url.URL{Path: kind + "/" + ref}).String()
}

// Checks the manifest contract: schema version 2 and the requested media
// type.
func validateManifest(m *ocispec.Manifest, mediaType string) error {
	if m.SchemaVersion != schemaVersion {
		return fmt.Errorf("%w: %d", ErrInvalidSchemaVersion, m.SchemaVersion)
	}
	if m.MediaType != mediaType {
		return fmt.Errorf("%w: got %q, requested %q", ErrMediaTypeMismatch, m.MediaType, mediaType)
	}
	return nil
}

// Returns the repository path below "/v2/".
//
// Repositories that already contain a namespace ("org/app") are used as
// given; single-component names get the configured namespace.
func repositoryPath(namespace, repository string) string {
	if namespace == "" || strings.Contains(repository, "/") {
		return repository
	}
	return namespace + "/" + repository
}
