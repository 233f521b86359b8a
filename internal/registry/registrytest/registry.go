// Package registrytest provides an in-memory registry for tests.
//
// The registry speaks enough of the distribution protocol for the registry
// client: tag and digest manifest lookups, blob downloads, and an optional
// bearer-token challenge backed by a token endpoint on the same server.
package registrytest

import (
	_ "crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Media types served by [Registry.PutImage].
const (
	mediaTypeManifestList = "application/vnd.docker.distribution.manifest.list.v2+json"
	mediaTypeManifest     = "application/vnd.docker.distribution.manifest.v2+json"
	mediaTypeConfig       = "application/vnd.docker.container.image.v1+json"
	mediaTypeLayerGzip    = "application/vnd.docker.image.rootfs.diff.tar.gzip"
)

// Service name advertised in the bearer challenge.
const Service = "registry.test"

// A stored manifest document.
type document struct {
	mediaType string
	body      []byte
}

// An in-memory registry served over HTTP.
type Registry struct {
	URL   string // Base URL of the server.
	Token string // Token required on data requests. Empty serves anonymously.

	server *httptest.Server
	mu     sync.Mutex
	docs   map[string]document // Keyed by "<repo-path>@<tag-or-digest>".
	blobs  map[string][]byte   // Keyed by digest.
	hits   map[string]int      // Request counts keyed by "<kind>" ("token", "manifest", "blob").
	accept map[string][]string // Last Accept values keyed by request path.
}

// Starts a registry. The server is closed when the test ends.
func New(t testing.TB, token string) *Registry {
	t.Helper()

	r := &Registry{
		Token:  token,
		docs:   make(map[string]document),
		blobs:  make(map[string][]byte),
		hits:   make(map[string]int),
		accept: make(map[string][]string),
	}
	r.server = httptest.NewServer(http.HandlerFunc(r.serve))
	r.URL = r.server.URL
	t.Cleanup(r.server.Close)
	return r
}

// Stores a manifest under a tag or digest of the given repository path
// (e.g. "library/alpine").
func (r *Registry) PutManifest(repoPath, ref, mediaType string, body []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[repoPath+"@"+ref] = document{mediaType: mediaType, body: body}
}

// Stores a blob and returns its descriptor.
func (r *Registry) PutBlob(mediaType string, data []byte) ocispec.Descriptor {
	d := digest.FromBytes(data)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.blobs[d.String()] = data

	return ocispec.Descriptor{MediaType: mediaType, Digest: d, Size: int64(len(data))}
}

// Stores a two-platform image (linux/arm64 first, then linux/amd64) whose
// manifests both reference the given layers, tagged in repoPath. Returns
// the manifest-list entries in order.
func (r *Registry) PutImage(repoPath, tag string, layers ...[]byte) []ocispec.Descriptor {
	config := r.PutBlob(mediaTypeConfig, []byte(`{"architecture":"amd64","os":"linux"}`))

	var layerDescs []ocispec.Descriptor
	for _, l := range layers {
		layerDescs = append(layerDescs, r.PutBlob(mediaTypeLayerGzip, l))
	}

	var entries []ocispec.Descriptor
	for _, arch := range []string{"arm64", "amd64"} {
		body := MustJSON(ocispec.Manifest{
			Versioned: specs.Versioned{SchemaVersion: 2},
			MediaType: mediaTypeManifest,
			Config:    config,
			Layers:    layerDescs,
			Annotations: map[string]string{
				"test.arch": arch,
			},
		})
		d := digest.FromBytes(body)
		r.PutManifest(repoPath, d.String(), mediaTypeManifest, body)

		entries = append(entries, ocispec.Descriptor{
			MediaType: mediaTypeManifest,
			Digest:    d,
			Size:      int64(len(body)),
			Platform:  &ocispec.Platform{Architecture: arch, OS: "linux"},
		})
	}

	r.PutManifest(repoPath, tag, mediaTypeManifestList, MustJSON(ocispec.Index{
		Versioned: specs.Versioned{SchemaVersion: 2},
		MediaType: mediaTypeManifestList,
		Manifests: entries,
	}))

	return entries
}

// Returns how many requests of a kind ("token", "manifest", "blob") were
// served.
func (r *Registry) Hits(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits[kind]
}

// Returns the Accept values of the last request to path.
func (r *Registry) Accept(path string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accept[path]
}

func (r *Registry) serve(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path == "/token" {
		r.serveToken(w, req)
		return
	}

	rest, ok := strings.CutPrefix(req.URL.Path, "/v2/")
	if !ok {
		http.NotFound(w, req)
		return
	}

	r.mu.Lock()
	r.accept[req.URL.Path] = req.Header.Values("Accept")
	r.mu.Unlock()

	if r.Token != "" && req.Header.Get("Authorization") != "Bearer "+r.Token {
		repoPath, _, _ := strings.Cut(rest, "/manifests/")
		w.Header().Set("WWW-Authenticate", fmt.Sprintf(
			`Bearer realm="%s/token",service="%s",scope="repository:%s:pull"`, r.URL, Service, repoPath))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if repoPath, ref, ok := strings.Cut(rest, "/manifests/"); ok {
		r.serveManifest(w, repoPath, ref)
		return
	}
	if _, d, ok := strings.Cut(rest, "/blobs/"); ok {
		r.serveBlob(w, d)
		return
	}
	http.NotFound(w, req)
}

func (r *Registry) serveToken(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	r.hits["token"]++
	r.mu.Unlock()

	if req.Header.Get("Authorization") != "" {
		http.Error(w, "token requests must be anonymous", http.StatusBadRequest)
		return
	}
	if req.URL.Query().Get("service") != Service {
		http.Error(w, "unknown service", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": r.Token})
}

func (r *Registry) serveManifest(w http.ResponseWriter, repoPath, ref string) {
	r.mu.Lock()
	r.hits["manifest"]++
	doc, ok := r.docs[repoPath+"@"+ref]
	r.mu.Unlock()

	if !ok {
		http.Error(w, "manifest unknown", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", doc.mediaType)
	w.Write(doc.body)
}

func (r *Registry) serveBlob(w http.ResponseWriter, d string) {
	r.mu.Lock()
	r.hits["blob"]++
	data, ok := r.blobs[d]
	r.mu.Unlock()

	if !ok {
		http.Error(w, "blob unknown", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

// Marshals v or panics.
func MustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
