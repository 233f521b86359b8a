package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/google/go-cmp/cmp"
	"github.com/opencontainers/go-digest"
	"github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/cruciblehq/crate/internal/registry/registrytest"
)

func establish(t *testing.T, reg *registrytest.Registry, repository, tag string) *Session {
	t.Helper()

	s, err := Establish(context.Background(), Options{
		BaseURL:   reg.URL,
		Namespace: DefaultNamespace,
		UserAgent: "crate/test",
	}, repository, tag)
	if err != nil {
		t.Fatalf("Establish() error: %v", err)
	}
	return s
}

func TestEstablishInvalidURL(t *testing.T) {
	for _, base := range []string{"", "registry.example", "://bad", "/v2/"} {
		t.Run(base, func(t *testing.T) {
			_, err := Establish(context.Background(), Options{BaseURL: base}, "alpine", "latest")
			if !errors.Is(err, ErrInvalidURL) {
				t.Fatalf("Establish(%q) error = %v, want ErrInvalidURL", base, err)
			}
		})
	}
}

func TestEstablishAuthenticated(t *testing.T) {
	reg := registrytest.New(t, "tok")
	reg.PutImage("library/alpine", "latest", []byte("layer"))

	s := establish(t, reg, "alpine", "latest")

	token, ok := s.Token()
	if !ok || token != "tok" {
		t.Fatalf("Token() = %q, %v, want %q, true", token, ok, "tok")
	}
	if want := reg.URL + "/v2/library/alpine/"; s.APIURL() != want {
		t.Fatalf("APIURL() = %q, want %q", s.APIURL(), want)
	}
}

func TestEstablishAnonymousUnknownTag(t *testing.T) {
	reg := registrytest.New(t, "")

	_, err := Establish(context.Background(), Options{BaseURL: reg.URL, Namespace: DefaultNamespace}, "alpine", "missing")
	if !errors.Is(err, ErrUnhandledStatusCode) {
		t.Fatalf("error = %v, want ErrUnhandledStatusCode", err)
	}
	if !errdefs.IsNotFound(err) {
		t.Fatalf("error = %v, want not found", err)
	}
}

func TestEstablishAnonymous(t *testing.T) {
	reg := registrytest.New(t, "")
	reg.PutImage("library/alpine", "latest", []byte("layer"))

	s := establish(t, reg, "alpine", "latest")

	if token, ok := s.Token(); ok || token != "" {
		t.Fatalf("Token() = %q, %v, want anonymous", token, ok)
	}
	if got := reg.Hits("token"); got != 0 {
		t.Fatalf("token hits = %d, want 0", got)
	}
}

func TestListPlatformManifests(t *testing.T) {
	reg := registrytest.New(t, "tok")
	want := reg.PutImage("library/alpine", "3.20", []byte("layer"))

	s := establish(t, reg, "alpine", "3.20")

	got, err := s.ListPlatformManifests(context.Background())
	if err != nil {
		t.Fatalf("ListPlatformManifests() error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ListPlatformManifests() mismatch (-want +got):\n%s", diff)
	}

	accept := reg.Accept("/v2/library/alpine/manifests/3.20")
	if len(accept) == 0 || accept[0] != MediaTypeManifestList {
		t.Fatalf("Accept = %v, want %q first", accept, MediaTypeManifestList)
	}
}

func TestListPlatformManifestsUnknownTag(t *testing.T) {
	reg := registrytest.New(t, "tok")
	s := establish(t, reg, "alpine", "missing")

	_, err := s.ListPlatformManifests(context.Background())
	if !errors.Is(err, ErrHTTP) {
		t.Fatalf("error = %v, want ErrHTTP", err)
	}
	if !errdefs.IsNotFound(err) {
		t.Fatalf("error = %v, want not found", err)
	}
}

func TestReadImageManifest(t *testing.T) {
	reg := registrytest.New(t, "tok")
	entries := reg.PutImage("library/alpine", "latest", []byte("one"), []byte("two"))

	s := establish(t, reg, "alpine", "latest")

	m, err := s.ReadImageManifest(context.Background(), entries[1])
	if err != nil {
		t.Fatalf("ReadImageManifest() error: %v", err)
	}
	if len(m.Layers) != 2 {
		t.Fatalf("len(Layers) = %d, want 2", len(m.Layers))
	}
	if m.Annotations["test.arch"] != "amd64" {
		t.Fatalf("read manifest for %q, want amd64", m.Annotations["test.arch"])
	}

	accept := reg.Accept("/v2/library/alpine/manifests/" + entries[1].Digest.String())
	if diff := cmp.Diff([]string{MediaTypeManifest}, accept); diff != "" {
		t.Fatalf("Accept mismatch (-want +got):\n%s", diff)
	}
}

func TestReadImageManifestContract(t *testing.T) {
	tests := []struct {
		name     string
		manifest ocispec.Manifest
		want     error
	}{
		{
			name:     "schema version 1",
			manifest: ocispec.Manifest{Versioned: specs.Versioned{SchemaVersion: 1}, MediaType: MediaTypeManifest},
			want:     ErrInvalidSchemaVersion,
		},
		{
			name:     "missing schema version",
			manifest: ocispec.Manifest{MediaType: MediaTypeManifest},
			want:     ErrInvalidSchemaVersion,
		},
		{
			name:     "different media type",
			manifest: ocispec.Manifest{Versioned: specs.Versioned{SchemaVersion: 2}, MediaType: ocispec.MediaTypeImageManifest},
			want:     ErrMediaTypeMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := registrytest.New(t, "tok")
			body := registrytest.MustJSON(tt.manifest)
			d := digest.FromBytes(body)
			reg.PutManifest("library/alpine", d.String(), MediaTypeManifest, body)

			s := establish(t, reg, "alpine", "latest")

			_, err := s.ReadImageManifest(context.Background(), ocispec.Descriptor{MediaType: MediaTypeManifest, Digest: d})
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, ErrManifest) {
				t.Fatalf("error = %v does not match ErrManifest", err)
			}
		})
	}
}

func TestReadBlob(t *testing.T) {
	reg := registrytest.New(t, "tok")
	desc := reg.PutBlob(MediaTypeLayerGzip, []byte("layer bytes"))

	s := establish(t, reg, "alpine", "latest")

	data, err := s.ReadBlob(context.Background(), desc)
	if err != nil {
		t.Fatalf("ReadBlob() error: %v", err)
	}
	if string(data) != "layer bytes" {
		t.Fatalf("ReadBlob() = %q, want %q", data, "layer bytes")
	}
	if err := Verify(desc, data); err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
}

func TestReadBlobMissing(t *testing.T) {
	reg := registrytest.New(t, "tok")
	s := establish(t, reg, "alpine", "latest")

	_, err := s.ReadBlob(context.Background(), ocispec.Descriptor{Digest: digest.FromString("absent")})
	if !errdefs.IsNotFound(err) {
		t.Fatalf("error = %v, want not found", err)
	}
}

func TestRepositoryPath(t *testing.T) {
	tests := []struct {
		namespace  string
		repository string
		want       string
	}{
		{"library", "alpine", "library/alpine"},
		{"library", "org/app", "org/app"},
		{"", "alpine", "alpine"},
		{"mirror", "ubuntu", "mirror/ubuntu"},
	}

	for _, tt := range tests {
		if got := repositoryPath(tt.namespace, tt.repository); got != tt.want {
			t.Errorf("repositoryPath(%q, %q) = %q, want %q", tt.namespace, tt.repository, got, tt.want)
		}
	}
}
