package registry

import (
	"errors"
	"testing"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

func TestVerify(t *testing.T) {
	data := []byte("hello")
	good := digest.FromBytes(data)

	tests := []struct {
		name    string
		desc    ocispec.Descriptor
		wantErr bool
	}{
		{"match", ocispec.Descriptor{Digest: good, Size: 5}, false},
		{"size unknown", ocispec.Descriptor{Digest: good}, false},
		{"wrong size", ocispec.Descriptor{Digest: good, Size: 6}, true},
		{"wrong digest", ocispec.Descriptor{Digest: digest.FromString("other"), Size: 5}, true},
		{"malformed digest", ocispec.Descriptor{Digest: "sha256:xyz"}, true},
		{"empty digest", ocispec.Descriptor{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(tt.desc, data)
			if tt.wantErr {
				if !errors.Is(err, ErrDigestMismatch) {
					t.Fatalf("Verify() error = %v, want ErrDigestMismatch", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
