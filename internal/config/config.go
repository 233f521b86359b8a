package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"

	"github.com/containerd/platforms"
	specs "github.com/opencontainers/runtime-spec/specs-go"
	"gopkg.in/yaml.v3"

	"github.com/cruciblehq/crate/internal/paths"
	"github.com/cruciblehq/crate/internal/registry"
	"github.com/cruciblehq/crate/internal/sandbox"
)

// Default registry endpoint.
const DefaultRegistryURL = "https://registry.hub.docker.com"

// Registry endpoint settings.
type Registry struct {
	URL       string `yaml:"url"`       // Registry root URL.
	Namespace string `yaml:"namespace"` // Prefix for single-component repository names.
}

// Launcher settings.
type Config struct {
	Registry      Registry `yaml:"registry"`
	Platform      string   `yaml:"platform"`       // Platform images are resolved for.
	Retries       uint64   `yaml:"retries"`        // Additional fetch attempts on transient failures.
	VerifyDigests bool     `yaml:"verify_digests"` // Check layer digests before unpacking.
	ScratchDir    string   `yaml:"scratch_dir"`    // Parent directory of per-run roots.
	Namespaces    []string `yaml:"namespaces"`     // Namespaces the child is created in.
	KeepRoot      bool     `yaml:"keep_root"`      // Keep roots after the child exits.
}

// Returns the built-in configuration.
func Default() *Config {
	var namespaces []string
	for _, ns := range sandbox.DefaultNamespaces() {
		namespaces = append(namespaces, string(ns))
	}

	return &Config{
		Registry: Registry{
			URL:       DefaultRegistryURL,
			Namespace: registry.DefaultNamespace,
		},
		Platform:      "linux/amd64",
		Retries:       0,
		VerifyDigests: true,
		ScratchDir:    paths.Scratch(),
		Namespaces:    namespaces,
		KeepRoot:      false,
	}
}

// Loads the configuration file at path over the defaults and validates the
// result.
//
// An empty path selects the default location, which may be absent. An
// explicit path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = paths.ConfigFile()
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrConfig, path, err)
		}
		slog.Debug("configuration loaded", "path", path)

	case errors.Is(err, fs.ErrNotExist) && !explicit:
		slog.Debug("no configuration file, using defaults", "path", path)

	default:
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Overlays YAML data onto the configuration.
func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Checks the configuration for values the launcher cannot use.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Registry.URL)
	if err != nil {
		return fmt.Errorf("%w: registry.url: %w", ErrConfig, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: registry.url: %q is not an absolute http(s) URL", ErrConfig, c.Registry.URL)
	}

	if _, err := platforms.Parse(c.Platform); err != nil {
		return fmt.Errorf("%w: platform: %w", ErrConfig, err)
	}

	if c.ScratchDir == "" {
		return fmt.Errorf("%w: scratch_dir is empty", ErrConfig)
	}

	if _, err := c.NamespaceTypes(); err != nil {
		return err
	}

	return nil
}

// Returns the configured namespaces as namespace types.
func (c *Config) NamespaceTypes() ([]specs.LinuxNamespaceType, error) {
	if len(c.Namespaces) == 0 {
		return nil, fmt.Errorf("%w: namespaces: at least one namespace is required", ErrConfig)
	}

	types, err := sandbox.ParseNamespaces(c.Namespaces)
	if err != nil {
		return nil, fmt.Errorf("%w: namespaces: %w", ErrConfig, err)
	}
	return types, nil
}
