package paths

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigFile(t *testing.T) {
	got := ConfigFile()
	if filepath.Base(got) != "config.yaml" {
		t.Fatalf("ConfigFile() = %q, want config.yaml", got)
	}
	if filepath.Dir(got) != Config() {
		t.Fatalf("ConfigFile() = %q, not under %q", got, Config())
	}
	if filepath.Base(Config()) != "crate" {
		t.Fatalf("Config() = %q, want crate subdirectory", Config())
	}
}

func TestScratch(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TMPDIR", dir)

	got := Scratch()
	if want := filepath.Join(dir, "crate"); got != want {
		t.Fatalf("Scratch() = %q, want %q", got, want)
	}
	if !strings.HasPrefix(got, dir) {
		t.Fatalf("Scratch() = %q, not under TMPDIR", got)
	}
}
