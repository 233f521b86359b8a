package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	appName = "crate"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Path to the directory holding the configuration file.
//
//	Linux:   $XDG_CONFIG_HOME/crate or ~/.config/crate
//	macOS:   ~/Library/Application Support/crate
func Config() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// Default path to the configuration file.
//
//	Linux:   $XDG_CONFIG_HOME/crate/config.yaml
//	macOS:   ~/Library/Application Support/crate/config.yaml
func ConfigFile() string {
	return filepath.Join(Config(), "config.yaml")
}

// Default parent directory for per-run sandbox roots.
//
// Roots only live for the duration of a run.
//
//	Linux:   $TMPDIR/crate or /tmp/crate
func Scratch() string {
	return filepath.Join(os.TempDir(), appName)
}
