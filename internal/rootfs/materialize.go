package rootfs

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sys/unix"
)

// Directory whose mode and times are applied after all entries are written.
type pendingDir struct {
	path    string
	mode    fs.FileMode
	modTime time.Time
}

// Unpacks a gzip-compressed tar stream into dest.
//
// The destination is created if needed. Directories receive their final
// mode and modification time only after every entry has been written, so
// read-only directories do not block their own contents. Running against a
// non-empty destination overwrites entries of the same name.
func Materialize(r io.Reader, dest string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMaterialize, err)
	}
	defer gz.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrMaterialize, err)
	}

	var dirs []pendingDir
	var entries int

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: read archive: %w", ErrMaterialize, err)
		}

		target := filepath.Join(dest, hdr.Name)

		if hdr.Typeflag == tar.TypeDir {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrMaterialize, hdr.Name, err)
			}
			dirs = append(dirs, pendingDir{path: target, mode: hdr.FileInfo().Mode().Perm(), modTime: hdr.ModTime})
			entries++
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMaterialize, hdr.Name, err)
		}

		written, err := writeEntry(tr, hdr, dest, target)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMaterialize, hdr.Name, err)
		}
		if written {
			entries++
		}
	}

	// Deepest directories first so parents are still writable.
	for i := len(dirs) - 1; i >= 0; i-- {
		d := dirs[i]
		if err := os.Chmod(d.path, d.mode); err != nil {
			return fmt.Errorf("%w: %w", ErrMaterialize, err)
		}
		if err := os.Chtimes(d.path, d.modTime, d.modTime); err != nil {
			return fmt.Errorf("%w: %w", ErrMaterialize, err)
		}
	}

	slog.Debug("layer materialized", "dest", dest, "entries", entries)
	return nil
}

// Writes a single non-directory entry. Returns false for entry types that
// are skipped.
func writeEntry(tr *tar.Reader, hdr *tar.Header, dest, target string) (bool, error) {
	switch hdr.Typeflag {
	case tar.TypeReg:
		return true, writeFile(tr, hdr, target)

	case tar.TypeSymlink:
		if err := replace(target); err != nil {
			return false, err
		}
		return true, os.Symlink(hdr.Linkname, target)

	case tar.TypeLink:
		if err := replace(target); err != nil {
			return false, err
		}
		return true, os.Link(filepath.Join(dest, hdr.Linkname), target)

	case tar.TypeFifo:
		if err := replace(target); err != nil {
			return false, err
		}
		return true, unix.Mkfifo(target, uint32(hdr.FileInfo().Mode().Perm()))

	case tar.TypeChar, tar.TypeBlock:
		slog.Debug("skipping device node", "name", hdr.Name)
		return false, nil

	default:
		slog.Debug("skipping unsupported entry", "name", hdr.Name, "type", string(hdr.Typeflag))
		return false, nil
	}
}

// Writes a regular file with the entry's mode and modification time.
func writeFile(r io.Reader, hdr *tar.Header, target string) error {
	if err := replace(target); err != nil {
		return err
	}

	mode := hdr.FileInfo().Mode()

	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	// The umask applies at creation; setuid and friends are not part of Perm.
	if err := os.Chmod(target, mode&(fs.ModePerm|fs.ModeSetuid|fs.ModeSetgid|fs.ModeSticky)); err != nil {
		return err
	}

	return os.Chtimes(target, hdr.ModTime, hdr.ModTime)
}

// Removes a non-directory entry at target so it can be recreated.
func replace(target string) error {
	info, err := os.Lstat(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", target)
	}
	return os.Remove(target)
}
