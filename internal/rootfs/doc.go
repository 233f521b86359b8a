// Package rootfs unpacks image layers into a directory tree.
//
// A layer is a gzip-compressed tar stream. [Materialize] writes its entries
// below a destination directory, preserving paths, file modes, modification
// times, symlinks and hard links. Entry names are joined to the destination
// as given; the archive is trusted. Device nodes are skipped because they
// cannot be created without privileges the launcher does not otherwise need.
//
// Example usage:
//
//	if err := rootfs.Materialize(bytes.NewReader(blob), dir); err != nil {
//	    return err
//	}
package rootfs
