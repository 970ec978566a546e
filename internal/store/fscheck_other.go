//go:build !darwin && !linux

package store

// Filesystem detection is unsupported here; an empty type passes the
// network-filesystem check.
func detectFilesystemType(path string) (string, error) {
	return "", nil
}
