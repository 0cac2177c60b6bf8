// Package storage defines the vault file-system port. The matching and
// mutation logic depends only on Provider, so algorithmic tests can run
// against the in-memory implementation.
package storage

import "time"

// FileInfo is lightweight metadata returned by list operations.
type FileInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for vault file operations. All paths are
// relative to the vault root; implementations must reject escapes.
type Provider interface {
	// List returns metadata for every .md file under dir. Entries inside
	// dot-directories (such as .archive) are excluded.
	List(dir string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// Exists reports whether a file is present at path.
	Exists(path string) bool
}
