// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/curator/internal/models"

// Provider is the interface for vault file operations. All paths are
// relative to the vault root.
type Provider interface {
	// List returns metadata for every .md file under dir, skipping hidden directories.
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically and durably replaces the file at path.
	Write(path string, content []byte) error
	// Exists reports whether path exists (file or directory).
	Exists(path string) bool
	// Root returns the absolute vault directory.
	Root() string
}
