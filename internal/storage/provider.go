// Package storage keeps the persisted registers, author files and inbox
// batches under one data directory.
package storage

import "time"

// FileMeta describes one stored file.
type FileMeta struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for data-directory file operations. Every path
// is relative to the data directory and uses forward slashes.
type Provider interface {
	// List returns the .json files directly inside dir, sorted by name.
	List(dir string) ([]FileMeta, error)
	Read(path string) ([]byte, error)
	// Write replaces path atomically.
	Write(path string, content []byte) error
	Delete(path string) error
	// Move renames oldPath to newPath and fails with fs.ErrExist rather
	// than replace an existing file.
	Move(oldPath, newPath string) error
	// Abs resolves path to an absolute file-system path inside the root.
	Abs(path string) (string, error)
}
