package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo represents metadata about a local file
type FileInfo struct {
	Path        string
	Size        int64
	ModTime     time.Time
	IsDir       bool
	Permissions uint32
}

// Backend defines the local side of a mirror.
// Paths are either relative to the backend root or absolute paths inside it.
type Backend interface {
	// Read opens a file for reading
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Create creates or truncates a file for writing, creating missing parents
	Create(ctx context.Context, path string) (io.WriteCloser, error)

	// Exists checks if a file or directory exists
	Exists(ctx context.Context, path string) (bool, error)

	// Stat returns file metadata
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// MkdirAll creates a directory and all necessary parents
	MkdirAll(ctx context.Context, path string) error

	// Root returns the absolute root path of the backend
	Root() string

	// Close releases any resources held by the backend
	Close() error
}
