package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Local is a filesystem-based storage backend
type Local struct {
	fs       afero.Fs
	rootPath string
}

// NewLocal creates a local backend on the OS filesystem
func NewLocal(rootPath string) (*Local, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	return NewLocalFs(afero.NewOsFs(), absPath)
}

// NewLocalFs creates a local backend on any afero filesystem.
// The root does not have to exist yet; it is created on the first write.
func NewLocalFs(fs afero.Fs, rootPath string) (*Local, error) {
	root := filepath.Clean(rootPath)

	info, err := fs.Stat(root)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}
	if err == nil && !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", root)
	}

	return &Local{fs: fs, rootPath: root}, nil
}

// Root returns the backend root path
func (l *Local) Root() string {
	return l.rootPath
}

// Fs exposes the underlying filesystem
func (l *Local) Fs() afero.Fs {
	return l.fs
}

// resolve maps a path onto the backend and refuses anything outside the root
func (l *Local) resolve(path string) (string, error) {
	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(l.rootPath, path)
	}
	fullPath = filepath.Clean(fullPath)

	rel, err := filepath.Rel(l.rootPath, fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside of %s", path, l.rootPath)
	}
	return fullPath, nil
}

// Read opens a file for reading
func (l *Local) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	fullPath, err := l.resolve(path)
	if err != nil {
		return nil, err
	}

	file, err := l.fs.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Create creates or truncates a file, creating parent directories first
func (l *Local) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	fullPath, err := l.resolve(path)
	if err != nil {
		return nil, err
	}

	if err := l.fs.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := l.fs.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return file, nil
}

// Exists checks if a file or directory exists
func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	fullPath, err := l.resolve(path)
	if err != nil {
		return false, err
	}

	ok, err := afero.Exists(l.fs, fullPath)
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return ok, nil
}

// Stat returns file metadata
func (l *Local) Stat(ctx context.Context, path string) (*FileInfo, error) {
	fullPath, err := l.resolve(path)
	if err != nil {
		return nil, err
	}

	info, err := l.fs.Stat(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return &FileInfo{
		Path:        fullPath,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		IsDir:       info.IsDir(),
		Permissions: uint32(info.Mode().Perm()),
	}, nil
}

// MkdirAll creates a directory and all necessary parents
func (l *Local) MkdirAll(ctx context.Context, path string) error {
	fullPath, err := l.resolve(path)
	if err != nil {
		return err
	}

	if err := l.fs.MkdirAll(fullPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return nil
}

// Close releases resources (no-op for local filesystem)
func (l *Local) Close() error {
	return nil
}
