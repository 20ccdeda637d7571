package platform

import (
	"path/filepath"
	"runtime"
	"strings"
)

// NormalizePath normalizes a local path for the current platform
func NormalizePath(path string) string {
	normalized := filepath.Clean(path)

	// On Windows, ensure UNC paths are preserved
	if runtime.GOOS == "windows" {
		if strings.HasPrefix(path, "\\\\") && !strings.HasPrefix(normalized, "\\\\") {
			normalized = "\\\\" + normalized
		}
	}

	return normalized
}

// IsUNCPath checks if a path is a UNC path (Windows network share)
func IsUNCPath(path string) bool {
	if runtime.GOOS != "windows" {
		return false
	}
	return strings.HasPrefix(path, "\\\\") || strings.HasPrefix(path, "//")
}

// SafeName turns a remote entry name into a single local path element.
// Remote stores allow separators and dot names that would otherwise add
// or climb directory levels under the mirror root.
func SafeName(name string) string {
	switch name {
	case "":
		return "_"
	case ".":
		return "_"
	case "..":
		return "__"
	}

	replacer := strings.NewReplacer("/", "_", "\\", "_", "\x00", "_")
	safe := replacer.Replace(name)

	if runtime.GOOS == "windows" {
		for _, char := range []string{"<", ">", ":", "\"", "|", "?", "*"} {
			safe = strings.ReplaceAll(safe, char, "_")
		}
	}

	return safe
}

// ChildPath returns the local path of a remote child under dir
func ChildPath(dir, name string) string {
	return filepath.Join(dir, SafeName(name))
}

// JoinRemote extends a slash-separated remote path with one more name
func JoinRemote(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// ValidatePath checks if a path is valid for the current platform
func ValidatePath(path string) error {
	if path == "" {
		return &PathError{Path: path, Message: "path is empty"}
	}

	if runtime.GOOS == "windows" {
		invalidChars := []string{"<", ">", "\"", "|", "?", "*"}
		for _, char := range invalidChars {
			if strings.Contains(path, char) && !IsUNCPath(path) {
				return &PathError{Path: path, Message: "path contains invalid character: " + char}
			}
		}
	}

	return nil
}

// PathError represents a path validation error
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return "invalid path '" + e.Path + "': " + e.Message
}
