package sync

import (
	"path"
	"strings"
)

// Excluder matches slash-separated relative paths against glob patterns.
// Patterns support:
//   - Simple glob patterns on the base name: *.tmp, ~$*
//   - Folder patterns: .git/, Archive/
//   - Path patterns: build/*, **/drafts/*
type Excluder struct {
	patterns []string
}

// NewExcluder drops empty patterns and normalizes separators
func NewExcluder(patterns []string) *Excluder {
	e := &Excluder{}
	for _, p := range patterns {
		p = strings.TrimSpace(strings.ReplaceAll(p, `\`, "/"))
		if p != "" {
			e.patterns = append(e.patterns, p)
		}
	}
	return e
}

// Match reports whether relativePath is excluded. Folder patterns only
// match folders; an excluded folder is never descended into.
func (e *Excluder) Match(relativePath string, isDir bool) bool {
	if e == nil || len(e.patterns) == 0 || relativePath == "" {
		return false
	}
	baseName := path.Base(relativePath)

	for _, pattern := range e.patterns {
		if strings.HasSuffix(pattern, "/") {
			if !isDir {
				continue
			}
			dirPattern := strings.TrimSuffix(pattern, "/")
			if matchGlob(relativePath, dirPattern) || matchGlob(baseName, dirPattern) {
				return true
			}
			continue
		}

		// **/pattern matches at any depth
		if suffix, ok := strings.CutPrefix(pattern, "**/"); ok {
			if matchGlob(baseName, suffix) || matchSuffix(relativePath, suffix) {
				return true
			}
			continue
		}

		if strings.Contains(pattern, "/") {
			if matchGlob(relativePath, pattern) || matchSuffix(relativePath, pattern) {
				return true
			}
			continue
		}

		if matchGlob(baseName, pattern) {
			return true
		}
	}

	return false
}

// matchGlob performs glob matching; malformed patterns never match
func matchGlob(name, pattern string) bool {
	matched, _ := path.Match(pattern, name)
	return matched
}

// matchSuffix tries pattern against every trailing run of path components
func matchSuffix(p, pattern string) bool {
	parts := strings.Split(p, "/")
	depth := strings.Count(pattern, "/") + 1
	if depth > len(parts) {
		return false
	}
	for i := 0; i+depth <= len(parts); i++ {
		if matchGlob(strings.Join(parts[i:i+depth], "/"), pattern) {
			return true
		}
	}
	return false
}
