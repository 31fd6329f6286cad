package ingest

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultExcludeDirs are directory names skipped during traversal.
var defaultExcludeDirs = []string{
	".git",
	"node_modules",
	"vendor",
	".pratiko",
	".idea",
	".vscode",
}

func shouldExcludeDir(name string) bool {
	for _, excl := range defaultExcludeDirs {
		if strings.EqualFold(name, excl) {
			return true
		}
	}
	return false
}

// matchesInclude reports whether relPath matches any include pattern. An
// empty pattern list includes everything.
func matchesInclude(relPath string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	return matchesAny(relPath, patterns)
}

// matchesExclude reports whether relPath matches any exclude pattern.
func matchesExclude(relPath string, patterns []string) bool {
	return matchesAny(relPath, patterns)
}

func matchesAny(relPath string, patterns []string) bool {
	normalized := filepath.ToSlash(relPath)
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if matched, err := doublestar.PathMatch(pattern, normalized); err == nil && matched {
			return true
		}
		// Also match against the bare filename so "*.md" works at any depth.
		if matched, err := doublestar.PathMatch(pattern, filepath.Base(normalized)); err == nil && matched {
			return true
		}
	}
	return false
}
