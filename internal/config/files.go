package config

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/robert-at-pretension-io/hdlgen/internal/design"
)

// ResolveSources expands the source globs against rootPath and returns the
// design documents found, sorted
func (c *Config) ResolveSources(rootPath string) ([]string, error) {
	fileSet := make(map[string]bool)
	for _, pattern := range c.Sources.Files {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(rootPath, pattern)
		}

		matches, err := expandGlob(pattern)
		if err != nil {
			// Silently skip invalid patterns
			continue
		}

		for _, match := range matches {
			if design.IsDesignFile(match) {
				fileSet[match] = true
			}
		}
	}

	for _, pattern := range c.Sources.Exclude {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(rootPath, pattern)
		}

		matches, err := expandGlob(pattern)
		if err != nil {
			continue
		}

		for _, match := range matches {
			delete(fileSet, match)
		}
	}

	result := make([]string, 0, len(fileSet))
	for f := range fileSet {
		result = append(result, f)
	}
	sort.Strings(result)

	return result, nil
}

// expandGlob expands a glob pattern; a ** segment matches any number of
// directories
func expandGlob(pattern string) ([]string, error) {
	if !strings.Contains(pattern, "**") {
		return filepath.Glob(pattern)
	}
	return walkGlob(pattern)
}

// walkGlob walks the tree under the part of the pattern before ** and
// matches the rest against each file. Hidden directories are skipped so the
// cache and VCS metadata are never scanned.
func walkGlob(pattern string) ([]string, error) {
	prefix, rest, _ := strings.Cut(pattern, "**")
	root := filepath.Clean(prefix)
	rest = strings.TrimLeft(rest, string(filepath.Separator))

	var results []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() {
			if path != root && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if rest == "" || matchSuffix(rel, rest) {
			results = append(results, path)
		}
		return nil
	})
	return results, err
}

// matchSuffix matches the part of a pattern after ** against a path relative
// to the walk root. Patterns without a separator match the base name.
func matchSuffix(rel, pattern string) bool {
	if !strings.Contains(pattern, string(filepath.Separator)) {
		matched, _ := filepath.Match(pattern, filepath.Base(rel))
		return matched
	}
	parts := strings.Split(rel, string(filepath.Separator))
	depth := strings.Count(pattern, string(filepath.Separator)) + 1
	if len(parts) < depth {
		return false
	}
	tail := filepath.Join(parts[len(parts)-depth:]...)
	matched, _ := filepath.Match(pattern, tail)
	return matched
}
