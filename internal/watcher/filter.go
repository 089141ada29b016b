package watcher

import (
	"path/filepath"
	"strings"

	"vidnum/internal/matcher"
	"vidnum/internal/renamer"
	"vidnum/internal/scanner"
)

// Filter decides which filesystem events can change the numbering.
type Filter struct {
	root    string
	ext     string
	exclude *matcher.Matcher
}

// NewFilter creates a Filter for videos with extension ext under root.
// Event paths are absolute, so a relative root is resolved first.
func NewFilter(root, ext string, exclude *matcher.Matcher) *Filter {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Filter{
		root:    filepath.Clean(root),
		ext:     ext,
		exclude: exclude,
	}
}

// Relevant reports whether path is a video the scanner would pick up.
// Temporary names used while breaking rename cycles are never relevant.
func (f *Filter) Relevant(path string) bool {
	if renamer.IsTemp(path) {
		return false
	}
	if !scanner.MatchesExtension(path, f.ext) {
		return false
	}
	return !f.Excluded(path)
}

// Excluded reports whether path or any directory between root and path matches
// an exclude pattern.
func (f *Filter) Excluded(path string) bool {
	rel, err := filepath.Rel(f.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return f.exclude.Match(path)
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if f.exclude.Match(part) {
			return true
		}
	}
	return false
}
