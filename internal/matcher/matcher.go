// Package matcher handles exclude-pattern matching for vidnum.
package matcher

import (
	"fmt"
	"path/filepath"

	"github.com/gobwas/glob"
)

// PatternError represents an exclude pattern that failed to compile.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid exclude pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// Matcher matches file and directory base names against glob patterns.
// A nil Matcher matches nothing.
type Matcher struct {
	patterns []string
	globs    []glob.Glob
}

// New compiles patterns into a Matcher.
// Patterns use gobwas/glob syntax: *, ?, [abc], [a-z] and {a,b}.
func New(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, &PatternError{Pattern: p, Err: err}
		}
		m.patterns = append(m.patterns, p)
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Match reports whether the base name of path matches any pattern.
func (m *Matcher) Match(path string) bool {
	if m == nil {
		return false
	}
	name := filepath.Base(path)
	for _, g := range m.globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Patterns returns the compiled patterns.
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	result := make([]string, len(m.patterns))
	copy(result, m.patterns)
	return result
}
