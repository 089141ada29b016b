// Package mapper computes the rename mapping for a set of discovered videos.
//
// The mapping is a pure function of its input: paths are ordered by the
// case-insensitive, prefix-stripped filename and renumbered from 1 with a
// zero-padded prefix. Every input path maps to exactly one new name and no two
// paths share a new name; any violation is returned as an error rather than
// producing a partial mapping.
package mapper

import (
	"errors"
	"fmt"
	"sort"

	"vidnum/internal/normalizer"
)

// Default policy limits.
const (
	DefaultMaxFiles      = 1000
	DefaultWideThreshold = 100
)

// MapErrorType represents the type of mapping error.
type MapErrorType string

const (
	// TooManyFiles indicates the input reached the scale guard.
	TooManyFiles MapErrorType = "TOO_MANY_FILES"
	// MalformedPath indicates a path has no usable filename.
	MalformedPath MapErrorType = "MALFORMED_PATH"
	// Collision indicates two entries would share a path or a new name.
	Collision MapErrorType = "COLLISION"
)

// MapError represents an error that occurred while building a mapping.
type MapError struct {
	Type  MapErrorType
	Path  string
	Count int // Number of inputs (TooManyFiles)
	Limit int // Scale guard in effect (TooManyFiles)
	Err   error
}

func (e *MapError) Error() string {
	switch e.Type {
	case TooManyFiles:
		return fmt.Sprintf("%s: found %d videos, refusing to rename %d or more", e.Type, e.Count, e.Limit)
	case MalformedPath, Collision:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s (%v)", e.Type, e.Path, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Type, e.Path)
	default:
		return string(e.Type)
	}
}

func (e *MapError) Unwrap() error {
	return e.Err
}

// Options configures the mapping policy.
type Options struct {
	MaxFiles      int // Inputs of this size or larger are rejected
	WideThreshold int // Inputs of this size or larger get 3-digit prefixes
}

// DefaultOptions returns the default mapping policy.
func DefaultOptions() Options {
	return Options{
		MaxFiles:      DefaultMaxFiles,
		WideThreshold: DefaultWideThreshold,
	}
}

// withDefaults fills zero fields with the default policy.
func (o Options) withDefaults() Options {
	if o.MaxFiles <= 0 {
		o.MaxFiles = DefaultMaxFiles
	}
	if o.WideThreshold <= 0 {
		o.WideThreshold = DefaultWideThreshold
	}
	return o
}

// Entry is one row of a mapping.
type Entry struct {
	Path    string // Original path as supplied
	RawName string // Filename without numeric prefix
	SortKey string // Lowercase RawName
	Index   int    // 1-based position in sorted order
	NewName string // New filename, same parent directory
}

// Mapping is a bijection from original paths to new filenames.
type Mapping struct {
	entries []Entry
	byPath  map[string]int
	width   int
}

// Entries returns the entries in sorted (index) order.
func (m *Mapping) Entries() []Entry {
	result := make([]Entry, len(m.entries))
	copy(result, m.entries)
	return result
}

// Len returns the number of entries.
func (m *Mapping) Len() int {
	return len(m.entries)
}

// Width returns the number of digits used for prefixes.
func (m *Mapping) Width() int {
	return m.width
}

// NewName returns the new filename for path.
func (m *Mapping) NewName(path string) (string, bool) {
	i, ok := m.byPath[path]
	if !ok {
		return "", false
	}
	return m.entries[i].NewName, true
}

// AsMap returns the mapping as a plain map from path to new filename.
func (m *Mapping) AsMap() map[string]string {
	result := make(map[string]string, len(m.entries))
	for _, e := range m.entries {
		result[e.Path] = e.NewName
	}
	return result
}

// Width returns the prefix width for a collection of size n.
func Width(n, wideThreshold int) int {
	if n < wideThreshold {
		return 2
	}
	return 3
}

// Build computes the mapping for paths.
func Build(paths []string, opts Options) (*Mapping, error) {
	opts = opts.withDefaults()
	if len(paths) >= opts.MaxFiles {
		return nil, &MapError{Type: TooManyFiles, Count: len(paths), Limit: opts.MaxFiles}
	}

	entries := make([]Entry, 0, len(paths))
	for _, p := range paths {
		raw, err := normalizer.RawFilename(p)
		if err != nil {
			return nil, &MapError{Type: MalformedPath, Path: p, Err: err}
		}
		entries = append(entries, Entry{
			Path:    p,
			RawName: raw,
			SortKey: normalizer.SortKey(raw),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].SortKey < entries[j].SortKey
	})

	width := Width(len(entries), opts.WideThreshold)
	m := &Mapping{
		entries: entries,
		byPath:  make(map[string]int, len(entries)),
		width:   width,
	}
	names := make(map[string]string, len(entries))

	for i := range entries {
		e := &entries[i]
		e.Index = i + 1
		e.NewName = fmt.Sprintf("%0*d_%s", width, e.Index, e.RawName)

		if _, dup := m.byPath[e.Path]; dup {
			return nil, &MapError{Type: Collision, Path: e.Path, Err: errors.New("path supplied more than once")}
		}
		if other, dup := names[e.NewName]; dup {
			return nil, &MapError{Type: Collision, Path: e.Path, Err: fmt.Errorf("new name %q already assigned to %s", e.NewName, other)}
		}
		m.byPath[e.Path] = i
		names[e.NewName] = e.Path
	}

	return m, nil
}

// Map computes the mapping for paths and returns it as a plain map.
func Map(paths []string, opts Options) (map[string]string, error) {
	m, err := Build(paths, opts)
	if err != nil {
		return nil, err
	}
	return m.AsMap(), nil
}
