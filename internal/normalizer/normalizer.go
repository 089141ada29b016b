// Package normalizer derives the raw filename and sort key used to order videos.
package normalizer

import (
	"errors"
	"path/filepath"
	"regexp"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// ErrNoFilename indicates the path has no final filename component.
	ErrNoFilename = errors.New("path has no filename component")
	// ErrInvalidText indicates the filename is not valid UTF-8.
	ErrInvalidText = errors.New("filename is not valid UTF-8 text")
)

// leadingNumberPattern matches a numeric prefix written by a previous run: 1-3 ASCII digits and an underscore.
var leadingNumberPattern = regexp.MustCompile(`^[0-9]{1,3}_(.*)$`)

// Filename returns the final component of path.
// It fails for paths that have no filename, such as "", ".", ".." or a bare separator.
func Filename(path string) (string, error) {
	if path == "" {
		return "", ErrNoFilename
	}
	name := filepath.Base(path)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "", ErrNoFilename
	}
	if !utf8.ValidString(name) {
		return "", ErrInvalidText
	}
	return name, nil
}

// StripPrefix removes a leading numeric prefix from name.
// Names without a prefix are returned unchanged.
//
// Examples:
//   - "03_b_1.mkv" -> "b_1.mkv"
//   - "1234_x.mkv" -> "1234_x.mkv" (more than three digits)
//   - "abc.mkv"    -> "abc.mkv"
func StripPrefix(name string) string {
	if m := leadingNumberPattern.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return name
}

// RawFilename returns the filename of path with any numeric prefix stripped.
// Case is preserved.
func RawFilename(path string) (string, error) {
	name, err := Filename(path)
	if err != nil {
		return "", err
	}
	return StripPrefix(name), nil
}

// SortKey returns the lowercase form of a raw filename.
// It is only used for ordering and never appears in output.
func SortKey(raw string) string {
	// A Caser keeps state between calls, so each key gets its own.
	return cases.Lower(language.Und).String(raw)
}
