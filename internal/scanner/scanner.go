// Package scanner handles video discovery for vidnum.
package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"vidnum/internal/matcher"
)

// DefaultExtension is the video extension scanned for when none is configured.
const DefaultExtension = "mkv"

// ScanErrorType represents the type of scanning error.
type ScanErrorType string

const (
	// DirectoryNotFound indicates the root directory does not exist.
	DirectoryNotFound ScanErrorType = "DIRECTORY_NOT_FOUND"
	// NotADirectory indicates the root exists but is not a directory.
	NotADirectory ScanErrorType = "NOT_A_DIRECTORY"
	// PermissionDenied indicates insufficient permissions to read the root.
	PermissionDenied ScanErrorType = "PERMISSION_DENIED"
)

// ScanError represents an error that prevented scanning the root directory.
type ScanError struct {
	Type ScanErrorType
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return string(e.Type) + ": " + e.Path
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// ScanOptions configures scanning behavior.
type ScanOptions struct {
	Extension string           // Extension to match, with or without the leading dot (case-sensitive)
	Exclude   *matcher.Matcher // Directories and files whose name matches are skipped
	OnSkip    func(path string, err error)
}

// DefaultScanOptions returns the default scan options.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		Extension: DefaultExtension,
	}
}

// Scan returns the paths of all regular files under root whose extension equals
// opts.Extension. Symlinks, excluded names and entries that cannot be read are
// skipped. The order of the result is unspecified; a tree without videos
// yields an empty, non-nil slice.
func Scan(fsys afero.Fs, root string, opts ScanOptions) ([]string, error) {
	walkRoot, err := checkRoot(fsys, root)
	if err != nil {
		return nil, err
	}

	ext := strings.TrimPrefix(opts.Extension, ".")
	if ext == "" {
		ext = DefaultExtension
	}

	paths := []string{}
	err = afero.Walk(fsys, walkRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == walkRoot {
				return &ScanError{Type: PermissionDenied, Path: root, Err: err}
			}
			// Unreadable directory or entry: note it and keep walking.
			opts.skip(path, err)
			if info != nil && info.IsDir() && path != walkRoot {
				return filepath.SkipDir
			}
			return nil
		}

		if path == walkRoot {
			return nil
		}

		if opts.Exclude.Match(path) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 {
			opts.skip(path, nil)
			return nil
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		if extensionOf(info.Name()) == ext {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return paths, nil
}

// checkRoot verifies root is a readable directory and returns the path to walk.
// A symlinked root is followed, so the walk starts below the link.
func checkRoot(fsys afero.Fs, root string) (string, error) {
	info, err := fsys.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &ScanError{Type: DirectoryNotFound, Path: root, Err: err}
		}
		if errors.Is(err, os.ErrPermission) {
			return "", &ScanError{Type: PermissionDenied, Path: root, Err: err}
		}
		return "", err
	}
	if !info.IsDir() {
		return "", &ScanError{
			Type: NotADirectory,
			Path: root,
			Err:  errors.New("path is not a directory"),
		}
	}

	if lstater, ok := fsys.(afero.Lstater); ok {
		if linfo, _, err := lstater.LstatIfPossible(root); err == nil && linfo.Mode()&os.ModeSymlink != 0 {
			return root + string(filepath.Separator), nil
		}
	}
	return root, nil
}

// MatchesExtension reports whether name's extension equals ext.
// ext may carry a leading dot; the comparison is case-sensitive.
func MatchesExtension(name, ext string) bool {
	ext = strings.TrimPrefix(ext, ".")
	return ext != "" && extensionOf(filepath.Base(name)) == ext
}

// extensionOf returns the text after the last dot of name.
// Names whose only dot is the leading one (".mkv") have no extension.
func extensionOf(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return ""
	}
	return name[i+1:]
}

func (o ScanOptions) skip(path string, err error) {
	if o.OnSkip != nil {
		o.OnSkip(path, err)
	}
}
