// Package renamer applies a rename mapping to the filesystem for vidnum.
package renamer

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// RenameErrorType represents the type of rename error.
type RenameErrorType string

const (
	// SourceNotFound indicates the file to rename no longer exists.
	SourceNotFound RenameErrorType = "SOURCE_NOT_FOUND"
	// DestinationExists indicates a file already exists at the new path.
	DestinationExists RenameErrorType = "DESTINATION_EXISTS"
	// PermissionDenied indicates insufficient permissions for the rename.
	PermissionDenied RenameErrorType = "PERMISSION_DENIED"
	// CrossDevice indicates the rename would cross filesystems.
	CrossDevice RenameErrorType = "CROSS_DEVICE"
	// RenameFailed indicates any other failure of the rename call.
	RenameFailed RenameErrorType = "RENAME_FAILED"
)

// RenameError represents an error that occurred while renaming a file.
type RenameError struct {
	Type RenameErrorType
	Path string
	Dest string
	Err  error
}

func (e *RenameError) Error() string {
	target := e.Path
	if e.Dest != "" {
		target = fmt.Sprintf("%s -> %s", e.Path, e.Dest)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, target, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, target)
}

func (e *RenameError) Unwrap() error {
	return e.Err
}

// Op is one logical rename from an original path to its new path.
type Op struct {
	From string
	To   string
}

// Step is one physical rename. An Op maps to one Step, or to two when it has
// to pass through a temporary name.
type Step struct {
	From  string
	To    string
	Op    int  // Index into Plan.Ops
	First bool // First physical step of its Op
}

// Plan is an ordered, preflighted set of renames.
type Plan struct {
	Ops       []Op
	Steps     []Step
	Unchanged []string // Paths whose name is already correct
}

// ExecOptions configures execution.
type ExecOptions struct {
	DryRun   bool
	OnRename func(from, to string) // Called before an Op's first step
}

// Result describes what Execute did.
type Result struct {
	Renamed   []Op
	Unchanged []string
	DryRun    bool
}

// Renamer renames files on a filesystem.
type Renamer struct {
	fs afero.Fs
}

// New creates a Renamer operating on fsys.
func New(fsys afero.Fs) *Renamer {
	return &Renamer{fs: fsys}
}

// Execute performs the steps of plan in order.
// The first failure stops the batch; renames already done are not undone and
// are listed in the returned Result.
func (r *Renamer) Execute(plan *Plan, opts ExecOptions) (*Result, error) {
	result := &Result{
		Renamed:   make([]Op, 0, len(plan.Ops)),
		Unchanged: plan.Unchanged,
		DryRun:    opts.DryRun,
	}

	for _, step := range plan.Steps {
		op := plan.Ops[step.Op]
		if step.First && opts.OnRename != nil {
			opts.OnRename(op.From, op.To)
		}
		if !opts.DryRun {
			if err := r.rename(step.From, step.To); err != nil {
				return result, err
			}
		}
		if step.To == op.To {
			result.Renamed = append(result.Renamed, op)
		}
	}

	return result, nil
}

// rename moves one file, refusing to replace an existing destination.
func (r *Renamer) rename(from, to string) error {
	if r.exists(to) {
		return &RenameError{Type: DestinationExists, Path: from, Dest: to}
	}

	if err := r.fs.Rename(from, to); err != nil {
		errType := RenameFailed
		switch {
		case isCrossDevice(err):
			errType = CrossDevice
		case errors.Is(err, os.ErrNotExist):
			errType = SourceNotFound
		case errors.Is(err, os.ErrPermission):
			errType = PermissionDenied
		}
		return &RenameError{Type: errType, Path: from, Dest: to, Err: err}
	}
	return nil
}

func (r *Renamer) exists(path string) bool {
	_, err := r.lstat(path)
	return err == nil
}

func (r *Renamer) lstat(path string) (os.FileInfo, error) {
	if l, ok := r.fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(path)
		return info, err
	}
	return r.fs.Stat(path)
}
