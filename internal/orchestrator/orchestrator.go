// Package orchestrator coordinates the renumbering workflow for vidnum.
package orchestrator

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"

	"vidnum/internal/config"
	"vidnum/internal/mapper"
	"vidnum/internal/matcher"
	"vidnum/internal/output"
	"vidnum/internal/renamer"
	"vidnum/internal/scanner"
)

// Orchestrator runs discovery, mapping and renaming for one root directory.
type Orchestrator struct {
	config *config.Config
	fs     afero.Fs
	out    *output.Output
}

// New creates an Orchestrator. cfg must already be validated.
func New(cfg *config.Config, fsys afero.Fs, out *output.Output) *Orchestrator {
	return &Orchestrator{
		config: cfg,
		fs:     fsys,
		out:    out,
	}
}

// Run performs one complete pass over the root directory.
// Nothing is renamed unless discovery, mapping and planning all succeed. If a
// rename fails, the returned Summary still counts the renames already done.
func (o *Orchestrator) Run() (*Summary, error) {
	start := time.Now()
	summary := &Summary{DryRun: o.config.DryRun}
	defer func() { summary.Duration = time.Since(start) }()

	exclude, err := matcher.New(o.config.Exclude)
	if err != nil {
		return summary, err
	}

	paths, err := scanner.Scan(o.fs, o.config.Root, scanner.ScanOptions{
		Extension: o.config.NormalizedExtension(),
		Exclude:   exclude,
		OnSkip:    o.onSkip,
	})
	if err != nil {
		return summary, fmt.Errorf("failed to scan %s: %w", o.config.Root, err)
	}
	summary.Discovered = len(paths)
	o.out.Verbose("Found %d .%s files under %s", len(paths), o.config.NormalizedExtension(), o.config.Root)

	SortDiscovered(paths)

	m, err := mapper.Build(paths, o.config.MapperOptions())
	if err != nil {
		return summary, err
	}

	r := renamer.New(o.fs)
	plan, err := r.Schedule(m)
	if err != nil {
		return summary, err
	}
	for _, p := range plan.Unchanged {
		o.out.Verbose("Unchanged %s", p)
	}

	result, err := r.Execute(plan, renamer.ExecOptions{
		DryRun:   o.config.DryRun,
		OnRename: o.out.Rename,
	})
	if result != nil {
		summary.Renamed = len(result.Renamed)
		summary.Unchanged = len(result.Unchanged)
	}
	if err != nil {
		return summary, err
	}
	return summary, nil
}

func (o *Orchestrator) onSkip(path string, err error) {
	if err != nil {
		o.out.Warn("cannot read %s: %v", path, err)
		return
	}
	o.out.Verbose("Skipping symlink %s", path)
}

// SortDiscovered orders paths by base name, then by full path.
// Numbering is stable for equal sort keys, so this makes the mapping
// independent of traversal order and keeps already-numbered files in place.
func SortDiscovered(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		bi, bj := filepath.Base(paths[i]), filepath.Base(paths[j])
		if bi != bj {
			return bi < bj
		}
		return paths[i] < paths[j]
	})
}
