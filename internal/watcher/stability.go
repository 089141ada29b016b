package watcher

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/spf13/afero"
)

// ErrFileUnstable is returned when a file keeps changing size past the timeout.
var ErrFileUnstable = errors.New("file did not stabilize within timeout")

// StabilityChecker waits for file sizes to settle, so videos that are still
// being copied into the library are not renamed mid-copy.
type StabilityChecker struct {
	fs        afero.Fs
	threshold time.Duration // Time the size must remain unchanged
	timeout   time.Duration // Maximum time to wait for one file
	interval  time.Duration // How often to check the size
}

// NewStabilityChecker creates a StabilityChecker with a 30 second timeout and a
// check interval of threshold/4 (at least 50ms).
func NewStabilityChecker(fsys afero.Fs, threshold time.Duration) *StabilityChecker {
	interval := threshold / 4
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}
	return &StabilityChecker{
		fs:        fsys,
		threshold: threshold,
		timeout:   30 * time.Second,
		interval:  interval,
	}
}

// WaitForStable blocks until the size of path has not changed for the
// threshold. A file that disappears counts as settled.
func (s *StabilityChecker) WaitForStable(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	lastSize, err := s.size(path)
	if err != nil {
		return ignoreMissing(err)
	}
	lastChange := time.Now()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrFileUnstable
			}
			return ctx.Err()
		case <-ticker.C:
			size, err := s.size(path)
			if err != nil {
				return ignoreMissing(err)
			}
			if size != lastSize {
				lastSize = size
				lastChange = time.Now()
			} else if time.Since(lastChange) >= s.threshold {
				return nil
			}
		}
	}
}

// WaitForAll waits for each path in turn and returns the first error.
func (s *StabilityChecker) WaitForAll(ctx context.Context, paths []string) error {
	for _, p := range paths {
		if err := s.WaitForStable(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *StabilityChecker) size(path string) (int64, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func ignoreMissing(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
