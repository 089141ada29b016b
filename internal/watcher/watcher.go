// Package watcher reruns the renumbering when videos change for vidnum.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

// DefaultStableThreshold is how long a changed file's size must hold before a rerun.
const DefaultStableThreshold = time.Second

// WatchConfig contains watcher settings.
type WatchConfig struct {
	Debounce        time.Duration        // Quiet period before a rerun
	StableThreshold time.Duration        // Size-stability wait for changed files (0 disables)
	StableTimeout   time.Duration        // Longest stability wait before retrying later (0 = 30s)
	OnError         func(err error)      // Receives watch and run errors
	OnTrigger       func(paths []string) // Called before each run with the paths that changed
}

// RunFunc performs one renumbering pass and reports how many files it renamed.
type RunFunc func() (renamed int, err error)

// WatchSummary contains stats from the watch session.
type WatchSummary struct {
	Runs         int
	FilesRenamed int
	Errors       int
	Duration     time.Duration
}

// Watcher monitors a directory tree and serializes reruns.
type Watcher struct {
	config    WatchConfig
	run       RunFunc
	filter    *Filter
	stability *StabilityChecker
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer

	triggers chan struct{}
	queued   map[string]struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	start    time.Time

	// Statistics tracking
	mu       sync.Mutex
	runs     int
	renamed  int
	errCount int
}

// New creates a Watcher. Changed files are checked for stability on fsys.
func New(config WatchConfig, filter *Filter, run RunFunc, fsys afero.Fs) *Watcher {
	w := &Watcher{
		config:   config,
		run:      run,
		filter:   filter,
		triggers: make(chan struct{}, 1),
		queued:   make(map[string]struct{}),
	}
	if config.StableThreshold > 0 {
		w.stability = NewStabilityChecker(fsys, config.StableThreshold)
		if config.StableTimeout > 0 {
			w.stability.timeout = config.StableTimeout
		}
	}
	w.debouncer = NewDebouncer(config.Debounce, w.enqueue)
	return w
}

// Start watches root and every directory below it that is not excluded.
// The watcher runs until Stop is called.
func (w *Watcher) Start(root string) error {
	var err error
	w.fsWatcher, err = fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		w.fsWatcher.Close()
		return err
	}
	if err := w.addTree(absRoot); err != nil {
		w.fsWatcher.Close()
		return err
	}

	w.start = time.Now()
	w.ctx, w.cancel = context.WithCancel(context.Background())

	w.wg.Add(2)
	go w.processEvents()
	go w.runLoop()

	return nil
}

// Stop shuts the watcher down and returns a summary of the session.
// A run already in progress is allowed to finish.
func (w *Watcher) Stop() *WatchSummary {
	w.debouncer.Stop()
	if w.cancel != nil {
		w.cancel()
	}
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
	}
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()

	return &WatchSummary{
		Runs:         w.runs,
		FilesRenamed: w.renamed,
		Errors:       w.errCount,
		Duration:     time.Since(w.start),
	}
}

// addTree watches dir and all its non-excluded subdirectories.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.reportError(err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.filter.Excluded(path) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// processEvents handles file system events from fsnotify.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.filter.Excluded(event.Name) {
				return
			}
			// A new directory may arrive already populated.
			if err := w.addTree(event.Name); err != nil {
				w.reportError(err)
			}
			w.debouncer.Add(event.Name)
			return
		}
	}

	if w.filter.Relevant(event.Name) {
		w.debouncer.Add(event.Name)
	}
}

// enqueue hands debounced paths to the run loop. Triggers that arrive while a
// run is in progress collapse into one follow-up run.
func (w *Watcher) enqueue(paths []string) {
	w.mu.Lock()
	for _, p := range paths {
		w.queued[p] = struct{}{}
	}
	w.mu.Unlock()

	select {
	case w.triggers <- struct{}{}:
	default:
	}
}

// runLoop performs runs one at a time.
func (w *Watcher) runLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.triggers:
			w.runOnce()
		}
	}
}

func (w *Watcher) runOnce() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.queued))
	for p := range w.queued {
		paths = append(paths, p)
	}
	w.queued = make(map[string]struct{})
	w.mu.Unlock()

	if w.config.OnTrigger != nil {
		w.config.OnTrigger(paths)
	}

	if w.stability != nil {
		if err := w.stability.WaitForAll(w.ctx, paths); err != nil {
			if w.ctx.Err() != nil {
				return
			}
			if errors.Is(err, ErrFileUnstable) {
				// Still being written: no run until the paths settle.
				w.reportError(fmt.Errorf("%w; renumbering postponed", err))
				w.retry(paths)
				return
			}
			w.reportError(err)
		}
	}

	renamed, err := w.run()

	w.mu.Lock()
	w.runs++
	w.renamed += renamed
	w.mu.Unlock()

	if err != nil {
		w.reportError(err)
	}
}

// retry hands paths back to the debouncer so they trigger a later run.
func (w *Watcher) retry(paths []string) {
	for _, p := range paths {
		w.debouncer.Add(p)
	}
}

func (w *Watcher) reportError(err error) {
	w.mu.Lock()
	w.errCount++
	w.mu.Unlock()

	if w.config.OnError != nil {
		w.config.OnError(err)
	}
}

// IsRunning returns true if the watcher has been started and not stopped.
func (w *Watcher) IsRunning() bool {
	if w.ctx == nil {
		return false
	}
	select {
	case <-w.ctx.Done():
		return false
	default:
		return true
	}
}
