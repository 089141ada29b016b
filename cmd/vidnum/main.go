// Command vidnum renumbers the video files under a directory so that sorting
// by name lists them in alphabetical order of their titles.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"vidnum/internal/config"
	"vidnum/internal/matcher"
	"vidnum/internal/orchestrator"
	"vidnum/internal/output"
	"vidnum/internal/watcher"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, afero.NewOsFs())
	stop()
	os.Exit(code)
}

// run executes vidnum with args and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, fsys afero.Fs) int {
	// 1. Parse and validate flags before touching the filesystem.
	cfg, err := config.ParseArgs(args, stdout)
	if err != nil {
		if errors.Is(err, config.ErrHelp) || errors.Is(err, config.ErrVersion) {
			return exitOK
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) && cfgErr.Type == config.UsageError {
			fmt.Fprintln(stderr, "Run 'vidnum --help' for usage.")
			return exitUsage
		}
		return exitError
	}

	// 2. Console output, plus the optional log file.
	outCfg := output.Config{
		Verbose:   cfg.Verbose,
		Writer:    stdout,
		ErrWriter: stderr,
		Color:     output.ColorEnabled(string(cfg.Color), asFile(stdout)),
	}
	if cfg.LogFile != "" {
		logFile, err := output.OpenLog(cfg.LogFile)
		if err != nil {
			fmt.Fprintf(stderr, "Error: cannot open log file: %v\n", err)
			return exitError
		}
		defer logFile.Close()
		outCfg.Log = logFile
	}
	out := output.New(outCfg)

	// 3. One pass over the tree.
	orch := orchestrator.New(cfg, fsys, out)
	renamed, err := runOnce(orch, out, false)
	if err != nil {
		return exitError
	}
	if !cfg.Watch {
		return exitOK
	}

	// 4. Watch mode: rerun whenever videos change, until interrupted.
	return watch(ctx, cfg, fsys, orch, out, renamed)
}

// runOnce performs a run and prints its summary or error.
// Reruns while watching only print a summary when they renamed something.
func runOnce(orch *orchestrator.Orchestrator, out *output.Output, rerun bool) (int, error) {
	summary, err := orch.Run()
	if err != nil {
		renamed := 0
		if summary != nil {
			renamed = summary.Renamed
		}
		if renamed > 0 && !summary.DryRun {
			out.Info("%s before the error", summary)
		}
		out.Error("%v", err)
		return renamed, err
	}
	reportSummary(out, summary, rerun)
	return summary.Renamed, nil
}

func reportSummary(out *output.Output, summary *orchestrator.Summary, rerun bool) {
	if rerun && summary.Renamed == 0 {
		out.Verbose("%s", summary)
		return
	}
	out.Info("%s", summary)
}

func watch(ctx context.Context, cfg *config.Config, fsys afero.Fs, orch *orchestrator.Orchestrator, out *output.Output, initial int) int {
	exclude, err := matcher.New(cfg.Exclude)
	if err != nil {
		out.Error("%v", err)
		return exitError
	}

	filter := watcher.NewFilter(cfg.Root, cfg.NormalizedExtension(), exclude)
	w := watcher.New(watcher.WatchConfig{
		Debounce:        time.Duration(cfg.DebounceSeconds) * time.Second,
		StableThreshold: watcher.DefaultStableThreshold,
		OnError:         func(err error) { out.Warn("%v", err) },
		OnTrigger: func(paths []string) {
			out.Verbose("Change detected in %d paths, renumbering", len(paths))
		},
	}, filter, func() (int, error) {
		return runOnce(orch, out, true)
	}, fsys)

	if err := w.Start(cfg.Root); err != nil {
		out.Error("cannot watch %s: %v", cfg.Root, err)
		return exitError
	}
	out.Info("Watching %s for changes (Ctrl+C to stop)", cfg.Root)

	<-ctx.Done()
	summary := w.Stop()

	out.Info("Watch session: %d runs, %d files renamed in %s",
		summary.Runs+1, summary.FilesRenamed+initial, summary.Duration.Round(time.Second))
	if summary.Errors > 0 {
		out.Warn("%d errors during the watch session", summary.Errors)
	}
	return exitOK
}

// asFile returns w as an *os.File when it is one, for terminal detection.
func asFile(w io.Writer) *os.File {
	if f, ok := w.(*os.File); ok {
		return f
	}
	return nil
}
