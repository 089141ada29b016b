package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"vidnum/internal/orchestrator"
	"vidnum/internal/output"
)

func runCLI(t *testing.T, fsys afero.Fs, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr, fsys)
	return code, stdout.String(), stderr.String()
}

func TestRunRenamesAndPrintsSummary(t *testing.T) {
	fsys := afero.NewMemMapFs()
	for _, p := range []string{"/lib/Movies/a.mkv", "/lib/Movies/c.mkv", "/lib/TV Shows/b.mkv"} {
		if err := afero.WriteFile(fsys, p, []byte(p), 0644); err != nil {
			t.Fatal(err)
		}
	}

	code, stdout, stderr := runCLI(t, fsys, "--color", "never", "/lib")
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}

	for _, line := range []string{
		"Renaming /lib/Movies/a.mkv to /lib/Movies/01_a.mkv\n",
		"Renaming /lib/TV Shows/b.mkv to /lib/TV Shows/02_b.mkv\n",
		"Renaming /lib/Movies/c.mkv to /lib/Movies/03_c.mkv\n",
		"Renamed 3 of 3 files (0 unchanged)\n",
	} {
		if !strings.Contains(stdout, line) {
			t.Errorf("stdout missing %q:\n%s", line, stdout)
		}
	}
	if ok, _ := afero.Exists(fsys, "/lib/TV Shows/02_b.mkv"); !ok {
		t.Error("expected /lib/TV Shows/02_b.mkv to exist")
	}
}

func TestRunUsageErrors(t *testing.T) {
	tests := [][]string{
		nil,
		{"/a", "/b"},
		{"--no-such-flag", "/a"},
	}
	for _, args := range tests {
		code, stdout, stderr := runCLI(t, afero.NewMemMapFs(), args...)
		if code != exitUsage {
			t.Errorf("args %q: exit code = %d, want %d", args, code, exitUsage)
		}
		if !strings.HasPrefix(stderr, "Error: ") {
			t.Errorf("args %q: stderr = %q", args, stderr)
		}
		if stdout != "" {
			t.Errorf("args %q: unexpected stdout %q", args, stdout)
		}
	}
}

func TestRunValidationErrorExitsOne(t *testing.T) {
	code, _, stderr := runCLI(t, afero.NewMemMapFs(), "--max-files", "5000", "/lib")
	if code != exitError {
		t.Errorf("exit code = %d, want %d", code, exitError)
	}
	if !strings.Contains(stderr, "max-files") {
		t.Errorf("stderr should explain the bad value: %q", stderr)
	}
}

func TestRunHelpAndVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, afero.NewMemMapFs(), "--help")
	if code != exitOK || !strings.Contains(stdout, "vidnum [OPTIONS] <directory>") {
		t.Errorf("help: code %d, stdout %q", code, stdout)
	}

	code, stdout, _ = runCLI(t, afero.NewMemMapFs(), "--version")
	if code != exitOK || !strings.HasPrefix(stdout, "vidnum v") {
		t.Errorf("version: code %d, stdout %q", code, stdout)
	}
}

func TestRunMissingDirectory(t *testing.T) {
	code, _, stderr := runCLI(t, afero.NewMemMapFs(), "/missing")
	if code != exitError {
		t.Errorf("exit code = %d, want %d", code, exitError)
	}
	if !strings.Contains(stderr, "Error: ") || !strings.Contains(stderr, "DIRECTORY_NOT_FOUND") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestRunDryRunAndLogFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "/lib/a.mkv", []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	logPath := filepath.Join(t.TempDir(), "vidnum.log")

	code, stdout, _ := runCLI(t, fsys, "-n", "--log-file", logPath, "/lib")
	if code != exitOK {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stdout, "(dry run)") {
		t.Errorf("summary should mark the dry run: %q", stdout)
	}
	if ok, _ := afero.Exists(fsys, "/lib/a.mkv"); !ok {
		t.Error("dry run must not rename")
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "[INFO] Renaming /lib/a.mkv to /lib/01_a.mkv") {
		t.Errorf("log file contents = %q", data)
	}
}

func TestRunWatchStopsOnCancel(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.mkv"), []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var stdout, stderr bytes.Buffer
	done := make(chan int, 1)
	go func() {
		done <- run(ctx, []string{"--watch", root}, &stdout, &stderr, afero.NewOsFs())
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case code := <-done:
		if code != exitOK {
			t.Errorf("exit code = %d, stderr: %s", code, stderr.String())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}

	if !strings.Contains(stdout.String(), "Watch session: 1 runs, 1 files renamed") {
		t.Errorf("missing session summary:\n%s", stdout.String())
	}
	if _, err := os.Stat(filepath.Join(root, "01_a.mkv")); err != nil {
		t.Errorf("initial run should have renamed a.mkv: %v", err)
	}
}

func TestReportSummaryQuietRerun(t *testing.T) {
	tests := []struct {
		name    string
		summary orchestrator.Summary
		rerun   bool
		verbose bool
		want    string
	}{
		{"first run with nothing to do", orchestrator.Summary{Discovered: 2, Unchanged: 2}, false, false, "Renamed 0 of 2 files (2 unchanged)\n"},
		{"rerun with nothing to do", orchestrator.Summary{Discovered: 2, Unchanged: 2}, true, false, ""},
		{"rerun with nothing to do, verbose", orchestrator.Summary{Discovered: 2, Unchanged: 2}, true, true, "Renamed 0 of 2 files (2 unchanged)\n"},
		{"rerun that renamed", orchestrator.Summary{Discovered: 3, Renamed: 1, Unchanged: 2}, true, false, "Renamed 1 of 3 files (2 unchanged)\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout bytes.Buffer
			out := output.New(output.Config{Verbose: tt.verbose, Writer: &stdout, ErrWriter: &bytes.Buffer{}})
			summary := tt.summary
			reportSummary(out, &summary, tt.rerun)
			if stdout.String() != tt.want {
				t.Errorf("output = %q, want %q", stdout.String(), tt.want)
			}
		})
	}
}
