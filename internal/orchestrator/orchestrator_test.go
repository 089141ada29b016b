package orchestrator

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"vidnum/internal/config"
	"vidnum/internal/mapper"
	"vidnum/internal/output"
	"vidnum/internal/renamer"
	"vidnum/internal/scanner"
)

// writeFiles creates each path with its own path as content.
func writeFiles(fsys afero.Fs, paths ...string) error {
	for _, p := range paths {
		if err := fsys.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return err
		}
		if err := afero.WriteFile(fsys, p, []byte(p), 0644); err != nil {
			return err
		}
	}
	return nil
}

func mustWriteFiles(t *testing.T, fsys afero.Fs, paths ...string) {
	t.Helper()
	if err := writeFiles(fsys, paths...); err != nil {
		t.Fatalf("Failed to create files: %v", err)
	}
}

// captureSnapshot returns path -> content for every file under root.
func captureSnapshot(fsys afero.Fs, root string) (map[string]string, error) {
	files := make(map[string]string)
	err := afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		files[path] = string(data)
		return nil
	})
	return files, err
}

func mustSnapshot(t *testing.T, fsys afero.Fs, root string) map[string]string {
	t.Helper()
	files, err := captureSnapshot(fsys, root)
	if err != nil {
		t.Fatalf("Failed to snapshot %s: %v", root, err)
	}
	return files
}

func testConfig(root string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Root = root
	return cfg
}

func newTestOrchestrator(cfg *config.Config, fsys afero.Fs) (*Orchestrator, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	out := output.New(output.Config{Verbose: cfg.Verbose, Writer: &stdout, ErrWriter: &stderr})
	return New(cfg, fsys, out), &stdout, &stderr
}

func renameLines(stdout string) []string {
	var lines []string
	for _, line := range strings.Split(stdout, "\n") {
		if strings.HasPrefix(line, "Renaming ") {
			lines = append(lines, line)
		}
	}
	sort.Strings(lines)
	return lines
}

func TestRunRenumbersAcrossDirectories(t *testing.T) {
	fsys := afero.NewMemMapFs()
	mustWriteFiles(t, fsys,
		"/lib/Movies/a.mkv",
		"/lib/Movies/c.mkv",
		"/lib/TV Shows/b.mkv",
		"/lib/TV Shows/notes.txt",
	)

	o, stdout, stderr := newTestOrchestrator(testConfig("/lib"), fsys)
	summary, err := o.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := map[string]string{
		"/lib/Movies/01_a.mkv":    "/lib/Movies/a.mkv",
		"/lib/Movies/03_c.mkv":    "/lib/Movies/c.mkv",
		"/lib/TV Shows/02_b.mkv":  "/lib/TV Shows/b.mkv",
		"/lib/TV Shows/notes.txt": "/lib/TV Shows/notes.txt",
	}
	if got := mustSnapshot(t, fsys, "/lib"); !reflect.DeepEqual(got, want) {
		t.Errorf("files after run = %v, want %v", got, want)
	}

	wantLines := []string{
		"Renaming /lib/Movies/a.mkv to /lib/Movies/01_a.mkv",
		"Renaming /lib/Movies/c.mkv to /lib/Movies/03_c.mkv",
		"Renaming /lib/TV Shows/b.mkv to /lib/TV Shows/02_b.mkv",
	}
	if got := renameLines(stdout.String()); !reflect.DeepEqual(got, wantLines) {
		t.Errorf("rename lines = %q, want %q", got, wantLines)
	}
	if stderr.Len() != 0 {
		t.Errorf("unexpected stderr: %q", stderr.String())
	}

	if summary.Discovered != 3 || summary.Renamed != 3 || summary.Unchanged != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.String() != "Renamed 3 of 3 files (0 unchanged)" {
		t.Errorf("summary line = %q", summary.String())
	}
}

func TestRunRenumbersPreviouslyNumberedFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	mustWriteFiles(t, fsys,
		"/lib/Movies/01_a.mkv",
		"/lib/Movies/02_c.mkv",
		"/lib/TV Shows/B/03_b_1.mkv",
		"/lib/TV Shows/B/04_b_2.mkv",
	)

	o, _, _ := newTestOrchestrator(testConfig("/lib"), fsys)
	summary, err := o.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := map[string]string{
		"/lib/Movies/01_a.mkv":       "/lib/Movies/01_a.mkv",
		"/lib/Movies/04_c.mkv":       "/lib/Movies/02_c.mkv",
		"/lib/TV Shows/B/02_b_1.mkv": "/lib/TV Shows/B/03_b_1.mkv",
		"/lib/TV Shows/B/03_b_2.mkv": "/lib/TV Shows/B/04_b_2.mkv",
	}
	if got := mustSnapshot(t, fsys, "/lib"); !reflect.DeepEqual(got, want) {
		t.Errorf("files after run = %v, want %v", got, want)
	}
	if summary.Renamed != 3 || summary.Unchanged != 1 {
		t.Errorf("summary = %+v, want 3 renamed and 1 unchanged", summary)
	}
}

func TestRunSecondPassChangesNothing(t *testing.T) {
	fsys := afero.NewMemMapFs()
	mustWriteFiles(t, fsys,
		"/lib/x/B.mkv",
		"/lib/y/b.mkv",
		"/lib/a.mkv",
		"/lib/z/Alpha.mkv",
	)

	o, _, _ := newTestOrchestrator(testConfig("/lib"), fsys)
	if _, err := o.Run(); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	afterFirst := mustSnapshot(t, fsys, "/lib")

	o, stdout, _ := newTestOrchestrator(testConfig("/lib"), fsys)
	summary, err := o.Run()
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if summary.Renamed != 0 || summary.Unchanged != 4 {
		t.Errorf("second summary = %+v, want nothing renamed", summary)
	}
	if lines := renameLines(stdout.String()); len(lines) != 0 {
		t.Errorf("second run printed renames: %q", lines)
	}
	if got := mustSnapshot(t, fsys, "/lib"); !reflect.DeepEqual(got, afterFirst) {
		t.Errorf("second run changed files: %v -> %v", afterFirst, got)
	}
}

func TestRunDryRunLeavesFilesUntouched(t *testing.T) {
	fsys := afero.NewMemMapFs()
	mustWriteFiles(t, fsys, "/lib/b.mkv", "/lib/a.mkv")
	before := mustSnapshot(t, fsys, "/lib")

	cfg := testConfig("/lib")
	cfg.DryRun = true
	o, stdout, _ := newTestOrchestrator(cfg, fsys)
	summary, err := o.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := mustSnapshot(t, fsys, "/lib"); !reflect.DeepEqual(got, before) {
		t.Errorf("dry run changed files: %v -> %v", before, got)
	}
	if lines := renameLines(stdout.String()); len(lines) != 2 {
		t.Errorf("dry run should still print planned renames, got %q", lines)
	}
	if summary.String() != "Renamed 2 of 2 files (0 unchanged) (dry run)" {
		t.Errorf("summary line = %q", summary.String())
	}
}

func TestRunScaleGuardLeavesFilesUntouched(t *testing.T) {
	fsys := afero.NewMemMapFs()
	mustWriteFiles(t, fsys, "/lib/a.mkv", "/lib/b.mkv", "/lib/c.mkv", "/lib/d.mkv")
	before := mustSnapshot(t, fsys, "/lib")

	cfg := testConfig("/lib")
	cfg.MaxFiles = 3
	cfg.WideThreshold = 3
	o, stdout, _ := newTestOrchestrator(cfg, fsys)
	summary, err := o.Run()

	var mapErr *mapper.MapError
	if !errors.As(err, &mapErr) || mapErr.Type != mapper.TooManyFiles {
		t.Fatalf("expected TooManyFiles, got %v", err)
	}
	if summary.Discovered != 4 || summary.Renamed != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if got := mustSnapshot(t, fsys, "/lib"); !reflect.DeepEqual(got, before) {
		t.Errorf("scale guard changed files: %v -> %v", before, got)
	}
	if lines := renameLines(stdout.String()); len(lines) != 0 {
		t.Errorf("no renames should be printed, got %q", lines)
	}
}

func TestRunMissingRoot(t *testing.T) {
	o, _, _ := newTestOrchestrator(testConfig("/missing"), afero.NewMemMapFs())
	_, err := o.Run()

	var scanErr *scanner.ScanError
	if !errors.As(err, &scanErr) || scanErr.Type != scanner.DirectoryNotFound {
		t.Fatalf("expected DirectoryNotFound, got %v", err)
	}
}

func TestRunRefusesToOverwriteExcludedFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	mustWriteFiles(t, fsys, "/lib/a.mkv", "/lib/01_a.mkv")
	before := mustSnapshot(t, fsys, "/lib")

	cfg := testConfig("/lib")
	cfg.Exclude = []string{"01_*"}
	o, _, _ := newTestOrchestrator(cfg, fsys)
	_, err := o.Run()

	var renameErr *renamer.RenameError
	if !errors.As(err, &renameErr) || renameErr.Type != renamer.DestinationExists {
		t.Fatalf("expected DestinationExists, got %v", err)
	}
	if got := mustSnapshot(t, fsys, "/lib"); !reflect.DeepEqual(got, before) {
		t.Errorf("files changed despite conflict: %v -> %v", before, got)
	}
}

func TestRunHonorsExtensionAndExclude(t *testing.T) {
	fsys := afero.NewMemMapFs()
	mustWriteFiles(t, fsys,
		"/lib/a.mp4",
		"/lib/b.mkv",
		"/lib/extras/c.mp4",
		"/lib/d.mp4",
	)

	cfg := testConfig("/lib")
	cfg.Extension = ".mp4"
	cfg.Exclude = []string{"extras"}
	o, _, _ := newTestOrchestrator(cfg, fsys)
	summary, err := o.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := map[string]string{
		"/lib/01_a.mp4":     "/lib/a.mp4",
		"/lib/b.mkv":        "/lib/b.mkv",
		"/lib/extras/c.mp4": "/lib/extras/c.mp4",
		"/lib/02_d.mp4":     "/lib/d.mp4",
	}
	if got := mustSnapshot(t, fsys, "/lib"); !reflect.DeepEqual(got, want) {
		t.Errorf("files after run = %v, want %v", got, want)
	}
	if summary.Discovered != 2 {
		t.Errorf("Discovered = %d, want 2", summary.Discovered)
	}
}

func TestRunVerboseReportsUnchanged(t *testing.T) {
	fsys := afero.NewMemMapFs()
	mustWriteFiles(t, fsys, "/lib/01_a.mkv")

	cfg := testConfig("/lib")
	cfg.Verbose = true
	o, stdout, _ := newTestOrchestrator(cfg, fsys)
	if _, err := o.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !strings.Contains(stdout.String(), "Unchanged /lib/01_a.mkv") {
		t.Errorf("verbose output missing unchanged file: %q", stdout.String())
	}
}

func TestRunWarnsAboutUnreadableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}

	root := t.TempDir()
	fsys := afero.NewOsFs()
	mustWriteFiles(t, fsys, filepath.Join(root, "a.mkv"), filepath.Join(root, "locked", "b.mkv"))
	locked := filepath.Join(root, "locked")
	if err := os.Chmod(locked, 0); err != nil {
		t.Fatal(err)
	}
	defer os.Chmod(locked, 0755)

	o, _, stderr := newTestOrchestrator(testConfig(root), fsys)
	summary, err := o.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Renamed != 1 {
		t.Errorf("Renamed = %d, want 1", summary.Renamed)
	}
	if !strings.Contains(stderr.String(), "Warning: cannot read "+locked) {
		t.Errorf("expected warning for %s, got %q", locked, stderr.String())
	}
}

func TestSortDiscovered(t *testing.T) {
	paths := []string{
		"/b/x.mkv",
		"/a/y.mkv",
		"/c/x.mkv",
		"/a/X.mkv",
	}
	SortDiscovered(paths)

	want := []string{"/a/X.mkv", "/b/x.mkv", "/c/x.mkv", "/a/y.mkv"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("SortDiscovered = %v, want %v", paths, want)
	}
}

func TestSummaryString(t *testing.T) {
	tests := []struct {
		summary Summary
		want    string
	}{
		{Summary{}, "Renamed 0 of 0 files (0 unchanged)"},
		{Summary{Discovered: 5, Renamed: 2, Unchanged: 3}, "Renamed 2 of 5 files (3 unchanged)"},
		{Summary{Discovered: 1, Renamed: 1, DryRun: true}, "Renamed 1 of 1 files (0 unchanged) (dry run)"},
	}
	for _, tt := range tests {
		if got := tt.summary.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
