// Package output handles console and log-file output for vidnum.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Config holds output configuration.
type Config struct {
	Verbose   bool      // Enable verbose output
	Writer    io.Writer // Output destination (default: os.Stdout)
	ErrWriter io.Writer // Error output destination (default: os.Stderr)
	Color     bool      // Colorize console output
	Log       io.Writer // Optional plain-text copy of everything written, with timestamps
}

var (
	renameStyle = color.New(color.FgHiBlue)
	pathStyle   = color.New(color.FgHiWhite)
	warnStyle   = color.New(color.FgHiYellow)
	errorStyle  = color.New(color.FgHiRed, color.Bold)
	mutedStyle  = color.New(color.FgHiBlack)
)

// Output writes user-facing messages. It is safe for concurrent use.
type Output struct {
	config Config
	mu     sync.Mutex
	now    func() time.Time
}

// New creates a new Output instance with the given configuration.
func New(config Config) *Output {
	if config.Writer == nil {
		config.Writer = os.Stdout
	}
	if config.ErrWriter == nil {
		config.ErrWriter = os.Stderr
	}
	return &Output{
		config: config,
		now:    time.Now,
	}
}

// ColorEnabled resolves a color mode ("auto", "always" or "never") for f.
// Auto enables color only on a terminal, honoring NO_COLOR and TERM=dumb.
func ColorEnabled(mode string, f *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if f == nil || os.Getenv("NO_COLOR") != "" || strings.EqualFold(os.Getenv("TERM"), "dumb") {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// OpenLog opens path for appending, creating it and its directory if needed.
func OpenLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}

// Rename announces a rename as "Renaming {old} to {new}".
func (o *Output) Rename(oldPath, newPath string) {
	plain := fmt.Sprintf("Renaming %s to %s", oldPath, newPath)
	console := plain
	if o.config.Color {
		console = renameStyle.Sprint("Renaming") + " " + pathStyle.Sprint(oldPath) +
			" " + renameStyle.Sprint("to") + " " + pathStyle.Sprint(newPath)
	}
	o.write(o.config.Writer, "INFO", console, plain)
}

// Info prints an informational message (always shown).
func (o *Output) Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	o.write(o.config.Writer, "INFO", msg, msg)
}

// Verbose prints a message only when verbose mode is enabled.
func (o *Output) Verbose(format string, args ...interface{}) {
	if !o.config.Verbose {
		return
	}
	msg := fmt.Sprintf(format, args...)
	o.write(o.config.Writer, "DEBUG", o.style(mutedStyle, msg), msg)
}

// Warn prints a warning to stderr.
func (o *Output) Warn(format string, args ...interface{}) {
	msg := "Warning: " + fmt.Sprintf(format, args...)
	o.write(o.config.ErrWriter, "WARN", o.style(warnStyle, msg), msg)
}

// Error prints an error message to stderr, prefixed with "Error: ".
func (o *Output) Error(format string, args ...interface{}) {
	msg := "Error: " + fmt.Sprintf(format, args...)
	o.write(o.config.ErrWriter, "ERROR", o.style(errorStyle, msg), msg)
}

// IsVerbose returns whether verbose mode is enabled.
func (o *Output) IsVerbose() bool {
	return o.config.Verbose
}

func (o *Output) style(c *color.Color, msg string) string {
	if !o.config.Color {
		return msg
	}
	return c.Sprint(msg)
}

// write sends console to w and a timestamped plain copy to the log, if any.
func (o *Output) write(w io.Writer, level, console, plain string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	_, _ = io.WriteString(w, withNewline(console))
	if o.config.Log != nil {
		ts := o.now().Format("2006-01-02 15:04:05")
		_, _ = io.WriteString(o.config.Log, ts+" ["+level+"] "+withNewline(plain))
	}
}

func withNewline(msg string) string {
	if strings.HasSuffix(msg, "\n") {
		return msg
	}
	return msg + "\n"
}

func init() {
	// Styles are applied only when Config.Color is set, so the package-wide
	// NoColor switch must not strip them.
	for _, c := range []*color.Color{renameStyle, pathStyle, warnStyle, errorStyle, mutedStyle} {
		c.EnableColor()
	}
}
