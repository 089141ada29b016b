package config

// Flags accept either one or two leading dashes (the stdlib flag rules), and
// may appear before or after the directory argument.

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

// Version is shown by --version; override at build time with -ldflags "-X vidnum/internal/config.Version=...".
var Version = "0.1.0-dev"

var (
	// ErrHelp is returned when --help was requested and usage has been printed.
	ErrHelp = errors.New("help requested")
	// ErrVersion is returned when --version was requested and the version has been printed.
	ErrVersion = errors.New("version requested")
)

// ParseArgs parses command-line arguments (without the program name) into a
// validated Config. Help and version output go to out.
func ParseArgs(args []string, out io.Writer) (*Config, error) {
	cfg := DefaultConfig()

	fs := flag.NewFlagSet("vidnum", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var showHelp, showVersion bool
	defineFlags(fs, cfg, &showHelp, &showVersion)

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(out)
			return nil, ErrHelp
		}
		return nil, &ConfigError{Type: UsageError, Message: err.Error()}
	}

	if showHelp {
		printUsage(out)
		return nil, ErrHelp
	}
	if showVersion {
		fmt.Fprintln(out, "vidnum v"+Version)
		return nil, ErrVersion
	}

	if len(positional) != 1 {
		return nil, &ConfigError{
			Type:    UsageError,
			Message: fmt.Sprintf("requires exactly 1 argument - the directory to traverse (got %d)", len(positional)),
		}
	}
	cfg.Root = positional[0]

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defineFlags(fs *flag.FlagSet, cfg *Config, showHelp, showVersion *bool) {
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Print renames without performing them")
	fs.BoolVar(&cfg.DryRun, "n", false, "Same as --dry-run")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&cfg.Verbose, "v", false, "Same as --verbose")
	fs.StringVar(&cfg.Extension, "ext", cfg.Extension, "Video extension to renumber")
	fs.StringVar(&cfg.Extension, "e", cfg.Extension, "Same as --ext")
	fs.Var(&stringSliceValue{&cfg.Exclude}, "exclude", "Glob pattern of names to skip (repeatable)")
	fs.Var(&stringSliceValue{&cfg.Exclude}, "x", "Same as --exclude")
	fs.IntVar(&cfg.MaxFiles, "max-files", cfg.MaxFiles, "Refuse to rename more files than this")
	fs.IntVar(&cfg.WideThreshold, "wide-threshold", cfg.WideThreshold, "Collection size that switches to 3-digit prefixes")
	fs.Var(&colorModeValue{&cfg.Color}, "color", "Colored output: auto | always | never")
	fs.StringVar(&cfg.LogFile, "log-file", "", "Append output to file")
	fs.BoolVar(&cfg.Watch, "watch", false, "Keep running and renumber when videos change")
	fs.BoolVar(&cfg.Watch, "w", false, "Same as --watch")
	fs.IntVar(&cfg.DebounceSeconds, "debounce", cfg.DebounceSeconds, "Seconds of quiet before a watch rerun")
	fs.BoolVar(showVersion, "version", false, "Print version and exit")
	fs.BoolVar(showHelp, "help", false, "Show this help and exit")
	fs.BoolVar(showHelp, "h", false, "Same as --help")
}

// parseInterspersed parses flags that may appear on either side of positional
// arguments. A bare "--" ends flag parsing.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		// flag.Parse consumed a "--" terminator when the remainder is shorter than
		// what followed the last flag; everything after it is positional.
		if consumedTerminator(args, rest) {
			return append(positional, rest...), nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

func consumedTerminator(args, rest []string) bool {
	i := len(args) - len(rest) - 1
	return i >= 0 && args[i] == "--"
}

// stringSliceValue adapts a repeatable string flag to flag.Value.
type stringSliceValue struct{ p *[]string }

func (v *stringSliceValue) String() string {
	if v.p == nil {
		return ""
	}
	return strings.Join(*v.p, ",")
}

func (v *stringSliceValue) Set(s string) error {
	*v.p = append(*v.p, s)
	return nil
}

// colorModeValue adapts ColorMode to flag.Value.
type colorModeValue struct{ p *ColorMode }

func (v *colorModeValue) String() string {
	if v.p == nil {
		return ""
	}
	return string(*v.p)
}

func (v *colorModeValue) Set(s string) error {
	switch m := ColorMode(strings.ToLower(s)); m {
	case ColorAuto, ColorAlways, ColorNever:
		*v.p = m
		return nil
	}
	return fmt.Errorf("color must be auto, always or never (got %q)", s)
}

// printUsage writes the column-aligned help text.
func printUsage(w io.Writer) {
	const col1 = 32
	lines := []struct {
		flags string
		desc  string
	}{
		{"vidnum v" + Version + " - renumber video files in display order", ""},
		{"", ""},
		{"  vidnum [OPTIONS] <directory>", ""},
		{"", ""},
		{"Renaming", ""},
		{"  -n, --dry-run", "Print renames without performing them"},
		{"  -e, --ext <ext>", "Video extension to renumber (default: mkv)"},
		{"  -x, --exclude <glob>", "Skip files and directories matching glob (repeatable)"},
		{"  --max-files <n>", "Refuse to rename more than n files (default: 1000)"},
		{"  --wide-threshold <n>", "Use 3-digit prefixes from n files (default: 100)"},
		{"", ""},
		{"Watching", ""},
		{"  -w, --watch", "Keep running and renumber when videos change"},
		{"  --debounce <seconds>", "Quiet period before a rerun (default: 2)"},
		{"", ""},
		{"Display", ""},
		{"  -v, --verbose", "Also print skipped and unchanged files"},
		{"  --color <auto|always|never>", "Colored output (default: auto)"},
		{"  --log-file <path>", "Append output to file"},
		{"", ""},
		{"  --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
	}
	for _, l := range lines {
		if l.desc == "" {
			fmt.Fprintln(w, l.flags)
			continue
		}
		pad := col1 - len(l.flags)
		if pad < 2 {
			pad = 2
		}
		fmt.Fprintf(w, "%s%s%s\n", l.flags, strings.Repeat(" ", pad), l.desc)
	}
}
