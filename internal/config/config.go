// Package config handles command-line configuration for vidnum.
package config

import (
	"fmt"
	"strings"

	"vidnum/internal/mapper"
	"vidnum/internal/matcher"
	"vidnum/internal/scanner"
)

// ConfigErrorType represents the type of configuration error.
type ConfigErrorType string

const (
	// UsageError indicates the command line itself is wrong (arguments, unknown flags).
	UsageError ConfigErrorType = "USAGE_ERROR"
	// ValidationError indicates a flag value is out of range.
	ValidationError ConfigErrorType = "VALIDATION_ERROR"
)

// ConfigError represents an error in the command-line configuration.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
}

func (e *ConfigError) Error() string {
	switch e.Type {
	case UsageError:
		return fmt.Sprintf("usage error: %s", e.Message)
	case ValidationError:
		return fmt.Sprintf("configuration validation error: %s", e.Message)
	default:
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
}

// ColorMode controls colored console output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// DefaultDebounceSeconds is the watch-mode delay before a rerun.
const DefaultDebounceSeconds = 2

// Config holds all settings for a vidnum run.
type Config struct {
	Root            string    // Directory to scan
	Extension       string    // Video extension, without the dot
	Exclude         []string  // Glob patterns for names to skip
	MaxFiles        int       // Scale guard
	WideThreshold   int       // Collection size that switches to 3-digit prefixes
	DryRun          bool      // Print renames without performing them
	Verbose         bool      // Print skipped and unchanged files
	Color           ColorMode // auto, always or never
	LogFile         string    // Optional file that receives a copy of the output
	Watch           bool      // Keep running and renumber when videos appear
	DebounceSeconds int       // Watch-mode quiet period before a rerun
}

// DefaultConfig returns a Config with default values and no root.
func DefaultConfig() *Config {
	return &Config{
		Extension:       scanner.DefaultExtension,
		MaxFiles:        mapper.DefaultMaxFiles,
		WideThreshold:   mapper.DefaultWideThreshold,
		Color:           ColorAuto,
		DebounceSeconds: DefaultDebounceSeconds,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Root == "" {
		return &ConfigError{Type: UsageError, Message: "requires exactly 1 argument - the directory to traverse"}
	}

	// Only the text after the last dot is compared, so ext cannot contain one.
	ext := strings.TrimPrefix(c.Extension, ".")
	if ext == "" || strings.ContainsAny(ext, `./\`) {
		return &ConfigError{Type: ValidationError, Message: fmt.Sprintf("invalid extension %q", c.Extension)}
	}

	// Prefixes of more than three digits would not be recognised on the next run.
	if c.MaxFiles < 1 || c.MaxFiles > mapper.DefaultMaxFiles {
		return &ConfigError{
			Type:    ValidationError,
			Message: fmt.Sprintf("max-files must be between 1 and %d (got %d)", mapper.DefaultMaxFiles, c.MaxFiles),
		}
	}
	if c.WideThreshold < 1 || c.WideThreshold > c.MaxFiles {
		return &ConfigError{
			Type:    ValidationError,
			Message: fmt.Sprintf("wide-threshold must be between 1 and max-files (got %d)", c.WideThreshold),
		}
	}

	if _, err := matcher.New(c.Exclude); err != nil {
		return &ConfigError{Type: ValidationError, Message: err.Error()}
	}

	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return &ConfigError{Type: ValidationError, Message: fmt.Sprintf("invalid color mode %q", c.Color)}
	}

	if c.DebounceSeconds < 0 {
		return &ConfigError{Type: ValidationError, Message: "debounce cannot be negative"}
	}

	return nil
}

// NormalizedExtension returns Extension without a leading dot.
func (c *Config) NormalizedExtension() string {
	return strings.TrimPrefix(c.Extension, ".")
}

// MapperOptions returns the mapping policy for this configuration.
func (c *Config) MapperOptions() mapper.Options {
	return mapper.Options{
		MaxFiles:      c.MaxFiles,
		WideThreshold: c.WideThreshold,
	}
}
