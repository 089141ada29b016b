package orchestrator

import (
	"fmt"
	"time"
)

// Summary contains statistics from one run.
type Summary struct {
	Discovered int           // Video files found
	Renamed    int           // Files renamed, or that would be renamed in a dry run
	Unchanged  int           // Files whose name was already correct
	DryRun     bool          // Nothing was actually renamed
	Duration   time.Duration // Total processing time
}

// String formats the summary line printed after a run.
func (s *Summary) String() string {
	line := fmt.Sprintf("Renamed %d of %d files (%d unchanged)", s.Renamed, s.Discovered, s.Unchanged)
	if s.DryRun {
		line += " (dry run)"
	}
	return line
}
