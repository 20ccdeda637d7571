package output

import (
	"fmt"
	"io"
	"time"

	"github.com/sdejongh/drivesync/pkg/models"
)

// HumanFormatter prints one line per skip and per download
type HumanFormatter struct {
	writer    io.Writer
	startTime time.Time
	verbose   bool
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{}
}

// SetVerbose also prints folder and exclusion events
func (f *HumanFormatter) SetVerbose(verbose bool) {
	f.verbose = verbose
}

// Start initializes the formatter
func (f *HumanFormatter) Start(writer io.Writer, op *models.MirrorOperation) error {
	f.writer = writer
	f.startTime = time.Now()

	if writer != nil {
		mode := ""
		if op.DryRun {
			mode = " (dry run)"
		}
		fmt.Fprintf(writer, "Mirroring %s into %s%s\n", op.RootID, op.LocalRoot, mode)
	}
	return nil
}

// Progress reports progress during the run
func (f *HumanFormatter) Progress(update ProgressUpdate) error {
	if f.writer == nil {
		return nil
	}

	switch update.Type {
	case UpdateContainerStart:
		if f.verbose {
			fmt.Fprintf(f.writer, "▸ %s/\n", displayPath(update.Path))
		}

	case UpdateFileSkip:
		fmt.Fprintf(f.writer, "✓ Skipping (unchanged): %s\n", update.Path)

	case UpdateFileStart:
		if update.DryRun {
			fmt.Fprintf(f.writer, "↓ Would download: %s (%s)\n", update.Path, formatBytes(update.TotalBytes))
		} else {
			fmt.Fprintf(f.writer, "↓ Downloading: %s\n", update.Path)
		}

	case UpdateFileError:
		fmt.Fprintf(f.writer, "✗ %s: %v\n", update.Path, update.Error)

	case UpdateFileUnsupported:
		fmt.Fprintf(f.writer, "⚠ Unsupported (no downloadable content): %s\n", update.Path)

	case UpdateFileExcluded:
		if f.verbose {
			fmt.Fprintf(f.writer, "- Excluded: %s\n", update.Path)
		}
	}

	return nil
}

// Complete finalizes output and displays summary
func (f *HumanFormatter) Complete(s *models.RunSummary) error {
	if f.writer == nil {
		f.writer = io.Discard
	}
	writeSummary(f.writer, s)
	return nil
}

// writeSummary prints the end-of-run block shared by the console formatters
func writeSummary(w io.Writer, s *models.RunSummary) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Mirror completed in %s\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Folders visited:    %d\n", s.Stats.ContainersVisited)
	fmt.Fprintf(w, "  Files evaluated:    %d\n", s.Stats.FilesEvaluated)
	fmt.Fprintf(w, "  Files downloaded:   %d\n", s.Stats.FilesTransferred)
	fmt.Fprintf(w, "  Files unchanged:    %d\n", s.Stats.FilesSkipped)
	fmt.Fprintf(w, "  Files excluded:     %d\n", s.Stats.FilesExcluded)
	if s.Stats.FoldersExcluded > 0 {
		fmt.Fprintf(w, "  Folders excluded:   %d\n", s.Stats.FoldersExcluded)
	}
	fmt.Fprintf(w, "  Files unsupported:  %d\n", s.Stats.FilesUnsupported)
	fmt.Fprintf(w, "  Files errored:      %d\n", s.Stats.FilesErrored)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Transfer:\n")
	fmt.Fprintf(w, "    Data:           %s\n", formatBytes(s.Stats.BytesTransferred))

	if s.Duration.Seconds() > 0 && s.Stats.BytesTransferred > 0 {
		avgSpeed := float64(s.Stats.BytesTransferred) / s.Duration.Seconds()
		fmt.Fprintf(w, "    Average speed:  %s/s\n", formatBytes(int64(avgSpeed)))
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Status: %s\n", s.Status)
	if s.ReportPath != "" {
		fmt.Fprintf(w, "Report: %s\n", s.ReportPath)
	}

	if len(s.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors:\n")
		for _, err := range s.Errors {
			fmt.Fprintf(w, "  %s: %s\n", err.LocalPath, err.Error)
		}
	}
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	if f.writer != nil {
		fmt.Fprintf(f.writer, "Error: %v\n", err)
	}
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

func displayPath(p string) string {
	if p == "" {
		return "."
	}
	return p
}

// formatBytes formats bytes in human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
