package output

import (
	"io"

	"github.com/sdejongh/drivesync/pkg/models"
)

// Update types emitted by the mirror engine
const (
	UpdateContainerStart  = "container_start"
	UpdateFileSkip        = "file_skip"
	UpdateFileStart       = "file_start"
	UpdateFileProgress    = "file_progress"
	UpdateFileComplete    = "file_complete"
	UpdateFileError       = "file_error"
	UpdateFileExcluded    = "file_excluded"
	UpdateFileUnsupported = "file_unsupported"
)

// ProgressUpdate represents a progress notification during a mirror run
type ProgressUpdate struct {
	Type         string
	Path         string // slash-separated path relative to the mirror root
	BytesWritten int64
	TotalBytes   int64
	DryRun       bool
	Error        error
}

// Formatter defines the interface for console output
// Implementations include human-readable, progress bar and JSON formatters
type Formatter interface {
	// Start initializes the formatter for a new mirror run
	Start(writer io.Writer, operation *models.MirrorOperation) error

	// Progress reports one traversal or transfer event
	Progress(update ProgressUpdate) error

	// Complete finalizes output and displays the summary
	Complete(summary *models.RunSummary) error

	// Error reports a fatal error
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// NullFormatter discards all output
type NullFormatter struct{}

// Start does nothing
func (NullFormatter) Start(io.Writer, *models.MirrorOperation) error { return nil }

// Progress does nothing
func (NullFormatter) Progress(ProgressUpdate) error { return nil }

// Complete does nothing
func (NullFormatter) Complete(*models.RunSummary) error { return nil }

// Error does nothing
func (NullFormatter) Error(error) error { return nil }

// Name returns the formatter name
func (NullFormatter) Name() string { return "null" }

// New returns the formatter registered under name
func New(name string, quiet bool) Formatter {
	switch name {
	case "json":
		return NewJSONFormatter()
	case "progress":
		if quiet {
			return NullFormatter{}
		}
		return NewProgressFormatter()
	default:
		if quiet {
			return NullFormatter{}
		}
		return NewHumanFormatter()
	}
}
