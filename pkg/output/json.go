package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/sdejongh/drivesync/pkg/models"
)

// JSONFormatter prints a single JSON summary for automation and scripting
type JSONFormatter struct {
	writer    io.Writer
	operation *models.MirrorOperation
	fatal     string
}

// JSONReportData is the summary document
type JSONReportData struct {
	OperationID string          `json:"operation_id"`
	RootID      string          `json:"root_id"`
	LocalRoot   string          `json:"local_root"`
	DryRun      bool            `json:"dry_run"`
	Status      string          `json:"status"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
	Duration    string          `json:"duration"`
	DurationMs  int64           `json:"duration_ms"`
	Stats       JSONStatsData   `json:"stats"`
	ReportPath  string          `json:"report_path,omitempty"`
	Errors      []JSONErrorData `json:"errors,omitempty"`
	Fatal       string          `json:"fatal,omitempty"`
}

// JSONStatsData represents statistics in JSON format
type JSONStatsData struct {
	ContainersVisited int    `json:"containers_visited"`
	FilesEvaluated    int    `json:"files_evaluated"`
	FilesTransferred  int    `json:"files_transferred"`
	FilesSkipped      int    `json:"files_skipped"`
	FilesExcluded     int    `json:"files_excluded"`
	FoldersExcluded   int    `json:"folders_excluded"`
	FilesUnsupported  int    `json:"files_unsupported"`
	FilesErrored      int    `json:"files_errored"`
	BytesTransferred  int64  `json:"bytes_transferred"`
	AverageSpeed      int64  `json:"average_speed_bytes_per_sec,omitempty"`
	AverageSpeedStr   string `json:"average_speed,omitempty"`
}

// JSONErrorData represents an error entry
type JSONErrorData struct {
	Path     string `json:"path"`
	RemoteID string `json:"remote_id,omitempty"`
	Error    string `json:"error"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Start initializes the formatter
func (f *JSONFormatter) Start(writer io.Writer, op *models.MirrorOperation) error {
	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	f.operation = op
	return nil
}

// Progress is not streamed so the output stays a single document
func (f *JSONFormatter) Progress(update ProgressUpdate) error {
	return nil
}

// Complete writes the summary document
func (f *JSONFormatter) Complete(s *models.RunSummary) error {
	if f.writer == nil {
		f.writer = io.Discard
	}

	var avgSpeed int64
	var avgSpeedStr string
	if s.Duration.Seconds() > 0 && s.Stats.BytesTransferred > 0 {
		avgSpeed = int64(float64(s.Stats.BytesTransferred) / s.Duration.Seconds())
		avgSpeedStr = formatBytes(avgSpeed) + "/s"
	}

	var errors []JSONErrorData
	for _, e := range s.Errors {
		errors = append(errors, JSONErrorData{Path: e.LocalPath, RemoteID: e.RemoteID, Error: e.Error})
	}

	data := JSONReportData{
		OperationID: s.OperationID,
		RootID:      s.RootID,
		LocalRoot:   s.LocalRoot,
		DryRun:      s.DryRun,
		Status:      string(s.Status),
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		Duration:    s.Duration.Round(time.Millisecond).String(),
		DurationMs:  s.Duration.Milliseconds(),
		Stats: JSONStatsData{
			ContainersVisited: s.Stats.ContainersVisited,
			FilesEvaluated:    s.Stats.FilesEvaluated,
			FilesTransferred:  s.Stats.FilesTransferred,
			FilesSkipped:      s.Stats.FilesSkipped,
			FilesExcluded:     s.Stats.FilesExcluded,
			FoldersExcluded:   s.Stats.FoldersExcluded,
			FilesUnsupported:  s.Stats.FilesUnsupported,
			FilesErrored:      s.Stats.FilesErrored,
			BytesTransferred:  s.Stats.BytesTransferred,
			AverageSpeed:      avgSpeed,
			AverageSpeedStr:   avgSpeedStr,
		},
		ReportPath: s.ReportPath,
		Errors:     errors,
		Fatal:      f.fatal,
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Error remembers a fatal error for the summary
func (f *JSONFormatter) Error(err error) error {
	if err != nil {
		f.fatal = err.Error()
	}
	return nil
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}
