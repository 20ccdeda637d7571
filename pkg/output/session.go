package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/sdejongh/drivesync/pkg/models"
)

// DefaultReportDir is where session reports go unless configured otherwise
const DefaultReportDir = "metadata"

// ReportSuffix is appended to the label to form the report file name
const ReportSuffix = "_downloaded_metadata.json"

// SessionReporter writes session records as JSON reports
type SessionReporter struct {
	fs  afero.Fs
	dir string
}

// NewSessionReporter creates a reporter writing into dir on fs
func NewSessionReporter(fs afero.Fs, dir string) *SessionReporter {
	if dir == "" {
		dir = DefaultReportDir
	}
	return &SessionReporter{fs: fs, dir: dir}
}

// ReportPath returns the file a report with this label is written to
func (r *SessionReporter) ReportPath(label string) string {
	return filepath.Join(r.dir, label+ReportSuffix)
}

// Write replaces the report for label with record and returns its path.
// The document goes to a temporary file first and is renamed into place.
func (r *SessionReporter) Write(record *models.SessionRecord, label string) (string, error) {
	path := r.ReportPath(label)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(record); err != nil {
		return "", &models.IOError{Op: "report", Path: path, Err: fmt.Errorf("failed to encode report: %w", err)}
	}

	if err := r.fs.MkdirAll(r.dir, 0755); err != nil {
		return "", &models.IOError{Op: "report", Path: r.dir, Err: err}
	}

	tmp, err := afero.TempFile(r.fs, r.dir, "."+label+"-*.tmp")
	if err != nil {
		return "", &models.IOError{Op: "report", Path: path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		r.fs.Remove(tmpName)
		return "", &models.IOError{Op: "report", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		r.fs.Remove(tmpName)
		return "", &models.IOError{Op: "report", Path: path, Err: err}
	}
	if err := r.fs.Rename(tmpName, path); err != nil {
		r.fs.Remove(tmpName)
		return "", &models.IOError{Op: "report", Path: path, Err: err}
	}

	return path, nil
}

// ReadSessionReport loads a report written by Write
func ReadSessionReport(fs afero.Fs, path string) (*models.SessionRecord, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	record := models.NewSessionRecord()
	if err := json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return record, nil
}

// WriteSessionReport writes record to <dir>/<label>_downloaded_metadata.json
// on the OS filesystem
func WriteSessionReport(record *models.SessionRecord, dir, label string) (string, error) {
	return NewSessionReporter(afero.NewOsFs(), dir).Write(record, label)
}
