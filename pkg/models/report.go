package models

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"
)

// RecordEntry is the metadata kept for one transferred file
type RecordEntry struct {
	ID          string `json:"id"`
	Fingerprint string `json:"md5Checksum"`
}

// MarshalJSON always writes md5Checksum, as null when the remote has no digest
func (e RecordEntry) MarshalJSON() ([]byte, error) {
	var fingerprint *string
	if e.Fingerprint != "" {
		fingerprint = &e.Fingerprint
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(struct {
		ID          string  `json:"id"`
		Fingerprint *string `json:"md5Checksum"`
	}{ID: e.ID, Fingerprint: fingerprint})
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// SessionRecord maps local paths to the remote files transferred this run.
// It is built during traversal and written once at the end.
type SessionRecord struct {
	entries map[string]RecordEntry
}

// NewSessionRecord creates an empty session record
func NewSessionRecord() *SessionRecord {
	return &SessionRecord{entries: make(map[string]RecordEntry)}
}

// Add records a transfer. It reports whether the path was already present,
// which only happens when two remote entries alias the same local name.
func (r *SessionRecord) Add(localPath string, entry RecordEntry) bool {
	_, exists := r.entries[localPath]
	r.entries[localPath] = entry
	return exists
}

// Get returns the entry recorded for a local path
func (r *SessionRecord) Get(localPath string) (RecordEntry, bool) {
	entry, ok := r.entries[localPath]
	return entry, ok
}

// Len returns the number of recorded transfers
func (r *SessionRecord) Len() int {
	return len(r.entries)
}

// Paths returns the recorded local paths in lexical order
func (r *SessionRecord) Paths() []string {
	paths := make([]string, 0, len(r.entries))
	for p := range r.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// MarshalJSON encodes the record as a flat path -> entry object.
// Paths are written verbatim, without HTML escaping.
func (r *SessionRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.entries); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON decodes a report written by MarshalJSON
func (r *SessionRecord) UnmarshalJSON(data []byte) error {
	entries := make(map[string]RecordEntry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	r.entries = entries
	return nil
}

// Statistics holds mirror run counters
type Statistics struct {
	ContainersVisited int
	FilesEvaluated    int // Files that reached the skip/transfer decision
	FilesTransferred  int
	FilesSkipped      int // Already present with a matching fingerprint
	FilesExcluded     int
	FoldersExcluded   int // Excluded containers, never listed
	FilesUnsupported  int
	FilesErrored      int
	BytesTransferred  int64
}

// RunStatus represents the overall result
type RunStatus string

const (
	// StatusSuccess indicates every file was mirrored
	StatusSuccess RunStatus = "success"
	// StatusPartial indicates some files failed and the run continued
	StatusPartial RunStatus = "partial"
	// StatusFailed indicates the run aborted
	StatusFailed RunStatus = "failed"
)

// ExitCode returns the process exit code for the status
func (s RunStatus) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusPartial:
		return 1
	default:
		return 2
	}
}

// FileError records a per-file failure when the run continues past errors
type FileError struct {
	LocalPath string
	RemoteID  string
	Error     string
	Timestamp time.Time
}

// RunSummary describes a finished mirror run
type RunSummary struct {
	OperationID string
	RootID      string
	LocalRoot   string
	Label       string
	DryRun      bool

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Stats  Statistics
	Errors []FileError
	Status RunStatus

	// ReportPath is where the session record was written, empty when none was
	ReportPath string
}
