package models

import (
	"path/filepath"
	"time"
)

// ScopeKind selects which remote corpus a listing searches
type ScopeKind string

const (
	// ScopeSharedDrive confines listings to one shared drive
	ScopeSharedDrive ScopeKind = "drive"
	// ScopeAllDrives searches every container the credentials can see
	ScopeAllDrives ScopeKind = "allDrives"
)

// Scope is the corpus addressing mode, selected once per run
type Scope struct {
	Kind    ScopeKind
	DriveID string
}

// ErrorPolicy defines what the engine does when a single file fails
type ErrorPolicy string

const (
	// OnErrorAbort stops the run at the first error and writes no report
	OnErrorAbort ErrorPolicy = "abort"
	// OnErrorContinue records the failure and keeps walking
	OnErrorContinue ErrorPolicy = "continue"
)

// QueueOrder defines the pop order of pending work items
type QueueOrder string

const (
	// QueueStack pops the most recently pushed container first
	QueueStack QueueOrder = "stack"
	// QueueFIFO pops containers in discovery order
	QueueFIFO QueueOrder = "fifo"
)

// MirrorOperation represents one mirror run configuration
type MirrorOperation struct {
	ID              string
	RootID          string
	LocalRoot       string
	Scope           Scope
	ExcludePatterns []string
	DryRun          bool
	OnError         ErrorPolicy
	Queue           QueueOrder
	ReportDir       string
	BufferSize      int
	BandwidthLimit  int64 // bytes per second, 0 = unlimited
	CreatedAt       time.Time
}

// Label returns the name the session report is filed under
func (op *MirrorOperation) Label() string {
	return filepath.Base(op.LocalRoot)
}

// Validate checks if the operation configuration is valid
func (op *MirrorOperation) Validate() error {
	if op.RootID == "" {
		return &ValidationError{Field: "RootID", Message: "root container id is required"}
	}
	if op.Scope.Kind == ScopeSharedDrive && op.Scope.DriveID == "" {
		return &ValidationError{Field: "Scope.DriveID", Message: "shared drive scope needs a drive id"}
	}
	if op.LocalRoot == "" {
		return &ValidationError{Field: "LocalRoot", Message: "local root is required"}
	}
	if op.BufferSize < 4096 {
		return &ValidationError{Field: "BufferSize", Message: "buffer size must be at least 4096 bytes"}
	}
	switch op.OnError {
	case OnErrorAbort, OnErrorContinue:
	default:
		return &ValidationError{Field: "OnError", Message: "must be 'abort' or 'continue'"}
	}
	switch op.Queue {
	case QueueStack, QueueFIFO:
	default:
		return &ValidationError{Field: "Queue", Message: "must be 'stack' or 'fifo'"}
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
