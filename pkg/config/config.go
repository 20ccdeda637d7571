package config

import (
	"github.com/sdejongh/drivesync/pkg/models"
	"github.com/sdejongh/drivesync/pkg/ratelimit"
)

// Remote kinds
const (
	RemoteDrive = "drive"
	RemoteS3    = "s3"
)

// Config represents the application configuration
type Config struct {
	Remote      RemoteConfig      `yaml:"remote" toml:"remote"`
	Sync        SyncConfig        `yaml:"sync" toml:"sync"`
	Performance PerformanceConfig `yaml:"performance" toml:"performance"`
	Output      OutputConfig      `yaml:"output" toml:"output"`
	Logging     LoggingConfig     `yaml:"logging" toml:"logging"`
	Report      ReportConfig      `yaml:"report" toml:"report"`
	Metrics     MetricsConfig     `yaml:"metrics" toml:"metrics"`
	Exclude     []string          `yaml:"exclude" toml:"exclude"`
}

// RemoteConfig selects the remote store and how to reach it
type RemoteConfig struct {
	Kind string `yaml:"kind" toml:"kind"` // "drive" or "s3"

	// Drive settings. SharedDriveID confines listings to one shared drive;
	// without it the root folder is searched across all drives.
	SharedDriveID   string `yaml:"shared_drive_id" toml:"shared_drive_id"`
	RootFolderID    string `yaml:"root_folder_id" toml:"root_folder_id"`
	TokenPath       string `yaml:"token_path" toml:"token_path"`
	CredentialsPath string `yaml:"credentials_path" toml:"credentials_path"`
	PageSize        int    `yaml:"page_size" toml:"page_size"`

	S3 S3Config `yaml:"s3" toml:"s3"`
}

// S3Config holds bucket settings for the s3 remote
type S3Config struct {
	Bucket   string `yaml:"bucket" toml:"bucket"`
	Prefix   string `yaml:"prefix" toml:"prefix"`
	Region   string `yaml:"region" toml:"region"`
	Endpoint string `yaml:"endpoint" toml:"endpoint"` // S3-compatible services (MinIO, ...)
}

// SyncConfig holds traversal settings
type SyncConfig struct {
	OnError models.ErrorPolicy `yaml:"on_error" toml:"on_error"`
	Queue   models.QueueOrder  `yaml:"queue" toml:"queue"`
	DryRun  bool               `yaml:"dry_run" toml:"dry_run"`
}

// PerformanceConfig holds performance-related settings
type PerformanceConfig struct {
	BufferSize int    `yaml:"buffer_size" toml:"buffer_size"`
	Bandwidth  string `yaml:"bandwidth" toml:"bandwidth"` // e.g. "10M", empty = unlimited
}

// OutputConfig holds console output settings
type OutputConfig struct {
	Format  string `yaml:"format" toml:"format"` // "human", "progress" or "json"
	Quiet   bool   `yaml:"quiet" toml:"quiet"`
	Verbose bool   `yaml:"verbose" toml:"verbose"`
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled    bool   `yaml:"enabled" toml:"enabled"`
	Dir        string `yaml:"dir" toml:"dir"`   // used when File is empty
	File       string `yaml:"file" toml:"file"` // explicit log file path
	Format     string `yaml:"format" toml:"format"`
	Level      string `yaml:"level" toml:"level"`
	MaxSize    int64  `yaml:"max_size" toml:"max_size"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	Compress   bool   `yaml:"compress" toml:"compress"`
	Console    bool   `yaml:"console" toml:"console"` // mirror log lines on stderr
}

// ReportConfig holds session report settings
type ReportConfig struct {
	Dir string `yaml:"dir" toml:"dir"`
}

// MetricsConfig holds metrics export settings
type MetricsConfig struct {
	File string `yaml:"file" toml:"file"` // Prometheus textfile, empty = disabled
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Remote: RemoteConfig{
			Kind:            RemoteDrive,
			TokenPath:       "token.json",
			CredentialsPath: "credentials.json",
			PageSize:        1000,
		},
		Sync: SyncConfig{
			OnError: models.OnErrorAbort,
			Queue:   models.QueueStack,
		},
		Performance: PerformanceConfig{
			BufferSize: 8 << 20,
		},
		Output: OutputConfig{
			Format: "human",
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Dir:        "logs",
			Format:     "text",
			Level:      "info",
			MaxSize:    10 << 20,
			MaxBackups: 3,
			Compress:   true,
			Console:    true,
		},
		Report: ReportConfig{
			Dir: "metadata",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Remote.Kind {
	case RemoteDrive:
		if c.Remote.TokenPath == "" {
			return &models.ValidationError{Field: "remote.token_path", Message: "is required for the drive remote"}
		}
		if c.Remote.PageSize < 1 || c.Remote.PageSize > 1000 {
			return &models.ValidationError{Field: "remote.page_size", Message: "must be between 1 and 1000"}
		}
	case RemoteS3:
		if c.Remote.S3.Bucket == "" {
			return &models.ValidationError{Field: "remote.s3.bucket", Message: "is required for the s3 remote"}
		}
	default:
		return &models.ValidationError{Field: "remote.kind", Message: "must be 'drive' or 's3'"}
	}

	switch c.Sync.OnError {
	case models.OnErrorAbort, models.OnErrorContinue:
	default:
		return &models.ValidationError{Field: "sync.on_error", Message: "must be 'abort' or 'continue'"}
	}

	switch c.Sync.Queue {
	case models.QueueStack, models.QueueFIFO:
	default:
		return &models.ValidationError{Field: "sync.queue", Message: "must be 'stack' or 'fifo'"}
	}

	if c.Performance.BufferSize < 4096 {
		return &models.ValidationError{Field: "performance.buffer_size", Message: "must be at least 4096 bytes"}
	}

	if _, err := c.BandwidthLimit(); err != nil {
		return &models.ValidationError{Field: "performance.bandwidth", Message: err.Error()}
	}

	validFormats := map[string]bool{"human": true, "progress": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{Field: "output.format", Message: "must be 'human', 'progress', or 'json'"}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{Field: "logging.format", Message: "must be 'json' or 'text'"}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{Field: "logging.level", Message: "must be 'debug', 'info', 'warn', or 'error'"}
	}

	if c.Logging.MaxSize < 0 || c.Logging.MaxBackups < 0 {
		return &models.ValidationError{Field: "logging.max_size", Message: "rotation settings cannot be negative"}
	}

	return nil
}

// BandwidthLimit returns the configured transfer cap in bytes per second
func (c *Config) BandwidthLimit() (int64, error) {
	if c.Performance.Bandwidth == "" {
		return 0, nil
	}
	return ratelimit.ParseRate(c.Performance.Bandwidth)
}

// Scope returns the listing scope implied by the remote settings
func (c *Config) Scope() models.Scope {
	if c.Remote.SharedDriveID != "" {
		return models.Scope{Kind: models.ScopeSharedDrive, DriveID: c.Remote.SharedDriveID}
	}
	return models.Scope{Kind: models.ScopeAllDrives}
}

// RootID returns the container the mirror starts from. A shared drive is
// its own root unless a folder inside it is named explicitly.
func (c *Config) RootID() string {
	if c.Remote.RootFolderID != "" {
		return c.Remote.RootFolderID
	}
	return c.Remote.SharedDriveID
}
