package cli

import (
	"fmt"

	"github.com/sdejongh/drivesync/pkg/config"
	"github.com/sdejongh/drivesync/pkg/models"
	"github.com/sdejongh/drivesync/pkg/remote/s3"
	"github.com/spf13/cobra"
)

// loadConfig loads configuration from file or returns default
func loadConfig() (*config.Config, error) {
	if globalFlags.ConfigFile != "" {
		return config.LoadFromFile(globalFlags.ConfigFile)
	}
	return config.LoadDefault()
}

// applyFlagsToConfig overrides config values with command-line flags
func applyFlagsToConfig(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	// Remote
	if mirrorFlags.Remote != "" {
		cfg.Remote.Kind = mirrorFlags.Remote
	}
	if mirrorFlags.SharedDriveID != "" {
		cfg.Remote.SharedDriveID = mirrorFlags.SharedDriveID
		cfg.Remote.RootFolderID = ""
	}
	if mirrorFlags.RootFolderID != "" {
		cfg.Remote.RootFolderID = mirrorFlags.RootFolderID
		cfg.Remote.SharedDriveID = ""
	}
	if mirrorFlags.TokenPath != "" {
		cfg.Remote.TokenPath = mirrorFlags.TokenPath
	}
	if mirrorFlags.CredentialsPath != "" {
		cfg.Remote.CredentialsPath = mirrorFlags.CredentialsPath
	}
	if mirrorFlags.S3Bucket != "" {
		cfg.Remote.S3.Bucket = mirrorFlags.S3Bucket
	}
	if mirrorFlags.S3Prefix != "" {
		cfg.Remote.S3.Prefix = mirrorFlags.S3Prefix
	}
	if mirrorFlags.S3Region != "" {
		cfg.Remote.S3.Region = mirrorFlags.S3Region
	}
	if mirrorFlags.S3Endpoint != "" {
		cfg.Remote.S3.Endpoint = mirrorFlags.S3Endpoint
	}

	// Traversal
	if flags.Changed("dry-run") {
		cfg.Sync.DryRun = mirrorFlags.DryRun
	}
	if mirrorFlags.OnError != "" {
		cfg.Sync.OnError = models.ErrorPolicy(mirrorFlags.OnError)
	}
	if mirrorFlags.Queue != "" {
		cfg.Sync.Queue = models.QueueOrder(mirrorFlags.Queue)
	}

	// Exclude patterns
	if len(mirrorFlags.Exclude) > 0 {
		cfg.Exclude = mirrorFlags.Exclude
	}

	if mirrorFlags.Bandwidth != "" {
		cfg.Performance.Bandwidth = mirrorFlags.Bandwidth
	}
	if mirrorFlags.ReportDir != "" {
		cfg.Report.Dir = mirrorFlags.ReportDir
	}
	if mirrorFlags.MetricsFile != "" {
		cfg.Metrics.File = mirrorFlags.MetricsFile
	}

	// Output format
	if mirrorFlags.Output != "" {
		cfg.Output.Format = mirrorFlags.Output
	}
	if globalFlags.Quiet {
		cfg.Output.Quiet = true
		cfg.Output.Verbose = false
	}
	if globalFlags.Verbose {
		cfg.Output.Verbose = true
	}

	// Logging
	if mirrorFlags.LogFile != "" {
		cfg.Logging.Enabled = true
		cfg.Logging.File = mirrorFlags.LogFile
	}
	if mirrorFlags.LogFormat != "" {
		cfg.Logging.Format = mirrorFlags.LogFormat
	}
	if mirrorFlags.LogLevel != "" {
		cfg.Logging.Level = mirrorFlags.LogLevel
	}
}

// validateMirrorConfig checks the merged configuration before anything runs
func validateMirrorConfig(cfg *config.Config) error {
	if err := cfg.ExpandPaths(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Remote.Kind == config.RemoteDrive && cfg.RootID() == "" {
		return fmt.Errorf("one of --shared-drive-id or --root-folder-id is required")
	}
	return nil
}

// rootIDFor returns the container the run starts from
func rootIDFor(cfg *config.Config) string {
	if cfg.Remote.Kind == config.RemoteS3 {
		return s3.RootID(cfg.Remote.S3.Prefix)
	}
	return cfg.RootID()
}
