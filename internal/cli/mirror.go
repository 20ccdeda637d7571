package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sdejongh/drivesync/internal/platform"
	"github.com/sdejongh/drivesync/pkg/compare"
	"github.com/sdejongh/drivesync/pkg/config"
	"github.com/sdejongh/drivesync/pkg/logging"
	"github.com/sdejongh/drivesync/pkg/metrics"
	"github.com/sdejongh/drivesync/pkg/models"
	"github.com/sdejongh/drivesync/pkg/output"
	"github.com/sdejongh/drivesync/pkg/ratelimit"
	"github.com/sdejongh/drivesync/pkg/remote"
	"github.com/sdejongh/drivesync/pkg/storage"
	"github.com/sdejongh/drivesync/pkg/sync"
	"github.com/sdejongh/drivesync/pkg/transfer"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// MirrorFlags holds mirror command flags
type MirrorFlags struct {
	SharedDriveID   string
	RootFolderID    string
	TokenPath       string
	CredentialsPath string
	OutputDirectory string
	Remote          string
	S3Bucket        string
	S3Prefix        string
	S3Region        string
	S3Endpoint      string
	DryRun          bool
	Exclude         []string
	Bandwidth       string
	OnError         string
	Queue           string
	ReportDir       string
	MetricsFile     string
	Output          string
	// Logging flags
	LogFile   string
	LogFormat string
	LogLevel  string
}

var mirrorFlags MirrorFlags

// NewMirrorCommand creates the mirror command
func NewMirrorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Mirror a remote folder tree into a local directory",
		Long: `Walk a Google Drive folder (or shared drive) recursively and download
every file into a local directory. Files already present with a matching
MD5 checksum are skipped, so re-running only fetches what changed.
The files fetched during the run are recorded in a JSON report.`,
		Example: `  drivesync mirror --shared-drive-id 0ABcd --token-path token.json --output-directory ./team
  drivesync mirror --root-folder-id 1XyZ --token-path token.json --credentials-path credentials.json --output-directory ./docs
  drivesync mirror --remote s3 --s3-bucket archive --s3-prefix reports/ --output-directory ./reports`,
		RunE: runMirror,
	}

	// Remote selection
	cmd.Flags().StringVar(&mirrorFlags.SharedDriveID, "shared-drive-id", "", "shared drive to mirror")
	cmd.Flags().StringVar(&mirrorFlags.RootFolderID, "root-folder-id", "", "regular drive folder to mirror")
	cmd.MarkFlagsMutuallyExclusive("shared-drive-id", "root-folder-id")
	cmd.Flags().StringVar(&mirrorFlags.TokenPath, "token-path", "", "path to token.json")
	cmd.Flags().StringVar(&mirrorFlags.CredentialsPath, "credentials-path", "", "path to credentials.json (for first run)")
	cmd.Flags().StringVar(&mirrorFlags.Remote, "remote", "", "remote kind: drive, s3")
	cmd.Flags().StringVar(&mirrorFlags.S3Bucket, "s3-bucket", "", "bucket for the s3 remote")
	cmd.Flags().StringVar(&mirrorFlags.S3Prefix, "s3-prefix", "", "key prefix to mirror from the bucket")
	cmd.Flags().StringVar(&mirrorFlags.S3Region, "s3-region", "", "bucket region")
	cmd.Flags().StringVar(&mirrorFlags.S3Endpoint, "s3-endpoint", "", "endpoint of an S3-compatible server")

	// Required flags
	cmd.Flags().StringVarP(&mirrorFlags.OutputDirectory, "output-directory", "d", "", "local directory to save files (required)")
	cmd.MarkFlagRequired("output-directory")

	// Optional flags
	cmd.Flags().BoolVar(&mirrorFlags.DryRun, "dry-run", false, "decide and log, but download nothing")
	cmd.Flags().StringSliceVar(&mirrorFlags.Exclude, "exclude", []string{}, "glob patterns to exclude")
	cmd.Flags().StringVarP(&mirrorFlags.Bandwidth, "bandwidth", "b", "", "bandwidth limit (e.g., \"10M\", \"1G\")")
	cmd.Flags().StringVar(&mirrorFlags.OnError, "on-error", "", "per-file failure policy: abort, continue")
	cmd.Flags().StringVar(&mirrorFlags.Queue, "queue", "", "traversal order: stack (depth-first), fifo (breadth-first)")
	cmd.Flags().StringVar(&mirrorFlags.ReportDir, "report-dir", "", "directory for the session report (default \"metadata\")")
	cmd.Flags().StringVar(&mirrorFlags.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file at the end of the run")
	cmd.Flags().StringVarP(&mirrorFlags.Output, "output", "o", "", "output format: human, progress, json")

	// Logging flags
	cmd.Flags().StringVar(&mirrorFlags.LogFile, "log-file", "", "log file (default logs/download_<id>_<timestamp>.log)")
	cmd.Flags().StringVar(&mirrorFlags.LogFormat, "log-format", "", "log format: text, json")
	cmd.Flags().StringVar(&mirrorFlags.LogLevel, "log-level", "", "log level: debug, info, warn, error")

	return cmd
}

func runMirror(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with command-line flags
	applyFlagsToConfig(cmd, cfg)

	if err := validateMirrorConfig(cfg); err != nil {
		return err
	}

	started := time.Now()
	rootID := rootIDFor(cfg)

	// Create logger
	logger, logPath, err := createLogger(cfg, rootID, started)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	// Create mirror operation
	operation, err := createMirrorOperation(cfg, rootID, mirrorFlags.OutputDirectory, started)
	if err != nil {
		return fmt.Errorf("failed to create mirror operation: %w", err)
	}
	logger = logger.WithFields(logging.Fields{"operation_id": operation.ID})
	if logPath != "" {
		logger.Debug(ctx, "Logging to file", logging.Fields{"log_file": logPath})
	}

	// Connect to the remote
	rem, err := buildRemote(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "Failed to connect to remote", err, nil)
		return &ExitError{Code: models.StatusFailed.ExitCode(), Err: err}
	}

	var collector *metrics.Collector
	if cfg.Metrics.File != "" {
		collector = metrics.NewCollector(rem.Name())
	}

	summary, runErr := executeMirror(ctx, afero.NewOsFs(), os.Stdout, cfg, rem, operation, logger, collector)

	if collector != nil {
		if err := collector.WriteTextfile(cfg.Metrics.File); err != nil {
			logger.Warn(ctx, "Failed to write metrics file", logging.Fields{"path": cfg.Metrics.File, "error": err.Error()})
		}
	}

	return exitFor(summary, runErr)
}

// executeMirror wires the collaborators around the engine and runs it
func executeMirror(
	ctx context.Context,
	fs afero.Fs,
	out io.Writer,
	cfg *config.Config,
	rem remote.Remote,
	operation *models.MirrorOperation,
	logger logging.Logger,
	collector *metrics.Collector,
) (*models.RunSummary, error) {
	local, err := storage.NewLocalFs(fs, operation.LocalRoot)
	if err != nil {
		return nil, &models.IOError{Op: "mkdir", Path: operation.LocalRoot, Err: err}
	}
	defer local.Close()

	transferer := transfer.NewService(rem, local,
		transfer.WithLimiter(ratelimit.NewLimiter(operation.BandwidthLimit)),
		transfer.WithBufferSize(operation.BufferSize),
	)
	comparator := compare.NewComparator(compare.NewMD5Fingerprinter(operation.BufferSize))
	reporter := output.NewSessionReporter(fs, operation.ReportDir)

	formatter := output.New(cfg.Output.Format, cfg.Output.Quiet)
	if human, ok := formatter.(*output.HumanFormatter); ok {
		human.SetVerbose(cfg.Output.Verbose)
	}

	engine := sync.NewEngine(rem, transferer, local, comparator, reporter, formatter, logger, operation)
	engine.SetOutput(out)
	engine.SetMetrics(collector)

	return engine.Run(ctx)
}

// exitFor maps a run outcome onto the process exit code
func exitFor(summary *models.RunSummary, err error) error {
	if err != nil {
		return &ExitError{Code: models.StatusFailed.ExitCode(), Err: fmt.Errorf("mirror failed: %w", err)}
	}
	if code := summary.Status.ExitCode(); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// createMirrorOperation builds the run description from the merged config
func createMirrorOperation(cfg *config.Config, rootID, outputDir string, started time.Time) (*models.MirrorOperation, error) {
	if err := platform.ValidatePath(outputDir); err != nil {
		return nil, err
	}
	localRoot, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	localRoot = platform.NormalizePath(localRoot)

	bandwidth, err := cfg.BandwidthLimit()
	if err != nil {
		return nil, err
	}

	scope := models.Scope{Kind: models.ScopeAllDrives}
	if cfg.Remote.Kind == config.RemoteDrive {
		scope = cfg.Scope()
	}

	operation := &models.MirrorOperation{
		ID:              uuid.New().String(),
		RootID:          rootID,
		LocalRoot:       localRoot,
		Scope:           scope,
		ExcludePatterns: cfg.Exclude,
		DryRun:          cfg.Sync.DryRun,
		OnError:         cfg.Sync.OnError,
		Queue:           cfg.Sync.Queue,
		ReportDir:       cfg.Report.Dir,
		BufferSize:      cfg.Performance.BufferSize,
		BandwidthLimit:  bandwidth,
		CreatedAt:       started,
	}

	if err := operation.Validate(); err != nil {
		return nil, err
	}
	return operation, nil
}
