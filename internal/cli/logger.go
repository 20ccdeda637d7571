package cli

import (
	"time"

	"github.com/sdejongh/drivesync/internal/platform"
	"github.com/sdejongh/drivesync/pkg/config"
	"github.com/sdejongh/drivesync/pkg/logging"
)

// createLogger creates the run logger: a rotated log file plus warnings on
// stderr. It returns the log file path, empty when file logging is off.
func createLogger(cfg *config.Config, rootID string, started time.Time) (logging.Logger, string, error) {
	level := logging.ParseLevel(cfg.Logging.Level)
	var loggers []logging.Logger

	path := ""
	if cfg.Logging.Enabled {
		path = cfg.Logging.File
		if path == "" {
			path = logging.DefaultFilePath(cfg.Logging.Dir, platform.SafeName(rootID), started)
		}

		// Parse log format
		format := logging.FormatText
		if cfg.Logging.Format == "json" {
			format = logging.FormatJSON
		}

		fileLogger, err := logging.NewFileLogger(logging.FileLoggerConfig{
			Path:       path,
			Format:     format,
			Level:      level,
			MaxSize:    cfg.Logging.MaxSize,
			MaxBackups: cfg.Logging.MaxBackups,
			Compress:   cfg.Logging.Compress,
		})
		if err != nil {
			return nil, "", err
		}
		loggers = append(loggers, fileLogger)
	}

	if cfg.Logging.Console && !cfg.Output.Quiet {
		// The formatter already prints per-file lines; the console only
		// carries problems unless verbose output was asked for
		consoleLevel := logging.WarnLevel
		if cfg.Output.Verbose {
			consoleLevel = level
		}
		consoleFormat := "console"
		if cfg.Output.Format == "json" {
			consoleFormat = "json"
		}
		loggers = append(loggers, logging.NewZapLogger(logging.ZapConfig{
			Level:  consoleLevel,
			Format: consoleFormat,
		}))
	}

	return logging.NewMultiLogger(loggers...), path, nil
}
