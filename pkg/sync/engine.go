package sync

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sdejongh/drivesync/internal/platform"
	"github.com/sdejongh/drivesync/pkg/compare"
	"github.com/sdejongh/drivesync/pkg/logging"
	"github.com/sdejongh/drivesync/pkg/metrics"
	"github.com/sdejongh/drivesync/pkg/models"
	"github.com/sdejongh/drivesync/pkg/output"
	"github.com/sdejongh/drivesync/pkg/remote"
	"github.com/sdejongh/drivesync/pkg/storage"
	"github.com/sdejongh/drivesync/pkg/transfer"
)

// Transferer copies one remote file to a path relative to the mirror root
type Transferer interface {
	Fetch(ctx context.Context, entry models.RemoteEntry, destPath string, onProgress transfer.ProgressFunc) (int64, error)
}

// Engine walks a remote tree and mirrors every file into the local root.
// A run is single-threaded: one listing or transfer is in flight at a time.
type Engine struct {
	lister     remote.Lister
	transferer Transferer
	local      storage.Backend
	comparator *compare.Comparator
	reporter   *output.SessionReporter
	formatter  output.Formatter
	logger     logging.Logger
	metrics    *metrics.Collector
	excluder   *Excluder
	operation  *models.MirrorOperation
	out        io.Writer
}

// NewEngine creates a new mirror engine. local must be rooted at the
// operation's LocalRoot; reporter may be nil for dry runs.
func NewEngine(
	lister remote.Lister,
	transferer Transferer,
	local storage.Backend,
	comparator *compare.Comparator,
	reporter *output.SessionReporter,
	formatter output.Formatter,
	logger logging.Logger,
	operation *models.MirrorOperation,
) *Engine {
	if formatter == nil {
		formatter = output.NullFormatter{}
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Engine{
		lister:     lister,
		transferer: transferer,
		local:      local,
		comparator: comparator,
		reporter:   reporter,
		formatter:  formatter,
		logger:     logger,
		excluder:   NewExcluder(operation.ExcludePatterns),
		operation:  operation,
		out:        os.Stdout,
	}
}

// SetMetrics attaches a collector updated as the run progresses
func (e *Engine) SetMetrics(collector *metrics.Collector) {
	e.metrics = collector
}

// SetOutput changes where the formatter writes (stdout by default)
func (e *Engine) SetOutput(w io.Writer) {
	e.out = w
}

// run holds the state owned by a single Run call
type run struct {
	queue   *WorkQueue
	record  *models.SessionRecord
	summary *models.RunSummary
}

// Run mirrors the tree and writes the session report. The returned summary
// is never nil; the error is non-nil only when the run aborted.
func (e *Engine) Run(ctx context.Context) (*models.RunSummary, error) {
	op := e.operation
	r := &run{
		queue:  NewWorkQueue(op.Queue),
		record: models.NewSessionRecord(),
		summary: &models.RunSummary{
			OperationID: op.ID,
			RootID:      op.RootID,
			LocalRoot:   op.LocalRoot,
			Label:       op.Label(),
			DryRun:      op.DryRun,
			StartTime:   time.Now(),
		},
	}

	e.logger.Info(ctx, "Starting mirror operation", logging.Fields{
		"operation_id": op.ID,
		"root_id":      op.RootID,
		"local_root":   op.LocalRoot,
		"scope":        string(op.Scope.Kind),
		"queue":        string(op.Queue),
		"on_error":     string(op.OnError),
		"dry_run":      op.DryRun,
	})

	if err := e.formatter.Start(e.out, op); err != nil {
		e.logger.Warn(ctx, "Failed to start formatter", logging.Fields{"error": err.Error()})
	}

	r.queue.Push(models.WorkItem{ContainerID: op.RootID, LocalPath: op.LocalRoot})

	for r.queue.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return e.fail(ctx, r.summary, err)
		}
		item, _ := r.queue.Pop()
		if err := e.expand(ctx, r, item); err != nil {
			return e.fail(ctx, r.summary, err)
		}
	}

	if !op.DryRun && e.reporter != nil {
		reportPath, err := e.reporter.Write(r.record, op.Label())
		if err != nil {
			return e.fail(ctx, r.summary, err)
		}
		r.summary.ReportPath = reportPath
		e.logger.Info(ctx, "Metadata saved", logging.Fields{
			"report": reportPath,
			"files":  r.record.Len(),
		})
	}

	r.summary.Status = models.StatusSuccess
	if len(r.summary.Errors) > 0 {
		r.summary.Status = models.StatusPartial
	}
	e.finish(r.summary)

	if err := e.formatter.Complete(r.summary); err != nil {
		e.logger.Warn(ctx, "Failed to complete formatter", logging.Fields{"error": err.Error()})
	}

	e.logger.Info(ctx, "Mirror operation completed", logging.Fields{
		"operation_id":       op.ID,
		"status":             string(r.summary.Status),
		"duration":           r.summary.Duration.String(),
		"containers_visited": r.summary.Stats.ContainersVisited,
		"files_transferred":  r.summary.Stats.FilesTransferred,
		"files_skipped":      r.summary.Stats.FilesSkipped,
		"files_excluded":     r.summary.Stats.FilesExcluded,
		"folders_excluded":   r.summary.Stats.FoldersExcluded,
		"files_unsupported":  r.summary.Stats.FilesUnsupported,
		"files_errored":      r.summary.Stats.FilesErrored,
		"bytes_transferred":  r.summary.Stats.BytesTransferred,
	})

	return r.summary, nil
}

// expand lists one container and handles each child in listing order
func (e *Engine) expand(ctx context.Context, r *run, item models.WorkItem) error {
	r.summary.Stats.ContainersVisited++
	e.metrics.ContainerVisited()
	e.progress(output.ProgressUpdate{Type: output.UpdateContainerStart, Path: item.RelativePath})
	e.logger.Debug(ctx, "Listing container", logging.Fields{
		"id":   item.ContainerID,
		"path": item.LocalPath,
	})

	it := e.lister.List(ctx, item.ContainerID)
	defer func() { e.metrics.ListPages(it.Pages()) }()

	for it.Next() {
		entry := it.Entry()
		name := platform.SafeName(entry.Name)
		child := models.WorkItem{
			ContainerID:  entry.ID,
			LocalPath:    platform.ChildPath(item.LocalPath, entry.Name),
			RelativePath: platform.JoinRemote(item.RelativePath, name),
		}

		if e.excluder.Match(child.RelativePath, entry.IsContainer()) {
			if entry.IsContainer() {
				r.summary.Stats.FoldersExcluded++
			} else {
				r.summary.Stats.FilesExcluded++
				e.metrics.File(metrics.OutcomeExcluded)
			}
			e.logger.Debug(ctx, "Excluded", logging.Fields{"path": child.LocalPath, "id": entry.ID})
			e.progress(output.ProgressUpdate{Type: output.UpdateFileExcluded, Path: child.RelativePath})
			continue
		}

		switch entry.Kind {
		case models.KindContainer:
			r.queue.Push(child)
		case models.KindFile:
			if err := e.mirrorFile(ctx, r, entry, child); err != nil {
				if !e.shouldContinue(err) {
					return err
				}
				e.recordError(ctx, r, entry, child, err)
			}
		default:
			r.summary.Stats.FilesUnsupported++
			e.metrics.File(metrics.OutcomeUnsupported)
			e.logger.Warn(ctx, "Unsupported entry has no downloadable content", logging.Fields{
				"path":      child.LocalPath,
				"id":        entry.ID,
				"mime_type": entry.MimeType,
			})
			e.progress(output.ProgressUpdate{Type: output.UpdateFileUnsupported, Path: child.RelativePath})
		}
	}

	return it.Err()
}

// mirrorFile applies the decision rule to one file and fetches it when needed
func (e *Engine) mirrorFile(ctx context.Context, r *run, entry models.RemoteEntry, item models.WorkItem) error {
	stats := &r.summary.Stats
	stats.FilesEvaluated++
	storagePath := filepath.FromSlash(item.RelativePath)

	cmp, err := e.comparator.Compare(ctx, e.local, storagePath, entry.Fingerprint)
	if err != nil {
		return err
	}

	if cmp.Result == compare.Same {
		stats.FilesSkipped++
		e.metrics.File(metrics.OutcomeSkipped)
		e.logger.Info(ctx, "Skipping (unchanged)", logging.Fields{"path": item.LocalPath, "id": entry.ID})
		e.progress(output.ProgressUpdate{Type: output.UpdateFileSkip, Path: item.RelativePath})
		return nil
	}

	e.logger.Info(ctx, "Downloading", logging.Fields{
		"path":    item.LocalPath,
		"id":      entry.ID,
		"reason":  cmp.Reason,
		"dry_run": e.operation.DryRun,
	})
	e.progress(output.ProgressUpdate{
		Type:       output.UpdateFileStart,
		Path:       item.RelativePath,
		TotalBytes: entry.Size,
		DryRun:     e.operation.DryRun,
	})

	if e.operation.DryRun {
		stats.FilesTransferred++
		return nil
	}

	start := time.Now()
	written, err := e.transferer.Fetch(ctx, entry, storagePath, func(n int64) {
		e.progress(output.ProgressUpdate{
			Type:         output.UpdateFileProgress,
			Path:         item.RelativePath,
			BytesWritten: n,
			TotalBytes:   entry.Size,
		})
	})
	if err != nil {
		return err
	}

	stats.FilesTransferred++
	stats.BytesTransferred += written
	e.metrics.File(metrics.OutcomeTransferred)
	e.metrics.Transferred(written, time.Since(start))

	if replaced := r.record.Add(item.LocalPath, models.RecordEntry{ID: entry.ID, Fingerprint: entry.Fingerprint}); replaced {
		e.logger.Warn(ctx, "Remote entries share a local path, keeping the later one", logging.Fields{
			"path": item.LocalPath,
			"id":   entry.ID,
		})
	}

	e.progress(output.ProgressUpdate{
		Type:         output.UpdateFileComplete,
		Path:         item.RelativePath,
		BytesWritten: written,
		TotalBytes:   entry.Size,
	})
	return nil
}

// shouldContinue reports whether a per-file failure leaves the run going.
// Cancellation always stops the run.
func (e *Engine) shouldContinue(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return e.operation.OnError == models.OnErrorContinue
}

func (e *Engine) recordError(ctx context.Context, r *run, entry models.RemoteEntry, item models.WorkItem, err error) {
	r.summary.Stats.FilesErrored++
	r.summary.Errors = append(r.summary.Errors, models.FileError{
		LocalPath: item.LocalPath,
		RemoteID:  entry.ID,
		Error:     err.Error(),
		Timestamp: time.Now(),
	})
	e.metrics.File(metrics.OutcomeErrored)
	e.logger.Error(ctx, "File failed, continuing", err, logging.Fields{"path": item.LocalPath, "id": entry.ID})
	e.progress(output.ProgressUpdate{Type: output.UpdateFileError, Path: item.RelativePath, Error: err})
}

// fail ends an aborted run: no report is written, fetched files stay on disk
func (e *Engine) fail(ctx context.Context, summary *models.RunSummary, err error) (*models.RunSummary, error) {
	summary.Status = models.StatusFailed
	e.finish(summary)

	e.logger.Error(ctx, "Mirror operation aborted", err, logging.Fields{
		"operation_id":      e.operation.ID,
		"files_transferred": summary.Stats.FilesTransferred,
		"duration":          summary.Duration.String(),
	})
	e.formatter.Error(err)
	e.formatter.Complete(summary)

	return summary, err
}

func (e *Engine) finish(summary *models.RunSummary) {
	summary.EndTime = time.Now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime)
	e.metrics.Finish(summary)
}

func (e *Engine) progress(update output.ProgressUpdate) {
	_ = e.formatter.Progress(update)
}
