// Package transfer streams remote file content onto the local filesystem.
package transfer

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"time"

	"github.com/sdejongh/drivesync/pkg/models"
	"github.com/sdejongh/drivesync/pkg/ratelimit"
	"github.com/sdejongh/drivesync/pkg/remote"
	"github.com/sdejongh/drivesync/pkg/storage"
)

// DefaultBufferSize is the copy buffer used when none is configured
const DefaultBufferSize = 1 << 20

// Progress reporting thresholds
const (
	progressReportInterval = 50 * time.Millisecond
	progressReportBytes    = 64 * 1024
)

// ProgressFunc receives the number of bytes written so far
type ProgressFunc func(written int64)

// Service fetches remote files into a local backend
type Service struct {
	fetcher    remote.Fetcher
	local      storage.Backend
	limiter    *ratelimit.Limiter
	bufferSize int
}

// Option configures a Service
type Option func(*Service)

// WithLimiter throttles every download through limiter
func WithLimiter(limiter *ratelimit.Limiter) Option {
	return func(s *Service) {
		s.limiter = limiter
	}
}

// WithBufferSize sets the copy buffer size
func WithBufferSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.bufferSize = size
		}
	}
}

// NewService creates a transfer service
func NewService(fetcher remote.Fetcher, local storage.Backend, opts ...Option) *Service {
	s := &Service{
		fetcher:    fetcher,
		local:      local,
		bufferSize: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch downloads entry to destPath, truncating any existing file.
// A partially written file is left in place when the copy fails.
func (s *Service) Fetch(ctx context.Context, entry models.RemoteEntry, destPath string, onProgress ProgressFunc) (int64, error) {
	if err := s.local.MkdirAll(ctx, filepath.Dir(destPath)); err != nil {
		return 0, &models.IOError{Op: "mkdir", Path: filepath.Dir(destPath), Err: err}
	}

	src, err := s.fetcher.Open(ctx, entry.ID)
	if err != nil {
		return 0, fetchError(entry.ID, err)
	}
	src = ratelimit.NewReadCloser(ctx, src, s.limiter)
	defer src.Close()

	dst, err := s.local.Create(ctx, destPath)
	if err != nil {
		return 0, &models.IOError{Op: "write", Path: destPath, Err: err}
	}

	written, copyErr := s.copy(ctx, dst, src, entry.ID, destPath, onProgress)
	if closeErr := dst.Close(); closeErr != nil && copyErr == nil {
		copyErr = &models.IOError{Op: "write", Path: destPath, Err: closeErr}
	}
	return written, copyErr
}

// copy keeps remote read failures apart from local write failures
func (s *Service) copy(ctx context.Context, dst io.Writer, src io.Reader, id, destPath string, onProgress ProgressFunc) (int64, error) {
	buf := make([]byte, s.bufferSize)
	var written, lastReported int64
	lastReportTime := time.Now()

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, &models.IOError{Op: "write", Path: destPath, Err: err}
			}
			written += int64(n)

			if onProgress != nil && (written-lastReported >= progressReportBytes ||
				time.Since(lastReportTime) >= progressReportInterval) {
				onProgress(written)
				lastReported = written
				lastReportTime = time.Now()
			}
		}

		if readErr == io.EOF {
			if onProgress != nil && lastReported != written {
				onProgress(written)
			}
			return written, nil
		}
		if readErr != nil {
			return written, fetchError(id, readErr)
		}
	}
}

func fetchError(id string, err error) error {
	var remoteErr *models.RemoteError
	var authErr *models.AuthError
	if errors.As(err, &remoteErr) || errors.As(err, &authErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &models.RemoteError{Op: "fetch", ID: id, Err: err}
}
