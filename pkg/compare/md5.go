package compare

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"sync"

	"github.com/sdejongh/drivesync/pkg/models"
	"github.com/sdejongh/drivesync/pkg/storage"
)

// DefaultChunkSize matches the read size remote drives use for their own MD5
const DefaultChunkSize = 8 << 20

// MD5Fingerprinter computes MD5 digests of local files, streaming them in
// fixed-size chunks from a shared buffer pool
type MD5Fingerprinter struct {
	bufferSize int
	bufferPool *sync.Pool
}

// NewMD5Fingerprinter creates a fingerprinter reading bufferSize bytes at a time
func NewMD5Fingerprinter(bufferSize int) *MD5Fingerprinter {
	if bufferSize < 4096 {
		bufferSize = 4096
	}
	return &MD5Fingerprinter{
		bufferSize: bufferSize,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, bufferSize)
				return &buf
			},
		},
	}
}

// Fingerprint returns the hex MD5 of the file at path
func (f *MD5Fingerprinter) Fingerprint(ctx context.Context, backend storage.Backend, path string) (string, error) {
	reader, err := backend.Read(ctx, path)
	if err != nil {
		return "", &models.IOError{Op: "fingerprint", Path: path, Err: err}
	}
	defer reader.Close()

	hash := md5.New()
	bufPtr := f.bufferPool.Get().(*[]byte)
	defer f.bufferPool.Put(bufPtr)
	buf := *bufPtr

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, err := reader.Read(buf)
		if n > 0 {
			hash.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", &models.IOError{Op: "fingerprint", Path: path, Err: err}
		}
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// Name returns the digest algorithm name
func (f *MD5Fingerprinter) Name() string {
	return "md5"
}
