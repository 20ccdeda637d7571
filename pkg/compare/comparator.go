package compare

import (
	"context"
	"strings"

	"github.com/sdejongh/drivesync/pkg/models"
	"github.com/sdejongh/drivesync/pkg/storage"
)

// Result represents the outcome of comparing a local file with a remote entry
type Result string

const (
	// Same indicates the local copy already holds the remote content
	Same Result = "same"
	// Different indicates the file must be transferred
	Different Result = "different"
)

// Comparison holds the result of one skip-vs-transfer decision
type Comparison struct {
	LocalPath         string
	RemoteFingerprint string
	LocalFingerprint  string
	Result            Result
	Reason            string
}

// Fingerprinter computes a content digest of a local file
type Fingerprinter interface {
	// Fingerprint returns the hex digest of the file at path
	Fingerprint(ctx context.Context, backend storage.Backend, path string) (string, error)

	// Name returns the name of the digest algorithm
	Name() string
}

// Comparator applies the decision rule: a file is skipped only when it
// exists locally and its digest equals the remote fingerprint.
type Comparator struct {
	fingerprinter Fingerprinter
}

// NewComparator creates a comparator backed by the given fingerprinter
func NewComparator(fingerprinter Fingerprinter) *Comparator {
	return &Comparator{fingerprinter: fingerprinter}
}

// Compare decides whether localPath must be fetched again
func (c *Comparator) Compare(ctx context.Context, local storage.Backend, localPath, remoteFingerprint string) (*Comparison, error) {
	cmp := &Comparison{
		LocalPath:         localPath,
		RemoteFingerprint: remoteFingerprint,
		Result:            Different,
	}

	// Without a remote digest nothing can prove the local copy is current
	if remoteFingerprint == "" {
		cmp.Reason = "remote fingerprint missing"
		return cmp, nil
	}

	exists, err := local.Exists(ctx, localPath)
	if err != nil {
		return nil, &models.IOError{Op: "fingerprint", Path: localPath, Err: err}
	}
	if !exists {
		cmp.Reason = "local file does not exist"
		return cmp, nil
	}

	digest, err := c.fingerprinter.Fingerprint(ctx, local, localPath)
	if err != nil {
		return nil, err
	}
	cmp.LocalFingerprint = digest

	if strings.EqualFold(digest, remoteFingerprint) {
		cmp.Result = Same
		cmp.Reason = c.fingerprinter.Name() + " fingerprints match"
		return cmp, nil
	}

	cmp.Reason = c.fingerprinter.Name() + " fingerprint mismatch"
	return cmp, nil
}
