// Package remote defines the read-only view of a hierarchical file store:
// a paginated directory lister and a byte-stream fetcher.
package remote

import (
	"context"
	"errors"
	"io"

	"github.com/sdejongh/drivesync/pkg/models"
)

// Lister yields the direct children of a container
type Lister interface {
	// List returns a lazy, finite, non-restartable sequence of children
	List(ctx context.Context, containerID string) *Iterator
}

// Fetcher streams the content of a remote file
type Fetcher interface {
	// Open returns the file's bytes; the caller closes the stream
	Open(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// Remote is a store that can both list and fetch
type Remote interface {
	Lister
	Fetcher

	// Name identifies the remote kind in logs
	Name() string
}

// PageFunc fetches one listing page. An empty next token ends the listing.
type PageFunc func(ctx context.Context, token string) (entries []models.RemoteEntry, next string, err error)

// Iterator pulls entries page by page, advancing the continuation token
// only when the current page is exhausted
type Iterator struct {
	ctx         context.Context
	containerID string
	fetch       PageFunc

	page    []models.RemoteEntry
	pos     int
	token   string
	done    bool
	pages   int
	current models.RemoteEntry
	err     error
}

// NewIterator creates an iterator over the children of containerID
func NewIterator(ctx context.Context, containerID string, fetch PageFunc) *Iterator {
	return &Iterator{ctx: ctx, containerID: containerID, fetch: fetch}
}

// ErrorIterator returns an iterator that yields nothing and reports err
func ErrorIterator(containerID string, err error) *Iterator {
	return &Iterator{containerID: containerID, done: true, err: wrapListError(containerID, err)}
}

// Next advances to the next entry, fetching a new page when needed
func (it *Iterator) Next() bool {
	for {
		if it.err != nil {
			return false
		}
		if it.pos < len(it.page) {
			it.current = it.page[it.pos]
			it.pos++
			return true
		}
		if it.done {
			return false
		}

		entries, next, err := it.fetch(it.ctx, it.token)
		it.pages++
		if err != nil {
			it.err = wrapListError(it.containerID, err)
			return false
		}

		it.page = entries
		it.pos = 0
		it.token = next
		if next == "" {
			it.done = true
		}
	}
}

// Entry returns the entry Next moved to
func (it *Iterator) Entry() models.RemoteEntry {
	return it.current
}

// Err returns the first listing failure, if any
func (it *Iterator) Err() error {
	return it.err
}

// Pages returns how many pages were requested so far
func (it *Iterator) Pages() int {
	return it.pages
}

// Collect drains an iterator into a slice
func Collect(it *Iterator) ([]models.RemoteEntry, error) {
	var entries []models.RemoteEntry
	for it.Next() {
		entries = append(entries, it.Entry())
	}
	return entries, it.Err()
}

func wrapListError(containerID string, err error) error {
	var remoteErr *models.RemoteError
	var authErr *models.AuthError
	if errors.As(err, &remoteErr) || errors.As(err, &authErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &models.RemoteError{Op: "list", ID: containerID, Err: err}
}
