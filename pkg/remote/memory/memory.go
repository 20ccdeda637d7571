// Package memory implements an in-process remote tree with paginated
// listings and failure injection.
package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/sdejongh/drivesync/pkg/models"
	"github.com/sdejongh/drivesync/pkg/remote"
)

// ErrNotFound is returned for unknown identifiers
var ErrNotFound = errors.New("not found")

type node struct {
	entry   models.RemoteEntry
	content []byte
}

type fault struct {
	err   error
	after int // bytes served before the failure, -1 fails on open
}

// Remote is an in-memory container tree
type Remote struct {
	rootID   string
	pageSize int

	nodes    map[string]*node
	children map[string][]string

	listFaults  map[string]error
	fetchFaults map[string]fault

	// ListCalls counts page requests per container
	ListCalls map[string]int
	// FetchCalls counts Open calls per file
	FetchCalls map[string]int
}

// New creates an empty tree whose root container is rootID
func New(rootID string) *Remote {
	r := &Remote{
		rootID:      rootID,
		pageSize:    100,
		nodes:       make(map[string]*node),
		children:    make(map[string][]string),
		listFaults:  make(map[string]error),
		fetchFaults: make(map[string]fault),
		ListCalls:   make(map[string]int),
		FetchCalls:  make(map[string]int),
	}
	r.nodes[rootID] = &node{entry: models.RemoteEntry{ID: rootID, Name: rootID, Kind: models.KindContainer}}
	return r
}

// SetPageSize changes how many children a single listing page holds
func (r *Remote) SetPageSize(n int) {
	if n < 1 {
		n = 1
	}
	r.pageSize = n
}

// RootID returns the root container identifier
func (r *Remote) RootID() string {
	return r.rootID
}

// AddContainer adds a child container under parentID
func (r *Remote) AddContainer(parentID, id, name string) {
	r.add(parentID, &node{entry: models.RemoteEntry{
		ID:       id,
		Name:     name,
		Kind:     models.KindContainer,
		MimeType: "inode/directory",
	}})
}

// AddFile adds a file whose fingerprint is the MD5 of content
func (r *Remote) AddFile(parentID, id, name string, content []byte) {
	r.AddFileWithFingerprint(parentID, id, name, content, md5Hex(content))
}

// AddFileWithFingerprint adds a file with an explicit, possibly empty, fingerprint
func (r *Remote) AddFileWithFingerprint(parentID, id, name string, content []byte, fingerprint string) {
	r.add(parentID, &node{
		entry: models.RemoteEntry{
			ID:          id,
			Name:        name,
			Kind:        models.KindFile,
			Fingerprint: fingerprint,
			MimeType:    "application/octet-stream",
			Size:        int64(len(content)),
		},
		content: append([]byte(nil), content...),
	})
}

// AddOther adds an entry without downloadable content
func (r *Remote) AddOther(parentID, id, name, mimeType string) {
	r.add(parentID, &node{entry: models.RemoteEntry{
		ID:       id,
		Name:     name,
		Kind:     models.KindOther,
		MimeType: mimeType,
	}})
}

// SetContent replaces a file's bytes and refreshes its fingerprint
func (r *Remote) SetContent(id string, content []byte) {
	n, ok := r.nodes[id]
	if !ok {
		panic(fmt.Sprintf("memory remote: unknown file %s", id))
	}
	n.content = append([]byte(nil), content...)
	n.entry.Size = int64(len(content))
	n.entry.Fingerprint = md5Hex(content)
}

// FailList makes every listing of containerID fail
func (r *Remote) FailList(containerID string, err error) {
	r.listFaults[containerID] = err
}

// FailFetch makes opening fileID fail
func (r *Remote) FailFetch(fileID string, err error) {
	r.fetchFaults[fileID] = fault{err: err, after: -1}
}

// FailFetchAfter makes the stream of fileID break after n bytes
func (r *Remote) FailFetchAfter(fileID string, n int, err error) {
	r.fetchFaults[fileID] = fault{err: err, after: n}
}

// ClearFaults removes all injected failures
func (r *Remote) ClearFaults() {
	r.listFaults = make(map[string]error)
	r.fetchFaults = make(map[string]fault)
}

func (r *Remote) add(parentID string, n *node) {
	parent, ok := r.nodes[parentID]
	if !ok || parent.entry.Kind != models.KindContainer {
		panic(fmt.Sprintf("memory remote: unknown container %s", parentID))
	}
	n.entry.Parents = []string{parentID}
	r.nodes[n.entry.ID] = n
	r.children[parentID] = append(r.children[parentID], n.entry.ID)
}

// List pages through the children of containerID
func (r *Remote) List(ctx context.Context, containerID string) *remote.Iterator {
	return remote.NewIterator(ctx, containerID, func(ctx context.Context, token string) ([]models.RemoteEntry, string, error) {
		r.ListCalls[containerID]++

		if err := r.listFaults[containerID]; err != nil {
			return nil, "", err
		}
		if n, ok := r.nodes[containerID]; !ok || n.entry.Kind != models.KindContainer {
			return nil, "", fmt.Errorf("container %s: %w", containerID, ErrNotFound)
		}

		start := 0
		if token != "" {
			var err error
			if start, err = strconv.Atoi(token); err != nil {
				return nil, "", fmt.Errorf("invalid page token %q", token)
			}
		}

		ids := r.children[containerID]
		end := start + r.pageSize
		if end > len(ids) {
			end = len(ids)
		}

		entries := make([]models.RemoteEntry, 0, end-start)
		for _, id := range ids[start:end] {
			entries = append(entries, r.nodes[id].entry)
		}

		next := ""
		if end < len(ids) {
			next = strconv.Itoa(end)
		}
		return entries, next, nil
	})
}

// Open returns the content of fileID
func (r *Remote) Open(ctx context.Context, fileID string) (io.ReadCloser, error) {
	r.FetchCalls[fileID]++

	n, ok := r.nodes[fileID]
	if !ok || n.entry.Kind != models.KindFile {
		return nil, fmt.Errorf("file %s: %w", fileID, ErrNotFound)
	}

	f, faulty := r.fetchFaults[fileID]
	if faulty && f.after < 0 {
		return nil, f.err
	}
	if faulty {
		return io.NopCloser(&failingReader{data: n.content, after: f.after, err: f.err}), nil
	}
	return io.NopCloser(bytes.NewReader(n.content)), nil
}

// Name returns the remote kind
func (r *Remote) Name() string {
	return "memory"
}

// failingReader serves up to after bytes and then fails
type failingReader struct {
	data  []byte
	after int
	pos   int
	err   error
}

func (f *failingReader) Read(p []byte) (int, error) {
	if f.pos >= f.after || f.pos >= len(f.data) {
		return 0, f.err
	}
	limit := f.after
	if limit > len(f.data) {
		limit = len(f.data)
	}
	n := copy(p, f.data[f.pos:limit])
	f.pos += n
	return n, nil
}

func md5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
