// Package drive lists and downloads Google Drive folder trees.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/sdejongh/drivesync/pkg/models"
	"github.com/sdejongh/drivesync/pkg/remote"
	"github.com/sdejongh/drivesync/pkg/retry"
)

// Drive mime types with special handling
const (
	FolderMimeType   = "application/vnd.google-apps.folder"
	ShortcutMimeType = "application/vnd.google-apps.shortcut"
	nativePrefix     = "application/vnd.google-apps."
)

// MaxPageSize is the largest page the files.list endpoint serves
const MaxPageSize = 1000

const listFields = "nextPageToken, files(id, name, mimeType, md5Checksum, size, parents)"

// Remote reads a Drive folder tree within one scope
type Remote struct {
	service  *gdrive.Service
	scope    models.Scope
	policy   retry.Policy
	pageSize int64
}

// Option configures a Remote
type Option func(*Remote)

// WithRetryPolicy replaces the default backoff
func WithRetryPolicy(p retry.Policy) Option {
	return func(r *Remote) {
		r.policy = p
	}
}

// WithPageSize sets the listing page size, capped at MaxPageSize
func WithPageSize(n int64) Option {
	return func(r *Remote) {
		if n > 0 && n <= MaxPageSize {
			r.pageSize = n
		}
	}
}

// NewService builds a Drive API client on top of an authorized HTTP client
func NewService(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*gdrive.Service, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return svc, nil
}

// New creates a Drive remote bound to scope
func New(service *gdrive.Service, scope models.Scope, opts ...Option) *Remote {
	r := &Remote{
		service:  service,
		scope:    scope,
		policy:   retry.DefaultPolicy(),
		pageSize: MaxPageSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the remote kind
func (r *Remote) Name() string {
	return "drive"
}

// List pages through the non-trashed children of a folder
func (r *Remote) List(ctx context.Context, folderID string) *remote.Iterator {
	return remote.NewIterator(ctx, folderID, func(ctx context.Context, token string) ([]models.RemoteEntry, string, error) {
		list, err := retry.DoValue(ctx, r.policy, func(ctx context.Context) (*gdrive.FileList, error) {
			call := r.listCall(folderID, token)
			fl, err := call.Context(ctx).Do()
			return fl, classify(err)
		})
		if err != nil {
			return nil, "", err
		}

		entries := make([]models.RemoteEntry, 0, len(list.Files))
		for _, f := range list.Files {
			entries = append(entries, toEntry(f))
		}
		return entries, list.NextPageToken, nil
	})
}

func (r *Remote) listCall(folderID, token string) *gdrive.FilesListCall {
	call := r.service.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(folderID))).
		Fields(listFields).
		PageSize(r.pageSize).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true)

	switch r.scope.Kind {
	case models.ScopeSharedDrive:
		call = call.Corpora("drive").DriveId(r.scope.DriveID)
	default:
		call = call.Corpora("allDrives")
	}

	if token != "" {
		call = call.PageToken(token)
	}
	return call
}

// Open downloads the content of a file. Retries stop once the body starts.
func (r *Remote) Open(ctx context.Context, fileID string) (io.ReadCloser, error) {
	resp, err := retry.DoValue(ctx, r.policy, func(ctx context.Context) (*http.Response, error) {
		resp, err := r.service.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
		return resp, classify(err)
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func toEntry(f *gdrive.File) models.RemoteEntry {
	e := models.RemoteEntry{
		ID:          f.Id,
		Name:        f.Name,
		MimeType:    f.MimeType,
		Fingerprint: strings.ToLower(f.Md5Checksum),
		Size:        f.Size,
		Parents:     f.Parents,
	}

	switch {
	case f.MimeType == FolderMimeType:
		e.Kind = models.KindContainer
	case strings.HasPrefix(f.MimeType, nativePrefix):
		e.Kind = models.KindOther
	default:
		e.Kind = models.KindFile
	}
	return e
}

// classify marks rate limiting and server failures as transient
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests, apiErr.Code >= 500:
		return retry.Transient(err)
	case apiErr.Code == http.StatusForbidden:
		for _, item := range apiErr.Errors {
			if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
				return retry.Transient(err)
			}
		}
	}
	return err
}

// escapeQuery escapes a value embedded in a single-quoted query literal
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
