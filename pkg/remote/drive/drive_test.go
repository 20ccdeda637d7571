package drive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/sdejongh/drivesync/pkg/models"
	"github.com/sdejongh/drivesync/pkg/remote"
	"github.com/sdejongh/drivesync/pkg/retry"
)

type fakeFile struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	MimeType    string   `json:"mimeType"`
	Md5Checksum string   `json:"md5Checksum,omitempty"`
	Size        string   `json:"size,omitempty"`
	Parents     []string `json:"parents"`
}

// fakeDrive serves files.list and files.get?alt=media from memory
type fakeDrive struct {
	mu       sync.Mutex
	pageSize int
	children map[string][]fakeFile
	content  map[string]string

	// failures are consumed one per request, in order
	failures []int
	requests []*http.Request
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r)

	if len(f.failures) > 0 {
		code := f.failures[0]
		f.failures = f.failures[1:]
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		fmt.Fprintf(w, `{"error":{"code":%d,"message":"injected"}}`, code)
		return
	}

	switch {
	case strings.HasSuffix(r.URL.Path, "/files"):
		f.list(w, r)
	case strings.Contains(r.URL.Path, "/files/") && r.URL.Query().Get("alt") == "media":
		id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		body, ok := f.content[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"code":404,"message":"File not found"}}`)
			return
		}
		io.WriteString(w, body)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeDrive) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	parent := strings.TrimPrefix(q, "'")
	parent = parent[:strings.Index(parent, "'")]

	start := 0
	if tok := r.URL.Query().Get("pageToken"); tok != "" {
		fmt.Sscanf(tok, "%d", &start)
	}
	files := f.children[parent]
	end := start + f.pageSize
	if end > len(files) {
		end = len(files)
	}

	resp := map[string]interface{}{"files": files[start:end]}
	if end < len(files) {
		resp["nextPageToken"] = fmt.Sprintf("%d", end)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func newTestRemote(t *testing.T, fake *fakeDrive, scope models.Scope) *Remote {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := NewService(context.Background(), srv.Client(), option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	policy := retry.Policy{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Multiplier: 1}
	return New(svc, scope, WithRetryPolicy(policy))
}

func sampleDrive(pageSize int) *fakeDrive {
	return &fakeDrive{
		pageSize: pageSize,
		children: map[string][]fakeFile{
			"root": {
				{ID: "f1", Name: "a.txt", MimeType: "text/plain", Md5Checksum: "0CC175B9C0F1B6A831C399E269772661", Size: "1", Parents: []string{"root"}},
				{ID: "d1", Name: "sub", MimeType: FolderMimeType, Parents: []string{"root"}},
				{ID: "g1", Name: "Notes", MimeType: "application/vnd.google-apps.document", Parents: []string{"root"}},
				{ID: "s1", Name: "link", MimeType: ShortcutMimeType, Parents: []string{"root"}},
				{ID: "f2", Name: "c.bin", MimeType: "application/octet-stream", Size: "3", Parents: []string{"root"}},
			},
		},
		content: map[string]string{"f1": "a"},
	}
}

// ============== Listing Tests ==============

func TestListMapsKinds(t *testing.T) {
	r := newTestRemote(t, sampleDrive(10), models.Scope{Kind: models.ScopeAllDrives})

	entries, err := remote.Collect(r.List(context.Background(), "root"))
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("got %d entries, want 5", len(entries))
	}

	want := []models.EntryKind{models.KindFile, models.KindContainer, models.KindOther, models.KindOther, models.KindFile}
	for i, e := range entries {
		if e.Kind != want[i] {
			t.Errorf("%s kind = %s, want %s", e.Name, e.Kind, want[i])
		}
	}

	if entries[0].Fingerprint != "0cc175b9c0f1b6a831c399e269772661" {
		t.Errorf("fingerprint = %s, want lowercase hex", entries[0].Fingerprint)
	}
	if entries[0].Size != 1 || entries[0].Parents[0] != "root" {
		t.Errorf("metadata not decoded: %+v", entries[0])
	}
	if entries[4].HasFingerprint() {
		t.Error("file without md5Checksum should have no fingerprint")
	}
}

func TestListPagination(t *testing.T) {
	for _, pageSize := range []int{1, 2, 3, 5, 100} {
		t.Run(fmt.Sprintf("PageSize%d", pageSize), func(t *testing.T) {
			fake := sampleDrive(pageSize)
			r := newTestRemote(t, fake, models.Scope{Kind: models.ScopeAllDrives})

			it := r.List(context.Background(), "root")
			entries, err := remote.Collect(it)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(entries) != 5 {
				t.Errorf("got %d entries, want 5", len(entries))
			}

			wantPages := (5 + pageSize - 1) / pageSize
			if it.Pages() != wantPages {
				t.Errorf("Pages() = %d, want %d", it.Pages(), wantPages)
			}
		})
	}
}

func TestListQueryParameters(t *testing.T) {
	tests := []struct {
		name        string
		scope       models.Scope
		wantCorpora string
		wantDriveID string
	}{
		{"SharedDrive", models.Scope{Kind: models.ScopeSharedDrive, DriveID: "0AbCd"}, "drive", "0AbCd"},
		{"AllDrives", models.Scope{Kind: models.ScopeAllDrives}, "allDrives", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := sampleDrive(10)
			r := newTestRemote(t, fake, tt.scope)
			if _, err := remote.Collect(r.List(context.Background(), "root")); err != nil {
				t.Fatalf("List() error = %v", err)
			}

			q := fake.requests[0].URL.Query()
			checks := map[string]string{
				"q":                         "'root' in parents and trashed = false",
				"corpora":                   tt.wantCorpora,
				"driveId":                   tt.wantDriveID,
				"supportsAllDrives":         "true",
				"includeItemsFromAllDrives": "true",
				"pageSize":                  "1000",
				"fields":                    listFields,
			}
			for key, want := range checks {
				if got := q.Get(key); got != want {
					t.Errorf("%s = %q, want %q", key, got, want)
				}
			}
		})
	}
}

func TestListRetriesTransientFailures(t *testing.T) {
	fake := sampleDrive(10)
	fake.failures = []int{http.StatusTooManyRequests, http.StatusServiceUnavailable}
	r := newTestRemote(t, fake, models.Scope{Kind: models.ScopeAllDrives})

	entries, err := remote.Collect(r.List(context.Background(), "root"))
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 5 {
		t.Errorf("got %d entries, want 5", len(entries))
	}
	if len(fake.requests) != 3 {
		t.Errorf("requests = %d, want 3", len(fake.requests))
	}
}

func TestListPermanentFailure(t *testing.T) {
	fake := sampleDrive(10)
	fake.failures = []int{http.StatusNotFound}
	r := newTestRemote(t, fake, models.Scope{Kind: models.ScopeAllDrives})

	_, err := remote.Collect(r.List(context.Background(), "root"))

	var remoteErr *models.RemoteError
	if !errors.As(err, &remoteErr) || remoteErr.Op != "list" || remoteErr.ID != "root" {
		t.Fatalf("error = %v, want RemoteError list root", err)
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusNotFound {
		t.Errorf("cause = %v, want googleapi 404", err)
	}
	if len(fake.requests) != 1 {
		t.Errorf("requests = %d, want 1 (no retry on 404)", len(fake.requests))
	}
}

// ============== Download Tests ==============

func TestOpenDownloadsContent(t *testing.T) {
	fake := sampleDrive(10)
	r := newTestRemote(t, fake, models.Scope{Kind: models.ScopeAllDrives})

	rc, err := r.Open(context.Background(), "f1")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != "a" {
		t.Errorf("content = %q, want a", data)
	}
	if got := fake.requests[0].URL.Query().Get("supportsAllDrives"); got != "true" {
		t.Errorf("supportsAllDrives = %q, want true", got)
	}
}

func TestOpenRetriesThenFails(t *testing.T) {
	fake := sampleDrive(10)
	fake.failures = []int{500, 500, 500}
	r := newTestRemote(t, fake, models.Scope{Kind: models.ScopeAllDrives})

	_, err := r.Open(context.Background(), "f1")
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != 500 {
		t.Fatalf("error = %v, want googleapi 500", err)
	}
	if len(fake.requests) != 3 {
		t.Errorf("requests = %d, want 3 attempts", len(fake.requests))
	}
}

// ============== Classification Tests ==============

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"Nil", nil, false},
		{"Plain", errors.New("x"), false},
		{"TooManyRequests", &googleapi.Error{Code: 429}, true},
		{"ServerError", &googleapi.Error{Code: 502}, true},
		{"NotFound", &googleapi.Error{Code: 404}, false},
		{"Forbidden", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "insufficientFilePermissions"}}}, false},
		{"RateLimited", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retry.IsTransient(classify(tt.err)); got != tt.transient {
				t.Errorf("transient = %v, want %v", got, tt.transient)
			}
		})
	}
}

func TestEscapeQuery(t *testing.T) {
	if got := escapeQuery(`it's`); got != `it\'s` {
		t.Errorf("escapeQuery() = %s", got)
	}
}
