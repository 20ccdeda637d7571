package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/sdejongh/drivesync/pkg/models"
	"github.com/sdejongh/drivesync/pkg/remote"
)

// fakeBucket emulates delimiter listing over a flat key space
type fakeBucket struct {
	objects map[string]string
	etags   map[string]string
	listErr error
	lists   int
}

func (f *fakeBucket) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}

	prefix := aws.ToString(in.Prefix)
	var keys []string
	seen := map[string]bool{}
	for key := range f.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			key = prefix + rest[:i+1]
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}
	end := start + int(aws.ToInt32(in.MaxKeys))
	if end > len(keys) {
		end = len(keys)
	}

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}
	for _, key := range keys[start:end] {
		if seen[key] && key != prefix {
			out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(key)})
			continue
		}
		out.Contents = append(out.Contents, types.Object{
			Key:  aws.String(key),
			ETag: aws.String(f.etags[key]),
			Size: aws.Int64(int64(len(f.objects[key]))),
		})
	}
	return out, nil
}

func (f *fakeBucket) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte(body)))}, nil
}

func newBucket() *fakeBucket {
	return &fakeBucket{
		objects: map[string]string{
			"data/":          "",
			"data/a.txt":     "a",
			"data/big.iso":   "multipart",
			"data/sub/b.txt": "b",
			"other.txt":      "o",
		},
		etags: map[string]string{
			"data/a.txt":     `"0CC175B9C0F1B6A831C399E269772661"`,
			"data/big.iso":   `"9b2cf535f27731c974343645a3985328-3"`,
			"data/sub/b.txt": `"92eb5ffee6ae2fec3ad71c777531578f"`,
		},
	}
}

func TestRootID(t *testing.T) {
	tests := map[string]string{
		"":      "/",
		"/":     "/",
		"data":  "data/",
		"data/": "data/",
		"/a/b/": "a/b/",
	}
	for in, want := range tests {
		if got := RootID(in); got != want {
			t.Errorf("RootID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestListPrefix(t *testing.T) {
	bucket := newBucket()
	r := New(bucket, "bucket")

	entries, err := remote.Collect(r.List(context.Background(), "data/"))
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	byName := map[string]models.RemoteEntry{}
	for _, e := range entries {
		byName[e.Name] = e
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries (%v), want 3 without the folder marker", len(entries), byName)
	}

	if sub := byName["sub"]; sub.Kind != models.KindContainer || sub.ID != "data/sub/" {
		t.Errorf("sub = %+v, want container data/sub/", sub)
	}
	if a := byName["a.txt"]; a.Fingerprint != "0cc175b9c0f1b6a831c399e269772661" || a.ID != "data/a.txt" {
		t.Errorf("a.txt = %+v", a)
	}
	if big := byName["big.iso"]; big.HasFingerprint() {
		t.Errorf("multipart ETag should not be a fingerprint: %+v", big)
	}
}

func TestListPagination(t *testing.T) {
	bucket := newBucket()
	r := New(bucket, "bucket")
	r.SetPageSize(1)

	it := r.List(context.Background(), RootID(""))
	entries, err := remote.Collect(it)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d root entries, want 2", len(entries))
	}
	if bucket.lists != 2 {
		t.Errorf("ListObjectsV2 calls = %d, want 2", bucket.lists)
	}
}

func TestListFailure(t *testing.T) {
	bucket := newBucket()
	bucket.listErr = errors.New("AccessDenied")

	_, err := remote.Collect(New(bucket, "bucket").List(context.Background(), "data/"))
	if !models.IsRemoteError(err) {
		t.Errorf("error = %v, want RemoteError", err)
	}
}

func TestOpen(t *testing.T) {
	r := New(newBucket(), "bucket")

	rc, err := r.Open(context.Background(), "data/sub/b.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "b" {
		t.Errorf("content = %q", data)
	}

	if _, err := r.Open(context.Background(), "missing"); err == nil {
		t.Error("Open() of a missing key should fail")
	}
}

func TestFingerprint(t *testing.T) {
	tests := map[string]string{
		`"d41d8cd98f00b204e9800998ecf8427e"`:   "d41d8cd98f00b204e9800998ecf8427e",
		`"9b2cf535f27731c974343645a3985328-3"`: "",
		"":                                     "",
		"W/abc":                                "",
	}
	for in, want := range tests {
		if got := fingerprint(in); got != want {
			t.Errorf("fingerprint(%q) = %q, want %q", in, got, want)
		}
	}
}
