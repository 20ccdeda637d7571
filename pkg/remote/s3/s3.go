// Package s3 reads a bucket prefix tree as a remote folder hierarchy.
// Containers are key prefixes ending in "/"; the bucket root is "/".
package s3

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sdejongh/drivesync/pkg/models"
	"github.com/sdejongh/drivesync/pkg/remote"
)

const delimiter = "/"

// API is the subset of the S3 client the remote uses
type API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Config describes how to reach the bucket
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string // S3-compatible servers such as MinIO
	AccessKey string
	SecretKey string
}

// NewClient builds an S3 client. Without static keys the default AWS
// credential chain is used.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Remote lists and fetches objects of one bucket
type Remote struct {
	client   API
	bucket   string
	pageSize int32
}

// New creates a bucket remote
func New(client API, bucket string) *Remote {
	return &Remote{client: client, bucket: bucket, pageSize: 1000}
}

// SetPageSize changes the ListObjectsV2 page size
func (r *Remote) SetPageSize(n int32) {
	if n > 0 {
		r.pageSize = n
	}
}

// RootID turns a user supplied prefix into a container id.
// The bucket root is "/".
func RootID(prefix string) string {
	prefix = strings.Trim(prefix, delimiter)
	if prefix == "" {
		return delimiter
	}
	return prefix + delimiter
}

// Name returns the remote kind
func (r *Remote) Name() string {
	return "s3"
}

// List pages through the objects and sub-prefixes directly under prefix
func (r *Remote) List(ctx context.Context, containerID string) *remote.Iterator {
	prefix := containerID
	if prefix == delimiter {
		prefix = ""
	}
	return remote.NewIterator(ctx, containerID, func(ctx context.Context, token string) ([]models.RemoteEntry, string, error) {
		input := &s3.ListObjectsV2Input{
			Bucket:    aws.String(r.bucket),
			Prefix:    aws.String(prefix),
			Delimiter: aws.String(delimiter),
			MaxKeys:   aws.Int32(r.pageSize),
		}
		if token != "" {
			input.ContinuationToken = aws.String(token)
		}

		out, err := r.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, "", fmt.Errorf("list objects %s/%s: %w", r.bucket, prefix, err)
		}

		entries := make([]models.RemoteEntry, 0, len(out.CommonPrefixes)+len(out.Contents))
		for _, cp := range out.CommonPrefixes {
			p := aws.ToString(cp.Prefix)
			entries = append(entries, models.RemoteEntry{
				ID:      p,
				Name:    strings.TrimSuffix(strings.TrimPrefix(p, prefix), delimiter),
				Kind:    models.KindContainer,
				Parents: []string{prefix},
			})
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if key == prefix {
				// folder marker
				continue
			}
			entries = append(entries, models.RemoteEntry{
				ID:          key,
				Name:        strings.TrimPrefix(key, prefix),
				Kind:        models.KindFile,
				Fingerprint: fingerprint(aws.ToString(obj.ETag)),
				Size:        aws.ToInt64(obj.Size),
				Parents:     []string{prefix},
			})
		}

		next := ""
		if aws.ToBool(out.IsTruncated) {
			next = aws.ToString(out.NextContinuationToken)
		}
		return entries, next, nil
	})
}

// Open streams an object
func (r *Remote) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	return out.Body, nil
}

// fingerprint returns the ETag when it is a plain MD5 digest.
// Multipart ETags carry a "-N" suffix and are not content digests.
func fingerprint(etag string) string {
	etag = strings.Trim(etag, `"`)
	if len(etag) != 32 || strings.Contains(etag, "-") {
		return ""
	}
	return strings.ToLower(etag)
}
