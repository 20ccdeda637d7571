package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/sdejongh/drivesync/pkg/auth"
	"github.com/sdejongh/drivesync/pkg/config"
	"github.com/sdejongh/drivesync/pkg/remote"
	"github.com/sdejongh/drivesync/pkg/remote/drive"
	"github.com/sdejongh/drivesync/pkg/remote/s3"
)

// buildRemote connects to the remote store named in the configuration
func buildRemote(ctx context.Context, cfg *config.Config) (remote.Remote, error) {
	switch cfg.Remote.Kind {
	case config.RemoteS3:
		client, err := s3.NewClient(ctx, s3.Config{
			Bucket:    cfg.Remote.S3.Bucket,
			Region:    cfg.Remote.S3.Region,
			Endpoint:  cfg.Remote.S3.Endpoint,
			AccessKey: os.Getenv("DRIVESYNC_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("DRIVESYNC_S3_SECRET_KEY"),
		})
		if err != nil {
			return nil, err
		}
		return s3.New(client, cfg.Remote.S3.Bucket), nil

	case config.RemoteDrive:
		httpClient, err := auth.Client(ctx, cfg.Remote.TokenPath, cfg.Remote.CredentialsPath, auth.LoginOptions{
			Out:     os.Stderr,
			OpenURL: openBrowser,
		})
		if err != nil {
			return nil, err
		}
		svc, err := drive.NewService(ctx, httpClient)
		if err != nil {
			return nil, err
		}
		return drive.New(svc, cfg.Scope(), drive.WithPageSize(int64(cfg.Remote.PageSize))), nil

	default:
		return nil, fmt.Errorf("unsupported remote: %s", cfg.Remote.Kind)
	}
}
