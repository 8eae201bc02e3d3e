package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Options for the MinIO report store.
type Options struct {
	Endpoint   string
	Region     string
	BucketName string
	AccessKey  string
	SecretKey  string
	UseSSL     bool
}

type Store struct {
	client     *minio.Client
	bucketName string
	region     string
	logger     *zap.Logger
}

// New connects to MinIO and creates the bucket when missing.
func New(ctx context.Context, opts Options, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cli, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, opts.BucketName)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, opts.BucketName, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
		logger.Info("created report bucket", zap.String("bucket", opts.BucketName))
	}

	return &Store{client: cli, bucketName: opts.BucketName, region: opts.Region, logger: logger}, nil
}

// ReportKey is the object key of a report: <tenant>/<run id>/<file name>.
func ReportKey(tenant, runID, localPath string) string {
	if strings.TrimSpace(tenant) == "" {
		tenant = "local"
	}
	return path.Join(tenant, runID, filepath.Base(localPath))
}

func contentType(localPath string) string {
	switch strings.ToLower(filepath.Ext(localPath)) {
	case ".xlsx":
		return xlsxContentType
	case ".json":
		return "application/json"
	case ".log":
		return "text/plain"
	}
	return "application/octet-stream"
}

// Upload implements runs.ArtifactStore.
func (s *Store) Upload(ctx context.Context, localPath, key string) (string, error) {
	info, err := s.client.FPutObject(ctx, s.bucketName, key, localPath, minio.PutObjectOptions{
		ContentType: contentType(localPath),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	s.logger.Info("report uploaded", zap.String("key", key), zap.Int64("bytes", info.Size))

	// Public URL; private buckets need a presigned URL instead.
	return s.client.EndpointURL().JoinPath(s.bucketName, key).String(), nil
}

// Ping checks that the report bucket is reachable.
func (s *Store) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", s.bucketName)
	}
	return nil
}
