package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/joseph-ayodele/docindex/internal/common"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioStore keeps blobs in an S3-compatible bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

var _ Store = (*MinioStore)(nil)

// NewMinioStore connects and creates the bucket when it does not exist yet.
func NewMinioStore(ctx context.Context, cfg MinioConfig, logger *slog.Logger) (*MinioStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
		logger.Info("storage.minio.bucket_created", "bucket", cfg.Bucket)
	}
	return &MinioStore{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

func (s *MinioStore) Put(ctx context.Context, p string, data []byte, contentType string) (string, error) {
	key, err := cleanKey(p)
	if err != nil {
		return "", common.InvalidInputError(err.Error())
	}
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("minio put %s: %w", key, err)
	}
	return key, nil
}

func (s *MinioStore) Get(ctx context.Context, p string) ([]byte, Object, error) {
	key, err := cleanKey(p)
	if err != nil {
		return nil, Object{}, common.NotFoundError("file not found")
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, Object{}, s.mapErr(key, err)
	}
	defer func() { _ = obj.Close() }()

	info, err := obj.Stat()
	if err != nil {
		return nil, Object{}, s.mapErr(key, err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, Object{}, s.mapErr(key, err)
	}
	return data, toObject(info), nil
}

func (s *MinioStore) List(ctx context.Context, prefix string) ([]Object, error) {
	out := make([]Object, 0)
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, fmt.Errorf("minio list %s: %w", prefix, info.Err)
		}
		if len(info.Key) > 0 && info.Key[len(info.Key)-1] == '/' {
			continue
		}
		out = append(out, toObject(info))
	}
	return out, nil
}

func (s *MinioStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

func (s *MinioStore) Close() error { return nil }

func (s *MinioStore) mapErr(key string, err error) error {
	if minio.ToErrorResponse(err).StatusCode == http.StatusNotFound {
		return common.NotFoundError("file not found: " + key)
	}
	return fmt.Errorf("minio get %s: %w", key, err)
}

func toObject(info minio.ObjectInfo) Object {
	ct := info.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	return Object{
		Path:        info.Key,
		Filename:    path.Base(info.Key),
		Size:        info.Size,
		UpdatedAt:   info.LastModified.UTC(),
		ContentType: ct,
	}
}
