package objectstore

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	defaultPartSize      = 10 * 1024 * 1024
	defaultPresignExpiry = 7 * 24 * time.Hour
)

// MinioConfig describes a MinIO or S3 compatible bucket.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
	// PresignExpiry bounds the validity of returned locators. Default: 7 days.
	PresignExpiry time.Duration
}

// MinioStore keeps uploads in a MinIO bucket. Locators are presigned HEAD URLs.
type MinioStore struct {
	client *minio.Client
	bucket string
	expiry time.Duration
	logger *slog.Logger
}

var _ Store = (*MinioStore)(nil)

// NewMinioStore connects to the bucket and creates it if it does not exist.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, storageFault(err)
	}

	logger := slog.Default().With("component", "minio", "bucket", cfg.Bucket)
	found, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		logger.Error("could not reach object storage", "err", err)
		return nil, storageFault(err)
	}
	if !found {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, storageFault(err)
		}
		logger.Info("created bucket")
	}

	expiry := cfg.PresignExpiry
	if expiry == 0 {
		expiry = defaultPresignExpiry
	}
	return &MinioStore{client: client, bucket: cfg.Bucket, expiry: expiry, logger: logger}, nil
}

// Upload stores r and returns a presigned HEAD URL as locator. The original
// file name is kept base64 encoded in the object's metadata.
func (s *MinioStore) Upload(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (*Object, error) {
	stored := PrependUniqueID(filename)
	opts := minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"encoded_original_filename": base64.StdEncoding.EncodeToString([]byte(filename)),
		},
	}
	if size < 0 {
		opts.PartSize = defaultPartSize
	}

	if _, err := s.client.PutObject(ctx, s.bucket, stored, r, size, opts); err != nil {
		s.logger.Error("upload failed", "file", filename, "err", err)
		return nil, storageFault(err)
	}

	signed, err := s.client.PresignedHeadObject(ctx, s.bucket, stored, s.expiry, nil)
	if err != nil {
		return nil, storageFault(err)
	}
	s.logger.Info("uploaded file", "file", filename, "stored", stored)
	return &Object{Filename: filename, StoredName: stored, Locator: signed.String()}, nil
}

// Contains stats the object. A NoSuchKey answer means false.
func (s *MinioStore) Contains(ctx context.Context, storedName string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, storedName, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, storageFault(err)
}

// Delete removes the object if it exists.
func (s *MinioStore) Delete(ctx context.Context, storedName string) (bool, error) {
	ok, err := s.Contains(ctx, storedName)
	if err != nil || !ok {
		return false, err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, storedName, minio.RemoveObjectOptions{}); err != nil {
		return false, storageFault(fmt.Errorf("remove %s: %w", storedName, err))
	}
	return true, nil
}
