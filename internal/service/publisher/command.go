// Package publisher uploads a built distribution to S3-compatible object storage.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yzharold/RCAS/internal/domain/distribution"
	"github.com/yzharold/RCAS/internal/logger"
	"github.com/yzharold/RCAS/internal/repository/sourcetree"
)

// Options controls a publish run.
type Options struct {
	// DistDir is the distribution directory written by the packager.
	DistDir string
	// Endpoint is the storage host[:port].
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseTLS    bool
	// KeyPrefix is prepended to every object key.
	KeyPrefix string
}

// Result lists the uploaded objects in upload order.
type Result struct {
	Bucket string
	Keys   []string
}

// objectStore is the part of the MinIO client the publisher needs.
type objectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucketName, objectName, filePath string,
		opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

const (
	archiveContentType    = "application/gzip"
	descriptorContentType = "application/yaml"

	// checksumMetadataKey carries the SHA-512 checksum of each object.
	checksumMetadataKey = "Rcas-Checksum"
)

var (
	errEndpointRequired    = errors.New("publish endpoint is required")
	errBucketRequired      = errors.New("publish bucket is required")
	errCredentialsRequired = errors.New("publish credentials are required")
	errArchiveChecksum     = errors.New("archive does not match its descriptor")
)

// Run uploads the archive and then the descriptor under <key prefix>/<name>/<version>/.
// The descriptor goes last so that readers never see it before its archive.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "rcas-publisher")

	switch {
	case opts.Endpoint == "":
		return nil, errEndpointRequired
	case opts.Bucket == "":
		return nil, errBucketRequired
	case opts.AccessKey == "" || opts.SecretKey == "":
		return nil, errCredentialsRequired
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return publish(ctx, client, opts)
}

func publish(ctx context.Context, store objectStore, opts *Options) (*Result, error) {
	desc, err := distribution.LoadDir(opts.DistDir)
	if err != nil {
		return nil, fmt.Errorf("load descriptor: %w", err)
	}

	archivePath := filepath.Join(opts.DistDir, desc.Archive.Name)

	sum, err := sourcetree.FileChecksum(archivePath)
	if err != nil {
		return nil, fmt.Errorf("checksum archive: %w", err)
	}

	if distribution.EncodeChecksum(sum) != desc.Archive.Checksum {
		return nil, fmt.Errorf("%w: %s", errArchiveChecksum, archivePath)
	}

	ctx = logger.WithKV(ctx, "bucket", opts.Bucket, "name", desc.Name, "version", desc.Version)

	if err = ensureBucket(ctx, store, opts.Bucket); err != nil {
		return nil, err
	}

	descriptorSum, err := sourcetree.FileChecksum(filepath.Join(opts.DistDir, distribution.DescriptorFilename))
	if err != nil {
		return nil, fmt.Errorf("checksum descriptor: %w", err)
	}

	uploads := []struct {
		name        string
		contentType string
		checksum    string
	}{
		{name: desc.Archive.Name, contentType: archiveContentType, checksum: desc.Archive.Checksum},
		{name: distribution.DescriptorFilename, contentType: descriptorContentType, checksum: distribution.EncodeChecksum(descriptorSum)},
	}

	result := &Result{Bucket: opts.Bucket}

	for _, u := range uploads {
		key := ObjectKey(opts.KeyPrefix, desc.Name, desc.Version, u.name)

		info, err := store.FPutObject(ctx, opts.Bucket, key, filepath.Join(opts.DistDir, u.name), minio.PutObjectOptions{
			ContentType:  u.contentType,
			UserMetadata: map[string]string{checksumMetadataKey: u.checksum},
		})
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", key, err)
		}

		logger.InfoKV(ctx, "Uploaded object", "key", key, "size", info.Size)
		result.Keys = append(result.Keys, key)
	}

	logger.Info(ctx, "Distribution published")

	return result, nil
}

func ensureBucket(ctx context.Context, store objectStore, bucket string) error {
	exists, err := store.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}

	if exists {
		return nil
	}

	logger.Info(ctx, "Creating bucket")

	if err = store.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}

	return nil
}

// ObjectKey returns the key of a distribution file in the bucket.
func ObjectKey(keyPrefix, name, version, file string) string {
	return path.Join(keyPrefix, name, version, file)
}
