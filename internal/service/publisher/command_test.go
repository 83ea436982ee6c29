package publisher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"

	"github.com/yzharold/RCAS/internal/domain/distribution"
	"github.com/yzharold/RCAS/internal/service/packager"
	"github.com/yzharold/RCAS/internal/testutil"
)

type upload struct {
	bucket      string
	key         string
	contentType string
	checksum    string
	data        []byte
}

type fakeStore struct {
	buckets map[string]bool
	uploads []upload
	failKey string
}

func (f *fakeStore) BucketExists(_ context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeStore) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.buckets[bucket] = true

	return nil
}

func (f *fakeStore) FPutObject(_ context.Context, bucket, key, filePath string,
	opts minio.PutObjectOptions,
) (minio.UploadInfo, error) {
	if key == f.failKey {
		return minio.UploadInfo{}, errors.New("connection reset")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return minio.UploadInfo{}, err
	}

	f.uploads = append(f.uploads, upload{
		bucket:      bucket,
		key:         key,
		contentType: opts.ContentType,
		checksum:    opts.UserMetadata[checksumMetadataKey],
		data:        data,
	})

	return minio.UploadInfo{Bucket: bucket, Key: key, Size: int64(len(data))}, nil
}

func buildDist(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	out := filepath.Join(dir, "dist")

	_, err := packager.Run(context.Background(), &packager.Options{
		SourceDir: testutil.WriteRCASTree(t, filepath.Join(dir, "src")),
		OutputDir: out,
	})
	require.NoError(t, err)

	return out
}

func TestPublish_CreatesBucketAndUploadsDescriptorLast(t *testing.T) {
	t.Parallel()

	dist := buildDist(t)
	store := &fakeStore{buckets: map[string]bool{}}

	result, err := publish(context.Background(), store, &Options{DistDir: dist, Bucket: "releases", KeyPrefix: "tools"})
	require.NoError(t, err)

	require.True(t, store.buckets["releases"])
	require.Equal(t, []string{
		"tools/RCAS/0.1.0/RCAS-0.1.0.tar.gz",
		"tools/RCAS/0.1.0/rcas-dist.yaml",
	}, result.Keys)

	require.Len(t, store.uploads, 2)
	require.Equal(t, archiveContentType, store.uploads[0].contentType)
	require.Equal(t, descriptorContentType, store.uploads[1].contentType)

	desc, err := distribution.LoadDir(dist)
	require.NoError(t, err)
	require.Equal(t, desc.Archive.Checksum, store.uploads[0].checksum)
	require.EqualValues(t, desc.Archive.Size, len(store.uploads[0].data))
}

func TestPublish_ExistingBucket(t *testing.T) {
	t.Parallel()

	store := &fakeStore{buckets: map[string]bool{"releases": true}}

	result, err := publish(context.Background(), store, &Options{DistDir: buildDist(t), Bucket: "releases"})
	require.NoError(t, err)
	require.Equal(t, "RCAS/0.1.0/rcas-dist.yaml", result.Keys[1])
}

func TestPublish_ArchiveFailureSkipsDescriptor(t *testing.T) {
	t.Parallel()

	store := &fakeStore{buckets: map[string]bool{}, failKey: "RCAS/0.1.0/RCAS-0.1.0.tar.gz"}

	_, err := publish(context.Background(), store, &Options{DistDir: buildDist(t), Bucket: "releases"})
	require.Error(t, err)
	require.Empty(t, store.uploads)
}

func TestPublish_RejectsTamperedArchive(t *testing.T) {
	t.Parallel()

	dist := buildDist(t)
	require.NoError(t, os.WriteFile(filepath.Join(dist, "RCAS-0.1.0.tar.gz"), []byte("not an archive"), 0o644))

	store := &fakeStore{buckets: map[string]bool{}}

	_, err := publish(context.Background(), store, &Options{DistDir: dist, Bucket: "releases"})
	require.ErrorIs(t, err, errArchiveChecksum)
	require.Empty(t, store.buckets)
}

func TestRun_RequiresSettings(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), &Options{Bucket: "b", AccessKey: "a", SecretKey: "s"})
	require.ErrorIs(t, err, errEndpointRequired)

	_, err = Run(context.Background(), &Options{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"})
	require.ErrorIs(t, err, errBucketRequired)

	_, err = Run(context.Background(), &Options{Endpoint: "localhost:9000", Bucket: "b"})
	require.ErrorIs(t, err, errCredentialsRequired)
}

func TestObjectKey(t *testing.T) {
	t.Parallel()

	require.Equal(t, "RCAS/0.1.0/rcas-dist.yaml", ObjectKey("", "RCAS", "0.1.0", "rcas-dist.yaml"))
	require.Equal(t, "a/b/RCAS/0.1.0/x", ObjectKey("a/b/", "RCAS", "0.1.0", "x"))
}
