package minio

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/knn/snapshot"
)

func TestMapError(t *testing.T) {
	assert.ErrorIs(t, mapError(minio.ErrorResponse{Code: "NoSuchKey"}), snapshot.ErrNotFound)
	assert.ErrorIs(t, mapError(minio.ErrorResponse{Code: "NotFound"}), snapshot.ErrNotFound)

	other := errors.New("boom")
	assert.Equal(t, other, mapError(other))
}

func TestKey(t *testing.T) {
	s := NewStore(nil, "b", "models/")
	assert.Equal(t, "models/a.knn", s.key("a.knn"))
	assert.Equal(t, "a.knn", NewStore(nil, "b", "").key("a.knn"))
}

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := "localhost:9000"
	accessKey := "minioadmin"
	secretKey := "minioadmin"
	bucket := "test-knn"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()

	// Check if MinIO is reachable
	if _, err = client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	// Ensure bucket exists
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "test-prefix/")

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "test.knn", data))

	got, err := store.Get(ctx, "test.knn")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "test.knn")

	require.NoError(t, store.Delete(ctx, "test.knn"))

	_, err = store.Get(ctx, "test.knn")
	assert.ErrorIs(t, err, snapshot.ErrNotFound)
}
