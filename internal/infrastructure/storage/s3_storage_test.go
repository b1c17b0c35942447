package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/garmentflow/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStorageConfig() *config.StorageConfig {
	return &config.StorageConfig{
		Enabled:           true,
		Bucket:            "tracking-photos",
		AccessKeyID:       "test-key",
		SecretAccessKey:   "test-secret",
		Region:            "us-east-1",
		Endpoint:          "http://localhost:9000",
		UsePathStyle:      true,
		PresignExpiration: 15 * time.Minute,
	}
}

func TestNewPhotoStore_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewPhotoStore(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.Bucket = ""
		_, err := NewPhotoStore(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("half a credential pair returns error", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.SecretAccessKey = ""
		_, err := NewPhotoStore(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be set together")
	})

	t.Run("valid config creates store", func(t *testing.T) {
		store, err := NewPhotoStore(testStorageConfig())
		require.NoError(t, err)
		assert.Equal(t, "tracking-photos", store.Bucket())
		assert.Equal(t, 15*time.Minute, store.ttl)
	})

	t.Run("default expiration applies when unset", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.PresignExpiration = 0
		store, err := NewPhotoStore(cfg)
		require.NoError(t, err)
		assert.Equal(t, 15*time.Minute, store.ttl)
	})

	t.Run("endpoint without scheme gets https", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.Endpoint = "minio.internal:9000"
		store, err := NewPhotoStore(cfg)
		require.NoError(t, err)

		url, _, err := store.GenerateUploadURL(context.Background(), "tracking/a.jpg", "image/jpeg", time.Minute)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, "https://minio.internal:9000/"))
	})
}

func TestNormalizeEndpoint(t *testing.T) {
	cases := map[string]string{
		"":                      "",
		"minio.internal:9000":   "https://minio.internal:9000",
		"http://localhost:9000": "http://localhost:9000",
	}
	for in, want := range cases {
		got, err := normalizeEndpoint(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := normalizeEndpoint("http://")
	assert.Error(t, err)
}

func TestPhotoStore_GenerateUploadURL(t *testing.T) {
	store, err := NewPhotoStore(testStorageConfig())
	require.NoError(t, err)

	t.Run("empty storage key returns error", func(t *testing.T) {
		url, _, err := store.GenerateUploadURL(context.Background(), "", "image/jpeg", 15*time.Minute)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage key is required")
		assert.Empty(t, url)
	})

	t.Run("generates a path-style presigned PUT", func(t *testing.T) {
		url, expiresAt, err := store.GenerateUploadURL(context.Background(), "tracking/order-1/photo.jpg", "image/jpeg", 10*time.Minute)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, "http://localhost:9000/tracking-photos/"))
		assert.Contains(t, url, "photo.jpg")
		assert.Contains(t, url, "X-Amz-Signature=")
		assert.Contains(t, url, "X-Amz-Expires=600")
		assert.True(t, expiresAt.After(time.Now()))
		assert.True(t, expiresAt.Before(time.Now().Add(11*time.Minute)))
	})

	t.Run("uses default expiration when not provided", func(t *testing.T) {
		url, _, err := store.GenerateUploadURL(context.Background(), "tracking/order-1/photo.png", "image/png", 0)
		require.NoError(t, err)
		assert.Contains(t, url, "X-Amz-Expires=900")
	})
}

func TestStubPhotoStore(t *testing.T) {
	store := NewStubPhotoStore()

	url, expiresAt, err := store.GenerateUploadURL(context.Background(), "tracking/x.webp", "image/webp", time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, store.BaseURL+"/tracking/x.webp?expires="))
	assert.WithinDuration(t, time.Now().Add(time.Minute), expiresAt, 5*time.Second)

	_, _, err = store.GenerateUploadURL(context.Background(), "", "image/webp", time.Minute)
	assert.Error(t, err)
	assert.NoError(t, store.Ping(context.Background()))
}
