package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "s3", cfg.ObjectStoreType)
	assert.Equal(t, int64(5<<20), cfg.MaxFileSizeBytes())
	assert.Equal(t, int64(8<<20), cfg.UploadPartSizeBytes())
	assert.Equal(t, 8, cfg.UploadConcurrency)
	assert.Equal(t, 5*time.Minute, cfg.UploadTimeout)
	assert.Equal(t, time.Hour, cfg.SignedURLTTL)
	assert.Equal(t, "uploads", cfg.UploadKeyPrefix)
	assert.Empty(t, cfg.AllowedMIME)
}

func TestParseFallsBackToLegacyAliases(t *testing.T) {
	t.Setenv("AWS_S3_REGION", "eu-west-1")
	t.Setenv("AWS_S3_BUCKET", "legacy-bucket")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", cfg.AWSRegion)
	assert.Equal(t, "legacy-bucket", cfg.S3Bucket)
	assert.True(t, cfg.StoreConfigured())
}

func TestParsePrefersPrimaryNames(t *testing.T) {
	t.Setenv("AWS_REGION", "us-east-2")
	t.Setenv("AWS_S3_REGION", "eu-west-1")
	t.Setenv("S3_BUCKET", "primary")
	t.Setenv("AWS_S3_BUCKET", "legacy")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "us-east-2", cfg.AWSRegion)
	assert.Equal(t, "primary", cfg.S3Bucket)
}

func TestParseAllowedMIMEList(t *testing.T) {
	t.Setenv("ALLOWED_MIME", " image/* , ,text/plain")
	t.Setenv("MAX_FILE_SIZE_MB", "0.5")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, []string{"image/*", "text/plain"}, cfg.AllowedMIME)
	assert.Equal(t, int64(512*1024), cfg.MaxFileSizeBytes())
}

func TestParseClampsPartSizeToStoreMinimum(t *testing.T) {
	t.Setenv("UPLOAD_PART_SIZE_MB", "1")
	t.Setenv("UPLOAD_CONCURRENCY", "-3")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, int64(5<<20), cfg.UploadPartSizeBytes())
	assert.Equal(t, 1, cfg.UploadConcurrency)
}

func TestParseRejectsMalformedValues(t *testing.T) {
	t.Setenv("UPLOAD_TIMEOUT", "soon")

	_, err := Parse()
	require.ErrorIs(t, err, ErrParse)
}

func TestStoreConfiguredRequiresBucketAndRegion(t *testing.T) {
	t.Setenv("S3_BUCKET", "only-bucket")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.False(t, cfg.StoreConfigured())

	cfg.ObjectStoreType = "local"
	assert.True(t, cfg.StoreConfigured())
}
