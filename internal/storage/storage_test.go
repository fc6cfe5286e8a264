package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIsImage(t *testing.T) {
	assert.True(t, IsImage("image/png"))
	assert.True(t, IsImage("IMAGE/JPEG; charset=binary"))
	assert.False(t, IsImage("application/pdf"))
	assert.False(t, IsImage(""))
}

func TestProofKey(t *testing.T) {
	key := ProofKey(42, "image/jpeg")
	assert.True(t, strings.HasPrefix(key, "proofs/42/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
	assert.NotEqual(t, key, ProofKey(42, "image/jpeg"))
}

func TestMemoryStore_PutGet(t *testing.T) {
	store := NewMemoryStore("http://localhost:8080/files/")

	ref, err := store.Put(context.Background(), "qr/1/a.png", strings.NewReader("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "qr/1/a.png", ref)

	data, ct, ok := store.Get(ref)
	require.True(t, ok)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, "http://localhost:8080/files/qr/1/a.png", store.URL(ref))

	_, _, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestS3Store_URL(t *testing.T) {
	ctx := context.Background()

	aws, err := NewS3Store(ctx, S3Config{Bucket: "proofs", Region: "ap-south-1", AccessKey: "k", SecretKey: "s"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "https://proofs.s3.ap-south-1.amazonaws.com/a/b.png", aws.URL("a/b.png"))

	minio, err := NewS3Store(ctx, S3Config{Bucket: "proofs", Region: "us-east-1", Endpoint: "http://minio:9000/", AccessKey: "k", SecretKey: "s"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/proofs/a/b.png", minio.URL("a/b.png"))
}
