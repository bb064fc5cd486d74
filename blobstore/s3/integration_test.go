package s3_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scenecore"
	"github.com/hupe1980/scenecore/blobstore"
	"github.com/hupe1980/scenecore/blobstore/s3"
	"github.com/hupe1980/scenecore/testutil"
)

func TestIntegration_CaptureRoundTrip(t *testing.T) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		t.Skip("Skipping S3 integration test: S3_BUCKET not set")
	}

	ctx := context.Background()
	cfg, err := config.LoadDefaultConfig(ctx)
	require.NoError(t, err)

	prefix := fmt.Sprintf("test-scenecore-%d/", time.Now().UnixNano())
	store := s3.NewStore(awss3.NewFromConfig(cfg), bucket, prefix)

	w, err := scenecore.New(scenecore.WithCaptureCompression("zstd"))
	require.NoError(t, err)
	defer w.Close()

	rng := testutil.NewRNG(3)
	for i := 0; i < 8; i++ {
		e, err := w.Spawn(ctx, rng.Tree(12), scenecore.SpawnOptions{})
		require.NoError(t, err)
		require.NoError(t, w.SetTransform(e, mgl32.Translate3D(float32(i), 0, 0)))
	}
	require.NoError(t, w.Update(ctx))

	name := "frame-000001.scap"
	st, err := w.Capture(ctx, store, name)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Delete(context.Background(), name) })

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, name)

	b, err := store.Open(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, int64(st.Written()), b.Size())
	require.NoError(t, b.Close())

	frame, err := w.ReadCapture(ctx, store, name)
	require.NoError(t, err)
	require.Len(t, frame.Entities, 8)
	for i, e := range frame.Entities {
		nodes, err := w.NodeTransforms(w.Entities()[i])
		require.NoError(t, err)
		assert.Equal(t, nodes.M[:len(e.Nodes)], e.Nodes)
	}

	_, err = store.Open(ctx, "nonexistent")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
