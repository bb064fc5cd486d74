package testutil

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scenecore/blobstore"
)

func TestTree(t *testing.T) {
	rng := NewRNG(4711)
	sc := rng.Tree(32)

	require.NoError(t, sc.Validate())
	assert.Equal(t, []int{0}, sc.Roots)
	assert.Len(t, sc.Nodes, 32)

	parents := 0
	for i := range sc.Nodes {
		parents += len(sc.Nodes[i].Children)
	}
	assert.Equal(t, 31, parents, "every non-root node has exactly one parent")
}

func TestForest(t *testing.T) {
	sc := NewRNG(1).Forest(10, 3)
	require.NoError(t, sc.Validate())
	assert.Equal(t, []int{0, 1, 2}, sc.Roots)
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	a := rng.Tree(8)

	rng.Reset()
	b := rng.Tree(8)

	assert.Equal(t, a, b)
	assert.Equal(t, int64(4711), rng.Seed())
}

func TestReferenceTransforms_Chain(t *testing.T) {
	sc := Chain(4)
	got := ReferenceTransforms(sc, mgl32.Translate3D(5, 0, 0))

	for i, m := range got {
		want := mgl32.Translate3D(5, float32(i), 0)
		assert.True(t, want.ApproxEqualThreshold(m, 1e-6), "node %d: %v", i, m)
	}
}

func TestBindSkin_RestPoseIsIdentity(t *testing.T) {
	rng := NewRNG(7)
	sc := rng.Tree(16)
	rng.BindSkin(sc, []int{0, 3, 7, 15})
	require.NoError(t, sc.Validate())

	world := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.HomogRotate3DY(0.5))
	nodes := ReferenceTransforms(sc, world)
	joints := ReferenceJoints(sc, world, nodes)

	ident := []mgl32.Mat4{mgl32.Ident4(), mgl32.Ident4(), mgl32.Ident4(), mgl32.Ident4()}
	assert.Less(t, MaxAbsDiff(ident, joints), float32(1e-4))
}

func TestMaxAbsDiff(t *testing.T) {
	a := []mgl32.Mat4{mgl32.Ident4()}
	b := []mgl32.Mat4{mgl32.Translate3D(0, 0.5, 0)}
	assert.InDelta(t, 0.5, MaxAbsDiff(a, b), 1e-6)
	assert.Zero(t, MaxAbsDiff(a, a))
	assert.Greater(t, MaxAbsDiff(a, nil), float32(1e30))
}

func TestFaultyStore(t *testing.T) {
	ctx := context.Background()
	fs := NewFaultyStore(blobstore.NewMemoryStore())
	fs.AddRule("short", Fault{FailAfterBytes: 4})
	fs.AddRule("close", Fault{FailAfterBytes: -1, FailOnClose: true})
	fs.AddRule("create", Fault{FailAfterBytes: -1, FailOnCreate: true})

	require.NoError(t, fs.Put(ctx, "ok", []byte("hello world")))

	err := fs.Put(ctx, "short", []byte("hello world"))
	assert.ErrorIs(t, err, ErrInjected)

	err = fs.Put(ctx, "close", []byte("hello"))
	assert.ErrorIs(t, err, ErrInjected)

	_, err = fs.Create(ctx, "create")
	assert.ErrorIs(t, err, ErrInjected)

	names, err := fs.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, names, "failed blobs never become visible")
	assert.ElementsMatch(t, []string{"short", "close"}, fs.Aborted())
}
