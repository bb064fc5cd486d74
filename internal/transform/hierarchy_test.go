package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scenecore/scene"
)

func nodes(children ...[]int) []scene.Node {
	out := make([]scene.Node, len(children))
	for i, c := range children {
		out[i] = scene.Node{Children: c, Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}}
	}
	return out
}

func TestBuildHierarchy_ParentTable(t *testing.T) {
	// R=0 -> [A=1, B=2], A -> [C=3]
	sc := &scene.Scene{Roots: []int{0}, Nodes: nodes([]int{1, 2}, []int{3}, nil, nil)}

	h, err := BuildHierarchy(sc)
	require.NoError(t, err)

	assert.Equal(t, int32(4), h.NodeCount)
	assert.Equal(t, []int32{0, 0, 0, 1}, h.Parents[:4])
	assert.True(t, h.IsRoot(0))
	assert.False(t, h.IsRoot(3))
	assert.Equal(t, uint64(0b1111), h.Renderable)
	assert.Zero(t, h.Unreachable)
}

func TestBuildHierarchy_MultipleRoots(t *testing.T) {
	sc := &scene.Scene{Roots: []int{2, 0}, Nodes: nodes([]int{1}, nil, []int{3}, nil)}

	h, err := BuildHierarchy(sc)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 0, 2, 2}, h.Parents[:4])
	assert.True(t, h.IsRenderable(3))
}

func TestBuildHierarchy_Unreachable(t *testing.T) {
	// 0 is the only declared root; 2 -> [3] hangs off nothing.
	sc := &scene.Scene{Roots: []int{0}, Nodes: nodes([]int{1}, nil, []int{3}, nil)}

	h, err := BuildHierarchy(sc)
	require.NoError(t, err)

	assert.Equal(t, uint64(0b0011), h.Renderable)
	assert.Equal(t, uint64(0b1100), h.Unreachable)
	assert.True(t, h.IsRoot(2), "top of an unreachable subtree is its own parent")
	assert.Equal(t, int32(2), h.Parents[3], "unreachable subtrees keep their parent links")
	assert.False(t, h.IsRenderable(3))
}

func TestBuildHierarchy_Errors(t *testing.T) {
	tooMany := &scene.Scene{Roots: []int{0}, Nodes: make([]scene.Node, MaxNodes+1)}

	tests := []struct {
		name string
		sc   *scene.Scene
		want error
		node int
	}{
		{"nil scene", nil, ErrMissingRoot, -1},
		{"too many nodes", tooMany, ErrTooManyNodes, -1},
		{"no roots", &scene.Scene{Nodes: nodes([]int(nil))}, ErrMissingRoot, -1},
		{"root out of range", &scene.Scene{Roots: []int{3}, Nodes: nodes([]int(nil))}, ErrMissingRoot, 3},
		{"child out of range", &scene.Scene{Roots: []int{0}, Nodes: nodes([]int{9})}, ErrInvalidChild, 9},
		{"cycle through root", &scene.Scene{Roots: []int{0}, Nodes: nodes([]int{1}, []int{0})}, ErrCycle, 0},
		{"self child", &scene.Scene{Roots: []int{0}, Nodes: nodes([]int{0})}, ErrCycle, 0},
		{"shared child", &scene.Scene{Roots: []int{0}, Nodes: nodes([]int{1, 2}, []int{3}, []int{3}, nil)}, ErrCycle, 3},
		{"detached cycle", &scene.Scene{Roots: []int{0}, Nodes: nodes(nil, []int{2}, []int{1})}, ErrCycle, 1},
		{"root listed twice", &scene.Scene{Roots: []int{0, 0}, Nodes: nodes([]int(nil))}, ErrCycle, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildHierarchy(tt.sc)
			require.ErrorIs(t, err, tt.want)

			if tt.node >= 0 {
				var herr *HierarchyError
				require.ErrorAs(t, err, &herr)
				assert.Equal(t, tt.node, herr.Node)
			}
		})
	}
}

func TestBuildHierarchy_TooManyJoints(t *testing.T) {
	sc := &scene.Scene{
		Roots: []int{0},
		Nodes: nodes([]int(nil)),
		Skin:  &scene.Skin{Joints: make([]int, MaxJoints+1), Skeleton: -1},
	}
	_, err := BuildHierarchy(sc)
	assert.ErrorIs(t, err, ErrTooManyJoints)
}

func TestBuildHierarchy_FullCapacity(t *testing.T) {
	// A 64-node chain exercises the full stack and mask width.
	children := make([][]int, MaxNodes)
	for i := 0; i < MaxNodes-1; i++ {
		children[i] = []int{i + 1}
	}
	sc := &scene.Scene{Roots: []int{0}, Nodes: nodes(children...)}

	h, err := BuildHierarchy(sc)
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), h.Renderable)
	assert.Equal(t, int32(62), h.Parents[63])
}
