package scene

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Arm(t *testing.T) {
	f, err := os.Open("testdata/arm.json")
	require.NoError(t, err)
	defer f.Close()

	s, err := Decode(f)
	require.NoError(t, err)

	require.Len(t, s.Nodes, 4)
	assert.Equal(t, []int{0}, s.Roots)

	root := s.Nodes[0]
	assert.Equal(t, "root", root.Name)
	assert.Zero(t, root.Flags)
	assert.Equal(t, [4]float32{0, 0, 0, 1}, root.Rotation, "absent rotation is identity")
	assert.Equal(t, [3]float32{1, 1, 1}, root.Scale, "absent scale is identity")

	elbow := s.Nodes[2]
	assert.True(t, elbow.Flags.Has(HasTranslation|HasRotation))
	assert.False(t, elbow.Flags.Has(HasScale))
	assert.InDelta(t, 0.7071068, elbow.Rotation[3], 1e-6)

	assert.True(t, s.Nodes[3].Flags.Has(HasScale))

	require.True(t, s.Skinned())
	assert.Equal(t, []int{1, 2}, s.Skin.Joints)
	assert.Equal(t, 1, s.Skin.Skeleton)
	assert.Equal(t, float32(-2), s.Skin.InverseBindMatrices[1][13])
}

func TestUnmarshal_SkinDefaults(t *testing.T) {
	s, err := Unmarshal([]byte(`{"roots":[0],"nodes":[{"name":"a"}],"skin":{"joints":[0]}}`))
	require.NoError(t, err)

	assert.Equal(t, -1, s.Skin.Skeleton)
	assert.Equal(t, [][16]float32{Identity}, s.Skin.InverseBindMatrices)
}

func TestUnmarshal_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"syntax", `{"roots": [0], "nodes": [`},
		{"no roots", `{"roots": [], "nodes": [{}]}`},
		{"root out of range", `{"roots": [1], "nodes": [{}]}`},
		{"child out of range", `{"roots": [0], "nodes": [{"children": [5]}]}`},
		{"self child", `{"roots": [0], "nodes": [{"children": [0]}]}`},
		{"joint out of range", `{"roots": [0], "nodes": [{}], "skin": {"joints": [3]}}`},
		{"bind matrix count", `{"roots": [0], "nodes": [{}], "skin": {"joints": [0], "inverseBindMatrices": [[1,0,0,0,0,1,0,0,0,0,1,0,0,0,0,1], [1,0,0,0,0,1,0,0,0,0,1,0,0,0,0,1]]}}`},
		{"skeleton out of range", `{"roots": [0], "nodes": [{}], "skin": {"joints": [0], "skeleton": 4}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidScene)
		})
	}
}

func TestMarshal_KeepsFlags(t *testing.T) {
	in := &Scene{
		Roots: []int{0},
		Nodes: []Node{
			{Name: "a", Children: []int{1}, Translation: [3]float32{1, 2, 3}, Flags: HasTranslation},
			{Name: "b", Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}},
		},
	}

	data, err := Marshal(in)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "rotation")

	out, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, HasTranslation, out.Nodes[0].Flags)
	assert.Equal(t, [3]float32{1, 2, 3}, out.Nodes[0].Translation)
	assert.Zero(t, out.Nodes[1].Flags)
}

func TestValidate_Nil(t *testing.T) {
	var s *Scene
	assert.ErrorIs(t, s.Validate(), ErrInvalidScene)
}

func TestCodecs_RoundTrip(t *testing.T) {
	data, err := os.ReadFile("testdata/arm.json")
	require.NoError(t, err)

	want, err := Unmarshal(data)
	require.NoError(t, err)

	for _, name := range []string{"sonnet", "go-json"} {
		t.Run(name, func(t *testing.T) {
			c, ok := CodecByName(name)
			require.True(t, ok)
			assert.Equal(t, name, c.Name())

			got, err := DecodeWith(c, strings.NewReader(string(data)))
			require.NoError(t, err)
			assert.Equal(t, want, got)

			out, err := MarshalWith(c, got)
			require.NoError(t, err)
			again, err := UnmarshalWith(c, out)
			require.NoError(t, err)
			assert.Equal(t, want, again)
		})
	}

	_, ok := CodecByName("yaml")
	assert.False(t, ok)
}
