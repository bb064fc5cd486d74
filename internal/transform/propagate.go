package transform

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/hupe1980/scenecore/internal/arena"
	"github.com/hupe1980/scenecore/scene"
)

// NodeTransforms holds one world-space matrix per node.
type NodeTransforms struct {
	M [MaxNodes]mgl32.Mat4
}

// JointMatrices holds one skinning matrix per joint.
type JointMatrices struct {
	M     [MaxJoints]mgl32.Mat4
	Count int
}

// Sample is one frame of animation output for an entity. A node's sampled
// translation or rotation applies only when its mask bit is set.
type Sample struct {
	Translation     [MaxNodes]mgl32.Vec3
	Rotation        [MaxNodes]mgl32.Quat
	TranslationMask uint64
	RotationMask    uint64
}

// SetTranslation samples node i's translation.
func (s *Sample) SetTranslation(i int, v mgl32.Vec3) {
	s.Translation[i] = v
	s.TranslationMask |= 1 << uint(i)
}

// SetRotation samples node i's rotation.
func (s *Sample) SetRotation(i int, q mgl32.Quat) {
	s.Rotation[i] = q
	s.RotationMask |= 1 << uint(i)
}

// Reset clears both masks.
func (s *Sample) Reset() {
	s.TranslationMask = 0
	s.RotationMask = 0
}

// LocalTransform composes T × R × S for node index i.
// sample may be nil.
func LocalTransform(node *scene.Node, i int, sample *Sample) mgl32.Mat4 {
	bit := uint64(1) << uint(i)

	t := mgl32.Ident4()
	switch {
	case sample != nil && sample.TranslationMask&bit != 0:
		v := sample.Translation[i]
		t = mgl32.Translate3D(v[0], v[1], v[2])
	case node.Flags.Has(scene.HasTranslation):
		v := node.Translation
		t = mgl32.Translate3D(v[0], v[1], v[2])
	}

	r := mgl32.Ident4()
	switch {
	case sample != nil && sample.RotationMask&bit != 0:
		r = sample.Rotation[i].Normalize().Mat4()
	case node.Flags.Has(scene.HasRotation):
		q := node.Rotation
		r = mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}}.Normalize().Mat4()
	}

	s := mgl32.Ident4()
	if node.Flags.Has(scene.HasScale) {
		v := node.Scale
		s = mgl32.Scale3D(v[0], v[1], v[2])
	}

	return t.Mul4(r).Mul4(s)
}

// Recalculate writes the world-space transform of every node of sc into out.
// sample may be nil.
func Recalculate(h *Hierarchy, sc *scene.Scene, world mgl32.Mat4, sample *Sample, out *NodeTransforms) error {
	n := int(h.NodeCount)
	if n != len(sc.Nodes) {
		return fmt.Errorf("%w: %d nodes in hierarchy, %d in scene", ErrHierarchyMismatch, n, len(sc.Nodes))
	}

	for i := range out.M {
		out.M[i] = mgl32.Ident4()
	}
	for _, r := range sc.Roots {
		out.M[r] = world
	}
	if sc.Skinned() && sc.Skin.Skeleton >= 0 {
		out.M[h.Parents[sc.Skin.Skeleton]] = world
	}

	for i := 0; i < n; i++ {
		out.M[i] = out.M[i].Mul4(LocalTransform(&sc.Nodes[i], i, sample))
	}

	var storage [MaxNodes]int32
	stack := arena.FixedArrayOver(storage[:0])

	for i := 0; i < n; i++ {
		if h.Parents[i] != int32(i) { //nolint:gosec // i < MaxNodes
			continue
		}
		stack.Reset()
		if err := stack.Push(int32(i)); err != nil { //nolint:gosec // i < MaxNodes
			return err
		}
		for stack.Len() > 0 {
			p, _ := stack.Pop()
			for _, c := range sc.Nodes[p].Children {
				out.M[c] = out.M[p].Mul4(out.M[c])
				if err := stack.Push(int32(c)); err != nil { //nolint:gosec // c < MaxNodes
					return err
				}
			}
		}
	}

	return nil
}

// ComputeJoints writes one skinning matrix per joint of sc into out.
// Unskinned scenes produce zero matrices.
func ComputeJoints(sc *scene.Scene, world mgl32.Mat4, nodes *NodeTransforms, out *JointMatrices) error {
	if !sc.Skinned() {
		out.Count = 0
		return nil
	}

	joints := sc.Skin.Joints
	if len(joints) > MaxJoints {
		return fmt.Errorf("%w: %d joints (max %d)", ErrTooManyJoints, len(joints), MaxJoints)
	}

	inv := world.Inv()
	for j, node := range joints {
		ibm := mgl32.Mat4(sc.Skin.InverseBindMatrices[j])
		out.M[j] = inv.Mul4(nodes.M[node]).Mul4(ibm)
	}
	out.Count = len(joints)
	return nil
}
