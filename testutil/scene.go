package testutil

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/hupe1980/scenecore/scene"
)

func identityNode() scene.Node {
	return scene.Node{Rotation: [4]float32{0, 0, 0, 1}, Scale: [3]float32{1, 1, 1}}
}

// Chain returns a scene of n nodes where node i is the only child of node
// i-1, each translated one unit along y.
func Chain(n int) *scene.Scene {
	sc := &scene.Scene{Roots: []int{0}, Nodes: make([]scene.Node, n)}
	for i := range sc.Nodes {
		sc.Nodes[i] = identityNode()
		if i > 0 {
			sc.Nodes[i].Translation = [3]float32{0, 1, 0}
			sc.Nodes[i].Flags = scene.HasTranslation
		}
		if i+1 < n {
			sc.Nodes[i].Children = []int{i + 1}
		}
	}
	return sc
}

// Tree returns a single-rooted scene of n nodes. Every node after the first
// picks a random earlier node as parent and gets a random subset of
// translation, rotation and a near-unit scale.
func (r *RNG) Tree(n int) *scene.Scene {
	return r.Forest(n, 1)
}

// Forest is Tree with the first roots nodes declared as roots.
func (r *RNG) Forest(n, roots int) *scene.Scene {
	r.mu.Lock()
	defer r.mu.Unlock()

	roots = max(1, min(roots, n))
	sc := &scene.Scene{Nodes: make([]scene.Node, n)}
	for i := 0; i < roots; i++ {
		sc.Roots = append(sc.Roots, i)
	}

	for i := range sc.Nodes {
		nd := identityNode()
		nd.Name = fmt.Sprintf("node%d", i)
		if r.rand.Intn(4) != 0 {
			nd.Translation = r.vec3Locked(-1, 1)
			nd.Flags |= scene.HasTranslation
		}
		if r.rand.Intn(2) == 0 {
			q := r.rotationLocked()
			nd.Rotation = [4]float32{q.V[0], q.V[1], q.V[2], q.W}
			nd.Flags |= scene.HasRotation
		}
		if r.rand.Intn(4) == 0 {
			nd.Scale = r.vec3Locked(0.9, 1.1)
			nd.Flags |= scene.HasScale
		}
		sc.Nodes[i] = nd

		if i >= roots {
			p := r.rand.Intn(i)
			sc.Nodes[p].Children = append(sc.Nodes[p].Children, i)
		}
	}
	return sc
}

// BindSkin attaches a skin over joints whose inverse bind matrices invert
// the rest pose, so the joint matrices of an unanimated entity are identity.
func (r *RNG) BindSkin(sc *scene.Scene, joints []int) {
	rest := ReferenceTransforms(sc, mgl32.Ident4())
	sk := &scene.Skin{Joints: joints, Skeleton: -1}
	for _, j := range joints {
		sk.InverseBindMatrices = append(sk.InverseBindMatrices, [16]float32(rest[j].Inv()))
	}
	sc.Skin = sk
}

// local composes T × R × S for a node.
func local(nd *scene.Node) mgl32.Mat4 {
	m := mgl32.Ident4()
	if nd.Flags.Has(scene.HasTranslation) {
		m = mgl32.Translate3D(nd.Translation[0], nd.Translation[1], nd.Translation[2])
	}
	if nd.Flags.Has(scene.HasRotation) {
		q := mgl32.Quat{W: nd.Rotation[3], V: mgl32.Vec3{nd.Rotation[0], nd.Rotation[1], nd.Rotation[2]}}
		m = m.Mul4(q.Normalize().Mat4())
	}
	if nd.Flags.Has(scene.HasScale) {
		m = m.Mul4(mgl32.Scale3D(nd.Scale[0], nd.Scale[1], nd.Scale[2]))
	}
	return m
}

// ReferenceTransforms computes world transforms recursively. Declared roots
// and the parent of the skin's skeleton node are seeded with world; other
// top-level nodes start from identity. sc must be acyclic.
func ReferenceTransforms(sc *scene.Scene, world mgl32.Mat4) []mgl32.Mat4 {
	n := len(sc.Nodes)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	for i := range sc.Nodes {
		for _, c := range sc.Nodes[i].Children {
			parent[c] = i
		}
	}

	seeded := make([]bool, n)
	for _, r := range sc.Roots {
		seeded[r] = true
	}
	if sc.Skinned() && sc.Skin.Skeleton >= 0 {
		seeded[parent[sc.Skin.Skeleton]] = true
	}

	out := make([]mgl32.Mat4, n)
	var visit func(i int, parentWorld mgl32.Mat4)
	visit = func(i int, parentWorld mgl32.Mat4) {
		m := local(&sc.Nodes[i])
		if seeded[i] {
			m = world.Mul4(m)
		}
		out[i] = parentWorld.Mul4(m)
		for _, c := range sc.Nodes[i].Children {
			visit(c, out[i])
		}
	}
	for i := 0; i < n; i++ {
		if parent[i] == i {
			visit(i, mgl32.Ident4())
		}
	}
	return out
}

// ReferenceJoints computes skinning matrices from node world transforms.
func ReferenceJoints(sc *scene.Scene, world mgl32.Mat4, nodes []mgl32.Mat4) []mgl32.Mat4 {
	if !sc.Skinned() {
		return nil
	}
	inv := world.Inv()
	out := make([]mgl32.Mat4, len(sc.Skin.Joints))
	for j, node := range sc.Skin.Joints {
		out[j] = inv.Mul4(nodes[node]).Mul4(mgl32.Mat4(sc.Skin.InverseBindMatrices[j]))
	}
	return out
}

// MaxAbsDiff returns the largest element-wise difference between two
// matrix sets, or +Inf when their lengths differ.
func MaxAbsDiff(a, b []mgl32.Mat4) float32 {
	if len(a) != len(b) {
		return float32(math.Inf(1))
	}
	var d float32
	for i := range a {
		for k := range a[i] {
			d = max(d, float32(math.Abs(float64(a[i][k]-b[i][k]))))
		}
	}
	return d
}
