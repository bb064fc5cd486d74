package scene

import (
	"errors"
	"fmt"
)

// ErrInvalidScene is returned by Validate and the decoders.
var ErrInvalidScene = errors.New("scene: invalid scene")

// Flags records which local transform components a node authors.
type Flags uint8

const (
	HasTranslation Flags = 1 << iota
	HasRotation
	HasScale
)

// Has reports whether all bits of f2 are set.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// Node is one scene graph node.
type Node struct {
	Name     string
	Children []int

	Translation [3]float32
	Rotation    [4]float32 // x, y, z, w
	Scale       [3]float32

	Flags Flags
}

// Skin binds a subset of nodes as skeleton joints.
type Skin struct {
	// Joints are node indices; joint j drives skinning matrix j.
	Joints []int
	// InverseBindMatrices holds one column-major matrix per joint.
	InverseBindMatrices [][16]float32
	// Skeleton is the skeleton root node, or -1 when unspecified.
	Skeleton int
}

// Scene is a node set with declared roots and an optional skin.
type Scene struct {
	Nodes []Node
	Roots []int
	Skin  *Skin
}

// Skinned reports whether the scene carries a skin with at least one joint.
func (s *Scene) Skinned() bool {
	return s.Skin != nil && len(s.Skin.Joints) > 0
}

// Validate checks index ranges and skin consistency. It does not check the
// graph shape; hierarchy construction rejects cycles and shared children.
func (s *Scene) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil scene", ErrInvalidScene)
	}
	n := len(s.Nodes)
	if len(s.Roots) == 0 {
		return fmt.Errorf("%w: no root nodes", ErrInvalidScene)
	}
	for _, r := range s.Roots {
		if r < 0 || r >= n {
			return fmt.Errorf("%w: root %d out of range [0,%d)", ErrInvalidScene, r, n)
		}
	}
	for i := range s.Nodes {
		for _, c := range s.Nodes[i].Children {
			if c < 0 || c >= n {
				return fmt.Errorf("%w: node %d: child %d out of range [0,%d)", ErrInvalidScene, i, c, n)
			}
			if c == i {
				return fmt.Errorf("%w: node %d lists itself as a child", ErrInvalidScene, i)
			}
		}
	}

	if s.Skin == nil {
		return nil
	}
	sk := s.Skin
	if len(sk.InverseBindMatrices) != len(sk.Joints) {
		return fmt.Errorf("%w: skin has %d joints but %d inverse bind matrices",
			ErrInvalidScene, len(sk.Joints), len(sk.InverseBindMatrices))
	}
	for j, node := range sk.Joints {
		if node < 0 || node >= n {
			return fmt.Errorf("%w: joint %d references node %d out of range", ErrInvalidScene, j, node)
		}
	}
	if sk.Skeleton < -1 || sk.Skeleton >= n {
		return fmt.Errorf("%w: skeleton %d out of range", ErrInvalidScene, sk.Skeleton)
	}
	return nil
}

// Identity is the column-major 4x4 identity.
var Identity = [16]float32{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}
