package transform

import (
	"errors"
	"fmt"

	"github.com/hupe1980/scenecore/internal/arena"
	"github.com/hupe1980/scenecore/scene"
)

// Capacity limits per entity.
const (
	MaxNodes  = 64
	MaxJoints = 64
)

var (
	// ErrTooManyNodes is returned for scenes with more than MaxNodes nodes.
	ErrTooManyNodes = errors.New("transform: too many nodes")
	// ErrTooManyJoints is returned for skins with more than MaxJoints joints.
	ErrTooManyJoints = errors.New("transform: too many joints")
	// ErrMissingRoot is returned when a scene declares no roots or a root
	// index is out of range.
	ErrMissingRoot = errors.New("transform: missing root")
	// ErrInvalidChild is returned for a child index out of range.
	ErrInvalidChild = errors.New("transform: invalid child index")
	// ErrCycle is returned when the traversal reaches a node twice. This
	// covers cycles as well as nodes listed under two parents.
	ErrCycle = errors.New("transform: node reached twice")
	// ErrHierarchyMismatch is returned when a hierarchy is used with a scene
	// of a different size.
	ErrHierarchyMismatch = errors.New("transform: hierarchy does not match scene")
)

// HierarchyError reports the node at which hierarchy construction failed.
type HierarchyError struct {
	Node   int
	Parent int // -1 if not applicable
	Err    error
}

func (e *HierarchyError) Error() string {
	if e.Parent >= 0 {
		return fmt.Sprintf("%v: node %d (parent %d)", e.Err, e.Node, e.Parent)
	}
	return fmt.Sprintf("%v: node %d", e.Err, e.Node)
}

func (e *HierarchyError) Unwrap() error { return e.Err }

// Hierarchy is the per-entity parent table.
type Hierarchy struct {
	// Parents maps a node to its parent; roots map to themselves.
	Parents   [MaxNodes]int32
	NodeCount int32
	// Renderable has one bit per node reachable from a declared root.
	Renderable uint64
	// Unreachable has one bit per node no declared root reaches.
	Unreachable uint64
}

// IsRoot reports whether node i is its own parent.
func (h *Hierarchy) IsRoot(i int) bool {
	return i >= 0 && i < int(h.NodeCount) && h.Parents[i] == int32(i) //nolint:gosec // i < MaxNodes
}

// IsRenderable reports whether node i is reachable from a declared root.
func (h *Hierarchy) IsRenderable(i int) bool {
	return i >= 0 && i < int(h.NodeCount) && h.Renderable&(1<<uint(i)) != 0
}

func nodeMask(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(n)) - 1
}

// BuildHierarchy derives the parent table and renderability mask of sc.
func BuildHierarchy(sc *scene.Scene) (Hierarchy, error) {
	var h Hierarchy

	if sc == nil {
		return h, fmt.Errorf("%w: nil scene", ErrMissingRoot)
	}
	n := len(sc.Nodes)
	if n > MaxNodes {
		return h, fmt.Errorf("%w: %d nodes (max %d)", ErrTooManyNodes, n, MaxNodes)
	}
	if sc.Skinned() && len(sc.Skin.Joints) > MaxJoints {
		return h, fmt.Errorf("%w: %d joints (max %d)", ErrTooManyJoints, len(sc.Skin.Joints), MaxJoints)
	}
	if n == 0 || len(sc.Roots) == 0 {
		return h, fmt.Errorf("%w: scene declares no roots", ErrMissingRoot)
	}
	for _, r := range sc.Roots {
		if r < 0 || r >= n {
			return h, &HierarchyError{Node: r, Parent: -1, Err: ErrMissingRoot}
		}
	}

	// Nodes that appear in some child list.
	var hasParent uint64
	for i := range sc.Nodes {
		for _, c := range sc.Nodes[i].Children {
			if c < 0 || c >= n {
				return h, &HierarchyError{Node: c, Parent: i, Err: ErrInvalidChild}
			}
			hasParent |= 1 << uint(c)
		}
	}

	h.NodeCount = int32(n) //nolint:gosec // n <= MaxNodes
	for i := 0; i < n; i++ {
		h.Parents[i] = int32(i) //nolint:gosec // i < MaxNodes
	}

	var (
		visited uint64
		storage [MaxNodes]int32
	)
	stack := arena.FixedArrayOver(storage[:0])

	walk := func(start int) error {
		if visited&(1<<uint(start)) != 0 {
			return &HierarchyError{Node: start, Parent: -1, Err: ErrCycle}
		}
		visited |= 1 << uint(start)
		stack.Reset()
		if err := stack.Push(int32(start)); err != nil { //nolint:gosec // start < MaxNodes
			return err
		}
		for stack.Len() > 0 {
			p, _ := stack.Pop()
			for _, c := range sc.Nodes[p].Children {
				if visited&(1<<uint(c)) != 0 {
					return &HierarchyError{Node: c, Parent: int(p), Err: ErrCycle}
				}
				visited |= 1 << uint(c)
				h.Parents[c] = p
				if err := stack.Push(int32(c)); err != nil { //nolint:gosec // c < MaxNodes
					return err
				}
			}
		}
		return nil
	}

	for _, r := range sc.Roots {
		if err := walk(r); err != nil {
			return Hierarchy{}, err
		}
	}
	h.Renderable = visited

	// Subtrees hanging off no declared root still get parent entries.
	for i := 0; i < n; i++ {
		bit := uint64(1) << uint(i)
		if visited&bit == 0 && hasParent&bit == 0 {
			if err := walk(i); err != nil {
				return Hierarchy{}, err
			}
		}
	}
	h.Unreachable = visited &^ h.Renderable

	// Whatever is left lies on a cycle with no entry point.
	if rest := nodeMask(n) &^ visited; rest != 0 {
		for i := 0; i < n; i++ {
			if rest&(1<<uint(i)) != 0 {
				return Hierarchy{}, &HierarchyError{Node: i, Parent: -1, Err: ErrCycle}
			}
		}
	}

	return h, nil
}
