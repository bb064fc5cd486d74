// Package transform builds per-entity parent tables from a scene graph and
// turns authored or animated local transforms into world-space node
// transforms and skinning matrices.
//
// # Hierarchy
//
// BuildHierarchy walks the child lists depth first from every declared root
// and records each child's parent; a root is its own parent. Nodes that no
// declared root reaches are walked from their own top-most ancestor, so
// every node ends up with a parent entry, but only root-reachable nodes are
// renderable. Malformed graphs (too many nodes, missing roots, out-of-range
// children, cycles, shared children) are rejected before any table is
// returned.
//
// # Per-frame recomputation
//
//  1. Every transform starts as identity; declared roots (and, for skinned
//     scenes, the skeleton root's parent) start as the world transform.
//  2. Every node multiplies in T × R × S, taking T and R from the animation
//     sample when its mask bit is set, else from the authored value, else
//     identity.
//  3. From every self-parented node, children are visited depth first with
//     child = parent × child, parents strictly before children.
//
// Skinning matrices are inverse(world) × joint world transform × inverse
// bind matrix.
//
// Traversal uses an explicit stack of fixed capacity; there is no recursion
// and no heap allocation per frame.
package transform
