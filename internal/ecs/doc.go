// Package ecs stores per-entity components in fixed-capacity pools.
//
// Each component kind has its own Pool: a preallocated item array, a slot
// bitmap of the same capacity, and a generation per slot. Entities hold
// Handles (pool, index, generation) rather than pointers; a handle whose
// generation no longer matches its slot is stale and every accessor rejects
// it with ErrStaleHandle.
//
// Component kinds:
//
//   - static: parent table, renderability mask, the scene and world transform
//   - node transforms: one world-space matrix per node, rewritten each frame
//   - joint matrices: only for skinned scenes
//   - animation sample: only for entities spawned as animated
//
// Spawn validates the scene and builds the parent table before any slot is
// taken, then allocates; a failing allocation releases what was taken.
// Nothing grows: pool exhaustion is an error.
//
// The Store is single-threaded for Spawn, Release and Destroy. Recalculate
// on distinct live entities touches disjoint slots and may run concurrently.
package ecs
