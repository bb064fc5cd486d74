// Package blockpool implements a pool of equal-sized blocks carved from one
// contiguous buffer.
//
// Block state lives in a bitset: a set bit marks a block in use. Alloc takes
// the lowest free block (first fit). Free locates a block from its address,
// so only slices returned by Alloc are accepted; anything else is rejected
// with ErrOutOfRange or ErrMisaligned instead of corrupting the pool.
//
// Adjacent free blocks are never coalesced. AdjacentBlocks, Runs and UsedSet
// exist only for diagnostics and visualizers.
package blockpool
