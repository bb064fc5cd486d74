// Package tiered routes variable-sized requests to one of three tiers:
//
//   - Small: a block pool of SmallBlockSize blocks
//   - Medium: a block pool of MediumBlockSize blocks
//   - Large: a first-fit free list
//
// Sizes are rounded up to 16 bytes before routing. Free takes the size that
// was passed to Alloc and routes by it; a mismatched size lands in the wrong
// tier, which rejects the pointer.
//
// Alloc and Free are single-threaded. AllocSync and FreeSync take a single
// mutex guarding all three tiers.
package tiered
