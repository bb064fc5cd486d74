// Package arena provides linear (bump-pointer) allocation over a fixed,
// preallocated buffer, plus a fixed-capacity typed array.
//
// # Arena
//
// Alloc returns the next aligned window of the buffer and advances the
// offset. There is no per-allocation free: Reset rewinds the offset to zero
// and bumps the generation, invalidating every earlier allocation at once.
// The buffer never grows; running past its end returns ErrArenaFull.
//
// The buffer comes from the Go heap by default, or from an anonymous
// mapping with WithOffHeap. A MemoryAcquirer (e.g. resource.Controller) can
// be charged for the whole buffer at construction.
//
// # FixedArray
//
// FixedArray is a bounded typed array with O(1) unordered Remove
// (swap-with-last). It doubles as the explicit traversal stack of the
// hierarchy walker, backed by a caller-owned array so that it never touches
// the heap.
//
// # Safety
//
// All methods return errors instead of panicking. Neither type is safe for
// concurrent use.
package arena
