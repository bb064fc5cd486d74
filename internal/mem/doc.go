// Package mem provides aligned heap buffers.
//
// # Aligned Allocation
//
// Block pools and arenas hand out memory at fixed offsets from a base
// address, so the base itself must satisfy the strictest alignment any
// block promises. AllocAligned over-allocates by one alignment unit and
// returns the aligned window; the returned slice keeps the backing array
// alive.
package mem
