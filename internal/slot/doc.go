// Package slot implements a fixed-capacity bitmap slot allocator.
//
// Every component pool in the entity store pairs its storage array with one
// Allocator of the same capacity. A set bit means the slot index is in use.
//
// # Policy
//
// Allocate is first-fit: words are scanned in order, then bit positions
// within a word, so low indices are reused first and the worst-case scan
// is capacity/64 words.
//
// # Failure Modes
//
//   - ErrExhausted: every slot is taken. No index is returned; slot 0 is
//     never handed out a second time.
//   - ErrDoubleFree: the slot was not allocated.
//   - ErrOutOfRange: the index is beyond the capacity.
//
// Free of a negative index is a no-op so that the −1 "absent" sentinel can be
// passed through unchecked.
//
// An Allocator is not safe for concurrent use.
package slot
