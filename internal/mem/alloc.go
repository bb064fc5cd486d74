package mem

import (
	"unsafe"
)

// DefaultAlignment is the alignment used when callers pass zero.
const DefaultAlignment = 16

// AllocAligned allocates a zeroed byte slice of the given size whose first
// byte sits at an address divisible by align. align must be a power of two;
// zero selects DefaultAlignment.
//
// Returns nil for size <= 0 or an invalid alignment.
func AllocAligned(size, align int) []byte {
	if size <= 0 {
		return nil
	}
	if align == 0 {
		align = DefaultAlignment
	}
	if !IsPowerOfTwo(align) {
		return nil
	}

	buf := make([]byte, size+align)

	addr := uintptr(unsafe.Pointer(&buf[0])) //nolint:gosec // unsafe is required for memory alignment
	mask := uintptr(align - 1)
	offset := (uintptr(align) - (addr & mask)) & mask

	return buf[offset : offset+uintptr(size) : offset+uintptr(size)]
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// AlignUp rounds n up to the next multiple of align (a power of two).
func AlignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
