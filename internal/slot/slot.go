package slot

import (
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

const (
	// WordBits is the number of slots tracked per bitmap word.
	WordBits = 64
	// DefaultCapacity is the reference sizing: 4 words, 256 slots.
	DefaultCapacity = 4 * WordBits
	// MaxCapacity bounds a single allocator so that indices fit in an int32.
	MaxCapacity = 1 << 20
)

var (
	// ErrExhausted is returned when no free slot is left.
	ErrExhausted = errors.New("slot: capacity exhausted")
	// ErrDoubleFree is returned when freeing a slot that is not allocated.
	ErrDoubleFree = errors.New("slot: slot is not allocated")
	// ErrOutOfRange is returned for an index beyond the capacity.
	ErrOutOfRange = errors.New("slot: index out of range")
	// ErrInvalidCapacity is returned by New for a capacity outside 1..MaxCapacity.
	ErrInvalidCapacity = errors.New("slot: invalid capacity")
)

// Allocator hands out integer slot indices in [0, Cap()).
type Allocator struct {
	bits     *bitset.BitSet
	capacity uint
	used     int
}

// New creates an Allocator with the given fixed capacity.
func New(capacity int) (*Allocator, error) {
	if capacity <= 0 || capacity > MaxCapacity {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return &Allocator{
		bits:     bitset.New(uint(capacity)),
		capacity: uint(capacity),
	}, nil
}

// Allocate marks the first free slot as used and returns its index.
func (a *Allocator) Allocate() (int, error) {
	i, ok := a.bits.NextClear(0)
	if !ok || i >= a.capacity {
		return -1, fmt.Errorf("%w: all %d slots in use", ErrExhausted, a.capacity)
	}
	a.bits.Set(i)
	a.used++
	return int(i), nil
}

// Free releases index. Negative indices are ignored.
func (a *Allocator) Free(index int) error {
	if index < 0 {
		return nil
	}
	if uint(index) >= a.capacity {
		return fmt.Errorf("%w: %d (capacity %d)", ErrOutOfRange, index, a.capacity)
	}
	if !a.bits.Test(uint(index)) {
		return fmt.Errorf("%w: %d", ErrDoubleFree, index)
	}
	a.bits.Clear(uint(index))
	a.used--
	return nil
}

// IsUsed reports whether index is allocated. Out-of-range indices report false.
func (a *Allocator) IsUsed(index int) bool {
	if index < 0 || uint(index) >= a.capacity {
		return false
	}
	return a.bits.Test(uint(index))
}

// Len returns the number of allocated slots.
func (a *Allocator) Len() int { return a.used }

// Cap returns the fixed capacity.
func (a *Allocator) Cap() int { return int(a.capacity) }

// Reset frees every slot.
func (a *Allocator) Reset() {
	a.bits.ClearAll()
	a.used = 0
}

// Words returns a copy of the bitmap words, lowest slots first.
func (a *Allocator) Words() []uint64 {
	words := a.bits.Words()
	out := make([]uint64, len(words))
	copy(out, words)
	return out
}
