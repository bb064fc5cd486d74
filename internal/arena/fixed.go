package arena

import (
	"errors"
	"fmt"
)

var (
	// ErrArrayFull is returned by Push on a full FixedArray.
	ErrArrayFull = errors.New("arena: fixed array is full")
	// ErrIndexOutOfRange is returned for an index outside [0, Len()).
	ErrIndexOutOfRange = errors.New("arena: index out of range")
)

// FixedArray is a fixed-capacity array with O(1) unordered removal.
type FixedArray[T any] struct {
	items []T
	n     int
}

// NewFixedArray allocates a FixedArray with the given capacity.
func NewFixedArray[T any](capacity int) *FixedArray[T] {
	return &FixedArray[T]{items: make([]T, max(capacity, 0))}
}

// FixedArrayOver returns an empty FixedArray that stores its elements in
// storage (up to cap(storage)). The caller keeps ownership of storage.
func FixedArrayOver[T any](storage []T) FixedArray[T] {
	return FixedArray[T]{items: storage[:cap(storage)]}
}

// Push appends v.
func (f *FixedArray[T]) Push(v T) error {
	if f.n == len(f.items) {
		return fmt.Errorf("%w: capacity %d", ErrArrayFull, len(f.items))
	}
	f.items[f.n] = v
	f.n++
	return nil
}

// Pop removes and returns the last element.
func (f *FixedArray[T]) Pop() (T, bool) {
	var zero T
	if f.n == 0 {
		return zero, false
	}
	f.n--
	v := f.items[f.n]
	f.items[f.n] = zero
	return v, true
}

// Remove deletes element i by moving the last element into its place.
// Iteration order is not preserved.
func (f *FixedArray[T]) Remove(i int) error {
	if i < 0 || i >= f.n {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, f.n)
	}
	var zero T
	f.n--
	f.items[i] = f.items[f.n]
	f.items[f.n] = zero
	return nil
}

// At returns element i. It panics if i is out of range, like a slice index.
func (f *FixedArray[T]) At(i int) T {
	if i < 0 || i >= f.n {
		panic(fmt.Sprintf("arena: FixedArray index %d out of range [0:%d]", i, f.n))
	}
	return f.items[i]
}

// Set overwrites element i.
func (f *FixedArray[T]) Set(i int, v T) error {
	if i < 0 || i >= f.n {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, f.n)
	}
	f.items[i] = v
	return nil
}

// Items returns the live elements. The slice aliases the array storage.
func (f *FixedArray[T]) Items() []T { return f.items[:f.n] }

// Len returns the number of elements.
func (f *FixedArray[T]) Len() int { return f.n }

// Cap returns the fixed capacity.
func (f *FixedArray[T]) Cap() int { return len(f.items) }

// Reset empties the array.
func (f *FixedArray[T]) Reset() {
	clear(f.items[:f.n])
	f.n = 0
}
