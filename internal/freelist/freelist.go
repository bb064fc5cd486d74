package freelist

import (
	"errors"
	"fmt"
	"slices"
	"unsafe"

	"github.com/hupe1980/scenecore/internal/mem"
	"github.com/hupe1980/scenecore/internal/mmap"
)

// Alignment is the granularity of every allocation.
const Alignment = 16

var (
	// ErrFull is returned when no free span fits the request.
	ErrFull = errors.New("freelist: no span large enough")
	// ErrDoubleFree is returned when freeing memory that is not allocated.
	ErrDoubleFree = errors.New("freelist: double free")
	// ErrOutOfRange is returned for memory outside the buffer or pointers into
	// the middle of an allocation.
	ErrOutOfRange = errors.New("freelist: pointer out of range")
	// ErrInvalidSize is returned for non-positive sizes.
	ErrInvalidSize = errors.New("freelist: invalid size")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("freelist: closed")
)

// MemoryAcquirer is charged for live allocations.
type MemoryAcquirer interface {
	AcquireMemory(amount int64) error
	ReleaseMemory(amount int64)
}

type span struct {
	off  int
	size int
}

// Stats describes allocator occupancy.
type Stats struct {
	Capacity    int
	InUse       int
	Allocations int
	FreeSpans   int
	LargestFree int
}

// Allocator is a first-fit, coalescing allocator.
type Allocator struct {
	buf     []byte
	mapping *mmap.Mapping
	free    []span
	allocs  map[int]int // offset -> rounded size
	inUse   int

	offHeap  bool
	acquirer MemoryAcquirer
	closed   bool
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithOffHeap backs the allocator with an anonymous mapping.
func WithOffHeap() Option {
	return func(a *Allocator) {
		a.offHeap = true
	}
}

// WithMemoryAcquirer charges live allocations against acquirer.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(a *Allocator) {
		a.acquirer = acquirer
	}
}

// New creates an allocator managing capacity bytes, rounded down to Alignment.
func New(capacity int, opts ...Option) (*Allocator, error) {
	capacity &^= Alignment - 1
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity %d", ErrInvalidSize, capacity)
	}

	a := &Allocator{allocs: make(map[int]int)}
	for _, opt := range opts {
		opt(a)
	}

	if a.offHeap {
		m, err := mmap.MapAnon(capacity)
		if err != nil {
			return nil, fmt.Errorf("freelist: map %d bytes: %w", capacity, err)
		}
		a.mapping = m
		a.buf = m.Bytes()
	} else {
		a.buf = mem.AllocAligned(capacity, Alignment)
	}
	a.free = []span{{off: 0, size: capacity}}

	return a, nil
}

// Alloc returns size zeroed bytes.
func (a *Allocator) Alloc(size int) ([]byte, error) {
	if a.closed {
		return nil, ErrClosed
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	need := mem.AlignUp(size, Alignment)
	i := slices.IndexFunc(a.free, func(s span) bool { return s.size >= need })
	if i < 0 {
		return nil, fmt.Errorf("%w: need %d bytes, largest free %d", ErrFull, need, a.largestFree())
	}

	if a.acquirer != nil {
		if err := a.acquirer.AcquireMemory(int64(need)); err != nil {
			return nil, fmt.Errorf("freelist: reserve %d bytes: %w", need, err)
		}
	}

	off := a.free[i].off
	if a.free[i].size == need {
		a.free = slices.Delete(a.free, i, i+1)
	} else {
		a.free[i].off += need
		a.free[i].size -= need
	}
	a.allocs[off] = need
	a.inUse += need

	b := a.buf[off : off+size : off+size]
	clear(b)
	return b, nil
}

// Free releases memory returned by Alloc.
func (a *Allocator) Free(b []byte) error {
	if a.closed {
		return ErrClosed
	}
	if len(b) == 0 || len(a.buf) == 0 {
		return fmt.Errorf("%w: empty slice", ErrOutOfRange)
	}

	base := uintptr(unsafe.Pointer(&a.buf[0])) //nolint:gosec // address arithmetic on allocator memory
	addr := uintptr(unsafe.Pointer(&b[0]))     //nolint:gosec // address arithmetic on allocator memory
	if addr < base || addr >= base+uintptr(len(a.buf)) {
		return fmt.Errorf("%w: %#x not in buffer", ErrOutOfRange, addr)
	}
	return a.FreeOffset(int(addr - base))
}

// FreeOffset releases the allocation starting at off.
func (a *Allocator) FreeOffset(off int) error {
	if a.closed {
		return ErrClosed
	}
	if off < 0 || off >= len(a.buf) {
		return fmt.Errorf("%w: offset %d", ErrOutOfRange, off)
	}

	size, ok := a.allocs[off]
	if !ok {
		if a.interior(off) {
			return fmt.Errorf("%w: offset %d is inside an allocation", ErrOutOfRange, off)
		}
		return fmt.Errorf("%w: offset %d", ErrDoubleFree, off)
	}

	delete(a.allocs, off)
	a.inUse -= size
	a.insertFree(span{off: off, size: size})

	if a.acquirer != nil {
		a.acquirer.ReleaseMemory(int64(size))
	}
	return nil
}

func (a *Allocator) interior(off int) bool {
	for start, size := range a.allocs {
		if off > start && off < start+size {
			return true
		}
	}
	return false
}

func (a *Allocator) insertFree(s span) {
	i, _ := slices.BinarySearchFunc(a.free, s.off, func(e span, off int) int { return e.off - off })
	a.free = slices.Insert(a.free, i, s)

	// Merge with the right neighbour first so i stays valid.
	if i+1 < len(a.free) && a.free[i].off+a.free[i].size == a.free[i+1].off {
		a.free[i].size += a.free[i+1].size
		a.free = slices.Delete(a.free, i+1, i+2)
	}
	if i > 0 && a.free[i-1].off+a.free[i-1].size == a.free[i].off {
		a.free[i-1].size += a.free[i].size
		a.free = slices.Delete(a.free, i, i+1)
	}
}

func (a *Allocator) largestFree() int {
	largest := 0
	for _, s := range a.free {
		largest = max(largest, s.size)
	}
	return largest
}

// Stats returns current occupancy.
func (a *Allocator) Stats() Stats {
	return Stats{
		Capacity:    len(a.buf),
		InUse:       a.inUse,
		Allocations: len(a.allocs),
		FreeSpans:   len(a.free),
		LargestFree: a.largestFree(),
	}
}

// Cap returns the managed capacity in bytes.
func (a *Allocator) Cap() int { return len(a.buf) }

// Close releases the buffer and any outstanding charges.
func (a *Allocator) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	if a.acquirer != nil && a.inUse > 0 {
		a.acquirer.ReleaseMemory(int64(a.inUse))
	}
	a.buf = nil
	a.free = nil
	a.allocs = nil
	a.inUse = 0
	if a.mapping != nil {
		return a.mapping.Close()
	}
	return nil
}
