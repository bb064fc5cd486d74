package arena

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/hupe1980/scenecore/internal/conv"
	"github.com/hupe1980/scenecore/internal/mem"
	"github.com/hupe1980/scenecore/internal/mmap"
)

// MemoryAcquirer is charged for the arena buffer.
type MemoryAcquirer interface {
	AcquireMemory(amount int64) error
	ReleaseMemory(amount int64)
}

var (
	// ErrArenaFull is returned when an allocation does not fit the remaining buffer.
	ErrArenaFull = errors.New("arena: capacity exhausted")
	// ErrInvalidSize is returned for non-positive sizes or capacities.
	ErrInvalidSize = errors.New("arena: invalid size")
	// ErrInvalidAlignment is returned for an alignment that is not a power of two.
	ErrInvalidAlignment = errors.New("arena: alignment must be a power of two")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("arena: closed")
)

// DefaultAlignment is the default allocation alignment (8 bytes).
const DefaultAlignment = 8

// Stats tracks arena usage.
//
//   - BytesUsed: bytes requested since the last Reset
//   - BytesWasted: alignment padding since the last Reset
//   - HighWater: largest offset ever reached
//   - TotalAllocs, Resets: historical counters
type Stats struct {
	Capacity    int
	BytesUsed   int
	BytesWasted int
	HighWater   int
	TotalAllocs uint64
	Resets      uint64
}

// Ref is a generation-checked reference to an arena allocation.
type Ref struct {
	Gen    uint32
	Offset uint64
}

// Arena is a linear allocator over a fixed buffer.
type Arena struct {
	buf        []byte
	mapping    *mmap.Mapping
	offset     int
	alignment  int
	generation uint32
	stats      Stats
	acquirer   MemoryAcquirer
	charged    int64
	offHeap    bool
	closed     bool
}

// Option is a configuration option for Arena.
type Option func(*Arena)

// WithOffHeap backs the arena with an anonymous mapping instead of the Go heap.
func WithOffHeap() Option {
	return func(a *Arena) {
		a.offHeap = true
	}
}

// WithAlignment sets the allocation alignment. Must be a power of two.
func WithAlignment(align int) Option {
	return func(a *Arena) {
		a.alignment = align
	}
}

// WithMemoryAcquirer charges the arena buffer against acquirer.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(a *Arena) {
		a.acquirer = acquirer
	}
}

// New creates an Arena with a fixed capacity in bytes.
func New(capacity int, opts ...Option) (*Arena, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity %d", ErrInvalidSize, capacity)
	}

	a := &Arena{alignment: DefaultAlignment}
	for _, opt := range opts {
		opt(a)
	}

	if !mem.IsPowerOfTwo(a.alignment) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAlignment, a.alignment)
	}

	if a.acquirer != nil {
		if err := a.acquirer.AcquireMemory(int64(capacity)); err != nil {
			return nil, fmt.Errorf("arena: reserve %d bytes: %w", capacity, err)
		}
		a.charged = int64(capacity)
	}

	if a.offHeap {
		m, err := mmap.MapAnon(capacity)
		if err != nil {
			a.release()
			return nil, fmt.Errorf("arena: map %d bytes: %w", capacity, err)
		}
		a.mapping = m
		a.buf = m.Bytes()
	} else {
		a.buf = mem.AllocAligned(capacity, max(a.alignment, mem.DefaultAlignment))
	}

	// Generation 0 is never issued so a zero Ref is always stale.
	a.generation = 1
	a.stats.Capacity = capacity

	return a, nil
}

// Alloc allocates size bytes at the arena alignment.
// The returned bytes are zeroed.
func (a *Arena) Alloc(size int) (Ref, []byte, error) {
	return a.alloc(size, a.alignment)
}

func (a *Arena) alloc(size, align int) (Ref, []byte, error) {
	if a.closed {
		return Ref{}, nil, ErrClosed
	}
	if size <= 0 {
		return Ref{}, nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	start := mem.AlignUp(a.offset, align)
	end := start + size
	if end > len(a.buf) || end < start {
		return Ref{}, nil, fmt.Errorf("%w: need %d bytes at offset %d, capacity %d",
			ErrArenaFull, size, start, len(a.buf))
	}

	b := a.buf[start:end:end]
	clear(b)

	a.stats.BytesWasted += start - a.offset
	a.stats.BytesUsed += size
	a.stats.TotalAllocs++
	a.offset = end
	a.stats.HighWater = max(a.stats.HighWater, end)

	off, err := conv.IntToUint64(start)
	if err != nil {
		return Ref{}, nil, err
	}
	return Ref{Gen: a.generation, Offset: off}, b, nil
}

// AllocSlice allocates count contiguous, zeroed elements of T.
//
// T must not contain Go pointers: the backing memory is not scanned by the
// garbage collector.
func AllocSlice[T any](a *Arena, count int) ([]T, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: count %d", ErrInvalidSize, count)
	}

	var zero T
	elem := int(unsafe.Sizeof(zero))
	if elem == 0 {
		return make([]T, count), nil
	}
	align := max(a.alignment, int(unsafe.Alignof(zero)))

	_, b, err := a.alloc(elem*count, align)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), count), nil //nolint:gosec // unsafe is required for arena implementation
}

// GetSafe returns the size bytes at ref, or nil if ref belongs to an earlier
// generation or lies outside the allocated region.
func (a *Arena) GetSafe(ref Ref, size int) []byte {
	if a.closed || ref.Gen != a.generation || size <= 0 {
		return nil
	}
	start, err := conv.Uint64ToInt(ref.Offset)
	if err != nil || start+size > a.offset {
		return nil
	}
	return a.buf[start : start+size : start+size]
}

// Reset rewinds the arena to empty. Every earlier allocation and Ref becomes invalid.
func (a *Arena) Reset() {
	a.offset = 0
	a.generation++
	if a.generation == 0 {
		a.generation = 1
	}
	a.stats.BytesUsed = 0
	a.stats.BytesWasted = 0
	a.stats.Resets++
}

// Offset returns the current bump offset.
func (a *Arena) Offset() int { return a.offset }

// Cap returns the buffer capacity in bytes.
func (a *Arena) Cap() int { return len(a.buf) }

// Generation returns the current generation.
func (a *Arena) Generation() uint32 { return a.generation }

// Stats returns a snapshot of the arena statistics.
func (a *Arena) Stats() Stats { return a.stats }

// Close releases the buffer. The arena cannot be used afterwards.
func (a *Arena) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	a.buf = nil
	a.release()
	if a.mapping != nil {
		return a.mapping.Close()
	}
	return nil
}

func (a *Arena) release() {
	if a.acquirer != nil && a.charged > 0 {
		a.acquirer.ReleaseMemory(a.charged)
		a.charged = 0
	}
}

func (a *Arena) String() string {
	return fmt.Sprintf("Arena{cap: %d, offset: %d, gen: %d, allocs: %d, resets: %d}",
		len(a.buf), a.offset, a.generation, a.stats.TotalAllocs, a.stats.Resets)
}
