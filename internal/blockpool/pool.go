package blockpool

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/scenecore/internal/mem"
	"github.com/hupe1980/scenecore/internal/mmap"
)

// MaxBlocks is the largest block count a pool accepts.
const MaxBlocks = 1280

var (
	// ErrFull is returned when every block is in use.
	ErrFull = errors.New("blockpool: no free block")
	// ErrOutOfRange is returned when a freed block does not belong to the pool.
	ErrOutOfRange = errors.New("blockpool: block out of range")
	// ErrMisaligned is returned when a freed pointer is inside the pool but not
	// on a block boundary. It matches ErrOutOfRange with errors.Is.
	ErrMisaligned = fmt.Errorf("%w: not on a block boundary", ErrOutOfRange)
	// ErrDoubleFree is returned when a block that is not in use is freed.
	ErrDoubleFree = errors.New("blockpool: double free")
	// ErrInvalidConfig is returned for a non-positive block size or a block
	// count outside (0, MaxBlocks].
	ErrInvalidConfig = errors.New("blockpool: invalid configuration")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("blockpool: closed")
)

// MemoryAcquirer is charged for the pool buffer.
type MemoryAcquirer interface {
	AcquireMemory(amount int64) error
	ReleaseMemory(amount int64)
}

// Run is a maximal sequence of blocks sharing the same state.
type Run struct {
	Start  int
	Length int
	Used   bool
}

// Pool is a fixed-block allocator.
type Pool struct {
	buf        []byte
	mapping    *mmap.Mapping
	blockSize  int
	blockCount int
	used       *bitset.BitSet
	inUse      int

	offHeap  bool
	acquirer MemoryAcquirer
	charged  int64
	closed   bool
}

// Option configures a Pool.
type Option func(*Pool)

// WithOffHeap backs the pool with an anonymous mapping.
func WithOffHeap() Option {
	return func(p *Pool) {
		p.offHeap = true
	}
}

// WithMemoryAcquirer charges the pool buffer against acquirer.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(p *Pool) {
		p.acquirer = acquirer
	}
}

// New creates a pool of blockCount blocks of blockSize bytes each.
func New(blockSize, blockCount int, opts ...Option) (*Pool, error) {
	if blockSize <= 0 || blockCount <= 0 || blockCount > MaxBlocks {
		return nil, fmt.Errorf("%w: blockSize=%d blockCount=%d (max %d)",
			ErrInvalidConfig, blockSize, blockCount, MaxBlocks)
	}

	p := &Pool{
		blockSize:  blockSize,
		blockCount: blockCount,
		used:       bitset.New(uint(blockCount)),
	}
	for _, opt := range opts {
		opt(p)
	}

	total := blockSize * blockCount
	if p.acquirer != nil {
		if err := p.acquirer.AcquireMemory(int64(total)); err != nil {
			return nil, fmt.Errorf("blockpool: reserve %d bytes: %w", total, err)
		}
		p.charged = int64(total)
	}

	if p.offHeap {
		m, err := mmap.MapAnon(total)
		if err != nil {
			p.release()
			return nil, fmt.Errorf("blockpool: map %d bytes: %w", total, err)
		}
		p.mapping = m
		p.buf = m.Bytes()
	} else {
		p.buf = mem.AllocAligned(total, mem.DefaultAlignment)
	}

	return p, nil
}

// Alloc returns the lowest free block, zeroed.
func (p *Pool) Alloc() ([]byte, error) {
	idx, err := p.AllocIndex()
	if err != nil {
		return nil, err
	}
	b := p.block(idx)
	clear(b)
	return b, nil
}

// AllocIndex marks the lowest free block used and returns its index.
// The block contents are left as is.
func (p *Pool) AllocIndex() (int, error) {
	if p.closed {
		return -1, ErrClosed
	}
	idx, ok := p.used.NextClear(0)
	if !ok || idx >= uint(p.blockCount) {
		return -1, fmt.Errorf("%w: %d blocks of %d bytes", ErrFull, p.blockCount, p.blockSize)
	}
	p.used.Set(idx)
	p.inUse++
	return int(idx), nil
}

// Free returns a block obtained from Alloc to the pool.
func (p *Pool) Free(block []byte) error {
	if p.closed {
		return ErrClosed
	}
	idx, err := p.indexOf(block)
	if err != nil {
		return err
	}
	return p.FreeIndex(idx)
}

// FreeIndex returns block idx to the pool.
func (p *Pool) FreeIndex(idx int) error {
	if p.closed {
		return ErrClosed
	}
	if idx < 0 || idx >= p.blockCount {
		return fmt.Errorf("%w: index %d (count %d)", ErrOutOfRange, idx, p.blockCount)
	}
	if !p.used.Test(uint(idx)) {
		return fmt.Errorf("%w: block %d", ErrDoubleFree, idx)
	}
	p.used.Clear(uint(idx))
	p.inUse--
	return nil
}

func (p *Pool) indexOf(block []byte) (int, error) {
	if len(block) == 0 || len(p.buf) == 0 {
		return -1, fmt.Errorf("%w: empty block", ErrOutOfRange)
	}

	base := uintptr(unsafe.Pointer(&p.buf[0]))  //nolint:gosec // address arithmetic on pool memory
	addr := uintptr(unsafe.Pointer(&block[0])) //nolint:gosec // address arithmetic on pool memory
	if addr < base || addr >= base+uintptr(len(p.buf)) {
		return -1, fmt.Errorf("%w: %#x not in [%#x, %#x)", ErrOutOfRange, addr, base, base+uintptr(len(p.buf)))
	}

	off := int(addr - base)
	if off%p.blockSize != 0 {
		return -1, fmt.Errorf("%w: offset %d, block size %d", ErrMisaligned, off, p.blockSize)
	}
	return off / p.blockSize, nil
}

func (p *Pool) block(idx int) []byte {
	start := idx * p.blockSize
	end := start + p.blockSize
	return p.buf[start:end:end]
}

// Contains reports whether block points into the pool buffer.
func (p *Pool) Contains(block []byte) bool {
	_, err := p.indexOf(block)
	return err == nil || errors.Is(err, ErrMisaligned)
}

// IsBlockUsed reports whether block idx is in use. Out-of-range indices
// report false.
func (p *Pool) IsBlockUsed(idx int) bool {
	if idx < 0 || idx >= p.blockCount {
		return false
	}
	return p.used.Test(uint(idx))
}

// AdjacentBlocks returns the length of the run of blocks starting at first
// that share first's state.
func (p *Pool) AdjacentBlocks(first int) int {
	if first < 0 || first >= p.blockCount {
		return 0
	}
	state := p.used.Test(uint(first))
	n := 1
	for i := first + 1; i < p.blockCount && p.used.Test(uint(i)) == state; i++ {
		n++
	}
	return n
}

// Runs returns the pool as alternating runs of used and free blocks, from
// block 0. The lengths always sum to BlockCount.
func (p *Pool) Runs() []Run {
	var runs []Run
	for i := 0; i < p.blockCount; {
		n := p.AdjacentBlocks(i)
		runs = append(runs, Run{Start: i, Length: n, Used: p.used.Test(uint(i))})
		i += n
	}
	return runs
}

// UsedSet returns a snapshot of the used block indices.
func (p *Pool) UsedSet() *roaring.Bitmap {
	rb := roaring.New()
	for i, ok := p.used.NextSet(0); ok && i < uint(p.blockCount); i, ok = p.used.NextSet(i + 1) {
		rb.Add(uint32(i)) //nolint:gosec // i < MaxBlocks
	}
	return rb
}

// BlockSize returns the size of each block in bytes.
func (p *Pool) BlockSize() int { return p.blockSize }

// BlockCount returns the number of blocks.
func (p *Pool) BlockCount() int { return p.blockCount }

// Used returns the number of blocks in use.
func (p *Pool) Used() int { return p.inUse }

// Close releases the pool buffer.
func (p *Pool) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.buf = nil
	p.release()
	if p.mapping != nil {
		return p.mapping.Close()
	}
	return nil
}

func (p *Pool) release() {
	if p.acquirer != nil && p.charged > 0 {
		p.acquirer.ReleaseMemory(p.charged)
		p.charged = 0
	}
}
