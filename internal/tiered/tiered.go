package tiered

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/scenecore/internal/blockpool"
	"github.com/hupe1980/scenecore/internal/freelist"
	"github.com/hupe1980/scenecore/internal/mem"
)

// Alignment is the rounding granularity applied before routing.
const Alignment = 16

// Defaults.
const (
	DefaultSmallBlockSize   = 1024
	DefaultSmallBlockCount  = 1024
	DefaultMediumBlockSize  = 10240
	DefaultMediumBlockCount = 128
	DefaultLargeCapacity    = 8 << 20
)

var (
	// ErrInvalidSize is returned for non-positive sizes.
	ErrInvalidSize = errors.New("tiered: invalid size")
	// ErrInvalidConfig is returned for inconsistent tier boundaries.
	ErrInvalidConfig = errors.New("tiered: invalid configuration")
)

// Class identifies a tier.
type Class int

const (
	Small Class = iota
	Medium
	Large
)

func (c Class) String() string {
	switch c {
	case Small:
		return "small"
	case Medium:
		return "medium"
	case Large:
		return "large"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// MemoryAcquirer is charged for tier memory.
type MemoryAcquirer interface {
	AcquireMemory(amount int64) error
	ReleaseMemory(amount int64)
}

// Config configures the tiers. Zero fields take the defaults.
type Config struct {
	SmallBlockSize   int
	SmallBlockCount  int
	MediumBlockSize  int
	MediumBlockCount int
	LargeCapacity    int

	// OffHeap backs every tier with anonymous mappings.
	OffHeap bool

	// Acquirer is charged for the pool buffers up front and for large
	// allocations while they are live.
	Acquirer MemoryAcquirer
}

// DefaultConfig returns the default tier layout.
func DefaultConfig() Config {
	return Config{
		SmallBlockSize:   DefaultSmallBlockSize,
		SmallBlockCount:  DefaultSmallBlockCount,
		MediumBlockSize:  DefaultMediumBlockSize,
		MediumBlockCount: DefaultMediumBlockCount,
		LargeCapacity:    DefaultLargeCapacity,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.SmallBlockSize == 0 {
		c.SmallBlockSize = d.SmallBlockSize
	}
	if c.SmallBlockCount == 0 {
		c.SmallBlockCount = d.SmallBlockCount
	}
	if c.MediumBlockSize == 0 {
		c.MediumBlockSize = d.MediumBlockSize
	}
	if c.MediumBlockCount == 0 {
		c.MediumBlockCount = d.MediumBlockCount
	}
	if c.LargeCapacity == 0 {
		c.LargeCapacity = d.LargeCapacity
	}
}

// TierStats are counters for one tier.
type TierStats struct {
	Allocs   uint64
	Frees    uint64
	Failures uint64
	// InUse is blocks for the pools and bytes for the large tier.
	InUse int
}

// Stats holds per-tier counters.
type Stats struct {
	Small  TierStats
	Medium TierStats
	Large  TierStats
}

// Allocator is a three-tier allocator.
type Allocator struct {
	mu sync.Mutex

	cfg    Config
	small  *blockpool.Pool
	medium *blockpool.Pool
	large  *freelist.Allocator
	stats  [3]TierStats
}

// New creates the tiers.
func New(cfg Config) (*Allocator, error) {
	cfg.applyDefaults()

	if cfg.SmallBlockSize%Alignment != 0 || cfg.MediumBlockSize%Alignment != 0 ||
		cfg.SmallBlockSize >= cfg.MediumBlockSize {
		return nil, fmt.Errorf("%w: small=%d medium=%d (16-byte multiples, small < medium)",
			ErrInvalidConfig, cfg.SmallBlockSize, cfg.MediumBlockSize)
	}

	var poolOpts []blockpool.Option
	var largeOpts []freelist.Option
	if cfg.OffHeap {
		poolOpts = append(poolOpts, blockpool.WithOffHeap())
		largeOpts = append(largeOpts, freelist.WithOffHeap())
	}
	if cfg.Acquirer != nil {
		poolOpts = append(poolOpts, blockpool.WithMemoryAcquirer(cfg.Acquirer))
		largeOpts = append(largeOpts, freelist.WithMemoryAcquirer(cfg.Acquirer))
	}

	a := &Allocator{cfg: cfg}

	var err error
	if a.small, err = blockpool.New(cfg.SmallBlockSize, cfg.SmallBlockCount, poolOpts...); err != nil {
		return nil, fmt.Errorf("tiered: small tier: %w", err)
	}
	if a.medium, err = blockpool.New(cfg.MediumBlockSize, cfg.MediumBlockCount, poolOpts...); err != nil {
		_ = a.small.Close()
		return nil, fmt.Errorf("tiered: medium tier: %w", err)
	}
	if a.large, err = freelist.New(cfg.LargeCapacity, largeOpts...); err != nil {
		_ = a.small.Close()
		_ = a.medium.Close()
		return nil, fmt.Errorf("tiered: large tier: %w", err)
	}

	return a, nil
}

// RoundUp rounds size up to the next multiple of 16.
func RoundUp(size int) int {
	return mem.AlignUp(size, Alignment)
}

// ClassFor returns the tier that serves size.
func (a *Allocator) ClassFor(size int) Class {
	rounded := RoundUp(size)
	switch {
	case rounded <= a.cfg.SmallBlockSize:
		return Small
	case rounded <= a.cfg.MediumBlockSize:
		return Medium
	default:
		return Large
	}
}

// Alloc returns at least size bytes from the matching tier, zeroed.
// The slice has length size.
func (a *Allocator) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	class := a.ClassFor(size)
	var (
		b   []byte
		err error
	)
	switch class {
	case Small:
		b, err = a.small.Alloc()
	case Medium:
		b, err = a.medium.Alloc()
	default:
		b, err = a.large.Alloc(RoundUp(size))
	}

	st := &a.stats[class]
	if err != nil {
		st.Failures++
		return nil, fmt.Errorf("tiered: %s tier: %w", class, err)
	}
	st.Allocs++
	return b[:size], nil
}

// Free releases b, which must have been returned by Alloc(size).
func (a *Allocator) Free(b []byte, size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	class := a.ClassFor(size)
	var err error
	switch class {
	case Small:
		err = a.small.Free(b)
	case Medium:
		err = a.medium.Free(b)
	default:
		err = a.large.Free(b)
	}

	st := &a.stats[class]
	if err != nil {
		st.Failures++
		return fmt.Errorf("tiered: %s tier: %w", class, err)
	}
	st.Frees++
	return nil
}

// AllocSync is Alloc under the allocator mutex.
func (a *Allocator) AllocSync(size int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Alloc(size)
}

// FreeSync is Free under the allocator mutex.
func (a *Allocator) FreeSync(b []byte, size int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Free(b, size)
}

// Stats returns per-tier counters.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := Stats{Small: a.stats[Small], Medium: a.stats[Medium], Large: a.stats[Large]}
	st.Small.InUse = a.small.Used()
	st.Medium.InUse = a.medium.Used()
	st.Large.InUse = a.large.Stats().InUse
	return st
}

// Inspect calls fn with both block pools while holding the allocator mutex,
// so fn sees a consistent view even with concurrent AllocSync callers.
// fn must not allocate or free.
func (a *Allocator) Inspect(fn func(small, medium *blockpool.Pool)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a.small, a.medium)
}

// Small returns the small-tier pool for diagnostics.
func (a *Allocator) Small() *blockpool.Pool { return a.small }

// Medium returns the medium-tier pool for diagnostics.
func (a *Allocator) Medium() *blockpool.Pool { return a.medium }

// Config returns the effective configuration.
func (a *Allocator) Config() Config { return a.cfg }

// Close releases all tiers.
func (a *Allocator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return errors.Join(a.small.Close(), a.medium.Close(), a.large.Close())
}
