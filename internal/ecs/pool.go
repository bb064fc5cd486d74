package ecs

import (
	"fmt"

	"github.com/hupe1980/scenecore/internal/conv"
	"github.com/hupe1980/scenecore/internal/slot"
)

// PoolStats describes pool occupancy.
type PoolStats struct {
	Used     int
	Capacity int
}

// Pool is a fixed-capacity component array with generation-checked slots.
type Pool[T any] struct {
	id      PoolID
	items   []T
	slots   *slot.Allocator
	gens    []uint32 // 0 while the slot is free
	nextGen uint32
}

// NewPool creates a pool of capacity items.
func NewPool[T any](id PoolID, capacity int) (*Pool[T], error) {
	slots, err := slot.New(capacity)
	if err != nil {
		return nil, fmt.Errorf("ecs: %s pool: %w", id, err)
	}
	return &Pool[T]{
		id:      id,
		items:   make([]T, capacity),
		slots:   slots,
		gens:    make([]uint32, capacity),
		nextGen: 1,
	}, nil
}

// Acquire takes the lowest free slot and returns its handle and zeroed item.
func (p *Pool[T]) Acquire() (Handle, *T, error) {
	idx, err := p.slots.Allocate()
	if err != nil {
		return absent(p.id), nil, fmt.Errorf("ecs: %s pool: %w", p.id, err)
	}

	gen := p.nextGen
	p.nextGen++
	if p.nextGen == 0 {
		p.nextGen = 1
	}
	p.gens[idx] = gen

	var zero T
	p.items[idx] = zero

	i32, err := conv.IntToInt32(idx)
	if err != nil {
		return absent(p.id), nil, err
	}
	return Handle{Pool: p.id, Index: i32, Gen: gen}, &p.items[idx], nil
}

// Release frees the slot of h.
func (p *Pool[T]) Release(h Handle) error {
	if err := p.check(h); err != nil {
		return err
	}
	if err := p.slots.Free(int(h.Index)); err != nil {
		return fmt.Errorf("ecs: %s pool: %w", p.id, err)
	}
	p.gens[h.Index] = 0
	return nil
}

// Get returns the item of h.
func (p *Pool[T]) Get(h Handle) (*T, error) {
	if err := p.check(h); err != nil {
		return nil, err
	}
	return &p.items[h.Index], nil
}

// Valid reports whether h refers to a live slot of this pool.
func (p *Pool[T]) Valid(h Handle) bool {
	return p.check(h) == nil
}

func (p *Pool[T]) check(h Handle) error {
	if !h.Present() {
		return fmt.Errorf("%w: %s", ErrNoComponent, p.id)
	}
	if h.Pool != p.id || int(h.Index) >= len(p.gens) {
		return fmt.Errorf("%w: %s does not belong to the %s pool", ErrStaleHandle, h, p.id)
	}
	if g := p.gens[h.Index]; g == 0 || g != h.Gen {
		return fmt.Errorf("%w: %s (slot generation %d)", ErrStaleHandle, h, g)
	}
	return nil
}

// Stats returns pool occupancy.
func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{Used: p.slots.Len(), Capacity: p.slots.Cap()}
}
