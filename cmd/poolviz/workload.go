package main

import (
	"math/rand/v2"

	"github.com/hupe1980/scenecore"
)

type allocation struct {
	buf  []byte
	size int
}

// workload drives random allocations against a World. Frees pick a random
// live allocation so the pools fragment over time.
type workload struct {
	w       *scenecore.World
	rng     *rand.Rand
	maxSize int
	live    []allocation

	allocs, frees, failures int
}

func newWorkload(w *scenecore.World, seed uint64, maxSize int) *workload {
	return &workload{
		w:       w,
		rng:     rand.New(rand.NewPCG(seed, seed+1)),
		maxSize: max(maxSize, 1),
	}
}

// step performs n operations. Allocation is favored while fewer than half
// the small blocks are in use.
func (l *workload) step(n int) error {
	for i := 0; i < n; i++ {
		if len(l.live) > 0 && l.rng.IntN(2) == 0 {
			if err := l.free(l.rng.IntN(len(l.live))); err != nil {
				return err
			}
			continue
		}
		size := 1 + l.rng.IntN(l.maxSize)
		b, err := l.w.Alloc(size)
		if err != nil {
			l.failures++
			continue
		}
		l.allocs++
		l.live = append(l.live, allocation{buf: b, size: size})
	}
	return nil
}

func (l *workload) free(i int) error {
	a := l.live[i]
	l.live[i] = l.live[len(l.live)-1]
	l.live = l.live[:len(l.live)-1]
	if err := l.w.Free(a.buf, a.size); err != nil {
		return err
	}
	l.frees++
	return nil
}

// drain frees every live allocation.
func (l *workload) drain() error {
	for len(l.live) > 0 {
		if err := l.free(len(l.live) - 1); err != nil {
			return err
		}
	}
	return nil
}
