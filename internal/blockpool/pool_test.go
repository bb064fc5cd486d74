package blockpool

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPool(t *testing.T, size, count int, opts ...Option) *Pool {
	t.Helper()
	p, err := New(size, count, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestNew_InvalidConfig(t *testing.T) {
	for _, tc := range []struct {
		name        string
		size, count int
	}{
		{"zero size", 0, 4},
		{"zero count", 16, 0},
		{"too many blocks", 16, MaxBlocks + 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.size, tc.count)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestAlloc_FirstFitAndZeroed(t *testing.T) {
	p := newPool(t, 32, 4)

	blocks := make([][]byte, 4)
	for i := range blocks {
		b, err := p.Alloc()
		require.NoError(t, err)
		require.Len(t, b, 32)
		for j := range b {
			b[j] = byte(i + 1)
		}
		blocks[i] = b
	}

	_, err := p.Alloc()
	assert.ErrorIs(t, err, ErrFull)

	require.NoError(t, p.Free(blocks[2]))
	b, err := p.Alloc()
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 32), b, "reused block is zeroed")
	assert.Same(t, &blocks[2][0], &b[0], "lowest free block is reused")
}

func TestFree_Errors(t *testing.T) {
	p := newPool(t, 64, 8)

	b, err := p.Alloc()
	require.NoError(t, err)

	t.Run("misaligned", func(t *testing.T) {
		err := p.Free(b[1:])
		assert.ErrorIs(t, err, ErrMisaligned)
		assert.ErrorIs(t, err, ErrOutOfRange)
		assert.True(t, p.IsBlockUsed(0), "rejected free leaves the block used")
	})

	t.Run("foreign memory", func(t *testing.T) {
		err := p.Free(make([]byte, 64))
		assert.ErrorIs(t, err, ErrOutOfRange)
		assert.NotErrorIs(t, err, ErrMisaligned)
	})

	t.Run("empty", func(t *testing.T) {
		assert.ErrorIs(t, p.Free(nil), ErrOutOfRange)
	})

	t.Run("double free", func(t *testing.T) {
		require.NoError(t, p.Free(b))
		assert.ErrorIs(t, p.Free(b), ErrDoubleFree)
	})

	t.Run("index out of range", func(t *testing.T) {
		assert.ErrorIs(t, p.FreeIndex(8), ErrOutOfRange)
		assert.ErrorIs(t, p.FreeIndex(-1), ErrOutOfRange)
	})
}

func TestAdjacentBlocks(t *testing.T) {
	p := newPool(t, 16, 10)

	for i := 0; i < 6; i++ {
		_, err := p.AllocIndex()
		require.NoError(t, err)
	}
	require.NoError(t, p.FreeIndex(2))
	require.NoError(t, p.FreeIndex(3))

	// used: 0 1 _ _ 4 5 _ _ _ _
	assert.Equal(t, 2, p.AdjacentBlocks(0))
	assert.Equal(t, 2, p.AdjacentBlocks(2))
	assert.Equal(t, 2, p.AdjacentBlocks(4))
	assert.Equal(t, 4, p.AdjacentBlocks(6))
	assert.Equal(t, 1, p.AdjacentBlocks(9))
	assert.Equal(t, 0, p.AdjacentBlocks(10))

	assert.Equal(t, []Run{
		{Start: 0, Length: 2, Used: true},
		{Start: 2, Length: 2, Used: false},
		{Start: 4, Length: 2, Used: true},
		{Start: 6, Length: 4, Used: false},
	}, p.Runs())
}

func TestRuns_Property(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := newPool(t, 8, 200)

	for step := 0; step < 2000; step++ {
		if rng.Intn(2) == 0 {
			_, _ = p.AllocIndex()
		} else {
			_ = p.FreeIndex(rng.Intn(200))
		}

		runs := p.Runs()
		total := 0
		for i, r := range runs {
			require.Positive(t, r.Length)
			if i > 0 {
				require.NotEqual(t, runs[i-1].Used, r.Used, "runs alternate")
			}
			total += r.Length
		}
		require.Equal(t, 200, total)
	}
}

func TestUsedSet(t *testing.T) {
	p := newPool(t, 8, 70)
	for i := 0; i < 67; i++ {
		_, err := p.AllocIndex()
		require.NoError(t, err)
	}
	require.NoError(t, p.FreeIndex(5))

	rb := p.UsedSet()
	assert.Equal(t, uint64(66), rb.GetCardinality())
	assert.False(t, rb.Contains(5))
	assert.True(t, rb.Contains(66))
	assert.Equal(t, 66, p.Used())
}

func TestOffHeap(t *testing.T) {
	p, err := New(128, 16, WithOffHeap())
	require.NoError(t, err)

	b, err := p.Alloc()
	require.NoError(t, err)
	assert.True(t, p.Contains(b))
	require.NoError(t, p.Free(b))

	require.NoError(t, p.Close())
	_, err = p.Alloc()
	assert.ErrorIs(t, err, ErrClosed)
}

func BenchmarkAllocFree(b *testing.B) {
	p, err := New(1024, 1024)
	require.NoError(b, err)
	defer p.Close()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		blk, _ := p.Alloc()
		_ = p.Free(blk)
	}
}
