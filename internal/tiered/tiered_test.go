package tiered

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scenecore/internal/blockpool"
	"github.com/hupe1980/scenecore/internal/freelist"
)

func newAllocator(t *testing.T, cfg Config) *Allocator {
	t.Helper()
	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestRoundUp(t *testing.T) {
	for in, want := range map[int]int{1: 16, 15: 16, 16: 16, 17: 32, 1024: 1024, 1025: 1040} {
		assert.Equal(t, want, RoundUp(in), "RoundUp(%d)", in)
	}
}

func TestClassFor(t *testing.T) {
	a := newAllocator(t, Config{})

	tests := []struct {
		size int
		want Class
	}{
		{1, Small},
		{1024, Small},
		{1025, Medium},
		{10240, Medium},
		{10241, Large},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, a.ClassFor(tt.size), "size=%d", tt.size)
	}
}

func TestAllocFree_RoutingConsistent(t *testing.T) {
	a := newAllocator(t, Config{})

	for _, size := range []int{1, 1024, 1025, 10240, 10241} {
		b, err := a.Alloc(size)
		require.NoError(t, err, "size=%d", size)
		require.Len(t, b, size)
		b[size-1] = 0xAB
		require.NoError(t, a.Free(b, size), "size=%d", size)
	}

	st := a.Stats()
	assert.Equal(t, uint64(2), st.Small.Allocs)
	assert.Equal(t, uint64(2), st.Medium.Allocs)
	assert.Equal(t, uint64(1), st.Large.Allocs)
	assert.Equal(t, uint64(2), st.Small.Frees)
	assert.Zero(t, st.Small.InUse)
	assert.Zero(t, st.Large.InUse)
}

func TestFree_MismatchedSize(t *testing.T) {
	a := newAllocator(t, Config{})

	b, err := a.Alloc(100)
	require.NoError(t, err)

	err = a.Free(b, 2000)
	assert.ErrorIs(t, err, blockpool.ErrOutOfRange, "small block rejected by the medium tier")

	err = a.Free(b, 20000)
	assert.ErrorIs(t, err, freelist.ErrOutOfRange, "small block rejected by the large tier")

	require.NoError(t, a.Free(b, 100))
	assert.ErrorIs(t, a.Free(b, 100), blockpool.ErrDoubleFree)
	assert.Equal(t, uint64(3), a.Stats().Small.Failures+a.Stats().Medium.Failures+a.Stats().Large.Failures)
}

func TestInvalidSize(t *testing.T) {
	a := newAllocator(t, Config{})

	_, err := a.Alloc(0)
	assert.ErrorIs(t, err, ErrInvalidSize)
	assert.ErrorIs(t, a.Free([]byte{1}, -1), ErrInvalidSize)
}

func TestInvalidConfig(t *testing.T) {
	_, err := New(Config{SmallBlockSize: 1000})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{SmallBlockSize: 4096, MediumBlockSize: 2048})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSmallTierExhaustion(t *testing.T) {
	a := newAllocator(t, Config{SmallBlockCount: 2, MediumBlockCount: 1, LargeCapacity: 64 << 10})

	_, err := a.Alloc(8)
	require.NoError(t, err)
	_, err = a.Alloc(8)
	require.NoError(t, err)

	_, err = a.Alloc(8)
	assert.ErrorIs(t, err, blockpool.ErrFull, "tiers never spill into each other")
	assert.Equal(t, uint64(1), a.Stats().Small.Failures)
}

type budget struct {
	mu          sync.Mutex
	held, limit int64
}

func (b *budget) AcquireMemory(n int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.held+n > b.limit {
		return errors.New("budget exceeded")
	}
	b.held += n
	return nil
}

func (b *budget) ReleaseMemory(n int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.held -= n
}

func TestAcquirer(t *testing.T) {
	bud := &budget{limit: 1 << 30}
	cfg := Config{SmallBlockCount: 4, MediumBlockCount: 2, LargeCapacity: 1 << 16, Acquirer: bud}
	a, err := New(cfg)
	require.NoError(t, err)

	pools := int64(4*DefaultSmallBlockSize + 2*DefaultMediumBlockSize)
	assert.Equal(t, pools, bud.held)

	b, err := a.Alloc(20000)
	require.NoError(t, err)
	assert.Equal(t, pools+int64(RoundUp(20000)), bud.held)
	require.NoError(t, a.Free(b, 20000))

	require.NoError(t, a.Close())
	assert.Zero(t, bud.held)
}

func TestSync_Concurrent(t *testing.T) {
	a := newAllocator(t, Config{})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			sizes := []int{16, 1500, 12000}
			for i := 0; i < 200; i++ {
				size := sizes[(g+i)%len(sizes)]
				b, err := a.AllocSync(size)
				if !assert.NoError(t, err) {
					return
				}
				b[0] = byte(g)
				assert.NoError(t, a.FreeSync(b, size))
			}
		}(g)
	}
	wg.Wait()

	st := a.Stats()
	assert.Equal(t, st.Small.Allocs, st.Small.Frees)
	assert.Equal(t, st.Medium.Allocs, st.Medium.Frees)
	assert.Equal(t, st.Large.Allocs, st.Large.Frees)
	assert.Zero(t, st.Large.InUse)
}

func TestInspect(t *testing.T) {
	a := newAllocator(t, Config{SmallBlockCount: 4, MediumBlockCount: 2, LargeCapacity: 64 << 10})

	_, err := a.AllocSync(100)
	require.NoError(t, err)
	_, err = a.AllocSync(2000)
	require.NoError(t, err)

	a.Inspect(func(small, medium *blockpool.Pool) {
		assert.Equal(t, 1, small.Used())
		assert.Equal(t, 4, small.BlockCount())
		assert.Equal(t, 1, medium.Used())
		assert.True(t, medium.IsBlockUsed(0))
	})
}
