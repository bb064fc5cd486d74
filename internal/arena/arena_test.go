package arena

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAcquirer struct {
	held  int64
	limit int64
}

func (f *fakeAcquirer) AcquireMemory(amount int64) error {
	if f.held+amount > f.limit {
		return errors.New("over budget")
	}
	f.held += amount
	return nil
}

func (f *fakeAcquirer) ReleaseMemory(amount int64) { f.held -= amount }

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		a, err := New(1024)
		require.NoError(t, err)
		defer a.Close()

		assert.Equal(t, 1024, a.Cap())
		assert.Equal(t, 0, a.Offset())
		assert.Equal(t, DefaultAlignment, a.alignment)
	})

	t.Run("invalid capacity", func(t *testing.T) {
		_, err := New(0)
		assert.ErrorIs(t, err, ErrInvalidSize)
	})

	t.Run("invalid alignment", func(t *testing.T) {
		_, err := New(1024, WithAlignment(12))
		assert.ErrorIs(t, err, ErrInvalidAlignment)
	})
}

func TestAlloc(t *testing.T) {
	t.Run("bump and zeroed", func(t *testing.T) {
		a, err := New(1024)
		require.NoError(t, err)
		defer a.Close()

		r1, b1, err := a.Alloc(10)
		require.NoError(t, err)
		assert.Len(t, b1, 10)
		assert.Equal(t, uint64(0), r1.Offset)

		r2, b2, err := a.Alloc(10)
		require.NoError(t, err)
		assert.Equal(t, uint64(16), r2.Offset, "second allocation is aligned past the first")
		assert.Len(t, b2, 10)

		for i := range b1 {
			b1[i] = 0xFF
		}
		assert.Equal(t, make([]byte, 10), b2, "allocations do not overlap")
	})

	t.Run("alignment", func(t *testing.T) {
		a, err := New(4096, WithAlignment(64))
		require.NoError(t, err)
		defer a.Close()

		for _, size := range []int{1, 3, 17, 63, 65} {
			_, b, err := a.Alloc(size)
			require.NoError(t, err)
			assert.Zero(t, uintptr(unsafe.Pointer(&b[0]))%64, "size=%d", size)
		}
	})

	t.Run("full", func(t *testing.T) {
		a, err := New(32)
		require.NoError(t, err)
		defer a.Close()

		_, _, err = a.Alloc(32)
		require.NoError(t, err)
		_, _, err = a.Alloc(1)
		assert.ErrorIs(t, err, ErrArenaFull)
	})

	t.Run("invalid size", func(t *testing.T) {
		a, err := New(32)
		require.NoError(t, err)
		defer a.Close()

		_, _, err = a.Alloc(0)
		assert.ErrorIs(t, err, ErrInvalidSize)
		_, _, err = a.Alloc(-4)
		assert.ErrorIs(t, err, ErrInvalidSize)
	})

	t.Run("capacity cannot be written past", func(t *testing.T) {
		a, err := New(64)
		require.NoError(t, err)
		defer a.Close()

		_, b, err := a.Alloc(8)
		require.NoError(t, err)
		assert.Equal(t, 8, cap(b))
	})
}

func TestReset(t *testing.T) {
	a, err := New(256)
	require.NoError(t, err)
	defer a.Close()

	first, _, err := a.Alloc(40)
	require.NoError(t, err)
	_, _, err = a.Alloc(40)
	require.NoError(t, err)

	a.Reset()
	assert.Equal(t, 0, a.Offset())

	again, b, err := a.Alloc(40)
	require.NoError(t, err)
	assert.Equal(t, first.Offset, again.Offset, "reset rewinds to the first offset")
	assert.NotEqual(t, first.Gen, again.Gen)
	assert.Equal(t, make([]byte, 40), b, "memory reused after reset is zeroed")

	st := a.Stats()
	assert.Equal(t, uint64(1), st.Resets)
	assert.Equal(t, uint64(3), st.TotalAllocs)
	assert.Equal(t, 40, st.BytesUsed)
	assert.Equal(t, 80, st.HighWater)
}

func TestGetSafe(t *testing.T) {
	a, err := New(256)
	require.NoError(t, err)
	defer a.Close()

	ref, b, err := a.Alloc(8)
	require.NoError(t, err)
	copy(b, "scenecor")

	assert.Equal(t, []byte("scenecor"), a.GetSafe(ref, 8))
	assert.Nil(t, a.GetSafe(ref, 64), "beyond the allocated region")
	assert.Nil(t, a.GetSafe(Ref{}, 8), "zero ref is never valid")

	a.Reset()
	assert.Nil(t, a.GetSafe(ref, 8), "stale generation")
}

func TestAllocSlice(t *testing.T) {
	a, err := New(1024)
	require.NoError(t, err)
	defer a.Close()

	_, _, err = a.Alloc(3)
	require.NoError(t, err)

	floats, err := AllocSlice[float64](a, 16)
	require.NoError(t, err)
	require.Len(t, floats, 16)
	assert.Zero(t, uintptr(unsafe.Pointer(&floats[0]))%unsafe.Alignof(floats[0]))

	for i := range floats {
		floats[i] = float64(i)
	}
	assert.Equal(t, 15.0, floats[15])

	_, err = AllocSlice[float64](a, 0)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = AllocSlice[float64](a, 1024)
	assert.ErrorIs(t, err, ErrArenaFull)
}

func TestOffHeap(t *testing.T) {
	a, err := New(1<<16, WithOffHeap())
	require.NoError(t, err)

	_, b, err := a.Alloc(128)
	require.NoError(t, err)
	b[127] = 1

	require.NoError(t, a.Close())
	require.NoError(t, a.Close(), "close is idempotent")

	_, _, err = a.Alloc(1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemoryAcquirer(t *testing.T) {
	acq := &fakeAcquirer{limit: 1024}

	a, err := New(1000, WithMemoryAcquirer(acq))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), acq.held)

	_, err = New(100, WithMemoryAcquirer(acq))
	assert.Error(t, err, "budget exceeded")
	assert.Equal(t, int64(1000), acq.held)

	require.NoError(t, a.Close())
	assert.Equal(t, int64(0), acq.held)
}

func BenchmarkAlloc(b *testing.B) {
	a, err := New(1 << 20)
	require.NoError(b, err)
	defer a.Close()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, _, err := a.Alloc(64); err != nil {
			a.Reset()
		}
	}
}
