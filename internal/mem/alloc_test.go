package mem

import (
	"fmt"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestAllocAligned(t *testing.T) {
	sizes := []int{1, 10, 15, 16, 17, 100, 1024}
	aligns := []int{8, 16, 64}

	for _, align := range aligns {
		for _, size := range sizes {
			buf := AllocAligned(size, align)
			assert.Len(t, buf, size)
			assert.Equal(t, size, cap(buf), "capacity must not leak past the aligned window")

			addr := uintptr(unsafe.Pointer(&buf[0]))
			assert.Equal(t, uintptr(0), addr%uintptr(align), "size=%d align=%d", size, align)
		}
	}
}

func TestAllocAligned_Invalid(t *testing.T) {
	assert.Nil(t, AllocAligned(0, 16))
	assert.Nil(t, AllocAligned(-1, 16))
	assert.Nil(t, AllocAligned(64, 24))
	assert.Len(t, AllocAligned(64, 0), 64)
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, 0, AlignUp(0, 16))
	assert.Equal(t, 16, AlignUp(1, 16))
	assert.Equal(t, 16, AlignUp(16, 16))
	assert.Equal(t, 1040, AlignUp(1025, 16))
	assert.True(t, IsPowerOfTwo(8))
	assert.False(t, IsPowerOfTwo(12))
}

func BenchmarkAllocAligned(b *testing.B) {
	sizes := []int{64, 1024, 10240}
	for _, size := range sizes {
		b.Run(fmt.Sprintf("size=%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = AllocAligned(size, DefaultAlignment)
			}
		})
	}
}
