package capture

import (
	"bytes"
	"encoding/binary"
	"runtime"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scenecore/internal/arena"
	"github.com/hupe1980/scenecore/internal/tiered"
)

func testFrame() *Frame {
	f := &Frame{Sequence: 42}
	for id := int32(0); id < 8; id++ {
		e := EntityFrame{ID: id, Gen: uint32(id) + 1}
		for n := 0; n < 12; n++ {
			e.Nodes = append(e.Nodes, mgl32.Translate3D(float32(id), float32(n), 0))
		}
		if id%2 == 0 {
			e.Joints = []mgl32.Mat4{mgl32.Ident4(), mgl32.Scale3D(2, 2, 2)}
		}
		f.Entities = append(f.Entities, e)
	}
	return f
}

func newWriter(t *testing.T, codec Codec) *Writer {
	t.Helper()
	a, err := arena.New(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	bufs, err := tiered.New(tiered.Config{SmallBlockCount: 4, MediumBlockCount: 4, LargeCapacity: 1 << 20})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bufs.Close() })

	return NewWriter(codec, a, bufs)
}

func TestRoundTrip(t *testing.T) {
	for _, codec := range []Codec{CodecNone, CodecLZ4, CodecZstd} {
		t.Run(codec.String(), func(t *testing.T) {
			w := newWriter(t, codec)
			in := testFrame()

			var buf bytes.Buffer
			st, err := w.WriteFrame(&buf, in)
			require.NoError(t, err)
			assert.Equal(t, 8, st.Entities)
			assert.Equal(t, in.RawSize(), st.RawBytes)
			assert.Equal(t, st.Written(), buf.Len())
			if codec != CodecNone {
				assert.False(t, st.Stored, "repetitive matrices compress")
				assert.Less(t, st.StoredBytes, st.RawBytes)
			}

			out, err := Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, in, out)
		})
	}
}

func TestRoundTrip_Empty(t *testing.T) {
	w := newWriter(t, CodecLZ4)

	var buf bytes.Buffer
	_, err := w.WriteFrame(&buf, &Frame{Sequence: 1})
	require.NoError(t, err)
	assert.Equal(t, headerSize, buf.Len())

	out, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), out.Sequence)
	assert.Empty(t, out.Entities)
}

func TestWriter_ReusesBuffers(t *testing.T) {
	w := newWriter(t, CodecZstd)
	f := testFrame()

	for i := 0; i < 3; i++ {
		_, err := w.WriteFrame(&bytes.Buffer{}, f)
		require.NoError(t, err)
	}
	st := w.bufs.(*tiered.Allocator).Stats()
	assert.Zero(t, st.Small.InUse+st.Medium.InUse+st.Large.InUse, "compression buffers are returned")
}

func TestWriter_ArenaTooSmall(t *testing.T) {
	a, err := arena.New(64)
	require.NoError(t, err)
	defer a.Close()

	_, err = NewWriter(CodecNone, a, nil).WriteFrame(&bytes.Buffer{}, testFrame())
	assert.ErrorIs(t, err, arena.ErrArenaFull)
}

func TestDecode_Errors(t *testing.T) {
	w := newWriter(t, CodecLZ4)
	var buf bytes.Buffer
	_, err := w.WriteFrame(&buf, testFrame())
	require.NoError(t, err)
	good := buf.Bytes()

	t.Run("bad magic", func(t *testing.T) {
		b := bytes.Clone(good)
		b[0] = 'X'
		_, err := Decode(bytes.NewReader(b))
		assert.ErrorIs(t, err, ErrBadMagic)
	})

	t.Run("version", func(t *testing.T) {
		b := bytes.Clone(good)
		b[4] = 9
		_, err := Decode(bytes.NewReader(b))
		assert.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := Decode(bytes.NewReader(good[:len(good)-5]))
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("short header", func(t *testing.T) {
		_, err := Decode(bytes.NewReader(good[:10]))
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("garbage payload", func(t *testing.T) {
		b := bytes.Clone(good)
		for i := headerSize; i < len(b); i++ {
			b[i] = 0xFF
		}
		_, err := Decode(bytes.NewReader(b))
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

func header(codec Codec, flags byte, count, rawLen, storedLen uint32) []byte {
	b := make([]byte, headerSize)
	copy(b, magic[:])
	binary.LittleEndian.PutUint16(b[4:], Version)
	b[6] = byte(codec)
	b[7] = flags
	binary.LittleEndian.PutUint64(b[8:], 1)
	binary.LittleEndian.PutUint32(b[16:], count)
	binary.LittleEndian.PutUint32(b[20:], rawLen)
	binary.LittleEndian.PutUint32(b[24:], storedLen)
	return b
}

func TestDecode_RejectsOversizedHeaders(t *testing.T) {
	one := uint32(EntitySize(1, 0))

	tests := []struct {
		name string
		data []byte
	}{
		{"raw length beyond entity caps", append(header(CodecLZ4, 0, 0, 1<<30, 4), 1, 2, 3, 4)},
		{"raw length beyond caps of one entity", header(CodecZstd, 0, 1, uint32(EntitySize(65, 64)), 16)},
		{"too many entities", header(CodecLZ4, 0, DefaultMaxEntities+1, (DefaultMaxEntities+1)*entityHeaderSize, 64)},
		{"stored length beyond compress bound", header(CodecLZ4, 0, 1, one, 1<<20)},
		{"stored length claims more than sent", header(CodecNone, flagStored, 1, one, one)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var before, after runtime.MemStats
			runtime.ReadMemStats(&before)
			_, err := Decode(bytes.NewReader(tt.data))
			runtime.ReadMemStats(&after)

			assert.ErrorIs(t, err, ErrCorrupt)
			assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20), "header lengths do not drive allocation")
		})
	}
}

func TestDecode_MaxEntities(t *testing.T) {
	w := newWriter(t, CodecZstd)
	var buf bytes.Buffer
	_, err := w.WriteFrame(&buf, testFrame())
	require.NoError(t, err)

	_, err = Decode(bytes.NewReader(buf.Bytes()), WithMaxEntities(4))
	assert.ErrorIs(t, err, ErrCorrupt)

	f, err := Decode(bytes.NewReader(buf.Bytes()), WithMaxEntities(8))
	require.NoError(t, err)
	assert.Len(t, f.Entities, 8)
}

func TestParseCodec(t *testing.T) {
	for name, want := range map[string]Codec{"lz4": CodecLZ4, "zstd": CodecZstd, "none": CodecNone} {
		got, err := ParseCodec(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, name, got.String())
	}
	_, err := ParseCodec("brotli")
	assert.ErrorIs(t, err, ErrUnknownCodec)
}
