package capture

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/hupe1980/scenecore/internal/arena"
	"github.com/hupe1980/scenecore/internal/conv"
	"github.com/hupe1980/scenecore/internal/transform"
)

// Version is the current format version.
const Version = 1

const (
	headerSize       = 28
	entityHeaderSize = 12
	matrixSize       = 16 * 4

	flagStored = 1 << 0
)

var magic = [4]byte{'S', 'C', 'A', 'P'}

// DefaultMaxEntities is the entity count Decode accepts unless
// WithMaxEntities says otherwise.
const DefaultMaxEntities = 4096

// DecodeOption configures Decode.
type DecodeOption func(*decodeOptions)

type decodeOptions struct {
	maxEntities int
}

// WithMaxEntities bounds the entity count of a decoded frame. Together with
// the per-entity node and joint caps it bounds every buffer Decode allocates.
func WithMaxEntities(n int) DecodeOption {
	return func(o *decodeOptions) {
		if n > 0 {
			o.maxEntities = n
		}
	}
}

var (
	// ErrBadMagic is returned when the input is not a capture.
	ErrBadMagic = errors.New("capture: bad magic")
	// ErrUnsupportedVersion is returned for captures written by a newer format.
	ErrUnsupportedVersion = errors.New("capture: unsupported version")
	// ErrCorrupt is returned for truncated or inconsistent captures.
	ErrCorrupt = errors.New("capture: corrupt frame")
)

// EntityFrame is the captured state of one entity.
type EntityFrame struct {
	ID     int32
	Gen    uint32
	Nodes  []mgl32.Mat4
	Joints []mgl32.Mat4
}

// Frame is one captured frame.
type Frame struct {
	Sequence uint64
	Entities []EntityFrame
}

// RawSize returns the uncompressed payload size of f.
func (f *Frame) RawSize() int {
	n := 0
	for i := range f.Entities {
		e := &f.Entities[i]
		n += EntitySize(len(e.Nodes), len(e.Joints))
	}
	return n
}

// EntitySize returns the encoded size of an entity with the given matrix
// counts.
func EntitySize(nodes, joints int) int {
	return entityHeaderSize + matrixSize*(nodes+joints)
}

// BufferAllocator lends compression buffers.
type BufferAllocator interface {
	AllocSync(size int) ([]byte, error)
	FreeSync(b []byte, size int) error
}

// Stats describes one written frame.
type Stats struct {
	Entities    int
	RawBytes    int
	StoredBytes int
	Codec       Codec
	Stored      bool
}

// Written returns the number of bytes the frame occupies in the output.
func (s Stats) Written() int {
	return headerSize + s.StoredBytes
}

// Writer encodes frames. It is not safe for concurrent use.
type Writer struct {
	codec Codec
	arena *arena.Arena
	bufs  BufferAllocator
}

// NewWriter returns a Writer that builds payloads in a and borrows
// compression buffers from bufs. bufs may be nil, in which case buffers come
// from the Go heap.
func NewWriter(codec Codec, a *arena.Arena, bufs BufferAllocator) *Writer {
	return &Writer{codec: codec, arena: a, bufs: bufs}
}

// Codec returns the configured codec.
func (w *Writer) Codec() Codec { return w.codec }

// WriteFrame encodes f and writes it to dst.
func (w *Writer) WriteFrame(dst io.Writer, f *Frame) (Stats, error) {
	st := Stats{Entities: len(f.Entities), Codec: w.codec}

	rawLen := f.RawSize()
	st.RawBytes = rawLen

	w.arena.Reset()
	var raw []byte
	if rawLen > 0 {
		var err error
		if _, raw, err = w.arena.Alloc(rawLen); err != nil {
			return st, fmt.Errorf("capture: frame buffer: %w", err)
		}
		encodePayload(raw, f)
	}

	payload := raw
	stored := true
	if w.codec != CodecNone && rawLen > 0 {
		bound := CompressBound(w.codec, rawLen)
		buf, release, err := w.borrow(bound)
		if err != nil {
			return st, err
		}
		defer release()

		out, err := compress(w.codec, buf, raw)
		if err != nil {
			return st, err
		}
		if len(out) > 0 && len(out) < rawLen*9/10 {
			payload = out
			stored = false
		}
	}
	st.Stored = stored
	st.StoredBytes = len(payload)

	var hdr [headerSize]byte
	copy(hdr[0:4], magic[:])
	binary.LittleEndian.PutUint16(hdr[4:6], Version)
	hdr[6] = byte(w.codec)
	if stored {
		hdr[7] = flagStored
	}
	binary.LittleEndian.PutUint64(hdr[8:16], f.Sequence)

	counts := [3]int{len(f.Entities), rawLen, len(payload)}
	for i, v := range counts {
		u, err := conv.IntToUint32(v)
		if err != nil {
			return st, fmt.Errorf("capture: header field %d: %w", i, err)
		}
		binary.LittleEndian.PutUint32(hdr[16+4*i:], u)
	}

	if _, err := dst.Write(hdr[:]); err != nil {
		return st, fmt.Errorf("capture: write header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := dst.Write(payload); err != nil {
			return st, fmt.Errorf("capture: write payload: %w", err)
		}
	}
	return st, nil
}

func (w *Writer) borrow(size int) ([]byte, func(), error) {
	if w.bufs == nil {
		return make([]byte, size), func() {}, nil
	}
	b, err := w.bufs.AllocSync(size)
	if err != nil {
		return nil, nil, fmt.Errorf("capture: compression buffer: %w", err)
	}
	return b, func() { _ = w.bufs.FreeSync(b, size) }, nil
}

func putMatrix(dst []byte, m *mgl32.Mat4) {
	for i, v := range m {
		binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(v))
	}
}

func getMatrix(src []byte) mgl32.Mat4 {
	var m mgl32.Mat4
	for i := range m {
		m[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[4*i:]))
	}
	return m
}

func encodePayload(dst []byte, f *Frame) {
	off := 0
	for i := range f.Entities {
		e := &f.Entities[i]
		binary.LittleEndian.PutUint32(dst[off:], uint32(e.ID)) //nolint:gosec // bit pattern preserved
		binary.LittleEndian.PutUint32(dst[off+4:], e.Gen)
		binary.LittleEndian.PutUint16(dst[off+8:], uint16(len(e.Nodes)))   //nolint:gosec // <= 64
		binary.LittleEndian.PutUint16(dst[off+10:], uint16(len(e.Joints))) //nolint:gosec // <= 64
		off += entityHeaderSize
		for j := range e.Nodes {
			putMatrix(dst[off:], &e.Nodes[j])
			off += matrixSize
		}
		for j := range e.Joints {
			putMatrix(dst[off:], &e.Joints[j])
			off += matrixSize
		}
	}
}

// Decode reads one frame from r. Header lengths are checked against the
// entity limit before anything is allocated, and the payload buffer grows
// only as bytes arrive.
func Decode(r io.Reader, opts ...DecodeOption) (*Frame, error) {
	o := decodeOptions{maxEntities: DefaultMaxEntities}
	for _, fn := range opts {
		fn(&o)
	}

	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrCorrupt, err)
	}
	if [4]byte(hdr[0:4]) != magic {
		return nil, ErrBadMagic
	}
	if v := binary.LittleEndian.Uint16(hdr[4:6]); v != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	codec := Codec(hdr[6])
	stored := hdr[7]&flagStored != 0
	f := &Frame{Sequence: binary.LittleEndian.Uint64(hdr[8:16])}
	count := int(binary.LittleEndian.Uint32(hdr[16:20]))
	rawLen := int(binary.LittleEndian.Uint32(hdr[20:24]))
	storedLen := int(binary.LittleEndian.Uint32(hdr[24:28]))

	if count > o.maxEntities {
		return nil, fmt.Errorf("%w: %d entities (max %d)", ErrCorrupt, count, o.maxEntities)
	}
	if rawLen > count*EntitySize(transform.MaxNodes, transform.MaxJoints) {
		return nil, fmt.Errorf("%w: %d payload bytes for %d entities", ErrCorrupt, rawLen, count)
	}
	if count*entityHeaderSize > rawLen {
		return nil, fmt.Errorf("%w: %d entities in %d bytes", ErrCorrupt, count, rawLen)
	}
	if stored && storedLen != rawLen {
		return nil, fmt.Errorf("%w: stored payload %d != raw %d", ErrCorrupt, storedLen, rawLen)
	}
	if storedLen > CompressBound(codec, rawLen) {
		return nil, fmt.Errorf("%w: stored payload %d exceeds bound for raw %d", ErrCorrupt, storedLen, rawLen)
	}

	var buf bytes.Buffer
	if n, err := io.CopyN(&buf, r, int64(storedLen)); err != nil {
		return nil, fmt.Errorf("%w: payload: %d of %d bytes: %w", ErrCorrupt, n, storedLen, err)
	}
	payload := buf.Bytes()

	raw := payload
	if !stored {
		raw = make([]byte, rawLen)
		if err := decompress(codec, raw, payload); err != nil {
			return nil, err
		}
	}

	f.Entities = make([]EntityFrame, 0, count)
	off := 0
	for i := 0; i < count; i++ {
		if off+entityHeaderSize > len(raw) {
			return nil, fmt.Errorf("%w: entity %d header truncated", ErrCorrupt, i)
		}
		e := EntityFrame{
			ID:  int32(binary.LittleEndian.Uint32(raw[off:])), //nolint:gosec // bit pattern preserved
			Gen: binary.LittleEndian.Uint32(raw[off+4:]),
		}
		nodes := int(binary.LittleEndian.Uint16(raw[off+8:]))
		joints := int(binary.LittleEndian.Uint16(raw[off+10:]))
		off += entityHeaderSize

		if off+matrixSize*(nodes+joints) > len(raw) {
			return nil, fmt.Errorf("%w: entity %d matrices truncated", ErrCorrupt, i)
		}
		if nodes > 0 {
			e.Nodes = make([]mgl32.Mat4, nodes)
		}
		for j := range e.Nodes {
			e.Nodes[j] = getMatrix(raw[off:])
			off += matrixSize
		}
		if joints > 0 {
			e.Joints = make([]mgl32.Mat4, joints)
		}
		for j := range e.Joints {
			e.Joints[j] = getMatrix(raw[off:])
			off += matrixSize
		}
		f.Entities = append(f.Entities, e)
	}
	if off != len(raw) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(raw)-off)
	}
	return f, nil
}
