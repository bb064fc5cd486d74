package capture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec is a payload compression algorithm.
type Codec uint8

const (
	CodecNone Codec = 0
	CodecLZ4  Codec = 1
	CodecZstd Codec = 2
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// ParseCodec maps a codec name to a Codec.
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "none", "":
		return CodecNone, nil
	case "lz4":
		return CodecLZ4, nil
	case "zstd":
		return CodecZstd, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// ErrUnknownCodec is returned for an unsupported codec.
var ErrUnknownCodec = errors.New("capture: unknown codec")

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	// DecodeAll never writes past cap(dst), which Decode sizes from the
	// validated header.
	return zstd.NewReader(nil, zstd.WithDecodeAllCapLimit(true))
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// CompressBound is the worst-case compressed size of n bytes.
func CompressBound(c Codec, n int) int {
	switch c {
	case CodecLZ4:
		return lz4.CompressBlockBound(n)
	case CodecZstd:
		// ZSTD_COMPRESSBOUND
		bound := n + n>>8
		if n < 128<<10 {
			bound += (128<<10 - n) >> 11
		}
		return bound
	default:
		return n
	}
}

// compress writes src compressed with c into dst and returns the used
// prefix of dst. A zero-length result means src is incompressible.
func compress(c Codec, dst, src []byte) ([]byte, error) {
	switch c {
	case CodecNone:
		return nil, nil
	case CodecLZ4:
		n, err := lz4.CompressBlock(src, dst, nil)
		if err != nil {
			return nil, fmt.Errorf("capture: lz4: %w", err)
		}
		return dst[:n], nil
	case CodecZstd:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, fmt.Errorf("capture: zstd: %w", err)
		}
		defer putZstdEncoder(enc)
		return enc.EncodeAll(src, dst[:0]), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCodec, uint8(c))
	}
}

func decompress(c Codec, dst, src []byte) error {
	switch c {
	case CodecLZ4:
		n, err := lz4.UncompressBlock(src, dst)
		if err != nil {
			return fmt.Errorf("%w: lz4: %w", ErrCorrupt, err)
		}
		if n != len(dst) {
			return fmt.Errorf("%w: lz4 size mismatch (%d != %d)", ErrCorrupt, n, len(dst))
		}
		return nil
	case CodecZstd:
		dec, err := getZstdDecoder()
		if err != nil {
			return fmt.Errorf("capture: zstd: %w", err)
		}
		defer putZstdDecoder(dec)

		out, err := dec.DecodeAll(src, dst[:0])
		if err != nil {
			return fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
		}
		if len(out) != len(dst) {
			return fmt.Errorf("%w: zstd size mismatch (%d != %d)", ErrCorrupt, len(out), len(dst))
		}
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownCodec, uint8(c))
	}
}
