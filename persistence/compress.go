package persistence

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

// compress encodes payload with c. It returns the stored bytes and the codec
// actually used: incompressible lz4 input falls back to CompressionNone.
func compress(payload []byte, c Compression) ([]byte, Compression, error) {
	if len(payload) == 0 {
		return payload, CompressionNone, nil
	}
	switch c {
	case CompressionNone:
		return payload, CompressionNone, nil
	case CompressionZstd:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, 0, err
		}
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(payload, nil), CompressionZstd, nil
	case CompressionLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(payload)))
		n, err := lz4.CompressBlock(payload, dst, nil)
		if err != nil {
			return nil, 0, err
		}
		if n == 0 {
			return payload, CompressionNone, nil
		}
		return dst[:n], CompressionLZ4, nil
	default:
		return nil, 0, fmt.Errorf("%w: %d", ErrUnknownCompression, uint8(c))
	}
}

// decompress restores a payload of the given uncompressed size.
func decompress(stored []byte, c Compression, size int) ([]byte, error) {
	switch c {
	case CompressionNone:
		if len(stored) != size {
			return nil, fmt.Errorf("%w: stored %d bytes, want %d", ErrCorruptPayload, len(stored), size)
		}
		return stored, nil
	case CompressionZstd:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(stored, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptPayload, err)
		}
		if len(out) != size {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorruptPayload)
		}
		return out, nil
	case CompressionLZ4:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(stored, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptPayload, err)
		}
		if n != size {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorruptPayload)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, uint8(c))
	}
}
