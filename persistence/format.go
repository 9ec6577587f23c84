package persistence

import (
	"errors"
	"fmt"
)

const (
	// MagicNumber identifies classifier snapshots (ASCII: "KNN0").
	MagicNumber = 0x4B4E4E30

	// FormatVersion is the current container format version.
	FormatVersion = 1

	// HeaderSize is the encoded size of FileHeader in bytes.
	HeaderSize = 64

	// MaxPayloadSize bounds the payload accepted by Decode.
	MaxPayloadSize = 1 << 34
)

// Header flags.
const (
	FlagSparse uint8 = 1 << iota
	FlagSVD
	FlagFixedCapacity
)

var (
	ErrInvalidMagic       = errors.New("persistence: invalid magic number")
	ErrInvalidVersion     = errors.New("persistence: unsupported format version")
	ErrPayloadTooLarge    = errors.New("persistence: payload too large")
	ErrCorruptPayload     = errors.New("persistence: corrupt payload")
	ErrUnknownCompression = errors.New("persistence: unknown compression")
)

// FileHeader is the 64-byte header at the start of every snapshot.
type FileHeader struct {
	Magic             uint32 // 0x4B4E4E30 ("KNN0")
	FormatVersion     uint32
	ClassifierVersion uint32
	Compression       Compression
	Flags             uint8
	Padding1          [2]byte
	RowCount          uint64
	Width             uint32
	Checksum          uint32 // CRC32 of the stored payload
	PayloadSize       uint64 // uncompressed
	StoredSize        uint64
	Reserved          [16]byte
}

// HasFlag reports whether f is set.
func (h *FileHeader) HasFlag(f uint8) bool { return h.Flags&f != 0 }

// Compression selects the payload codec.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}

// ParseCompression returns the codec with the given name.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Compression) MarshalText() ([]byte, error) {
	if c > CompressionLZ4 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Compression) UnmarshalText(text []byte) error {
	v, err := ParseCompression(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
