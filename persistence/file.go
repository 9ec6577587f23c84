package persistence

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/hupe1980/knn/internal/conv"
	"github.com/hupe1980/knn/internal/fs"
	"github.com/hupe1980/knn/internal/mmap"
)

// Encode writes h followed by payload, compressed with h.Compression.
// Magic, format version, sizes and checksum are filled in.
func Encode(w io.Writer, h FileHeader, payload []byte) error {
	stored, used, err := compress(payload, h.Compression)
	if err != nil {
		return err
	}
	h.Magic = MagicNumber
	h.FormatVersion = FormatVersion
	h.Compression = used
	if h.PayloadSize, err = conv.IntToUint64(len(payload)); err != nil {
		return err
	}
	if h.StoredSize, err = conv.IntToUint64(len(stored)); err != nil {
		return err
	}
	h.Checksum = CalculateChecksum(stored)

	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return err
	}
	_, err = w.Write(stored)
	return err
}

// Decode reads a header and its payload, verifying magic, format version and
// checksum, and returns the decompressed payload.
func Decode(r io.Reader) (*FileHeader, []byte, error) {
	var h FileHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, nil, err
	}
	if h.Magic != MagicNumber {
		return nil, nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, h.Magic)
	}
	if h.FormatVersion != FormatVersion {
		return nil, nil, fmt.Errorf("%w: got %d", ErrInvalidVersion, h.FormatVersion)
	}

	storedSize, err := conv.Length(h.StoredSize, MaxPayloadSize)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrPayloadTooLarge, err)
	}
	payloadSize, err := conv.Length(h.PayloadSize, MaxPayloadSize)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrPayloadTooLarge, err)
	}

	stored := make([]byte, storedSize)
	if _, err := io.ReadFull(r, stored); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrCorruptPayload, err)
	}
	if err := VerifyChecksum(stored, h.Checksum); err != nil {
		return nil, nil, err
	}
	payload, err := decompress(stored, h.Compression, payloadSize)
	if err != nil {
		return nil, nil, err
	}
	return &h, payload, nil
}

// SaveToFile writes a file atomically: writeFunc fills a temp file in the
// same directory, which is synced and renamed over filename.
func SaveToFile(filename string, writeFunc func(io.Writer) error) error {
	return saveToFile(fs.Default, filename, writeFunc)
}

var tmpSeq atomic.Uint64

func saveToFile(fsys fs.FileSystem, filename string, writeFunc func(io.Writer) error) (err error) {
	dir := filepath.Dir(filename)
	tmpName := fmt.Sprintf("%s.tmp-%d-%d", filename, os.Getpid(), tmpSeq.Add(1))

	tmp, err := fsys.OpenFile(tmpName, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	closed := false
	defer func() {
		if !closed {
			_ = tmp.Close()
		}
		if err != nil {
			_ = fsys.Remove(tmpName)
		}
	}()

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err = writeFunc(buf); err != nil {
		return err
	}
	if err = buf.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	closed = true
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = fsys.Rename(tmpName, filename); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, derr := fsys.OpenFile(dir, os.O_RDONLY, 0); derr == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// LoadFromFile maps filename read-only and hands a reader over its bytes to
// readFunc. The bytes are unmapped when readFunc returns, so readFunc must
// not retain them.
func LoadFromFile(filename string, readFunc func(io.Reader) error) error {
	m, err := mmap.Open(filename)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Advise(mmap.AccessSequential); err != nil {
		return err
	}
	return readFunc(m.Reader())
}
