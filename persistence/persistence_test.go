package persistence

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePayload() []byte {
	w := NewWriter(0)
	w.Uint8(7)
	w.Bool(true)
	w.Uint32(42)
	w.Int64(-3)
	w.Float64(0.25)
	w.Int(-1)
	w.Text("pctOverlapOfInput")
	w.Float32s([]float32{1, 0, 0.5})
	w.Float64s([]float64{2.5})
	w.Int32s([]int32{-1, 9})
	w.Int64s([]int64{433, -1})
	w.Ints(nil)
	w.Ints([]int{3, 1})
	return w.Bytes()
}

func TestWriterReader(t *testing.T) {
	r := NewReader(samplePayload())
	assert.Equal(t, uint8(7), r.Uint8())
	assert.True(t, r.Bool())
	assert.Equal(t, uint32(42), r.Uint32())
	assert.Equal(t, int64(-3), r.Int64())
	assert.Equal(t, 0.25, r.Float64())
	assert.Equal(t, -1, r.Int())
	assert.Equal(t, "pctOverlapOfInput", r.Text())
	assert.Equal(t, []float32{1, 0, 0.5}, r.Float32s())
	assert.Equal(t, []float64{2.5}, r.Float64s())
	assert.Equal(t, []int32{-1, 9}, r.Int32s())
	assert.Equal(t, []int64{433, -1}, r.Int64s())
	assert.Nil(t, r.Ints())
	assert.Equal(t, []int{3, 1}, r.Ints())
	require.NoError(t, r.Err())
	assert.Zero(t, r.Remaining())
}

func TestReaderTruncated(t *testing.T) {
	payload := samplePayload()
	r := NewReader(payload[:10])
	r.Uint8()
	r.Bool()
	r.Uint32()
	r.Int64()
	require.ErrorIs(t, r.Err(), ErrCorruptPayload)

	// Errors are sticky.
	assert.Zero(t, r.Uint32())
	require.ErrorIs(t, r.Err(), ErrCorruptPayload)
}

func TestReaderRejectsHugeLength(t *testing.T) {
	w := NewWriter(0)
	w.Uint64(1 << 40)
	r := NewReader(w.Bytes())
	assert.Nil(t, r.Float64s())
	require.ErrorIs(t, r.Err(), ErrCorruptPayload)
}

func TestEncodeDecode(t *testing.T) {
	payload := bytes.Repeat(samplePayload(), 50)

	for _, c := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			h := FileHeader{ClassifierVersion: 1, Compression: c, RowCount: 3, Width: 40, Flags: FlagSparse}
			require.NoError(t, Encode(&buf, h, payload))

			got, data, err := Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, payload, data)
			assert.Equal(t, uint32(MagicNumber), got.Magic)
			assert.Equal(t, uint32(1), got.ClassifierVersion)
			assert.Equal(t, uint64(3), got.RowCount)
			assert.Equal(t, uint32(40), got.Width)
			assert.True(t, got.HasFlag(FlagSparse))
			assert.False(t, got.HasFlag(FlagSVD))
			assert.Equal(t, c, got.Compression)
		})
	}
}

func TestHeaderSize(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FileHeader{}, nil))
	assert.Equal(t, HeaderSize, buf.Len())
}

func TestDecodeErrors(t *testing.T) {
	encode := func(t *testing.T) []byte {
		t.Helper()
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, FileHeader{}, samplePayload()))
		return buf.Bytes()
	}

	t.Run("Magic", func(t *testing.T) {
		b := encode(t)
		b[0] ^= 0xFF
		_, _, err := Decode(bytes.NewReader(b))
		require.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("Version", func(t *testing.T) {
		b := encode(t)
		b[4] = 99
		_, _, err := Decode(bytes.NewReader(b))
		require.ErrorIs(t, err, ErrInvalidVersion)
	})

	t.Run("Checksum", func(t *testing.T) {
		b := encode(t)
		b[len(b)-1] ^= 0xFF
		_, _, err := Decode(bytes.NewReader(b))
		assert.True(t, IsChecksumMismatch(err))
	})

	t.Run("Truncated", func(t *testing.T) {
		b := encode(t)
		_, _, err := Decode(bytes.NewReader(b[:len(b)-3]))
		require.ErrorIs(t, err, ErrCorruptPayload)
	})
}

func TestParseCompression(t *testing.T) {
	for _, name := range []string{"none", "zstd", "lz4"} {
		var c Compression
		require.NoError(t, c.UnmarshalText([]byte(name)))
		text, err := c.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, name, string(text))
	}
	_, err := ParseCompression("gzip")
	require.ErrorIs(t, err, ErrUnknownCompression)
}

func TestSaveLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "classifier.knn")
	payload := samplePayload()

	err := SaveToFile(path, func(w io.Writer) error {
		return Encode(w, FileHeader{Compression: CompressionZstd}, payload)
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not remain")

	var got []byte
	err = LoadFromFile(path, func(r io.Reader) error {
		_, data, err := Decode(r)
		got = data
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestSaveToFileFailureKeepsTarget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "classifier.knn")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	err := SaveToFile(path, func(io.Writer) error { return io.ErrUnexpectedEOF })
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
