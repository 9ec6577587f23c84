package persistence

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/knn/internal/conv"
)

// Writer appends little-endian values to an in-memory payload. The first
// error is sticky; later writes are no-ops and Err reports it.
type Writer struct {
	buf []byte
	err error
}

// NewWriter creates a writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, max(capacity, 0))}
}

// Bytes returns the encoded payload.
func (w *Writer) Bytes() []byte { return w.buf }

// Err returns the first error encountered.
func (w *Writer) Err() error { return w.err }

func (w *Writer) Uint8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) Bool(v bool) {
	if v {
		w.Uint8(1)
		return
	}
	w.Uint8(0)
}

func (w *Writer) Uint32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

func (w *Writer) Uint64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }

func (w *Writer) Int64(v int64) { w.Uint64(uint64(v)) } //nolint:gosec // bit pattern

func (w *Writer) Float64(v float64) { w.Uint64(math.Float64bits(v)) }

// Int writes an int as a signed 64-bit value.
func (w *Writer) Int(v int) { w.Int64(int64(v)) }

func (w *Writer) length(n int) {
	if w.err != nil {
		return
	}
	u, err := conv.IntToUint64(n)
	if err != nil {
		w.err = err
		return
	}
	w.Uint64(u)
}

// Text writes a length-prefixed string.
func (w *Writer) Text(s string) {
	w.length(len(s))
	w.buf = append(w.buf, s...)
}

// Float32s writes a length-prefixed float32 slice.
func (w *Writer) Float32s(v []float32) {
	w.length(len(v))
	for _, x := range v {
		w.Uint32(math.Float32bits(x))
	}
}

// Float64s writes a length-prefixed float64 slice.
func (w *Writer) Float64s(v []float64) {
	w.length(len(v))
	for _, x := range v {
		w.Float64(x)
	}
}

// Int32s writes a length-prefixed int32 slice.
func (w *Writer) Int32s(v []int32) {
	w.length(len(v))
	for _, x := range v {
		w.Uint32(uint32(x)) //nolint:gosec // bit pattern
	}
}

// Int64s writes a length-prefixed int64 slice.
func (w *Writer) Int64s(v []int64) {
	w.length(len(v))
	for _, x := range v {
		w.Int64(x)
	}
}

// Ints writes a length-prefixed int slice as signed 64-bit values.
func (w *Writer) Ints(v []int) {
	w.length(len(v))
	for _, x := range v {
		w.Int(x)
	}
}

// Reader decodes a payload produced by Writer. The first error is sticky;
// later reads return zero values and Err reports it.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader creates a reader over payload.
func NewReader(payload []byte) *Reader {
	return &Reader{buf: payload}
}

// Err returns the first error encountered.
func (r *Reader) Err() error { return r.err }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.Remaining() {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrCorruptPayload, n, r.off, r.Remaining())
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) Uint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Bool() bool { return r.Uint8() != 0 }

func (r *Reader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) Uint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) Int64() int64 { return int64(r.Uint64()) } //nolint:gosec // bit pattern

func (r *Reader) Float64() float64 { return math.Float64frombits(r.Uint64()) }

// Int reads a signed 64-bit value into an int.
func (r *Reader) Int() int {
	v := r.Int64()
	if r.err == nil && (v > math.MaxInt || v < math.MinInt) {
		r.err = fmt.Errorf("%w: int %d out of range", ErrCorruptPayload, v)
		return 0
	}
	return int(v)
}

// length reads a count and checks that count elements of elemSize bytes fit
// in the unread payload.
func (r *Reader) length(elemSize int) int {
	raw := r.Uint64()
	if r.err != nil {
		return 0
	}
	n, err := conv.Uint64ToInt(raw)
	if err != nil {
		r.err = fmt.Errorf("%w: %w", ErrCorruptPayload, err)
		return 0
	}
	if limit := r.Remaining() / elemSize; n > limit {
		r.err = fmt.Errorf("%w: length %d exceeds remaining %d", ErrCorruptPayload, n, limit)
		return 0
	}
	return n
}

// Text reads a length-prefixed string.
func (r *Reader) Text() string {
	n := r.length(1)
	return string(r.take(n))
}

// Float32s reads a length-prefixed float32 slice.
func (r *Reader) Float32s() []float32 {
	n := r.length(4)
	if n == 0 {
		return nil
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(r.Uint32())
	}
	return out
}

// Float64s reads a length-prefixed float64 slice.
func (r *Reader) Float64s() []float64 {
	n := r.length(8)
	if n == 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = r.Float64()
	}
	return out
}

// Int32s reads a length-prefixed int32 slice.
func (r *Reader) Int32s() []int32 {
	n := r.length(4)
	if n == 0 {
		return nil
	}
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(r.Uint32()) //nolint:gosec // bit pattern
	}
	return out
}

// Int64s reads a length-prefixed int64 slice.
func (r *Reader) Int64s() []int64 {
	n := r.length(8)
	if n == 0 {
		return nil
	}
	out := make([]int64, n)
	for i := range out {
		out[i] = r.Int64()
	}
	return out
}

// Ints reads a length-prefixed int slice.
func (r *Reader) Ints() []int {
	n := r.length(8)
	if n == 0 {
		return nil
	}
	out := make([]int, n)
	for i := range out {
		out[i] = r.Int()
	}
	return out
}
