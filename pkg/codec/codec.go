// Package codec implements the single canonical binary encoding that every
// persisted state value and every wire-level transaction field must agree
// on. Determinism is the only requirement: given the same Go value, every
// honest node must produce the same bytes, every time, on every platform.
//
// The encoding is deliberately simple rather than self-describing: a flat
// sequence of fixed-width and length-prefixed fields, written and read in a
// fixed declared order per type. There is no tag/field-number indirection
// because the type set is closed (spec §9: "the action set is closed and
// changes only at upgrades") and versioning happens through the upgrade
// scheduler, not through wire compatibility shims.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTruncated is returned by any Reader method that runs out of bytes
// before a field is fully decoded.
var ErrTruncated = errors.New("codec: truncated input")

// Writer accumulates a canonical byte sequence.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with a pre-sized backing buffer.
func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

func (w *Writer) Bytes() []byte { return w.buf }

// Uint8 writes a single byte.
func (w *Writer) Uint8(v uint8) { w.buf = append(w.buf, v) }

// Uint32 writes a big-endian uint32.
func (w *Writer) Uint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// Uint64 writes a big-endian uint64.
func (w *Writer) Uint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// Int64 writes a big-endian two's-complement int64 (used for signed price
// values, where negative prices are valid for some currency pairs).
func (w *Writer) Int64(v int64) { w.Uint64(uint64(v)) }

// Int128 writes a 128-bit two's-complement integer as 16 big-endian bytes.
// Only the low and high 64-bit halves are meaningful inputs; callers supply
// them pre-split because Go has no native int128.
func (w *Writer) Int128(hi int64, lo uint64) {
	w.Int64(hi)
	w.Uint64(lo)
}

// RawFixed writes exactly len(b) bytes with no length prefix. Use only for
// fields whose length is fixed by the type (addresses, rollup ids, hashes).
func (w *Writer) RawFixed(b []byte) { w.buf = append(w.buf, b...) }

// Bytes writes a uint32 length prefix followed by the raw bytes.
func (w *Writer) BytesField(b []byte) {
	w.Uint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// String writes a length-prefixed UTF-8 string.
func (w *Writer) String(s string) { w.BytesField([]byte(s)) }

// Bool writes a single byte, 0 or 1.
func (w *Writer) Bool(b bool) {
	if b {
		w.Uint8(1)
	} else {
		w.Uint8(0)
	}
}

// Reader consumes a canonical byte sequence produced by Writer, in the same
// field order the writer used.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(b []byte) *Reader { return &Reader{buf: b} }

func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) Uint8() (uint8, error) {
	if r.Remaining() < 1 {
		return 0, ErrTruncated
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) Uint32() (uint32, error) {
	if r.Remaining() < 4 {
		return 0, ErrTruncated
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *Reader) Uint64() (uint64, error) {
	if r.Remaining() < 8 {
		return 0, ErrTruncated
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

func (r *Reader) Int64() (int64, error) {
	v, err := r.Uint64()
	return int64(v), err
}

func (r *Reader) Int128() (hi int64, lo uint64, err error) {
	hi, err = r.Int64()
	if err != nil {
		return 0, 0, err
	}
	lo, err = r.Uint64()
	return hi, lo, err
}

func (r *Reader) RawFixed(n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, ErrTruncated
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

func (r *Reader) BytesField() ([]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	return r.RawFixed(int(n))
}

func (r *Reader) String() (string, error) {
	b, err := r.BytesField()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Reader) Bool() (bool, error) {
	v, err := r.Uint8()
	if err != nil {
		return false, err
	}
	if v > 1 {
		return false, fmt.Errorf("codec: invalid bool byte %d", v)
	}
	return v == 1, nil
}

// Done reports whether every byte of the input has been consumed. Decoders
// that don't check this silently accept trailing garbage, which would be a
// determinism hazard (two semantically-different payloads decoding to the
// same value).
func (r *Reader) Done() bool { return r.Remaining() == 0 }
