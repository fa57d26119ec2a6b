// Package wire implements the length-prefixed binary codec shared by every
// clock and vector-clock Pack/Unpack pair: a one-byte type tag followed by
// a fixed layout of big-endian integers, raw 32-byte digests/points, and
// length-prefixed byte strings.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Tags distinguish the payload kind so Unpack can reject a wrong-type
// buffer before attempting to decode it.
const (
	TagHashClock byte = iota + 1
	TagHashClockUpdater
	TagPointClock
	TagPointClockUpdater
	TagVectorHashClock
	TagVectorPointClock
)

// ErrBadFormat is returned for any pack/unpack failure: unknown tag,
// truncated buffer, or an inner decode failure.
var ErrBadFormat = errors.New("bad format")

// Writer accumulates a packed payload.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns a Writer that starts the payload with tag.
func NewWriter(tag byte) *Writer {
	w := &Writer{}
	w.buf.WriteByte(tag)
	return w
}

func (w *Writer) Byte(b byte)          { w.buf.WriteByte(b) }
func (w *Writer) Bytes(b []byte)       { w.buf.Write(b) }
func (w *Writer) Uint16(v uint16)      { binary.Write(&w.buf, binary.BigEndian, v) }
func (w *Writer) Uint32(v uint32)      { binary.Write(&w.buf, binary.BigEndian, v) }
func (w *Writer) Int32(v int32)        { binary.Write(&w.buf, binary.BigEndian, v) }

// BytesLP16 writes a 16-bit big-endian length prefix followed by b.
func (w *Writer) BytesLP16(b []byte) {
	w.Uint16(uint16(len(b)))
	w.buf.Write(b)
}

// Bytes32 writes exactly 32 bytes (panics if len(b) != 32, which would be a
// programming error at the call site, not a malformed-input condition).
func (w *Writer) Bytes32(b []byte) {
	if len(b) != 32 {
		panic(fmt.Sprintf("wire: Bytes32 called with %d bytes", len(b)))
	}
	w.buf.Write(b)
}

// Out returns the accumulated payload.
func (w *Writer) Out() []byte { return w.buf.Bytes() }

// Reader consumes a packed payload produced by Writer.
type Reader struct {
	r *bytes.Reader
}

// NewReader validates the leading tag byte and returns a Reader positioned
// just after it.
func NewReader(data []byte, wantTag byte) (*Reader, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("%w: empty buffer", ErrBadFormat)
	}
	if data[0] != wantTag {
		return nil, fmt.Errorf("%w: tag %d, want %d", ErrBadFormat, data[0], wantTag)
	}
	return &Reader{r: bytes.NewReader(data[1:])}, nil
}

func (r *Reader) Byte() (byte, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	return b, nil
}

func (r *Reader) Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := readFull(r.r, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	return b, nil
}

// Bytes32 reads exactly 32 bytes.
func (r *Reader) Bytes32() ([32]byte, error) {
	var out [32]byte
	b, err := r.Bytes(32)
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}

func (r *Reader) Uint16() (uint16, error) {
	var v uint16
	if err := binary.Read(r.r, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	return v, nil
}

func (r *Reader) Uint32() (uint32, error) {
	var v uint32
	if err := binary.Read(r.r, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	return v, nil
}

func (r *Reader) Int32() (int32, error) {
	var v int32
	if err := binary.Read(r.r, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	return v, nil
}

// BytesLP16 reads a 16-bit length prefix followed by that many bytes.
func (r *Reader) BytesLP16() ([]byte, error) {
	n, err := r.Uint16()
	if err != nil {
		return nil, err
	}
	return r.Bytes(int(n))
}

// Remaining reports the bytes the Reader has not yet consumed.
func (r *Reader) Remaining() []byte {
	b, _ := r.Bytes(r.r.Len())
	return b
}

// Inner returns the raw *bytes.Reader for embedding a nested Pack/Unpack
// call. The vector clocks do not use it: they decode each embedded entry
// with hashclock.UnpackFrom / pointclock.UnpackFrom on the Reader itself.
func (r *Reader) Inner() *bytes.Reader { return r.r }

func readFull(r *bytes.Reader, b []byte) (int, error) {
	n := 0
	for n < len(b) {
		m, err := r.Read(b[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
