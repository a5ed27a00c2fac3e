package codec

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Reader is a forward-only cursor over a byte slice. It never allocates on
// the fast path and reports short reads as ErrTruncated rather than
// panicking, mirroring the teacher's BitStream.ReadBytes bounds check.
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps data for sequential decoding.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining reports how many unread bytes are left.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Rest returns (and consumes) every remaining byte.
func (r *Reader) Rest() []byte {
	b := r.data[r.pos:]
	r.pos = len(r.data)
	return b
}

func (r *Reader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, ErrTruncated
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Take consumes and returns the next n bytes, for callers (e.g. a
// length-prefixed sub-record) that need a raw slice rather than a typed
// primitive.
func (r *Reader) Take(n int) ([]byte, error) {
	return r.take(n)
}

// U8 reads one byte.
func (r *Reader) U8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Bool reads one byte, nonzero meaning true.
func (r *Reader) Bool() (bool, error) {
	b, err := r.U8()
	return b != 0, err
}

// U16 reads a big-endian uint16.
func (r *Reader) U16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// I16 reads a big-endian int16.
func (r *Reader) I16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}

// U32 reads a big-endian uint32.
func (r *Reader) U32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// I32 reads a big-endian int32.
func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// U64 reads a big-endian uint64.
func (r *Reader) U64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// F32 reads a big-endian IEEE-754 single-precision float.
func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// F64 reads a big-endian IEEE-754 double-precision float.
func (r *Reader) F64() (float64, error) {
	v, err := r.U64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// Bytes16 reads a u16-length-prefixed raw blob.
func (r *Reader) Bytes16() ([]byte, error) {
	n, err := r.U16()
	if err != nil {
		return nil, err
	}
	return r.take(int(n))
}

// Bytes32 reads a u32-length-prefixed raw blob.
func (r *Reader) Bytes32() ([]byte, error) {
	n, err := r.U32()
	if err != nil {
		return nil, err
	}
	return r.take(int(n))
}

// ShortStr reads a u16-length-prefixed UTF-8 string.
func (r *Reader) ShortStr() (string, error) {
	b, err := r.Bytes16()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrEncoding
	}
	return string(b), nil
}

// WideStr reads a u16-length-prefixed (in code units) UTF-16BE string, used
// only by ChatMessage. Decoding goes through golang.org/x/text's UTF-16
// transform, the same dependency family icza-screp uses for its non-UTF-8
// text fields.
func (r *Reader) WideStr() (string, error) {
	units, err := r.U16()
	if err != nil {
		return "", err
	}
	raw, err := r.take(int(units) * 2)
	if err != nil {
		return "", err
	}
	s, _, err := transform.Bytes(utf16BEEncoding.NewDecoder(), raw)
	if err != nil || !utf8.Valid(s) {
		return "", ErrEncoding
	}
	return string(s), nil
}

// utf16BEEncoding is the codec used for WideStr, shared with writer.go.
var utf16BEEncoding = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
