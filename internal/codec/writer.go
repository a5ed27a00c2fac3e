package codec

import (
	"encoding/binary"
	"math"

	"golang.org/x/text/transform"
)

// Writer accumulates an encoded byte stream. The fixed-width methods never
// fail; the length-prefixed ones (Bytes16, Bytes32, ShortStr, WideStr)
// check the length themselves and return ErrOverflow when it does not fit
// the prefix.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the accumulated output.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// U8 appends one byte.
func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

// Bool appends one byte, 1 for true.
func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
	} else {
		w.U8(0)
	}
}

// U16 appends a big-endian uint16.
func (w *Writer) U16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// I16 appends a big-endian int16.
func (w *Writer) I16(v int16) {
	w.U16(uint16(v))
}

// U32 appends a big-endian uint32.
func (w *Writer) U32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// I32 appends a big-endian int32.
func (w *Writer) I32(v int32) {
	w.U32(uint32(v))
}

// U64 appends a big-endian uint64.
func (w *Writer) U64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// F32 appends a big-endian IEEE-754 single-precision float.
func (w *Writer) F32(v float32) {
	w.U32(math.Float32bits(v))
}

// F64 appends a big-endian IEEE-754 double-precision float.
func (w *Writer) F64(v float64) {
	w.U64(math.Float64bits(v))
}

// RawBytes appends data verbatim, with no length prefix (BytesUnsized).
func (w *Writer) RawBytes(data []byte) {
	w.buf = append(w.buf, data...)
}

// Bytes16 appends a u16-length-prefixed raw blob. Returns ErrOverflow if
// data is longer than a u16 can address.
func (w *Writer) Bytes16(data []byte) error {
	if len(data) > math.MaxUint16 {
		return ErrOverflow
	}
	w.U16(uint16(len(data)))
	w.RawBytes(data)
	return nil
}

// Bytes32 appends a u32-length-prefixed raw blob.
func (w *Writer) Bytes32(data []byte) error {
	if uint64(len(data)) > math.MaxUint32 {
		return ErrOverflow
	}
	w.U32(uint32(len(data)))
	w.RawBytes(data)
	return nil
}

// ShortStr appends a u16-length-prefixed UTF-8 string.
func (w *Writer) ShortStr(s string) error {
	return w.Bytes16([]byte(s))
}

// WideStr appends a u16-length-prefixed (in code units) UTF-16BE string,
// used only by ChatMessage. Encoding goes through golang.org/x/text, the
// same dependency family the codec's Reader uses for decoding.
func (w *Writer) WideStr(s string) error {
	encoded, _, err := transform.String(utf16BEEncoding.NewEncoder(), s)
	if err != nil {
		return ErrEncoding
	}
	units := len(encoded) / 2
	if units > math.MaxUint16 {
		return ErrOverflow
	}
	w.U16(uint16(units))
	w.RawBytes([]byte(encoded))
	return nil
}
