package codec

import "testing"

func TestPrimitiveRoundTrip(t *testing.T) {
	w := NewWriter()
	w.U8(0x42)
	w.U16(1234)
	w.U32(567890)
	w.I16(-5)
	w.F32(3.5)
	w.Bool(true)
	if err := w.ShortStr("Hello World"); err != nil {
		t.Fatalf("ShortStr: %v", err)
	}

	r := NewReader(w.Bytes())

	if v, err := r.U8(); err != nil || v != 0x42 {
		t.Errorf("U8 = %d, %v; want 0x42", v, err)
	}
	if v, err := r.U16(); err != nil || v != 1234 {
		t.Errorf("U16 = %d, %v; want 1234", v, err)
	}
	if v, err := r.U32(); err != nil || v != 567890 {
		t.Errorf("U32 = %d, %v; want 567890", v, err)
	}
	if v, err := r.I16(); err != nil || v != -5 {
		t.Errorf("I16 = %d, %v; want -5", v, err)
	}
	if v, err := r.F32(); err != nil || v != 3.5 {
		t.Errorf("F32 = %v, %v; want 3.5", v, err)
	}
	if v, err := r.Bool(); err != nil || v != true {
		t.Errorf("Bool = %v, %v; want true", v, err)
	}
	if s, err := r.ShortStr(); err != nil || s != "Hello World" {
		t.Errorf("ShortStr = %q, %v; want %q", s, err, "Hello World")
	}
}

func TestWideStrRoundTrip(t *testing.T) {
	w := NewWriter()
	if err := w.WideStr("héllo 世界"); err != nil {
		t.Fatalf("WideStr: %v", err)
	}
	r := NewReader(w.Bytes())
	s, err := r.WideStr()
	if err != nil {
		t.Fatalf("WideStr read: %v", err)
	}
	if s != "héllo 世界" {
		t.Errorf("WideStr round trip = %q, want %q", s, "héllo 世界")
	}
}

func TestBytes16And32(t *testing.T) {
	w := NewWriter()
	if err := w.Bytes16([]byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if err := w.Bytes32([]byte{4, 5, 6, 7}); err != nil {
		t.Fatal(err)
	}

	r := NewReader(w.Bytes())
	b16, err := r.Bytes16()
	if err != nil || string(b16) != "\x01\x02\x03" {
		t.Errorf("Bytes16 = %v, %v", b16, err)
	}
	b32, err := r.Bytes32()
	if err != nil || len(b32) != 4 {
		t.Errorf("Bytes32 = %v, %v", b32, err)
	}
}

func TestTruncatedRead(t *testing.T) {
	r := NewReader([]byte{0x01})
	if _, err := r.U32(); err != ErrTruncated {
		t.Errorf("U32 on short input = %v, want ErrTruncated", err)
	}
}

func TestVecRoundTrip(t *testing.T) {
	w := NewWriter()
	items := []uint16{1, 2, 3, 4}
	err := WriteVec(w, items, func(w *Writer, v uint16) error {
		w.U16(v)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	r := NewReader(w.Bytes())
	got, err := ReadVec(r, func(r *Reader) (uint16, error) { return r.U16() })
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(items) {
		t.Fatalf("len = %d, want %d", len(got), len(items))
	}
	for i := range items {
		if got[i] != items[i] {
			t.Errorf("item %d = %d, want %d", i, got[i], items[i])
		}
	}
}
