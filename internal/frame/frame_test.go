package frame

import "testing"

func TestEncodeDecodeOriginal(t *testing.T) {
	h := Header{PeerID: 0x1234, Channel: 1, Reliability: Reliable(0xFFDC)}
	b := Body{Kind: BodyOriginal, Original: []byte{0x00, 0x2F, 'h', 'i'}}

	datagram := Encode(h, b)

	gotH, gotB, err := Decode(datagram)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if gotH != h {
		t.Errorf("header = %+v, want %+v", gotH, h)
	}
	if gotB.Kind != BodyOriginal || string(gotB.Original) != string(b.Original) {
		t.Errorf("body = %+v, want %+v", gotB, b)
	}
}

func TestEncodeDecodeControlAck(t *testing.T) {
	h := Header{PeerID: 7, Channel: 0}
	b := Body{Kind: BodyControl, Control: Control{Kind: ControlAck, Seqnum: 42}}

	gotH, gotB, err := Decode(Encode(h, b))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if gotH != h {
		t.Errorf("header = %+v, want %+v", gotH, h)
	}
	if gotB.Control != b.Control {
		t.Errorf("control = %+v, want %+v", gotB.Control, b.Control)
	}
}

func TestEncodeDecodeSplit(t *testing.T) {
	h := Header{PeerID: 1, Channel: 1, Reliability: Reliable(10)}
	b := Body{Kind: BodySplit, Split: SplitHeader{Seqnum: 5, ChunkCount: 3, ChunkIndex: 1, Payload: []byte{9, 9}}}

	_, gotB, err := Decode(Encode(h, b))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if gotB.Split.Seqnum != 5 || gotB.Split.ChunkCount != 3 || gotB.Split.ChunkIndex != 1 {
		t.Errorf("split header = %+v", gotB.Split)
	}
	if string(gotB.Split.Payload) != "\x09\x09" {
		t.Errorf("split payload = %v", gotB.Split.Payload)
	}
}

func TestDecodeMagicMismatch(t *testing.T) {
	_, _, err := Decode([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	if err != ErrProtocolIDMismatch {
		t.Errorf("err = %v, want ErrProtocolIDMismatch", err)
	}
}
