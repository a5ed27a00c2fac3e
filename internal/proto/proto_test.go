package proto

import (
	"testing"

	"github.com/weqqr/mtt-go/internal/codec"
)

func TestServerboundEncode(t *testing.T) {
	body, err := EncodeServerbound(Init2{Language: ""})
	if err != nil {
		t.Fatalf("EncodeServerbound: %v", err)
	}
	if len(body) < 2 {
		t.Fatalf("body too short: %v", body)
	}

	ready := ClientReady{
		VersionMajor:    5,
		VersionMinor:    5,
		VersionPatch:    0,
		Reserved:        0x77,
		FullVersion:     "mtt 0.1.0",
		FormspecVersion: 4,
	}
	body, err = EncodeServerbound(ready)
	if err != nil {
		t.Fatalf("EncodeServerbound(ClientReady): %v", err)
	}
	if len(body) == 0 {
		t.Fatal("empty ClientReady body")
	}
}

func TestDecodeClientboundKnown(t *testing.T) {
	// TimeOfDay: id(2) + time(2) + speed(4)
	body := []byte{0x00, byte(IDTimeOfDay), 0x01, 0x00, 0x3F, 0x80, 0x00, 0x00}
	msg, err := DecodeClientbound(body)
	if err != nil {
		t.Fatalf("DecodeClientbound: %v", err)
	}
	tod, ok := msg.(TimeOfDay)
	if !ok {
		t.Fatalf("got %T, want TimeOfDay", msg)
	}
	if tod.Time != 0x0100 || tod.Speed != 1.0 {
		t.Errorf("TimeOfDay = %+v", tod)
	}
}

func TestDecodeClientboundUnknown(t *testing.T) {
	body := []byte{0xFF, 0xFF, 1, 2, 3}
	msg, err := DecodeClientbound(body)
	if err != nil {
		t.Fatalf("DecodeClientbound: %v", err)
	}
	unk, ok := msg.(Unknown)
	if !ok {
		t.Fatalf("got %T, want Unknown", msg)
	}
	if unk.ID != 0xFFFF || string(unk.Body) != "\x01\x02\x03" {
		t.Errorf("Unknown = %+v", unk)
	}
}

// encodeChatForTest builds a ChatMessage body by hand since the wire
// format under test is clientbound-only (the client never originates
// chat through this core).
func encodeChatForTest(m ChatMessage) []byte {
	w := codec.NewWriter()
	w.U16(uint16(IDChatMessage))
	w.U8(m.Version)
	w.U8(m.Type)
	w.WideStr(m.Sender)
	w.WideStr(m.Text)
	w.U64(m.Time)
	return w.Bytes()
}

func TestChatMessageRoundTrip(t *testing.T) {
	chat := ChatMessage{Version: 1, Type: 0, Sender: "alice", Text: "hi there", Time: 42}
	msg, err := DecodeClientbound(encodeChatForTest(chat))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, ok := msg.(ChatMessage)
	if !ok {
		t.Fatalf("got %T, want ChatMessage", msg)
	}
	if got.Sender != chat.Sender || got.Text != chat.Text || got.Time != chat.Time {
		t.Errorf("ChatMessage round trip = %+v, want %+v", got, chat)
	}
}
