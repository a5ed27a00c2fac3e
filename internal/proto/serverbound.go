package proto

import "github.com/weqqr/mtt-go/internal/codec"

// Handshake is the empty peer-id request sent first on channel 0.
type Handshake struct{}

func (Handshake) MessageID() ID { return IDHandshake }

func encodeHandshake(w *codec.Writer, _ Message) error { return nil }

// Init announces the client's protocol capabilities and player name.
type Init struct {
	MaxSerializationVersion uint8
	SupportedCompression    uint16
	MinProtoVersion         uint16
	MaxProtoVersion         uint16
	PlayerName              string
}

func (Init) MessageID() ID { return IDInit }

func encodeInit(w *codec.Writer, msg Message) error {
	m := msg.(Init)
	w.U8(m.MaxSerializationVersion)
	w.U16(m.SupportedCompression)
	w.U16(m.MinProtoVersion)
	w.U16(m.MaxProtoVersion)
	return w.ShortStr(m.PlayerName)
}

// Init2 follows a successful AuthAccept.
type Init2 struct {
	Language string
}

func (Init2) MessageID() ID { return IDInit2 }

func encodeInit2(w *codec.Writer, msg Message) error {
	return w.ShortStr(msg.(Init2).Language)
}

// SrpBytesA sends the client's SRP-6a public ephemeral A.
type SrpBytesA struct {
	A       []byte
	BasedOn uint8
}

func (SrpBytesA) MessageID() ID { return IDSrpBytesA }

func encodeSrpBytesA(w *codec.Writer, msg Message) error {
	m := msg.(SrpBytesA)
	if err := w.Bytes16(m.A); err != nil {
		return err
	}
	w.U8(m.BasedOn)
	return nil
}

// SrpBytesM sends the client's SRP-6a proof M1.
type SrpBytesM struct {
	M []byte
}

func (SrpBytesM) MessageID() ID { return IDSrpBytesM }

func encodeSrpBytesM(w *codec.Writer, msg Message) error {
	return w.Bytes16(msg.(SrpBytesM).M)
}

// GotBlocks acknowledges receipt of map blocks at the game layer (distinct
// from the transport's per-frame Ack).
type GotBlocks struct {
	Positions []PosI16
}

// PosI16 is a signed 16-bit block coordinate triple, mirroring
// vecmath.Vec3I16 without importing it here to keep serverbound message
// encoding self-contained for the count==1 case spec.md's source uses.
type PosI16 struct {
	X, Y, Z int16
}

func (GotBlocks) MessageID() ID { return IDGotBlocks }

func encodeGotBlocks(w *codec.Writer, msg Message) error {
	m := msg.(GotBlocks)
	if len(m.Positions) > 255 {
		return codec.ErrOverflow
	}
	w.U8(uint8(len(m.Positions)))
	for _, p := range m.Positions {
		w.I16(p.X)
		w.I16(p.Y)
		w.I16(p.Z)
	}
	return nil
}

// RequestMedia asks for the bytes of every filename whose digest is not in
// the local cache.
type RequestMedia struct {
	Filenames []string
}

func (RequestMedia) MessageID() ID { return IDRequestMedia }

func encodeRequestMedia(w *codec.Writer, msg Message) error {
	return codec.WriteVec(w, msg.(RequestMedia).Filenames, func(w *codec.Writer, s string) error {
		return w.ShortStr(s)
	})
}

// ClientReady is sent exactly once, after both media_ready and nodes_ready.
type ClientReady struct {
	VersionMajor     uint8
	VersionMinor     uint8
	VersionPatch     uint8
	Reserved         uint8
	FullVersion      string
	FormspecVersion  uint16
}

func (ClientReady) MessageID() ID { return IDClientReady }

func encodeClientReady(w *codec.Writer, msg Message) error {
	m := msg.(ClientReady)
	w.U8(m.VersionMajor)
	w.U8(m.VersionMinor)
	w.U8(m.VersionPatch)
	w.U8(m.Reserved)
	if err := w.ShortStr(m.FullVersion); err != nil {
		return err
	}
	w.U16(m.FormspecVersion)
	return nil
}

func init() {
	registerServerbound(IDHandshake, encodeHandshake)
	registerServerbound(IDInit, encodeInit)
	registerServerbound(IDInit2, encodeInit2)
	registerServerbound(IDSrpBytesA, encodeSrpBytesA)
	registerServerbound(IDSrpBytesM, encodeSrpBytesM)
	registerServerbound(IDGotBlocks, encodeGotBlocks)
	registerServerbound(IDRequestMedia, encodeRequestMedia)
	registerServerbound(IDClientReady, encodeClientReady)
}
