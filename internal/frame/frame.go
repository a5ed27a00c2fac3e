// Package frame implements the wire framing layer: the magic + peer-id +
// channel + optional reliable tag + kind-tagged body that every datagram
// carries. It generalizes the teacher's EncodeDatagram/DecodeDataPacket
// pair (pkg/raknet, source/protocol/raknet.go) from RakNet's 24-bit
// sequence/reliability-flag scheme to the simpler fixed layout this
// protocol uses.
package frame

import (
	"fmt"

	"github.com/weqqr/mtt-go/internal/codec"
)

// Magic is the 4-byte protocol identifier at the head of every frame.
const Magic uint32 = 0x4F457403

// Channel count: three independent reliable/unreliable streams.
const NumChannels = 3

// ErrProtocolIDMismatch is returned when a datagram's magic doesn't match.
var ErrProtocolIDMismatch = fmt.Errorf("frame: protocol id mismatch")

// ErrUnknownKind is returned for a kind tag byte outside {0x00,0x01,0x02}.
var ErrUnknownKind = fmt.Errorf("frame: unknown frame kind tag")

// Reliability tags a frame as Unreliable or Reliable{Seqnum}.
type Reliability struct {
	Reliable bool
	Seqnum   uint16
}

// Unreliable constructs a non-reliable marker.
func Unreliable() Reliability { return Reliability{} }

// Reliable constructs a reliable marker carrying seqnum.
func Reliable(seqnum uint16) Reliability {
	return Reliability{Reliable: true, Seqnum: seqnum}
}

// ControlKind identifies a control sub-message.
type ControlKind uint8

const (
	ControlAck ControlKind = iota
	ControlSetPeerID
	ControlPing
	ControlDisco
)

// Control is the decoded payload of a Control frame.
type Control struct {
	Kind   ControlKind
	Seqnum uint16 // valid when Kind == ControlAck
	PeerID uint16 // valid when Kind == ControlSetPeerID
}

// Body is the type-tagged frame payload: exactly one of Control, Original
// or Split is meaningful, selected by Kind.
type Body struct {
	Kind    BodyKind
	Control Control
	// Original holds the raw message bytes for BodyOriginal.
	Original []byte
	// Split holds the reassembly header + one chunk's payload for BodySplit.
	Split SplitHeader
}

// BodyKind is the frame kind tag byte.
type BodyKind uint8

const (
	BodyControl BodyKind = iota
	BodyOriginal
	BodySplit
)

// SplitHeader is a Split frame's fragmentation metadata.
type SplitHeader struct {
	Seqnum     uint16
	ChunkCount uint16
	ChunkIndex uint16
	Payload    []byte
}

// Header is the fixed-order fields preceding a frame's body.
type Header struct {
	PeerID      uint16
	Channel     uint8
	Reliability Reliability
}

// Encode serializes header and body into one datagram.
func Encode(h Header, b Body) []byte {
	w := codec.NewWriter()
	w.U32(Magic)
	w.U16(h.PeerID)
	w.U8(h.Channel)
	if h.Reliability.Reliable {
		w.U8(0x03)
		w.U16(h.Reliability.Seqnum)
	}
	w.U8(uint8(b.Kind))
	switch b.Kind {
	case BodyControl:
		w.U8(uint8(b.Control.Kind))
		switch b.Control.Kind {
		case ControlAck:
			w.U16(b.Control.Seqnum)
		case ControlSetPeerID:
			w.U16(b.Control.PeerID)
		case ControlPing, ControlDisco:
			// empty payload
		}
	case BodyOriginal:
		w.RawBytes(b.Original)
	case BodySplit:
		w.U16(b.Split.Seqnum)
		w.U16(b.Split.ChunkCount)
		w.U16(b.Split.ChunkIndex)
		w.RawBytes(b.Split.Payload)
	}
	return w.Bytes()
}

// Decode parses a datagram into its header and body. The remaining bytes of
// r after this call belong to the body's payload cursor, but Decode already
// consumes them into Body for callers' convenience.
func Decode(datagram []byte) (Header, Body, error) {
	r := codec.NewReader(datagram)

	magic, err := r.U32()
	if err != nil {
		return Header{}, Body{}, err
	}
	if magic != Magic {
		return Header{}, Body{}, ErrProtocolIDMismatch
	}

	h := Header{}
	h.PeerID, err = r.U16()
	if err != nil {
		return Header{}, Body{}, err
	}
	h.Channel, err = r.U8()
	if err != nil {
		return Header{}, Body{}, err
	}

	kindTag, err := r.U8()
	if err != nil {
		return Header{}, Body{}, err
	}
	if kindTag == 0x03 {
		seq, err := r.U16()
		if err != nil {
			return Header{}, Body{}, err
		}
		h.Reliability = Reliable(seq)
		kindTag, err = r.U8()
		if err != nil {
			return Header{}, Body{}, err
		}
	}

	var b Body
	switch kindTag {
	case 0x00:
		b.Kind = BodyControl
		ctl, err := r.U8()
		if err != nil {
			return Header{}, Body{}, err
		}
		switch ctl {
		case 0x00:
			b.Control.Kind = ControlAck
			b.Control.Seqnum, err = r.U16()
		case 0x01:
			b.Control.Kind = ControlSetPeerID
			b.Control.PeerID, err = r.U16()
		case 0x02:
			b.Control.Kind = ControlPing
		case 0x03:
			b.Control.Kind = ControlDisco
		default:
			return Header{}, Body{}, &codec.ErrUnknownVariant{Context: "control kind", Value: uint64(ctl)}
		}
		if err != nil {
			return Header{}, Body{}, err
		}
	case 0x01:
		b.Kind = BodyOriginal
		b.Original = r.Rest()
	case 0x02:
		b.Kind = BodySplit
		seq, err := r.U16()
		if err != nil {
			return Header{}, Body{}, err
		}
		count, err := r.U16()
		if err != nil {
			return Header{}, Body{}, err
		}
		index, err := r.U16()
		if err != nil {
			return Header{}, Body{}, err
		}
		b.Split = SplitHeader{Seqnum: seq, ChunkCount: count, ChunkIndex: index, Payload: r.Rest()}
	default:
		return Header{}, Body{}, ErrUnknownKind
	}

	return h, b, nil
}
