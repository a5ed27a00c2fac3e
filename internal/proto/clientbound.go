package proto

import (
	"github.com/weqqr/mtt-go/internal/codec"
	"github.com/weqqr/mtt-go/internal/vecmath"
)

// Hello is sent once the server accepts the handshake's Init and starts the
// session on its way into Auth.
type Hello struct {
	SerializationVersion uint8
	CompressionModes     uint16
	ProtoVersion         uint16
	AuthMechanisms       uint32
	Username             string
}

func (Hello) MessageID() ID { return IDHello }

func decodeHello(r *codec.Reader) (Message, error) {
	var m Hello
	var err error
	if m.SerializationVersion, err = r.U8(); err != nil {
		return nil, err
	}
	if m.CompressionModes, err = r.U16(); err != nil {
		return nil, err
	}
	if m.ProtoVersion, err = r.U16(); err != nil {
		return nil, err
	}
	if m.AuthMechanisms, err = r.U32(); err != nil {
		return nil, err
	}
	if m.Username, err = r.ShortStr(); err != nil {
		return nil, err
	}
	return m, nil
}

// AuthAccept concludes a successful SRP exchange.
type AuthAccept struct {
	PlayerPos    vecmath.Vec3F32
	MapSeed      uint64
	SendInterval float32
	SudoMethods  uint8
}

func (AuthAccept) MessageID() ID { return IDAuthAccept }

func decodeAuthAccept(r *codec.Reader) (Message, error) {
	var m AuthAccept
	var err error
	if m.PlayerPos, err = vecmath.ReadVec3F32(r); err != nil {
		return nil, err
	}
	if m.MapSeed, err = r.U64(); err != nil {
		return nil, err
	}
	if m.SendInterval, err = r.F32(); err != nil {
		return nil, err
	}
	if m.SudoMethods, err = r.U8(); err != nil {
		return nil, err
	}
	return m, nil
}

// SrpBytesSB carries the server's salt and public ephemeral B.
type SrpBytesSB struct {
	Salt []byte
	B    []byte
}

func (SrpBytesSB) MessageID() ID { return IDSrpBytesSB }

func decodeSrpBytesSB(r *codec.Reader) (Message, error) {
	var m SrpBytesSB
	var err error
	if m.Salt, err = r.Bytes16(); err != nil {
		return nil, err
	}
	if m.B, err = r.Bytes16(); err != nil {
		return nil, err
	}
	return m, nil
}

// BlockData carries one compressed map block; the session hands Block to
// world.DecodeBlock.
type BlockData struct {
	Pos   vecmath.Vec3I16
	Block []byte // raw, still zstd-compressed + trailing legacy byte
}

func (BlockData) MessageID() ID { return IDBlockData }

func decodeBlockData(r *codec.Reader) (Message, error) {
	var m BlockData
	var err error
	if m.Pos, err = vecmath.ReadVec3I16(r); err != nil {
		return nil, err
	}
	m.Block = r.Rest()
	return m, nil
}

// TimeOfDay updates the world clock.
type TimeOfDay struct {
	Time  uint16
	Speed float32
}

func (TimeOfDay) MessageID() ID { return IDTimeOfDay }

func decodeTimeOfDay(r *codec.Reader) (Message, error) {
	var m TimeOfDay
	var err error
	if m.Time, err = r.U16(); err != nil {
		return nil, err
	}
	if m.Speed, err = r.F32(); err != nil {
		return nil, err
	}
	return m, nil
}

// MovePlayer repositions the local player.
type MovePlayer struct {
	Pos   vecmath.Vec3F32
	Pitch float32
	Yaw   float32
}

func (MovePlayer) MessageID() ID { return IDMovePlayer }

func decodeMovePlayer(r *codec.Reader) (Message, error) {
	var m MovePlayer
	var err error
	if m.Pos, err = vecmath.ReadVec3F32(r); err != nil {
		return nil, err
	}
	if m.Pitch, err = r.F32(); err != nil {
		return nil, err
	}
	if m.Yaw, err = r.F32(); err != nil {
		return nil, err
	}
	return m, nil
}

// AnnounceMedia lists every media filename and its digest, once per session.
type AnnounceMedia struct {
	Digests []MediaDigest
	Servers string
}

// MediaDigest is one filename/base64-sha1 pair from an AnnounceMedia.
type MediaDigest struct {
	Filename string
	Digest   string // base64, as the wire carries it
}

func (AnnounceMedia) MessageID() ID { return IDAnnounceMedia }

func decodeAnnounceMedia(r *codec.Reader) (Message, error) {
	var m AnnounceMedia
	digests, err := codec.ReadVec(r, func(r *codec.Reader) (MediaDigest, error) {
		var d MediaDigest
		var err error
		if d.Filename, err = r.ShortStr(); err != nil {
			return d, err
		}
		if d.Digest, err = r.ShortStr(); err != nil {
			return d, err
		}
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	m.Digests = digests
	if m.Servers, err = r.ShortStr(); err != nil {
		return nil, err
	}
	return m, nil
}

// Media delivers one bunch of raw file bytes.
type Media struct {
	BunchID    uint16
	BunchCount uint16
	Files      []MediaFile
}

// MediaFile is one filename/content pair from a Media bunch.
type MediaFile struct {
	Name string
	Data []byte
}

func (Media) MessageID() ID { return IDMedia }

func decodeMedia(r *codec.Reader) (Message, error) {
	var m Media
	var err error
	if m.BunchID, err = r.U16(); err != nil {
		return nil, err
	}
	if m.BunchCount, err = r.U16(); err != nil {
		return nil, err
	}
	files, err := codec.ReadVec(r, func(r *codec.Reader) (MediaFile, error) {
		var f MediaFile
		var err error
		if f.Name, err = r.ShortStr(); err != nil {
			return f, err
		}
		if f.Data, err = r.Bytes32(); err != nil {
			return f, err
		}
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	m.Files = files
	return m, nil
}

// NodeDef carries the zlib-compressed node definition table.
type NodeDef struct {
	Blob []byte
}

func (NodeDef) MessageID() ID { return IDNodeDef }

func decodeNodeDef(r *codec.Reader) (Message, error) {
	blob, err := r.Bytes32()
	if err != nil {
		return nil, err
	}
	return NodeDef{Blob: blob}, nil
}

// ChatMessage is hand-rolled per spec.md §4.4: it needs UTF-16 and bypasses
// the ordinary ShortStr-based generator.
type ChatMessage struct {
	Version uint8
	Type    uint8
	Sender  string
	Text    string
	Time    uint64
}

func (ChatMessage) MessageID() ID { return IDChatMessage }

func decodeChatMessage(r *codec.Reader) (Message, error) {
	var m ChatMessage
	var err error
	if m.Version, err = r.U8(); err != nil {
		return nil, err
	}
	if m.Type, err = r.U8(); err != nil {
		return nil, err
	}
	if m.Sender, err = r.WideStr(); err != nil {
		return nil, err
	}
	if m.Text, err = r.WideStr(); err != nil {
		return nil, err
	}
	if m.Time, err = r.U64(); err != nil {
		return nil, err
	}
	return m, nil
}

// Hp is the player's current health.
type Hp struct {
	Hp uint16
}

func (Hp) MessageID() ID { return IDHp }

func decodeHp(r *codec.Reader) (Message, error) {
	v, err := r.U16()
	return Hp{Hp: v}, err
}

// Breath is the player's current breath (air underwater).
type Breath struct {
	Breath uint16
}

func (Breath) MessageID() ID { return IDBreath }

func decodeBreath(r *codec.Reader) (Message, error) {
	v, err := r.U16()
	return Breath{Breath: v}, err
}

// Privileges lists the player's granted privileges.
type Privileges struct {
	Privileges []string
}

func (Privileges) MessageID() ID { return IDPrivileges }

func decodePrivileges(r *codec.Reader) (Message, error) {
	privs, err := codec.ReadVec(r, func(r *codec.Reader) (string, error) { return r.ShortStr() })
	if err != nil {
		return nil, err
	}
	return Privileges{Privileges: privs}, nil
}

// CsmRestrictionFlags is a bitmask of client-side-scripting restrictions;
// this core decodes it but neither stores nor enforces it (rendering/
// scripting are out of scope per spec.md §1).
type CsmRestrictionFlags struct {
	Flags       uint64
	RangeLimit  uint32
}

func (CsmRestrictionFlags) MessageID() ID { return IDCsmRestrictionFlags }

func decodeCsmRestrictionFlags(r *codec.Reader) (Message, error) {
	var m CsmRestrictionFlags
	var err error
	if m.Flags, err = r.U64(); err != nil {
		return nil, err
	}
	if m.RangeLimit, err = r.U32(); err != nil {
		return nil, err
	}
	return m, nil
}

func init() {
	registerClientbound(IDHello, decodeHello)
	registerClientbound(IDAuthAccept, decodeAuthAccept)
	registerClientbound(IDSrpBytesSB, decodeSrpBytesSB)
	registerClientbound(IDBlockData, decodeBlockData)
	registerClientbound(IDTimeOfDay, decodeTimeOfDay)
	registerClientbound(IDMovePlayer, decodeMovePlayer)
	registerClientbound(IDAnnounceMedia, decodeAnnounceMedia)
	registerClientbound(IDMedia, decodeMedia)
	registerClientbound(IDNodeDef, decodeNodeDef)
	registerClientbound(IDChatMessage, decodeChatMessage)
	registerClientbound(IDHp, decodeHp)
	registerClientbound(IDBreath, decodeBreath)
	registerClientbound(IDPrivileges, decodePrivileges)
	registerClientbound(IDCsmRestrictionFlags, decodeCsmRestrictionFlags)
}
