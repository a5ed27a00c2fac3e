package proto

import "github.com/weqqr/mtt-go/internal/codec"

// Message is any decoded clientbound or serverbound variant.
type Message interface {
	MessageID() ID
}

// Unknown wraps a message id the registry doesn't recognize, preserving the
// raw body so the session can log-and-ignore it per spec.md §7's
// forward-compatibility rule: unknown clientbound ids are never errors.
type Unknown struct {
	ID   ID
	Body []byte
}

func (m Unknown) MessageID() ID { return m.ID }

type decodeFunc func(*codec.Reader) (Message, error)
type encodeFunc func(*codec.Writer, Message) error

var clientboundRegistry = map[ID]decodeFunc{}
var serverboundRegistry = map[ID]encodeFunc{}

func registerClientbound(id ID, dec decodeFunc) {
	clientboundRegistry[id] = dec
}

func registerServerbound(id ID, enc encodeFunc) {
	serverboundRegistry[id] = enc
}

// DecodeClientbound parses a raw Original-frame body (as delivered by the
// transport) into a Message. Unrecognized ids decode to Unknown rather than
// failing, so the session can skip them.
func DecodeClientbound(body []byte) (Message, error) {
	r := codec.NewReader(body)
	id, err := r.U16()
	if err != nil {
		return nil, err
	}
	dec, ok := clientboundRegistry[ID(id)]
	if !ok {
		return Unknown{ID: ID(id), Body: r.Rest()}, nil
	}
	return dec(r)
}

// EncodeServerbound serializes msg into a wire body: <id:u16><fields...>.
func EncodeServerbound(msg Message) ([]byte, error) {
	w := codec.NewWriter()
	w.U16(uint16(msg.MessageID()))
	enc, ok := serverboundRegistry[msg.MessageID()]
	if !ok {
		return nil, &codec.ErrUnknownVariant{Context: "serverbound message", Value: uint64(msg.MessageID())}
	}
	if err := enc(w, msg); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
