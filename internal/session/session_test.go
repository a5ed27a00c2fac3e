package session

import (
	"bytes"
	"compress/zlib"
	"context"
	"net"
	"testing"
	"time"

	"github.com/weqqr/mtt-go/internal/codec"
	"github.com/weqqr/mtt-go/internal/frame"
	"github.com/weqqr/mtt-go/internal/proto"
	"github.com/weqqr/mtt-go/internal/transport"
)

// fakeServer answers the handshake/auth/media/nodedef conversation with
// the minimum a real server would send, so Open+Run can be exercised
// end to end without a live Minetest server.
type fakeServer struct {
	t        *testing.T
	conn     *net.UDPConn
	peerAddr *net.UDPAddr
	outSeq   [frame.NumChannels]uint16
}

func newFakeServer(t *testing.T) (*fakeServer, string) {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	fs := &fakeServer{t: t, conn: conn}
	for i := range fs.outSeq {
		fs.outSeq[i] = transport.InitialSeqnum
	}
	return fs, conn.LocalAddr().String()
}

func (fs *fakeServer) send(channel uint8, reliable bool, body frame.Body) {
	header := frame.Header{PeerID: 0, Channel: channel}
	if reliable {
		header.Reliability = frame.Reliable(fs.outSeq[channel])
		fs.outSeq[channel]++
	}
	datagram := frame.Encode(header, body)
	if _, err := fs.conn.WriteToUDP(datagram, fs.peerAddr); err != nil {
		fs.t.Logf("fake server write: %v", err)
	}
}

func (fs *fakeServer) sendOriginal(channel uint8, payload []byte) {
	fs.send(channel, true, frame.Body{Kind: frame.BodyOriginal, Original: payload})
}

func encodeHello(t *testing.T) []byte {
	t.Helper()
	w := codec.NewWriter()
	w.U16(uint16(proto.IDHello))
	w.U8(29)
	w.U16(0)
	w.U16(40)
	w.U32(0)
	if err := w.ShortStr("mtt-server"); err != nil {
		t.Fatalf("encode hello: %v", err)
	}
	return w.Bytes()
}

func encodeSrpBytesSB(t *testing.T) []byte {
	t.Helper()
	w := codec.NewWriter()
	w.U16(uint16(proto.IDSrpBytesSB))
	if err := w.Bytes16([]byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	b := bytes.Repeat([]byte{0x05}, 32)
	if err := w.Bytes16(b); err != nil {
		t.Fatal(err)
	}
	return w.Bytes()
}

func encodeAuthAccept(t *testing.T) []byte {
	t.Helper()
	w := codec.NewWriter()
	w.U16(uint16(proto.IDAuthAccept))
	w.F32(0)
	w.F32(0)
	w.F32(0)
	w.U64(1234)
	w.F32(0.1)
	w.U8(0)
	return w.Bytes()
}

func encodeAnnounceMediaEmpty(t *testing.T) []byte {
	t.Helper()
	w := codec.NewWriter()
	w.U16(uint16(proto.IDAnnounceMedia))
	if err := codec.WriteVec(w, []proto.MediaDigest{}, func(w *codec.Writer, d proto.MediaDigest) error {
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := w.ShortStr(""); err != nil {
		t.Fatal(err)
	}
	return w.Bytes()
}

func encodeMediaEmptyBunch(t *testing.T) []byte {
	t.Helper()
	w := codec.NewWriter()
	w.U16(uint16(proto.IDMedia))
	w.U16(0)
	w.U16(1)
	if err := codec.WriteVec(w, []proto.MediaFile{}, func(w *codec.Writer, f proto.MediaFile) error {
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	return w.Bytes()
}

func encodeEmptyNodeDef(t *testing.T) []byte {
	t.Helper()
	var raw bytes.Buffer
	r := codec.NewWriter()
	r.U8(13)
	r.U16(0)
	r.RawBytes([]byte{0, 0, 0, 0})

	zw := zlib.NewWriter(&raw)
	if _, err := zw.Write(r.Bytes()); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	w := codec.NewWriter()
	w.U16(uint16(proto.IDNodeDef))
	if err := w.Bytes32(raw.Bytes()); err != nil {
		t.Fatal(err)
	}
	return w.Bytes()
}

// run drives the scripted handshake/auth/media/nodedef exchange. It steps
// through the client's non-control frames in the order the client is
// expected to send them, acking each reliable one before advancing to the
// next scripted reply. Init is the only step sent unreliably; its resends
// are ignored once Hello has gone out.
func (fs *fakeServer) run() {
	buf := make([]byte, 2048)
	step := 0
	for {
		n, addr, err := fs.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		fs.peerAddr = addr
		datagram := append([]byte(nil), buf[:n]...)
		header, body, err := frame.Decode(datagram)
		if err != nil {
			continue
		}
		if body.Kind == frame.BodyControl {
			continue
		}
		if header.Reliability.Reliable {
			fs.sendAck(header.Channel, header.Reliability.Seqnum)
		} else if step != 1 {
			continue
		}

		switch step {
		case 0: // Handshake on channel 0
			fs.send(0, false, frame.Body{Kind: frame.BodyControl, Control: frame.Control{Kind: frame.ControlSetPeerID, PeerID: 7}})
		case 1: // Init on channel 1
			fs.sendOriginal(0, encodeHello(fs.t))
		case 2: // SrpBytesA
			fs.sendOriginal(0, encodeSrpBytesSB(fs.t))
		case 3: // SrpBytesM
			fs.sendOriginal(0, encodeAuthAccept(fs.t))
		case 4: // Init2
			fs.sendOriginal(0, encodeAnnounceMediaEmpty(fs.t))
		case 5: // RequestMedia
			fs.sendOriginal(0, encodeMediaEmptyBunch(fs.t))
			fs.sendOriginal(0, encodeEmptyNodeDef(fs.t))
		case 6: // ClientReady
			return
		}
		step++
	}
}

func (fs *fakeServer) sendAck(channel uint8, seqnum uint16) {
	datagram := frame.Encode(
		frame.Header{PeerID: 0, Channel: channel},
		frame.Body{Kind: frame.BodyControl, Control: frame.Control{Kind: frame.ControlAck, Seqnum: seqnum}},
	)
	fs.conn.WriteToUDP(datagram, fs.peerAddr)
}

func TestSessionReachesClientReady(t *testing.T) {
	fs, addr := newFakeServer(t)
	go fs.run()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := Open(ctx, addr, "Alice", "hunter2", t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Shutdown()

	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	deadline := time.Now().Add(4 * time.Second)
	for time.Now().Before(deadline) {
		if s.clientReadySent {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if !s.clientReadySent {
		t.Fatal("expected ClientReady to be sent once media and node defs were ready")
	}
	if s.state != StateInGame {
		t.Fatalf("expected state InGame, got %v", s.state)
	}
	if s.GameDefs() == nil {
		t.Fatal("expected GameDefs to be populated")
	}
	if got := s.GameDefs().Node(0).Name; got != "air" {
		t.Fatalf("expected id 0 to resolve to air in an empty table, got %q", got)
	}
}

func TestSessionHandlesStatusMessagesWithoutTransport(t *testing.T) {
	s := &Session{catalog: map[string]string{}, missing: map[string]bool{}, chatCh: make(chan proto.ChatMessage, 1)}

	if err := s.handleMessage(proto.Hp{Hp: 15}); err != nil {
		t.Fatalf("handleMessage(Hp): %v", err)
	}
	if s.hp != 15 {
		t.Fatalf("expected hp 15, got %d", s.hp)
	}

	if err := s.handleMessage(proto.Breath{Breath: 9}); err != nil {
		t.Fatalf("handleMessage(Breath): %v", err)
	}
	if s.breath != 9 {
		t.Fatalf("expected breath 9, got %d", s.breath)
	}

	if err := s.handleMessage(proto.Privileges{Privileges: []string{"interact", "fly"}}); err != nil {
		t.Fatalf("handleMessage(Privileges): %v", err)
	}
	if len(s.privileges) != 2 {
		t.Fatalf("expected 2 privileges, got %d", len(s.privileges))
	}

	chat := proto.ChatMessage{Sender: "bob", Text: "hi"}
	if err := s.handleMessage(chat); err != nil {
		t.Fatalf("handleMessage(ChatMessage): %v", err)
	}
	select {
	case got := <-s.Chat():
		if got.Sender != "bob" || got.Text != "hi" {
			t.Fatalf("unexpected chat message %+v", got)
		}
	default:
		t.Fatal("expected chat message to be queued")
	}
}
