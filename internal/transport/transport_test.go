package transport

import (
	"net"
	"testing"
	"time"

	"github.com/weqqr/mtt-go/internal/codec"
	"github.com/weqqr/mtt-go/internal/frame"
	"github.com/weqqr/mtt-go/internal/proto"
)

// mustLoopbackConn returns a connected UDP socket talking to a throwaway
// local listener, so tests can exercise conn.Write without a real peer.
func mustLoopbackConn(t *testing.T) *net.UDPConn {
	t.Helper()
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	conn, err := net.DialUDP("udp", nil, listener.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestSeqLessWraparound(t *testing.T) {
	if !seqLess(0xFFFE, 0x0001) {
		t.Fatal("expected 0xFFFE to precede 0x0001 across the wrap")
	}
	if seqLess(0x0001, 0xFFFE) {
		t.Fatal("0x0001 must not precede 0xFFFE across the wrap")
	}
	if seqLess(5, 5) {
		t.Fatal("a value must not be less than itself")
	}
	if !seqLessEq(5, 5) {
		t.Fatal("seqLessEq must hold for equal values")
	}
}

func TestIncompleteSplitOutOfOrder(t *testing.T) {
	s := newIncompleteSplit(3)

	if got := s.addChunk(2, []byte("ccc")); got != nil {
		t.Fatalf("expected nil before all chunks arrive, got %v", got)
	}
	if got := s.addChunk(0, []byte("aaa")); got != nil {
		t.Fatalf("expected nil before all chunks arrive, got %v", got)
	}
	got := s.addChunk(1, []byte("bbb"))
	if got == nil {
		t.Fatal("expected assembled payload once every chunk has arrived")
	}
	if string(got) != "aaabbbccc" {
		t.Fatalf("expected chunks assembled in index order, got %q", got)
	}
}

func TestSplitPayloadChunking(t *testing.T) {
	payload := make([]byte, SplitThreshold*2+1)
	chunks := splitPayload(payload)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != SplitThreshold || len(chunks[1]) != SplitThreshold || len(chunks[2]) != 1 {
		t.Fatalf("unexpected chunk sizes: %d %d %d", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}

	small := []byte("hello")
	if chunks := splitPayload(small); len(chunks) != 1 {
		t.Fatalf("payload under the threshold must not be split, got %d chunks", len(chunks))
	}
}

func encodeHpForTest(t *testing.T, hp uint16) []byte {
	t.Helper()
	w := codec.NewWriter()
	w.U16(uint16(proto.IDHp))
	w.U16(hp)
	return w.Bytes()
}

func TestHandleReliableBodyBuffersOutOfOrder(t *testing.T) {
	tr := newTransport(nil, nil)

	inOrder := frame.Body{Kind: frame.BodyOriginal, Original: encodeHpForTest(t, 1)}
	ahead := frame.Body{Kind: frame.BodyOriginal, Original: encodeHpForTest(t, 3)}
	gapFiller := frame.Body{Kind: frame.BodyOriginal, Original: encodeHpForTest(t, 2)}

	base := InitialSeqnum
	tr.handleReliableBody(0, base+2, ahead)
	select {
	case m := <-tr.recvCh:
		t.Fatalf("out-of-order frame must not be delivered yet, got %v", m)
	default:
	}

	tr.handleReliableBody(0, base, inOrder)
	tr.handleReliableBody(0, base+1, gapFiller)

	var got []uint16
	for i := 0; i < 3; i++ {
		select {
		case m := <-tr.recvCh:
			got = append(got, m.(proto.Hp).Hp)
		case <-time.After(time.Second):
			t.Fatalf("expected 3 delivered messages, got %d", len(got))
		}
	}
	if got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("expected in-order delivery [1 2 3], got %v", got)
	}
	if tr.inbound[0].expected != base+3 {
		t.Fatalf("expected next seqnum to advance past all delivered frames, got %d", tr.inbound[0].expected)
	}
}

func TestHandleReliableBodyDropsDuplicate(t *testing.T) {
	tr := newTransport(nil, nil)
	base := InitialSeqnum

	tr.handleReliableBody(0, base, frame.Body{Kind: frame.BodyOriginal, Original: encodeHpForTest(t, 1)})
	<-tr.recvCh

	tr.handleReliableBody(0, base, frame.Body{Kind: frame.BodyOriginal, Original: encodeHpForTest(t, 1)})
	select {
	case m := <-tr.recvCh:
		t.Fatalf("duplicate frame must not be redelivered, got %v", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScanRetransmitsBackoffThenGivesUp(t *testing.T) {
	conn := mustLoopbackConn(t)
	defer conn.Close()

	tr := newTransport(conn, nil)
	key := unackedKey{channel: 0, seqnum: InitialSeqnum}
	tr.unacked[key] = &unackedEntry{
		frame:    frame.Encode(frame.Header{Channel: 0, Reliability: frame.Reliable(InitialSeqnum)}, frame.Body{Kind: frame.BodyOriginal, Original: []byte("x")}),
		sentAt:   time.Now().Add(-InitialRTO),
		rto:      InitialRTO,
		attempts: 1,
	}

	tr.scanRetransmits()
	entry := tr.unacked[key]
	if entry == nil {
		t.Fatal("entry should survive before reaching MaxAttempts")
	}
	if entry.attempts != 2 {
		t.Fatalf("expected attempts to increment to 2, got %d", entry.attempts)
	}
	if entry.rto != InitialRTO*2 {
		t.Fatalf("expected RTO to double, got %v", entry.rto)
	}

	entry.attempts = MaxAttempts
	entry.sentAt = time.Now().Add(-entry.rto)
	tr.scanRetransmits()
	if _, ok := tr.unacked[key]; ok {
		t.Fatal("entry must be dropped once MaxAttempts is reached")
	}
	select {
	case err := <-tr.errCh:
		if err != ErrPeerUnresponsive {
			t.Fatalf("expected ErrPeerUnresponsive, got %v", err)
		}
	default:
		t.Fatal("expected ErrPeerUnresponsive to be reported")
	}
}

func TestScanRetransmitsCapsAtMaxRTO(t *testing.T) {
	conn := mustLoopbackConn(t)
	defer conn.Close()

	tr := newTransport(conn, nil)
	key := unackedKey{channel: 0, seqnum: InitialSeqnum}
	entry := &unackedEntry{
		frame:    frame.Encode(frame.Header{Channel: 0, Reliability: frame.Reliable(InitialSeqnum)}, frame.Body{Kind: frame.BodyOriginal, Original: []byte("x")}),
		sentAt:   time.Now().Add(-MaxRTO),
		rto:      MaxRTO,
		attempts: 1,
	}
	tr.unacked[key] = entry
	tr.scanRetransmits()
	if entry.rto != MaxRTO {
		t.Fatalf("RTO must not exceed MaxRTO, got %v", entry.rto)
	}
}
