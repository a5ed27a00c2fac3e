// Package transport implements the reliable, sequenced, multi-channel
// packet transport: framing, acknowledgement, split reassembly and
// peer-id assignment described in spec.md §4.3. It generalizes the
// teacher's Session/Update/HandleDataPacket trio (source/protocol/
// raknet.go) from RakNet's 24-bit LE scheme to this protocol's fixed
// header layout, and replaces the teacher's mutex-guarded shared Session
// struct with a single-goroutine "transport task" that owns all mutable
// state — the pattern spec.md §9 asks for in place of "callback soup".
package transport

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/weqqr/mtt-go/internal/frame"
	"github.com/weqqr/mtt-go/internal/proto"
	"github.com/weqqr/mtt-go/pkg/mtlog"
)

// KeepaliveInterval is how long the transport waits without sending or
// receiving anything before emitting a Control::Ping, mirroring the liveness
// behavior original_source/mtt/src/net/mod.rs keeps per channel.
const KeepaliveInterval = 5 * time.Second

// retransmitTick is how often the transport task re-scans the unacked
// table. It must be finer than InitialRTO to keep backoff timing honest.
const retransmitTick = 20 * time.Millisecond

// Transport owns the UDP socket, peer-id, per-channel sequence spaces,
// split-reassembly tables and retransmit queues for one session. All of
// it is mutated only inside run(), its single cooperative task.
type Transport struct {
	conn   *net.UDPConn
	log    *mtlog.Logger
	peerID uint16

	outSeq          [frame.NumChannels]uint16
	splitSeqCounter [frame.NumChannels]uint16
	unacked         map[unackedKey]*unackedEntry
	inbound         [frame.NumChannels]*channelInbound
	splits          map[splitKey]*incompleteSplit
	lastActivity    time.Time

	rawCh     chan []byte
	sendReqCh chan sendRequest
	recvCh    chan proto.Message
	errCh     chan error
	peerIDCh  chan uint16
	helloCh   chan struct{}
	helloOnce sync.Once

	closeCh   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type sendRequest struct {
	msg      proto.Message
	reliable bool
	channel  uint8
	result   chan error
}

func newTransport(conn *net.UDPConn, log *mtlog.Logger) *Transport {
	t := &Transport{
		conn:         conn,
		log:          log,
		unacked:      make(map[unackedKey]*unackedEntry),
		splits:       make(map[splitKey]*incompleteSplit),
		lastActivity: time.Now(),
		rawCh:        make(chan []byte, 64),
		sendReqCh:    make(chan sendRequest),
		recvCh:       make(chan proto.Message, 256),
		errCh:        make(chan error, 1),
		peerIDCh:     make(chan uint16, 1),
		helloCh:      make(chan struct{}),
		closeCh:      make(chan struct{}),
	}
	for i := range t.outSeq {
		t.outSeq[i] = InitialSeqnum
	}
	for i := range t.inbound {
		t.inbound[i] = newChannelInbound()
	}
	return t
}

// Open binds a UDP socket to addr, performs the peer-id and Hello
// handshake (spec.md §4.3), and returns a ready Transport. ctx bounds the
// handshake only — once Open returns, the transport runs until Shutdown.
// The delivered Hello is left queued on recvCh for the caller's first
// RecvMessage.
func Open(ctx context.Context, addr, playerName string, log *mtlog.Logger) (*Transport, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, err
	}

	t := newTransport(conn, log)

	t.wg.Add(2)
	go t.readLoop()
	go t.run()

	if err := t.handshake(ctx, playerName); err != nil {
		t.Shutdown()
		return nil, err
	}
	return t, nil
}

// SendMessage enqueues msg for transmission on channel, fragmenting into
// Split frames if its encoded size exceeds SplitThreshold.
func (t *Transport) SendMessage(msg proto.Message, reliable bool, channel uint8) error {
	req := sendRequest{msg: msg, reliable: reliable, channel: channel, result: make(chan error, 1)}
	select {
	case t.sendReqCh <- req:
	case <-t.closeCh:
		return ErrClosed
	}
	select {
	case err := <-req.result:
		return err
	case <-t.closeCh:
		return ErrClosed
	}
}

// RecvMessage blocks until the next delivered Message, a fatal transport
// error, or ctx cancellation.
func (t *Transport) RecvMessage(ctx context.Context) (proto.Message, error) {
	select {
	case m := <-t.recvCh:
		return m, nil
	case err := <-t.errCh:
		return nil, err
	case <-t.closeCh:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// LastActivity reports when the transport last received a datagram or
// successfully sent one.
func (t *Transport) LastActivity() time.Time {
	return t.lastActivity
}

// PeerID returns the peer-id assigned during handshake (0 before then).
func (t *Transport) PeerID() uint16 {
	return t.peerID
}

// Shutdown sends a single unreliable Disco and closes the socket. It is
// fire-and-forget: no confirmation is expected from the server.
func (t *Transport) Shutdown() {
	t.closeOnce.Do(func() {
		discoFrame := frame.Encode(
			frame.Header{PeerID: t.peerID, Channel: 0},
			frame.Body{Kind: frame.BodyControl, Control: frame.Control{Kind: frame.ControlDisco}},
		)
		_, _ = t.conn.Write(discoFrame)
		close(t.closeCh)
		t.conn.Close()
	})
	t.wg.Wait()
}

// readLoop is the only goroutine that touches the socket for reading; it
// forwards raw datagrams to run() and exits once the socket is closed.
func (t *Transport) readLoop() {
	defer t.wg.Done()
	buf := make([]byte, 2048)
	for {
		n, err := t.conn.Read(buf)
		if err != nil {
			select {
			case <-t.closeCh:
			default:
				t.errCh <- err
			}
			return
		}
		datagram := make([]byte, n)
		copy(datagram, buf[:n])
		select {
		case t.rawCh <- datagram:
		case <-t.closeCh:
			return
		}
	}
}
