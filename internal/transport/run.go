package transport

import (
	"time"

	"github.com/weqqr/mtt-go/internal/frame"
	"github.com/weqqr/mtt-go/internal/proto"
)

// run is the transport's single cooperative task. Every mutation of
// outSeq/unacked/inbound/splits happens here and nowhere else, so none of
// it needs a mutex: the only suspension points are the five channel
// operations in the select below (spec.md §5).
func (t *Transport) run() {
	defer t.wg.Done()

	retransmit := time.NewTicker(retransmitTick)
	defer retransmit.Stop()
	keepalive := time.NewTicker(KeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case raw := <-t.rawCh:
			t.handleDatagram(raw)
		case req := <-t.sendReqCh:
			req.result <- t.handleSend(req)
		case <-retransmit.C:
			t.scanRetransmits()
		case <-keepalive.C:
			if time.Since(t.lastActivity) >= KeepaliveInterval {
				t.sendControl(frame.ControlPing, 0, 0, 0)
			}
		case <-t.closeCh:
			return
		}
	}
}

func (t *Transport) handleDatagram(raw []byte) {
	t.lastActivity = time.Now()

	header, body, err := frame.Decode(raw)
	if err != nil {
		if t.log != nil {
			t.log.Debug("dropping malformed datagram: %v", err)
		}
		return
	}

	if body.Kind == frame.BodyControl {
		t.handleControl(header, body.Control)
		return
	}

	if header.Reliability.Reliable {
		seq := header.Reliability.Seqnum
		t.sendAck(header.Channel, seq)
		t.handleReliableBody(header.Channel, seq, body)
		return
	}

	t.deliverBody(header.Channel, body)
}

func (t *Transport) handleControl(header frame.Header, c frame.Control) {
	switch c.Kind {
	case frame.ControlAck:
		delete(t.unacked, unackedKey{channel: header.Channel, seqnum: c.Seqnum})
	case frame.ControlSetPeerID:
		t.peerID = c.PeerID
		select {
		case t.peerIDCh <- c.PeerID:
		default:
		}
	case frame.ControlPing:
		// liveness only; no response required
	case frame.ControlDisco:
		select {
		case t.errCh <- ErrClosed:
		default:
		}
	}
}

// handleReliableBody enforces spec.md §4.3's per-channel ordering: a
// duplicate (seqnum at or behind the highest consecutively-delivered
// seqnum) is dropped after its Ack; an out-of-order arrival is buffered
// until its predecessor closes the gap.
func (t *Transport) handleReliableBody(channel uint8, seq uint16, body frame.Body) {
	ch := t.inbound[channel]

	if seqLess(seq, ch.expected) {
		return // duplicate, already acked above
	}

	if seq != ch.expected {
		ch.pending[seq] = bodyToPending(body)
		return
	}

	t.deliverBody(channel, body)
	ch.expected++
	for {
		pf, ok := ch.pending[ch.expected]
		if !ok {
			break
		}
		delete(ch.pending, ch.expected)
		t.deliverBody(channel, pendingToBody(pf))
		ch.expected++
	}
}

func bodyToPending(b frame.Body) pendingFrame {
	if b.Kind == frame.BodySplit {
		return pendingFrame{
			isSplit: true,
			payload: b.Split.Payload,
			splitHdr: splitFrameHeader{
				seqnum:     b.Split.Seqnum,
				chunkCount: b.Split.ChunkCount,
				chunkIndex: b.Split.ChunkIndex,
			},
		}
	}
	return pendingFrame{payload: b.Original}
}

func pendingToBody(pf pendingFrame) frame.Body {
	if pf.isSplit {
		return frame.Body{Kind: frame.BodySplit, Split: frame.SplitHeader{
			Seqnum:     pf.splitHdr.seqnum,
			ChunkCount: pf.splitHdr.chunkCount,
			ChunkIndex: pf.splitHdr.chunkIndex,
			Payload:    pf.payload,
		}}
	}
	return frame.Body{Kind: frame.BodyOriginal, Original: pf.payload}
}

// deliverBody turns a frame body into a Message, reassembling Split
// fragments first, and pushes it to recvCh. Codec failures on a delivered
// body are logged and dropped (spec.md §7: non-critical InGame messages
// are forward-compatible, not fatal).
func (t *Transport) deliverBody(channel uint8, body frame.Body) {
	var raw []byte
	switch body.Kind {
	case frame.BodyOriginal:
		raw = body.Original
	case frame.BodySplit:
		key := splitKey{channel: channel, seqnum: body.Split.Seqnum}
		buf, ok := t.splits[key]
		if !ok {
			buf = newIncompleteSplit(body.Split.ChunkCount)
			t.splits[key] = buf
		} else if buf.chunkCount != body.Split.ChunkCount {
			select {
			case t.errCh <- ErrSplitCollision:
			default:
			}
			return
		}
		assembled := buf.addChunk(body.Split.ChunkIndex, body.Split.Payload)
		if assembled == nil {
			return
		}
		delete(t.splits, key)
		raw = assembled
	default:
		return
	}

	msg, err := proto.DecodeClientbound(raw)
	if err != nil {
		if t.log != nil {
			t.log.Warn("dropping undecodable message: %v", err)
		}
		return
	}
	select {
	case t.recvCh <- msg:
		t.helloOnce.Do(func() { close(t.helloCh) })
	default:
		if t.log != nil {
			t.log.Warn("recv queue full, dropping message")
		}
	}
}

func (t *Transport) handleSend(req sendRequest) error {
	body, err := proto.EncodeServerbound(req.msg)
	if err != nil {
		return err
	}

	chunks := splitPayload(body)
	if len(chunks) == 1 {
		return t.sendFrame(req.channel, req.reliable, frame.Body{Kind: frame.BodyOriginal, Original: chunks[0]})
	}

	splitSeq := t.splitSeqCounter[req.channel]
	t.splitSeqCounter[req.channel]++
	for i, chunk := range chunks {
		b := frame.Body{Kind: frame.BodySplit, Split: frame.SplitHeader{
			Seqnum:     splitSeq,
			ChunkCount: uint16(len(chunks)),
			ChunkIndex: uint16(i),
			Payload:    chunk,
		}}
		if err := t.sendFrame(req.channel, req.reliable, b); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transport) sendFrame(channel uint8, reliable bool, body frame.Body) error {
	header := frame.Header{PeerID: t.peerID, Channel: channel}
	if reliable {
		seq := t.outSeq[channel]
		t.outSeq[channel]++
		header.Reliability = frame.Reliable(seq)
	}

	datagram := frame.Encode(header, body)
	if _, err := t.conn.Write(datagram); err != nil {
		return err
	}
	t.lastActivity = time.Now()

	if reliable {
		t.unacked[unackedKey{channel: channel, seqnum: header.Reliability.Seqnum}] = &unackedEntry{
			frame:    datagram,
			sentAt:   time.Now(),
			rto:      InitialRTO,
			attempts: 1,
		}
	}
	return nil
}

func (t *Transport) sendAck(channel uint8, seqnum uint16) {
	t.sendControl(frame.ControlAck, seqnum, channel, 0)
}

// sendControl writes a Control frame directly, bypassing the reliability
// table: acks and pings are never themselves reliable.
func (t *Transport) sendControl(kind frame.ControlKind, seqnum uint16, channel uint8, peerID uint16) {
	c := frame.Control{Kind: kind, Seqnum: seqnum, PeerID: peerID}
	datagram := frame.Encode(frame.Header{PeerID: t.peerID, Channel: channel}, frame.Body{Kind: frame.BodyControl, Control: c})
	if _, err := t.conn.Write(datagram); err == nil {
		t.lastActivity = time.Now()
	}
}

func (t *Transport) scanRetransmits() {
	now := time.Now()
	for key, entry := range t.unacked {
		if now.Sub(entry.sentAt) < entry.rto {
			continue
		}
		if entry.attempts >= MaxAttempts {
			delete(t.unacked, key)
			select {
			case t.errCh <- ErrPeerUnresponsive:
			default:
			}
			continue
		}
		if _, err := t.conn.Write(entry.frame); err == nil {
			entry.sentAt = now
			entry.attempts++
			entry.rto *= 2
			if entry.rto > MaxRTO {
				entry.rto = MaxRTO
			}
		}
	}
}
