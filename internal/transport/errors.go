package transport

import "fmt"

// ErrHandshakeTimeout is returned by Open when no Hello arrives within the
// 5-second handshake deadline (spec.md §4.3/§5).
var ErrHandshakeTimeout = fmt.Errorf("transport: handshake timed out")

// ErrPeerUnresponsive is returned (and delivered as a fatal session error)
// when a reliable frame exceeds its maximum retransmit attempts.
var ErrPeerUnresponsive = fmt.Errorf("transport: peer unresponsive")

// ErrSplitCollision is returned when two Split sequences on the same
// channel reuse a seqnum with a different chunk_count, per spec.md §7.
var ErrSplitCollision = fmt.Errorf("transport: split reassembly collision")

// ErrClosed is returned by RecvMessage/SendMessage after Shutdown.
var ErrClosed = fmt.Errorf("transport: closed")
