package transport

import "time"

// InitialRTO, MaxRTO and MaxAttempts implement spec.md §5's retransmission
// schedule: 100ms initial RTO, doubling, capped at 1.6s, aborting the
// session after 8 unacknowledged attempts of the same frame.
const (
	InitialRTO  = 100 * time.Millisecond
	MaxRTO      = 1600 * time.Millisecond
	MaxAttempts = 8
)

type unackedKey struct {
	channel uint8
	seqnum  uint16
}

// unackedEntry is one outbound reliable frame awaiting its Ack. Frame holds
// the exact bytes transmitted — retransmission resends them verbatim,
// never re-encoding (spec.md §4.3: "preserves original frame bytes").
type unackedEntry struct {
	frame     []byte
	sentAt    time.Time
	rto       time.Duration
	attempts  int
}

// channelInbound tracks one channel's inbound reliable-delivery state: the
// next seqnum expected in order, and any reliable frames that arrived
// ahead of it, buffered until their predecessor fills the gap.
type channelInbound struct {
	expected uint16
	pending  map[uint16]pendingFrame
}

type pendingFrame struct {
	isSplit bool
	payload []byte // Original body, or Split body's raw bytes pre-parsed by caller
	splitHdr splitFrameHeader
}

type splitFrameHeader struct {
	seqnum     uint16
	chunkCount uint16
	chunkIndex uint16
}

func newChannelInbound() *channelInbound {
	return &channelInbound{
		expected: InitialSeqnum,
		pending:  make(map[uint16]pendingFrame),
	}
}
