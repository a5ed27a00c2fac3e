package transport

import (
	"context"
	"time"

	"github.com/weqqr/mtt-go/internal/proto"
)

// SerializationVersion and the protocol version window are the values
// spec.md §4.4 requires Init to advertise; servers that only speak ≤39 are
// unsupported.
const (
	SerializationVersion = 29
	MinProtoVersion      = 40
	MaxProtoVersion      = 40
)

const initResendInterval = 100 * time.Millisecond

// handshake drives spec.md §4.3's peer-id exchange: a reliable Handshake
// opens channel 0 (its retransmission rides the ordinary unacked-table
// loop, whose 100ms InitialRTO already matches the required cadence),
// then once SetPeerId arrives, Init is resent unreliably on channel 1
// until the first message is delivered or the deadline below expires.
func (t *Transport) handshake(ctx context.Context, playerName string) error {
	deadline := time.Now().Add(5 * time.Second)
	hctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	if err := t.SendMessage(proto.Handshake{}, true, 0); err != nil {
		return err
	}

	select {
	case <-t.peerIDCh:
	case <-hctx.Done():
		return ErrHandshakeTimeout
	case err := <-t.errCh:
		return err
	}

	init := proto.Init{
		MaxSerializationVersion: SerializationVersion,
		SupportedCompression:    0,
		MinProtoVersion:         MinProtoVersion,
		MaxProtoVersion:         MaxProtoVersion,
		PlayerName:              playerName,
	}

	ticker := time.NewTicker(initResendInterval)
	defer ticker.Stop()

	if err := t.SendMessage(init, false, 1); err != nil {
		return err
	}

	for {
		select {
		case <-ticker.C:
			if err := t.SendMessage(init, false, 1); err != nil {
				return err
			}
		case <-t.helloCh:
			return nil
		case err := <-t.errCh:
			return err
		case <-hctx.Done():
			return ErrHandshakeTimeout
		}
	}
}
