// Package mempool implements a channel-backed reference
// statesync.MempoolNotifier: commit notifications are handed to a buffered
// channel for a consumer goroutine to drain.
package mempool

import (
	"context"

	"github.com/autonity/statesync/common"
)

// CommitNotification is delivered to a Channel's consumer for every
// process_commit call.
type CommitNotification struct {
	TxHashes            []common.Hash
	BlockTimestampUsecs uint64
}

// Channel is a reference MempoolNotifier: NotifyCommit returns as soon as
// the notification fits in the channel's buffer (or the consumer reads it),
// or with the context's error once the caller's context expires first,
// matching the bounded mempool-ack path of §5 (unlike the coordinator's
// own unbounded client command channel).
type Channel struct {
	notifications chan CommitNotification
}

// NewChannel returns a Channel with the given buffer depth.
func NewChannel(buffer int) *Channel {
	return &Channel{notifications: make(chan CommitNotification, buffer)}
}

// Notifications exposes the consumer-facing read side.
func (c *Channel) Notifications() <-chan CommitNotification { return c.notifications }

func (c *Channel) NotifyCommit(ctx context.Context, txHashes []common.Hash, blockTimestampUsecs uint64) error {
	select {
	case c.notifications <- CommitNotification{TxHashes: txHashes, BlockTimestampUsecs: blockTimestampUsecs}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
