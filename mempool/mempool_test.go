package mempool

import (
	"context"
	"testing"
	"time"

	"github.com/autonity/statesync/common"
)

func TestNotifyCommitDeliversToConsumer(t *testing.T) {
	ch := NewChannel(1)
	hashes := []common.Hash{common.HexToHash("0x01")}

	if err := ch.NotifyCommit(context.Background(), hashes, 999); err != nil {
		t.Fatalf("NotifyCommit: %v", err)
	}

	select {
	case n := <-ch.Notifications():
		if len(n.TxHashes) != 1 || n.TxHashes[0] != hashes[0] || n.BlockTimestampUsecs != 999 {
			t.Fatalf("unexpected notification: %+v", n)
		}
	default:
		t.Fatalf("expected a buffered notification to be immediately readable")
	}
}

func TestNotifyCommitRespectsContextCancellation(t *testing.T) {
	ch := NewChannel(0) // unbuffered, no consumer draining it
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := ch.NotifyCommit(ctx, nil, 0)
	if err == nil {
		t.Fatalf("expected NotifyCommit to return an error once the context expires")
	}
}
