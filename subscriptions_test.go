package statesync

import (
	"testing"
	"time"

	"github.com/autonity/statesync/common"
)

func TestSubscriptionTableSweepServiceable(t *testing.T) {
	tbl := newSubscriptionTable()
	peer := common.HexToHash("0x01")
	tbl.add(PendingRequestInfo{
		PeerNetworkID:  peer,
		KnownVersion:   10,
		ExpirationTime: time.Now().Add(time.Hour),
	})

	serviceable, expired := tbl.sweep(time.Now(), 20)
	if len(serviceable) != 1 || len(expired) != 0 {
		t.Fatalf("expected 1 serviceable, 0 expired; got %d, %d", len(serviceable), len(expired))
	}
	if tbl.len() != 0 {
		t.Fatalf("expected sweep to remove the serviceable subscription, table len %d", tbl.len())
	}
}

func TestSubscriptionTableSweepExpired(t *testing.T) {
	tbl := newSubscriptionTable()
	peer := common.HexToHash("0x02")
	tbl.add(PendingRequestInfo{
		PeerNetworkID:  peer,
		KnownVersion:   10,
		ExpirationTime: time.Now().Add(-time.Second),
	})

	serviceable, expired := tbl.sweep(time.Now(), 5)
	if len(serviceable) != 0 || len(expired) != 1 {
		t.Fatalf("expected 0 serviceable, 1 expired; got %d, %d", len(serviceable), len(expired))
	}
}

func TestSubscriptionTableSweepLeavesUnserviceableUnexpired(t *testing.T) {
	tbl := newSubscriptionTable()
	peer := common.HexToHash("0x03")
	tbl.add(PendingRequestInfo{
		PeerNetworkID:  peer,
		KnownVersion:   10,
		ExpirationTime: time.Now().Add(time.Hour),
	})

	serviceable, expired := tbl.sweep(time.Now(), 5)
	if len(serviceable) != 0 || len(expired) != 0 {
		t.Fatalf("expected subscription to remain parked, got serviceable=%d expired=%d", len(serviceable), len(expired))
	}
	if tbl.len() != 1 {
		t.Fatalf("expected subscription to remain in the table, len %d", tbl.len())
	}
}

func TestSubscriptionTableNewRequestSupersedesPeersOld(t *testing.T) {
	tbl := newSubscriptionTable()
	peer := common.HexToHash("0x04")
	tbl.add(PendingRequestInfo{PeerNetworkID: peer, KnownVersion: 1, ExpirationTime: time.Now().Add(time.Hour)})
	tbl.add(PendingRequestInfo{PeerNetworkID: peer, KnownVersion: 2, ExpirationTime: time.Now().Add(time.Hour)})

	if tbl.len() != 1 {
		t.Fatalf("expected one subscription per peer, got %d", tbl.len())
	}
}
