package statesync

import (
	"bytes"
	"testing"

	"github.com/autonity/statesync/common"
	"github.com/autonity/statesync/rlp"
)

func TestLedgerInfoRLPRoundTrip(t *testing.T) {
	in := LedgerInfo{
		Version:        100,
		Epoch:          2,
		EndsEpoch:      true,
		TimestampUsecs: 555,
		TxAccumulator:  common.HexToHash("0xbeef"),
		Signatures:     []byte("sigbytes"),
	}
	b, err := rlp.EncodeToBytes(&in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var out LedgerInfo
	if err := rlp.DecodeBytes(b, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Version != in.Version || out.Epoch != in.Epoch || out.EndsEpoch != in.EndsEpoch {
		t.Fatalf("scalar mismatch: got %+v want %+v", out, in)
	}
	if out.TxAccumulator != in.TxAccumulator {
		t.Fatalf("hash mismatch: got %s want %s", out.TxAccumulator, in.TxAccumulator)
	}
	if !bytes.Equal(out.Signatures, in.Signatures) {
		t.Fatalf("signature mismatch: got %q want %q", out.Signatures, in.Signatures)
	}
}

func TestLedgerInfoLessOrEqual(t *testing.T) {
	a := LedgerInfo{Epoch: 1, Version: 100}
	b := LedgerInfo{Epoch: 1, Version: 200}
	c := LedgerInfo{Epoch: 2, Version: 1}

	if !a.LessOrEqual(b) {
		t.Fatalf("expected same-epoch lower version to be <=")
	}
	if b.LessOrEqual(a) {
		t.Fatalf("expected same-epoch higher version to not be <=")
	}
	if !a.LessOrEqual(c) {
		t.Fatalf("expected lower-epoch LI to be <= higher-epoch LI regardless of version")
	}
	if !a.LessOrEqual(a) {
		t.Fatalf("expected LessOrEqual to be reflexive")
	}
}

func TestTransactionListWithProofLastVersion(t *testing.T) {
	first := Version(10)
	c := TransactionListWithProof{FirstVersion: &first, Transactions: [][]byte{{1}, {2}, {3}}}
	last, ok := c.LastVersion()
	if !ok || last != 12 {
		t.Fatalf("expected last version 12, got %d (ok=%v)", last, ok)
	}
}

func TestTransactionListWithProofEmpty(t *testing.T) {
	c := TransactionListWithProof{}
	if !c.IsEmpty() {
		t.Fatalf("expected zero-value chunk to be empty")
	}
	if _, ok := c.LastVersion(); ok {
		t.Fatalf("expected no last version for an empty chunk")
	}
}

func TestWaypointIsZero(t *testing.T) {
	var w Waypoint
	if !w.IsZero() {
		t.Fatalf("expected zero-value Waypoint to report IsZero")
	}
	w.Version = 1
	if w.IsZero() {
		t.Fatalf("expected non-zero version to make Waypoint non-zero")
	}
}

func TestRoleString(t *testing.T) {
	if RoleValidator.String() != "validator" {
		t.Fatalf("unexpected validator role string: %q", RoleValidator.String())
	}
	if RoleFullNode.String() != "full_node" {
		t.Fatalf("unexpected full node role string: %q", RoleFullNode.String())
	}
}

func TestSynchronizerStateAccessors(t *testing.T) {
	s := SynchronizerState{CommittedLedgerInfo: LedgerInfo{Version: 7, Epoch: 3}}
	if s.CommittedVersion() != 7 || s.CommittedEpoch() != 3 {
		t.Fatalf("unexpected accessor results: %+v", s)
	}
}
