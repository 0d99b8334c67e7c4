package executor

import (
	"context"
	"testing"

	"github.com/autonity/statesync"
)

func seedExecutor(t *testing.T, ex *InMemory, n int) {
	t.Helper()
	txns := make([][]byte, n)
	for i := range txns {
		txns[i] = []byte{byte(i)}
	}
	first := statesync.Version(1)
	chunk := statesync.TransactionListWithProof{FirstVersion: &first, Transactions: txns}
	target := statesync.LedgerInfo{Version: statesync.Version(n)}
	if _, err := ex.ExecuteAndCommitChunk(context.Background(), chunk, target); err != nil {
		t.Fatalf("seeding chunk: %v", err)
	}
}

func TestExecuteAndCommitChunkAdvancesSyncedVersion(t *testing.T) {
	ex := New(1024)
	seedExecutor(t, ex, 5)

	state, err := ex.GetLocalStorageState(context.Background())
	if err != nil {
		t.Fatalf("GetLocalStorageState: %v", err)
	}
	if state.SyncedVersion != 5 {
		t.Fatalf("expected synced version 5, got %d", state.SyncedVersion)
	}
	if state.CommittedVersion() != 5 {
		t.Fatalf("expected committed version 5, got %d", state.CommittedVersion())
	}
}

func TestExecuteAndCommitChunkRejectsDiscontinuity(t *testing.T) {
	ex := New(1024)
	seedExecutor(t, ex, 5)

	badFirst := statesync.Version(10)
	chunk := statesync.TransactionListWithProof{FirstVersion: &badFirst, Transactions: [][]byte{{1}}}
	if _, err := ex.ExecuteAndCommitChunk(context.Background(), chunk, statesync.LedgerInfo{Version: 11}); err == nil {
		t.Fatalf("expected an error for a chunk that doesn't continue from synced version")
	}
}

func TestExecuteAndCommitChunkBumpsEpochOnEpochEnd(t *testing.T) {
	ex := New(1024)
	first := statesync.Version(1)
	chunk := statesync.TransactionListWithProof{FirstVersion: &first, Transactions: [][]byte{{1}}}
	target := statesync.LedgerInfo{Version: 1, Epoch: 0, EndsEpoch: true}
	if _, err := ex.ExecuteAndCommitChunk(context.Background(), chunk, target); err != nil {
		t.Fatalf("ExecuteAndCommitChunk: %v", err)
	}
	state, _ := ex.GetLocalStorageState(context.Background())
	if state.TrustedEpochState.Epoch != 1 {
		t.Fatalf("expected trusted epoch to advance to 1, got %d", state.TrustedEpochState.Epoch)
	}
}

func TestGetChunkReturnsEmptyWhenCallerIsCaughtUp(t *testing.T) {
	ex := New(1024)
	seedExecutor(t, ex, 5)
	chunk, err := ex.GetChunk(context.Background(), 5, 10, 5)
	if err != nil {
		t.Fatalf("GetChunk: %v", err)
	}
	if !chunk.IsEmpty() {
		t.Fatalf("expected an empty chunk for a caller already at synced version")
	}
}

func TestGetChunkServesAndCaches(t *testing.T) {
	ex := New(1 << 20)
	seedExecutor(t, ex, 10)

	chunk, err := ex.GetChunk(context.Background(), 0, 3, 10)
	if err != nil {
		t.Fatalf("GetChunk: %v", err)
	}
	if chunk.Len() != 3 {
		t.Fatalf("expected 3 transactions, got %d", chunk.Len())
	}
	if chunk.FirstVersion == nil || *chunk.FirstVersion != 1 {
		t.Fatalf("expected first version 1, got %v", chunk.FirstVersion)
	}

	again, err := ex.GetChunk(context.Background(), 0, 3, 10)
	if err != nil {
		t.Fatalf("GetChunk (cached): %v", err)
	}
	if again.Len() != chunk.Len() {
		t.Fatalf("expected cached chunk to match, got len %d want %d", again.Len(), chunk.Len())
	}
}

func TestVerifyLedgerInfoRejectsBehindEpoch(t *testing.T) {
	ex := New(1024)
	err := ex.VerifyLedgerInfo(statesync.LedgerInfo{Epoch: 0}, statesync.EpochState{Epoch: 1})
	if err == nil {
		t.Fatalf("expected an error verifying an LI from a stale epoch")
	}
}

func TestEpochChangeLedgerInfoRequiresPastEpoch(t *testing.T) {
	ex := New(1024)
	seedExecutor(t, ex, 1)
	if _, err := ex.EpochChangeLedgerInfo(context.Background(), 5); err == nil {
		t.Fatalf("expected an error requesting an epoch-change LI past what's committed")
	}
}
