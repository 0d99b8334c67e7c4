// Package executor implements a reference ExecutorProxy: an in-memory
// transaction log with a byte-cache of already-proven chunk responses. It
// is a test/demo double, not a real VM or storage engine (the coordinator
// itself never executes transactions — see SPEC_FULL.md Non-goals).
package executor

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/VictoriaMetrics/fastcache"
	"golang.org/x/crypto/blake2b"

	"github.com/autonity/statesync"
)

// InMemory is a reference statesync.ExecutorProxy backed by a flat
// transaction log.
type InMemory struct {
	mu sync.RWMutex

	txns          [][]byte
	committedLI   statesync.LedgerInfo
	syncedVersion statesync.Version
	epochState    statesync.EpochState
	epochEndingLIs map[statesync.Epoch]statesync.LedgerInfo

	chunkCache *fastcache.Cache
}

// New returns an InMemory executor seeded with genesis, and a chunk-proof
// cache sized cacheBytes.
func New(cacheBytes int) *InMemory {
	return &InMemory{
		chunkCache:     fastcache.New(cacheBytes),
		epochState:     statesync.EpochState{Epoch: 0},
		epochEndingLIs: make(map[statesync.Epoch]statesync.LedgerInfo),
	}
}

func (e *InMemory) GetLocalStorageState(ctx context.Context) (statesync.SynchronizerState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return statesync.SynchronizerState{
		CommittedLedgerInfo: e.committedLI,
		SyncedVersion:       e.syncedVersion,
		TrustedEpochState:   e.epochState,
	}, nil
}

func (e *InMemory) ExecuteAndCommitChunk(ctx context.Context, chunk statesync.TransactionListWithProof, target statesync.LedgerInfo) (statesync.Version, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if chunk.IsEmpty() {
		return e.syncedVersion, nil
	}
	first, ok := chunk.FirstVersion, chunk.FirstVersion != nil
	if !ok || *first != e.syncedVersion+1 {
		return 0, fmt.Errorf("executor: chunk does not continue from synced version %d", e.syncedVersion)
	}

	e.txns = append(e.txns, chunk.Transactions...)
	e.syncedVersion += statesync.Version(len(chunk.Transactions))
	if e.syncedVersion >= target.Version {
		e.committedLI = target
		if target.EndsEpoch {
			e.epochEndingLIs[target.Epoch] = target
			e.epochState = statesync.EpochState{Epoch: target.Epoch + 1}
		}
	}
	return e.syncedVersion, nil
}

func (e *InMemory) GetChunk(ctx context.Context, knownVersion statesync.Version, limit uint64, targetVersion statesync.Version) (statesync.TransactionListWithProof, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cacheKey := chunkCacheKey(knownVersion, limit, targetVersion)
	if cached, ok := e.chunkCache.HasGet(nil, cacheKey); ok {
		return decodeChunk(cached)
	}

	if knownVersion >= e.syncedVersion {
		return statesync.TransactionListWithProof{}, nil
	}
	start := knownVersion
	end := start + statesync.Version(limit)
	if end > e.syncedVersion {
		end = e.syncedVersion
	}
	if end > targetVersion && targetVersion != 0 {
		end = targetVersion
	}
	txns := e.txns[start:end]
	first := start + 1
	chunk := statesync.TransactionListWithProof{
		FirstVersion: &first,
		Transactions: txns,
		Proof:        proofOf(txns),
	}
	e.chunkCache.Set(cacheKey, encodeChunk(chunk))
	return chunk, nil
}

func (e *InMemory) VerifyLedgerInfo(li statesync.LedgerInfo, epochState statesync.EpochState) error {
	if li.Epoch < epochState.Epoch {
		return fmt.Errorf("executor: ledger info epoch %d behind trusted epoch %d", li.Epoch, epochState.Epoch)
	}
	return nil // the reference executor trusts any signature bytes; a real node wires a BLS/ed25519 verifier here instead
}

func (e *InMemory) EpochChangeLedgerInfo(ctx context.Context, startEpoch statesync.Epoch) (statesync.LedgerInfo, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	li, ok := e.epochEndingLIs[startEpoch]
	if !ok {
		return statesync.LedgerInfo{}, fmt.Errorf("executor: no epoch-ending ledger info for epoch %d", startEpoch)
	}
	return li, nil
}

// EpochEndingLedgerInfo returns the LedgerInfo ending whichever epoch
// contains atOrAfterVersion: the lowest-versioned epoch-ending
// commitment known locally at or beyond that version, used to serve a
// Waypoint chunk request (§4.3).
func (e *InMemory) EpochEndingLedgerInfo(ctx context.Context, atOrAfterVersion statesync.Version) (statesync.LedgerInfo, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var best statesync.LedgerInfo
	found := false
	for _, li := range e.epochEndingLIs {
		if li.Version < atOrAfterVersion {
			continue
		}
		if !found || li.Version < best.Version {
			best, found = li, true
		}
	}
	if !found {
		return statesync.LedgerInfo{}, fmt.Errorf("executor: no epoch-ending ledger info at or after version %d", atOrAfterVersion)
	}
	return best, nil
}

// proofOf hashes the chunk's transactions with blake2b into a demo
// Merkle-ish proof blob; a real executor's proof ties into its actual
// accumulator, which this double does not implement.
func proofOf(txns [][]byte) []byte {
	h, _ := blake2b.New256(nil)
	for _, t := range txns {
		_, _ = h.Write(t)
	}
	return h.Sum(nil)
}

func chunkCacheKey(knownVersion statesync.Version, limit uint64, targetVersion statesync.Version) []byte {
	var b [24]byte
	binary.BigEndian.PutUint64(b[0:8], knownVersion)
	binary.BigEndian.PutUint64(b[8:16], limit)
	binary.BigEndian.PutUint64(b[16:24], targetVersion)
	return b[:]
}

func encodeChunk(c statesync.TransactionListWithProof) []byte {
	// Minimal length-prefixed encoding sufficient for the in-process cache
	// round-trip; not a wire format.
	var out []byte
	var first uint64
	if c.FirstVersion != nil {
		first = *c.FirstVersion
	}
	var hdr [8]byte
	binary.BigEndian.PutUint64(hdr[:], first)
	out = append(out, hdr[:]...)
	for _, t := range c.Transactions {
		var l [4]byte
		binary.BigEndian.PutUint32(l[:], uint32(len(t)))
		out = append(out, l[:]...)
		out = append(out, t...)
	}
	return out
}

func decodeChunk(b []byte) (statesync.TransactionListWithProof, error) {
	if len(b) < 8 {
		return statesync.TransactionListWithProof{}, fmt.Errorf("executor: corrupt cached chunk")
	}
	first := binary.BigEndian.Uint64(b[:8])
	b = b[8:]
	var txns [][]byte
	for len(b) > 0 {
		if len(b) < 4 {
			break
		}
		l := binary.BigEndian.Uint32(b[:4])
		b = b[4:]
		if uint32(len(b)) < l {
			break
		}
		txns = append(txns, b[:l])
		b = b[l:]
	}
	return statesync.TransactionListWithProof{FirstVersion: &first, Transactions: txns, Proof: proofOf(txns)}, nil
}
