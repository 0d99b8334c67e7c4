package statesync

import (
	"context"
	"time"

	"github.com/autonity/statesync/common"
)

// ExecutorProxy is the narrow capability set the coordinator needs from
// local storage and the transaction executor. The coordinator never
// executes transactions or verifies signatures itself; it only calls
// through this interface.
type ExecutorProxy interface {
	// GetLocalStorageState returns a fresh snapshot of local storage.
	GetLocalStorageState(ctx context.Context) (SynchronizerState, error)

	// ExecuteAndCommitChunk applies chunk against the local state, verified
	// against verifiedTargetLI (the LedgerInfo the chunk is proven to lead
	// to). Returns the new synced version.
	ExecuteAndCommitChunk(ctx context.Context, chunk TransactionListWithProof, verifiedTargetLI LedgerInfo) (Version, error)

	// GetChunk builds a TransactionListWithProof of up to limit
	// transactions starting after knownVersion, proven against the ledger
	// state at targetVersion. A request whose target the executor cannot
	// produce a proof for (e.g. a pruned past epoch) returns an error that
	// the caller treats as advisory, not peer-attributable (§9).
	GetChunk(ctx context.Context, knownVersion Version, limit uint64, targetVersion Version) (TransactionListWithProof, error)

	// VerifyLedgerInfo checks li's signatures against epochState. The
	// coordinator treats this purely as a pass/fail oracle.
	VerifyLedgerInfo(li LedgerInfo, epochState EpochState) error

	// EpochChangeLedgerInfo returns the LedgerInfo ending startEpoch, used
	// when answering a requester that still trusts startEpoch while the
	// LedgerInfo chosen for the response is already in a later epoch (§4.3).
	EpochChangeLedgerInfo(ctx context.Context, startEpoch Epoch) (LedgerInfo, error)

	// EpochEndingLedgerInfo returns the LedgerInfo ending whichever epoch
	// contains atOrAfterVersion: the epoch-ending commitment at or just
	// beyond that version, used to serve a Waypoint chunk request (§4.3).
	EpochEndingLedgerInfo(ctx context.Context, atOrAfterVersion Version) (LedgerInfo, error)
}

// NetworkSender delivers wire messages to a single upstream or downstream
// peer on one configured network.
type NetworkSender interface {
	SendTo(ctx context.Context, peer common.Hash, msg []byte) error
}

// Network multiplexes every configured network's inbound messages into a
// single stream the coordinator's event loop selects on, and exposes the
// per-network sender used to reply/request.
type Network interface {
	Events() <-chan NetworkEvent
	// Sender resolves the per-peer sender to use for outbound messages.
	// Missing a mapping for a peer the request manager just handed back is
	// the one programming-invariant violation the loop does not tolerate
	// (§4.3, §5) and is surfaced as a panic by callers.
	Sender(peer common.Hash) (NetworkSender, bool)
}

// NetworkEvent is a message delivered from peer on networkID.
type NetworkEvent struct {
	NetworkID common.Hash
	Peer      common.Hash
	Payload   []byte
}

// RequestManager chooses which upstream peers to ask for the next chunk and
// scores their responsiveness; the coordinator only calls through this
// interface and never implements peer selection itself (§1 Non-goals).
type RequestManager interface {
	// PickPeers returns the peers to send a GetChunkRequest to for
	// knownVersion, honoring multicast escalation policy.
	PickPeers(knownVersion Version) []common.Hash

	// IsKnownUpstreamPeer reports whether peer is configured as upstream on
	// any network.
	IsKnownUpstreamPeer(peer common.Hash) bool

	// ProcessSuccessResponse records that peer answered knownVersion within
	// the expected window.
	ProcessSuccessResponse(peer common.Hash, knownVersion Version)

	// ProcessTimeout records that no peer answered knownVersion in time
	// and returns whether the next call to PickPeers should escalate to a
	// wider multicast set.
	ProcessTimeout(knownVersion Version) (escalate bool)

	// ProcessInvalidChunk records that peer sent an invalid chunk, which
	// demotes its score (§7, peer-attributable errors).
	ProcessInvalidChunk(peer common.Hash, knownVersion Version)

	// ProcessEmptyChunk records that peer answered knownVersion with an
	// empty chunk despite claiming to be able to serve it, demoting its
	// score the same way an invalid chunk would.
	ProcessEmptyChunk(peer common.Hash, knownVersion Version)

	// ProcessChunkVersionMismatch records that the chunk peer sent did not
	// start at knownVersion+1, a peer-attributable protocol violation
	// distinct from a signature or proof failure.
	ProcessChunkVersionMismatch(peer common.Hash, knownVersion, chunkStartVersion Version)

	// CheckTimeout reports whether a chunk request for knownVersion is due
	// right now — the first time it's asked, or once retryTimeout has
	// elapsed since the last time it returned true — and records the
	// attempt as a side effect of answering true.
	CheckTimeout(knownVersion Version, retryTimeout time.Duration) bool

	// FirstRequestTime returns when knownVersion was first requested, for
	// the sync_progress_duration metric (see SPEC_FULL.md SUPPLEMENTED
	// FEATURES).
	FirstRequestTime(knownVersion Version) (t int64, ok bool)
}

// MempoolNotifier is the narrow consumer-facing contract process_commit
// calls into after a chunk (or a locally produced block) commits: it tells
// mempool which transactions were included so it can evict them.
type MempoolNotifier interface {
	// NotifyCommit delivers the hashes of committed transactions and
	// blocks, with the configured timeout, for mempool to ack.
	NotifyCommit(ctx context.Context, txHashes []common.Hash, blockTimestampUsecs uint64) error
}
