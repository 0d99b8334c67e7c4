// Package statesync implements the state-synchronization coordinator: the
// event-driven component that drives a node's local ledger state toward a
// target by requesting, verifying, applying, and serving transaction
// chunks over a peer-to-peer network, acting as both downstream client and
// upstream server.
package statesync

import (
	"fmt"
	"io"
	"time"

	"github.com/autonity/statesync/common"
	"github.com/autonity/statesync/rlp"
)

// Version identifies a position in the ledger's committed transaction
// sequence; version 0 is the genesis transaction.
type Version = uint64

// Epoch identifies a validator-set era; it increases monotonically and
// only at transactions that end an epoch.
type Epoch = uint64

// LedgerInfo is a commitment to ledger state at a given version, optionally
// carrying validator signatures attesting to it. The coordinator treats
// Signatures as opaque bytes: it never parses or verifies them itself,
// only forwards them to the executor proxy's verifier.
type LedgerInfo struct {
	Version        Version
	Epoch          Epoch
	EndsEpoch      bool
	TimestampUsecs uint64
	TxAccumulator  common.Hash
	Signatures     []byte
}

// EncodeRLP implements rlp.Encoder.
func (li *LedgerInfo) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, []interface{}{
		li.Version, li.Epoch, li.EndsEpoch, li.TimestampUsecs, li.TxAccumulator, li.Signatures,
	})
}

// DecodeRLP implements rlp.Decoder.
func (li *LedgerInfo) DecodeRLP(s *rlp.Stream) error {
	var raw struct {
		Version        Version
		Epoch          Epoch
		EndsEpoch      bool
		TimestampUsecs uint64
		TxAccumulator  common.Hash
		Signatures     []byte
	}
	if err := s.Decode(&raw); err != nil {
		return err
	}
	li.Version = raw.Version
	li.Epoch = raw.Epoch
	li.EndsEpoch = raw.EndsEpoch
	li.TimestampUsecs = raw.TimestampUsecs
	li.TxAccumulator = raw.TxAccumulator
	li.Signatures = raw.Signatures
	return nil
}

func (li LedgerInfo) String() string {
	return fmt.Sprintf("LedgerInfo{v=%d e=%d endsEpoch=%v}", li.Version, li.Epoch, li.EndsEpoch)
}

// LessOrEqual implements the lexicographic (epoch, version) <= (epoch,
// version) ordering used throughout staleness checks.
func (li LedgerInfo) LessOrEqual(other LedgerInfo) bool {
	if li.Epoch != other.Epoch {
		return li.Epoch < other.Epoch
	}
	return li.Version <= other.Version
}

// Waypoint pins a trusted (version, ledger-info-hash) pair used to bootstrap
// a node that has no local chain state yet.
type Waypoint struct {
	Version Version
	Hash    common.Hash
}

func (w Waypoint) IsZero() bool { return w.Hash.IsZero() && w.Version == 0 }

// TransactionListWithProof is a contiguous run of transactions together
// with a proof that they belong, in order, to the ledger committed by some
// LedgerInfo. FirstVersion is nil for an empty chunk (mirroring the
// upstream Rust Option<Version>, which is absent whenever Transactions is
// empty — see DESIGN.md).
type TransactionListWithProof struct {
	FirstVersion *Version
	Transactions [][]byte
	Proof        []byte
}

func (c TransactionListWithProof) Len() int { return len(c.Transactions) }

func (c TransactionListWithProof) IsEmpty() bool { return len(c.Transactions) == 0 }

// LastVersion returns the version of the final transaction in the chunk,
// and false if the chunk is empty.
func (c TransactionListWithProof) LastVersion() (Version, bool) {
	if c.IsEmpty() || c.FirstVersion == nil {
		return 0, false
	}
	return *c.FirstVersion + Version(len(c.Transactions)) - 1, true
}

// Role distinguishes a Validator node (participates in consensus, so it
// only needs to catch up to its peers' state) from a FullNode (keeps
// long-polling upstream for the highest available state, and retries on
// the longer tick-plus-long-poll cadence of Config.RetryTimeout).
type Role int

const (
	RoleValidator Role = iota
	RoleFullNode
)

func (r Role) String() string {
	if r == RoleValidator {
		return "validator"
	}
	return "full_node"
}

// SynchronizerState is a point-in-time snapshot of local storage, refreshed
// from the executor proxy whenever the coordinator needs up-to-date
// committed/synced versions.
type SynchronizerState struct {
	CommittedLedgerInfo LedgerInfo
	SyncedVersion        Version
	TrustedEpochState    EpochState
}

// EpochState carries whatever the executor proxy needs to verify
// LedgerInfo signatures for the current epoch; the coordinator never
// inspects its contents, only threads it through to the verifier.
type EpochState struct {
	Epoch     Epoch
	Validator interface{}
}

func (s SynchronizerState) CommittedVersion() Version { return s.CommittedLedgerInfo.Version }

func (s SynchronizerState) CommittedEpoch() Epoch { return s.CommittedLedgerInfo.Epoch }

// SyncRequest represents the single in-flight client-driven sync target;
// the coordinator admits at most one at a time (§5, mutually exclusive
// with an active PendingLedgerInfos buffer).
type SyncRequest struct {
	TargetLedgerInfo LedgerInfo
	Callback         chan<- error
	// LastProgressTime is touched every time a commit or applied chunk
	// moves local state forward while this request is live; check_progress
	// fails the request once it goes SyncRequestTimeout without a touch.
	LastProgressTime time.Time
}
