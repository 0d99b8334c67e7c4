package statesync

import "time"

// Config contains the tunables for a SyncCoordinator, mirroring the
// configuration table of the original design note: a flat struct with a
// package-level Defaults value, in the same shape as
// github.com/autonity/autonity/eth/ethconfig.Config.
type Config struct {
	// Role determines retry cadence (see RetryTimeout) and whether, with no
	// other target to chase, this node keeps long-polling upstream with
	// HighestAvailable requests (full nodes only).
	Role Role

	// TickInterval is the period of the check_progress ticker.
	TickInterval time.Duration `toml:",omitempty"`

	// ChunkLimit caps the number of transactions requested or served per
	// chunk.
	ChunkLimit uint64

	// MaxPendingLICount bounds the PendingLedgerInfos buffer.
	MaxPendingLICount int `toml:",omitempty"`

	// MulticastTimeout is how long to wait for a response before
	// escalating a request to a wider peer set.
	MulticastTimeout time.Duration `toml:",omitempty"`

	// LongPollTimeout is how long this node asks an upstream peer to hold
	// its own HighestAvailable subscription open for (the wire timeout_ms
	// it sends).
	LongPollTimeout time.Duration `toml:",omitempty"`

	// MaxLongPollTimeout bounds how long this node holds a downstream
	// peer's HighestAvailable subscription open, regardless of the
	// timeout_ms that peer asked for (the original's max_timeout_ms).
	MaxLongPollTimeout time.Duration `toml:",omitempty"`

	// MempoolCommitTimeout bounds process_commit's wait for mempool's ack.
	MempoolCommitTimeout time.Duration `toml:",omitempty"`

	// SyncRequestTimeout bounds how long an active client Request may go
	// without local progress before the coordinator gives up and reports an
	// error.
	SyncRequestTimeout time.Duration `toml:",omitempty"`
}

// Defaults mirrors ethconfig.Defaults: a ready-to-use configuration for a
// full node on the main network.
var Defaults = Config{
	Role:                 RoleFullNode,
	TickInterval:         1 * time.Second,
	ChunkLimit:           1000,
	MaxPendingLICount:    100,
	MulticastTimeout:     30 * time.Second,
	LongPollTimeout:      60 * time.Second,
	MaxLongPollTimeout:   120 * time.Second,
	MempoolCommitTimeout: 5 * time.Second,
	SyncRequestTimeout:   2 * time.Minute,
}

// RetryTimeout returns how long the coordinator waits before retrying an
// unanswered chunk request for the given role: full nodes piggyback retries
// on the long-poll window, validators retry at twice the base tick (see
// SPEC_FULL.md SUPPLEMENTED FEATURES, grounded on the original
// RoleType-dependent retry derivation).
func (c Config) RetryTimeout(role Role) time.Duration {
	if role == RoleFullNode {
		return c.TickInterval + c.LongPollTimeout
	}
	return 2 * c.TickInterval
}
