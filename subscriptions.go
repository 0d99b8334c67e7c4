package statesync

import (
	"time"

	"github.com/autonity/statesync/common"
)

// PendingRequestInfo is a long-poll subscription left open by an upstream
// HighestAvailable chunk request that the local node could not yet
// service: no new transactions were available at request time, so the
// coordinator holds the request and answers it as soon as check_progress
// (or a newer commit) makes it serviceable, or lets it expire.
type PendingRequestInfo struct {
	PeerNetworkID common.Hash
	KnownVersion  Version
	KnownEpoch    Epoch
	Limit         uint64
	ExpirationTime time.Time
}

func (p PendingRequestInfo) Expired(now time.Time) bool { return now.After(p.ExpirationTime) }

// subscriptionTable indexes pending long-poll requests by peer, matching
// the "one outstanding subscription per downstream peer" rule: a fresh
// HighestAvailable request from a peer supersedes that peer's previous one.
type subscriptionTable struct {
	byPeer map[common.Hash]PendingRequestInfo
}

func newSubscriptionTable() *subscriptionTable {
	return &subscriptionTable{byPeer: make(map[common.Hash]PendingRequestInfo)}
}

func (t *subscriptionTable) add(p PendingRequestInfo) {
	t.byPeer[p.PeerNetworkID] = p
}

func (t *subscriptionTable) remove(peer common.Hash) {
	delete(t.byPeer, peer)
}

// sweep returns, and removes, every subscription now serviceable against
// committedVersion (the peer's known_version is behind the locally
// committed LedgerInfo's version) or expired, matching
// check_subscriptions' two-phase filter-then-deliver approach (needed in
// Rust to avoid a borrow conflict; kept here for symmetry and because it
// is a clean separation of concerns).
func (t *subscriptionTable) sweep(now time.Time, committedVersion Version) (serviceable, expired []PendingRequestInfo) {
	for peer, req := range t.byPeer {
		switch {
		case req.Expired(now):
			expired = append(expired, req)
			delete(t.byPeer, peer)
		case req.KnownVersion < committedVersion:
			serviceable = append(serviceable, req)
			delete(t.byPeer, peer)
		}
	}
	return serviceable, expired
}

func (t *subscriptionTable) len() int { return len(t.byPeer) }
