package statesync

import (
	"context"
	"time"

	"github.com/autonity/statesync/common"
	"github.com/autonity/statesync/message"
)

// send_chunk_request issues a GetChunkRequest for the version immediately
// after knownVersion, anchored at target, to every peer RequestManager
// selects (§4.9). A missing network sender for a peer's configured network
// is the one true programming-invariant violation the loop does not
// tolerate (§4.3, §5).
func (c *SyncCoordinator) sendChunkRequest(ctx context.Context, knownVersion Version, currentEpoch Epoch, target message.Target) {
	peers := c.requestManager.PickPeers(knownVersion)
	if len(peers) == 0 {
		c.logger.Debug("send_chunk_request: no upstream peers available", "known_version", knownVersion)
		return
	}

	req := &message.GetChunkRequest{
		KnownVersion: knownVersion,
		CurrentEpoch: currentEpoch,
		Limit:        c.config.ChunkLimit,
		Target:       target,
	}
	payload, err := message.Encode(req)
	if err != nil {
		c.logger.Error("send_chunk_request: failed to encode request", "err", err)
		return
	}

	for _, peer := range peers {
		sender, ok := c.network.Sender(peer)
		if !ok {
			panic(errMissingNetworkSender)
		}
		if err := sender.SendTo(ctx, peer, payload); err != nil {
			c.logger.Debug("send_chunk_request: transient send failure", "peer", peer, "err", err)
			continue
		}
		c.metrics.recordRequestSent()
	}
}

// nextChunkTarget computes the request target to chase next, in priority
// order: an active client SyncRequest, then the PendingLedgerInfos buffer,
// then (if still uninitialized) the configured waypoint, and finally, for a
// full node, a HighestAvailable long poll, matching the original's
// target-selection order. It reports false when none applies, including
// when the buffer is non-empty but Update chose no target.
func (c *SyncCoordinator) nextChunkTarget() (message.Target, bool) {
	switch {
	case c.syncRequest != nil:
		return message.Target{Code: message.TargetLedgerInfoCode, TargetLedgerInfo: toWireLI(c.syncRequest.TargetLedgerInfo)}, true
	case !c.pendingLIs.Empty():
		if li, ok := c.pendingLIs.TargetLI(); ok {
			return message.Target{Code: message.TargetLedgerInfoCode, TargetLedgerInfo: toWireLI(li)}, true
		}
		return message.Target{}, false
	case !c.initialized:
		return message.Target{Code: message.TargetWaypointCode, Waypoint: struct {
			Version uint64
			Hash    common.Hash
		}{Version: c.waypoint.Version, Hash: c.waypoint.Hash}}, true
	default:
		if c.config.Role == RoleFullNode {
			return toWireTargetHighestAvailable(nil, uint64(c.config.LongPollTimeout/time.Millisecond)), true
		}
		return message.Target{}, false
	}
}
