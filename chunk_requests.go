package statesync

import (
	"context"
	"time"

	"github.com/autonity/statesync/common"
	"github.com/autonity/statesync/log"
	"github.com/autonity/statesync/message"
)

// handleChunkRequest answers a downstream peer's GetChunkRequest, acting as
// upstream server (§4.3). TargetLedgerInfo requests are answered
// immediately against the named LedgerInfo; Waypoint and HighestAvailable
// requests each have their own serviceability guards, the latter parked on
// the subscription table as a long poll when it can't yet be answered.
func (c *SyncCoordinator) handleChunkRequest(ctx context.Context, networkID, peer common.Hash, req *message.GetChunkRequest) {
	limit := req.Limit
	if limit == 0 || limit > c.config.ChunkLimit {
		limit = c.config.ChunkLimit
	}

	switch req.Target.Code {
	case message.TargetLedgerInfoCode:
		c.deliverChunk(ctx, peer, req.KnownVersion, limit, fromWireLI(req.Target.TargetLedgerInfo), message.ResponseVerifiableLedgerInfoCode, nil)

	case message.TargetWaypointCode:
		c.serveWaypointChunkRequest(ctx, peer, req, limit)

	case message.TargetHighestAvailableCode:
		c.serveHighestAvailableChunkRequest(ctx, peer, req, limit)

	default:
		c.logger.Warn("chunk request with unrecognized target variant", "peer", peer)
	}
	_ = networkID
}

// serveWaypointChunkRequest answers a bootstrap Waypoint request (§4.3):
// it requires local progress to have already reached the waypoint and the
// requester to still be behind it, proves up to the waypoint's
// epoch-ending LedgerInfo, and — if that LedgerInfo belongs to a later
// epoch than the requester trusts — also attaches the end-of-epoch proof
// for the requester's own epoch and clamps the chunk so it never runs past
// the boundary that proof attests to.
func (c *SyncCoordinator) serveWaypointChunkRequest(ctx context.Context, peer common.Hash, req *message.GetChunkRequest, limit uint64) {
	waypointVersion := req.Target.Waypoint.Version
	if c.state.CommittedVersion() < waypointVersion || req.KnownVersion >= waypointVersion {
		c.logger.Debug("waypoint chunk request not yet serviceable", "peer", peer, "waypoint_version", waypointVersion)
		return
	}

	waypointLI, err := c.executor.EpochEndingLedgerInfo(ctx, waypointVersion)
	if err != nil {
		logAdvisory(c.logger, "serve_waypoint: local executor could not produce epoch-ending proof", "peer", peer, "waypoint_version", waypointVersion, "err", err)
		return
	}

	var endOfEpochLI *LedgerInfo
	if waypointLI.Epoch > req.CurrentEpoch {
		li, err := c.executor.EpochChangeLedgerInfo(ctx, req.CurrentEpoch)
		if err != nil {
			logAdvisory(c.logger, "serve_waypoint: local executor could not produce end-of-epoch proof", "peer", peer, "requested_epoch", req.CurrentEpoch, "err", err)
			return
		}
		endOfEpochLI = &li
		if remaining := endOfEpochLI.Version - req.KnownVersion; remaining < limit {
			limit = remaining
		}
	}

	c.deliverChunk(ctx, peer, req.KnownVersion, limit, waypointLI, message.ResponseLedgerInfoForWaypointCode, endOfEpochLI)
}

// serveHighestAvailableChunkRequest answers a HighestAvailable request
// immediately when local progress has already moved past what the
// requester knows, or parks it as a long poll otherwise — clamped to
// MaxLongPollTimeout regardless of how long the requester asked to wait,
// and never parked at all if the requester asked for an instant answer
// (timeout_ms == 0), matching the original's refusal to subscribe in that
// case (§4.3).
func (c *SyncCoordinator) serveHighestAvailableChunkRequest(ctx context.Context, peer common.Hash, req *message.GetChunkRequest, limit uint64) {
	targetLI, timeoutMs := fromWireTargetHighestAvailable(req.Target)
	committed := c.state.CommittedLedgerInfo

	if committed.Version <= req.KnownVersion && timeoutMs > 0 {
		expiry := time.Duration(timeoutMs) * time.Millisecond
		if max := c.config.MaxLongPollTimeout; max > 0 && expiry > max {
			expiry = max
		}
		c.subscriptions.add(PendingRequestInfo{
			PeerNetworkID:  peer,
			KnownVersion:   req.KnownVersion,
			KnownEpoch:     req.CurrentEpoch,
			Limit:          limit,
			ExpirationTime: time.Now().Add(expiry),
		})
		return
	}

	anchor := committed
	if targetLI != nil {
		anchor = *targetLI
	}
	var highestLI *LedgerInfo
	if targetLI != nil && targetLI.Version < committed.Version && targetLI.Epoch == committed.Epoch {
		highestLI = &committed
	}
	c.deliverChunk(ctx, peer, req.KnownVersion, limit, anchor, message.ResponseProgressiveLedgerInfoCode, highestLI)
}

// deliverChunk builds and sends a single GetChunkResponse, anchored at
// anchorLI and optionally carrying aux (a further highest_li or
// end_of_epoch_li alongside it). A local-executor failure to produce the
// proof (e.g. a pruned past epoch) is advisory, peer-attributable-free: it
// is logged and no response is sent (§9 Open Question resolution).
func (c *SyncCoordinator) deliverChunk(ctx context.Context, peer common.Hash, knownVersion Version, limit uint64, anchorLI LedgerInfo, responseCode uint8, aux *LedgerInfo) {
	chunk, err := c.executor.GetChunk(ctx, knownVersion, limit, anchorLI.Version)
	if err != nil {
		logAdvisory(c.logger, "deliver_chunk: local executor could not produce proof", "peer", peer, "known_version", knownVersion, "err", err)
		return
	}

	sender, ok := c.network.Sender(peer)
	if !ok {
		panic(errMissingNetworkSender)
	}

	resp := &message.GetChunkResponse{
		ResponseLI: toWireResponseLI(responseCode, anchorLI, aux),
	}
	resp.FirstVersion, resp.Transactions, resp.Proof = toWireChunk(chunk)

	payload, err := message.Encode(resp)
	if err != nil {
		c.logger.Error("deliver_chunk: failed to encode response", "err", err)
		return
	}
	if err := sender.SendTo(ctx, peer, payload); err != nil {
		c.logger.Debug("deliver_chunk: transient send failure", "peer", peer, "err", err)
		return
	}
	c.metrics.recordRequestServed()
}

func logAdvisory(logger log.Logger, msg string, ctx ...interface{}) {
	logger.Debug(msg, ctx...)
}
