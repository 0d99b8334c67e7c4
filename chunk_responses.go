package statesync

import (
	"context"
	"time"

	"github.com/autonity/statesync/common"
	"github.com/autonity/statesync/message"
)

// handleChunkResponse processes a GetChunkResponse received while acting as
// downstream client (§4.4). Three preconditions mirror apply_chunk's own
// gate, in order: the responder must be a configured upstream peer, an
// empty chunk is a scored protocol miss rather than something to apply,
// and a non-empty chunk must actually continue from the version we asked
// about. Only once all three pass does handling dispatch on the
// responseLI variant the peer chose.
func (c *SyncCoordinator) handleChunkResponse(ctx context.Context, networkID, peer common.Hash, resp *message.GetChunkResponse) {
	if !c.requestManager.IsKnownUpstreamPeer(peer) {
		c.logger.Debug("dropping chunk response from non-upstream peer", "peer", peer)
		return
	}

	chunk := fromWireChunk(resp.FirstVersion, resp.Transactions, resp.Proof)
	if chunk.IsEmpty() {
		c.requestManager.ProcessEmptyChunk(peer, c.state.SyncedVersion)
		c.logger.Debug("upstream returned an empty chunk", "peer", peer, "known_version", c.state.SyncedVersion)
		return
	}
	if chunk.FirstVersion != nil && *chunk.FirstVersion != c.state.SyncedVersion+1 {
		c.requestManager.ProcessChunkVersionMismatch(peer, c.state.SyncedVersion, *chunk.FirstVersion)
		c.metrics.recordInvalidChunk()
		return
	}

	li := fromWireLI(resp.ResponseLI.LedgerInfo)
	switch resp.ResponseLI.Code {
	case message.ResponseVerifiableLedgerInfoCode, message.ResponseProgressiveLedgerInfoCode:
		c.processResponseWithVerifiableLI(ctx, peer, li, fromWireResponseAux(resp.ResponseLI), chunk)
	case message.ResponseLedgerInfoForWaypointCode:
		c.processResponseWithWaypointLI(ctx, peer, li, chunk)
	default:
		c.logger.Warn("chunk response with unrecognized response-li variant", "peer", peer)
	}
	_ = networkID
}

// processResponseWithVerifiableLI verifies li once against the currently
// trusted epoch state — the original trusts a single signed proof however
// far it reaches, with no multi-step epoch walk — and, if the response
// also carries a distinct aux LedgerInfo the peer separately vouches for,
// verifies and buffers that too before applying the chunk itself. A
// response is only accepted once this node is initialized, and never past
// whatever version an active sync request is aiming for.
func (c *SyncCoordinator) processResponseWithVerifiableLI(ctx context.Context, peer common.Hash, li LedgerInfo, aux *LedgerInfo, chunk TransactionListWithProof) {
	if !c.initialized {
		c.logger.Debug("dropping verifiable-li chunk response before initialization", "peer", peer)
		return
	}
	if c.syncRequest != nil && li.Version > c.syncRequest.TargetLedgerInfo.Version {
		c.logger.Debug("dropping chunk response past the active sync request's target", "peer", peer, "response_version", li.Version, "target_version", c.syncRequest.TargetLedgerInfo.Version)
		return
	}

	if !c.validateAndStoreChunk(peer, li, chunk) {
		return
	}

	if err := c.executor.VerifyLedgerInfo(li, c.state.TrustedEpochState); err != nil {
		c.requestManager.ProcessInvalidChunk(peer, li.Version)
		c.metrics.recordInvalidChunk()
		return
	}

	if aux != nil && (aux.Version != li.Version || aux.Epoch != li.Epoch) {
		if err := c.executor.VerifyLedgerInfo(*aux, c.state.TrustedEpochState); err != nil {
			c.requestManager.ProcessInvalidChunk(peer, li.Version)
			c.metrics.recordInvalidChunk()
			return
		}
		if !c.pendingLIs.AddLI(*aux) {
			c.logger.Debug("pending ledger info buffer full, dropping aux li", "version", aux.Version)
		}
	}

	c.applyChunk(ctx, peer, li, chunk)
}

// processResponseWithWaypointLI applies a chunk anchored at the requester's
// configured waypoint rather than a signed LedgerInfo: the accumulator
// hash is only checked once local progress reaches the waypoint's version,
// matching bootstrap behavior before any epoch state is trusted.
func (c *SyncCoordinator) processResponseWithWaypointLI(ctx context.Context, peer common.Hash, li LedgerInfo, chunk TransactionListWithProof) {
	if li.Version == c.waypoint.Version && li.TxAccumulator != c.waypoint.Hash {
		c.requestManager.ProcessInvalidChunk(peer, li.Version)
		c.metrics.recordInvalidChunk()
		return
	}
	if !c.validateAndStoreChunk(peer, li, chunk) {
		return
	}
	c.applyChunk(ctx, peer, li, chunk)
}

// validateAndStoreChunk rejects responses that cannot possibly move local
// progress forward — a stale (epoch, version) at or below what's already
// committed — and otherwise buffers li for PendingLedgerInfos bookkeeping.
// Emptiness is handled earlier in handleChunkResponse, so staleness alone
// decides here. processResponseWithVerifiableLI calls it before verifying
// li; processResponseWithWaypointLI calls it after its waypoint hash check.
// Verification must still happen before the chunk is ever applied — this
// only short-circuits definitely-useless responses.
func (c *SyncCoordinator) validateAndStoreChunk(peer common.Hash, li LedgerInfo, chunk TransactionListWithProof) bool {
	if li.LessOrEqual(c.state.CommittedLedgerInfo) {
		return false // stale: nothing new to apply
	}
	if !c.pendingLIs.AddLI(li) {
		c.logger.Debug("pending ledger info buffer full, dropping li", "version", li.Version)
	}
	return true
}

// applyChunk hands the verified chunk to the executor, scores the peer on
// the outcome, refreshes local state, and — critically — only after that
// refresh computes the optimistically pipelined next request: the next
// request's epoch is taken from li (already verified, pre-refresh) while
// its known_version comes from the freshly refreshed synced version, so a
// multi-chunk catch-up never stalls waiting for a tick (§4.4 DESIGN
// NOTES: optimistic next-chunk pipelining).
func (c *SyncCoordinator) applyChunk(ctx context.Context, peer common.Hash, li LedgerInfo, chunk TransactionListWithProof) {
	requestedVersion := c.state.SyncedVersion

	newSynced, err := c.executor.ExecuteAndCommitChunk(ctx, chunk, li)
	if err != nil {
		c.requestManager.ProcessInvalidChunk(peer, requestedVersion)
		c.metrics.recordInvalidChunk()
		return
	}
	c.requestManager.ProcessSuccessResponse(peer, requestedVersion)
	c.metrics.recordChunkApplied(chunk.Len())

	if t, ok := c.requestManager.FirstRequestTime(requestedVersion); ok {
		c.metrics.recordSyncProgress(time.Since(time.Unix(0, t)).Microseconds())
	}

	before := c.state
	state, err := c.refreshSyncState(ctx)
	if err != nil {
		c.logger.Debug("apply_chunk: failed to refresh local storage state after commit", "err", err)
		return
	}
	logStateTransition(c.logger, before, state)
	c.pendingLIs.Update(state.CommittedVersion(), state.SyncedVersion, c.config.ChunkLimit)
	c.touchSyncRequestProgress()

	if state.CommittedVersion() >= c.waypoint.Version {
		c.markInitialized()
	}

	if c.syncRequest != nil && state.SyncedVersion >= c.syncRequest.TargetLedgerInfo.Version {
		c.fulfillSyncRequest(nil)
	}

	_ = newSynced
	if target, ok := c.nextChunkTarget(); ok {
		c.sendChunkRequest(ctx, state.SyncedVersion, li.Epoch, target)
	}
}

func (c *SyncCoordinator) fulfillSyncRequest(err error) {
	if c.syncRequest == nil {
		return
	}
	select {
	case c.syncRequest.Callback <- err:
	default: // listener dropped; advisory only (§7)
	}
	c.syncRequest = nil
}
