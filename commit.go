package statesync

import "context"

// handleCommit implements process_commit (§4.5): folds a commit — whether
// driven by a just-applied chunk or, as here, a block consensus just
// produced locally — into synchronizer state, notifies mempool (bounded by
// MempoolCommitTimeout), prunes the pending-LI buffer, re-checks
// subscriptions now that progress moved, and fulfills/advances any active
// sync request.
func (c *SyncCoordinator) handleCommit(ctx context.Context, cmd commitCommand) {
	before := c.state
	state, err := c.refreshSyncState(ctx)
	if err != nil {
		c.replyCommit(cmd, newError(KindFatalToOperation, err))
		return
	}
	logStateTransition(c.logger, before, state)

	c.pendingLIs.Update(state.CommittedVersion(), state.SyncedVersion, c.config.ChunkLimit)
	c.touchSyncRequestProgress()

	notifyCtx, cancel := context.WithTimeout(ctx, c.config.MempoolCommitTimeout)
	err = c.mempool.NotifyCommit(notifyCtx, cmd.TxHashes, cmd.LedgerInfo.TimestampUsecs)
	cancel()
	if err != nil {
		// Mempool ack timing out is transient: the commit has already
		// landed in local storage, so we log and proceed rather than fail
		// the whole operation (§7 transient-network-class handling).
		c.logger.Debug("process_commit: mempool did not ack within timeout", "err", err)
	}

	if state.CommittedVersion() >= c.waypoint.Version {
		c.markInitialized()
	}

	if c.syncRequest != nil && state.SyncedVersion >= c.syncRequest.TargetLedgerInfo.Version {
		c.fulfillSyncRequest(nil)
	}

	c.checkSubscriptions(ctx)

	c.replyCommit(cmd, nil)
}

func (c *SyncCoordinator) replyCommit(cmd commitCommand, err error) {
	select {
	case cmd.ReplyTo <- err:
	default: // listener dropped; advisory only (§7)
	}
}
