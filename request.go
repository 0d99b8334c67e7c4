package statesync

import (
	"context"
	"time"
)

// handleRequest implements client-driven request_sync (§4.2): it refreshes
// local state and requires initialization to have completed, replaces any
// sync request already in flight (failing its callback with
// errSyncRequestSuperseded, never silently dropping it), and resolves the
// new target against local progress with a three-way comparison: already
// there succeeds immediately, already past it fails with
// errVersionRegression, and anything ahead starts a new chunk-driven sync.
func (c *SyncCoordinator) handleRequest(ctx context.Context, cmd requestCommand) {
	if c.syncRequest != nil {
		c.fulfillSyncRequest(errSyncRequestSuperseded)
	}
	// An active client sync request and the PendingLedgerInfos buffer are
	// mutually exclusive ways of picking a target (§5, §9): starting a new
	// one drops whatever was buffered from unsolicited upstream LIs.
	c.pendingLIs = NewPendingLedgerInfos(c.config.MaxPendingLICount)

	before := c.state
	state, err := c.refreshSyncState(ctx)
	if err != nil {
		c.replyRequest(cmd, newError(KindFatalToOperation, err))
		return
	}
	logStateTransition(c.logger, before, state)

	if !c.initialized {
		c.replyRequest(cmd, errNotInitialized)
		return
	}

	committed := state.CommittedVersion()
	switch {
	case cmd.TargetLI.Version == committed:
		c.replyRequest(cmd, nil)
		return
	case cmd.TargetLI.Version < committed:
		c.replyRequest(cmd, errVersionRegression)
		return
	}

	c.syncRequest = &SyncRequest{TargetLedgerInfo: cmd.TargetLI, Callback: cmd.ReplyTo, LastProgressTime: time.Now()}

	if target, ok := c.nextChunkTarget(); ok {
		c.sendChunkRequest(ctx, state.SyncedVersion, state.CommittedEpoch(), target)
	}
}

func (c *SyncCoordinator) replyRequest(cmd requestCommand, err error) {
	select {
	case cmd.ReplyTo <- err:
	default: // listener dropped; advisory only (§7)
	}
}

var (
	errSyncRequestSuperseded = errorf(KindAdvisory, "state sync: request superseded by a newer request_sync call")
	errNotInitialized        = errorf(KindAdvisory, "state sync: sync request received before initialization to the waypoint completed")
	errVersionRegression     = errorf(KindAdvisory, "state sync: request target version is behind already-committed state")
	errSyncRequestTimedOut   = errorf(KindAdvisory, "state sync: active sync request made no progress before its timeout")
)
