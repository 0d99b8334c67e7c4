package statesync

import (
	"context"
	"time"

	"github.com/autonity/statesync/log"
)

// refreshSyncState re-reads local storage through the executor proxy and
// logs an epoch-change line whenever the refreshed view has moved into a
// new epoch since last observed (ported from the original
// sync_state_with_local_storage — see SPEC_FULL.md SUPPLEMENTED FEATURES).
func (c *SyncCoordinator) refreshSyncState(ctx context.Context) (SynchronizerState, error) {
	newState, err := c.executor.GetLocalStorageState(ctx)
	if err != nil {
		return SynchronizerState{}, newError(KindFatalToOperation, err)
	}
	if newState.CommittedEpoch() > c.state.CommittedEpoch() {
		c.logger.Info("sync_state_with_local_storage observed epoch change",
			"old_epoch", c.state.CommittedEpoch(), "new_epoch", newState.CommittedEpoch(),
			"new_version", newState.CommittedVersion())
	}
	c.state = newState
	return newState, nil
}

// touchSyncRequestProgress marks the active sync request, if any, as
// having just made progress, resetting checkSyncRequestTimeout's clock.
// Called from every path that moves local state forward — both a
// chunk-driven apply and a locally produced commit — matching the
// original's unconditional last_progress_tst update in process_commit.
func (c *SyncCoordinator) touchSyncRequestProgress() {
	if c.syncRequest != nil {
		c.syncRequest.LastProgressTime = time.Now()
	}
}

func logStateTransition(logger log.Logger, from, to SynchronizerState) {
	logger.Debug("synchronizer state advanced",
		"from_version", from.CommittedVersion(), "to_version", to.CommittedVersion(),
		"from_epoch", from.CommittedEpoch(), "to_epoch", to.CommittedEpoch())
}
