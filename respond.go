package statesync

import "context"

// chooseResponseLI implements choose_response_li (§4.3): it defaults to
// the local highest committed LedgerInfo when the caller has no specific
// target in mind, and swaps in the end-of-epoch proof for requestEpoch
// whenever the chosen LI has already moved into a later epoch than the
// requester trusts, so the response is always something the requester can
// actually verify.
func (c *SyncCoordinator) chooseResponseLI(ctx context.Context, requestEpoch Epoch, target *LedgerInfo) (LedgerInfo, error) {
	li := c.state.CommittedLedgerInfo
	if target != nil {
		li = *target
	}
	if li.Epoch > requestEpoch {
		return c.executor.EpochChangeLedgerInfo(ctx, requestEpoch)
	}
	return li, nil
}
