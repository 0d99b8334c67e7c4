package statesync

import "testing"

func TestPendingLedgerInfosUpdatePicksLowestWhenCatchingUp(t *testing.T) {
	p := NewPendingLedgerInfos(10)
	p.AddLI(LedgerInfo{Version: 50})
	p.AddLI(LedgerInfo{Version: 100})
	p.AddLI(LedgerInfo{Version: 200})

	// committed (0) lags behind synced (80): chunks are already in flight
	// toward 50, so keep aiming at the lowest pending LI rather than
	// leapfrogging ahead of what's already pipelined.
	p.Update(0, 80, 1000)
	li, ok := p.TargetLI()
	if !ok || li.Version != 50 {
		t.Fatalf("expected lowest pending target 50, got %+v (ok=%v)", li, ok)
	}
}

func TestPendingLedgerInfosUpdatePicksHighestReachableWhenSynced(t *testing.T) {
	p := NewPendingLedgerInfos(10)
	p.AddLI(LedgerInfo{Version: 50})
	p.AddLI(LedgerInfo{Version: 100})
	p.AddLI(LedgerInfo{Version: 200})

	// committed == synced: nothing in flight, so reach as far as a single
	// chunk allows.
	p.Update(40, 40, 60)
	li, ok := p.TargetLI()
	if !ok || li.Version != 100 {
		t.Fatalf("expected highest reachable target 100, got %+v (ok=%v)", li, ok)
	}
}

func TestPendingLedgerInfosUpdatePrunesBelowCommitted(t *testing.T) {
	p := NewPendingLedgerInfos(10)
	p.AddLI(LedgerInfo{Version: 10})
	p.AddLI(LedgerInfo{Version: 20})
	p.AddLI(LedgerInfo{Version: 30})

	p.Update(20, 20, 5)
	if p.Len() != 1 {
		t.Fatalf("expected 1 entry left after pruning at 20, got %d", p.Len())
	}
	// 30 is the only entry left, but it lies beyond synced (20) + chunk
	// limit (5), so no single-chunk target is chosen.
	if li, ok := p.TargetLI(); ok {
		t.Fatalf("expected no target beyond one chunk of synced, got %+v", li)
	}
}

func TestPendingLedgerInfosUpdateNoTargetWhenEmpty(t *testing.T) {
	p := NewPendingLedgerInfos(10)
	p.Update(0, 0, 100)
	if _, ok := p.TargetLI(); ok {
		t.Fatalf("expected no target for an empty buffer")
	}
}

func TestPendingLedgerInfosDropsNewOnOverflow(t *testing.T) {
	p := NewPendingLedgerInfos(2)
	p.AddLI(LedgerInfo{Version: 10})
	p.AddLI(LedgerInfo{Version: 20})
	if ok := p.AddLI(LedgerInfo{Version: 30}); ok {
		t.Fatalf("expected the new entry to be dropped once the buffer is full")
	}
	if p.Len() != 2 {
		t.Fatalf("expected buffer capped at 2, got %d", p.Len())
	}
	p.Update(0, 0, 1000)
	li, ok := p.TargetLI()
	if !ok || li.Version != 20 {
		t.Fatalf("expected the highest surviving entry (20), not the dropped 30, as target, got %+v (ok=%v)", li, ok)
	}
}

func TestPendingLedgerInfosIgnoresDuplicateVersion(t *testing.T) {
	p := NewPendingLedgerInfos(10)
	p.AddLI(LedgerInfo{Version: 10, Epoch: 1})
	p.AddLI(LedgerInfo{Version: 10, Epoch: 2})
	if p.Len() != 1 {
		t.Fatalf("expected duplicate version to be ignored, got len %d", p.Len())
	}
	p.Update(0, 0, 1000)
	li, _ := p.TargetLI()
	if li.Epoch != 1 {
		t.Fatalf("expected the first-inserted entry to win, got epoch %d", li.Epoch)
	}
}

func TestPendingLedgerInfosEmpty(t *testing.T) {
	p := NewPendingLedgerInfos(10)
	if !p.Empty() {
		t.Fatalf("expected new buffer to be empty")
	}
	p.AddLI(LedgerInfo{Version: 1})
	if p.Empty() {
		t.Fatalf("expected non-empty buffer after AddLI")
	}
}
