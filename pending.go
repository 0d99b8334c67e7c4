package statesync

import "sort"

// PendingLedgerInfos buffers LedgerInfos received from upstream peers whose
// versions are still ahead of what has locally been applied, ordered by
// version the way the original BTreeMap<Version, LedgerInfo> kept them.
// It is consulted for the next chunk target only while no client
// SyncRequest is active (§5, §9): the two mechanisms are mutually
// exclusive ways of picking that target.
type PendingLedgerInfos struct {
	byVersion map[Version]LedgerInfo
	maxLimit  int

	targetLI  LedgerInfo
	hasTarget bool
}

// NewPendingLedgerInfos returns an empty buffer capped at maxLimit entries,
// mirroring max_pending_li_limit in the configuration table.
func NewPendingLedgerInfos(maxLimit int) *PendingLedgerInfos {
	return &PendingLedgerInfos{byVersion: make(map[Version]LedgerInfo), maxLimit: maxLimit}
}

// AddLI inserts li unless a duplicate version is already buffered or the
// buffer is already at capacity, in which case li itself is dropped and
// AddLI reports false — the original protects what's already trusted over
// whatever just arrived, rather than evicting an existing entry to make
// room.
func (p *PendingLedgerInfos) AddLI(li LedgerInfo) bool {
	if _, ok := p.byVersion[li.Version]; ok {
		return true
	}
	if p.maxLimit > 0 && len(p.byVersion) >= p.maxLimit {
		return false
	}
	p.byVersion[li.Version] = li
	return true
}

// Update prunes every entry at or below committedVersion, then recomputes
// the single cached progressive target (§4.7): once nothing is left in
// flight (committedVersion == highestSynced), aim as far as a single chunk
// of chunkLimit can reach; otherwise keep climbing toward the lowest
// pending LI still ahead, one step at a time.
func (p *PendingLedgerInfos) Update(committedVersion, highestSynced Version, chunkLimit uint64) {
	for v := range p.byVersion {
		if v <= committedVersion {
			delete(p.byVersion, v)
		}
	}
	p.hasTarget = false

	versions := p.sortedVersions()
	if len(versions) == 0 {
		return
	}
	if committedVersion == highestSynced {
		ceiling := highestSynced + Version(chunkLimit)
		for i := len(versions) - 1; i >= 0; i-- {
			if versions[i] <= ceiling {
				p.targetLI, p.hasTarget = p.byVersion[versions[i]], true
				break
			}
		}
		return
	}
	p.targetLI, p.hasTarget = p.byVersion[versions[0]], true
}

// TargetLI returns the progressive target Update last computed, if any.
func (p *PendingLedgerInfos) TargetLI() (LedgerInfo, bool) {
	return p.targetLI, p.hasTarget
}

func (p *PendingLedgerInfos) Empty() bool { return len(p.byVersion) == 0 }

func (p *PendingLedgerInfos) Len() int { return len(p.byVersion) }

func (p *PendingLedgerInfos) sortedVersions() []Version {
	out := make([]Version, 0, len(p.byVersion))
	for v := range p.byVersion {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
