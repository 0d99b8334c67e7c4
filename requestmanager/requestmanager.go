// Package requestmanager implements the reference RequestManager used by
// the demo node: peer scoring, multicast escalation, and per-version
// request timing, all behind the narrow statesync.RequestManager
// interface the coordinator calls through.
package requestmanager

import (
	"sort"
	"strconv"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set"
	lru "github.com/hashicorp/golang-lru"
	lruv2 "github.com/hashicorp/golang-lru/v2"
	"github.com/zfjagann/golang-ring"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/autonity/statesync/common"
	"github.com/autonity/statesync/log"
)

// peerScore tracks a single upstream's recent reliability.
type peerScore struct {
	successes int
	failures  int
	disabled  bool
}

// Config tunes the reference RequestManager.
type Config struct {
	// MulticastLevels is how many peers PickPeers returns once escalated.
	MulticastLevels int
	// RequestRatePerPeer limits how often a single peer may be included in
	// an escalated multicast set; a single-peer pick is not rate limited.
	RequestRatePerPeer rate.Limit
	// TimeoutHistorySize bounds the per-peer ring of recent penalized
	// responses (invalid, empty or mismatched chunks) used to decide whether
	// to escalate multicast width.
	TimeoutHistorySize int
}

var Defaults = Config{MulticastLevels: 3, RequestRatePerPeer: rate.Every(200 * time.Millisecond), TimeoutHistorySize: 8}

// Manager is the reference implementation backing statesync.RequestManager.
type Manager struct {
	logger log.Logger
	cfg    Config

	mu           sync.Mutex
	upstreamSet  mapset.Set
	scores       *lruv2.Cache[common.Hash, *peerScore]
	limiters     *lruv2.Cache[common.Hash, *rate.Limiter]
	firstRequest *lru.Cache // Version -> unix-nanos int64
	lastSent     *lruv2.Cache[uint64, time.Time]
	timeoutHist  map[common.Hash]*ring.Ring

	group singleflight.Group
}

// New constructs a Manager serving the given upstream peer set.
func New(logger log.Logger, cfg Config, upstreamPeers []common.Hash) *Manager {
	upstreamSet := mapset.NewSet()
	for _, p := range upstreamPeers {
		upstreamSet.Add(p)
	}
	scores, _ := lruv2.New[common.Hash, *peerScore](4096)
	limiters, _ := lruv2.New[common.Hash, *rate.Limiter](4096)
	firstReq, _ := lru.New(65536)
	lastSent, _ := lruv2.New[uint64, time.Time](4096)
	return &Manager{
		logger:       logger,
		cfg:          cfg,
		upstreamSet:  upstreamSet,
		scores:       scores,
		limiters:     limiters,
		firstRequest: firstReq,
		lastSent:     lastSent,
		timeoutHist:  make(map[common.Hash]*ring.Ring),
	}
}

func (m *Manager) IsKnownUpstreamPeer(peer common.Hash) bool {
	return m.upstreamSet.Contains(peer)
}

// PickPeers returns the best-scoring peer (successes minus failures) for
// knownVersion, or a wider multicast set while any upstream has recent
// penalized responses on record.
// Concurrent calls for the same knownVersion (the tick handler and a
// just-landed chunk response both racing to pipeline the next request)
// collapse onto a single computation via singleflight.
func (m *Manager) PickPeers(knownVersion uint64) []common.Hash {
	key := versionKey(knownVersion)
	v, _, _ := m.group.Do(key, func() (interface{}, error) {
		return m.pickPeersOnce(knownVersion), nil
	})
	return v.([]common.Hash)
}

func versionKey(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func (m *Manager) pickPeersOnce(knownVersion uint64) []common.Hash {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.recordFirstRequestLocked(knownVersion)

	width := 1
	if m.shouldEscalate(knownVersion) {
		width = m.cfg.MulticastLevels
	}

	peers := m.upstreamSet.ToSlice()
	candidates := make([]common.Hash, 0, len(peers))
	for _, p := range peers {
		peer := p.(common.Hash)
		if width > 1 && !m.allowLocked(peer) {
			continue
		}
		if score, ok := m.scores.Get(peer); ok && score.disabled {
			continue
		}
		candidates = append(candidates, peer)
	}
	scoreOf := func(p common.Hash) int {
		if s, ok := m.scores.Peek(p); ok {
			return s.successes - s.failures
		}
		return 0
	}
	sort.SliceStable(candidates, func(i, j int) bool { return scoreOf(candidates[i]) > scoreOf(candidates[j]) })

	if width > len(candidates) {
		width = len(candidates)
	}
	return candidates[:width]
}

func (m *Manager) allowLocked(peer common.Hash) bool {
	limiter, ok := m.limiters.Get(peer)
	if !ok {
		limiter = rate.NewLimiter(m.cfg.RequestRatePerPeer, 1)
		m.limiters.Add(peer, limiter)
	}
	return limiter.Allow()
}

func (m *Manager) shouldEscalate(knownVersion uint64) bool {
	total := 0
	for _, hist := range m.timeoutHist {
		total += len(hist.Values())
	}
	return total > 0
}

func (m *Manager) recordFirstRequestLocked(knownVersion uint64) {
	key := knownVersion
	if _, ok := m.firstRequest.Get(key); !ok {
		m.firstRequest.Add(key, time.Now().UnixNano())
	}
}

func (m *Manager) FirstRequestTime(knownVersion uint64) (int64, bool) {
	v, ok := m.firstRequest.Get(knownVersion)
	if !ok {
		return 0, false
	}
	return v.(int64), true
}

func (m *Manager) ProcessSuccessResponse(peer common.Hash, knownVersion uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	score := m.scoreLocked(peer)
	score.successes++
	delete(m.timeoutHist, peer)
}

// ProcessTimeout reports whether PickPeers would escalate to a multicast
// set. It records nothing itself: the escalation history is fed only by
// penalized responses, and a success response clears that peer's history.
func (m *Manager) ProcessTimeout(knownVersion uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shouldEscalate(knownVersion)
}

// CheckTimeout reports whether a chunk request for knownVersion is due
// right now: the first time it's ever asked about, or once retryTimeout
// has elapsed since the last time this returned true. Answering true
// itself counts as the attempt being made, so the clock resets here
// rather than waiting for a separate "request sent" notification.
func (m *Manager) CheckTimeout(knownVersion uint64, retryTimeout time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if last, ok := m.lastSent.Get(knownVersion); ok && time.Since(last) < retryTimeout {
		return false
	}
	m.lastSent.Add(knownVersion, time.Now())
	return true
}

func (m *Manager) ProcessInvalidChunk(peer common.Hash, knownVersion uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.penalizeLocked(peer, knownVersion)
}

// ProcessEmptyChunk demotes peer's score for answering with an empty
// chunk while claiming to have something to serve — distinct from an
// invalid chunk in the original's PeerScoreUpdateType, but scored the
// same way here since both mean the peer over-promised.
func (m *Manager) ProcessEmptyChunk(peer common.Hash, knownVersion uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.penalizeLocked(peer, knownVersion)
}

// ProcessChunkVersionMismatch demotes peer's score for a chunk that did
// not continue from knownVersion+1, logging the mismatch since it often
// signals a peer stuck on a stale fork rather than outright misbehavior.
func (m *Manager) ProcessChunkVersionMismatch(peer common.Hash, knownVersion, chunkStartVersion uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger.Warn("chunk response started at unexpected version", "peer", peer, "known_version", knownVersion, "chunk_start_version", chunkStartVersion)
	m.penalizeLocked(peer, knownVersion)
}

func (m *Manager) penalizeLocked(peer common.Hash, knownVersion uint64) {
	score := m.scoreLocked(peer)
	score.failures++
	if score.failures > 3*(score.successes+1) {
		score.disabled = true
		m.logger.Warn("disabling upstream peer after repeated invalid chunks", "peer", peer)
	}
	hist, ok := m.timeoutHist[peer]
	if !ok {
		hist = &ring.Ring{}
		hist.SetCapacity(m.cfg.TimeoutHistorySize)
		m.timeoutHist[peer] = hist
	}
	hist.Enqueue(knownVersion)
}

func (m *Manager) scoreLocked(peer common.Hash) *peerScore {
	score, ok := m.scores.Get(peer)
	if !ok {
		score = &peerScore{}
		m.scores.Add(peer, score)
	}
	return score
}
