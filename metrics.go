package statesync

import "sync/atomic"

// metrics holds process-wide counters for a coordinator instance. These are
// in-process observability only (no external reporter is wired — see
// DESIGN.md for why the teacher's influxdb/prometheus reporter stack has no
// home here), in the same vein as go-ethereum's metrics.Counter/Gauge.
type metrics struct {
	chunksApplied      atomic.Int64
	txnsApplied        atomic.Int64
	chunkRequestsSent  atomic.Int64
	chunkRequestsServed atomic.Int64
	invalidChunks      atomic.Int64
	timeouts           atomic.Int64
	syncProgressUsecs  atomic.Int64 // see SPEC_FULL.md SUPPLEMENTED FEATURES
}

func newMetrics() *metrics { return &metrics{} }

func (m *metrics) recordChunkApplied(txns int) {
	m.chunksApplied.Add(1)
	m.txnsApplied.Add(int64(txns))
}

func (m *metrics) recordRequestSent()  { m.chunkRequestsSent.Add(1) }
func (m *metrics) recordRequestServed() { m.chunkRequestsServed.Add(1) }
func (m *metrics) recordInvalidChunk()  { m.invalidChunks.Add(1) }
func (m *metrics) recordTimeout()       { m.timeouts.Add(1) }
func (m *metrics) recordSyncProgress(usecs int64) { m.syncProgressUsecs.Store(usecs) }

// Snapshot is a point-in-time read of every counter, exported for tests and
// for an embedder that wants to expose its own metrics endpoint.
type Snapshot struct {
	ChunksApplied       int64
	TxnsApplied         int64
	ChunkRequestsSent   int64
	ChunkRequestsServed int64
	InvalidChunks       int64
	Timeouts            int64
	SyncProgressUsecs   int64
}

func (m *metrics) Snapshot() Snapshot {
	return Snapshot{
		ChunksApplied:       m.chunksApplied.Load(),
		TxnsApplied:         m.txnsApplied.Load(),
		ChunkRequestsSent:   m.chunkRequestsSent.Load(),
		ChunkRequestsServed: m.chunkRequestsServed.Load(),
		InvalidChunks:       m.invalidChunks.Load(),
		Timeouts:            m.timeouts.Load(),
		SyncProgressUsecs:   m.syncProgressUsecs.Load(),
	}
}
