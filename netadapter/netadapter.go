// Package netadapter implements a reference statesync.Network: it fuses
// one inbound channel per configured peer network into a single stream the
// coordinator's event loop selects on, in the same shape as
// eth/protocols/atc's CommitteeWatcher fan-in goroutine.
package netadapter

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/autonity/statesync/common"
	"github.com/autonity/statesync/log"
	"github.com/autonity/statesync"
)

// NetworkID is an opaque, stable identifier for one of the node's
// configured peer networks (the coordinator never interprets its value).
type NetworkID = common.Hash

// NewNetworkID derives a NetworkID from a fresh random uuid, for networks
// configured without an explicit id.
func NewNetworkID() NetworkID {
	id := uuid.New()
	return common.BytesToHash(id[:])
}

type senderFunc func(ctx context.Context, peer common.Hash, payload []byte) error

func (f senderFunc) SendTo(ctx context.Context, peer common.Hash, payload []byte) error {
	return f(ctx, peer, payload)
}

// Adapter is a reference statesync.Network backed by one inbound channel
// per registered network and a peer -> sender map.
type Adapter struct {
	logger log.Logger

	mu      sync.RWMutex
	senders map[common.Hash]statesync.NetworkSender

	fused  chan statesync.NetworkEvent
	cancel context.CancelFunc
}

// New returns an empty Adapter; call RegisterNetwork for each peer network
// before starting the coordinator.
func New(logger log.Logger) *Adapter {
	return &Adapter{
		logger:  logger,
		senders: make(map[common.Hash]statesync.NetworkSender),
		fused:   make(chan statesync.NetworkEvent, 256),
	}
}

// RegisterNetwork fuses inbound into the adapter's event stream and maps
// every peer's sender through send, until ctx is canceled.
func (a *Adapter) RegisterNetwork(ctx context.Context, networkID NetworkID, inbound <-chan statesync.NetworkEvent, send func(ctx context.Context, peer common.Hash, payload []byte) error, peers []common.Hash) {
	a.mu.Lock()
	for _, p := range peers {
		a.senders[p] = senderFunc(send)
	}
	a.mu.Unlock()

	go func() {
		for {
			select {
			case ev, ok := <-inbound:
				if !ok {
					return
				}
				ev.NetworkID = networkID
				select {
				case a.fused <- ev:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				a.logger.Debug("netadapter: network fan-in stopped", "network", networkID)
				return
			}
		}
	}()
}

func (a *Adapter) Events() <-chan statesync.NetworkEvent { return a.fused }

func (a *Adapter) Sender(peer common.Hash) (statesync.NetworkSender, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.senders[peer]
	return s, ok
}
