package statesync

import (
	"context"
	"time"

	"github.com/autonity/statesync/common"
	"github.com/autonity/statesync/log"
	"github.com/autonity/statesync/message"
)

// SyncCoordinator is the event-driven coordinator: a single-threaded loop
// multiplexing client commands, network events, and a periodic progress
// tick, driving local ledger state toward a target while simultaneously
// serving chunk requests from its own downstream peers (§4.1).
type SyncCoordinator struct {
	logger log.Logger
	config Config

	executor       ExecutorProxy
	network        Network
	requestManager RequestManager
	mempool        MempoolNotifier

	state         SynchronizerState
	waypoint      Waypoint
	pendingLIs    *PendingLedgerInfos
	subscriptions *subscriptionTable
	syncRequest   *SyncRequest

	commands *commandQueue
	metrics  *metrics

	initialized  bool
	initWaiters  []chan<- error

	cancel  context.CancelFunc
	stopped chan struct{}
}

// New constructs a SyncCoordinator. The coordinator does not start running
// until Start is called.
func New(cfg Config, waypoint Waypoint, executor ExecutorProxy, network Network, rm RequestManager, mempool MempoolNotifier) *SyncCoordinator {
	return &SyncCoordinator{
		logger:         log.New("module", "statesync"),
		config:         cfg,
		executor:       executor,
		network:        network,
		requestManager: rm,
		mempool:        mempool,
		waypoint:       waypoint,
		pendingLIs:     NewPendingLedgerInfos(cfg.MaxPendingLICount),
		subscriptions:  newSubscriptionTable(),
		commands:       newCommandQueue(),
		metrics:        newMetrics(),
		stopped:        make(chan struct{}),
	}
}

// Start begins the event loop in its own goroutine, the way
// consensus/tendermint/core.Start launches mainEventLoop/syncLoop.
func (c *SyncCoordinator) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	state, err := c.executor.GetLocalStorageState(ctx)
	if err != nil {
		return newError(KindFatalToOperation, err)
	}
	c.state = state
	c.initialized = state.CommittedVersion() >= c.waypoint.Version

	go c.mainEventLoop(ctx)
	return nil
}

// Stop cancels the event loop and blocks until it has exited.
func (c *SyncCoordinator) Stop() {
	c.logger.Info("stopping state sync coordinator")
	c.commands.close()
	c.cancel()
	<-c.stopped
}

func (c *SyncCoordinator) mainEventLoop(ctx context.Context) {
	ticker := time.NewTicker(c.config.TickInterval)
	defer ticker.Stop()

	events := c.network.Events()

eventLoop:
	for {
		select {
		case <-c.commands.notify:
			for {
				cmd, ok := c.commands.pop()
				if !ok {
					break
				}
				c.handleClientCommand(ctx, cmd)
			}

		case ev, ok := <-events:
			if !ok {
				break eventLoop
			}
			c.handleNetworkEvent(ctx, ev)

		case <-ticker.C:
			c.checkProgress(ctx)

		case <-ctx.Done():
			c.logger.Info("state sync event loop stopped", "reason", ctx.Err())
			break eventLoop
		}
	}

	close(c.stopped)
}

func (c *SyncCoordinator) handleNetworkEvent(ctx context.Context, ev NetworkEvent) {
	msg, err := message.Decode(ev.Payload)
	if err != nil {
		c.logger.Debug("dropping undecodable state sync message", "peer", ev.Peer, "err", err)
		return
	}
	switch m := msg.(type) {
	case *message.GetChunkRequest:
		c.handleChunkRequest(ctx, ev.NetworkID, ev.Peer, m)
	case *message.GetChunkResponse:
		c.handleChunkResponse(ctx, ev.NetworkID, ev.Peer, m)
	default:
		c.logger.Warn("unrecognized state sync message type", "peer", ev.Peer)
	}
}

func (c *SyncCoordinator) handleClientCommand(ctx context.Context, cmd clientCommand) {
	switch v := cmd.(type) {
	case requestCommand:
		c.handleRequest(ctx, v)
	case commitCommand:
		c.handleCommit(ctx, v)
	case getStateCommand:
		v.ReplyTo <- c.state
	case waitInitializeCommand:
		c.handleWaitInitialize(v)
	}
}

// --- public client API, each wrapping a command onto the unbounded queue ---

// Request asks the coordinator to synchronize to targetLI, replacing any
// request already in flight. It returns once the target is reached or the
// request fails/is superseded.
func (c *SyncCoordinator) Request(ctx context.Context, targetLI LedgerInfo) error {
	reply := make(chan error, 1)
	c.commands.push(requestCommand{TargetLI: targetLI, ReplyTo: reply})
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Commit informs the coordinator of a locally produced commit (e.g. a
// block just finalized by consensus), folding it into local state exactly
// as process_commit would a chunk-driven commit (§4.5).
func (c *SyncCoordinator) Commit(ctx context.Context, li LedgerInfo, txHashes []common.Hash) error {
	reply := make(chan error, 1)
	c.commands.push(commitCommand{LedgerInfo: li, TxHashes: txHashes, ReplyTo: reply})
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *SyncCoordinator) GetState(ctx context.Context) (SynchronizerState, error) {
	reply := make(chan SynchronizerState, 1)
	c.commands.push(getStateCommand{ReplyTo: reply})
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return SynchronizerState{}, ctx.Err()
	}
}

// WaitInitialize blocks until local state has reached the configured
// waypoint at least once.
func (c *SyncCoordinator) WaitInitialize(ctx context.Context) error {
	reply := make(chan error, 1)
	c.commands.push(waitInitializeCommand{ReplyTo: reply})
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *SyncCoordinator) handleWaitInitialize(cmd waitInitializeCommand) {
	if c.initialized {
		cmd.ReplyTo <- nil
		return
	}
	c.initWaiters = append(c.initWaiters, cmd.ReplyTo)
}

func (c *SyncCoordinator) markInitialized() {
	if c.initialized {
		return
	}
	c.initialized = true
	for _, w := range c.initWaiters {
		select {
		case w <- nil:
		default: // listener dropped; advisory only (§7)
		}
	}
	c.initWaiters = nil
}
