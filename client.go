package statesync

import (
	"sync"

	"github.com/gammazero/deque"

	"github.com/autonity/statesync/common"
)

// clientCommand is the sum type carried on the unbounded client command
// channel (§4.2, §5): Request, Commit, GetState, WaitInitialize.
type clientCommand interface{ isClientCommand() }

// requestCommand asks the coordinator to drive local state to targetLI,
// replacing any sync request already in flight (§9).
type requestCommand struct {
	TargetLI LedgerInfo
	ReplyTo  chan<- error
}

func (requestCommand) isClientCommand() {}

// commitCommand informs the coordinator that consensus (or direct block
// production) has locally committed up to ledgerInfo; process_commit
// folds this into local state exactly as it would a chunk-driven commit.
type commitCommand struct {
	LedgerInfo LedgerInfo
	TxHashes   []common.Hash
	ReplyTo    chan<- error
}

func (commitCommand) isClientCommand() {}

// getStateCommand asks for the current SynchronizerState snapshot.
type getStateCommand struct {
	ReplyTo chan<- SynchronizerState
}

func (getStateCommand) isClientCommand() {}

// waitInitializeCommand blocks ReplyTo until the coordinator has observed
// local state past its configured waypoint at least once.
type waitInitializeCommand struct {
	ReplyTo chan<- error
}

func (waitInitializeCommand) isClientCommand() {}

// commandQueue is an unbounded MPSC queue backed by a ring-deque, used so
// that client-facing calls (Request/Commit/GetState/WaitInitialize) never
// block their caller on the coordinator's own pace (§5 backpressure
// policy: the client command channel is unbounded, unlike the bounded
// mempool-ack path).
type commandQueue struct {
	mu     sync.Mutex
	notify chan struct{}
	dq     deque.Deque[clientCommand]
	closed bool
}

func newCommandQueue() *commandQueue {
	return &commandQueue{notify: make(chan struct{}, 1)}
}

func (q *commandQueue) push(cmd clientCommand) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.dq.PushBack(cmd)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// pop returns the next command and true, or false if the queue is empty.
func (q *commandQueue) pop() (clientCommand, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.dq.Len() == 0 {
		return nil, false
	}
	return q.dq.PopFront(), true
}

func (q *commandQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}
