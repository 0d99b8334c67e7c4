package statesync

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an error by how the event loop should react to it (§7):
// the loop itself never terminates on any of these, it only logs, scores a
// peer, or drops a listener.
type Kind int

const (
	// KindFatalToOperation aborts only the single operation in progress
	// (e.g. a chunk response is discarded), never the loop.
	KindFatalToOperation Kind = iota
	// KindPeerAttributable additionally demotes the offending peer's
	// RequestManager score.
	KindPeerAttributable
	// KindTransientNetwork is a network-layer send/receive failure, logged
	// and retried on the next tick.
	KindTransientNetwork
	// KindAdvisory is logged at a lower level and otherwise ignored (e.g.
	// the local-executor-can't-prove-past-epoch case of §9).
	KindAdvisory
	// KindListenerDrop means a one-shot callback channel was full or
	// closed; the result is dropped, not retried.
	KindListenerDrop
)

func (k Kind) String() string {
	switch k {
	case KindFatalToOperation:
		return "fatal_to_operation"
	case KindPeerAttributable:
		return "peer_attributable"
	case KindTransientNetwork:
		return "transient_network"
	case KindAdvisory:
		return "advisory"
	case KindListenerDrop:
		return "listener_drop"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind so handlers can dispatch on
// it without string matching, and carries the usual pkg/errors stack trace
// for diagnostics.
type Error struct {
	Kind  Kind
	cause error
}

func newError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, cause: errors.WithStack(cause)}
}

func errorf(kind Kind, format string, args ...interface{}) *Error {
	return newError(kind, fmt.Errorf(format, args...))
}

func (e *Error) Error() string { return fmt.Sprintf("[%s] %v", e.Kind, e.cause) }

func (e *Error) Unwrap() error { return e.cause }

// errMissingNetworkSender is the one true programming-invariant violation
// the loop does not tolerate: a chunk request or response names a network
// the embedder never registered a sender for. Per §4.3/§5 this panics,
// matching the original's .expect("missing network sender").
var errMissingNetworkSender = errors.New("statesync: missing network sender for network id")
