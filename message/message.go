// Package message implements the two wire messages exchanged by the state
// synchronization coordinator — GetChunkRequest and GetChunkResponse — each
// a polymorphic envelope around a target/response-ledger-info variant,
// RLP-encoded in the same leading-type-code idiom as
// consensus/tendermint/accountability's typedMessage.
package message

import (
	"errors"
	"io"

	"github.com/autonity/statesync/common"
	"github.com/autonity/statesync/rlp"
)

// target variant codes, encoded as the first element of a GetChunkRequest's
// Target field.
const (
	TargetLedgerInfoCode uint8 = iota
	TargetHighestAvailableCode
	TargetWaypointCode
)

// responseLI variant codes, encoded as the first element of a
// GetChunkResponse's ResponseLI field.
const (
	ResponseVerifiableLedgerInfoCode uint8 = iota
	ResponseProgressiveLedgerInfoCode
	ResponseLedgerInfoForWaypointCode
)

var (
	errUnexpectedTargetCode   = errors.New("message: unexpected chunk request target code")
	errUnexpectedResponseCode = errors.New("message: unexpected chunk response li code")
)

// LedgerInfo is the wire-visible shadow of statesync.LedgerInfo; kept
// separate so this package has no import-cycle back into statesync.
type LedgerInfo struct {
	Version        uint64
	Epoch          uint64
	EndsEpoch      bool
	TimestampUsecs uint64
	TxAccumulator  common.Hash
	Signatures     []byte
}

// Target is the sum type carried by a GetChunkRequest: either a specific
// LedgerInfo to chunk toward, a long-pollable request for whatever is
// highest available (optionally already holding the requester's own
// target_li, so the responder can tell whether anything has actually
// changed), or a request anchored at a waypoint during bootstrap.
type Target struct {
	Code             uint8
	TargetLedgerInfo LedgerInfo // TargetLedgerInfoCode
	HasHighestTarget bool       // TargetHighestAvailableCode: target_li is optional
	HighestTargetLI  LedgerInfo // TargetHighestAvailableCode, present iff HasHighestTarget
	TimeoutMs        uint64     // TargetHighestAvailableCode: 0 means answer now, never subscribe
	Waypoint struct {
		Version uint64
		Hash    common.Hash
	} // TargetWaypointCode
}

func (t *Target) EncodeRLP(w io.Writer) error {
	switch t.Code {
	case TargetLedgerInfoCode:
		return rlp.Encode(w, []interface{}{t.Code, t.TargetLedgerInfo})
	case TargetHighestAvailableCode:
		return rlp.Encode(w, []interface{}{t.Code, t.HasHighestTarget, t.HighestTargetLI, t.TimeoutMs})
	case TargetWaypointCode:
		return rlp.Encode(w, []interface{}{t.Code, t.Waypoint.Version, t.Waypoint.Hash})
	default:
		return errUnexpectedTargetCode
	}
}

func (t *Target) DecodeRLP(s *rlp.Stream) error {
	if _, err := s.List(); err != nil {
		return err
	}
	code, err := s.Bytes()
	if err != nil {
		return err
	}
	switch len(code) {
	case 0:
		t.Code = TargetLedgerInfoCode // the RLP empty string IS code 0, not HighestAvailable
	case 1:
		t.Code = code[0]
	default:
		return errUnexpectedTargetCode
	}
	switch t.Code {
	case TargetLedgerInfoCode:
		if err := s.Decode(&t.TargetLedgerInfo); err != nil {
			return err
		}
	case TargetHighestAvailableCode:
		if err := s.Decode(&t.HasHighestTarget); err != nil {
			return err
		}
		if err := s.Decode(&t.HighestTargetLI); err != nil {
			return err
		}
		if err := s.Decode(&t.TimeoutMs); err != nil {
			return err
		}
	case TargetWaypointCode:
		if err := s.Decode(&t.Waypoint.Version); err != nil {
			return err
		}
		if err := s.Decode(&t.Waypoint.Hash); err != nil {
			return err
		}
	default:
		return errUnexpectedTargetCode
	}
	return s.ListEnd()
}

// GetChunkRequest asks the receiver for up to Limit transactions after
// KnownVersion, proven against Target (§4.3/§6).
type GetChunkRequest struct {
	KnownVersion uint64
	CurrentEpoch uint64
	Limit        uint64
	Target       Target
}

func (r *GetChunkRequest) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, []interface{}{r.KnownVersion, r.CurrentEpoch, r.Limit, &r.Target})
}

func (r *GetChunkRequest) DecodeRLP(s *rlp.Stream) error {
	if _, err := s.List(); err != nil {
		return err
	}
	if err := s.Decode(&r.KnownVersion); err != nil {
		return err
	}
	if err := s.Decode(&r.CurrentEpoch); err != nil {
		return err
	}
	if err := s.Decode(&r.Limit); err != nil {
		return err
	}
	if err := s.Decode(&r.Target); err != nil {
		return err
	}
	return s.ListEnd()
}

// ResponseLI is the sum type carried by a GetChunkResponse: a LedgerInfo
// verifiable against the requester's trusted epoch state (optionally
// paired with a further, not-yet-verified highest_li the responder also
// knows about), a progressive (not-yet-fully-signed) LedgerInfo similarly
// paired with the true highest_li when it differs, or one anchored at a
// waypoint together with the end-of-epoch LI needed to verify it.
type ResponseLI struct {
	Code       uint8
	LedgerInfo LedgerInfo
	HasAux     bool       // true iff Aux is present
	Aux        LedgerInfo // highest_li (Verifiable/Progressive) or end_of_epoch_li (Waypoint)
}

func (r *ResponseLI) EncodeRLP(w io.Writer) error {
	switch r.Code {
	case ResponseVerifiableLedgerInfoCode, ResponseProgressiveLedgerInfoCode, ResponseLedgerInfoForWaypointCode:
		return rlp.Encode(w, []interface{}{r.Code, r.LedgerInfo, r.HasAux, r.Aux})
	default:
		return errUnexpectedResponseCode
	}
}

func (r *ResponseLI) DecodeRLP(s *rlp.Stream) error {
	if _, err := s.List(); err != nil {
		return err
	}
	code, err := s.Bytes()
	if err != nil {
		return err
	}
	switch len(code) {
	case 0:
		r.Code = ResponseVerifiableLedgerInfoCode // the RLP empty string IS code 0
	case 1:
		r.Code = code[0]
	default:
		return errUnexpectedResponseCode
	}
	switch r.Code {
	case ResponseVerifiableLedgerInfoCode, ResponseProgressiveLedgerInfoCode, ResponseLedgerInfoForWaypointCode:
		if err := s.Decode(&r.LedgerInfo); err != nil {
			return err
		}
		if err := s.Decode(&r.HasAux); err != nil {
			return err
		}
		if err := s.Decode(&r.Aux); err != nil {
			return err
		}
	default:
		return errUnexpectedResponseCode
	}
	return s.ListEnd()
}

// GetChunkResponse answers a GetChunkRequest with the chosen ResponseLI and
// the proven chunk itself (§4.3/§6).
type GetChunkResponse struct {
	ResponseLI ResponseLI
	FirstVersion *uint64
	Transactions [][]byte
	Proof        []byte
}

func (r *GetChunkResponse) EncodeRLP(w io.Writer) error {
	hasFirst := r.FirstVersion != nil
	var first uint64
	if hasFirst {
		first = *r.FirstVersion
	}
	return rlp.Encode(w, []interface{}{&r.ResponseLI, hasFirst, first, r.Transactions, r.Proof})
}

func (r *GetChunkResponse) DecodeRLP(s *rlp.Stream) error {
	if _, err := s.List(); err != nil {
		return err
	}
	if err := s.Decode(&r.ResponseLI); err != nil {
		return err
	}
	var hasFirst bool
	if err := s.Decode(&hasFirst); err != nil {
		return err
	}
	var first uint64
	if err := s.Decode(&first); err != nil {
		return err
	}
	if hasFirst {
		r.FirstVersion = &first
	}
	if err := s.Decode(&r.Transactions); err != nil {
		return err
	}
	if err := s.Decode(&r.Proof); err != nil {
		return err
	}
	return s.ListEnd()
}

// code bytes identifying which message type a raw payload holds, mirroring
// the leading-code-byte convention used for consensus messages.
const (
	ChunkRequestCode  uint8 = 0x10
	ChunkResponseCode uint8 = 0x11
)

// Encode serializes msg (a *GetChunkRequest or *GetChunkResponse) with its
// leading type code.
func Encode(msg interface{}) ([]byte, error) {
	var code uint8
	switch msg.(type) {
	case *GetChunkRequest:
		code = ChunkRequestCode
	case *GetChunkResponse:
		code = ChunkResponseCode
	default:
		return nil, errors.New("message: unsupported message type")
	}
	body, err := rlp.EncodeToBytes(msg)
	if err != nil {
		return nil, err
	}
	return append([]byte{code}, body...), nil
}

// Decode parses a type-coded payload produced by Encode.
func Decode(payload []byte) (interface{}, error) {
	if len(payload) == 0 {
		return nil, errors.New("message: empty payload")
	}
	code, body := payload[0], payload[1:]
	switch code {
	case ChunkRequestCode:
		m := new(GetChunkRequest)
		if err := rlp.DecodeBytes(body, m); err != nil {
			return nil, err
		}
		return m, nil
	case ChunkResponseCode:
		m := new(GetChunkResponse)
		if err := rlp.DecodeBytes(body, m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, errors.New("message: unrecognized message code")
	}
}
