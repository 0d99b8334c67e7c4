package message

import (
	"bytes"
	"testing"

	"github.com/autonity/statesync/common"
)

func TestGetChunkRequestRoundTrip_TargetLedgerInfo(t *testing.T) {
	req := &GetChunkRequest{
		KnownVersion: 100,
		CurrentEpoch: 3,
		Limit:        50,
		Target: Target{
			Code: TargetLedgerInfoCode,
			TargetLedgerInfo: LedgerInfo{
				Version:        150,
				Epoch:          3,
				TimestampUsecs: 123456,
				TxAccumulator:  common.HexToHash("0xabc123"),
				Signatures:     []byte("sig"),
			},
		},
	}

	payload, err := Encode(req)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if payload[0] != ChunkRequestCode {
		t.Fatalf("expected leading code %x, got %x", ChunkRequestCode, payload[0])
	}

	decoded, err := Decode(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, ok := decoded.(*GetChunkRequest)
	if !ok {
		t.Fatalf("expected *GetChunkRequest, got %T", decoded)
	}
	if out.KnownVersion != req.KnownVersion || out.CurrentEpoch != req.CurrentEpoch || out.Limit != req.Limit {
		t.Fatalf("scalar mismatch: got %+v want %+v", out, req)
	}
	if out.Target.Code != TargetLedgerInfoCode || out.Target.TargetLedgerInfo.Version != 150 {
		t.Fatalf("target mismatch: got %+v", out.Target)
	}
}

func TestGetChunkRequestRoundTrip_HighestAvailable(t *testing.T) {
	req := &GetChunkRequest{KnownVersion: 7, CurrentEpoch: 1, Limit: 10, Target: Target{Code: TargetHighestAvailableCode}}
	payload, err := Encode(req)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out := decoded.(*GetChunkRequest)
	if out.Target.Code != TargetHighestAvailableCode {
		t.Fatalf("expected highest-available target, got code %d", out.Target.Code)
	}
}

func TestGetChunkRequestRoundTrip_Waypoint(t *testing.T) {
	wantHash := common.HexToHash("0xdeadbeef")
	req := &GetChunkRequest{
		KnownVersion: 0,
		CurrentEpoch: 0,
		Limit:        1,
		Target:       Target{Code: TargetWaypointCode, Waypoint: struct {
			Version uint64
			Hash    common.Hash
		}{Version: 42, Hash: wantHash}},
	}
	payload, err := Encode(req)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out := decoded.(*GetChunkRequest)
	if out.Target.Code != TargetWaypointCode || out.Target.Waypoint.Version != 42 || out.Target.Waypoint.Hash != wantHash {
		t.Fatalf("waypoint mismatch: got %+v", out.Target)
	}
}

func TestGetChunkResponseRoundTrip_WithTrailingProof(t *testing.T) {
	first := uint64(101)
	resp := &GetChunkResponse{
		ResponseLI: ResponseLI{
			Code: ResponseVerifiableLedgerInfoCode,
			LedgerInfo: LedgerInfo{
				Version:       200,
				Epoch:         5,
				TxAccumulator: common.HexToHash("0x01"),
			},
		},
		FirstVersion: &first,
		Transactions: [][]byte{[]byte("tx-1"), []byte("tx-2"), []byte("tx-3")},
		Proof:        []byte("a-proof-blob-that-follows-the-transaction-list"),
	}

	payload, err := Encode(resp)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if payload[0] != ChunkResponseCode {
		t.Fatalf("expected leading code %x, got %x", ChunkResponseCode, payload[0])
	}

	decoded, err := Decode(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, ok := decoded.(*GetChunkResponse)
	if !ok {
		t.Fatalf("expected *GetChunkResponse, got %T", decoded)
	}
	if out.FirstVersion == nil || *out.FirstVersion != first {
		t.Fatalf("FirstVersion mismatch: got %v want %d", out.FirstVersion, first)
	}
	if len(out.Transactions) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(out.Transactions))
	}
	for i, want := range resp.Transactions {
		if !bytes.Equal(out.Transactions[i], want) {
			t.Fatalf("transaction %d mismatch: got %q want %q", i, out.Transactions[i], want)
		}
	}
	// The bug this test guards against: a Stream that can't find a list's
	// true end would bleed Proof's bytes into Transactions (or vice versa).
	if !bytes.Equal(out.Proof, resp.Proof) {
		t.Fatalf("proof mismatch: got %q want %q", out.Proof, resp.Proof)
	}
	if out.ResponseLI.Code != ResponseVerifiableLedgerInfoCode || out.ResponseLI.LedgerInfo.Version != 200 {
		t.Fatalf("response li mismatch: got %+v", out.ResponseLI)
	}
}

func TestGetChunkResponseRoundTrip_EmptyChunk(t *testing.T) {
	resp := &GetChunkResponse{
		ResponseLI:   ResponseLI{Code: ResponseProgressiveLedgerInfoCode, LedgerInfo: LedgerInfo{Version: 1}},
		FirstVersion: nil,
		Transactions: nil,
		Proof:        nil,
	}
	payload, err := Encode(resp)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out := decoded.(*GetChunkResponse)
	if out.FirstVersion != nil {
		t.Fatalf("expected nil FirstVersion, got %v", *out.FirstVersion)
	}
	if len(out.Transactions) != 0 {
		t.Fatalf("expected no transactions, got %d", len(out.Transactions))
	}
}

func TestDecodeEmptyPayloadRejected(t *testing.T) {
	if _, err := Decode(nil); err == nil {
		t.Fatalf("expected error decoding empty payload")
	}
}

func TestDecodeUnrecognizedCodeRejected(t *testing.T) {
	if _, err := Decode([]byte{0xFF, 0x00}); err == nil {
		t.Fatalf("expected error decoding unrecognized message code")
	}
}
