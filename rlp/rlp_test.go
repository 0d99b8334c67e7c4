package rlp

import (
	"bytes"
	"math/big"
	"testing"
)

func TestEncodeDecodeScalars(t *testing.T) {
	cases := []struct {
		name string
		in   interface{}
		out  interface{}
	}{
		{"uint64", uint64(0xdeadbeef), new(uint64)},
		{"zero uint64", uint64(0), new(uint64)},
		{"bool true", true, new(bool)},
		{"bool false", false, new(bool)},
		{"string", "hello state sync", new(string)},
		{"bytes", []byte{1, 2, 3, 4, 5}, new([]byte)},
		{"empty bytes", []byte{}, new([]byte)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b, err := EncodeToBytes(c.in)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if err := DecodeBytes(b, c.out); err != nil {
				t.Fatalf("decode: %v", err)
			}
		})
	}
}

func TestEncodeNegativeIntRejected(t *testing.T) {
	if _, err := EncodeToBytes(int64(-1)); err == nil {
		t.Fatalf("expected error encoding negative int")
	}
}

type sample struct {
	A uint64
	B []byte
	C []string
	D bool
}

func TestStructRoundTrip(t *testing.T) {
	in := sample{A: 1000, B: []byte("proof-bytes"), C: []string{"tx1", "tx2", "tx3"}, D: true}
	b, err := EncodeToBytes(&in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var out sample
	if err := DecodeBytes(b, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.A != in.A || !bytes.Equal(out.B, in.B) || out.D != in.D || len(out.C) != len(in.C) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
	for i := range in.C {
		if out.C[i] != in.C[i] {
			t.Fatalf("element %d mismatch: got %q want %q", i, out.C[i], in.C[i])
		}
	}
}

// sliceThenField is shaped like message.GetChunkResponse: a variable-length
// slice field followed by a fixed field. A Stream that can't find the true
// end of the slice's list (e.g. by peeking for stream EOF instead of
// tracking consumed bytes) decodes this incorrectly.
type sliceThenField struct {
	Transactions [][]byte
	Proof        []byte
}

func TestSliceFieldFollowedByAnotherField(t *testing.T) {
	in := sliceThenField{
		Transactions: [][]byte{[]byte("tx-a"), []byte("tx-bb"), []byte("tx-ccc")},
		Proof:        []byte("trailing-proof-bytes"),
	}
	b, err := EncodeToBytes(&in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var out sliceThenField
	if err := DecodeBytes(b, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Transactions) != len(in.Transactions) {
		t.Fatalf("got %d transactions, want %d", len(out.Transactions), len(in.Transactions))
	}
	for i := range in.Transactions {
		if !bytes.Equal(out.Transactions[i], in.Transactions[i]) {
			t.Fatalf("transaction %d mismatch: got %q want %q", i, out.Transactions[i], in.Transactions[i])
		}
	}
	if !bytes.Equal(out.Proof, in.Proof) {
		t.Fatalf("proof mismatch: got %q want %q", out.Proof, in.Proof)
	}
}

func TestNestedListRoundTrip(t *testing.T) {
	type inner struct {
		X uint64
		Y []byte
	}
	type outer struct {
		Items []inner
		Tail  uint64
	}
	in := outer{Items: []inner{{X: 1, Y: []byte("a")}, {X: 2, Y: []byte("b")}}, Tail: 99}
	b, err := EncodeToBytes(&in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var out outer
	if err := DecodeBytes(b, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Tail != in.Tail || len(out.Items) != len(in.Items) {
		t.Fatalf("mismatch: got %+v want %+v", out, in)
	}
	for i := range in.Items {
		if out.Items[i].X != in.Items[i].X || !bytes.Equal(out.Items[i].Y, in.Items[i].Y) {
			t.Fatalf("item %d mismatch: got %+v want %+v", i, out.Items[i], in.Items[i])
		}
	}
}

func TestEncodeBigInt(t *testing.T) {
	bi := *big.NewInt(123456789)
	b, err := EncodeToBytes(bi)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(b) == 0 {
		t.Fatalf("expected non-empty encoding")
	}
}

func TestDecodeNonPointerRejected(t *testing.T) {
	if err := DecodeBytes([]byte{0x01}, uint64(0)); err == nil {
		t.Fatalf("expected error decoding into non-pointer")
	}
}
