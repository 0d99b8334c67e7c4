package common

import "testing"

func TestHexToHashRoundTrip(t *testing.T) {
	h := HexToHash("0x0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20")
	if h.IsZero() {
		t.Fatalf("expected non-zero hash")
	}
	if h.String() == "" {
		t.Fatalf("expected non-empty string representation")
	}
}

func TestHexToHashPadsShortInput(t *testing.T) {
	h := HexToHash("0xabc")
	want := BytesToHash([]byte{0x0a, 0xbc})
	if h != want {
		t.Fatalf("got %s, want %s", h, want)
	}
}

func TestBytesToHashTruncatesLongInput(t *testing.T) {
	b := make([]byte, HashLength+5)
	for i := range b {
		b[i] = byte(i)
	}
	h := BytesToHash(b)
	if h.Bytes()[0] != b[5] {
		t.Fatalf("expected truncation from the left, got first byte %x want %x", h.Bytes()[0], b[5])
	}
}

func TestHexToAddressRoundTrip(t *testing.T) {
	a := HexToAddress("0x000000000000000000000000000000000000ff")
	want := BytesToAddress([]byte{0xff})
	if a != want {
		t.Fatalf("got %s, want %s", a, want)
	}
}

func TestFromHexTolerantOfOddLength(t *testing.T) {
	b := FromHex("0xabc")
	if len(b) != 2 || b[0] != 0x0a || b[1] != 0xbc {
		t.Fatalf("unexpected decode: % x", b)
	}
}

func TestFromHexInvalidReturnsNil(t *testing.T) {
	if b := FromHex("0xzz"); b != nil {
		t.Fatalf("expected nil for invalid hex, got % x", b)
	}
}

func TestStorageSizeString(t *testing.T) {
	cases := []struct {
		size StorageSize
		want string
	}{
		{500, "500.00 B"},
		{2048, "2.00 KiB"},
		{5 * 1048576, "5.00 MiB"},
	}
	for _, c := range cases {
		if got := c.size.String(); got != c.want {
			t.Fatalf("StorageSize(%v).String() = %q, want %q", float64(c.size), got, c.want)
		}
	}
}

func TestZeroHash(t *testing.T) {
	var h Hash
	if !h.IsZero() {
		t.Fatalf("expected zero-value Hash to report IsZero")
	}
}
