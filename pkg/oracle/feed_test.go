package oracle

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
)

// buildFeed assembles a raw feed account from samples.
func buildFeed(authority solana.PublicKey, btc Sample, decimals uint8) []byte {
	buf := make([]byte, 0, feedMinLen)
	buf = append(buf, make([]byte, 8)...) // discriminator
	buf = append(buf, authority.Bytes()...)

	writeSample := func(s Sample) {
		for _, p := range s.Prices {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], uint64(p))
			buf = append(buf, b[:]...)
		}
		for _, ts := range s.Timestamps {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], uint64(ts))
			buf = append(buf, b[:]...)
		}
	}
	writeSample(btc)
	writeSample(Sample{}) // ETH
	writeSample(Sample{}) // SOL
	buf = append(buf, decimals, 255)
	return buf
}

func TestMedian3(t *testing.T) {
	tests := []struct {
		a, b, c, want int64
	}{
		{1, 2, 3, 2},
		{3, 2, 1, 2},
		{2, 3, 1, 2},
		{5, 5, 5, 5},
		{1, 1, 9, 1},
		{-3, 0, 7, 0},
	}
	for _, tt := range tests {
		if got := Median3(tt.a, tt.b, tt.c); got != tt.want {
			t.Errorf("Median3(%d,%d,%d) = %d, want %d", tt.a, tt.b, tt.c, got, tt.want)
		}
	}
}

func TestParseFeedRoundTrip(t *testing.T) {
	auth := solana.NewWallet().PublicKey()
	btc := Sample{
		Prices:     [3]int64{65_000_00000000, 65_100_00000000, 64_900_00000000},
		Timestamps: [3]int64{1_700_000_001_000, 1_700_000_002_000, 1_700_000_000_000},
	}
	raw := buildFeed(auth, btc, 8)

	f, err := ParseFeed(raw)
	if err != nil {
		t.Fatalf("ParseFeed: %v", err)
	}
	if !f.Authority.Equals(auth) {
		t.Errorf("authority = %s, want %s", f.Authority, auth)
	}
	if f.Decimals != 8 {
		t.Errorf("decimals = %d, want 8", f.Decimals)
	}
	if f.BTC != btc {
		t.Errorf("BTC sample mismatch: %+v", f.BTC)
	}
}

func TestParseFeedTooSmall(t *testing.T) {
	if _, err := ParseFeed(make([]byte, feedMinLen-1)); err == nil {
		t.Error("expected error for truncated account")
	}
}

func TestBTCPriceMedianAndRescale(t *testing.T) {
	// 8-decimal feed: 65_000.00000000 → 65_000 * 1e6 in e6.
	btc := Sample{
		Prices:     [3]int64{6_500_000_000_000, 6_510_000_000_000, 6_490_000_000_000},
		Timestamps: [3]int64{1_700_000_001_000, 1_700_000_002_000, 1_700_000_000_000},
	}
	raw := buildFeed(solana.PublicKey{}, btc, 8)
	f, err := ParseFeed(raw)
	if err != nil {
		t.Fatalf("ParseFeed: %v", err)
	}

	price, tsMs := f.BTCPriceE6()
	if price != 65_000_000_000 { // 65_000.0 in e6
		t.Errorf("price = %d, want 65_000_000_000", price)
	}
	if tsMs != 1_700_000_001_000 {
		t.Errorf("tsMs = %d, want median 1_700_000_001_000", tsMs)
	}
}

func TestRescaleToE6(t *testing.T) {
	tests := []struct {
		price    int64
		decimals uint8
		want     int64
	}{
		{1_000_000, 6, 1_000_000},            // identity
		{100_000_000, 8, 1_000_000},          // 8 → 6
		{1_000, 3, 1_000_000},                // 3 → 6
		{1_234_567_890_123_456_789, 18, 1_234_567}, // deep decimals through big.Int
	}
	for _, tt := range tests {
		if got := RescaleToE6(tt.price, tt.decimals); got != tt.want {
			t.Errorf("RescaleToE6(%d, %d) = %d, want %d", tt.price, tt.decimals, got, tt.want)
		}
	}
}

func TestFreshness(t *testing.T) {
	btc := Sample{
		Prices:     [3]int64{1, 1, 1},
		Timestamps: [3]int64{1_700_000_000_000, 1_700_000_000_000, 1_700_000_000_000},
	}
	raw := buildFeed(solana.PublicKey{}, btc, 6)
	f, _ := ParseFeed(raw)

	tsSec := int64(1_700_000_000)
	if !f.Fresh(tsSec + MaxAgeSecs) {
		t.Error("feed at exactly max age should be fresh")
	}
	if f.Fresh(tsSec + MaxAgeSecs + 1) {
		t.Error("feed past max age should be stale")
	}
	if !f.Fresh(tsSec) {
		t.Error("feed at write time should be fresh")
	}
}
