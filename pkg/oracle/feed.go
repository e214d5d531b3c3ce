package oracle

import (
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/seojinlee/flipmarket/pkg/fixedpoint"
)

// The price feed account carries three samples per asset so a median can be
// taken against a single bad write. Layout (little-endian):
//
//	offset  size  field
//	0       8     account discriminator (skipped)
//	8       32    authority
//	40      48    BTC triplet: 3 x i64 price, 3 x i64 timestamp (ms)
//	88      48    ETH triplet
//	136     48    SOL triplet
//	184     1     decimals
//	185     1     bump
const (
	feedMinLen = 186

	// MaxAgeSecs is the freshness bound on the median sample timestamp.
	MaxAgeSecs int64 = 90
)

// Sample is one asset's tri-sample window.
type Sample struct {
	Prices     [3]int64
	Timestamps [3]int64 // unix milliseconds
}

// Feed is the decoded price feed account.
type Feed struct {
	Authority solana.PublicKey
	BTC       Sample
	ETH       Sample
	SOL       Sample
	Decimals  uint8
	Bump      uint8
}

// ParseFeed decodes a raw feed account. The 8-byte discriminator is skipped,
// not checked: the account owner check is the caller's job.
func ParseFeed(data []byte) (*Feed, error) {
	if len(data) < feedMinLen {
		return nil, fmt.Errorf("oracle: feed account too small: %d bytes, need %d", len(data), feedMinLen)
	}
	dec := bin.NewBinDecoder(data)
	if _, err := dec.ReadNBytes(8); err != nil {
		return nil, fmt.Errorf("oracle: discriminator: %w", err)
	}

	var f Feed
	auth, err := dec.ReadNBytes(32)
	if err != nil {
		return nil, fmt.Errorf("oracle: authority: %w", err)
	}
	f.Authority = solana.PublicKeyFromBytes(auth)

	for _, s := range []*Sample{&f.BTC, &f.ETH, &f.SOL} {
		for i := 0; i < 3; i++ {
			if s.Prices[i], err = dec.ReadInt64(bin.LE); err != nil {
				return nil, fmt.Errorf("oracle: price sample: %w", err)
			}
		}
		for i := 0; i < 3; i++ {
			if s.Timestamps[i], err = dec.ReadInt64(bin.LE); err != nil {
				return nil, fmt.Errorf("oracle: timestamp sample: %w", err)
			}
		}
	}

	if f.Decimals, err = dec.ReadByte(); err != nil {
		return nil, fmt.Errorf("oracle: decimals: %w", err)
	}
	if f.Bump, err = dec.ReadByte(); err != nil {
		return nil, fmt.Errorf("oracle: bump: %w", err)
	}
	return &f, nil
}

// Median3 returns the median of three values.
func Median3(a, b, c int64) int64 {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b = c
	}
	if a > b {
		b = a
	}
	return b
}

// Median returns the sample's median price and median timestamp, taken
// independently so one stuck writer cannot drag both.
func (s Sample) Median() (price, tsMs int64) {
	return Median3(s.Prices[0], s.Prices[1], s.Prices[2]),
		Median3(s.Timestamps[0], s.Timestamps[1], s.Timestamps[2])
}

// RescaleToE6 converts a price quoted with the given decimals to e6 scale,
// through a wide intermediate so 18-decimal feeds cannot overflow.
func RescaleToE6(price int64, decimals uint8) int64 {
	if decimals == 6 {
		return price
	}
	n := new(big.Int).SetInt64(price)
	n.Mul(n, big.NewInt(fixedpoint.E6))
	pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	n.Quo(n, pow)
	return n.Int64()
}

// BTCPriceE6 returns the median BTC price rescaled to e6 and its median
// timestamp in milliseconds.
func (f *Feed) BTCPriceE6() (priceE6, tsMs int64) {
	p, ts := f.BTC.Median()
	return RescaleToE6(p, f.Decimals), ts
}

// Fresh reports whether the median BTC timestamp is within MaxAgeSecs of
// nowSec. Feed timestamps are milliseconds.
func (f *Feed) Fresh(nowSec int64) bool {
	_, tsMs := f.BTC.Median()
	age := nowSec - tsMs/1000
	if age < 0 {
		age = -age // tolerate small writer clock skew ahead of us
	}
	return age <= MaxAgeSecs
}
