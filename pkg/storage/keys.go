package storage

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Pebble key schema. Prefix-based so positions and trades range-scan cleanly;
// trade keys embed a zero-padded timestamp for lexicographic time order.
const (
	prefixMarket   = "mkt:"
	prefixPosition = "pos:"
	prefixTrade    = "trade:"
)

// marketKey returns the key for the market record.
// Format: "mkt:{address}"
func marketKey(addr solana.PublicKey) []byte {
	return []byte(prefixMarket + addr.String())
}

// positionKey returns the key for a position.
// Format: "pos:{owner}"
func positionKey(owner solana.PublicKey) []byte {
	return []byte(prefixPosition + owner.String())
}

// positionPrefix covers all positions.
func positionPrefix() []byte {
	return []byte(prefixPosition)
}

// tradeKey returns the key for a trade snapshot.
// Format: "trade:{timestamp:020d}:{user}:{seq}"
func tradeKey(timestamp int64, user solana.PublicKey, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s:%d", prefixTrade, timestamp, user.String(), seq))
}

// tradePrefix covers all trades.
func tradePrefix() []byte {
	return []byte(prefixTrade)
}

// keyUpperBound is the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
