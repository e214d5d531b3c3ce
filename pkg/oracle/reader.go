package oracle

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Reader fetches and decodes the price feed account over RPC.
type Reader struct {
	client *rpc.Client
	feed   solana.PublicKey
	owner  solana.PublicKey // expected program owner of the feed account
}

// NewReader builds a reader against the given RPC endpoint.
func NewReader(endpoint string, feed, owner solana.PublicKey) *Reader {
	return &Reader{
		client: rpc.New(endpoint),
		feed:   feed,
		owner:  owner,
	}
}

// Fetch pulls the current feed account and decodes it. The account owner is
// verified against the expected program before any byte is trusted.
func (r *Reader) Fetch(ctx context.Context) (*Feed, error) {
	res, err := r.client.GetAccountInfo(ctx, r.feed)
	if err != nil {
		return nil, fmt.Errorf("oracle: fetch feed %s: %w", r.feed, err)
	}
	if res.Value == nil {
		return nil, fmt.Errorf("oracle: feed account %s not found", r.feed)
	}
	if !r.owner.IsZero() && !res.Value.Owner.Equals(r.owner) {
		return nil, fmt.Errorf("oracle: feed %s owned by %s, want %s", r.feed, res.Value.Owner, r.owner)
	}
	data := res.Value.Data.GetBinary()
	return ParseFeed(data)
}
