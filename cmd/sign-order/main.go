package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/seojinlee/flipmarket/pkg/order"
)

// Builds and signs a limit order from the command line, printing the JSON
// body that POST /api/v1/orders accepts. With no -key, a throwaway keypair
// is generated.
func main() {
	var (
		keyPath = flag.String("key", "", "path to a Solana keypair file (JSON array); empty = generate")
		mkt     = flag.String("market", "", "market address (base58)")
		action  = flag.Uint("action", 1, "1=BUY, 2=SELL")
		side    = flag.Uint("side", 1, "1=YES, 2=NO")
		shares  = flag.Uint64("shares", 1_000_000, "shares, e6")
		limit   = flag.Uint64("limit", 550_000, "average price limit, e6")
		maxCost = flag.Uint64("max-cost", 0, "gross cost cap, e6 (buys)")
		minProc = flag.Uint64("min-proceeds", 0, "proceeds floor, e6 (sells)")
		ttl     = flag.Duration("ttl", time.Hour, "order lifetime")
		nonce   = flag.Uint64("nonce", 0, "replay nonce; 0 = derive from time")
		keepBps = flag.Uint("keeper-fee-bps", 10, "keeper fee, bps")
		fillBps = flag.Uint("min-fill-bps", 0, "minimum fill fraction, bps")
	)
	flag.Parse()

	var key solana.PrivateKey
	var err error
	if *keyPath != "" {
		key, err = solana.PrivateKeyFromSolanaKeygenFile(*keyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load key: %v\n", err)
			os.Exit(1)
		}
	} else {
		w := solana.NewWallet()
		key = w.PrivateKey
		fmt.Printf("Generated keypair\n")
		fmt.Printf("  Pubkey:      %s\n", w.PublicKey())
		fmt.Printf("  Private key: %s (KEEP SECRET)\n\n", key.String())
	}

	marketKey := solana.PublicKey{}
	if *mkt != "" {
		if marketKey, err = solana.PublicKeyFromBase58(*mkt); err != nil {
			fmt.Fprintf(os.Stderr, "bad market address: %v\n", err)
			os.Exit(1)
		}
	}

	n := *nonce
	if n == 0 {
		n = uint64(time.Now().UnixNano())
	}

	o := order.LimitOrder{
		Market:        marketKey,
		User:          key.PublicKey(),
		Action:        uint8(*action),
		Side:          uint8(*side),
		SharesE6:      *shares,
		LimitPriceE6:  *limit,
		MaxCostE6:     *maxCost,
		MinProceedsE6: *minProc,
		ExpiryTs:      time.Now().Add(*ttl).Unix(),
		Nonce:         n,
		KeeperFeeBps:  uint16(*keepBps),
		MinFillBps:    uint16(*fillBps),
	}
	if err := o.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid order: %v\n", err)
		os.Exit(1)
	}

	sig, err := o.Sign(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		os.Exit(1)
	}
	if err := o.Verify(sig); err != nil {
		fmt.Fprintf(os.Stderr, "self-verify failed: %v\n", err)
		os.Exit(1)
	}

	body, err := json.MarshalIndent(order.Signed{Order: o, Signature: sig}, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Signed order:")
	fmt.Println(string(body))
	fmt.Println()
	fmt.Println("Submit with:")
	fmt.Println("  POST http://localhost:8080/api/v1/orders")
}
