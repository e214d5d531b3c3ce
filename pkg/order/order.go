package order

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// LimitOrder is the keeper-executable order a user signs off-band. The borsh
// encoding of this struct, in field order, is the exact signing payload; the
// signature is a detached 64-byte ed25519 signature by the User key.
type LimitOrder struct {
	Market solana.PublicKey `json:"market"`
	User   solana.PublicKey `json:"user"`

	Action uint8 `json:"action"` // 1=BUY, 2=SELL
	Side   uint8 `json:"side"`   // 1=YES, 2=NO

	SharesE6     uint64 `json:"shares_e6"`
	LimitPriceE6 uint64 `json:"limit_price_e6"` // avg-price bound

	MaxCostE6     uint64 `json:"max_cost_e6"`     // buys: gross spend cap (0 = none)
	MinProceedsE6 uint64 `json:"min_proceeds_e6"` // sells: proceeds floor (0 = none)

	ExpiryTs int64  `json:"expiry_ts"` // unix seconds; 0 = never expires
	Nonce    uint64 `json:"nonce"`

	KeeperFeeBps uint16 `json:"keeper_fee_bps"`
	MinFillBps   uint16 `json:"min_fill_bps"` // of SharesE6; partial-fill floor
}

// SignatureLen is the detached ed25519 signature size.
const SignatureLen = 64

// Serialize returns the canonical borsh signing payload.
func (o *LimitOrder) Serialize() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(o); err != nil {
		return nil, fmt.Errorf("order: serialize: %w", err)
	}
	return buf.Bytes(), nil
}

// Deserialize decodes a borsh order payload.
func Deserialize(data []byte) (*LimitOrder, error) {
	var o LimitOrder
	if err := bin.NewBorshDecoder(data).Decode(&o); err != nil {
		return nil, fmt.Errorf("order: deserialize: %w", err)
	}
	return &o, nil
}

// Sign produces the detached signature over the canonical payload.
func (o *LimitOrder) Sign(key solana.PrivateKey) (solana.Signature, error) {
	payload, err := o.Serialize()
	if err != nil {
		return solana.Signature{}, err
	}
	sig, err := key.Sign(payload)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("order: sign: %w", err)
	}
	return sig, nil
}

// Verify checks the detached signature against the order's User key. The
// user key is the signer; there is no delegation indirection here.
func (o *LimitOrder) Verify(sig solana.Signature) error {
	payload, err := o.Serialize()
	if err != nil {
		return err
	}
	if !ed25519.Verify(ed25519.PublicKey(o.User.Bytes()), payload, sig[:]) {
		return fmt.Errorf("order: signature does not verify for user %s", o.User)
	}
	return nil
}

// Validate checks field-level sanity independent of market state.
func (o *LimitOrder) Validate() error {
	if o.Market.IsZero() || o.User.IsZero() {
		return fmt.Errorf("order: market/user unset")
	}
	if o.Action != 1 && o.Action != 2 {
		return fmt.Errorf("order: action %d", o.Action)
	}
	if o.Side != 1 && o.Side != 2 {
		return fmt.Errorf("order: side %d", o.Side)
	}
	if o.SharesE6 == 0 {
		return fmt.Errorf("order: zero shares")
	}
	if o.LimitPriceE6 == 0 {
		return fmt.Errorf("order: zero limit price")
	}
	if o.KeeperFeeBps >= 10_000 || o.MinFillBps > 10_000 {
		return fmt.Errorf("order: bps out of range")
	}
	if o.Action == 1 && o.MinProceedsE6 != 0 {
		return fmt.Errorf("order: proceeds floor on a buy")
	}
	if o.Action == 2 && o.MaxCostE6 != 0 {
		return fmt.Errorf("order: cost cap on a sell")
	}
	return nil
}

// Signed bundles an order with its signature for transport.
type Signed struct {
	Order     LimitOrder       `json:"order"`
	Signature solana.Signature `json:"signature"`
}
