package market

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/seojinlee/flipmarket/pkg/fixedpoint"
	"github.com/seojinlee/flipmarket/pkg/order"
)

// orderRig extends the basic rig with a signing user the keeper acts for.
type orderRig struct {
	*testRig
	wallet *solana.Wallet
	keeper solana.PublicKey
}

func newOrderRig(t *testing.T) *orderRig {
	t.Helper()
	r := newRig(t)
	wallet := solana.NewWallet()
	master := solana.NewWallet().PublicKey()
	if _, err := r.engine.InitPosition(r.programID, wallet.PublicKey(), master); err != nil {
		t.Fatalf("InitPosition: %v", err)
	}
	r.ledger.Credit(master, 100_000_000_000)
	if err := r.engine.Deposit(wallet.PublicKey(), master, 100_000_000_000); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	return &orderRig{testRig: r, wallet: wallet, keeper: solana.NewWallet().PublicKey()}
}

func (r *orderRig) signedOrder(t *testing.T, o order.LimitOrder) *order.Signed {
	t.Helper()
	o.Market = r.engine.Market().Address
	o.User = r.wallet.PublicKey()
	sig, err := o.Sign(r.wallet.PrivateKey)
	if err != nil {
		t.Fatalf("sign order: %v", err)
	}
	return &order.Signed{Order: o, Signature: sig}
}

func TestExecuteLimitOrderBuy(t *testing.T) {
	r := newOrderRig(t)
	signed := r.signedOrder(t, order.LimitOrder{
		Action:       1,
		Side:         1,
		SharesE6:     1_000_000,
		LimitPriceE6: 900_000,
		ExpiryTs:     testNow + 600,
		Nonce:        7,
		KeeperFeeBps: 10,
	})

	exec, err := r.engine.ExecuteLimitOrder(signed, r.keeper, nil)
	if err != nil {
		t.Fatalf("ExecuteLimitOrder: %v", err)
	}
	if exec.FilledSharesE6 != 1_000_000 {
		t.Errorf("filled = %d", exec.FilledSharesE6)
	}
	wantFee := fixedpoint.ApplyBps(exec.GrossE6, 10)
	if exec.KeeperFeeE6 != wantFee {
		t.Errorf("keeper fee = %d, want %d", exec.KeeperFeeE6, wantFee)
	}
	if got := r.ledger.Balance(r.keeper); got != fixedpoint.E6ToLamports(wantFee) {
		t.Errorf("keeper lamports = %d", got)
	}
	p, _ := r.engine.Position(r.wallet.PublicKey())
	if p.YesSharesE6 != 1_000_000 {
		t.Errorf("position shares = %d", p.YesSharesE6)
	}
	if !p.NonceUsed(7) {
		t.Error("nonce not recorded")
	}

	// Same order again: replay refused.
	if _, err := r.engine.ExecuteLimitOrder(signed, r.keeper, nil); !errors.Is(err, ErrNonceAlreadyUsed) {
		t.Errorf("replay: err = %v", err)
	}
}

func TestExecuteLimitOrderPartialFill(t *testing.T) {
	r := newOrderRig(t)
	// The limit sits above the fee-inclusive spot (~526k with the 5% fee)
	// but far below what a 10k-share sweep would average.
	signed := r.signedOrder(t, order.LimitOrder{
		Action:       1,
		Side:         1,
		SharesE6:     10_000_000_000,
		LimitPriceE6: 560_000,
		Nonce:        8,
	})

	exec, err := r.engine.ExecuteLimitOrder(signed, r.keeper, nil)
	if err != nil {
		t.Fatalf("ExecuteLimitOrder: %v", err)
	}
	if exec.FilledSharesE6 <= 0 || exec.FilledSharesE6 >= 10_000_000_000 {
		t.Fatalf("filled = %d, want a proper partial", exec.FilledSharesE6)
	}
	// The executed average price respects the order's limit.
	avg := exec.GrossE6 * fixedpoint.E6 / exec.FilledSharesE6
	if avg > fixedpoint.MulBpsUp(560_000, GuardToleranceBps) {
		t.Errorf("executed avg %d over limit", avg)
	}
}

func TestExecuteLimitOrderSellProceedsFloor(t *testing.T) {
	r := newOrderRig(t)
	if _, err := r.engine.Trade(r.wallet.PublicKey(), 1, Buy, 10_000_000, nil); err != nil {
		t.Fatalf("seed buy: %v", err)
	}

	// A floor demanding more than the curve pays is refused.
	signed := r.signedOrder(t, order.LimitOrder{
		Action:        2,
		Side:          1,
		SharesE6:      10_000_000,
		LimitPriceE6:  400_000,
		MinProceedsE6: 9_000_000, // ~0.9 per share; curve pays ~0.5
		Nonce:         9,
	})
	if _, err := r.engine.ExecuteLimitOrder(signed, r.keeper, nil); !errors.Is(err, ErrPriceLimitNotMet) {
		t.Errorf("greedy proceeds floor: err = %v", err)
	}

	// An achievable floor executes.
	signed = r.signedOrder(t, order.LimitOrder{
		Action:        2,
		Side:          1,
		SharesE6:      10_000_000,
		LimitPriceE6:  400_000,
		MinProceedsE6: 4_000_000,
		Nonce:         10,
	})
	exec, err := r.engine.ExecuteLimitOrder(signed, r.keeper, nil)
	if err != nil {
		t.Fatalf("ExecuteLimitOrder sell: %v", err)
	}
	if exec.GrossE6 < 4_000_000 {
		t.Errorf("proceeds %d under floor", exec.GrossE6)
	}
}

func TestExecuteLimitOrderRejections(t *testing.T) {
	r := newOrderRig(t)
	base := order.LimitOrder{
		Action:       1,
		Side:         1,
		SharesE6:     1_000_000,
		LimitPriceE6: 900_000,
		Nonce:        11,
	}

	// Tampered after signing.
	signed := r.signedOrder(t, base)
	signed.Order.SharesE6 = 2_000_000
	if _, err := r.engine.ExecuteLimitOrder(signed, r.keeper, nil); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("tampered order: err = %v", err)
	}

	// Structurally invalid (zero limit) fails before signature checks.
	bad := base
	bad.LimitPriceE6 = 0
	signed = r.signedOrder(t, bad)
	if _, err := r.engine.ExecuteLimitOrder(signed, r.keeper, nil); !errors.Is(err, ErrBadParam) {
		t.Errorf("invalid order: err = %v", err)
	}

	// Wrong market.
	signed = r.signedOrder(t, base)
	signed.Order.Market = solana.NewWallet().PublicKey()
	resigned, err := signed.Order.Sign(r.wallet.PrivateKey)
	if err != nil {
		t.Fatalf("re-sign: %v", err)
	}
	signed.Signature = resigned
	if _, err := r.engine.ExecuteLimitOrder(signed, r.keeper, nil); !errors.Is(err, ErrWrongMarket) {
		t.Errorf("wrong market: err = %v", err)
	}

	// Signer without a position.
	foreign := solana.NewWallet()
	o := base
	o.Market = r.engine.Market().Address
	o.User = foreign.PublicKey()
	sig, err := o.Sign(foreign.PrivateKey)
	if err != nil {
		t.Fatalf("foreign sign: %v", err)
	}
	if _, err := r.engine.ExecuteLimitOrder(&order.Signed{Order: o, Signature: sig}, r.keeper, nil); !errors.Is(err, ErrWrongUser) {
		t.Errorf("unknown user: err = %v", err)
	}

	// Expired.
	exp := base
	exp.ExpiryTs = testNow - 1
	signed = r.signedOrder(t, exp)
	if _, err := r.engine.ExecuteLimitOrder(signed, r.keeper, nil); !errors.Is(err, ErrOrderExpired) {
		t.Errorf("expired order: err = %v", err)
	}
}

func TestCancelOrderNonce(t *testing.T) {
	r := newOrderRig(t)

	if err := r.engine.CancelOrderNonce(r.wallet.PublicKey(), 55); err != nil {
		t.Fatalf("CancelOrderNonce: %v", err)
	}
	// The cancelled nonce can never execute.
	signed := r.signedOrder(t, order.LimitOrder{
		Action:       1,
		Side:         1,
		SharesE6:     1_000_000,
		LimitPriceE6: 900_000,
		Nonce:        55,
	})
	if _, err := r.engine.ExecuteLimitOrder(signed, r.keeper, nil); !errors.Is(err, ErrNonceAlreadyUsed) {
		t.Errorf("cancelled nonce executed: err = %v", err)
	}
	// Double cancel is refused too.
	if err := r.engine.CancelOrderNonce(r.wallet.PublicKey(), 55); !errors.Is(err, ErrNonceAlreadyUsed) {
		t.Errorf("double cancel: err = %v", err)
	}
	// Unknown owner.
	if err := r.engine.CancelOrderNonce(solana.NewWallet().PublicKey(), 1); !errors.Is(err, ErrNotOwner) {
		t.Errorf("unknown owner cancel: err = %v", err)
	}
}

func TestExecuteLimitOrderKeeperless(t *testing.T) {
	r := newOrderRig(t)
	signed := r.signedOrder(t, order.LimitOrder{
		Action:       1,
		Side:         1,
		SharesE6:     1_000_000,
		LimitPriceE6: 900_000,
		Nonce:        12,
		KeeperFeeBps: 50,
	})
	// A zero keeper key executes the trade but pays no fee.
	exec, err := r.engine.ExecuteLimitOrder(signed, solana.PublicKey{}, nil)
	if err != nil {
		t.Fatalf("ExecuteLimitOrder: %v", err)
	}
	if exec.KeeperFeeE6 != 0 {
		t.Errorf("keeper fee = %d without a keeper", exec.KeeperFeeE6)
	}
	if r.ledger.Balance(solana.PublicKey{}) != 0 {
		t.Error("lamports paid to the zero address")
	}
}
