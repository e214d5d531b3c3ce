package market

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/seojinlee/flipmarket/pkg/fixedpoint"
	"github.com/seojinlee/flipmarket/pkg/lmsr"
	"github.com/seojinlee/flipmarket/pkg/oracle"
	"github.com/seojinlee/flipmarket/pkg/order"
)

// ExecuteLimitOrder runs a keeper-submitted signed order through the normal
// trade core. The signature is verified against the order's user key before
// anything else is trusted; fills go through the same guard search and the
// same buy/sell mutation path as interactive trades, so an order can never
// do something a direct trade could not.
func (e *Engine) ExecuteLimitOrder(signed *order.Signed, keeper solana.PublicKey, feed *oracle.Feed) (*LimitOrderExecuted, error) {
	o := &signed.Order
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadParam, err)
	}
	if err := o.Verify(signed.Signature); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	side := lmsr.Side(o.Side)
	action := Action(o.Action)

	e.mu.Lock()
	if !e.market.Address.Equals(o.Market) {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: order market %s", ErrWrongMarket, o.Market)
	}
	p, ok := e.positions[o.User]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: no position for order user %s", ErrWrongUser, o.User)
	}
	now := e.clock.Now().Unix()
	if o.ExpiryTs > 0 && now > o.ExpiryTs {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: expiry %d now %d", ErrOrderExpired, o.ExpiryTs, now)
	}
	if p.NonceUsed(o.Nonce) {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrNonceAlreadyUsed, o.Nonce)
	}

	cfg := &AdvancedGuardConfig{
		PriceLimitE6:    int64(o.LimitPriceE6),
		AllowPartial:    true,
		MinFillSharesE6: int64(o.SharesE6) * int64(o.MinFillBps) / fixedpoint.BpsDenom,
	}
	if action == Buy {
		cfg.MaxTotalCostE6 = int64(o.MaxCostE6)
	}

	fill, err := e.market.FindMaxExecutableShares(cfg, side, action, int64(o.SharesE6), now)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	// Sells carry a proceeds floor, scaled to the filled fraction so a
	// permitted partial fill is not rejected for being partial.
	if action == Sell && o.MinProceedsE6 > 0 {
		quoted := e.market.quoter().gross(side, Sell, fill)
		floor := int64(o.MinProceedsE6) * fill / int64(o.SharesE6)
		if quoted < floor {
			e.mu.Unlock()
			return nil, fmt.Errorf("%w: proceeds %d floor %d", ErrPriceLimitNotMet, quoted, floor)
		}
	}

	snap, err := e.tradeLocked(o.User, side, action, fill, feed, true)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	// Keeper fee comes out of the user vault on top of the trade legs.
	keeperFee := fixedpoint.ApplyBps(snap.GrossE6, int64(o.KeeperFeeBps))
	if keeper.IsZero() {
		keeperFee = 0
	}
	if keeperFee > 0 {
		if err := e.ledger.Transfer(p.Vault, keeper, fixedpoint.E6ToLamports(keeperFee)); err != nil {
			e.log.Warnw("keeper_fee_unpaid", "keeper", keeper.String(), "err", err)
			keeperFee = 0
		} else {
			p.VaultBalanceE6 -= keeperFee
			if p.VaultBalanceE6 < 0 {
				p.VaultBalanceE6 = 0
			}
		}
	}

	if err := p.RecordNonce(o.Nonce); err != nil {
		// Checked above under the same lock; unreachable, but never drop it.
		e.mu.Unlock()
		return nil, err
	}
	e.persistPosition(p)

	exec := LimitOrderExecuted{
		Market:         e.market.Address,
		User:           o.User,
		Keeper:         keeper,
		Nonce:          o.Nonce,
		Side:           side,
		Action:         action,
		FilledSharesE6: snap.SharesE6,
		GrossE6:        snap.GrossE6,
		KeeperFeeE6:    keeperFee,
		Timestamp:      now,
	}
	e.mu.Unlock()

	e.emitTrade(*snap)
	if e.OnOrderExecuted != nil {
		e.OnOrderExecuted(exec)
	}
	e.log.Infow("limit_order_executed",
		"user", o.User.String(),
		"nonce", o.Nonce,
		"filled_e6", exec.FilledSharesE6,
		"gross_e6", exec.GrossE6,
		"keeper_fee_e6", keeperFee)
	return &exec, nil
}

// CancelOrderNonce burns a nonce so any outstanding order carrying it can
// never execute. Owner-authorized.
func (e *Engine) CancelOrderNonce(owner solana.PublicKey, nonce uint64) error {
	e.mu.Lock()
	p, ok := e.positions[owner]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: no position for %s", ErrNotOwner, owner)
	}
	if err := p.RecordNonce(nonce); err != nil {
		e.mu.Unlock()
		return err
	}
	e.persistPosition(p)
	evt := OrderNonceCancelled{
		Market:    e.market.Address,
		User:      owner,
		Nonce:     nonce,
		Timestamp: e.clock.Now().Unix(),
	}
	e.mu.Unlock()

	if e.OnNonceCancelled != nil {
		e.OnNonceCancelled(evt)
	}
	e.log.Infow("order_nonce_cancelled", "owner", owner.String(), "nonce", nonce)
	return nil
}
