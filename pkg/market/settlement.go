package market

import (
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"

	"github.com/seojinlee/flipmarket/pkg/fixedpoint"
	"github.com/seojinlee/flipmarket/pkg/oracle"
)

// computePps fixes the payout-per-share for a settled market:
// pps = min(1e6, floor(vault * 1e6 / wTotal)), in 128-bit so an adversarial
// vault/supply combination cannot overflow on the way to the floor.
// Zero winning supply settles at pps = 0.
func computePps(vaultE6, wTotalE6 int64) int64 {
	if wTotalE6 <= 0 || vaultE6 <= 0 {
		return 0
	}
	n := new(big.Int).SetInt64(vaultE6)
	n.Mul(n, big.NewInt(fixedpoint.E6))
	n.Quo(n, big.NewInt(wTotalE6))
	if n.Cmp(big.NewInt(fixedpoint.E6)) > 0 {
		return fixedpoint.E6
	}
	return n.Int64()
}

// SettleMarket fixes the winner manually. Stopped markets only, once.
// Fee-destination authority only.
func (e *Engine) SettleMarket(admin solana.PublicKey, winner Winner) error {
	if winner != WinnerYes && winner != WinnerNo {
		return fmt.Errorf("%w: winner %d", ErrBadParam, winner)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	m := e.market
	if !m.FeeDest.Equals(admin) {
		return fmt.Errorf("%w: settle requires fee authority", ErrUnauthorized)
	}
	if m.Status != Stopped {
		return fmt.Errorf("%w: status %s", ErrWrongState, m.Status)
	}
	if m.Settled() {
		return fmt.Errorf("%w: already settled for %s", ErrWrongState, m.Winner)
	}
	e.settleLocked(winner, 0, e.clock.Now().Unix())
	return nil
}

// SettleByOracle settles against the oracle. geWinsYes picks the tie rule:
// true means YES wins when the settlement price is at or above the start
// price, false demands a strict rise.
func (e *Engine) SettleByOracle(feed *oracle.Feed, geWinsYes bool) error {
	if feed == nil {
		return ErrStaleOracle
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	m := e.market
	if m.Status != Stopped {
		return fmt.Errorf("%w: status %s", ErrWrongState, m.Status)
	}
	if m.Settled() {
		return fmt.Errorf("%w: already settled for %s", ErrWrongState, m.Winner)
	}
	if !m.Snapshotted() {
		return ErrNotSnapshotted
	}
	if !feed.Fresh(e.clock.Now().Unix()) {
		return ErrStaleOracle
	}
	price, tsMs := feed.BTCPriceE6()
	if price <= 0 {
		return fmt.Errorf("%w: oracle price %d", ErrBadParam, price)
	}
	winner := WinnerNo
	if price > m.StartPriceE6 || (geWinsYes && price == m.StartPriceE6) {
		winner = WinnerYes
	}
	e.settleLocked(winner, price, tsMs/1000)
	return nil
}

// settleLocked records the outcome and fixes the payout rate. Caller holds e.mu.
func (e *Engine) settleLocked(winner Winner, settlePriceE6, settleTs int64) {
	m := e.market
	w := m.Q(winner.Side())
	if w < 0 {
		w = 0
	}
	m.Winner = winner
	m.WTotalE6 = w
	m.PpsE6 = computePps(m.VaultE6, w)
	m.SettlePriceE6 = settlePriceE6
	m.SettleTs = settleTs
	e.persistMarket()
	e.log.Infow("market_settled",
		"winner", winner.String(),
		"w_total_e6", w,
		"pps_e6", m.PpsE6,
		"settle_price_e6", settlePriceE6)
}

// Redeem pays out owner's winning shares. The payout is the least of the
// theoretical claim, the vault mirror, and what the pool really holds above
// its reserve; shares are wiped even when the payout floors to zero, so a
// claim cannot be replayed later against a refilled pool.
func (e *Engine) Redeem(owner solana.PublicKey) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.redeemLocked(owner)
}

// AdminRedeem runs redemption on behalf of owner. Fee-destination authority.
func (e *Engine) AdminRedeem(admin, owner solana.PublicKey) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.market.FeeDest.Equals(admin) {
		return 0, fmt.Errorf("%w: admin redeem requires fee authority", ErrUnauthorized)
	}
	return e.redeemLocked(owner)
}

func (e *Engine) redeemLocked(owner solana.PublicKey) (int64, error) {
	m := e.market
	if m.Status != Stopped || !m.Settled() {
		return 0, fmt.Errorf("%w: market not settled", ErrWrongState)
	}
	p, ok := e.positions[owner]
	if !ok {
		return 0, fmt.Errorf("%w: no position for %s", ErrNotOwner, owner)
	}

	winShares := p.Shares(m.Winner.Side())
	clip := fixedpoint.Min(winShares, m.WTotalE6)

	// theoretical = clip * pps / 1e6, widened.
	t := new(big.Int).SetInt64(clip)
	t.Mul(t, big.NewInt(m.PpsE6))
	t.Quo(t, big.NewInt(fixedpoint.E6))
	theoretical := t.Int64()

	// Real capacity: pool lamports above the permanent reserve.
	var availReal int64
	if bal := e.ledger.Balance(m.Pool); bal > MinVaultLamports {
		availReal = fixedpoint.LamportsToE6(bal - MinVaultLamports)
	}

	paid := fixedpoint.Min(theoretical, fixedpoint.Min(m.VaultE6, availReal))
	if paid < 0 {
		paid = 0
	}

	if paid > 0 {
		if err := e.ledger.Transfer(m.Pool, p.Vault, fixedpoint.E6ToLamports(paid)); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrNoCoverage, err)
		}
		m.VaultE6 -= paid
		if m.VaultE6 < 0 {
			m.VaultE6 = 0
		}
		p.VaultBalanceE6 += paid
	}

	// Wipe the claim regardless of what was paid.
	p.YesSharesE6 = 0
	p.NoSharesE6 = 0

	e.persistMarket()
	e.persistPosition(p)
	e.log.Infow("redeemed",
		"owner", owner.String(),
		"win_shares_e6", winShares,
		"theoretical_e6", theoretical,
		"paid_e6", paid)
	return paid, nil
}

// CloseAmm drains the pool to the fee destination and retires the market.
// Stopped markets only; fee-destination authority.
func (e *Engine) CloseAmm(admin solana.PublicKey) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := e.market
	if !m.FeeDest.Equals(admin) {
		return 0, fmt.Errorf("%w: close requires fee authority", ErrUnauthorized)
	}
	if m.Status != Stopped {
		return 0, fmt.Errorf("%w: status %s", ErrWrongState, m.Status)
	}
	drained := e.ledger.Drain(m.Pool, m.FeeDest)
	m.VaultE6 = 0
	e.persistMarket()
	e.log.Infow("amm_closed", "drained_lamports", drained)
	return drained, nil
}
