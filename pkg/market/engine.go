package market

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/seojinlee/flipmarket/pkg/fixedpoint"
	"github.com/seojinlee/flipmarket/pkg/lmsr"
	"github.com/seojinlee/flipmarket/pkg/oracle"
	"github.com/seojinlee/flipmarket/pkg/util"
	"github.com/seojinlee/flipmarket/pkg/vault"
)

// Persister receives state after every mutation. storage.Store implements it.
type Persister interface {
	SaveMarket(*Market) error
	SavePosition(*Position) error
	SaveTrade(*TradeSnapshot) error
}

// Engine executes every market operation against a single Market, the
// position set, and the lamport ledger. All public methods are safe for
// concurrent use.
type Engine struct {
	mu        sync.RWMutex
	market    *Market
	positions map[solana.PublicKey]*Position // keyed by owner

	ledger *vault.Ledger
	clock  util.Clock
	log    *zap.SugaredLogger
	store  Persister // optional

	// Callbacks fire after a successful mutation, outside no locks held by
	// the caller's view; wire these to the API broadcast layer.
	OnTrade          func(TradeSnapshot)
	OnOrderExecuted  func(LimitOrderExecuted)
	OnNonceCancelled func(OrderNonceCancelled)
}

// NewEngine assembles an engine around an initialized market.
func NewEngine(m *Market, ledger *vault.Ledger, clock util.Clock, logger *zap.SugaredLogger, store Persister) (*Engine, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{
		market:    m,
		positions: make(map[solana.PublicKey]*Position),
		ledger:    ledger,
		clock:     clock,
		log:       logger,
		store:     store,
	}, nil
}

// InitMarket builds a fresh market record with PDAs derived under programID.
// If the pool already holds lamports (re-initialization after a close), the
// balance is carried into the vault mirror so accounting starts consistent.
func InitMarket(programID, feeDest solana.PublicKey, b, feeBps int64, ledger *vault.Ledger) (*Market, error) {
	if b <= 0 {
		return nil, fmt.Errorf("%w: liquidity b must be positive", ErrBadParam)
	}
	if feeBps < 0 || feeBps >= fixedpoint.BpsDenom {
		return nil, fmt.Errorf("%w: fee_bps %d", ErrBadParam, feeBps)
	}
	if feeDest.IsZero() {
		return nil, fmt.Errorf("%w: fee destination unset", ErrBadParam)
	}
	addr, bump, err := DeriveMarketPDA(programID)
	if err != nil {
		return nil, fmt.Errorf("derive market pda: %w", err)
	}
	pool, poolBump, err := DerivePoolPDA(programID, addr)
	if err != nil {
		return nil, fmt.Errorf("derive pool pda: %w", err)
	}
	m := &Market{
		Address:  addr,
		Bump:     bump,
		Pool:     pool,
		PoolBump: poolBump,
		Decimals: 6,
		B:        b,
		FeeBps:   feeBps,
		FeeDest:  feeDest,
		Status:   Premarket,
	}
	if ledger != nil {
		m.VaultE6 = fixedpoint.LamportsToE6(ledger.Balance(pool))
	}
	return m, nil
}

// Market returns a copy of the current market state.
func (e *Engine) Market() Market {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return *e.market
}

// Ledger exposes the lamport ledger (read-side consumers: API, tests).
func (e *Engine) Ledger() *vault.Ledger { return e.ledger }

// InitPosition creates a position for owner controlled by master. Idempotent
// on the owner key: an existing position is returned unchanged.
func (e *Engine) InitPosition(programID, owner, master solana.PublicKey) (*Position, error) {
	if owner.IsZero() || master.IsZero() {
		return nil, fmt.Errorf("%w: owner/master unset", ErrBadParam)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.positions[owner]; ok {
		return p, nil
	}
	v, vBump, err := DeriveUserVaultPDA(programID, e.market.Address, owner)
	if err != nil {
		return nil, fmt.Errorf("derive user vault pda: %w", err)
	}
	p := NewPosition(owner, master, v, vBump)
	e.positions[owner] = p
	e.persistPosition(p)
	e.log.Infow("position_initialized", "owner", owner.String(), "vault", v.String())
	return p, nil
}

// Position returns a copy of owner's position.
func (e *Engine) Position(owner solana.PublicKey) (Position, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.positions[owner]
	if !ok {
		return Position{}, fmt.Errorf("%w: no position for %s", ErrNotOwner, owner)
	}
	cp := *p
	cp.UsedNonces = append([]uint64(nil), p.UsedNonces...)
	return cp, nil
}

// RestorePosition installs a persisted position (startup recovery path).
func (e *Engine) RestorePosition(p *Position) error {
	if err := p.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.positions[p.Owner] = p
	return nil
}

// Owners lists every position owner.
func (e *Engine) Owners() []solana.PublicKey {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]solana.PublicKey, 0, len(e.positions))
	for owner := range e.positions {
		out = append(out, owner)
	}
	return out
}

// ---- Funding ----

// Deposit moves lamports from the master wallet into owner's vault. Only the
// registered master may fund a position.
func (e *Engine) Deposit(owner, master solana.PublicKey, lamports uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.positions[owner]
	if !ok {
		return fmt.Errorf("%w: no position for %s", ErrNotOwner, owner)
	}
	if !p.MasterWallet.Equals(master) {
		return fmt.Errorf("%w: master mismatch", ErrUnauthorized)
	}
	if err := e.ledger.Transfer(master, p.Vault, lamports); err != nil {
		return fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
	}
	p.VaultBalanceE6 += fixedpoint.LamportsToE6(lamports)
	e.persistPosition(p)
	e.log.Infow("deposit", "owner", owner.String(), "lamports", lamports)
	return nil
}

// Withdraw moves lamports from owner's vault back to the master wallet only;
// withdrawals to arbitrary destinations are not a thing.
func (e *Engine) Withdraw(owner, master solana.PublicKey, lamports uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.positions[owner]
	if !ok {
		return fmt.Errorf("%w: no position for %s", ErrNotOwner, owner)
	}
	if !p.MasterWallet.Equals(master) {
		return fmt.Errorf("%w: withdrawals go to the master wallet", ErrUnauthorized)
	}
	want := fixedpoint.LamportsToE6(lamports)
	if p.VaultBalanceE6 < want {
		return fmt.Errorf("%w: mirror %d, want %d", ErrInsufficientBalance, p.VaultBalanceE6, want)
	}
	if err := e.ledger.Transfer(p.Vault, master, lamports); err != nil {
		return fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
	}
	p.VaultBalanceE6 -= want
	e.persistPosition(p)
	e.log.Infow("withdraw", "owner", owner.String(), "lamports", lamports)
	return nil
}

// TopUpSessionWallet funds a session signer from owner's vault; master-gated.
func (e *Engine) TopUpSessionWallet(owner, master, session solana.PublicKey, lamports uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.positions[owner]
	if !ok {
		return fmt.Errorf("%w: no position for %s", ErrNotOwner, owner)
	}
	if !p.MasterWallet.Equals(master) {
		return fmt.Errorf("%w: master mismatch", ErrUnauthorized)
	}
	want := fixedpoint.LamportsToE6(lamports)
	if p.VaultBalanceE6 < want {
		return fmt.Errorf("%w: mirror %d, want %d", ErrInsufficientBalance, p.VaultBalanceE6, want)
	}
	if err := e.ledger.Transfer(p.Vault, session, lamports); err != nil {
		return fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
	}
	p.VaultBalanceE6 -= want
	e.persistPosition(p)
	e.log.Infow("session_topup", "owner", owner.String(), "session", session.String(), "lamports", lamports)
	return nil
}

// ---- Quoting ----

// QuoteResult is a read-only pricing snapshot.
type QuoteResult struct {
	PriceYesE6 int64 `json:"price_yes_e6"`
	PriceNoE6  int64 `json:"price_no_e6"`
	SharesE6   int64 `json:"shares_e6"`
	NetE6      int64 `json:"net_e6"`
	FeeE6      int64 `json:"fee_e6"`
	GrossE6    int64 `json:"gross_e6"`
	AvgPriceE6 int64 `json:"avg_price_e6"`
}

// Quote prices a hypothetical trade without mutating anything.
func (e *Engine) Quote(side lmsr.Side, action Action, sharesE6 int64) (QuoteResult, error) {
	if !side.Valid() || !action.Valid() {
		return QuoteResult{}, fmt.Errorf("%w: side %d action %d", ErrBadParam, side, action)
	}
	if sharesE6 <= 0 {
		return QuoteResult{}, fmt.Errorf("%w: shares %d", ErrBadParam, sharesE6)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	m := e.market
	c := m.Curve()
	res := QuoteResult{
		PriceYesE6: c.PriceYes(m.QYesE6, m.QNoE6),
		SharesE6:   sharesE6,
	}
	res.PriceNoE6 = fixedpoint.E6 - res.PriceYesE6
	if action == Buy {
		res.NetE6 = c.BuyCost(side, m.QYesE6, m.QNoE6, sharesE6)
		res.GrossE6 = fixedpoint.GrossFromNet(res.NetE6, m.FeeBps)
		res.FeeE6 = res.GrossE6 - res.NetE6
		res.AvgPriceE6 = res.GrossE6 * fixedpoint.E6 / sharesE6
	} else {
		res.GrossE6 = c.SellProceeds(side, m.QYesE6, m.QNoE6, sharesE6)
		res.FeeE6, res.NetE6 = fixedpoint.FeeSplit(res.GrossE6, m.FeeBps)
		res.AvgPriceE6 = res.NetE6 * fixedpoint.E6 / sharesE6
	}
	return res, nil
}

// ---- Trading ----

// checkTradable enforces market state and the pre-end trading lockout.
// The lockout is judged on oracle time (milliseconds, the chain's clock for
// this market), not the local clock.
func (e *Engine) checkTradable(feed *oracle.Feed) error {
	m := e.market
	// Premarket trades are allowed: the market is live before the start
	// price snapshot, only a Stopped market refuses.
	if m.Status != Open && m.Status != Premarket {
		return fmt.Errorf("%w: status %s", ErrMarketClosed, m.Status)
	}
	if m.MarketEndTime > 0 {
		if feed == nil {
			return fmt.Errorf("%w: oracle required near market end", ErrStaleOracle)
		}
		if !feed.Fresh(e.clock.Now().Unix()) {
			return ErrStaleOracle
		}
		_, tsMs := feed.BTCPriceE6()
		if tsMs/1000 >= m.MarketEndTime-TradingLockoutSeconds {
			return fmt.Errorf("%w: %ds before end", ErrTradingLocked, TradingLockoutSeconds)
		}
	}
	return nil
}

// Trade executes a plain buy or sell. For buys, sharesE6 is the exact share
// quantity desired; the cost is derived from the curve (exact inverse), so
// quotes and fills agree.
func (e *Engine) Trade(owner solana.PublicKey, side lmsr.Side, action Action, sharesE6 int64, feed *oracle.Feed) (*TradeSnapshot, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("%w: side %d", ErrBadParam, side)
	}
	if !action.Valid() {
		return nil, fmt.Errorf("%w: action %d", ErrInvalidAction, action)
	}
	e.mu.Lock()
	snap, err := e.tradeLocked(owner, side, action, sharesE6, feed, true)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	e.emitTrade(*snap)
	return snap, nil
}

// tradeLocked validates and executes under e.mu.
func (e *Engine) tradeLocked(owner solana.PublicKey, side lmsr.Side, action Action, sharesE6 int64, feed *oracle.Feed, enforceMin bool) (*TradeSnapshot, error) {
	if err := e.checkTradable(feed); err != nil {
		return nil, err
	}
	p, ok := e.positions[owner]
	if !ok {
		return nil, fmt.Errorf("%w: no position for %s", ErrNotOwner, owner)
	}
	if action == Buy {
		return e.executeBuy(p, side, sharesE6, enforceMin)
	}
	return e.executeSell(p, side, sharesE6, enforceMin)
}

// executeBuy is the single buy mutation path; every trade variant and the
// limit-order executor funnel through here.
func (e *Engine) executeBuy(p *Position, side lmsr.Side, sharesE6 int64, enforceMin bool) (*TradeSnapshot, error) {
	m := e.market
	if enforceMin && sharesE6 < MinBuyE6 {
		return nil, fmt.Errorf("%w: buy %d below min %d", ErrBadParam, sharesE6, MinBuyE6)
	}
	if sharesE6 <= 0 {
		return nil, fmt.Errorf("%w: buy size %d", ErrBadParam, sharesE6)
	}
	if m.Q(side)+sharesE6 > DQMaxE6 {
		return nil, fmt.Errorf("%w: inventory cap", ErrBadParam)
	}
	c := m.Curve()
	net := c.BuyCost(side, m.QYesE6, m.QNoE6, sharesE6)
	if net > SpendMaxE6 {
		return nil, fmt.Errorf("%w: spend cap", ErrBadParam)
	}
	gross := fixedpoint.GrossFromNet(net, m.FeeBps)
	fee := gross - net
	if p.VaultBalanceE6 < gross {
		return nil, fmt.Errorf("%w: mirror %d, need %d", ErrInsufficientBalance, p.VaultBalanceE6, gross)
	}
	if err := e.ledger.Transfer(p.Vault, m.Pool, fixedpoint.E6ToLamports(net)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
	}
	if err := e.ledger.Transfer(p.Vault, m.FeeDest, fixedpoint.E6ToLamports(fee)); err != nil {
		// Undo the pool leg so a fee shortfall cannot leave a half-trade.
		_ = e.ledger.Transfer(m.Pool, p.Vault, fixedpoint.E6ToLamports(net))
		return nil, fmt.Errorf("%w: %v", ErrInsufficientBalance, err)
	}

	if side == lmsr.Yes {
		m.QYesE6 += sharesE6
	} else {
		m.QNoE6 += sharesE6
	}
	m.VaultE6 += net
	m.FeesE6 += fee
	p.addShares(side, sharesE6)
	p.VaultBalanceE6 -= gross
	if p.VaultBalanceE6 < 0 {
		p.VaultBalanceE6 = 0
	}

	snap := e.snapshot(p, side, Buy, sharesE6, gross, fee, net)
	e.persistTrade(p, &snap)
	return &snap, nil
}

// executeSell is the single sell mutation path. The size is clamped to
// holdings; coverage is checked against the pool's real lamports, never the
// vault mirror. The fee comes out of the gross proceeds: the user is paid net.
func (e *Engine) executeSell(p *Position, side lmsr.Side, sharesE6 int64, enforceMin bool) (*TradeSnapshot, error) {
	m := e.market
	held := p.Shares(side)
	if sharesE6 > held {
		sharesE6 = held
	}
	if sharesE6 <= 0 {
		return nil, fmt.Errorf("%w: no %s shares", ErrInsufficientShares, side)
	}
	if enforceMin && sharesE6 < MinSellE6 {
		return nil, fmt.Errorf("%w: sell %d below min %d", ErrBadParam, sharesE6, MinSellE6)
	}
	c := m.Curve()
	gross := c.SellProceeds(side, m.QYesE6, m.QNoE6, sharesE6)
	fee, net := fixedpoint.FeeSplit(gross, m.FeeBps)
	need := fixedpoint.E6ToLamports(gross)
	if e.ledger.Balance(m.Pool) < need {
		return nil, fmt.Errorf("%w: pool %d lamports, need %d", ErrNoCoverage, e.ledger.Balance(m.Pool), need)
	}
	if err := e.ledger.Transfer(m.Pool, p.Vault, fixedpoint.E6ToLamports(net)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCoverage, err)
	}
	if err := e.ledger.Transfer(m.Pool, m.FeeDest, fixedpoint.E6ToLamports(fee)); err != nil {
		// Undo the payout leg so a fee shortfall cannot leave a half-trade.
		_ = e.ledger.Transfer(p.Vault, m.Pool, fixedpoint.E6ToLamports(net))
		return nil, fmt.Errorf("%w: %v", ErrNoCoverage, err)
	}

	if side == lmsr.Yes {
		m.QYesE6 -= sharesE6
	} else {
		m.QNoE6 -= sharesE6
	}
	m.VaultE6 -= gross
	if m.VaultE6 < 0 {
		m.VaultE6 = 0
	}
	m.FeesE6 += fee
	p.addShares(side, -sharesE6)
	p.VaultBalanceE6 += net

	snap := e.snapshot(p, side, Sell, sharesE6, gross, fee, net)
	e.persistTrade(p, &snap)
	return &snap, nil
}

func (e *Engine) snapshot(p *Position, side lmsr.Side, action Action, shares, gross, fee, net int64) TradeSnapshot {
	m := e.market
	return TradeSnapshot{
		Market:     m.Address,
		User:       p.Owner,
		Side:       side,
		Action:     action,
		SharesE6:   shares,
		GrossE6:    gross,
		FeeE6:      fee,
		NetE6:      net,
		PriceYesE6: m.Curve().PriceYes(m.QYesE6, m.QNoE6),
		QYesE6:     m.QYesE6,
		QNoE6:      m.QNoE6,
		VaultE6:    m.VaultE6,
		Timestamp:  e.clock.Now().Unix(),
	}
}

// TradeGuarded executes a trade only if its average price respects the limit.
func (e *Engine) TradeGuarded(owner solana.PublicKey, cfg GuardConfig, side lmsr.Side, action Action, sharesE6 int64, feed *oracle.Feed) (*TradeSnapshot, error) {
	if !side.Valid() || !action.Valid() {
		return nil, fmt.Errorf("%w: side %d action %d", ErrBadParam, side, action)
	}
	e.mu.Lock()
	if err := e.market.CheckGuard(cfg, side, action, sharesE6); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	snap, err := e.tradeLocked(owner, side, action, sharesE6, feed, true)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	e.emitTrade(*snap)
	return snap, nil
}

// TradeWithSlippage derives an absolute limit from the live curve price and
// delegates to the guarded path.
func (e *Engine) TradeWithSlippage(owner solana.PublicKey, cfg SlippageConfig, side lmsr.Side, action Action, sharesE6 int64, feed *oracle.Feed) (*TradeSnapshot, error) {
	e.mu.RLock()
	limit, err := e.market.SlippageLimit(cfg, side, action)
	e.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return e.TradeGuarded(owner, GuardConfig{PriceLimitE6: limit}, side, action, sharesE6, feed)
}

// TradeAdvanced validates the combined guard set, optionally searches for the
// largest executable partial fill, and executes through the common core.
func (e *Engine) TradeAdvanced(owner solana.PublicKey, cfg *AdvancedGuardConfig, side lmsr.Side, action Action, sharesE6 int64, feed *oracle.Feed) (*TradeSnapshot, error) {
	if !side.Valid() || !action.Valid() {
		return nil, fmt.Errorf("%w: side %d action %d", ErrBadParam, side, action)
	}
	e.mu.Lock()
	now := e.clock.Now().Unix()
	fill, err := e.market.FindMaxExecutableShares(cfg, side, action, sharesE6, now)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	snap, err := e.tradeLocked(owner, side, action, fill, feed, true)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	e.emitTrade(*snap)
	return snap, nil
}

// ClosePosition sells the full YES then NO holdings through the normal sell
// path, without the minimum-size floor so dust positions can be flattened.
func (e *Engine) ClosePosition(owner solana.PublicKey, feed *oracle.Feed) ([]*TradeSnapshot, error) {
	e.mu.Lock()
	p, ok := e.positions[owner]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: no position for %s", ErrNotOwner, owner)
	}
	var snaps []*TradeSnapshot
	for _, side := range []lmsr.Side{lmsr.Yes, lmsr.No} {
		held := p.Shares(side)
		if held == 0 {
			continue
		}
		snap, err := e.tradeLocked(owner, side, Sell, held, feed, false)
		if err != nil {
			e.mu.Unlock()
			return snaps, err
		}
		snaps = append(snaps, snap)
	}
	e.mu.Unlock()
	for _, s := range snaps {
		e.emitTrade(*s)
	}
	return snaps, nil
}

// ---- Admin ----

// StopMarket halts trading. Fee-destination authority only.
func (e *Engine) StopMarket(authority solana.PublicKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.market.FeeDest.Equals(authority) {
		return fmt.Errorf("%w: stop requires fee authority", ErrUnauthorized)
	}
	if e.market.Status != Open && e.market.Status != Premarket {
		return fmt.Errorf("%w: status %s", ErrWrongState, e.market.Status)
	}
	e.market.Status = Stopped
	e.persistMarket()
	e.log.Infow("market_stopped")
	return nil
}

// SetMarketEndTime schedules the trading end. Fee-destination authority only.
func (e *Engine) SetMarketEndTime(authority solana.PublicKey, endTime int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.market.FeeDest.Equals(authority) {
		return fmt.Errorf("%w: end time requires fee authority", ErrUnauthorized)
	}
	if endTime < 0 {
		return fmt.Errorf("%w: end time %d", ErrBadParam, endTime)
	}
	e.market.MarketEndTime = endTime
	e.persistMarket()
	e.log.Infow("market_end_set", "end_time", endTime)
	return nil
}

// SnapshotStart records the opening BTC price from a fresh oracle feed and
// opens trading. Premarket only, once.
func (e *Engine) SnapshotStart(feed *oracle.Feed) error {
	if feed == nil {
		return ErrStaleOracle
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	m := e.market
	if m.Status != Premarket {
		return fmt.Errorf("%w: status %s", ErrWrongState, m.Status)
	}
	if m.Snapshotted() {
		return ErrAlreadySnapshotted
	}
	now := e.clock.Now().Unix()
	if !feed.Fresh(now) {
		return ErrStaleOracle
	}
	price, tsMs := feed.BTCPriceE6()
	if price <= 0 {
		return fmt.Errorf("%w: oracle price %d", ErrBadParam, price)
	}
	m.StartPriceE6 = price
	m.StartTs = tsMs / 1000
	m.Status = Open
	e.persistMarket()
	e.log.Infow("start_snapshotted", "price_e6", price, "ts", m.StartTs)
	return nil
}

// WipePosition zeroes a position's shares. Admin (fee destination) only;
// operational escape hatch for stuck accounts.
func (e *Engine) WipePosition(admin, owner solana.PublicKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.market.FeeDest.Equals(admin) {
		return fmt.Errorf("%w: wipe requires fee authority", ErrUnauthorized)
	}
	p, ok := e.positions[owner]
	if !ok {
		return fmt.Errorf("%w: no position for %s", ErrNotOwner, owner)
	}
	p.YesSharesE6 = 0
	p.NoSharesE6 = 0
	e.persistPosition(p)
	e.log.Infow("position_wiped", "owner", owner.String())
	return nil
}

// ---- internal plumbing ----

func (e *Engine) emitTrade(snap TradeSnapshot) {
	if e.OnTrade != nil {
		e.OnTrade(snap)
	}
}

func (e *Engine) persistMarket() {
	if e.store == nil {
		return
	}
	if err := e.store.SaveMarket(e.market); err != nil {
		e.log.Errorw("persist_market_failed", "err", err)
	}
}

func (e *Engine) persistPosition(p *Position) {
	if e.store == nil {
		return
	}
	if err := e.store.SavePosition(p); err != nil {
		e.log.Errorw("persist_position_failed", "owner", p.Owner.String(), "err", err)
	}
}

func (e *Engine) persistTrade(p *Position, snap *TradeSnapshot) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveMarket(e.market); err != nil {
		e.log.Errorw("persist_market_failed", "err", err)
	}
	if err := e.store.SavePosition(p); err != nil {
		e.log.Errorw("persist_position_failed", "owner", p.Owner.String(), "err", err)
	}
	if err := e.store.SaveTrade(snap); err != nil {
		e.log.Errorw("persist_trade_failed", "err", err)
	}
}
