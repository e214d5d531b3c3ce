package market

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/seojinlee/flipmarket/pkg/fixedpoint"
	"github.com/seojinlee/flipmarket/pkg/lmsr"
)

// Hard limits and timing parameters. Quantities are e6 fixed point.
const (
	MinBuyE6  int64 = 100_000 // 0.1 shares
	MinSellE6 int64 = 100_000

	// DQMaxE6 caps per-side share inventory; SpendMaxE6 caps a single spend.
	DQMaxE6    int64 = 50_000_000_000
	SpendMaxE6 int64 = 50_000_000_000

	// TradingLockoutSeconds blocks trading this close to market end.
	TradingLockoutSeconds int64 = 45

	// MinVaultLamports is the rent/ops reserve the pool never pays out.
	MinVaultLamports uint64 = 1_000_000_000
)

// PDA seeds, matching the deployed program's address derivation.
const (
	seedMarket    = "amm_btc_v6"
	seedPool      = "vault_sol"
	seedPosition  = "pos"
	seedUserVault = "user_vault"
)

// Status is the market lifecycle state.
type Status int8

const (
	Premarket Status = 0 // initialized, start price not yet snapshotted
	Open      Status = 1 // trading live
	Stopped   Status = 2 // trading halted; settlement and redemption phase
)

func (s Status) String() string {
	switch s {
	case Premarket:
		return "Premarket"
	case Open:
		return "Open"
	case Stopped:
		return "Stopped"
	default:
		return fmt.Sprintf("Status(%d)", int8(s))
	}
}

// Winner identifies the settled outcome. Unset until settlement.
type Winner int8

const (
	WinnerUnset Winner = 0
	WinnerYes   Winner = 1
	WinnerNo    Winner = 2
)

func (w Winner) String() string {
	switch w {
	case WinnerUnset:
		return "Unset"
	case WinnerYes:
		return "YES"
	case WinnerNo:
		return "NO"
	default:
		return fmt.Sprintf("Winner(%d)", int8(w))
	}
}

// Side returns the lmsr side corresponding to the winning outcome.
func (w Winner) Side() lmsr.Side {
	if w == WinnerYes {
		return lmsr.Yes
	}
	return lmsr.No
}

// Market is the full AMM state record for the BTC up/down market.
//
// VaultE6 mirrors the pool's lamport balance in e6 units. It is accounting
// only: coverage and redemption decisions read the real lamport ledger.
type Market struct {
	Address solana.PublicKey `json:"address"`
	Bump    uint8            `json:"bump"`
	Pool    solana.PublicKey `json:"pool"`
	PoolBump uint8           `json:"pool_bump"`

	Decimals int64 `json:"decimals"` // always 6
	B        int64 `json:"b"`        // LMSR liquidity, e6
	FeeBps   int64 `json:"fee_bps"`

	QYesE6  int64 `json:"q_yes_e6"`
	QNoE6   int64 `json:"q_no_e6"`
	FeesE6  int64 `json:"fees_e6"`
	VaultE6 int64 `json:"vault_e6"` // advisory mirror of pool lamports

	Status Status `json:"status"`
	Winner Winner `json:"winner"`

	WTotalE6 int64 `json:"w_total_e6"` // winning-side supply snapshot at settlement
	PpsE6    int64 `json:"pps_e6"`     // payout per winning share, ≤ 1e6

	FeeDest solana.PublicKey `json:"fee_dest"`

	StartPriceE6  int64 `json:"start_price_e6"`
	StartTs       int64 `json:"start_ts"` // unix seconds; 0 = not snapshotted
	SettlePriceE6 int64 `json:"settle_price_e6"`
	SettleTs      int64 `json:"settle_ts"`

	MarketEndTime int64 `json:"market_end_time"` // unix seconds; 0 = no end scheduled
}

// Curve returns the market's LMSR curve.
func (m *Market) Curve() lmsr.Curve { return lmsr.Curve{B: m.B} }

// Q returns the inventory of the given side.
func (m *Market) Q(side lmsr.Side) int64 {
	if side == lmsr.Yes {
		return m.QYesE6
	}
	return m.QNoE6
}

// Snapshotted reports whether the start price has been recorded.
func (m *Market) Snapshotted() bool { return m.StartTs != 0 }

// Settled reports whether a winner and payout rate have been fixed.
func (m *Market) Settled() bool { return m.Winner != WinnerUnset }

// Validate checks structural invariants on the record.
func (m *Market) Validate() error {
	if m.B <= 0 {
		return fmt.Errorf("%w: liquidity b must be positive", ErrBadParam)
	}
	if m.FeeBps < 0 || m.FeeBps >= fixedpoint.BpsDenom {
		return fmt.Errorf("%w: fee_bps %d out of range", ErrBadParam, m.FeeBps)
	}
	if m.QYesE6 < 0 || m.QNoE6 < 0 {
		return fmt.Errorf("%w: negative inventory", ErrBadParam)
	}
	if m.QYesE6 > DQMaxE6 || m.QNoE6 > DQMaxE6 {
		return fmt.Errorf("%w: inventory above cap", ErrBadParam)
	}
	if m.PpsE6 < 0 || m.PpsE6 > fixedpoint.E6 {
		return fmt.Errorf("%w: pps %d out of range", ErrBadParam, m.PpsE6)
	}
	return nil
}

// DeriveMarketPDA derives the market account address under programID.
func DeriveMarketPDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(seedMarket)}, programID)
}

// DerivePoolPDA derives the SOL pool address for a market.
func DerivePoolPDA(programID, marketAddr solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(seedPool), marketAddr.Bytes()}, programID)
}

// DerivePositionPDA derives a user's position account address.
func DerivePositionPDA(programID, marketAddr, owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{[]byte(seedPosition), marketAddr.Bytes(), owner.Bytes()}, programID)
}

// DeriveUserVaultPDA derives a user's SOL sub-vault address.
func DeriveUserVaultPDA(programID, marketAddr, owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{[]byte(seedUserVault), marketAddr.Bytes(), owner.Bytes()}, programID)
}
