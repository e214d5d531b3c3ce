package market

import (
	"github.com/gagliardetto/solana-go"

	"github.com/seojinlee/flipmarket/pkg/lmsr"
)

// TradeSnapshot records one executed trade and the post-trade curve state.
type TradeSnapshot struct {
	Market solana.PublicKey `json:"market"`
	User   solana.PublicKey `json:"user"`

	Side   lmsr.Side `json:"side"`
	Action Action    `json:"action"`

	SharesE6 int64 `json:"shares_e6"`
	GrossE6  int64 `json:"gross_e6"` // user-paid (buy) or user-received (sell)
	FeeE6    int64 `json:"fee_e6"`
	NetE6    int64 `json:"net_e6"` // curve-side amount

	PriceYesE6 int64 `json:"price_yes_e6"` // post-trade
	QYesE6     int64 `json:"q_yes_e6"`
	QNoE6      int64 `json:"q_no_e6"`
	VaultE6    int64 `json:"vault_e6"`

	Timestamp int64 `json:"timestamp"` // unix seconds
}

// LimitOrderExecuted records a keeper-driven order execution.
type LimitOrderExecuted struct {
	Market solana.PublicKey `json:"market"`
	User   solana.PublicKey `json:"user"`
	Keeper solana.PublicKey `json:"keeper"`

	Nonce          uint64    `json:"nonce"`
	Side           lmsr.Side `json:"side"`
	Action         Action    `json:"action"`
	FilledSharesE6 int64     `json:"filled_shares_e6"`
	GrossE6        int64     `json:"gross_e6"`
	KeeperFeeE6    int64     `json:"keeper_fee_e6"`

	Timestamp int64 `json:"timestamp"`
}

// OrderNonceCancelled records an owner-initiated nonce burn.
type OrderNonceCancelled struct {
	Market solana.PublicKey `json:"market"`
	User   solana.PublicKey `json:"user"`
	Nonce  uint64           `json:"nonce"`

	Timestamp int64 `json:"timestamp"`
}
