package api

// REST response and WebSocket message types.

// MarketInfo is the public view of the market record.
type MarketInfo struct {
	Address       string `json:"address"`
	Pool          string `json:"pool"`
	Status        string `json:"status"`
	B             int64  `json:"b"`
	FeeBps        int64  `json:"feeBps"`
	QYesE6        int64  `json:"qYesE6"`
	QNoE6         int64  `json:"qNoE6"`
	PriceYesE6    int64  `json:"priceYesE6"`
	PriceNoE6     int64  `json:"priceNoE6"`
	VaultE6       int64  `json:"vaultE6"`
	FeesE6        int64  `json:"feesE6"`
	Winner        string `json:"winner"`
	WTotalE6      int64  `json:"wTotalE6"`
	PpsE6         int64  `json:"ppsE6"`
	StartPriceE6  int64  `json:"startPriceE6"`
	StartTs       int64  `json:"startTs"`
	SettlePriceE6 int64  `json:"settlePriceE6"`
	SettleTs      int64  `json:"settleTs"`
	MarketEndTime int64  `json:"marketEndTime"`
}

// QuoteInfo prices a hypothetical trade.
type QuoteInfo struct {
	PriceYesE6 int64 `json:"priceYesE6"`
	PriceNoE6  int64 `json:"priceNoE6"`
	SharesE6   int64 `json:"sharesE6"`
	NetE6      int64 `json:"netE6"`
	FeeE6      int64 `json:"feeE6"`
	GrossE6    int64 `json:"grossE6"`
	AvgPriceE6 int64 `json:"avgPriceE6"`
}

// PositionInfo is the public view of a position.
type PositionInfo struct {
	Owner          string `json:"owner"`
	YesSharesE6    int64  `json:"yesSharesE6"`
	NoSharesE6     int64  `json:"noSharesE6"`
	VaultBalanceE6 int64  `json:"vaultBalanceE6"`
	VaultLamports  uint64 `json:"vaultLamports"`
}

// TradeInfo is one trade history row.
type TradeInfo struct {
	User       string `json:"user"`
	Side       string `json:"side"`
	Action     string `json:"action"`
	SharesE6   int64  `json:"sharesE6"`
	GrossE6    int64  `json:"grossE6"`
	FeeE6      int64  `json:"feeE6"`
	PriceYesE6 int64  `json:"priceYesE6"`
	Timestamp  int64  `json:"timestamp"`
}

// SubmitOrderResponse is returned from order submission.
type SubmitOrderResponse struct {
	Status         string `json:"status"` // "executed", "rejected"
	Nonce          uint64 `json:"nonce"`
	FilledSharesE6 int64  `json:"filledSharesE6,omitempty"`
	GrossE6        int64  `json:"grossE6,omitempty"`
	Message        string `json:"message,omitempty"`
}

// CancelNonceRequest is the payload for POST /api/v1/orders/cancel.
type CancelNonceRequest struct {
	Owner string `json:"owner"`
	Nonce uint64 `json:"nonce"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WSSubscribeRequest is sent by clients to manage channel subscriptions.
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g. ["market", "trades"]
}

// MarketUpdate is broadcast on the "market" channel after every mutation.
type MarketUpdate struct {
	Type   string     `json:"type"` // "market"
	Market MarketInfo `json:"market"`
}

// TradeUpdate is broadcast on the "trades" channel per executed trade.
type TradeUpdate struct {
	Type  string    `json:"type"` // "trade"
	Trade TradeInfo `json:"trade"`
}
