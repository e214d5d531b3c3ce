package market

import "errors"

// Sentinel errors for every rejection path. Handlers wrap these with %w and
// context; callers branch with errors.Is.
var (
	ErrWrongOwner          = errors.New("account owned by wrong program")
	ErrDataTooSmall        = errors.New("account data too small")
	ErrDeserializeFail     = errors.New("account deserialization failed")
	ErrBadParam            = errors.New("bad parameter")
	ErrMarketClosed        = errors.New("market not open for trading")
	ErrWrongState          = errors.New("operation not valid in current market state")
	ErrNotOwner            = errors.New("caller is not the position owner")
	ErrInsufficientShares  = errors.New("insufficient shares")
	ErrNoCoverage          = errors.New("pool cannot cover payout")
	ErrAlreadySnapshotted  = errors.New("start price already snapshotted")
	ErrNotSnapshotted      = errors.New("start price not snapshotted")
	ErrStaleOracle         = errors.New("oracle feed is stale")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInsufficientBalance = errors.New("insufficient vault balance")
	ErrTradingLocked       = errors.New("trading locked ahead of market end")
	ErrPriceLimitExceeded  = errors.New("average price above buy limit")
	ErrPriceLimitNotMet    = errors.New("average price below sell limit")
	ErrSlippageExceeded    = errors.New("slippage tolerance exceeded")
	ErrStaleQuote          = errors.New("quote timestamp too old")
	ErrCostExceedsLimit    = errors.New("total cost above cap")
	ErrMinFillNotMet       = errors.New("fill below minimum")
	ErrInvalidGuardConfig  = errors.New("invalid guard configuration")
	ErrInvalidSignature    = errors.New("invalid order signature")
	ErrOrderExpired        = errors.New("order expired")
	ErrNonceAlreadyUsed    = errors.New("order nonce already used")
	ErrWrongMarket         = errors.New("order bound to different market")
	ErrWrongUser           = errors.New("order bound to different user")
	ErrInvalidAction       = errors.New("invalid action")
)
