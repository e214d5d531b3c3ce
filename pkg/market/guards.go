package market

import (
	"fmt"

	"github.com/seojinlee/flipmarket/pkg/fixedpoint"
	"github.com/seojinlee/flipmarket/pkg/lmsr"
)

// Action distinguishes buys from sells.
type Action int8

const (
	Buy  Action = 1
	Sell Action = 2
)

func (a Action) String() string {
	switch a {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether a is a recognized action.
func (a Action) Valid() bool { return a == Buy || a == Sell }

const (
	// GuardToleranceBps is the slack applied to absolute price limits, so
	// a limit set exactly at the quoted price does not flake on rounding.
	GuardToleranceBps int64 = 20

	// QuoteMaxAgeSecs bounds how old a caller-supplied quote may be.
	QuoteMaxAgeSecs int64 = 30

	backoffMaxHalvings = 8
	newtonIterations   = 8
	bisectIterations   = 16
)

// GuardConfig is the basic guard: a hard bound on average execution price
// (total spend or proceeds per share, e6).
type GuardConfig struct {
	PriceLimitE6 int64
}

// SlippageConfig bounds execution against the current curve price: the
// effective price limit is the instantaneous price moved by MaxSlippageBps.
type SlippageConfig struct {
	MaxSlippageBps int64
}

// AdvancedGuardConfig combines optional constraints. Zero values mean unset.
type AdvancedGuardConfig struct {
	PriceLimitE6 int64 `json:"price_limit_e6"`

	// Slippage relative to a caller-supplied quote rather than the live
	// curve, so the client bounds movement since the price it displayed.
	MaxSlippageBps int64 `json:"max_slippage_bps"`
	QuotePriceE6   int64 `json:"quote_price_e6"`
	QuoteTimestamp int64 `json:"quote_timestamp"` // unix seconds

	// MaxTotalCostE6 caps gross spend; buys only.
	MaxTotalCostE6 int64 `json:"max_total_cost_e6"`

	AllowPartial    bool  `json:"allow_partial"`
	MinFillSharesE6 int64 `json:"min_fill_shares_e6"`
}

// Validate rejects empty or contradictory configurations.
func (g *AdvancedGuardConfig) Validate(action Action) error {
	if g.PriceLimitE6 < 0 || g.MaxSlippageBps < 0 || g.MaxTotalCostE6 < 0 || g.MinFillSharesE6 < 0 {
		return fmt.Errorf("%w: negative constraint", ErrInvalidGuardConfig)
	}
	if g.PriceLimitE6 == 0 && g.MaxSlippageBps == 0 && g.MaxTotalCostE6 == 0 {
		return fmt.Errorf("%w: no constraint set", ErrInvalidGuardConfig)
	}
	if g.MaxSlippageBps > 0 && g.QuotePriceE6 <= 0 {
		return fmt.Errorf("%w: slippage bound without quote price", ErrInvalidGuardConfig)
	}
	if g.MaxSlippageBps >= fixedpoint.BpsDenom {
		return fmt.Errorf("%w: slippage bound over 100%%", ErrInvalidGuardConfig)
	}
	if g.MaxTotalCostE6 > 0 && action == Sell {
		return fmt.Errorf("%w: cost cap on a sell", ErrInvalidGuardConfig)
	}
	if g.MinFillSharesE6 > 0 && !g.AllowPartial {
		return fmt.Errorf("%w: min fill without partial execution", ErrInvalidGuardConfig)
	}
	return nil
}

// NewtonApplicable reports whether the config is a pure price/slippage
// constraint. Only then is the "solve avgPrice == limit" refinement sound;
// a cost cap can be the binding constraint instead, which routes the search
// to plain bisection.
func (g *AdvancedGuardConfig) NewtonApplicable() bool {
	return (g.PriceLimitE6 > 0 || g.MaxSlippageBps > 0) && g.MaxTotalCostE6 == 0
}

// effectivePriceLimit resolves the tightest absolute price limit from the
// configured constraints. Returns 0 if no price-style constraint is set.
func (g *AdvancedGuardConfig) effectivePriceLimit(action Action) int64 {
	limit := g.PriceLimitE6
	if g.MaxSlippageBps > 0 && g.QuotePriceE6 > 0 {
		var slip int64
		if action == Buy {
			slip = fixedpoint.MulBpsUp(g.QuotePriceE6, g.MaxSlippageBps)
			if limit == 0 || slip < limit {
				limit = slip
			}
		} else {
			slip = fixedpoint.MulBpsDown(g.QuotePriceE6, g.MaxSlippageBps)
			if slip > limit {
				limit = slip
			}
		}
	}
	return limit
}

// quoter snapshots the curve state needed to price hypothetical executions.
type quoter struct {
	curve  lmsr.Curve
	qYes   int64
	qNo    int64
	feeBps int64
}

func (m *Market) quoter() quoter {
	return quoter{curve: m.Curve(), qYes: m.QYesE6, qNo: m.QNoE6, feeBps: m.FeeBps}
}

// gross returns what the user pays (buy, fee-inclusive) or receives (sell,
// net of fee) for executing sharesE6, so guard prices match execution.
func (q quoter) gross(side lmsr.Side, action Action, sharesE6 int64) int64 {
	if action == Buy {
		net := q.curve.BuyCost(side, q.qYes, q.qNo, sharesE6)
		return fixedpoint.GrossFromNet(net, q.feeBps)
	}
	proceeds := q.curve.SellProceeds(side, q.qYes, q.qNo, sharesE6)
	_, net := fixedpoint.FeeSplit(proceeds, q.feeBps)
	return net
}

// avgPrice returns gross per share, e6. Zero shares quote at zero.
func (q quoter) avgPrice(side lmsr.Side, action Action, sharesE6 int64) int64 {
	if sharesE6 <= 0 {
		return 0
	}
	return q.gross(side, action, sharesE6) * fixedpoint.E6 / sharesE6
}

// checkPriceLimit applies the absolute average-price bound with the standard
// tolerance band.
func checkPriceLimit(q quoter, side lmsr.Side, action Action, sharesE6, limitE6 int64) error {
	if limitE6 <= 0 {
		return nil
	}
	avg := q.avgPrice(side, action, sharesE6)
	if action == Buy {
		if avg > fixedpoint.MulBpsUp(limitE6, GuardToleranceBps) {
			return fmt.Errorf("%w: avg %d limit %d", ErrPriceLimitExceeded, avg, limitE6)
		}
		return nil
	}
	if avg < fixedpoint.MulBpsDown(limitE6, GuardToleranceBps) {
		return fmt.Errorf("%w: avg %d limit %d", ErrPriceLimitNotMet, avg, limitE6)
	}
	return nil
}

// CheckGuard applies the basic price-limit guard to a hypothetical execution.
func (m *Market) CheckGuard(cfg GuardConfig, side lmsr.Side, action Action, sharesE6 int64) error {
	if cfg.PriceLimitE6 <= 0 {
		return fmt.Errorf("%w: price limit unset", ErrInvalidGuardConfig)
	}
	return checkPriceLimit(m.quoter(), side, action, sharesE6, cfg.PriceLimitE6)
}

// SlippageLimit converts a slippage bound into an absolute price limit
// anchored at the current curve price.
func (m *Market) SlippageLimit(cfg SlippageConfig, side lmsr.Side, action Action) (int64, error) {
	if cfg.MaxSlippageBps <= 0 || cfg.MaxSlippageBps >= fixedpoint.BpsDenom {
		return 0, fmt.Errorf("%w: slippage bps %d", ErrInvalidGuardConfig, cfg.MaxSlippageBps)
	}
	current := m.Curve().Price(side, m.QYesE6, m.QNoE6)
	if action == Buy {
		return fixedpoint.MulBpsUp(current, cfg.MaxSlippageBps), nil
	}
	return fixedpoint.MulBpsDown(current, cfg.MaxSlippageBps), nil
}

// passAdvanced checks every active constraint of cfg against executing
// sharesE6. MinFill is a property of the search result, not of a single
// quote, so it is checked by the caller.
func passAdvanced(q quoter, cfg *AdvancedGuardConfig, side lmsr.Side, action Action, sharesE6, nowSec int64) error {
	if cfg.MaxSlippageBps > 0 {
		if nowSec-cfg.QuoteTimestamp > QuoteMaxAgeSecs {
			return fmt.Errorf("%w: quote ts %d now %d", ErrStaleQuote, cfg.QuoteTimestamp, nowSec)
		}
		if cfg.MaxSlippageBps >= fixedpoint.BpsDenom {
			return fmt.Errorf("%w: slippage bps", ErrInvalidGuardConfig)
		}
	}
	if cfg.PriceLimitE6 > 0 {
		if err := checkPriceLimit(q, side, action, sharesE6, cfg.PriceLimitE6); err != nil {
			return err
		}
	}
	// The slippage bound carries no tolerance band: the quote price the
	// client saw is the reference, the bps budget is the whole allowance.
	if cfg.MaxSlippageBps > 0 && cfg.QuotePriceE6 > 0 {
		avg := q.avgPrice(side, action, sharesE6)
		if action == Buy {
			if avg > fixedpoint.MulBpsUp(cfg.QuotePriceE6, cfg.MaxSlippageBps) {
				return fmt.Errorf("%w: avg %d outside %d bps of quote %d",
					ErrSlippageExceeded, avg, cfg.MaxSlippageBps, cfg.QuotePriceE6)
			}
		} else if avg < fixedpoint.MulBpsDown(cfg.QuotePriceE6, cfg.MaxSlippageBps) {
			return fmt.Errorf("%w: avg %d outside %d bps of quote %d",
				ErrSlippageExceeded, avg, cfg.MaxSlippageBps, cfg.QuotePriceE6)
		}
	}
	if cfg.MaxTotalCostE6 > 0 && action == Buy {
		if g := q.gross(side, action, sharesE6); g > cfg.MaxTotalCostE6 {
			return fmt.Errorf("%w: gross %d cap %d", ErrCostExceedsLimit, g, cfg.MaxTotalCostE6)
		}
	}
	return nil
}

// FindMaxExecutableShares returns the largest share quantity not exceeding
// requestedE6 that satisfies cfg, using exponential backoff to bracket a
// passing size and Newton-Raphson (pure price constraints) or bisection
// (otherwise) to refine it. The result always passes the guards.
func (m *Market) FindMaxExecutableShares(cfg *AdvancedGuardConfig, side lmsr.Side, action Action, requestedE6, nowSec int64) (int64, error) {
	if err := cfg.Validate(action); err != nil {
		return 0, err
	}
	if requestedE6 <= 0 {
		return 0, fmt.Errorf("%w: requested shares %d", ErrBadParam, requestedE6)
	}
	q := m.quoter()

	fullErr := passAdvanced(q, cfg, side, action, requestedE6, nowSec)
	if fullErr == nil {
		return requestedE6, nil
	}
	if !cfg.AllowPartial {
		return 0, fullErr
	}

	// Exponential backoff: halve until something passes, remembering the
	// smallest size that still failed.
	minShares := MinBuyE6
	if action == Sell {
		minShares = MinSellE6
	}
	var lo int64
	hiFail := requestedE6
	size := requestedE6
	for i := 0; i < backoffMaxHalvings; i++ {
		size /= 2
		if size < minShares {
			break
		}
		if passAdvanced(q, cfg, side, action, size, nowSec) == nil {
			lo = size
			break
		}
		hiFail = size
	}

	var fill int64
	switch {
	case lo > 0 && cfg.NewtonApplicable():
		fill = newtonRefine(q, cfg, side, action, lo, requestedE6, nowSec)
	case lo > 0:
		fill = bisectRefine(q, cfg, side, action, lo, requestedE6, nowSec)
	case passAdvanced(q, cfg, side, action, minShares, nowSec) == nil:
		// The halvings overshot past a narrow passing band; the boundary
		// sits between the minimum size and the smallest failing size.
		fill = bisectRefine(q, cfg, side, action, minShares, hiFail, nowSec)
	default:
		return 0, fullErr
	}
	if fill < minShares {
		return 0, fullErr
	}
	if cfg.MinFillSharesE6 > 0 && fill < cfg.MinFillSharesE6 {
		return 0, fmt.Errorf("%w: fill %d min %d", ErrMinFillNotMet, fill, cfg.MinFillSharesE6)
	}
	return fill, nil
}

// newtonRefine solves avgPrice(x) == limit between a passing lo and failing
// hi. The derivative is a forward difference over a 1% step, scaled by 1e6 to
// stay in integer space. Falls back to bisection if it fails to land on a
// passing size.
func newtonRefine(q quoter, cfg *AdvancedGuardConfig, side lmsr.Side, action Action, lo, hi, nowSec int64) int64 {
	limit := cfg.effectivePriceLimit(action)
	if limit <= 0 {
		return bisectRefine(q, cfg, side, action, lo, hi, nowSec)
	}
	sign := int64(1)
	if action == Sell {
		sign = -1 // sells fail low, not high
	}

	x := hi
	for i := 0; i < newtonIterations; i++ {
		f := sign * (q.avgPrice(side, action, x) - limit)
		if f <= 1 && f >= -1 {
			break
		}
		step := x / 100
		if step < 1 {
			step = 1
		}
		f2 := sign * (q.avgPrice(side, action, x+step) - limit)
		deriv := (f2 - f) * fixedpoint.E6 / step
		if deriv == 0 {
			break
		}
		x -= f * fixedpoint.E6 / deriv
		x = fixedpoint.Clamp(x, MinBuyE6, hi)
	}
	// Converged onto the boundary; if still marginally over, step back.
	if passAdvanced(q, cfg, side, action, x, nowSec) != nil {
		x -= 100
	}
	if x >= lo && passAdvanced(q, cfg, side, action, x, nowSec) == nil {
		return x
	}
	return bisectRefine(q, cfg, side, action, lo, hi, nowSec)
}

// bisectRefine is the guard-agnostic fallback: lo passes, hi fails, shrink.
func bisectRefine(q quoter, cfg *AdvancedGuardConfig, side lmsr.Side, action Action, lo, hi, nowSec int64) int64 {
	for i := 0; i < bisectIterations; i++ {
		mid := lo + (hi-lo)/2
		if mid == lo {
			break
		}
		if passAdvanced(q, cfg, side, action, mid, nowSec) == nil {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}
