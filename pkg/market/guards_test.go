package market

import (
	"errors"
	"strings"
	"testing"

	"github.com/seojinlee/flipmarket/pkg/lmsr"
)

// feeless balanced market for pure guard math.
func guardMarket() *Market {
	return &Market{B: 1_000_000_000, FeeBps: 0, Decimals: 6}
}

func TestActionString(t *testing.T) {
	if Buy.String() != "BUY" || Sell.String() != "SELL" {
		t.Errorf("action strings: %s/%s", Buy, Sell)
	}
	if Action(0).Valid() || Action(3).Valid() {
		t.Error("out-of-range actions validate")
	}
}

func TestAdvancedGuardConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		cfg    AdvancedGuardConfig
		action Action
		ok     bool
	}{
		{"price limit only", AdvancedGuardConfig{PriceLimitE6: 600_000}, Buy, true},
		{"empty", AdvancedGuardConfig{}, Buy, false},
		{"negative limit", AdvancedGuardConfig{PriceLimitE6: -1}, Buy, false},
		{"slippage without quote", AdvancedGuardConfig{MaxSlippageBps: 50}, Buy, false},
		{"slippage with quote", AdvancedGuardConfig{MaxSlippageBps: 50, QuotePriceE6: 500_000}, Buy, true},
		{"slippage over 100%", AdvancedGuardConfig{MaxSlippageBps: 10_000, QuotePriceE6: 500_000}, Buy, false},
		{"cost cap on buy", AdvancedGuardConfig{MaxTotalCostE6: 1_000_000}, Buy, true},
		{"cost cap on sell", AdvancedGuardConfig{MaxTotalCostE6: 1_000_000}, Sell, false},
		{"min fill without partial", AdvancedGuardConfig{PriceLimitE6: 600_000, MinFillSharesE6: 100_000}, Buy, false},
		{"min fill with partial", AdvancedGuardConfig{PriceLimitE6: 600_000, MinFillSharesE6: 100_000, AllowPartial: true}, Buy, true},
	}
	for _, tt := range tests {
		err := tt.cfg.Validate(tt.action)
		if tt.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidGuardConfig) {
			t.Errorf("%s: err = %v, want ErrInvalidGuardConfig", tt.name, err)
		}
	}
}

func TestNewtonApplicable(t *testing.T) {
	tests := []struct {
		cfg  AdvancedGuardConfig
		want bool
	}{
		{AdvancedGuardConfig{PriceLimitE6: 600_000}, true},
		{AdvancedGuardConfig{MaxSlippageBps: 50, QuotePriceE6: 500_000}, true},
		{AdvancedGuardConfig{PriceLimitE6: 600_000, MaxTotalCostE6: 1_000_000}, false},
		{AdvancedGuardConfig{MaxTotalCostE6: 1_000_000}, false},
	}
	for i, tt := range tests {
		if got := tt.cfg.NewtonApplicable(); got != tt.want {
			t.Errorf("case %d: NewtonApplicable = %v, want %v", i, got, tt.want)
		}
	}
}

func TestCheckGuardToleranceBand(t *testing.T) {
	m := guardMarket()

	// Balanced curve quotes tiny buys at ~500_000 average. A limit set right
	// at the quoted price must pass thanks to the tolerance band.
	if err := m.CheckGuard(GuardConfig{PriceLimitE6: 500_000}, lmsr.Yes, Buy, MinBuyE6); err != nil {
		t.Errorf("at-the-money buy guard: %v", err)
	}
	if err := m.CheckGuard(GuardConfig{PriceLimitE6: 400_000}, lmsr.Yes, Buy, MinBuyE6); !errors.Is(err, ErrPriceLimitExceeded) {
		t.Errorf("tight buy guard: err = %v", err)
	}
	if err := m.CheckGuard(GuardConfig{PriceLimitE6: 500_000}, lmsr.Yes, Sell, MinSellE6); err != nil {
		t.Errorf("at-the-money sell guard: %v", err)
	}
	if err := m.CheckGuard(GuardConfig{PriceLimitE6: 600_000}, lmsr.Yes, Sell, MinSellE6); !errors.Is(err, ErrPriceLimitNotMet) {
		t.Errorf("greedy sell guard: err = %v", err)
	}
	if err := m.CheckGuard(GuardConfig{}, lmsr.Yes, Buy, MinBuyE6); !errors.Is(err, ErrInvalidGuardConfig) {
		t.Errorf("unset guard: err = %v", err)
	}
}

func TestSlippageLimit(t *testing.T) {
	m := guardMarket()
	up, err := m.SlippageLimit(SlippageConfig{MaxSlippageBps: 100}, lmsr.Yes, Buy)
	if err != nil {
		t.Fatalf("SlippageLimit: %v", err)
	}
	if up != 505_000 { // 500_000 * 1.01
		t.Errorf("buy limit = %d, want 505_000", up)
	}
	down, err := m.SlippageLimit(SlippageConfig{MaxSlippageBps: 100}, lmsr.Yes, Sell)
	if err != nil {
		t.Fatalf("SlippageLimit: %v", err)
	}
	if down != 495_000 {
		t.Errorf("sell limit = %d, want 495_000", down)
	}
	if _, err := m.SlippageLimit(SlippageConfig{}, lmsr.Yes, Buy); !errors.Is(err, ErrInvalidGuardConfig) {
		t.Errorf("unset slippage: err = %v", err)
	}
}

func TestFindMaxExecutableFullFill(t *testing.T) {
	m := guardMarket()
	cfg := &AdvancedGuardConfig{PriceLimitE6: 900_000}
	fill, err := m.FindMaxExecutableShares(cfg, lmsr.Yes, Buy, 1_000_000, testNow)
	if err != nil {
		t.Fatalf("FindMaxExecutableShares: %v", err)
	}
	if fill != 1_000_000 {
		t.Errorf("fill = %d, want full 1_000_000", fill)
	}
}

func TestFindMaxExecutablePartialBuy(t *testing.T) {
	m := guardMarket()
	requested := int64(10_000_000_000) // 10k shares would blow through the limit
	cfg := &AdvancedGuardConfig{PriceLimitE6: 510_000, AllowPartial: true}

	fill, err := m.FindMaxExecutableShares(cfg, lmsr.Yes, Buy, requested, testNow)
	if err != nil {
		t.Fatalf("FindMaxExecutableShares: %v", err)
	}
	if fill <= 0 || fill >= requested {
		t.Fatalf("fill = %d, want a proper partial of %d", fill, requested)
	}
	if fill < MinBuyE6 {
		t.Errorf("fill %d below minimum trade size", fill)
	}
	// The result must itself respect the limit...
	if err := m.CheckGuard(GuardConfig{PriceLimitE6: 510_000}, lmsr.Yes, Buy, fill); err != nil {
		t.Errorf("returned fill fails its own guard: %v", err)
	}
	// ...and be near-maximal: doubling it must not.
	if err := m.CheckGuard(GuardConfig{PriceLimitE6: 510_000}, lmsr.Yes, Buy, fill*2); err == nil {
		t.Errorf("fill %d is far from maximal: 2x still passes", fill)
	}
}

func TestFindMaxExecutablePartialSell(t *testing.T) {
	m := guardMarket()
	requested := int64(10_000_000_000) // selling 10k shares craters the price
	limit := int64(490_000)
	cfg := &AdvancedGuardConfig{PriceLimitE6: limit, AllowPartial: true}

	fill, err := m.FindMaxExecutableShares(cfg, lmsr.Yes, Sell, requested, testNow)
	if err != nil {
		t.Fatalf("FindMaxExecutableShares: %v", err)
	}
	if fill <= 0 || fill >= requested {
		t.Fatalf("fill = %d, want a proper partial of %d", fill, requested)
	}
	if err := m.CheckGuard(GuardConfig{PriceLimitE6: limit}, lmsr.Yes, Sell, fill); err != nil {
		t.Errorf("returned fill fails its own guard: %v", err)
	}
}

func TestFindMaxExecutableBackoffFallback(t *testing.T) {
	// Thin liquidity (b = 1.0): only a narrow band near the minimum size
	// passes the limit, so eight halvings of a huge request jump straight
	// past it. The search must still find the fill by bisecting between
	// the minimum and the smallest failing size.
	m := &Market{B: 1_000_000, FeeBps: 0, Decimals: 6}
	cfg := &AdvancedGuardConfig{PriceLimitE6: 520_000, AllowPartial: true}

	// Sanity: a modest request inside the band fills in full.
	small, err := m.FindMaxExecutableShares(cfg, lmsr.Yes, Buy, 160_000, testNow)
	if err != nil {
		t.Fatalf("small request: %v", err)
	}
	if small != 160_000 {
		t.Fatalf("small fill = %d, want full 160_000", small)
	}

	fill, err := m.FindMaxExecutableShares(cfg, lmsr.Yes, Buy, 100_000_000, testNow)
	if err != nil {
		t.Fatalf("large request: %v", err)
	}
	if fill < MinBuyE6 {
		t.Fatalf("fill = %d below minimum", fill)
	}
	if fill < 160_000 {
		t.Errorf("fill = %d, worse than the known-good small request", fill)
	}
	if err := m.CheckGuard(GuardConfig{PriceLimitE6: 520_000}, lmsr.Yes, Buy, fill); err != nil {
		t.Errorf("returned fill fails its own guard: %v", err)
	}
	if err := m.CheckGuard(GuardConfig{PriceLimitE6: 520_000}, lmsr.Yes, Buy, fill*2); err == nil {
		t.Errorf("fill %d far from maximal: 2x still passes", fill)
	}
}

func TestSlippageBoundHasNoTolerance(t *testing.T) {
	m := guardMarket()
	// The curve quotes ~500_010 for a minimum buy. A quote of 499_000 with
	// 10 bps of slack allows up to 499_499: outside the budget, even though
	// a 20 bps tolerance band would have let it through.
	cfg := &AdvancedGuardConfig{
		MaxSlippageBps: 10,
		QuotePriceE6:   499_000,
		QuoteTimestamp: testNow,
	}
	if _, err := m.FindMaxExecutableShares(cfg, lmsr.Yes, Buy, MinBuyE6, testNow); !errors.Is(err, ErrSlippageExceeded) {
		t.Errorf("over-budget slippage: err = %v", err)
	}
	// An accurate quote with the same slack passes.
	cfg.QuotePriceE6 = 500_000
	fill, err := m.FindMaxExecutableShares(cfg, lmsr.Yes, Buy, MinBuyE6, testNow)
	if err != nil {
		t.Fatalf("accurate quote: %v", err)
	}
	if fill != MinBuyE6 {
		t.Errorf("fill = %d", fill)
	}
}

func TestFindMaxExecutableNoPartial(t *testing.T) {
	m := guardMarket()
	cfg := &AdvancedGuardConfig{PriceLimitE6: 510_000}
	if _, err := m.FindMaxExecutableShares(cfg, lmsr.Yes, Buy, 10_000_000_000, testNow); !errors.Is(err, ErrPriceLimitExceeded) {
		t.Errorf("no-partial over-limit: err = %v", err)
	}
}

func TestFindMaxExecutableCostCap(t *testing.T) {
	m := guardMarket()
	cfg := &AdvancedGuardConfig{
		PriceLimitE6:   900_000,
		MaxTotalCostE6: 1_000_000, // ~2 shares at 0.5
		AllowPartial:   true,
	}
	fill, err := m.FindMaxExecutableShares(cfg, lmsr.Yes, Buy, 400_000_000, testNow)
	if err != nil {
		t.Fatalf("FindMaxExecutableShares: %v", err)
	}
	if g := m.quoter().gross(lmsr.Yes, Buy, fill); g > 1_000_000 {
		t.Errorf("fill %d costs %d, over the cap", fill, g)
	}
	if fill < MinBuyE6 {
		t.Errorf("fill %d below minimum", fill)
	}
}

func TestFindMaxExecutableStaleQuote(t *testing.T) {
	m := guardMarket()
	cfg := &AdvancedGuardConfig{
		MaxSlippageBps: 100,
		QuotePriceE6:   500_000,
		QuoteTimestamp: testNow - QuoteMaxAgeSecs - 1,
	}
	if _, err := m.FindMaxExecutableShares(cfg, lmsr.Yes, Buy, 1_000_000, testNow); !errors.Is(err, ErrStaleQuote) {
		t.Errorf("stale quote: err = %v", err)
	}
}

func TestFindMaxExecutableSlippageVsQuote(t *testing.T) {
	m := guardMarket()
	// Client quoted 400_000 but the curve sits at 500_000: even 1% of slack
	// cannot reach the live price.
	cfg := &AdvancedGuardConfig{
		MaxSlippageBps: 100,
		QuotePriceE6:   400_000,
		QuoteTimestamp: testNow,
	}
	_, err := m.FindMaxExecutableShares(cfg, lmsr.Yes, Buy, 1_000_000, testNow)
	if !errors.Is(err, ErrSlippageExceeded) {
		t.Errorf("slippage vs quote: err = %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "quote") {
		t.Errorf("slippage error should name the quote: %v", err)
	}
}

func TestFindMaxExecutableMinFill(t *testing.T) {
	m := guardMarket()
	cfg := &AdvancedGuardConfig{
		PriceLimitE6:    510_000,
		AllowPartial:    true,
		MinFillSharesE6: 9_000_000_000, // the limit caps fills far below this
	}
	if _, err := m.FindMaxExecutableShares(cfg, lmsr.Yes, Buy, 10_000_000_000, testNow); !errors.Is(err, ErrMinFillNotMet) {
		t.Errorf("min fill: err = %v", err)
	}
}

func TestFindMaxExecutableBadRequest(t *testing.T) {
	m := guardMarket()
	cfg := &AdvancedGuardConfig{PriceLimitE6: 600_000}
	if _, err := m.FindMaxExecutableShares(cfg, lmsr.Yes, Buy, 0, testNow); !errors.Is(err, ErrBadParam) {
		t.Errorf("zero request: err = %v", err)
	}
}
