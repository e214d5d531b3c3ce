package lmsr

import (
	"fmt"
	"math"

	"github.com/seojinlee/flipmarket/pkg/fixedpoint"
)

// Side selects which outcome leg of the curve an operation touches.
type Side int8

const (
	Yes Side = 1
	No  Side = 2
)

func (s Side) String() string {
	switch s {
	case Yes:
		return "YES"
	case No:
		return "NO"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether s is a recognized side.
func (s Side) Valid() bool { return s == Yes || s == No }

// Curve is an LMSR cost curve with liquidity parameter B (e6 scale).
//
// Cost function: C(qy, qn) = b * ln(exp(qy/b) + exp(qn/b))
// Instantaneous YES price: p = exp(qy/b) / (exp(qy/b) + exp(qn/b))
//
// All inputs and outputs are e6 fixed point; float64 is used only inside the
// exp/ln kernels, with the max-subtraction trick so the exponentials never
// overflow regardless of q magnitude.
type Curve struct {
	B int64 // liquidity parameter, e6, must be > 0
}

// New validates b and returns a curve.
func New(b int64) (Curve, error) {
	if b <= 0 {
		return Curve{}, fmt.Errorf("lmsr: liquidity parameter must be positive, got %d", b)
	}
	return Curve{B: b}, nil
}

// Cost returns C(qYes, qNo) in e6, rounded.
func (c Curve) Cost(qYes, qNo int64) int64 {
	b := float64(c.B)
	qy, qn := float64(qYes), float64(qNo)
	m := math.Max(qy, qn)
	// b*ln(e^(qy/b)+e^(qn/b)) = m + b*ln(e^((qy-m)/b)+e^((qn-m)/b))
	cost := m + b*math.Log(math.Exp((qy-m)/b)+math.Exp((qn-m)/b))
	return int64(math.Round(cost))
}

// PriceYes returns the instantaneous YES probability scaled to e6.
func (c Curve) PriceYes(qYes, qNo int64) int64 {
	b := float64(c.B)
	qy, qn := float64(qYes), float64(qNo)
	m := math.Max(qy, qn)
	ey := math.Exp((qy - m) / b)
	en := math.Exp((qn - m) / b)
	p := ey / (ey + en)
	return int64(math.Round(p * float64(fixedpoint.E6)))
}

// PriceNo returns the instantaneous NO probability scaled to e6.
func (c Curve) PriceNo(qYes, qNo int64) int64 {
	return fixedpoint.E6 - c.PriceYes(qYes, qNo)
}

// Price returns the instantaneous price of the given side.
func (c Curve) Price(side Side, qYes, qNo int64) int64 {
	if side == Yes {
		return c.PriceYes(qYes, qNo)
	}
	return c.PriceNo(qYes, qNo)
}

// BuyCost returns the exact cost of buying sharesE6 of side at state
// (qYes, qNo): C(after) - C(before), clamped to ≥ 0. This is the exact
// inverse of the curve, so quoting and charging agree to the unit.
func (c Curve) BuyCost(side Side, qYes, qNo, sharesE6 int64) int64 {
	if sharesE6 <= 0 {
		return 0
	}
	before := c.Cost(qYes, qNo)
	var after int64
	if side == Yes {
		after = c.Cost(qYes+sharesE6, qNo)
	} else {
		after = c.Cost(qYes, qNo+sharesE6)
	}
	d := after - before
	if d < 0 {
		return 0
	}
	return d
}

// SellProceeds returns the proceeds of selling sharesE6 of side:
// C(before) - C(after), clamped to ≥ 0.
func (c Curve) SellProceeds(side Side, qYes, qNo, sharesE6 int64) int64 {
	if sharesE6 <= 0 {
		return 0
	}
	before := c.Cost(qYes, qNo)
	var after int64
	if side == Yes {
		after = c.Cost(qYes-sharesE6, qNo)
	} else {
		after = c.Cost(qYes, qNo-sharesE6)
	}
	d := before - after
	if d < 0 {
		return 0
	}
	return d
}

// SharesForSpend returns the largest share quantity whose BuyCost does not
// exceed netE6. Bisection over [0, hi] where hi bounds the answer:
// spending net at the current price buys at most net/p shares, and the cap
// 5b keeps the bracket finite when the price is near zero.
func (c Curve) SharesForSpend(side Side, qYes, qNo, netE6 int64) int64 {
	if netE6 <= 0 {
		return 0
	}
	p := c.Price(side, qYes, qNo)
	if p < 1 {
		p = 1
	}
	hi := netE6 / p * fixedpoint.E6
	if rem := netE6 % p; rem > 0 {
		hi += rem * fixedpoint.E6 / p
	}
	hi = fixedpoint.Min(hi+fixedpoint.E6, c.B*5)
	if hi < 1 {
		hi = 1
	}
	lo := int64(0)
	for i := 0; i < 32; i++ {
		mid := lo + (hi-lo)/2
		if mid == lo {
			break
		}
		if c.BuyCost(side, qYes, qNo, mid) <= netE6 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// MaxLoss is the sponsor's worst-case subsidy, b*ln(2).
func (c Curve) MaxLoss() int64 {
	return int64(math.Round(float64(c.B) * math.Ln2))
}
