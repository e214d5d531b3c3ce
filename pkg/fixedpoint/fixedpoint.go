package fixedpoint

// e6 fixed point: 1.0 == 1_000_000. All share quantities, prices, and vault
// mirrors use this scale. Lamport conversion is fixed at 100 lamports per e6
// unit (1 SOL == 10_000_000 e6).

const (
	// E6 is the fixed-point scale.
	E6 int64 = 1_000_000

	// LamportsPerE6 converts between the e6 accounting unit and lamports.
	LamportsPerE6 int64 = 100

	// BpsDenom is the basis-point denominator.
	BpsDenom int64 = 10_000
)

// E6ToLamports converts an e6 amount to lamports. Negative amounts clamp to 0.
func E6ToLamports(v int64) uint64 {
	if v <= 0 {
		return 0
	}
	return uint64(v) * uint64(LamportsPerE6)
}

// LamportsToE6 converts lamports to e6 units, flooring any sub-unit dust.
func LamportsToE6(lamports uint64) int64 {
	return int64(lamports / uint64(LamportsPerE6))
}

// FeeSplit splits a gross spend into (fee, net) at feeBps.
// fee = gross * feeBps / 10_000, net = gross - fee.
// Intermediates stay within int64: gross is capped at 5e10 e6 upstream.
func FeeSplit(gross, feeBps int64) (fee, net int64) {
	if gross <= 0 || feeBps <= 0 {
		return 0, gross
	}
	fee = gross * feeBps / BpsDenom
	return fee, gross - fee
}

// GrossFromNet returns the smallest gross amount whose fee split leaves at
// least net after fees. Inverse of FeeSplit for the buy path, where the curve
// cost is the net amount and the user is charged gross.
func GrossFromNet(net, feeBps int64) int64 {
	if net <= 0 {
		return 0
	}
	if feeBps <= 0 {
		return net
	}
	if feeBps >= BpsDenom {
		return 0 // nonsensical fee; callers validate feeBps < 10_000
	}
	denom := BpsDenom - feeBps
	gross := (net*BpsDenom + denom - 1) / denom // ceil
	// Rounding can leave the split one unit short; nudge up until it covers.
	for {
		_, n := FeeSplit(gross, feeBps)
		if n >= net {
			break
		}
		gross++
	}
	// The fee floors, so the ceil can also land one unit high; walk back to
	// the smallest gross that still covers.
	for gross > net {
		if _, n := FeeSplit(gross-1, feeBps); n < net {
			break
		}
		gross--
	}
	return gross
}

// ApplyBps scales v by bps/10_000, flooring.
func ApplyBps(v, bps int64) int64 {
	if v <= 0 || bps <= 0 {
		return 0
	}
	return v * bps / BpsDenom
}

// MulBpsUp scales v by (10_000+bps)/10_000, flooring. Used for upward
// tolerance bands on price limits.
func MulBpsUp(v, bps int64) int64 {
	return v * (BpsDenom + bps) / BpsDenom
}

// MulBpsDown scales v by (10_000-bps)/10_000, flooring.
func MulBpsDown(v, bps int64) int64 {
	if bps >= BpsDenom {
		return 0
	}
	return v * (BpsDenom - bps) / BpsDenom
}

// Min returns the smaller of a and b.
func Min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
