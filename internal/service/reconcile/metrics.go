package reconcile

import (
	"math"

	"github.com/shopspring/decimal"
)

// Params holds the business constants of the charge tiers.
type Params struct {
	WeightThreshold   decimal.Decimal // fractional kg above which weight rounds up
	BaseWeight        int64           // kg included before surcharge applies
	ChargePerKg       int64           // surcharge per kg above BaseWeight
	DistanceThreshold decimal.Decimal
}

// DefaultParams returns threshold 0.30, base 10 kg, 400 per extra kg.
func DefaultParams() Params {
	return Params{
		WeightThreshold:   decimal.RequireFromString("0.30"),
		BaseWeight:        10,
		ChargePerKg:       400,
		DistanceThreshold: decimal.RequireFromString("0.30"),
	}
}

// WeightMetrics are the derived weight fields of one order.
type WeightMetrics struct {
	Band      string
	RoundDown int
	RoundUp   int
	Fraction  float64
	Surcharge int64
}

// DistanceMetrics are the derived distance fields of one order.
type DistanceMetrics struct {
	RoundDown int
	RoundUp   int
}

func toDecimal(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// roundPair applies the business rounding rule: below 1 rounds down to 0,
// and the value rounds up only when its fractional part exceeds threshold.
func roundPair(v, threshold decimal.Decimal) (down, up int64) {
	integer := v.Floor()
	fraction := v.Sub(integer)

	down = integer.IntPart()
	if v.LessThan(decimal.NewFromInt(1)) {
		down = 0
	}
	up = integer.IntPart()
	if fraction.GreaterThan(threshold) {
		up++
	}
	return down, up
}

// Weight computes the charge tier for a weight in kg. Values are handled as
// decimals, so 10.3 has a fractional part of exactly 0.30.
func (p Params) Weight(kg float64) WeightMetrics {
	w := toDecimal(kg)
	down, up := roundPair(w, p.WeightThreshold)

	var surcharge int64
	if up >= p.BaseWeight {
		surcharge = (up - p.BaseWeight) * p.ChargePerKg
	}

	return WeightMetrics{
		Band:      FormatWeight(w),
		RoundDown: int(down),
		RoundUp:   int(up),
		Fraction:  w.Sub(decimal.NewFromInt(down)).Round(2).InexactFloat64(),
		Surcharge: surcharge,
	}
}

// Distance computes the rounded distance pair for a distance in km.
func (p Params) Distance(km float64) DistanceMetrics {
	down, up := roundPair(toDecimal(km), p.DistanceThreshold)
	return DistanceMetrics{RoundDown: int(down), RoundUp: int(up)}
}

// FormatWeight prints integral weights without a decimal point and all
// other weights with exactly two decimals.
func FormatWeight(w decimal.Decimal) string {
	if w.Equal(w.Floor()) {
		return w.Floor().String()
	}
	return w.StringFixed(2)
}
