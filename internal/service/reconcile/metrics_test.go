package reconcile

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestWeight_Examples(t *testing.T) {
	p := DefaultParams()
	tests := []struct {
		kg   float64
		want WeightMetrics
	}{
		{0, WeightMetrics{Band: "0", RoundDown: 0, RoundUp: 0, Fraction: 0, Surcharge: 0}},
		{0.5, WeightMetrics{Band: "0.50", RoundDown: 0, RoundUp: 1, Fraction: 0.5, Surcharge: 0}},
		{3, WeightMetrics{Band: "3", RoundDown: 3, RoundUp: 3, Fraction: 0, Surcharge: 0}},
		{9.99, WeightMetrics{Band: "9.99", RoundDown: 9, RoundUp: 10, Fraction: 0.99, Surcharge: 0}},
		{10.3, WeightMetrics{Band: "10.30", RoundDown: 10, RoundUp: 10, Fraction: 0.3, Surcharge: 0}},
		{10.31, WeightMetrics{Band: "10.31", RoundDown: 10, RoundUp: 11, Fraction: 0.31, Surcharge: 400}},
		{11.5, WeightMetrics{Band: "11.50", RoundDown: 11, RoundUp: 12, Fraction: 0.5, Surcharge: 800}},
		{12.4, WeightMetrics{Band: "12.40", RoundDown: 12, RoundUp: 13, Fraction: 0.4, Surcharge: 1200}},
		{1.005, WeightMetrics{Band: "1.01", RoundDown: 1, RoundUp: 1, Fraction: 0.01, Surcharge: 0}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Weight(tt.kg), "weight %v", tt.kg)
	}
}

func TestWeight_SurchargeBoundaries(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, int64(0), p.Weight(9.99).Surcharge)
	assert.Equal(t, int64(800), p.Weight(11.5).Surcharge)
	assert.Equal(t, int64(0), p.Weight(10).Surcharge)
}

func TestWeight_RoundingInvariant(t *testing.T) {
	p := DefaultParams()
	for i := 0; i <= 5000; i++ {
		kg := float64(i) * 0.01
		m := p.Weight(kg)
		diff := m.RoundUp - m.RoundDown
		assert.True(t, diff == 0 || diff == 1, "weight %v: down=%d up=%d", kg, m.RoundDown, m.RoundUp)
	}
}

func TestWeight_NonFiniteCoercesToZero(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, p.Weight(0), p.Weight(math.NaN()))
	assert.Equal(t, p.Weight(0), p.Weight(math.Inf(1)))
}

func TestWeight_CustomParams(t *testing.T) {
	p := Params{
		WeightThreshold:   decimal.RequireFromString("0.5"),
		BaseWeight:        5,
		ChargePerKg:       1000,
		DistanceThreshold: decimal.RequireFromString("0.5"),
	}
	m := p.Weight(7.4)
	assert.Equal(t, 7, m.RoundUp)
	assert.Equal(t, int64(2000), m.Surcharge)
}

func TestDistance(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, DistanceMetrics{RoundDown: 5, RoundUp: 5}, p.Distance(5))
	assert.Equal(t, DistanceMetrics{RoundDown: 0, RoundUp: 0}, p.Distance(0.2))
	assert.Equal(t, DistanceMetrics{RoundDown: 0, RoundUp: 1}, p.Distance(0.31))
	assert.Equal(t, DistanceMetrics{RoundDown: 7, RoundUp: 8}, p.Distance(7.75))
}

func TestFormatWeight(t *testing.T) {
	assert.Equal(t, "12", FormatWeight(decimal.NewFromFloat(12)))
	assert.Equal(t, "12.40", FormatWeight(decimal.NewFromFloat(12.4)))
	assert.Equal(t, "0.33", FormatWeight(decimal.NewFromFloat(1.0/3)))
}
