package service

import (
	"math"

	"github.com/shopspring/decimal"
)

// ConfidenceScale normalises confidence (1..10) into a 0.1..1.0 multiplier.
const ConfidenceScale = 10

// Weigher applies quadratic weighting with a fixed confidence scale.
type Weigher struct {
	Scale float64
}

// Weight returns the quadratic weight of a USD stake at the given confidence.
func (w Weigher) Weight(usd decimal.Decimal, confidence int) float64 {
	scale := w.Scale
	if scale == 0 {
		scale = ConfidenceScale
	}
	return QuadraticWeight(usd, confidence, scale)
}

// QuadraticWeight computes a vote's influence:
//
//	weight = sqrt(usdValue) * (confidence / scale)
//
// Non-positive stakes and confidences carry no weight.
func QuadraticWeight(usd decimal.Decimal, confidence int, scale float64) float64 {
	if usd.Sign() <= 0 || confidence <= 0 || scale <= 0 {
		return 0
	}
	f, _ := usd.Float64()
	return math.Sqrt(f) * (float64(confidence) / scale)
}

// round2 rounds to two decimals for presentation.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
