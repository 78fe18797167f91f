package models

import "math"

// SearchParameter bounds one tunable for the evolutionary optimizer: a
// min/max domain and the decimal precision values snap to. Integer windows
// use zero decimals.
type SearchParameter struct {
	min      float64
	max      float64
	decimals int
	value    float64
}

// NewSearchParameter creates a search domain between min and max, rounded to
// the given number of decimal places.
func NewSearchParameter(min float64, max float64, decimals int) SearchParameter {
	return SearchParameter{min: min, max: max, decimals: decimals}
}

func (p SearchParameter) GetMin() float64 { return p.min }

func (p SearchParameter) GetMax() float64 { return p.max }

func (p SearchParameter) GetFloatValue() float64 { return p.value }

func (p SearchParameter) GetIntValue() int { return int(p.value) }

// SetValue clamps the raw value into the domain and snaps it to the
// configured precision.
func (p SearchParameter) SetValue(value float64) SearchParameter {
	p.value = toFixed(math.Max(p.min, math.Min(value, p.max)), p.decimals)
	return p
}

// SetScaled maps a normalized coordinate in [0,1] onto the domain. The
// evolutionary search evolves normalized genomes so every dimension shares
// the same scale.
func (p SearchParameter) SetScaled(x float64) SearchParameter {
	return p.SetValue(p.min + x*(p.max-p.min))
}

func toFixed(num float64, precision int) float64 {
	output := math.Pow(10, float64(precision))
	return float64(roundHalfAway(num*output)) / output
}

func roundHalfAway(num float64) int {
	return int(num + math.Copysign(0.5, num))
}
