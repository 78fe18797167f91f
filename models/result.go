package models

import "math"

// Metrics are derived per backtest run and never mutated in place.
// SharpeRatio is NaN when the excess return series has zero variance.
type Metrics struct {
	TotalReturn float64
	SharpeRatio float64
	MaxDrawdown float64
}

// TrialResult couples one parameter combination with its in-sample metrics
// and, in walk-forward mode, its out-of-sample metrics plus the robustness
// factor. Created once per optimizer iteration and then read-only.
type TrialResult struct {
	Params      ParameterSet
	InSample    Metrics
	OutOfSample *Metrics
	Robustness  float64
}

// SortableSharpe returns the in-sample Sharpe with NaN mapped to -Inf so
// that undefined metrics always rank last.
func (t TrialResult) SortableSharpe() float64 {
	if math.IsNaN(t.InSample.SharpeRatio) {
		return math.Inf(-1)
	}
	return t.InSample.SharpeRatio
}
