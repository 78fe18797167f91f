package models

import "math"

// Action is the discrete per-bar trading decision.
type Action int

const (
	Sell Action = -1
	Hold Action = 0
	Buy  Action = 1
)

func (a Action) String() string {
	switch a {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	}
	return "HOLD"
}

// Signal is a per-bar decision plus optional risk metadata. StopLoss is a
// proposed stop price supplied by the strategy (ATR-derived for the
// volatility strategy); NaN when the strategy proposes none.
type Signal struct {
	Action   Action
	StopLoss float64
}

// HoldSignal returns a neutral signal with no stop metadata.
func HoldSignal() Signal {
	return Signal{Action: Hold, StopLoss: math.NaN()}
}

// MarketState labels the market regime of a single bar.
type MarketState int

const (
	Ranging MarketState = iota
	TrendingUp
	TrendingDown
)

func (s MarketState) String() string {
	switch s {
	case TrendingUp:
		return "TRENDING_UP"
	case TrendingDown:
		return "TRENDING_DOWN"
	}
	return "RANGING"
}

// IndicatorSet holds named numeric series aligned 1:1 with a bar sequence.
// Entries inside an indicator's warm-up window are NaN.
type IndicatorSet map[string][]float64
