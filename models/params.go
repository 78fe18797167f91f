package models

import (
	"errors"
	"fmt"
)

// StrategyKind enumerates the supported strategy variants. Keeping this a
// closed set means an unknown strategy cannot reach the factory at runtime.
type StrategyKind int

const (
	SMACross StrategyKind = iota
	EMACross
	ATRVolatility
	Bollinger
)

func (k StrategyKind) String() string {
	switch k {
	case SMACross:
		return "sma_cross"
	case EMACross:
		return "ema_cross"
	case ATRVolatility:
		return "atr_volatility"
	case Bollinger:
		return "bollinger"
	}
	return fmt.Sprintf("StrategyKind(%d)", int(k))
}

// RegimeConfig configures the ADX market regime filter.
type RegimeConfig struct {
	ADXWindow    int
	ADXThreshold float64
}

// MomentumConfig configures the MACD momentum confirmation filter.
type MomentumConfig struct {
	MACDFast   int
	MACDSlow   int
	MACDSignal int
}

// ParameterSet names every tunable of one strategy variant plus its optional
// filter configs. Treat a ParameterSet as immutable once built; the optimizer
// copies it for every trial.
type ParameterSet struct {
	Strategy StrategyKind

	FastWindow int
	SlowWindow int

	ATRWindow          int
	ATRMultiplier      float64
	VolatilityLookback int

	BBWindow int
	BBStdDev float64

	Regime   *RegimeConfig
	Momentum *MomentumConfig
}

// ErrInvalidParameters marks a structurally invalid parameter combination.
// A single backtest fails hard on it; the optimizer silently filters such
// combinations out of a sweep instead.
var ErrInvalidParameters = errors.New("invalid parameters")

// DefaultParameters returns a ParameterSet for the given variant with every
// tunable at its documented default.
func DefaultParameters(kind StrategyKind) ParameterSet {
	p := ParameterSet{Strategy: kind}
	switch kind {
	case SMACross, EMACross:
		p.FastWindow = 10
		p.SlowWindow = 50
	case ATRVolatility:
		p.FastWindow = 10
		p.SlowWindow = 100
		p.ATRWindow = 14
		p.ATRMultiplier = 2.0
		p.VolatilityLookback = 5
	case Bollinger:
		p.BBWindow = 20
		p.BBStdDev = 2.0
	}
	return p
}

// DefaultRegimeConfig returns the stock ADX filter configuration.
func DefaultRegimeConfig() *RegimeConfig {
	return &RegimeConfig{ADXWindow: 14, ADXThreshold: 25.0}
}

// DefaultMomentumConfig returns the stock MACD filter configuration.
func DefaultMomentumConfig() *MomentumConfig {
	return &MomentumConfig{MACDFast: 12, MACDSlow: 26, MACDSignal: 9}
}

// Validate reports whether the combination is structurally sound. Cross
// strategies require fast < slow; every window must be positive.
func (p ParameterSet) Validate() error {
	switch p.Strategy {
	case SMACross, EMACross:
		if p.FastWindow <= 0 || p.SlowWindow <= 0 {
			return fmt.Errorf("%w: windows must be positive (fast=%d slow=%d)", ErrInvalidParameters, p.FastWindow, p.SlowWindow)
		}
		if p.FastWindow >= p.SlowWindow {
			return fmt.Errorf("%w: fast_window (%d) must be less than slow_window (%d)", ErrInvalidParameters, p.FastWindow, p.SlowWindow)
		}
	case ATRVolatility:
		if p.FastWindow <= 0 || p.SlowWindow <= 0 || p.ATRWindow <= 0 || p.VolatilityLookback <= 0 {
			return fmt.Errorf("%w: windows must be positive", ErrInvalidParameters)
		}
		if p.FastWindow >= p.SlowWindow {
			return fmt.Errorf("%w: fast_window (%d) must be less than slow_window (%d)", ErrInvalidParameters, p.FastWindow, p.SlowWindow)
		}
		if p.ATRMultiplier <= 0 {
			return fmt.Errorf("%w: atr_multiplier must be positive", ErrInvalidParameters)
		}
	case Bollinger:
		if p.BBWindow <= 0 {
			return fmt.Errorf("%w: bb_window must be positive", ErrInvalidParameters)
		}
		if p.BBStdDev <= 0 {
			return fmt.Errorf("%w: bb_std_dev must be positive", ErrInvalidParameters)
		}
	default:
		return fmt.Errorf("%w: unknown strategy kind %d", ErrInvalidParameters, int(p.Strategy))
	}
	if p.Regime != nil && p.Regime.ADXWindow <= 0 {
		return fmt.Errorf("%w: adx_window must be positive", ErrInvalidParameters)
	}
	if p.Momentum != nil {
		m := p.Momentum
		if m.MACDFast <= 0 || m.MACDSlow <= 0 || m.MACDSignal <= 0 || m.MACDFast >= m.MACDSlow {
			return fmt.Errorf("%w: macd periods must be positive with fast < slow", ErrInvalidParameters)
		}
	}
	return nil
}

// Label is a compact human readable identifier used when logging trials.
func (p ParameterSet) Label() string {
	switch p.Strategy {
	case Bollinger:
		return fmt.Sprintf("%v(window=%d,std=%.2f)", p.Strategy, p.BBWindow, p.BBStdDev)
	case ATRVolatility:
		return fmt.Sprintf("%v(fast=%d,slow=%d,atr=%d,mult=%.2f)", p.Strategy, p.FastWindow, p.SlowWindow, p.ATRWindow, p.ATRMultiplier)
	default:
		return fmt.Sprintf("%v(fast=%d,slow=%d)", p.Strategy, p.FastWindow, p.SlowWindow)
	}
}

// RiskConfig holds the exit rules consumed by the exit state machine.
// A nil RiskConfig skips the exit stage entirely. Each field is optional on
// its own: a non-positive value disables that rule.
type RiskConfig struct {
	StopLossPct   float64
	TakeProfitPct float64
	MaxHoldPeriod int
}
