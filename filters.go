package backtest

import (
	"fmt"

	"github.com/santiagogabrielcastillo/trading-bot/logger"
	"github.com/santiagogabrielcastillo/trading-bot/models"
	"github.com/santiagogabrielcastillo/trading-bot/ta"
)

// EntryFilter gates entry signals. Evaluate returns one validity flag per
// bar for the given entry direction. Filters are advisory: the engine wraps
// every call in failOpenMask, so a failing filter degrades to an all-valid
// mask instead of aborting the run.
type EntryFilter interface {
	MaxLookback() int
	Evaluate(bars []*models.Bar, direction models.Action) ([]bool, error)
}

// failOpenMask converts any filter failure (error, panic, wrong mask length)
// into an all-valid mask plus a warning. One bad filter configuration inside
// an optimization sweep must degrade gracefully, never crash the sweep.
// A nil filter means no gating at all.
func failOpenMask(f EntryFilter, bars []*models.Bar, direction models.Action) (mask []bool) {
	allValid := func() []bool {
		m := make([]bool, len(bars))
		for i := range m {
			m[i] = true
		}
		return m
	}
	if f == nil {
		return allValid()
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("filter %T panicked (%v), failing open\n", f, r)
			mask = allValid()
		}
	}()
	mask, err := f.Evaluate(bars, direction)
	if err != nil {
		logger.Errorf("filter %T failed (%v), failing open\n", f, err)
		return allValid()
	}
	if len(mask) != len(bars) {
		logger.Errorf("filter %T returned %d flags for %d bars, failing open\n", f, len(mask), len(bars))
		return allValid()
	}
	return mask
}

// ADXRegimeFilter classifies each bar's market regime from ADX trend
// strength and DMI direction, and only validates entries that trade with
// the regime: BUY in TRENDING_UP, SELL in TRENDING_DOWN.
type ADXRegimeFilter struct {
	cfg models.RegimeConfig
}

func NewADXRegimeFilter(cfg models.RegimeConfig) *ADXRegimeFilter {
	return &ADXRegimeFilter{cfg: cfg}
}

// MaxLookback is 2*adx_window: one window for the smoothed TR/DM series and
// another for the smoothed DX.
func (f *ADXRegimeFilter) MaxLookback() int {
	return 2 * f.cfg.ADXWindow
}

// Regime labels every bar. Bars inside the ADX warm-up stay RANGING because
// NaN never exceeds the threshold.
func (f *ADXRegimeFilter) Regime(bars []*models.Bar) ([]models.MarketState, error) {
	if f.cfg.ADXWindow <= 0 {
		return nil, fmt.Errorf("adx_window must be positive, got %d", f.cfg.ADXWindow)
	}
	if len(bars) <= f.MaxLookback() {
		return nil, fmt.Errorf("need more than %d bars for ADX(%d), got %d", f.MaxLookback(), f.cfg.ADXWindow, len(bars))
	}
	high, low, close := models.Highs(bars), models.Lows(bars), models.Closes(bars)
	adx := ta.ADX(high, low, close, f.cfg.ADXWindow)
	plusDI := ta.PlusDI(high, low, close, f.cfg.ADXWindow)
	minusDI := ta.MinusDI(high, low, close, f.cfg.ADXWindow)

	regime := make([]models.MarketState, len(bars))
	for i := range bars {
		switch {
		case adx[i] > f.cfg.ADXThreshold && plusDI[i] > minusDI[i]:
			regime[i] = models.TrendingUp
		case adx[i] > f.cfg.ADXThreshold && minusDI[i] > plusDI[i]:
			regime[i] = models.TrendingDown
		default:
			regime[i] = models.Ranging
		}
	}
	return regime, nil
}

func (f *ADXRegimeFilter) Evaluate(bars []*models.Bar, direction models.Action) ([]bool, error) {
	regime, err := f.Regime(bars)
	if err != nil {
		return nil, err
	}
	var want models.MarketState
	switch direction {
	case models.Buy:
		want = models.TrendingUp
	case models.Sell:
		want = models.TrendingDown
	default:
		return make([]bool, len(bars)), nil
	}
	mask := make([]bool, len(bars))
	for i := range regime {
		mask[i] = regime[i] == want
	}
	return mask, nil
}

// MACDMomentumFilter confirms directional acceleration before an entry:
// BUY entries require a positive MACD histogram, SELL entries a negative one.
type MACDMomentumFilter struct {
	cfg models.MomentumConfig
}

func NewMACDMomentumFilter(cfg models.MomentumConfig) *MACDMomentumFilter {
	return &MACDMomentumFilter{cfg: cfg}
}

// MaxLookback is macd_slow+macd_signal: enough candles to stabilize both the
// slow EMA and the signal line.
func (f *MACDMomentumFilter) MaxLookback() int {
	return f.cfg.MACDSlow + f.cfg.MACDSignal
}

func (f *MACDMomentumFilter) Evaluate(bars []*models.Bar, direction models.Action) ([]bool, error) {
	if f.cfg.MACDFast <= 0 || f.cfg.MACDSlow <= 0 || f.cfg.MACDSignal <= 0 {
		return nil, fmt.Errorf("macd periods must be positive (%d/%d/%d)", f.cfg.MACDFast, f.cfg.MACDSlow, f.cfg.MACDSignal)
	}
	if len(bars) <= f.MaxLookback() {
		return nil, fmt.Errorf("need more than %d bars for MACD(%d,%d,%d), got %d",
			f.MaxLookback(), f.cfg.MACDFast, f.cfg.MACDSlow, f.cfg.MACDSignal, len(bars))
	}
	_, _, hist := ta.MACD(models.Closes(bars), f.cfg.MACDFast, f.cfg.MACDSlow, f.cfg.MACDSignal)
	mask := make([]bool, len(bars))
	for i, h := range hist {
		switch direction {
		case models.Buy:
			mask[i] = h > 0
		case models.Sell:
			mask[i] = h < 0
		}
	}
	return mask, nil
}
