package backtest

import (
	"math"

	"github.com/santiagogabrielcastillo/trading-bot/models"
	"github.com/santiagogabrielcastillo/trading-bot/ta"
)

// Strategy is one concrete trading-rule variant: a pure indicator pipeline
// plus a signal generator over those indicators. Implementations are
// stateless; everything derives from the bars passed in.
type Strategy interface {
	Kind() models.StrategyKind
	// MaxLookback is the number of leading bars the caller must fetch and
	// trim on top of the requested window: the max of the strategy's own
	// windows and every attached filter's lookback.
	MaxLookback() int
	Indicators(bars []*models.Bar) models.IndicatorSet
	Signals(bars []*models.Bar, ind models.IndicatorSet) []models.Signal
}

// NewStrategy maps a validated ParameterSet onto its variant. The kind enum
// is closed, so there is no "unknown strategy" failure mode past this point.
func NewStrategy(params models.ParameterSet) (Strategy, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	var regime, momentum EntryFilter
	if params.Regime != nil {
		regime = NewADXRegimeFilter(*params.Regime)
	}
	if params.Momentum != nil {
		momentum = NewMACDMomentumFilter(*params.Momentum)
	}
	switch params.Strategy {
	case models.SMACross:
		return &maCross{params: params, exponential: false, regime: regime, momentum: momentum}, nil
	case models.EMACross:
		return &maCross{params: params, exponential: true, regime: regime, momentum: momentum}, nil
	case models.ATRVolatility:
		return &atrVolatility{params: params, regime: regime, momentum: momentum}, nil
	default:
		return &bollinger{params: params, regime: regime, momentum: momentum}, nil
	}
}

func filterLookback(own int, filters ...EntryFilter) int {
	max := own
	for _, f := range filters {
		if f != nil && f.MaxLookback() > max {
			max = f.MaxLookback()
		}
	}
	return max
}

// maCross trades golden/death crosses of a fast and slow moving average of
// the close, simple or exponential.
type maCross struct {
	params      models.ParameterSet
	exponential bool
	regime      EntryFilter
	momentum    EntryFilter
}

func (s *maCross) Kind() models.StrategyKind {
	return s.params.Strategy
}

func (s *maCross) MaxLookback() int {
	own := s.params.SlowWindow
	if s.params.FastWindow > own {
		own = s.params.FastWindow
	}
	return filterLookback(own, s.regime, s.momentum)
}

func (s *maCross) Indicators(bars []*models.Bar) models.IndicatorSet {
	close := models.Closes(bars)
	if s.exponential {
		return models.IndicatorSet{
			"ma_fast": ta.EMA(close, s.params.FastWindow),
			"ma_slow": ta.EMA(close, s.params.SlowWindow),
		}
	}
	return models.IndicatorSet{
		"ma_fast": ta.SMA(close, s.params.FastWindow),
		"ma_slow": ta.SMA(close, s.params.SlowWindow),
	}
}

func (s *maCross) Signals(bars []*models.Bar, ind models.IndicatorSet) []models.Signal {
	fast, slow := ind["ma_fast"], ind["ma_slow"]
	buy := make([]bool, len(bars))
	sell := make([]bool, len(bars))
	for i := 1; i < len(bars); i++ {
		buy[i] = crossAbove(fast[i-1], slow[i-1], fast[i], slow[i])
		sell[i] = crossBelow(fast[i-1], slow[i-1], fast[i], slow[i])
	}
	return resolveSignals(bars, buy, sell, s.regime, s.momentum, nil)
}

// atrVolatility is an EMA cross gated by realized volatility: a BUY trigger
// only survives when price has moved at least one ATR over the lookback
// window, which filters out low-volatility whipsaws. Every BUY carries an
// ATR-derived stop price in its metadata.
type atrVolatility struct {
	params   models.ParameterSet
	regime   EntryFilter
	momentum EntryFilter
}

func (s *atrVolatility) Kind() models.StrategyKind {
	return models.ATRVolatility
}

func (s *atrVolatility) MaxLookback() int {
	own := s.params.SlowWindow
	for _, w := range []int{s.params.FastWindow, s.params.ATRWindow, s.params.VolatilityLookback} {
		if w > own {
			own = w
		}
	}
	return filterLookback(own, s.regime, s.momentum)
}

func (s *atrVolatility) Indicators(bars []*models.Bar) models.IndicatorSet {
	close := models.Closes(bars)
	atr := ta.ATR(models.Highs(bars), models.Lows(bars), close, s.params.ATRWindow)
	stop := make([]float64, len(bars))
	for i := range bars {
		stop[i] = close[i] - s.params.ATRMultiplier*atr[i]
	}
	return models.IndicatorSet{
		"ma_fast":   ta.EMA(close, s.params.FastWindow),
		"ma_slow":   ta.EMA(close, s.params.SlowWindow),
		"atr":       atr,
		"stop_loss": stop,
	}
}

func (s *atrVolatility) Signals(bars []*models.Bar, ind models.IndicatorSet) []models.Signal {
	fast, slow, atr := ind["ma_fast"], ind["ma_slow"], ind["atr"]
	close := models.Closes(bars)
	lookback := s.params.VolatilityLookback

	buy := make([]bool, len(bars))
	sell := make([]bool, len(bars))
	for i := 1; i < len(bars); i++ {
		sell[i] = crossBelow(fast[i-1], slow[i-1], fast[i], slow[i])
		if !crossAbove(fast[i-1], slow[i-1], fast[i], slow[i]) {
			continue
		}
		if i < lookback {
			continue
		}
		// Volatility gate: |close[t] - close[t-lookback]| >= 1.0*ATR.
		// NaN ATR inside the warm-up compares false and blocks the entry.
		buy[i] = math.Abs(close[i]-close[i-lookback]) >= atr[i]
	}
	return resolveSignals(bars, buy, sell, s.regime, s.momentum, ind["stop_loss"])
}

// bollinger mean-reverts on band touches: BUY when the close crosses below
// the lower band, SELL when it crosses above the upper band.
type bollinger struct {
	params   models.ParameterSet
	regime   EntryFilter
	momentum EntryFilter
}

func (s *bollinger) Kind() models.StrategyKind {
	return models.Bollinger
}

func (s *bollinger) MaxLookback() int {
	return filterLookback(s.params.BBWindow, s.regime, s.momentum)
}

func (s *bollinger) Indicators(bars []*models.Bar) models.IndicatorSet {
	close := models.Closes(bars)
	upper, middle, lower := ta.BBands(close, s.params.BBWindow, s.params.BBStdDev)
	return models.IndicatorSet{
		"bb_upper":  upper,
		"bb_middle": middle,
		"bb_lower":  lower,
		"bb_std":    ta.RollingStd(close, s.params.BBWindow),
	}
}

func (s *bollinger) Signals(bars []*models.Bar, ind models.IndicatorSet) []models.Signal {
	upper, lower := ind["bb_upper"], ind["bb_lower"]
	close := models.Closes(bars)
	buy := make([]bool, len(bars))
	sell := make([]bool, len(bars))
	for i := 1; i < len(bars); i++ {
		buy[i] = crossBelow(close[i-1], lower[i-1], close[i], lower[i])
		sell[i] = crossAbove(close[i-1], upper[i-1], close[i], upper[i])
	}
	return resolveSignals(bars, buy, sell, s.regime, s.momentum, nil)
}
