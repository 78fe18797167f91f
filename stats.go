package backtest

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/santiagogabrielcastillo/trading-bot/models"
)

// Evaluate converts final signals and prices into an equity curve and the
// derived metrics. Execution is modeled with a one-bar lag: the signal
// observed on bar t-1 acts on bar t's return, so strategy_return[t] =
// signal[t-1] * pct_change[t].
//
// Sharpe annualizes with calendar periods for a 24/7 market and uses the
// population standard deviation; both are fixed policy choices kept for
// reproducibility. Zero variance yields a NaN Sharpe, never an error.
func Evaluate(bars []*models.Bar, signals []models.Signal, initialCapital, riskFreeRate float64, timeframe models.Timeframe) (models.Metrics, []float64, error) {
	if len(bars) == 0 {
		return models.Metrics{}, nil, fmt.Errorf("cannot evaluate an empty bar window")
	}
	if len(bars) != len(signals) {
		return models.Metrics{}, nil, fmt.Errorf("got %d signals for %d bars", len(signals), len(bars))
	}
	periodsPerYear, err := timeframe.PeriodsPerYear()
	if err != nil {
		return models.Metrics{}, nil, err
	}

	strategyReturn := make([]float64, len(bars))
	for t := 1; t < len(bars); t++ {
		pctChange := bars[t].Close/bars[t-1].Close - 1
		strategyReturn[t] = float64(signals[t-1].Action) * pctChange
	}

	equity := make([]float64, len(bars))
	value := initialCapital
	for t := range strategyReturn {
		value *= 1 + strategyReturn[t]
		equity[t] = value
	}

	excess := make([]float64, len(strategyReturn))
	for t := range strategyReturn {
		excess[t] = strategyReturn[t] - riskFreeRate/periodsPerYear
	}
	mean := stat.Mean(excess, nil)
	// Population stddev: the second central moment about the mean.
	stdDev := math.Sqrt(stat.MomentAbout(2, excess, mean, nil))

	sharpe := math.NaN()
	if stdDev > 0 {
		sharpe = math.Sqrt(periodsPerYear) * mean / stdDev
	}

	metrics := models.Metrics{
		TotalReturn: equity[len(equity)-1]/initialCapital - 1,
		SharpeRatio: sharpe,
		MaxDrawdown: maxDrawdown(equity),
	}
	return metrics, equity, nil
}

// maxDrawdown is the worst peak-to-trough decline of the equity curve,
// reported as a non-positive fraction.
func maxDrawdown(equity []float64) float64 {
	var drawdown float64
	runningMax := equity[0]
	for _, v := range equity {
		if v > runningMax {
			runningMax = v
		}
		dd := v/runningMax - 1
		if dd < drawdown {
			drawdown = dd
		}
	}
	return drawdown
}
