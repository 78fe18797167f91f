// Package backtest evaluates trading-rule performance over historical price
// series: a vectorized indicator/signal pipeline, a sequential stop-loss/
// take-profit exit state machine and a performance evaluator, composed by a
// warm-up-aware engine.
package backtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/santiagogabrielcastillo/trading-bot/data"
	"github.com/santiagogabrielcastillo/trading-bot/logger"
	"github.com/santiagogabrielcastillo/trading-bot/models"
)

var (
	// ErrNoData means the data source returned nothing at all for the
	// buffered fetch window.
	ErrNoData = errors.New("no historical data available")
	// ErrEmptyWindow means data exists but nothing survived the warm-up
	// and [start,end] trims. Distinct from ErrNoData to aid diagnosis.
	ErrEmptyWindow = errors.New("no bars inside the requested window")
)

// fetchMargin is the extra bar allowance added on top of the strategy
// lookback when sizing the fetch window, covering sources with small gaps.
const fetchMargin = 5

// Backtester composes the pipeline over one symbol and timeframe. Risk is
// optional; when nil and LongOnly is false the exit state machine is
// skipped entirely.
type Backtester struct {
	Source         data.HistoricalDataSource
	Strategy       Strategy
	Symbol         string
	Timeframe      models.Timeframe
	InitialCapital float64
	RiskFreeRate   float64
	Risk           *models.RiskConfig
	LongOnly       bool
}

// RunResult carries the trimmed window the metrics were computed on.
// Exit indices are relative to Bars.
type RunResult struct {
	Metrics models.Metrics
	Equity  []float64
	Bars    []*models.Bar
	Signals []models.Signal
	Exits   []Exit
}

// New returns a Backtester with capital normalized to 1.0.
func New(source data.HistoricalDataSource, strategy Strategy, symbol string, timeframe models.Timeframe) *Backtester {
	return &Backtester{
		Source:         source,
		Strategy:       strategy,
		Symbol:         symbol,
		Timeframe:      timeframe,
		InitialCapital: 1.0,
	}
}

// Run executes the backtest between start and end. It fetches a window
// buffered with the strategy's effective lookback, runs indicators, filters
// and signal generation over the full fetch, applies the exit state machine,
// then trims exactly the lookback prefix plus anything outside [start,end]
// before evaluating performance.
func (b *Backtester) Run(start, end time.Time) (*RunResult, error) {
	interval, err := b.Timeframe.Duration()
	if err != nil {
		return nil, err
	}
	lookback := b.Strategy.MaxLookback()
	fetchStart := start.Add(-time.Duration(lookback+fetchMargin) * interval)
	limit := int(end.Sub(fetchStart)/interval) + fetchMargin + 1

	bars, err := b.Source.Fetch(b.Symbol, b.Timeframe, fetchStart, end, limit)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w for %s %s", ErrNoData, b.Symbol, b.Timeframe)
	}
	if !models.ValidateBars(bars) {
		return nil, fmt.Errorf("bars for %s %s are not strictly ascending", b.Symbol, b.Timeframe)
	}
	logger.Debugf("running %d bars for %s %s (lookback %d)\n", len(bars), b.Symbol, b.Timeframe, lookback)

	indicators := b.Strategy.Indicators(bars)
	signals := b.Strategy.Signals(bars, indicators)

	var exits []Exit
	if b.Risk != nil || b.LongOnly {
		risk := models.RiskConfig{}
		if b.Risk != nil {
			risk = *b.Risk
		}
		signals, exits = ApplyExits(bars, signals, risk, b.LongOnly)
	}

	first, last := windowBounds(bars, lookback, start, end)
	if first >= last {
		return nil, fmt.Errorf("%w: %s to %s on %s %s", ErrEmptyWindow,
			start.Format(time.RFC3339), end.Format(time.RFC3339), b.Symbol, b.Timeframe)
	}

	windowBars := bars[first:last]
	windowSignals := signals[first:last]
	windowExits := make([]Exit, 0, len(exits))
	for _, e := range exits {
		if e.Index >= first && e.Index < last {
			e.Index -= first
			windowExits = append(windowExits, e)
		}
	}

	metrics, equity, err := Evaluate(windowBars, windowSignals, b.InitialCapital, b.RiskFreeRate, b.Timeframe)
	if err != nil {
		return nil, err
	}
	return &RunResult{
		Metrics: metrics,
		Equity:  equity,
		Bars:    windowBars,
		Signals: windowSignals,
		Exits:   windowExits,
	}, nil
}

// windowBounds trims the lookback warm-up prefix and clamps to [start,end],
// returning half-open slice bounds.
func windowBounds(bars []*models.Bar, lookback int, start, end time.Time) (int, int) {
	startMs := start.UnixNano() / int64(time.Millisecond)
	endMs := end.UnixNano() / int64(time.Millisecond)

	first := lookback
	if first > len(bars) {
		first = len(bars)
	}
	for first < len(bars) && bars[first].Timestamp < startMs {
		first++
	}
	last := len(bars)
	for last > first && bars[last-1].Timestamp > endMs {
		last--
	}
	return first, last
}
