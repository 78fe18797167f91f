// Package optimize grid-searches strategy parameters against one in-memory
// dataset, optionally validating top performers out-of-sample and ranking
// them by a robustness factor that penalizes in-sample overfitting.
package optimize

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jinzhu/copier"

	backtest "github.com/santiagogabrielcastillo/trading-bot"
	"github.com/santiagogabrielcastillo/trading-bot/data"
	"github.com/santiagogabrielcastillo/trading-bot/logger"
	"github.com/santiagogabrielcastillo/trading-bot/models"
)

// loadBuffer is the number of extra candles fetched before the optimization
// start so every candidate lookback has warm-up data available.
const loadBuffer = 1000

// PersistenceSink receives finished trials as plain data. Storage is the
// caller's concern; the optimizer only pushes.
type PersistenceSink interface {
	Record(models.TrialResult) error
}

// Config describes one optimization campaign. Split is optional: when
// non-zero it must fall strictly between Start and End and enables
// walk-forward validation.
type Config struct {
	Symbol         string
	Timeframe      models.Timeframe
	Start          time.Time
	End            time.Time
	Split          time.Time
	InitialCapital float64
	RiskFreeRate   float64
	Risk           *models.RiskConfig
	LongOnly       bool
}

// Optimizer runs backtest trials against a dataset loaded exactly once.
// Trials are executed serially for determinism; each reads the shared cache
// and writes only its own TrialResult.
type Optimizer struct {
	cfg    Config
	source *data.CachedSource
	Sink   PersistenceSink

	// Successes and Attempted report sweep health after a run: a single
	// bad combination is recorded and skipped, never fatal.
	Successes int
	Attempted int
}

func NewOptimizer(cfg Config) (*Optimizer, error) {
	if !cfg.End.After(cfg.Start) {
		return nil, fmt.Errorf("end (%v) must be after start (%v)", cfg.End, cfg.Start)
	}
	if !cfg.Split.IsZero() {
		if !cfg.Split.After(cfg.Start) || !cfg.Split.Before(cfg.End) {
			return nil, fmt.Errorf("split_date (%v) must be between start (%v) and end (%v)", cfg.Split, cfg.Start, cfg.End)
		}
	}
	if cfg.InitialCapital == 0 {
		cfg.InitialCapital = 1.0
	}
	return &Optimizer{cfg: cfg}, nil
}

// LoadDataOnce performs the single fetch every subsequent trial reuses.
func (o *Optimizer) LoadDataOnce(src data.HistoricalDataSource) error {
	interval, err := o.cfg.Timeframe.Duration()
	if err != nil {
		return err
	}
	bufferStart := o.cfg.Start.Add(-loadBuffer * interval)
	cached, err := data.LoadOnce(src, o.cfg.Symbol, o.cfg.Timeframe, bufferStart, o.cfg.End, 0)
	if err != nil {
		return fmt.Errorf("loading historical data: %w", err)
	}
	if cached.Len() == 0 {
		return fmt.Errorf("%w for %s %s", backtest.ErrNoData, o.cfg.Symbol, o.cfg.Timeframe)
	}
	logger.Infof("loaded %d bars for %s %s\n", cached.Len(), o.cfg.Symbol, o.cfg.Timeframe)
	o.source = cached
	return nil
}

// Run executes the full grid over [start,end] and returns trials ranked by
// in-sample Sharpe descending, undefined Sharpe last.
func (o *Optimizer) Run(base models.ParameterSet, grid Grid) ([]models.TrialResult, error) {
	combos, err := o.combinations(base, grid)
	if err != nil {
		return nil, err
	}
	results := o.sweep(combos, o.cfg.Start, o.cfg.End, "")
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SortableSharpe() > results[j].SortableSharpe()
	})
	logger.Infof("optimization complete: %d/%d combinations succeeded\n", o.Successes, o.Attempted)
	o.record(results)
	return results, nil
}

// RunWalkForward grid-searches the in-sample window [start,split), takes the
// topN combinations by IS Sharpe, re-runs them on the held-out [split,end]
// window and returns them ranked by robustness factor descending.
func (o *Optimizer) RunWalkForward(base models.ParameterSet, grid Grid, topN int) ([]models.TrialResult, error) {
	if o.cfg.Split.IsZero() {
		return nil, errors.New("walk-forward mode requires a split date")
	}
	if topN <= 0 {
		topN = 5
	}
	combos, err := o.combinations(base, grid)
	if err != nil {
		return nil, err
	}

	// The IS window is half-open: the split bar belongs to OOS.
	isEnd := o.cfg.Split.Add(-time.Millisecond)
	isResults := o.sweep(combos, o.cfg.Start, isEnd, "IS")
	sort.SliceStable(isResults, func(i, j int) bool {
		return isResults[i].SortableSharpe() > isResults[j].SortableSharpe()
	})
	logger.Infof("in-sample phase complete: %d/%d combinations succeeded\n", o.Successes, o.Attempted)
	if len(isResults) == 0 {
		return nil, fmt.Errorf("no successful in-sample trials out of %d", o.Attempted)
	}
	if topN > len(isResults) {
		topN = len(isResults)
	}

	validated := make([]models.TrialResult, 0, topN)
	for i := 0; i < topN; i++ {
		trial := isResults[i]
		metrics, err := o.runTrial(trial.Params, o.cfg.Split, o.cfg.End)
		if err != nil {
			logger.Errorf("out-of-sample trial failed for %s: %v\n", trial.Params.Label(), err)
			continue
		}
		oos := metrics
		validated = append(validated, models.TrialResult{
			Params:      trial.Params,
			InSample:    trial.InSample,
			OutOfSample: &oos,
			Robustness:  RobustnessFactor(trial.InSample.SharpeRatio, oos.SharpeRatio),
		})
	}
	sort.SliceStable(validated, func(i, j int) bool {
		return validated[i].Robustness > validated[j].Robustness
	})
	logger.Infof("walk-forward validation complete: %d/%d top performers validated\n", len(validated), topN)
	o.record(validated)
	return validated, nil
}

// RobustnessFactor is SharpeOOS * (SharpeOOS / SharpeIS): it rewards
// out-of-sample performance and penalizes IS→OOS degradation. A
// non-positive OOS Sharpe disqualifies outright and an IS Sharpe at or
// below 0.01 (no edge, or division hazard) scores zero.
func RobustnessFactor(sharpeIS, sharpeOOS float64) float64 {
	if math.IsNaN(sharpeOOS) || sharpeOOS <= 0 {
		return 0
	}
	if math.IsNaN(sharpeIS) || sharpeIS <= 0.01 {
		return 0
	}
	return sharpeOOS * (sharpeOOS / sharpeIS)
}

func (o *Optimizer) combinations(base models.ParameterSet, grid Grid) ([]models.ParameterSet, error) {
	if o.source == nil {
		return nil, errors.New("data not loaded; call LoadDataOnce first")
	}
	combos := grid.Combinations(base)
	if len(combos) == 0 {
		return nil, fmt.Errorf("%w: grid produced no valid combinations", models.ErrInvalidParameters)
	}
	return combos, nil
}

func (o *Optimizer) sweep(combos []models.ParameterSet, start, end time.Time, phase string) []models.TrialResult {
	prefix := ""
	if phase != "" {
		prefix = "[" + phase + "] "
	}
	o.Attempted = len(combos)
	o.Successes = 0

	results := make([]models.TrialResult, 0, len(combos))
	for i, params := range combos {
		metrics, err := o.runTrial(params, start, end)
		if err != nil {
			logger.Errorf("%strial %d/%d failed for %s: %v\n", prefix, i+1, len(combos), params.Label(), err)
			continue
		}
		o.Successes++
		logger.Debugf("%strial %d/%d %s sharpe=%.4f return=%.4f\n",
			prefix, i+1, len(combos), params.Label(), metrics.SharpeRatio, metrics.TotalReturn)
		results = append(results, models.TrialResult{Params: params, InSample: metrics})
	}
	return results
}

// runTrial runs one backtest over the cached dataset. Panics from deep in
// the indicator stack are converted to errors so a malformed combination
// cannot abort the sweep.
func (o *Optimizer) runTrial(params models.ParameterSet, start, end time.Time) (metrics models.Metrics, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("trial panicked: %v", r)
		}
	}()
	strategy, err := backtest.NewStrategy(params)
	if err != nil {
		return models.Metrics{}, err
	}
	bt := &backtest.Backtester{
		Source:         o.source,
		Strategy:       strategy,
		Symbol:         o.cfg.Symbol,
		Timeframe:      o.cfg.Timeframe,
		InitialCapital: o.cfg.InitialCapital,
		RiskFreeRate:   o.cfg.RiskFreeRate,
		Risk:           o.cfg.Risk,
		LongOnly:       o.cfg.LongOnly,
	}
	result, err := bt.Run(start, end)
	if err != nil {
		return models.Metrics{}, err
	}
	return result.Metrics, nil
}

func (o *Optimizer) record(results []models.TrialResult) {
	if o.Sink == nil {
		return
	}
	for _, r := range results {
		if err := o.Sink.Record(r); err != nil {
			logger.Errorf("recording trial %s: %v\n", r.Params.Label(), err)
		}
	}
}

// Grid lists the candidate values per tunable. Empty axes keep the base
// value. Combinations silently drops structurally invalid combinations
// (e.g. fast >= slow); for a sweep that is filtering, not an error.
type Grid struct {
	FastWindows         []int
	SlowWindows         []int
	ATRWindows          []int
	ATRMultipliers      []float64
	VolatilityLookbacks []int
	BBWindows           []int
	BBStdDevs           []float64
}

// Combinations expands the cartesian product of all non-empty axes over a
// copy of base and keeps only valid parameter sets.
func (g Grid) Combinations(base models.ParameterSet) []models.ParameterSet {
	sets := []models.ParameterSet{cloneParams(base)}
	sets = expandInts(sets, g.FastWindows, func(p *models.ParameterSet, v int) { p.FastWindow = v })
	sets = expandInts(sets, g.SlowWindows, func(p *models.ParameterSet, v int) { p.SlowWindow = v })
	sets = expandInts(sets, g.ATRWindows, func(p *models.ParameterSet, v int) { p.ATRWindow = v })
	sets = expandFloats(sets, g.ATRMultipliers, func(p *models.ParameterSet, v float64) { p.ATRMultiplier = v })
	sets = expandInts(sets, g.VolatilityLookbacks, func(p *models.ParameterSet, v int) { p.VolatilityLookback = v })
	sets = expandInts(sets, g.BBWindows, func(p *models.ParameterSet, v int) { p.BBWindow = v })
	sets = expandFloats(sets, g.BBStdDevs, func(p *models.ParameterSet, v float64) { p.BBStdDev = v })

	valid := sets[:0]
	for _, p := range sets {
		if p.Validate() == nil {
			valid = append(valid, p)
		}
	}
	logger.Infof("parameter grid: %d combinations, %d valid\n", len(sets), len(valid))
	return valid
}

func cloneParams(p models.ParameterSet) models.ParameterSet {
	var out models.ParameterSet
	if err := copier.Copy(&out, &p); err != nil {
		return p
	}
	return out
}

func expandInts(sets []models.ParameterSet, values []int, set func(*models.ParameterSet, int)) []models.ParameterSet {
	if len(values) == 0 {
		return sets
	}
	out := make([]models.ParameterSet, 0, len(sets)*len(values))
	for _, s := range sets {
		for _, v := range values {
			p := cloneParams(s)
			set(&p, v)
			out = append(out, p)
		}
	}
	return out
}

func expandFloats(sets []models.ParameterSet, values []float64, set func(*models.ParameterSet, float64)) []models.ParameterSet {
	if len(values) == 0 {
		return sets
	}
	out := make([]models.ParameterSet, 0, len(sets)*len(values))
	for _, s := range sets {
		for _, v := range values {
			p := cloneParams(s)
			set(&p, v)
			out = append(out, p)
		}
	}
	return out
}
