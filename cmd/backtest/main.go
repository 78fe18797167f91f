// Command backtest runs one strategy over historical candles or sweeps a
// parameter grid, driven by a JSON config file. The first argument selects
// the mode: test (default), optimize or walkforward.
package main

import (
	"fmt"
	"os"
	"time"

	backtest "github.com/santiagogabrielcastillo/trading-bot"
	"github.com/santiagogabrielcastillo/trading-bot/data"
	"github.com/santiagogabrielcastillo/trading-bot/logger"
	"github.com/santiagogabrielcastillo/trading-bot/models"
	"github.com/santiagogabrielcastillo/trading-bot/optimize"
	"github.com/santiagogabrielcastillo/trading-bot/reporting"
	"github.com/santiagogabrielcastillo/trading-bot/settings"
)

func main() {
	mode := "test"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}
	configPath := "config.json"
	if len(os.Args) > 2 {
		configPath = os.Args[2]
	}

	config, err := settings.LoadConfig(configPath)
	if err != nil {
		fail(err)
	}

	var run func(settings.Config) error
	switch mode {
	case "test":
		run = runBacktest
	case "optimize", "walkforward":
		run = func(c settings.Config) error { return runOptimization(c, mode == "walkforward") }
	default:
		fail(fmt.Errorf("unknown mode %q, expected test, optimize or walkforward", mode))
	}
	if err := run(config); err != nil {
		fail(err)
	}
}

func fail(err error) {
	logger.Error(err)
	os.Exit(1)
}

func runBacktest(config settings.Config) error {
	source, closeSource, err := buildSource(config)
	if err != nil {
		return err
	}
	defer closeSource()

	kind, err := config.StrategyKind()
	if err != nil {
		return err
	}
	strategy, err := backtest.NewStrategy(models.DefaultParameters(kind))
	if err != nil {
		return err
	}
	start, end, _, err := campaignWindow(config)
	if err != nil {
		return err
	}

	bt := backtest.New(source, strategy, config.Symbol, models.Timeframe(config.Timeframe))
	if config.InitialCapital > 0 {
		bt.InitialCapital = config.InitialCapital
	}
	bt.RiskFreeRate = config.RiskFreeRate
	bt.Risk = config.Risk()
	bt.LongOnly = config.LongOnly

	result, err := bt.Run(start, end)
	if err != nil {
		return err
	}
	logger.Infof("%s %s %s: return=%.4f sharpe=%.4f max_drawdown=%.4f exits=%d\n",
		config.Symbol, config.Timeframe, strategy.Kind(),
		result.Metrics.TotalReturn, result.Metrics.SharpeRatio, result.Metrics.MaxDrawdown, len(result.Exits))
	return nil
}

func runOptimization(config settings.Config, walkForward bool) error {
	source, closeSource, err := buildSource(config)
	if err != nil {
		return err
	}
	defer closeSource()

	kind, err := config.StrategyKind()
	if err != nil {
		return err
	}
	start, end, split, err := campaignWindow(config)
	if err != nil {
		return err
	}
	if walkForward && split.IsZero() {
		return fmt.Errorf("walkforward mode requires split_date in the config")
	}

	optimizer, err := optimize.NewOptimizer(optimize.Config{
		Symbol:         config.Symbol,
		Timeframe:      models.Timeframe(config.Timeframe),
		Start:          start,
		End:            end,
		Split:          split,
		InitialCapital: config.InitialCapital,
		RiskFreeRate:   config.RiskFreeRate,
		Risk:           config.Risk(),
		LongOnly:       config.LongOnly,
	})
	if err != nil {
		return err
	}
	if config.InfluxHost != "" {
		reporter := reporting.NewInfluxReporter(reporting.InfluxConfig{
			Addr:     config.InfluxHost,
			Username: config.InfluxUser,
			Password: config.InfluxPassword,
			Database: config.InfluxDatabase,
		})
		optimizer.Sink = reporter
		logger.Infof("recording trials to %s as run %s\n", config.InfluxHost, reporter.RunID())
	}
	if err := optimizer.LoadDataOnce(source); err != nil {
		return err
	}

	base := models.DefaultParameters(kind)
	grid := defaultGrid(kind)

	var results []models.TrialResult
	if walkForward {
		results, err = optimizer.RunWalkForward(base, grid, 5)
	} else {
		results, err = optimizer.Run(base, grid)
	}
	if err != nil {
		return err
	}
	for i, trial := range results {
		if trial.OutOfSample != nil {
			logger.Infof("#%d %s is_sharpe=%.4f oos_sharpe=%.4f robustness=%.4f\n",
				i+1, trial.Params.Label(), trial.InSample.SharpeRatio, trial.OutOfSample.SharpeRatio, trial.Robustness)
			continue
		}
		logger.Infof("#%d %s sharpe=%.4f return=%.4f\n",
			i+1, trial.Params.Label(), trial.InSample.SharpeRatio, trial.InSample.TotalReturn)
	}
	return nil
}

func defaultGrid(kind models.StrategyKind) optimize.Grid {
	switch kind {
	case models.Bollinger:
		return optimize.Grid{
			BBWindows: []int{10, 20, 30},
			BBStdDevs: []float64{1.5, 2.0, 2.5},
		}
	case models.ATRVolatility:
		return optimize.Grid{
			FastWindows:    []int{5, 10, 20},
			SlowWindows:    []int{50, 100},
			ATRWindows:     []int{7, 14},
			ATRMultipliers: []float64{1.5, 2.0, 3.0},
		}
	}
	return optimize.Grid{
		FastWindows: []int{5, 10, 20, 50},
		SlowWindows: []int{20, 50, 100, 200},
	}
}

func buildSource(config settings.Config) (data.HistoricalDataSource, func(), error) {
	if config.CSVPath != "" {
		return data.NewCSVSource(config.CSVPath), func() {}, nil
	}
	pg, err := data.NewPostgresSource(data.PostgresConfig{
		Host:     config.PostgresHost,
		Port:     config.PostgresPort,
		User:     config.PostgresUser,
		Password: config.PostgresPassword,
		DBName:   config.PostgresDBName,
	})
	if err != nil {
		return nil, nil, err
	}
	return pg, func() { pg.Close() }, nil
}

// campaignWindow parses start, end and the optional split date. Dates accept
// RFC3339 or plain YYYY-MM-DD.
func campaignWindow(config settings.Config) (start, end, split time.Time, err error) {
	if start, err = parseDate(config.Start); err != nil {
		return
	}
	if end, err = parseDate(config.End); err != nil {
		return
	}
	if config.SplitDate != "" {
		split, err = parseDate(config.SplitDate)
	}
	return
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("start and end dates are required")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable date %q, expected RFC3339 or YYYY-MM-DD", value)
	}
	return t, nil
}
