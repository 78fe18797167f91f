package backtest

import (
	"errors"
	"testing"
	"time"

	"github.com/santiagogabrielcastillo/trading-bot/data"
	"github.com/santiagogabrielcastillo/trading-bot/models"
)

func smaCross(t *testing.T, fast, slow int) Strategy {
	t.Helper()
	params := models.DefaultParameters(models.SMACross)
	params.FastWindow = fast
	params.SlowWindow = slow
	strategy, err := NewStrategy(params)
	if err != nil {
		t.Fatal(err)
	}
	return strategy
}

func TestRunTrimsWarmupAndWindow(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100 + float64(i%9)
	}
	source := data.NewCachedSource(makeBars(closes))

	b := New(source, smaCross(t, 2, 3), "BTCUSD", models.Hour)
	start := testEpoch.Add(10 * barInterval)
	end := testEpoch.Add(20 * barInterval)

	result, err := b.Run(start, end)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Bars) != 11 {
		t.Errorf("Bad window size: %v, expected 11\n", len(result.Bars))
	}
	startMs := start.UnixNano() / int64(time.Millisecond)
	endMs := end.UnixNano() / int64(time.Millisecond)
	for i, bar := range result.Bars {
		if bar.Timestamp < startMs || bar.Timestamp > endMs {
			t.Errorf("Bar %d at %v escapes the requested window\n", i, bar.Timestamp)
		}
	}
	if len(result.Signals) != len(result.Bars) || len(result.Equity) != len(result.Bars) {
		t.Errorf("Window slices disagree: %d bars, %d signals, %d equity\n",
			len(result.Bars), len(result.Signals), len(result.Equity))
	}
	checkClose(t, "starting equity", result.Equity[0], 1.0, 1e-12)
}

func TestRunNoData(t *testing.T) {
	b := New(data.NewCachedSource(nil), smaCross(t, 2, 3), "BTCUSD", models.Hour)
	_, err := b.Run(testEpoch, testEpoch.Add(10*barInterval))
	if !errors.Is(err, ErrNoData) {
		t.Errorf("Bad error: %v, expected ErrNoData\n", err)
	}
}

func TestRunEmptyWindow(t *testing.T) {
	// Bars exist inside the buffered fetch but every one of them predates
	// the requested start, so the trim leaves nothing to evaluate.
	bars := makeBars([]float64{100, 101, 102, 103, 104, 105, 106, 107})
	source := data.NewCachedSource(bars)

	b := New(source, smaCross(t, 2, 3), "BTCUSD", models.Hour)
	start := testEpoch.Add(8 * barInterval)
	end := testEpoch.Add(20 * barInterval)
	_, err := b.Run(start, end)
	if !errors.Is(err, ErrEmptyWindow) {
		t.Errorf("Bad error: %v, expected ErrEmptyWindow\n", err)
	}
	if errors.Is(err, ErrNoData) {
		t.Error("empty window must not be reported as missing data")
	}
}

func TestRunRejectsUnorderedBars(t *testing.T) {
	bars := makeBars([]float64{100, 101, 102, 103, 104, 105})
	bars[3].Timestamp = bars[2].Timestamp
	b := New(data.NewCachedSource(bars), smaCross(t, 2, 3), "BTCUSD", models.Hour)
	if _, err := b.Run(testEpoch, testEpoch.Add(5*barInterval)); err == nil {
		t.Error("expected an error for non-ascending timestamps")
	}
}

func TestRunAppliesStopLossWithRemappedIndices(t *testing.T) {
	// Golden cross at bar 5 (close 10), then a crash through the 2% stop at
	// bar 8 (close 5). The exit index must be relative to the trimmed window.
	closes := []float64{10, 9, 8, 7, 6, 10, 11, 12, 5, 4, 3, 2, 1.9, 1.8, 1.7}
	source := data.NewCachedSource(makeBars(closes))

	b := New(source, smaCross(t, 2, 3), "BTCUSD", models.Hour)
	b.Risk = &models.RiskConfig{StopLossPct: 0.02}

	result, err := b.Run(testEpoch, testEpoch.Add(14*barInterval))
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Exits) != 1 {
		t.Fatalf("Bad exit count: %v, expected 1\n", len(result.Exits))
	}
	exit := result.Exits[0]
	if exit.Reason != ReasonStopLoss {
		t.Errorf("Bad exit reason: %v, expected %v\n", exit.Reason, ReasonStopLoss)
	}
	if exit.Index < 0 || exit.Index >= len(result.Bars) {
		t.Fatalf("Exit index %d outside the window of %d bars\n", exit.Index, len(result.Bars))
	}
	checkClose(t, "exit bar close", result.Bars[exit.Index].Close, 5, 1e-12)
	if result.Signals[exit.Index].Action != models.Sell {
		t.Errorf("Bad signal on the exit bar: %v, expected SELL\n", result.Signals[exit.Index].Action)
	}
}

func TestWindowBounds(t *testing.T) {
	bars := makeBars([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	first, last := windowBounds(bars, 3, testEpoch, testEpoch.Add(100*barInterval))
	if first != 3 || last != 10 {
		t.Errorf("Bad bounds: [%d,%d), expected [3,10)\n", first, last)
	}

	first, last = windowBounds(bars, 2, testEpoch.Add(5*barInterval), testEpoch.Add(7*barInterval))
	if first != 5 || last != 8 {
		t.Errorf("Bad bounds: [%d,%d), expected [5,8)\n", first, last)
	}

	// Lookback larger than the data collapses the window.
	first, last = windowBounds(bars, 50, testEpoch, testEpoch.Add(100*barInterval))
	if first < last {
		t.Errorf("Bad bounds: [%d,%d), expected an empty window\n", first, last)
	}
}
