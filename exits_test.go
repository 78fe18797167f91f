package backtest

import (
	"math"
	"testing"

	"github.com/santiagogabrielcastillo/trading-bot/models"
)

func checkExit(t *testing.T, exits []Exit, i int, index int, reason ExitReason) {
	t.Helper()
	if i >= len(exits) {
		t.Fatalf("missing exit %d, only got %d exits\n", i, len(exits))
	}
	if exits[i].Index != index {
		t.Errorf("Bad exit index: %v, expected %v\n", exits[i].Index, index)
	}
	if exits[i].Reason != reason {
		t.Errorf("Bad exit reason: %v, expected %v\n", exits[i].Reason, reason)
	}
}

func TestStopLossForcesExit(t *testing.T) {
	// Entry at 100 with a 2% stop: the first close at or below 98 inside
	// the open position must exit on that exact bar.
	bars := makeBars([]float64{100, 99, 97.9, 97})
	signals := actions(models.Buy, models.Hold, models.Hold, models.Hold)
	risk := models.RiskConfig{StopLossPct: 0.02}

	out, exits := ApplyExits(bars, signals, risk, false)
	checkExit(t, exits, 0, 2, ReasonStopLoss)
	if len(exits) != 1 {
		t.Errorf("Bad exit count: %v, expected 1\n", len(exits))
	}
	if out[2].Action != models.Sell {
		t.Errorf("Bad signal at stop bar: %v, expected SELL\n", out[2].Action)
	}
	if out[1].Action != models.Hold || out[3].Action != models.Hold {
		t.Error("bars outside the stop must stay HOLD")
	}
}

func TestTakeProfitForcesExit(t *testing.T) {
	bars := makeBars([]float64{100, 102, 104.1, 105})
	signals := actions(models.Buy, models.Hold, models.Hold, models.Hold)
	risk := models.RiskConfig{TakeProfitPct: 0.04}

	out, exits := ApplyExits(bars, signals, risk, false)
	checkExit(t, exits, 0, 2, ReasonTakeProfit)
	if out[2].Action != models.Sell {
		t.Errorf("Bad signal at target bar: %v, expected SELL\n", out[2].Action)
	}
}

func TestMaxHoldForcesExit(t *testing.T) {
	bars := makeBars([]float64{100, 100.5, 100.2, 100.1, 100.3})
	signals := actions(models.Buy, models.Hold, models.Hold, models.Hold, models.Hold)
	risk := models.RiskConfig{MaxHoldPeriod: 3}

	_, exits := ApplyExits(bars, signals, risk, false)
	checkExit(t, exits, 0, 3, ReasonMaxHold)
}

func TestStrategySignalExit(t *testing.T) {
	bars := makeBars([]float64{100, 101, 102})
	signals := actions(models.Buy, models.Hold, models.Sell)

	out, exits := ApplyExits(bars, signals, models.RiskConfig{}, false)
	checkExit(t, exits, 0, 2, ReasonStrategySignal)
	if out[2].Action != models.Sell {
		t.Errorf("Bad signal at exit bar: %v, expected SELL\n", out[2].Action)
	}
}

func TestExitPriorityWorstCaseFirst(t *testing.T) {
	// Stop-loss beats max-hold when both hold on the same bar.
	bars := makeBars([]float64{100, 99, 97})
	signals := actions(models.Buy, models.Hold, models.Hold)
	risk := models.RiskConfig{StopLossPct: 0.02, MaxHoldPeriod: 2}
	_, exits := ApplyExits(bars, signals, risk, false)
	checkExit(t, exits, 0, 2, ReasonStopLoss)

	// Take-profit beats max-hold.
	bars = makeBars([]float64{100, 101, 103})
	risk = models.RiskConfig{TakeProfitPct: 0.02, MaxHoldPeriod: 2}
	_, exits = ApplyExits(bars, signals, risk, false)
	checkExit(t, exits, 0, 2, ReasonTakeProfit)

	// Max-hold beats the strategy's own SELL.
	bars = makeBars([]float64{100, 100.5, 100.6})
	signals = actions(models.Buy, models.Hold, models.Sell)
	risk = models.RiskConfig{MaxHoldPeriod: 2}
	_, exits = ApplyExits(bars, signals, risk, false)
	checkExit(t, exits, 0, 2, ReasonMaxHold)
}

func TestNoReentryOnExitBar(t *testing.T) {
	// A BUY landing on the forced-exit bar must not open a new position.
	bars := makeBars([]float64{100, 97, 96, 95})
	signals := actions(models.Buy, models.Buy, models.Hold, models.Hold)
	risk := models.RiskConfig{StopLossPct: 0.02}

	out, exits := ApplyExits(bars, signals, risk, false)
	checkExit(t, exits, 0, 1, ReasonStopLoss)
	if len(exits) != 1 {
		t.Errorf("Bad exit count: %v, expected 1\n", len(exits))
	}
	if out[1].Action != models.Sell {
		t.Errorf("Bad signal at exit bar: %v, expected SELL\n", out[1].Action)
	}
	// Bars 2 and 3 drop further; a re-entered position would stop out again.
	if out[2].Action != models.Hold || out[3].Action != models.Hold {
		t.Error("machine re-entered after a forced exit")
	}
}

func TestBuyWhileLongIgnored(t *testing.T) {
	bars := makeBars([]float64{100, 101, 102})
	signals := actions(models.Buy, models.Buy, models.Hold)

	out, _ := ApplyExits(bars, signals, models.RiskConfig{}, false)
	if out[1].Action != models.Hold {
		t.Errorf("Bad signal for BUY while LONG: %v, expected HOLD\n", out[1].Action)
	}
}

func TestStrategyProvidedStopWins(t *testing.T) {
	// The strategy's proposed stop (99.5) sits above the pct stop (98) and
	// must take precedence.
	bars := makeBars([]float64{100, 99.4, 99})
	signals := actions(models.Buy, models.Hold, models.Hold)
	signals[0].StopLoss = 99.5
	risk := models.RiskConfig{StopLossPct: 0.02}

	_, exits := ApplyExits(bars, signals, risk, false)
	checkExit(t, exits, 0, 1, ReasonStopLoss)
}

func TestDisabledRulesNeverFire(t *testing.T) {
	bars := makeBars([]float64{100, 50, 200, 100})
	signals := actions(models.Buy, models.Hold, models.Hold, models.Hold)

	out, exits := ApplyExits(bars, signals, models.RiskConfig{}, false)
	if len(exits) != 0 {
		t.Errorf("Bad exit count with all rules disabled: %v, expected 0\n", len(exits))
	}
	for i := 1; i < len(out); i++ {
		if out[i].Action != models.Hold {
			t.Errorf("Bad signal at %d: %v, expected HOLD\n", i, out[i].Action)
		}
	}
}

func TestLongOnlyConvertsEntrySellsOnly(t *testing.T) {
	bars := makeBars([]float64{100, 101, 102, 103})
	signals := actions(models.Sell, models.Buy, models.Hold, models.Sell)

	out, exits := ApplyExits(bars, signals, models.RiskConfig{}, true)
	if out[0].Action != models.Hold {
		t.Errorf("Bad flat SELL in long-only mode: %v, expected HOLD\n", out[0].Action)
	}
	if out[3].Action != models.Sell {
		t.Errorf("Bad exit SELL in long-only mode: %v, expected SELL\n", out[3].Action)
	}
	checkExit(t, exits, 0, 3, ReasonStrategySignal)
}

func TestEntryUsesPctStopWhenNoProposal(t *testing.T) {
	pos := enter(0, 100, math.NaN(), models.RiskConfig{StopLossPct: 0.02, TakeProfitPct: 0.04})
	checkClose(t, "stop", pos.stopLoss, 98, 1e-12)
	checkClose(t, "target", pos.takeProfit, 104, 1e-12)

	pos = enter(0, 100, math.NaN(), models.RiskConfig{})
	if !math.IsNaN(pos.stopLoss) || !math.IsNaN(pos.takeProfit) {
		t.Error("disabled rules must leave stop and target undefined")
	}
}
