package backtest

import (
	"math"

	"github.com/santiagogabrielcastillo/trading-bot/models"
)

// ExitReason records why the exit state machine forced a position flat.
type ExitReason string

const (
	ReasonStopLoss       ExitReason = "STOP_LOSS"
	ReasonTakeProfit     ExitReason = "TAKE_PROFIT"
	ReasonMaxHold        ExitReason = "MAX_HOLD_PERIOD"
	ReasonStrategySignal ExitReason = "STRATEGY_SIGNAL"
)

// Exit is one closed position: the bar it closed on, the close price and
// the rule that closed it.
type Exit struct {
	Index  int
	Price  float64
	Reason ExitReason
}

// position is the machine's mutable state, local to one ApplyExits call so
// concurrent trials can never interfere. Stop and take-profit levels are
// NaN when the corresponding rule is disabled.
type position struct {
	active     bool
	entryPrice float64
	stopLoss   float64
	takeProfit float64
	entryIndex int
}

// ApplyExits is the one necessarily sequential stage of the pipeline: it
// walks bars in order, tracks FLAT/LONG state and overrides entry signals
// with forced exits. Each bar's decision depends on state produced by all
// prior bars, so this cannot be reformulated as array operations.
//
// Transition rules, first match wins (worst case first):
// STOP_LOSS (close <= stop) > TAKE_PROFIT (close >= target) >
// MAX_HOLD_PERIOD (bars held >= limit) > STRATEGY_SIGNAL (SELL while LONG).
// A BUY while LONG is ignored, and the machine never re-enters on the bar
// it was forced flat.
//
// longOnly converts SELL entry triggers (SELL while FLAT) to HOLD; exits
// produced here are exempt because they close a live position.
func ApplyExits(bars []*models.Bar, signals []models.Signal, risk models.RiskConfig, longOnly bool) ([]models.Signal, []Exit) {
	out := make([]models.Signal, len(signals))
	copy(out, signals)

	var exits []Exit
	var pos position
	for i, bar := range bars {
		sig := signals[i]
		if pos.active {
			reason := exitReason(&pos, bar.Close, i, risk, sig.Action)
			if reason != "" {
				out[i] = models.Signal{Action: models.Sell, StopLoss: math.NaN()}
				exits = append(exits, Exit{Index: i, Price: bar.Close, Reason: reason})
				pos = position{}
				continue
			}
			if sig.Action == models.Buy {
				// No averaging in.
				out[i] = models.HoldSignal()
			}
			continue
		}
		switch sig.Action {
		case models.Buy:
			pos = enter(i, bar.Close, sig.StopLoss, risk)
		case models.Sell:
			if longOnly {
				out[i] = models.HoldSignal()
			}
		}
	}
	return out, exits
}

func enter(index int, close, proposedStop float64, risk models.RiskConfig) position {
	pos := position{
		active:     true,
		entryPrice: close,
		entryIndex: index,
		stopLoss:   math.NaN(),
		takeProfit: math.NaN(),
	}
	switch {
	case !math.IsNaN(proposedStop):
		pos.stopLoss = proposedStop
	case risk.StopLossPct > 0:
		pos.stopLoss = close * (1 - risk.StopLossPct)
	}
	if risk.TakeProfitPct > 0 {
		pos.takeProfit = close * (1 + risk.TakeProfitPct)
	}
	return pos
}

func exitReason(pos *position, close float64, index int, risk models.RiskConfig, action models.Action) ExitReason {
	switch {
	case !math.IsNaN(pos.stopLoss) && close <= pos.stopLoss:
		return ReasonStopLoss
	case !math.IsNaN(pos.takeProfit) && close >= pos.takeProfit:
		return ReasonTakeProfit
	case risk.MaxHoldPeriod > 0 && index-pos.entryIndex >= risk.MaxHoldPeriod:
		return ReasonMaxHold
	case action == models.Sell:
		return ReasonStrategySignal
	}
	return ""
}
