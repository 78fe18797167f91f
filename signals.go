package backtest

import (
	"math"

	"github.com/santiagogabrielcastillo/trading-bot/models"
)

// crossAbove reports a transition where a moved from at-or-below b to above
// it between the previous and current bar. NaN on either side compares
// false, so warm-up rows can never fire.
func crossAbove(prevA, prevB, currA, currB float64) bool {
	return prevA <= prevB && currA > currB
}

// crossBelow is the symmetric downward transition.
func crossBelow(prevA, prevB, currA, currB float64) bool {
	return prevA >= prevB && currA < currB
}

// resolveSignals combines per-bar buy/sell triggers with the regime and
// momentum validity masks (logical AND) into the final discrete signal
// series. When both triggers survive their masks on the same bar, SELL wins:
// capital preservation beats a fresh entry. stops may be nil; otherwise it
// supplies the per-bar proposed stop price attached to BUY signals.
func resolveSignals(bars []*models.Bar, buyTrigger, sellTrigger []bool, regime, momentum EntryFilter, stops []float64) []models.Signal {
	buyRegimeOK := failOpenMask(regime, bars, models.Buy)
	sellRegimeOK := failOpenMask(regime, bars, models.Sell)
	buyMomentumOK := failOpenMask(momentum, bars, models.Buy)
	sellMomentumOK := failOpenMask(momentum, bars, models.Sell)

	signals := make([]models.Signal, len(bars))
	for i := range bars {
		signals[i] = models.HoldSignal()
		buy := buyTrigger[i] && buyRegimeOK[i] && buyMomentumOK[i]
		sell := sellTrigger[i] && sellRegimeOK[i] && sellMomentumOK[i]
		switch {
		case sell:
			signals[i].Action = models.Sell
		case buy:
			signals[i].Action = models.Buy
			if stops != nil && !math.IsNaN(stops[i]) {
				signals[i].StopLoss = stops[i]
			}
		}
	}
	return signals
}
