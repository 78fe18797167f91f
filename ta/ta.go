// Package ta wraps github.com/markcheno/go-talib with explicit warm-up
// semantics: every series keeps the length of its input and entries inside
// an indicator's warm-up window are NaN rather than zero, so downstream
// signal logic can treat them as undefined. A series too short to cover its
// window comes back entirely undefined instead of panicking.
package ta

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// SMA returns the simple moving average of a series. The first window-1
// entries are undefined.
func SMA(series []float64, window int) []float64 {
	if window <= 0 || len(series) < window {
		return undefinedSeries(len(series))
	}
	return markWarmup(talib.Sma(series, window), window-1)
}

// EMA returns the exponential moving average of a series, seeded with the
// SMA of the first window. The first window-1 entries are undefined.
func EMA(series []float64, window int) []float64 {
	if window <= 0 || len(series) < window {
		return undefinedSeries(len(series))
	}
	return markWarmup(talib.Ema(series, window), window-1)
}

// RollingStd returns the rolling population standard deviation over window.
func RollingStd(series []float64, window int) []float64 {
	if window <= 0 || len(series) < window {
		return undefinedSeries(len(series))
	}
	return markWarmup(talib.StdDev(series, window, 1.0), window-1)
}

// ATR returns the Wilder-smoothed Average True Range. True Range is
// max(high-low, |high-prev_close|, |low-prev_close|); the first window
// entries are undefined because the first bar has no previous close.
func ATR(high, low, close []float64, window int) []float64 {
	if window <= 0 || len(close) <= window {
		return undefinedSeries(len(close))
	}
	return markWarmup(talib.Atr(high, low, close, window), window)
}

// BBands returns the upper, middle and lower Bollinger Bands where the
// middle band is SMA(close, window) and the bands sit stdDev rolling
// standard deviations away.
func BBands(close []float64, window int, stdDev float64) (upper, middle, lower []float64) {
	if window <= 0 || len(close) < window {
		return undefinedSeries(len(close)), undefinedSeries(len(close)), undefinedSeries(len(close))
	}
	upper, middle, lower = talib.BBands(close, window, stdDev, stdDev, talib.SMA)
	markWarmup(upper, window-1)
	markWarmup(middle, window-1)
	markWarmup(lower, window-1)
	return upper, middle, lower
}

// ADX returns the Average Directional Index. ADX double-smooths with
// Wilder's method, so the first 2*window-1 entries are undefined.
func ADX(high, low, close []float64, window int) []float64 {
	if window <= 0 || len(close) < 2*window {
		return undefinedSeries(len(close))
	}
	return markWarmup(talib.Adx(high, low, close, window), 2*window-1)
}

// PlusDI returns the positive Directional Indicator (+DI).
func PlusDI(high, low, close []float64, window int) []float64 {
	if window <= 0 || len(close) <= window {
		return undefinedSeries(len(close))
	}
	return markWarmup(talib.PlusDI(high, low, close, window), window)
}

// MinusDI returns the negative Directional Indicator (-DI).
func MinusDI(high, low, close []float64, window int) []float64 {
	if window <= 0 || len(close) <= window {
		return undefinedSeries(len(close))
	}
	return markWarmup(talib.MinusDI(high, low, close, window), window)
}

// MACD returns the MACD line (fast EMA - slow EMA), its signal EMA and the
// histogram (line - signal). The histogram stabilizes after
// slow+signal-2 bars.
func MACD(close []float64, fast, slow, signal int) (line, sig, hist []float64) {
	if fast <= 0 || slow <= 0 || signal <= 0 || len(close) < slow+signal-1 {
		return undefinedSeries(len(close)), undefinedSeries(len(close)), undefinedSeries(len(close))
	}
	line, sig, hist = talib.Macd(close, fast, slow, signal)
	markWarmup(line, slow-1)
	// The signal line is an EMA(signal) of a line defined from slow-1, so
	// it stabilizes at index (slow-1)+(signal-1) = slow+signal-2. Consumers
	// budget a slow+signal lookback, one bar past the last undefined entry.
	markWarmup(sig, slow+signal-2)
	markWarmup(hist, slow+signal-2)
	return line, sig, hist
}

// Undefined reports whether a series entry is inside its warm-up window.
func Undefined(v float64) bool {
	return math.IsNaN(v)
}

func undefinedSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func markWarmup(series []float64, n int) []float64 {
	if n > len(series) {
		n = len(series)
	}
	for i := 0; i < n; i++ {
		series[i] = math.NaN()
	}
	return series
}
