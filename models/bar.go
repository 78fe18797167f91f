package models

import "time"

// Bar is a single OHLCV observation. Timestamp is unix milliseconds and
// sequences of bars are expected to be deduplicated and strictly ascending.
type Bar struct {
	Timestamp int64   `csv:"timestamp" db:"timestamp"`
	Open      float64 `csv:"open" db:"open"`
	High      float64 `csv:"high" db:"high"`
	Low       float64 `csv:"low" db:"low"`
	Close     float64 `csv:"close" db:"close"`
	Volume    float64 `csv:"volume" db:"volume"`
}

// Time returns the bar timestamp as a time.Time in UTC.
func (b *Bar) Time() time.Time {
	return time.Unix(b.Timestamp/1000, (b.Timestamp%1000)*int64(time.Millisecond)).UTC()
}

// ValidateBars checks that a bar sequence is ordered by strictly increasing
// timestamps with no duplicates.
func ValidateBars(bars []*Bar) bool {
	for i := 1; i < len(bars); i++ {
		if bars[i].Timestamp <= bars[i-1].Timestamp {
			return false
		}
	}
	return true
}

// Closes extracts the close series from a bar sequence.
func Closes(bars []*Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Highs extracts the high series from a bar sequence.
func Highs(bars []*Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts the low series from a bar sequence.
func Lows(bars []*Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}
