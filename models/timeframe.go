package models

import (
	"fmt"
	"time"
)

// Timeframe is a candle interval in the usual exchange notation ("1h", "1d").
type Timeframe string

const (
	Minute         Timeframe = "1m"
	FiveMinutes    Timeframe = "5m"
	FifteenMinutes Timeframe = "15m"
	ThirtyMinutes  Timeframe = "30m"
	Hour           Timeframe = "1h"
	FourHours      Timeframe = "4h"
	Day            Timeframe = "1d"
)

var timeframeDurations = map[Timeframe]time.Duration{
	Minute:         time.Minute,
	FiveMinutes:    5 * time.Minute,
	FifteenMinutes: 15 * time.Minute,
	ThirtyMinutes:  30 * time.Minute,
	Hour:           time.Hour,
	FourHours:      4 * time.Hour,
	Day:            24 * time.Hour,
}

// Duration returns the length of one candle.
func (tf Timeframe) Duration() (time.Duration, error) {
	d, ok := timeframeDurations[tf]
	if !ok {
		return 0, fmt.Errorf("unknown timeframe %q", string(tf))
	}
	return d, nil
}

// PeriodsPerYear returns the number of candles in a calendar year assuming a
// 24/7 market: 8760 for 1h, 365 for 1d, 525600 for 1m.
func (tf Timeframe) PeriodsPerYear() (float64, error) {
	d, err := tf.Duration()
	if err != nil {
		return 0, err
	}
	return float64(365*24*time.Hour) / float64(d), nil
}
