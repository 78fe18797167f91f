// Package data provides historical bar sources for the backtest engine: a
// Postgres candle store, CSV files and an in-memory cache used to run many
// optimizer trials against a single fetch.
package data

import (
	"time"

	"github.com/santiagogabrielcastillo/trading-bot/models"
)

// HistoricalDataSource serves ordered, deduplicated bar sequences. Fetch
// returns every bar with start <= timestamp <= end; when limit is positive
// and more bars match, only the most recent limit bars are returned.
type HistoricalDataSource interface {
	Fetch(symbol string, timeframe models.Timeframe, start, end time.Time, limit int) ([]*models.Bar, error)
}

// CachedSource serves pre-loaded bars from memory. The optimizer loads its
// dataset exactly once and reuses a CachedSource for every trial; Fetch
// never mutates the underlying slice, so concurrent read-only trials are
// safe against it.
type CachedSource struct {
	bars []*models.Bar
}

func NewCachedSource(bars []*models.Bar) *CachedSource {
	return &CachedSource{bars: bars}
}

// Len returns the number of cached bars.
func (s *CachedSource) Len() int {
	return len(s.bars)
}

func (s *CachedSource) Fetch(symbol string, timeframe models.Timeframe, start, end time.Time, limit int) ([]*models.Bar, error) {
	return sliceWindow(s.bars, start, end, limit), nil
}

// LoadOnce fetches one buffered window from the underlying source and wraps
// it in a CachedSource.
func LoadOnce(src HistoricalDataSource, symbol string, timeframe models.Timeframe, start, end time.Time, limit int) (*CachedSource, error) {
	bars, err := src.Fetch(symbol, timeframe, start, end, limit)
	if err != nil {
		return nil, err
	}
	return NewCachedSource(bars), nil
}

func sliceWindow(bars []*models.Bar, start, end time.Time, limit int) []*models.Bar {
	startMs := start.UnixNano() / int64(time.Millisecond)
	endMs := end.UnixNano() / int64(time.Millisecond)
	var out []*models.Bar
	for _, b := range bars {
		if b.Timestamp >= startMs && b.Timestamp <= endMs {
			out = append(out, b)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
