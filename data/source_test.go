package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/santiagogabrielcastillo/trading-bot/models"
)

var testEpoch = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

func hourlyBars(n int) []*models.Bar {
	bars := make([]*models.Bar, n)
	for i := 0; i < n; i++ {
		t := testEpoch.Add(time.Duration(i) * time.Hour)
		bars[i] = &models.Bar{
			Timestamp: t.UnixNano() / int64(time.Millisecond),
			Open:      100 + float64(i),
			High:      101 + float64(i),
			Low:       99 + float64(i),
			Close:     100.5 + float64(i),
			Volume:    float64(10 * (i + 1)),
		}
	}
	return bars
}

func TestCachedSourceWindowIsInclusive(t *testing.T) {
	source := NewCachedSource(hourlyBars(24))

	got, err := source.Fetch("BTCUSD", models.Hour, testEpoch.Add(5*time.Hour), testEpoch.Add(10*time.Hour), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 6 {
		t.Fatalf("Bad bar count: %v, expected 6\n", len(got))
	}
	if got[0].Close != 105.5 || got[5].Close != 110.5 {
		t.Errorf("Bad window edges: %v..%v, expected 105.5..110.5\n", got[0].Close, got[5].Close)
	}
}

func TestCachedSourceLimitKeepsMostRecent(t *testing.T) {
	source := NewCachedSource(hourlyBars(24))

	got, err := source.Fetch("BTCUSD", models.Hour, testEpoch, testEpoch.Add(23*time.Hour), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("Bad bar count: %v, expected 5\n", len(got))
	}
	if got[0].Close != 119.5 || got[4].Close != 123.5 {
		t.Errorf("Bad tail: %v..%v, expected 119.5..123.5\n", got[0].Close, got[4].Close)
	}
}

func TestCachedSourceOutsideRangeIsEmpty(t *testing.T) {
	source := NewCachedSource(hourlyBars(24))
	got, err := source.Fetch("BTCUSD", models.Hour, testEpoch.Add(100*time.Hour), testEpoch.Add(200*time.Hour), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("Bad bar count: %v, expected 0\n", len(got))
	}
}

func TestLoadOnceSnapshotsTheWindow(t *testing.T) {
	backing := NewCachedSource(hourlyBars(24))
	cached, err := LoadOnce(backing, "BTCUSD", models.Hour, testEpoch, testEpoch.Add(9*time.Hour), 0)
	if err != nil {
		t.Fatal(err)
	}
	if cached.Len() != 10 {
		t.Errorf("Bad cache size: %v, expected 10\n", cached.Len())
	}
}

func TestCSVSourceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.csv")
	// Rows deliberately out of order; the loader must sort ascending.
	csv := "timestamp,open,high,low,close,volume\n" +
		"1672538400000,102,103,101,102.5,30\n" +
		"1672531200000,100,101,99,100.5,10\n" +
		"1672534800000,101,102,100,101.5,20\n"
	if err := os.WriteFile(path, []byte(csv), 0644); err != nil {
		t.Fatal(err)
	}

	bars, err := LoadBars(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 3 {
		t.Fatalf("Bad bar count: %v, expected 3\n", len(bars))
	}
	if !models.ValidateBars(bars) {
		t.Error("loaded bars are not strictly ascending")
	}
	if bars[0].Close != 100.5 || bars[2].Close != 102.5 {
		t.Errorf("Bad ordering: %v..%v, expected 100.5..102.5\n", bars[0].Close, bars[2].Close)
	}
	if bars[1].Volume != 20 {
		t.Errorf("Bad volume: %v, expected 20\n", bars[1].Volume)
	}

	source := NewCSVSource(path)
	got, err := source.Fetch("", models.Hour, bars[1].Time(), bars[2].Time(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("Bad windowed count: %v, expected 2\n", len(got))
	}
}

func TestCSVSourceMissingFile(t *testing.T) {
	if _, err := LoadBars(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
