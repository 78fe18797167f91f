package data

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/santiagogabrielcastillo/trading-bot/models"
)

// CSVSource reads bars from a single CSV file with a
// timestamp,open,high,low,close,volume header. The symbol argument to Fetch
// is ignored; one file holds one instrument.
type CSVSource struct {
	Path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

func (s *CSVSource) Fetch(symbol string, timeframe models.Timeframe, start, end time.Time, limit int) ([]*models.Bar, error) {
	bars, err := LoadBars(s.Path)
	if err != nil {
		return nil, err
	}
	return sliceWindow(bars, start, end, limit), nil
}

// LoadBars unmarshals an entire CSV file into bars and sorts them by
// timestamp ascending.
func LoadBars(path string) ([]*models.Bar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening bar file %s: %w", path, err)
	}
	defer file.Close()

	var bars []*models.Bar
	if err := gocsv.UnmarshalFile(file, &bars); err != nil {
		return nil, fmt.Errorf("parsing bar file %s: %w", path, err)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp < bars[j].Timestamp })
	return bars, nil
}
