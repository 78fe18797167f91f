package data

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/santiagogabrielcastillo/trading-bot/models"
)

// PostgresConfig describes a connection to a candle database with a
// `candles(symbol, interval, timestamp, open, high, low, close, volume)`
// table, timestamps in unix milliseconds.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// PostgresSource fetches bars from Postgres.
type PostgresSource struct {
	db *sqlx.DB
}

func NewPostgresSource(cfg PostgresConfig) (*PostgresSource, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName)
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to candle database: %w", err)
	}
	return &PostgresSource{db: db}, nil
}

func (s *PostgresSource) Close() error {
	return s.db.Close()
}

func (s *PostgresSource) Fetch(symbol string, timeframe models.Timeframe, start, end time.Time, limit int) ([]*models.Bar, error) {
	startMs := start.UnixNano() / int64(time.Millisecond)
	endMs := end.UnixNano() / int64(time.Millisecond)

	bars := []*models.Bar{}
	query := `select timestamp, open, high, low, close, volume from candles
		where symbol = $1 and interval = $2 and timestamp >= $3 and timestamp <= $4
		order by timestamp asc`
	if err := s.db.Select(&bars, query, symbol, string(timeframe), startMs, endMs); err != nil {
		return nil, fmt.Errorf("querying candles for %s %s: %w", symbol, timeframe, err)
	}
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}
