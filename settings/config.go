package settings

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/santiagogabrielcastillo/trading-bot/models"
)

// Config drives one backtest or optimization campaign from a JSON file.
// Either CSVPath or Postgres must be set; Influx is optional.
type Config struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Start     string `json:"start"`
	End       string `json:"end"`
	SplitDate string `json:"split_date"`

	Strategy       string  `json:"strategy"`
	InitialCapital float64 `json:"initial_capital"`
	RiskFreeRate   float64 `json:"risk_free_rate"`
	LongOnly       bool    `json:"long_only"`

	StopLossPct   float64 `json:"stop_loss_pct"`
	TakeProfitPct float64 `json:"take_profit_pct"`
	MaxHoldPeriod int     `json:"max_hold_period"`

	CSVPath string `json:"csv_path"`

	PostgresHost     string `json:"postgres_host"`
	PostgresPort     int    `json:"postgres_port"`
	PostgresUser     string `json:"postgres_user"`
	PostgresPassword string `json:"postgres_password"`
	PostgresDBName   string `json:"postgres_dbname"`

	InfluxHost     string `json:"influx_host"`
	InfluxDatabase string `json:"influx_database"`
	InfluxUser     string `json:"influx_user"`
	InfluxPassword string `json:"influx_password"`
}

// LoadConfig reads and validates a campaign config file.
func LoadConfig(fileName string) (Config, error) {
	var config Config
	file, err := os.ReadFile(fileName)
	if err != nil {
		return config, fmt.Errorf("reading config %s: %w", fileName, err)
	}
	if err := json.Unmarshal(file, &config); err != nil {
		return config, fmt.Errorf("parsing config %s: %w", fileName, err)
	}
	if config.Symbol == "" {
		return config, fmt.Errorf("config %s: symbol is required", fileName)
	}
	if config.CSVPath == "" && config.PostgresHost == "" {
		return config, fmt.Errorf("config %s: csv_path or postgres_host is required", fileName)
	}
	return config, nil
}

// StrategyKind maps the config's strategy name onto the enum.
func (c Config) StrategyKind() (models.StrategyKind, error) {
	switch c.Strategy {
	case "", "sma_cross":
		return models.SMACross, nil
	case "ema_cross":
		return models.EMACross, nil
	case "atr_volatility":
		return models.ATRVolatility, nil
	case "bollinger":
		return models.Bollinger, nil
	}
	return 0, fmt.Errorf("unknown strategy %q", c.Strategy)
}

// Risk builds the exit rules from the config, or nil when every rule is off.
func (c Config) Risk() *models.RiskConfig {
	if c.StopLossPct <= 0 && c.TakeProfitPct <= 0 && c.MaxHoldPeriod <= 0 {
		return nil
	}
	return &models.RiskConfig{
		StopLossPct:   c.StopLossPct,
		TakeProfitPct: c.TakeProfitPct,
		MaxHoldPeriod: c.MaxHoldPeriod,
	}
}
