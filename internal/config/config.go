package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the binaries look for the configuration file unless
// MARKETLENS_CONFIG says otherwise.
const DefaultPath = "config/marketlens.yaml"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the marketlens platform.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Server   Server         `yaml:"server"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Logging  Logging        `yaml:"logging"`
	Gather   GatherConfig   `yaml:"gather"`
	Dataset  DatasetConfig  `yaml:"dataset"`
	Model    ModelConfig    `yaml:"model"`
	Backtest BacktestConfig `yaml:"backtest"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// Alpaca holds credentials and endpoints for the Alpaca market data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GatherConfig controls which tickers are gathered and how fast.
type GatherConfig struct {
	Tickers          []string `yaml:"tickers"`
	StartDate        string   `yaml:"start_date"`
	MaxWorkers       int      `yaml:"max_workers"`
	RateLimitPerMin  int      `yaml:"rate_limit_per_min"`
	NewsLookbackDays int      `yaml:"news_lookback_days"`
	BatchSize        int      `yaml:"batch_size"` // symbols per bars request
	Feed             string   `yaml:"feed"`       // "iex" or "sip"
}

// DatasetConfig locates the labeled feature table and the label horizon used
// to build it.
type DatasetConfig struct {
	LabeledPath string `yaml:"labeled_path"`
	HorizonDays int    `yaml:"horizon_days"`
}

// ModelConfig locates the trained classifier and its training parameters.
type ModelConfig struct {
	Path         string  `yaml:"path"`
	Epochs       int     `yaml:"epochs"`
	LearningRate float64 `yaml:"learning_rate"`
	L2           float64 `yaml:"l2"`
}

// BacktestConfig holds the simulation parameters.
type BacktestConfig struct {
	CutoffDate         string  `yaml:"cutoff_date"`
	Strategy           string  `yaml:"strategy"`
	CostBps            float64 `yaml:"cost_bps"`
	TradingDaysPerYear int     `yaml:"trading_days_per_year"`
	ReportDir          string  `yaml:"report_dir"`
}

// Cutoff parses CutoffDate as a calendar date.
func (b BacktestConfig) Cutoff() (time.Time, error) {
	t, err := time.Parse("2006-01-02", b.CutoffDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing cutoff date %q: %w", b.CutoffDate, err)
	}
	return t, nil
}

// CostRate converts CostBps to a fractional per-trade cost (10 bps = 0.001).
func (b BacktestConfig) CostRate() float64 {
	return b.CostBps / 10000
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides and finally fills
// defaults for anything still unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	return cfg, nil
}

// PathFromEnv returns MARKETLENS_CONFIG when set, DefaultPath otherwise.
func PathFromEnv() string {
	if p := os.Getenv("MARKETLENS_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("TICKERS"); v != "" {
		var tickers []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tickers = append(tickers, strings.ToUpper(t))
			}
		}
		cfg.Gather.Tickers = tickers
	}

	if v := os.Getenv("MODEL_PATH"); v != "" {
		cfg.Model.Path = v
	}

	if v := os.Getenv("BACKTEST_CUTOFF"); v != "" {
		cfg.Backtest.CutoffDate = v
	}

	if v := os.Getenv("BACKTEST_COST_BPS"); v != "" {
		bps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parsing BACKTEST_COST_BPS %q: %w", v, err)
		}
		cfg.Backtest.CostBps = bps
	}

	// Standard Alpaca env vars take precedence; these are the names the SDK reads.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = filepath.Join(cfg.Storage.DataDir, "marketlens.db")
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Gather.MaxWorkers == 0 {
		cfg.Gather.MaxWorkers = 4
	}
	if cfg.Gather.NewsLookbackDays == 0 {
		cfg.Gather.NewsLookbackDays = 29
	}
	if cfg.Gather.BatchSize == 0 {
		cfg.Gather.BatchSize = 100
	}
	if cfg.Gather.Feed == "" {
		cfg.Gather.Feed = "iex"
	}
	if cfg.Gather.StartDate == "" {
		cfg.Gather.StartDate = "2020-01-01"
	}
	if cfg.Dataset.HorizonDays == 0 {
		cfg.Dataset.HorizonDays = 5
	}
	if cfg.Model.Epochs == 0 {
		cfg.Model.Epochs = 500
	}
	if cfg.Model.LearningRate == 0 {
		cfg.Model.LearningRate = 0.1
	}
	if cfg.Backtest.CutoffDate == "" {
		cfg.Backtest.CutoffDate = "2025-01-01"
	}
	if cfg.Backtest.Strategy == "" {
		cfg.Backtest.Strategy = "binary"
	}
	if cfg.Backtest.TradingDaysPerYear == 0 {
		cfg.Backtest.TradingDaysPerYear = 252
	}
	if cfg.Backtest.ReportDir == "" {
		cfg.Backtest.ReportDir = "."
	}
}
