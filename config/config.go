package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the full runtime configuration for the alerts service.
// It is loaded once at startup and passed by value into the monitor;
// nothing mutates it after load.
type Config struct {
	Log          LogConfig         `yaml:"log"`
	HTTP         HTTPConfig        `yaml:"http"`
	Ntfy         NtfyConfig        `yaml:"ntfy"`
	Monitor      MonitorConfig     `yaml:"monitor"`
	Tickers      []string          `yaml:"tickers"`
	ThresholdPct float64           `yaml:"threshold_pct"`
	StateFile    string            `yaml:"state_file"`
	CompanyCache string            `yaml:"company_cache"`
	MarketHours  MarketHoursConfig `yaml:"market_hours"`
	Test         TestConfig        `yaml:"test"`
	News         NewsConfig        `yaml:"news"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type NtfyConfig struct {
	Server string `yaml:"server"`
	Topic  string `yaml:"topic"`
}

type MonitorConfig struct {
	IntervalMinutes int `yaml:"interval_minutes"`
}

// MarketHoursConfig gates monitoring to a simple trading window.
// Hour granularity only; holidays are not modeled.
type MarketHoursConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Timezone     string `yaml:"tz"`
	StartHour    int    `yaml:"start_hour"`
	EndHour      int    `yaml:"end_hour"`
	WeekdaysOnly bool   `yaml:"weekdays_only"`
}

// TestConfig supports deterministic testing of the alert path without
// live market data.
type TestConfig struct {
	Enabled           bool     `yaml:"enabled"`
	BypassMarketHours bool     `yaml:"bypass_market_hours"`
	ForceDeltaPct     *float64 `yaml:"force_delta_pct"`
	DryRun            bool     `yaml:"dry_run"`
}

type NewsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Limit         int    `yaml:"limit"`
	LookbackHours int    `yaml:"lookback_hours"`
	Lang          string `yaml:"lang"`
	Country       string `yaml:"country"`
}

// placeholderTopic is the value shipped in the sample config; running
// with it would publish alerts to a guessable public topic.
const placeholderTopic = "CHANGE-ME"

// LoadFromFile loads configuration from a YAML file, applies defaults
// for anything unset and finally applies environment overrides. A
// missing config file is not an error; everything then comes from
// defaults and the environment.
func LoadFromFile(path string) (Config, error) {
	// Load .env if present so env overrides work in dev setups too.
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg = applyDefaults(cfg)
	cfg = applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg Config) Config {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Ntfy.Server == "" {
		cfg.Ntfy.Server = "https://ntfy.sh"
	}
	if cfg.Monitor.IntervalMinutes == 0 {
		cfg.Monitor.IntervalMinutes = 5
	}
	if len(cfg.Tickers) == 0 {
		cfg.Tickers = []string{"AAPL"}
	}
	if cfg.ThresholdPct == 0 {
		cfg.ThresholdPct = 3.0
	}
	if cfg.StateFile == "" {
		cfg.StateFile = "alert_state.json"
	}
	if cfg.CompanyCache == "" {
		cfg.CompanyCache = "company_cache.db"
	}
	if cfg.MarketHours.Timezone == "" {
		cfg.MarketHours = MarketHoursConfig{
			Enabled:      true,
			Timezone:     "Europe/Berlin",
			StartHour:    8,
			EndHour:      22,
			WeekdaysOnly: true,
		}
	}
	if cfg.News.Limit == 0 {
		cfg.News.Limit = 2
	}
	if cfg.News.LookbackHours == 0 {
		cfg.News.LookbackHours = 12
	}
	if cfg.News.Lang == "" {
		cfg.News.Lang = "de"
	}
	if cfg.News.Country == "" {
		cfg.News.Country = "DE"
	}
	return cfg
}

func applyEnv(cfg Config) Config {
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Log.Level = val
	}
	if val := os.Getenv("HTTP_ADDR"); val != "" {
		cfg.HTTP.Addr = val
	}
	if val := os.Getenv("PORT"); val != "" {
		cfg.HTTP.Addr = ":" + val
	}
	if val := os.Getenv("NTFY_SERVER"); val != "" {
		cfg.Ntfy.Server = val
	}
	if val := os.Getenv("NTFY_TOPIC"); val != "" {
		cfg.Ntfy.Topic = val
	}
	if val := os.Getenv("MONITOR_INTERVAL_MINUTES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.Monitor.IntervalMinutes = n
		}
	}
	if val := os.Getenv("STATE_FILE"); val != "" {
		cfg.StateFile = val
	}
	return cfg
}

// Validate checks the settings the service cannot run without.
func (c Config) Validate() error {
	if c.Ntfy.Topic == "" || c.Ntfy.Topic == placeholderTopic {
		return fmt.Errorf("ntfy.topic must be set to a secret topic (config file or NTFY_TOPIC)")
	}
	if len(c.Tickers) == 0 {
		return fmt.Errorf("tickers must not be empty")
	}
	if c.ThresholdPct < 0 {
		return fmt.Errorf("threshold_pct must be >= 0, got %v", c.ThresholdPct)
	}
	return nil
}
