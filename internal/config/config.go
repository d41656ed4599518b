package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config captures every setting needed to run the pipeline and serve its results.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Input       InputConfig       `yaml:"input"`
	Store       StoreConfig       `yaml:"store"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Economics   EconomicsConfig   `yaml:"economics"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Cascade     CascadeConfig     `yaml:"cascade"`
	Scoring     ScoringConfig     `yaml:"scoring"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// InputConfig points at the flight batch handed over by the ingestion collaborator.
type InputConfig struct {
	Path            string        `yaml:"path"`
	RefreshInterval time.Duration `yaml:"refreshInterval"`
}

// StoreConfig controls the MySQL mart sink.
type StoreConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	Timeout         time.Duration `yaml:"timeout"`
}

// PipelineConfig bounds partition parallelism.
type PipelineConfig struct {
	Workers int `yaml:"workers"`
}

// EconomicsConfig holds the FAA/NEXTOR cost parameters.
type EconomicsConfig struct {
	PassengerCostPerMinute float64 `yaml:"passengerCostPerMinute"`
	AirlineCostPerMinute   float64 `yaml:"airlineCostPerMinute"`
	LoadFactor             float64 `yaml:"loadFactor"`
	SeatsPerFlight         float64 `yaml:"seatsPerFlight"`
}

// AggregationConfig holds mart thresholds.
type AggregationConfig struct {
	MinRouteFlights int     `yaml:"minRouteFlights"`
	TrendThreshold  float64 `yaml:"trendThreshold"`
}

// CascadeConfig holds the detector's matching window.
type CascadeConfig struct {
	ArrivalDelayThreshold float64 `yaml:"arrivalDelayThreshold"`
	TurnaroundMinMinutes  int     `yaml:"turnaroundMinMinutes"`
	TurnaroundMaxMinutes  int     `yaml:"turnaroundMaxMinutes"`
	MaxDestinations       int     `yaml:"maxDestinations"`
}

// ScoringConfig holds the named coefficients of the composite vulnerability score.
type ScoringConfig struct {
	DelayRate          float64 `yaml:"delayRate"`
	CancellationRate   float64 `yaml:"cancellationRate"`
	Connectivity       float64 `yaml:"connectivity"`
	CascadePropagation float64 `yaml:"cascadePropagation"`
}

// Load initialises Config from a YAML file, an optional .env file, and environment overrides.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	if path == "" {
		path = os.Getenv("SKYDELAY_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot compute with.
func (c *Config) Validate() error {
	e := c.Economics
	if e.SeatsPerFlight <= 0 || e.LoadFactor <= 0 || e.LoadFactor > 1 {
		return fmt.Errorf("economics: seatsPerFlight must be > 0 and loadFactor in (0,1]")
	}
	if e.PassengerCostPerMinute < 0 || e.AirlineCostPerMinute < 0 {
		return fmt.Errorf("economics: cost per minute must not be negative")
	}
	if c.Aggregation.MinRouteFlights < 1 {
		return fmt.Errorf("aggregation: minRouteFlights must be >= 1")
	}
	cc := c.Cascade
	if cc.TurnaroundMinMinutes < 0 || cc.TurnaroundMaxMinutes < cc.TurnaroundMinMinutes {
		return fmt.Errorf("cascade: turnaround window [%d,%d] is invalid", cc.TurnaroundMinMinutes, cc.TurnaroundMaxMinutes)
	}
	s := c.Scoring
	if s.DelayRate < 0 || s.CancellationRate < 0 || s.Connectivity < 0 || s.CascadePropagation < 0 {
		return fmt.Errorf("scoring: weights must not be negative")
	}
	if s.DelayRate+s.CancellationRate+s.Connectivity+s.CascadePropagation == 0 {
		return fmt.Errorf("scoring: at least one weight must be positive")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50061",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Input:   InputConfig{Path: "data/bts/flights.csv"},
		Store: StoreConfig{
			Enabled:         false,
			Host:            "127.0.0.1",
			Port:            3306,
			User:            "skydelay",
			Database:        "skydelay",
			MaxOpenConns:    10,
			ConnMaxLifetime: 5 * time.Minute,
			Timeout:         5 * time.Second,
		},
		Pipeline: PipelineConfig{Workers: 8},
		Economics: EconomicsConfig{
			PassengerCostPerMinute: 0.74,
			AirlineCostPerMinute:   68.48,
			LoadFactor:             0.87,
			SeatsPerFlight:         160,
		},
		Aggregation: AggregationConfig{
			MinRouteFlights: 30,
			TrendThreshold:  5,
		},
		Cascade: CascadeConfig{
			ArrivalDelayThreshold: 30,
			TurnaroundMinMinutes:  20,
			TurnaroundMaxMinutes:  180,
			MaxDestinations:       20,
		},
		Scoring: ScoringConfig{
			DelayRate:          0.45,
			CancellationRate:   0.15,
			Connectivity:       0.25,
			CascadePropagation: 0.15,
		},
	}
}

// loadDotEnv reads SKYDELAY_ENV_FILE (default .env) into the process environment when present.
// Variables already set in the environment win.
func loadDotEnv() error {
	path := os.Getenv("SKYDELAY_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SKYDELAY_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("SKYDELAY_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("SKYDELAY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SKYDELAY_LOG_FORMAT"); v != "" {
		cfg.Logging.JSON = strings.EqualFold(v, "json")
	}
	if v := os.Getenv("SKYDELAY_INPUT_PATH"); v != "" {
		cfg.Input.Path = v
	}
	if v := os.Getenv("SKYDELAY_INPUT_REFRESH"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Input.RefreshInterval = d
		}
	}
	if v := os.Getenv("SKYDELAY_STORE_ENABLED"); v != "" {
		cfg.Store.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("SKYDELAY_MYSQL_HOST"); v != "" {
		cfg.Store.Host = v
	}
	if v := os.Getenv("SKYDELAY_MYSQL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Store.Port = port
		}
	}
	if v := os.Getenv("SKYDELAY_MYSQL_USER"); v != "" {
		cfg.Store.User = v
	}
	if v := os.Getenv("SKYDELAY_MYSQL_PASSWORD"); v != "" {
		cfg.Store.Password = v
	}
	if v := os.Getenv("SKYDELAY_MYSQL_DATABASE"); v != "" {
		cfg.Store.Database = v
	}
	if v := os.Getenv("SKYDELAY_PIPELINE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Pipeline.Workers = n
		}
	}
	if v := os.Getenv("SKYDELAY_MIN_ROUTE_FLIGHTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Aggregation.MinRouteFlights = n
		}
	}
}
