//-------------------------------------------------------------------------
//
// pgEdge Sales Mart
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-salesmart.
// Configuration is loaded from config files and CLI flags (no environment variables).
// CLI flags take precedence over config file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Supported warehouse backends.
const (
	BackendPostgres = "postgres"
	BackendDuckDB   = "duckdb"
)

// Config holds all configuration for pgedge-salesmart.
type Config struct {
	// Backend selects the warehouse engine (postgres, duckdb).
	Backend string `mapstructure:"backend"`

	// Connection is the PostgreSQL connection string (postgres backend).
	Connection string `mapstructure:"connection"`

	// DuckDBPath is the DuckDB database file; empty means in-memory.
	DuckDBPath string `mapstructure:"duckdb_path"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// LogFormat is console or json.
	LogFormat string `mapstructure:"log_format"`

	// MetricsTextfile, when set, receives the Prometheus registry on exit.
	MetricsTextfile string `mapstructure:"metrics_textfile"`

	// MaxConns bounds the PostgreSQL pool.
	MaxConns int32 `mapstructure:"max_conns"`

	Load     LoadConfig     `mapstructure:"load"`
	Report   ReportConfig   `mapstructure:"report"`
	Generate GenerateConfig `mapstructure:"generate"`
}

// LoadConfig holds configuration for the load subcommand.
type LoadConfig struct {
	// DataDir is where LoadDir looks for <table>.csv files.
	DataDir string `mapstructure:"data_dir"`
}

// ReportConfig holds configuration for report rendering.
type ReportConfig struct {
	// Format is table, csv, json or parquet.
	Format string `mapstructure:"format"`

	// Output is a file path; empty writes to stdout.
	Output string `mapstructure:"output"`

	// AsOf is the reference date (YYYY-MM-DD) for age and recency; empty means today.
	AsOf string `mapstructure:"as_of"`

	// TopN limits ranking reports.
	TopN int `mapstructure:"top_n"`

	// MovingWindow is the trailing window size for moving averages.
	MovingWindow int `mapstructure:"moving_window"`

	// Source is engine (computed in process) or view (read back from the warehouse).
	Source string `mapstructure:"source"`
}

// GenerateConfig holds configuration for sample data generation.
type GenerateConfig struct {
	Customers int    `mapstructure:"customers"`
	Products  int    `mapstructure:"products"`
	Orders    int    `mapstructure:"orders"`
	Seed      uint64 `mapstructure:"seed"`
	OutputDir string `mapstructure:"output_dir"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Backend:   BackendPostgres,
		LogLevel:  "info",
		LogFormat: "console",
		MaxConns:  4,
		Load: LoadConfig{
			DataDir: "./datasets",
		},
		Report: ReportConfig{
			Format:       "table",
			TopN:         5,
			MovingWindow: 3,
			Source:       "engine",
		},
		Generate: GenerateConfig{
			Customers: 1000,
			Products:  150,
			Orders:    8000,
			OutputDir: "./datasets",
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./pgedge-salesmart.yaml
// 3. ~/.config/pgedge-salesmart/config.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("pgedge-salesmart")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pgedge-salesmart"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks that the warehouse connection settings are usable.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendPostgres:
		if c.Connection == "" {
			return fmt.Errorf("connection string is required for the postgres backend")
		}
	case BackendDuckDB:
	default:
		return fmt.Errorf("backend must be '%s' or '%s', got '%s'",
			BackendPostgres, BackendDuckDB, c.Backend)
	}
	if c.MaxConns < 1 {
		return fmt.Errorf("max_conns must be at least 1")
	}
	return nil
}

// ValidateReport checks configuration required for the report command.
func (c *Config) ValidateReport() error {
	if err := c.Validate(); err != nil {
		return err
	}
	switch c.Report.Format {
	case "table", "csv", "json", "parquet":
	default:
		return fmt.Errorf("report format must be table, csv, json or parquet")
	}
	if c.Report.Format == "parquet" && c.Report.Output == "" {
		return fmt.Errorf("parquet output requires an output file")
	}
	if c.Report.Source != "engine" && c.Report.Source != "view" {
		return fmt.Errorf("report source must be 'engine' or 'view'")
	}
	if c.Report.TopN < 1 {
		return fmt.Errorf("top_n must be at least 1")
	}
	if c.Report.MovingWindow < 1 {
		return fmt.Errorf("moving_window must be at least 1")
	}
	if _, err := c.AsOfDate(time.Time{}); err != nil {
		return err
	}
	if c.Report.AsOf != "" && c.Report.Source == "view" {
		return fmt.Errorf("as_of cannot be used with the view source; views measure against the current date")
	}
	return nil
}

// ValidateGenerate checks configuration required for the generate command.
func (c *Config) ValidateGenerate() error {
	if c.Generate.Customers < 1 || c.Generate.Products < 1 {
		return fmt.Errorf("customers and products must be at least 1")
	}
	if c.Generate.Orders < 0 {
		return fmt.Errorf("orders must be non-negative")
	}
	if c.Generate.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	return nil
}

// AsOfDate parses Report.AsOf, returning fallback when it is unset.
func (c *Config) AsOfDate(fallback time.Time) (time.Time, error) {
	if c.Report.AsOf == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.DateOnly, c.Report.AsOf)
	if err != nil {
		return time.Time{}, fmt.Errorf("as_of must be YYYY-MM-DD: %w", err)
	}
	return t, nil
}
