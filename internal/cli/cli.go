//-------------------------------------------------------------------------
//
// pgEdge Sales Mart
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for pgedge-salesmart.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesmart/internal/config"
	"github.com/pgEdge/pgedge-salesmart/internal/logging"
	"github.com/pgEdge/pgedge-salesmart/internal/metrics"
	"github.com/pgEdge/pgedge-salesmart/internal/report"
	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
	"github.com/pgEdge/pgedge-salesmart/pkg/version"
)

var (
	// Global flags
	cfgFile         string
	backend         string
	connection      string
	duckDBPath      string
	logLevel        string
	logFormat       string
	metricsTextfile string

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "pgedge-salesmart",
		Short: "Sales star schema loader and analytical reporting",
		Long: `pgedge-salesmart loads a sales star schema (customers, products and
sales order lines) from delimited files into PostgreSQL or DuckDB, keeps an
audit trail of every load, and produces analytical reports over the loaded
data: trends, rankings, segmentations and per-customer and per-product
report views.

Typical session:
  pgedge-salesmart init --connection "postgres://..."
  pgedge-salesmart load --dir ./datasets
  pgedge-salesmart report customers --format csv`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return metrics.WriteTextfile(cfg.MetricsTextfile)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./pgedge-salesmart.yaml)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "",
		"warehouse backend (postgres, duckdb)")
	rootCmd.PersistentFlags().StringVar(&connection, "connection", "",
		"PostgreSQL connection string")
	rootCmd.PersistentFlags().StringVar(&duckDBPath, "duckdb-path", "",
		"DuckDB database file (duckdb backend)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"log format (console, json)")
	rootCmd.PersistentFlags().StringVar(&metricsTextfile, "metrics-textfile", "",
		"write Prometheus metrics to this file on exit")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(generateCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if backend != "" {
		cfg.Backend = backend
	}
	if connection != "" {
		cfg.Connection = connection
	}
	if duckDBPath != "" {
		cfg.DuckDBPath = duckDBPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if metricsTextfile != "" {
		cfg.MetricsTextfile = metricsTextfile
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	metrics.BuildInfo.WithLabelValues(version.Version, version.Commit, version.BuildDate).Set(1)

	return nil
}

// commandContext returns a context cancelled on SIGINT or SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openStore validates the connection settings and opens the warehouse.
func openStore(ctx context.Context) (warehouse.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := warehouse.Open(ctx, warehouse.Options{
		Backend:    cfg.Backend,
		Connection: cfg.Connection,
		DuckDBPath: cfg.DuckDBPath,
		MaxConns:   cfg.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s warehouse: %w", cfg.Backend, err)
	}
	return store, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List loadable tables and their columns",
	Long: `List the tables of the star schema in load order, with the column
order expected in their input files. Each input file has a header line
followed by comma-separated values in exactly this order.`,
	Run: func(cmd *cobra.Command, args []string) {
		for _, t := range warehouse.Tables() {
			cmd.Printf("%s\n", t)
			for _, c := range t.Columns() {
				required := ""
				if !c.Nullable {
					required = " (required)"
				}
				cmd.Printf("  %-16s %s%s\n", c.Name, c.Kind, required)
			}
			cmd.Println()
		}
	},
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List available reports",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("Available reports:")
		cmd.Println()
		for _, r := range report.All() {
			view := ""
			if v, ok := report.ViewFor(r.Name()); ok {
				view = fmt.Sprintf(" [view: %s]", v)
			}
			cmd.Printf("  %-22s - %s%s\n", r.Name(), r.Description(), view)
		}
		cmd.Println()
		cmd.Println("Use 'pgedge-salesmart report <name>' to build one.")
	},
}
