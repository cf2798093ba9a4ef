package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesmart/internal/load"
	"github.com/pgEdge/pgedge-salesmart/internal/logging"
	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

var (
	loadTable string
	loadFile  string
	loadDir   string
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Replace table contents from delimited files",
	Long: `Replace the contents of one table from a file, or of every table
from a directory holding dim_customers.csv, dim_products.csv and
fact_sales.csv (optionally gzipped). Each table is replaced in its own
transaction: a failed load leaves the previous rows in place. Every
attempt is recorded in the load audit log.

Files may be local paths or s3://bucket/key URLs.

Example:
  pgedge-salesmart load --dir ./datasets
  pgedge-salesmart load --table fact_sales --file s3://bucket/sales/fact_sales.csv.gz`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&loadTable, "table", "",
		"table to load (dim_customers, dim_products, fact_sales)")
	loadCmd.Flags().StringVar(&loadFile, "file", "",
		"input file for --table")
	loadCmd.Flags().StringVar(&loadDir, "dir", "",
		"directory holding one input file per table (default: load.data_dir)")
	loadCmd.MarkFlagsRequiredTogether("table", "file")
	loadCmd.MarkFlagsMutuallyExclusive("dir", "table")
}

func runLoad(cmd *cobra.Command, args []string) error {
	var table warehouse.Table
	if loadTable != "" {
		t, err := warehouse.ParseTable(loadTable)
		if err != nil {
			return err
		}
		table = t
	}
	if loadDir != "" {
		cfg.Load.DataDir = loadDir
	}
	if table == "" && cfg.Load.DataDir == "" {
		return errors.New("either --table and --file or --dir is required")
	}

	ctx, cancel := commandContext()
	defer cancel()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	loader := load.New(store)

	var (
		results []*load.Result
		loadErr error
	)
	if table != "" {
		res, err := loader.Load(ctx, table, loadFile)
		results, loadErr = []*load.Result{res}, err
	} else {
		logging.Info().Str("dir", cfg.Load.DataDir).Msg("Loading all tables")
		results, loadErr = loader.LoadDir(ctx, cfg.Load.DataDir)
	}

	for _, res := range results {
		if res == nil {
			continue
		}
		line := fmt.Sprintf("%-14s %-8s %8d rows  %s", res.TableName, res.Status, res.RowsInserted, res.FilePath)
		if res.RepeatedOrderNumbers > 0 {
			line += fmt.Sprintf("  (%d lines repeat an order number)", res.RepeatedOrderNumbers)
		}
		cmd.Println(line)
	}

	return loadErr
}
