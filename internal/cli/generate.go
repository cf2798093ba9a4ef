package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesmart/internal/datagen"
	"github.com/pgEdge/pgedge-salesmart/internal/load"
	"github.com/pgEdge/pgedge-salesmart/internal/logging"
)

var (
	genCustomers int
	genProducts  int
	genOrders    int
	genSeed      uint64
	genOutputDir string
	genLoad      bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate sample input files",
	Long: `Generate a synthetic data set in the load file format: one CSV file
per table in the output directory. The same seed always produces the same
files. With --load the files are loaded into the warehouse afterwards.

Example:
  pgedge-salesmart generate --customers 500 --orders 4000 --seed 42
  pgedge-salesmart generate --backend duckdb --duckdb-path ./sales.duckdb --load`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().IntVar(&genCustomers, "customers", 0,
		"number of customers")
	generateCmd.Flags().IntVar(&genProducts, "products", 0,
		"number of products")
	generateCmd.Flags().IntVar(&genOrders, "orders", 0,
		"number of orders (each has one to three lines)")
	generateCmd.Flags().Uint64Var(&genSeed, "seed", 0,
		"random seed (0 = random)")
	generateCmd.Flags().StringVar(&genOutputDir, "output-dir", "",
		"directory for generated files")
	generateCmd.Flags().BoolVar(&genLoad, "load", false,
		"load the generated files into the warehouse")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if genCustomers > 0 {
		cfg.Generate.Customers = genCustomers
	}
	if genProducts > 0 {
		cfg.Generate.Products = genProducts
	}
	if genOrders > 0 {
		cfg.Generate.Orders = genOrders
	}
	if genSeed > 0 {
		cfg.Generate.Seed = genSeed
	}
	if genOutputDir != "" {
		cfg.Generate.OutputDir = genOutputDir
	}

	if err := cfg.ValidateGenerate(); err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	genCfg := datagen.DefaultConfig()
	genCfg.Customers = cfg.Generate.Customers
	genCfg.Products = cfg.Generate.Products
	genCfg.Orders = cfg.Generate.Orders
	genCfg.Seed = cfg.Generate.Seed

	summary, err := datagen.Generate(ctx, cfg.Generate.OutputDir, genCfg)
	if err != nil {
		return fmt.Errorf("failed to generate data: %w", err)
	}
	for table, path := range summary.Files {
		cmd.Printf("%-14s %8d rows  %s\n", table, summary.Rows[table], path)
	}

	if !genLoad {
		return nil
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	logging.Info().Str("dir", cfg.Generate.OutputDir).Msg("Loading generated files")
	_, err = load.New(store).LoadDir(ctx, cfg.Generate.OutputDir)
	return err
}
