package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesmart/internal/logging"
	"github.com/pgEdge/pgedge-salesmart/internal/render"
	"github.com/pgEdge/pgedge-salesmart/internal/report"
)

var (
	reportFormat string
	reportOutput string
	reportAsOf   string
	reportSource string
	reportTopN   int
	reportWindow int
)

var reportCmd = &cobra.Command{
	Use:   "report <name>",
	Short: "Build an analytical report",
	Long: `Build a report over the current warehouse contents. Use 'reports'
to list the available names.

Age and recency are measured against --as-of (default: today). The
customers and products reports can also be read back from their persisted
views with --source view; views always measure against the database's
current date, so --as-of is rejected with --source view.

Example:
  pgedge-salesmart report monthly-trend
  pgedge-salesmart report customers --as-of 2014-02-01 --format json
  pgedge-salesmart report products --format parquet --output products.parquet`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "",
		"output format: table, csv, json, parquet")
	reportCmd.Flags().StringVar(&reportOutput, "output", "",
		"output file (default: stdout)")
	reportCmd.Flags().StringVar(&reportAsOf, "as-of", "",
		"reference date YYYY-MM-DD for age and recency")
	reportCmd.Flags().StringVar(&reportSource, "source", "",
		"engine (computed in process) or view (read from the warehouse)")
	reportCmd.Flags().IntVar(&reportTopN, "top", 0,
		"number of rows in ranking reports")
	reportCmd.Flags().IntVar(&reportWindow, "window", 0,
		"moving average window in periods")
}

func runReport(cmd *cobra.Command, args []string) error {
	name := args[0]

	// Override config with CLI flags
	if reportFormat != "" {
		cfg.Report.Format = reportFormat
	}
	if reportOutput != "" {
		cfg.Report.Output = reportOutput
	}
	if reportAsOf != "" {
		cfg.Report.AsOf = reportAsOf
	}
	if reportSource != "" {
		cfg.Report.Source = reportSource
	}
	if reportTopN > 0 {
		cfg.Report.TopN = reportTopN
	}
	if reportWindow > 0 {
		cfg.Report.MovingWindow = reportWindow
	}

	if err := cfg.ValidateReport(); err != nil {
		return err
	}
	if _, err := report.Get(name); err != nil {
		return err
	}
	format, err := render.ParseFormat(cfg.Report.Format)
	if err != nil {
		return err
	}
	asOf, err := cfg.AsOfDate(time.Time{})
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := report.Run(ctx, store, name, report.Options{
		AsOf:   asOf,
		TopN:   cfg.Report.TopN,
		Window: cfg.Report.MovingWindow,
		Source: cfg.Report.Source,
	})
	if err != nil {
		return err
	}

	if cfg.Report.Output == "" {
		return render.Write(cmd.OutOrStdout(), format, res)
	}

	if err := writeFile(cfg.Report.Output, func(w io.Writer) error {
		return render.Write(w, format, res)
	}); err != nil {
		return err
	}

	logging.Info().
		Str("report", name).
		Str("format", string(format)).
		Str("output", cfg.Report.Output).
		Int("rows", len(res.Rows)).
		Msg("Report written")
	return nil
}

// writeFile creates path and hands it to write, reporting close errors.
func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
	}()
	return write(f)
}
