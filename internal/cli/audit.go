package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-salesmart/internal/render"
	"github.com/pgEdge/pgedge-salesmart/internal/report"
	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

var (
	auditTable  string
	auditFormat string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the load audit log",
	Long: `Show every recorded load attempt, oldest first, optionally limited
to one table.

Example:
  pgedge-salesmart audit --table fact_sales --format json`,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().StringVar(&auditTable, "table", "",
		"only show loads of this table")
	auditCmd.Flags().StringVar(&auditFormat, "format", "table",
		"output format: table, csv, json")
}

func runAudit(cmd *cobra.Command, args []string) error {
	var table warehouse.Table
	if auditTable != "" {
		t, err := warehouse.ParseTable(auditTable)
		if err != nil {
			return err
		}
		table = t
	}
	format, err := render.ParseFormat(auditFormat)
	if err != nil {
		return err
	}
	if format == render.FormatParquet {
		return render.ErrNoRecords
	}

	ctx, cancel := commandContext()
	defer cancel()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.AuditLog(ctx, table)
	if err != nil {
		return err
	}

	return render.Write(cmd.OutOrStdout(), format, auditResult(records))
}

// auditResult lays audit records out as a renderable result.
func auditResult(records []warehouse.AuditRecord) *report.Result {
	res := &report.Result{
		Name: warehouse.AuditTable,
		Columns: []string{
			"load_id", "table_name", "file_path", "load_start", "load_end",
			"duration_seconds", "rows_inserted", "status", "error_message",
		},
		Rows: make([][]any, 0, len(records)),
	}
	for _, r := range records {
		var end, duration any
		if r.LoadEnd != nil {
			end = r.LoadEnd.UTC().Format(time.RFC3339)
			duration = r.LoadEnd.Sub(r.LoadStart).Seconds()
		}
		res.Rows = append(res.Rows, []any{
			r.LoadID, r.TableName, r.FilePath, r.LoadStart.UTC().Format(time.RFC3339),
			end, duration, r.RowsInserted, r.Status, r.ErrorMessage,
		})
	}
	return res
}
