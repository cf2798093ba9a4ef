package datagen

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-salesmart/internal/load"
	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Customers = 40
	cfg.Products = 12
	cfg.Orders = 60
	cfg.Seed = 42
	return cfg
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestGenerateWritesTables(t *testing.T) {
	dir := t.TempDir()
	sum, err := Generate(context.Background(), dir, smallConfig())
	require.NoError(t, err)

	for _, table := range warehouse.Tables() {
		path := filepath.Join(dir, string(table)+".csv")
		require.Equal(t, path, sum.Files[table])

		records := readCSV(t, path)
		require.Equal(t, table.ColumnNames(), records[0], "header of %s", table)
		require.Equal(t, sum.Rows[table], int64(len(records)-1))
	}

	require.Equal(t, int64(40), sum.Rows[warehouse.Customers])
	require.Equal(t, int64(12), sum.Rows[warehouse.Products])
	require.GreaterOrEqual(t, sum.Rows[warehouse.Sales], int64(60))
	require.LessOrEqual(t, sum.Rows[warehouse.Sales], int64(180))
	require.Equal(t, sum.Rows[warehouse.Sales]-60, sum.Repeated)
}

func TestGenerateIsReproducible(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	_, err := Generate(context.Background(), a, smallConfig())
	require.NoError(t, err)
	_, err = Generate(context.Background(), b, smallConfig())
	require.NoError(t, err)

	for _, table := range warehouse.Tables() {
		require.Equal(t,
			readCSV(t, filepath.Join(a, string(table)+".csv")),
			readCSV(t, filepath.Join(b, string(table)+".csv")),
			"table %s", table)
	}
}

func TestGeneratedFilesLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	sum, err := Generate(ctx, dir, smallConfig())
	require.NoError(t, err)

	store, err := warehouse.OpenDuck(ctx, "")
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.CreateSchema(ctx))

	results, err := load.New(store).LoadDir(ctx, dir)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, res := range results {
		require.Equal(t, warehouse.StatusSuccess, res.Status)
		require.Equal(t, sum.Rows[warehouse.Table(res.TableName)], res.RowsInserted)
	}
	require.Equal(t, int(sum.Repeated), results[2].RepeatedOrderNumbers)
}

func TestGenerateValidation(t *testing.T) {
	cfg := smallConfig()
	cfg.Orders = 0
	_, err := Generate(context.Background(), t.TempDir(), cfg)
	require.Error(t, err)

	cfg = smallConfig()
	cfg.End = cfg.Start
	_, err = Generate(context.Background(), t.TempDir(), cfg)
	require.Error(t, err)
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Generate(ctx, t.TempDir(), smallConfig())
	require.ErrorIs(t, err, context.Canceled)
}

func TestProgressReporter(t *testing.T) {
	p := NewProgressReporter("fact_sales", 10, 3)
	for i := 0; i < 10; i++ {
		p.Update(1)
	}
	p.Done()
	require.Equal(t, int64(10), p.Rows())

	// Zero interval must not divide by zero.
	p = NewProgressReporter("x", 0, 0)
	p.Update(5)
	require.Equal(t, int64(5), p.Rows())
}
