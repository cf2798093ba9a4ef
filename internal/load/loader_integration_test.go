//go:build integration

// Run with: go test -tags=integration ./internal/load/...

package load

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-salesmart/internal/testutil"
	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

const productsCSV = `product_key,product_id,product_number,product_name,category_id,category,subcategory,maintenance,cost,product_line,start_date
20,310,BK-R93R-62,Road-150 Red- 62,BI_RB,Bikes,Road Bikes,No,2171.29,R,2003-07-01
28,318,BK-R93R-44,Road-150 Red- 44,BI_RB,Bikes,Road Bikes,No,2171.29,R,2003-07-01
30,320,HL-U509-R,Sport-100 Helmet- Red,AC_HE,Accessories,Helmets,No,13.09,S,
`

func TestLoadDirPostgres(t *testing.T) {
	ctx := context.Background()
	store, err := warehouse.OpenPostgres(ctx, testutil.PostgresForTest(t), 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.CreateSchema(ctx))

	dir := t.TempDir()
	writeFile(t, dir, "dim_customers.csv", customersCSV)
	writeFile(t, dir, "dim_products.csv", productsCSV)
	writeFile(t, dir, "fact_sales.csv", salesCSV)

	loader := New(store)
	results, err := loader.LoadDir(ctx, dir)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, int64(4), results[2].RowsInserted)
	require.Equal(t, 1, results[2].RepeatedOrderNumbers)

	// A fact line referencing an unknown product fails at commit and
	// keeps the loaded rows.
	bad := writeFile(t, dir, "bad_sales.csv", salesCSV+"SO43700,99,1,2011-01-01,,,10,1,10\n")
	res, err := loader.Load(ctx, warehouse.Sales, bad)
	require.Error(t, err)
	require.Equal(t, warehouse.StatusFailed, res.Status)

	n, err := store.Count(ctx, warehouse.Sales)
	require.NoError(t, err)
	require.Equal(t, int64(4), n)

	audit, err := store.AuditLog(ctx, warehouse.Sales)
	require.NoError(t, err)
	require.Len(t, audit, 2)
	require.Equal(t, warehouse.StatusSuccess, audit[0].Status)
	require.Equal(t, warehouse.StatusFailed, audit[1].Status)
	require.NotEmpty(t, audit[1].ErrorMessage)
}
