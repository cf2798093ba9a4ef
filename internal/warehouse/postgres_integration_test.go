//go:build integration

// Run with: go test -tags=integration ./internal/warehouse/...
// Uses PGEDGE_TEST_CONN, a local server, or a postgres container.

package warehouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-salesmart/internal/testutil"
)

func openTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s, err := OpenPostgres(ctx, testutil.PostgresForTest(t), 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.CreateSchema(ctx))
	return s
}

func columnIndex(t *testing.T, res *ViewResult, name string) int {
	t.Helper()
	for i, c := range res.Columns {
		if c == name {
			return i
		}
	}
	t.Fatalf("column %s missing", name)
	return -1
}

func TestPostgresReplaceAndSnapshot(t *testing.T) {
	ctx := context.Background()
	s := openTestPostgres(t)
	seed(t, s)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Customers, 2)
	require.Len(t, snap.Sales, 5)
	require.Equal(t, 2171.29, snap.Products[0].Cost)
	require.Equal(t, 0.0, snap.Products[1].Cost)
	require.Equal(t, day(1971, 10, 6), *snap.Customers[0].Birthdate)

	// Dimensions can be replaced while facts still reference their keys.
	n, err := s.ReplaceTable(ctx, Customers, &sliceSource{rows: [][]any{
		{int64(1), nil, nil, "Jon", "Yang", nil, nil, nil, nil, nil},
		{int64(2), nil, nil, "Eugene", "Huang", nil, nil, nil, nil, nil},
	}})
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}

func TestPostgresReplaceRejectsDanglingKeys(t *testing.T) {
	ctx := context.Background()
	s := openTestPostgres(t)
	seed(t, s)

	// Dropping customer 2 leaves SO3 and SO4 dangling at commit.
	_, err := s.ReplaceTable(ctx, Customers, &sliceSource{rows: [][]any{
		{int64(1), nil, nil, "Jon", "Yang", nil, nil, nil, nil, nil},
	}})
	require.Error(t, err)

	n, err := s.Count(ctx, Customers)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}

func TestPostgresAuditLog(t *testing.T) {
	ctx := context.Background()
	s := openTestPostgres(t)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(time.Second)

	require.NoError(t, s.AppendAudit(ctx, AuditRecord{
		LoadID: "6f1c7a62-8c43-4a5e-9d1e-0c2b9b1f0a01", TableName: string(Sales), FilePath: "s.csv",
		LoadStart: start, LoadEnd: &end, Status: StatusFailed, ErrorMessage: "line 3: bad date",
	}))
	require.NoError(t, s.AppendAudit(ctx, AuditRecord{
		LoadID: "6f1c7a62-8c43-4a5e-9d1e-0c2b9b1f0a02", TableName: string(Sales), FilePath: "s.csv",
		LoadStart: start.Add(time.Minute), LoadEnd: &end, RowsInserted: 5, Status: StatusSuccess,
	}))

	recs, err := s.AuditLog(ctx, Sales)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, StatusFailed, recs[0].Status)
	require.Equal(t, "line 3: bad date", recs[0].ErrorMessage)
	require.Equal(t, "", recs[1].ErrorMessage)
	require.True(t, recs[0].LoadStart.Equal(start))

	err = s.AppendAudit(ctx, AuditRecord{
		LoadID: "6f1c7a62-8c43-4a5e-9d1e-0c2b9b1f0a03", TableName: string(Sales),
		LoadStart: start, Status: "Pending",
	})
	require.Error(t, err)
}

func TestPostgresReportViews(t *testing.T) {
	ctx := context.Background()
	s := openTestPostgres(t)
	seed(t, s)

	customers, err := s.QueryView(ctx, CustomerReportView)
	require.NoError(t, err)
	require.Len(t, customers.Rows, 2)

	jon := customers.Rows[0]
	require.Equal(t, "Jon Yang", jon[columnIndex(t, customers, "customer_name")])
	require.Equal(t, int64(2), jon[columnIndex(t, customers, "total_orders")])
	require.InDelta(t, 7191.0, jon[columnIndex(t, customers, "total_sales")], 1e-6)
	require.Equal(t, int64(14), jon[columnIndex(t, customers, "lifespan_months")])
	require.Equal(t, "Loyal", jon[columnIndex(t, customers, "customer_segment")])

	products, err := s.QueryView(ctx, ProductReportView)
	require.NoError(t, err)
	require.Len(t, products.Rows, 2)
	helmet := products.Rows[1]
	require.Equal(t, "Niche Product", helmet[columnIndex(t, products, "reach_tier")])
	require.InDelta(t, 35.0, helmet[columnIndex(t, products, "avg_selling_price")], 1e-6)
}

func TestPostgresMetadataAndDrop(t *testing.T) {
	ctx := context.Background()
	s := openTestPostgres(t)

	require.NoError(t, s.SaveMetadata(ctx, map[string]string{"schema_version": "2"}))
	v, err := s.Metadata(ctx, "schema_version")
	require.NoError(t, err)
	require.Equal(t, "2", v)

	require.NoError(t, s.DropSchema(ctx))
	_, err = s.Count(ctx, Sales)
	require.Error(t, err)
}
