package load

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jonboulle/clockwork"
	"github.com/klauspost/compress/gzip"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-salesmart/internal/metrics"
	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

const customersCSV = `customer_key,customer_id,customer_number,first_name,last_name,country,marital_status,gender,birthdate,create_date
1,11000,AW00011000,Jon,Yang,Australia,M,Male,1971-10-06,2025-10-06
2,11001,AW00011001,Eugene,Huang,Australia,S,Male,1976-05-10,2025-10-06
3,11002,AW00011002,Ruben,Torres,,M,,,
`

const salesCSV = `order_number,product_key,customer_key,order_date,shipping_date,due_date,sales_amount,quantity,price
SO43697,20,1,2010-12-29,2011-01-05,2011-01-10,3578,1,3578
SO43698,28,2,2010-12-29,2011-01-05,2011-01-10,3400,1,3400
SO43698,30,2,2010-12-29,2011-01-05,2011-01-10,25,1,25
SO43699,28,3,,,,3400,1,3400
`

func newStore(t *testing.T) warehouse.Store {
	t.Helper()
	ctx := context.Background()

	store, err := warehouse.OpenDuck(ctx, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.CreateSchema(ctx))
	return store
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadWellFormedFile(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	start := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	loader := New(store, WithClock(clock))

	path := writeFile(t, t.TempDir(), "dim_customers.csv", customersCSV)

	before := promtest.ToFloat64(metrics.LoadsTotal.WithLabelValues("dim_customers", warehouse.StatusSuccess))
	res, err := loader.Load(ctx, warehouse.Customers, path)
	require.NoError(t, err)
	require.Equal(t, warehouse.StatusSuccess, res.Status)
	require.Equal(t, int64(3), res.RowsInserted)
	require.NotEmpty(t, res.LoadID)
	require.NotNil(t, res.LoadEnd)
	require.Equal(t, before+1, promtest.ToFloat64(metrics.LoadsTotal.WithLabelValues("dim_customers", warehouse.StatusSuccess)))

	count, err := store.Count(ctx, warehouse.Customers)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)

	audit, err := store.AuditLog(ctx, warehouse.Customers)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	require.Equal(t, warehouse.StatusSuccess, audit[0].Status)
	require.Equal(t, int64(3), audit[0].RowsInserted)
	require.Equal(t, path, audit[0].FilePath)
	require.True(t, audit[0].LoadStart.Equal(start))
	require.Empty(t, audit[0].ErrorMessage)

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Customers, 3)
	require.Equal(t, "Jon Yang", snap.Customers[0].Name())
	require.Nil(t, snap.Customers[2].Birthdate)
	require.Equal(t, "", snap.Customers[2].Country)
}

func TestLoadMalformedFile(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	loader := New(store)
	dir := t.TempDir()

	bad := writeFile(t, dir, "bad.csv", "customer_key,customer_id\n1,11000\n")

	res, err := loader.Load(ctx, warehouse.Customers, bad)
	require.Error(t, err)
	require.Equal(t, warehouse.StatusFailed, res.Status)
	require.Zero(t, res.RowsInserted)

	count, err := store.Count(ctx, warehouse.Customers)
	require.NoError(t, err)
	require.Zero(t, count)

	audit, err := store.AuditLog(ctx, warehouse.Customers)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	require.Equal(t, warehouse.StatusFailed, audit[0].Status)
	require.Contains(t, audit[0].ErrorMessage, "line 1")
}

func TestLoadFailureKeepsPriorRows(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	loader := New(store)
	dir := t.TempDir()

	good := writeFile(t, dir, "good.csv", customersCSV)
	_, err := loader.Load(ctx, warehouse.Customers, good)
	require.NoError(t, err)

	// Third data row has a bad key: the whole replacement rolls back.
	bad := writeFile(t, dir, "bad.csv", strings.Replace(customersCSV, "3,11002", "x,11002", 1))
	_, err = loader.Load(ctx, warehouse.Customers, bad)
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 4")
	require.Contains(t, err.Error(), "customer_key")

	count, err := store.Count(ctx, warehouse.Customers)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)

	audit, err := store.AuditLog(ctx, warehouse.Customers)
	require.NoError(t, err)
	require.Len(t, audit, 2)
	require.Equal(t, warehouse.StatusSuccess, audit[0].Status)
	require.Equal(t, warehouse.StatusFailed, audit[1].Status)
}

func TestLoadEmptyFileKeepsPriorRows(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	loader := New(store)
	dir := t.TempDir()

	_, err := loader.Load(ctx, warehouse.Customers, writeFile(t, dir, "good.csv", customersCSV))
	require.NoError(t, err)

	res, err := loader.Load(ctx, warehouse.Customers, writeFile(t, dir, "empty.csv", ""))
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing header row")
	require.Equal(t, warehouse.StatusFailed, res.Status)

	count, err := store.Count(ctx, warehouse.Customers)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)

	audit, err := store.AuditLog(ctx, warehouse.Customers)
	require.NoError(t, err)
	require.Len(t, audit, 2)
	require.Equal(t, warehouse.StatusFailed, audit[1].Status)
	require.Contains(t, audit[1].ErrorMessage, "line 1")
}

// cancellingOpener cancels the load context as the file is opened.
type cancellingOpener struct {
	cancel context.CancelFunc
	body   string
}

func (o *cancellingOpener) Open(_ context.Context, _ string) (io.ReadCloser, error) {
	o.cancel()
	return io.NopCloser(strings.NewReader(o.body)), nil
}

func TestLoadCancelledStillAudits(t *testing.T) {
	store := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loader := New(store, WithOpener(&cancellingOpener{cancel: cancel, body: customersCSV}))
	res, err := loader.Load(ctx, warehouse.Customers, "dim_customers.csv")
	require.ErrorIs(t, err, context.Canceled)
	require.NotContains(t, err.Error(), "audit")
	require.Equal(t, warehouse.StatusFailed, res.Status)

	audit, err := store.AuditLog(context.Background(), warehouse.Customers)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	require.Equal(t, res.LoadID, audit[0].LoadID)
	require.Equal(t, warehouse.StatusFailed, audit[0].Status)
	require.Contains(t, audit[0].ErrorMessage, "context canceled")

	count, err := store.Count(context.Background(), warehouse.Customers)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestLoadMissingRequiredValue(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	path := writeFile(t, t.TempDir(), "sales.csv",
		"h1,h2,h3,h4,h5,h6,h7,h8,h9\n,20,1,2010-12-29,,,10,1,10\n")
	_, err := New(store).Load(ctx, warehouse.Sales, path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "order_number")
	require.Contains(t, err.Error(), "value required")
}

func TestReloadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	clock := clockwork.NewFakeClock()
	loader := New(store, WithClock(clock))
	path := writeFile(t, t.TempDir(), "dim_customers.csv", customersCSV)

	_, err := loader.Load(ctx, warehouse.Customers, path)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = loader.Load(ctx, warehouse.Customers, path)
	require.NoError(t, err)

	count, err := store.Count(ctx, warehouse.Customers)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)

	audit, err := store.AuditLog(ctx, "")
	require.NoError(t, err)
	require.Len(t, audit, 2)
	require.NotEqual(t, audit[0].LoadID, audit[1].LoadID)
	require.True(t, audit[0].LoadStart.Before(audit[1].LoadStart))
}

func TestLoadFlagsRepeatedOrderNumbers(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	path := writeFile(t, t.TempDir(), "fact_sales.csv", salesCSV)

	res, err := New(store).Load(ctx, warehouse.Sales, path)
	require.NoError(t, err)
	require.Equal(t, int64(4), res.RowsInserted)
	require.Equal(t, 1, res.RepeatedOrderNumbers)

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Sales, 4)
	var undated int
	for _, s := range snap.Sales {
		if s.OrderDate == nil {
			undated++
		}
	}
	require.Equal(t, 1, undated)
}

func TestLoadGzipFile(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(customersCSV))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := writeFile(t, t.TempDir(), "dim_customers.csv.gz", buf.String())
	res, err := New(store).Load(ctx, warehouse.Customers, path)
	require.NoError(t, err)
	require.Equal(t, int64(3), res.RowsInserted)
}

func TestLoadMissingFile(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	res, err := New(store).Load(ctx, warehouse.Products, filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	require.True(t, errors.Is(err, os.ErrNotExist))
	require.Equal(t, warehouse.StatusFailed, res.Status)

	audit, err := store.AuditLog(ctx, warehouse.Products)
	require.NoError(t, err)
	require.Len(t, audit, 1)
}

func TestLoadUnknownTable(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := New(store).Load(ctx, warehouse.Table("dim_stores"), "whatever.csv")
	require.ErrorIs(t, err, warehouse.ErrUnknownTable)
}

type fakeS3 struct {
	objects map[string]string
	gets    []string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := *in.Bucket + "/" + *in.Key
	f.gets = append(f.gets, key)
	body, ok := f.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestLoadFromS3(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	client := &fakeS3{objects: map[string]string{"datasets/gold/dim_customers.csv": customersCSV}}
	loader := New(store, WithOpener(NewFileOpener(client)))

	res, err := loader.Load(ctx, warehouse.Customers, "s3://datasets/gold/dim_customers.csv")
	require.NoError(t, err)
	require.Equal(t, int64(3), res.RowsInserted)
	require.Equal(t, []string{"datasets/gold/dim_customers.csv"}, client.gets)

	_, err = loader.Load(ctx, warehouse.Customers, "s3://datasets/gold/missing.csv")
	require.Error(t, err)
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		url     string
		bucket  string
		key     string
		wantErr bool
	}{
		{"s3://b/k.csv", "b", "k.csv", false},
		{"s3://b/dir/k.csv.gz", "b", "dir/k.csv.gz", false},
		{"s3://b", "", "", true},
		{"s3:///k", "", "", true},
		{"/tmp/k.csv", "", "", true},
	}
	for _, tt := range tests {
		bucket, key, err := ParseS3URL(tt.url)
		if tt.wantErr {
			require.Error(t, err, tt.url)
			continue
		}
		require.NoError(t, err, tt.url)
		require.Equal(t, tt.bucket, bucket)
		require.Equal(t, tt.key, key)
	}
}

func TestLoadDir(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	dir := t.TempDir()

	writeFile(t, dir, "dim_customers.csv", customersCSV)
	writeFile(t, dir, "fact_sales.csv", salesCSV)

	results, err := New(store).LoadDir(ctx, dir)
	require.Error(t, err)
	require.Len(t, results, 3)
	require.Equal(t, warehouse.StatusSuccess, results[0].Status)
	require.Equal(t, warehouse.StatusFailed, results[1].Status)
	require.Equal(t, warehouse.StatusSuccess, results[2].Status)

	require.Equal(t, filepath.Join(dir, "dim_products.csv"), FileFor(dir, warehouse.Products))
}
