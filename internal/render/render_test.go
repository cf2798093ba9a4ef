package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-salesmart/internal/report"
)

func sample() *report.Result {
	return &report.Result{
		Name:    "sample",
		Columns: []string{"month", "total_sales", "orders", "change"},
		Rows: [][]any{
			{time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 100.0, int64(3), nil},
			{time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), 150.5, int64(4), 50.5},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats() {
		got, err := ParseFormat(string(f))
		require.NoError(t, err)
		require.Equal(t, f, got)
	}
	got, err := ParseFormat("CSV")
	require.NoError(t, err)
	require.Equal(t, FormatCSV, got)

	_, err = ParseFormat("xml")
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestCell(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{1.005, "1.00"},
		{-66.666, "-66.67"},
		{int64(42), "42"},
		{7, "7"},
		{time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), "2024-02-29"},
		{time.Date(2024, 2, 29, 10, 30, 0, 0, time.UTC), "2024-02-29T10:30:00Z"},
		{true, "true"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Cell(tt.in))
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sample()))
	want := "month,total_sales,orders,change\n" +
		"2023-01-01,100.00,3,\n" +
		"2023-02-01,150.50,4,50.50\n"
	require.Equal(t, want, buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sample()))
	want := `[
  {"month": "2023-01-01", "total_sales": 100, "orders": 3, "change": null},
  {"month": "2023-02-01", "total_sales": 150.5, "orders": 4, "change": 50.5}
]
`
	require.Equal(t, want, buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, FormatJSON, &report.Result{Columns: []string{"a"}}))
	require.Equal(t, "[]\n", buf.String())
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatTable, sample()))
	out := buf.String()
	require.Contains(t, out, "total_sales")
	require.Contains(t, out, "150.50")
	require.Contains(t, out, "2023-02-01")
	require.Equal(t, 3, strings.Count(out, "|\n"))
}

func TestWriteParquet(t *testing.T) {
	age := int64(34)
	records := []report.CustomerRecord{
		{CustomerKey: 1, CustomerName: "Ada Lovelace", Age: &age, CustomerSegment: "VIP", TotalSales: 12035},
		{CustomerKey: 2, CustomerName: "Grace Hopper", CustomerSegment: "Regular", TotalSales: 80},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatParquet, &report.Result{Name: "customers", Records: records}))

	got, err := parquet.Read[report.CustomerRecord](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Equal(t, records, got)
}

func TestWriteParquetWithoutRecords(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, FormatParquet, sample())
	require.ErrorIs(t, err, ErrNoRecords)
}
