// Package render writes report results as terminal tables, CSV, JSON or
// Parquet.
package render

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/parquet-go/parquet-go"

	"github.com/pgEdge/pgedge-salesmart/internal/report"
)

// Format is an output format.
type Format string

const (
	FormatTable   Format = "table"
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
)

var (
	// ErrUnknownFormat is returned for format names that are not supported.
	ErrUnknownFormat = errors.New("unknown output format")

	// ErrNoRecords is returned when a columnar format is requested for a
	// report without typed records.
	ErrNoRecords = errors.New("report has no typed records")
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatTable, FormatCSV, FormatJSON, FormatParquet}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats() {
		if string(f) == strings.ToLower(s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Write renders res to w.
func Write(w io.Writer, f Format, res *report.Result) error {
	switch f {
	case FormatTable:
		return writeTable(w, res)
	case FormatCSV:
		return writeCSV(w, res)
	case FormatJSON:
		return writeJSON(w, res)
	case FormatParquet:
		return writeParquet(w, res)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

func writeTable(w io.Writer, res *report.Result) error {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(true)
	table.SetHeader(res.Columns)

	for _, row := range res.Rows {
		table.Append(cells(row))
	}
	table.Render()
	return nil
}

func writeCSV(w io.Writer, res *report.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(res.Columns); err != nil {
		return err
	}
	for _, row := range res.Rows {
		if err := cw.Write(cells(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeJSON writes an array of objects, keys in column order.
func writeJSON(w io.Writer, res *report.Result) error {
	var b strings.Builder
	b.WriteString("[")
	for i, row := range res.Rows {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("\n  {")
		for j, col := range res.Columns {
			if j > 0 {
				b.WriteString(", ")
			}
			key, _ := json.Marshal(col)
			val, err := json.Marshal(jsonValue(row[j]))
			if err != nil {
				return fmt.Errorf("column %s: %w", col, err)
			}
			b.Write(key)
			b.WriteString(": ")
			b.Write(val)
		}
		b.WriteString("}")
	}
	if len(res.Rows) > 0 {
		b.WriteString("\n")
	}
	b.WriteString("]\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeParquet(w io.Writer, res *report.Result) error {
	switch records := res.Records.(type) {
	case []report.CustomerRecord:
		return parquet.Write(w, records)
	case []report.ProductRecord:
		return parquet.Write(w, records)
	default:
		return fmt.Errorf("%w: %s", ErrNoRecords, res.Name)
	}
}

func cells(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = Cell(v)
	}
	return out
}

// Cell formats one value for text output. Floats get two decimals, dates
// their ISO form and nulls an empty cell.
func Cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', 2, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case time.Time:
		return formatTime(x)
	default:
		return fmt.Sprint(x)
	}
}

func jsonValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return formatTime(t)
	}
	return v
}

func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}
