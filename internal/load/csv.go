package load

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

// DateLayout is the date format of input files.
const DateLayout = time.DateOnly

// csvSource decodes a delimited file into typed rows for one table.
// It implements warehouse.RowSource.
type csvSource struct {
	table  warehouse.Table
	cols   []warehouse.Column
	r      *csv.Reader
	values []any
	line   int
	err    error

	// fact_sales only: order numbers seen and how many lines repeat one.
	orders   map[string]struct{}
	repeated int
}

func newCSVSource(table warehouse.Table, r io.Reader) *csvSource {
	cols := table.Columns()
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(cols)
	cr.ReuseRecord = true

	src := &csvSource{table: table, cols: cols, r: cr}
	if table == warehouse.Sales {
		src.orders = make(map[string]struct{})
	}
	return src
}

// Next decodes the next record, skipping the header.
func (s *csvSource) Next() bool {
	if s.err != nil {
		return false
	}
	if s.line == 0 {
		if _, err := s.r.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				s.err = errors.New("line 1: missing header row")
			} else {
				s.err = s.wrap(err)
			}
			return false
		}
		s.line = 1
	}

	record, err := s.r.Read()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			s.err = s.wrap(err)
		}
		return false
	}
	s.line, _ = s.r.FieldPos(0)

	values := make([]any, len(s.cols))
	for i, col := range s.cols {
		v, err := decodeField(col, record[i])
		if err != nil {
			s.err = fmt.Errorf("line %d: column %s: %w", s.line, col.Name, err)
			return false
		}
		values[i] = v
	}
	s.values = values

	if s.orders != nil {
		order := values[0].(string)
		if _, seen := s.orders[order]; seen {
			s.repeated++
		} else {
			s.orders[order] = struct{}{}
		}
	}
	return true
}

// Values returns the current row.
func (s *csvSource) Values() ([]any, error) {
	return s.values, nil
}

// Err returns the first read or decode error.
func (s *csvSource) Err() error {
	return s.err
}

// Repeated returns the number of fact lines whose order number appeared earlier.
func (s *csvSource) Repeated() int {
	return s.repeated
}

func (s *csvSource) wrap(err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return fmt.Errorf("line %d: %w", perr.Line, perr.Err)
	}
	return err
}

func decodeField(col warehouse.Column, raw string) (any, error) {
	field := strings.TrimSpace(raw)
	if field == "" {
		if col.Nullable {
			return nil, nil
		}
		return nil, errors.New("value required")
	}

	switch col.Kind {
	case warehouse.KindInt:
		v, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", field)
		}
		return v, nil
	case warehouse.KindNumeric:
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", field)
		}
		return v, nil
	case warehouse.KindDate:
		v, err := time.Parse(DateLayout, field)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q", field)
		}
		return v, nil
	default:
		return field, nil
	}
}
