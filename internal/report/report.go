//-------------------------------------------------------------------------
//
// pgEdge Sales Mart
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package report assembles aggregation and segmentation output into named,
// parameterless reports.
package report

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pgEdge/pgedge-salesmart/internal/analytics"
	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

// ErrUnknownReport is returned for names that are not registered.
var ErrUnknownReport = errors.New("unknown report")

// Input is what every report builds from.
type Input struct {
	Snapshot *warehouse.Snapshot

	// Facts are the joined sales lines of Snapshot.
	Facts []analytics.Fact

	// AsOf is the reference date for ages and recency.
	AsOf time.Time

	// TopN bounds ranking reports.
	TopN int

	// Window is the moving average window.
	Window int
}

// Result is a built report.
type Result struct {
	Name    string
	Columns []string
	Rows    [][]any

	// Records holds the typed rows for columnar export, nil when the report
	// has no typed form.
	Records any
}

// Report builds one result shape from a snapshot.
type Report interface {
	// Name returns the report name used on the command line.
	Name() string

	// Description returns a one-line description.
	Description() string

	// Build computes the report. It must not modify in.
	Build(in Input) (*Result, error)
}

type builder struct {
	name        string
	description string
	build       func(in Input) (*Result, error)
}

func (b builder) Name() string                    { return b.name }
func (b builder) Description() string             { return b.description }
func (b builder) Build(in Input) (*Result, error) { return b.build(in) }

var (
	registry = make(map[string]Report)
	mu       sync.RWMutex
)

// Register adds a report to the registry.
func Register(r Report) {
	mu.Lock()
	defer mu.Unlock()
	registry[r.Name()] = r
}

func register(name, description string, build func(in Input) (*Result, error)) {
	Register(builder{name: name, description: description, build: build})
}

// Get retrieves a report by name.
func Get(name string) (Report, error) {
	mu.RLock()
	defer mu.RUnlock()

	r, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownReport, name)
	}
	return r, nil
}

// List returns all registered report names, sorted.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all registered reports ordered by name.
func All() []Report {
	names := List()

	mu.RLock()
	defer mu.RUnlock()

	reports := make([]Report, 0, len(names))
	for _, name := range names {
		reports = append(reports, registry[name])
	}
	return reports
}

// dateValue renders an optional date as a table cell.
func dateValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func dateString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func floatValue(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
