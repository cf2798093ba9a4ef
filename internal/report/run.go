package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pgEdge/pgedge-salesmart/internal/analytics"
	"github.com/pgEdge/pgedge-salesmart/internal/logging"
	"github.com/pgEdge/pgedge-salesmart/internal/metrics"
	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

// Report sources.
const (
	// SourceEngine builds the report in process from a snapshot.
	SourceEngine = "engine"

	// SourceView reads the persisted report view from the store.
	SourceView = "view"
)

// ErrNoView is returned when a view is requested for a report without one.
var ErrNoView = errors.New("report has no persisted view")

var views = map[string]string{
	CustomersReport: warehouse.CustomerReportView,
	ProductsReport:  warehouse.ProductReportView,
}

// ViewFor returns the persisted view backing a report, if any.
func ViewFor(name string) (string, bool) {
	v, ok := views[name]
	return v, ok
}

// Options parameterize a run.
type Options struct {
	AsOf   time.Time
	TopN   int
	Window int
	Source string
	Clock  clockwork.Clock
}

// Run builds the named report against the current store contents.
func Run(ctx context.Context, store warehouse.Store, name string, opts Options) (*Result, error) {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	start := clock.Now()

	res, err := run(ctx, store, name, opts, start)

	status := warehouse.StatusSuccess
	if err != nil {
		status = warehouse.StatusFailed
	}
	elapsed := clock.Since(start)
	metrics.ReportBuildsTotal.WithLabelValues(name, status).Inc()
	metrics.ReportDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	if err != nil {
		return nil, err
	}

	logging.Debug().
		Str("report", name).
		Str("source", opts.Source).
		Int("rows", len(res.Rows)).
		Dur("duration", elapsed).
		Msg("Report built")
	return res, nil
}

func run(ctx context.Context, store warehouse.Store, name string, opts Options, now time.Time) (*Result, error) {
	r, err := Get(name)
	if err != nil {
		return nil, err
	}

	if opts.Source == SourceView {
		view, ok := ViewFor(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoView, name)
		}
		vr, err := store.QueryView(ctx, view)
		if err != nil {
			return nil, err
		}
		return &Result{Name: name, Columns: vr.Columns, Rows: vr.Rows}, nil
	}

	snap, err := store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	asOf := opts.AsOf
	if asOf.IsZero() {
		asOf = now
	}
	in := Input{
		Snapshot: snap,
		Facts:    analytics.Join(snap),
		AsOf:     asOf,
		TopN:     opts.TopN,
		Window:   opts.Window,
	}
	if in.TopN <= 0 {
		in.TopN = DefaultTopN
	}
	if in.Window <= 0 {
		in.Window = analytics.DefaultMovingWindow
	}

	res, err := r.Build(in)
	if err != nil {
		return nil, fmt.Errorf("failed to build report %s: %w", name, err)
	}
	res.Name = name
	return res, nil
}
