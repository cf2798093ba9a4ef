//-------------------------------------------------------------------------
//
// pgEdge Sales Mart
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package load bulk loads delimited files into warehouse tables and keeps
// the load audit trail.
package load

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/pgEdge/pgedge-salesmart/internal/logging"
	"github.com/pgEdge/pgedge-salesmart/internal/metrics"
	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

// auditTimeout bounds the audit insert once the load context is gone.
const auditTimeout = 30 * time.Second

// Result is the outcome of one load: the audit record that was written,
// plus data-quality findings that do not fail the load.
type Result struct {
	warehouse.AuditRecord

	// RepeatedOrderNumbers counts fact lines whose order_number already
	// appeared earlier in the same file.
	RepeatedOrderNumbers int
}

// Loader replaces table contents from files, one transaction per file.
type Loader struct {
	store  warehouse.Store
	clock  clockwork.Clock
	opener Opener
}

// Option configures a Loader.
type Option func(*Loader)

// WithClock sets the clock used for load timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(l *Loader) { l.clock = c }
}

// WithOpener sets how input paths are opened.
func WithOpener(o Opener) Option {
	return func(l *Loader) { l.opener = o }
}

// New creates a loader writing to store.
func New(store warehouse.Store, opts ...Option) *Loader {
	l := &Loader{
		store:  store,
		clock:  clockwork.NewRealClock(),
		opener: NewFileOpener(nil),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load replaces the content of table with the rows of the file at path and
// appends one audit record describing the attempt. On failure the table
// keeps its previous rows, the audit record carries the error and the error
// is returned. There are no retries.
func (l *Loader) Load(ctx context.Context, table warehouse.Table, path string) (*Result, error) {
	res := &Result{AuditRecord: warehouse.AuditRecord{
		LoadID:    uuid.NewString(),
		TableName: string(table),
		FilePath:  path,
		LoadStart: l.clock.Now(),
	}}

	log := logging.With("load").With().
		Str("load_id", res.LoadID).
		Str("table", string(table)).
		Str("path", path).
		Logger()
	log.Info().Msg("Starting load")

	rows, repeated, loadErr := l.replace(ctx, table, path)

	end := l.clock.Now()
	res.LoadEnd = &end
	res.RepeatedOrderNumbers = repeated
	duration := end.Sub(res.LoadStart)

	if loadErr != nil {
		res.Status = warehouse.StatusFailed
		res.ErrorMessage = loadErr.Error()
	} else {
		res.Status = warehouse.StatusSuccess
		res.RowsInserted = rows
	}

	metrics.LoadsTotal.WithLabelValues(string(table), res.Status).Inc()
	metrics.LoadDuration.WithLabelValues(string(table)).Observe(duration.Seconds())

	// The audit record is written whatever happened to the load, including
	// cancellation of ctx.
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	auditErr := l.store.AppendAudit(auditCtx, res.AuditRecord)
	cancel()
	if auditErr != nil {
		log.Error().Err(auditErr).Msg("Failed to append audit record")
	}

	if loadErr != nil {
		log.Error().Err(loadErr).Dur("duration", duration).Msg("Load failed")
		return res, errors.Join(fmt.Errorf("load %s from %s: %w", table, path, loadErr), auditErr)
	}

	metrics.LoadRows.WithLabelValues(string(table)).Set(float64(rows))
	if repeated > 0 {
		log.Warn().
			Int("repeated_order_lines", repeated).
			Msg("order_number repeats across fact lines; it is not a unique key")
	}
	log.Info().
		Int64("rows", rows).
		Dur("duration", duration).
		Msg("Load completed")

	if auditErr != nil {
		return res, fmt.Errorf("load %s succeeded but audit failed: %w", table, auditErr)
	}
	return res, nil
}

func (l *Loader) replace(ctx context.Context, table warehouse.Table, path string) (int64, int, error) {
	if _, err := warehouse.ParseTable(string(table)); err != nil {
		return 0, 0, err
	}

	rc, err := l.opener.Open(ctx, path)
	if err != nil {
		return 0, 0, err
	}
	defer rc.Close()

	src := newCSVSource(table, rc)
	rows, err := l.store.ReplaceTable(ctx, table, src)
	if err != nil {
		return 0, src.Repeated(), err
	}
	return rows, src.Repeated(), nil
}

// LoadDir loads <dir>/<table>.csv, or <table>.csv.gz, for every table in
// load order. Tables succeed or fail independently; a missing file is a
// failed load. The returned error joins every failure.
func (l *Loader) LoadDir(ctx context.Context, dir string) ([]*Result, error) {
	var (
		results []*Result
		errs    []error
	)
	for _, table := range warehouse.Tables() {
		res, err := l.Load(ctx, table, FileFor(dir, table))
		results = append(results, res)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}

// FileFor returns the input file of table in dir, preferring the plain
// file over a gzipped one when both exist.
func FileFor(dir string, table warehouse.Table) string {
	plain := filepath.Join(dir, string(table)+".csv")
	if _, err := os.Stat(plain); err == nil {
		return plain
	}
	gz := plain + ".gz"
	if _, err := os.Stat(gz); err == nil {
		return gz
	}
	return plain
}
