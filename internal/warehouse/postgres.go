//-------------------------------------------------------------------------
//
// pgEdge Sales Mart
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/pgedge-salesmart/internal/db"
	"github.com/pgEdge/pgedge-salesmart/internal/logging"
)

// DB is satisfied by both *pgxpool.Pool and pgx.Tx, so queries can run
// inside or outside a load transaction.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps the warehouse in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to PostgreSQL.
func OpenPostgres(ctx context.Context, connString string, maxConns int32) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, maxConns)
	if err != nil {
		return nil, err
	}
	return NewPostgresStore(pool), nil
}

// NewPostgresStore wraps an existing pool. The store takes ownership of it.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Backend returns the backend name.
func (s *PostgresStore) Backend() string {
	return BackendPostgres
}

// Pool exposes the underlying pool.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// CreateSchema creates tables, indexes and report views.
func (s *PostgresStore) CreateSchema(ctx context.Context) error {
	logging.Info().Str("backend", BackendPostgres).Msg("Creating warehouse schema")

	if _, err := s.pool.Exec(ctx, postgresSchemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	for _, stmt := range reportViewsSQL() {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create report view: %w", err)
		}
	}

	logging.Info().Msg("Warehouse schema created successfully")
	return nil
}

// DropSchema drops the warehouse and its metadata.
func (s *PostgresStore) DropSchema(ctx context.Context) error {
	logging.Info().Str("backend", BackendPostgres).Msg("Dropping warehouse schema")

	if _, err := s.pool.Exec(ctx, dropSchemaSQL); err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}
	return db.DropMetadata(ctx, s.pool)
}

// ReplaceTable empties t and copies src into it in one transaction.
// DELETE is used instead of TRUNCATE because the dimensions are referenced
// by foreign keys.
func (s *PostgresStore) ReplaceTable(ctx context.Context, t Table, src RowSource) (int64, error) {
	if _, err := ParseTable(string(t)); err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s", t)); err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", t, err)
	}

	copied, err := tx.CopyFrom(ctx, pgx.Identifier{string(t)}, t.ColumnNames(), src)
	if err != nil {
		return 0, fmt.Errorf("failed to copy into %s: %w", t, err)
	}

	count, err := countRows(ctx, tx, t)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit load of %s: %w", t, err)
	}

	logging.Debug().
		Str("table", string(t)).
		Int64("copied", copied).
		Int64("rows", count).
		Msg("Table replaced")

	return count, nil
}

// AppendAudit inserts rec using the pool, outside any load transaction.
func (s *PostgresStore) AppendAudit(ctx context.Context, rec AuditRecord) error {
	var errMsg *string
	if rec.ErrorMessage != "" {
		errMsg = &rec.ErrorMessage
	}
	_, err := s.pool.Exec(ctx, `
        INSERT INTO load_audit_log
            (load_id, table_name, file_path, load_start, load_end,
             rows_inserted, status, error_message)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, rec.LoadID, rec.TableName, rec.FilePath, rec.LoadStart, rec.LoadEnd,
		rec.RowsInserted, rec.Status, errMsg)
	if err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}

// AuditLog returns audit records oldest first.
func (s *PostgresStore) AuditLog(ctx context.Context, t Table) ([]AuditRecord, error) {
	query := selectAuditColumns
	var args []any
	if t != "" {
		query += " WHERE table_name = $1"
		args = append(args, string(t))
	}
	query += " ORDER BY load_start, load_id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[AuditRecord])
}

// Count returns the number of rows in t.
func (s *PostgresStore) Count(ctx context.Context, t Table) (int64, error) {
	if _, err := ParseTable(string(t)); err != nil {
		return 0, err
	}
	return countRows(ctx, s.pool, t)
}

func countRows(ctx context.Context, q DB, t Table) (int64, error) {
	var n int64
	if err := q.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", t)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", t, err)
	}
	return n, nil
}

// Snapshot reads the three tables in one repeatable-read transaction.
func (s *PostgresStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	snap := &Snapshot{}
	if snap.Customers, err = collect[Customer](ctx, tx, selectCustomersSQL); err != nil {
		return nil, fmt.Errorf("failed to read customers: %w", err)
	}
	if snap.Products, err = collect[Product](ctx, tx, selectProductsSQL); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}
	if snap.Sales, err = collect[Sale](ctx, tx, selectSalesSQL); err != nil {
		return nil, fmt.Errorf("failed to read sales: %w", err)
	}
	return snap, nil
}

func collect[T any](ctx context.Context, q DB, sql string) ([]T, error) {
	rows, err := q.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[T])
}

// QueryView reads every row of a report view.
func (s *PostgresStore) QueryView(ctx context.Context, view string) (*ViewResult, error) {
	if err := validView(view); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY 1", view))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", view, err)
	}
	defer rows.Close()

	res := &ViewResult{}
	for _, fd := range rows.FieldDescriptions() {
		res.Columns = append(res.Columns, fd.Name)
	}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", view, err)
		}
		res.Rows = append(res.Rows, normalizeRow(values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", view, err)
	}
	return res, nil
}

// SaveMetadata upserts install metadata.
func (s *PostgresStore) SaveMetadata(ctx context.Context, values map[string]string) error {
	return db.SaveMetadata(ctx, s.pool, values)
}

// Metadata returns one metadata value.
func (s *PostgresStore) Metadata(ctx context.Context, key string) (string, error) {
	return db.GetMetadataValue(ctx, s.pool, key)
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
