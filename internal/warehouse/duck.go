package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/jmoiron/sqlx"

	"github.com/pgEdge/pgedge-salesmart/internal/db"
	"github.com/pgEdge/pgedge-salesmart/internal/logging"
)

// DuckStore keeps the warehouse in an embedded DuckDB file, or in memory
// when the path is empty.
type DuckStore struct {
	path string
	db   *sqlx.DB
}

// OpenDuck opens (creating if needed) a DuckDB database.
func OpenDuck(ctx context.Context, path string) (*DuckStore, error) {
	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	// Connections share one database instance; writes serialize anyway.
	conn.SetMaxOpenConns(4)
	conn.SetConnMaxLifetime(0)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	where := path
	if where == "" {
		where = ":memory:"
	}
	logging.Info().Str("path", where).Msg("Opened DuckDB warehouse")

	return &DuckStore{path: path, db: sqlx.NewDb(conn, "duckdb")}, nil
}

// Backend returns the backend name.
func (s *DuckStore) Backend() string {
	return BackendDuckDB
}

// CreateSchema creates tables and report views.
func (s *DuckStore) CreateSchema(ctx context.Context) error {
	logging.Info().Str("backend", BackendDuckDB).Msg("Creating warehouse schema")

	if _, err := s.db.ExecContext(ctx, duckSchemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	for _, stmt := range reportViewsSQL() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create report view: %w", err)
		}
	}
	return nil
}

// DropSchema drops the warehouse and its metadata.
func (s *DuckStore) DropSchema(ctx context.Context) error {
	logging.Info().Str("backend", BackendDuckDB).Msg("Dropping warehouse schema")

	if _, err := s.db.ExecContext(ctx, dropSchemaSQL); err != nil {
		return fmt.Errorf("failed to drop schema: %w", err)
	}
	_, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+db.MetadataTable)
	return err
}

// ReplaceTable empties t and inserts src in one transaction.
func (s *DuckStore) ReplaceTable(ctx context.Context, t Table, src RowSource) (int64, error) {
	if _, err := ParseTable(string(t)); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", t)); err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", t, err)
	}

	cols := t.ColumnNames()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt, err := tx.PreparexContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)", t, strings.Join(cols, ", "), placeholders))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert into %s: %w", t, err)
	}
	defer stmt.Close()

	for src.Next() {
		values, err := src.Values()
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return 0, fmt.Errorf("failed to insert into %s: %w", t, err)
		}
	}
	if err := src.Err(); err != nil {
		return 0, err
	}

	var count int64
	if err := tx.GetContext(ctx, &count, fmt.Sprintf("SELECT COUNT(*) FROM %s", t)); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", t, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit load of %s: %w", t, err)
	}
	return count, nil
}

// AppendAudit inserts rec outside any load transaction.
func (s *DuckStore) AppendAudit(ctx context.Context, rec AuditRecord) error {
	var errMsg *string
	if rec.ErrorMessage != "" {
		errMsg = &rec.ErrorMessage
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO load_audit_log
            (load_id, table_name, file_path, load_start, load_end,
             rows_inserted, status, error_message)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `, rec.LoadID, rec.TableName, rec.FilePath, rec.LoadStart.UTC(), utcPtr(rec.LoadEnd),
		rec.RowsInserted, rec.Status, errMsg)
	if err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}

// AuditLog returns audit records oldest first.
func (s *DuckStore) AuditLog(ctx context.Context, t Table) ([]AuditRecord, error) {
	query := selectAuditColumns
	var args []any
	if t != "" {
		query += " WHERE table_name = ?"
		args = append(args, string(t))
	}
	query += " ORDER BY load_start, load_id"

	var records []AuditRecord
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	return records, nil
}

// Count returns the number of rows in t.
func (s *DuckStore) Count(ctx context.Context, t Table) (int64, error) {
	if _, err := ParseTable(string(t)); err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.GetContext(ctx, &n, fmt.Sprintf("SELECT COUNT(*) FROM %s", t)); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", t, err)
	}
	return n, nil
}

// Snapshot reads the three tables in one transaction.
func (s *DuckStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	snap := &Snapshot{}
	if err := tx.SelectContext(ctx, &snap.Customers, selectCustomersSQL); err != nil {
		return nil, fmt.Errorf("failed to read customers: %w", err)
	}
	if err := tx.SelectContext(ctx, &snap.Products, selectProductsSQL); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}
	if err := tx.SelectContext(ctx, &snap.Sales, selectSalesSQL); err != nil {
		return nil, fmt.Errorf("failed to read sales: %w", err)
	}
	return snap, nil
}

// QueryView reads every row of a report view.
func (s *DuckStore) QueryView(ctx context.Context, view string) (*ViewResult, error) {
	if err := validView(view); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryxContext(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY 1", view))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", view, err)
	}
	defer rows.Close()

	res := &ViewResult{}
	if res.Columns, err = rows.Columns(); err != nil {
		return nil, err
	}
	for rows.Next() {
		values, err := rows.SliceScan()
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
func (s *DuckStore) SaveMetadata(ctx context.Context, values map[string]string) error {
	if _, err := s.db.ExecContext(ctx, db.CreateMetadataTableSQL); err != nil {
		return fmt.Errorf("failed to create metadata table: %w", err)
	}
	for key, value := range values {
		_, err := s.db.ExecContext(ctx, `
            INSERT INTO salesmart_metadata (key, value) VALUES (?, ?)
            ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
        `, key, value)
		if err != nil {
			return fmt.Errorf("failed to save metadata %s: %w", key, err)
		}
	}
	return nil
}

// Metadata returns one metadata value.
func (s *DuckStore) Metadata(ctx context.Context, key string) (string, error) {
	var value string
	if err := s.db.GetContext(ctx, &value, "SELECT value FROM salesmart_metadata WHERE key = ?", key); err != nil {
		return "", fmt.Errorf("failed to read metadata %s: %w", key, err)
	}
	return value, nil
}

// Close closes the database.
func (s *DuckStore) Close() error {
	return s.db.Close()
}
