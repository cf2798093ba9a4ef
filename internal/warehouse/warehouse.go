//-------------------------------------------------------------------------
//
// pgEdge Sales Mart
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package warehouse defines the sales star schema and the stores that hold it.
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Table names a warehouse table that can be bulk loaded.
type Table string

const (
	Customers Table = "dim_customers"
	Products  Table = "dim_products"
	Sales     Table = "fact_sales"
)

// AuditTable holds one row per load attempt.
const AuditTable = "load_audit_log"

// Report view names.
const (
	CustomerReportView = "report_customers"
	ProductReportView  = "report_products"
)

// Load outcomes recorded in the audit log.
const (
	StatusSuccess = "Success"
	StatusFailed  = "Failed"
)

var (
	// ErrUnknownTable is returned for table names outside the star schema.
	ErrUnknownTable = errors.New("unknown table")

	// ErrUnknownView is returned for view names that are not report views.
	ErrUnknownView = errors.New("unknown view")

	// ErrUnknownBackend is returned by Open for unsupported backends.
	ErrUnknownBackend = errors.New("unknown backend")
)

// Tables returns the loadable tables in load order: dimensions before facts.
func Tables() []Table {
	return []Table{Customers, Products, Sales}
}

// ParseTable validates a table name.
func ParseTable(name string) (Table, error) {
	for _, t := range Tables() {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTable, name)
}

// Kind is the value kind of a column, used to decode delimited input.
type Kind int

const (
	KindInt Kind = iota
	KindText
	KindDate
	KindNumeric
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindText:
		return "text"
	case KindDate:
		return "date"
	case KindNumeric:
		return "numeric"
	default:
		return "unknown"
	}
}

// Column describes one column of a loadable table.
type Column struct {
	Name     string
	Kind     Kind
	Nullable bool
}

var tableColumns = map[Table][]Column{
	Customers: {
		{Name: "customer_key", Kind: KindInt},
		{Name: "customer_id", Kind: KindInt, Nullable: true},
		{Name: "customer_number", Kind: KindText, Nullable: true},
		{Name: "first_name", Kind: KindText, Nullable: true},
		{Name: "last_name", Kind: KindText, Nullable: true},
		{Name: "country", Kind: KindText, Nullable: true},
		{Name: "marital_status", Kind: KindText, Nullable: true},
		{Name: "gender", Kind: KindText, Nullable: true},
		{Name: "birthdate", Kind: KindDate, Nullable: true},
		{Name: "create_date", Kind: KindDate, Nullable: true},
	},
	Products: {
		{Name: "product_key", Kind: KindInt},
		{Name: "product_id", Kind: KindInt, Nullable: true},
		{Name: "product_number", Kind: KindText, Nullable: true},
		{Name: "product_name", Kind: KindText, Nullable: true},
		{Name: "category_id", Kind: KindText, Nullable: true},
		{Name: "category", Kind: KindText, Nullable: true},
		{Name: "subcategory", Kind: KindText, Nullable: true},
		{Name: "maintenance", Kind: KindText, Nullable: true},
		{Name: "cost", Kind: KindNumeric, Nullable: true},
		{Name: "product_line", Kind: KindText, Nullable: true},
		{Name: "start_date", Kind: KindDate, Nullable: true},
	},
	Sales: {
		{Name: "order_number", Kind: KindText},
		{Name: "product_key", Kind: KindInt},
		{Name: "customer_key", Kind: KindInt},
		{Name: "order_date", Kind: KindDate, Nullable: true},
		{Name: "shipping_date", Kind: KindDate, Nullable: true},
		{Name: "due_date", Kind: KindDate, Nullable: true},
		{Name: "sales_amount", Kind: KindNumeric, Nullable: true},
		{Name: "quantity", Kind: KindInt, Nullable: true},
		{Name: "price", Kind: KindNumeric, Nullable: true},
	},
}

// Columns returns the table's columns in file and DDL order.
func (t Table) Columns() []Column {
	return tableColumns[t]
}

// ColumnNames returns the table's column names in order.
func (t Table) ColumnNames() []string {
	cols := t.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// Customer is a row of dim_customers.
type Customer struct {
	Key           int64      `db:"customer_key"`
	ID            int64      `db:"customer_id"`
	Number        string     `db:"customer_number"`
	FirstName     string     `db:"first_name"`
	LastName      string     `db:"last_name"`
	Country       string     `db:"country"`
	MaritalStatus string     `db:"marital_status"`
	Gender        string     `db:"gender"`
	Birthdate     *time.Time `db:"birthdate"`
	CreateDate    *time.Time `db:"create_date"`
}

// Name returns "first last".
func (c Customer) Name() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Product is a row of dim_products.
type Product struct {
	Key         int64      `db:"product_key"`
	ID          int64      `db:"product_id"`
	Number      string     `db:"product_number"`
	Name        string     `db:"product_name"`
	CategoryID  string     `db:"category_id"`
	Category    string     `db:"category"`
	Subcategory string     `db:"subcategory"`
	Maintenance string     `db:"maintenance"`
	Cost        float64    `db:"cost"`
	Line        string     `db:"product_line"`
	StartDate   *time.Time `db:"start_date"`
}

// Sale is a row of fact_sales: one order line.
type Sale struct {
	OrderNumber  string     `db:"order_number"`
	ProductKey   int64      `db:"product_key"`
	CustomerKey  int64      `db:"customer_key"`
	OrderDate    *time.Time `db:"order_date"`
	ShippingDate *time.Time `db:"shipping_date"`
	DueDate      *time.Time `db:"due_date"`
	SalesAmount  float64    `db:"sales_amount"`
	Quantity     int64      `db:"quantity"`
	Price        float64    `db:"price"`
}

// Snapshot is the content of the three tables read at one point in time.
type Snapshot struct {
	Customers []Customer
	Products  []Product
	Sales     []Sale
}

// AuditRecord is one row of the load audit log. Records are appended, never updated.
type AuditRecord struct {
	LoadID       string     `db:"load_id"`
	TableName    string     `db:"table_name"`
	FilePath     string     `db:"file_path"`
	LoadStart    time.Time  `db:"load_start"`
	LoadEnd      *time.Time `db:"load_end"`
	RowsInserted int64      `db:"rows_inserted"`
	Status       string     `db:"status"`
	ErrorMessage string     `db:"error_message"`
}

// RowSource streams rows into ReplaceTable. It has the shape of
// pgx.CopyFromSource so the PostgreSQL store can hand it to COPY directly.
type RowSource interface {
	Next() bool
	Values() ([]any, error)
	Err() error
}

// ViewResult is the tabular content of a report view.
type ViewResult struct {
	Columns []string
	Rows    [][]any
}

// Store is a warehouse backend.
type Store interface {
	// Backend returns the backend name.
	Backend() string

	// CreateSchema creates tables, indexes, the audit table and report views.
	CreateSchema(ctx context.Context) error

	// DropSchema drops everything CreateSchema created.
	DropSchema(ctx context.Context) error

	// ReplaceTable deletes every row of t and inserts src in one transaction,
	// returning the row count after the load. Any error rolls the whole
	// replacement back.
	ReplaceTable(ctx context.Context, t Table, src RowSource) (int64, error)

	// AppendAudit records a load attempt independently of any load transaction.
	AppendAudit(ctx context.Context, rec AuditRecord) error

	// AuditLog returns audit records oldest first; an empty table means all tables.
	AuditLog(ctx context.Context, t Table) ([]AuditRecord, error)

	// Count returns the number of rows in t.
	Count(ctx context.Context, t Table) (int64, error)

	// Snapshot reads all three tables.
	Snapshot(ctx context.Context) (*Snapshot, error)

	// QueryView reads a report view.
	QueryView(ctx context.Context, view string) (*ViewResult, error)

	// SaveMetadata upserts install metadata.
	SaveMetadata(ctx context.Context, values map[string]string) error

	// Metadata returns a single metadata value.
	Metadata(ctx context.Context, key string) (string, error)

	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend    string
	Connection string
	DuckDBPath string
	MaxConns   int32
}

// Open connects to the configured backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendPostgres:
		s, err := OpenPostgres(ctx, opts.Connection, opts.MaxConns)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendDuckDB:
		s, err := OpenDuck(ctx, opts.DuckDBPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

func validView(view string) error {
	if view != CustomerReportView && view != ProductReportView {
		return fmt.Errorf("%w: %q", ErrUnknownView, view)
	}
	return nil
}
