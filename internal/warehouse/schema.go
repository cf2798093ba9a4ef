package warehouse

import (
	"fmt"

	"github.com/pgEdge/pgedge-salesmart/internal/segment"
)

// Backend names.
const (
	BackendPostgres = "postgres"
	BackendDuckDB   = "duckdb"
)

// Schema SQL for the PostgreSQL warehouse.
// Foreign keys are deferred to commit so a dimension can be replaced inside
// one transaction while fact rows still reference its keys.
// order_number is not unique: an order spans several lines, so the
// (order_number, product_key) index is deliberately non-unique.
const postgresSchemaSQL = `
-- Customer dimension
CREATE TABLE IF NOT EXISTS dim_customers (
    customer_key    INTEGER PRIMARY KEY,
    customer_id     INTEGER,
    customer_number VARCHAR(50),
    first_name      VARCHAR(50),
    last_name       VARCHAR(50),
    country         VARCHAR(50),
    marital_status  VARCHAR(50),
    gender          VARCHAR(50),
    birthdate       DATE,
    create_date     DATE
);

-- Product dimension
CREATE TABLE IF NOT EXISTS dim_products (
    product_key    INTEGER PRIMARY KEY,
    product_id     INTEGER,
    product_number VARCHAR(50),
    product_name   VARCHAR(100),
    category_id    VARCHAR(50),
    category       VARCHAR(50),
    subcategory    VARCHAR(50),
    maintenance    VARCHAR(50),
    cost           NUMERIC(12,2),
    product_line   VARCHAR(50),
    start_date     DATE
);

-- Sales fact: one row per order line
CREATE TABLE IF NOT EXISTS fact_sales (
    order_number  VARCHAR(50) NOT NULL,
    product_key   INTEGER NOT NULL REFERENCES dim_products(product_key)
                  DEFERRABLE INITIALLY DEFERRED,
    customer_key  INTEGER NOT NULL REFERENCES dim_customers(customer_key)
                  DEFERRABLE INITIALLY DEFERRED,
    order_date    DATE,
    shipping_date DATE,
    due_date      DATE,
    sales_amount  NUMERIC(12,2),
    quantity      INTEGER,
    price         NUMERIC(12,2)
);

CREATE INDEX IF NOT EXISTS idx_fact_sales_order_date ON fact_sales(order_date);
CREATE INDEX IF NOT EXISTS idx_fact_sales_order_line ON fact_sales(order_number, product_key);
CREATE INDEX IF NOT EXISTS idx_dim_customers_country ON dim_customers(country);
CREATE INDEX IF NOT EXISTS idx_dim_products_category ON dim_products(category);

-- Load audit trail: append only
CREATE TABLE IF NOT EXISTS load_audit_log (
    load_id       VARCHAR(36) PRIMARY KEY,
    table_name    VARCHAR(64) NOT NULL,
    file_path     TEXT NOT NULL,
    load_start    TIMESTAMPTZ NOT NULL,
    load_end      TIMESTAMPTZ,
    rows_inserted BIGINT NOT NULL DEFAULT 0,
    status        VARCHAR(16) NOT NULL CHECK (status IN ('Success', 'Failed')),
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_load_audit_log_table ON load_audit_log(table_name, load_start);
`

// Schema SQL for the embedded DuckDB warehouse.
// DuckDB checks unique constraints eagerly inside a transaction, which breaks
// delete-then-reinsert of the same keys, so keys are only enforced by the
// PostgreSQL backend. Zonemaps serve the range scans the indexes cover there.
const duckSchemaSQL = `
CREATE TABLE IF NOT EXISTS dim_customers (
    customer_key    INTEGER NOT NULL,
    customer_id     INTEGER,
    customer_number VARCHAR,
    first_name      VARCHAR,
    last_name       VARCHAR,
    country         VARCHAR,
    marital_status  VARCHAR,
    gender          VARCHAR,
    birthdate       DATE,
    create_date     DATE
);

CREATE TABLE IF NOT EXISTS dim_products (
    product_key    INTEGER NOT NULL,
    product_id     INTEGER,
    product_number VARCHAR,
    product_name   VARCHAR,
    category_id    VARCHAR,
    category       VARCHAR,
    subcategory    VARCHAR,
    maintenance    VARCHAR,
    cost           DOUBLE,
    product_line   VARCHAR,
    start_date     DATE
);

CREATE TABLE IF NOT EXISTS fact_sales (
    order_number  VARCHAR NOT NULL,
    product_key   INTEGER NOT NULL,
    customer_key  INTEGER NOT NULL,
    order_date    DATE,
    shipping_date DATE,
    due_date      DATE,
    sales_amount  DOUBLE,
    quantity      INTEGER,
    price         DOUBLE
);

CREATE TABLE IF NOT EXISTS load_audit_log (
    load_id       VARCHAR NOT NULL,
    table_name    VARCHAR NOT NULL,
    file_path     VARCHAR NOT NULL,
    load_start    TIMESTAMP NOT NULL,
    load_end      TIMESTAMP,
    rows_inserted BIGINT NOT NULL DEFAULT 0,
    status        VARCHAR NOT NULL,
    error_message VARCHAR
);
`

const dropSchemaSQL = `
DROP VIEW IF EXISTS report_customers;
DROP VIEW IF EXISTS report_products;
DROP TABLE IF EXISTS fact_sales;
DROP TABLE IF EXISTS dim_customers;
DROP TABLE IF EXISTS dim_products;
DROP TABLE IF EXISTS load_audit_log;
`

// Snapshot queries are portable between both backends.
const (
	selectCustomersSQL = `
SELECT customer_key,
       COALESCE(customer_id, 0)      AS customer_id,
       COALESCE(customer_number, '') AS customer_number,
       COALESCE(first_name, '')      AS first_name,
       COALESCE(last_name, '')       AS last_name,
       COALESCE(country, '')         AS country,
       COALESCE(marital_status, '')  AS marital_status,
       COALESCE(gender, '')          AS gender,
       birthdate,
       create_date
FROM dim_customers
ORDER BY customer_key`

	selectProductsSQL = `
SELECT product_key,
       COALESCE(product_id, 0)      AS product_id,
       COALESCE(product_number, '') AS product_number,
       COALESCE(product_name, '')   AS product_name,
       COALESCE(category_id, '')    AS category_id,
       COALESCE(category, '')       AS category,
       COALESCE(subcategory, '')    AS subcategory,
       COALESCE(maintenance, '')    AS maintenance,
       COALESCE(cost, 0)            AS cost,
       COALESCE(product_line, '')   AS product_line,
       start_date
FROM dim_products
ORDER BY product_key`

	selectSalesSQL = `
SELECT order_number,
       product_key,
       customer_key,
       order_date,
       shipping_date,
       due_date,
       COALESCE(sales_amount, 0) AS sales_amount,
       COALESCE(quantity, 0)     AS quantity,
       COALESCE(price, 0)        AS price
FROM fact_sales
ORDER BY order_date, order_number, product_key`

	selectAuditColumns = `
SELECT load_id, table_name, file_path, load_start, load_end,
       rows_inserted, status, COALESCE(error_message, '') AS error_message
FROM load_audit_log`
)

// monthsBetween counts calendar month boundaries from a to b, the way the
// report engine does.
func monthsBetween(a, b string) string {
	return fmt.Sprintf(
		"CAST((EXTRACT(YEAR FROM %[2]s) - EXTRACT(YEAR FROM %[1]s)) * 12 + "+
			"(EXTRACT(MONTH FROM %[2]s) - EXTRACT(MONTH FROM %[1]s)) AS INTEGER)", a, b)
}

// customerReportViewSQL renders the customer report view. The CASE
// thresholds come from the segment constants so the view and the engine
// classify identically.
func customerReportViewSQL() string {
	return fmt.Sprintf(`
CREATE OR REPLACE VIEW report_customers AS
WITH base_query AS (
    SELECT f.order_number,
           f.product_key,
           f.order_date,
           f.sales_amount,
           f.quantity,
           f.customer_key,
           c.customer_number,
           CONCAT_WS(' ', c.first_name, c.last_name) AS customer_name,
           c.birthdate
    FROM fact_sales f
    LEFT JOIN dim_customers c ON c.customer_key = f.customer_key
    WHERE f.order_date IS NOT NULL
),
customer_aggregation AS (
    SELECT customer_key,
           customer_number,
           customer_name,
           birthdate,
           COUNT(DISTINCT order_number)              AS total_orders,
           COALESCE(SUM(sales_amount), 0)            AS total_sales,
           CAST(COALESCE(SUM(quantity), 0) AS BIGINT) AS total_quantity,
           COUNT(DISTINCT product_key)               AS total_products,
           MIN(order_date)                           AS first_order_date,
           MAX(order_date)                           AS last_order_date
    FROM base_query
    GROUP BY customer_key, customer_number, customer_name, birthdate
),
customer_metrics AS (
    SELECT *,
           CAST(EXTRACT(YEAR FROM CURRENT_DATE) - EXTRACT(YEAR FROM birthdate) AS INTEGER) AS age,
           %[1]s AS lifespan_months,
           %[2]s AS recency_months
    FROM customer_aggregation
)
SELECT customer_key,
       customer_number,
       customer_name,
       age,
       CASE
           WHEN age IS NULL THEN '%[3]s'
           WHEN age < %[4]d THEN '%[5]s'
           WHEN age < %[6]d THEN '%[7]s'
           WHEN age < %[8]d THEN '%[9]s'
           WHEN age < %[10]d THEN '%[11]s'
           ELSE '%[12]s'
       END AS age_group,
       CASE
           WHEN lifespan_months >= %[13]d AND total_sales > %[14]g THEN '%[15]s'
           WHEN lifespan_months >= %[13]d AND total_sales >= %[16]g THEN '%[17]s'
           WHEN lifespan_months >= %[18]d THEN '%[19]s'
           ELSE '%[20]s'
       END AS customer_segment,
       last_order_date,
       recency_months,
       total_orders,
       total_sales,
       total_quantity,
       total_products,
       lifespan_months,
       CASE WHEN total_orders = 0 THEN 0 ELSE total_sales / total_orders END AS avg_order_value,
       CASE WHEN lifespan_months = 0 THEN total_sales ELSE total_sales / lifespan_months END AS avg_monthly_spend
FROM customer_metrics`,
		monthsBetween("first_order_date", "last_order_date"),
		monthsBetween("last_order_date", "CURRENT_DATE"),
		segment.AgeUnknown,
		segment.AgeTwentyMin, segment.AgeUnder20,
		segment.AgeThirtyMin, segment.Age20s,
		segment.AgeFortyMin, segment.Age30s,
		segment.AgeFiftyMin, segment.Age40s,
		segment.Age50Plus,
		segment.LoyalMinLifespanMonths, segment.VIPMinSales, segment.SegmentVIP,
		segment.LoyalMinSales, segment.SegmentLoyal,
		segment.RegularMinLifespanMonths, segment.SegmentRegular,
		segment.SegmentNew,
	)
}

// productReportViewSQL renders the product report view.
func productReportViewSQL() string {
	return fmt.Sprintf(`
CREATE OR REPLACE VIEW report_products AS
WITH base_query AS (
    SELECT f.order_number,
           f.order_date,
           f.customer_key,
           f.sales_amount,
           f.quantity,
           f.product_key,
           p.product_name,
           p.category,
           p.subcategory,
           p.cost
    FROM fact_sales f
    LEFT JOIN dim_products p ON p.product_key = f.product_key
    WHERE f.order_date IS NOT NULL
),
product_aggregation AS (
    SELECT product_key,
           product_name,
           category,
           subcategory,
           cost,
           %[1]s AS lifespan_months,
           MAX(order_date)                            AS last_sale_date,
           COUNT(DISTINCT order_number)               AS total_orders,
           COUNT(DISTINCT customer_key)               AS total_customers,
           COALESCE(SUM(sales_amount), 0)             AS total_sales,
           CAST(COALESCE(SUM(quantity), 0) AS BIGINT) AS total_quantity,
           AVG(sales_amount / NULLIF(quantity, 0))    AS avg_selling_price
    FROM base_query
    GROUP BY product_key, product_name, category, subcategory, cost
)
SELECT product_key,
       product_name,
       category,
       subcategory,
       cost,
       last_sale_date,
       %[2]s AS recency_months,
       CASE
           WHEN total_sales > %[3]g THEN '%[4]s'
           WHEN total_sales >= %[5]g THEN '%[6]s'
           ELSE '%[7]s'
       END AS revenue_tier,
       CASE
           WHEN total_customers > %[8]d THEN '%[9]s'
           WHEN total_customers >= %[10]d THEN '%[11]s'
           ELSE '%[12]s'
       END AS reach_tier,
       lifespan_months,
       total_orders,
       total_sales,
       total_quantity,
       total_customers,
       avg_selling_price,
       CASE WHEN total_orders = 0 THEN 0 ELSE total_sales / total_orders END AS avg_order_revenue,
       CASE WHEN lifespan_months = 0 THEN total_sales ELSE total_sales / lifespan_months END AS avg_monthly_revenue
FROM product_aggregation`,
		monthsBetween("MIN(order_date)", "MAX(order_date)"),
		monthsBetween("last_sale_date", "CURRENT_DATE"),
		segment.HighPerformerMinSales, segment.TierHighPerformer,
		segment.MidRangeMinSales, segment.TierMidRange,
		segment.TierLowPerformer,
		segment.BroadAppealMinCustomers, segment.ReachBroad,
		segment.ModerateAppealMinCustomers, segment.ReachModerate,
		segment.ReachNiche,
	)
}

// reportViewsSQL returns the view DDL statements in creation order.
func reportViewsSQL() []string {
	return []string{customerReportViewSQL(), productReportViewSQL()}
}
