package report

import (
	"github.com/pgEdge/pgedge-salesmart/internal/analytics"
	"github.com/pgEdge/pgedge-salesmart/internal/segment"
	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

// CustomersReport is the customer report name.
const CustomersReport = "customers"

// CustomerRecord is one row of the customer report.
type CustomerRecord struct {
	CustomerKey     int64   `json:"customer_key" parquet:"customer_key"`
	CustomerNumber  string  `json:"customer_number" parquet:"customer_number"`
	CustomerName    string  `json:"customer_name" parquet:"customer_name"`
	Age             *int64  `json:"age" parquet:"age,optional"`
	AgeGroup        string  `json:"age_group" parquet:"age_group"`
	CustomerSegment string  `json:"customer_segment" parquet:"customer_segment"`
	LastOrderDate   string  `json:"last_order_date" parquet:"last_order_date"`
	RecencyMonths   int64   `json:"recency_months" parquet:"recency_months"`
	TotalOrders     int64   `json:"total_orders" parquet:"total_orders"`
	TotalSales      float64 `json:"total_sales" parquet:"total_sales"`
	TotalQuantity   int64   `json:"total_quantity" parquet:"total_quantity"`
	TotalProducts   int64   `json:"total_products" parquet:"total_products"`
	LifespanMonths  int64   `json:"lifespan_months" parquet:"lifespan_months"`
	AvgOrderValue   float64 `json:"avg_order_value" parquet:"avg_order_value"`
	AvgMonthlySpend float64 `json:"avg_monthly_spend" parquet:"avg_monthly_spend"`
}

var customerColumns = []string{
	"customer_key", "customer_number", "customer_name", "age", "age_group",
	"customer_segment", "last_order_date", "recency_months", "total_orders",
	"total_sales", "total_quantity", "total_products", "lifespan_months",
	"avg_order_value", "avg_monthly_spend",
}

func init() {
	register(CustomersReport,
		"One row per customer with sales: tenure, recency, spend and segment",
		buildCustomers)
}

// CustomerRecords computes the customer report rows. Only dated sales
// count, the same filter the persisted view applies.
func CustomerRecords(in Input) []CustomerRecord {
	dims := make(map[int64]warehouse.Customer, len(in.Snapshot.Customers))
	for _, c := range in.Snapshot.Customers {
		dims[c.Key] = c
	}

	rows := analytics.Rollup(analytics.Dated(in.Facts), analytics.Total, analytics.ByCustomer)
	records := make([]CustomerRecord, 0, len(rows))
	for _, r := range rows {
		c := dims[r.Group.Key]

		var age *int
		if c.Birthdate != nil {
			years := analytics.YearsBetween(*c.Birthdate, in.AsOf)
			age = &years
		}

		lifespan := analytics.MonthsBetween(*r.First, *r.Last)
		rec := CustomerRecord{
			CustomerKey:     r.Group.Key,
			CustomerNumber:  c.Number,
			CustomerName:    c.Name(),
			AgeGroup:        segment.AgeGroup(age),
			CustomerSegment: segment.CustomerSegment(lifespan, r.Sales),
			LastOrderDate:   dateString(r.Last),
			RecencyMonths:   int64(analytics.MonthsBetween(*r.Last, in.AsOf)),
			TotalOrders:     int64(r.Orders),
			TotalSales:      r.Sales,
			TotalQuantity:   r.Quantity,
			TotalProducts:   int64(r.Products),
			LifespanMonths:  int64(lifespan),
			AvgOrderValue:   analytics.SafeDiv(r.Sales, float64(r.Orders)),
			AvgMonthlySpend: r.Sales,
		}
		if age != nil {
			a := int64(*age)
			rec.Age = &a
		}
		if lifespan != 0 {
			rec.AvgMonthlySpend = r.Sales / float64(lifespan)
		}
		records = append(records, rec)
	}
	return records
}

func buildCustomers(in Input) (*Result, error) {
	records := CustomerRecords(in)
	res := &Result{Columns: customerColumns, Records: records}
	for _, r := range records {
		var age any
		if r.Age != nil {
			age = *r.Age
		}
		res.Rows = append(res.Rows, []any{
			r.CustomerKey, r.CustomerNumber, r.CustomerName, age, r.AgeGroup,
			r.CustomerSegment, r.LastOrderDate, r.RecencyMonths, r.TotalOrders,
			r.TotalSales, r.TotalQuantity, r.TotalProducts, r.LifespanMonths,
			r.AvgOrderValue, r.AvgMonthlySpend,
		})
	}
	return res, nil
}
