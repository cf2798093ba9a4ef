package report

import (
	"github.com/pgEdge/pgedge-salesmart/internal/analytics"
	"github.com/pgEdge/pgedge-salesmart/internal/segment"
	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

// ProductsReport is the product report name.
const ProductsReport = "products"

// ProductRecord is one row of the product report.
type ProductRecord struct {
	ProductKey        int64    `json:"product_key" parquet:"product_key"`
	ProductName       string   `json:"product_name" parquet:"product_name"`
	Category          string   `json:"category" parquet:"category"`
	Subcategory       string   `json:"subcategory" parquet:"subcategory"`
	Cost              float64  `json:"cost" parquet:"cost"`
	LastSaleDate      string   `json:"last_sale_date" parquet:"last_sale_date"`
	RecencyMonths     int64    `json:"recency_months" parquet:"recency_months"`
	RevenueTier       string   `json:"revenue_tier" parquet:"revenue_tier"`
	ReachTier         string   `json:"reach_tier" parquet:"reach_tier"`
	LifespanMonths    int64    `json:"lifespan_months" parquet:"lifespan_months"`
	TotalOrders       int64    `json:"total_orders" parquet:"total_orders"`
	TotalSales        float64  `json:"total_sales" parquet:"total_sales"`
	TotalQuantity     int64    `json:"total_quantity" parquet:"total_quantity"`
	TotalCustomers    int64    `json:"total_customers" parquet:"total_customers"`
	AvgSellingPrice   *float64 `json:"avg_selling_price" parquet:"avg_selling_price,optional"`
	AvgOrderRevenue   float64  `json:"avg_order_revenue" parquet:"avg_order_revenue"`
	AvgMonthlyRevenue float64  `json:"avg_monthly_revenue" parquet:"avg_monthly_revenue"`
}

var productColumns = []string{
	"product_key", "product_name", "category", "subcategory", "cost",
	"last_sale_date", "recency_months", "revenue_tier", "reach_tier",
	"lifespan_months", "total_orders", "total_sales", "total_quantity",
	"total_customers", "avg_selling_price", "avg_order_revenue", "avg_monthly_revenue",
}

func init() {
	register(ProductsReport,
		"One row per product with sales: lifespan, recency, revenue and reach tiers",
		buildProducts)
}

// ProductRecords computes the product report rows from dated sales.
func ProductRecords(in Input) []ProductRecord {
	dims := make(map[int64]warehouse.Product, len(in.Snapshot.Products))
	for _, p := range in.Snapshot.Products {
		dims[p.Key] = p
	}

	rows := analytics.Rollup(analytics.Dated(in.Facts), analytics.Total, analytics.ByProduct)
	records := make([]ProductRecord, 0, len(rows))
	for _, r := range rows {
		p := dims[r.Group.Key]
		lifespan := analytics.MonthsBetween(*r.First, *r.Last)

		rec := ProductRecord{
			ProductKey:        r.Group.Key,
			ProductName:       p.Name,
			Category:          p.Category,
			Subcategory:       p.Subcategory,
			Cost:              p.Cost,
			LastSaleDate:      dateString(r.Last),
			RecencyMonths:     int64(analytics.MonthsBetween(*r.Last, in.AsOf)),
			RevenueTier:       segment.RevenueTier(r.Sales),
			ReachTier:         segment.ReachTier(r.Customers),
			LifespanMonths:    int64(lifespan),
			TotalOrders:       int64(r.Orders),
			TotalSales:        r.Sales,
			TotalQuantity:     r.Quantity,
			TotalCustomers:    int64(r.Customers),
			AvgSellingPrice:   r.AvgUnitPrice(),
			AvgOrderRevenue:   analytics.SafeDiv(r.Sales, float64(r.Orders)),
			AvgMonthlyRevenue: r.Sales,
		}
		if lifespan != 0 {
			rec.AvgMonthlyRevenue = r.Sales / float64(lifespan)
		}
		records = append(records, rec)
	}
	return records
}

func buildProducts(in Input) (*Result, error) {
	records := ProductRecords(in)
	res := &Result{Columns: productColumns, Records: records}
	for _, r := range records {
		res.Rows = append(res.Rows, []any{
			r.ProductKey, r.ProductName, r.Category, r.Subcategory, r.Cost,
			r.LastSaleDate, r.RecencyMonths, r.RevenueTier, r.ReachTier,
			r.LifespanMonths, r.TotalOrders, r.TotalSales, r.TotalQuantity,
			r.TotalCustomers, floatValue(r.AvgSellingPrice), r.AvgOrderRevenue,
			r.AvgMonthlyRevenue,
		})
	}
	return res, nil
}
