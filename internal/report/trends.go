package report

import (
	"github.com/pgEdge/pgedge-salesmart/internal/analytics"
	"github.com/pgEdge/pgedge-salesmart/internal/segment"
)

func init() {
	register("monthly-trend",
		"Monthly sales, customers and quantity with month-over-month change",
		buildMonthlyTrend)
	register("cumulative",
		"Monthly sales with year-to-date and overall running totals and a moving average",
		buildCumulative)
	register("product-performance",
		"Yearly product sales against the product's average and its previous year",
		buildProductPerformance)
}

func buildMonthlyTrend(in Input) (*Result, error) {
	rows := analytics.Rollup(in.Facts, analytics.Monthly, analytics.Ungrouped)
	trend := analytics.Trend(analytics.Sales(rows))

	res := &Result{Columns: []string{
		"order_month", "total_sales", "total_customers", "total_quantity",
		"previous_month_sales", "mom_change_pct",
	}}
	for i, r := range rows {
		res.Rows = append(res.Rows, []any{
			r.Bucket, r.Sales, int64(r.Customers), r.Quantity,
			floatValue(trend[i].Previous), floatValue(trend[i].Percent),
		})
	}
	return res, nil
}

func buildCumulative(in Input) (*Result, error) {
	rows := analytics.Rollup(in.Facts, analytics.Monthly, analytics.Ungrouped)
	sales := analytics.Sales(rows)
	running := analytics.RunningTotal(sales)
	moving := analytics.MovingAverage(sales, in.Window)

	// Year-to-date restarts the running total at every January.
	ytd := make([]float64, len(rows))
	var acc float64
	for i, r := range rows {
		if i > 0 && r.Bucket.Year() != rows[i-1].Bucket.Year() {
			acc = 0
		}
		acc += r.Sales
		ytd[i] = acc
	}

	res := &Result{Columns: []string{
		"order_month", "total_sales", "ytd_sales", "running_total_sales", "moving_avg_sales",
	}}
	for i, r := range rows {
		res.Rows = append(res.Rows, []any{
			r.Bucket, r.Sales, ytd[i], running[i], analytics.Round(moving[i], 2),
		})
	}
	return res, nil
}

func buildProductPerformance(in Input) (*Result, error) {
	rows := analytics.Rollup(in.Facts, analytics.Yearly, analytics.ByProduct)

	res := &Result{Columns: []string{
		"order_year", "product_key", "product_name", "current_sales", "avg_sales",
		"diff_avg", "avg_change", "py_sales", "diff_py", "py_change",
	}}
	for _, part := range analytics.Partition(rows) {
		sales := analytics.Sales(part)
		avg := analytics.Average(sales)
		trend := analytics.Trend(sales)

		for i, r := range part {
			var diffPY any
			if trend[i].Delta != nil {
				diffPY = *trend[i].Delta
			}
			res.Rows = append(res.Rows, []any{
				int64(r.Bucket.Year()), r.Group.Key, displayLabel(r.Group.Label),
				r.Sales, analytics.Round(avg, 2), analytics.Round(r.Sales-avg, 2),
				segment.VersusAverage(r.Sales, avg),
				floatValue(trend[i].Previous), diffPY,
				segment.Direction(r.Sales, trend[i].Previous),
			})
		}
	}
	return res, nil
}
