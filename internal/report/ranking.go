package report

import (
	"cmp"
	"slices"

	"github.com/pgEdge/pgedge-salesmart/internal/analytics"
)

// DefaultTopN bounds ranking reports when no limit is configured.
const DefaultTopN = 5

func init() {
	register("top-products",
		"Highest revenue products, competition ranked",
		func(in Input) (*Result, error) { return buildProductRanking(in, true) })
	register("bottom-products",
		"Lowest revenue products, competition ranked from the bottom",
		func(in Input) (*Result, error) { return buildProductRanking(in, false) })
	register("top-customers",
		"Highest revenue customers, competition ranked",
		buildCustomerRanking)
}

// ranked orders rows by sales (descending when top) and keeps every row
// whose competition rank is within n, so ties at the cutoff are kept.
func ranked(rows []analytics.Row, n int, top bool) ([]analytics.Row, []int) {
	rows = slices.Clone(rows)
	slices.SortStableFunc(rows, func(a, b analytics.Row) int {
		c := cmp.Compare(b.Sales, a.Sales)
		if !top {
			c = -c
		}
		return cmp.Or(c, cmp.Compare(a.Group.Key, b.Group.Key))
	})

	values := make([]float64, len(rows))
	for i, r := range rows {
		values[i] = r.Sales
		if !top {
			values[i] = -r.Sales
		}
	}
	ranks := analytics.Rank(values)

	cut := len(rows)
	for i, rk := range ranks {
		if rk > n {
			cut = i
			break
		}
	}
	return rows[:cut], ranks[:cut]
}

func buildProductRanking(in Input, top bool) (*Result, error) {
	category := make(map[int64]string, len(in.Snapshot.Products))
	for _, p := range in.Snapshot.Products {
		category[p.Key] = p.Category
	}

	rows, ranks := ranked(analytics.Rollup(in.Facts, analytics.Total, analytics.ByProduct), in.TopN, top)
	res := &Result{Columns: []string{"rank", "product_key", "product_name", "category", "total_orders", "total_revenue"}}
	for i, r := range rows {
		res.Rows = append(res.Rows, []any{
			int64(ranks[i]), r.Group.Key, displayLabel(r.Group.Label),
			displayLabel(category[r.Group.Key]), int64(r.Orders), r.Sales,
		})
	}
	return res, nil
}

func buildCustomerRanking(in Input) (*Result, error) {
	rows, ranks := ranked(analytics.Rollup(in.Facts, analytics.Total, analytics.ByCustomer), in.TopN, true)
	res := &Result{Columns: []string{"rank", "customer_key", "customer_name", "total_orders", "total_revenue"}}
	for i, r := range rows {
		res.Rows = append(res.Rows, []any{
			int64(ranks[i]), r.Group.Key, displayLabel(r.Group.Label), int64(r.Orders), r.Sales,
		})
	}
	return res, nil
}
