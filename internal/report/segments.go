package report

import (
	"cmp"
	"slices"

	"github.com/pgEdge/pgedge-salesmart/internal/analytics"
	"github.com/pgEdge/pgedge-salesmart/internal/segment"
)

func init() {
	register("cost-segments",
		"Product counts per cost range",
		buildCostSegments)
	register("customer-segments",
		"Customer counts per spending segment",
		buildCustomerSegments)
	register("category-contribution",
		"Yearly category sales, share of the year's total and contribution tag",
		buildCategoryContribution)
}

// countByLabel counts labels, listing every label of the cascade, largest
// count first and cascade order on ties.
func countByLabel(labels []string, values []string) [][]any {
	counts := make(map[string]int64, len(labels))
	for _, v := range values {
		counts[v]++
	}
	order := slices.Clone(labels)
	slices.SortStableFunc(order, func(a, b string) int {
		return cmp.Compare(counts[b], counts[a])
	})

	rows := make([][]any, 0, len(order))
	for _, l := range order {
		rows = append(rows, []any{l, counts[l]})
	}
	return rows
}

func buildCostSegments(in Input) (*Result, error) {
	ranges := make([]string, len(in.Snapshot.Products))
	for i, p := range in.Snapshot.Products {
		ranges[i] = segment.CostRange(p.Cost)
	}
	return &Result{
		Columns: []string{"cost_range", "total_products"},
		Rows:    countByLabel(segment.CostRanges.Labels(), ranges),
	}, nil
}

func buildCustomerSegments(in Input) (*Result, error) {
	records := CustomerRecords(in)
	segments := make([]string, len(records))
	for i, r := range records {
		segments[i] = r.CustomerSegment
	}
	return &Result{
		Columns: []string{"customer_segment", "total_customers"},
		Rows:    countByLabel(segment.CustomerSegments.Labels(), segments),
	}, nil
}

func buildCategoryContribution(in Input) (*Result, error) {
	rows := analytics.Rollup(in.Facts, analytics.Yearly, analytics.ByCategory)

	// Regroup by year: the partition is the year, not the category.
	slices.SortStableFunc(rows, func(a, b analytics.Row) int {
		return cmp.Or(a.Bucket.Compare(b.Bucket), cmp.Compare(b.Sales, a.Sales))
	})

	res := &Result{Columns: []string{
		"order_year", "category", "total_sales", "year_total_sales", "pct_of_year", "contribution_tag",
	}}
	for start := 0; start < len(rows); {
		end := start
		for end < len(rows) && rows[end].Bucket.Equal(rows[start].Bucket) {
			end++
		}
		year := rows[start:end]
		sales := analytics.Sales(year)
		total, _ := analytics.Totals(year)
		shares := analytics.Contribution(sales)

		for i, r := range year {
			var pct float64
			if shares[i] != nil {
				pct = *shares[i]
			}
			res.Rows = append(res.Rows, []any{
				int64(r.Bucket.Year()), displayLabel(r.Group.Label), r.Sales, total,
				floatValue(shares[i]), segment.ContributionTag(pct),
			})
		}
		start = end
	}
	return res, nil
}
