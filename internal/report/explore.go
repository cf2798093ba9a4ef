package report

import (
	"cmp"
	"slices"
	"time"

	"github.com/pgEdge/pgedge-salesmart/internal/analytics"
)

func init() {
	register("key-metrics",
		"Headline totals: sales, quantity, average price, orders, products, customers",
		buildKeyMetrics)
	register("date-range",
		"First and last order dates and the customer birthdate range",
		buildDateRange)
	register("country-magnitude",
		"Customers, orders and sales per country, ranked by sales",
		buildCountryMagnitude)
	register("category-magnitude",
		"Products, average cost and revenue per category, ranked by revenue",
		buildCategoryMagnitude)
}

func buildKeyMetrics(in Input) (*Result, error) {
	total := analytics.Rollup(in.Facts, analytics.Total, analytics.Ungrouped)

	var (
		sales    float64
		quantity int64
		orders   int
		buyers   int
	)
	if len(total) == 1 {
		sales, quantity = total[0].Sales, total[0].Quantity
		orders, buyers = total[0].Orders, total[0].Customers
	}

	prices := make([]float64, len(in.Facts))
	for i, f := range in.Facts {
		prices[i] = f.Price
	}

	return &Result{
		Columns: []string{"measure_name", "measure_value"},
		Rows: [][]any{
			{"Total Sales", sales},
			{"Total Quantity", quantity},
			{"Average Price", analytics.Round(analytics.Average(prices), 2)},
			{"Total Orders", int64(orders)},
			{"Total Products", int64(len(in.Snapshot.Products))},
			{"Total Customers", int64(len(in.Snapshot.Customers))},
			{"Customers with Orders", int64(buyers)},
		},
	}, nil
}

func buildDateRange(in Input) (*Result, error) {
	var first, last, oldest, youngest *time.Time
	for _, f := range in.Facts {
		if f.OrderDate == nil {
			continue
		}
		if first == nil || f.OrderDate.Before(*first) {
			first = f.OrderDate
		}
		if last == nil || f.OrderDate.After(*last) {
			last = f.OrderDate
		}
	}
	for _, c := range in.Snapshot.Customers {
		if c.Birthdate == nil {
			continue
		}
		if oldest == nil || c.Birthdate.Before(*oldest) {
			oldest = c.Birthdate
		}
		if youngest == nil || c.Birthdate.After(*youngest) {
			youngest = c.Birthdate
		}
	}

	var rangeMonths, oldestAge, youngestAge any
	if first != nil {
		rangeMonths = int64(analytics.MonthsBetween(*first, *last))
	}
	if oldest != nil {
		oldestAge = int64(analytics.YearsBetween(*oldest, in.AsOf))
		youngestAge = int64(analytics.YearsBetween(*youngest, in.AsOf))
	}

	return &Result{
		Columns: []string{
			"first_order_date", "last_order_date", "order_range_months",
			"oldest_birthdate", "oldest_age", "youngest_birthdate", "youngest_age",
		},
		Rows: [][]any{{
			dateValue(first), dateValue(last), rangeMonths,
			dateValue(oldest), oldestAge, dateValue(youngest), youngestAge,
		}},
	}, nil
}

type magnitude struct {
	label   string
	members int64
	orders  int64
	buyers  int64
	sales   float64
	cost    float64
}

func rankMagnitudes(ms []*magnitude) []int {
	slices.SortStableFunc(ms, func(a, b *magnitude) int {
		return cmp.Or(cmp.Compare(b.sales, a.sales), cmp.Compare(a.label, b.label))
	})
	sales := make([]float64, len(ms))
	for i, m := range ms {
		sales[i] = m.sales
	}
	return analytics.Rank(sales)
}

func buildCountryMagnitude(in Input) (*Result, error) {
	byCountry := make(map[string]*magnitude)
	get := func(country string) *magnitude {
		m, ok := byCountry[country]
		if !ok {
			m = &magnitude{label: country}
			byCountry[country] = m
		}
		return m
	}

	for _, c := range in.Snapshot.Customers {
		get(c.Country).members++
	}
	for _, r := range analytics.Rollup(in.Facts, analytics.Total, analytics.ByCountry) {
		m := get(r.Group.Label)
		m.orders = int64(r.Orders)
		m.buyers = int64(r.Customers)
		m.sales = r.Sales
	}

	ms := make([]*magnitude, 0, len(byCountry))
	for _, m := range byCountry {
		ms = append(ms, m)
	}
	ranks := rankMagnitudes(ms)

	res := &Result{Columns: []string{
		"sales_rank", "country", "total_customers", "customers_with_orders", "total_orders", "total_sales",
	}}
	for i, m := range ms {
		res.Rows = append(res.Rows, []any{
			int64(ranks[i]), displayLabel(m.label), m.members, m.buyers, m.orders, m.sales,
		})
	}
	return res, nil
}

func buildCategoryMagnitude(in Input) (*Result, error) {
	byCategory := make(map[string]*magnitude)
	get := func(category string) *magnitude {
		m, ok := byCategory[category]
		if !ok {
			m = &magnitude{label: category}
			byCategory[category] = m
		}
		return m
	}

	for _, p := range in.Snapshot.Products {
		m := get(p.Category)
		m.members++
		m.cost += p.Cost
	}
	for _, r := range analytics.Rollup(in.Facts, analytics.Total, analytics.ByCategory) {
		m := get(r.Group.Label)
		m.orders = int64(r.Orders)
		m.sales = r.Sales
	}

	ms := make([]*magnitude, 0, len(byCategory))
	for _, m := range byCategory {
		ms = append(ms, m)
	}
	ranks := rankMagnitudes(ms)

	res := &Result{Columns: []string{
		"revenue_rank", "category", "total_products", "avg_cost", "total_orders", "total_revenue",
	}}
	for i, m := range ms {
		res.Rows = append(res.Rows, []any{
			int64(ranks[i]), displayLabel(m.label), m.members,
			analytics.Round(analytics.SafeDiv(m.cost, float64(m.members)), 2),
			m.orders, m.sales,
		})
	}
	return res, nil
}

// displayLabel shows missing dimension values as n/a.
func displayLabel(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
