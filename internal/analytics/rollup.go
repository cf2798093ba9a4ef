package analytics

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// Granularity is the time bucket of a rollup.
type Granularity int

const (
	// Total collapses all dates into one bucket.
	Total Granularity = iota
	Monthly
	Yearly
)

func (g Granularity) String() string {
	switch g {
	case Total:
		return "total"
	case Monthly:
		return "month"
	case Yearly:
		return "year"
	default:
		return fmt.Sprintf("granularity(%d)", int(g))
	}
}

// Truncate returns the start of the bucket holding t.
// Total maps every date to the zero time.
func (g Granularity) Truncate(t time.Time) time.Time {
	switch g {
	case Monthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case Yearly:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Time{}
	}
}

// Dimension is the grouping key of a rollup.
type Dimension int

const (
	Ungrouped Dimension = iota
	ByCustomer
	ByProduct
	ByCategory
	ByCountry
)

func (d Dimension) String() string {
	switch d {
	case Ungrouped:
		return "none"
	case ByCustomer:
		return "customer"
	case ByProduct:
		return "product"
	case ByCategory:
		return "category"
	case ByCountry:
		return "country"
	default:
		return fmt.Sprintf("dimension(%d)", int(d))
	}
}

// Group identifies a rollup group. Key is set for customer and product
// groups, Label for category and country groups.
type Group struct {
	Key   int64
	Label string
}

func (d Dimension) group(f Fact) Group {
	switch d {
	case ByCustomer:
		return Group{Key: f.CustomerKey, Label: f.CustomerName}
	case ByProduct:
		return Group{Key: f.ProductKey, Label: f.ProductName}
	case ByCategory:
		return Group{Label: f.Category}
	case ByCountry:
		return Group{Label: f.Country}
	default:
		return Group{}
	}
}

// Row is one (bucket, group) aggregate.
type Row struct {
	Bucket time.Time
	Group  Group

	Sales     float64
	Quantity  int64
	Orders    int
	Customers int
	Products  int

	// First and Last are the earliest and latest order dates seen; nil when
	// no fact in the row carried a date.
	First *time.Time
	Last  *time.Time

	// UnitPriceSum and UnitPriceLines accumulate sales_amount/quantity over
	// lines with a non-zero quantity.
	UnitPriceSum   float64
	UnitPriceLines int
}

// AvgUnitPrice is the mean per-line unit price, nil when no line had a quantity.
func (r Row) AvgUnitPrice() *float64 {
	if r.UnitPriceLines == 0 {
		return nil
	}
	v := r.UnitPriceSum / float64(r.UnitPriceLines)
	return &v
}

type rollupKey struct {
	bucket time.Time
	group  Group
}

type accumulator struct {
	row       Row
	orders    map[string]struct{}
	customers map[int64]struct{}
	products  map[int64]struct{}
}

// Rollup groups facts by time bucket and dimension and sums sales and
// quantity, counting distinct orders, customers and products. Time
// granularities skip facts without an order date. Rows are sorted by group,
// then bucket.
func Rollup(facts []Fact, g Granularity, d Dimension) []Row {
	accs := make(map[rollupKey]*accumulator)
	var order []rollupKey

	for _, f := range facts {
		var bucket time.Time
		if g != Total {
			if f.OrderDate == nil {
				continue
			}
			bucket = g.Truncate(*f.OrderDate)
		}

		k := rollupKey{bucket: bucket, group: d.group(f)}
		acc, ok := accs[k]
		if !ok {
			acc = &accumulator{
				row:       Row{Bucket: bucket, Group: k.group},
				orders:    make(map[string]struct{}),
				customers: make(map[int64]struct{}),
				products:  make(map[int64]struct{}),
			}
			accs[k] = acc
			order = append(order, k)
		}

		acc.row.Sales += f.SalesAmount
		acc.row.Quantity += f.Quantity
		acc.orders[f.OrderNumber] = struct{}{}
		acc.customers[f.CustomerKey] = struct{}{}
		acc.products[f.ProductKey] = struct{}{}
		if f.Quantity != 0 {
			acc.row.UnitPriceSum += f.SalesAmount / float64(f.Quantity)
			acc.row.UnitPriceLines++
		}
		if f.OrderDate != nil {
			if acc.row.First == nil || f.OrderDate.Before(*acc.row.First) {
				acc.row.First = f.OrderDate
			}
			if acc.row.Last == nil || f.OrderDate.After(*acc.row.Last) {
				acc.row.Last = f.OrderDate
			}
		}
	}

	rows := make([]Row, 0, len(order))
	for _, k := range order {
		acc := accs[k]
		acc.row.Orders = len(acc.orders)
		acc.row.Customers = len(acc.customers)
		acc.row.Products = len(acc.products)
		rows = append(rows, acc.row)
	}

	slices.SortStableFunc(rows, func(a, b Row) int {
		return cmp.Or(
			cmp.Compare(a.Group.Key, b.Group.Key),
			cmp.Compare(a.Group.Label, b.Group.Label),
			a.Bucket.Compare(b.Bucket),
		)
	})
	return rows
}

// Partition splits group-sorted rows into one run per group.
func Partition(rows []Row) [][]Row {
	var parts [][]Row
	start := 0
	for i := 1; i <= len(rows); i++ {
		if i == len(rows) || rows[i].Group != rows[start].Group {
			parts = append(parts, rows[start:i])
			start = i
		}
	}
	return parts
}

// Sales extracts the sales column.
func Sales(rows []Row) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Sales
	}
	return out
}

// Totals sums sales and quantity across rows. Distinct counts do not add up
// across rows and are not returned.
func Totals(rows []Row) (sales float64, quantity int64) {
	for _, r := range rows {
		sales += r.Sales
		quantity += r.Quantity
	}
	return sales, quantity
}
