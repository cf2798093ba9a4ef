package datagen

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pgEdge/pgedge-salesmart/internal/logging"
	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

// Config sizes a generated data set.
type Config struct {
	Customers int
	Products  int
	Orders    int
	Seed      uint64

	// Orders are dated between Start and End.
	Start time.Time
	End   time.Time

	// ProgressInterval is how often to log progress, in rows.
	ProgressInterval int64
}

// DefaultConfig returns the default data set size.
func DefaultConfig() Config {
	return Config{
		Customers:        1000,
		Products:         150,
		Orders:           8000,
		Start:            time.Date(2010, 12, 29, 0, 0, 0, 0, time.UTC),
		End:              time.Date(2014, 1, 28, 0, 0, 0, 0, time.UTC),
		ProgressInterval: 10000,
	}
}

// Summary reports what Generate wrote.
type Summary struct {
	Files     map[warehouse.Table]string
	Rows      map[warehouse.Table]int64
	Repeated  int64 // fact lines sharing an order number with an earlier line
	Generated time.Time
}

type category struct {
	id            string
	name          string
	subcategories []string
	minCost       float64
	maxCost       float64
	weight        int
}

var categories = []category{
	{"BI", "Bikes", []string{"Road Bikes", "Mountain Bikes", "Touring Bikes"}, 300, 2200, 15},
	{"CO", "Components", []string{"Handlebars", "Wheels", "Brakes", "Chains", "Saddles"}, 10, 700, 35},
	{"CL", "Clothing", []string{"Jerseys", "Shorts", "Gloves", "Caps", "Socks"}, 3, 50, 25},
	{"AC", "Accessories", []string{"Helmets", "Bottles and Cages", "Tires and Tubes", "Locks"}, 1, 45, 25},
}

var (
	countries      = []string{"United States", "Australia", "United Kingdom", "Germany", "France", "Canada", ""}
	countryWeights = []int{30, 20, 12, 11, 10, 15, 2}
	productLines   = []string{"R", "M", "T", "S", ""}
)

// Generate writes dim_customers.csv, dim_products.csv and fact_sales.csv to
// dir in the column order of the warehouse tables.
func Generate(ctx context.Context, dir string, cfg Config) (*Summary, error) {
	if cfg.Customers < 1 || cfg.Products < 1 || cfg.Orders < 1 {
		return nil, fmt.Errorf("customers, products and orders must be positive")
	}
	if !cfg.End.After(cfg.Start) {
		return nil, fmt.Errorf("end date must be after start date")
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultConfig().ProgressInterval
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	f := NewFaker()
	if cfg.Seed != 0 {
		f = NewFakerWithSeed(cfg.Seed)
	}

	g := &generator{faker: f, cfg: cfg, dir: dir}
	sum := &Summary{
		Files:     make(map[warehouse.Table]string),
		Rows:      make(map[warehouse.Table]int64),
		Generated: time.Now(),
	}

	steps := []struct {
		table warehouse.Table
		write func(ctx context.Context, w *csv.Writer, p *ProgressReporter) error
	}{
		{warehouse.Customers, g.writeCustomers},
		{warehouse.Products, g.writeProducts},
		{warehouse.Sales, g.writeSales},
	}
	for _, step := range steps {
		path, rows, err := g.writeTable(ctx, step.table, step.write)
		if err != nil {
			return nil, err
		}
		sum.Files[step.table] = path
		sum.Rows[step.table] = rows
	}
	sum.Repeated = g.repeated

	logging.Info().
		Str("dir", dir).
		Int64("customers", sum.Rows[warehouse.Customers]).
		Int64("products", sum.Rows[warehouse.Products]).
		Int64("sales", sum.Rows[warehouse.Sales]).
		Msg("Data generation complete")
	return sum, nil
}

type generator struct {
	faker *Faker
	cfg   Config
	dir   string

	productCosts []float64
	repeated     int64
}

func (g *generator) writeTable(ctx context.Context, table warehouse.Table,
	write func(ctx context.Context, w *csv.Writer, p *ProgressReporter) error) (string, int64, error) {
	path := filepath.Join(g.dir, string(table)+".csv")
	file, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(table.ColumnNames()); err != nil {
		return "", 0, err
	}

	p := NewProgressReporter(string(table), g.expected(table), g.cfg.ProgressInterval)
	if err := write(ctx, w, p); err != nil {
		return "", 0, fmt.Errorf("failed to generate %s: %w", table, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to close %s: %w", path, err)
	}
	p.Done()
	return path, p.Rows(), nil
}

func (g *generator) expected(table warehouse.Table) int64 {
	switch table {
	case warehouse.Customers:
		return int64(g.cfg.Customers)
	case warehouse.Products:
		return int64(g.cfg.Products)
	default:
		return int64(g.cfg.Orders) * 2
	}
}

func date(t time.Time) string {
	return t.Format(time.DateOnly)
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func (g *generator) writeCustomers(ctx context.Context, w *csv.Writer, p *ProgressReporter) error {
	f := g.faker
	for i := 1; i <= g.cfg.Customers; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		birthdate := ""
		if !f.Chance(0.02) {
			birthdate = date(f.Date(time.Date(1935, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2005, 12, 31, 0, 0, 0, 0, time.UTC)))
		}
		gender := ChooseWeighted(f, []string{"Male", "Female", "n/a"}, []int{49, 49, 2})

		err := w.Write([]string{
			strconv.Itoa(i),
			strconv.Itoa(11000 + i - 1),
			fmt.Sprintf("AW%08d", 11000+i-1),
			f.FirstName(),
			f.LastName(),
			ChooseWeighted(f, countries, countryWeights),
			Choose(f, []string{"M", "S"}),
			gender,
			birthdate,
			date(f.Date(g.cfg.Start, g.cfg.End)),
		})
		if err != nil {
			return err
		}
		p.Update(1)
	}
	return nil
}

func (g *generator) writeProducts(ctx context.Context, w *csv.Writer, p *ProgressReporter) error {
	f := g.faker
	weights := make([]int, len(categories))
	for i, c := range categories {
		weights[i] = c.weight
	}

	g.productCosts = make([]float64, g.cfg.Products)
	for i := 1; i <= g.cfg.Products; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		c := ChooseWeighted(f, categories, weights)
		sub := Choose(f, c.subcategories)
		cost := f.Price(c.minCost, c.maxCost)
		g.productCosts[i-1] = cost

		maintenance := "No"
		if c.name == "Bikes" || c.name == "Components" {
			maintenance = "Yes"
		}

		err := w.Write([]string{
			strconv.Itoa(i),
			strconv.Itoa(200 + i),
			fmt.Sprintf("%s-%s-%s", c.id, f.Letters(4), f.Digits(2)),
			fmt.Sprintf("%s %s %s", f.Adjective(), f.Color(), sub),
			fmt.Sprintf("%s_%s", c.id, sub[:2]),
			c.name,
			sub,
			maintenance,
			money(cost),
			Choose(f, productLines),
			date(f.Date(g.cfg.Start.AddDate(-1, 0, 0), g.cfg.Start)),
		})
		if err != nil {
			return err
		}
		p.Update(1)
	}
	return nil
}

// writeSales writes 1-3 lines per order, each for a distinct product, all
// sharing the order number.
func (g *generator) writeSales(ctx context.Context, w *csv.Writer, p *ProgressReporter) error {
	f := g.faker
	for i := 0; i < g.cfg.Orders; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		order := fmt.Sprintf("SO%d", 43697+i)
		customer := f.Int(1, g.cfg.Customers)

		var orderDate, shipDate, dueDate string
		if !f.Chance(0.005) {
			od := f.Date(g.cfg.Start, g.cfg.End)
			orderDate = date(od)
			shipDate = date(od.AddDate(0, 0, 7))
			dueDate = date(od.AddDate(0, 0, 12))
		}

		lines := min(f.Int(1, 3), g.cfg.Products)
		used := make(map[int]bool, lines)
		for l := 0; l < lines; l++ {
			product := f.Int(1, g.cfg.Products)
			for used[product] {
				product = product%g.cfg.Products + 1
			}
			used[product] = true

			qty := ChooseWeighted(f, []int{1, 2, 3}, []int{85, 10, 5})
			price := float64(int(g.productCosts[product-1]*1.6 + 0.5))
			if price < 1 {
				price = 1
			}

			err := w.Write([]string{
				order,
				strconv.Itoa(product),
				strconv.Itoa(customer),
				orderDate,
				shipDate,
				dueDate,
				money(price * float64(qty)),
				strconv.Itoa(qty),
				money(price),
			})
			if err != nil {
				return err
			}
			if l > 0 {
				g.repeated++
			}
			p.Update(1)
		}
	}
	return nil
}
