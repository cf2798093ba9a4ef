//-------------------------------------------------------------------------
//
// pgEdge Sales Mart
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package analytics computes grouped sales metrics and window-style
// sequence operations over a warehouse snapshot. Every function is pure.
package analytics

import (
	"time"

	"github.com/pgEdge/pgedge-salesmart/internal/warehouse"
)

// Fact is a sale joined to its customer and product.
// Dimension fields are zero when the referenced row is missing.
type Fact struct {
	warehouse.Sale

	CustomerNumber string
	CustomerName   string
	Country        string
	Birthdate      *time.Time

	ProductName string
	Category    string
	Subcategory string
	Cost        float64
}

// Join left-joins every sale to its dimensions, preserving sale order.
func Join(snap *warehouse.Snapshot) []Fact {
	customers := make(map[int64]*warehouse.Customer, len(snap.Customers))
	for i := range snap.Customers {
		customers[snap.Customers[i].Key] = &snap.Customers[i]
	}
	products := make(map[int64]*warehouse.Product, len(snap.Products))
	for i := range snap.Products {
		products[snap.Products[i].Key] = &snap.Products[i]
	}

	facts := make([]Fact, len(snap.Sales))
	for i, s := range snap.Sales {
		f := Fact{Sale: s}
		if c, ok := customers[s.CustomerKey]; ok {
			f.CustomerNumber = c.Number
			f.CustomerName = c.Name()
			f.Country = c.Country
			f.Birthdate = c.Birthdate
		}
		if p, ok := products[s.ProductKey]; ok {
			f.ProductName = p.Name
			f.Category = p.Category
			f.Subcategory = p.Subcategory
			f.Cost = p.Cost
		}
		facts[i] = f
	}
	return facts
}

// Dated returns the facts that carry an order date.
func Dated(facts []Fact) []Fact {
	out := make([]Fact, 0, len(facts))
	for _, f := range facts {
		if f.OrderDate != nil {
			out = append(out, f)
		}
	}
	return out
}

// Filter returns the facts matching keep.
func Filter(facts []Fact, keep func(Fact) bool) []Fact {
	var out []Fact
	for _, f := range facts {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}
