//-------------------------------------------------------------------------
//
// pgEdge Sales Mart
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package segment maps aggregated metrics onto discrete labels.
//
// Every classification is an ordered table of (predicate, label) rules
// evaluated first-match-wins, with a default label that makes the table
// exhaustive. Thresholds are named constants so they can be tuned without
// touching the report code.
package segment

// Rule pairs a predicate with the label it assigns.
type Rule[T any] struct {
	Label string
	Match func(T) bool
}

// Cascade is an ordered list of rules with a fallback label.
type Cascade[T any] struct {
	Rules   []Rule[T]
	Default string
}

// Classify returns the label of the first matching rule, or the default.
func (c Cascade[T]) Classify(v T) string {
	for _, r := range c.Rules {
		if r.Match(v) {
			return r.Label
		}
	}
	return c.Default
}

// Labels returns every label the cascade can produce, in rule order.
func (c Cascade[T]) Labels() []string {
	labels := make([]string, 0, len(c.Rules)+1)
	for _, r := range c.Rules {
		labels = append(labels, r.Label)
	}
	return append(labels, c.Default)
}
