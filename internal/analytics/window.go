package analytics

import (
	"cmp"
	"math"
	"slices"
	"time"
)

// DefaultMovingWindow is the trailing window of MovingAverage: the current
// period and the two before it.
const DefaultMovingWindow = 3

// Change is a value compared with its strict predecessor in a sequence.
type Change struct {
	Value    float64
	Previous *float64
	Delta    *float64
	Percent  *float64
}

// Trend pairs every value with the one before it. Percent is nil when there
// is no previous value or the previous value is zero.
func Trend(values []float64) []Change {
	out := make([]Change, len(values))
	for i, v := range values {
		c := Change{Value: v}
		if i > 0 {
			prev := values[i-1]
			delta := v - prev
			c.Previous = &prev
			c.Delta = &delta
			if prev != 0 {
				pct := Round((v-prev)/prev*100, 2)
				c.Percent = &pct
			}
		}
		out[i] = c
	}
	return out
}

// RunningTotal returns the prefix sums of values.
func RunningTotal(values []float64) []float64 {
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		out[i] = sum
	}
	return out
}

// MovingAverage returns the mean of each value and up to window-1
// predecessors. The first periods average over the partial window.
func MovingAverage(values []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(values))
	ring := make([]float64, window)
	var sum float64
	for i, v := range values {
		slot := i % window
		if i >= window {
			sum -= ring[slot]
		}
		ring[slot] = v
		sum += v
		out[i] = sum / float64(min(i+1, window))
	}
	return out
}

// Rank assigns descending competition ranks: ties share a rank and the
// next rank skips by the size of the tie.
func Rank(values []float64) []int {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(values[b], values[a])
	})

	ranks := make([]int, len(values))
	for pos, i := range idx {
		if pos > 0 && values[i] == values[idx[pos-1]] {
			ranks[i] = ranks[idx[pos-1]]
			continue
		}
		ranks[i] = pos + 1
	}
	return ranks
}

// Contribution returns each value's share of the total in percent, rounded
// to two places. Every share is nil when the total is zero.
func Contribution(values []float64) []*float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	out := make([]*float64, len(values))
	if total == 0 {
		return out
	}
	for i, v := range values {
		pct := Round(v/total*100, 2)
		out[i] = &pct
	}
	return out
}

// Average is the arithmetic mean, zero for an empty slice.
func Average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Round rounds half away from zero to the given decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// SafeDiv returns num/den, or zero when den is zero.
func SafeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// MonthsBetween counts calendar month boundaries crossed from a to b.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// YearsBetween counts calendar year boundaries crossed from a to b.
func YearsBetween(a, b time.Time) int {
	return b.Year() - a.Year()
}
