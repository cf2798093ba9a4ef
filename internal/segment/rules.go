package segment

// Customer segment thresholds.
const (
	LoyalMinLifespanMonths   = 12
	RegularMinLifespanMonths = 6
	VIPMinSales              = 10000.0 // exclusive
	LoyalMinSales            = 5000.0
)

// Customer segment labels.
const (
	SegmentVIP     = "VIP"
	SegmentLoyal   = "Loyal"
	SegmentRegular = "Regular"
	SegmentNew     = "New"
)

// CustomerActivity is the input of the customer segment cascade.
type CustomerActivity struct {
	LifespanMonths int
	TotalSales     float64
}

// CustomerSegments classifies customers by tenure and spend.
var CustomerSegments = Cascade[CustomerActivity]{
	Rules: []Rule[CustomerActivity]{
		{Label: SegmentVIP, Match: func(a CustomerActivity) bool {
			return a.LifespanMonths >= LoyalMinLifespanMonths && a.TotalSales > VIPMinSales
		}},
		{Label: SegmentLoyal, Match: func(a CustomerActivity) bool {
			return a.LifespanMonths >= LoyalMinLifespanMonths &&
				a.TotalSales >= LoyalMinSales && a.TotalSales <= VIPMinSales
		}},
		{Label: SegmentRegular, Match: func(a CustomerActivity) bool {
			return a.LifespanMonths >= RegularMinLifespanMonths
		}},
	},
	Default: SegmentNew,
}

// CustomerSegment labels a customer.
func CustomerSegment(lifespanMonths int, totalSales float64) string {
	return CustomerSegments.Classify(CustomerActivity{LifespanMonths: lifespanMonths, TotalSales: totalSales})
}

// Age band lower bounds.
const (
	AgeTwentyMin = 20
	AgeThirtyMin = 30
	AgeFortyMin  = 40
	AgeFiftyMin  = 50
)

// Age group labels.
const (
	AgeUnknown = "n/a"
	AgeUnder20 = "Under 20"
	Age20s     = "20-29"
	Age30s     = "30-39"
	Age40s     = "40-49"
	Age50Plus  = "50 and above"
)

// AgeGroups buckets an age in years; nil means the birthdate is unknown.
var AgeGroups = Cascade[*int]{
	Rules: []Rule[*int]{
		{Label: AgeUnknown, Match: func(a *int) bool { return a == nil }},
		{Label: AgeUnder20, Match: func(a *int) bool { return *a < AgeTwentyMin }},
		{Label: Age20s, Match: func(a *int) bool { return *a < AgeThirtyMin }},
		{Label: Age30s, Match: func(a *int) bool { return *a < AgeFortyMin }},
		{Label: Age40s, Match: func(a *int) bool { return *a < AgeFiftyMin }},
	},
	Default: Age50Plus,
}

// AgeGroup labels an age.
func AgeGroup(age *int) string {
	return AgeGroups.Classify(age)
}

// Product revenue thresholds.
const (
	HighPerformerMinSales = 50000.0 // exclusive
	MidRangeMinSales      = 10000.0
)

// Product revenue tier labels.
const (
	TierHighPerformer = "High-Performer"
	TierMidRange      = "Mid-Range"
	TierLowPerformer  = "Low-Performer"
)

// RevenueTiers classifies products by total sales.
var RevenueTiers = Cascade[float64]{
	Rules: []Rule[float64]{
		{Label: TierHighPerformer, Match: func(s float64) bool { return s > HighPerformerMinSales }},
		{Label: TierMidRange, Match: func(s float64) bool { return s >= MidRangeMinSales }},
	},
	Default: TierLowPerformer,
}

// RevenueTier labels a product's total sales.
func RevenueTier(totalSales float64) string {
	return RevenueTiers.Classify(totalSales)
}

// Product reach thresholds.
const (
	BroadAppealMinCustomers    = 100 // exclusive
	ModerateAppealMinCustomers = 25
)

// Product reach tier labels.
const (
	ReachBroad    = "Broad Appeal"
	ReachModerate = "Moderate Appeal"
	ReachNiche    = "Niche Product"
)

// ReachTiers classifies products by distinct customers.
var ReachTiers = Cascade[int]{
	Rules: []Rule[int]{
		{Label: ReachBroad, Match: func(n int) bool { return n > BroadAppealMinCustomers }},
		{Label: ReachModerate, Match: func(n int) bool { return n >= ModerateAppealMinCustomers }},
	},
	Default: ReachNiche,
}

// ReachTier labels a product's customer count.
func ReachTier(totalCustomers int) string {
	return ReachTiers.Classify(totalCustomers)
}

// Category contribution thresholds, in percent of the yearly total.
const (
	TopPerformerMinPercent = 30.0
	ModerateMinPercent     = 10.0
)

// Category contribution labels.
const (
	ContributionTop      = "Top Performer"
	ContributionModerate = "Moderate"
	ContributionLow      = "Low Performer"
)

// ContributionTags classifies a share of a yearly total.
var ContributionTags = Cascade[float64]{
	Rules: []Rule[float64]{
		{Label: ContributionTop, Match: func(p float64) bool { return p >= TopPerformerMinPercent }},
		{Label: ContributionModerate, Match: func(p float64) bool { return p >= ModerateMinPercent }},
	},
	Default: ContributionLow,
}

// ContributionTag labels a contribution percentage.
func ContributionTag(percent float64) string {
	return ContributionTags.Classify(percent)
}

// Product cost range bounds.
const (
	CostLowMax  = 100.0
	CostMidMax  = 500.0
	CostHighMax = 1000.0
)

// Product cost range labels.
const (
	CostBelow100  = "Below 100"
	Cost100To500  = "100-500"
	Cost500To1000 = "500-1000"
	CostAbove1000 = "Above 1000"
)

// CostRanges buckets a product cost.
var CostRanges = Cascade[float64]{
	Rules: []Rule[float64]{
		{Label: CostBelow100, Match: func(c float64) bool { return c < CostLowMax }},
		{Label: Cost100To500, Match: func(c float64) bool { return c <= CostMidMax }},
		{Label: Cost500To1000, Match: func(c float64) bool { return c <= CostHighMax }},
	},
	Default: CostAbove1000,
}

// CostRange labels a product cost.
func CostRange(cost float64) string {
	return CostRanges.Classify(cost)
}

// Comparison labels against an average.
const (
	AboveAverage = "Above Avg"
	BelowAverage = "Below Avg"
	AtAverage    = "Avg"
)

// VersusAverage compares a value with an average.
func VersusAverage(value, avg float64) string {
	switch {
	case value > avg:
		return AboveAverage
	case value < avg:
		return BelowAverage
	default:
		return AtAverage
	}
}

// Direction labels against a previous period.
const (
	Increase = "Increase"
	Decrease = "Decrease"
	NoChange = "No Change"
)

// Direction compares a value with the previous period's. A missing
// previous value reads as no change.
func Direction(value float64, prev *float64) string {
	switch {
	case prev == nil:
		return NoChange
	case value > *prev:
		return Increase
	case value < *prev:
		return Decrease
	default:
		return NoChange
	}
}
