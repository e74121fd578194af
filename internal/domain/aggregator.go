package domain

// AggregationMethod selects how judges' total scores combine into a
// session's final score.
type AggregationMethod string

const (
	// AggregationAverage is the arithmetic mean of all submitted totals.
	AggregationAverage AggregationMethod = "average"

	// AggregationMedian is the standard median; even counts average the two
	// middle values.
	AggregationMedian AggregationMethod = "median"

	// AggregationWeighted weights each judge's total by a configured judge
	// weight and falls back to the average when no weights are configured.
	AggregationWeighted AggregationMethod = "weighted"
)

// String returns the string representation of the aggregation method.
func (m AggregationMethod) String() string { return string(m) }

// Valid reports whether m is a supported method.
func (m AggregationMethod) Valid() bool {
	switch m {
	case AggregationAverage, AggregationMedian, AggregationWeighted:
		return true
	}
	return false
}

// Aggregator combines judge total scores into a single value.
// Implementations provide the different strategies named by
// AggregationMethod.
type Aggregator interface {
	// Method names the strategy.
	Method() AggregationMethod

	// Aggregate combines the scores. weights is either nil or has the same
	// length as scores; strategies that do not weight ignore it.
	//
	// Implementations must reject empty input and NaN or infinite values.
	//
	// Example:
	//
	//	scores := []float64{7.2, 6.8}
	//	final, err := aggregator.Aggregate(scores, nil)
	Aggregate(scores []float64, weights []float64) (float64, error)
}
