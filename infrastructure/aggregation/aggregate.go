package aggregation

import (
	"fmt"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"github.com/ahrav/go-gavel-contests/internal/domain"
)

var (
	_ domain.Aggregator = MeanAggregator{}
	_ domain.Aggregator = MedianAggregator{}
	_ domain.Aggregator = WeightedAggregator{}
)

// MeanAggregator combines judge totals with the arithmetic mean.
//
// Concurrency: stateless and safe for concurrent use.
type MeanAggregator struct{}

// Method implements domain.Aggregator.
func (MeanAggregator) Method() domain.AggregationMethod { return domain.AggregationAverage }

// Aggregate returns Σscores / count. Weights are ignored.
func (MeanAggregator) Aggregate(scores []float64, _ []float64) (float64, error) {
	if err := checkScores(scores); err != nil {
		return 0, err
	}
	return stats.Mean(scores)
}

// MedianAggregator combines judge totals with the statistical median:
//   - Odd count: the middle value after sorting
//   - Even count: the arithmetic mean of the two middle values
//
// The input slice is not reordered.
type MedianAggregator struct{}

// Method implements domain.Aggregator.
func (MedianAggregator) Method() domain.AggregationMethod { return domain.AggregationMedian }

// Aggregate returns the median of scores. Weights are ignored.
func (MedianAggregator) Aggregate(scores []float64, _ []float64) (float64, error) {
	if err := checkScores(scores); err != nil {
		return 0, err
	}
	// stats.Median sorts a copy, so the caller's order is preserved.
	return stats.Median(scores)
}

// WeightedAggregator weights each judge's total by a per-judge weight.
// Without weights it behaves exactly like MeanAggregator; that fallback is
// part of the contract of the "weighted" method.
type WeightedAggregator struct{}

// Method implements domain.Aggregator.
func (WeightedAggregator) Method() domain.AggregationMethod { return domain.AggregationWeighted }

// Aggregate returns Σ(wᵢ·sᵢ) / Σwᵢ, or the mean when weights is empty.
func (WeightedAggregator) Aggregate(scores []float64, weights []float64) (float64, error) {
	if err := checkScores(scores); err != nil {
		return 0, err
	}
	if len(weights) == 0 {
		return MeanAggregator{}.Aggregate(scores, nil)
	}
	if len(weights) != len(scores) {
		return 0, fmt.Errorf("%w: scores=%d, weights=%d", ErrWeightMismatch, len(scores), len(weights))
	}

	var sum float64
	for i, w := range weights {
		if w < 0 {
			return 0, fmt.Errorf("%w: negative weight at index %d", ErrInvalidWeights, i)
		}
		sum += w
	}
	if sum == 0 {
		return 0, fmt.Errorf("%w: weights sum to zero", ErrInvalidWeights)
	}
	return stat.Mean(scores, weights), nil
}

// For returns the aggregator implementing method.
func For(method domain.AggregationMethod) (domain.Aggregator, error) {
	switch method {
	case domain.AggregationAverage:
		return MeanAggregator{}, nil
	case domain.AggregationMedian:
		return MedianAggregator{}, nil
	case domain.AggregationWeighted:
		return WeightedAggregator{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
}

// Aggregate combines scores with the named method. weights is only
// consulted by the weighted method.
//
// Example:
//
//	final, err := aggregation.Aggregate([]float64{7.2, 6.8}, domain.AggregationAverage, nil)
//	// final == 7.0
func Aggregate(scores []float64, method domain.AggregationMethod, weights []float64) (float64, error) {
	agg, err := For(method)
	if err != nil {
		return 0, err
	}
	return agg.Aggregate(scores, weights)
}
