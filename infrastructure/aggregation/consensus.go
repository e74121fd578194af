package aggregation

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/ahrav/go-gavel-contests/internal/domain"
)

// DefaultMaxVariance is the variance at which AgreementLevel reaches zero.
// It assumes judge totals spread over a 10-point range. Changing it moves
// externally visible agreement numbers.
const DefaultMaxVariance = 25.0

// Variance returns the population variance (mean of squared deviations).
// It is used for reporting only. Empty input yields 0.
func Variance(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	v, err := stats.PopulationVariance(scores)
	if err != nil {
		return 0
	}
	return v
}

// AgreementLevel maps variance onto [0, 100]:
//
//	max(0, (1 - variance/maxVariance) * 100)
//
// It is a heuristic, not a statistical agreement coefficient. A
// non-positive maxVariance selects DefaultMaxVariance.
func AgreementLevel(scores []float64, maxVariance float64) float64 {
	if maxVariance <= 0 {
		maxVariance = DefaultMaxVariance
	}
	level := (1 - Variance(scores)/maxVariance) * 100
	return math.Max(0, level)
}

// ConsensusBand returns how far a score may sit from the mean and still
// count as agreeing. The band is a fraction of the mean's magnitude, so
// low-scoring sessions get a tight band.
//
// TODO: replace with an absolute point delta if product settles the open
// question on low-mean sessions; CheckConsensus only calls through here.
func ConsensusBand(mean, threshold float64) float64 {
	return math.Abs(mean) * (1 - threshold)
}

// CheckConsensus reports whether at least threshold of the scores fall
// within ConsensusBand of their mean. Fewer than two scores always agree.
func CheckConsensus(scores []float64, threshold float64) bool {
	if len(scores) < 2 {
		return true
	}
	mean, err := stats.Mean(scores)
	if err != nil {
		return false
	}
	band := ConsensusBand(mean, threshold)

	within := 0
	for _, s := range scores {
		if math.Abs(s-mean) <= band {
			within++
		}
	}
	return float64(within)/float64(len(scores)) >= threshold
}

// Summarize computes the reporting statistics for a set of judge totals.
func Summarize(scores []float64, maxVariance float64) domain.Statistics {
	if len(scores) == 0 {
		return domain.Statistics{}
	}
	mean, _ := stats.Mean(scores)
	median, _ := stats.Median(scores)
	minScore, _ := stats.Min(scores)
	maxScore, _ := stats.Max(scores)
	return domain.Statistics{
		Count:          len(scores),
		AverageScore:   mean,
		MedianScore:    median,
		ScoreVariance:  Variance(scores),
		AgreementLevel: AgreementLevel(scores, maxVariance),
		MinScore:       minScore,
		MaxScore:       maxScore,
	}
}
