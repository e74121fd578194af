// Package aggregation provides the score aggregation strategies and the
// consensus measures used to turn independent judge totals into a session
// decision.
package aggregation

import (
	"errors"
	"fmt"
	"math"
)

// Common errors returned by the aggregation strategies.
var (
	// ErrNoScores is returned when no scores are provided for aggregation.
	ErrNoScores = errors.New("no scores provided for aggregation")

	// ErrWeightMismatch is returned when weights and scores differ in length.
	ErrWeightMismatch = errors.New("scores and weights length mismatch")

	// ErrInvalidWeights is returned when weights are negative or sum to zero.
	ErrInvalidWeights = errors.New("invalid aggregation weights")

	// ErrUnknownMethod is returned for an unsupported aggregation method.
	ErrUnknownMethod = errors.New("unknown aggregation method")
)

// checkScores rejects empty input and non-finite values. NaN and Inf would
// corrupt every downstream statistic.
func checkScores(scores []float64) error {
	if len(scores) == 0 {
		return ErrNoScores
	}
	for i, score := range scores {
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return fmt.Errorf("invalid score at index %d: %f", i, score)
		}
	}
	return nil
}
