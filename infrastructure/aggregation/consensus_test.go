package aggregation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariance(t *testing.T) {
	assert.InDelta(t, 0.04, Variance([]float64{7.2, 6.8}), 1e-9)
	assert.InDelta(t, 0, Variance([]float64{5, 5, 5}), 1e-9)
	assert.InDelta(t, 4, Variance([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-9)
	assert.Zero(t, Variance(nil))
}

func TestAgreementLevel(t *testing.T) {
	tests := []struct {
		name        string
		scores      []float64
		maxVariance float64
		expected    float64
	}{
		{name: "unanimous", scores: []float64{6, 6, 6}, expected: 100},
		{name: "small spread", scores: []float64{7.2, 6.8}, expected: 99.84},
		{name: "variance four", scores: []float64{2, 4, 4, 4, 5, 5, 7, 9}, expected: 84},
		{name: "clamped at zero", scores: []float64{0, 10, 0, 10, 0, 10}, maxVariance: 10, expected: 0},
		{name: "custom max variance", scores: []float64{2, 4, 4, 4, 5, 5, 7, 9}, maxVariance: 8, expected: 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, AgreementLevel(tt.scores, tt.maxVariance), 1e-9)
		})
	}
}

func TestCheckConsensus(t *testing.T) {
	tests := []struct {
		name      string
		scores    []float64
		threshold float64
		expected  bool
	}{
		{name: "single score always agrees", scores: []float64{3}, threshold: 0.8, expected: true},
		{name: "no scores agree", scores: nil, threshold: 0.8, expected: true},
		{name: "close scores", scores: []float64{7.2, 6.8}, threshold: 0.8, expected: true},
		{name: "one outlier of two", scores: []float64{8, 4}, threshold: 0.8, expected: false},
		// mean 7, band 1.4: 8.5 is out, three of four in, 0.75 < 0.8.
		{name: "one outlier of four", scores: []float64{6, 6.5, 7, 8.5}, threshold: 0.8, expected: false},
		{name: "lower threshold widens band", scores: []float64{8, 4}, threshold: 0.5, expected: true},
		{name: "low mean has a tight band", scores: []float64{1, 2}, threshold: 0.8, expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CheckConsensus(tt.scores, tt.threshold))
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{6.8, 7.2, 8.0}, 0)
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 7.333333333, s.AverageScore, 1e-6)
	assert.InDelta(t, 7.2, s.MedianScore, 1e-9)
	assert.InDelta(t, 6.8, s.MinScore, 1e-9)
	assert.InDelta(t, 8.0, s.MaxScore, 1e-9)
	assert.Greater(t, s.AgreementLevel, 0.0)

	assert.Equal(t, 0, Summarize(nil, 0).Count)
}
