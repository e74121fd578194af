package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregationMethod_Valid(t *testing.T) {
	for _, m := range []AggregationMethod{AggregationAverage, AggregationMedian, AggregationWeighted} {
		assert.True(t, m.Valid(), m.String())
	}
	assert.False(t, AggregationMethod("mode").Valid())
	assert.False(t, AggregationMethod("").Valid())
}
