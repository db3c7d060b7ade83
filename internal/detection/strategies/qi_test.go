package strategies

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

func TestQIStrategyMatchesNamePattern(t *testing.T) {
	s := NewQIStrategy(0.1, 0.9)
	col := &models.Column{Name: "zip_code"}

	candidates, err := s.Detect(context.Background(), col, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "QI_ZIP_CODE", candidates[0].PiiType)
	assert.Equal(t, 0.9, candidates[0].Confidence)
}

func TestQIStrategyIgnoresSamplesBelowMinimum(t *testing.T) {
	s := NewQIStrategy(0.1, 0.9)
	col := &models.Column{Name: "misc"}
	sample := &models.SampleData{Samples: []interface{}{"a", "b"}, TotalCount: 2}

	candidates, err := s.Detect(context.Background(), col, sample)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestQIStrategyDetectsMediumCardinalityDistribution(t *testing.T) {
	s := NewQIStrategy(0.1, 0.9)
	col := &models.Column{Name: "misc_field"}

	samples := make([]interface{}, 0, 20)
	for i := 0; i < 20; i++ {
		samples = append(samples, i%5) // 5 distinct values over 20 rows -> ratio 0.25
	}
	sample := &models.SampleData{Samples: samples, TotalCount: 20}

	candidates, err := s.Detect(context.Background(), col, sample)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "QUASI_ID_MEDIUM_CARDINALITY", candidates[0].PiiType)
	assert.Greater(t, candidates[0].Confidence, 0.5)
}

func TestQIStrategyOutsideCardinalityBandYieldsNoDistributionCandidate(t *testing.T) {
	s := NewQIStrategy(0.1, 0.3)
	col := &models.Column{Name: "misc_field"}

	samples := make([]interface{}, 0, 20)
	for i := 0; i < 20; i++ {
		samples = append(samples, i) // all distinct -> ratio 1.0, above band
	}
	sample := &models.SampleData{Samples: samples, TotalCount: 20}

	candidates, err := s.Detect(context.Background(), col, sample)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestQIStrategyNameIsQI(t *testing.T) {
	s := NewQIStrategy(0.1, 0.9)
	assert.Equal(t, models.StrategyQI, s.Name())
}
