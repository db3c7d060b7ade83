package strategies

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

func TestHeuristicStrategyMatchesColumnNameOverComment(t *testing.T) {
	s, err := NewHeuristicStrategy()
	require.NoError(t, err)

	col := &models.Column{Name: "email_address", Comments: "phone number, oddly"}
	candidates, err := s.Detect(context.Background(), col, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "EMAIL", candidates[0].PiiType)
	assert.Equal(t, 0.85, candidates[0].Confidence)
}

func TestHeuristicStrategyFallsBackToCommentWhenNameMisses(t *testing.T) {
	s, err := NewHeuristicStrategy()
	require.NoError(t, err)

	col := &models.Column{Name: "col1", Comments: "customer social security number"}
	candidates, err := s.Detect(context.Background(), col, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "SSN", candidates[0].PiiType)
	assert.InDelta(t, 0.8*0.9, candidates[0].Confidence, 0.0001)
}

func TestHeuristicStrategyNoMatchReturnsEmptyOrFuzzyOnly(t *testing.T) {
	s, err := NewHeuristicStrategy()
	require.NoError(t, err)

	col := &models.Column{Name: "xyz_totally_unrelated_field"}
	candidates, err := s.Detect(context.Background(), col, nil)
	require.NoError(t, err)
	for _, c := range candidates {
		assert.LessOrEqual(t, c.Confidence, 0.4)
	}
}

func TestHeuristicStrategyNameIsHeuristic(t *testing.T) {
	s, err := NewHeuristicStrategy()
	require.NoError(t, err)
	assert.Equal(t, models.StrategyHeuristic, s.Name())
}
