package detection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pii-scanner/pii-scanner/internal/core/models"
	"github.com/pii-scanner/pii-scanner/internal/detection/strategies"
)

type fakeStrategy struct {
	name       models.StrategyName
	candidates []models.PiiCandidate
	err        error
	calls      *int
}

func (f fakeStrategy) Name() models.StrategyName { return f.name }

func (f fakeStrategy) Detect(ctx context.Context, column *models.Column, sample *models.SampleData) ([]models.PiiCandidate, error) {
	if f.calls != nil {
		*f.calls++
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

var _ strategies.Strategy = fakeStrategy{}

func TestPipelineRunScoresEachColumn(t *testing.T) {
	col1 := &models.Column{Name: "email"}
	col2 := &models.Column{Name: "phone"}
	samples := map[*models.Column]*models.SampleData{
		col1: {ColumnRef: col1},
		col2: {ColumnRef: col2},
	}

	heuristic := fakeStrategy{
		name: models.StrategyHeuristic,
		candidates: []models.PiiCandidate{
			{PiiType: "EMAIL", Confidence: 0.9, Strategy: models.StrategyHeuristic},
		},
	}

	p := New(heuristic, nil, nil, nil, Thresholds{Reporting: 0.5})
	results := p.Run(context.Background(), samples, nil, nil)

	require.Len(t, results, 2)
	assert.True(t, results[col1].HasPii())
	assert.True(t, results[col2].HasPii())
}

func TestPipelineStopsOnHighConfidenceSkipsLaterStrategies(t *testing.T) {
	col := &models.Column{Name: "email"}
	samples := map[*models.Column]*models.SampleData{col: {ColumnRef: col}}

	regexCalls := 0
	heuristic := fakeStrategy{
		name:       models.StrategyHeuristic,
		candidates: []models.PiiCandidate{{PiiType: "EMAIL", Confidence: 0.95, Strategy: models.StrategyHeuristic}},
	}
	regex := fakeStrategy{name: models.StrategyRegex, calls: &regexCalls}

	p := New(heuristic, regex, nil, nil, Thresholds{Heuristic: 0.9, Reporting: 0.5, StopOnHighConfidence: true})
	p.Run(context.Background(), samples, nil, nil)

	assert.Equal(t, 0, regexCalls, "regex strategy should be skipped once heuristic clears the stop threshold")
}

func TestPipelineFiltersBelowReportingThreshold(t *testing.T) {
	col := &models.Column{Name: "note"}
	samples := map[*models.Column]*models.SampleData{col: {ColumnRef: col}}

	heuristic := fakeStrategy{
		name:       models.StrategyHeuristic,
		candidates: []models.PiiCandidate{{PiiType: "MAYBE", Confidence: 0.2, Strategy: models.StrategyHeuristic}},
	}

	p := New(heuristic, nil, nil, nil, Thresholds{Reporting: 0.5})
	results := p.Run(context.Background(), samples, nil, nil)

	assert.False(t, results[col].HasPii(), "low-confidence candidate should be filtered below the reporting threshold")
}

func TestPipelineStrategyFailureDoesNotAbortColumn(t *testing.T) {
	col := &models.Column{Name: "x"}
	samples := map[*models.Column]*models.SampleData{col: {ColumnRef: col}}

	failing := fakeStrategy{name: models.StrategyHeuristic, err: errors.New("boom")}
	regex := fakeStrategy{
		name:       models.StrategyRegex,
		candidates: []models.PiiCandidate{{PiiType: "EMAIL", Confidence: 0.8, Strategy: models.StrategyRegex}},
	}

	p := New(failing, regex, nil, nil, Thresholds{Reporting: 0.5})
	results := p.Run(context.Background(), samples, nil, nil)

	require.Contains(t, results, col)
	assert.True(t, results[col].HasPii(), "a failing strategy should not prevent a later strategy's candidate from surviving")
}

func TestPipelineRespectsRequestedStrategySubset(t *testing.T) {
	col := &models.Column{Name: "x"}
	samples := map[*models.Column]*models.SampleData{col: {ColumnRef: col}}

	heuristicCalls := 0
	heuristic := fakeStrategy{name: models.StrategyHeuristic, calls: &heuristicCalls}
	regex := fakeStrategy{
		name:       models.StrategyRegex,
		candidates: []models.PiiCandidate{{PiiType: "EMAIL", Confidence: 0.8, Strategy: models.StrategyRegex}},
	}

	p := New(heuristic, regex, nil, nil, Thresholds{Reporting: 0.5})
	results := p.Run(context.Background(), samples, []models.StrategyName{models.StrategyRegex}, nil)

	assert.Equal(t, 0, heuristicCalls, "heuristic strategy should not run when only REGEX was requested")
	assert.True(t, results[col].HasPii())
}
