package strategies

import (
	"context"

	"github.com/pii-scanner/pii-scanner/internal/core/models"
	"github.com/pii-scanner/pii-scanner/internal/detection/patterns"
)

// RegexStrategy applies a named pattern bank to each non-null sample,
// emitting one candidate per piiType with confidence scaled by the
// fraction of samples that matched (spec.md §4.3).
type RegexStrategy struct {
	bank *patterns.Bank
}

// NewRegexStrategy builds the strategy over the given bank.
func NewRegexStrategy(bank *patterns.Bank) *RegexStrategy {
	return &RegexStrategy{bank: bank}
}

func (s *RegexStrategy) Name() models.StrategyName { return models.StrategyRegex }

// Detect scores every pattern whose gating condition applies against
// the sample's non-null string values, producing at most one candidate
// per piiType. An empty sample yields no candidates.
func (s *RegexStrategy) Detect(_ context.Context, column *models.Column, sample *models.SampleData) ([]models.PiiCandidate, error) {
	if sample == nil {
		return nil, nil
	}
	values := sample.NonNullStrings()
	if len(values) == 0 {
		return nil, nil
	}

	env := map[string]interface{}{
		"nonNullCount": len(values),
		"totalCount":   sample.TotalCount,
		"distinctRatio": sample.DistinctRatio(),
	}

	var candidates []models.PiiCandidate
	for _, p := range s.bank.Patterns() {
		if !p.Applies(env) {
			continue
		}
		matches := 0
		for _, v := range values {
			if p.Match(v) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		confidence := p.BaseScore * (float64(matches) / float64(len(values)))
		if confidence > 1 {
			confidence = 1
		}
		if confidence < 0 {
			confidence = 0
		}
		candidates = append(candidates, models.PiiCandidate{
			ColumnRef:  column,
			PiiType:    p.PiiType,
			Confidence: confidence,
			Strategy:   models.StrategyRegex,
			Evidence:   p.Name,
		})
	}
	return candidates, nil
}
