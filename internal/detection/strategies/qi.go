package strategies

import (
	"context"
	"math"
	"regexp"

	"github.com/pii-scanner/pii-scanner/internal/core/models"
)

// qiNameRule matches column names/comments that are classic
// quasi-identifiers: individually mundane, jointly re-identifying.
type qiNameRule struct {
	Pattern *regexp.Regexp
	PiiType string
}

var qiNameRules = []qiNameRule{
	{keywordRegexp(`(?i)\b(gender|sex)\b`), "QI_GENDER"},
	{keywordRegexp(`(?i)\b(zip|postal[-_ ]?code|postcode)\b`), "QI_ZIP_CODE"},
	{keywordRegexp(`(?i)\b(dob|date[-_]?of[-_]?birth|birth[-_]?date)\b`), "QI_DATE_OF_BIRTH"},
	{keywordRegexp(`(?i)\b(city|town)\b`), "QI_CITY"},
	{keywordRegexp(`(?i)\b(state|province|region)\b`), "QI_REGION"},
	{keywordRegexp(`(?i)\b(age)\b`), "QI_AGE"},
	{keywordRegexp(`(?i)\b(nationality|ethnicity|race)\b`), "QI_ETHNICITY"},
	{keywordRegexp(`(?i)\b(occupation|job[-_]?title)\b`), "QI_OCCUPATION"},
}

const qiMinSamples = 10

// QIStrategy recognizes quasi-identifier columns both by name/comment
// pattern and by medium-cardinality value distribution (spec.md §4.3).
// It never emits PII-family types; its candidates are consumed
// separately by the correlation analyzer (C6).
type QIStrategy struct {
	lowCardinalityThreshold  float64
	highCardinalityThreshold float64
}

// NewQIStrategy builds the strategy with the configured cardinality
// band used to score QUASI_ID_MEDIUM_CARDINALITY candidates.
func NewQIStrategy(lowCardinalityThreshold, highCardinalityThreshold float64) *QIStrategy {
	return &QIStrategy{
		lowCardinalityThreshold:  lowCardinalityThreshold,
		highCardinalityThreshold: highCardinalityThreshold,
	}
}

func (s *QIStrategy) Name() models.StrategyName { return models.StrategyQI }

func (s *QIStrategy) Detect(_ context.Context, column *models.Column, sample *models.SampleData) ([]models.PiiCandidate, error) {
	var candidates []models.PiiCandidate

	for _, r := range qiNameRules {
		if r.Pattern.MatchString(column.Name) || (column.Comments != "" && r.Pattern.MatchString(column.Comments)) {
			candidates = append(candidates, models.PiiCandidate{
				ColumnRef:  column,
				PiiType:    r.PiiType,
				Confidence: 0.9,
				Strategy:   models.StrategyQI,
				Evidence:   "name/comment quasi-identifier pattern",
			})
			break
		}
	}

	if sample == nil {
		return candidates, nil
	}
	nonNull := sample.NonNullSamples()
	if len(nonNull) < qiMinSamples {
		return candidates, nil
	}

	ratio := sample.DistinctRatio()
	if ratio >= s.lowCardinalityThreshold && ratio <= s.highCardinalityThreshold {
		midpoint := (s.lowCardinalityThreshold + s.highCardinalityThreshold) / 2
		band := (s.highCardinalityThreshold - s.lowCardinalityThreshold) / 2
		var proximity float64
		if band > 0 {
			proximity = 1 - math.Abs(ratio-midpoint)/band
		}
		confidence := 0.5 + 0.4*proximity
		if confidence > 0.9 {
			confidence = 0.9
		}
		if confidence < 0 {
			confidence = 0
		}
		candidates = append(candidates, models.PiiCandidate{
			ColumnRef:  column,
			PiiType:    "QUASI_ID_MEDIUM_CARDINALITY",
			Confidence: confidence,
			Strategy:   models.StrategyQI,
			Evidence:   "medium-cardinality value distribution",
		})
	}

	return candidates, nil
}
